package core

// RepoConfig represents the structure of the .reviser.yml file.
type RepoConfig struct {
	// Custom instructions appended to the revision prompt.
	CustomInstructions []string `yaml:"custom_instructions"`

	// Directories (relative to the repository root) that make up the source
	// snapshot. Empty means the whole tree.
	// Example: ["lib", "test"]
	IncludeDirs []string `yaml:"include_dirs"`

	// High-performance exclusion of entire directories by name.
	// Example: ["dist", "build", "docs"]
	ExcludeDirs []string `yaml:"exclude_dirs"`

	// Exclusion of files based on their extension.
	// The leading dot is optional. Example: [".md", "lock", ".log"]
	ExcludeExts []string `yaml:"exclude_exts"`
}

// DefaultRepoConfig returns a config with default values.
func DefaultRepoConfig() *RepoConfig {
	return &RepoConfig{
		CustomInstructions: []string{},
		IncludeDirs:        []string{},
		ExcludeDirs:        []string{},
		ExcludeExts:        []string{},
	}
}
