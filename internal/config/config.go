package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/sevigo/code-reviser/internal/logger"
)

// Config holds the application's configuration values.
type Config struct {
	Server     ServerConfig    `mapstructure:"server"`
	GitHub     GitHubConfig    `mapstructure:"github"`
	AI         AIConfig        `mapstructure:"ai"`
	Workspace  WorkspaceConfig `mapstructure:"workspace"`
	Database   DBConfig        `mapstructure:"database"`
	Logging    logger.Config   `mapstructure:"logging"`
	MaxWorkers int             `mapstructure:"max_workers"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
}

// GitHubConfig covers webhook validation and push authentication. Either a
// static Token or an App (AppID + PrivateKeyPath) must be configured.
type GitHubConfig struct {
	Token          string   `mapstructure:"token"`
	AppID          int64    `mapstructure:"app_id"`
	PrivateKeyPath string   `mapstructure:"private_key_path"`
	WebhookSecret  string   `mapstructure:"webhook_secret"`
	BotLogin       string   `mapstructure:"bot_login"`
	TriggerStates  []string `mapstructure:"trigger_states"`
	PostComment    bool     `mapstructure:"post_comment"`
}

type AIConfig struct {
	LLMProvider    string `mapstructure:"llm_provider"`
	GeneratorModel string `mapstructure:"generator_model"`
	GeminiAPIKey   string `mapstructure:"gemini_api_key"`
	OllamaHost     string `mapstructure:"ollama_host"`
	// GenerationTimeout bounds a single model call. Zero leaves the call unbounded.
	GenerationTimeout time.Duration `mapstructure:"generation_timeout"`
}

// WorkspaceConfig describes the shared working copy.
type WorkspaceConfig struct {
	Path        string        `mapstructure:"path"`
	LockTimeout time.Duration `mapstructure:"lock_timeout"`
	// Zero disables the corresponding budget.
	MaxSnapshotBytes int64  `mapstructure:"max_snapshot_bytes"`
	MaxDiffBytes     int64  `mapstructure:"max_diff_bytes"`
	AuthorName       string `mapstructure:"author_name"`
	AuthorEmail      string `mapstructure:"author_email"`
}

type DBConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

// Enabled reports whether run history should be persisted.
func (c DBConfig) Enabled() bool {
	return c.Host != ""
}

// LoadConfig reads configuration from config.yaml and REVISER_* environment
// variables, sets sensible defaults, and validates required fields. It uses the
// Viper library to handle configuration loading and precedence.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.SetEnvPrefix("REVISER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			slog.Error("failed to read config file", "error", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if cfg.AI.GeneratorModel == "" {
		cfg.AI.GeneratorModel = defaultGeneratorModel(cfg.AI.LLMProvider)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// defaultGeneratorModel picks the model used when none is configured.
func defaultGeneratorModel(provider string) string {
	if provider == "gemini" {
		return "gemini-2.5-flash"
	}
	return "gemma3:latest"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("github.token", "")
	v.SetDefault("github.app_id", 0)
	v.SetDefault("github.private_key_path", "keys/code-reviser.private-key.pem")
	v.SetDefault("github.webhook_secret", "")
	v.SetDefault("github.bot_login", "")
	v.SetDefault("github.trigger_states", []string{"changes_requested", "commented"})
	v.SetDefault("github.post_comment", false)
	v.SetDefault("ai.llm_provider", "ollama")
	v.SetDefault("ai.generator_model", "")
	v.SetDefault("ai.gemini_api_key", "")
	v.SetDefault("ai.ollama_host", "http://localhost:11434")
	v.SetDefault("ai.generation_timeout", 0)
	v.SetDefault("workspace.path", "")
	v.SetDefault("workspace.lock_timeout", 10*time.Minute)
	v.SetDefault("workspace.max_snapshot_bytes", 0)
	v.SetDefault("workspace.max_diff_bytes", 0)
	v.SetDefault("workspace.author_name", "code-reviser")
	v.SetDefault("workspace.author_email", "code-reviser@users.noreply.github.com")
	v.SetDefault("database.host", "")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.username", "reviser")
	v.SetDefault("database.password", "")
	v.SetDefault("database.database", "code_reviser")
	v.SetDefault("database.conn_max_lifetime", 30*time.Minute)
	v.SetDefault("database.conn_max_idle_time", 5*time.Minute)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("max_workers", 1)
}

// Validate checks the fields every entry point needs.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Workspace.Path) == "" {
		return fmt.Errorf("workspace.path must be set")
	}
	if c.GitHub.Token == "" && c.GitHub.AppID == 0 {
		return fmt.Errorf("either github.token or github.app_id must be set")
	}
	if c.GitHub.Token == "" && c.GitHub.PrivateKeyPath == "" {
		return fmt.Errorf("github.private_key_path must be set when using a GitHub App")
	}
	switch c.AI.LLMProvider {
	case "gemini":
		if c.AI.GeminiAPIKey == "" {
			return fmt.Errorf("ai.gemini_api_key must be set for the gemini provider")
		}
	case "ollama":
	default:
		return fmt.Errorf("unsupported LLM provider: %s", c.AI.LLMProvider)
	}
	if c.Workspace.MaxSnapshotBytes < 0 || c.Workspace.MaxDiffBytes < 0 {
		return fmt.Errorf("workspace budgets cannot be negative")
	}
	if c.MaxWorkers <= 0 {
		c.MaxWorkers = 1
	}
	return nil
}
