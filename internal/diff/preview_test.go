package diff

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPreview(t *testing.T) {
	before := "class User {\n  getUser() {}\n}\n"
	after := "class User {\n  fetchUser() {}\n}\n"

	lines := Preview(before, after)
	assert.Equal(t, []PreviewLine{
		{Op: LineEqual, Text: "class User {"},
		{Op: LineRemoved, Text: "  getUser() {}"},
		{Op: LineAdded, Text: "  fetchUser() {}"},
		{Op: LineEqual, Text: "}"},
	}, lines)

	added, removed := CountChanges(lines)
	assert.Equal(t, 1, added)
	assert.Equal(t, 1, removed)
}

func TestPreview_NewFile(t *testing.T) {
	lines := Preview("", "a\nb")
	assert.Equal(t, []PreviewLine{
		{Op: LineAdded, Text: "a"},
		{Op: LineAdded, Text: "b"},
	}, lines)
}

func TestPreview_Identical(t *testing.T) {
	added, removed := CountChanges(Preview("same\n", "same\n"))
	assert.Zero(t, added)
	assert.Zero(t, removed)
}
