package catalogue

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codebench/codebench/internal/evalmodel"
)

func writeCatalogue(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const validDoc = `
[eval_set]
id = "strings-1"
name = "String basics"
default_language = "rust"

[[cases]]
id = "reverse"
name = "Reverse a string"
prompt = "Write a function that reverses a string."

[cases.expectations]
should_compile = true
should_pass_tests = true
test_file = "fn test_reverse() { assert_eq!(reverse(\"ab\"), \"ba\"); }"
`

func TestLoadSingleFile(t *testing.T) {
	dir := t.TempDir()
	path := writeCatalogue(t, dir, "strings.toml", validDoc)

	sets, warnings, err := Load(path)
	require.NoError(t, err)
	require.Empty(t, warnings)
	require.Len(t, sets, 1)

	set := sets[0]
	assert.Equal(t, "strings-1", set.ID)
	assert.Equal(t, evalmodel.Rust, set.DefaultLanguage)
	require.Len(t, set.Cases, 1)
	assert.Equal(t, "reverse", set.Cases[0].ID)
	assert.True(t, set.Cases[0].Expectations.ShouldPassTests)
}

func TestLoadDirectorySortedByPath(t *testing.T) {
	dir := t.TempDir()
	writeCatalogue(t, dir, "b-set.toml", `
[eval_set]
id = "b"
name = "B"
[[cases]]
id = "c1"
name = "C1"
prompt = "do something"
`)
	writeCatalogue(t, dir, "a-set.toml", `
[eval_set]
id = "a"
name = "A"
[[cases]]
id = "c1"
name = "C1"
prompt = "do something else"
`)

	sets, _, err := Load(dir)
	require.NoError(t, err)
	require.Len(t, sets, 2)
	assert.Equal(t, "a", sets[0].ID)
	assert.Equal(t, "b", sets[1].ID)
}

func TestLoadRejectsUnknownSetHeaderField(t *testing.T) {
	dir := t.TempDir()
	path := writeCatalogue(t, dir, "bad.toml", `
[eval_set]
id = "bad"
name = "Bad"
bogus_field = "oops"
[[cases]]
id = "c1"
name = "C1"
prompt = "x"
`)
	_, _, err := Load(path)
	require.Error(t, err)
	var ic *InvalidCatalogue
	require.ErrorAs(t, err, &ic)
}

func TestLoadToleratesUnknownCaseField(t *testing.T) {
	dir := t.TempDir()
	path := writeCatalogue(t, dir, "ok.toml", `
[eval_set]
id = "ok"
name = "OK"
[[cases]]
id = "c1"
name = "C1"
prompt = "x"
mystery_future_field = "ignored"
`)
	_, _, err := Load(path)
	require.NoError(t, err)
}

func TestLoadRejectsDuplicateCaseID(t *testing.T) {
	dir := t.TempDir()
	path := writeCatalogue(t, dir, "dup.toml", `
[eval_set]
id = "dup"
name = "Dup"
[[cases]]
id = "c1"
name = "C1"
prompt = "x"
[[cases]]
id = "c1"
name = "C1 again"
prompt = "y"
`)
	_, _, err := Load(path)
	require.Error(t, err)
	var ic *InvalidCatalogue
	require.ErrorAs(t, err, &ic)
}

func TestLoadWarnsOnMissingTestFileAndEmptyPrompt(t *testing.T) {
	dir := t.TempDir()
	path := writeCatalogue(t, dir, "warn.toml", `
[eval_set]
id = "warn"
name = "Warn"
[[cases]]
id = "c1"
name = "C1"
prompt = ""
timeout_secs = 0

[cases.expectations]
should_pass_tests = true
`)
	_, warnings, err := Load(path)
	require.NoError(t, err)
	assert.NotEmpty(t, warnings)
	joined := ""
	for _, w := range warnings {
		joined += w + "\n"
	}
	assert.Contains(t, joined, "no test_file")
	assert.Contains(t, joined, "empty prompt")
	assert.Contains(t, joined, "timeout_secs == 0")
}

func TestLoadMissingRequiredFields(t *testing.T) {
	dir := t.TempDir()
	path := writeCatalogue(t, dir, "norequired.toml", `
[eval_set]
name = "No ID"
[[cases]]
id = "c1"
name = "C1"
prompt = "x"
`)
	_, _, err := Load(path)
	require.Error(t, err)
}
