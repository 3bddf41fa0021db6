package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envFrom(m map[string]string) func(string) string {
	return func(key string) string { return m[key] }
}

func TestLoadEnvironmentDefaultsOverridesOnlyDefaultValues(t *testing.T) {
	cfg := Default()
	getenv := envFrom(map[string]string{
		"CODEBENCH_PARALLELISM": "8",
		"CODEBENCH_OUTPUT_DIR":  "/tmp/results",
	})
	require.NoError(t, LoadEnvironmentDefaults(&cfg, getenv))
	assert.Equal(t, 8, cfg.Parallelism)
	assert.Equal(t, "/tmp/results", cfg.OutputDir)
	assert.Equal(t, DefaultMaxRetriesPerCase, cfg.MaxRetriesPerCase)
}

func TestLoadEnvironmentDefaultsDoesNotOverrideExplicitValue(t *testing.T) {
	cfg := Default()
	cfg.Parallelism = 16 // simulates an explicit CLI flag already applied
	getenv := envFrom(map[string]string{"CODEBENCH_PARALLELISM": "2"})
	require.NoError(t, LoadEnvironmentDefaults(&cfg, getenv))
	assert.Equal(t, 16, cfg.Parallelism)
}

func TestLoadEnvironmentDefaultsRejectsInvalidInt(t *testing.T) {
	cfg := Default()
	getenv := envFrom(map[string]string{"CODEBENCH_PARALLELISM": "nope"})
	assert.Error(t, LoadEnvironmentDefaults(&cfg, getenv))
}

func TestLoadEnvironmentDefaultsRejectsNonPositiveParallelism(t *testing.T) {
	cfg := Default()
	getenv := envFrom(map[string]string{"CODEBENCH_PARALLELISM": "0"})
	assert.Error(t, LoadEnvironmentDefaults(&cfg, getenv))
}

func TestLoadEnvironmentDefaultsParsesDuration(t *testing.T) {
	cfg := Default()
	getenv := envFrom(map[string]string{"CODEBENCH_CASE_TIMEOUT": "90s"})
	require.NoError(t, LoadEnvironmentDefaults(&cfg, getenv))
	assert.Equal(t, 90*time.Second, cfg.CaseTimeout)
}

func TestParseModels(t *testing.T) {
	assert.Equal(t, []string{"gpt-4", "claude-3"}, ParseModels("gpt-4, claude-3 ,"))
	assert.Nil(t, ParseModels(""))
}

func TestParseBool(t *testing.T) {
	assert.True(t, ParseBool("true"))
	assert.True(t, ParseBool("1"))
	assert.True(t, ParseBool("YES"))
	assert.False(t, ParseBool("nope"))
	assert.False(t, ParseBool(""))
}
