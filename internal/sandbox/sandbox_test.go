package sandbox

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codebench/codebench/internal/evalmodel"
	"github.com/codebench/codebench/internal/logutil"
)

func TestAcquireMaterializesSkeleton(t *testing.T) {
	sb, err := Acquire(context.Background(), evalmodel.Rust, nil, nil)
	require.NoError(t, err)
	defer sb.Release()

	_, err = os.Stat(filepath.Join(sb.Root, "Cargo.toml"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(sb.Root, "src", "lib.rs"))
	assert.NoError(t, err)
}

func TestAcquireLogsAcquisitionViaBufferLogger(t *testing.T) {
	logger := logutil.NewBufferLogger(logutil.DebugLevel)
	sb, err := Acquire(context.Background(), evalmodel.Go, nil, logger)
	require.NoError(t, err)
	defer sb.Release()

	logs := logger.GetLogs()
	require.NotEmpty(t, logs)
	assert.Contains(t, logs[0], "sandbox acquired")
}

func TestAcquireRejectsUnsupportedLanguage(t *testing.T) {
	_, err := Acquire(context.Background(), evalmodel.Language("cobol"), nil, nil)
	assert.Error(t, err)
}

func TestReleaseRemovesDirectory(t *testing.T) {
	sb, err := Acquire(context.Background(), evalmodel.Go, nil, nil)
	require.NoError(t, err)
	root := sb.Root
	sb.Release()
	_, err = os.Stat(root)
	assert.True(t, os.IsNotExist(err))
}

func TestReleaseIsIdempotentAndNilSafe(t *testing.T) {
	var sb *Sandbox
	assert.NotPanics(t, func() { sb.Release() })

	real, err := Acquire(context.Background(), evalmodel.Go, nil, nil)
	require.NoError(t, err)
	real.Release()
	assert.NotPanics(t, func() { real.Release() })
}

func TestWriteSourceDetectsEntryPoint(t *testing.T) {
	sb, err := Acquire(context.Background(), evalmodel.Rust, nil, nil)
	require.NoError(t, err)
	defer sb.Release()

	require.NoError(t, sb.WriteSource("fn main() {\n    println!(\"hi\");\n}\n"))
	data, err := os.ReadFile(filepath.Join(sb.Root, "src", "main.rs"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "println!")
}

func TestWriteSourceDefaultsToLibrary(t *testing.T) {
	sb, err := Acquire(context.Background(), evalmodel.Rust, nil, nil)
	require.NoError(t, err)
	defer sb.Release()

	require.NoError(t, sb.WriteSource("pub fn add(a: i32, b: i32) -> i32 { a + b }\n"))
	data, err := os.ReadFile(filepath.Join(sb.Root, "src", "lib.rs"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "pub fn add")
}

func TestWriteTestAppendsWithBlankLineBoundary(t *testing.T) {
	sb, err := Acquire(context.Background(), evalmodel.Rust, nil, nil)
	require.NoError(t, err)
	defer sb.Release()

	require.NoError(t, sb.WriteSource("pub fn add(a: i32, b: i32) -> i32 { a + b }\n"))
	require.NoError(t, sb.WriteTest("#[test]\nfn test_add() { assert_eq!(add(1,2), 3); }\n"))

	data, err := os.ReadFile(filepath.Join(sb.Root, "src", "lib.rs"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "pub fn add")
	assert.Contains(t, string(data), "fn test_add")
}

func TestAddDependencyRewritesManifest(t *testing.T) {
	sb, err := Acquire(context.Background(), evalmodel.Rust, nil, nil)
	require.NoError(t, err)
	defer sb.Release()

	require.NoError(t, sb.AddDependency("rand", "0.8", []string{"small_rng"}))
	data, err := os.ReadFile(filepath.Join(sb.Root, "Cargo.toml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `rand = { version = "0.8", features = ["small_rng"] }`)
	assert.Contains(t, string(data), "serde") // common dependency still present
}

func TestRunCapturesStdout(t *testing.T) {
	sb, err := Acquire(context.Background(), evalmodel.Go, nil, nil)
	require.NoError(t, err)
	defer sb.Release()

	result, err := sb.Run(context.Background(), []string{"echo", "hello"}, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "hello\n", result.Stdout)
	assert.Equal(t, 0, result.ExitCode)
	assert.False(t, result.TimedOut)
}

func TestRunKillsOnTimeout(t *testing.T) {
	sb, err := Acquire(context.Background(), evalmodel.Go, nil, nil)
	require.NoError(t, err)
	defer sb.Release()

	result, err := sb.Run(context.Background(), []string{"sleep", "5"}, 50*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, result.TimedOut)
}

func TestRunScrubsCredentialEnv(t *testing.T) {
	t.Setenv("AWS_SECRET_ACCESS_KEY", "super-secret")
	t.Setenv("MY_APP_API_TOKEN", "also-secret")
	t.Setenv("UNRELATED_VAR", "keep-me")

	sb, err := Acquire(context.Background(), evalmodel.Go, nil, nil)
	require.NoError(t, err)
	defer sb.Release()

	env := sb.scrubbedEnv()
	for _, kv := range env {
		assert.NotContains(t, kv, "super-secret")
		assert.NotContains(t, kv, "also-secret")
	}
	found := false
	for _, kv := range env {
		if kv == "UNRELATED_VAR=keep-me" {
			found = true
		}
	}
	assert.True(t, found)
}
