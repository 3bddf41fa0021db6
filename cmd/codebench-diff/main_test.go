package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codebench/codebench/internal/evalmodel"
	"github.com/codebench/codebench/internal/report"
)

func writeReport(t *testing.T, dir, name string, overall float64) string {
	t.Helper()
	r := evalmodel.EvalReport{
		Results: []evalmodel.EvalResult{{
			CaseID: "c1", Model: "m1", Attempt: 1,
			Compilation: evalmodel.CompilationResult{Success: true},
			Score:       evalmodel.Score{Overall: overall},
		}},
	}
	path := filepath.Join(dir, name)
	require.NoError(t, report.Save(path, r))
	return path
}

func TestRunExitsRegressionWhenFailOnRegressionSet(t *testing.T) {
	dir := t.TempDir()
	baseline := writeReport(t, dir, "baseline.json", 0.9)
	current := writeReport(t, dir, "current.json", 0.3)

	code := run([]string{"--baseline", baseline, "--current", current, "--fail-on-regression"})
	require.Equal(t, ExitCodeRegression, code)
}

func TestRunSucceedsWithoutFailOnRegressionFlag(t *testing.T) {
	dir := t.TempDir()
	baseline := writeReport(t, dir, "baseline.json", 0.9)
	current := writeReport(t, dir, "current.json", 0.3)

	code := run([]string{"--baseline", baseline, "--current", current})
	require.Equal(t, ExitCodeSuccess, code)
}

func TestRunRequiresBothPaths(t *testing.T) {
	code := run([]string{"--baseline", "x.json"})
	require.Equal(t, ExitCodeError, code)
}
