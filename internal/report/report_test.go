package report

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codebench/codebench/internal/evalmodel"
)

func result(caseID, model string, attempt int, overall float64) evalmodel.EvalResult {
	return evalmodel.EvalResult{
		CaseID:      caseID,
		Model:       model,
		Attempt:     attempt,
		Compilation: evalmodel.CompilationResult{Success: overall > 0},
		Score:       evalmodel.Score{Compilation: 1, Tests: overall, Clippy: 1, Overall: overall},
	}
}

func TestAggregatePassAtKAllPassing(t *testing.T) {
	results := []evalmodel.EvalResult{
		result("c1", "m1", 1, 1.0),
		result("c1", "m1", 2, 1.0),
		result("c1", "m1", 3, 1.0),
	}
	stats := Aggregate(results, []int{1})
	assert.Equal(t, 1.0, stats.PerModel["m1"].PassAtK[1])
	assert.Equal(t, 1.0, stats.PerModel["m1"].CompileRate)
}

func TestAggregatePassAtKZeroPassing(t *testing.T) {
	results := []evalmodel.EvalResult{
		result("c1", "m1", 1, 0.0),
		result("c1", "m1", 2, 0.0),
	}
	stats := Aggregate(results, []int{1})
	assert.Equal(t, 0.0, stats.PerModel["m1"].PassAtK[1])
}

func TestAggregateCaseWorstModelsTieBreak(t *testing.T) {
	results := []evalmodel.EvalResult{
		result("c1", "m-b", 1, 0.0),
		result("c1", "m-a", 1, 0.0),
		result("c1", "m-c", 1, 1.0),
	}
	stats := Aggregate(results, []int{1})
	assert.Equal(t, []string{"m-a", "m-b"}, stats.PerCase["c1"].WorstModels)
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.json")

	r := evalmodel.EvalReport{
		ID:      "r1",
		Results: []evalmodel.EvalResult{result("c2", "m1", 1, 1.0), result("c1", "m1", 1, 1.0)},
	}
	require.NoError(t, Save(path, r))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Len(t, loaded.Results, 2)
	assert.Equal(t, "c1", loaded.Results[0].CaseID)
	assert.Equal(t, "c2", loaded.Results[1].CaseID)

	_, statErr := os.Stat(path)
	assert.NoError(t, statErr)
}

func TestDiffClassifiesRegressionAndImprovement(t *testing.T) {
	baseline := evalmodel.EvalReport{Results: []evalmodel.EvalResult{result("c1", "m1", 1, 0.9)}}
	current := evalmodel.EvalReport{Results: []evalmodel.EvalResult{result("c1", "m1", 1, 0.5)}}

	d := Diff(baseline, current, 0)
	require.Len(t, d.Regressions, 1)
	assert.Equal(t, "c1", d.Regressions[0].CaseID)
	assert.InDelta(t, 0.4, d.Regressions[0].Delta, 1e-9)
}

func TestDiffDetectsNewAndRemovedCases(t *testing.T) {
	baseline := evalmodel.EvalReport{Results: []evalmodel.EvalResult{result("removed", "m1", 1, 1.0)}}
	current := evalmodel.EvalReport{Results: []evalmodel.EvalResult{result("new", "m1", 1, 1.0)}}

	d := Diff(baseline, current, 0)
	assert.Equal(t, []string{"new"}, d.NewCases)
	assert.Equal(t, []string{"removed"}, d.RemovedCases)
}

func TestDiffDeterministicOrdering(t *testing.T) {
	baseline := evalmodel.EvalReport{Results: []evalmodel.EvalResult{
		result("c1", "m1", 1, 1.0),
		result("c2", "m1", 1, 1.0),
	}}
	current := evalmodel.EvalReport{Results: []evalmodel.EvalResult{
		result("c1", "m1", 1, 0.5), // delta 0.5
		result("c2", "m1", 1, 0.8), // delta 0.2
	}}
	d := Diff(baseline, current, 0)
	require.Len(t, d.Regressions, 2)
	assert.Equal(t, "c1", d.Regressions[0].CaseID) // larger |delta| first
	assert.Equal(t, "c2", d.Regressions[1].CaseID)
}

func TestDiffWithinThresholdIsUnchanged(t *testing.T) {
	baseline := evalmodel.EvalReport{Results: []evalmodel.EvalResult{result("c1", "m1", 1, 0.80)}}
	current := evalmodel.EvalReport{Results: []evalmodel.EvalResult{result("c1", "m1", 1, 0.78)}}
	d := Diff(baseline, current, 0.05)
	assert.Empty(t, d.Regressions)
	assert.Empty(t, d.Improvements)
	require.Len(t, d.Unchanged, 1)
}
