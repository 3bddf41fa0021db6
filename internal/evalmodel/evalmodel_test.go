package evalmodel

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEvalResultRejectsTestsOnFailedCompile(t *testing.T) {
	_, err := NewEvalResult("case-1", "gpt-5", "openai", 1, "run-1",
		CompilationResult{Success: false}, &TestResult{Passed: 1})
	require.Error(t, err)
	var target *ErrInvariant
	assert.ErrorAs(t, err, &target)
}

func TestNewEvalResultZeroesOverallOnFailedCompile(t *testing.T) {
	r, err := NewEvalResult("case-1", "gpt-5", "openai", 1, "run-1",
		CompilationResult{Success: false}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.0, r.Score.Overall)
}

func TestNewEvalResultRejectsZeroAttempt(t *testing.T) {
	_, err := NewEvalResult("case-1", "gpt-5", "openai", 0, "run-1",
		CompilationResult{Success: true}, nil)
	assert.Error(t, err)
}

func TestNewEvalResultAcceptsPassingCase(t *testing.T) {
	tests := &TestResult{Passed: 3, Failed: 0, Ignored: 1}
	r, err := NewEvalResult("case-1", "gpt-5", "openai", 1, "run-1",
		CompilationResult{Success: true}, tests)
	require.NoError(t, err)
	assert.Equal(t, tests, r.TestExecution)
}

func TestValidateTestCountsRejectsNegative(t *testing.T) {
	assert.Error(t, ValidateTestCounts(TestResult{Passed: -1}))
	assert.Error(t, ValidateTestCounts(TestResult{Failed: -1}))
	assert.Error(t, ValidateTestCounts(TestResult{Ignored: -1}))
	assert.NoError(t, ValidateTestCounts(TestResult{Passed: 1, Failed: 2, Ignored: 0}))
}

func TestValidateSpanOrdering(t *testing.T) {
	assert.NoError(t, ValidateSpan(Span{LineStart: 1, LineEnd: 3}))
	assert.Error(t, ValidateSpan(Span{LineStart: 5, LineEnd: 2}))
	assert.NoError(t, ValidateSpan(Span{LineStart: 4, LineEnd: 4, ColumnStart: 2, ColumnEnd: 10}))
	assert.Error(t, ValidateSpan(Span{LineStart: 4, LineEnd: 4, ColumnStart: 10, ColumnEnd: 2}))
}

func TestValidateTokenUsageRejectsNegativeCost(t *testing.T) {
	assert.Error(t, ValidateTokenUsage(TokenUsage{EstimatedCostUSD: -0.01}))
	assert.NoError(t, ValidateTokenUsage(TokenUsage{EstimatedCostUSD: 0}))
}

func TestValidateAttemptSequenceContiguous(t *testing.T) {
	assert.NoError(t, ValidateAttemptSequence([]int{1, 2, 3}))
	assert.NoError(t, ValidateAttemptSequence([]int{3, 1, 2}))
	assert.Error(t, ValidateAttemptSequence([]int{1, 3}))
	assert.Error(t, ValidateAttemptSequence([]int{1, 1, 2}))
	assert.Error(t, ValidateAttemptSequence([]int{0, 1}))
}

func TestValidateUniqueCaseIDsRejectsDuplicates(t *testing.T) {
	cases := []EvalCase{{ID: "a"}, {ID: "b"}, {ID: "a"}}
	assert.Error(t, ValidateUniqueCaseIDs(cases))
	assert.NoError(t, ValidateUniqueCaseIDs([]EvalCase{{ID: "a"}, {ID: "b"}}))
}

func TestValidateUniqueResultKeysRejectsDuplicates(t *testing.T) {
	results := []EvalResult{
		{CaseID: "a", Model: "m1", Attempt: 1},
		{CaseID: "a", Model: "m1", Attempt: 1},
	}
	assert.Error(t, ValidateUniqueResultKeys(results))

	ok := []EvalResult{
		{CaseID: "a", Model: "m1", Attempt: 1},
		{CaseID: "a", Model: "m1", Attempt: 2},
		{CaseID: "a", Model: "m2", Attempt: 1},
	}
	assert.NoError(t, ValidateUniqueResultKeys(ok))
}

// TestEvalReportJSONRoundTrip checks that marshaling and unmarshaling a
// populated report is lossless.
func TestEvalReportJSONRoundTrip(t *testing.T) {
	cost := 0.5
	maxWarn := 3
	report := EvalReport{
		ID:        "report-1",
		CreatedAt: time.Date(2026, 7, 29, 12, 0, 0, 0, time.UTC),
		EvalSetSummary: EvalSetSummary{
			ID: "set-1", Name: "demo", CaseCount: 1,
		},
		ModelsEvaluated: []string{"gpt-5", "claude-x"},
		Config: ReportConfig{
			Models:      []string{"gpt-5"},
			PassK:       []int{1, 5},
			Parallelism: 4,
			Temperature: 0.2,
		},
		Results: []EvalResult{
			{
				CaseID:   "case-1",
				Model:    "gpt-5",
				Provider: "openai",
				Attempt:  1,
				RunID:    "run-1",
				Compilation: CompilationResult{
					Success: true,
					Errors:  []Diagnostic{},
					Warnings: []Diagnostic{
						{Level: LevelWarning, Message: "unused variable", Code: "unused",
							Spans: []Span{{File: "main.rs", LineStart: 1, LineEnd: 1, ColumnStart: 1, ColumnEnd: 5}}},
					},
				},
				TestExecution: &TestResult{Passed: 2, Failed: 0, Ignored: 0},
				Clippy:        &LintResult{WarningCount: 0, Warnings: []Diagnostic{}},
				TokenUsage:    TokenUsage{PromptTokens: 100, CompletionTokens: 50, TotalTokens: 150, EstimatedCostUSD: cost},
				Score:         Score{Compilation: 0.4, Tests: 0.5, Clippy: 0.1, Overall: 1.0},
			},
		},
		Aggregate: AggregateStats{
			PerModel: map[string]ModelAggregate{
				"gpt-5": {PassAtK: map[int]float64{1: 1.0}},
			},
			PerCase: map[string]CaseAggregate{
				"case-1": {PassRatePerModel: map[string]float64{"gpt-5": 1.0}},
			},
		},
		DurationMs: 1234,
		Partial:    false,
	}
	_ = maxWarn

	data, err := json.Marshal(report)
	require.NoError(t, err)

	var roundTripped EvalReport
	require.NoError(t, json.Unmarshal(data, &roundTripped))

	data2, err := json.Marshal(roundTripped)
	require.NoError(t, err)
	assert.JSONEq(t, string(data), string(data2))
}

func TestDefaultExpectations(t *testing.T) {
	e := DefaultExpectations()
	assert.True(t, e.ShouldCompile)
	assert.True(t, e.ShouldPassTests)
	assert.Empty(t, e.TestFile)
	assert.Nil(t, e.MaxClippyWarnings)
}

func TestLanguageValid(t *testing.T) {
	assert.True(t, Rust.Valid())
	assert.True(t, Python.Valid())
	assert.True(t, TypeScript.Valid())
	assert.True(t, Go.Valid())
	assert.False(t, Language("cobol").Valid())
}
