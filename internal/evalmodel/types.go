// Package evalmodel defines the core record types of the evaluation
// pipeline: tasks, expectations, results, diagnostics, scores, and
// reports, along with the invariants that hold across them.
package evalmodel

import "time"

// Language identifies the target language of an EvalCase, which governs
// sandbox templating.
type Language string

// Supported languages.
const (
	Rust       Language = "rust"
	Python     Language = "python"
	TypeScript Language = "typescript"
	Go         Language = "go"
)

// Valid reports whether l is one of the supported languages.
func (l Language) Valid() bool {
	switch l {
	case Rust, Python, TypeScript, Go:
		return true
	default:
		return false
	}
}

// ContextFile is a (path, content) pair supplied to the generator as
// additional context. It is never written into the sandbox.
type ContextFile struct {
	Path    string `json:"path" toml:"path"`
	Content string `json:"content" toml:"content"`
}

// Expectations describes what a candidate must do to be considered
// correct, and the optional checks layered on top of compile+test.
type Expectations struct {
	ShouldCompile      bool     `json:"should_compile" toml:"should_compile"`
	ShouldPassTests    bool     `json:"should_pass_tests" toml:"should_pass_tests"`
	TestFile           string   `json:"test_file,omitempty" toml:"test_file,omitempty"`
	ExpectedFunctions  []string `json:"expected_functions,omitempty" toml:"expected_functions,omitempty"`
	ExpectedTypes      []string `json:"expected_types,omitempty" toml:"expected_types,omitempty"`
	MaxClippyWarnings  *int     `json:"max_clippy_warnings,omitempty" toml:"max_clippy_warnings,omitempty"`
	CustomCheck        string   `json:"custom_check,omitempty" toml:"custom_check,omitempty"`
}

// DefaultExpectations returns the documented defaults (§3): compile and
// tests both required, no test file, no caps, no custom check.
func DefaultExpectations() Expectations {
	return Expectations{
		ShouldCompile:   true,
		ShouldPassTests: true,
	}
}

// EvalCase is a single task in a catalogue.
type EvalCase struct {
	ID             string        `json:"id" toml:"id"`
	Name           string        `json:"name" toml:"name"`
	Description    string        `json:"description,omitempty" toml:"description,omitempty"`
	Prompt         string        `json:"prompt" toml:"prompt"`
	Language       Language      `json:"language" toml:"language"`
	ContextFiles   []ContextFile `json:"context_files,omitempty" toml:"context_files,omitempty"`
	Expectations   Expectations  `json:"expectations" toml:"expectations"`
	Tags           []string      `json:"tags,omitempty" toml:"tags,omitempty"`
	TimeoutSecs    *int          `json:"timeout_secs,omitempty" toml:"timeout_secs,omitempty"`
	MaxTokens      *int          `json:"max_tokens,omitempty" toml:"max_tokens,omitempty"`
}

// Dependency is a build-tool manifest coordinate added to every sandbox
// created for cases in an EvalSet.
type Dependency struct {
	Name     string   `json:"name" toml:"name"`
	Version  string   `json:"version" toml:"version"`
	Features []string `json:"features,omitempty" toml:"features,omitempty"`
}

// EvalSet is an ordered group of cases sharing defaults.
type EvalSet struct {
	ID                  string       `json:"id" toml:"id"`
	Name                 string       `json:"name" toml:"name"`
	Description          string       `json:"description,omitempty" toml:"description,omitempty"`
	Cases                []EvalCase   `json:"cases" toml:"cases"`
	DefaultLanguage      Language     `json:"default_language" toml:"default_language"`
	DefaultTimeoutSecs   int          `json:"default_timeout_secs" toml:"default_timeout_secs"`
	Dependencies         []Dependency `json:"dependencies,omitempty" toml:"dependencies,omitempty"`
}

// Span identifies a region of source text a Diagnostic refers to.
// Line/column are 1-indexed and inclusive.
type Span struct {
	File        string `json:"file"`
	LineStart   int    `json:"line_start"`
	LineEnd     int    `json:"line_end"`
	ColumnStart int    `json:"column_start"`
	ColumnEnd   int    `json:"column_end"`
	Text        string `json:"text,omitempty"`
}

// Level is a diagnostic's severity.
type Level string

// Diagnostic severities.
const (
	LevelError   Level = "error"
	LevelWarning Level = "warning"
	LevelNote    Level = "note"
	LevelHelp    Level = "help"
)

// Diagnostic is a normalized compiler/linter message.
type Diagnostic struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Spans   []Span `json:"spans,omitempty"`
}

// CompilationResult is the outcome of invoking the compiler driver.
type CompilationResult struct {
	Success    bool         `json:"success"`
	Errors     []Diagnostic `json:"errors"`
	Warnings   []Diagnostic `json:"warnings"`
	DurationMs int64        `json:"duration_ms"`
}

// TestFailure describes a single failing (or timed-out) test.
type TestFailure struct {
	Name    string `json:"name"`
	Message string `json:"message"`
	Stdout  string `json:"stdout,omitempty"`
}

// TestResult is the outcome of invoking the test driver.
type TestResult struct {
	Passed     int           `json:"passed"`
	Failed     int           `json:"failed"`
	Ignored    int           `json:"ignored"`
	Failures   []TestFailure `json:"failures,omitempty"`
	DurationMs int64         `json:"duration_ms"`
}

// LintResult is the outcome of invoking the lint driver.
type LintResult struct {
	Warnings      []Diagnostic `json:"warnings"`
	WarningCount  int          `json:"warning_count"`
}

// Timing breaks down where an attempt spent its wall-clock time.
type Timing struct {
	LLMRequestMs    int64 `json:"llm_request_ms"`
	CompilationMs   int64 `json:"compilation_ms"`
	TestExecutionMs int64 `json:"test_execution_ms"`
	TotalMs         int64 `json:"total_ms"`
}

// TokenUsage reports generator token accounting for a single attempt.
type TokenUsage struct {
	PromptTokens     int32   `json:"prompt_tokens"`
	CompletionTokens int32   `json:"completion_tokens"`
	TotalTokens      int32   `json:"total_tokens"`
	EstimatedCostUSD float64 `json:"estimated_cost_usd"`
}

// EvalResult is one (case, model, attempt) outcome.
type EvalResult struct {
	CaseID         string       `json:"case_id"`
	Model          string       `json:"model"`
	Provider       string       `json:"provider"`
	Attempt        int          `json:"attempt"`
	RunID          string       `json:"run_id"`
	GeneratedCode  string       `json:"generated_code"`
	Compilation    CompilationResult `json:"compilation"`
	TestExecution  *TestResult  `json:"test_execution,omitempty"`
	Clippy         *LintResult  `json:"clippy,omitempty"`
	Timing         Timing       `json:"timing"`
	TokenUsage     TokenUsage   `json:"token_usage"`
	Score          Score        `json:"score"`
}

// Score is the per-attempt weighted outcome.
type Score struct {
	Compilation float64 `json:"compilation"`
	Tests       float64 `json:"tests"`
	Clippy      float64 `json:"clippy"`
	Overall     float64 `json:"overall"`
}

// EvalSetSummary is the subset of EvalSet metadata retained in a report.
type EvalSetSummary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CaseCount int    `json:"case_count"`
}

// ReportConfig captures the run-level configuration used to produce a
// report, retained for reproducibility.
type ReportConfig struct {
	Models      []string `json:"models"`
	PassK       []int    `json:"pass_k"`
	Parallelism int      `json:"parallelism"`
	Temperature float64  `json:"temperature"`
}

// AggregateStats is the result of folding an EvalReport's results (see
// internal/report for the folding logic; the shape lives here so reports
// are self-describing on disk).
type AggregateStats struct {
	PerModel map[string]ModelAggregate `json:"per_model"`
	PerCase  map[string]CaseAggregate  `json:"per_case"`
}

// ModelAggregate summarizes one model's performance across a report.
type ModelAggregate struct {
	PassAtK            map[int]float64 `json:"pass_at_k"`
	CompileRate        float64         `json:"compile_rate"`
	TestPassRate        float64         `json:"test_pass_rate"`
	MeanLintScore       float64         `json:"mean_lint_score"`
	TotalPromptTokens   int64           `json:"total_prompt_tokens"`
	TotalCompletionTokens int64         `json:"total_completion_tokens"`
	TotalCostUSD        float64         `json:"total_cost_usd"`
	MeanLatencyMs       float64         `json:"mean_latency_ms"`
}

// CaseAggregate summarizes one case's performance across models.
type CaseAggregate struct {
	PassRatePerModel map[string]float64 `json:"pass_rate_per_model"`
	WorstModels      []string           `json:"worst_models"`
}

// EvalReport is the top-level persisted artifact of a run.
type EvalReport struct {
	ID               string         `json:"id"`
	CreatedAt        time.Time      `json:"created_at"`
	EvalSetSummary   EvalSetSummary `json:"eval_set_summary"`
	ModelsEvaluated  []string       `json:"models_evaluated"`
	Config           ReportConfig   `json:"config"`
	Results          []EvalResult   `json:"results"`
	Aggregate        AggregateStats `json:"aggregate"`
	DurationMs       int64          `json:"duration_ms"`
	Partial          bool           `json:"partial"`
}
