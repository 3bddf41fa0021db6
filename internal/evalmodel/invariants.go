package evalmodel

import "fmt"

// ErrInvariant is returned by the constructors below when a caller tries
// to build a record that would violate one of §3's invariants.
type ErrInvariant struct {
	Rule    string
	Context string
}

func (e *ErrInvariant) Error() string {
	return fmt.Sprintf("evalmodel invariant violated (%s): %s", e.Rule, e.Context)
}

func invariantErr(rule, context string) error {
	return &ErrInvariant{Rule: rule, Context: context}
}

// NewEvalResult constructs an EvalResult enforcing invariant 1: a failed
// compilation must carry no test execution and an overall score of 0.
func NewEvalResult(caseID, model, provider string, attempt int, runID string, compilation CompilationResult, tests *TestResult) (*EvalResult, error) {
	if attempt < 1 {
		return nil, invariantErr("attempt>=1", fmt.Sprintf("attempt=%d", attempt))
	}
	if !compilation.Success && tests != nil {
		return nil, invariantErr("compile_failure_implies_no_tests",
			fmt.Sprintf("case=%s model=%s attempt=%d", caseID, model, attempt))
	}
	if tests != nil {
		if err := ValidateTestCounts(*tests); err != nil {
			return nil, err
		}
	}

	r := &EvalResult{
		CaseID:        caseID,
		Model:         model,
		Provider:      provider,
		Attempt:       attempt,
		RunID:         runID,
		Compilation:   compilation,
		TestExecution: tests,
	}
	if !compilation.Success {
		r.Score.Overall = 0
	}
	return r, nil
}

// ValidateTestCounts enforces invariant 2: passed/failed are
// non-negative and their sum (plus ignored) matches no external total —
// the record itself is the source of truth, so this only rules out
// negative counts, which can never arise from a correct parser.
func ValidateTestCounts(t TestResult) error {
	if t.Passed < 0 || t.Failed < 0 || t.Ignored < 0 {
		return invariantErr("non_negative_counts",
			fmt.Sprintf("passed=%d failed=%d ignored=%d", t.Passed, t.Failed, t.Ignored))
	}
	return nil
}

// ValidateSpan enforces the span ordering invariant: line_end >=
// line_start, and column_end >= column_start when both endpoints fall on
// the same line.
func ValidateSpan(s Span) error {
	if s.LineEnd < s.LineStart {
		return invariantErr("line_end>=line_start",
			fmt.Sprintf("file=%s line_start=%d line_end=%d", s.File, s.LineStart, s.LineEnd))
	}
	if s.LineStart == s.LineEnd && s.ColumnEnd < s.ColumnStart {
		return invariantErr("column_end>=column_start",
			fmt.Sprintf("file=%s column_start=%d column_end=%d", s.File, s.ColumnStart, s.ColumnEnd))
	}
	return nil
}

// ValidateDiagnostic validates every span of a diagnostic.
func ValidateDiagnostic(d Diagnostic) error {
	for _, s := range d.Spans {
		if err := ValidateSpan(s); err != nil {
			return err
		}
	}
	return nil
}

// ValidateTokenUsage enforces estimated_cost_usd >= 0.
func ValidateTokenUsage(u TokenUsage) error {
	if u.EstimatedCostUSD < 0 {
		return invariantErr("cost>=0", fmt.Sprintf("estimated_cost_usd=%f", u.EstimatedCostUSD))
	}
	return nil
}

// ValidateAttemptSequence enforces that attempt counts for a (case,model)
// group are contiguous starting at 1, given attempts in the order they
// were produced (not necessarily sorted).
func ValidateAttemptSequence(attempts []int) error {
	seen := make(map[int]bool, len(attempts))
	maxAttempt := 0
	for _, a := range attempts {
		if a < 1 {
			return invariantErr("attempt>=1", fmt.Sprintf("attempt=%d", a))
		}
		if seen[a] {
			return invariantErr("attempt_unique", fmt.Sprintf("duplicate attempt=%d", a))
		}
		seen[a] = true
		if a > maxAttempt {
			maxAttempt = a
		}
	}
	for i := 1; i <= maxAttempt; i++ {
		if !seen[i] {
			return invariantErr("attempt_contiguous", fmt.Sprintf("missing attempt=%d", i))
		}
	}
	return nil
}

// ValidateUniqueCaseIDs enforces that case IDs are unique within an
// EvalSet.
func ValidateUniqueCaseIDs(cases []EvalCase) error {
	seen := make(map[string]bool, len(cases))
	for _, c := range cases {
		if seen[c.ID] {
			return invariantErr("unique_case_id", fmt.Sprintf("duplicate id=%q", c.ID))
		}
		seen[c.ID] = true
	}
	return nil
}

// ValidateUniqueResultKeys enforces that (case_id, model, attempt) is
// unique within a report's results.
func ValidateUniqueResultKeys(results []EvalResult) error {
	type key struct {
		caseID  string
		model   string
		attempt int
	}
	seen := make(map[key]bool, len(results))
	for _, r := range results {
		k := key{r.CaseID, r.Model, r.Attempt}
		if seen[k] {
			return invariantErr("unique_result_key",
				fmt.Sprintf("duplicate (case_id=%s, model=%s, attempt=%d)", r.CaseID, r.Model, r.Attempt))
		}
		seen[k] = true
	}
	return nil
}
