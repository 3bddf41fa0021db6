// Package orchestrator fans Attempts out across cases, models, and
// pass@k samples under a bounded concurrency gate, retrying retriable
// generator failures with exponential backoff and recording every
// Attempt's outcome into an evalmodel.EvalReport.
package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/codebench/codebench/internal/catcode"
	"github.com/codebench/codebench/internal/compiler"
	"github.com/codebench/codebench/internal/evalmodel"
	"github.com/codebench/codebench/internal/gate"
	"github.com/codebench/codebench/internal/generator"
	"github.com/codebench/codebench/internal/lint"
	"github.com/codebench/codebench/internal/logutil"
	"github.com/codebench/codebench/internal/report"
	"github.com/codebench/codebench/internal/sandbox"
	"github.com/codebench/codebench/internal/scorer"
	"github.com/codebench/codebench/internal/testdriver"
)

// sandboxFailureResult builds a degraded EvalResult for an Attempt that
// never got a compilation verdict because the sandbox, compiler, or one
// of the test/lint drivers failed outright (as opposed to the candidate
// code itself failing to compile). Per the sandbox/compiler/test/lint
// error taxonomy, this is fatal to the Attempt, not the run: the caller
// records it as a normal result rather than aborting the errgroup.
func sandboxFailureResult(c evalmodel.EvalCase, model string, attempt int, runID string, err error) evalmodel.EvalResult {
	return evalmodel.EvalResult{
		CaseID:  c.ID,
		Model:   model,
		Attempt: attempt,
		RunID:   runID,
		Compilation: evalmodel.CompilationResult{
			Success: false,
			Errors: []evalmodel.Diagnostic{{
				Level:   evalmodel.LevelError,
				Message: fmt.Sprintf("%s: %v", catcode.CategoryOf(err), err),
			}},
		},
		Score: evalmodel.Score{},
	}
}

// RunConfig carries the per-run parameters the orchestrator's work
// expansion and retry policy need.
type RunConfig struct {
	Models            []string
	PassK             []int
	Parallelism       int
	RatePerMinute     int
	Temperature       float64
	MaxRetriesPerCase int
	RetryDelay        time.Duration
	CaseTimeout       time.Duration
	TagFilter         string
}

// DefaultRunConfig returns sane run-level defaults.
func DefaultRunConfig() RunConfig {
	return RunConfig{
		PassK:             []int{1},
		Parallelism:       4,
		MaxRetriesPerCase: 3,
		RetryDelay:        time.Second,
		CaseTimeout:       30 * time.Second,
	}
}

// Orchestrator coordinates generation, sandboxing, compilation, testing,
// and linting across an EvalSet.
type Orchestrator struct {
	gen      generator.Generator
	logger   logutil.LoggerInterface
	reporter Reporter
}

// New constructs an Orchestrator. reporter may be nil, in which case
// events are discarded.
func New(gen generator.Generator, logger logutil.LoggerInterface, reporter Reporter) *Orchestrator {
	if reporter == nil {
		reporter = NoopReporter{}
	}
	return &Orchestrator{gen: gen, logger: logger, reporter: reporter}
}

func maxInt(values []int) int {
	max := 0
	for _, v := range values {
		if v > max {
			max = v
		}
	}
	return max
}

func matchesTags(caseTags []string, filterExpr string) bool {
	filterExpr = strings.TrimSpace(filterExpr)
	if filterExpr == "" {
		return true
	}
	tagSet := make(map[string]bool, len(caseTags))
	for _, t := range caseTags {
		tagSet[t] = true
	}
	// AND-of-ORs: comma-separated groups must all match; each group is a
	// set of alternatives separated by '|'.
	for _, group := range strings.Split(filterExpr, ",") {
		matched := false
		for _, alt := range strings.Split(group, "|") {
			if tagSet[strings.TrimSpace(alt)] {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

// Run dispatches every (case × model × attempt) Attempt for set under
// cfg, returning the resulting report. A non-nil error indicates an
// infrastructure failure, not merely a failing Attempt.
func (o *Orchestrator) Run(ctx context.Context, set evalmodel.EvalSet, cfg RunConfig) (evalmodel.EvalReport, error) {
	n := maxInt(cfg.PassK)
	if n == 0 {
		n = 1
	}
	runID := uuid.NewString()

	g := gate.New(cfg.Parallelism, cfg.RatePerMinute)
	group, groupCtx := errgroup.WithContext(ctx)

	var mu sync.Mutex
	var results []evalmodel.EvalResult
	var cancelled bool

	for _, c := range set.Cases {
		if !matchesTags(c.Tags, cfg.TagFilter) {
			continue
		}
		for _, model := range cfg.Models {
			for attempt := 1; attempt <= n; attempt++ {
				caseCopy, modelCopy, attemptCopy := c, model, attempt
				group.Go(func() error {
					if ctx.Err() != nil {
						mu.Lock()
						cancelled = true
						mu.Unlock()
						return nil
					}
					if err := g.Acquire(groupCtx, modelCopy); err != nil {
						mu.Lock()
						cancelled = true
						mu.Unlock()
						return nil
					}
					defer g.Release()

					o.reporter.OnEvalStart(caseCopy.ID, modelCopy, attemptCopy)
					result := o.runAttempt(groupCtx, set, caseCopy, modelCopy, attemptCopy, runID, cfg)
					if !result.Compilation.Success && len(result.Compilation.Errors) > 0 {
						o.reporter.OnEvalError(caseCopy.ID, modelCopy, result.Compilation.Errors[0].Message)
					}
					o.reporter.OnEvalComplete(result)

					mu.Lock()
					results = append(results, result)
					mu.Unlock()
					return nil
				})
			}
		}
	}

	groupErr := group.Wait()

	sort.Slice(results, func(i, j int) bool {
		if results[i].CaseID != results[j].CaseID {
			return results[i].CaseID < results[j].CaseID
		}
		if results[i].Model != results[j].Model {
			return results[i].Model < results[j].Model
		}
		return results[i].Attempt < results[j].Attempt
	})

	aggregate := report.Aggregate(results, cfg.PassK)
	o.reporter.OnSetComplete(aggregate)

	r := evalmodel.EvalReport{
		ID:             uuid.NewString(),
		CreatedAt:      time.Now().UTC(),
		EvalSetSummary: evalmodel.EvalSetSummary{ID: set.ID, Name: set.Name, CaseCount: len(set.Cases)},
		ModelsEvaluated: cfg.Models,
		Config: evalmodel.ReportConfig{
			Models:      cfg.Models,
			PassK:       cfg.PassK,
			Parallelism: cfg.Parallelism,
			Temperature: cfg.Temperature,
		},
		Results:   results,
		Aggregate: aggregate,
		Partial:   cancelled || ctx.Err() != nil,
	}

	if groupErr != nil {
		return r, groupErr
	}
	return r, nil
}

// runAttempt runs one (case, model, attempt). Generator, sandbox,
// compiler, and test/lint driver failures are all Attempt-scoped: none
// of them abort the run, and every outcome is a legitimate EvalResult.
// A generator failure yields Compilation.Success=false with no
// diagnostics and no generated code; a sandbox, compiler, or driver
// failure yields Compilation.Success=false with a synthetic diagnostic.
func (o *Orchestrator) runAttempt(ctx context.Context, set evalmodel.EvalSet, c evalmodel.EvalCase, model string, attempt int, runID string, cfg RunConfig) evalmodel.EvalResult {
	timeout := cfg.CaseTimeout
	if c.TimeoutSecs != nil {
		timeout = time.Duration(*c.TimeoutSecs) * time.Second
	}

	resp, genErr := o.generateWithRetry(ctx, c, model, cfg)
	if genErr != nil {
		return evalmodel.EvalResult{
			CaseID:      c.ID,
			Model:       model,
			Attempt:     attempt,
			RunID:       runID,
			Compilation: evalmodel.CompilationResult{Success: false},
			Score:       evalmodel.Score{},
		}
	}

	sb, err := sandbox.Acquire(ctx, c.Language, set.Dependencies, o.logger)
	if err != nil {
		return sandboxFailureResult(c, model, attempt, runID, err)
	}
	defer sb.Release()

	if err := sb.WriteSource(resp.ExtractedCode); err != nil {
		return sandboxFailureResult(c, model, attempt, runID, err)
	}

	compileResult, err := compiler.Compile(ctx, sb, timeout)
	if err != nil {
		return sandboxFailureResult(c, model, attempt, runID, err)
	}

	var testResult *evalmodel.TestResult
	var lintResult *evalmodel.LintResult
	if compileResult.Success {
		if c.Expectations.ShouldPassTests && c.Expectations.TestFile != "" {
			if err := sb.WriteTest(c.Expectations.TestFile); err != nil {
				return sandboxFailureResult(c, model, attempt, runID, err)
			}
			tr, err := testdriver.Run(ctx, sb, timeout)
			if err != nil {
				return sandboxFailureResult(c, model, attempt, runID, err)
			}
			testResult = &tr
		}
		lr, err := lint.Run(ctx, sb, timeout)
		if err != nil {
			return sandboxFailureResult(c, model, attempt, runID, err)
		}
		lintResult = lr
	}

	score := scorer.Compute(scoreInput(c, compileResult, testResult, lintResult))

	return evalmodel.EvalResult{
		CaseID:        c.ID,
		Model:         model,
		Attempt:       attempt,
		RunID:         runID,
		GeneratedCode: resp.ExtractedCode,
		Compilation:   compileResult,
		TestExecution: testResult,
		Clippy:        lintResult,
		TokenUsage: evalmodel.TokenUsage{
			PromptTokens:     resp.TokenUsage.PromptTokens,
			CompletionTokens: resp.TokenUsage.CompletionTokens,
			TotalTokens:      resp.TokenUsage.TotalTokens,
		},
		Timing: evalmodel.Timing{LLMRequestMs: resp.LatencyMs, TotalMs: resp.LatencyMs + compileResult.DurationMs},
		Score:  score,
	}
}

func scoreInput(c evalmodel.EvalCase, compile evalmodel.CompilationResult, tests *evalmodel.TestResult, lint *evalmodel.LintResult) scorer.AttemptInput {
	in := scorer.AttemptInput{
		CompileSuccess:  compile.Success,
		ShouldPassTests: c.Expectations.ShouldPassTests,
	}
	if tests != nil {
		in.TestsObserved = true
		in.TestsPassed = tests.Passed
		in.TestsFailed = tests.Failed
	}
	if lint != nil {
		in.LintRan = true
		in.LintWarningCount = lint.WarningCount
		in.MaxClippyWarnings = c.Expectations.MaxClippyWarnings
	}
	return in
}

// generateWithRetry classifies generator failures and retries retriable
// categories (RateLimit, Timeout, Network, Server 5xx) with exponential
// backoff capped at 60s, respecting a provider's requested
// retry-after when present. Auth/NotFound/4xx-non-429 are terminal.
func (o *Orchestrator) generateWithRetry(ctx context.Context, c evalmodel.EvalCase, model string, cfg RunConfig) (generator.Response, error) {
	req := generator.Request{
		Model:       model,
		Prompt:      c.Prompt,
		MaxTokens:   derefOr(c.MaxTokens, 2048),
		Temperature: cfg.Temperature,
	}
	for _, cf := range c.ContextFiles {
		req.ContextFiles = append(req.ContextFiles, generator.ContextFile{Path: cf.Path, Content: cf.Content})
	}

	maxRetries := cfg.MaxRetriesPerCase
	if maxRetries < 0 {
		maxRetries = 0
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		resp, err := o.gen.Generate(ctx, req)
		if err == nil {
			resp.ExtractedCode = generator.ExtractCode(resp.Content, string(c.Language))
			return resp, nil
		}
		lastErr = err

		if !retriable(err) {
			return generator.Response{}, err
		}

		delay := backoffDelay(attempt, cfg.RetryDelay, retryAfter(err))
		select {
		case <-ctx.Done():
			return generator.Response{}, ctx.Err()
		case <-time.After(delay):
		}
	}
	return generator.Response{}, lastErr
}

func derefOr(p *int, fallback int) int {
	if p == nil {
		return fallback
	}
	return *p
}

func retriable(err error) bool {
	switch catcode.CategoryOf(err) {
	case catcode.RateLimit, catcode.Timeout, catcode.Network, catcode.Server:
		return true
	default:
		return false
	}
}

func retryAfter(err error) time.Duration {
	if rl, ok := err.(*generator.RateLimited); ok && rl.RetryAfterMs > 0 {
		return time.Duration(rl.RetryAfterMs) * time.Millisecond
	}
	return 0
}

func backoffDelay(attempt int, base time.Duration, providerHint time.Duration) time.Duration {
	if providerHint > 0 {
		return capDelay(providerHint)
	}
	if base <= 0 {
		base = time.Second
	}
	delay := base
	for i := 0; i < attempt; i++ {
		delay *= 2
	}
	return capDelay(delay)
}

func capDelay(d time.Duration) time.Duration {
	const maxDelay = 60 * time.Second
	if d > maxDelay {
		return maxDelay
	}
	return d
}
