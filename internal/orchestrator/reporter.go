package orchestrator

import (
	"sync"

	"github.com/codebench/codebench/internal/evalmodel"
)

// Reporter receives progress events from the orchestrator. Reporters
// must be safe for concurrent use: the orchestrator never serializes
// event delivery across Attempts.
type Reporter interface {
	OnEvalStart(caseID, model string, attempt int)
	OnEvalComplete(result evalmodel.EvalResult)
	OnEvalError(caseID, model string, reason string)
	OnSetComplete(stats evalmodel.AggregateStats)
}

// NoopReporter discards every event; the default when no reporter is
// supplied.
type NoopReporter struct{}

func (NoopReporter) OnEvalStart(string, string, int)             {}
func (NoopReporter) OnEvalComplete(evalmodel.EvalResult)         {}
func (NoopReporter) OnEvalError(string, string, string)          {}
func (NoopReporter) OnSetComplete(evalmodel.AggregateStats)      {}

// CollectingReporter records every event it receives, guarded by a
// mutex so it's safe to share across concurrently dispatched Attempts.
// Useful as a test double.
type CollectingReporter struct {
	mu        sync.Mutex
	Starts    []StartEvent
	Completes []evalmodel.EvalResult
	Errors    []ErrorEvent
	SetStats  []evalmodel.AggregateStats
}

// StartEvent records an on_eval_start call.
type StartEvent struct {
	CaseID, Model string
	Attempt       int
}

// ErrorEvent records an on_eval_error call.
type ErrorEvent struct {
	CaseID, Model, Reason string
}

func (r *CollectingReporter) OnEvalStart(caseID, model string, attempt int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Starts = append(r.Starts, StartEvent{caseID, model, attempt})
}

func (r *CollectingReporter) OnEvalComplete(result evalmodel.EvalResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Completes = append(r.Completes, result)
}

func (r *CollectingReporter) OnEvalError(caseID, model, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Errors = append(r.Errors, ErrorEvent{caseID, model, reason})
}

func (r *CollectingReporter) OnSetComplete(stats evalmodel.AggregateStats) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.SetStats = append(r.SetStats, stats)
}
