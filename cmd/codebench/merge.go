package main

import (
	"time"

	"github.com/google/uuid"

	"github.com/codebench/codebench/internal/evalmodel"
	"github.com/codebench/codebench/internal/report"
)

// evalReport accumulates results across however many eval sets a
// catalogue directory contained, so a multi-document catalogue still
// produces a single combined report.json.
type evalReport struct {
	results         []evalmodel.EvalResult
	modelsEvaluated []string
	caseCount       int
	partial         bool
	config          evalmodel.ReportConfig
	setName         string
}

func (e *evalReport) append(r evalmodel.EvalReport) {
	e.results = append(e.results, r.Results...)
	e.caseCount += r.EvalSetSummary.CaseCount
	e.partial = e.partial || r.Partial
	e.config = r.Config
	e.modelsEvaluated = r.ModelsEvaluated
	if e.setName == "" {
		e.setName = r.EvalSetSummary.Name
	}
}

func (e *evalReport) combined() evalmodel.EvalReport {
	return evalmodel.EvalReport{
		ID:              uuid.NewString(),
		CreatedAt:       time.Now().UTC(),
		EvalSetSummary:  evalmodel.EvalSetSummary{Name: e.setName, CaseCount: e.caseCount},
		ModelsEvaluated: e.modelsEvaluated,
		Config:          e.config,
		Results:         e.results,
		Aggregate:       report.Aggregate(e.results, e.config.PassK),
		Partial:         e.partial,
	}
}
