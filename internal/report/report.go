// Package report aggregates raw attempt results into per-model and
// per-case statistics, diffs two reports for regression detection, and
// persists the canonical report document.
package report

import (
	"encoding/json"
	"os"
	"sort"

	"github.com/codebench/codebench/internal/evalmodel"
	"github.com/codebench/codebench/internal/scorer"
)

// Aggregate folds a report's results into per-model and per-case
// statistics for the requested Pass@k values.
func Aggregate(results []evalmodel.EvalResult, passK []int) evalmodel.AggregateStats {
	byModel := map[string][]evalmodel.EvalResult{}
	byCaseModel := map[string]map[string][]evalmodel.EvalResult{}

	for _, r := range results {
		byModel[r.Model] = append(byModel[r.Model], r)
		if byCaseModel[r.CaseID] == nil {
			byCaseModel[r.CaseID] = map[string][]evalmodel.EvalResult{}
		}
		byCaseModel[r.CaseID][r.Model] = append(byCaseModel[r.CaseID][r.Model], r)
	}

	perModel := map[string]evalmodel.ModelAggregate{}
	for model, rs := range byModel {
		perModel[model] = aggregateModel(rs, passK, byCaseModel)
	}

	perCase := map[string]evalmodel.CaseAggregate{}
	for caseID, modelResults := range byCaseModel {
		perCase[caseID] = aggregateCase(modelResults)
	}

	return evalmodel.AggregateStats{PerModel: perModel, PerCase: perCase}
}

func aggregateModel(rs []evalmodel.EvalResult, passK []int, byCaseModel map[string]map[string][]evalmodel.EvalResult) evalmodel.ModelAggregate {
	var compilePass, testSum, lintSum, latencySum float64
	var promptTokens, completionTokens int64
	var costSum float64

	for _, r := range rs {
		if r.Compilation.Success {
			compilePass++
		}
		testSum += r.Score.Tests
		lintSum += r.Score.Clippy
		latencySum += float64(r.Timing.TotalMs)
		promptTokens += int64(r.TokenUsage.PromptTokens)
		completionTokens += int64(r.TokenUsage.CompletionTokens)
		costSum += r.TokenUsage.EstimatedCostUSD
	}
	n := float64(len(rs))

	passAtK := map[int]float64{}
	byCase := map[string][]evalmodel.EvalResult{}
	model := ""
	if len(rs) > 0 {
		model = rs[0].Model
	}
	for caseID, models := range byCaseModel {
		if attempts, ok := models[model]; ok {
			byCase[caseID] = attempts
		}
	}
	for _, k := range passK {
		passAtK[k] = meanPassAtK(byCase, k)
	}

	agg := evalmodel.ModelAggregate{
		PassAtK:               passAtK,
		TotalPromptTokens:     promptTokens,
		TotalCompletionTokens: completionTokens,
		TotalCostUSD:          costSum,
	}
	if n > 0 {
		agg.CompileRate = compilePass / n
		agg.TestPassRate = testSum / n
		agg.MeanLintScore = lintSum / n
		agg.MeanLatencyMs = latencySum / n
	}
	return agg
}

func meanPassAtK(byCase map[string][]evalmodel.EvalResult, k int) float64 {
	if len(byCase) == 0 {
		return 0
	}
	var sum float64
	var counted int
	for _, attempts := range byCase {
		n := len(attempts)
		c := 0
		for _, a := range attempts {
			if a.Score.Overall >= scorer.PassThreshold {
				c++
			}
		}
		result := scorer.PassAtK(n, c, k)
		if result.NotEnoughSamples {
			continue
		}
		sum += result.Value
		counted++
	}
	if counted == 0 {
		return 0
	}
	return sum / float64(counted)
}

func aggregateCase(modelResults map[string][]evalmodel.EvalResult) evalmodel.CaseAggregate {
	rates := map[string]float64{}
	for model, attempts := range modelResults {
		passed := 0
		for _, a := range attempts {
			if a.Score.Overall >= scorer.PassThreshold {
				passed++
			}
		}
		if len(attempts) > 0 {
			rates[model] = float64(passed) / float64(len(attempts))
		}
	}

	var worst []string
	lowest := 2.0
	for _, rate := range rates {
		if rate < lowest {
			lowest = rate
		}
	}
	var models []string
	for model := range rates {
		models = append(models, model)
	}
	sort.Strings(models)
	for _, model := range models {
		if rates[model] == lowest {
			worst = append(worst, model)
		}
	}

	return evalmodel.CaseAggregate{PassRatePerModel: rates, WorstModels: worst}
}

// Save writes report as the canonical JSON document.
func Save(path string, report evalmodel.EvalReport) error {
	sortResults(report.Results)
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Load reads a canonical JSON report document, e.g. as a diff baseline.
func Load(path string) (evalmodel.EvalReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return evalmodel.EvalReport{}, err
	}
	var report evalmodel.EvalReport
	if err := json.Unmarshal(data, &report); err != nil {
		return evalmodel.EvalReport{}, err
	}
	return report, nil
}

func sortResults(results []evalmodel.EvalResult) {
	sort.Slice(results, func(i, j int) bool {
		if results[i].CaseID != results[j].CaseID {
			return results[i].CaseID < results[j].CaseID
		}
		if results[i].Model != results[j].Model {
			return results[i].Model < results[j].Model
		}
		return results[i].Attempt < results[j].Attempt
	})
}
