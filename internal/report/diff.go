package report

import (
	"math"
	"sort"

	"github.com/codebench/codebench/internal/evalmodel"
)

// DefaultRegressionThreshold is the default delta magnitude beyond which
// a (case, model) pair is classified as a regression or improvement.
const DefaultRegressionThreshold = 0.05

// Classification is the bucket a (case, model) pair falls into.
type Classification string

const (
	Regression  Classification = "regression"
	Improvement Classification = "improvement"
	Unchanged   Classification = "unchanged"
)

// Delta describes one (case, model) pair's change between two reports.
type Delta struct {
	CaseID        string
	Model         string
	BaselineScore float64
	CurrentScore  float64
	Delta         float64
	Category      string
}

// DiffResult is the full comparison between a baseline and a current
// report.
type DiffResult struct {
	Regressions  []Delta
	Improvements []Delta
	Unchanged    []Delta
	NewCases     []string
	RemovedCases []string
}

type pairKey struct {
	caseID string
	model  string
}

// Diff matches results across baseline and current on (case_id, model),
// averaging scores per pair, and classifies each pair's change.
func Diff(baseline, current evalmodel.EvalReport, threshold float64) DiffResult {
	if threshold <= 0 {
		threshold = DefaultRegressionThreshold
	}

	baseAvg, baseComponents := averageScores(baseline.Results)
	curAvg, curComponents := averageScores(current.Results)

	baseCases := caseSet(baseline.Results)
	curCases := caseSet(current.Results)

	var result DiffResult
	seen := map[pairKey]bool{}

	for key, curScore := range curAvg {
		seen[key] = true
		baseScore, ok := baseAvg[key]
		if !ok {
			continue
		}
		delta := baseScore - curScore
		d := Delta{
			CaseID:        key.caseID,
			Model:         key.model,
			BaselineScore: baseScore,
			CurrentScore:  curScore,
			Delta:         delta,
			Category:      dominantCategory(baseComponents[key], curComponents[key]),
		}
		switch {
		case delta > threshold:
			result.Regressions = append(result.Regressions, d)
		case delta < -threshold:
			result.Improvements = append(result.Improvements, d)
		default:
			result.Unchanged = append(result.Unchanged, d)
		}
	}

	for caseID := range curCases {
		if !baseCases[caseID] {
			result.NewCases = append(result.NewCases, caseID)
		}
	}
	for caseID := range baseCases {
		if !curCases[caseID] {
			result.RemovedCases = append(result.RemovedCases, caseID)
		}
	}

	sortDeltas(result.Regressions)
	sortDeltas(result.Improvements)
	sortDeltas(result.Unchanged)
	sort.Strings(result.NewCases)
	sort.Strings(result.RemovedCases)

	return result
}

type scoreComponents struct {
	compile, tests, clippy float64
}

func averageScores(results []evalmodel.EvalResult) (map[pairKey]float64, map[pairKey]scoreComponents) {
	sums := map[pairKey]float64{}
	counts := map[pairKey]int{}
	compSums := map[pairKey]scoreComponents{}

	for _, r := range results {
		key := pairKey{caseID: r.CaseID, model: r.Model}
		sums[key] += r.Score.Overall
		counts[key]++
		c := compSums[key]
		c.compile += r.Score.Compilation
		c.tests += r.Score.Tests
		c.clippy += r.Score.Clippy
		compSums[key] = c
	}

	avg := map[pairKey]float64{}
	comp := map[pairKey]scoreComponents{}
	for key, sum := range sums {
		n := float64(counts[key])
		avg[key] = sum / n
		c := compSums[key]
		comp[key] = scoreComponents{compile: c.compile / n, tests: c.tests / n, clippy: c.clippy / n}
	}
	return avg, comp
}

func caseSet(results []evalmodel.EvalResult) map[string]bool {
	set := map[string]bool{}
	for _, r := range results {
		set[r.CaseID] = true
	}
	return set
}

// dominantCategory picks the component (compile/tests/clippy) with the
// largest absolute delta between baseline and current.
func dominantCategory(base, cur scoreComponents) string {
	deltas := map[string]float64{
		"compile": math.Abs(base.compile - cur.compile),
		"tests":   math.Abs(base.tests - cur.tests),
		"clippy":  math.Abs(base.clippy - cur.clippy),
	}
	best := "tests"
	bestVal := -1.0
	for _, name := range []string{"compile", "tests", "clippy"} {
		if deltas[name] > bestVal {
			bestVal = deltas[name]
			best = name
		}
	}
	return best
}

func sortDeltas(deltas []Delta) {
	sort.Slice(deltas, func(i, j int) bool {
		ai, aj := math.Abs(deltas[i].Delta), math.Abs(deltas[j].Delta)
		if ai != aj {
			return ai > aj
		}
		if deltas[i].CaseID != deltas[j].CaseID {
			return deltas[i].CaseID < deltas[j].CaseID
		}
		return deltas[i].Model < deltas[j].Model
	})
}
