// Package scorer computes per-attempt weighted scores and the unbiased
// Pass@k estimator across attempts.
package scorer

import (
	"math"

	"github.com/codebench/codebench/internal/evalmodel"
)

// Weights are a core contract (spec'd 0.4 compile / 0.5 tests / 0.1
// lint); alternative weighting schemes are the caller's concern, not
// this package's.
const (
	WeightCompilation = 0.4
	WeightTests       = 0.5
	WeightClippy      = 0.1
)

// PassThreshold is the default overall score at or above which an attempt
// counts toward Pass@k's numerator: the attempt compiled and all tests
// passed.
const PassThreshold = 0.9

// AttemptInput is the subset of an EvalResult's observations the scorer
// needs; kept separate from evalmodel.EvalResult so callers pass only
// the observations the formula reads.
type AttemptInput struct {
	CompileSuccess    bool
	TestsObserved     bool
	TestsPassed       int
	TestsFailed       int
	ShouldPassTests   bool
	LintRan           bool
	LintWarningCount  int
	MaxClippyWarnings *int
}

// Compute computes compile_s/test_s/clippy_s/overall exactly per the
// documented formula, returning the shared evalmodel.Score shape.
func Compute(in AttemptInput) evalmodel.Score {
	compileS := 0.0
	if in.CompileSuccess {
		compileS = 1.0
	}

	var testS float64
	switch {
	case in.TestsObserved:
		total := in.TestsPassed + in.TestsFailed
		if total > 0 {
			testS = float64(in.TestsPassed) / float64(total)
		} else {
			testS = 1.0
		}
	case !in.ShouldPassTests:
		testS = 1.0
	default:
		testS = 0.0
	}

	clippyS := 1.0
	if in.LintRan {
		clippyS = math.Max(0, 1-float64(in.LintWarningCount)*0.1)
		if in.MaxClippyWarnings != nil && in.LintWarningCount > *in.MaxClippyWarnings {
			clippyS = 0
		}
	}

	if compileS == 0 {
		return evalmodel.Score{Compilation: 0, Tests: testS, Clippy: clippyS, Overall: 0}
	}
	overall := WeightCompilation*compileS + WeightTests*testS + WeightClippy*clippyS
	return evalmodel.Score{Compilation: compileS, Tests: testS, Clippy: clippyS, Overall: overall}
}

// PassAtKResult distinguishes a computed probability from the
// not-enough-samples case (k > n).
type PassAtKResult struct {
	Value          float64
	NotEnoughSamples bool
}

// PassAtK computes the unbiased Pass@k estimator (Chen et al. 2021)
// given n total attempts and c attempts meeting the pass threshold, in
// log-space via lgamma to avoid overflow for large n.
func PassAtK(n, c, k int) PassAtKResult {
	if k > n {
		return PassAtKResult{NotEnoughSamples: true}
	}
	if c == 0 {
		return PassAtKResult{Value: 0}
	}
	if c >= n-k+1 {
		return PassAtKResult{Value: 1}
	}
	// 1 - C(n-c, k) / C(n, k), via log-binomial-coefficient difference.
	logRatio := logBinomial(n-c, k) - logBinomial(n, k)
	return PassAtKResult{Value: 1 - math.Exp(logRatio)}
}

// logBinomial returns log(C(n, k)) via lgamma, with the usual
// out-of-range convention C(n,k)=0 for k<0 or k>n (log -> -Inf).
func logBinomial(n, k int) float64 {
	if k < 0 || k > n {
		return math.Inf(-1)
	}
	lg1, _ := math.Lgamma(float64(n + 1))
	lg2, _ := math.Lgamma(float64(k + 1))
	lg3, _ := math.Lgamma(float64(n-k+1))
	return lg1 - lg2 - lg3
}
