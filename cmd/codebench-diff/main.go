// Command codebench-diff compares two report.json documents and
// classifies each (case, model) pair as a regression, improvement, or
// unchanged.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/codebench/codebench/internal/logutil"
	"github.com/codebench/codebench/internal/report"
)

// Exit codes. Per the CLI contract, infrastructure failure and a
// detected regression (with --fail-on-regression set) share the same
// non-zero code; every other completed diff exits 0, including one with
// regressions when --fail-on-regression is not set.
const (
	ExitCodeSuccess    = 0
	ExitCodeError      = 1
	ExitCodeRegression = 1
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("codebench-diff", flag.ContinueOnError)
	baselinePath := fs.String("baseline", "", "path to the baseline report.json (required)")
	currentPath := fs.String("current", "", "path to the current report.json (required)")
	threshold := fs.Float64("threshold", report.DefaultRegressionThreshold, "regression/improvement delta threshold")
	failOnRegression := fs.Bool("fail-on-regression", false, "exit 1 if any regression is detected")
	logLevel := fs.String("log-level", "info", "log verbosity: debug, info, warn, error")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitCodeSuccess
		}
		fmt.Fprintf(os.Stderr, "codebench-diff: %v\n", err)
		return ExitCodeError
	}
	if *baselinePath == "" || *currentPath == "" {
		fmt.Fprintln(os.Stderr, "codebench-diff: --baseline and --current are both required")
		return ExitCodeError
	}

	level, err := logutil.ParseLogLevel(*logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "codebench-diff: %v\n", err)
		return ExitCodeError
	}
	logger := logutil.NewSlogLoggerFromLogLevel(os.Stderr, level)

	baseline, err := report.Load(*baselinePath)
	if err != nil {
		logger.Error("loading baseline report: %v", err)
		return ExitCodeError
	}
	current, err := report.Load(*currentPath)
	if err != nil {
		logger.Error("loading current report: %v", err)
		return ExitCodeError
	}

	diff := report.Diff(baseline, current, *threshold)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(diff); err != nil {
		logger.Error("encoding diff: %v", err)
		return ExitCodeError
	}

	if *failOnRegression && len(diff.Regressions) > 0 {
		return ExitCodeRegression
	}
	return ExitCodeSuccess
}
