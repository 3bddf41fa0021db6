// Package testdriver runs the oracle tests inside a sandbox and
// normalizes their output into evalmodel.TestResult, preferring a
// structured result stream and falling back to a textual parser.
package testdriver

import (
	"bufio"
	"context"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/codebench/codebench/internal/evalmodel"
	"github.com/codebench/codebench/internal/sandbox"
)

// timeoutFailureName is the synthetic failure recorded when the test
// process is killed on deadline.
const timeoutFailureName = "__timeout__"

// rawEvent is the structured per-test-event shape (modeled on `go test
// -json` / `cargo test` JSON event streams: one JSON object per line).
type rawEvent struct {
	Action  string  `json:"action"`
	Test    string  `json:"test"`
	Elapsed float64 `json:"elapsed"`
	Output  string  `json:"output"`
}

var (
	perTestLine = regexp.MustCompile(`^test (\S+)(?: - should panic)? \.\.\. (ok|FAILED|ignored)\s*$`)
	summaryLine = regexp.MustCompile(`^test result: (ok|FAILED)\. (\d+) passed; (\d+) failed; (\d+) ignored`)
	failuresHdr = regexp.MustCompile(`^failures:\s*$`)
)

// Run executes the sandbox's test command and returns a normalized
// TestResult. Callers must only invoke this after a successful compile
// and only when the case expects tests.
func Run(ctx context.Context, sb *sandbox.Sandbox, timeout time.Duration) (evalmodel.TestResult, error) {
	return runWithCommand(ctx, sb, sb.TestCommand(), timeout)
}

func runWithCommand(ctx context.Context, sb *sandbox.Sandbox, argv []string, timeout time.Duration) (evalmodel.TestResult, error) {
	result, err := sb.Run(ctx, argv, timeout)
	if err != nil {
		return evalmodel.TestResult{}, err
	}

	tr, structured := parseStructured(result.Stdout)
	if !structured {
		tr = parseTextual(result.Stdout)
	}
	tr.DurationMs = result.DurationMs

	if result.TimedOut {
		tr.Failures = append(tr.Failures, evalmodel.TestFailure{
			Name:    timeoutFailureName,
			Message: "test process exceeded deadline",
		})
		tr.Failed++
		tr.DurationMs = timeout.Milliseconds()
	}
	return tr, nil
}

func parseStructured(stdout string) (evalmodel.TestResult, bool) {
	var tr evalmodel.TestResult
	sawAny := false
	scanner := bufio.NewScanner(strings.NewReader(stdout))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		var ev rawEvent
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			continue
		}
		if ev.Test == "" || ev.Action == "" {
			continue
		}
		switch ev.Action {
		case "pass":
			sawAny = true
			tr.Passed++
		case "fail":
			sawAny = true
			tr.Failed++
			tr.Failures = append(tr.Failures, evalmodel.TestFailure{
				Name:    ev.Test,
				Message: "test failed",
				Stdout:  ev.Output,
			})
		case "skip":
			sawAny = true
			tr.Ignored++
		}
	}
	return tr, sawAny
}

func parseTextual(stdout string) evalmodel.TestResult {
	var tr evalmodel.TestResult
	lines := strings.Split(stdout, "\n")

	inFailures := false
	failureIndex := map[string]int{}
	currentFailureIdx := -1

	for _, line := range lines {
		if failuresHdr.MatchString(line) {
			inFailures = true
			continue
		}
		if m := perTestLine.FindStringSubmatch(line); m != nil {
			name, outcome := m[1], m[2]
			switch outcome {
			case "ok":
				tr.Passed++
			case "FAILED":
				tr.Failed++
				tr.Failures = append(tr.Failures, evalmodel.TestFailure{Name: name, Message: "test failed"})
				failureIndex[name] = len(tr.Failures) - 1
			case "ignored":
				tr.Ignored++
			}
			continue
		}
		if m := summaryLine.FindStringSubmatch(line); m != nil {
			passed, _ := strconv.Atoi(m[2])
			failed, _ := strconv.Atoi(m[3])
			ignored, _ := strconv.Atoi(m[4])
			if tr.Passed == 0 && tr.Failed == 0 && tr.Ignored == 0 {
				tr.Passed, tr.Failed, tr.Ignored = passed, failed, ignored
			}
			continue
		}
		if !inFailures {
			continue
		}
		if currentFailureIdx == -1 {
			name := strings.TrimSuffix(strings.TrimSpace(line), ":")
			if idx, ok := failureIndex[name]; ok {
				currentFailureIdx = idx
			}
			continue
		}
		if strings.TrimSpace(line) == "" {
			currentFailureIdx = -1
			continue
		}
		if tr.Failures[currentFailureIdx].Stdout != "" {
			tr.Failures[currentFailureIdx].Stdout += "\n"
		}
		tr.Failures[currentFailureIdx].Stdout += line
	}
	return tr
}
