// Package lint runs the sandboxed style linter and normalizes its
// output, filtering to linter-origin diagnostics and treating a missing
// linter binary as a soft, non-fatal condition.
package lint

import (
	"bufio"
	"context"
	"encoding/json"
	"os/exec"
	"strings"
	"time"

	"github.com/codebench/codebench/internal/evalmodel"
	"github.com/codebench/codebench/internal/sandbox"
)

// codePrefix is the linter-origin diagnostic code namespace per
// language, mirroring the reference toolchain's `clippy::` convention.
var codePrefix = map[evalmodel.Language]string{
	evalmodel.Rust:       "clippy::",
	evalmodel.Go:         "golangci-lint:",
	evalmodel.Python:     "pylint:",
	evalmodel.TypeScript: "eslint:",
}

var binaryFor = map[evalmodel.Language]string{
	evalmodel.Rust:       "cargo-clippy",
	evalmodel.Go:         "golangci-lint",
	evalmodel.Python:     "pylint",
	evalmodel.TypeScript: "eslint",
}

type rawMessage struct {
	Reason  string `json:"reason"`
	Message *struct {
		Level   string `json:"level"`
		Message string `json:"message"`
		Code    *struct {
			Code string `json:"code"`
		} `json:"code"`
	} `json:"message"`
}

var levelMap = map[string]evalmodel.Level{
	"error":   evalmodel.LevelError,
	"warning": evalmodel.LevelWarning,
	"note":    evalmodel.LevelNote,
	"help":    evalmodel.LevelHelp,
}

// lookPath is overridable in tests.
var lookPath = exec.LookPath

// Run invokes the sandbox's configured linter. If the linter binary is
// not on PATH, it returns (nil, nil) — a missing linter is a soft error,
// not a failure, and the caller should record clippy=None.
func Run(ctx context.Context, sb *sandbox.Sandbox, timeout time.Duration) (*evalmodel.LintResult, error) {
	bin, ok := binaryFor[sb.Language]
	if !ok {
		return nil, nil
	}
	if _, err := lookPath(bin); err != nil {
		return nil, nil
	}
	return runWithCommand(ctx, sb, sb.LintCommand(), codePrefix[sb.Language], timeout)
}

func runWithCommand(ctx context.Context, sb *sandbox.Sandbox, argv []string, prefix string, timeout time.Duration) (*evalmodel.LintResult, error) {
	result, err := sb.Run(ctx, argv, timeout)
	if err != nil {
		return nil, err
	}

	var warnings []evalmodel.Diagnostic
	scanner := bufio.NewScanner(strings.NewReader(result.Stdout))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		var raw rawMessage
		if err := json.Unmarshal([]byte(line), &raw); err != nil {
			continue
		}
		if raw.Reason != "compiler-message" || raw.Message == nil {
			continue
		}
		var code string
		if raw.Message.Code != nil {
			code = raw.Message.Code.Code
		}
		if prefix != "" && !strings.HasPrefix(code, prefix) {
			continue
		}
		level, ok := levelMap[raw.Message.Level]
		if !ok {
			level = evalmodel.LevelWarning
		}
		warnings = append(warnings, evalmodel.Diagnostic{
			Level:   level,
			Message: raw.Message.Message,
			Code:    code,
		})
	}

	return &evalmodel.LintResult{Warnings: warnings, WarningCount: len(warnings)}, nil
}
