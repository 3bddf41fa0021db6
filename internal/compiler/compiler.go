// Package compiler invokes the sandboxed build tool in structured-message
// mode and normalizes its output into evalmodel.Diagnostic records.
package compiler

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/codebench/codebench/internal/evalmodel"
	"github.com/codebench/codebench/internal/sandbox"
)

// rawMessage is the structured-output shape emitted line-by-line by the
// build tool in message mode (modeled on cargo's --message-format=json:
// one JSON object per line, discriminated by "reason").
type rawSpan struct {
	FileName    string `json:"file_name"`
	LineStart   int    `json:"line_start"`
	LineEnd     int    `json:"line_end"`
	ColumnStart int    `json:"column_start"`
	ColumnEnd   int    `json:"column_end"`
	Text        []struct {
		Text string `json:"text"`
	} `json:"text"`
}

type rawDiagnostic struct {
	Level   string `json:"level"`
	Message string `json:"message"`
	Code    *struct {
		Code string `json:"code"`
	} `json:"code"`
	Spans []rawSpan `json:"spans"`
}

type rawMessage struct {
	Reason  string         `json:"reason"`
	Message *rawDiagnostic `json:"message"`
	Success *bool          `json:"success"`
}

var levelMap = map[string]evalmodel.Level{
	"error":   evalmodel.LevelError,
	"warning": evalmodel.LevelWarning,
	"note":    evalmodel.LevelNote,
	"help":    evalmodel.LevelHelp,
}

// stripPreBuildScripts deletes any build.rs (or other configured
// pre-build script name) materialized inside the sandbox source tree
// before invocation — the core refuses to run arbitrary build-time code
// from LLM output.
var preBuildScriptNames = []string{"build.rs"}

func stripPreBuildScripts(root string) {
	for _, name := range preBuildScriptNames {
		_ = os.Remove(filepath.Join(root, name))
	}
}

// Compile runs the sandbox's configured build command and returns a
// normalized CompilationResult.
func Compile(ctx context.Context, sb *sandbox.Sandbox, timeout time.Duration) (evalmodel.CompilationResult, error) {
	return compileWithCommand(ctx, sb, sb.BuildCommand(), timeout)
}

// compileWithCommand runs argv instead of the language's default build
// command; split out so tests can exercise the parsing logic with a
// fixture script instead of a real toolchain.
func compileWithCommand(ctx context.Context, sb *sandbox.Sandbox, argv []string, timeout time.Duration) (evalmodel.CompilationResult, error) {
	stripPreBuildScripts(sb.Root)

	result, err := sb.Run(ctx, argv, timeout)
	if err != nil {
		return evalmodel.CompilationResult{}, err
	}

	var errs, warns []evalmodel.Diagnostic
	sawStructured := false
	successMarker := result.ExitCode == 0

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
		switch raw.Reason {
		case "compiler-message":
			sawStructured = true
			if raw.Message == nil {
				continue
			}
			d := toDiagnostic(*raw.Message)
			if d.Level == evalmodel.LevelError {
				errs = append(errs, d)
			} else {
				warns = append(warns, d)
			}
		case "build-finished":
			sawStructured = true
			if raw.Success != nil {
				successMarker = *raw.Success
			}
		}
	}

	success := successMarker
	if !sawStructured {
		success = result.ExitCode == 0 && !result.TimedOut
	}
	if len(errs) > 0 {
		success = false
	}

	compResult := evalmodel.CompilationResult{
		Success:    success,
		Errors:     errs,
		Warnings:   warns,
		DurationMs: result.DurationMs,
	}
	if !compResult.Success {
		compResult.Errors = FallbackStderr(compResult, result.Stderr)
	}
	return compResult, nil
}

func toDiagnostic(m rawDiagnostic) evalmodel.Diagnostic {
	level, ok := levelMap[m.Level]
	if !ok {
		level = evalmodel.LevelNote
	}
	d := evalmodel.Diagnostic{Level: level, Message: m.Message}
	if m.Code != nil {
		d.Code = m.Code.Code
	}
	for _, s := range m.Spans {
		span := evalmodel.Span{
			File:        s.FileName,
			LineStart:   s.LineStart,
			LineEnd:     s.LineEnd,
			ColumnStart: s.ColumnStart,
			ColumnEnd:   s.ColumnEnd,
		}
		for _, t := range s.Text {
			span.Text += t.Text
		}
		d.Spans = append(d.Spans, span)
	}
	return d
}

// FallbackStderr returns stderr as the failure reason, used by callers
// only when a build failed and no structured diagnostics were produced.
func FallbackStderr(result evalmodel.CompilationResult, stderr string) []evalmodel.Diagnostic {
	if result.Success || len(result.Errors) > 0 || strings.TrimSpace(stderr) == "" {
		return result.Errors
	}
	return []evalmodel.Diagnostic{{Level: evalmodel.LevelError, Message: strings.TrimSpace(stderr)}}
}
