// Package generator defines the capability interface through which the
// orchestrator asks a model to produce candidate code, plus the shared
// code-extraction helper every Generator implementation relies on.
package generator

import (
	"context"
	"strings"

	"github.com/codebench/codebench/internal/catcode"
)

// Request is a single generation request.
type Request struct {
	Model          string
	Prompt         string
	SystemPrompt   string
	ContextFiles   []ContextFile
	MaxTokens      int
	Temperature    float64
	StopSequences  []string
}

// ContextFile is additional reference material supplied alongside a
// prompt; it is never written into the sandbox.
type ContextFile struct {
	Path    string
	Content string
}

// TokenUsage reports accounting for a single generation call.
type TokenUsage struct {
	PromptTokens     int32
	CompletionTokens int32
	TotalTokens      int32
}

// Response is the result of a successful generation call.
type Response struct {
	Content       string
	ExtractedCode string
	Model         string
	TokenUsage    TokenUsage
	LatencyMs     int64
}

// ModelInfo describes one model a Generator can serve.
type ModelInfo struct {
	Name     string
	Provider string
}

// Generator is a named capability that can produce candidate code for a
// prompt and report which models it can serve. Implementations must be
// safe for concurrent use: the orchestrator shares one Generator across
// many in-flight Attempts.
type Generator interface {
	Name() string
	Generate(ctx context.Context, req Request) (Response, error)
	AvailableModels() []ModelInfo
}

// RateLimited indicates the provider rejected the request due to rate
// limiting. RetryAfterMs, when non-zero, is the provider's requested
// backoff.
type RateLimited struct {
	RetryAfterMs int64
}

func (e *RateLimited) Error() string       { return "generator: rate limited" }
func (e *RateLimited) Category() catcode.Category { return catcode.RateLimit }

// AuthenticationFailed indicates invalid or missing credentials. Terminal.
type AuthenticationFailed struct{ Message string }

func (e *AuthenticationFailed) Error() string {
	if e.Message == "" {
		return "generator: authentication failed"
	}
	return "generator: authentication failed: " + e.Message
}
func (e *AuthenticationFailed) Category() catcode.Category { return catcode.Auth }

// ModelNotFound indicates the requested model is unknown to the
// provider. Terminal.
type ModelNotFound struct{ Model string }

func (e *ModelNotFound) Error() string { return "generator: model not found: " + e.Model }
func (e *ModelNotFound) Category() catcode.Category { return catcode.NotFound }

// ApiError wraps a provider HTTP-style status code and message. 5xx is
// retriable; 4xx other than 429 is terminal (429 is represented as
// RateLimited instead).
type ApiError struct {
	Status  int
	Message string
}

func (e *ApiError) Error() string { return "generator: api error" }
func (e *ApiError) Category() catcode.Category {
	if e.Status >= 500 {
		return catcode.Server
	}
	return catcode.InvalidRequest
}

// Timeout indicates the generation call exceeded its deadline. Retriable.
type Timeout struct{}

func (e *Timeout) Error() string               { return "generator: timeout" }
func (e *Timeout) Category() catcode.Category { return catcode.Timeout }

// NetworkError indicates a transport-level failure. Retriable.
type NetworkError struct{ Cause error }

func (e *NetworkError) Error() string { return "generator: network error: " + e.Cause.Error() }
func (e *NetworkError) Unwrap() error { return e.Cause }
func (e *NetworkError) Category() catcode.Category { return catcode.Network }

// ExtractCode extracts candidate source from raw model output. Fenced
// code blocks whose language tag matches want (case-insensitive; an
// absent tag is accepted as a match) are concatenated; if none match,
// all fenced blocks of any language are concatenated; if no fences are
// present at all, the raw content is returned verbatim.
func ExtractCode(content, want string) string {
	blocks := parseFences(content)
	if len(blocks) == 0 {
		return content
	}

	var matched []string
	for _, b := range blocks {
		if b.lang == "" || strings.EqualFold(b.lang, want) {
			matched = append(matched, b.body)
		}
	}
	if len(matched) > 0 {
		return strings.Join(matched, "\n")
	}

	var all []string
	for _, b := range blocks {
		all = append(all, b.body)
	}
	return strings.Join(all, "\n")
}

type fence struct {
	lang string
	body string
}

// parseFences scans content for ``` (or longer run of backticks) fenced
// blocks, tracking fence length so a closing fence must match the
// opening run length — this lets a fenced block itself contain shorter
// backtick runs (e.g. inline code) without closing prematurely.
func parseFences(content string) []fence {
	lines := strings.Split(content, "\n")
	var fences []fence

	i := 0
	for i < len(lines) {
		openLen, lang, ok := fenceOpen(lines[i])
		if !ok {
			i++
			continue
		}
		var body []string
		i++
		closed := false
		for i < len(lines) {
			if closeLen, isClose := fenceClose(lines[i]); isClose && closeLen >= openLen {
				closed = true
				i++
				break
			}
			body = append(body, lines[i])
			i++
		}
		if !closed && len(body) == 0 {
			continue
		}
		fences = append(fences, fence{lang: lang, body: strings.Join(body, "\n")})
	}
	return fences
}

func fenceOpen(line string) (length int, lang string, ok bool) {
	trimmed := strings.TrimLeft(line, " \t")
	n := 0
	for n < len(trimmed) && trimmed[n] == '`' {
		n++
	}
	if n < 3 {
		return 0, "", false
	}
	return n, strings.TrimSpace(trimmed[n:]), true
}

func fenceClose(line string) (length int, ok bool) {
	trimmed := strings.TrimLeft(line, " \t")
	n := 0
	for n < len(trimmed) && trimmed[n] == '`' {
		n++
	}
	if n < 3 {
		return 0, false
	}
	if strings.TrimSpace(trimmed[n:]) != "" {
		return 0, false
	}
	return n, true
}
