// Package stub provides a deterministic, in-process generator.Generator
// implementation, mirroring the teacher's mock LLM client: a fully
// functional fake satisfying the same capability interface production
// code depends on, so the orchestrator can be exercised end-to-end
// without a network dependency.
package stub

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/codebench/codebench/internal/generator"
)

// Responder produces canned content for a request. If nil, Generator
// falls back to a deterministic template derived from the request.
type Responder func(req generator.Request) (content string, err error)

// Generator is a deterministic fake satisfying generator.Generator.
type Generator struct {
	name      string
	models    []generator.ModelInfo
	responder Responder

	mu         sync.Mutex
	calls      int64
	callsByKey map[string]int64
}

// New creates a stub generator named name, serving the given models. If
// responder is nil, Generate returns an untagged fenced code block
// holding a single comment line that names the model and numbers the
// call for that (model, prompt) key; callers that need
// language-specific stubs should supply a Responder.
func New(name string, models []generator.ModelInfo, responder Responder) *Generator {
	return &Generator{
		name:       name,
		models:     models,
		responder:  responder,
		callsByKey: make(map[string]int64),
	}
}

func (g *Generator) Name() string { return g.name }

func (g *Generator) AvailableModels() []generator.ModelInfo {
	out := make([]generator.ModelInfo, len(g.models))
	copy(out, g.models)
	return out
}

// Generate returns a deterministic response. Call counts are tracked per
// (model, prompt) key so tests can assert on attempt numbering without
// relying on wall-clock ordering.
func (g *Generator) Generate(ctx context.Context, req generator.Request) (generator.Response, error) {
	if err := ctx.Err(); err != nil {
		return generator.Response{}, &generator.Timeout{}
	}

	key := req.Model + "\x00" + req.Prompt
	g.mu.Lock()
	g.callsByKey[key]++
	n := g.callsByKey[key]
	g.mu.Unlock()
	atomic.AddInt64(&g.calls, 1)

	var content string
	var err error
	if g.responder != nil {
		content, err = g.responder(req)
	} else {
		content = fmt.Sprintf("```\n// stub response #%d for %s\n```", n, req.Model)
	}
	if err != nil {
		return generator.Response{}, err
	}

	return generator.Response{
		Content:       content,
		ExtractedCode: generator.ExtractCode(content, ""),
		Model:         req.Model,
		TokenUsage: generator.TokenUsage{
			PromptTokens:     int32(len(req.Prompt) / 4),
			CompletionTokens: int32(len(content) / 4),
			TotalTokens:      int32((len(req.Prompt) + len(content)) / 4),
		},
		LatencyMs: 1,
	}, nil
}

// CallCount returns the total number of Generate invocations observed so
// far, across all models and prompts.
func (g *Generator) CallCount() int64 {
	return atomic.LoadInt64(&g.calls)
}
