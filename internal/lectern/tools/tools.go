// Package tools exposes index lookups as callable tools for the
// generation loop. Each tool declares a schema the model can discover,
// executes against the vector index, and renders a textual result that
// is fed back to the model verbatim.
package tools

import (
	"context"
	"sync"

	"github.com/kart-io/lectern/internal/model"
	"github.com/kart-io/lectern/pkg/llm"
	"github.com/kart-io/lectern/pkg/utils/json"
)

// Tool is one invocable operation.
type Tool interface {
	// Definition returns the schema advertised to the model.
	Definition() llm.Tool

	// Execute runs the tool with raw JSON arguments and returns the
	// textual result. Lookup misses are reported inside the result
	// text, not as errors; an error aborts the exchange.
	Execute(ctx context.Context, arguments string, rec *SourceRecorder) (string, error)
}

// SourceRecorder accumulates citations during a single exchange. Each
// exchange owns its own recorder so concurrent exchanges never share
// sources.
type SourceRecorder struct {
	mu      sync.Mutex
	sources []model.SourceRef
}

// NewSourceRecorder returns an empty recorder.
func NewSourceRecorder() *SourceRecorder {
	return &SourceRecorder{}
}

// Record appends one citation.
func (r *SourceRecorder) Record(ref model.SourceRef) {
	r.mu.Lock()
	r.sources = append(r.sources, ref)
	r.mu.Unlock()
}

// Drain returns all recorded citations and resets the recorder.
func (r *SourceRecorder) Drain() []model.SourceRef {
	r.mu.Lock()
	defer r.mu.Unlock()

	sources := r.sources
	r.sources = nil
	return sources
}

// Registry maps tool names to handlers and exposes the schema list for
// model calls.
type Registry struct {
	order []string
	tools map[string]Tool
}

// NewRegistry builds a registry over the given tools, preserving order.
func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		name := t.Definition().Name
		if _, ok := r.tools[name]; ok {
			continue
		}
		r.order = append(r.order, name)
		r.tools[name] = t
	}
	return r
}

// Definitions returns all tool schemas in registration order.
func (r *Registry) Definitions() []llm.Tool {
	defs := make([]llm.Tool, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].Definition())
	}
	return defs
}

// Execute dispatches a named call. Unknown tool names produce a textual
// result so the model can explain the failure to the user.
func (r *Registry) Execute(ctx context.Context, name, arguments string, rec *SourceRecorder) (string, error) {
	t, ok := r.tools[name]
	if !ok {
		return "Tool '" + name + "' is not available.", nil
	}
	return t.Execute(ctx, arguments, rec)
}

func decodeArguments(arguments string, v any) error {
	if arguments == "" {
		arguments = "{}"
	}
	return json.Unmarshal([]byte(arguments), v)
}
