package biz

import (
	"context"
	"errors"
	"fmt"

	"github.com/kart-io/logger"

	"github.com/kart-io/lectern/internal/lectern/tools"
	"github.com/kart-io/lectern/internal/model"
	"github.com/kart-io/lectern/pkg/llm"
)

// systemPrompt instructs the model on tool usage and answer style.
const systemPrompt = `You are an AI assistant specialized in course materials and educational content.

Tool usage:
- Use search_course_content for questions about specific course content or lesson details.
- Use get_course_outline for questions about a course's structure or lesson list.
- At most one round of tool calls per question; after receiving tool results, answer directly.
- If a tool reports that nothing was found, state that clearly instead of guessing.

Answer style:
- Be brief, concise and focused.
- Do not mention the search process or the tools in your answer.
- For general knowledge questions, answer from your own knowledge without tools.`

// GeneratorConfig configures the generation loop.
type GeneratorConfig struct {
	// SystemPrompt overrides the default instruction when non-empty.
	SystemPrompt string
}

// Generator runs one exchange through the two-phase generation
// protocol: a first model call with tools available, optional tool
// dispatch, then a second call without tools whose output is final.
type Generator struct {
	provider llm.ToolChatProvider
	registry *tools.Registry
	config   *GeneratorConfig
}

// GenerationResult is the outcome of one generation run.
type GenerationResult struct {
	Answer    string
	Sources   []model.SourceRef
	ToolCalls int
	Usage     llm.TokenUsage
}

// NewGenerator creates a generator over the given provider and tools.
func NewGenerator(provider llm.ToolChatProvider, registry *tools.Registry, config *GeneratorConfig) *Generator {
	if config == nil {
		config = &GeneratorConfig{}
	}
	return &Generator{
		provider: provider,
		registry: registry,
		config:   config,
	}
}

// Generate answers query with the given rendered conversation history.
// Provider failures at either phase abort the exchange; tool lookup
// misses are fed back to the model as text instead.
func (g *Generator) Generate(ctx context.Context, query, history string) (*GenerationResult, error) {
	system := g.config.SystemPrompt
	if system == "" {
		system = systemPrompt
	}
	if history != "" {
		system += "\n\nPrevious conversation:\n" + history
	}

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: system},
		{Role: llm.RoleUser, Content: query},
	}

	resp, err := g.provider.ChatWithTools(ctx, messages, g.registry.Definitions())
	if err != nil {
		return nil, fmt.Errorf("generation phase 1: %w", err)
	}

	result := &GenerationResult{Usage: resp.Usage}
	if !resp.StopOnToolUse() {
		result.Answer = resp.Content
		return result, nil
	}

	// Tool calls run sequentially in the order the model requested.
	result.ToolCalls = len(resp.ToolCalls)
	rec := tools.NewSourceRecorder()
	messages = append(messages, llm.Message{
		Role:      llm.RoleAssistant,
		Content:   resp.Content,
		ToolCalls: resp.ToolCalls,
	})
	for _, call := range resp.ToolCalls {
		output, err := g.registry.Execute(ctx, call.Name, call.Arguments, rec)
		if err != nil {
			if errors.Is(err, llm.ErrUnavailable) {
				return nil, fmt.Errorf("tool %s: %w", call.Name, err)
			}
			logger.Warnw("tool execution failed", "tool", call.Name, "error", err)
			output = fmt.Sprintf("Tool '%s' failed: %v", call.Name, err)
		}
		messages = append(messages, llm.Message{
			Role:       llm.RoleTool,
			Content:    output,
			ToolCallID: call.ID,
		})
	}

	// Phase 2 runs without tools; its output is final even if empty.
	final, err := g.provider.ChatWithTools(ctx, messages, nil)
	if err != nil {
		return nil, fmt.Errorf("generation phase 2: %w", err)
	}

	result.Answer = final.Content
	result.Sources = rec.Drain()
	result.Usage = llm.TokenUsage{
		PromptTokens:     resp.Usage.PromptTokens + final.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens + final.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens + final.Usage.TotalTokens,
	}
	return result, nil
}
