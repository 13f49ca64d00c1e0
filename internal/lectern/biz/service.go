package biz

import (
	"context"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/lectern/internal/lectern/metrics"
	"github.com/kart-io/lectern/internal/lectern/session"
	"github.com/kart-io/lectern/internal/lectern/store"
	"github.com/kart-io/lectern/internal/lectern/tools"
	"github.com/kart-io/lectern/internal/model"
	"github.com/kart-io/lectern/internal/pkg/textutil"
	"github.com/kart-io/lectern/pkg/llm"
)

// Service is the surface the transport layer talks to.
type Service interface {
	// Query answers one question inside an optional session. An empty
	// sessionID starts a new session whose id is returned with the
	// result.
	Query(ctx context.Context, sessionID, text string) (*model.QueryResult, error)
	// Ingest indexes one raw course document, replacing any prior
	// version of the same title.
	Ingest(ctx context.Context, raw string) (*model.Course, error)
	// IngestFolder indexes every course document in dir, skipping
	// titles already present. Returns the number of courses ingested.
	IngestFolder(ctx context.Context, dir string) (int, error)
	// Analytics summarizes the indexed corpus.
	Analytics(ctx context.Context) (*model.Analytics, error)
	// ResetSession clears one session's history.
	ResetSession(ctx context.Context, sessionID string) error
	// ClearIndex drops every indexed course.
	ClearIndex(ctx context.Context) error
}

// AssistantConfig configures the assistant service.
type AssistantConfig struct {
	IngestorConfig  *IngestorConfig
	GeneratorConfig *GeneratorConfig
	// MaxResults bounds results per content search.
	MaxResults int
}

// Assistant composes the ingestor, tool registry, generator and session
// store into the full course assistant.
type Assistant struct {
	index     store.Index
	sessions  session.Store
	ingestor  *Ingestor
	generator *Generator
	cache     *QueryCache
	metrics   *metrics.AssistantMetrics
}

var _ Service = (*Assistant)(nil)

// NewAssistant wires the assistant from its dependencies. cache may be
// nil to disable answer caching.
func NewAssistant(
	index store.Index,
	sessions session.Store,
	provider llm.ToolChatProvider,
	cache *QueryCache,
	config *AssistantConfig,
) *Assistant {
	if config == nil {
		config = &AssistantConfig{}
	}

	registry := tools.NewRegistry(
		tools.NewSearchTool(index, config.MaxResults),
		tools.NewOutlineTool(index),
	)

	return &Assistant{
		index:     index,
		sessions:  sessions,
		ingestor:  NewIngestor(index, config.IngestorConfig),
		generator: NewGenerator(provider, registry, config.GeneratorConfig),
		cache:     cache,
		metrics:   metrics.GetAssistantMetrics(),
	}
}

func (a *Assistant) Query(ctx context.Context, sessionID, text string) (*model.QueryResult, error) {
	created := false
	if sessionID == "" {
		id, err := a.sessions.Create(ctx)
		if err != nil {
			a.metrics.RecordQuery(false, err)
			return nil, err
		}
		sessionID = id
		created = true
	}

	// Only fresh sessions hit the cache: the same question inside an
	// ongoing conversation may need a different answer.
	if created && a.cache != nil {
		if cached, err := a.cache.Get(ctx, text); err == nil && cached != nil {
			a.metrics.RecordQuery(true, nil)
			cached.SessionID = sessionID
			return cached, nil
		}
	}

	exchanges, err := a.sessions.History(ctx, sessionID)
	if err != nil {
		a.metrics.RecordQuery(false, err)
		return nil, err
	}

	start := time.Now()
	gen, err := a.generator.Generate(ctx, text, session.FormatHistory(exchanges))
	if err != nil {
		// The exchange failed before completion; the session keeps its
		// prior history untouched.
		a.metrics.RecordGeneration(time.Since(start), 0, 0, 0, err)
		a.metrics.RecordQuery(false, err)
		return nil, err
	}
	a.metrics.RecordGeneration(time.Since(start), gen.ToolCalls,
		gen.Usage.PromptTokens, gen.Usage.CompletionTokens, nil)
	logger.Infow("query answered",
		"session_id", sessionID,
		"query", textutil.TruncateString(text, 80),
		"tool_calls", gen.ToolCalls,
		"duration", time.Since(start).String(),
	)

	if err := a.sessions.AddExchange(ctx, sessionID, text, gen.Answer); err != nil {
		logger.Warnw("failed to record exchange", "session_id", sessionID, "error", err)
	}

	result := &model.QueryResult{
		Answer:    gen.Answer,
		Sources:   gen.Sources,
		SessionID: sessionID,
	}
	if created && a.cache != nil {
		_ = a.cache.Set(ctx, text, &model.QueryResult{
			Answer:  result.Answer,
			Sources: result.Sources,
		})
	}

	a.metrics.RecordQuery(false, nil)
	return result, nil
}

func (a *Assistant) Ingest(ctx context.Context, raw string) (*model.Course, error) {
	course, chunks, err := a.ingestor.Ingest(ctx, raw)
	if err != nil {
		a.metrics.RecordIngest(0, 0, err)
		return nil, err
	}
	a.metrics.RecordIngest(1, chunks, nil)
	a.invalidateCache(ctx)
	return course, nil
}

func (a *Assistant) IngestFolder(ctx context.Context, dir string) (int, error) {
	count, err := a.ingestor.IngestFolder(ctx, dir)
	if err != nil {
		a.metrics.RecordIngest(0, 0, err)
		return 0, err
	}
	a.metrics.RecordIngest(count, 0, nil)
	if count > 0 {
		a.invalidateCache(ctx)
	}
	return count, nil
}

func (a *Assistant) Analytics(ctx context.Context) (*model.Analytics, error) {
	titles, err := a.index.ListCourseTitles(ctx)
	if err != nil {
		return nil, err
	}
	return &model.Analytics{
		CourseCount:  len(titles),
		CourseTitles: titles,
	}, nil
}

func (a *Assistant) ResetSession(ctx context.Context, sessionID string) error {
	return a.sessions.Reset(ctx, sessionID)
}

func (a *Assistant) ClearIndex(ctx context.Context) error {
	if err := a.index.Clear(ctx); err != nil {
		return err
	}
	a.invalidateCache(ctx)
	return nil
}

func (a *Assistant) invalidateCache(ctx context.Context) {
	if a.cache == nil {
		return
	}
	if err := a.cache.Clear(ctx); err != nil {
		logger.Warnw("failed to clear query cache", "error", err)
	}
}
