// Package lectern provides the course assistant server implementation.
package lectern

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/lectern/internal/lectern/biz"
	"github.com/kart-io/lectern/internal/lectern/handler"
	"github.com/kart-io/lectern/internal/lectern/router"
	"github.com/kart-io/lectern/internal/lectern/session"
	"github.com/kart-io/lectern/internal/lectern/store"
	"github.com/kart-io/lectern/pkg/app"
	milvuscomp "github.com/kart-io/lectern/pkg/component/milvus"
	rediscomp "github.com/kart-io/lectern/pkg/component/redis"
	"github.com/kart-io/lectern/pkg/llm"
	// Providers register themselves with the llm registry.
	_ "github.com/kart-io/lectern/pkg/llm/ollama"
	_ "github.com/kart-io/lectern/pkg/llm/openai"
	assistantopts "github.com/kart-io/lectern/pkg/options/assistant"
	cacheopts "github.com/kart-io/lectern/pkg/options/cache"
	httpopts "github.com/kart-io/lectern/pkg/options/http"
	llmopts "github.com/kart-io/lectern/pkg/options/llm"
	logopts "github.com/kart-io/lectern/pkg/options/logger"
	milvusopts "github.com/kart-io/lectern/pkg/options/milvus"
	redisopts "github.com/kart-io/lectern/pkg/options/redis"
)

// Name is the name of the application.
const Name = "lectern"

// Config contains the fully resolved server configuration.
type Config struct {
	HTTPOptions      *httpopts.Options
	LogOptions       *logopts.Options
	MilvusOptions    *milvusopts.Options
	RedisOptions     *redisopts.Options
	EmbeddingOptions *llmopts.ProviderOptions
	ChatOptions      *llmopts.ProviderOptions
	AssistantOptions *assistantopts.Options
	CacheOptions     *cacheopts.Options
}

// Server is the assembled course assistant server.
type Server struct {
	httpSrv         *http.Server
	shutdownTimeout time.Duration
	closers         []func()
}

// NewServer initializes every component and returns a runnable server.
func (cfg *Config) NewServer(ctx context.Context) (*Server, error) {
	printBanner(cfg)

	cfg.LogOptions.AddInitialField("service.name", Name)
	cfg.LogOptions.AddInitialField("service.version", app.GetVersion())
	if err := cfg.LogOptions.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Info("Starting course assistant...")

	var closers []func()

	embedder, err := llm.NewEmbeddingProvider(cfg.EmbeddingOptions.Provider, cfg.EmbeddingOptions.ToConfigMap())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedding provider: %w", err)
	}
	logger.Infow("embedding provider initialized",
		"provider", cfg.EmbeddingOptions.Provider,
		"model", cfg.EmbeddingOptions.Model,
	)

	chatProvider, err := llm.NewChatProvider(cfg.ChatOptions.Provider, cfg.ChatOptions.ToConfigMap())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize chat provider: %w", err)
	}
	toolProvider, ok := chatProvider.(llm.ToolChatProvider)
	if !ok {
		return nil, fmt.Errorf("chat provider %q does not support tool calls", cfg.ChatOptions.Provider)
	}
	logger.Infow("chat provider initialized",
		"provider", cfg.ChatOptions.Provider,
		"model", cfg.ChatOptions.Model,
	)

	index, indexClose, err := cfg.newIndex(ctx, embedder)
	if err != nil {
		return nil, err
	}
	if indexClose != nil {
		closers = append(closers, indexClose)
	}

	var redisClient *rediscomp.Client
	needRedis := cfg.AssistantOptions.SessionBackend == "redis" || cfg.CacheOptions.Enabled
	if needRedis {
		redisClient, err = rediscomp.NewWithContext(ctx, cfg.RedisOptions)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })
		logger.Infow("redis client initialized", "addr", cfg.RedisOptions.Addr())
	}

	var sessions session.Store
	switch cfg.AssistantOptions.SessionBackend {
	case "redis":
		sessions = session.NewRedisStore(redisClient, cfg.AssistantOptions.MaxHistory)
	default:
		sessions = session.NewMemoryStore(cfg.AssistantOptions.MaxHistory)
	}
	logger.Infow("session store initialized", "backend", cfg.AssistantOptions.SessionBackend)

	var cache *biz.QueryCache
	if cfg.CacheOptions.Enabled && redisClient != nil {
		cache = biz.NewQueryCache(redisClient.Client(), &biz.QueryCacheConfig{
			Enabled:   true,
			TTL:       cfg.CacheOptions.TTL,
			KeyPrefix: cfg.CacheOptions.KeyPrefix,
		})
		logger.Infow("query cache initialized", "ttl", cfg.CacheOptions.TTL)
	}

	assistant := biz.NewAssistant(index, sessions, toolProvider, cache, &biz.AssistantConfig{
		IngestorConfig: &biz.IngestorConfig{
			ChunkSize:    cfg.AssistantOptions.ChunkSize,
			ChunkOverlap: cfg.AssistantOptions.ChunkOverlap,
		},
		GeneratorConfig: &biz.GeneratorConfig{},
		MaxResults:      cfg.AssistantOptions.MaxResults,
	})
	logger.Info("assistant service initialized")

	if dir := cfg.AssistantOptions.DocsDir; dir != "" {
		count, err := assistant.IngestFolder(ctx, dir)
		if err != nil {
			logger.Warnw("startup ingestion failed", "dir", dir, "error", err)
		} else {
			logger.Infow("startup ingestion finished", "dir", dir, "courses", count)
		}
	}

	gin.SetMode(cfg.HTTPOptions.Mode)
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger())
	router.Register(engine, handler.NewAssistantHandler(assistant))

	httpSrv := &http.Server{
		Addr:         cfg.HTTPOptions.Addr,
		Handler:      engine,
		ReadTimeout:  cfg.HTTPOptions.ReadTimeout,
		WriteTimeout: cfg.HTTPOptions.WriteTimeout,
	}

	logger.Info("course assistant is ready")
	return &Server{
		httpSrv:         httpSrv,
		shutdownTimeout: cfg.HTTPOptions.ShutdownTimeout,
		closers:         closers,
	}, nil
}

// newIndex builds the vector index selected by the store driver.
func (cfg *Config) newIndex(ctx context.Context, embedder llm.EmbeddingProvider) (store.Index, func(), error) {
	switch cfg.AssistantOptions.StoreDriver {
	case "memory":
		logger.Info("using in-memory vector index")
		return store.NewMemoryIndex(embedder), nil, nil
	case "milvus":
		client, err := milvuscomp.New(cfg.MilvusOptions)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize milvus: %w", err)
		}
		index, err := store.NewMilvusIndex(ctx, client, embedder, store.MilvusConfig{
			CatalogCollection: cfg.AssistantOptions.CatalogCollection,
			ContentCollection: cfg.AssistantOptions.ContentCollection,
			Dimension:         cfg.AssistantOptions.EmbeddingDim,
		})
		if err != nil {
			_ = client.Close(context.Background())
			return nil, nil, fmt.Errorf("failed to initialize vector index: %w", err)
		}
		logger.Infow("milvus vector index initialized",
			"catalog", cfg.AssistantOptions.CatalogCollection,
			"content", cfg.AssistantOptions.ContentCollection,
		)
		return index, func() { _ = index.Close(context.Background()) }, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver: %s", cfg.AssistantOptions.StoreDriver)
	}
}

// Run starts the HTTP server and blocks until ctx is cancelled or the
// listener fails.
func (s *Server) Run(ctx context.Context) error {
	defer func() {
		for _, fn := range s.closers {
			fn()
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		logger.Infow("HTTP server listening", "addr", s.httpSrv.Addr)
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

// requestLogger logs one line per request through the structured logger.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		// Health probes are too chatty to log.
		if c.Request.URL.Path == "/healthz" {
			return
		}
		logger.Infow("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start).String(),
			"client_ip", c.ClientIP(),
		)
	}
}

func printBanner(cfg *Config) {
	fmt.Printf("Starting %s...\n", Name)
	fmt.Printf("  Embedding: %s (%s)\n", cfg.EmbeddingOptions.Provider, cfg.EmbeddingOptions.Model)
	fmt.Printf("  Chat: %s (%s)\n", cfg.ChatOptions.Provider, cfg.ChatOptions.Model)
	fmt.Printf("  Store: %s, Sessions: %s\n",
		cfg.AssistantOptions.StoreDriver, cfg.AssistantOptions.SessionBackend)
	if !strings.HasPrefix(cfg.HTTPOptions.Addr, ":") {
		fmt.Printf("  Listen: %s\n", cfg.HTTPOptions.Addr)
	}
}
