// Package options contains flags and options for initializing the
// course assistant server.
package options

import (
	"errors"
	"strings"

	"github.com/kart-io/lectern/internal/lectern"
	"github.com/kart-io/lectern/pkg/options"
	assistantopts "github.com/kart-io/lectern/pkg/options/assistant"
	cacheopts "github.com/kart-io/lectern/pkg/options/cache"
	httpopts "github.com/kart-io/lectern/pkg/options/http"
	llmopts "github.com/kart-io/lectern/pkg/options/llm"
	logopts "github.com/kart-io/lectern/pkg/options/logger"
	milvusopts "github.com/kart-io/lectern/pkg/options/milvus"
	redisopts "github.com/kart-io/lectern/pkg/options/redis"
)

var _ options.CliOptions = (*ServerOptions)(nil)

// ServerOptions contains the configuration options for the server.
type ServerOptions struct {
	// HTTPOptions contains HTTP server configuration.
	HTTPOptions *httpopts.Options `json:"http" mapstructure:"http"`

	// LogOptions contains logger configuration.
	LogOptions *logopts.Options `json:"log" mapstructure:"log"`

	// MilvusOptions contains Milvus database configuration.
	MilvusOptions *milvusopts.Options `json:"milvus" mapstructure:"milvus"`

	// RedisOptions contains Redis configuration, used by the session
	// store and the answer cache.
	RedisOptions *redisopts.Options `json:"redis" mapstructure:"redis"`

	// EmbeddingOptions contains embedding provider configuration.
	EmbeddingOptions *llmopts.ProviderOptions `json:"embedding" mapstructure:"embedding"`

	// ChatOptions contains chat provider configuration.
	ChatOptions *llmopts.ProviderOptions `json:"chat" mapstructure:"chat"`

	// AssistantOptions contains assistant-specific configuration.
	AssistantOptions *assistantopts.Options `json:"assistant" mapstructure:"assistant"`

	// CacheOptions contains answer cache configuration.
	CacheOptions *cacheopts.Options `json:"cache" mapstructure:"cache"`
}

// NewServerOptions creates ServerOptions with defaults.
func NewServerOptions() *ServerOptions {
	return &ServerOptions{
		HTTPOptions:      httpopts.NewOptions(),
		LogOptions:       logopts.NewOptions(),
		MilvusOptions:    milvusopts.NewOptions(),
		RedisOptions:     redisopts.NewOptions(),
		EmbeddingOptions: llmopts.NewEmbeddingOptions(),
		ChatOptions:      llmopts.NewChatOptions(),
		AssistantOptions: assistantopts.NewOptions(),
		CacheOptions:     cacheopts.NewOptions(),
	}
}

// Flags returns the flags grouped by section.
func (o *ServerOptions) Flags() options.NamedFlagSets {
	var fss options.NamedFlagSets

	o.HTTPOptions.AddFlags(fss.FlagSet("http"))
	o.LogOptions.AddFlags(fss.FlagSet("log"))
	o.MilvusOptions.AddFlags(fss.FlagSet("milvus"))
	o.RedisOptions.AddFlags(fss.FlagSet("redis"))
	o.EmbeddingOptions.AddFlags(fss.FlagSet("embedding"), "embedding")
	o.ChatOptions.AddFlags(fss.FlagSet("chat"), "chat")
	o.AssistantOptions.AddFlags(fss.FlagSet("assistant"))
	o.CacheOptions.AddFlags(fss.FlagSet("cache"))

	return fss
}

// Complete fills in defaults derived from other options.
func (o *ServerOptions) Complete() error {
	if err := o.LogOptions.Complete(); err != nil {
		return err
	}
	if err := o.EmbeddingOptions.Complete(); err != nil {
		return err
	}
	return o.ChatOptions.Complete()
}

// Validate checks all option sections.
func (o *ServerOptions) Validate() error {
	var errs []error

	errs = append(errs, o.HTTPOptions.Validate()...)
	if err := o.LogOptions.Validate(); err != nil {
		errs = append(errs, err)
	}
	if o.AssistantOptions.StoreDriver == "milvus" {
		errs = append(errs, o.MilvusOptions.Validate()...)
	}
	if o.AssistantOptions.SessionBackend == "redis" || o.CacheOptions.Enabled {
		if err := o.RedisOptions.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	errs = append(errs, o.EmbeddingOptions.Validate()...)
	errs = append(errs, o.ChatOptions.Validate()...)
	errs = append(errs, o.AssistantOptions.Validate()...)
	errs = append(errs, o.CacheOptions.Validate()...)

	return aggregate(errs)
}

// Config builds a lectern.Config from the validated options.
func (o *ServerOptions) Config() (*lectern.Config, error) {
	return &lectern.Config{
		HTTPOptions:      o.HTTPOptions,
		LogOptions:       o.LogOptions,
		MilvusOptions:    o.MilvusOptions,
		RedisOptions:     o.RedisOptions,
		EmbeddingOptions: o.EmbeddingOptions,
		ChatOptions:      o.ChatOptions,
		AssistantOptions: o.AssistantOptions,
		CacheOptions:     o.CacheOptions,
	}, nil
}

// aggregate joins non-nil errors into one.
func aggregate(errs []error) error {
	var msgs []string
	for _, err := range errs {
		if err != nil {
			msgs = append(msgs, err.Error())
		}
	}
	if len(msgs) == 0 {
		return nil
	}
	return errors.New(strings.Join(msgs, "; "))
}
