// Package assistant provides configuration options for the course
// assistant: chunking, retrieval, session and storage settings.
package assistant

import (
	"fmt"

	"github.com/kart-io/lectern/pkg/options"
	"github.com/spf13/pflag"
)

var _ options.IOptions = (*Options)(nil)

// Options configures document processing, retrieval and sessions.
type Options struct {
	// DocsDir is loaded into the index at startup when non-empty.
	DocsDir string `json:"docs-dir" mapstructure:"docs-dir"`

	// ChunkSize is the chunk size in Unicode characters.
	ChunkSize int `json:"chunk-size" mapstructure:"chunk-size"`

	// ChunkOverlap is the overlap between consecutive chunks.
	ChunkOverlap int `json:"chunk-overlap" mapstructure:"chunk-overlap"`

	// MaxResults is the number of chunks returned per search.
	MaxResults int `json:"max-results" mapstructure:"max-results"`

	// MaxHistory is the number of retained exchanges per session.
	MaxHistory int `json:"max-history" mapstructure:"max-history"`

	// StoreDriver selects the vector index backend (milvus, memory).
	StoreDriver string `json:"store-driver" mapstructure:"store-driver"`

	// SessionBackend selects the session store (memory, redis).
	SessionBackend string `json:"session-backend" mapstructure:"session-backend"`

	// CatalogCollection is the course metadata collection name.
	CatalogCollection string `json:"catalog-collection" mapstructure:"catalog-collection"`

	// ContentCollection is the chunk collection name.
	ContentCollection string `json:"content-collection" mapstructure:"content-collection"`

	// EmbeddingDim is the embedding vector dimension.
	EmbeddingDim int `json:"embedding-dim" mapstructure:"embedding-dim"`
}

// NewOptions creates assistant options with defaults.
func NewOptions() *Options {
	return &Options{
		ChunkSize:         1000,
		ChunkOverlap:      200,
		MaxResults:        5,
		MaxHistory:        10,
		StoreDriver:       "milvus",
		SessionBackend:    "memory",
		CatalogCollection: "course_catalog",
		ContentCollection: "course_content",
		EmbeddingDim:      768,
	}
}

// AddFlags adds assistant flags to the flagset.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.DocsDir, options.Join(prefixes...)+"assistant.docs-dir", o.DocsDir, "Directory of course documents loaded at startup.")
	fs.IntVar(&o.ChunkSize, options.Join(prefixes...)+"assistant.chunk-size", o.ChunkSize, "Chunk size in characters.")
	fs.IntVar(&o.ChunkOverlap, options.Join(prefixes...)+"assistant.chunk-overlap", o.ChunkOverlap, "Overlap between consecutive chunks.")
	fs.IntVar(&o.MaxResults, options.Join(prefixes...)+"assistant.max-results", o.MaxResults, "Maximum search results per query.")
	fs.IntVar(&o.MaxHistory, options.Join(prefixes...)+"assistant.max-history", o.MaxHistory, "Maximum retained exchanges per session.")
	fs.StringVar(&o.StoreDriver, options.Join(prefixes...)+"assistant.store-driver", o.StoreDriver, "Vector index backend (milvus, memory).")
	fs.StringVar(&o.SessionBackend, options.Join(prefixes...)+"assistant.session-backend", o.SessionBackend, "Session store backend (memory, redis).")
	fs.StringVar(&o.CatalogCollection, options.Join(prefixes...)+"assistant.catalog-collection", o.CatalogCollection, "Course catalog collection name.")
	fs.StringVar(&o.ContentCollection, options.Join(prefixes...)+"assistant.content-collection", o.ContentCollection, "Course content collection name.")
	fs.IntVar(&o.EmbeddingDim, options.Join(prefixes...)+"assistant.embedding-dim", o.EmbeddingDim, "Embedding vector dimension.")
}

// Validate validates the assistant options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("chunk-size must be positive"))
	}
	if o.ChunkOverlap < 0 {
		errs = append(errs, fmt.Errorf("chunk-overlap must not be negative"))
	}
	if o.ChunkOverlap >= o.ChunkSize {
		errs = append(errs, fmt.Errorf("chunk-overlap must be smaller than chunk-size"))
	}
	if o.MaxResults <= 0 {
		errs = append(errs, fmt.Errorf("max-results must be positive"))
	}
	if o.MaxHistory < 0 {
		errs = append(errs, fmt.Errorf("max-history must not be negative"))
	}
	switch o.StoreDriver {
	case "milvus", "memory":
	default:
		errs = append(errs, fmt.Errorf("unknown store-driver %q", o.StoreDriver))
	}
	switch o.SessionBackend {
	case "memory", "redis":
	default:
		errs = append(errs, fmt.Errorf("unknown session-backend %q", o.SessionBackend))
	}
	if o.CatalogCollection == "" || o.ContentCollection == "" {
		errs = append(errs, fmt.Errorf("collection names must not be empty"))
	}
	if o.EmbeddingDim <= 0 {
		errs = append(errs, fmt.Errorf("embedding-dim must be positive"))
	}
	return errs
}
