// Package retrieval answers queries against the knowledge base: topic-based
// paper discovery with reranking, question answering over paper chunks, and
// dual-channel image search.
package retrieval

import (
	"github.com/Bella2013quq/Local-Multimodal-AI-Agent/internal/llm"
	"github.com/Bella2013quq/Local-Multimodal-AI-Agent/internal/vectorstore"
)

// Config holds query sizes.
type Config struct {
	CandidatePool int // chunks fetched for list_papers aggregation
	SearchTopK    int // chunks used as QA references
	ImageTopK     int // hits per image channel
}

// DefaultConfig returns the default query sizes.
func DefaultConfig() Config {
	return Config{
		CandidatePool: 20,
		SearchTopK:    3,
		ImageTopK:     3,
	}
}

// Deps are the collaborators an Engine queries.
type Deps struct {
	Store     vectorstore.Store
	Text      llm.TextEmbedder
	Visual    llm.VisualEmbedder
	Generator llm.Generator
}

// Engine runs retrieval operations. It is read-only with respect to the store.
type Engine struct {
	store  vectorstore.Store
	text   llm.TextEmbedder
	visual llm.VisualEmbedder
	gen    llm.Generator
	cfg    Config
}

// NewEngine creates an Engine. Zero sizes fall back to defaults.
func NewEngine(deps Deps, cfg Config) *Engine {
	d := DefaultConfig()
	if cfg.CandidatePool <= 0 {
		cfg.CandidatePool = d.CandidatePool
	}
	if cfg.SearchTopK <= 0 {
		cfg.SearchTopK = d.SearchTopK
	}
	if cfg.ImageTopK <= 0 {
		cfg.ImageTopK = d.ImageTopK
	}
	return &Engine{
		store:  deps.Store,
		text:   deps.Text,
		visual: deps.Visual,
		gen:    deps.Generator,
		cfg:    cfg,
	}
}
