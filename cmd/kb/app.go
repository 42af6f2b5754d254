package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/Bella2013quq/Local-Multimodal-AI-Agent/internal/config"
	"github.com/Bella2013quq/Local-Multimodal-AI-Agent/internal/datadir"
	"github.com/Bella2013quq/Local-Multimodal-AI-Agent/internal/ingest"
	"github.com/Bella2013quq/Local-Multimodal-AI-Agent/internal/llm"
	"github.com/Bella2013quq/Local-Multimodal-AI-Agent/internal/llm/cache"
	"github.com/Bella2013quq/Local-Multimodal-AI-Agent/internal/llm/clip"
	"github.com/Bella2013quq/Local-Multimodal-AI-Agent/internal/llm/gemini"
	"github.com/Bella2013quq/Local-Multimodal-AI-Agent/internal/retrieval"
	"github.com/Bella2013quq/Local-Multimodal-AI-Agent/internal/vectorstore"
)

// loadConfig resolves the data directory, loads .env files and the config
// file, and fills unset paths from the data directory.
func loadConfig(opts *rootOptions) (*config.Config, error) {
	dd, err := datadir.New("")
	if err != nil {
		return nil, fmt.Errorf("resolve data directory: %w", err)
	}
	// .env first so ${ENV_VAR} placeholders in the config can see it.
	if err := datadir.LoadEnv(dd.Root()); err != nil {
		log.Warn("failed to load .env files", "err", err)
	}

	path := opts.cfgFile
	if path == "" {
		path = dd.ConfigPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.DataDir != "" {
		if dd, err = datadir.New(cfg.DataDir); err != nil {
			return nil, fmt.Errorf("resolve data directory: %w", err)
		}
	}
	if err := dd.EnsureDirs(); err != nil {
		return nil, err
	}
	cfg.ApplyDataDir(dd)

	if !opts.verbose && cfg.Log.Level != "" {
		if lvl, err := log.ParseLevel(cfg.Log.Level); err == nil {
			log.SetLevel(lvl)
		}
	}
	return cfg, nil
}

// app holds the collaborators shared by the commands.
type app struct {
	cfg     *config.Config
	store   vectorstore.Store
	text    llm.TextEmbedder
	visual  llm.VisualEmbedder
	gen     llm.Generator
	closers []func() error
}

func openStore(cfg *config.Config) (*vectorstore.SQLite, error) {
	store, err := vectorstore.NewSQLite(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("open vector store: %w", err)
	}
	log.Debug("vector store opened", "path", store.Path())
	return store, nil
}

// newApp opens the store and connects the model clients.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	store, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, store: store}
	a.closers = append(a.closers, store.Close)

	gem, err := gemini.New(ctx, gemini.Config{
		APIKey:            cfg.Gemini.APIKey,
		ChatModel:         cfg.Gemini.ChatModel,
		EmbedModel:        cfg.Gemini.EmbedModel,
		RequestsPerMinute: cfg.Gemini.RequestsPerMinute,
		Timeout:           cfg.Gemini.Timeout,
	})
	if err != nil {
		a.Close()
		if errors.Is(err, gemini.ErrMissingAPIKey) {
			return nil, fmt.Errorf("%w: set GEMINI_API_KEY or gemini.api_key in the config", err)
		}
		return nil, err
	}
	a.closers = append(a.closers, gem.Close)
	a.gen = gem
	a.text = gem

	if cfg.Cache.Enabled {
		rdb, err := cache.Dial(ctx, cfg.Cache.RedisAddr)
		if err != nil {
			log.Warn("embedding cache unavailable, continuing without it", "addr", cfg.Cache.RedisAddr, "err", err)
		} else {
			a.closers = append(a.closers, rdb.Close)
			a.text = cache.New(gem, rdb, gem.EmbedModel(), cfg.Cache.TTL)
		}
	}

	a.visual = clip.New(cfg.Visual.Endpoint, cfg.Visual.Timeout, cfg.Visual.MaxTextLen)
	return a, nil
}

// pipeline builds an ingestion pipeline. Non-empty label sets override the
// configured topics.
func (a *app) pipeline(paperLabels, imageLabels []string) *ingest.Pipeline {
	if len(paperLabels) == 0 {
		paperLabels = a.cfg.Topics.Papers
	}
	if len(imageLabels) == 0 {
		imageLabels = a.cfg.Topics.Images
	}
	return ingest.New(ingest.Deps{
		Store:     a.store,
		Text:      a.text,
		Visual:    a.visual,
		Generator: a.gen,
	}, ingest.Options{
		PapersRoot:     a.cfg.Archive.PapersRoot,
		ImagesRoot:     a.cfg.Archive.ImagesRoot,
		PaperLabels:    paperLabels,
		ImageLabels:    imageLabels,
		MinPageChars:   a.cfg.Ingest.MinPageChars,
		ClassifyPrefix: a.cfg.Ingest.ClassifyPrefix,
		EmbedWorkers:   a.cfg.Ingest.EmbedWorkers,
	})
}

func (a *app) engine() *retrieval.Engine {
	return retrieval.NewEngine(retrieval.Deps{
		Store:     a.store,
		Text:      a.text,
		Visual:    a.visual,
		Generator: a.gen,
	}, retrieval.Config{
		CandidatePool: a.cfg.Retrieval.CandidatePool,
		SearchTopK:    a.cfg.Retrieval.SearchTopK,
		ImageTopK:     a.cfg.Retrieval.ImageTopK,
	})
}

// Close releases everything newApp opened, last opened first.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Debug("close failed", "err", err)
		}
	}
}

// setup loads the config and builds the app in one step.
func setup(ctx context.Context, opts *rootOptions) (*app, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	return newApp(ctx, cfg)
}
