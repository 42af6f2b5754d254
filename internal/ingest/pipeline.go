// Package ingest turns PDFs and images into vector-store entries: it checks
// for duplicates, extracts or describes content, embeds it, classifies and
// archives the file, and persists the entries with the file's final path.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/Bella2013quq/Local-Multimodal-AI-Agent/internal/archive"
	"github.com/Bella2013quq/Local-Multimodal-AI-Agent/internal/classify"
	"github.com/Bella2013quq/Local-Multimodal-AI-Agent/internal/extract"
	"github.com/Bella2013quq/Local-Multimodal-AI-Agent/internal/llm"
	"github.com/Bella2013quq/Local-Multimodal-AI-Agent/internal/vectorstore"
)

// Deps are the collaborators a Pipeline drives.
type Deps struct {
	Store     vectorstore.Store
	Text      llm.TextEmbedder
	Visual    llm.VisualEmbedder
	Generator llm.Generator
	Extractor extract.Extractor
}

// Pipeline ingests papers and images. It is safe for concurrent use; work on
// the same file name is serialized.
type Pipeline struct {
	store      vectorstore.Store
	text       llm.TextEmbedder
	visual     llm.VisualEmbedder
	gen        llm.Generator
	extractor  extract.Extractor
	classifier *classify.Classifier
	opts       Options
	locks      *keyedLock
}

// New creates a Pipeline. Zero-valued options fall back to defaults.
func New(deps Deps, opts Options) *Pipeline {
	opts = opts.withDefaults()
	if deps.Extractor == nil {
		deps.Extractor = extract.PDF{}
	}
	return &Pipeline{
		store:      deps.Store,
		text:       deps.Text,
		visual:     deps.Visual,
		gen:        deps.Generator,
		extractor:  deps.Extractor,
		classifier: classify.New(deps.Generator, opts.ClassifyPrefix),
		opts:       opts,
		locks:      newKeyedLock(),
	}
}

// Options returns the effective options.
func (p *Pipeline) Options() Options {
	return p.opts
}

// Add dispatches path by extension.
func (p *Pipeline) Add(ctx context.Context, path string) *Result {
	switch KindOf(path) {
	case KindPaper:
		return p.AddPaper(ctx, path)
	case KindImage:
		return p.AddImage(ctx, path)
	default:
		return &Result{
			Source: filepath.Base(path),
			Path:   path,
			Status: StatusAborted,
			Err:    fmt.Errorf("%w: %s", ErrUnsupported, filepath.Ext(path)),
		}
	}
}

// PaperChunkID is the store identity of the index-th kept chunk of a paper.
func PaperChunkID(source string, page, index int) string {
	return fmt.Sprintf("%s_p%d_%d", source, page, index)
}

// ImageVisualID is the store identity of an image's visual entry.
func ImageVisualID(name string) string { return "img_clip_" + name }

// ImageDescriptionID is the store identity of an image's description entry.
func ImageDescriptionID(name string) string { return "img_desc_" + name }

// AddPaper ingests one PDF.
func (p *Pipeline) AddPaper(ctx context.Context, path string) *Result {
	start := time.Now()
	name := filepath.Base(path)
	res := &Result{Kind: KindPaper, Source: name, Path: path, Category: classify.Uncategorized}
	logger := log.With("kind", KindPaper, "file", name)
	defer func() { res.Duration = time.Since(start) }()

	unlock := p.locks.Lock(name)
	defer unlock()

	exists, err := p.store.ExistsWhere(ctx, vectorstore.PaperChunks, "source", name)
	if err != nil {
		return p.abort(logger, res, fmt.Errorf("dedup check: %w", err))
	}
	if exists {
		logger.Info("already indexed, skipping")
		res.Status = StatusSkipped
		return res
	}

	pages, err := p.extractor.Extract(ctx, path)
	if err != nil {
		return p.abort(logger, res, fmt.Errorf("%w: %w", ErrExtractionEmpty, err))
	}
	chunks := keepPages(pages, p.opts.MinPageChars)
	if len(chunks) == 0 {
		return p.abort(logger, res, ErrExtractionEmpty)
	}
	res.Chunks = len(chunks)
	res.advance(StatusChunked)

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := p.embedAll(ctx, texts)
	if err != nil {
		return p.abort(logger, res, fmt.Errorf("%w: %w", ErrEmbedding, err))
	}
	res.advance(StatusEmbedded)

	label, err := p.classifier.Paper(ctx, chunks[0].Text, p.opts.PaperLabels)
	p.settle(logger, res, path, p.opts.PapersRoot, label, err)

	entries := make([]vectorstore.Entry, len(chunks))
	for i, c := range chunks {
		entries[i] = vectorstore.Entry{
			ID:        PaperChunkID(name, c.Number, i),
			Embedding: vectors[i],
			Metadata: map[string]string{
				"source":   name,
				"page":     strconv.Itoa(c.Number),
				"path":     res.Path,
				"category": res.Category,
			},
			Document: c.Text,
		}
	}
	if err := p.store.Upsert(ctx, vectorstore.Write{Collection: vectorstore.PaperChunks, Entries: entries}); err != nil {
		p.rollback(logger, res, path)
		return p.abort(logger, res, fmt.Errorf("%w: %w", ErrPersist, err))
	}

	res.Status = StatusPersisted
	logger.Info("paper indexed", "chunks", res.Chunks, "category", res.Category, "path", res.Path)
	return res
}

// AddImage ingests one image as a visual entry plus a description entry.
func (p *Pipeline) AddImage(ctx context.Context, path string) *Result {
	start := time.Now()
	name := filepath.Base(path)
	res := &Result{Kind: KindImage, Source: name, Path: path, Category: classify.Uncategorized}
	logger := log.With("kind", KindImage, "file", name)
	defer func() { res.Duration = time.Since(start) }()

	unlock := p.locks.Lock(name)
	defer unlock()

	visualID, descID := ImageVisualID(name), ImageDescriptionID(name)
	hasVisual, err := p.store.Exists(ctx, vectorstore.ImageVisuals, visualID)
	if err != nil {
		return p.abort(logger, res, fmt.Errorf("dedup check: %w", err))
	}
	hasDesc, err := p.store.Exists(ctx, vectorstore.ImageDescriptions, descID)
	if err != nil {
		return p.abort(logger, res, fmt.Errorf("dedup check: %w", err))
	}
	if hasVisual && hasDesc {
		logger.Info("already indexed, skipping")
		res.Status = StatusSkipped
		return res
	}

	visualVec, err := p.visual.EmbedImage(ctx, path)
	if err != nil {
		return p.abort(logger, res, fmt.Errorf("%w: visual: %w", ErrEmbedding, err))
	}
	res.advance(StatusEmbedded)

	desc, err := p.gen.DescribeImage(ctx, path)
	if err == nil && strings.TrimSpace(desc) == "" {
		err = llm.ErrEmptyResponse
	}
	if err != nil {
		return p.abort(logger, res, fmt.Errorf("%w: %w", ErrDescription, err))
	}
	desc = strings.TrimSpace(desc)
	res.Description = desc
	res.advance(StatusDescribed)

	label, err := p.classifier.Image(ctx, desc, p.opts.ImageLabels)
	p.settle(logger, res, path, p.opts.ImagesRoot, label, err)

	descVec, err := p.text.EmbedText(ctx, desc)
	if err != nil {
		p.rollback(logger, res, path)
		return p.abort(logger, res, fmt.Errorf("%w: description: %w", ErrEmbedding, err))
	}

	meta := func(extra map[string]string) map[string]string {
		m := map[string]string{"source": name, "path": res.Path, "category": res.Category}
		for k, v := range extra {
			m[k] = v
		}
		return m
	}
	err = p.store.Upsert(ctx,
		vectorstore.Write{Collection: vectorstore.ImageVisuals, Entries: []vectorstore.Entry{{
			ID: visualID, Embedding: visualVec, Metadata: meta(nil), Document: name,
		}}},
		vectorstore.Write{Collection: vectorstore.ImageDescriptions, Entries: []vectorstore.Entry{{
			ID: descID, Embedding: descVec, Metadata: meta(map[string]string{"desc": desc}), Document: desc,
		}}},
	)
	if err != nil {
		p.rollback(logger, res, path)
		return p.abort(logger, res, fmt.Errorf("%w: %w", ErrPersist, err))
	}

	res.Status = StatusPersisted
	logger.Info("image indexed", "category", res.Category, "path", res.Path)
	return res
}

// settle applies a classification outcome: on success the file is moved into
// its category directory, on any failure it stays put as Uncategorized.
func (p *Pipeline) settle(logger *log.Logger, res *Result, path, root, label string, classifyErr error) {
	if classifyErr != nil {
		res.ClassifyErr = fmt.Errorf("%w: %w", ErrClassification, classifyErr)
		logger.Warn("classification failed, keeping file in place", "err", classifyErr)
		return
	}
	res.advance(StatusClassified)

	if root == "" {
		res.RelocateErr = fmt.Errorf("%w: no archive root configured", ErrRelocation)
		logger.Warn("no archive root, keeping file in place")
		return
	}
	moved, err := archive.Relocate(path, root, label)
	if err != nil {
		res.RelocateErr = fmt.Errorf("%w: %w", ErrRelocation, err)
		logger.Warn("relocation failed, keeping file in place", "err", err)
		return
	}
	res.Path = moved
	res.Category = archive.SanitizeCategory(label)
	res.advance(StatusRelocated)
	if moved != path {
		logger.Info("archived", "category", res.Category, "path", moved)
	}
}

// rollback returns a relocated file to its original path after a failure
// that leaves it unindexed.
func (p *Pipeline) rollback(logger *log.Logger, res *Result, original string) {
	if res.Path == original {
		return
	}
	if err := archive.Restore(res.Path, original); err != nil {
		logger.Error("failed to move file back after error", "from", res.Path, "to", original, "err", err)
		return
	}
	res.Path = original
	res.Category = classify.Uncategorized
}

func (p *Pipeline) abort(logger *log.Logger, res *Result, err error) *Result {
	res.Status = StatusAborted
	res.Err = err
	if errors.Is(err, context.Canceled) {
		logger.Warn("ingestion cancelled", "stage", res.Stage)
	} else {
		logger.Error("ingestion aborted", "stage", res.Stage, "err", err)
	}
	return res
}

// embedAll embeds texts with bounded parallelism, keeping input order.
func (p *Pipeline) embedAll(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.EmbedWorkers)
	for i, text := range texts {
		g.Go(func() error {
			vec, err := p.text.EmbedText(gctx, text)
			if err != nil {
				return fmt.Errorf("chunk %d: %w", i, err)
			}
			if len(vec) == 0 {
				return fmt.Errorf("chunk %d: %w", i, llm.ErrEmptyEmbedding)
			}
			vectors[i] = vec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}

// keepPages drops pages shorter than minChars characters.
func keepPages(pages []extract.Page, minChars int) []extract.Page {
	kept := make([]extract.Page, 0, len(pages))
	for _, pg := range pages {
		if utf8.RuneCountInString(pg.Text) >= minChars {
			kept = append(kept, pg)
		}
	}
	return kept
}
