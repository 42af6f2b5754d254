package retrieval

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/Bella2013quq/Local-Multimodal-AI-Agent/internal/vectorstore"
)

// ErrImageNotFound is returned when no image matches a description or the
// matched file no longer exists on disk.
var ErrImageNotFound = errors.New("retrieval: image not found")

// Channel names an image search modality. Channels are never merged.
type Channel string

const (
	ChannelSemantic Channel = "semantic"
	ChannelVisual   Channel = "visual"
)

// ImageHit is one image returned by a channel.
type ImageHit struct {
	Filename    string
	Path        string
	Category    string
	Description string // semantic channel only
	Distance    float32
}

// ChannelResult holds one channel's hits or its failure.
type ChannelResult struct {
	Channel Channel
	Hits    []ImageHit
	Err     error
}

// ImageSearch carries both channels of an image query side by side.
type ImageSearch struct {
	Query    string
	Semantic ChannelResult
	Visual   ChannelResult
}

// SearchImages queries the description and visual collections independently.
// A failure in one channel is reported on that channel only.
func (e *Engine) SearchImages(ctx context.Context, query string) *ImageSearch {
	return &ImageSearch{
		Query:    query,
		Semantic: e.semantic(ctx, query, e.cfg.ImageTopK),
		Visual:   e.visualChannel(ctx, query, e.cfg.ImageTopK),
	}
}

func (e *Engine) semantic(ctx context.Context, query string, topK int) ChannelResult {
	res := ChannelResult{Channel: ChannelSemantic}
	vec, err := e.text.EmbedText(ctx, query)
	if err != nil {
		res.Err = fmt.Errorf("semantic channel: %w", err)
		return res
	}
	matches, err := e.store.Query(ctx, vectorstore.ImageDescriptions, vec, topK)
	if err != nil {
		res.Err = fmt.Errorf("semantic channel: %w", err)
		return res
	}
	res.Hits = toHits(matches)
	return res
}

func (e *Engine) visualChannel(ctx context.Context, query string, topK int) ChannelResult {
	res := ChannelResult{Channel: ChannelVisual}
	vec, err := e.visual.EmbedTextForVisual(ctx, query)
	if err != nil {
		res.Err = fmt.Errorf("visual channel: %w", err)
		return res
	}
	matches, err := e.store.Query(ctx, vectorstore.ImageVisuals, vec, topK)
	if err != nil {
		res.Err = fmt.Errorf("visual channel: %w", err)
		return res
	}
	res.Hits = toHits(matches)
	return res
}

func toHits(matches []vectorstore.Match) []ImageHit {
	hits := make([]ImageHit, 0, len(matches))
	for _, m := range matches {
		name := m.Metadata["source"]
		if name == "" {
			name = filepath.Base(m.Metadata["path"])
		}
		hits = append(hits, ImageHit{
			Filename:    name,
			Path:        m.Metadata["path"],
			Category:    m.Metadata["category"],
			Description: m.Metadata["desc"],
			Distance:    m.Distance,
		})
	}
	return hits
}

// ResolveImage picks the single best image for a description. The semantic
// channel wins; the visual channel is consulted only when the semantic one
// yields nothing.
func (e *Engine) ResolveImage(ctx context.Context, description string) (ImageHit, Channel, error) {
	sem := e.semantic(ctx, description, 1)
	if sem.Err != nil {
		log.Warn("semantic lookup failed, trying visual channel", "err", sem.Err)
	}
	if len(sem.Hits) > 0 {
		return sem.Hits[0], ChannelSemantic, nil
	}

	vis := e.visualChannel(ctx, description, 1)
	if vis.Err != nil {
		log.Warn("visual lookup failed", "err", vis.Err)
	}
	if len(vis.Hits) > 0 {
		return vis.Hits[0], ChannelVisual, nil
	}
	return ImageHit{}, "", fmt.Errorf("%w: %q", ErrImageNotFound, description)
}

// ImageAnswer is the outcome of a question about a located image.
type ImageAnswer struct {
	Image   ImageHit
	Channel Channel
	Text    string
}

// AskImage locates the image described by description and asks question
// about it.
func (e *Engine) AskImage(ctx context.Context, description, question string) (*ImageAnswer, error) {
	hit, channel, err := e.ResolveImage(ctx, description)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(hit.Path); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrImageNotFound, hit.Path, err)
	}

	text, err := e.gen.GenerateWithImage(ctx, question, hit.Path)
	if err != nil {
		return nil, fmt.Errorf("ask image: %w", err)
	}
	return &ImageAnswer{Image: hit, Channel: channel, Text: text}, nil
}
