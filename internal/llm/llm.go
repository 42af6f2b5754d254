// Package llm declares the model collaborators used by ingestion and
// retrieval. Concrete adapters live in the gemini, clip and cache
// subpackages.
package llm

import (
	"context"
	"errors"
)

// ErrEmptyEmbedding is returned when a model answers with a zero-length vector.
var ErrEmptyEmbedding = errors.New("llm: empty embedding")

// ErrEmptyResponse is returned when a generation call produces no text.
var ErrEmptyResponse = errors.New("llm: empty response")

// TextEmbedder maps text into the semantic embedding space shared by paper
// chunks and image descriptions.
type TextEmbedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// VisualEmbedder maps images and short texts into one joint visual space.
type VisualEmbedder interface {
	EmbedImage(ctx context.Context, path string) ([]float32, error)
	EmbedTextForVisual(ctx context.Context, text string) ([]float32, error)
}

// Generator produces text, optionally grounded on an image file.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	GenerateWithImage(ctx context.Context, prompt, imagePath string) (string, error)
	DescribeImage(ctx context.Context, imagePath string) (string, error)
}

// DescribePrompt is sent along with an image to obtain its description.
const DescribePrompt = "Describe this image in detail: the main subject, colors, actions, " +
	"any visible text (OCR) and the overall atmosphere. Do not use paragraphs; " +
	"answer with a single descriptive paragraph."
