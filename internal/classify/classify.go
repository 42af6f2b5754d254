// Package classify asks the generation model to pick one label for a paper or
// an image and maps the answer back onto the configured label set.
package classify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/Bella2013quq/Local-Multimodal-AI-Agent/internal/llm"
)

// Uncategorized is the category of anything that could not be classified.
const Uncategorized = "Uncategorized"

// DefaultPrefix is how many characters of the input are shown to the model.
const DefaultPrefix = 1000

var (
	ErrNoLabels     = errors.New("classify: empty label set")
	ErrEmptyAnswer  = errors.New("classify: empty answer")
	ErrUnknownLabel = errors.New("classify: answer is not a known label")
)

// Classifier picks labels with a Generator.
type Classifier struct {
	gen    llm.Generator
	prefix int
}

// New creates a Classifier. prefix <= 0 selects DefaultPrefix.
func New(gen llm.Generator, prefix int) *Classifier {
	if prefix <= 0 {
		prefix = DefaultPrefix
	}
	return &Classifier{gen: gen, prefix: prefix}
}

// Paper classifies a paper by the text of its first kept page.
func (c *Classifier) Paper(ctx context.Context, text string, labels []string) (string, error) {
	return c.classify(ctx, PaperPrompt(labels, truncate(text, c.prefix)), labels)
}

// Image classifies an image by its generated description.
func (c *Classifier) Image(ctx context.Context, description string, labels []string) (string, error) {
	return c.classify(ctx, ImagePrompt(labels, truncate(description, c.prefix)), labels)
}

func (c *Classifier) classify(ctx context.Context, prompt string, labels []string) (string, error) {
	if len(labels) == 0 {
		return "", ErrNoLabels
	}
	answer, err := c.gen.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("classify: %w", err)
	}
	return Match(Sanitize(answer), labels)
}

// PaperPrompt builds the classification prompt for a paper abstract.
func PaperPrompt(labels []string, abstract string) string {
	return fmt.Sprintf("Read the following paper abstract and choose the single most suitable "+
		"category from this list: [%s]. Return only the category name, without punctuation.\n\n"+
		"Abstract: %s", strings.Join(labels, ","), abstract)
}

// ImagePrompt builds the classification prompt for an image description.
func ImagePrompt(labels []string, description string) string {
	return fmt.Sprintf("Read the following image description and choose the single most suitable "+
		"category from this list: [%s]. Return only the category name, without punctuation.\n\n"+
		"Description: %s", strings.Join(labels, ","), description)
}

// Sanitize strips quotes and periods from a model answer and trims it.
func Sanitize(answer string) string {
	return strings.TrimSpace(strings.NewReplacer("'", "", "\"", "", ".", "").Replace(answer))
}

// Match returns the canonical label the answer names. Comparison ignores case
// and any non-alphanumeric characters, so "spatio temporal mining" matches
// "Spatio-Temporal_Mining".
func Match(answer string, labels []string) (string, error) {
	if answer == "" {
		return "", ErrEmptyAnswer
	}
	for _, l := range labels {
		if l == answer {
			return l, nil
		}
	}
	key := normalize(answer)
	for _, l := range labels {
		if normalize(l) == key {
			return l, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownLabel, answer)
}

// ParseLabels splits a comma-separated label list, dropping blanks and
// duplicates while keeping order.
func ParseLabels(csv string) []string {
	seen := make(map[string]bool)
	var labels []string
	for _, part := range strings.Split(csv, ",") {
		l := strings.TrimSpace(part)
		if l == "" || seen[l] {
			continue
		}
		seen[l] = true
		labels = append(labels, l)
	}
	return labels
}

func normalize(s string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
