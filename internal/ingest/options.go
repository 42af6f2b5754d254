package ingest

import "github.com/Bella2013quq/Local-Multimodal-AI-Agent/internal/classify"

// Default label sets.
var (
	DefaultPaperLabels = []string{"Reinforcement_Learning", "Spatio-Temporal_Mining", "Multimodal_Learning"}
	DefaultImageLabels = []string{"Photos", "Screenshots", "Diagrams", "Documents"}
)

const (
	DefaultMinPageChars = 50
	DefaultEmbedWorkers = 4
)

// Options configures a Pipeline. Archive roots and label sets are explicit so
// nothing in the pipeline reads global state.
type Options struct {
	PapersRoot     string
	ImagesRoot     string
	PaperLabels    []string
	ImageLabels    []string
	MinPageChars   int
	ClassifyPrefix int
	EmbedWorkers   int
}

// DefaultOptions returns options with default labels and limits. Archive
// roots must still be set by the caller.
func DefaultOptions() Options {
	return Options{
		PaperLabels:    append([]string(nil), DefaultPaperLabels...),
		ImageLabels:    append([]string(nil), DefaultImageLabels...),
		MinPageChars:   DefaultMinPageChars,
		ClassifyPrefix: classify.DefaultPrefix,
		EmbedWorkers:   DefaultEmbedWorkers,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if len(o.PaperLabels) == 0 {
		o.PaperLabels = d.PaperLabels
	}
	if len(o.ImageLabels) == 0 {
		o.ImageLabels = d.ImageLabels
	}
	if o.MinPageChars <= 0 {
		o.MinPageChars = d.MinPageChars
	}
	if o.ClassifyPrefix <= 0 {
		o.ClassifyPrefix = d.ClassifyPrefix
	}
	if o.EmbedWorkers <= 0 {
		o.EmbedWorkers = d.EmbedWorkers
	}
	return o
}
