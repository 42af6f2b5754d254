package ingest

import (
	"path/filepath"
	"strings"
	"time"
)

// Kind is the type of file being ingested.
type Kind string

const (
	KindPaper   Kind = "paper"
	KindImage   Kind = "image"
	KindUnknown Kind = ""
)

var imageExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".bmp": true, ".webp": true,
}

// KindOf classifies a path by extension.
func KindOf(path string) Kind {
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case ext == ".pdf":
		return KindPaper
	case imageExts[ext]:
		return KindImage
	default:
		return KindUnknown
	}
}

// Status is the stage a file reached. Persisted, Skipped and Aborted are
// terminal.
type Status int

const (
	StatusNew Status = iota
	StatusChunked
	StatusEmbedded
	StatusDescribed
	StatusClassified
	StatusRelocated
	StatusPersisted
	StatusSkipped
	StatusAborted
)

func (s Status) String() string {
	switch s {
	case StatusNew:
		return "new"
	case StatusChunked:
		return "chunked"
	case StatusEmbedded:
		return "embedded"
	case StatusDescribed:
		return "described"
	case StatusClassified:
		return "classified"
	case StatusRelocated:
		return "relocated"
	case StatusPersisted:
		return "persisted"
	case StatusSkipped:
		return "skipped"
	case StatusAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Result describes the outcome of ingesting one file.
type Result struct {
	Kind     Kind
	Source   string // file name, the identity used for dedup
	Path     string // on-disk location recorded in the store
	Category string
	Status   Status
	// Stage is the last non-terminal state reached; for aborted files it
	// tells where the pipeline stopped.
	Stage       Status
	Chunks      int
	Description string
	Err         error // set when Status is StatusAborted
	ClassifyErr error // degradation to Uncategorized
	RelocateErr error // degradation to the original path
	Duration    time.Duration
}

// Degraded reports whether the file was stored without a proper category or
// archive location.
func (r *Result) Degraded() bool {
	return r.ClassifyErr != nil || r.RelocateErr != nil
}

func (r *Result) advance(s Status) {
	r.Stage = s
	r.Status = s
}
