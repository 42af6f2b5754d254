package ingest

import "errors"

// Per-file failures. Skipping an already indexed file is a Status, not an error.
var (
	ErrExtractionEmpty = errors.New("ingest: no extractable text")
	ErrEmbedding       = errors.New("ingest: embedding failed")
	ErrDescription     = errors.New("ingest: image description failed")
	ErrClassification  = errors.New("ingest: classification failed")
	ErrRelocation      = errors.New("ingest: relocation failed")
	ErrPersist         = errors.New("ingest: persisting entries failed")
	ErrNotADirectory   = errors.New("ingest: not a directory")
	ErrUnsupported     = errors.New("ingest: unsupported file type")
)
