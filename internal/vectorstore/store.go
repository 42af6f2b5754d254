// Package vectorstore holds the three embedding collections of the knowledge
// base: paper chunks, image descriptions and image visual vectors.
package vectorstore

import "context"

// Collection names. Each collection has its own embedding space and is never
// queried together with another one.
const (
	PaperChunks       = "paper_db"
	ImageDescriptions = "image_desc_db"
	ImageVisuals      = "visual_db"
)

// Collections returns every collection managed by the store.
func Collections() []string {
	return []string{PaperChunks, ImageDescriptions, ImageVisuals}
}

// Entry is a single item written to a collection.
type Entry struct {
	ID        string
	Embedding []float32
	Metadata  map[string]string
	Document  string
}

// Write groups entries destined for one collection.
type Write struct {
	Collection string
	Entries    []Entry
}

// Match is a query hit. Lower Distance means more similar.
type Match struct {
	ID       string
	Metadata map[string]string
	Document string
	Distance float32
}

// Store persists entries and answers similarity queries per collection.
type Store interface {
	// Exists reports whether id is present in collection.
	Exists(ctx context.Context, collection, id string) (bool, error)

	// ExistsWhere reports whether any entry of collection has metadata
	// field equal to value.
	ExistsWhere(ctx context.Context, collection, field, value string) (bool, error)

	// Upsert inserts or fully replaces entries. All writes of one call are
	// applied atomically, even when they target different collections.
	Upsert(ctx context.Context, writes ...Write) error

	// Query returns up to topK entries ordered by ascending cosine distance.
	Query(ctx context.Context, collection string, vector []float32, topK int) ([]Match, error)

	// Count returns the number of entries in collection.
	Count(ctx context.Context, collection string) (int, error)

	Close() error
}
