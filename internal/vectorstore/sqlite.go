package vectorstore

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// SQLite is the persistent store. All collections share one table keyed by
// (collection, id); seq preserves first insertion order for tie-breaking.
type SQLite struct {
	db   *sql.DB
	path string
}

var _ Store = (*SQLite)(nil)

// NewSQLite opens or creates the store at path.
func NewSQLite(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, wrapError("open", fmt.Errorf("%w: %w", ErrUnavailable, err))
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, wrapError("open", fmt.Errorf("%w: %w", ErrUnavailable, err))
	}
	// One writer at a time; concurrent ingests queue here instead of
	// failing with SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	s := &SQLite{db: db, path: path}
	if err := s.init(); err != nil {
		db.Close()
		return nil, wrapError("open", fmt.Errorf("%w: %w", ErrUnavailable, err))
	}

	return s, nil
}

func (s *SQLite) init() error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, p := range pragmas {
		if _, err := s.db.Exec(p); err != nil {
			return fmt.Errorf("pragma failed: %w", err)
		}
	}

	schema := `
		CREATE TABLE IF NOT EXISTS entries (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			collection TEXT NOT NULL,
			id TEXT NOT NULL,
			dim INTEGER NOT NULL,
			embedding BLOB NOT NULL,
			metadata TEXT,
			document TEXT,
			UNIQUE (collection, id)
		);
		CREATE INDEX IF NOT EXISTS idx_entries_collection ON entries (collection, seq);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("schema creation failed: %w", err)
	}

	return nil
}

// Path returns the database file location.
func (s *SQLite) Path() string {
	return s.path
}

// Exists reports whether id is stored in collection.
func (s *SQLite) Exists(ctx context.Context, collection, id string) (bool, error) {
	if err := checkCollection(collection); err != nil {
		return false, wrapError("exists", err)
	}
	var one int
	err := s.db.QueryRowContext(ctx,
		"SELECT 1 FROM entries WHERE collection = ? AND id = ?", collection, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, wrapError("exists", err)
	}
	return true, nil
}

// ExistsWhere reports whether an entry's metadata field equals value.
func (s *SQLite) ExistsWhere(ctx context.Context, collection, field, value string) (bool, error) {
	if err := checkCollection(collection); err != nil {
		return false, wrapError("exists_where", err)
	}
	if field == "" || strings.ContainsAny(field, `"\`) {
		return false, wrapError("exists_where", fmt.Errorf("%w: %q", ErrBadField, field))
	}
	var one int
	err := s.db.QueryRowContext(ctx,
		"SELECT 1 FROM entries WHERE collection = ? AND json_extract(metadata, ?) = ? LIMIT 1",
		collection, `$."`+field+`"`, value).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, wrapError("exists_where", err)
	}
	return true, nil
}

// Upsert writes every entry of every write inside a single transaction.
// Replacing an entry keeps its original position in storage order.
func (s *SQLite) Upsert(ctx context.Context, writes ...Write) error {
	dims := make([]int, len(writes))
	for i, w := range writes {
		dim, err := validateWrite(w)
		if err != nil {
			return wrapError("upsert", err)
		}
		dims[i] = dim
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapError("upsert", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO entries (collection, id, dim, embedding, metadata, document)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (collection, id) DO UPDATE SET
			dim = excluded.dim,
			embedding = excluded.embedding,
			metadata = excluded.metadata,
			document = excluded.document`)
	if err != nil {
		return wrapError("upsert", err)
	}
	defer stmt.Close()

	for i, w := range writes {
		if len(w.Entries) == 0 {
			continue
		}
		if err := checkDim(ctx, tx, w, dims[i]); err != nil {
			return wrapError("upsert", err)
		}
		for _, e := range w.Entries {
			var metaJSON []byte
			if e.Metadata != nil {
				metaJSON, err = json.Marshal(e.Metadata)
				if err != nil {
					return wrapError("upsert", err)
				}
			}
			if _, err := stmt.ExecContext(ctx, w.Collection, e.ID, len(e.Embedding),
				encodeFloat32Slice(e.Embedding), metaJSON, e.Document); err != nil {
				return wrapError("upsert", err)
			}
		}
	}

	return wrapError("upsert", tx.Commit())
}

// checkDim rejects a write whose vectors disagree with entries already in the
// collection that the write does not replace.
func checkDim(ctx context.Context, tx *sql.Tx, w Write, dim int) error {
	rows, err := tx.QueryContext(ctx,
		"SELECT id FROM entries WHERE collection = ? AND dim <> ?", w.Collection, dim)
	if err != nil {
		return err
	}
	defer rows.Close()

	replaced := make(map[string]bool, len(w.Entries))
	for _, e := range w.Entries {
		replaced[e.ID] = true
	}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return err
		}
		if !replaced[id] {
			return fmt.Errorf("%w: collection %s holds %s with a different dimension than %d",
				ErrDimMismatch, w.Collection, id, dim)
		}
	}
	return rows.Err()
}

// Query scans the collection and ranks every entry by cosine distance.
func (s *SQLite) Query(ctx context.Context, collection string, vector []float32, topK int) ([]Match, error) {
	if err := checkCollection(collection); err != nil {
		return nil, wrapError("query", err)
	}
	if len(vector) == 0 {
		return nil, wrapError("query", ErrEmptyVector)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, embedding, metadata, document FROM entries WHERE collection = ? ORDER BY seq",
		collection)
	if err != nil {
		return nil, wrapError("query", err)
	}
	defer rows.Close()

	var all []stored
	for rows.Next() {
		var r stored
		var embBytes []byte
		var metaJSON, doc sql.NullString
		if err := rows.Scan(&r.id, &embBytes, &metaJSON, &doc); err != nil {
			return nil, wrapError("query", err)
		}
		r.vector = decodeFloat32Slice(embBytes)
		if len(r.vector) != len(vector) {
			return nil, wrapError("query", fmt.Errorf("%w: query has %d, %s has %d",
				ErrDimMismatch, len(vector), r.id, len(r.vector)))
		}
		if metaJSON.Valid && metaJSON.String != "" {
			if err := json.Unmarshal([]byte(metaJSON.String), &r.metadata); err != nil {
				return nil, wrapError("query", err)
			}
		}
		r.document = doc.String
		all = append(all, r)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapError("query", err)
	}

	return rank(all, vector, topK), nil
}

// Count returns how many entries collection holds.
func (s *SQLite) Count(ctx context.Context, collection string) (int, error) {
	if err := checkCollection(collection); err != nil {
		return 0, wrapError("count", err)
	}
	var n int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM entries WHERE collection = ?", collection).Scan(&n); err != nil {
		return 0, wrapError("count", err)
	}
	return n, nil
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// encodeFloat32Slice converts []float32 to little-endian bytes.
func encodeFloat32Slice(f []float32) []byte {
	buf := make([]byte, len(f)*4)
	for i, v := range f {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// decodeFloat32Slice converts little-endian bytes to []float32.
func decodeFloat32Slice(b []byte) []float32 {
	f := make([]float32, len(b)/4)
	for i := range f {
		f[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return f
}
