package metaindex

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/tagdb/tagdb/pkg/dberr"
)

// SQLiteIndex is an Index backed by one SQLite file per collection, with a
// three-column metadata table and an intersection-based Find.
type SQLiteIndex struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS metadata (
	key   INTEGER NOT NULL,
	tag   TEXT NOT NULL,
	value TEXT NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS metadata_unique ON metadata(key, tag);
CREATE INDEX IF NOT EXISTS metadata_value ON metadata(value);
`

// OpenSQLiteIndex opens (creating if necessary) the SQLite file for one collection.
func OpenSQLiteIndex(path string) (*SQLiteIndex, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("metaindex: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite: one writer at a time per file

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("metaindex: create schema: %w", err)
	}
	return &SQLiteIndex{db: db}, nil
}

func (s *SQLiteIndex) Set(ctx context.Context, key uint32, tags map[string]string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return dberr.Wrap(dberr.Unknown, "begin transaction", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO metadata (key, tag, value) VALUES (?, ?, ?)
		ON CONFLICT(key, tag) DO UPDATE SET value = excluded.value
	`)
	if err != nil {
		return dberr.Wrap(dberr.Unknown, "prepare upsert", err)
	}
	defer stmt.Close()

	for tag, value := range tags {
		if _, err := stmt.ExecContext(ctx, key, tag, value); err != nil {
			return dberr.Wrap(dberr.Unknown, "upsert tag", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return dberr.Wrap(dberr.Unknown, "commit transaction", err)
	}
	return nil
}

func (s *SQLiteIndex) Get(ctx context.Context, key uint32) (map[string]string, bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT tag, value FROM metadata WHERE key = ?`, key)
	if err != nil {
		return nil, false, dberr.Wrap(dberr.Unknown, "query tags", err)
	}
	defer rows.Close()

	tags := make(map[string]string)
	for rows.Next() {
		var tag, value string
		if err := rows.Scan(&tag, &value); err != nil {
			return nil, false, dberr.Wrap(dberr.Unknown, "scan tag row", err)
		}
		tags[tag] = value
	}
	if err := rows.Err(); err != nil {
		return nil, false, dberr.Wrap(dberr.Unknown, "iterate tag rows", err)
	}
	if len(tags) == 0 {
		return nil, false, nil
	}
	return tags, true, nil
}

func (s *SQLiteIndex) Find(ctx context.Context, tags map[string]string) (<-chan FindResult, error) {
	query, args := buildFindQuery(tags)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dberr.Wrap(dberr.Unknown, "query find", err)
	}

	out := make(chan FindResult, 10)
	go func() {
		defer close(out)
		defer rows.Close()

		for rows.Next() {
			var key uint32
			if err := rows.Scan(&key); err != nil {
				sendResult(ctx, out, FindResult{Err: dberr.Wrap(dberr.Unknown, "scan find row", err)})
				return
			}
			if !sendResult(ctx, out, FindResult{Key: key}) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			sendResult(ctx, out, FindResult{Err: dberr.Wrap(dberr.Unknown, "iterate find rows", err)})
		}
	}()
	return out, nil
}

func sendResult(ctx context.Context, out chan<- FindResult, r FindResult) bool {
	select {
	case out <- r:
		return true
	case <-ctx.Done():
		return false
	}
}

// buildFindQuery renders one SELECT per tag pair, INTERSECTed together; an
// empty tag map becomes a plain distinct-key scan.
func buildFindQuery(tags map[string]string) (string, []any) {
	if len(tags) == 0 {
		return `SELECT DISTINCT key FROM metadata`, nil
	}

	var parts []string
	var args []any
	for tag, value := range tags {
		parts = append(parts, `SELECT key FROM metadata WHERE tag = ? AND value = ?`)
		args = append(args, tag, value)
	}
	return strings.Join(parts, " INTERSECT "), args
}

func (s *SQLiteIndex) Close() error {
	return s.db.Close()
}

var _ Index = (*SQLiteIndex)(nil)

// SQLiteFactory lazily opens and caches one SQLiteIndex per collection name,
// one file per collection under root.
type SQLiteFactory struct {
	root string

	mu      sync.Mutex
	indexes map[string]*SQLiteIndex
}

// NewSQLiteFactory creates a factory rooted at dir (created by the caller).
func NewSQLiteFactory(dir string) *SQLiteFactory {
	return &SQLiteFactory{root: dir, indexes: make(map[string]*SQLiteIndex)}
}

func (f *SQLiteFactory) Get(_ context.Context, collection string) (Index, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if idx, ok := f.indexes[collection]; ok {
		return idx, nil
	}

	path := filepath.Join(f.root, collection+".sqlite")
	idx, err := OpenSQLiteIndex(path)
	if err != nil {
		return nil, err
	}
	f.indexes[collection] = idx
	return idx, nil
}

func (f *SQLiteFactory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var firstErr error
	for _, idx := range f.indexes {
		if err := idx.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

var _ Factory = (*SQLiteFactory)(nil)
