// Package store persists the repo graph — repos, files, symbols, modules,
// edges — plus a full-text search index, in a single SQLite database.
//
// All multi-row mutations run inside one transaction and roll back entirely
// on failure. Hot paths go through cached prepared statements. WAL journal
// mode keeps readers concurrent with the single writer.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/RoaringBitmap/roaring"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned by lookups that match no row.
var ErrNotFound = errors.New("store: not found")

// Store is the durable graph store. The handle is shared and internally
// synchronised; it is the only mutator API the indexer uses.
type Store struct {
	db *sql.DB

	stmtMu sync.Mutex
	stmts  map[string]*sql.Stmt

	// In-memory reference accumulator: token → bitmap of file IDs.
	// Populated by AddRef during indexing, written by FlushRefs in a
	// single transaction.
	refMu       sync.Mutex
	pendingRefs map[string]*roaring.Bitmap
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS repos (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	root_path  TEXT NOT NULL UNIQUE,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS files (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	repo_id         INTEGER NOT NULL REFERENCES repos(id) ON DELETE CASCADE,
	path            TEXT NOT NULL,
	lang            TEXT NOT NULL,
	sha256          TEXT NOT NULL,
	mtime           INTEGER NOT NULL,
	size_bytes      INTEGER NOT NULL,
	last_indexed_at INTEGER NOT NULL,
	UNIQUE (repo_id, path)
);

CREATE TABLE IF NOT EXISTS symbols (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	repo_id    INTEGER NOT NULL REFERENCES repos(id) ON DELETE CASCADE,
	file_id    INTEGER NOT NULL REFERENCES files(id) ON DELETE CASCADE,
	kind       TEXT NOT NULL,
	name       TEXT NOT NULL,
	fq_name    TEXT,
	signature  TEXT,
	start_line INTEGER NOT NULL,
	start_col  INTEGER NOT NULL,
	end_line   INTEGER NOT NULL,
	end_col    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_symbols_file ON symbols(file_id);
CREATE INDEX IF NOT EXISTS idx_symbols_name ON symbols(repo_id, name);
CREATE UNIQUE INDEX IF NOT EXISTS idx_symbols_fq
	ON symbols(repo_id, fq_name) WHERE fq_name IS NOT NULL;

CREATE TABLE IF NOT EXISTS modules (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	repo_id       INTEGER NOT NULL REFERENCES repos(id) ON DELETE CASCADE,
	name          TEXT NOT NULL,
	version       TEXT,
	manifest_path TEXT,
	UNIQUE (repo_id, name)
);

CREATE TABLE IF NOT EXISTS edges (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	repo_id    INTEGER NOT NULL REFERENCES repos(id) ON DELETE CASCADE,
	src_type   TEXT NOT NULL,
	src_id     INTEGER NOT NULL,
	rel        TEXT NOT NULL,
	dst_type   TEXT NOT NULL,
	dst_id     INTEGER NOT NULL,
	meta_json  TEXT,
	weight     REAL NOT NULL DEFAULT 1.0,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_edges_src ON edges(repo_id, src_type, src_id);
CREATE INDEX IF NOT EXISTS idx_edges_dst ON edges(repo_id, dst_type, dst_id);
CREATE INDEX IF NOT EXISTS idx_edges_rel ON edges(repo_id, rel);

CREATE VIRTUAL TABLE IF NOT EXISTS search_index USING fts5(
	text,
	repo_id UNINDEXED,
	entity_type UNINDEXED,
	entity_id UNINDEXED
);

CREATE TABLE IF NOT EXISTS name_refs (
	repo_id INTEGER NOT NULL,
	token   TEXT NOT NULL,
	bitmap  BLOB NOT NULL,
	PRIMARY KEY (repo_id, token)
);
`

// Open opens (creating if necessary) the store at path. WAL keeps readers
// concurrent with the single writer; foreign keys and busy timeout are set
// per connection through the DSN so every pooled connection gets them.
func Open(path string) (*Store, error) {
	dsn := "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if path == ":memory:" {
		// Each connection would get its own empty in-memory database.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(4)
	}

	if _, err := db.Exec(schemaDDL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{
		db:          db,
		stmts:       make(map[string]*sql.Stmt),
		pendingRefs: make(map[string]*roaring.Bitmap),
	}, nil
}

// Close releases prepared statements and the database handle.
func (s *Store) Close() error {
	s.stmtMu.Lock()
	for _, st := range s.stmts {
		_ = st.Close()
	}
	s.stmts = nil
	s.stmtMu.Unlock()
	return s.db.Close()
}

// stmt returns a cached prepared statement for query, preparing on first use.
func (s *Store) stmt(query string) (*sql.Stmt, error) {
	s.stmtMu.Lock()
	defer s.stmtMu.Unlock()
	if st, ok := s.stmts[query]; ok {
		return st, nil
	}
	st, err := s.db.Prepare(query)
	if err != nil {
		return nil, fmt.Errorf("prepare %q: %w", query, err)
	}
	s.stmts[query] = st
	return st, nil
}

// WithTx runs fn inside a transaction. On error the transaction rolls back
// entirely and the caller sees fn's original error.
func (s *Store) WithTx(fn func(tx *sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func nowUnix() int64 { return time.Now().Unix() }
