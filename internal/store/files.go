package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// FileRecord is one indexed file.
type FileRecord struct {
	ID            int64
	RepoID        int64
	Path          string
	Lang          string
	SHA256        string
	Mtime         time.Time
	SizeBytes     int64
	LastIndexedAt time.Time
}

const fileColumns = `id, repo_id, path, lang, sha256, mtime, size_bytes, last_indexed_at`

// UpsertFile inserts or refreshes the file row keyed by (repo_id, path)
// inside the caller's transaction and returns the stored record.
func (s *Store) UpsertFile(tx *sql.Tx, repoID int64, path, lang, sha256 string, mtime time.Time, size int64) (FileRecord, error) {
	_, err := tx.Exec(`
		INSERT INTO files (repo_id, path, lang, sha256, mtime, size_bytes, last_indexed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(repo_id, path) DO UPDATE SET
			lang = excluded.lang,
			sha256 = excluded.sha256,
			mtime = excluded.mtime,
			size_bytes = excluded.size_bytes,
			last_indexed_at = excluded.last_indexed_at`,
		repoID, path, lang, sha256, mtime.Unix(), size, nowUnix())
	if err != nil {
		return FileRecord{}, fmt.Errorf("upsert file %s: %w", path, err)
	}
	row := tx.QueryRow(`SELECT `+fileColumns+` FROM files WHERE repo_id = ? AND path = ?`, repoID, path)
	return scanFile(row)
}

// FindFileByPath looks a file up by repo-relative path.
func (s *Store) FindFileByPath(repoID int64, path string) (FileRecord, error) {
	st, err := s.stmt(`SELECT ` + fileColumns + ` FROM files WHERE repo_id = ? AND path = ?`)
	if err != nil {
		return FileRecord{}, err
	}
	return scanFile(st.QueryRow(repoID, path))
}

// FindFileByPathTx is FindFileByPath inside an open transaction.
func (s *Store) FindFileByPathTx(tx *sql.Tx, repoID int64, path string) (FileRecord, error) {
	row := tx.QueryRow(`SELECT `+fileColumns+` FROM files WHERE repo_id = ? AND path = ?`, repoID, path)
	return scanFile(row)
}

// FindFileByID looks a file up by id.
func (s *Store) FindFileByID(id int64) (FileRecord, error) {
	st, err := s.stmt(`SELECT ` + fileColumns + ` FROM files WHERE id = ?`)
	if err != nil {
		return FileRecord{}, err
	}
	return scanFile(st.QueryRow(id))
}

// ListFilesByRepo returns every file row of the repo ordered by path.
func (s *Store) ListFilesByRepo(repoID int64) ([]FileRecord, error) {
	st, err := s.stmt(`SELECT ` + fileColumns + ` FROM files WHERE repo_id = ? ORDER BY path`)
	if err != nil {
		return nil, err
	}
	rows, err := st.Query(repoID)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []FileRecord
	for rows.Next() {
		f, err := scanFileRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// DeleteFileByID removes the file, its symbols, every edge either endpoint
// of which is the file, and every edge involving one of its symbols, plus
// the matching search entries — atomically in the caller's transaction.
func (s *Store) DeleteFileByID(tx *sql.Tx, id int64) error {
	if err := s.DeleteEdgesByFile(tx, id); err != nil {
		return err
	}
	if _, err := tx.Exec(`
		DELETE FROM search_index WHERE entity_type = 'symbol'
		AND entity_id IN (SELECT id FROM symbols WHERE file_id = ?)`, id); err != nil {
		return fmt.Errorf("delete symbol search entries for file %d: %w", id, err)
	}
	if err := s.DeleteSymbolsByFile(tx, id); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM search_index WHERE entity_type = 'file' AND entity_id = ?`, id); err != nil {
		return fmt.Errorf("delete file search entry %d: %w", id, err)
	}
	if _, err := tx.Exec(`DELETE FROM files WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete file %d: %w", id, err)
	}
	return nil
}

// CountFilesByRepo returns the number of file rows in the repo.
func (s *Store) CountFilesByRepo(repoID int64) (int, error) {
	return s.countBy(`SELECT COUNT(*) FROM files WHERE repo_id = ?`, repoID)
}

// CountFilesByLang breaks the repo's file count down by language.
func (s *Store) CountFilesByLang(repoID int64) (map[string]int, error) {
	st, err := s.stmt(`SELECT lang, COUNT(*) FROM files WHERE repo_id = ? GROUP BY lang`)
	if err != nil {
		return nil, err
	}
	rows, err := st.Query(repoID)
	if err != nil {
		return nil, fmt.Errorf("count files by lang: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make(map[string]int)
	for rows.Next() {
		var lang string
		var n int
		if err := rows.Scan(&lang, &n); err != nil {
			return nil, fmt.Errorf("scan lang count: %w", err)
		}
		out[lang] = n
	}
	return out, rows.Err()
}

func (s *Store) countBy(query string, args ...any) (int, error) {
	st, err := s.stmt(query)
	if err != nil {
		return 0, err
	}
	var n int
	if err := st.QueryRow(args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFile(row *sql.Row) (FileRecord, error) {
	f, err := scanFileRows(row)
	if errors.Is(err, sql.ErrNoRows) {
		return FileRecord{}, ErrNotFound
	}
	return f, err
}

func scanFileRows(row rowScanner) (FileRecord, error) {
	var f FileRecord
	var mtime, indexed int64
	err := row.Scan(&f.ID, &f.RepoID, &f.Path, &f.Lang, &f.SHA256, &mtime, &f.SizeBytes, &indexed)
	if err != nil {
		return FileRecord{}, err
	}
	f.Mtime = time.Unix(mtime, 0)
	f.LastIndexedAt = time.Unix(indexed, 0)
	return f, nil
}
