package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Repo is one indexed repository root.
type Repo struct {
	ID        int64
	RootPath  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UpsertRepo creates the repo row for rootPath or touches updated_at on an
// existing one.
func (s *Store) UpsertRepo(rootPath string) (Repo, error) {
	now := nowUnix()
	st, err := s.stmt(`
		INSERT INTO repos (root_path, created_at, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(root_path) DO UPDATE SET updated_at = excluded.updated_at`)
	if err != nil {
		return Repo{}, err
	}
	if _, err := st.Exec(rootPath, now, now); err != nil {
		return Repo{}, fmt.Errorf("upsert repo %s: %w", rootPath, err)
	}
	return s.FindRepoByPath(rootPath)
}

// FindRepoByPath looks a repo up by its unique root path.
func (s *Store) FindRepoByPath(rootPath string) (Repo, error) {
	st, err := s.stmt(`SELECT id, root_path, created_at, updated_at FROM repos WHERE root_path = ?`)
	if err != nil {
		return Repo{}, err
	}
	return scanRepo(st.QueryRow(rootPath))
}

// FindRepoByID looks a repo up by id.
func (s *Store) FindRepoByID(id int64) (Repo, error) {
	st, err := s.stmt(`SELECT id, root_path, created_at, updated_at FROM repos WHERE id = ?`)
	if err != nil {
		return Repo{}, err
	}
	return scanRepo(st.QueryRow(id))
}

func scanRepo(row *sql.Row) (Repo, error) {
	var r Repo
	var created, updated int64
	err := row.Scan(&r.ID, &r.RootPath, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Repo{}, ErrNotFound
	}
	if err != nil {
		return Repo{}, fmt.Errorf("scan repo: %w", err)
	}
	r.CreatedAt = time.Unix(created, 0)
	r.UpdatedAt = time.Unix(updated, 0)
	return r, nil
}
