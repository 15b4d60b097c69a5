package store

import (
	"database/sql"
	"errors"
	"fmt"
)

// ModuleRecord is one package/module descriptor, upserted by (repo_id, name).
// Module rows outlive files.
type ModuleRecord struct {
	ID           int64
	RepoID       int64
	Name         string
	Version      string
	ManifestPath string
}

// UpsertModule inserts or refreshes the module row in the caller's
// transaction and returns the stored record.
func (s *Store) UpsertModule(tx *sql.Tx, repoID int64, name, version, manifestPath string) (ModuleRecord, error) {
	_, err := tx.Exec(`
		INSERT INTO modules (repo_id, name, version, manifest_path) VALUES (?, ?, ?, ?)
		ON CONFLICT(repo_id, name) DO UPDATE SET
			version = COALESCE(excluded.version, modules.version),
			manifest_path = COALESCE(excluded.manifest_path, modules.manifest_path)`,
		repoID, name, nullIfEmpty(version), nullIfEmpty(manifestPath))
	if err != nil {
		return ModuleRecord{}, fmt.Errorf("upsert module %s: %w", name, err)
	}
	row := tx.QueryRow(`SELECT id, repo_id, name, version, manifest_path FROM modules
		WHERE repo_id = ? AND name = ?`, repoID, name)
	return scanModule(row)
}

// FindModuleByName looks a module up by its per-repo unique name.
func (s *Store) FindModuleByName(repoID int64, name string) (ModuleRecord, error) {
	st, err := s.stmt(`SELECT id, repo_id, name, version, manifest_path FROM modules
		WHERE repo_id = ? AND name = ?`)
	if err != nil {
		return ModuleRecord{}, err
	}
	return scanModule(st.QueryRow(repoID, name))
}

// FindModuleByID looks a module up by id.
func (s *Store) FindModuleByID(id int64) (ModuleRecord, error) {
	st, err := s.stmt(`SELECT id, repo_id, name, version, manifest_path FROM modules WHERE id = ?`)
	if err != nil {
		return ModuleRecord{}, err
	}
	return scanModule(st.QueryRow(id))
}

// CountModulesByRepo returns the number of module rows in the repo.
func (s *Store) CountModulesByRepo(repoID int64) (int, error) {
	return s.countBy(`SELECT COUNT(*) FROM modules WHERE repo_id = ?`, repoID)
}

func scanModule(row rowScanner) (ModuleRecord, error) {
	var m ModuleRecord
	var version, manifest sql.NullString
	err := row.Scan(&m.ID, &m.RepoID, &m.Name, &version, &manifest)
	if errors.Is(err, sql.ErrNoRows) {
		return ModuleRecord{}, ErrNotFound
	}
	if err != nil {
		return ModuleRecord{}, fmt.Errorf("scan module: %w", err)
	}
	m.Version = version.String
	m.ManifestPath = manifest.String
	return m, nil
}
