package store

import (
	"database/sql"
	"fmt"
)

// EdgeRecord is one typed directed relationship between two graph nodes.
type EdgeRecord struct {
	ID       int64
	RepoID   int64
	SrcType  string
	SrcID    int64
	Rel      string
	DstType  string
	DstID    int64
	MetaJSON string
	Weight   float64
}

const edgeColumns = `id, repo_id, src_type, src_id, rel, dst_type, dst_id, meta_json, weight`

// InsertEdge inserts e in the caller's transaction and fills in its ID.
func (s *Store) InsertEdge(tx *sql.Tx, e *EdgeRecord) error {
	if e.Weight == 0 {
		e.Weight = 1.0
	}
	res, err := tx.Exec(`
		INSERT INTO edges (repo_id, src_type, src_id, rel, dst_type, dst_id, meta_json, weight, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.RepoID, e.SrcType, e.SrcID, e.Rel, e.DstType, e.DstID, nullIfEmpty(e.MetaJSON), e.Weight, nowUnix())
	if err != nil {
		return fmt.Errorf("insert edge %s %s(%d)→%s(%d): %w", e.Rel, e.SrcType, e.SrcID, e.DstType, e.DstID, err)
	}
	e.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("edge id: %w", err)
	}
	return nil
}

// FindEdgesBySrc returns edges leaving the node.
func (s *Store) FindEdgesBySrc(repoID int64, srcType string, srcID int64) ([]EdgeRecord, error) {
	st, err := s.stmt(`SELECT ` + edgeColumns + ` FROM edges
		WHERE repo_id = ? AND src_type = ? AND src_id = ? ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return s.queryEdges(st, repoID, srcType, srcID)
}

// FindEdgesByDst returns edges entering the node.
func (s *Store) FindEdgesByDst(repoID int64, dstType string, dstID int64) ([]EdgeRecord, error) {
	st, err := s.stmt(`SELECT ` + edgeColumns + ` FROM edges
		WHERE repo_id = ? AND dst_type = ? AND dst_id = ? ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return s.queryEdges(st, repoID, dstType, dstID)
}

// FindEdgesByRel returns the repo's edges of one relation.
func (s *Store) FindEdgesByRel(repoID int64, rel string) ([]EdgeRecord, error) {
	st, err := s.stmt(`SELECT ` + edgeColumns + ` FROM edges
		WHERE repo_id = ? AND rel = ? ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return s.queryEdges(st, repoID, rel)
}

// DeleteEdgesByNode removes every edge with the node at either endpoint.
func (s *Store) DeleteEdgesByNode(tx *sql.Tx, nodeType string, nodeID int64) error {
	_, err := tx.Exec(`DELETE FROM edges
		WHERE (src_type = ? AND src_id = ?) OR (dst_type = ? AND dst_id = ?)`,
		nodeType, nodeID, nodeType, nodeID)
	if err != nil {
		return fmt.Errorf("delete edges of %s %d: %w", nodeType, nodeID, err)
	}
	return nil
}

// DeleteEdgesByFile removes edges directly involving the file and edges
// involving any symbol owned by the file.
func (s *Store) DeleteEdgesByFile(tx *sql.Tx, fileID int64) error {
	_, err := tx.Exec(`DELETE FROM edges
		WHERE (src_type = 'file' AND src_id = ?1)
		   OR (dst_type = 'file' AND dst_id = ?1)
		   OR (src_type = 'symbol' AND src_id IN (SELECT id FROM symbols WHERE file_id = ?1))
		   OR (dst_type = 'symbol' AND dst_id IN (SELECT id FROM symbols WHERE file_id = ?1))`,
		fileID)
	if err != nil {
		return fmt.Errorf("delete edges of file %d: %w", fileID, err)
	}
	return nil
}

// CountEdgesByRepo returns the number of edge rows in the repo.
func (s *Store) CountEdgesByRepo(repoID int64) (int, error) {
	return s.countBy(`SELECT COUNT(*) FROM edges WHERE repo_id = ?`, repoID)
}

func (s *Store) queryEdges(st *sql.Stmt, args ...any) ([]EdgeRecord, error) {
	rows, err := st.Query(args...)
	if err != nil {
		return nil, fmt.Errorf("query edges: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []EdgeRecord
	for rows.Next() {
		var e EdgeRecord
		var meta sql.NullString
		if err := rows.Scan(&e.ID, &e.RepoID, &e.SrcType, &e.SrcID, &e.Rel, &e.DstType, &e.DstID, &meta, &e.Weight); err != nil {
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		e.MetaJSON = meta.String
		out = append(out, e)
	}
	return out, rows.Err()
}
