package store

import (
	"database/sql"
	"fmt"
	"strings"
	"unicode"
)

// SearchHit is one ranked full-text match. Higher scores rank higher.
type SearchHit struct {
	EntryID    int64
	RepoID     int64
	EntityType string
	EntityID   int64
	Text       string
	Score      float64
}

// UpsertSearchEntry replaces the FTS row for an entity inside the caller's
// transaction.
func (s *Store) UpsertSearchEntry(tx *sql.Tx, repoID int64, entityType string, entityID int64, text string) error {
	if _, err := tx.Exec(`DELETE FROM search_index
		WHERE repo_id = ? AND entity_type = ? AND entity_id = ?`,
		repoID, entityType, entityID); err != nil {
		return fmt.Errorf("clear search entry %s %d: %w", entityType, entityID, err)
	}
	if _, err := tx.Exec(`INSERT INTO search_index (text, repo_id, entity_type, entity_id)
		VALUES (?, ?, ?, ?)`,
		text, repoID, entityType, entityID); err != nil {
		return fmt.Errorf("insert search entry %s %d: %w", entityType, entityID, err)
	}
	return nil
}

// Search runs a ranked case-insensitive full-text query. The raw query is
// reduced to letter/digit/underscore tokens OR-ed together so punctuation can
// never produce FTS syntax errors. bm25 ranks lower-is-better; the returned
// score is its negation.
func (s *Store) Search(repoID int64, query string, limit int) ([]SearchHit, error) {
	match := ftsQuery(query)
	if match == "" {
		return nil, nil
	}
	st, err := s.stmt(`
		SELECT rowid, repo_id, entity_type, entity_id, text, bm25(search_index)
		FROM search_index
		WHERE search_index MATCH ? AND repo_id = ?
		ORDER BY bm25(search_index) LIMIT ?`)
	if err != nil {
		return nil, err
	}
	rows, err := st.Query(match, repoID, limit)
	if err != nil {
		return nil, fmt.Errorf("fts search %q: %w", query, err)
	}
	defer func() { _ = rows.Close() }()

	var out []SearchHit
	for rows.Next() {
		var h SearchHit
		var rank float64
		if err := rows.Scan(&h.EntryID, &h.RepoID, &h.EntityType, &h.EntityID, &h.Text, &rank); err != nil {
			return nil, fmt.Errorf("scan search hit: %w", err)
		}
		h.Score = -rank
		out = append(out, h)
	}
	return out, rows.Err()
}

// ftsQuery turns free text into a safe FTS5 MATCH expression.
func ftsQuery(query string) string {
	tokens := strings.FieldsFunc(query, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
	quoted := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t == "" {
			continue
		}
		quoted = append(quoted, `"`+t+`"`)
	}
	return strings.Join(quoted, " OR ")
}
