package store

import (
	"bytes"
	"database/sql"
	"fmt"

	"github.com/RoaringBitmap/roaring"
)

// AddRef accumulates a name reference in-memory. No SQL is issued until
// FlushRefs — all bitmap mutations happen in RAM and are written in one
// transaction, avoiding a read-modify-write cycle per reference.
func (s *Store) AddRef(token string, fileID int64) {
	s.refMu.Lock()
	defer s.refMu.Unlock()

	bm, ok := s.pendingRefs[token]
	if !ok {
		bm = roaring.New()
		s.pendingRefs[token] = bm
	}
	bm.Add(uint32(fileID))
}

// FlushRefs replaces the repo's name_refs rows with the accumulated bitmaps
// in a single transaction and resets the accumulator. Refs are derived data,
// rebuilt on every indexing run.
func (s *Store) FlushRefs(repoID int64) error {
	s.refMu.Lock()
	refs := s.pendingRefs
	s.pendingRefs = make(map[string]*roaring.Bitmap)
	s.refMu.Unlock()

	return s.WithTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM name_refs WHERE repo_id = ?`, repoID); err != nil {
			return fmt.Errorf("clear name_refs: %w", err)
		}
		stmt, err := tx.Prepare(`INSERT INTO name_refs (repo_id, token, bitmap) VALUES (?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare name_refs insert: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		var buf bytes.Buffer
		for token, bm := range refs {
			buf.Reset()
			if _, err := bm.WriteTo(&buf); err != nil {
				return fmt.Errorf("serialize bitmap for %s: %w", token, err)
			}
			if _, err := stmt.Exec(repoID, token, buf.Bytes()); err != nil {
				return fmt.Errorf("insert ref %s: %w", token, err)
			}
		}
		return nil
	})
}

// FilesReferencing returns the IDs of the files recorded under token by AddRef.
func (s *Store) FilesReferencing(repoID int64, token string) ([]int64, error) {
	st, err := s.stmt(`SELECT bitmap FROM name_refs WHERE repo_id = ? AND token = ?`)
	if err != nil {
		return nil, err
	}
	var blob []byte
	err = st.QueryRow(repoID, token).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read refs for %s: %w", token, err)
	}

	bm := roaring.New()
	if err := bm.UnmarshalBinary(blob); err != nil {
		return nil, fmt.Errorf("unmarshal bitmap for %s: %w", token, err)
	}

	var out []int64
	it := bm.Iterator()
	for it.HasNext() {
		out = append(out, int64(it.Next()))
	}
	return out, nil
}
