package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// SymbolRecord is one declaration row.
type SymbolRecord struct {
	ID        int64
	RepoID    int64
	FileID    int64
	Kind      string
	Name      string
	FqName    string
	Signature string
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
}

const symbolColumns = `id, repo_id, file_id, kind, name, fq_name, signature, start_line, start_col, end_line, end_col`

// InsertSymbol inserts sym in the caller's transaction and fills in its ID.
// An fq_name collision within the repo demotes the row to fq_name NULL and
// reports ErrFqNameConflict alongside the successful insert.
func (s *Store) InsertSymbol(tx *sql.Tx, sym *SymbolRecord) error {
	id, err := insertSymbolOnce(tx, sym, sym.FqName)
	if err != nil && isUniqueViolation(err) {
		id, err = insertSymbolOnce(tx, sym, "")
		if err == nil {
			sym.ID = id
			return fmt.Errorf("%w: %s", ErrFqNameConflict, sym.FqName)
		}
	}
	if err != nil {
		return fmt.Errorf("insert symbol %s: %w", sym.Name, err)
	}
	sym.ID = id
	return nil
}

// ErrFqNameConflict flags a symbol stored without its fq_name because
// another symbol in the repo already claims it.
var ErrFqNameConflict = errors.New("fq_name already taken")

func insertSymbolOnce(tx *sql.Tx, sym *SymbolRecord, fqName string) (int64, error) {
	res, err := tx.Exec(`
		INSERT INTO symbols (repo_id, file_id, kind, name, fq_name, signature,
			start_line, start_col, end_line, end_col)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sym.RepoID, sym.FileID, sym.Kind, sym.Name, nullIfEmpty(fqName), nullIfEmpty(sym.Signature),
		sym.StartLine, sym.StartCol, sym.EndLine, sym.EndCol)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// FindSymbolsByFile returns the file's symbols ordered by position.
func (s *Store) FindSymbolsByFile(repoID, fileID int64) ([]SymbolRecord, error) {
	st, err := s.stmt(`SELECT ` + symbolColumns + ` FROM symbols
		WHERE repo_id = ? AND file_id = ? ORDER BY start_line, start_col`)
	if err != nil {
		return nil, err
	}
	return s.querySymbols(st, repoID, fileID)
}

// FindSymbolsByName returns every symbol in the repo with the given short name.
func (s *Store) FindSymbolsByName(repoID int64, name string) ([]SymbolRecord, error) {
	st, err := s.stmt(`SELECT ` + symbolColumns + ` FROM symbols
		WHERE repo_id = ? AND name = ? ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return s.querySymbols(st, repoID, name)
}

// FindSymbolByFqName returns the unique symbol with the given fq_name.
func (s *Store) FindSymbolByFqName(repoID int64, fqName string) (SymbolRecord, error) {
	st, err := s.stmt(`SELECT ` + symbolColumns + ` FROM symbols WHERE repo_id = ? AND fq_name = ?`)
	if err != nil {
		return SymbolRecord{}, err
	}
	sym, err := scanSymbol(st.QueryRow(repoID, fqName))
	if errors.Is(err, sql.ErrNoRows) {
		return SymbolRecord{}, ErrNotFound
	}
	return sym, err
}

// FindSymbolByID looks a symbol up by id.
func (s *Store) FindSymbolByID(id int64) (SymbolRecord, error) {
	st, err := s.stmt(`SELECT ` + symbolColumns + ` FROM symbols WHERE id = ?`)
	if err != nil {
		return SymbolRecord{}, err
	}
	sym, err := scanSymbol(st.QueryRow(id))
	if errors.Is(err, sql.ErrNoRows) {
		return SymbolRecord{}, ErrNotFound
	}
	return sym, err
}

// FindSymbolsByNameTx is FindSymbolsByName inside an open transaction, so
// edge derivation reads a snapshot consistent with its own writes.
func (s *Store) FindSymbolsByNameTx(tx *sql.Tx, repoID int64, name string) ([]SymbolRecord, error) {
	rows, err := tx.Query(`SELECT `+symbolColumns+` FROM symbols
		WHERE repo_id = ? AND name = ? ORDER BY id`, repoID, name)
	if err != nil {
		return nil, fmt.Errorf("query symbols by name: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []SymbolRecord
	for rows.Next() {
		sym, err := scanSymbol(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sym)
	}
	return out, rows.Err()
}

// FindSymbolInFileTx returns the first symbol with the given short name in
// a specific file, inside an open transaction.
func (s *Store) FindSymbolInFileTx(tx *sql.Tx, repoID, fileID int64, name string) (SymbolRecord, error) {
	row := tx.QueryRow(`SELECT `+symbolColumns+` FROM symbols
		WHERE repo_id = ? AND file_id = ? AND name = ? ORDER BY id LIMIT 1`, repoID, fileID, name)
	sym, err := scanSymbol(row)
	if errors.Is(err, sql.ErrNoRows) {
		return SymbolRecord{}, ErrNotFound
	}
	return sym, err
}

// DeleteSymbolsByFile removes every symbol owned by the file.
func (s *Store) DeleteSymbolsByFile(tx *sql.Tx, fileID int64) error {
	if _, err := tx.Exec(`DELETE FROM symbols WHERE file_id = ?`, fileID); err != nil {
		return fmt.Errorf("delete symbols of file %d: %w", fileID, err)
	}
	return nil
}

// CountSymbolsByRepo returns the number of symbol rows in the repo.
func (s *Store) CountSymbolsByRepo(repoID int64) (int, error) {
	return s.countBy(`SELECT COUNT(*) FROM symbols WHERE repo_id = ?`, repoID)
}

func (s *Store) querySymbols(st *sql.Stmt, args ...any) ([]SymbolRecord, error) {
	rows, err := st.Query(args...)
	if err != nil {
		return nil, fmt.Errorf("query symbols: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []SymbolRecord
	for rows.Next() {
		sym, err := scanSymbol(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sym)
	}
	return out, rows.Err()
}

func scanSymbol(row rowScanner) (SymbolRecord, error) {
	var sym SymbolRecord
	var fq, sig sql.NullString
	err := row.Scan(&sym.ID, &sym.RepoID, &sym.FileID, &sym.Kind, &sym.Name, &fq, &sig,
		&sym.StartLine, &sym.StartCol, &sym.EndLine, &sym.EndCol)
	if err != nil {
		return SymbolRecord{}, err
	}
	sym.FqName = fq.String
	sym.Signature = sig.String
	return sym, nil
}
