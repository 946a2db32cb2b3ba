// Package store keeps runtime pointer observations in a SQLite database
// so that they survive between runs and can feed smart .disambig files.
package store

import (
	"bufio"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/l3aro/go-decls/pkg/disambig"
	"github.com/l3aro/go-decls/pkg/model"
)

// Store manages the observation database.
type Store struct {
	db     *sql.DB
	dbPath string
}

// Entry is one observed variable.
type Entry struct {
	Ppt          string
	Variable     string
	MultipleElts bool
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open observation db: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &Store{db: db, dbPath: path}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.dbPath
}

const upsertSQL = `
INSERT INTO observations (ppt, variable, observed, multiple_elts, updated_at)
VALUES (?, ?, 1, ?, ?)
ON CONFLICT(ppt, variable) DO UPDATE SET
    multiple_elts = MAX(multiple_elts, excluded.multiple_elts),
    updated_at = excluded.updated_at`

// Record notes that variable was observed at ppt. The multiple-elements
// flag is sticky: once set it is never cleared by a later Record.
func (s *Store) Record(ppt, variable string, multipleElts bool) error {
	_, err := s.db.Exec(upsertSQL, ppt, variable, boolInt(multipleElts), now())
	if err != nil {
		return fmt.Errorf("record observation: %w", err)
	}
	return nil
}

// RecordAll records entries in one transaction.
func (s *Store) RecordAll(entries []Entry) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(upsertSQL)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	ts := now()
	for _, e := range entries {
		if _, err := stmt.Exec(e.Ppt, e.Variable, boolInt(e.MultipleElts), ts); err != nil {
			return fmt.Errorf("record %s %s: %w", e.Ppt, e.Variable, err)
		}
	}
	return tx.Commit()
}

// Import records observations read from r, one per line as
// "<ppt>\t<variable>\t<single|multiple>". Blank lines and lines starting
// with "#" are skipped. It returns the number of entries recorded.
func (s *Store) Import(r io.Reader) (int, error) {
	var entries []Entry
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) != 3 {
			return 0, fmt.Errorf("line %d: expected 3 tab-separated fields, got %d", lineNo, len(fields))
		}
		var multiple bool
		switch fields[2] {
		case "single":
		case "multiple":
			multiple = true
		default:
			return 0, fmt.Errorf("line %d: unknown element count %q", lineNo, fields[2])
		}
		entries = append(entries, Entry{Ppt: fields[0], Variable: fields[1], MultipleElts: multiple})
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("read observations: %w", err)
	}
	if err := s.RecordAll(entries); err != nil {
		return 0, err
	}
	return len(entries), nil
}

// Entries returns every observation ordered by ppt and variable.
func (s *Store) Entries() ([]Entry, error) {
	rows, err := s.db.Query("SELECT ppt, variable, multiple_elts FROM observations ORDER BY ppt, variable")
	if err != nil {
		return nil, fmt.Errorf("query observations: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var multiple int
		if err := rows.Scan(&e.Ppt, &e.Variable, &multiple); err != nil {
			return nil, fmt.Errorf("scan observation: %w", err)
		}
		e.MultipleElts = multiple != 0
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// LoadInto resolves stored observations against m and records them in
// obs. Entries naming variables that m does not have are skipped and
// counted in the second return value.
func (s *Store) LoadInto(m *model.Model, obs *model.Observations) (applied, unknown int, err error) {
	entries, err := s.Entries()
	if err != nil {
		return 0, 0, err
	}
	for _, e := range entries {
		v := resolve(m, e.Ppt, e.Variable)
		if v == nil {
			unknown++
			continue
		}
		obs.Record(v, e.MultipleElts)
		applied++
	}
	return applied, unknown, nil
}

func resolve(m *model.Model, ppt, name string) *model.Variable {
	if ppt == disambig.GlobalsSection {
		return m.Global(name)
	}
	if typeName, ok := strings.CutPrefix(ppt, disambig.UserTypePrefix); ok {
		for _, t := range m.Types() {
			if !t.IsAggregate() || t.Name != typeName {
				continue
			}
			for _, v := range t.Members {
				if v.Name == name {
					return v
				}
			}
		}
		return nil
	}
	fn := m.Function(ppt)
	if fn == nil {
		return nil
	}
	for _, v := range fn.Params {
		if v.Name == name {
			return v
		}
	}
	if rv := fn.ReturnVar(); rv != nil && rv.Name == name {
		return rv
	}
	return nil
}

// Stats summarises the store contents.
type Stats struct {
	Observations int64
	MultipleElts int64
	Points       int64
}

// GetStats returns statistics about the store contents.
func (s *Store) GetStats() (*Stats, error) {
	var stats Stats
	err := s.db.QueryRow(`SELECT COUNT(*), COALESCE(SUM(multiple_elts), 0), COUNT(DISTINCT ppt)
FROM observations`).Scan(&stats.Observations, &stats.MultipleElts, &stats.Points)
	if err != nil {
		return nil, fmt.Errorf("count observations: %w", err)
	}
	return &stats, nil
}

// Clear removes every observation.
func (s *Store) Clear() error {
	if _, err := s.db.Exec("DELETE FROM observations"); err != nil {
		return fmt.Errorf("clear observations: %w", err)
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}
