package planstore

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/starford/bootplan/internal/apperr"
)

// Record is one row of the plans table, without the plan body.
type Record struct {
	ID         int64     `json:"id"`
	Checksum   string    `json:"checksum"`
	Env        string    `json:"env"`
	Root       string    `json:"root"`
	Models     int       `json:"models"`
	Mixins     int       `json:"mixins"`
	Boot       int       `json:"boot"`
	CompiledAt time.Time `json:"compiled_at"`
}

const recordColumns = `id, checksum, env, root, models, mixins, boot, compiled_at`

// Save appends rec with its serialized plan body unless the latest stored
// plan has the same checksum. It returns the stored record and whether a new
// row was written.
func (db *DB) Save(rec Record, body []byte) (Record, bool, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return Record{}, false, fmt.Errorf("planstore: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	latest, err := scanRecord(tx.QueryRow(`SELECT ` + recordColumns + ` FROM plans ORDER BY id DESC LIMIT 1`))
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return Record{}, false, fmt.Errorf("planstore: latest: %w", err)
	case latest.Checksum == rec.Checksum:
		return *latest, false, nil
	}

	if rec.CompiledAt.IsZero() {
		rec.CompiledAt = time.Now()
	}
	rec.CompiledAt = rec.CompiledAt.UTC()

	res, err := tx.Exec(`
		INSERT INTO plans (checksum, env, root, models, mixins, boot, body, compiled_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.Checksum, rec.Env, rec.Root, rec.Models, rec.Mixins, rec.Boot, string(body), rec.CompiledAt)
	if err != nil {
		return Record{}, false, fmt.Errorf("planstore: insert plan: %w", err)
	}
	rec.ID, err = res.LastInsertId()
	if err != nil {
		return Record{}, false, fmt.Errorf("planstore: insert id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Record{}, false, fmt.Errorf("planstore: commit: %w", err)
	}
	return rec, true, nil
}

// Latest returns the most recent plan. It returns apperr.ErrNotFound when the
// history is empty.
func (db *DB) Latest() (*Record, []byte, error) {
	return db.getOne(`SELECT `+recordColumns+`, body FROM plans ORDER BY id DESC LIMIT 1`)
}

// Get returns the plan with the given id.
func (db *DB) Get(id int64) (*Record, []byte, error) {
	return db.getOne(`SELECT `+recordColumns+`, body FROM plans WHERE id = ?`, id)
}

func (db *DB) getOne(query string, args ...any) (*Record, []byte, error) {
	var (
		rec  Record
		body string
	)
	err := db.conn.QueryRow(query, args...).Scan(
		&rec.ID, &rec.Checksum, &rec.Env, &rec.Root,
		&rec.Models, &rec.Mixins, &rec.Boot, &rec.CompiledAt, &body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("planstore: get plan: %w", err)
	}
	return &rec, []byte(body), nil
}

// Page size bounds for List.
const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

// List returns plan records newest first, plus the total count. A limit
// outside (0, MaxListLimit] is replaced by DefaultListLimit or MaxListLimit.
func (db *DB) List(limit, offset int) ([]Record, int, error) {
	switch {
	case limit <= 0:
		limit = DefaultListLimit
	case limit > MaxListLimit:
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	var total int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM plans`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("planstore: count: %w", err)
	}

	rows, err := db.conn.Query(`SELECT `+recordColumns+` FROM plans ORDER BY id DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("planstore: list: %w", err)
	}
	defer rows.Close()

	out := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *rec)
	}
	return out, total, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*Record, error) {
	var rec Record
	if err := s.Scan(&rec.ID, &rec.Checksum, &rec.Env, &rec.Root,
		&rec.Models, &rec.Mixins, &rec.Boot, &rec.CompiledAt); err != nil {
		return nil, err
	}
	return &rec, nil
}
