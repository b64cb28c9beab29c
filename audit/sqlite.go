// audit/sqlite.go
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS audit_records (
	sequence_number INTEGER PRIMARY KEY,
	id              TEXT NOT NULL,
	timestamp       TEXT NOT NULL,
	tenant_id       TEXT NOT NULL,
	event_type      TEXT NOT NULL,
	actor_id        TEXT NOT NULL,
	target_id       TEXT NOT NULL,
	resource        TEXT NOT NULL,
	action          TEXT NOT NULL,
	outcome         TEXT NOT NULL,
	previous_hash   TEXT NOT NULL,
	hash            TEXT NOT NULL,
	signature       TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_audit_tenant ON audit_records (tenant_id, sequence_number);
CREATE INDEX IF NOT EXISTS idx_audit_event_type ON audit_records (event_type, sequence_number);
`

// SQLiteStore persists chain records through database/sql with the pure-Go
// sqlite driver. The timestamp is stored as RFC3339Nano text so hashes
// recompute bit-for-bit from stored fields.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path. Use ":memory:" for
// an ephemeral store in tests.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database: %w", err)
	}
	// The chain has a single writer; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize audit schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Append(ctx context.Context, record *Record) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_records
		 (sequence_number, id, timestamp, tenant_id, event_type, actor_id, target_id, resource, action, outcome, previous_hash, hash, signature)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.SequenceNumber,
		record.ID,
		record.Timestamp.UTC().Format(time.RFC3339Nano),
		record.TenantID,
		record.EventType,
		record.ActorID,
		record.TargetID,
		record.Resource,
		record.Action,
		record.Outcome,
		record.PreviousHash,
		record.Hash,
		record.Signature,
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit record: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Last(ctx context.Context) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		selectColumns+` FROM audit_records ORDER BY sequence_number DESC LIMIT 1`)
	record, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return record, err
}

func (s *SQLiteStore) Range(ctx context.Context, from, to uint64) ([]*Record, error) {
	query := selectColumns + ` FROM audit_records WHERE sequence_number >= ?`
	args := []any{from}
	if to != 0 {
		query += ` AND sequence_number <= ?`
		args = append(args, to)
	}
	query += ` ORDER BY sequence_number ASC`
	return s.queryRecords(ctx, query, args...)
}

func (s *SQLiteStore) Query(ctx context.Context, filter QueryFilter) ([]*Record, error) {
	var conds []string
	var args []any
	if filter.TenantID != "" {
		conds = append(conds, "tenant_id = ?")
		args = append(args, filter.TenantID)
	}
	if filter.EventType != "" {
		conds = append(conds, "event_type = ?")
		args = append(args, filter.EventType)
	}
	if filter.ActorID != "" {
		conds = append(conds, "actor_id = ?")
		args = append(args, filter.ActorID)
	}
	if filter.Resource != "" {
		conds = append(conds, "resource = ?")
		args = append(args, filter.Resource)
	}
	if filter.FromSequence != 0 {
		conds = append(conds, "sequence_number >= ?")
		args = append(args, filter.FromSequence)
	}
	if filter.ToSequence != 0 {
		conds = append(conds, "sequence_number <= ?")
		args = append(args, filter.ToSequence)
	}
	if !filter.From.IsZero() {
		conds = append(conds, "timestamp >= ?")
		args = append(args, filter.From.UTC().Format(time.RFC3339Nano))
	}
	if !filter.To.IsZero() {
		conds = append(conds, "timestamp <= ?")
		args = append(args, filter.To.UTC().Format(time.RFC3339Nano))
	}

	query := selectColumns + ` FROM audit_records`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY sequence_number ASC`
	if filter.Limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, filter.Limit)
	}
	return s.queryRecords(ctx, query, args...)
}

const selectColumns = `SELECT sequence_number, id, timestamp, tenant_id, event_type, actor_id, target_id, resource, action, outcome, previous_hash, hash, signature`

func (s *SQLiteStore) queryRecords(ctx context.Context, query string, args ...any) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit records: %w", err)
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var r Record
	var ts string
	err := row.Scan(
		&r.SequenceNumber,
		&r.ID,
		&ts,
		&r.TenantID,
		&r.EventType,
		&r.ActorID,
		&r.TargetID,
		&r.Resource,
		&r.Action,
		&r.Outcome,
		&r.PreviousHash,
		&r.Hash,
		&r.Signature,
	)
	if err != nil {
		return nil, err
	}
	r.Timestamp, err = time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return nil, fmt.Errorf("failed to parse stored timestamp %q: %w", ts, err)
	}
	return &r, nil
}
