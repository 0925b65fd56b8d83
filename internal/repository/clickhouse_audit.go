package repository

import (
	"context"
	"database/sql"
	"fmt"

	"SignalDesk/internal/domain/models"
	drepo "SignalDesk/internal/domain/repository"
)

// ClickHouseAuditTrail implements AuditTrail on an append-only MergeTree
// table. Rows are inserted once and never touched again, which is exactly
// the audit contract.
type ClickHouseAuditTrail struct {
	db    *sql.DB
	table string
}

// NewClickHouseAuditTrail creates ClickHouse-backed audit storage.
func NewClickHouseAuditTrail(db *sql.DB, table string) drepo.AuditTrail {
	return &ClickHouseAuditTrail{db: db, table: table}
}

// Schema returns the idempotent DDL for the audit table.
func Schema(database, table string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id String,
			signal_id String,
			action String,
			note String,
			created_at DateTime64(3)
		) ENGINE = MergeTree ORDER BY (signal_id, created_at)`, table),
	}
}

func (t *ClickHouseAuditTrail) Append(ctx context.Context, a *models.SignalAction) error {
	q := fmt.Sprintf("INSERT INTO %s (id, signal_id, action, note, created_at) VALUES (?, ?, ?, ?, ?)", t.table)
	_, err := t.db.ExecContext(ctx, q, a.ID, a.SignalID, string(a.Action), a.Note, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("append audit: %w", err)
	}
	return nil
}

func (t *ClickHouseAuditTrail) ListBySignal(ctx context.Context, signalID string) ([]*models.SignalAction, error) {
	q := fmt.Sprintf("SELECT id, signal_id, action, note, created_at FROM %s WHERE signal_id = ? ORDER BY created_at", t.table)
	rows, err := t.db.QueryContext(ctx, q, signalID)
	if err != nil {
		return nil, fmt.Errorf("query audit: %w", err)
	}
	defer rows.Close()

	var out []*models.SignalAction
	for rows.Next() {
		var a models.SignalAction
		var action string
		if err := rows.Scan(&a.ID, &a.SignalID, &action, &a.Note, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit: %w", err)
		}
		a.Action = models.Action(action)
		out = append(out, &a)
	}
	return out, rows.Err()
}
