package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/histotrack/pathlab-api/internal/models"
)

// AuditRepository appends audit log entries. Entries are written by the
// async audit sink, never updated or deleted.
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository constructs an AuditRepository.
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Create appends one audit entry.
func (r *AuditRepository) Create(ctx context.Context, entry *models.AuditLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.OccurredAt.IsZero() {
		entry.OccurredAt = time.Now().UTC()
	}
	const query = `INSERT INTO audit_logs (id, table_name, record_id, action, actor, details, occurred_at)
        VALUES (:id, :table_name, :record_id, :action, :actor, :details, :occurred_at)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("create audit entry: %w", err)
	}
	return nil
}

// ListByRecord returns the audit trail for a single record, newest first.
func (r *AuditRepository) ListByRecord(ctx context.Context, tableName, recordID string) ([]models.AuditLog, error) {
	const query = `SELECT id, table_name, record_id, action, actor, details, occurred_at
        FROM audit_logs WHERE table_name = $1 AND record_id = $2 ORDER BY occurred_at DESC`
	var entries []models.AuditLog
	if err := r.db.SelectContext(ctx, &entries, query, tableName, recordID); err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	return entries, nil
}
