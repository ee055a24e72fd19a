package models

import (
	"encoding/json"
	"time"
)

// AuditLog is one recorded mutation, written asynchronously by the audit
// sink and never read back by this service.
type AuditLog struct {
	ID         string          `db:"id" json:"id"`
	TableName  string          `db:"table_name" json:"table_name"`
	RecordID   string          `db:"record_id" json:"record_id"`
	Action     string          `db:"action" json:"action"`
	Actor      string          `db:"actor" json:"actor"`
	Details    json.RawMessage `db:"details" json:"details,omitempty"`
	OccurredAt time.Time       `db:"occurred_at" json:"occurred_at"`
}

// ActorClaims carries the creating-actor identity extracted from the bearer
// token by the middleware. Identity issuance itself is external.
type ActorClaims struct {
	Subject  string `json:"sub"`
	FullName string `json:"name"`
}
