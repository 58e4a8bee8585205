package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"goldpayments/internal/core/domain"
	"goldpayments/internal/core/ports"
)

type auditRepo struct {
	db *sql.DB
}

// NewAuditRepository creates a SQLite-backed AuditRepository.
func NewAuditRepository(db *sql.DB) ports.AuditRepository {
	return &auditRepo{db: db}
}

func (r *auditRepo) Create(ctx context.Context, log *domain.AuditLog) error {
	var sessionID, details any
	if log.SessionID != nil {
		sessionID = log.SessionID.String()
	}
	if log.Details != "" {
		details = log.Details
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO audit_logs (id, session_id, action, resource_type, resource_id, details, ip_address, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		log.ID.String(), sessionID, string(log.Action), log.ResourceType,
		log.ResourceID, details, log.IPAddress, log.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}
