package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/crucial707/ndt-dochub/internal/models"
)

// AuditRepo persists audit log entries. Rows are append-only.
type AuditRepo struct {
	db *sql.DB
}

// NewAuditRepo returns a new AuditRepo.
func NewAuditRepo(db *sql.DB) *AuditRepo {
	return &AuditRepo{db: db}
}

// Insert appends one entry. userID and role are NULL when nil; metadata must be a JSON object.
func (r *AuditRepo) Insert(ctx context.Context, userID *int, role *string, actionType string, metadata []byte) error {
	if len(metadata) == 0 {
		metadata = []byte("{}")
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO audit_logs (user_id, role, action_type, metadata) VALUES ($1, $2, $3, $4)`,
		userID, role, actionType, metadata,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// List returns entries matching f, newest first.
func (r *AuditRepo) List(ctx context.Context, f models.AuditFilter) ([]models.AuditEntry, error) {
	query := `
		SELECT a.id, a.user_id, COALESCE(u.username, ''), a.role, a.action_type, a.metadata, a.created_at
		FROM audit_logs a
		LEFT JOIN users u ON u.id = a.user_id
		WHERE ($1 = '' OR a.action_type = $1)
		  AND ($2 = 0 OR a.user_id = $2)
		ORDER BY a.created_at DESC, a.id DESC
		LIMIT $3 OFFSET $4
	`
	rows, err := r.db.QueryContext(ctx, query, f.ActionType, f.UserID, f.Limit, f.Offset)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	entries := []models.AuditEntry{}
	for rows.Next() {
		var e models.AuditEntry
		var userID sql.NullInt64
		var role sql.NullString
		var meta []byte
		if err := rows.Scan(&e.ID, &userID, &e.Username, &role, &e.ActionType, &meta, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		if userID.Valid {
			id := int(userID.Int64)
			e.UserID = &id
		}
		if role.Valid {
			e.Role = &role.String
		}
		if len(meta) > 0 {
			e.Metadata = json.RawMessage(meta)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
