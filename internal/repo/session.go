package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/crucial707/ndt-dochub/internal/auth"
	"github.com/crucial707/ndt-dochub/internal/models"
)

// maxTokenAttempts bounds regeneration after a token primary-key collision.
const maxTokenAttempts = 5

// SessionMeta is request context recorded with a new session.
type SessionMeta struct {
	IP        string
	UserAgent string
}

// SessionRepo is the persistent session store. Tokens are opaque and unique
// (primary key); a session resolves only while its user is active.
type SessionRepo struct {
	DB *sql.DB

	// MaxIdle, when positive, makes sessions unseen for longer resolve as none.
	MaxIdle time.Duration

	now      func() time.Time
	newToken func() (string, error)
}

func NewSessionRepo(db *sql.DB, maxIdle time.Duration) *SessionRepo {
	return &SessionRepo{DB: db, MaxIdle: maxIdle, now: time.Now, newToken: auth.NewToken}
}

func (r *SessionRepo) clock() time.Time {
	if r.now == nil {
		return time.Now().UTC()
	}
	return r.now().UTC()
}

func (r *SessionRepo) generate() (string, error) {
	if r.newToken == nil {
		return auth.NewToken()
	}
	return r.newToken()
}

// Create inserts a new session for userID and returns its token. Every call
// yields a distinct session; sessions are never reused across logins.
func (r *SessionRepo) Create(ctx context.Context, userID int, meta SessionMeta) (string, error) {
	now := r.clock()
	for attempt := 1; attempt <= maxTokenAttempts; attempt++ {
		token, err := r.generate()
		if err != nil {
			return "", err
		}
		_, err = r.DB.ExecContext(ctx,
			`INSERT INTO sessions (token, user_id, created_at, last_seen_at, ip, user_agent) VALUES ($1, $2, $3, $3, $4, $5)`,
			token, userID, now, nullString(meta.IP), nullString(meta.UserAgent),
		)
		if err == nil {
			return token, nil
		}
		if !isUniqueViolation(err) {
			return "", fmt.Errorf("create session: %w", err)
		}
	}
	return "", fmt.Errorf("create session: token collision after %d attempts", maxTokenAttempts)
}

// Resolve returns the principal owning token, or nil when the token is
// unknown, its user is inactive, or it has been idle past MaxIdle.
func (r *SessionRepo) Resolve(ctx context.Context, token string) (*auth.Principal, error) {
	query := `
		SELECT u.id, u.username, u.role, u.is_active, s.last_seen_at
		FROM sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.token = $1
	`
	var p auth.Principal
	var active bool
	var lastSeen time.Time
	err := r.DB.QueryRowContext(ctx, query, token).Scan(&p.ID, &p.Username, &p.Role, &active, &lastSeen)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("resolve session: %w", err)
	}
	if !active {
		return nil, nil
	}
	if r.MaxIdle > 0 && r.clock().Sub(lastSeen) > r.MaxIdle {
		return nil, nil
	}
	return &p, nil
}

// Touch moves last_seen_at forward to now and records path when non-empty.
// GREATEST keeps last_seen_at from moving backwards under racing updates.
func (r *SessionRepo) Touch(ctx context.Context, token, path string) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE sessions SET last_seen_at = GREATEST(last_seen_at, $2), last_path = COALESCE($3, last_path) WHERE token = $1`,
		token, r.clock(), nullString(path),
	)
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	return nil
}

// Destroy deletes the session. Unknown tokens are not an error.
func (r *SessionRepo) Destroy(ctx context.Context, token string) error {
	if _, err := r.DB.ExecContext(ctx, `DELETE FROM sessions WHERE token = $1`, token); err != nil {
		return fmt.Errorf("destroy session: %w", err)
	}
	return nil
}

// DeleteIdle removes sessions last seen before the cutoff and returns how many went.
func (r *SessionRepo) DeleteIdle(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.DB.ExecContext(ctx, `DELETE FROM sessions WHERE last_seen_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("delete idle sessions: %w", err)
	}
	return result.RowsAffected()
}

// Report lists current sessions with their users, most recently seen first.
// DurationSeconds is left for the caller to compute.
func (r *SessionRepo) Report(ctx context.Context, limit, offset int) ([]models.SessionReport, error) {
	query := `
		SELECT s.token, s.user_id, u.username, u.role, u.is_active, s.created_at, s.last_seen_at,
		       COALESCE(s.last_path, ''), COALESCE(s.ip, ''), COALESCE(s.user_agent, '')
		FROM sessions s
		JOIN users u ON u.id = s.user_id
		ORDER BY s.last_seen_at DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.DB.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("session report: %w", err)
	}
	defer rows.Close()

	list := []models.SessionReport{}
	for rows.Next() {
		var s models.SessionReport
		var token string
		if err := rows.Scan(&token, &s.UserID, &s.Username, &s.Role, &s.IsActive, &s.CreatedAt, &s.LastSeenAt,
			&s.LastPath, &s.IP, &s.UserAgent); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		s.TokenPrefix = auth.TokenPrefix(token)
		list = append(list, s)
	}
	return list, rows.Err()
}
