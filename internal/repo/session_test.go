package repo

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
)

var resolveCols = []string{"id", "username", "role", "is_active", "last_seen_at"}

func newTestSessionRepo(db *sql.DB, now time.Time) *SessionRepo {
	r := NewSessionRepo(db, 0)
	r.now = func() time.Time { return now }
	return r
}

func TestSessionRepo_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	mock.ExpectExec(`INSERT INTO sessions \(token, user_id, created_at, last_seen_at, ip, user_agent\)`).
		WithArgs(sqlmock.AnyArg(), 7, now, "10.0.0.1", nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := newTestSessionRepo(db, now)
	token, err := repo.Create(context.Background(), 7, SessionMeta{IP: "10.0.0.1"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(token) < 22 {
		t.Errorf("token too short: %q", token)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestSessionRepo_Create_RegeneratesOnCollision(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	now := time.Now().UTC()
	tokens := []string{"dup-token", "fresh-token"}
	repo := newTestSessionRepo(db, now)
	repo.newToken = func() (string, error) {
		tok := tokens[0]
		tokens = tokens[1:]
		return tok, nil
	}

	mock.ExpectExec(`INSERT INTO sessions`).
		WithArgs("dup-token", 1, now, nil, nil).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "sessions_pkey"})
	mock.ExpectExec(`INSERT INTO sessions`).
		WithArgs("fresh-token", 1, now, nil, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	token, err := repo.Create(context.Background(), 1, SessionMeta{})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if token != "fresh-token" {
		t.Errorf("token: got %q, want fresh-token", token)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestSessionRepo_Create_TwoLoginsTwoTokens(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`INSERT INTO sessions`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO sessions`).WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewSessionRepo(db, 0)
	a, err := repo.Create(context.Background(), 3, SessionMeta{})
	if err != nil {
		t.Fatalf("Create a: %v", err)
	}
	b, err := repo.Create(context.Background(), 3, SessionMeta{})
	if err != nil {
		t.Fatalf("Create b: %v", err)
	}
	if a == b {
		t.Error("two logins for the same user returned the same token")
	}
}

func TestSessionRepo_Create_OtherErrorNotRetried(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`INSERT INTO sessions`).WillReturnError(errors.New("connection refused"))

	repo := NewSessionRepo(db, 0)
	if _, err := repo.Create(context.Background(), 3, SessionMeta{}); err == nil {
		t.Fatal("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestSessionRepo_Resolve(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT u.id, u.username, u.role, u.is_active, s.last_seen_at\s+FROM sessions s\s+JOIN users u`).
		WithArgs("tok").
		WillReturnRows(sqlmock.NewRows(resolveCols).AddRow(1, "admin", "admin", true, now))

	repo := newTestSessionRepo(db, now)
	p, err := repo.Resolve(context.Background(), "tok")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if p == nil || p.ID != 1 || p.Username != "admin" || p.Role != "admin" {
		t.Errorf("unexpected principal: %+v", p)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestSessionRepo_Resolve_InactiveUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectQuery(`FROM sessions s`).
		WithArgs("tok").
		WillReturnRows(sqlmock.NewRows(resolveCols).AddRow(2, "user", "user", false, now))

	repo := newTestSessionRepo(db, now)
	p, err := repo.Resolve(context.Background(), "tok")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if p != nil {
		t.Errorf("inactive user's session resolved to %+v", p)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestSessionRepo_Resolve_Unknown(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`FROM sessions s`).WithArgs("nope").WillReturnError(sql.ErrNoRows)

	repo := NewSessionRepo(db, 0)
	p, err := repo.Resolve(context.Background(), "nope")
	if err != nil || p != nil {
		t.Errorf("Resolve unknown: got (%+v, %v), want (nil, nil)", p, err)
	}
}

func TestSessionRepo_Resolve_StorageError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`FROM sessions s`).WithArgs("tok").WillReturnError(sql.ErrConnDone)

	repo := NewSessionRepo(db, 0)
	if _, err := repo.Resolve(context.Background(), "tok"); !errors.Is(err, sql.ErrConnDone) {
		t.Errorf("expected wrapped ErrConnDone, got %v", err)
	}
}

func TestSessionRepo_Resolve_IdleExpired(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectQuery(`FROM sessions s`).
		WithArgs("old").
		WillReturnRows(sqlmock.NewRows(resolveCols).AddRow(1, "admin", "admin", true, now.Add(-2*time.Hour)))
	mock.ExpectQuery(`FROM sessions s`).
		WithArgs("fresh").
		WillReturnRows(sqlmock.NewRows(resolveCols).AddRow(1, "admin", "admin", true, now.Add(-time.Minute)))

	repo := newTestSessionRepo(db, now)
	repo.MaxIdle = time.Hour
	if p, err := repo.Resolve(context.Background(), "old"); err != nil || p != nil {
		t.Errorf("idle session: got (%+v, %v), want (nil, nil)", p, err)
	}
	if p, err := repo.Resolve(context.Background(), "fresh"); err != nil || p == nil {
		t.Errorf("fresh session: got (%+v, %v)", p, err)
	}
}

func TestSessionRepo_Touch_NeverMovesBackwards(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectExec(`UPDATE sessions SET last_seen_at = GREATEST\(last_seen_at, \$2\), last_path = COALESCE\(\$3, last_path\) WHERE token = \$1`).
		WithArgs("tok", now, "/documents/4/pdf").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE sessions SET last_seen_at = GREATEST`).
		WithArgs("tok", now, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := newTestSessionRepo(db, now)
	if err := repo.Touch(context.Background(), "tok", "/documents/4/pdf"); err != nil {
		t.Fatalf("Touch: %v", err)
	}
	if err := repo.Touch(context.Background(), "tok", ""); err != nil {
		t.Fatalf("Touch without path: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestSessionRepo_Destroy_Idempotent(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`DELETE FROM sessions WHERE token = \$1`).WithArgs("tok").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM sessions WHERE token = \$1`).WithArgs("tok").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`FROM sessions s`).WithArgs("tok").WillReturnError(sql.ErrNoRows)

	repo := NewSessionRepo(db, 0)
	if err := repo.Destroy(context.Background(), "tok"); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	if err := repo.Destroy(context.Background(), "tok"); err != nil {
		t.Fatalf("second Destroy: %v", err)
	}
	if p, err := repo.Resolve(context.Background(), "tok"); err != nil || p != nil {
		t.Errorf("Resolve after Destroy: got (%+v, %v)", p, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestSessionRepo_DeleteIdle(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	cutoff := time.Now().Add(-24 * time.Hour)
	mock.ExpectExec(`DELETE FROM sessions WHERE last_seen_at < \$1`).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 4))

	repo := NewSessionRepo(db, 0)
	n, err := repo.DeleteIdle(context.Background(), cutoff)
	if err != nil || n != 4 {
		t.Errorf("DeleteIdle: got (%d, %v), want (4, nil)", n, err)
	}
}

func TestSessionRepo_Report_HidesToken(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	created := time.Now().Add(-time.Hour)
	mock.ExpectQuery(`FROM sessions s\s+JOIN users u ON u.id = s.user_id\s+ORDER BY s.last_seen_at DESC`).
		WithArgs(100, 0).
		WillReturnRows(sqlmock.NewRows([]string{"token", "user_id", "username", "role", "is_active",
			"created_at", "last_seen_at", "last_path", "ip", "user_agent"}).
			AddRow("abcdefghijklmnop", 1, "admin", "admin", true, created, created.Add(time.Minute), "/admin/users", "127.0.0.1", "curl"))

	repo := NewSessionRepo(db, 0)
	list, err := repo.Report(context.Background(), 100, 0)
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if len(list) != 1 || list[0].TokenPrefix != "abcdefgh" || list[0].LastPath != "/admin/users" {
		t.Errorf("unexpected report: %+v", list)
	}
}
