package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/crucial707/ndt-dochub/internal/auth"
)

type seedManufacturer struct {
	name, primary, secondary string
}

type seedUser struct {
	username, password, role string
}

var defaultManufacturers = []seedManufacturer{
	{"Boeing", "#0b3d91", "#dce7f7"},
	{"Airbus", "#00205b", "#e5eef9"},
	{"Other", "#2f855a", "#e6fffa"},
}

var defaultUsers = []seedUser{
	{"admin", "admin123", auth.RoleAdmin},
	{"user", "user123", auth.RoleUser},
}

// Seed inserts the default manufacturers and accounts into tables that are empty.
// Non-empty tables are left alone, so Seed is safe on every boot.
func Seed(ctx context.Context, db *sql.DB, hasher *auth.Hasher) error {
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM manufacturers`).Scan(&n); err != nil {
		return fmt.Errorf("count manufacturers: %w", err)
	}
	if n == 0 {
		for _, m := range defaultManufacturers {
			if _, err := db.ExecContext(ctx,
				`INSERT INTO manufacturers (name, theme_primary, theme_secondary) VALUES ($1, $2, $3)`,
				m.name, m.primary, m.secondary,
			); err != nil {
				return fmt.Errorf("seed manufacturer %s: %w", m.name, err)
			}
		}
		slog.Info("seeded manufacturers", "count", len(defaultManufacturers))
	}

	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if n == 0 {
		for _, u := range defaultUsers {
			hash, err := hasher.Hash(u.password)
			if err != nil {
				return fmt.Errorf("hash seed password: %w", err)
			}
			if _, err := db.ExecContext(ctx,
				`INSERT INTO users (username, password_hash, role, is_active) VALUES ($1, $2, $3, true)`,
				u.username, hash, u.role,
			); err != nil {
				return fmt.Errorf("seed user %s: %w", u.username, err)
			}
		}
		slog.Warn("seeded default accounts; change their passwords", "usernames", []string{"admin", "user"})
	}
	return nil
}
