package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"payledger/internal/domain/auth"
	"payledger/internal/platform/config"
)

// Seed installs the baseline data a fresh deployment needs: default leave
// types, a starter set of salary components and the HR admin login. Every
// step is insert-if-absent so repeated startups are harmless.
func Seed(ctx context.Context, pool *pgxpool.Pool, cfg config.Config) error {
	if err := ensureLeaveTypes(ctx, pool); err != nil {
		return err
	}
	if err := ensureSalaryComponents(ctx, pool); err != nil {
		return err
	}
	if cfg.SeedAdminEmail != "" && cfg.SeedAdminPassword != "" {
		if err := ensureAdminUser(ctx, pool, cfg.SeedAdminEmail, cfg.SeedAdminPassword); err != nil {
			return err
		}
	}
	return nil
}

func ensureLeaveTypes(ctx context.Context, pool *pgxpool.Pool) error {
	defaults := []struct {
		name   string
		days   float64
		isPaid bool
		active bool
	}{
		{"Annual Leave", 20, true, true},
		{"Sick Leave", 10, true, true},
		{"Unpaid Leave", 30, false, true},
	}
	for _, lt := range defaults {
		_, err := pool.Exec(ctx, `
      INSERT INTO leave_types (name, default_days_per_year, is_paid, is_active)
      VALUES ($1,$2,$3,$4)
      ON CONFLICT (name) DO NOTHING
    `, lt.name, lt.days, lt.isPaid, lt.active)
		if err != nil {
			return err
		}
	}
	return nil
}

func ensureSalaryComponents(ctx context.Context, pool *pgxpool.Pool) error {
	defaults := []struct {
		name       string
		ctype      string
		proRatable bool
	}{
		{"Basic Salary", "earning", true},
		{"House Rent Allowance", "earning", true},
		{"Provident Fund", "deduction", false},
		{"Professional Tax", "deduction", false},
	}
	for _, sc := range defaults {
		_, err := pool.Exec(ctx, `
      INSERT INTO salary_components (name, type, pro_ratable, is_active)
      VALUES ($1,$2,$3,true)
      ON CONFLICT (name) DO NOTHING
    `, sc.name, sc.ctype, sc.proRatable)
		if err != nil {
			return err
		}
	}
	return nil
}

func ensureAdminUser(ctx context.Context, pool *pgxpool.Pool, email, password string) error {
	var exists int
	if err := pool.QueryRow(ctx, "SELECT COUNT(1) FROM users WHERE email = $1", email).Scan(&exists); err != nil {
		return err
	}
	if exists > 0 {
		return nil
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	_, err = pool.Exec(ctx, `
    INSERT INTO users (email, password_hash, role)
    VALUES ($1,$2,$3)
    ON CONFLICT (email) DO NOTHING
  `, email, hash, auth.RoleHR)
	return err
}
