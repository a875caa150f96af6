package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/frahmantamala/leave-management/internal"
	coreuser "github.com/frahmantamala/leave-management/internal/core/user"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

const seedPassword = "password"

type seedUser struct {
	ID           string `db:"id"`
	Name         string `db:"name"`
	Email        string `db:"email"`
	PasswordHash string `db:"password_hash"`
	Role         string `db:"role"`
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with sample users and leave requests for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		db, err := initSQLX(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		defer db.Close()

		ctx := context.Background()
		if clearData {
			for _, table := range []string{"leave_requests", "users"} {
				if _, err := db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
					log.Fatalf("failed to clear %s: %v", table, err)
				}
			}
			fmt.Println("Cleared existing users and leave requests")
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(seedPassword), cfg.Security.BCryptCost)
		if err != nil {
			log.Fatalf("failed to hash seed password: %v", err)
		}

		users := []seedUser{
			{Name: "Fadhil", Email: "fadhil@mail.com", Role: string(coreuser.RoleEmployee)},
			{Name: "Rani", Email: "rani@mail.com", Role: string(coreuser.RoleEmployee)},
			{Name: "Padil Admin", Email: "padil@mail.com", Role: string(coreuser.RoleAdmin)},
		}

		ids := make(map[string]string, len(users))
		for _, u := range users {
			var existing string
			err := db.GetContext(ctx, &existing, "SELECT id FROM users WHERE email = $1", u.Email)
			if err == nil {
				fmt.Println("user already exists:", u.Email)
				ids[u.Email] = existing
				continue
			}

			u.ID = uuid.NewString()
			u.PasswordHash = string(hash)
			_, err = db.NamedExecContext(ctx,
				`INSERT INTO users (id, name, email, password_hash, role, created_at, updated_at)
				 VALUES (:id, :name, :email, :password_hash, :role, now(), now())`, u)
			if err != nil {
				log.Fatalf("failed to insert user %s: %v", u.Email, err)
			}
			ids[u.Email] = u.ID
			fmt.Printf("Seeded %s user: %s\n", u.Role, u.Email)
		}

		start := time.Now().AddDate(0, 0, 7).Truncate(24 * time.Hour)
		leaves := []struct {
			Email  string
			Type   string
			Days   int
			Reason string
		}{
			{"fadhil@mail.com", "annual", 3, "family holiday"},
			{"rani@mail.com", "sick", 1, "medical appointment"},
		}

		for _, l := range leaves {
			var count int
			if err := db.GetContext(ctx, &count, "SELECT COUNT(*) FROM leave_requests WHERE employee_id = $1", ids[l.Email]); err != nil {
				log.Fatalf("failed to count leave requests: %v", err)
			}
			if count > 0 {
				continue
			}

			_, err := db.ExecContext(ctx,
				`INSERT INTO leave_requests (id, employee_id, from_date, to_date, type, reason, status, created_at, updated_at)
				 VALUES ($1, $2, $3, $4, $5, $6, 'Pending', now(), now())`,
				uuid.NewString(), ids[l.Email], start, start.AddDate(0, 0, l.Days-1), l.Type, l.Reason)
			if err != nil {
				log.Fatalf("failed to insert leave request for %s: %v", l.Email, err)
			}
			fmt.Printf("Seeded %s leave for %s\n", l.Type, l.Email)
		}

		fmt.Println("Seed complete; every seeded user logs in with password:", seedPassword)
	},
}

// initSQLX opens a plain pgx-backed connection for raw SQL tooling.
func initSQLX(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	db, err := sqlx.Connect(driver, cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	return db, nil
}
