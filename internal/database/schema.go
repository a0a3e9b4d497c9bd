package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema creates the users and tasks tables if they are missing.  email
// uses a binary collation so uniqueness and lookups are case-sensitive.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            CHAR(36)     NOT NULL PRIMARY KEY,
		name          VARCHAR(100) NOT NULL,
		email         VARCHAR(150) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		created_at    DATETIME(3)  NOT NULL,
		updated_at    DATETIME(3)  NOT NULL,
		UNIQUE KEY uq_users_email (email)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS tasks (
		id          CHAR(36)     NOT NULL PRIMARY KEY,
		title       VARCHAR(100) NOT NULL,
		description VARCHAR(500) NULL,
		status      ENUM('pending','in_progress','completed') NOT NULL DEFAULT 'pending',
		priority    ENUM('low','medium','high') NULL DEFAULT 'medium',
		due_date    DATETIME(3)  NULL,
		created_by  CHAR(36)     NOT NULL,
		created_at  DATETIME(3)  NOT NULL,
		updated_at  DATETIME(3)  NOT NULL,
		KEY idx_tasks_owner_status (created_by, status),
		KEY idx_tasks_owner_due (created_by, due_date),
		KEY idx_tasks_owner_created (created_by, created_at),
		CONSTRAINT fk_tasks_owner FOREIGN KEY (created_by) REFERENCES users (id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate applies the schema.  Statements are idempotent.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i+1, err)
		}
	}
	return nil
}
