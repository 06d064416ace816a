package migration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"
)

type migrationStep struct {
	Name string
	SQL  string
}

var steps = []migrationStep{
	{
		Name: "create_table_requests",
		SQL: `CREATE TABLE IF NOT EXISTS requests (
  id             UUID        PRIMARY KEY,
  client_name    TEXT        NOT NULL,
  contact_handle TEXT        NOT NULL,
  access_token   TEXT        NOT NULL UNIQUE,
  status         TEXT        NOT NULL,
  created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_table_documents",
		SQL: `CREATE TABLE IF NOT EXISTS documents (
  id               UUID        PRIMARY KEY,
  request_id       UUID        NOT NULL REFERENCES requests (id) ON DELETE CASCADE,
  position         INT         NOT NULL,
  doc_type         TEXT        NOT NULL,
  status           TEXT        NOT NULL DEFAULT 'Pending',
  asset_ref        TEXT,
  rejection_reason TEXT,
  submitted_at     TIMESTAMPTZ,
  UNIQUE (request_id, position)
);`,
	},
	{
		Name: "create_index_requests_created_at",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_requests_created_at ON requests (created_at);`,
	},
	{
		Name: "create_index_documents_request_id",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_request_id ON documents (request_id);`,
	},
}

// EnsureMigrated checks whether the 'requests' table exists and runs the
// schema steps if it does not.
func EnsureMigrated(ctx context.Context, db *sql.DB, loc *time.Location, dbHost string) error {
	start := time.Now()

	var exists bool
	query := "SELECT to_regclass('public.requests') IS NOT NULL"
	if err := db.QueryRowContext(ctx, query).Scan(&exists); err != nil {
		logJSON(loc, map[string]any{
			"component":     "database",
			"event":         "db_migration_failed",
			"status":        "error",
			"error_message": fmt.Sprintf("failed to check sentinel table: %v", err),
			"db_host":       dbHost,
		})
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}

	if exists {
		logJSON(loc, map[string]any{
			"component": "database",
			"event":     "db_migration_skip",
			"status":    "success",
			"db_host":   dbHost,
		})
		return nil
	}

	for _, step := range steps {
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			logJSON(loc, map[string]any{
				"component":      "database",
				"event":          "db_migration_failed",
				"status":         "error",
				"migration_step": step.Name,
				"error_message":  err.Error(),
				"db_host":        dbHost,
			})
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}
		logJSON(loc, map[string]any{
			"component":      "database",
			"event":          "db_migration_step",
			"status":         "success",
			"migration_step": step.Name,
			"db_host":        dbHost,
		})
	}

	logJSON(loc, map[string]any{
		"component":   "database",
		"event":       "db_migration_success",
		"status":      "success",
		"db_host":     dbHost,
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return nil
}

func logJSON(loc *time.Location, data map[string]any) {
	data["ts"] = time.Now().In(loc).Format(time.RFC3339Nano)
	if _, ok := data["level"]; !ok {
		if data["status"] == "error" {
			data["level"] = "error"
		} else {
			data["level"] = "info"
		}
	}

	b, err := json.Marshal(data)
	if err != nil {
		log.Printf("failed to marshal migration log: %v", err)
		return
	}
	log.SetFlags(0)
	log.Println(string(b))
}
