package database

import (
	"context"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
)

func Connect(dsn string) (*sqlx.DB, error) {
	return sqlx.Connect("pgx", dsn)
}

// schema is idempotent so Migrate can run on every start.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS devices (
		id           BIGSERIAL PRIMARY KEY,
		device_key   TEXT NOT NULL UNIQUE,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
		last_seen_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS readings (
		id          BIGSERIAL PRIMARY KEY,
		device_id   BIGINT NOT NULL REFERENCES devices(id) ON DELETE CASCADE,
		client_id   TEXT NOT NULL DEFAULT '',
		received_at TIMESTAMPTZ NOT NULL,
		client_time TIMESTAMPTZ,
		temperature DOUBLE PRECISION,
		humidity    DOUBLE PRECISION,
		pm25        DOUBLE PRECISION,
		pm10        DOUBLE PRECISION,
		co2         DOUBLE PRECISION,
		tvoc        DOUBLE PRECISION
	)`,
	`CREATE INDEX IF NOT EXISTS readings_device_received_idx ON readings (device_id, received_at DESC)`,
}

func Migrate(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
