package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ANIKETSHETTY47/environmental-sensor-hub/internal/domain"
	"github.com/jmoiron/sqlx"
)

// Repos is the Postgres-backed store. Receipt times are assigned here, not
// by the database, so the reconciliation window and received_at share a clock.
type Repos struct {
	db    *sqlx.DB
	clock *receiptClock
}

func New(db *sqlx.DB) *Repos { return &Repos{db: db, clock: newReceiptClock()} }

// WithClock swaps the time source, for tests.
func (r *Repos) WithClock(now func() time.Time) *Repos {
	r.clock.now = now
	return r
}

// receivedAt is the next receipt stamp at the column's microsecond precision.
func (r *Repos) receivedAt() time.Time {
	return r.clock.next().Truncate(time.Microsecond)
}

const readingColumns = `r.id, r.device_id, d.device_key, r.client_id, r.received_at, r.client_time,
	r.temperature, r.humidity, r.pm25, r.pm10, r.co2, r.tvoc`

func storeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrStore, op, err)
}

// UpsertDevice creates the device on first sight, otherwise refreshes its
// last activity time.
func (r *Repos) UpsertDevice(ctx context.Context, key string) (domain.Device, error) {
	var d domain.Device
	err := r.db.GetContext(ctx, &d, `
		INSERT INTO devices (device_key) VALUES ($1)
		ON CONFLICT (device_key) DO UPDATE SET last_seen_at = now()
		RETURNING id, device_key, created_at, last_seen_at`, key)
	if err != nil {
		return domain.Device{}, storeErr("upsert device", err)
	}
	return d, nil
}

func (r *Repos) FindDevice(ctx context.Context, key string) (domain.Device, error) {
	var d domain.Device
	err := r.db.GetContext(ctx, &d, `SELECT id, device_key, created_at, last_seen_at FROM devices WHERE device_key = $1`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Device{}, fmt.Errorf("device %s: %w", key, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Device{}, storeErr("find device", err)
	}
	return d, nil
}

func (r *Repos) ListDevices(ctx context.Context) ([]domain.Device, error) {
	var out []domain.Device
	if err := r.db.SelectContext(ctx, &out, `SELECT id, device_key, created_at, last_seen_at FROM devices ORDER BY id`); err != nil {
		return nil, storeErr("list devices", err)
	}
	return out, nil
}

// InsertReading persists rd and fills in its id and receipt time.
func (r *Repos) InsertReading(ctx context.Context, rd *domain.Reading) error {
	receivedAt := r.receivedAt()
	row := r.db.QueryRowxContext(ctx, `
		INSERT INTO readings (device_id, client_id, received_at, client_time, temperature, humidity, pm25, pm10, co2, tvoc)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`,
		rd.DeviceID, rd.ClientID, receivedAt, rd.ClientTime,
		rd.Temperature, rd.Humidity, rd.PM25, rd.PM10, rd.CO2, rd.TVOC)
	if err := row.Scan(&rd.ID); err != nil {
		return storeErr("insert reading", err)
	}
	rd.ReceivedAt = receivedAt
	return nil
}

func (r *Repos) FindRecentReadings(ctx context.Context, deviceID int64, since time.Time) ([]domain.Reading, error) {
	var out []domain.Reading
	err := r.db.SelectContext(ctx, &out, `
		SELECT `+readingColumns+`
		FROM readings r JOIN devices d ON d.id = r.device_id
		WHERE r.device_id = $1 AND r.received_at >= $2
		ORDER BY r.received_at DESC, r.id DESC`, deviceID, since)
	if err != nil {
		return nil, storeErr("find recent readings", err)
	}
	return out, nil
}

func (r *Repos) FindReadings(ctx context.Context, deviceID int64, limit int) ([]domain.Reading, error) {
	var out []domain.Reading
	err := r.db.SelectContext(ctx, &out, `
		SELECT `+readingColumns+`
		FROM readings r JOIN devices d ON d.id = r.device_id
		WHERE r.device_id = $1
		ORDER BY r.received_at DESC, r.id DESC
		LIMIT $2`, deviceID, limit)
	if err != nil {
		return nil, storeErr("find readings", err)
	}
	return out, nil
}
