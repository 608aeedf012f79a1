package domain

import "time"

type Device struct {
	ID         int64     `db:"id" json:"-"`
	Key        string    `db:"device_key" json:"device_id"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	LastSeenAt time.Time `db:"last_seen_at" json:"last_seen_at"`
}

// Values is the closed set of physical quantities a reading may carry.
// A nil field means the sensor did not report that channel.
type Values struct {
	Temperature *float64 `db:"temperature" json:"temperature"`
	Humidity    *float64 `db:"humidity" json:"humidity"`
	PM25        *float64 `db:"pm25" json:"pm25"`
	PM10        *float64 `db:"pm10" json:"pm10"`
	CO2         *float64 `db:"co2" json:"co2"`
	TVOC        *float64 `db:"tvoc" json:"tvoc"`
}

type Reading struct {
	ID         int64      `db:"id" json:"id"`
	DeviceID   int64      `db:"device_id" json:"-"`
	DeviceKey  string     `db:"device_key" json:"device_id"`
	ClientID   string     `db:"client_id" json:"client_id,omitempty"`
	ReceivedAt time.Time  `db:"received_at" json:"received_at"`
	ClientTime *time.Time `db:"client_time" json:"timestamp,omitempty"`
	Values
}

// Float returns a pointer to v, handy for building Values literals.
func Float(v float64) *float64 { return &v }
