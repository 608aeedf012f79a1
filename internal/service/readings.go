package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ANIKETSHETTY47/environmental-sensor-hub/internal/config"
	"github.com/ANIKETSHETTY47/environmental-sensor-hub/internal/domain"
	"github.com/ANIKETSHETTY47/environmental-sensor-hub/internal/logging"
	"github.com/ANIKETSHETTY47/environmental-sensor-hub/internal/reconcile"
	"github.com/ANIKETSHETTY47/environmental-sensor-hub/internal/reliability"
	"github.com/ANIKETSHETTY47/environmental-sensor-hub/internal/series"
	"github.com/ANIKETSHETTY47/environmental-sensor-hub/internal/simulation"
	"github.com/ANIKETSHETTY47/environmental-sensor-hub/internal/validator"
)

// Submission is an incoming reading as sent over HTTP or MQTT.
type Submission struct {
	DeviceID  string     `json:"device_id"`
	ClientID  string     `json:"client_id"`
	Timestamp *time.Time `json:"timestamp"`
	// LegacyPM25 is the old name of the pm25 channel. It is folded into
	// PM25 before validation and loses to PM25 when both are sent.
	LegacyPM25 *float64 `json:"pm2_5"`
	domain.Values
}

// values returns the quantities to validate, with the legacy alias applied.
func (s Submission) values() domain.Values {
	v := s.Values.Clone()
	if v.PM25 == nil && s.LegacyPM25 != nil {
		v.Set(domain.FieldPM25, s.LegacyPM25)
	}
	return v
}

// Series is the retrieval result for one device.
type Series struct {
	DeviceID  string           `json:"device_id"`
	Simulated bool             `json:"simulated"`
	Readings  []domain.Reading `json:"readings"`
}

type ReadingService struct {
	store      Store
	tracker    *reliability.Tracker
	validator  *validator.Validator
	reconciler *reconcile.Reconciler
	generator  *simulation.Generator
	archiver   Archiver
	notifier   Notifier
	settings   config.Settings
}

// Ingest validates a submission, reconciles it with the device's latest
// reading inside the window and persists the result.
func (s *ReadingService) Ingest(ctx context.Context, sub Submission) (domain.Reading, error) {
	logger := logging.FromContext(ctx)

	deviceKey := NormalizeKey(sub.DeviceID)
	if deviceKey == "" {
		return domain.Reading{}, fmt.Errorf("device_id is required: %w", domain.ErrMissingField)
	}

	values := sub.values()
	if err := s.validator.Validate(values); err != nil {
		logger.Warn().Err(err).Str("device_id", deviceKey).Str("client_id", sub.ClientID).Msg("reading rejected")
		if errors.Is(err, domain.ErrOutOfRange) && s.notifier != nil {
			if nerr := s.notifier.NotifyRejected(ctx, deviceKey, sub.ClientID, err); nerr != nil {
				logger.Error().Err(nerr).Msg("rejection alert failed")
			}
		}
		return domain.Reading{}, err
	}

	device, err := s.store.UpsertDevice(ctx, deviceKey)
	if err != nil {
		return domain.Reading{}, err
	}

	// counters move only once the reading is stored
	weight := s.tracker.NextWeight(sub.ClientID)
	res, err := s.reconciler.Apply(ctx, device, weight, values, func(ctx context.Context, merged domain.Values) (domain.Reading, error) {
		rd := domain.Reading{
			DeviceID:   device.ID,
			DeviceKey:  device.Key,
			ClientID:   sub.ClientID,
			ClientTime: sub.Timestamp,
			Values:     merged,
		}
		if err := s.store.InsertReading(ctx, &rd); err != nil {
			return domain.Reading{}, err
		}
		s.tracker.RecordClient(sub.ClientID)
		s.tracker.RecordDevice(device.Key, true)
		return rd, nil
	})
	if err != nil {
		logger.Error().Err(err).Str("device_id", device.Key).Msg("ingest failed")
		return domain.Reading{}, err
	}

	logger.Info().
		Str("device_id", device.Key).
		Str("client_id", sub.ClientID).
		Int64("reading_id", res.Reading.ID).
		Bool("merged", res.Merged).
		Int64("partner_id", res.PartnerID).
		Msg("reading stored")

	if s.archiver != nil {
		if err := s.archiver.ArchiveReading(ctx, res.Reading); err != nil {
			logger.Error().Err(err).Int64("reading_id", res.Reading.ID).Msg("archive failed")
		}
	}

	return res.Reading, nil
}

// FromMQTT decodes a JSON submission published on topic and ingests it.
func (s *ReadingService) FromMQTT(ctx context.Context, topic string, payload []byte) (domain.Reading, error) {
	var sub Submission
	if err := json.Unmarshal(payload, &sub); err != nil {
		return domain.Reading{}, fmt.Errorf("decode message on %s: %w", topic, err)
	}
	return s.Ingest(ctx, sub)
}

// Retrieve returns up to limit readings for deviceKey, newest first. Devices
// whose reliability total is below the threshold get synthetic data instead.
func (s *ReadingService) Retrieve(ctx context.Context, deviceKey string, limit int) (Series, error) {
	deviceKey = NormalizeKey(deviceKey)
	limit = ResolveLimit(limit, s.settings.DefaultLimit, s.settings.MaxLimit)

	if simulation.ShouldSimulate(s.tracker.TotalFor(deviceKey), s.settings.SimulationThreshold) {
		return Series{
			DeviceID:  deviceKey,
			Simulated: true,
			Readings:  s.generator.Series(deviceKey, limit),
		}, nil
	}

	device, err := s.store.FindDevice(ctx, deviceKey)
	if err != nil {
		return Series{}, err
	}

	readings, err := s.store.FindReadings(ctx, device.ID, limit)
	if err != nil {
		return Series{}, err
	}
	if len(readings) == 0 {
		return Series{}, fmt.Errorf("no readings for %s: %w", deviceKey, domain.ErrNotFound)
	}

	filled := series.Interpolate(readings)
	for i := range filled {
		filled[i].DeviceKey = device.Key
	}
	return Series{DeviceID: device.Key, Readings: filled}, nil
}

// NormalizeKey is the canonical form of a device key on every path.
func NormalizeKey(key string) string {
	return strings.TrimSpace(key)
}

// ResolveLimit clamps a requested result count: anything outside
// (0, maxLimit] becomes fallback.
func ResolveLimit(requested, fallback, maxLimit int) int {
	if fallback <= 0 {
		fallback = 10
	}
	if maxLimit <= 0 {
		maxLimit = 1000
	}
	if requested <= 0 || requested > maxLimit {
		return fallback
	}
	return requested
}
