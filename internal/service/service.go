package service

import (
	"context"
	"time"

	"github.com/ANIKETSHETTY47/environmental-sensor-hub/internal/config"
	"github.com/ANIKETSHETTY47/environmental-sensor-hub/internal/domain"
	"github.com/ANIKETSHETTY47/environmental-sensor-hub/internal/reconcile"
	"github.com/ANIKETSHETTY47/environmental-sensor-hub/internal/reliability"
	"github.com/ANIKETSHETTY47/environmental-sensor-hub/internal/simulation"
	"github.com/ANIKETSHETTY47/environmental-sensor-hub/internal/validator"
)

// Store is the persistence contract. repository.Repos, repository.MemoryStore
// and cloud.DynamoDBStore implement it.
type Store interface {
	UpsertDevice(ctx context.Context, key string) (domain.Device, error)
	FindDevice(ctx context.Context, key string) (domain.Device, error)
	ListDevices(ctx context.Context) ([]domain.Device, error)
	InsertReading(ctx context.Context, rd *domain.Reading) error
	FindRecentReadings(ctx context.Context, deviceID int64, since time.Time) ([]domain.Reading, error)
	FindReadings(ctx context.Context, deviceID int64, limit int) ([]domain.Reading, error)
}

// Archiver copies accepted readings to long-term storage.
type Archiver interface {
	ArchiveReading(ctx context.Context, r domain.Reading) error
}

// Notifier is told about submissions rejected for out-of-range values.
type Notifier interface {
	NotifyRejected(ctx context.Context, deviceKey, clientID string, reason error) error
}

type Services struct {
	Store    Store
	Tracker  *reliability.Tracker
	Readings *ReadingService
	Devices  *DeviceService
}

type Option func(*ReadingService)

func WithArchiver(a Archiver) Option { return func(s *ReadingService) { s.archiver = a } }
func WithNotifier(n Notifier) Option { return func(s *ReadingService) { s.notifier = n } }

// WithGenerator replaces the synthetic data source.
func WithGenerator(g *simulation.Generator) Option {
	return func(s *ReadingService) { s.generator = g }
}

// WithClock sets the time source used for the reconciliation window.
func WithClock(now func() time.Time) Option {
	return func(s *ReadingService) { s.reconciler.WithClock(now) }
}

func New(store Store, settings config.Settings, opts ...Option) *Services {
	tracker := reliability.NewTracker()
	readings := &ReadingService{
		store:      store,
		tracker:    tracker,
		validator:  validator.NewValidator(),
		reconciler: reconcile.New(store, tracker, settings.ReconcileWindow),
		generator:  simulation.NewGenerator(time.Now().UnixNano()),
		settings:   settings,
	}
	if readings.settings.SimulationThreshold == 0 {
		readings.settings.SimulationThreshold = simulation.DefaultThreshold
	}
	for _, opt := range opts {
		opt(readings)
	}

	return &Services{
		Store:    store,
		Tracker:  tracker,
		Readings: readings,
		Devices:  &DeviceService{store: store, tracker: tracker},
	}
}
