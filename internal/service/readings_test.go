package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ANIKETSHETTY47/environmental-sensor-hub/internal/config"
	"github.com/ANIKETSHETTY47/environmental-sensor-hub/internal/domain"
	"github.com/ANIKETSHETTY47/environmental-sensor-hub/internal/repository"
	"github.com/ANIKETSHETTY47/environmental-sensor-hub/internal/simulation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

type recordingArchiver struct{ got []domain.Reading }

func (a *recordingArchiver) ArchiveReading(_ context.Context, r domain.Reading) error {
	a.got = append(a.got, r)
	return nil
}

type recordingNotifier struct {
	device string
	reason error
}

func (n *recordingNotifier) NotifyRejected(_ context.Context, deviceKey, _ string, reason error) error {
	n.device = deviceKey
	n.reason = reason
	return nil
}

func settings() config.Settings {
	return config.Settings{
		ReconcileWindow:     5 * time.Minute,
		SimulationThreshold: 5,
		DefaultLimit:        10,
		MaxLimit:            1000,
	}
}

func newTestServices(t *testing.T, opts ...Option) (*Services, *repository.MemoryStore, *clock) {
	t.Helper()
	c := &clock{t: time.Date(2026, 4, 10, 9, 0, 0, 0, time.UTC)}
	store := repository.NewMemoryStore().WithClock(c.now)
	opts = append([]Option{WithClock(c.now), WithGenerator(simulation.NewGenerator(1))}, opts...)
	return New(store, settings(), opts...), store, c
}

func TestIngest_MissingDevice(t *testing.T) {
	svcs, store, _ := newTestServices(t)

	_, err := svcs.Readings.Ingest(context.Background(), Submission{Values: domain.Values{Temperature: domain.Float(20)}})

	assert.ErrorIs(t, err, domain.ErrMissingField)
	devices, _ := store.ListDevices(context.Background())
	assert.Empty(t, devices)
	assert.Equal(t, int64(1), svcs.Tracker.WeightOf(""))
}

func TestIngest_EmptyPayload(t *testing.T) {
	svcs, _, _ := newTestServices(t)

	_, err := svcs.Readings.Ingest(context.Background(), Submission{DeviceID: "lab"})

	assert.ErrorIs(t, err, domain.ErrEmptyPayload)
	assert.Equal(t, int64(0), svcs.Tracker.TotalFor("lab"))
}

func TestIngest_OutOfRangeRejectsWholeSubmission(t *testing.T) {
	notifier := &recordingNotifier{}
	svcs, store, _ := newTestServices(t, WithNotifier(notifier))

	_, err := svcs.Readings.Ingest(context.Background(), Submission{
		DeviceID: "lab",
		ClientID: "app",
		Values:   domain.Values{Temperature: domain.Float(21), CO2: domain.Float(6000)},
	})

	require.ErrorIs(t, err, domain.ErrOutOfRange)
	assert.Equal(t, "lab", notifier.device)
	assert.ErrorIs(t, notifier.reason, domain.ErrOutOfRange)
	_, ferr := store.FindDevice(context.Background(), "lab")
	assert.ErrorIs(t, ferr, domain.ErrNotFound)
	assert.Equal(t, int64(1), svcs.Tracker.WeightOf("app"))
}

func TestIngest_FirstReadingStoredUnchanged(t *testing.T) {
	archiver := &recordingArchiver{}
	svcs, _, c := newTestServices(t, WithArchiver(archiver))
	ts := c.t.Add(-2 * time.Second)

	got, err := svcs.Readings.Ingest(context.Background(), Submission{
		DeviceID:  "lab",
		ClientID:  "app",
		Timestamp: &ts,
		Values:    domain.Values{Temperature: domain.Float(22.5), Humidity: domain.Float(40)},
	})

	require.NoError(t, err)
	assert.Equal(t, "lab", got.DeviceKey)
	assert.Equal(t, 22.5, *got.Temperature)
	assert.Equal(t, 40.0, *got.Humidity)
	assert.Nil(t, got.CO2)
	assert.Equal(t, &ts, got.ClientTime)
	require.Len(t, archiver.got, 1)
	assert.Equal(t, got.ID, archiver.got[0].ID)

	assert.Equal(t, int64(1), svcs.Tracker.WeightOf("app"))
	assert.Equal(t, int64(1), svcs.Tracker.TotalFor("lab"))
}

func TestIngest_MergesWithinWindow(t *testing.T) {
	svcs, _, c := newTestServices(t)
	ctx := context.Background()

	_, err := svcs.Readings.Ingest(ctx, Submission{DeviceID: "lab", ClientID: "a", Values: domain.Values{Temperature: domain.Float(20), PM10: domain.Float(12)}})
	require.NoError(t, err)

	c.advance(time.Minute)
	got, err := svcs.Readings.Ingest(ctx, Submission{DeviceID: "lab", ClientID: "b", Values: domain.Values{Temperature: domain.Float(22)}})
	require.NoError(t, err)

	assert.InDelta(t, 21.0, *got.Temperature, 1e-9)
	assert.Equal(t, 12.0, *got.PM10)
}

func TestIngest_NoMergeOutsideWindow(t *testing.T) {
	svcs, _, c := newTestServices(t)
	ctx := context.Background()

	_, err := svcs.Readings.Ingest(ctx, Submission{DeviceID: "lab", Values: domain.Values{Temperature: domain.Float(20)}})
	require.NoError(t, err)

	c.advance(6 * time.Minute)
	got, err := svcs.Readings.Ingest(ctx, Submission{DeviceID: "lab", Values: domain.Values{Temperature: domain.Float(24)}})
	require.NoError(t, err)

	assert.Equal(t, 24.0, *got.Temperature)
}

func TestIngest_LegacyPM25Alias(t *testing.T) {
	svcs, _, _ := newTestServices(t)
	ctx := context.Background()

	got, err := svcs.Readings.Ingest(ctx, Submission{DeviceID: "lab", LegacyPM25: domain.Float(14)})
	require.NoError(t, err)
	assert.Equal(t, 14.0, *got.PM25)

	_, err = svcs.Readings.Ingest(ctx, Submission{DeviceID: "lab2", LegacyPM25: domain.Float(900)})
	assert.ErrorIs(t, err, domain.ErrOutOfRange)

	sub := Submission{DeviceID: "lab3", LegacyPM25: domain.Float(1), Values: domain.Values{PM25: domain.Float(2)}}
	assert.Equal(t, 2.0, *sub.values().PM25)
}

func TestFromMQTT(t *testing.T) {
	svcs, _, _ := newTestServices(t)

	got, err := svcs.Readings.FromMQTT(context.Background(), "environment/readings",
		[]byte(`{"device_id":"porch","client_id":"esp32","co2":812,"unknown_field":true}`))

	require.NoError(t, err)
	assert.Equal(t, "porch", got.DeviceKey)
	assert.Equal(t, 812.0, *got.CO2)

	_, err = svcs.Readings.FromMQTT(context.Background(), "environment/readings", []byte(`{not json`))
	assert.Error(t, err)
}

type failingStore struct {
	*repository.MemoryStore
}

func (failingStore) InsertReading(context.Context, *domain.Reading) error {
	return errors.Join(domain.ErrStore, errors.New("disk full"))
}

func TestIngest_StoreFailureLeavesCountersUntouched(t *testing.T) {
	svcs := New(failingStore{repository.NewMemoryStore()}, settings())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := svcs.Readings.Ingest(ctx, Submission{DeviceID: "lab", ClientID: "app", Values: domain.Values{TVOC: domain.Float(100)}})
		require.ErrorIs(t, err, domain.ErrStore)
	}

	assert.Equal(t, int64(0), svcs.Tracker.TotalFor("lab"))
	assert.Equal(t, int64(1), svcs.Tracker.WeightOf("app"))
	assert.Equal(t, int64(1), svcs.Tracker.NextWeight("app"))

	got, err := svcs.Readings.Retrieve(ctx, "lab", 10)
	require.NoError(t, err)
	assert.True(t, got.Simulated)
}

func TestIngest_IncomingWeightCountsCurrentReading(t *testing.T) {
	svcs, _, c := newTestServices(t)
	ctx := context.Background()

	// "b" earns weight 2 with an old reading, then its next submission counts 3
	_, err := svcs.Readings.Ingest(ctx, Submission{DeviceID: "other", ClientID: "b", Values: domain.Values{CO2: domain.Float(500)}})
	require.NoError(t, err)
	_, err = svcs.Readings.Ingest(ctx, Submission{DeviceID: "other2", ClientID: "b", Values: domain.Values{CO2: domain.Float(500)}})
	require.NoError(t, err)

	c.advance(10 * time.Minute)
	_, err = svcs.Readings.Ingest(ctx, Submission{DeviceID: "lab", ClientID: "a", Values: domain.Values{Temperature: domain.Float(10)}})
	require.NoError(t, err)
	got, err := svcs.Readings.Ingest(ctx, Submission{DeviceID: "lab", ClientID: "b", Values: domain.Values{Temperature: domain.Float(30)}})
	require.NoError(t, err)

	// (10*1 + 30*3) / 4
	assert.InDelta(t, 25.0, *got.Temperature, 1e-9)
	assert.Equal(t, int64(3), svcs.Tracker.WeightOf("b"))
}

func TestDeviceKeyNormalizedOnEveryPath(t *testing.T) {
	svcs, _, c := newTestServices(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		c.advance(10 * time.Minute)
		_, err := svcs.Readings.Ingest(ctx, Submission{DeviceID: " lab", Values: domain.Values{Humidity: domain.Float(48)}})
		require.NoError(t, err)
	}

	got, err := svcs.Readings.Retrieve(ctx, " lab ", 10)
	require.NoError(t, err)
	assert.False(t, got.Simulated)
	assert.Equal(t, "lab", got.DeviceID)
	assert.Len(t, got.Readings, 5)
	assert.Equal(t, int64(5), svcs.Devices.Reliability("lab ").Total)
}

func TestRetrieve_SimulatedBelowThreshold(t *testing.T) {
	svcs, _, _ := newTestServices(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := svcs.Readings.Ingest(ctx, Submission{DeviceID: "lab", Values: domain.Values{Humidity: domain.Float(50)}})
		require.NoError(t, err)
	}

	got, err := svcs.Readings.Retrieve(ctx, "lab", 3)
	require.NoError(t, err)
	assert.True(t, got.Simulated)
	assert.Len(t, got.Readings, 3)
	assert.Equal(t, "lab", got.DeviceID)

	unknown, err := svcs.Readings.Retrieve(ctx, "never-seen", 0)
	require.NoError(t, err)
	assert.True(t, unknown.Simulated)
	assert.Len(t, unknown.Readings, 10)
}

func TestRetrieve_RealDataInterpolated(t *testing.T) {
	svcs, _, c := newTestServices(t)
	ctx := context.Background()

	temps := []*float64{domain.Float(10), domain.Float(12), nil, domain.Float(30), domain.Float(18)}
	for _, temp := range temps {
		c.advance(10 * time.Minute)
		_, err := svcs.Readings.Ingest(ctx, Submission{DeviceID: "lab", Values: domain.Values{Temperature: temp, Humidity: domain.Float(45)}})
		require.NoError(t, err)
	}

	got, err := svcs.Readings.Retrieve(ctx, "lab", 10)
	require.NoError(t, err)
	assert.False(t, got.Simulated)
	require.Len(t, got.Readings, 5)
	// newest first: 18, 30, nil -> (30+12)/2, 12, 10
	assert.Equal(t, 18.0, *got.Readings[0].Temperature)
	assert.Equal(t, 21.0, *got.Readings[2].Temperature)
	for _, r := range got.Readings {
		assert.Equal(t, "lab", r.DeviceKey)
	}
}

func TestRetrieve_NotFound(t *testing.T) {
	svcs, store, _ := newTestServices(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		svcs.Tracker.RecordDevice("ghost", true)
	}
	_, err := svcs.Readings.Retrieve(ctx, "ghost", 10)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = store.UpsertDevice(ctx, "ghost")
	require.NoError(t, err)
	_, err = svcs.Readings.Retrieve(ctx, "ghost", 10)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRetrieve_DecrementsReopenSimulation(t *testing.T) {
	svcs, _, c := newTestServices(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		c.advance(10 * time.Minute)
		_, err := svcs.Readings.Ingest(ctx, Submission{DeviceID: "lab", Values: domain.Values{CO2: domain.Float(500)}})
		require.NoError(t, err)
	}
	got, err := svcs.Readings.Retrieve(ctx, "lab", 2)
	require.NoError(t, err)
	assert.False(t, got.Simulated)

	svcs.Tracker.RecordDevice("lab", false)
	got, err = svcs.Readings.Retrieve(ctx, "lab", 2)
	require.NoError(t, err)
	assert.True(t, got.Simulated)
}

func TestResolveLimit(t *testing.T) {
	assert.Equal(t, 10, ResolveLimit(0, 10, 1000))
	assert.Equal(t, 10, ResolveLimit(-3, 10, 1000))
	assert.Equal(t, 10, ResolveLimit(1500, 10, 1000))
	assert.Equal(t, 1000, ResolveLimit(1000, 10, 1000))
	assert.Equal(t, 1, ResolveLimit(1, 10, 1000))
	assert.Equal(t, 10, ResolveLimit(0, 0, 0))
}

func TestDeviceService(t *testing.T) {
	svcs, _, _ := newTestServices(t)
	ctx := context.Background()

	_, err := svcs.Readings.Ingest(ctx, Submission{DeviceID: "lab", Values: domain.Values{CO2: domain.Float(500)}})
	require.NoError(t, err)

	devices, err := svcs.Devices.List(ctx)
	require.NoError(t, err)
	require.Len(t, devices, 1)

	rel := svcs.Devices.Reliability("lab")
	assert.Equal(t, int64(1), rel.P)
	assert.Equal(t, int64(1), rel.Total)
	assert.Equal(t, int64(0), svcs.Devices.Reliability("other").Total)
}
