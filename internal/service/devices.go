package service

import (
	"context"

	"github.com/ANIKETSHETTY47/environmental-sensor-hub/internal/domain"
	"github.com/ANIKETSHETTY47/environmental-sensor-hub/internal/reliability"
)

type DeviceService struct {
	store   Store
	tracker *reliability.Tracker
}

// Reliability is the device counter as exposed over the API.
type Reliability struct {
	DeviceID string `json:"device_id"`
	reliability.PNCounter
	Total int64 `json:"total"`
}

func (s *DeviceService) List(ctx context.Context) ([]domain.Device, error) {
	return s.store.ListDevices(ctx)
}

// Reliability reports the device's counter. Unknown devices are not an
// error: their counter is simply zero.
func (s *DeviceService) Reliability(deviceKey string) Reliability {
	deviceKey = NormalizeKey(deviceKey)
	c := s.tracker.Snapshot(deviceKey)
	return Reliability{DeviceID: deviceKey, PNCounter: c, Total: c.Value()}
}
