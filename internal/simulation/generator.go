package simulation

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/ANIKETSHETTY47/environmental-sensor-hub/internal/domain"
)

// DefaultThreshold is the device reliability total below which stored data
// is replaced by synthetic readings.
const DefaultThreshold int64 = 5

type bounds struct {
	min, max float64
	decimals int
}

// plausible indoor conditions
var ranges = map[domain.Field]bounds{
	domain.FieldTemperature: {20, 30, 2},
	domain.FieldHumidity:    {40, 70, 2},
	domain.FieldPM25:        {5, 35, 2},
	domain.FieldPM10:        {10, 50, 2},
	domain.FieldCO2:         {400, 1000, 0},
	domain.FieldTVOC:        {50, 300, 0},
}

// Generator produces synthetic readings. It is safe for concurrent use.
type Generator struct {
	mu  sync.Mutex
	rnd *rand.Rand
	now func() time.Time
}

func NewGenerator(seed int64) *Generator {
	return &Generator{rnd: rand.New(rand.NewSource(seed)), now: time.Now}
}

// WithClock swaps the time source, for tests.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Values draws every quantity uniformly from its plausible range.
func (g *Generator) Values() domain.Values {
	g.mu.Lock()
	defer g.mu.Unlock()

	var v domain.Values
	for _, f := range domain.Fields {
		b := ranges[f]
		x := round(b.min+g.rnd.Float64()*(b.max-b.min), b.decimals)
		v.Set(f, &x)
	}
	return v
}

// Series returns count synthetic readings for deviceKey, one minute apart,
// newest first.
func (g *Generator) Series(deviceKey string, count int) []domain.Reading {
	now := g.now()
	out := make([]domain.Reading, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, domain.Reading{
			DeviceKey:  deviceKey,
			ReceivedAt: now.Add(-time.Duration(i) * time.Minute),
			Values:     g.Values(),
		})
	}
	return out
}

// ShouldSimulate reports whether a device's reliability total is too low to
// trust its stored readings.
func ShouldSimulate(total, threshold int64) bool {
	return total < threshold
}

func round(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}
