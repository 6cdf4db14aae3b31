package telemetry

import (
	"fmt"
	"math"
	"math/rand"
	"time"
)

// DefaultStart is the simulated start of the pilgrimage day.
var DefaultStart = time.Date(2025, 6, 15, 8, 0, 0, 0, time.UTC)

// Anomaly rates applied per generated record.
const (
	heatRate      = 0.02
	violationRate = 0.05
	sosRate       = 0.005
	lostRate      = 0.01
)

// Generator produces a synthetic bracelet dataset.
type Generator struct {
	rng   *rand.Rand
	start time.Time
}

// NewGenerator creates a generator seeded with seed. A zero start uses
// DefaultStart.
func NewGenerator(seed int64, start time.Time) *Generator {
	if start.IsZero() {
		start = DefaultStart
	}
	return &Generator{rng: rand.New(rand.NewSource(seed)), start: start}
}

// Generate returns n readings in timestamp order. Pilgrim ids are P00001..Pn;
// most readings are nominal with occasional heat, route, SOS and lost-person
// anomalies.
func (g *Generator) Generate(n int) []Reading {
	if n <= 0 {
		return nil
	}
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("P%05d", i+1)
	}

	rows := make([]Reading, 0, n)
	ts := g.start
	for i := 0; i < n; i++ {
		ts = ts.Add(time.Duration(g.rng.Intn(10)+1) * time.Second)

		temp := g.normal(38, 2)
		ground := Locations[g.rng.Intn(len(Locations))]
		nusuk := ground
		var sos bool
		var lost string

		if g.rng.Float64() < heatRate {
			temp = g.normal(46, 1)
		}
		if g.rng.Float64() < violationRate {
			nusuk = g.otherLocation(ground)
		}
		if g.rng.Float64() < sosRate {
			sos = true
		}
		if g.rng.Float64() < lostRate {
			lost = ids[g.rng.Intn(len(ids))]
		}

		rows = append(rows, Reading{
			Timestamp: FormatTimestamp(ts),
			PilgrimID: ids[i%len(ids)],
			Temp:      math.Round(temp*100) / 100,
			Ground:    ground,
			Nusuk:     nusuk,
			SOS:       sos,
			LostID:    lost,
		})
	}
	return rows
}

func (g *Generator) normal(mean, stddev float64) float64 {
	return g.rng.NormFloat64()*stddev + mean
}

func (g *Generator) otherLocation(exclude string) string {
	others := make([]string, 0, len(Locations)-1)
	for _, l := range Locations {
		if l != exclude {
			others = append(others, l)
		}
	}
	return others[g.rng.Intn(len(others))]
}
