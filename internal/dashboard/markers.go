package dashboard

import "pilgrimwatch/internal/telemetry"

// Marker is the last known status of one bracelet.
type Marker struct {
	PilgrimID string
	Level     telemetry.AlertLevel
	Temp      float64
	Timestamp string
}

// MarkerSet is a fixed-capacity map ordered by first insertion. When full,
// inserting a new pilgrim evicts the oldest one. Upsert returns a new set and
// leaves the receiver untouched.
type MarkerSet struct {
	order    []string
	byID     map[string]Marker
	capacity int
}

// NewMarkerSet returns an empty set holding at most capacity markers.
func NewMarkerSet(capacity int) MarkerSet {
	if capacity < 1 {
		capacity = 1
	}
	return MarkerSet{capacity: capacity}
}

// Upsert stores m under its pilgrim id. An existing key keeps its position.
func (s MarkerSet) Upsert(m Marker) MarkerSet {
	byID := make(map[string]Marker, len(s.byID)+1)
	for k, v := range s.byID {
		byID[k] = v
	}
	if _, ok := s.byID[m.PilgrimID]; ok {
		byID[m.PilgrimID] = m
		return MarkerSet{order: s.order, byID: byID, capacity: s.capacity}
	}
	order := s.order
	if len(order) >= s.capacity {
		drop := len(order) - s.capacity + 1
		for _, id := range order[:drop] {
			delete(byID, id)
		}
		order = order[drop:]
	}
	next := make([]string, 0, len(order)+1)
	next = append(next, order...)
	next = append(next, m.PilgrimID)
	byID[m.PilgrimID] = m
	return MarkerSet{order: next, byID: byID, capacity: s.capacity}
}

// Get looks up a pilgrim.
func (s MarkerSet) Get(id string) (Marker, bool) {
	m, ok := s.byID[id]
	return m, ok
}

// Markers returns the markers oldest first.
func (s MarkerSet) Markers() []Marker {
	out := make([]Marker, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}

// Len returns the number of retained markers.
func (s MarkerSet) Len() int { return len(s.order) }

// Cap returns the capacity.
func (s MarkerSet) Cap() int { return s.capacity }
