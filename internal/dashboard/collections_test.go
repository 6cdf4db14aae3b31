package dashboard

import (
	"fmt"
	"testing"
)

func TestMarkerSetEvictsOldestInserted(t *testing.T) {
	s := NewMarkerSet(3)
	for i := 1; i <= 3; i++ {
		s = s.Upsert(Marker{PilgrimID: fmt.Sprintf("P%d", i)})
	}
	// Touching P1 keeps its position, so it is still the oldest.
	s = s.Upsert(Marker{PilgrimID: "P1", Temp: 40})
	s = s.Upsert(Marker{PilgrimID: "P4"})
	if s.Len() != 3 {
		t.Fatalf("expected 3 markers, got %d", s.Len())
	}
	if _, ok := s.Get("P1"); ok {
		t.Fatalf("expected P1 evicted")
	}
	var ids []string
	for _, m := range s.Markers() {
		ids = append(ids, m.PilgrimID)
	}
	if fmt.Sprint(ids) != "[P2 P3 P4]" {
		t.Fatalf("unexpected order %v", ids)
	}
}

func TestMarkerSetCopyOnWrite(t *testing.T) {
	a := NewMarkerSet(2).Upsert(Marker{PilgrimID: "P1"})
	b := a.Upsert(Marker{PilgrimID: "P2"})
	c := b.Upsert(Marker{PilgrimID: "P3"})
	if a.Len() != 1 || b.Len() != 2 || c.Len() != 2 {
		t.Fatalf("sizes: %d %d %d", a.Len(), b.Len(), c.Len())
	}
	if _, ok := b.Get("P1"); !ok {
		t.Fatalf("eviction in c leaked into b")
	}
}

func TestActionLogCopyOnWrite(t *testing.T) {
	a := NewActionLog(2).Push(LogEntry{Description: "one"})
	b := a.Push(LogEntry{Description: "two"})
	c := b.Push(LogEntry{Description: "three"})
	if a.Len() != 1 || b.Len() != 2 || c.Len() != 2 {
		t.Fatalf("sizes: %d %d %d", a.Len(), b.Len(), c.Len())
	}
	if b.Entries()[1].Description != "one" || c.Entries()[0].Description != "three" || c.Entries()[1].Description != "two" {
		t.Fatalf("unexpected contents: %v %v", b.Entries(), c.Entries())
	}
	if c.Clear().Len() != 0 || c.Clear().Cap() != 2 {
		t.Fatalf("clear lost capacity")
	}
}
