package core

import (
	"testing"

	"pkt.systems/navygator/schema"
)

func TestIDMinterIsStrictlyIncreasing(t *testing.T) {
	m := newIDMinter(fixedClock(100))
	a := m.next(nil)
	b := m.next(nil)
	if a != 100 || b != 101 {
		t.Fatalf("expected 100 then 101, got %d %d", a, b)
	}
}

func TestIDMinterStaysAboveExisting(t *testing.T) {
	m := newIDMinter(fixedClock(5))
	id := m.next([]schema.Tab{{ID: 50}, {ID: 7}})
	if id != 51 {
		t.Fatalf("expected 51, got %d", id)
	}
}
