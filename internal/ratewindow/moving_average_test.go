package ratewindow

import "testing"

func TestMovingAverage_EmptyIsZero(t *testing.T) {
	m := New(10)
	if rate := m.RatePerSecond(); rate != 0 {
		t.Errorf("RatePerSecond() on empty window = %v, want 0", rate)
	}
}

func TestMovingAverage_SingleTickIsZero(t *testing.T) {
	m := New(10)
	m.TickNow(100)
	if rate := m.RatePerSecond(); rate != 0 {
		t.Errorf("RatePerSecond() with one sample = %v, want 0 (need at least two ticks)", rate)
	}
}

func TestMovingAverage_WindowEviction(t *testing.T) {
	m := New(3)
	for i := 0; i < 10; i++ {
		m.TickNow(1)
	}
	if len(m.ticks) != 3 {
		t.Errorf("ticks retained = %d, want 3", len(m.ticks))
	}
	if m.total != 3 {
		t.Errorf("total after eviction = %d, want 3", m.total)
	}
}
