// Package ratewindow implements the TPS smoother the original service builds
// from aptos_moving_average::MovingAverage (SPEC_FULL.md §9): a fixed-size
// ring buffer of (timestamp, count) ticks used to compute a windowed rate.
package ratewindow

import (
	"sync"
	"time"
)

type tick struct {
	at    time.Time
	count uint64
}

// MovingAverage smooths a tick(count)-per-call rate over a bounded window of
// samples, reporting transactions-per-second.
type MovingAverage struct {
	mu     sync.Mutex
	window int
	ticks  []tick
	total  uint64
}

// New returns a MovingAverage retaining at most windowSize samples.
func New(windowSize int) *MovingAverage {
	return &MovingAverage{window: windowSize}
}

// TickNow records a new sample of size count observed now.
func (m *MovingAverage) TickNow(count uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ticks = append(m.ticks, tick{at: time.Now(), count: count})
	m.total += count
	if len(m.ticks) > m.window {
		dropped := m.ticks[0]
		m.ticks = m.ticks[1:]
		m.total -= dropped.count
	}
}

// RatePerSecond returns the average rate over the retained window, or 0 if
// fewer than two samples have been recorded.
func (m *MovingAverage) RatePerSecond() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.ticks) < 2 {
		return 0
	}
	elapsed := m.ticks[len(m.ticks)-1].at.Sub(m.ticks[0].at).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(m.total) / elapsed
}
