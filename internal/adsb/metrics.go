package adsb

import (
	"sync"
	"sync/atomic"
	"time"
)

// Metrics collects fetch pipeline counters
type Metrics struct {
	TotalFetches   atomic.Int64
	SuccessFetches atomic.Int64
	FailedFetches  atomic.Int64
	SkippedTicks   atomic.Int64
	LastFlights    atomic.Int64
	LastLatencyNs  atomic.Int64
	AvgLatencyNs   atomic.Int64

	mu           sync.Mutex
	latencySum   int64
	latencyCount int64
}

// RecordLatency updates latency metrics
func (m *Metrics) RecordLatency(d time.Duration) {
	ns := d.Nanoseconds()
	m.LastLatencyNs.Store(ns)

	m.mu.Lock()
	m.latencySum += ns
	m.latencyCount++
	m.AvgLatencyNs.Store(m.latencySum / m.latencyCount)
	m.mu.Unlock()
}

// Snapshot returns a copy of current metrics
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		TotalFetches:   m.TotalFetches.Load(),
		SuccessFetches: m.SuccessFetches.Load(),
		FailedFetches:  m.FailedFetches.Load(),
		SkippedTicks:   m.SkippedTicks.Load(),
		LastFlights:    m.LastFlights.Load(),
		LastLatencyMs:  float64(m.LastLatencyNs.Load()) / 1e6,
		AvgLatencyMs:   float64(m.AvgLatencyNs.Load()) / 1e6,
	}
}

// MetricsSnapshot is a point-in-time copy of metrics
type MetricsSnapshot struct {
	TotalFetches   int64   `json:"total_fetches"`
	SuccessFetches int64   `json:"success_fetches"`
	FailedFetches  int64   `json:"failed_fetches"`
	SkippedTicks   int64   `json:"skipped_ticks"`
	LastFlights    int64   `json:"last_flight_count"`
	LastLatencyMs  float64 `json:"last_latency_ms"`
	AvgLatencyMs   float64 `json:"avg_latency_ms"`
}
