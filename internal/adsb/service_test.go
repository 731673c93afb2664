package adsb

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yegors/cdmx-flightboard/pkg/logger"
)

// fakeFetcher returns canned results and can hold a request open until released
type fakeFetcher struct {
	mu      sync.Mutex
	calls   int
	resp    *StatesResponse
	err     error
	block   chan struct{}
	timeout time.Duration
}

func (f *fakeFetcher) FetchStates(ctx context.Context) (*StatesResponse, error) {
	f.mu.Lock()
	f.calls++
	block, resp, err := f.block, f.resp, f.err
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return resp, err
}

func (f *fakeFetcher) Timeout() time.Duration {
	if f.timeout == 0 {
		return 30 * time.Second
	}
	return f.timeout
}

func (f *fakeFetcher) set(resp *StatesResponse, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resp, f.err = resp, err
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func statesFor(keys ...string) *StatesResponse {
	resp := &StatesResponse{Time: 1700000000}
	for _, k := range keys {
		resp.States = append(resp.States, RawStateVector{
			ICAO24:    k,
			Callsign:  ptr("AMX" + k),
			Latitude:  ptr(19.4),
			Longitude: ptr(-99.1),
		})
	}
	return resp
}

func newTestService(f Fetcher, cfg ServiceConfig) *Service {
	return NewService(f, newTestNormalizer(), cfg, logger.NewNop())
}

func waitIdle(t *testing.T, s *Service) {
	t.Helper()
	require.Eventually(t, func() bool { return !s.Fetching() }, 2*time.Second, 5*time.Millisecond)
}

func TestServiceSuccessfulCycle(t *testing.T) {
	f := &fakeFetcher{resp: statesFor("a", "b")}
	s := newTestService(f, ServiceConfig{FetchInterval: time.Hour})
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s.clock = func() time.Time { return fixed }

	ch, cancel := s.Subscribe()
	defer cancel()

	require.True(t, s.startCycle(context.Background()))
	waitIdle(t, s)

	snap := s.Snapshot()
	assert.Equal(t, FetchSucceeded, snap.Status)
	assert.Len(t, snap.Flights, 2)
	assert.Equal(t, uint64(1), snap.Cycle)
	require.NotNil(t, snap.LastUpdated)
	assert.Equal(t, fixed, *snap.LastUpdated)
	assert.Nil(t, snap.Error)

	// The subscriber sees the final state, possibly after the loading one
	var last Snapshot
	require.Eventually(t, func() bool {
		select {
		case last = <-ch:
		default:
		}
		return last.Status == FetchSucceeded
	}, time.Second, 5*time.Millisecond)

	m := s.Metrics()
	assert.Equal(t, int64(1), m.TotalFetches)
	assert.Equal(t, int64(1), m.SuccessFetches)
	assert.Equal(t, int64(2), m.LastFlights)
}

func TestServiceFailureRetainsFlights(t *testing.T) {
	f := &fakeFetcher{resp: statesFor("a", "b", "c")}
	s := newTestService(f, ServiceConfig{FetchInterval: time.Hour})

	require.True(t, s.startCycle(context.Background()))
	waitIdle(t, s)
	before := s.Snapshot()
	require.Len(t, before.Flights, 3)

	f.set(nil, newStatusError(http.StatusTooManyRequests))
	require.True(t, s.startCycle(context.Background()))
	waitIdle(t, s)

	after := s.Snapshot()
	assert.Equal(t, FetchFailed, after.Status)
	assert.Equal(t, before.Flights, after.Flights)
	assert.Equal(t, before.Cycle, after.Cycle)
	assert.Equal(t, before.LastUpdated, after.LastUpdated)
	require.NotNil(t, after.Error)
	assert.Equal(t, KindRateLimited, after.Error.Kind)
	assert.Equal(t, "Rate Limited. Retrying...", after.ErrorMessage())
	assert.Greater(t, after.Sequence, before.Sequence)

	// Recovery clears the error
	f.set(statesFor("d"), nil)
	require.True(t, s.startCycle(context.Background()))
	waitIdle(t, s)
	recovered := s.Snapshot()
	assert.Equal(t, FetchSucceeded, recovered.Status)
	assert.Nil(t, recovered.Error)
	assert.Len(t, recovered.Flights, 1)
	assert.Equal(t, int64(1), s.Metrics().FailedFetches)
}

func TestServiceSkipsOverlappingTick(t *testing.T) {
	f := &fakeFetcher{resp: statesFor("a"), block: make(chan struct{})}
	s := newTestService(f, ServiceConfig{FetchInterval: time.Hour})

	require.True(t, s.startCycle(context.Background()))
	require.Eventually(t, func() bool { return f.callCount() == 1 }, time.Second, time.Millisecond)

	assert.False(t, s.startCycle(context.Background()))
	s.tick(context.Background())
	assert.Equal(t, FetchLoading, s.Snapshot().Status)

	close(f.block)
	waitIdle(t, s)

	assert.Equal(t, 1, f.callCount())
	assert.Equal(t, int64(1), s.Metrics().SkippedTicks)
	assert.Equal(t, FetchSucceeded, s.Snapshot().Status)
}

func TestServiceTimeoutSurfacesAsTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, 50*time.Millisecond)
	s := newTestService(client, ServiceConfig{FetchInterval: time.Hour})

	require.True(t, s.startCycle(context.Background()))
	waitIdle(t, s)

	snap := s.Snapshot()
	assert.Equal(t, FetchFailed, snap.Status)
	require.NotNil(t, snap.Error)
	assert.Equal(t, KindTimeout, snap.Error.Kind)
	assert.True(t, errors.Is(snap.Error, ErrTimeout))
}

func TestServiceStartRefreshStop(t *testing.T) {
	f := &fakeFetcher{resp: statesFor("a"), block: make(chan struct{})}
	s := newTestService(f, ServiceConfig{FetchInterval: time.Hour, InitialDelay: 0})

	assert.ErrorIs(t, s.Refresh(), ErrNotRunning)

	require.NoError(t, s.Start(context.Background()))
	assert.ErrorIs(t, s.Start(context.Background()), ErrAlreadyRunning)
	assert.Equal(t, 3600, s.Snapshot().Countdown)

	// The initial fetch is held open, so a manual refresh is rejected
	require.Eventually(t, func() bool { return f.callCount() == 1 }, time.Second, time.Millisecond)
	assert.ErrorIs(t, s.Refresh(), ErrFetchInFlight)

	close(f.block)
	waitIdle(t, s)
	require.NoError(t, s.Refresh())
	waitIdle(t, s)
	assert.Equal(t, 2, f.callCount())
	assert.Equal(t, uint64(2), s.Snapshot().Cycle)

	ch, _ := s.Subscribe()
	s.Stop()

	// Drain the queued snapshot; the channel then closes
	for range ch {
	}
	assert.ErrorIs(t, s.Refresh(), ErrNotRunning)
	assert.ErrorIs(t, s.Start(context.Background()), ErrStopped)
}

func TestServiceStopCancelsInFlightFetch(t *testing.T) {
	f := &fakeFetcher{resp: statesFor("a"), block: make(chan struct{})}
	s := newTestService(f, ServiceConfig{FetchInterval: time.Hour, InitialDelay: 0})

	require.NoError(t, s.Start(context.Background()))
	require.Eventually(t, func() bool { return f.callCount() == 1 }, time.Second, time.Millisecond)

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}
	// A shutdown cancellation is not reported as a fetch failure
	assert.NotEqual(t, FetchFailed, s.Snapshot().Status)
	assert.Equal(t, int64(0), s.Metrics().FailedFetches)
}

func TestNextCountdown(t *testing.T) {
	tests := []struct {
		prev, full, want int
	}{
		{120, 120, 119},
		{2, 120, 1},
		{1, 120, 120},
		{0, 120, 120},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, nextCountdown(tt.prev, tt.full))
	}
}

func TestMetricsRecordLatency(t *testing.T) {
	m := &Metrics{}

	m.RecordLatency(100 * time.Millisecond)
	assert.Equal(t, int64(100_000_000), m.LastLatencyNs.Load())
	assert.Equal(t, int64(100_000_000), m.AvgLatencyNs.Load())

	m.RecordLatency(200 * time.Millisecond)
	snap := m.Snapshot()
	assert.InDelta(t, 200.0, snap.LastLatencyMs, 0.01)
	assert.InDelta(t, 150.0, snap.AvgLatencyMs, 0.01)
}
