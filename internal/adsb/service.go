package adsb

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yegors/cdmx-flightboard/pkg/logger"
)

const (
	DefaultFetchInterval = 120 * time.Second
	DefaultInitialDelay  = 1 * time.Second
)

var (
	ErrFetchInFlight  = errors.New("a fetch is already in flight")
	ErrAlreadyRunning = errors.New("service already running")
	ErrNotRunning     = errors.New("service not running")
	ErrStopped        = errors.New("service stopped")
)

// Fetcher retrieves one batch of state vectors
type Fetcher interface {
	FetchStates(ctx context.Context) (*StatesResponse, error)
	Timeout() time.Duration
}

// ServiceConfig holds the scheduler timing
type ServiceConfig struct {
	FetchInterval    time.Duration
	InitialDelay     time.Duration
	SubscriberBuffer int
}

const (
	stateIdle int32 = iota
	stateFetching
)

// Service runs the fetch/normalize/publish cycle on a fixed interval
type Service struct {
	fetcher      Fetcher
	normalizer   *Normalizer
	broker       *Broker
	metrics      *Metrics
	interval     time.Duration
	initialDelay time.Duration
	logger       *logger.Logger
	clock        func() time.Time

	// stateIdle or stateFetching; only one cycle may hold stateFetching
	state atomic.Int32

	mu          sync.Mutex
	flights     []FlightRecord
	status      FetchStatus
	lastUpdated *time.Time
	lastErr     *FetchError
	nextFetchAt time.Time
	countdown   int
	sequence    uint64
	cycle       uint64
	current     Snapshot

	lifeMu  sync.Mutex
	running bool
	stopped bool
	runCtx  context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewService creates a new scheduler
func NewService(fetcher Fetcher, normalizer *Normalizer, cfg ServiceConfig, log *logger.Logger) *Service {
	if cfg.FetchInterval <= 0 {
		cfg.FetchInterval = DefaultFetchInterval
	}
	if cfg.InitialDelay < 0 {
		cfg.InitialDelay = DefaultInitialDelay
	}

	s := &Service{
		fetcher:      fetcher,
		normalizer:   normalizer,
		broker:       NewBroker(cfg.SubscriberBuffer),
		metrics:      &Metrics{},
		interval:     cfg.FetchInterval,
		initialDelay: cfg.InitialDelay,
		logger:       log.Named("adsb"),
		clock:        time.Now,
		flights:      []FlightRecord{},
		status:       FetchIdle,
		countdown:    intervalSeconds(cfg.FetchInterval),
	}
	s.current = s.buildSnapshot()
	return s
}

func intervalSeconds(d time.Duration) int {
	secs := int(d / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}

// Start launches the fetch loop and the countdown loop
func (s *Service) Start(ctx context.Context) error {
	s.lifeMu.Lock()
	defer s.lifeMu.Unlock()

	if s.stopped {
		return ErrStopped
	}
	if s.running {
		return ErrAlreadyRunning
	}

	s.logger.Info("Starting ADS-B service",
		logger.Duration("fetch_interval", s.interval),
		logger.Duration("initial_delay", s.initialDelay),
		logger.Duration("request_timeout", s.fetcher.Timeout()),
	)

	s.runCtx, s.cancel = context.WithCancel(ctx)
	s.running = true

	s.mu.Lock()
	s.countdown = intervalSeconds(s.interval)
	s.nextFetchAt = s.clock().Add(s.initialDelay)
	s.publishLocked()
	s.mu.Unlock()

	s.wg.Add(2)
	go s.fetchLoop(s.runCtx)
	go s.countdownLoop(s.runCtx)

	return nil
}

// Stop cancels the loops and any in-flight request, waits for them, and closes the broker
func (s *Service) Stop() {
	s.lifeMu.Lock()
	if !s.running {
		s.stopped = true
		s.lifeMu.Unlock()
		s.broker.Close()
		return
	}
	s.logger.Info("Stopping ADS-B service")
	s.running = false
	s.stopped = true
	s.cancel()
	s.lifeMu.Unlock()

	s.wg.Wait()
	s.broker.Close()
	s.logger.Info("ADS-B service stopped")
}

// Refresh starts an immediate cycle outside the fixed schedule
func (s *Service) Refresh() error {
	s.lifeMu.Lock()
	defer s.lifeMu.Unlock()

	if !s.running {
		return ErrNotRunning
	}
	if !s.startCycle(s.runCtx) {
		return ErrFetchInFlight
	}
	s.logger.Info("Manual refresh started")
	return nil
}

// Snapshot returns the most recently published snapshot
func (s *Service) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Subscribe returns a channel of snapshots and its cancel func
func (s *Service) Subscribe() (<-chan Snapshot, func()) {
	return s.broker.Subscribe()
}

// Metrics returns the fetch metrics
func (s *Service) Metrics() MetricsSnapshot {
	return s.metrics.Snapshot()
}

// Interval returns the fixed fetch interval
func (s *Service) Interval() time.Duration {
	return s.interval
}

// Fetching reports whether a cycle is in flight
func (s *Service) Fetching() bool {
	return s.state.Load() == stateFetching
}

func (s *Service) fetchLoop(ctx context.Context) {
	defer s.wg.Done()

	initial := time.NewTimer(s.initialDelay)
	defer initial.Stop()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	started := s.clock()

	for {
		select {
		case <-initial.C:
			s.setNextFetch(started.Add(s.interval))
			s.tick(ctx)
		case <-ticker.C:
			s.setNextFetch(s.clock().Add(s.interval))
			s.tick(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (s *Service) tick(ctx context.Context) {
	if !s.startCycle(ctx) {
		s.metrics.SkippedTicks.Add(1)
		s.logger.Debug("Skipping tick, previous fetch still in flight")
	}
}

func (s *Service) setNextFetch(t time.Time) {
	s.mu.Lock()
	s.nextFetchAt = t
	s.mu.Unlock()
}

// startCycle claims the fetching state and runs one cycle in the background.
// It reports false when another cycle already holds the state.
func (s *Service) startCycle(ctx context.Context) bool {
	if !s.state.CompareAndSwap(stateIdle, stateFetching) {
		return false
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.state.Store(stateIdle)
		s.runCycle(ctx)
	}()
	return true
}

func (s *Service) runCycle(ctx context.Context) {
	s.metrics.TotalFetches.Add(1)
	s.update(func() {
		s.status = FetchLoading
	})

	start := time.Now()
	resp, err := s.fetcher.FetchStates(ctx)
	s.metrics.RecordLatency(time.Since(start))

	if err != nil {
		if ctx.Err() != nil {
			s.logger.Debug("Fetch cancelled by shutdown")
			return
		}
		fe := ClassifyFetchError(err, s.fetcher.Timeout())
		s.metrics.FailedFetches.Add(1)
		s.logger.Warn("OpenSky fetch failed",
			logger.String("kind", string(fe.Kind)),
			logger.String("message", fe.Message()),
			logger.Error(err),
		)
		s.update(func() {
			s.status = FetchFailed
			s.lastErr = fe
		})
		return
	}

	flights := s.normalizer.NormalizeAll(resp.States)
	now := s.clock()

	s.metrics.SuccessFetches.Add(1)
	s.metrics.LastFlights.Store(int64(len(flights)))

	s.update(func() {
		s.flights = flights
		s.status = FetchSucceeded
		s.lastUpdated = &now
		s.lastErr = nil
		s.cycle++
	})

	s.logger.Info("Flights updated",
		logger.Int("states", len(resp.States)),
		logger.Int("flights", len(flights)),
		logger.Duration("latency", time.Since(start)),
	)
}

func (s *Service) countdownLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	full := intervalSeconds(s.interval)
	for {
		select {
		case <-ticker.C:
			s.update(func() {
				s.countdown = nextCountdown(s.countdown, full)
			})
		case <-ctx.Done():
			return
		}
	}
}

// nextCountdown decrements the display countdown, wrapping 1 back to full
func nextCountdown(prev, full int) int {
	if prev > 1 {
		return prev - 1
	}
	return full
}

// update applies fn to the state and publishes the result
func (s *Service) update(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn()
	s.publishLocked()
}

func (s *Service) publishLocked() {
	s.sequence++
	s.current = s.buildSnapshot()
	s.broker.Publish(s.current)
}

func (s *Service) buildSnapshot() Snapshot {
	return Snapshot{
		Flights:     s.flights,
		Status:      s.status,
		LastUpdated: s.lastUpdated,
		Error:       s.lastErr,
		NextFetchAt: s.nextFetchAt,
		Countdown:   s.countdown,
		Sequence:    s.sequence,
		Cycle:       s.cycle,
	}
}
