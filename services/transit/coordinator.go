package transit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rmrobinson/tnsw/lib/stream"
	"github.com/robfig/cron/v3"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// State is the refresh state of a coordinator.
type State int32

const (
	// StateUninitialized means no refresh has succeeded yet.
	StateUninitialized State = iota
	// StateReady means the most recent refresh succeeded.
	StateReady
	// StateStale means the most recent refresh failed and an older snapshot is being served.
	StateStale
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateStale:
		return "stale"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// Coordinator periodically refreshes the trips for a single route and holds the last good snapshot.
// Refreshes are serialized; readers never block on a refresh in progress.
type Coordinator struct {
	logger   *zap.Logger
	fetcher  Fetcher
	route    RouteConfig
	apiKey   string
	interval time.Duration
	now      func() time.Time

	refreshLock sync.Mutex
	snapshot    atomic.Pointer[Snapshot]
	state       atomic.Int32
	lastErr     atomic.Error

	updateSource *stream.Source
}

// NewCoordinator creates a coordinator for the supplied route.
func NewCoordinator(logger *zap.Logger, fetcher Fetcher, route RouteConfig, apiKey string, interval time.Duration) *Coordinator {
	if interval <= 0 {
		interval = DefaultScanInterval
	}

	logger = logger.With(zap.String("route_id", route.ID()))

	c := &Coordinator{
		logger:       logger,
		fetcher:      fetcher,
		route:        route,
		apiKey:       apiKey,
		interval:     interval,
		now:          time.Now,
		updateSource: stream.NewSource(logger),
	}
	c.snapshot.Store(newSentinelSnapshot(route.ID()))
	return c
}

// Route returns the route this coordinator refreshes.
func (c *Coordinator) Route() RouteConfig {
	return c.route
}

// CurrentSnapshot returns the last good snapshot, or the sentinel snapshot if there has never been one.
func (c *Coordinator) CurrentSnapshot() *Snapshot {
	return c.snapshot.Load()
}

// State returns the current refresh state.
func (c *Coordinator) State() State {
	return State(c.state.Load())
}

// LastError returns the error from the most recent refresh, if it failed.
func (c *Coordinator) LastError() error {
	return c.lastErr.Load()
}

// Updates returns a sink that receives a SnapshotUpdate after every successful refresh.
// The caller must close the sink when done with it.
func (c *Coordinator) Updates() *stream.Sink {
	return c.updateSource.NewSink()
}

// Refresh retrieves a new batch of trips for the route.
// On failure the previous snapshot is kept and continues to be served.
func (c *Coordinator) Refresh(ctx context.Context) (*Snapshot, error) {
	c.refreshLock.Lock()
	defer c.refreshLock.Unlock()

	logger := c.logger.With(zap.String("refresh_id", uuid.New().String()))
	start := c.now()

	trips, err := FetchTrips(ctx, c.fetcher, c.route, c.apiKey)
	if err != nil {
		c.lastErr.Store(err)
		if c.State() != StateUninitialized {
			c.state.Store(int32(StateStale))
		}

		logger.Warn("error refreshing route, keeping previous snapshot",
			zap.Stringer("state", c.State()),
			zap.Error(err),
		)
		return nil, err
	}

	snapshot := &Snapshot{
		RouteID:   c.route.ID(),
		Trips:     trips,
		UpdatedAt: c.now(),
	}

	c.snapshot.Store(snapshot)
	c.lastErr.Store(nil)
	c.state.Store(int32(StateReady))

	logger.Debug("route refreshed",
		zap.Int("trip_count", len(trips)),
		zap.Duration("elapsed", snapshot.UpdatedAt.Sub(start)),
	)

	c.updateSource.SendMessage(&SnapshotUpdate{
		RouteID:  c.route.ID(),
		Snapshot: snapshot,
	})
	return snapshot, nil
}

// Run refreshes the route on the configured interval until the context is cancelled.
// A refresh in progress when the context is cancelled is allowed to complete.
func (c *Coordinator) Run(ctx context.Context) error {
	cl := newCronLogger(c.logger)
	sched := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	refreshCtx := context.WithoutCancel(ctx)
	_, err := sched.AddFunc(fmt.Sprintf("@every %s", c.interval), func() {
		c.Refresh(refreshCtx)
	})
	if err != nil {
		return err
	}

	c.logger.Info("run started",
		zap.Duration("interval", c.interval),
	)
	sched.Start()

	<-ctx.Done()
	c.logger.Info("context closed, completing run")

	<-sched.Stop().Done()
	return nil
}
