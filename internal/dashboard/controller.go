package dashboard

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/yegors/cdmx-flightboard/internal/adsb"
	"github.com/yegors/cdmx-flightboard/internal/board"
	"github.com/yegors/cdmx-flightboard/internal/layers"
	"github.com/yegors/cdmx-flightboard/pkg/logger"
)

// ErrStopped is returned for commands sent after the controller stopped
var ErrStopped = errors.New("dashboard controller stopped")

// SnapshotSource is the stream of pipeline snapshots the controller renders
type SnapshotSource interface {
	Snapshot() adsb.Snapshot
	Subscribe() (<-chan adsb.Snapshot, func())
}

// SnapshotPublisher receives the status bar and table payload after every change
type SnapshotPublisher interface {
	PublishSnapshot(data any)
}

// View is a point-in-time copy of the dashboard state
type View struct {
	Snapshot       adsb.Snapshot   `json:"-"`
	Selected       string          `json:"selected"`
	HeatmapVisible bool            `json:"heatmap_visible"`
	Sort           board.SortState `json:"sort"`
	MarkerCount    int             `json:"marker_count"`
}

// command runs on the controller goroutine
type command struct {
	name  string
	fn    func() error
	reply chan error
}

// Controller is the single owner of the layer manager, selection, heatmap flag and
// table sort. Everything that mutates them goes through its command channel.
type Controller struct {
	source    SnapshotSource
	manager   *layers.Manager
	publisher SnapshotPublisher
	logger    *logger.Logger
	clock     func() time.Time

	commands chan command
	done     chan struct{}
	started  atomic.Bool
	view     atomic.Pointer[View]

	// owned by the Run goroutine
	snapshot  adsb.Snapshot
	sortState board.SortState
	lastCycle uint64
}

// NewController creates a controller. publisher may be nil.
func NewController(source SnapshotSource, manager *layers.Manager, publisher SnapshotPublisher, log *logger.Logger) *Controller {
	c := &Controller{
		source:    source,
		manager:   manager,
		publisher: publisher,
		logger:    log.Named("dashboard"),
		clock:     time.Now,
		commands:  make(chan command),
		done:      make(chan struct{}),
		sortState: board.DefaultSort(),
	}
	c.publishView()
	return c
}

// Run processes snapshots and commands until ctx is cancelled
func (c *Controller) Run(ctx context.Context) error {
	if !c.started.CompareAndSwap(false, true) {
		return errors.New("dashboard controller already running")
	}
	defer close(c.done)

	updates, cancel := c.source.Subscribe()
	defer cancel()

	c.logger.Info("Dashboard controller started")
	c.apply(c.source.Snapshot())

	for {
		select {
		case snap, ok := <-updates:
			if !ok {
				c.logger.Info("Snapshot stream closed, stopping dashboard controller")
				return nil
			}
			c.apply(snap)

		case cmd := <-c.commands:
			err := cmd.fn()
			if err != nil {
				c.logger.Debug("Command rejected", logger.String("command", cmd.name), logger.Error(err))
			} else {
				c.publish()
			}
			cmd.reply <- err

		case <-ctx.Done():
			c.logger.Info("Dashboard controller stopped")
			return nil
		}
	}
}

// apply installs a snapshot, reconciling the map when the record set changed
func (c *Controller) apply(snap adsb.Snapshot) {
	if snap.Sequence != 0 && snap.Sequence < c.snapshot.Sequence {
		return
	}
	c.snapshot = snap

	if snap.Cycle != c.lastCycle {
		c.lastCycle = snap.Cycle
		result := c.manager.Reconcile(snap.Flights)
		c.logger.Debug("Reconciled flights",
			logger.Uint64("cycle", snap.Cycle),
			logger.Int("created", len(result.Created)),
			logger.Int("updated", len(result.Updated)),
			logger.Int("removed", len(result.Removed)),
			logger.Bool("selection_cleared", result.SelectionCleared))
	}
	c.publish()
}

// publish refreshes the read view and pushes the snapshot payload
func (c *Controller) publish() {
	v := c.publishView()
	if c.publisher != nil {
		c.publisher.PublishSnapshot(NewPayload(*v, c.clock()))
	}
}

func (c *Controller) publishView() *View {
	v := &View{
		Snapshot:       c.snapshot,
		Selected:       c.manager.Selected(),
		HeatmapVisible: c.manager.HeatmapVisible(),
		Sort:           c.sortState,
		MarkerCount:    c.manager.MarkerCount(),
	}
	c.view.Store(v)
	return v
}

// Done is closed when Run returns
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// View returns a copy of the latest dashboard state
func (c *Controller) View() View {
	return *c.view.Load()
}

// do runs fn on the controller goroutine and waits for it
func (c *Controller) do(ctx context.Context, name string, fn func() error) error {
	cmd := command{name: name, fn: fn, reply: make(chan error, 1)}

	select {
	case c.commands <- cmd:
	case <-c.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-cmd.reply:
		return err
	case <-c.done:
		return ErrStopped
	}
}

// Select selects a flight and centers the map on it
func (c *Controller) Select(ctx context.Context, icao24 string) error {
	return c.do(ctx, "select", func() error {
		return c.manager.Select(icao24)
	})
}

// ToggleRow selects a flight, or deselects it when it is already selected
func (c *Controller) ToggleRow(ctx context.Context, icao24 string) error {
	return c.do(ctx, "toggle_row", func() error {
		return c.manager.ToggleRow(icao24)
	})
}

// ClearSelection deselects whatever is selected
func (c *Controller) ClearSelection(ctx context.Context) error {
	return c.do(ctx, "clear_selection", func() error {
		c.manager.ClickBackground()
		return nil
	})
}

// SetHeatmapVisible shows or hides the heat layer
func (c *Controller) SetHeatmapVisible(ctx context.Context, visible bool) error {
	return c.do(ctx, "set_heatmap", func() error {
		c.manager.SetHeatmapVisible(visible)
		return nil
	})
}

// ToggleSort applies a header click on key and returns the new sort state
func (c *Controller) ToggleSort(ctx context.Context, key board.SortKey) (board.SortState, error) {
	if _, err := board.ParseSortKey(string(key)); err != nil {
		return board.SortState{}, err
	}

	var next board.SortState
	err := c.do(ctx, "sort", func() error {
		c.sortState = c.sortState.Toggle(key)
		next = c.sortState
		return nil
	})
	return next, err
}
