package bridge

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Alia5/dsbridge/driver"
	dslog "github.com/Alia5/dsbridge/internal/log"
	"github.com/Alia5/dsbridge/lightbar"
	"github.com/Alia5/dsbridge/state"
)

// Forwarder pushes output bus changes (rumble, lightbar, player LEDs) to
// the active source driver at 100 Hz.
const (
	forwarderTick = 10 * time.Millisecond

	// Lightbar IPC is polled every 500 ms, i.e. every 50th tick.
	lightbarEveryTicks = 50

	// A burst of transient send failures is logged once at this count and
	// once more on recovery.
	failureWarnThreshold = 5
)

type Forwarder struct {
	bus      *state.Bus
	registry *driver.Registry
	lightbar *lightbar.Reader
	logger   *slog.Logger

	ticks     int64
	failCount int
	warned    bool
}

func NewForwarder(bus *state.Bus, registry *driver.Registry, lb *lightbar.Reader, logger *slog.Logger) *Forwarder {
	return &Forwarder{
		bus:      bus,
		registry: registry,
		lightbar: lb,
		logger:   logger.With(dslog.CategoryKey, "output"),
	}
}

// Run drives Tick at the forwarder cadence until ctx is cancelled.
func (f *Forwarder) Run(ctx context.Context) {
	ticker := time.NewTicker(forwarderTick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			f.Tick()
		}
	}
}

// Tick runs one forwarder iteration.
func (f *Forwarder) Tick() {
	if f.ticks%lightbarEveryTicks == 0 {
		f.bus.ModifyOutput(func(o *state.ControllerOutput) {
			f.lightbar.Poll(o)
		})
	}
	f.ticks++

	if !f.bus.TakeOutputDirty() {
		return
	}

	d, h, ok := f.registry.Active()
	if !ok {
		// Nothing to send to; keep the snapshot dirty for when a device
		// reattaches.
		f.bus.MarkOutputDirty()
		return
	}

	out := f.bus.SnapshotOutput()
	err := d.SendOutput(h, &out)
	if err == nil {
		if f.warned {
			f.logger.Info("output delivery recovered", "failures", f.failCount)
		}
		f.failCount = 0
		f.warned = false
		return
	}

	// Snapshot stays dirty until a send succeeds; the next tick retries.
	f.bus.MarkOutputDirty()

	if errors.Is(err, driver.ErrDisconnected) {
		f.registry.ClearActive()
		f.logger.Warn("source device lost during output send", "error", err)
		f.failCount = 0
		f.warned = false
		return
	}

	f.failCount++
	if f.failCount == failureWarnThreshold && !f.warned {
		f.warned = true
		f.logger.Warn("output delivery failing", "failures", f.failCount, "error", err)
	}
}
