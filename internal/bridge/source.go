package bridge

import (
	"context"
	"errors"
	"time"

	"github.com/Alia5/dsbridge/driver"
	dslog "github.com/Alia5/dsbridge/internal/log"
	"github.com/Alia5/dsbridge/state"
)

// rescanInterval paces registry scans while no source device is attached.
const rescanInterval = 500 * time.Millisecond

// runSource is the source input thread: it blocks on the active driver's
// read, normalizes reports onto the bus and feeds the PS-button detector.
// A dead handle drops the driver and the registry re-scans; meanwhile the
// bus holds a neutral snapshot so the PS3 sees a released pad.
func (b *Bridge) runSource(ctx context.Context) {
	logger := b.logger.With(dslog.CategoryKey, "input")

	for ctx.Err() == nil {
		d, h, ok := b.registry.Active()
		if !ok {
			var err error
			d, h, err = b.registry.Scan()
			if err != nil {
				select {
				case <-ctx.Done():
					return
				case <-time.After(rescanInterval):
				}
				continue
			}
			logger.Info("source device attached", "driver", d.Descriptor().Name)
		}

		var st state.ControllerState
		err := d.ReadInput(h, &st)
		switch {
		case err == nil:
			b.bus.UpdateInput(&st)
			b.detector.Observe(&st)
		case errors.Is(err, driver.ErrTransient):
			// Retry on the next read.
		case ctx.Err() != nil:
			return
		default:
			logger.Warn("source device lost", "driver", d.Descriptor().Name, "error", err)
			b.registry.ClearActive()
			neutral := state.Neutral(st.TimestampMS)
			b.bus.UpdateInput(&neutral)
		}
	}
}
