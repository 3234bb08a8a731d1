package bridge

import (
	"context"
	"time"

	"github.com/Alia5/dsbridge/ds3"
	dslog "github.com/Alia5/dsbridge/internal/log"
)

// dataTick is the input report cadence toward the PS3 (250 Hz).
const dataTick = 4 * time.Millisecond

// runData is the USB data thread: it emits input reports on the
// interrupt-in endpoint at a fixed cadence while the handshake is
// operational, and drains output reports from the interrupt-out endpoint
// opportunistically.
func (b *Bridge) runData(ctx context.Context) {
	logger := b.logger.With(dslog.CategoryKey, "usb")

	ticker := time.NewTicker(dataTick)
	defer ticker.Stop()

	var outBuf [64]byte
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if n, ok, err := b.endpoints.ReadReport(outBuf[:]); err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warn("interrupt-out read failed", "error", err)
		} else if ok {
			b.emulator.HandleOutputReport(outBuf[:n])
		}

		if !b.endpoints.Enabled() || !b.emulator.Operational() {
			continue
		}

		st := b.bus.SnapshotInput()
		st = b.applier.Apply(st)
		report := ds3.BuildInputReport(&st)
		if err := b.endpoints.WriteReport(report); err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warn("input report write failed", "error", err)
		}
	}
}
