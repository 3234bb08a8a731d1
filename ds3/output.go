package ds3

import (
	dslog "github.com/Alia5/dsbridge/internal/log"
	"github.com/Alia5/dsbridge/state"
)

// HandleOutputReport decodes a DS3 output report (rumble + player LEDs) and
// folds it into the output bus. While the bridge is in standby the lightbar
// is locally owned, so host LED writes are discarded.
func (e *Emulator) HandleOutputReport(data []byte) {
	if len(data) <= outOffLeds || data[0] != 0x01 {
		return
	}

	small := data[outOffRumbleSmall]
	large := data[outOffRumbleLarge]
	leds := (data[outOffLeds] >> 1) & 0x0F

	standby := e.standby()
	e.bus.ModifyOutput(func(o *state.ControllerOutput) {
		o.RumbleLeft = small
		o.RumbleRight = large
		if !standby {
			o.PlayerLEDs = leds
		}
	})

	e.logger.Debug("host output report",
		dslog.CategoryKey, "output",
		"small", small, "large", large, "leds", leds, "standby", standby)
}
