package dualsense

import (
	"encoding/binary"
	"fmt"

	"github.com/Alia5/dsbridge/driver"
	"github.com/Alia5/dsbridge/state"
)

// decodeInputReport folds a raw DualSense input report of either transport
// into the normalized snapshot. The transport is recognized by the report id
// prefix and the buffer length; anything else is a transient decode failure.
func decodeInputReport(data []byte, st *state.ControllerState) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: empty input report", driver.ErrTransient)
	}
	var block []byte
	switch {
	case len(data) >= InputReportSizeUSB && data[0] == ReportIDInputUSB:
		block = data[1:InputReportSizeUSB]
	case len(data) >= InputReportSizeBT && data[0] == ReportIDInputBT:
		block = data[2:btInputCRCOffset]
	default:
		return fmt.Errorf("%w: unrecognized input report (id 0x%02x, %d bytes)",
			driver.ErrTransient, data[0], len(data))
	}

	st.LX = block[offLX]
	st.LY = block[offLY]
	st.RX = block[offRX]
	st.RY = block[offRY]
	st.L2 = block[offL2]
	st.R2 = block[offR2]

	st.Buttons = decodeButtons(block[offBtn0], block[offBtn1], block[offBtn2])

	// Angular velocity is carried X, Z, Y on the wire.
	st.GyroX = int16(binary.LittleEndian.Uint16(block[offGyro:]))
	st.GyroZ = int16(binary.LittleEndian.Uint16(block[offGyro+2:]))
	st.GyroY = int16(binary.LittleEndian.Uint16(block[offGyro+4:]))
	st.AccelX = int16(binary.LittleEndian.Uint16(block[offAccel:]))
	st.AccelY = int16(binary.LittleEndian.Uint16(block[offAccel+2:]))
	st.AccelZ = int16(binary.LittleEndian.Uint16(block[offAccel+4:]))

	st.Touch[0] = decodeTouch(binary.LittleEndian.Uint32(block[offTouch1:]))
	st.Touch[1] = decodeTouch(binary.LittleEndian.Uint32(block[offTouch2:]))

	st.Battery, st.Charging = decodePower(block[offPower])
	return nil
}

func decodeButtons(b0, b1, b2 byte) state.Button {
	var btns state.Button

	switch b0 & hatMask {
	case hatUp:
		btns |= state.ButtonDpadUp
	case hatUpRight:
		btns |= state.ButtonDpadUp | state.ButtonDpadRight
	case hatRight:
		btns |= state.ButtonDpadRight
	case hatDownRight:
		btns |= state.ButtonDpadDown | state.ButtonDpadRight
	case hatDown:
		btns |= state.ButtonDpadDown
	case hatDownLeft:
		btns |= state.ButtonDpadDown | state.ButtonDpadLeft
	case hatLeft:
		btns |= state.ButtonDpadLeft
	case hatUpLeft:
		btns |= state.ButtonDpadUp | state.ButtonDpadLeft
	}

	if b0&btn0Square != 0 {
		btns |= state.ButtonSquare
	}
	if b0&btn0Cross != 0 {
		btns |= state.ButtonCross
	}
	if b0&btn0Circle != 0 {
		btns |= state.ButtonCircle
	}
	if b0&btn0Triangle != 0 {
		btns |= state.ButtonTriangle
	}

	if b1&btn1L1 != 0 {
		btns |= state.ButtonL1
	}
	if b1&btn1R1 != 0 {
		btns |= state.ButtonR1
	}
	if b1&btn1L2 != 0 {
		btns |= state.ButtonL2
	}
	if b1&btn1R2 != 0 {
		btns |= state.ButtonR2
	}
	if b1&btn1Create != 0 {
		btns |= state.ButtonCreate | state.ButtonSelect
	}
	if b1&btn1Options != 0 {
		btns |= state.ButtonOptions | state.ButtonStart
	}
	if b1&btn1L3 != 0 {
		btns |= state.ButtonL3
	}
	if b1&btn1R3 != 0 {
		btns |= state.ButtonR3
	}

	if b2&btn2PS != 0 {
		btns |= state.ButtonPS
	}
	if b2&btn2Touchpad != 0 {
		btns |= state.ButtonTouchpad
	}
	if b2&btn2Mute != 0 {
		btns |= state.ButtonMute
	}
	return btns
}

// decodeTouch unpacks one touch slot: bits 0..6 id, bit 7 "not touching",
// bits 8..19 x, bits 20..31 y. The normalized id keeps the inactive flag in
// the high bit. The 12-bit fields can exceed the panel; coordinates clamp
// to its edges.
func decodeTouch(packed uint32) state.TouchPoint {
	t := state.TouchPoint{
		ID: uint8(packed & 0xFF),
		X:  uint16((packed >> 8) & 0xFFF),
		Y:  uint16((packed >> 20) & 0xFFF),
	}
	if t.X > TouchpadMaxX {
		t.X = TouchpadMaxX
	}
	if t.Y > TouchpadMaxY {
		t.Y = TouchpadMaxY
	}
	return t
}

func decodePower(p byte) (level uint8, charging bool) {
	raw := p & powerLevelMask
	status := p >> powerStatusShift

	switch status {
	case powerStatusCharging:
		charging = true
	case powerStatusComplete:
		return 100, false
	}

	lvl := uint16(raw)*10 + 5
	if lvl > 100 {
		lvl = 100
	}
	return uint8(lvl), charging
}
