package dualsense

import (
	"encoding/binary"
	"hash/crc32"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alia5/dsbridge/driver"
	"github.com/Alia5/dsbridge/state"
)

// buildInputReport synthesizes a raw report carrying the modeled fields of
// st, for the given transport. Fields outside the normalized model stay zero.
func buildInputReport(st state.ControllerState, bt bool) []byte {
	var report []byte
	var block []byte
	if bt {
		report = make([]byte, InputReportSizeBT)
		report[0] = ReportIDInputBT
		block = report[2:btInputCRCOffset]
	} else {
		report = make([]byte, InputReportSizeUSB)
		report[0] = ReportIDInputUSB
		block = report[1:]
	}

	block[offLX] = st.LX
	block[offLY] = st.LY
	block[offRX] = st.RX
	block[offRY] = st.RY
	block[offL2] = st.L2
	block[offR2] = st.R2

	b0, b1, b2 := encodeButtonsForTest(st.Buttons)
	block[offBtn0] = b0
	block[offBtn1] = b1
	block[offBtn2] = b2

	// Wire order for angular velocity is X, Z, Y.
	binary.LittleEndian.PutUint16(block[offGyro:], uint16(st.GyroX))
	binary.LittleEndian.PutUint16(block[offGyro+2:], uint16(st.GyroZ))
	binary.LittleEndian.PutUint16(block[offGyro+4:], uint16(st.GyroY))
	binary.LittleEndian.PutUint16(block[offAccel:], uint16(st.AccelX))
	binary.LittleEndian.PutUint16(block[offAccel+2:], uint16(st.AccelY))
	binary.LittleEndian.PutUint16(block[offAccel+4:], uint16(st.AccelZ))

	binary.LittleEndian.PutUint32(block[offTouch1:], packTouchForTest(st.Touch[0]))
	binary.LittleEndian.PutUint32(block[offTouch2:], packTouchForTest(st.Touch[1]))

	block[offPower] = packPowerForTest(st.Battery, st.Charging)
	return report
}

func encodeButtonsForTest(btns state.Button) (b0, b1, b2 byte) {
	up := btns&state.ButtonDpadUp != 0
	down := btns&state.ButtonDpadDown != 0
	left := btns&state.ButtonDpadLeft != 0
	right := btns&state.ButtonDpadRight != 0

	hat := byte(hatNeutral)
	switch {
	case up && right:
		hat = hatUpRight
	case up && left:
		hat = hatUpLeft
	case down && right:
		hat = hatDownRight
	case down && left:
		hat = hatDownLeft
	case up:
		hat = hatUp
	case down:
		hat = hatDown
	case left:
		hat = hatLeft
	case right:
		hat = hatRight
	}
	b0 = hat
	if btns&state.ButtonSquare != 0 {
		b0 |= btn0Square
	}
	if btns&state.ButtonCross != 0 {
		b0 |= btn0Cross
	}
	if btns&state.ButtonCircle != 0 {
		b0 |= btn0Circle
	}
	if btns&state.ButtonTriangle != 0 {
		b0 |= btn0Triangle
	}
	if btns&state.ButtonL1 != 0 {
		b1 |= btn1L1
	}
	if btns&state.ButtonR1 != 0 {
		b1 |= btn1R1
	}
	if btns&state.ButtonL2 != 0 {
		b1 |= btn1L2
	}
	if btns&state.ButtonR2 != 0 {
		b1 |= btn1R2
	}
	if btns&state.ButtonCreate != 0 {
		b1 |= btn1Create
	}
	if btns&state.ButtonOptions != 0 {
		b1 |= btn1Options
	}
	if btns&state.ButtonL3 != 0 {
		b1 |= btn1L3
	}
	if btns&state.ButtonR3 != 0 {
		b1 |= btn1R3
	}
	if btns&state.ButtonPS != 0 {
		b2 |= btn2PS
	}
	if btns&state.ButtonTouchpad != 0 {
		b2 |= btn2Touchpad
	}
	if btns&state.ButtonMute != 0 {
		b2 |= btn2Mute
	}
	return b0, b1, b2
}

func packTouchForTest(t state.TouchPoint) uint32 {
	return uint32(t.ID) | uint32(t.X&0xFFF)<<8 | uint32(t.Y&0xFFF)<<20
}

func packPowerForTest(level uint8, charging bool) byte {
	if level >= 100 && !charging {
		return powerStatusComplete << powerStatusShift
	}
	raw := byte(0)
	if level >= 5 {
		raw = byte((level - 5) / 10)
	}
	if charging {
		raw |= powerStatusCharging << powerStatusShift
	}
	return raw
}

func sampleState() state.ControllerState {
	st := state.Neutral(0)
	st.Buttons = state.ButtonCross | state.ButtonL1 | state.ButtonDpadUp |
		state.ButtonDpadRight | state.ButtonPS | state.ButtonMute
	st.LX, st.LY, st.RX, st.RY = 0x12, 0xEE, 0x80, 0x7F
	st.L2, st.R2 = 0x00, 0xC3
	st.GyroX, st.GyroY, st.GyroZ = 1234, -2345, 3456
	st.AccelX, st.AccelY, st.AccelZ = -111, 222, -5023
	st.Touch[0] = state.TouchPoint{ID: 0x05, X: 123, Y: 456}
	st.Touch[1] = state.TouchPoint{ID: state.TouchInactiveBit | 0x06}
	st.Battery = 75
	st.Charging = true
	return st
}

func TestDecodeRoundTripBothTransports(t *testing.T) {
	for _, bt := range []bool{false, true} {
		name := "usb"
		if bt {
			name = "bluetooth"
		}
		t.Run(name, func(t *testing.T) {
			want := sampleState()
			report := buildInputReport(want, bt)

			var got state.ControllerState
			require.NoError(t, decodeInputReport(report, &got))
			assert.Equal(t, want, got)

			// Re-encoding the decoded state reproduces the report byte
			// for byte; unmodeled fields are zero on both sides.
			assert.Equal(t, report, buildInputReport(got, bt))
		})
	}
}

func TestDecodeHatTable(t *testing.T) {
	cases := []struct {
		hat  byte
		want state.Button
	}{
		{hatUp, state.ButtonDpadUp},
		{hatUpRight, state.ButtonDpadUp | state.ButtonDpadRight},
		{hatRight, state.ButtonDpadRight},
		{hatDownRight, state.ButtonDpadDown | state.ButtonDpadRight},
		{hatDown, state.ButtonDpadDown},
		{hatDownLeft, state.ButtonDpadDown | state.ButtonDpadLeft},
		{hatLeft, state.ButtonDpadLeft},
		{hatUpLeft, state.ButtonDpadUp | state.ButtonDpadLeft},
		{hatNeutral, 0},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, decodeButtons(c.hat, 0, 0), "hat %d", c.hat)
	}
}

func TestDecodeRejectsUnknownFraming(t *testing.T) {
	var st state.ControllerState

	short := make([]byte, 10)
	short[0] = ReportIDInputUSB
	assert.ErrorIs(t, decodeInputReport(short, &st), driver.ErrTransient)

	wrongID := make([]byte, InputReportSizeUSB)
	wrongID[0] = 0x77
	assert.ErrorIs(t, decodeInputReport(wrongID, &st), driver.ErrTransient)

	// A BT-sized buffer with the USB id is still the USB layout.
	usbLong := make([]byte, InputReportSizeBT)
	usbLong[0] = ReportIDInputUSB
	assert.NoError(t, decodeInputReport(usbLong, &st))
}

func TestDecodeGyroWireOrder(t *testing.T) {
	// Independent of the encode helper: distinct raw values at the three
	// wire offsets must land on X, Z, Y in that order.
	report := buildInputReport(state.Neutral(0), false)
	block := report[1:]
	binary.LittleEndian.PutUint16(block[offGyro:], 100)
	binary.LittleEndian.PutUint16(block[offGyro+2:], 200)
	binary.LittleEndian.PutUint16(block[offGyro+4:], 300)

	var st state.ControllerState
	require.NoError(t, decodeInputReport(report, &st))
	assert.Equal(t, int16(100), st.GyroX)
	assert.Equal(t, int16(200), st.GyroZ)
	assert.Equal(t, int16(300), st.GyroY)
}

func TestDecodeTouchClampsToPanel(t *testing.T) {
	// 12-bit raw coordinates past the panel edge clamp to it.
	p := decodeTouch(uint32(0x01) | uint32(4000)<<8 | uint32(2000)<<20)
	assert.Equal(t, uint16(TouchpadMaxX), p.X)
	assert.Equal(t, uint16(TouchpadMaxY), p.Y)
	assert.True(t, p.Active())
}

func TestDecodeTouchActiveFlag(t *testing.T) {
	active := decodeTouch(packTouchForTest(state.TouchPoint{ID: 0x03, X: 1919, Y: 1000}))
	assert.True(t, active.Active())
	assert.Equal(t, uint16(1919), active.X)
	assert.Equal(t, uint16(1000), active.Y)

	idle := decodeTouch(packTouchForTest(state.TouchPoint{ID: state.TouchInactiveBit | 0x03}))
	assert.False(t, idle.Active())
}

func TestDecodeCreateOptionsAliasSelectStart(t *testing.T) {
	got := decodeButtons(hatNeutral, btn1Create|btn1Options, 0)
	assert.True(t, got&state.ButtonCreate != 0)
	assert.True(t, got&state.ButtonSelect != 0)
	assert.True(t, got&state.ButtonOptions != 0)
	assert.True(t, got&state.ButtonStart != 0)
}

func TestEncodeOutputUSB(t *testing.T) {
	out := state.ControllerOutput{
		RumbleLeft:  0x80,
		RumbleRight: 0x40,
		LedR:        30, LedG: 15, LedB: 0,
		PlayerLEDs:       0b00101,
		PlayerBrightness: 255,
	}
	report := encodeOutputReport(&out, false, 0)

	require.Len(t, report, OutputReportSizeUSB)
	assert.Equal(t, byte(ReportIDOutputUSB), report[0])
	block := report[1:]
	assert.Equal(t, byte(outFlags0Rumble), block[outOffFlags0])
	assert.Equal(t, byte(outFlags1Leds), block[outOffFlags1])
	assert.Equal(t, byte(0x40), block[outOffRumbleR])
	assert.Equal(t, byte(0x80), block[outOffRumbleL])
	assert.Equal(t, byte(brightnessBright), block[outOffBrightness])
	assert.Equal(t, byte(0b00101), block[outOffPlayerLeds])
	assert.Equal(t, byte(30), block[outOffLedR])
	assert.Equal(t, byte(15), block[outOffLedG])
	assert.Equal(t, byte(0), block[outOffLedB])
}

func TestEncodeOutputBTAppendsCRC(t *testing.T) {
	out := state.ControllerOutput{RumbleLeft: 0xFF, LedB: 0x40}
	report := encodeOutputReport(&out, true, 3)

	require.Len(t, report, OutputReportSizeBT)
	assert.Equal(t, byte(ReportIDOutputBT), report[0])
	assert.Equal(t, byte(3<<4), report[1])
	assert.Equal(t, byte(btOutputTag), report[2])

	crc := crc32.Update(0, crc32.IEEETable, []byte{btCRCSeed})
	crc = crc32.Update(crc, crc32.IEEETable, report[:btOutputCRCOffset])
	assert.Equal(t, crc, binary.LittleEndian.Uint32(report[btOutputCRCOffset:]))
}

func TestBrightnessScale(t *testing.T) {
	assert.Equal(t, byte(brightnessBright), brightnessFor(255))
	assert.Equal(t, byte(brightnessBright), brightnessFor(170))
	assert.Equal(t, byte(brightnessMid), brightnessFor(120))
	assert.Equal(t, byte(brightnessDim), brightnessFor(10))
}

func TestDecodePower(t *testing.T) {
	lvl, charging := decodePower(0x07)
	assert.Equal(t, uint8(75), lvl)
	assert.False(t, charging)

	lvl, charging = decodePower(0x17)
	assert.Equal(t, uint8(75), lvl)
	assert.True(t, charging)

	lvl, charging = decodePower(0x20)
	assert.Equal(t, uint8(100), lvl)
	assert.False(t, charging)
}

func TestParseHidID(t *testing.T) {
	bus, vid, pid, ok := parseHidID("DRIVER=playstation\nHID_ID=0005:0000054C:00000CE6\nHID_PHYS=x\n")
	require.True(t, ok)
	assert.Equal(t, hidBusBluetooth, bus)
	assert.Equal(t, uint16(VendorSony), vid)
	assert.Equal(t, uint16(ProductDualSense), pid)

	_, _, _, ok = parseHidID("HID_NAME=whatever\n")
	assert.False(t, ok)
}
