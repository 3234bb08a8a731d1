package ds3

import (
	"encoding/binary"

	"github.com/Alia5/dsbridge/state"
)

// buttonMap is the fixed translation from the normalized button set to the
// DS3 bitmap. Buttons the DS3 lacks fold onto their closest equivalent:
// create and the touchpad click act as select, options as start.
var buttonMap = []struct {
	from state.Button
	b1   byte // report offset 2
	b2   byte // report offset 3
}{
	{state.ButtonSelect, btnSelect, 0},
	{state.ButtonCreate, btnSelect, 0},
	{state.ButtonTouchpad, btnSelect, 0},
	{state.ButtonL3, btnL3, 0},
	{state.ButtonR3, btnR3, 0},
	{state.ButtonStart, btnStart, 0},
	{state.ButtonOptions, btnStart, 0},
	{state.ButtonDpadUp, btnDpadUp, 0},
	{state.ButtonDpadRight, btnDpadRight, 0},
	{state.ButtonDpadDown, btnDpadDown, 0},
	{state.ButtonDpadLeft, btnDpadLeft, 0},
	{state.ButtonL2, 0, btnL2},
	{state.ButtonR2, 0, btnR2},
	{state.ButtonL1, 0, btnL1},
	{state.ButtonR1, 0, btnR1},
	{state.ButtonTriangle, 0, btnTriangle},
	{state.ButtonCircle, 0, btnCircle},
	{state.ButtonCross, 0, btnCross},
	{state.ButtonSquare, 0, btnSquare},
}

// pressureMap pairs each pressure byte with the digital button it shadows.
var pressureMap = []struct {
	off int
	btn state.Button
}{
	{offPressureUp, state.ButtonDpadUp},
	{offPressureRight, state.ButtonDpadRight},
	{offPressureDown, state.ButtonDpadDown},
	{offPressureLeft, state.ButtonDpadLeft},
	{offPressureL1, state.ButtonL1},
	{offPressureR1, state.ButtonR1},
	{offPressureTriangle, state.ButtonTriangle},
	{offPressureCircle, state.ButtonCircle},
	{offPressureCross, state.ButtonCross},
	{offPressureSquare, state.ButtonSquare},
}

// BuildInputReport synthesizes the 48-byte DS3 input report from a
// normalized snapshot.
func BuildInputReport(st *state.ControllerState) []byte {
	b := make([]byte, InputReportSize)
	b[offReportID] = 0x01

	for _, m := range buttonMap {
		if st.Buttons&m.from != 0 {
			b[offButtons1] |= m.b1
			b[offButtons2] |= m.b2
		}
	}
	if st.Buttons&state.ButtonPS != 0 {
		b[offPS] = btnPS
	}

	b[offLX] = st.LX
	b[offLY] = st.LY
	b[offRX] = st.RX
	b[offRY] = st.RY

	// Pressure bytes shadow their digital buttons; the analog triggers
	// pass through.
	for _, p := range pressureMap {
		if st.Buttons&p.btn != 0 {
			b[p.off] = 0xFF
		}
	}
	b[offPressureL2] = st.L2
	b[offPressureR2] = st.R2

	b[offCharge] = chargeUSB
	b[offBattery] = batteryByte(st.Battery, st.Charging)
	b[offConnection] = connectionUSB

	binary.BigEndian.PutUint16(b[offAccelX:], motionWord(st.AccelX))
	binary.BigEndian.PutUint16(b[offAccelY:], motionWord(st.AccelY))
	binary.BigEndian.PutUint16(b[offAccelZ:], motionWord(st.AccelZ))
	binary.BigEndian.PutUint16(b[offGyroZ:], motionWord(st.GyroZ))

	return b
}

// batteryByte maps 0..100% to the DS3's 0..5 scale, 0xEE while charging.
func batteryByte(level uint8, charging bool) byte {
	if charging {
		return batteryCharging
	}
	v := level / 20
	if v > 5 {
		v = 5
	}
	return v
}

// motionWord folds a signed 16-bit axis into the DS3's 10-bit format
// centered on 512.
func motionWord(v int16) uint16 {
	scaled := int(v)>>6 + motionCenter
	if scaled < 0 {
		scaled = 0
	}
	if scaled > 1023 {
		scaled = 1023
	}
	return uint16(scaled)
}
