// Package state holds the normalized controller model shared by the source
// driver, the remap layer and the PS3 protocol emulator, plus the latest-value
// bus those components exchange it through.
package state

// Button is one bit in the normalized packed button field.
type Button uint32

const (
	ButtonCross Button = 1 << iota
	ButtonCircle
	ButtonSquare
	ButtonTriangle
	ButtonL1
	ButtonR1
	ButtonL2
	ButtonR2
	ButtonL3
	ButtonR3
	ButtonDpadUp
	ButtonDpadDown
	ButtonDpadLeft
	ButtonDpadRight
	ButtonStart
	ButtonSelect
	ButtonOptions
	ButtonCreate
	ButtonPS
	ButtonTouchpad
	ButtonMute
)

var buttonNames = map[string]Button{
	"cross":      ButtonCross,
	"circle":     ButtonCircle,
	"square":     ButtonSquare,
	"triangle":   ButtonTriangle,
	"l1":         ButtonL1,
	"r1":         ButtonR1,
	"l2":         ButtonL2,
	"r2":         ButtonR2,
	"l3":         ButtonL3,
	"r3":         ButtonR3,
	"dpad_up":    ButtonDpadUp,
	"dpad_down":  ButtonDpadDown,
	"dpad_left":  ButtonDpadLeft,
	"dpad_right": ButtonDpadRight,
	"start":      ButtonStart,
	"select":     ButtonSelect,
	"options":    ButtonOptions,
	"create":     ButtonCreate,
	"ps":         ButtonPS,
	"touchpad":   ButtonTouchpad,
	"mute":       ButtonMute,
}

// ButtonByName resolves a symbolic button name (as used in profile objects)
// to its bit. The second return is false for unknown names.
func ButtonByName(name string) (Button, bool) {
	b, ok := buttonNames[name]
	return b, ok
}

// StickNeutral is the resting value of every stick axis.
const StickNeutral uint8 = 128

// TouchInactiveBit marks a touch point id as "no finger down".
const TouchInactiveBit uint8 = 0x80

// TouchPoint is one slot of the touchpad, id high bit set when inactive.
type TouchPoint struct {
	ID uint8
	X  uint16
	Y  uint16
}

// Active reports whether a finger is currently down on this slot.
func (t TouchPoint) Active() bool { return t.ID&TouchInactiveBit == 0 }

// ControllerState is a normalized input snapshot produced once per source
// poll. It carries no source-specific fields; drivers fold their raw reports
// into this shape.
type ControllerState struct {
	Buttons Button

	LX, LY uint8
	RX, RY uint8
	L2, R2 uint8

	GyroX, GyroY, GyroZ    int16
	AccelX, AccelY, AccelZ int16

	Touch [2]TouchPoint

	Battery  uint8 // 0..100
	Charging bool

	TimestampMS int64
}

// Neutral returns a released-everything snapshot with centered sticks.
func Neutral(timestampMS int64) ControllerState {
	return ControllerState{
		LX: StickNeutral, LY: StickNeutral,
		RX: StickNeutral, RY: StickNeutral,
		Touch: [2]TouchPoint{
			{ID: TouchInactiveBit},
			{ID: TouchInactiveBit},
		},
		TimestampMS: timestampMS,
	}
}

// Pressed reports whether all bits in b are set.
func (s ControllerState) Pressed(b Button) bool { return s.Buttons&b == b }

// ControllerOutput is the desired haptic/visual state of the source pad.
type ControllerOutput struct {
	RumbleLeft  uint8
	RumbleRight uint8

	LedR, LedG, LedB uint8

	PlayerLEDs       uint8 // bitfield, up to 5 indicators
	PlayerBrightness uint8
}
