package dualsense

const (
	VendorSony = 0x054C

	ProductDualSense     = 0x0CE6
	ProductDualSenseEdge = 0x0DF2
)

// Report ids and sizes for the two transports. The driver tells them apart
// by the id prefix and the length of the received buffer.
const (
	ReportIDInputUSB  = 0x01
	ReportIDInputBT   = 0x31
	ReportIDOutputUSB = 0x02
	ReportIDOutputBT  = 0x31

	InputReportSizeUSB = 64
	InputReportSizeBT  = 78

	OutputReportSizeUSB = 48
	OutputReportSizeBT  = 78
)

// Offsets of the common state block, relative to the start of the block
// (1 byte after the report id on USB, 2 bytes on Bluetooth).
const (
	offLX   = 0
	offLY   = 1
	offRX   = 2
	offRY   = 3
	offL2   = 4
	offR2   = 5
	offSeq  = 6
	offBtn0 = 7
	offBtn1 = 8
	offBtn2 = 9

	offGyro  = 15 // three LE int16, wire order X, Z, Y
	offAccel = 21 // three LE int16, wire order X, Y, Z

	offTouch1 = 32 // packed uint32
	offTouch2 = 36 // packed uint32

	offPower = 52
)

// Button byte 0: hat in the low nibble, face buttons above.
const (
	btn0Square   = 0x10
	btn0Cross    = 0x20
	btn0Circle   = 0x40
	btn0Triangle = 0x80

	hatMask = 0x0F
)

// Hat values 0..7 are cardinals and diagonals clockwise from north.
const (
	hatUp        = 0x00
	hatUpRight   = 0x01
	hatRight     = 0x02
	hatDownRight = 0x03
	hatDown      = 0x04
	hatDownLeft  = 0x05
	hatLeft      = 0x06
	hatUpLeft    = 0x07
	hatNeutral   = 0x08
)

// Button byte 1.
const (
	btn1L1      = 0x01
	btn1R1      = 0x02
	btn1L2      = 0x04
	btn1R2      = 0x08
	btn1Create  = 0x10
	btn1Options = 0x20
	btn1L3      = 0x40
	btn1R3      = 0x80
)

// Button byte 2.
const (
	btn2PS       = 0x01
	btn2Touchpad = 0x02
	btn2Mute     = 0x04
)

// Power byte: level in the low nibble (units of 10%), status above.
const (
	powerLevelMask   = 0x0F
	powerStatusShift = 4

	powerStatusDischarging = 0x00
	powerStatusCharging    = 0x01
	powerStatusComplete    = 0x02
)

// Output report set-flags. Flags0 enables classic rumble via the haptic
// actuators; flags1 opens the LED color and player indicator fields;
// flags38 opens the brightness field.
const (
	outFlags0Rumble    = 0x03
	outFlags1Leds      = 0x14
	outFlags38Bright   = 0x01
	btOutputTag        = 0x10
	btCRCSeed          = 0xA2
	btOutputCRCOffset  = OutputReportSizeBT - 4
	btInputCRCOffset   = InputReportSizeBT - 4
)

// Offsets within the 47-byte output state block.
const (
	outOffFlags0     = 0
	outOffFlags1     = 1
	outOffRumbleR    = 2 // high-frequency (small) motor
	outOffRumbleL    = 3 // low-frequency (large) motor
	outOffMuteLight  = 8
	outOffFlags38    = 38
	outOffBrightness = 42
	outOffPlayerLeds = 43
	outOffLedR       = 44
	outOffLedG       = 45
	outOffLedB       = 46
)

// Brightness enum in the output report.
const (
	brightnessBright = 0x00
	brightnessMid    = 0x01
	brightnessDim    = 0x02
)

// Touchpad coordinate limits.
const (
	TouchpadMaxX = 1920
	TouchpadMaxY = 1080
)
