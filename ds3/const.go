package ds3

// Device identity presented to the PS3. These must match a genuine
// DualShock 3 or the console ignores the controller.
const (
	VendorID  = 0x054C
	ProductID = 0x0268

	ManufacturerString = "Sony"
	ProductString      = "PLAYSTATION(R)3 Controller"
)

// InputReportSize is the full DS3 HID input report, report id included.
const InputReportSize = 48

// HID class request codes seen on endpoint 0.
const (
	HIDGetReport = 0x01
	HIDGetIdle   = 0x02
	HIDSetReport = 0x09
	HIDSetIdle   = 0x0A

	// bmRequestType values for class-interface HID traffic.
	ReqTypeGetClassInterface = 0xA1
	ReqTypeSetClassInterface = 0x21
	ReqTypeGetStdInterface   = 0x81

	// Standard request used during enumeration.
	StdGetDescriptor = 0x06

	DescTypeHIDReport = 0x22
)

// HID report types (high byte of wValue).
const (
	ReportTypeInput   = 0x01
	ReportTypeOutput  = 0x02
	ReportTypeFeature = 0x03
)

// Feature report ids of the DS3 pairing handshake.
const (
	ReportF2 = 0xF2
	ReportF4 = 0xF4
	ReportF5 = 0xF5
	ReportF7 = 0xF7
	ReportF8 = 0xF8
	ReportEF = 0xEF
)

// Input report byte offsets.
const (
	offReportID = 0
	offButtons1 = 2
	offButtons2 = 3
	offPS       = 4
	offLX       = 6
	offLY       = 7
	offRX       = 8
	offRY       = 9

	offPressureUp       = 14
	offPressureRight    = 15
	offPressureDown     = 16
	offPressureLeft     = 17
	offPressureL2       = 18
	offPressureR2       = 19
	offPressureL1       = 20
	offPressureR1       = 21
	offPressureTriangle = 22
	offPressureCircle   = 23
	offPressureCross    = 24
	offPressureSquare   = 25

	offCharge     = 29
	offBattery    = 30
	offConnection = 31

	offAccelX = 40 // big-endian 10-bit words
	offAccelY = 42
	offAccelZ = 44
	offGyroZ  = 46
)

// Buttons byte 1 (report offset 2).
const (
	btnSelect    = 0x01
	btnL3        = 0x02
	btnR3        = 0x04
	btnStart     = 0x08
	btnDpadUp    = 0x10
	btnDpadRight = 0x20
	btnDpadDown  = 0x40
	btnDpadLeft  = 0x80
)

// Buttons byte 2 (report offset 3).
const (
	btnL2       = 0x01
	btnR2       = 0x02
	btnL1       = 0x04
	btnR1       = 0x08
	btnTriangle = 0x10
	btnCircle   = 0x20
	btnCross    = 0x40
	btnSquare   = 0x80
)

const btnPS = 0x01

// Battery/connection bytes of a wired pad.
const (
	chargeUSB       = 0x02
	batteryCharging = 0xEE
	connectionUSB   = 0x04
)

// Motion axes are 10-bit values centered on 512, stored big-endian.
const motionCenter = 512

// Output report (id 0x01) byte offsets, id included.
const (
	outOffRumbleSmallDur = 1
	outOffRumbleSmall    = 2
	outOffRumbleLargeDur = 3
	outOffRumbleLarge    = 4
	outOffLeds           = 9 // player LED bitmap, bits 1..4
)

// ReportDescriptor is the DualShock 3 HID report descriptor, bit-exact with
// the genuine controller.
var ReportDescriptor = []byte{
	0x05, 0x01, // Usage Page (Generic Desktop)
	0x09, 0x04, // Usage (Joystick)
	0xA1, 0x01, // Collection (Application)
	0xA1, 0x02, //   Collection (Logical)
	0x85, 0x01, //     Report ID (1)
	0x75, 0x08, //     Report Size (8)
	0x95, 0x01, //     Report Count (1)
	0x15, 0x00, //     Logical Minimum (0)
	0x26, 0xFF, 0x00, // Logical Maximum (255)
	0x81, 0x03, //     Input (Const, Var, Abs)
	0x75, 0x01, //     Report Size (1)
	0x95, 0x13, //     Report Count (19)
	0x15, 0x00, //     Logical Minimum (0)
	0x25, 0x01, //     Logical Maximum (1)
	0x35, 0x00, //     Physical Minimum (0)
	0x45, 0x01, //     Physical Maximum (1)
	0x05, 0x09, //     Usage Page (Button)
	0x19, 0x01, //     Usage Minimum (1)
	0x29, 0x13, //     Usage Maximum (19)
	0x81, 0x02, //     Input (Data, Var, Abs)
	0x75, 0x01, //     Report Size (1)
	0x95, 0x0D, //     Report Count (13)
	0x06, 0x00, 0xFF, // Usage Page (Vendor)
	0x81, 0x03, //     Input (Const, Var, Abs)
	0x15, 0x00, //     Logical Minimum (0)
	0x26, 0xFF, 0x00, // Logical Maximum (255)
	0x05, 0x01, //     Usage Page (Generic Desktop)
	0x09, 0x01, //     Usage (Pointer)
	0xA1, 0x00, //     Collection (Physical)
	0x75, 0x08, //       Report Size (8)
	0x95, 0x04, //       Report Count (4)
	0x35, 0x00, //       Physical Minimum (0)
	0x46, 0xFF, 0x00, //  Physical Maximum (255)
	0x09, 0x30, //       Usage (X)
	0x09, 0x31, //       Usage (Y)
	0x09, 0x32, //       Usage (Z)
	0x09, 0x35, //       Usage (Rz)
	0x81, 0x02, //       Input (Data, Var, Abs)
	0xC0, //             End Collection
	0x05, 0x01, //     Usage Page (Generic Desktop)
	0x75, 0x08, //     Report Size (8)
	0x95, 0x27, //     Report Count (39)
	0x09, 0x01, //     Usage (Pointer)
	0x81, 0x02, //     Input (Data, Var, Abs)
	0x75, 0x08, //     Report Size (8)
	0x95, 0x30, //     Report Count (48)
	0x09, 0x01, //     Usage (Pointer)
	0x91, 0x02, //     Output (Data, Var, Abs)
	0x75, 0x08, //     Report Size (8)
	0x95, 0x30, //     Report Count (48)
	0x09, 0x01, //     Usage (Pointer)
	0xB1, 0x02, //     Feature (Data, Var, Abs)
	0xC0, //           End Collection
	0xA1, 0x02, //   Collection (Logical)
	0x85, 0x02, //     Report ID (2)
	0x75, 0x08, //     Report Size (8)
	0x95, 0x30, //     Report Count (48)
	0x09, 0x01, //     Usage (Pointer)
	0xB1, 0x02, //     Feature (Data, Var, Abs)
	0xC0, //           End Collection
	0xA1, 0x02, //   Collection (Logical)
	0x85, 0xEE, //     Report ID (238)
	0x75, 0x08, //     Report Size (8)
	0x95, 0x30, //     Report Count (48)
	0x09, 0x01, //     Usage (Pointer)
	0xB1, 0x02, //     Feature (Data, Var, Abs)
	0xC0, //           End Collection
	0xA1, 0x02, //   Collection (Logical)
	0x85, 0xEF, //     Report ID (239)
	0x75, 0x08, //     Report Size (8)
	0x95, 0x30, //     Report Count (48)
	0x09, 0x01, //     Usage (Pointer)
	0xB1, 0x02, //     Feature (Data, Var, Abs)
	0xC0, //           End Collection
	0xC0, // End Collection
}

// reportF2 is the canned response to GET_REPORT(feature 0xF2): the vendor
// magic plus the controller's Bluetooth address at bytes 4..9. The tail
// bytes are the constants a genuine pad returns.
var reportF2 = []byte{
	0xFF, 0xFF, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, // BD address, patched at runtime
	0x00, 0x03, 0x50, 0x81, 0xD8, 0x01, 0x8A,
}

const reportF2AddrOffset = 4

// reportF5 is the canned response to GET_REPORT(feature 0xF5): the paired
// host address with its two-byte prefix.
var reportF5 = []byte{
	0x01, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, // host BD address, patched at runtime
}

const reportF5AddrOffset = 2

// reportF8 answers the capability probe some consoles issue; a real pad
// returns all zeroes here.
var reportF8 = make([]byte, 64)

// reportEF mirrors the EF calibration page; zeroes satisfy the console.
var reportEF = make([]byte, 48)

// enableF4 is the payload a PS3 sends with SET_REPORT(feature 0xF4) to
// switch the pad into operational mode.
var enableF4 = []byte{0x42, 0x0C, 0x00, 0x00}
