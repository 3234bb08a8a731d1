package dualsense

import (
	"encoding/binary"
	"hash/crc32"

	"github.com/Alia5/dsbridge/state"
)

// encodeOutputReport builds the wire report matching the transport currently
// in use. seq is the per-device Bluetooth sequence counter, ignored on USB.
func encodeOutputReport(out *state.ControllerOutput, bt bool, seq uint8) []byte {
	if bt {
		b := make([]byte, OutputReportSizeBT)
		b[0] = ReportIDOutputBT
		b[1] = (seq & 0x0F) << 4
		b[2] = btOutputTag
		encodeOutputBlock(b[3:], out)
		appendCRC(b)
		return b
	}
	b := make([]byte, OutputReportSizeUSB)
	b[0] = ReportIDOutputUSB
	encodeOutputBlock(b[1:], out)
	return b
}

func encodeOutputBlock(block []byte, out *state.ControllerOutput) {
	block[outOffFlags0] = outFlags0Rumble
	block[outOffFlags1] = outFlags1Leds
	block[outOffFlags38] = outFlags38Bright

	block[outOffRumbleR] = out.RumbleRight
	block[outOffRumbleL] = out.RumbleLeft

	block[outOffBrightness] = brightnessFor(out.PlayerBrightness)
	block[outOffPlayerLeds] = out.PlayerLEDs & 0x1F
	block[outOffLedR] = out.LedR
	block[outOffLedG] = out.LedG
	block[outOffLedB] = out.LedB
}

// brightnessFor scales the 0..255 player-LED PWM value onto the report's
// three-step brightness field.
func brightnessFor(pwm uint8) byte {
	switch {
	case pwm >= 170:
		return brightnessBright
	case pwm >= 85:
		return brightnessMid
	default:
		return brightnessDim
	}
}

// appendCRC seeds a CRC-32 with the Bluetooth output prefix byte and writes
// it over the last four bytes of the report, as the wire format requires.
func appendCRC(report []byte) {
	crc := crc32.Update(0, crc32.IEEETable, []byte{btCRCSeed})
	crc = crc32.Update(crc, crc32.IEEETable, report[:btOutputCRCOffset])
	binary.LittleEndian.PutUint32(report[btOutputCRCOffset:], crc)
}
