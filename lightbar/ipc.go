// Package lightbar picks up externally-set LED state from the control
// panel's IPC file and folds it into the output bus.
package lightbar

import (
	"os"
	"strconv"
	"strings"

	"github.com/Alia5/dsbridge/state"
)

// DefaultPath is where the panel drops its lightbar record.
const DefaultPath = "/run/dsbridge/lightbar"

// Reader polls a newline-terminated record of the form
//
//	{"r": 255, "g": 0, "b": 64, "player_leds": 1, "player_led_brightness": 0.5}
//
// The parser is a permissive key scan: missing fields leave the output
// unchanged, unknown keys are ignored, malformed values are the panel's
// problem and silently skipped.
type Reader struct {
	path    string
	standby func() bool
}

// NewReader returns a reader for path; an empty path selects DefaultPath.
// standby suppresses the reader entirely while the bridge is in standby.
func NewReader(path string, standby func() bool) *Reader {
	if path == "" {
		path = DefaultPath
	}
	if standby == nil {
		standby = func() bool { return false }
	}
	return &Reader{path: path, standby: standby}
}

// Poll reads the record and applies any present fields to out. It reports
// whether anything changed. A missing file is a no-op.
func (r *Reader) Poll(out *state.ControllerOutput) bool {
	if r.standby() {
		return false
	}
	data, err := os.ReadFile(r.path)
	if err != nil {
		return false
	}
	record := string(data)
	if i := strings.IndexByte(record, '\n'); i >= 0 {
		record = record[:i]
	}

	changed := false
	if v, ok := scanUint8(record, `"r":`); ok && out.LedR != v {
		out.LedR = v
		changed = true
	}
	if v, ok := scanUint8(record, `"g":`); ok && out.LedG != v {
		out.LedG = v
		changed = true
	}
	if v, ok := scanUint8(record, `"b":`); ok && out.LedB != v {
		out.LedB = v
		changed = true
	}
	if v, ok := scanUint8(record, `"player_leds":`); ok {
		v &= 0x1F
		if out.PlayerLEDs != v {
			out.PlayerLEDs = v
			changed = true
		}
	}
	if f, ok := scanFloat(record, `"player_led_brightness":`); ok {
		if f < 0 {
			f = 0
		}
		if f > 1 {
			f = 1
		}
		v := uint8(f * 255)
		if out.PlayerBrightness != v {
			out.PlayerBrightness = v
			changed = true
		}
	}
	return changed
}

// scanUint8 finds key anywhere in the record and parses the number after it.
func scanUint8(record, key string) (uint8, bool) {
	f, ok := scanFloat(record, key)
	if !ok || f < 0 || f > 255 {
		return 0, false
	}
	return uint8(f), true
}

func scanFloat(record, key string) (float64, bool) {
	i := strings.Index(record, key)
	if i < 0 {
		return 0, false
	}
	rest := record[i+len(key):]
	rest = strings.TrimLeft(rest, " \t")
	end := 0
	for end < len(rest) {
		c := rest[end]
		if (c >= '0' && c <= '9') || c == '.' || c == '-' || c == '+' {
			end++
			continue
		}
		break
	}
	if end == 0 {
		return 0, false
	}
	v, err := strconv.ParseFloat(rest[:end], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
