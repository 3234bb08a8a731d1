package lightbar

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alia5/dsbridge/state"
)

func writeRecord(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "lightbar")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestPollAppliesFields(t *testing.T) {
	path := writeRecord(t, t.TempDir(),
		`{"r": 10, "g": 20, "b": 30, "player_leds": 3, "player_led_brightness": 1.0}`+"\n")
	r := NewReader(path, nil)

	var out state.ControllerOutput
	assert.True(t, r.Poll(&out))
	assert.Equal(t, uint8(10), out.LedR)
	assert.Equal(t, uint8(20), out.LedG)
	assert.Equal(t, uint8(30), out.LedB)
	assert.Equal(t, uint8(3), out.PlayerLEDs)
	assert.Equal(t, uint8(255), out.PlayerBrightness)
}

func TestPollMissingFieldsLeaveOutputUnchanged(t *testing.T) {
	path := writeRecord(t, t.TempDir(), `{"r": 99}`)
	r := NewReader(path, nil)

	out := state.ControllerOutput{LedG: 77, PlayerLEDs: 5}
	assert.True(t, r.Poll(&out))
	assert.Equal(t, uint8(99), out.LedR)
	assert.Equal(t, uint8(77), out.LedG, "absent g untouched")
	assert.Equal(t, uint8(5), out.PlayerLEDs)
}

func TestPollMissingFileNoOp(t *testing.T) {
	r := NewReader(filepath.Join(t.TempDir(), "nope"), nil)
	out := state.ControllerOutput{LedR: 1}
	assert.False(t, r.Poll(&out))
	assert.Equal(t, uint8(1), out.LedR)
}

func TestPollParseErrorsSilent(t *testing.T) {
	path := writeRecord(t, t.TempDir(), `{"r": banana, "g": 20}`)
	r := NewReader(path, nil)

	var out state.ControllerOutput
	assert.True(t, r.Poll(&out))
	assert.Equal(t, uint8(0), out.LedR, "malformed value skipped")
	assert.Equal(t, uint8(20), out.LedG)
}

func TestPollIdempotentReportsNoChange(t *testing.T) {
	path := writeRecord(t, t.TempDir(), `{"r": 10}`)
	r := NewReader(path, nil)

	var out state.ControllerOutput
	assert.True(t, r.Poll(&out))
	assert.False(t, r.Poll(&out), "same record, no change")
}

func TestPollSuppressedInStandby(t *testing.T) {
	path := writeRecord(t, t.TempDir(), `{"r": 10}`)
	r := NewReader(path, func() bool { return true })

	var out state.ControllerOutput
	assert.False(t, r.Poll(&out))
	assert.Equal(t, uint8(0), out.LedR)
}

func TestPollBrightnessClamped(t *testing.T) {
	path := writeRecord(t, t.TempDir(), `{"player_led_brightness": 3.5}`)
	r := NewReader(path, nil)

	var out state.ControllerOutput
	r.Poll(&out)
	assert.Equal(t, uint8(255), out.PlayerBrightness)
}

func TestPollOnlyFirstLine(t *testing.T) {
	path := writeRecord(t, t.TempDir(), "{\"r\": 10}\n{\"r\": 200}\n")
	r := NewReader(path, nil)

	var out state.ControllerOutput
	r.Poll(&out)
	assert.Equal(t, uint8(10), out.LedR)
}
