// Package ds3 emulates a DualShock 3 toward a PlayStation 3: the feature
// report handshake on the control endpoint, input report synthesis for the
// interrupt-in endpoint and output report decoding from the host.
package ds3

import (
	"log/slog"
	"sync"

	dslog "github.com/Alia5/dsbridge/internal/log"
	"github.com/Alia5/dsbridge/state"
)

// HandshakeState tracks progress through the PS3 pairing exchange.
type HandshakeState int

const (
	WaitEnum HandshakeState = iota
	WaitGetReportF2
	WaitGetReportF5
	WaitSetReportF4
	Operational
)

func (s HandshakeState) String() string {
	switch s {
	case WaitEnum:
		return "wait-enum"
	case WaitGetReportF2:
		return "wait-get-f2"
	case WaitGetReportF5:
		return "wait-get-f5"
	case WaitSetReportF4:
		return "wait-set-f4"
	case Operational:
		return "operational"
	default:
		return "?"
	}
}

// Emulator is the PS3-facing protocol engine. The gadget control thread
// feeds it endpoint-0 requests; the data thread asks it for input reports
// and hands it interrupt-out traffic.
type Emulator struct {
	mu sync.Mutex
	hs HandshakeState

	bus     *state.Bus
	standby func() bool
	logger  *slog.Logger

	bdAddr   [6]byte
	hostAddr [6]byte
}

// New returns an emulator in WAIT_ENUM. standby gates host LED writes; it
// may be nil when the caller has no standby notion (tests).
func New(bus *state.Bus, standby func() bool, logger *slog.Logger) *Emulator {
	if standby == nil {
		standby = func() bool { return false }
	}
	return &Emulator{
		bus:     bus,
		standby: standby,
		logger:  logger.With(dslog.CategoryKey, "usb"),
	}
}

// SetAddresses configures the Bluetooth addresses reported during the
// handshake: the pad's own and the paired host's.
func (e *Emulator) SetAddresses(bdAddr, hostAddr [6]byte) {
	e.mu.Lock()
	e.bdAddr = bdAddr
	e.hostAddr = hostAddr
	e.mu.Unlock()
}

// State returns the current handshake state.
func (e *Emulator) State() HandshakeState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hs
}

// Operational reports whether the data channel may emit input reports.
func (e *Emulator) Operational() bool {
	return e.State() == Operational
}

// Reset drops the handshake back to WAIT_ENUM, used when the gadget is
// disabled or the cable re-attached.
func (e *Emulator) Reset() {
	e.mu.Lock()
	prev := e.hs
	e.hs = WaitEnum
	e.mu.Unlock()
	if prev != WaitEnum {
		e.logger.Info("handshake reset", "from", prev.String())
	}
}

// HandleControl services one endpoint-0 request. For IN requests the
// returned bytes are the response payload; ok=false means the request is
// not ours and the endpoint should stall.
//
// Every recognized request gets its canned response whether or not it is
// the one the handshake expects; only the expected request advances state.
func (e *Emulator) HandleControl(bmRequestType, bRequest uint8, wValue, wIndex, wLength uint16, data []byte) ([]byte, bool) {
	switch {
	case bmRequestType == ReqTypeGetStdInterface && bRequest == StdGetDescriptor:
		if uint8(wValue>>8) == DescTypeHIDReport {
			// Report descriptor fetch is the tail of enumeration.
			e.advance(WaitEnum, WaitGetReportF2, "enumeration complete")
			return clip(ReportDescriptor, wLength), true
		}
		return nil, false

	case bmRequestType == ReqTypeGetClassInterface && bRequest == HIDGetReport:
		return e.handleGetReport(wValue, wLength)

	case bmRequestType == ReqTypeSetClassInterface && bRequest == HIDSetReport:
		return nil, e.handleSetReport(wValue, data)

	case bmRequestType == ReqTypeSetClassInterface && bRequest == HIDSetIdle:
		return nil, true
	}

	e.logger.Warn("unsupported control request",
		"bmRequestType", bmRequestType,
		"bRequest", bRequest,
		"wValue", wValue)
	return nil, false
}

func (e *Emulator) handleGetReport(wValue, wLength uint16) ([]byte, bool) {
	reportType := uint8(wValue >> 8)
	reportID := uint8(wValue)

	if reportType == ReportTypeInput {
		st := e.bus.SnapshotInput()
		return clip(BuildInputReport(&st), wLength), true
	}
	if reportType != ReportTypeFeature {
		return nil, false
	}

	switch reportID {
	case ReportF2:
		e.advance(WaitGetReportF2, WaitGetReportF5, "feature f2 read")
		r := append([]byte(nil), reportF2...)
		e.mu.Lock()
		copy(r[reportF2AddrOffset:], e.bdAddr[:])
		e.mu.Unlock()
		return clip(r, wLength), true
	case ReportF5:
		e.advance(WaitGetReportF5, WaitSetReportF4, "feature f5 read")
		r := append([]byte(nil), reportF5...)
		e.mu.Lock()
		copy(r[reportF5AddrOffset:], e.hostAddr[:])
		e.mu.Unlock()
		return clip(r, wLength), true
	case ReportF8:
		return clip(reportF8, wLength), true
	case ReportEF:
		return clip(reportEF, wLength), true
	}

	e.logger.Warn("unexpected feature report read", "report", reportID)
	return nil, false
}

func (e *Emulator) handleSetReport(wValue uint16, data []byte) bool {
	reportType := uint8(wValue >> 8)
	reportID := uint8(wValue)

	if reportType == ReportTypeFeature {
		switch reportID {
		case ReportF4:
			e.advance(WaitSetReportF4, Operational, "feature f4 written")
			return true
		case ReportF5:
			// Host pairing write: remember the address for the wake path.
			if len(data) >= reportF5AddrOffset+6 {
				e.mu.Lock()
				copy(e.hostAddr[:], data[reportF5AddrOffset:])
				e.mu.Unlock()
			}
			return true
		}
		e.logger.Warn("unexpected feature report write", "report", reportID)
		return false
	}

	// Rumble/LED output arrives as a set-report on id 0x01; some stacks tag
	// it input-type, others output-type.
	if reportID == 0x01 && (reportType == ReportTypeOutput || reportType == ReportTypeInput) {
		e.HandleOutputReport(data)
		return true
	}
	return false
}

// advance moves from one handshake state to the next when the expected
// request arrives; anything else is answered without advancing.
func (e *Emulator) advance(from, to HandshakeState, why string) {
	e.mu.Lock()
	if e.hs != from {
		cur := e.hs
		e.mu.Unlock()
		if cur != Operational {
			e.logger.Warn("out-of-order handshake request", "state", cur.String(), "request", why)
		}
		return
	}
	e.hs = to
	e.mu.Unlock()
	e.logger.Info("handshake advanced", "to", to.String(), "on", why)
}

func clip(b []byte, wLength uint16) []byte {
	if wLength > 0 && int(wLength) < len(b) {
		return b[:wLength]
	}
	return b
}
