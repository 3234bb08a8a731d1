package gadget

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"golang.org/x/sys/unix"

	dslog "github.com/Alia5/dsbridge/internal/log"
)

// FunctionFS event types delivered on ep0.
const (
	eventBind    = 0
	eventUnbind  = 1
	eventEnable  = 2
	eventDisable = 3
	eventSetup   = 4
	eventSuspend = 5
	eventResume  = 6
)

const eventSize = 12

// ControlHandler consumes endpoint-0 setup requests. The protocol emulator
// implements it; Reset is invoked when the host disables the function.
type ControlHandler interface {
	HandleControl(bmRequestType, bRequest uint8, wValue, wIndex, wLength uint16, data []byte) ([]byte, bool)
	Reset()
}

// Endpoints owns the three FunctionFS endpoint files: ep0 (control), ep1
// (interrupt-in) and ep2 (interrupt-out). Each file is serviced by exactly
// one thread; cancellation is a Close, which unblocks the pending syscall.
type Endpoints struct {
	ep0   *os.File
	epIn  *os.File
	epOut *os.File

	enabled atomic.Bool

	logger *slog.Logger
	raw    dslog.RawLogger
}

// Open mounts onto an externally prepared FunctionFS directory, pushes the
// function descriptors and opens the data endpoints. Failure here is fatal
// for the bridge.
func Open(dir string, logger *slog.Logger, raw dslog.RawLogger) (*Endpoints, error) {
	ep0, err := os.OpenFile(filepath.Join(dir, "ep0"), os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open ep0: %w", err)
	}
	if _, err := ep0.Write(descriptorsBlob()); err != nil {
		_ = ep0.Close()
		return nil, fmt.Errorf("write descriptors: %w", err)
	}
	if _, err := ep0.Write(stringsBlob()); err != nil {
		_ = ep0.Close()
		return nil, fmt.Errorf("write strings: %w", err)
	}

	epIn, err := os.OpenFile(filepath.Join(dir, "ep1"), os.O_RDWR, 0)
	if err != nil {
		_ = ep0.Close()
		return nil, fmt.Errorf("open ep1: %w", err)
	}
	epOut, err := os.OpenFile(filepath.Join(dir, "ep2"), os.O_RDWR, 0)
	if err != nil {
		_ = epIn.Close()
		_ = ep0.Close()
		return nil, fmt.Errorf("open ep2: %w", err)
	}
	// Output reports are polled opportunistically from the data thread.
	if err := unix.SetNonblock(int(epOut.Fd()), true); err != nil {
		logger.Warn("ep2 nonblock setup failed", "error", err)
	}

	return &Endpoints{
		ep0:    ep0,
		epIn:   epIn,
		epOut:  epOut,
		logger: logger.With(dslog.CategoryKey, "usb"),
		raw:    raw,
	}, nil
}

// Enabled reports whether the host has enabled the function (cable attached
// and configuration selected).
func (e *Endpoints) Enabled() bool { return e.enabled.Load() }

// ServeControl blocks on ep0 dispatching events until the context is
// cancelled or the endpoint dies.
func (e *Endpoints) ServeControl(ctx context.Context, h ControlHandler) error {
	buf := make([]byte, eventSize*4)
	for ctx.Err() == nil {
		n, err := e.ep0.Read(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("ep0 read: %w", err)
		}
		for off := 0; off+eventSize <= n; off += eventSize {
			e.dispatchEvent(buf[off:off+eventSize], h)
		}
	}
	return nil
}

func (e *Endpoints) dispatchEvent(ev []byte, h ControlHandler) {
	switch ev[8] {
	case eventBind:
		e.logger.Info("gadget bound")
	case eventUnbind:
		e.enabled.Store(false)
		h.Reset()
		e.logger.Info("gadget unbound")
	case eventEnable:
		e.enabled.Store(true)
		e.logger.Info("gadget enabled by host")
	case eventDisable:
		e.enabled.Store(false)
		h.Reset()
		e.logger.Info("gadget disabled by host")
	case eventSetup:
		e.handleSetup(ev[:8], h)
	case eventSuspend, eventResume:
	default:
		e.logger.Warn("unknown functionfs event", "type", ev[8])
	}
}

// handleSetup runs one control transfer: IN requests answer with the
// handler's payload, OUT requests drain the data stage first.
func (e *Endpoints) handleSetup(setup []byte, h ControlHandler) {
	bmRequestType := setup[0]
	bRequest := setup[1]
	wValue := binary.LittleEndian.Uint16(setup[2:])
	wIndex := binary.LittleEndian.Uint16(setup[4:])
	wLength := binary.LittleEndian.Uint16(setup[6:])

	if bmRequestType&0x80 != 0 {
		resp, ok := h.HandleControl(bmRequestType, bRequest, wValue, wIndex, wLength, nil)
		if !ok {
			e.stallIn()
			return
		}
		e.raw.Log(dslog.DirHostOut, resp)
		if _, err := e.ep0.Write(resp); err != nil {
			e.logger.Warn("ep0 response write failed", "error", err)
		}
		return
	}

	var data []byte
	if wLength > 0 {
		data = make([]byte, wLength)
		n, err := e.ep0.Read(data)
		if err != nil {
			e.logger.Warn("ep0 data stage read failed", "error", err)
			return
		}
		data = data[:n]
		e.raw.Log(dslog.DirHostIn, data)
	}
	if _, ok := h.HandleControl(bmRequestType, bRequest, wValue, wIndex, wLength, data); !ok {
		e.stallOut()
		return
	}
	// Zero-length status stage.
	_, _ = e.ep0.Write(nil)
}

// Stalling on FunctionFS is the wrong-direction I/O on ep0.
func (e *Endpoints) stallIn()  { _, _ = e.ep0.Read(nil) }
func (e *Endpoints) stallOut() { _, _ = e.ep0.Write(nil) }

// WriteReport pushes one input report to the interrupt-in endpoint.
func (e *Endpoints) WriteReport(report []byte) error {
	e.raw.Log(dslog.DirHostOut, report)
	_, err := e.epIn.Write(report)
	return err
}

// ReadReport polls the interrupt-out endpoint. ok=false means no report was
// pending.
func (e *Endpoints) ReadReport(buf []byte) (n int, ok bool, err error) {
	n, err = e.epOut.Read(buf)
	if err != nil {
		if errors.Is(err, unix.EAGAIN) {
			return 0, false, nil
		}
		return 0, false, err
	}
	e.raw.Log(dslog.DirHostIn, buf[:n])
	return n, true, nil
}

// Close tears down all three endpoint files, releasing any blocked reader.
func (e *Endpoints) Close() {
	_ = e.epOut.Close()
	_ = e.epIn.Close()
	_ = e.ep0.Close()
}
