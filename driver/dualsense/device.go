// Package dualsense implements the source driver for Sony DualSense pads.
// USB pads are claimed directly and serviced on their HID interrupt
// endpoints; Bluetooth pads are read through the kernel's hidraw node. The
// transport decides report framing and the output CRC.
package dualsense

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/gousb"
	"golang.org/x/sys/unix"

	"github.com/Alia5/dsbridge/driver"
	"github.com/Alia5/dsbridge/internal/clock"
	dslog "github.com/Alia5/dsbridge/internal/log"
	"github.com/Alia5/dsbridge/state"
)

func init() {
	driver.RegisterBuiltin(func() driver.Driver { return New() })
}

// Bus type prefixes of the sysfs HID_ID line.
const (
	hidBusUSB       = 0x03
	hidBusBluetooth = 0x05
)

var sysHidrawDir = "/sys/class/hidraw"

// conn is one attached pad. Exactly one of the two transports is populated:
// f for hidraw (Bluetooth, or a USB pad whose interface could not be
// claimed), the gousb chain for a claimed USB interface.
type conn struct {
	bt  bool
	seq uint8
	buf [128]byte

	f *os.File

	dev   *gousb.Device
	cfg   *gousb.Config
	intf  *gousb.Interface
	epIn  *gousb.InEndpoint
	epOut *gousb.OutEndpoint
}

func (c *conn) read(p []byte) (int, error) {
	if c.f != nil {
		return c.f.Read(p)
	}
	return c.epIn.Read(p)
}

func (c *conn) write(p []byte) (int, error) {
	if c.f != nil {
		return c.f.Write(p)
	}
	return c.epOut.Write(p)
}

func (c *conn) close() {
	if c.f != nil {
		_ = c.f.Close()
		return
	}
	if c.intf != nil {
		c.intf.Close()
	}
	if c.cfg != nil {
		_ = c.cfg.Close()
	}
	if c.dev != nil {
		_ = c.dev.Close()
	}
}

// Device is the DualSense driver. One Device serves at most a handful of
// concurrently attached pads; handles index into the open connection table.
type Device struct {
	mu      sync.Mutex
	ctx     *gousb.Context
	handles map[driver.Handle]*conn
	next    driver.Handle
}

// New returns an uninitialized DualSense driver.
func New() *Device { return &Device{} }

func (d *Device) Descriptor() driver.Descriptor {
	return driver.Descriptor{
		Name:         "dualsense",
		Manufacturer: "Sony Interactive Entertainment",
		VendorID:     VendorSony,
		ProductID:    ProductDualSense,
		Capabilities: driver.CapMotion | driver.CapTouchpad | driver.CapRumble | driver.CapLightbar,
	}
}

func (d *Device) Match(vid, pid uint16) bool {
	return vid == VendorSony && (pid == ProductDualSense || pid == ProductDualSenseEdge)
}

func (d *Device) Init() error {
	d.mu.Lock()
	d.handles = make(map[driver.Handle]*conn)
	d.next = 1
	d.mu.Unlock()
	return nil
}

func (d *Device) Shutdown() {
	d.mu.Lock()
	for h, c := range d.handles {
		c.close()
		delete(d.handles, h)
	}
	if d.ctx != nil {
		_ = d.ctx.Close()
		d.ctx = nil
	}
	d.mu.Unlock()
}

// FindDevice looks for an attached pad: the USB bus first, hidraw second
// (Bluetooth, or a USB pad whose interface could not be claimed).
func (d *Device) FindDevice() (driver.Handle, error) {
	if c, err := d.findUSB(); err == nil {
		return d.adopt(c, "usb"), nil
	}

	path, bus, err := findHidraw(d.Match)
	if err != nil {
		return 0, err
	}
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return 0, fmt.Errorf("%w: open %s: %v", driver.ErrNoDevice, path, err)
	}
	c := &conn{f: f, bt: bus == hidBusBluetooth}
	transport := "hidraw"
	switch bus {
	case hidBusBluetooth:
		transport = "bluetooth"
	case hidBusUSB:
		transport = "usb-hidraw"
	}
	slog.Info("dualsense attached", dslog.CategoryKey, "driver", "path", path, "transport", transport)
	return d.adopt(c, ""), nil
}

func (d *Device) adopt(c *conn, transport string) driver.Handle {
	d.mu.Lock()
	h := d.next
	d.next++
	d.handles[h] = c
	d.mu.Unlock()
	if transport != "" {
		slog.Info("dualsense attached", dslog.CategoryKey, "driver", "transport", transport)
	}
	return h
}

// findUSB enumerates the USB bus for a pad and claims its HID interface,
// taking over the interrupt endpoints from the kernel.
func (d *Device) findUSB() (*conn, error) {
	d.mu.Lock()
	if d.ctx == nil {
		d.ctx = gousb.NewContext()
	}
	ctx := d.ctx
	d.mu.Unlock()

	devs, err := ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return d.Match(uint16(desc.Vendor), uint16(desc.Product))
	})
	if len(devs) == 0 {
		if err != nil {
			return nil, fmt.Errorf("%w: usb enumeration: %v", driver.ErrNoDevice, err)
		}
		return nil, driver.ErrNoDevice
	}
	dev := devs[0]
	for _, extra := range devs[1:] {
		_ = extra.Close()
	}

	if err := dev.SetAutoDetach(true); err != nil {
		slog.Debug("auto-detach unsupported", dslog.CategoryKey, "driver", "error", err)
	}
	c, err := claimHID(dev)
	if err != nil {
		_ = dev.Close()
		return nil, fmt.Errorf("%w: claim hid interface: %v", driver.ErrNoDevice, err)
	}
	return c, nil
}

// claimHID claims the pad's HID interface and resolves both interrupt
// endpoints.
func claimHID(dev *gousb.Device) (*conn, error) {
	cfg, err := dev.Config(1)
	if err != nil {
		return nil, fmt.Errorf("open config 1: %w", err)
	}
	for _, ifDesc := range cfg.Desc.Interfaces {
		if len(ifDesc.AltSettings) == 0 || ifDesc.AltSettings[0].Class != gousb.ClassHID {
			continue
		}
		intf, err := cfg.Interface(ifDesc.Number, 0)
		if err != nil {
			_ = cfg.Close()
			return nil, fmt.Errorf("claim interface %d: %w", ifDesc.Number, err)
		}

		var epIn *gousb.InEndpoint
		var epOut *gousb.OutEndpoint
		for _, ep := range intf.Setting.Endpoints {
			if ep.TransferType != gousb.TransferTypeInterrupt {
				continue
			}
			if ep.Direction == gousb.EndpointDirectionIn {
				epIn, err = intf.InEndpoint(ep.Number)
			} else {
				epOut, err = intf.OutEndpoint(ep.Number)
			}
			if err != nil {
				intf.Close()
				_ = cfg.Close()
				return nil, err
			}
		}
		if epIn == nil || epOut == nil {
			intf.Close()
			_ = cfg.Close()
			return nil, fmt.Errorf("interface %d has no interrupt endpoints", ifDesc.Number)
		}
		return &conn{dev: dev, cfg: cfg, intf: intf, epIn: epIn, epOut: epOut}, nil
	}
	_ = cfg.Close()
	return nil, fmt.Errorf("no hid interface")
}

func (d *Device) conn(h driver.Handle) (*conn, error) {
	d.mu.Lock()
	c, ok := d.handles[h]
	d.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: unknown handle %d", driver.ErrDisconnected, h)
	}
	return c, nil
}

// ReadInput blocks for the next raw report and normalizes it. The timestamp
// is stamped at capture.
func (d *Device) ReadInput(h driver.Handle, st *state.ControllerState) error {
	c, err := d.conn(h)
	if err != nil {
		return err
	}
	n, err := c.read(c.buf[:])
	if err != nil {
		return d.mapIOErr(h, c, err)
	}
	if err := decodeInputReport(c.buf[:n], st); err != nil {
		return err
	}
	st.TimestampMS = clock.NowMS()
	return nil
}

// SendOutput writes the rumble/LED report matching the handle's transport.
func (d *Device) SendOutput(h driver.Handle, out *state.ControllerOutput) error {
	c, err := d.conn(h)
	if err != nil {
		return err
	}
	report := encodeOutputReport(out, c.bt, c.seq)
	c.seq++
	if _, err := c.write(report); err != nil {
		return d.mapIOErr(h, c, err)
	}
	return nil
}

// mapIOErr sorts a transfer failure into the driver error taxonomy and
// drops dead connections from the handle table.
func (d *Device) mapIOErr(h driver.Handle, c *conn, err error) error {
	if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) || errors.Is(err, unix.ETIMEDOUT) ||
		errors.Is(err, gousb.ErrorTimeout) || errors.Is(err, gousb.ErrorInterrupted) || errors.Is(err, gousb.ErrorBusy) {
		return fmt.Errorf("%w: %v", driver.ErrTransient, err)
	}
	// EOF, ENODEV, ErrorNoDevice and a closed descriptor all mean the
	// handle is dead.
	d.mu.Lock()
	delete(d.handles, h)
	d.mu.Unlock()
	c.close()
	return fmt.Errorf("%w: %v", driver.ErrDisconnected, err)
}

// findHidraw walks /sys/class/hidraw looking for a node whose HID_ID line
// matches the driver, and reports which bus it sits on.
func findHidraw(match func(vid, pid uint16) bool) (path string, bus int, err error) {
	entries, err := os.ReadDir(sysHidrawDir)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", driver.ErrNoDevice, err)
	}
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), "hidraw") {
			continue
		}
		uevent, err := os.ReadFile(filepath.Join(sysHidrawDir, e.Name(), "device", "uevent"))
		if err != nil {
			continue
		}
		bus, vid, pid, ok := parseHidID(string(uevent))
		if !ok || !match(vid, pid) {
			continue
		}
		return "/dev/" + e.Name(), bus, nil
	}
	return "", 0, driver.ErrNoDevice
}

// parseHidID extracts bus, vendor and product from a sysfs uevent blob,
// e.g. "HID_ID=0005:0000054C:00000CE6".
func parseHidID(uevent string) (bus int, vid, pid uint16, ok bool) {
	for _, line := range strings.Split(uevent, "\n") {
		if !strings.HasPrefix(line, "HID_ID=") {
			continue
		}
		parts := strings.Split(strings.TrimPrefix(line, "HID_ID="), ":")
		if len(parts) != 3 {
			return 0, 0, 0, false
		}
		var b, v, p uint64
		if _, err := fmt.Sscanf(parts[0], "%x", &b); err != nil {
			return 0, 0, 0, false
		}
		if _, err := fmt.Sscanf(parts[1], "%x", &v); err != nil {
			return 0, 0, 0, false
		}
		if _, err := fmt.Sscanf(parts[2], "%x", &p); err != nil {
			return 0, 0, 0, false
		}
		return int(b), uint16(v), uint16(p), true
	}
	return 0, 0, 0, false
}
