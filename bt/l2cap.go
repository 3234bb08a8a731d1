// Package bt owns the Bluetooth L2CAP sessions toward the PlayStation 3:
// graceful teardown for standby and the HID wake poke that powers the
// console back on.
package bt

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	dslog "github.com/Alia5/dsbridge/internal/log"
)

// HID L2CAP PSMs.
const (
	PSMHIDControl   = 0x11
	PSMHIDInterrupt = 0x13
)

// Budgets from the link contract: wake gets 3 s end to end, disconnect is
// graceful for 1 s before sockets are forced closed.
const (
	WakeBudget       = 3 * time.Second
	DisconnectBudget = 1 * time.Second
)

// HIDP framing for the wake transaction: SET_REPORT | report-type-feature,
// followed by the operational-mode feature report.
var wakePayload = []byte{0x53, 0xF4, 0x42, 0x03, 0x00, 0x00}

// ErrNoHost is returned when no PS3 address has been configured.
var ErrNoHost = errors.New("no paired ps3 address configured")

// Addr is a Bluetooth device address in display order.
type Addr [6]byte

// ParseAddr parses "AA:BB:CC:DD:EE:FF".
func ParseAddr(s string) (Addr, error) {
	var a Addr
	parts := strings.Split(s, ":")
	if len(parts) != 6 {
		return a, fmt.Errorf("invalid bluetooth address %q", s)
	}
	for i, p := range parts {
		v, err := strconv.ParseUint(p, 16, 8)
		if err != nil {
			return a, fmt.Errorf("invalid bluetooth address %q: %w", s, err)
		}
		a[i] = byte(v)
	}
	return a, nil
}

func (a Addr) String() string {
	return fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X", a[0], a[1], a[2], a[3], a[4], a[5])
}

// IsZero reports whether the address is unset.
func (a Addr) IsZero() bool { return a == Addr{} }

// sockaddr converts to the kernel's little-endian byte order.
func (a Addr) sockaddr(psm uint16) *unix.SockaddrL2 {
	sa := &unix.SockaddrL2{PSM: psm}
	for i := 0; i < 6; i++ {
		sa.Addr[i] = a[5-i]
	}
	return sa
}

// Link manages the L2CAP sessions to one paired PS3.
type Link struct {
	mu   sync.Mutex
	host Addr
	ctrl int
	intr int

	logger *slog.Logger
}

// NewLink returns a link bound to the paired host address. The sessions are
// not opened until Connect or Wake.
func NewLink(host Addr, logger *slog.Logger) *Link {
	return &Link{
		host:   host,
		ctrl:   -1,
		intr:   -1,
		logger: logger.With(dslog.CategoryKey, "bt"),
	}
}

// Connect opens the HID control and interrupt sessions to the host, control
// first as the profile requires.
func (l *Link) Connect() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.host.IsZero() {
		return ErrNoHost
	}
	if l.ctrl >= 0 || l.intr >= 0 {
		return nil
	}

	ctrl, err := connectL2CAP(l.host, PSMHIDControl, WakeBudget)
	if err != nil {
		return fmt.Errorf("hid control session: %w", err)
	}
	intr, err := connectL2CAP(l.host, PSMHIDInterrupt, WakeBudget)
	if err != nil {
		_ = unix.Close(ctrl)
		return fmt.Errorf("hid interrupt session: %w", err)
	}
	l.ctrl = ctrl
	l.intr = intr
	l.logger.Info("l2cap sessions established", "host", l.host.String())
	return nil
}

// Disconnect dissolves both sessions. Graceful shutdown gets
// DisconnectBudget; afterwards the sockets are closed regardless.
func (l *Link) Disconnect() error {
	l.mu.Lock()
	ctrl, intr := l.ctrl, l.intr
	l.ctrl, l.intr = -1, -1
	l.mu.Unlock()

	if ctrl < 0 && intr < 0 {
		return nil
	}

	done := make(chan struct{})
	go func() {
		if intr >= 0 {
			_ = unix.Shutdown(intr, unix.SHUT_RDWR)
		}
		if ctrl >= 0 {
			_ = unix.Shutdown(ctrl, unix.SHUT_RDWR)
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(DisconnectBudget):
		l.logger.Warn("graceful shutdown timed out, forcing close")
	}

	if intr >= 0 {
		_ = unix.Close(intr)
	}
	if ctrl >= 0 {
		_ = unix.Close(ctrl)
	}
	l.logger.Info("l2cap sessions closed", "host", l.host.String())
	return nil
}

// Wake opens a fresh control channel to the paired PS3, issues the HID
// set-report that wakes the console, and closes again. The whole attempt
// must finish within WakeBudget.
func (l *Link) Wake() error {
	l.mu.Lock()
	host := l.host
	l.mu.Unlock()
	if host.IsZero() {
		return ErrNoHost
	}

	deadline := time.Now().Add(WakeBudget)
	fd, err := connectL2CAP(host, PSMHIDControl, WakeBudget)
	if err != nil {
		return fmt.Errorf("wake connect %s: %w", host.String(), err)
	}
	defer unix.Close(fd)

	tv := unix.NsecToTimeval(time.Until(deadline).Nanoseconds())
	_ = unix.SetsockoptTimeval(fd, unix.SOL_SOCKET, unix.SO_SNDTIMEO, &tv)

	if _, err := unix.Write(fd, wakePayload); err != nil {
		return fmt.Errorf("wake write %s: %w", host.String(), err)
	}
	l.logger.Info("wake sent", "host", host.String())
	return nil
}

// connectL2CAP dials a seqpacket L2CAP socket with a wall-clock budget.
// The budget is enforced by closing the socket out from under the blocked
// connect, which returns it with an error.
func connectL2CAP(addr Addr, psm uint16, budget time.Duration) (int, error) {
	fd, err := unix.Socket(unix.AF_BLUETOOTH, unix.SOCK_SEQPACKET, unix.BTPROTO_L2CAP)
	if err != nil {
		return -1, fmt.Errorf("l2cap socket: %w", err)
	}

	type result struct{ err error }
	done := make(chan result, 1)
	go func() {
		done <- result{unix.Connect(fd, addr.sockaddr(psm))}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			_ = unix.Close(fd)
			return -1, fmt.Errorf("l2cap connect psm 0x%02x: %w", psm, r.err)
		}
		return fd, nil
	case <-time.After(budget):
		_ = unix.Close(fd)
		<-done
		return -1, fmt.Errorf("l2cap connect psm 0x%02x: %w", psm, unix.ETIMEDOUT)
	}
}
