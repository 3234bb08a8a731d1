// Package bridge wires the translation pipeline together: source driver →
// state bus → remap applier → PS3 protocol emulator, plus the reverse
// output path and the system state machinery, each on its own goroutine.
package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Alia5/dsbridge/bt"
	"github.com/Alia5/dsbridge/driver"
	"github.com/Alia5/dsbridge/ds3"
	"github.com/Alia5/dsbridge/gadget"
	dslog "github.com/Alia5/dsbridge/internal/log"
	"github.com/Alia5/dsbridge/lightbar"
	"github.com/Alia5/dsbridge/remap"
	"github.com/Alia5/dsbridge/state"
	"github.com/Alia5/dsbridge/system"
)

// joinBudget is how long shutdown waits for the worker goroutines after
// their descriptors are closed.
const joinBudget = 500 * time.Millisecond

// Config carries everything the bridge needs to come up.
type Config struct {
	FunctionFSDir string `help:"FunctionFS mount directory of the DS3 gadget function" default:"/dev/ffs-ds3" env:"DSBRIDGE_FFS_DIR"`
	LightbarPath  string `help:"Lightbar IPC file written by the control panel" default:"/run/dsbridge/lightbar" env:"DSBRIDGE_LIGHTBAR"`
	ProfilePath   string `help:"Remap/macro profile file (json or yaml)" env:"DSBRIDGE_PROFILE"`

	PS3Addr string `name:"ps3-addr" help:"Bluetooth address of the paired PS3, used by standby wake" env:"DSBRIDGE_PS3_ADDR"`
	PadAddr string `name:"pad-addr" help:"Bluetooth address reported to the PS3 as the pad's own" env:"DSBRIDGE_PAD_ADDR"`
}

// Bridge owns the shared singletons and the worker goroutines.
type Bridge struct {
	cfg Config

	bus      *state.Bus
	registry *driver.Registry
	applier  *remap.Applier

	emulator  *ds3.Emulator
	endpoints *gadget.Endpoints

	machine  *system.Machine
	detector *system.PSButtonDetector

	commander *bt.Commander
	forwarder *Forwarder

	logger *slog.Logger
	raw    dslog.RawLogger
}

// New assembles a bridge. Endpoint binding failure is fatal; a missing
// profile file is not (the bridge runs with the identity profile).
func New(cfg Config, logger *slog.Logger, raw dslog.RawLogger) (*Bridge, error) {
	b := &Bridge{
		cfg:    cfg,
		bus:    state.NewBus(),
		logger: logger,
		raw:    raw,
	}

	registry, err := driver.NewBuiltinRegistry()
	if err != nil {
		return nil, fmt.Errorf("driver registry: %w", err)
	}
	b.registry = registry

	profile := remap.Profile{}
	if cfg.ProfilePath != "" {
		p, err := remap.LoadProfile(cfg.ProfilePath)
		if err != nil {
			logger.Warn("profile load failed, using identity profile",
				"path", cfg.ProfilePath, "error", err)
		} else {
			profile = p
		}
	}
	applier, err := remap.NewApplier(profile)
	if err != nil {
		return nil, fmt.Errorf("profile compile: %w", err)
	}
	b.applier = applier

	var ps3Addr, padAddr bt.Addr
	if cfg.PS3Addr != "" {
		if ps3Addr, err = bt.ParseAddr(cfg.PS3Addr); err != nil {
			return nil, err
		}
	}
	if cfg.PadAddr != "" {
		if padAddr, err = bt.ParseAddr(cfg.PadAddr); err != nil {
			return nil, err
		}
	}

	link := bt.NewLink(ps3Addr, logger)
	b.commander = bt.NewCommander(link)
	b.machine = system.NewMachine(b.commander, b.bus, logger, nil)
	b.detector = system.NewPSButtonDetector(b.machine, nil)

	b.emulator = ds3.New(b.bus, b.machine.IsStandby, logger)
	b.emulator.SetAddresses(padAddr, ps3Addr)

	endpoints, err := gadget.Open(cfg.FunctionFSDir, logger, raw)
	if err != nil {
		return nil, fmt.Errorf("usb gadget: %w", err)
	}
	b.endpoints = endpoints

	lb := lightbar.NewReader(cfg.LightbarPath, b.machine.IsStandby)
	b.forwarder = NewForwarder(b.bus, b.registry, lb, logger)

	return b, nil
}

// Run starts every worker thread and blocks until ctx is cancelled, then
// tears the bridge down. Blocked syscalls are released by closing their
// descriptors; workers get joinBudget to exit.
func (b *Bridge) Run(ctx context.Context) error {
	b.logger.Info("bridge starting",
		"ffs", b.cfg.FunctionFSDir,
		"drivers", b.registry.Len())

	var wg sync.WaitGroup
	run := func(name string, f func(context.Context)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f(ctx)
			b.logger.Debug("worker exited", "worker", name)
		}()
	}

	run("bt-commander", b.commander.Run)
	run("source-input", b.runSource)
	run("usb-control", func(ctx context.Context) {
		if err := b.endpoints.ServeControl(ctx, b.emulator); err != nil {
			b.logger.Error("usb control thread failed", "error", err)
		}
	})
	run("usb-data", b.runData)
	run("output-forwarder", b.forwarder.Run)

	<-ctx.Done()
	b.logger.Info("shutting down")

	// Closing descriptors releases the blocked readers.
	b.endpoints.Close()
	b.registry.Shutdown()
	b.registry.ClearActive()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(joinBudget):
		b.logger.Warn("workers did not exit within join budget")
	}
	return nil
}
