package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Alia5/dsbridge/internal/bridge"
	"github.com/Alia5/dsbridge/internal/log"
)

// Bridge is the main command: run the translation bridge until interrupted.
type Bridge struct {
	bridge.Config `embed:""`
}

// Run is called by Kong when the bridge command is executed.
func (b *Bridge) Run(logger *slog.Logger, rawLogger log.RawLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	br, err := bridge.New(b.Config, logger, rawLogger)
	if err != nil {
		return err
	}
	return br.Run(ctx)
}
