package cmd

import (
	"log/slog"

	"github.com/Alia5/dsbridge/bt"
)

// Wake pokes the paired PS3 awake without starting the bridge; handy for
// scripting and for verifying the pairing configuration.
type Wake struct {
	PS3Addr string `name:"ps3-addr" help:"Bluetooth address of the paired PS3" env:"DSBRIDGE_PS3_ADDR" required:""`
}

func (w *Wake) Run(logger *slog.Logger) error {
	addr, err := bt.ParseAddr(w.PS3Addr)
	if err != nil {
		return err
	}
	return bt.NewLink(addr, logger).Wake()
}
