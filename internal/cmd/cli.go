// Package cmd holds the kong command structs of the dsbridge binary.
package cmd

// LogFlags configures the logging stack.
type LogFlags struct {
	Level   string `help:"Log level: trace, debug, info, warn, error" default:"info" env:"DSBRIDGE_LOG_LEVEL"`
	File    string `help:"Also write logs to this file; console logs then all go to stderr" env:"DSBRIDGE_LOG_FILE"`
	RawFile string `name:"raw-file" help:"Write raw report hex dumps to this file" env:"DSBRIDGE_LOG_RAW_FILE"`
}

// CLI is the root command structure.
type CLI struct {
	Log    LogFlags `embed:"" prefix:"log."`
	Debug  string   `help:"Debug log categories: comma-separated names (usb,bt,input,output,state,macro,ipc,driver), a preset (all, none, quick) or a hex mask" env:"DSBRIDGE_DEBUG"`
	Config string   `help:"Path to a configuration file" type:"path" env:"DSBRIDGE_CONFIG"`

	Bridge    Bridge        `cmd:"" default:"withargs" help:"Run the controller bridge"`
	Wake      Wake          `cmd:"" help:"Wake the paired PS3 over Bluetooth and exit"`
	ConfigCmd ConfigCommand `cmd:"" name:"config" help:"Configuration utilities"`
}
