// Package remap applies profile transforms (button remaps and macros)
// between the normalized input bus and the PS3 report synthesizer.
package remap

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Profile is the panel's profile object: an ordered list of remaps and a
// set of macros keyed on trigger buttons.
type Profile struct {
	Name   string  `json:"name,omitempty" yaml:"name,omitempty"`
	Remaps []Remap `json:"remaps,omitempty" yaml:"remaps,omitempty"`
	Macros []Macro `json:"macros,omitempty" yaml:"macros,omitempty"`
}

// Remap substitutes one button for another. Bidirectional remaps swap the
// two bits. When two remaps write the same target, the earlier one wins.
type Remap struct {
	From          string `json:"from" yaml:"from"`
	To            string `json:"to" yaml:"to"`
	Bidirectional bool   `json:"bidirectional,omitempty" yaml:"bidirectional,omitempty"`
}

// Macro kinds.
const (
	KindRapidFire = "rapid_fire"
	KindToggle    = "toggle"
	KindTurbo     = "turbo"
	KindSequence  = "sequence"
)

// Activation modes.
const (
	ActivationOnPress   = "on_press"
	ActivationOnHold    = "on_hold"
	ActivationOnRelease = "on_release"
	ActivationToggle    = "toggle"
)

// Macro is a stateful transducer keyed on a trigger button.
type Macro struct {
	ID         string  `json:"id,omitempty" yaml:"id,omitempty"`
	Kind       string  `json:"kind" yaml:"kind"`
	Trigger    string  `json:"trigger" yaml:"trigger"`
	Target     string  `json:"target,omitempty" yaml:"target,omitempty"`
	Modifier   string  `json:"modifier,omitempty" yaml:"modifier,omitempty"`
	Activation string  `json:"activation,omitempty" yaml:"activation,omitempty"`
	RateHz     float64 `json:"rate_hz,omitempty" yaml:"rate_hz,omitempty"`
	Steps      []Step  `json:"steps,omitempty" yaml:"steps,omitempty"`
}

// Step actions.
const (
	StepPress   = "press"
	StepHold    = "hold"
	StepRelease = "release"
	StepWait    = "wait"
)

// Step is one element of a sequence macro.
type Step struct {
	Action     string `json:"action" yaml:"action"`
	Button     string `json:"button,omitempty" yaml:"button,omitempty"`
	DurationMS int64  `json:"duration_ms" yaml:"duration_ms"`
}

// LoadProfile reads a profile file, JSON or YAML by extension.
func LoadProfile(path string) (Profile, error) {
	var p Profile
	data, err := os.ReadFile(path)
	if err != nil {
		return p, err
	}
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &p)
	default:
		err = json.Unmarshal(data, &p)
	}
	if err != nil {
		return Profile{}, fmt.Errorf("parse profile %s: %w", path, err)
	}
	return p, nil
}
