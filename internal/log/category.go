package log

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
)

// Mask selects which bridge log categories are emitted. Warnings and errors
// always pass regardless of the mask.
type Mask uint32

const (
	CatUSB Mask = 1 << iota
	CatBT
	CatInput
	CatOutput
	CatState
	CatMacro
	CatIPC
	CatDriver

	CatNone Mask = 0
	CatAll  Mask = CatUSB | CatBT | CatInput | CatOutput | CatState | CatMacro | CatIPC | CatDriver
	// CatQuick covers the categories useful during bring-up without the
	// per-report input/output spam.
	CatQuick Mask = CatUSB | CatBT | CatState | CatDriver
)

var categoryNames = map[string]Mask{
	"usb":    CatUSB,
	"bt":     CatBT,
	"input":  CatInput,
	"output": CatOutput,
	"state":  CatState,
	"macro":  CatMacro,
	"ipc":    CatIPC,
	"driver": CatDriver,
}

// CategoryName returns the attribute value used for a single-category mask.
func CategoryName(m Mask) string {
	for name, bit := range categoryNames {
		if bit == m {
			return name
		}
	}
	return "?"
}

// ParseDebugSpec parses a --debug specification: a preset (all/none/quick),
// a hex mask (0x1f), or a comma-separated list of category names. Unknown
// names make the whole spec invalid; the caller falls back to CatNone so
// only warnings, errors and records without a category surface.
func ParseDebugSpec(spec string) (Mask, bool) {
	spec = strings.TrimSpace(strings.ToLower(spec))
	switch spec {
	case "", "none":
		return CatNone, true
	case "all":
		return CatAll, true
	case "quick":
		return CatQuick, true
	}
	if strings.HasPrefix(spec, "0x") {
		v, err := strconv.ParseUint(spec[2:], 16, 32)
		if err != nil {
			return CatNone, false
		}
		return Mask(v) & CatAll, true
	}
	var m Mask
	for _, name := range strings.Split(spec, ",") {
		bit, ok := categoryNames[strings.TrimSpace(name)]
		if !ok {
			return CatNone, false
		}
		m |= bit
	}
	return m, true
}

// CategoryKey is the attribute key carrying a record's category.
const CategoryKey = "cat"

// CategoryFilter drops records tagged with a category outside the mask.
// Records at warn or above, and records with no category attribute, always
// pass. The category may be attached per-record or via Logger.With.
type CategoryFilter struct {
	mask Mask
	h    slog.Handler
	// deny is set when a With-attached category was rejected by the mask.
	deny bool
}

func (f CategoryFilter) Enabled(ctx context.Context, level slog.Level) bool {
	if level >= slog.LevelWarn {
		return f.h.Enabled(ctx, level)
	}
	if f.deny {
		return false
	}
	return f.h.Enabled(ctx, level)
}

func (f CategoryFilter) Handle(ctx context.Context, r slog.Record) error {
	if r.Level < slog.LevelWarn {
		if f.deny {
			return nil
		}
		pass := true
		r.Attrs(func(a slog.Attr) bool {
			if a.Key == CategoryKey {
				pass = f.allows(a.Value.String())
				return false
			}
			return true
		})
		if !pass {
			return nil
		}
	}
	return f.h.Handle(ctx, r)
}

func (f CategoryFilter) WithAttrs(attrs []slog.Attr) slog.Handler {
	deny := f.deny
	for _, a := range attrs {
		if a.Key == CategoryKey && !f.allows(a.Value.String()) {
			deny = true
		}
	}
	return CategoryFilter{mask: f.mask, h: f.h.WithAttrs(attrs), deny: deny}
}

func (f CategoryFilter) WithGroup(name string) slog.Handler {
	return CategoryFilter{mask: f.mask, h: f.h.WithGroup(name), deny: f.deny}
}

func (f CategoryFilter) allows(name string) bool {
	bit, ok := categoryNames[name]
	if !ok {
		return true
	}
	return f.mask&bit != 0
}
