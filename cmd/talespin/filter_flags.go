package main

import (
	"github.com/spf13/cobra"

	"talespin/internal/filter"
)

// filterFlags collects the chapter selection flags shared by convert
// and chapters.
type filterFlags struct {
	preset   string
	includes []string
	excludes []string
	noFilter bool
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.preset, "preset", "", "Chapter filter preset (see 'talespin presets')")
	cmd.Flags().StringArrayVar(&f.includes, "include", nil, "Keep chapters whose title matches this pattern (repeatable)")
	cmd.Flags().StringArrayVar(&f.excludes, "exclude", nil, "Drop chapters whose title matches this pattern (repeatable)")
	cmd.Flags().BoolVar(&f.noFilter, "no-filter", false, "Convert every extracted chapter")
}

// operations builds the ordered filter sequence. An explicit preset
// starts the chain; includes union on top of it and excludes subtract
// last. Excludes alone start from the full chapter set. With no flags
// at all the configured default preset applies.
func (f *filterFlags) operations(defaultPreset string) []filter.Operation {
	if f.noFilter {
		return nil
	}

	var ops []filter.Operation
	switch {
	case f.preset != "":
		ops = append(ops, filter.Preset(f.preset))
	case len(f.includes) == 0 && len(f.excludes) == 0:
		if defaultPreset != "" {
			ops = append(ops, filter.Preset(defaultPreset))
		}
	case len(f.includes) == 0:
		// Exclude-first: subtract from the full baseline.
	default:
		// Include-first: build up from the empty set.
	}
	for _, pattern := range f.includes {
		ops = append(ops, filter.Include(pattern))
	}
	for _, pattern := range f.excludes {
		ops = append(ops, filter.Exclude(pattern))
	}
	return ops
}
