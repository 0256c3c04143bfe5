package filter

import (
	"fmt"
	"sort"

	"talespin/internal/book"
)

// PresetDef names a tag predicate usable in filter chains.
type PresetDef struct {
	Name        string
	Description string
	Predicate   func(book.Tags) bool
}

// Registry maps preset names to their definitions. The zero value is
// not usable; call NewRegistry.
type Registry struct {
	presets map[string]PresetDef
}

// NewRegistry returns a registry populated with the builtin presets.
func NewRegistry() *Registry {
	r := &Registry{}
	r.Reset()
	return r
}

// Register adds or replaces a preset definition.
func (r *Registry) Register(def PresetDef) error {
	if def.Name == "" {
		return fmt.Errorf("filter: preset name must not be empty")
	}
	if def.Predicate == nil {
		return fmt.Errorf("filter: preset %q has no predicate", def.Name)
	}
	r.presets[def.Name] = def
	return nil
}

// Reset drops custom presets and restores the builtin set.
func (r *Registry) Reset() {
	r.presets = map[string]PresetDef{
		"all": {
			Name:        "all",
			Description: "every chapter, structural entries included",
			Predicate:   func(book.Tags) bool { return true },
		},
		"none": {
			Name:        "none",
			Description: "no chapters",
			Predicate:   func(book.Tags) bool { return false },
		},
		"content-only": {
			Name:        "content-only",
			Description: "drop front matter, back matter and title pages",
			Predicate: func(t book.Tags) bool {
				return !t.FrontMatter && !t.BackMatter && !t.TitlePage
			},
		},
		"chapters-only": {
			Name:        "chapters-only",
			Description: "only entries classified as chapters, without part dividers",
			Predicate:   func(t book.Tags) bool { return t.Chapter && !t.PartDivider },
		},
		"with-parts": {
			Name:        "with-parts",
			Description: "chapters plus part dividers",
			Predicate:   func(t book.Tags) bool { return t.Chapter || t.PartDivider },
		},
	}
}

// Lookup returns the preset definition for name.
func (r *Registry) Lookup(name string) (PresetDef, bool) {
	def, ok := r.presets[name]
	return def, ok
}

// Names returns the registered preset names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.presets))
	for name := range r.presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Definitions returns all preset definitions sorted by name.
func (r *Registry) Definitions() []PresetDef {
	defs := make([]PresetDef, 0, len(r.presets))
	for _, name := range r.Names() {
		defs = append(defs, r.presets[name])
	}
	return defs
}
