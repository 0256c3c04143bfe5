// Package filter reduces a chapter list through an ordered sequence of
// set operations: named tag presets, regex includes, and regex
// excludes. Operations are validated when the filter is built so that
// Apply itself can never fail.
package filter

import (
	"fmt"
	"regexp"
	"sort"

	"talespin/internal/book"
)

// OpKind discriminates the filter operation variants.
type OpKind string

const (
	OpPreset  OpKind = "preset"
	OpInclude OpKind = "include"
	OpExclude OpKind = "exclude"
)

// Operation is one step of a filter specification. Value is a preset
// name for OpPreset and a regex pattern otherwise.
type Operation struct {
	Kind  OpKind
	Value string
}

// Preset builds a preset operation.
func Preset(name string) Operation { return Operation{Kind: OpPreset, Value: name} }

// Include builds a regex include operation.
func Include(pattern string) Operation { return Operation{Kind: OpInclude, Value: pattern} }

// Exclude builds a regex exclude operation.
func Exclude(pattern string) Operation { return Operation{Kind: OpExclude, Value: pattern} }

type compiledOp struct {
	kind      OpKind
	predicate func(book.Tags) bool // presets
	re        *regexp.Regexp       // include/exclude
}

// Filter is a validated, ready-to-apply operation chain.
type Filter struct {
	ops []compiledOp
}

// New validates the operation sequence against the preset registry and
// compiles every regex. Unknown preset names and malformed patterns
// fail here; no partial filter is ever returned.
func New(registry *Registry, ops []Operation) (*Filter, error) {
	compiled := make([]compiledOp, 0, len(ops))
	for _, op := range ops {
		switch op.Kind {
		case OpPreset:
			preset, ok := registry.Lookup(op.Value)
			if !ok {
				return nil, fmt.Errorf("filter: unknown preset %q (known: %v)", op.Value, registry.Names())
			}
			compiled = append(compiled, compiledOp{kind: OpPreset, predicate: preset.Predicate})
		case OpInclude, OpExclude:
			re, err := regexp.Compile(op.Value)
			if err != nil {
				return nil, fmt.Errorf("filter: invalid regex pattern %q: %w", op.Value, err)
			}
			compiled = append(compiled, compiledOp{kind: op.Kind, re: re})
		default:
			return nil, fmt.Errorf("filter: unknown operation kind %q", op.Kind)
		}
	}
	return &Filter{ops: compiled}, nil
}

// Apply runs the operation chain over the chapters and returns the
// surviving subset in ascending index order. With no operations the
// input is returned unchanged. An exclude-first chain starts from the
// full set; any other first operation starts from the empty set.
func (f *Filter) Apply(chapters []book.Chapter) []book.Chapter {
	if len(f.ops) == 0 {
		return chapters
	}

	selected := make(map[int]struct{}, len(chapters))
	if f.ops[0].kind == OpExclude {
		for i := range chapters {
			selected[i] = struct{}{}
		}
	}

	for _, op := range f.ops {
		switch op.kind {
		case OpPreset:
			// A preset replaces the current selection outright.
			selected = make(map[int]struct{}, len(chapters))
			for i, ch := range chapters {
				if op.predicate(ch.Tags) {
					selected[i] = struct{}{}
				}
			}
		case OpInclude:
			for i, ch := range chapters {
				if op.re.MatchString(ch.Title) {
					selected[i] = struct{}{}
				}
			}
		case OpExclude:
			for i, ch := range chapters {
				if op.re.MatchString(ch.Title) {
					delete(selected, i)
				}
			}
		}
	}

	indices := make([]int, 0, len(selected))
	for i := range selected {
		indices = append(indices, i)
	}
	sort.Ints(indices)

	result := make([]book.Chapter, 0, len(indices))
	for _, i := range indices {
		result = append(result, chapters[i])
	}
	return result
}
