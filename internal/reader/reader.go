// Package reader opens e-book containers and turns them into ordered,
// classified chapter lists. Format adapters are selected by file
// extension through a registry; every adapter implements the same
// capability interface so downstream stages never see format detail.
package reader

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"talespin/internal/book"
	"talespin/internal/classify"
)

// ErrUnsupportedFormat is returned by Registry.Open when no adapter is
// registered for the file's extension.
var ErrUnsupportedFormat = errors.New("unsupported ebook format")

// DefaultMinTextLen is the character threshold below which a chapter's
// accumulated text is considered too short to narrate.
const DefaultMinTextLen = 50

// Reader is the capability interface every format adapter implements.
type Reader interface {
	// Metadata returns the book-level metadata, falling back to
	// filename-derived values for fields the container omits.
	Metadata() (book.Metadata, error)

	// TableOfContents returns the container's navigation entries in
	// TOC order. An empty slice means no machine-readable TOC exists.
	TableOfContents() ([]book.TocEntry, error)

	// Chapters extracts the full chapter list in reading order.
	// Entries whose accumulated text is shorter than minTextLen keep
	// empty paragraphs instead of being dropped, so structural
	// landmarks stay filterable.
	Chapters(minTextLen int) ([]book.Chapter, error)

	// Cover returns the cover image bytes and MIME type, or nil when
	// the container has no cover.
	Cover() ([]byte, string, error)

	// ChapterCount is a fast path returning the TOC entry count
	// without extracting body text.
	ChapterCount() (int, error)

	Close() error
}

// Factory builds a Reader for the given file. The classifier is shared
// by all adapters created from one registry.
type Factory func(path string, classifier *classify.Classifier) (Reader, error)

// Registry maps file extensions to adapter factories. Registration
// happens at construction; Open is safe for concurrent use afterwards.
type Registry struct {
	mu         sync.RWMutex
	factories  map[string]Factory
	classifier *classify.Classifier
}

// NewRegistry returns a registry with the builtin adapters (.epub,
// .fb2, .fb2.zip, .txt) registered. A nil classifier gets the default
// rule set.
func NewRegistry(classifier *classify.Classifier) *Registry {
	if classifier == nil {
		classifier = classify.New()
	}
	r := &Registry{
		factories:  make(map[string]Factory),
		classifier: classifier,
	}
	r.Register(".epub", newEPUBReader)
	r.Register(".fb2", newFB2Reader)
	r.Register(".fb2.zip", newFB2Reader)
	r.Register(".txt", newTextReader)
	return r
}

// Register maps an extension (with leading dot) to a factory,
// replacing any previous mapping.
func (r *Registry) Register(ext string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[strings.ToLower(ext)] = factory
}

// Extensions returns the registered extensions in sorted order.
func (r *Registry) Extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	exts := make([]string, 0, len(r.factories))
	for ext := range r.factories {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Supported reports whether an adapter exists for the file's extension.
func (r *Registry) Supported(path string) bool {
	_, ok := r.lookup(path)
	return ok
}

// Open selects an adapter by extension and constructs it.
func (r *Registry) Open(path string) (Reader, error) {
	factory, ok := r.lookup(path)
	if !ok {
		return nil, fmt.Errorf("%w: %q (supported: %s)",
			ErrUnsupportedFormat, filepath.Ext(path), strings.Join(r.Extensions(), ", "))
	}
	return factory(path, r.classifier)
}

func (r *Registry) lookup(path string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name := strings.ToLower(filepath.Base(path))
	// Longest-suffix match first so ".fb2.zip" wins over ".zip".
	for ext, factory := range r.factories {
		if strings.Count(ext, ".") > 1 && strings.HasSuffix(name, ext) {
			return factory, true
		}
	}
	if factory, ok := r.factories[strings.ToLower(filepath.Ext(name))]; ok {
		return factory, true
	}
	return nil, false
}
