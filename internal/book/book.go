// Package book defines the data model shared across the conversion
// pipeline: chapters, structural tags, table-of-contents entries, and
// rendered audio results.
package book

// Tags describe the structural role of a chapter, derived from its
// title. The flags are informative rather than mutually exclusive; a
// part divider keeps Chapter set so it stays navigable.
type Tags struct {
	FrontMatter bool
	BackMatter  bool
	TitlePage   bool
	PartDivider bool
	Chapter     bool
}

// Labels returns the human-readable names of the applied tags.
func (t Tags) Labels() []string {
	labels := make([]string, 0, 3)
	if t.FrontMatter {
		labels = append(labels, "front-matter")
	}
	if t.BackMatter {
		labels = append(labels, "back-matter")
	}
	if t.TitlePage {
		labels = append(labels, "title-page")
	}
	if t.PartDivider {
		labels = append(labels, "part-divider")
	}
	if t.Chapter {
		labels = append(labels, "chapter")
	}
	return labels
}

// Chapter is one narration unit extracted from an ebook. Index is
// 1-based and dense in read order; TocIndex is the 0-based position in
// the original, unfiltered table of contents. Paragraphs may be empty
// for structural landmarks such as part dividers. Chapters are
// immutable once extraction finishes.
type Chapter struct {
	Index      int
	Title      string
	Paragraphs []string
	Tags       Tags
	TocIndex   int
}

// TextLen returns the total character count across all paragraphs.
func (c Chapter) TextLen() int {
	total := 0
	for _, p := range c.Paragraphs {
		total += len(p)
	}
	return total
}

// TocEntry is a single entry in a container's table of contents. Href
// references a content unit inside the container and may carry an
// anchor fragment. Level is the nesting depth, 0 for top-level.
type TocEntry struct {
	Title string
	Href  string
	Level int
}

// Metadata carries publishing information common to all container
// formats. Optional fields are empty when the container omits them.
type Metadata struct {
	Title         string
	Author        string
	Language      string
	Publisher     string
	Description   string
	CoverImage    []byte
	CoverMimeType string
}

// AudioResult is the output of one successfully rendered chapter. Path
// points at the chapter-scoped audio file inside the run's work
// directory. Exactly one result exists per rendered chapter; a missing
// result means the chapter was skipped.
type AudioResult struct {
	ChapterIndex int
	Title        string
	Path         string
	DurationMS   int64
}
