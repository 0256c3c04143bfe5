package reader

import (
	"fmt"
	"regexp"
	"strings"

	"talespin/internal/book"
	"talespin/internal/classify"
)

// Heading patterns for containers without a usable TOC. A chapter
// starts at a "Chapter N" label, a bare Roman numeral followed by a
// period, or a leading ordinal; volume/book lines update a running
// prefix instead of opening a chapter.
var (
	volumeRe  = regexp.MustCompile(`(?i)^(volume|part)\s+[ivxlcdm\d]+`)
	bookRe    = regexp.MustCompile(`(?i)^book\s+(?:the\s+)?(?:[ivxlcdm\d]+|[a-z]+)`)
	chapterRe = regexp.MustCompile(`(?i)^(chapter\s+[ivxlcdm\d]+)([.\-—\s:]+)(.*)$`)
	romanRe   = regexp.MustCompile(`^([IVXLCDM]+)(\.[.\-—\s:]*)(.*)$`)
	ordinalRe = regexp.MustCompile(`^(\d{1,3})(\.\s+)(.*)$`)
)

// heuristicSplitter accumulates block-level text and opens a new
// chapter whenever a heading pattern matches. It spans content units:
// volume/book prefixes persist across unit boundaries while open
// chapters close at each boundary.
type heuristicSplitter struct {
	classifier *classify.Classifier
	minTextLen int

	chapters []book.Chapter
	title    string
	paras    []string
	volume   string
	book     string
}

func newHeuristicSplitter(classifier *classify.Classifier, minTextLen int) *heuristicSplitter {
	return &heuristicSplitter{classifier: classifier, minTextLen: minTextLen}
}

func (s *heuristicSplitter) feed(text string) {
	if len(text) < 2 {
		return
	}
	if volumeRe.MatchString(text) {
		s.volume = text
		return
	}
	if bookRe.MatchString(text) {
		s.book = text
		return
	}

	label, remainder, ok := matchHeading(text)
	if !ok {
		s.paras = append(s.paras, text)
		return
	}

	s.closeChapter()

	prefix := ""
	if s.volume != "" {
		prefix = s.volume + ", "
	}
	if s.book != "" {
		prefix += s.book + ", "
	}

	// A long remainder means the heading element swallowed body text;
	// keep the first sentence as the title and push the rest back into
	// the paragraph stream.
	if len(remainder) > 200 && strings.Contains(remainder, ".") {
		if i := strings.Index(remainder, ". "); i >= 0 {
			s.title = fmt.Sprintf("%s%s: %s", prefix, label, remainder[:i+1])
			s.paras = []string{remainder[i+2:]}
			return
		}
	}
	if remainder != "" {
		s.title = fmt.Sprintf("%s%s: %s", prefix, label, remainder)
	} else {
		s.title = prefix + label
	}
	s.paras = nil
}

// flush closes the open chapter at a content-unit boundary.
func (s *heuristicSplitter) flush() {
	s.closeChapter()
	s.title = ""
}

func (s *heuristicSplitter) result() []book.Chapter {
	s.closeChapter()
	return s.chapters
}

func (s *heuristicSplitter) closeChapter() {
	defer func() { s.paras = nil }()

	short := joinedLen(s.paras) < s.minTextLen
	if short && s.title == "" {
		// An untitled sub-threshold fragment is noise, not a chapter.
		return
	}

	title := s.title
	if title == "" {
		title = fmt.Sprintf("Chapter %d", len(s.chapters)+1)
	}

	paras := s.paras
	if short {
		paras = nil
	} else {
		paras = dropTitleEcho(title, paras)
	}

	s.chapters = append(s.chapters, book.Chapter{
		Index:      len(s.chapters) + 1,
		Title:      title,
		Paragraphs: paras,
		Tags:       s.classifier.Classify(title),
		TocIndex:   len(s.chapters),
	})
}

func matchHeading(text string) (label, remainder string, ok bool) {
	for _, re := range []*regexp.Regexp{chapterRe, romanRe, ordinalRe} {
		if m := re.FindStringSubmatch(text); m != nil {
			return m[1], strings.TrimSpace(m[3]), true
		}
	}
	return "", "", false
}
