package reader

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"talespin/internal/book"
	"talespin/internal/classify"
	"talespin/internal/textutil"
)

// textReader handles plain .txt files. There is no container structure
// to mine, so chapters always come from heuristic heading detection
// over blank-line-separated blocks.
type textReader struct {
	path       string
	classifier *classify.Classifier
	blocks     []string
}

func newTextReader(filePath string, classifier *classify.Classifier) (Reader, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open text file: %w", err)
	}
	defer f.Close()

	var blocks []string
	var current strings.Builder
	flush := func() {
		if text := textutil.CleanText(current.String()); text != "" {
			blocks = append(blocks, text)
		}
		current.Reset()
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			flush()
			continue
		}
		current.WriteString(line)
		current.WriteByte('\n')
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read text file: %w", err)
	}
	flush()

	return &textReader{path: filePath, classifier: classifier, blocks: blocks}, nil
}

func (r *textReader) Close() error { return nil }

func (r *textReader) Metadata() (book.Metadata, error) {
	return book.Metadata{Title: stemOf(r.path)}, nil
}

func (r *textReader) TableOfContents() ([]book.TocEntry, error) {
	return nil, nil
}

func (r *textReader) ChapterCount() (int, error) {
	return 0, nil
}

func (r *textReader) Cover() ([]byte, string, error) {
	return nil, "", nil
}

func (r *textReader) Chapters(minTextLen int) ([]book.Chapter, error) {
	if minTextLen <= 0 {
		minTextLen = DefaultMinTextLen
	}
	splitter := newHeuristicSplitter(r.classifier, minTextLen)
	for _, block := range r.blocks {
		splitter.feed(block)
	}
	return splitter.result(), nil
}
