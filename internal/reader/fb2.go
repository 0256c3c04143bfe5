package reader

import (
	"archive/zip"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"html"
	"os"
	"strings"

	"talespin/internal/book"
	"talespin/internal/classify"
	"talespin/internal/textutil"
)

// FictionBook document structures. Field tags are unqualified so both
// namespaced and bare FB2 files parse.
type fb2Doc struct {
	Description struct {
		TitleInfo struct {
			BookTitle string `xml:"book-title"`
			Authors   []struct {
				FirstName string `xml:"first-name"`
				LastName  string `xml:"last-name"`
			} `xml:"author"`
			Lang       string `xml:"lang"`
			Annotation struct {
				Paragraphs []fb2Para `xml:"p"`
			} `xml:"annotation"`
			Coverpage struct {
				Image struct {
					Href string `xml:"href,attr"`
				} `xml:"image"`
			} `xml:"coverpage"`
		} `xml:"title-info"`
		PublishInfo struct {
			Publisher string `xml:"publisher"`
		} `xml:"publish-info"`
	} `xml:"description"`
	Bodies   []fb2Body `xml:"body"`
	Binaries []struct {
		ID          string `xml:"id,attr"`
		ContentType string `xml:"content-type,attr"`
		Data        string `xml:",chardata"`
	} `xml:"binary"`
}

type fb2Body struct {
	Sections []fb2Section `xml:"section"`
}

type fb2Section struct {
	Title struct {
		Paragraphs []fb2Para `xml:"p"`
	} `xml:"title"`
	Subtitle   fb2Para      `xml:"subtitle"`
	Paragraphs []fb2Para    `xml:"p"`
	Sections   []fb2Section `xml:"section"`
}

// fb2Para captures a paragraph's inner XML so text inside emphasis and
// style elements is not lost, then strips the markup on access.
type fb2Para struct {
	Inner string `xml:",innerxml"`
}

func (p fb2Para) Text() string {
	return textutil.CleanText(html.UnescapeString(stripMarkup(p.Inner)))
}

type fb2Reader struct {
	path       string
	classifier *classify.Classifier
	doc        *fb2Doc
	cover      []byte
	coverMime  string
}

// newFB2Reader parses a FictionBook file, transparently unwrapping
// .fb2.zip archives.
func newFB2Reader(filePath string, classifier *classify.Classifier) (Reader, error) {
	r := &fb2Reader{path: filePath, classifier: classifier}

	var data []byte
	var err error
	if strings.HasSuffix(strings.ToLower(filePath), ".zip") {
		data, err = readFB2FromZip(filePath)
	} else {
		data, err = os.ReadFile(filePath)
	}
	if err != nil {
		return nil, fmt.Errorf("open fb2: %w", err)
	}

	var doc fb2Doc
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse fb2: %w", err)
	}
	r.doc = &doc
	r.cover, r.coverMime = doc.embeddedCover()
	return r, nil
}

func readFB2FromZip(filePath string) ([]byte, error) {
	zr, err := zip.OpenReader(filePath)
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	for _, f := range zr.File {
		if strings.HasSuffix(strings.ToLower(f.Name), ".fb2") {
			return readZipFile(f)
		}
	}
	return nil, fmt.Errorf("no .fb2 member in %s", filePath)
}

// embeddedCover resolves the coverpage image reference against the
// document's base64 binaries.
func (d *fb2Doc) embeddedCover() ([]byte, string) {
	href := strings.TrimPrefix(d.Description.TitleInfo.Coverpage.Image.Href, "#")
	for _, bin := range d.Binaries {
		match := href != "" && bin.ID == href
		if !match && href == "" {
			match = strings.Contains(strings.ToLower(bin.ID), "cover") &&
				strings.HasPrefix(bin.ContentType, "image/")
		}
		if !match {
			continue
		}
		data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(bin.Data))
		if err != nil {
			continue
		}
		return data, bin.ContentType
	}
	return nil, ""
}

func (r *fb2Reader) Close() error { return nil }

func (r *fb2Reader) Metadata() (book.Metadata, error) {
	info := r.doc.Description.TitleInfo
	meta := book.Metadata{
		Title:         stemOf(r.path),
		Language:      strings.TrimSpace(info.Lang),
		Publisher:     strings.TrimSpace(r.doc.Description.PublishInfo.Publisher),
		CoverImage:    r.cover,
		CoverMimeType: r.coverMime,
	}
	if title := textutil.CleanText(info.BookTitle); title != "" {
		meta.Title = textutil.SanitizeFileName(title)
	}

	var authors []string
	for _, a := range info.Authors {
		name := strings.TrimSpace(strings.TrimSpace(a.FirstName) + " " + strings.TrimSpace(a.LastName))
		if name != "" {
			authors = append(authors, name)
		}
	}
	meta.Author = strings.Join(authors, ", ")

	var desc []string
	for _, p := range info.Annotation.Paragraphs {
		if text := p.Text(); text != "" {
			desc = append(desc, text)
		}
	}
	meta.Description = strings.Join(desc, "\n")
	return meta, nil
}

func (r *fb2Reader) Cover() ([]byte, string, error) {
	return r.cover, r.coverMime, nil
}

// TableOfContents flattens the nested section structure of the first
// bodies into entries; FB2 has no hrefs, so entries carry titles and
// levels only.
func (r *fb2Reader) TableOfContents() ([]book.TocEntry, error) {
	var entries []book.TocEntry
	for _, body := range r.doc.Bodies {
		collectSectionTitles(body.Sections, 0, &entries)
	}
	return entries, nil
}

func collectSectionTitles(sections []fb2Section, level int, out *[]book.TocEntry) {
	for _, s := range sections {
		if title := s.titleText(); title != "" {
			*out = append(*out, book.TocEntry{Title: title, Level: level})
		}
		collectSectionTitles(s.Sections, level+1, out)
	}
}

func (r *fb2Reader) ChapterCount() (int, error) {
	toc, err := r.TableOfContents()
	if err != nil {
		return 0, err
	}
	return len(toc), nil
}

// Chapters recursively descends sections; leaf sections become
// chapters titled with their ancestor path ("Part One: Chapter 3").
func (r *fb2Reader) Chapters(minTextLen int) ([]book.Chapter, error) {
	if minTextLen <= 0 {
		minTextLen = DefaultMinTextLen
	}
	if len(r.doc.Bodies) == 0 {
		return nil, nil
	}

	var chapters []book.Chapter
	r.collectChapters(r.doc.Bodies[0].Sections, "", minTextLen, &chapters)
	return chapters, nil
}

func (r *fb2Reader) collectChapters(sections []fb2Section, parentTitle string, minTextLen int, out *[]book.Chapter) {
	for _, s := range sections {
		title := s.titleText()
		full := title
		switch {
		case parentTitle != "" && title != "":
			full = parentTitle + ": " + title
		case parentTitle != "":
			full = parentTitle
		}

		if len(s.Sections) > 0 {
			r.collectChapters(s.Sections, full, minTextLen, out)
			continue
		}

		paras := s.paragraphTexts()
		if full == "" {
			full = fmt.Sprintf("Section %d", len(*out)+1)
		}
		if joinedLen(paras) < minTextLen {
			paras = nil
		} else {
			paras = dropTitleEcho(full, paras)
		}
		*out = append(*out, book.Chapter{
			Index:      len(*out) + 1,
			Title:      full,
			Paragraphs: paras,
			Tags:       r.classifier.Classify(full),
			TocIndex:   len(*out),
		})
	}
}

func (s *fb2Section) titleText() string {
	var parts []string
	for _, p := range s.Title.Paragraphs {
		if text := p.Text(); text != "" {
			parts = append(parts, text)
		}
	}
	if len(parts) == 0 {
		if sub := s.Subtitle.Text(); sub != "" {
			return sub
		}
		return ""
	}
	return strings.Join(parts, " ")
}

func (s *fb2Section) paragraphTexts() []string {
	var paras []string
	for _, p := range s.Paragraphs {
		if text := p.Text(); text != "" {
			paras = append(paras, text)
		}
	}
	return paras
}

// stripMarkup removes XML tags from an inner-XML fragment, keeping the
// character data.
func stripMarkup(s string) string {
	if !strings.ContainsRune(s, '<') {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	depth := 0
	for _, r := range s {
		switch {
		case r == '<':
			depth++
			b.WriteByte(' ')
		case r == '>':
			if depth > 0 {
				depth--
			}
		case depth == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}
