package reader

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/taylorskalyo/goreader/epub"
	"golang.org/x/net/html"

	"talespin/internal/book"
	"talespin/internal/classify"
	"talespin/internal/textutil"
)

type epubReader struct {
	path       string
	rc         *epub.ReadCloser
	book       *epub.Rootfile
	classifier *classify.Classifier
}

func newEPUBReader(filePath string, classifier *classify.Classifier) (Reader, error) {
	rc, err := epub.OpenReader(filePath)
	if err != nil {
		return nil, fmt.Errorf("open epub: %w", err)
	}
	if len(rc.Rootfiles) == 0 {
		rc.Close()
		return nil, fmt.Errorf("open epub: no rootfiles in %s", filePath)
	}
	return &epubReader{
		path:       filePath,
		rc:         rc,
		book:       rc.Rootfiles[0],
		classifier: classifier,
	}, nil
}

func (r *epubReader) Close() error { r.rc.Close(); return nil }

// OPF package document structures (metadata + manifest).
type opfPackage struct {
	Metadata opfMetadata `xml:"metadata"`
	Manifest struct {
		Items []opfItem `xml:"item"`
	} `xml:"manifest"`
}

type opfMetadata struct {
	Titles       []string `xml:"title"`
	Creators     []string `xml:"creator"`
	Languages    []string `xml:"language"`
	Publishers   []string `xml:"publisher"`
	Descriptions []string `xml:"description"`
	Metas        []struct {
		Name    string `xml:"name,attr"`
		Content string `xml:"content,attr"`
	} `xml:"meta"`
}

type opfItem struct {
	ID         string `xml:"id,attr"`
	HREF       string `xml:"href,attr"`
	MediaType  string `xml:"media-type,attr"`
	Properties string `xml:"properties,attr"`
}

type containerXML struct {
	Rootfiles []struct {
		FullPath string `xml:"full-path,attr"`
	} `xml:"rootfiles>rootfile"`
}

func (r *epubReader) Metadata() (book.Metadata, error) {
	meta := book.Metadata{Title: stemOf(r.path)}

	_, pkg, err := r.readOPF()
	if err != nil {
		// Metadata is best-effort; the filename-derived title stands.
		return meta, nil
	}
	if len(pkg.Metadata.Titles) > 0 {
		if title := textutil.SanitizeFileName(pkg.Metadata.Titles[0]); title != "" {
			meta.Title = title
		}
	}
	meta.Author = firstOf(pkg.Metadata.Creators)
	meta.Language = firstOf(pkg.Metadata.Languages)
	meta.Publisher = firstOf(pkg.Metadata.Publishers)
	meta.Description = firstOf(pkg.Metadata.Descriptions)
	meta.CoverImage, meta.CoverMimeType, _ = r.Cover()
	return meta, nil
}

// Cover resolves the cover image through the usual suspects: an OPF
// <meta name="cover"> pointing at a manifest id, a manifest item with
// the cover-image property, or an item literally named "cover".
func (r *epubReader) Cover() ([]byte, string, error) {
	opfPath, pkg, err := r.readOPF()
	if err != nil {
		return nil, "", err
	}

	coverID := ""
	for _, m := range pkg.Metadata.Metas {
		if strings.EqualFold(m.Name, "cover") && m.Content != "" {
			coverID = m.Content
			break
		}
	}

	var coverItem *opfItem
	for i, item := range pkg.Manifest.Items {
		switch {
		case coverID != "" && item.ID == coverID:
			coverItem = &pkg.Manifest.Items[i]
		case strings.Contains(item.Properties, "cover-image"):
			coverItem = &pkg.Manifest.Items[i]
		case strings.EqualFold(item.ID, "cover") && strings.HasPrefix(item.MediaType, "image/"):
			coverItem = &pkg.Manifest.Items[i]
		}
		if coverItem != nil {
			break
		}
	}
	if coverItem == nil {
		return nil, "", nil
	}

	data, err := r.readZipEntry(resolveHref(opfPath, coverItem.HREF))
	if err != nil {
		return nil, "", nil
	}
	return data, coverItem.MediaType, nil
}

func (r *epubReader) ChapterCount() (int, error) {
	toc, err := r.TableOfContents()
	if err != nil {
		return 0, err
	}
	return len(toc), nil
}

// NCX navigation structures.
type ncx struct {
	NavMap struct {
		NavPoints []navPoint `xml:"navPoint"`
	} `xml:"navMap"`
}

type navPoint struct {
	Label struct {
		Text string `xml:"text"`
	} `xml:"navLabel"`
	Content struct {
		Src string `xml:"src,attr"`
	} `xml:"content"`
	Children []navPoint `xml:"navPoint"`
}

// TableOfContents reads the NCX navigation document, falling back to
// the EPUB3 NAV document. A missing or unparsable TOC yields an empty
// list so extraction can fall back to heuristic splitting.
func (r *epubReader) TableOfContents() ([]book.TocEntry, error) {
	if data, err := r.findNCX(); err == nil {
		var toc ncx
		if err := xml.Unmarshal(data, &toc); err == nil {
			return flattenNavPoints(toc.NavMap.NavPoints, 0), nil
		}
	}
	return r.navTOC(), nil
}

func flattenNavPoints(points []navPoint, level int) []book.TocEntry {
	var entries []book.TocEntry
	for _, np := range points {
		title := textutil.CleanText(np.Label.Text)
		if title == "" {
			title = "Untitled"
		}
		entries = append(entries, book.TocEntry{
			Title: title,
			Href:  np.Content.Src,
			Level: level,
		})
		entries = append(entries, flattenNavPoints(np.Children, level+1)...)
	}
	return entries
}

func (r *epubReader) findNCX() ([]byte, error) {
	for _, item := range r.book.Manifest.Items {
		if item.MediaType == "application/x-dtbncx+xml" {
			return r.readZipEntry(item.HREF)
		}
	}
	zr, err := zip.OpenReader(r.path)
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	for _, f := range zr.File {
		if strings.HasSuffix(strings.ToLower(f.Name), ".ncx") {
			return readZipFile(f)
		}
	}
	return nil, fmt.Errorf("no NCX document in %s", r.path)
}

// navTOC parses an EPUB3 <nav epub:type="toc"> document, deriving
// levels from <ol> nesting.
func (r *epubReader) navTOC() []book.TocEntry {
	var navHref string
	_, pkg, err := r.readOPF()
	if err != nil {
		return nil
	}
	for _, item := range pkg.Manifest.Items {
		if strings.Contains(item.Properties, "nav") {
			navHref = item.HREF
			break
		}
	}
	if navHref == "" {
		return nil
	}
	data, err := r.readZipEntry(navHref)
	if err != nil {
		return nil
	}
	root, err := parseHTML(data)
	if err != nil {
		return nil
	}

	var entries []book.TocEntry
	var inTOC bool
	var walk func(n *html.Node, level int)
	walk = func(n *html.Node, level int) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "nav":
				typ := attrValue(n, "epub:type")
				if typ == "" {
					typ = attrValue(n, "type")
				}
				if typ == "toc" {
					inTOC = true
					defer func() { inTOC = false }()
				}
			case "ol":
				if inTOC {
					level++
				}
			case "a":
				if inTOC {
					if href := attrValue(n, "href"); href != "" {
						title := textutil.CleanText(nodeText(n))
						if title == "" {
							title = "Untitled"
						}
						entries = append(entries, book.TocEntry{
							Title: title,
							Href:  href,
							Level: level - 1,
						})
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, level)
		}
	}
	walk(root, 0)
	return entries
}

// Chapters walks the spine in reading order, assigning each content
// unit's paragraphs to the TOC entries that claim it. Without a TOC it
// falls back to heuristic heading detection over the same spine walk.
func (r *epubReader) Chapters(minTextLen int) ([]book.Chapter, error) {
	if minTextLen <= 0 {
		minTextLen = DefaultMinTextLen
	}
	toc, err := r.TableOfContents()
	if err != nil || len(toc) == 0 {
		return r.heuristicChapters(minTextLen), nil
	}

	table := buildClaimTable(toc)
	paras := make(map[int][]string, len(toc))

	for _, ref := range r.book.Spine.Itemrefs {
		if ref.Item == nil {
			continue
		}
		claims := table.claimsFor(ref.Item.HREF)
		if len(claims) == 0 {
			continue
		}
		idx, err := r.indexItem(ref.Item)
		if err != nil {
			continue
		}
		for tocIdx, ps := range assignParagraphs(idx, claims) {
			paras[tocIdx] = append(paras[tocIdx], ps...)
		}
	}

	return materializeChapters(toc, paras, r.classifier, minTextLen), nil
}

func (r *epubReader) heuristicChapters(minTextLen int) []book.Chapter {
	splitter := newHeuristicSplitter(r.classifier, minTextLen)
	for _, ref := range r.book.Spine.Itemrefs {
		if ref.Item == nil {
			continue
		}
		idx, err := r.indexItem(ref.Item)
		if err != nil {
			continue
		}
		for _, p := range idx.paras {
			splitter.feed(p.text)
		}
		splitter.flush()
	}
	return splitter.result()
}

func (r *epubReader) indexItem(item *epub.Item) (*docIndex, error) {
	rd, err := item.Open()
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(rd)
	rd.Close()
	if err != nil {
		return nil, err
	}
	root, err := parseHTML(data)
	if err != nil {
		return nil, err
	}
	cleanDocument(root)
	return indexDocument(root), nil
}

func (r *epubReader) readOPF() (string, *opfPackage, error) {
	data, err := r.readZipEntry("META-INF/container.xml")
	if err != nil {
		return "", nil, err
	}
	var container containerXML
	if err := xml.Unmarshal(data, &container); err != nil {
		return "", nil, fmt.Errorf("parse container.xml: %w", err)
	}
	if len(container.Rootfiles) == 0 || container.Rootfiles[0].FullPath == "" {
		return "", nil, fmt.Errorf("no rootfile in container.xml")
	}
	opfPath := container.Rootfiles[0].FullPath
	data, err = r.readZipEntry(opfPath)
	if err != nil {
		return "", nil, err
	}
	var pkg opfPackage
	if err := xml.Unmarshal(data, &pkg); err != nil {
		return "", nil, fmt.Errorf("parse %s: %w", opfPath, err)
	}
	return opfPath, &pkg, nil
}

// readZipEntry locates an archive member by exact name, directory
// suffix, or base name, in that order of preference.
func (r *epubReader) readZipEntry(name string) ([]byte, error) {
	zr, err := zip.OpenReader(r.path)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	var bySuffix, byBase *zip.File
	for _, f := range zr.File {
		if f.Name == name {
			return readZipFile(f)
		}
		if bySuffix == nil && strings.HasSuffix(f.Name, "/"+name) {
			bySuffix = f
		}
		if byBase == nil && path.Base(f.Name) == path.Base(name) {
			byBase = f
		}
	}
	if bySuffix != nil {
		return readZipFile(bySuffix)
	}
	if byBase != nil {
		return readZipFile(byBase)
	}
	return nil, fmt.Errorf("%s not found in archive", name)
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func resolveHref(opfPath, href string) string {
	dir := path.Dir(opfPath)
	if dir == "." {
		return href
	}
	return path.Join(dir, href)
}

func firstOf(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return strings.TrimSpace(values[0])
}

func stemOf(filePath string) string {
	base := path.Base(strings.ReplaceAll(filePath, "\\", "/"))
	if i := strings.LastIndex(base, "."); i > 0 {
		base = base[:i]
	}
	return base
}
