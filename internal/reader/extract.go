package reader

import (
	"math"
	"path"
	"sort"
	"strings"

	"talespin/internal/book"
	"talespin/internal/classify"
)

// claim records that one TOC entry claims text from a content unit,
// starting at anchor (empty means the top of the unit).
type claim struct {
	anchor string
	tocIdx int
}

// claimTable maps content-unit hrefs to their claiming TOC entries in
// TOC order. Base-name aliases cover containers whose spine and TOC
// disagree about directory prefixes.
type claimTable struct {
	exact map[string][]claim
	base  map[string][]claim
}

func buildClaimTable(toc []book.TocEntry) *claimTable {
	t := &claimTable{
		exact: make(map[string][]claim),
		base:  make(map[string][]claim),
	}
	for idx, entry := range toc {
		file, anchor := splitFragment(entry.Href)
		if file == "" {
			continue
		}
		c := claim{anchor: anchor, tocIdx: idx}
		t.exact[file] = append(t.exact[file], c)
		t.base[path.Base(file)] = append(t.base[path.Base(file)], c)
	}
	return t
}

func (t *claimTable) claimsFor(href string) []claim {
	if claims, ok := t.exact[href]; ok {
		return claims
	}
	return t.base[path.Base(href)]
}

func splitFragment(href string) (file, anchor string) {
	if i := strings.Index(href, "#"); i >= 0 {
		return href[:i], href[i+1:]
	}
	return href, ""
}

// assignParagraphs partitions a content unit's paragraphs among the TOC
// entries that claim it. A single claimant takes everything. With
// multiple claimants, each entry's anchor position defines the start of
// its slice: entries without anchors sort to the top of the unit,
// entries whose anchors are missing from the document sort last, and
// each entry owns the paragraphs between its anchor and the next.
// Every paragraph lands in exactly one bucket.
func assignParagraphs(idx *docIndex, claims []claim) map[int][]string {
	out := make(map[int][]string, len(claims))
	if len(claims) == 0 {
		return out
	}
	if len(claims) == 1 {
		for _, p := range idx.paras {
			out[claims[0].tocIdx] = append(out[claims[0].tocIdx], p.text)
		}
		return out
	}

	type bound struct {
		offset int
		tocIdx int
	}
	bounds := make([]bound, 0, len(claims))
	for _, c := range claims {
		offset := 0
		if c.anchor != "" {
			if pos, ok := idx.anchors[c.anchor]; ok {
				offset = pos
			} else {
				offset = math.MaxInt
			}
		}
		bounds = append(bounds, bound{offset: offset, tocIdx: c.tocIdx})
	}
	sort.SliceStable(bounds, func(i, j int) bool { return bounds[i].offset < bounds[j].offset })

	for _, p := range idx.paras {
		owner := bounds[0].tocIdx
		for _, b := range bounds {
			if b.offset > p.pos {
				break
			}
			owner = b.tocIdx
		}
		out[owner] = append(out[owner], p.text)
	}
	return out
}

// materializeChapters turns TOC entries plus their assigned paragraphs
// into the final chapter list. Every entry survives: entries whose text
// falls below minTextLen keep empty paragraphs so structural landmarks
// (part dividers, blank section pages) stay navigable and filterable.
func materializeChapters(toc []book.TocEntry, paras map[int][]string, classifier *classify.Classifier, minTextLen int) []book.Chapter {
	chapters := make([]book.Chapter, 0, len(toc))
	for tocIdx, entry := range toc {
		ps := paras[tocIdx]
		if joinedLen(ps) < minTextLen {
			ps = nil
		} else {
			ps = dropTitleEcho(entry.Title, ps)
		}
		chapters = append(chapters, book.Chapter{
			Index:      tocIdx + 1,
			Title:      entry.Title,
			Paragraphs: ps,
			Tags:       classifier.Classify(entry.Title),
			TocIndex:   tocIdx,
		})
	}
	return chapters
}

// dropTitleEcho removes the leading paragraph when the chapter title
// ends with it (case-insensitively), the common pattern of a heading
// element repeating itself as the first body line.
func dropTitleEcho(title string, paras []string) []string {
	if len(paras) > 0 && strings.HasSuffix(strings.ToLower(title), strings.ToLower(paras[0])) {
		return paras[1:]
	}
	return paras
}

func joinedLen(paras []string) int {
	if len(paras) == 0 {
		return 0
	}
	n := len(paras) - 1
	for _, p := range paras {
		n += len(p)
	}
	return n
}
