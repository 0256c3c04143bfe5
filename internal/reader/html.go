package reader

import (
	"bytes"
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"talespin/internal/textutil"
)

// strippedClassRe matches class names whose elements carry no narratable
// prose (page numbers, hidden spans, footnote apparatus).
var strippedClassRe = regexp.MustCompile(`(?i)page-?number|hidden|metadata|footnote`)

var strippedTags = map[string]bool{
	"sup": true, "script": true, "style": true, "nav": true, "footer": true,
}

var paragraphTags = map[string]bool{
	"p": true, "div": true, "section": true, "blockquote": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
}

func parseHTML(data []byte) (*html.Node, error) {
	return html.Parse(bytes.NewReader(data))
}

// cleanDocument strips elements that never contain narration: scripts,
// styles, navigation chrome, superscript footnote markers, and anything
// whose class marks it as page furniture.
func cleanDocument(root *html.Node) {
	var doomed []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if strippedTags[n.Data] || strippedClassRe.MatchString(attrValue(n, "class")) {
				doomed = append(doomed, n)
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	for _, n := range doomed {
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
	}
}

// paraText is one paragraph-level text block with its preorder document
// position, used to order anchors against text.
type paraText struct {
	pos  int
	text string
}

// docIndex is a single-pass index of a content document: paragraph
// blocks in document order plus the preorder position of every id/name
// anchor.
type docIndex struct {
	paras   []paraText
	anchors map[string]int
}

// indexDocument walks the cleaned document once, numbering elements in
// preorder. A paragraph block is the innermost element with a block
// tag; wrapper divs are descended through, not emitted. Anchors inside
// paragraphs are still recorded so TOC fragments can point mid-block.
func indexDocument(root *html.Node) *docIndex {
	idx := &docIndex{anchors: make(map[string]int)}
	pos := 0

	var walk func(n *html.Node, insidePara bool)
	walk = func(n *html.Node, insidePara bool) {
		if n.Type == html.ElementNode {
			pos++
			if id := attrValue(n, "id"); id != "" {
				if _, seen := idx.anchors[id]; !seen {
					idx.anchors[id] = pos
				}
			}
			if name := attrValue(n, "name"); name != "" {
				if _, seen := idx.anchors[name]; !seen {
					idx.anchors[name] = pos
				}
			}
			if !insidePara && paragraphTags[n.Data] && !hasBlockChild(n) {
				if text := textutil.CleanText(nodeText(n)); len(text) >= 2 {
					idx.paras = append(idx.paras, paraText{pos: pos, text: text})
				}
				insidePara = true
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, insidePara)
		}
	}
	walk(root, false)

	// Last resort for pathological markup with no block structure at
	// all: treat the whole document as one paragraph.
	if len(idx.paras) == 0 {
		if text := textutil.CleanText(nodeText(root)); len(text) >= 2 {
			idx.paras = append(idx.paras, paraText{pos: 0, text: text})
		}
	}
	return idx
}

func hasBlockChild(n *html.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && paragraphTags[c.Data] {
			return true
		}
		if hasBlockChild(c) {
			return true
		}
	}
	return false
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func attrValue(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
