// Package classify tags chapters by structural role based on their
// titles. Rules are grouped into ordered families (front matter, back
// matter, title page, part divider); the first family with a matching
// rule decides the classification.
package classify

import (
	"fmt"
	"regexp"
	"strings"

	"talespin/internal/book"
)

// Category identifies a rule family.
type Category string

const (
	CategoryFrontMatter Category = "front_matter"
	CategoryBackMatter  Category = "back_matter"
	CategoryTitlePage   Category = "title_page"
	CategoryPartDivider Category = "part_divider"
)

type rule struct {
	re    *regexp.Regexp
	label string
}

// Classifier holds a mutable rule table. The zero value is not usable;
// construct with New. A classifier is not safe for concurrent
// mutation, but Classify is safe to call concurrently once the rule
// set is settled.
type Classifier struct {
	frontMatter []rule
	backMatter  []rule
	titlePage   []rule
	partDivider []rule
}

// New returns a classifier populated with the default rule set.
func New() *Classifier {
	c := &Classifier{}
	c.Reset()
	return c
}

// AddRule appends a custom pattern to the given category. Patterns are
// matched case-insensitively anywhere in the title. The label is used
// for diagnostics only and defaults to the pattern.
func (c *Classifier) AddRule(category Category, pattern, label string) error {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return fmt.Errorf("classify: compile pattern %q: %w", pattern, err)
	}
	if label == "" {
		label = pattern
	}
	r := rule{re: re, label: label}
	switch category {
	case CategoryFrontMatter:
		c.frontMatter = append(c.frontMatter, r)
	case CategoryBackMatter:
		c.backMatter = append(c.backMatter, r)
	case CategoryTitlePage:
		c.titlePage = append(c.titlePage, r)
	case CategoryPartDivider:
		c.partDivider = append(c.partDivider, r)
	default:
		return fmt.Errorf("classify: unknown category %q", category)
	}
	return nil
}

// Reset restores the default rule set, discarding custom rules.
func (c *Classifier) Reset() {
	c.frontMatter = compileRules([][2]string{
		{`^acknowledgments`, "acknowledgments"},
		{`^preface`, "preface"},
		{`introduction`, "introduction"}, // matches anywhere, e.g. "1. Introduction"
		{`^contents`, "table of contents"},
		{`^copyright`, "copyright"},
		{`^dedication`, "dedication"},
		{`^foreword`, "foreword"},
	})
	c.backMatter = compileRules([][2]string{
		{`^references`, "references"},
		{`^index`, "index"},
		{`^bibliography`, "bibliography"},
		{`^appendix`, "appendix"},
		{`^notes`, "notes"},
		{`^glossary`, "glossary"},
	})
	c.titlePage = compileRules([][2]string{
		{`^title`, "title page"},
		{`^cover`, "cover page"},
		{`^colophon`, "colophon"},
	})
	c.partDivider = compileRules([][2]string{
		{`^part\s+[\divxlc]+`, "part divider"},
		{`^part\s+(first|second|third|fourth|fifth|sixth|seventh|eighth|ninth|tenth|one|two|three|four|five)`, "part divider"},
		{`^book\s+(first|second|third|fourth|fifth|sixth|seventh|eighth|ninth|tenth|one|two|three|four|five|\d+|[ivx]+)`, "book divider"},
		{`^volume\s+[\divxlc]+`, "volume divider"},
		{`^volume\s+(first|second|third|fourth|fifth|sixth|seventh|eighth|ninth|tenth|one|two|three|four|five)`, "volume divider"},
	})
}

// Classify derives structural tags from a chapter title. An empty
// title is not a chapter at all. Families are checked in a fixed
// order; within a family the first matching rule wins. Front matter,
// back matter, and title pages clear the Chapter flag, while part
// dividers keep it set so they remain navigable.
func (c *Classifier) Classify(title string) book.Tags {
	title = strings.ToLower(strings.TrimSpace(title))
	if title == "" {
		return book.Tags{Chapter: false}
	}
	tags := book.Tags{Chapter: true}
	if matchAny(c.frontMatter, title) {
		tags.FrontMatter = true
		tags.Chapter = false
		return tags
	}
	if matchAny(c.backMatter, title) {
		tags.BackMatter = true
		tags.Chapter = false
		return tags
	}
	if matchAny(c.titlePage, title) {
		tags.TitlePage = true
		tags.Chapter = false
		return tags
	}
	if matchAny(c.partDivider, title) {
		tags.PartDivider = true
		return tags
	}
	return tags
}

func matchAny(rules []rule, title string) bool {
	for _, r := range rules {
		if r.re.MatchString(title) {
			return true
		}
	}
	return false
}

func compileRules(defs [][2]string) []rule {
	rules := make([]rule, 0, len(defs))
	for _, def := range defs {
		rules = append(rules, rule{re: regexp.MustCompile("(?i)" + def[0]), label: def[1]})
	}
	return rules
}
