// Package textutil provides text processing utilities for whitespace
// normalization, filename sanitization, and natural-order comparison.
//
// The primary use cases are:
//   - Collapsing extracted HTML text into clean single-space paragraphs
//   - Sanitizing book and chapter titles for safe filesystem use
//   - Ordering chapter files so "ch_2" sorts before "ch_10"
package textutil
