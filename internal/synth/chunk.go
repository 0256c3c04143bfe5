package synth

import "strings"

// Chunk size policy: the very first chapter rendered uses small chunks
// so the throughput estimator gets early, fine-grained samples; every
// other chapter uses larger chunks for rendering efficiency.
const (
	FirstChapterChunkChars = 250
	DefaultChunkChars      = 800
)

// ChunkSize returns the chunk budget for a chapter.
func ChunkSize(firstChapter bool) int {
	if firstChapter {
		return FirstChapterChunkChars
	}
	return DefaultChunkChars
}

// ChunkParagraphs batches paragraphs into render units of at most
// maxChars. A paragraph within budget stays one chunk; an oversized
// paragraph is split at sentence boundaries so breaks sound natural.
func ChunkParagraphs(paragraphs []string, maxChars int) []string {
	if maxChars <= 0 {
		maxChars = DefaultChunkChars
	}
	var chunks []string
	for _, p := range paragraphs {
		if len(p) <= maxChars {
			chunks = append(chunks, p)
			continue
		}

		var current []string
		currentLen := 0
		for _, sentence := range splitSentences(p) {
			extra := 0
			if len(current) > 0 {
				extra = 1
			}
			if currentLen+len(sentence)+extra > maxChars {
				if len(current) > 0 {
					chunks = append(chunks, strings.Join(current, " "))
				}
				current = []string{sentence}
				currentLen = len(sentence)
			} else {
				current = append(current, sentence)
				currentLen += len(sentence) + extra
			}
		}
		if len(current) > 0 {
			chunks = append(chunks, strings.Join(current, " "))
		}
	}
	return chunks
}

// splitSentences breaks text after sentence-final punctuation followed
// by whitespace.
func splitSentences(text string) []string {
	var sentences []string
	start := 0
	for i := 0; i < len(text)-1; i++ {
		switch text[i] {
		case '.', '!', '?':
			if text[i+1] == ' ' || text[i+1] == '\t' || text[i+1] == '\n' {
				sentences = append(sentences, text[start:i+1])
				i++
				for i < len(text) && (text[i] == ' ' || text[i] == '\t' || text[i] == '\n') {
					i++
				}
				start = i
				i--
			}
		}
	}
	if start < len(text) {
		sentences = append(sentences, text[start:])
	}
	return sentences
}

// chunkStats sums the character counts of a chunk list.
func chunkStats(chunks []string) int {
	total := 0
	for _, c := range chunks {
		total += len(c)
	}
	return total
}
