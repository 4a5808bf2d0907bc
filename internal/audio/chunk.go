package audio

import (
	"unicode"
	"unicode/utf8"
)

// DefaultChunkChars is the per-chunk character budget.
const DefaultChunkChars = 600

// ChunkText splits text at sentence boundaries (., ! or ? followed by
// whitespace) and greedily joins sentences with a single space until adding
// the next one would exceed maxChars. A sentence longer than maxChars becomes
// its own chunk. Length is counted in runes.
//
// Text with no content yields a nil slice; callers synthesize the text as a
// single chunk in that case.
func ChunkText(text string, maxChars int) []string {
	if maxChars <= 0 {
		maxChars = DefaultChunkChars
	}

	var chunks []string
	var buf string
	for _, sentence := range splitSentences(text) {
		candidate := sentence
		if buf != "" {
			candidate = buf + " " + sentence
		}
		if utf8.RuneCountInString(candidate) > maxChars && buf != "" {
			chunks = append(chunks, buf)
			buf = sentence
			continue
		}
		buf = candidate
	}
	if buf != "" {
		chunks = append(chunks, buf)
	}
	return chunks
}

// ChunksOrWhole returns ChunkText's chunks, or text itself as the only chunk.
func ChunksOrWhole(text string, maxChars int) []string {
	if chunks := ChunkText(text, maxChars); len(chunks) > 0 {
		return chunks
	}
	return []string{text}
}

// splitSentences cuts after terminal punctuation that is followed by
// whitespace, dropping that whitespace and any empty pieces.
func splitSentences(text string) []string {
	var out []string
	runes := []rune(text)
	start := 0
	for i := 0; i < len(runes); i++ {
		if !isTerminal(runes[i]) || i+1 >= len(runes) || !unicode.IsSpace(runes[i+1]) {
			continue
		}
		out = appendNonEmpty(out, string(runes[start:i+1]))
		j := i + 1
		for j < len(runes) && unicode.IsSpace(runes[j]) {
			j++
		}
		start = j
		i = j - 1
	}
	if start < len(runes) {
		out = appendNonEmpty(out, string(runes[start:]))
	}
	return out
}

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func appendNonEmpty(out []string, s string) []string {
	if s == "" {
		return out
	}
	return append(out, s)
}
