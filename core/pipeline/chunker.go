package pipeline

import (
	"strings"
	"unicode"
)

// Default chunking parameters in characters
const (
	DefaultChunkSize    = 500
	DefaultChunkOverlap = 50
)

// isSentenceEnd reports whether r closes a sentence.
func isSentenceEnd(r rune) bool {
	switch r {
	case '.', '!', '?', '。', '！', '？', '\n':
		return true
	}
	return false
}

// splitPieces cuts text after every sentence terminator.
// Whitespace between sentences is kept at the start of the following piece,
// so joining the pieces gives back the trimmed text.
func splitPieces(text string) [][]rune {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var pieces [][]rune
	var current []rune
	for _, r := range text {
		current = append(current, r)
		if isSentenceEnd(r) {
			pieces = append(pieces, current)
			current = nil
		}
	}
	if len(current) > 0 {
		pieces = append(pieces, current)
	}

	// Merge whitespace-only pieces into the next piece
	merged := make([][]rune, 0, len(pieces))
	var pending []rune
	for _, p := range pieces {
		if isBlank(p) {
			pending = append(pending, p...)
			continue
		}
		if len(pending) > 0 {
			p = append(pending, p...)
			pending = nil
		}
		merged = append(merged, p)
	}

	return merged
}

// splitSentences returns the trimmed sentences of text.
func splitSentences(text string) []string {
	pieces := splitPieces(text)
	sentences := make([]string, 0, len(pieces))
	for _, p := range pieces {
		sentences = append(sentences, strings.TrimSpace(string(p)))
	}
	return sentences
}

// OverlapChunker creates a chunker that packs whole sentences into chunks of
// at most size characters.
//
// When the next sentence does not fit, the chunk is sealed and the next one
// starts with the last overlap characters of the sealed chunk. A sentence
// longer than size is cut into windows of size characters, each starting
// size-overlap characters after the previous one (at least 1).
func OverlapChunker(size int, overlap int) ChunkFunc {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	stride := size - overlap
	if stride < 1 {
		stride = 1
	}

	return func(text string) []string {
		var chunks []string
		var buffer []rune

		seal := func() {
			if len(buffer) > 0 {
				chunks = append(chunks, string(buffer))
			}
		}

		for _, piece := range splitPieces(text) {
			sentence := trimLeftRunes(piece)

			// Force split sentences that can never fit
			if len(sentence) > size {
				seal()
				buffer = nil
				chunks = append(chunks, windows(sentence, size, stride)...)
				continue
			}

			if len(buffer) == 0 {
				buffer = append(buffer, sentence...)
				continue
			}

			if len(buffer)+len(piece) <= size {
				buffer = append(buffer, piece...)
				continue
			}

			seal()
			seed := tailRunes(buffer, overlap)
			if len(seed)+len(piece) > size {
				seed = tailRunes(seed, size-len(piece))
			}

			if len(seed) == 0 {
				buffer = append([]rune(nil), sentence...)
			} else {
				buffer = append(append([]rune(nil), seed...), piece...)
			}
		}
		seal()

		return chunks
	}
}

// windows cuts runes into windows of size, stepping by stride, and stops at
// the first window reaching the end.
func windows(runes []rune, size int, stride int) []string {
	var result []string
	for start := 0; start < len(runes); start += stride {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		result = append(result, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return result
}

func tailRunes(runes []rune, n int) []rune {
	if n <= 0 {
		return nil
	}
	if n >= len(runes) {
		return runes
	}
	return runes[len(runes)-n:]
}

func trimLeftRunes(runes []rune) []rune {
	for i, r := range runes {
		if !unicode.IsSpace(r) {
			return runes[i:]
		}
	}
	return nil
}

func isBlank(runes []rune) bool {
	return len(trimLeftRunes(runes)) == 0
}
