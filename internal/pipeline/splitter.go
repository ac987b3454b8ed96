package pipeline

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// defaultSeparators is the separator ladder tried in order: paragraph
// breaks first, then line breaks, sentence boundaries, words, and finally
// single characters.
var defaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// Splitter cuts text into chunks of at most chunkSize characters while
// carrying chunkOverlap characters of trailing context into the next
// chunk. Separators are kept in the output so chunk boundaries do not
// mangle formatting. Sizes are measured in runes.
type Splitter struct {
	chunkSize    int
	chunkOverlap int
	separators   []string
}

// NewSplitter creates a Splitter. The overlap must be smaller than the
// chunk size or every chunk would carry itself forward.
func NewSplitter(chunkSize, chunkOverlap int) (*Splitter, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if chunkOverlap < 0 {
		return nil, fmt.Errorf("chunk overlap must not be negative, got %d", chunkOverlap)
	}
	if chunkOverlap >= chunkSize {
		return nil, fmt.Errorf("chunk overlap (%d) must be smaller than chunk size (%d)", chunkOverlap, chunkSize)
	}
	return &Splitter{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		separators:   defaultSeparators,
	}, nil
}

// Split cuts text into chunks. Whitespace-only input yields no chunks.
func (s *Splitter) Split(text string) []string {
	return s.split(text, s.separators)
}

// split picks the first separator of the ladder that occurs in text,
// splits on it, merges small pieces back up to the size limit, and
// recurses with the remaining separators for pieces that are still too
// large.
func (s *Splitter) split(text string, separators []string) []string {
	separator := separators[len(separators)-1]
	var remaining []string
	for i, sep := range separators {
		if sep == "" {
			separator = ""
			break
		}
		if strings.Contains(text, sep) {
			separator = sep
			remaining = separators[i+1:]
			break
		}
	}

	splits := splitKeepingSeparator(text, separator)

	var chunks, pending []string
	for _, piece := range splits {
		if utf8.RuneCountInString(piece) < s.chunkSize {
			pending = append(pending, piece)
			continue
		}
		if len(pending) > 0 {
			chunks = append(chunks, s.merge(pending)...)
			pending = nil
		}
		if len(remaining) == 0 {
			chunks = append(chunks, piece)
		} else {
			chunks = append(chunks, s.split(piece, remaining)...)
		}
	}
	if len(pending) > 0 {
		chunks = append(chunks, s.merge(pending)...)
	}
	return chunks
}

// splitKeepingSeparator splits text on sep with the separator attached to
// the front of the piece that follows it. The empty separator splits into
// individual runes.
func splitKeepingSeparator(text, sep string) []string {
	if sep == "" {
		out := make([]string, 0, utf8.RuneCountInString(text))
		for _, r := range text {
			out = append(out, string(r))
		}
		return out
	}
	parts := strings.Split(text, sep)
	out := make([]string, 0, len(parts))
	if parts[0] != "" {
		out = append(out, parts[0])
	}
	for _, p := range parts[1:] {
		out = append(out, sep+p)
	}
	return out
}

// merge greedily packs consecutive splits into chunks of at most
// chunkSize runes. When a chunk closes, leading splits are dropped until
// at most chunkOverlap runes remain; those runes open the next chunk.
func (s *Splitter) merge(splits []string) []string {
	var (
		chunks  []string
		current []string
		total   int
	)
	for _, piece := range splits {
		size := utf8.RuneCountInString(piece)
		if total+size > s.chunkSize && len(current) > 0 {
			if chunk := joinTrim(current); chunk != "" {
				chunks = append(chunks, chunk)
			}
			for total > s.chunkOverlap || (total+size > s.chunkSize && total > 0) {
				total -= utf8.RuneCountInString(current[0])
				current = current[1:]
			}
		}
		current = append(current, piece)
		total += size
	}
	if chunk := joinTrim(current); chunk != "" {
		chunks = append(chunks, chunk)
	}
	return chunks
}

// joinTrim concatenates splits directly; the separators are already part
// of the pieces.
func joinTrim(parts []string) string {
	return strings.TrimSpace(strings.Join(parts, ""))
}
