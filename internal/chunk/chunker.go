package chunk

import (
	"strings"
	"unicode"

	"hilicita-backend/internal/parse"
)

// Chunk is a retrieval unit cut from the parsed document. Vector is filled in
// after embedding; SectionHint is empty when no heading matched.
type Chunk struct {
	ID          int
	Text        string
	Page        *int
	SectionHint string
	Vector      []float32
}

// Config controls chunk sizing. Lengths are in runes.
type Config struct {
	MinChars     int
	MaxChars     int
	OverlapChars int
}

// DefaultConfig matches the CHUNK_* defaults.
func DefaultConfig() Config {
	return Config{MinChars: 800, MaxChars: 1200, OverlapChars: 150}
}

const segmentSeparator = "\n\n"

// Split re-segments parser output into overlapping chunks. Adjacent chunks
// share exactly cfg.OverlapChars runes: the suffix of one chunk is the prefix
// of the next, so offsets are never trimmed after a break point is chosen.
func Split(segments []parse.Segment, cfg Config) []Chunk {
	if cfg.MinChars <= 0 || cfg.MaxChars < cfg.MinChars {
		cfg = DefaultConfig()
	}
	if cfg.OverlapChars < 0 {
		cfg.OverlapChars = 0
	}

	text, pageAt := concatSegments(segments)
	if len(text) == 0 {
		return nil
	}

	var chunks []Chunk
	start := 0
	for start < len(text) {
		end := len(text)
		if end-start > cfg.MaxChars {
			end = chooseBreak(text, start+cfg.MinChars, start+cfg.MaxChars)
		}
		body := string(text[start:end])
		chunks = append(chunks, Chunk{
			ID:          len(chunks),
			Text:        body,
			Page:        pageAt(start, end),
			SectionHint: DetectSectionHint(body),
		})
		if end == len(text) {
			break
		}
		next := end - cfg.OverlapChars
		if next <= start {
			next = end
		}
		start = next
	}
	return chunks
}

// concatSegments joins segment texts and returns a lookup from a rune range to
// the earliest page number of the segments it covers.
func concatSegments(segments []parse.Segment) ([]rune, func(start, end int) *int) {
	type span struct {
		start int
		end   int
		page  *int
	}
	var builder strings.Builder
	var spans []span
	offset := 0
	for i, seg := range segments {
		if i > 0 {
			builder.WriteString(segmentSeparator)
			offset += len([]rune(segmentSeparator))
		}
		runes := []rune(seg.Text)
		spans = append(spans, span{start: offset, end: offset + len(runes), page: seg.Page})
		builder.WriteString(seg.Text)
		offset += len(runes)
	}
	text := []rune(builder.String())
	pageAt := func(start, end int) *int {
		for _, s := range spans {
			if s.start < end && start < s.end && s.page != nil {
				return s.page
			}
		}
		return nil
	}
	return text, pageAt
}

// chooseBreak picks the chunk end inside (lo, hi], preferring sentence
// boundaries, then whitespace, never mid-word. Dots inside numeric tokens
// (6.2.1, 1.234,56) do not count as sentence enders.
func chooseBreak(text []rune, lo, hi int) int {
	if lo < 1 {
		lo = 1
	}
	if hi > len(text) {
		hi = len(text)
	}

	for i := hi; i > lo; i-- {
		prev := text[i-1]
		if prev == ';' {
			return i
		}
		if prev == '.' && !insideNumericToken(text, i-1) {
			return i
		}
		if prev == '\n' && i < len(text) && unicode.IsUpper(text[i]) {
			return i
		}
	}
	for i := hi; i > lo; i-- {
		if unicode.IsSpace(text[i-1]) {
			return i
		}
	}
	return hi
}

func insideNumericToken(text []rune, i int) bool {
	before := i > 0 && unicode.IsDigit(text[i-1])
	after := i+1 < len(text) && unicode.IsDigit(text[i+1])
	return before && after
}
