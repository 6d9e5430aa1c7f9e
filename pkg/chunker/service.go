package chunker

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/connexus-ai/knowledge-agent/pkg/domain"
)

// Options control chunk sizing. All sizes and offsets are in characters, not
// bytes, so multibyte text chunks the same as ASCII and a cut can never land
// inside an encoded rune.
type Options struct {
	ChunkSize    int
	ChunkOverlap int
	MinChunkSize int
}

// DefaultOptions returns the standard sizing for embedding-bound chunks.
func DefaultOptions() Options {
	return Options{ChunkSize: 1500, ChunkOverlap: 200, MinChunkSize: 100}
}

// Service splits text into overlapping chunks, preferring linguistic
// boundaries over hard cuts.
type Service struct {
	opts Options
}

func New(opts Options) *Service {
	if opts.ChunkSize <= 0 {
		opts = DefaultOptions()
	}
	return &Service{opts: opts}
}

// sentenceEnd matches a sentence terminator followed by whitespace and an
// uppercase letter. The break point sits just before the uppercase letter.
var sentenceEnd = regexp.MustCompile(`[.!?]\s+[A-Z]`)

// Split walks a cursor across the text, emitting chunks that end on the best
// available boundary inside the tail window of each tentative chunk.
func (s *Service) Split(text string) []domain.TextChunk {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	if utf8.RuneCountInString(trimmed) < s.opts.MinChunkSize {
		lead := utf8.RuneCountInString(text) - utf8.RuneCountInString(strings.TrimLeftFunc(text, unicode.IsSpace))
		return []domain.TextChunk{{
			Index:       0,
			Text:        trimmed,
			StartOffset: lead,
			EndOffset:   lead + utf8.RuneCountInString(trimmed),
		}}
	}

	var chunks []domain.TextChunk
	runes := []rune(text)
	cursor := 0
	length := len(runes)

	for cursor < length {
		end := cursor + s.opts.ChunkSize
		if end >= length {
			end = length
		} else {
			end = s.findBreakPoint(runes, cursor, end)
			if length-end <= 2*s.opts.ChunkOverlap+s.opts.MinChunkSize {
				// The leftover tail would be nearly all overlap; absorb it.
				end = length
			}
		}

		if chunk, ok := s.makeChunk(runes, cursor, end, len(chunks)); ok {
			chunks = append(chunks, chunk)
		}

		if end >= length {
			break
		}

		next := end - s.opts.ChunkOverlap
		if next <= cursor {
			next = cursor + 1
		}
		cursor = s.snapToBoundary(runes, next)
	}

	return chunks
}

// findBreakPoint searches [tentativeEnd - 0.3*chunkSize, tentativeEnd] for the
// best boundary: paragraph break, line break, sentence end, period+space, then
// word boundary. Falls back to a hard cut at tentativeEnd. Positions are rune
// indices; the window string is scanned with byte indices and converted back.
func (s *Service) findBreakPoint(runes []rune, cursor, tentativeEnd int) int {
	windowStart := tentativeEnd - (3*s.opts.ChunkSize)/10
	if windowStart < cursor {
		windowStart = cursor
	}
	window := string(runes[windowStart:tentativeEnd])

	if i := strings.LastIndex(window, "\n\n"); i >= 0 {
		return windowStart + utf8.RuneCountInString(window[:i]) + 2
	}
	if i := strings.LastIndex(window, "\n"); i >= 0 {
		return windowStart + utf8.RuneCountInString(window[:i]) + 1
	}
	if locs := sentenceEnd.FindAllStringIndex(window, -1); len(locs) > 0 {
		// Break just before the uppercase letter that starts the next sentence.
		return windowStart + utf8.RuneCountInString(window[:locs[len(locs)-1][1]]) - 1
	}
	if i := strings.LastIndex(window, ". "); i >= 0 {
		return windowStart + utf8.RuneCountInString(window[:i]) + 2
	}
	if i := strings.LastIndex(window, " "); i >= 0 {
		return windowStart + utf8.RuneCountInString(window[:i]) + 1
	}
	return tentativeEnd
}

// snapToBoundary nudges the cursor forward at most 100 characters onto the
// start of the nearest sentence, paragraph, or line.
func (s *Service) snapToBoundary(runes []rune, pos int) int {
	limit := pos + 100
	if limit > len(runes) {
		limit = len(runes)
	}
	window := string(runes[pos:limit])

	if i := strings.Index(window, "\n\n"); i >= 0 {
		return pos + utf8.RuneCountInString(window[:i]) + 2
	}
	if i := strings.Index(window, "\n"); i >= 0 {
		return pos + utf8.RuneCountInString(window[:i]) + 1
	}
	if loc := sentenceEnd.FindStringIndex(window); loc != nil {
		return pos + utf8.RuneCountInString(window[:loc[1]]) - 1
	}
	return pos
}

func (s *Service) makeChunk(runes []rune, start, end, index int) (domain.TextChunk, bool) {
	raw := string(runes[start:end])
	afterLead := strings.TrimLeftFunc(raw, unicode.IsSpace)
	body := strings.TrimRightFunc(afterLead, unicode.IsSpace)
	bodyLen := utf8.RuneCountInString(body)
	if bodyLen < s.opts.MinChunkSize {
		return domain.TextChunk{}, false
	}
	chunkStart := start + utf8.RuneCountInString(raw) - utf8.RuneCountInString(afterLead)
	return domain.TextChunk{
		Index:       index,
		Text:        body,
		StartOffset: chunkStart,
		EndOffset:   chunkStart + bodyLen,
	}, true
}

// EstimateTokens approximates the token cost of a text. Used for logging only.
func EstimateTokens(text string) int {
	return (utf8.RuneCountInString(text) + 3) / 4
}
