package chunking

import (
	"strings"
	"unicode"

	"github.com/dkomnin/handbook-assistant/internal/core/domain"
)

// Splitter breaks extracted text into overlapping chunks while tracking the
// section heading each chunk falls under. Section labels feed both retrieval
// payloads and the corpus table of contents used for follow-up validation.
type Splitter struct {
	ChunkSize int
	Overlap   int
}

func NewSplitter(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = 900
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 4
	}
	return &Splitter{
		ChunkSize: chunkSize,
		Overlap:   overlap,
	}
}

type sectionSpan struct {
	label string
	text  string
}

func (s *Splitter) Split(source, text string) []domain.DocumentChunk {
	spans := splitSections(text)

	var out []domain.DocumentChunk
	for _, span := range spans {
		for _, piece := range s.window(span.text) {
			out = append(out, domain.DocumentChunk{
				Content: piece,
				Section: span.label,
				Source:  source,
			})
		}
	}
	return out
}

// window applies the fixed-size sliding window with overlap inside a section.
func (s *Splitter) window(text string) []string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) == 0 {
		return nil
	}

	step := s.ChunkSize - s.Overlap
	if step <= 0 {
		step = s.ChunkSize
	}

	out := make([]string, 0, len(runes)/step+1)
	for start := 0; start < len(runes); start += step {
		end := start + s.ChunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			out = append(out, chunk)
		}
		if end == len(runes) {
			break
		}
	}
	return out
}

// splitSections walks the text line by line and groups content under the most
// recent heading. Text before the first heading carries an empty label.
func splitSections(text string) []sectionSpan {
	var spans []sectionSpan
	current := sectionSpan{}
	var body strings.Builder

	flush := func() {
		current.text = strings.TrimSpace(body.String())
		if current.text != "" {
			spans = append(spans, current)
		}
		body.Reset()
	}

	for _, line := range strings.Split(text, "\n") {
		if label, ok := headingLabel(line); ok {
			flush()
			current = sectionSpan{label: label}
			continue
		}
		body.WriteString(line)
		body.WriteString("\n")
	}
	flush()
	return spans
}

// headingLabel detects section headings: markdown-style "#" prefixes, short
// ALL-CAPS lines, and short title-case lines ending without punctuation.
func headingLabel(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return "", false
	}

	if strings.HasPrefix(trimmed, "#") {
		label := strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
		return label, label != ""
	}

	words := strings.Fields(trimmed)
	if len(words) > 6 || len(trimmed) > 60 {
		return "", false
	}
	if strings.ContainsAny(trimmed, ".,:;?!") {
		return "", false
	}

	letters := 0
	upper := 0
	titleWords := 0
	for _, word := range words {
		for _, first := range word {
			if unicode.IsUpper(first) {
				titleWords++
			}
			break
		}
		for _, r := range word {
			if unicode.IsLetter(r) {
				letters++
				if unicode.IsUpper(r) {
					upper++
				}
			}
		}
	}
	if letters == 0 {
		return "", false
	}
	if upper == letters {
		return trimmed, true
	}
	if titleWords == len(words) && len(words) >= 2 {
		return trimmed, true
	}
	return "", false
}
