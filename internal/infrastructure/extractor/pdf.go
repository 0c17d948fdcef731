package extractor

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

func extractPDF(raw []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	var b strings.Builder
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// A single unreadable page does not void the document.
			continue
		}
		b.WriteString(text)
		b.WriteString("\n")
	}

	out := strings.TrimSpace(b.String())
	if out == "" {
		// Fall back to the whole-document reader; some files only yield text
		// through the streamed path.
		streamed, err := reader.GetPlainText()
		if err != nil {
			return "", fmt.Errorf("pdf plain text: %w", err)
		}
		streamedRaw, err := io.ReadAll(streamed)
		if err != nil {
			return "", fmt.Errorf("read pdf text: %w", err)
		}
		out = strings.TrimSpace(string(streamedRaw))
	}
	return out, nil
}
