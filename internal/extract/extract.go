package extract

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

// maxTextRunes caps the extracted text sent to the model; resumes past
// this size are truncated, not rejected.
const maxTextRunes = 20000

// ResumeText pulls plain text from an in-memory PDF. The pipeline treats a
// failure here as a degradation, not a stage failure: the page image still
// carries the resume content.
func ResumeText(data []byte) (string, error) {
	if len(data) == 0 {
		return "", errors.New("empty document")
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("parse pdf: %w", err)
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", fmt.Errorf("read text: %w", err)
	}

	text := strings.TrimSpace(buf.String())
	if runes := []rune(text); len(runes) > maxTextRunes {
		text = string(runes[:maxTextRunes])
	}
	return text, nil
}
