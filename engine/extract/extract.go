// Package extract turns raw document bytes into plain text.
package extract

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"github.com/Jatin-93/pdf-chatbot/engine/domain"
)

var pdfMagic = []byte("%PDF-")

// Text extracts plain text from document bytes. PDF input is detected by
// magic bytes; anything else is treated as UTF-8 text. Output that is
// empty after trimming is an error, never a degenerate success.
func Text(data []byte) (string, error) {
	if len(data) == 0 {
		return "", domain.NewStageError("extract", domain.ErrExtraction, fmt.Errorf("empty document"))
	}

	var (
		text string
		err  error
	)
	if bytes.HasPrefix(data, pdfMagic) {
		text, err = pdfText(data)
	} else {
		text, err = plainText(data)
	}
	if err != nil {
		return "", domain.NewStageError("extract", domain.ErrExtraction, err)
	}
	if strings.TrimSpace(text) == "" {
		return "", domain.NewStageError("extract", domain.ErrExtraction, fmt.Errorf("document contains no extractable text"))
	}
	return text, nil
}

func pdfText(data []byte) (text string, err error) {
	// the pdf reader panics on malformed xref tables
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parse pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	rd, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("pdf text: %w", err)
	}
	var sb strings.Builder
	if _, err := io.Copy(&sb, rd); err != nil {
		return "", fmt.Errorf("pdf text: %w", err)
	}
	return sb.String(), nil
}

func plainText(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", fmt.Errorf("document is neither PDF nor valid UTF-8 text")
	}
	return string(data), nil
}
