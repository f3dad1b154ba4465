// Package extract turns uploaded or local files into plain text for summarization.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

const (
	TypeText = "text/plain"
	TypePDF  = "application/pdf"
)

var (
	ErrUnsupportedType = errors.New("unsupported file type (only PDF, TXT and MD allowed)")
	ErrTooLarge        = errors.New("file too large")
	ErrNoText          = errors.New("file contains no extractable text")
)

var allowedTypes = map[string]bool{
	TypeText:        true,
	"text/markdown": true,
	TypePDF:         true,
}

// DetectType resolves the content type of an upload. A declared content type
// wins; otherwise the extension decides.
func DetectType(filename, contentType string) (string, error) {
	if contentType != "" {
		// Drop parameters such as "; charset=utf-8".
		if i := strings.IndexByte(contentType, ';'); i >= 0 {
			contentType = contentType[:i]
		}
		contentType = strings.ToLower(strings.TrimSpace(contentType))
		if !allowedTypes[contentType] {
			return "", fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
		}
		if contentType == TypePDF {
			return TypePDF, nil
		}
		return TypeText, nil
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt", ".md", ".markdown":
		return TypeText, nil
	case ".pdf":
		return TypePDF, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, filename)
	}
}

// Text extracts the text of content according to contentType.
func Text(contentType string, content []byte) (string, error) {
	var text string
	switch contentType {
	case TypePDF:
		var err error
		text, err = extractPDF(content)
		if err != nil {
			return "", fmt.Errorf("pdf extraction failed: %w", err)
		}
	case TypeText:
		text = string(content)
	default:
		return "", ErrUnsupportedType
	}

	if strings.TrimSpace(text) == "" {
		return "", ErrNoText
	}
	return text, nil
}

// File reads the file at path, refusing anything over maxSize bytes, and
// extracts its text. A maxSize of zero means no limit.
func File(path string, maxSize int64) (string, error) {
	contentType, err := DetectType(path, "")
	if err != nil {
		return "", err
	}

	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var r io.Reader = f
	if maxSize > 0 {
		r = io.LimitReader(f, maxSize+1)
	}
	content, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	if maxSize > 0 && int64(len(content)) > maxSize {
		return "", fmt.Errorf("%w (max %d bytes)", ErrTooLarge, maxSize)
	}

	return Text(contentType, content)
}

func extractPDF(content []byte) (string, error) {
	reader := bytes.NewReader(content)
	pdfReader, err := pdf.NewReader(reader, int64(len(content)))
	if err != nil {
		return "", err
	}

	var textBuilder strings.Builder
	numPages := pdfReader.NumPage()

	for pageNum := 1; pageNum <= numPages; pageNum++ {
		page := pdfReader.Page(pageNum)
		if page.V.IsNull() || page.V.Key("Contents").Kind() == pdf.Null {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			// Skip pages that fail to extract
			continue
		}
		textBuilder.WriteString(text)
		textBuilder.WriteString("\n")
	}

	return textBuilder.String(), nil
}
