package services

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"eduagent-knowledge/internal/logger"

	"github.com/ledongthuc/pdf"
)

// maxPDFBytes caps in-memory extraction
const maxPDFBytes = 200 << 20

// PageExtractor returns one text entry per page, in page order
type PageExtractor interface {
	ExtractPages(ctx context.Context, filePath string) ([]string, error)
}

// PDFPageExtractor extracts plain text with ledongthuc/pdf. A page that fails
// to extract contributes an empty string; only failing to open the document
// is an error.
type PDFPageExtractor struct{}

func NewPDFPageExtractor() *PDFPageExtractor {
	return &PDFPageExtractor{}
}

func (e *PDFPageExtractor) ExtractPages(ctx context.Context, filePath string) ([]string, error) {
	stat, err := os.Stat(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat PDF file: %w", err)
	}
	if stat.Size() > maxPDFBytes {
		return nil, fmt.Errorf("pdf too large for in-memory extraction")
	}

	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF file: %w", err)
	}

	reader, err := openPDF(content)
	if err != nil {
		return nil, err
	}

	total := reader.NumPage()
	pages := make([]string, total)
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, err := pageText(reader, i)
		if err != nil {
			logger.Warn("Failed to extract PDF page", "file", filePath, "page", i, "error", err)
			continue
		}
		pages[i-1] = normalizePageText(text)
	}
	return pages, nil
}

func openPDF(content []byte) (reader *pdf.Reader, err error) {
	// the reader panics on some malformed cross-reference tables
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("failed to create PDF reader: %v", r)
		}
	}()
	reader, err = pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("failed to create PDF reader: %w", err)
	}
	return reader, nil
}

func pageText(reader *pdf.Reader, n int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("page %d: %v", n, r)
		}
	}()
	page := reader.Page(n)
	if page.V.IsNull() {
		return "", nil
	}
	fonts := make(map[string]*pdf.Font)
	return page.GetPlainText(fonts)
}

// normalizePageText drops NULs and trailing spaces the reader leaves behind
func normalizePageText(text string) string {
	text = strings.ReplaceAll(text, "\x00", "")
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t\r")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
