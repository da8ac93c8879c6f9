// Package extract converts stored files into plain text for retrieval.
//
// Extraction is format-driven by file extension: plain text, PDF, CSV and
// HTML are understood; anything else falls back to a lenient text decode.
// A file whose parser fails yields empty text, not an error: missing or
// unreadable content is an informational outcome for the caller.
package extract

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ledongthuc/pdf"

	"github.com/koopa0/dialtools/internal/log"
)

// Downloader fetches a stored file's name and bytes.
type Downloader interface {
	DownloadFile(ctx context.Context, fileURL string) (string, []byte, error)
}

// FileExtractor downloads a file and extracts its text content.
type FileExtractor struct {
	files  Downloader
	logger log.Logger
}

// NewFileExtractor creates an extractor over the given file storage.
func NewFileExtractor(files Downloader, logger log.Logger) *FileExtractor {
	if logger == nil {
		logger = log.NewNop()
	}
	return &FileExtractor{files: files, logger: logger}
}

// ExtractText downloads fileURL and returns its plain text. A download
// failure is an error; a parse failure inside a recognized format is logged
// and yields empty text.
func (e *FileExtractor) ExtractText(ctx context.Context, fileURL string) (string, error) {
	filename, data, err := e.files.DownloadFile(ctx, fileURL)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", fileURL, err)
	}

	text, err := Text(data, strings.ToLower(filepath.Ext(filename)))
	if err != nil {
		e.logger.Warn("failed to extract text", "file", filename, "error", err)
		return "", nil
	}
	return text, nil
}

// Text extracts plain text from data based on the file extension
// (including the leading dot). Unknown extensions decode leniently as text.
func Text(data []byte, ext string) (string, error) {
	switch ext {
	case ".pdf":
		return pdfText(data)
	case ".csv":
		return csvMarkdown(data)
	case ".html", ".htm":
		return htmlText(data)
	default:
		// .txt and everything unrecognized.
		return decodeText(data), nil
	}
}

// decodeText decodes bytes as UTF-8, dropping invalid sequences.
func decodeText(data []byte) string {
	return strings.ToValidUTF8(string(data), "")
}

// pdfText joins the plain text of every page with blank lines.
func pdfText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	var pages []string
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("extract pdf page %d: %w", i, err)
		}
		if text != "" {
			pages = append(pages, text)
		}
	}
	return strings.Join(pages, "\n\n"), nil
}

// csvMarkdown renders CSV data as a markdown table, header row first.
func csvMarkdown(data []byte) (string, error) {
	reader := csv.NewReader(strings.NewReader(decodeText(data)))
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return "", fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return "", nil
	}

	var b strings.Builder
	writeRow := func(fields []string) {
		b.WriteString("|")
		for _, field := range fields {
			b.WriteString(" ")
			b.WriteString(strings.ReplaceAll(field, "|", `\|`))
			b.WriteString(" |")
		}
		b.WriteString("\n")
	}

	writeRow(records[0])
	b.WriteString("|")
	for range records[0] {
		b.WriteString(" --- |")
	}
	b.WriteString("\n")
	for _, record := range records[1:] {
		writeRow(record)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// htmlText returns the visible text of an HTML document, scripts and styles
// removed, one line per text run.
func htmlText(data []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	doc.Find("script, style").Remove()

	var lines []string
	for _, raw := range strings.Split(doc.Text(), "\n") {
		if line := strings.TrimSpace(raw); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n"), nil
}
