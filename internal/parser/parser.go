package parser

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ErrParseFailed is returned when no text could be extracted from a document,
// e.g. a corrupt or encrypted PDF. The underlying cause is wrapped.
var ErrParseFailed = errors.New("parse failed")

// Document is the linear text of an uploaded paper.
type Document struct {
	Title     string // Document title (from metadata or filename)
	Text      string // Extracted text, one source line per line
	PageCount int    // Pages reported by the extractor (0 if N/A)
	Source    string // Extractor that produced the text
}

// Parser converts raw document bytes into linear text.
type Parser interface {
	Parse(r io.Reader, filename string) (*Document, error)
}

// Options tune extractor behaviour.
type Options struct {
	FallbackPdftotext bool
}

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".csv":      true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string, opts Options) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return &TextParser{}, nil
	case ".md", ".markdown":
		return &MarkdownParser{}, nil
	case ".csv":
		return &CSVParser{}, nil
	case ".html", ".htm":
		return &HTMLParser{}, nil
	case ".pdf":
		return &PDFParser{FallbackPdftotext: opts.FallbackPdftotext}, nil
	case ".docx":
		return &DOCXParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// Extract picks a parser for filename, runs it and normalizes the text.
// Any failure is reported as ErrParseFailed.
func Extract(r io.Reader, filename string, opts Options) (*Document, error) {
	p, err := ForFile(filename, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParseFailed, err)
	}
	doc, err := p.Parse(r, filename)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParseFailed, err)
	}
	doc.Text = normalizeText(doc.Text)
	return doc, nil
}

// normalizeText folds compatibility forms (full-width digits, ligatures)
// to their canonical equivalents and unifies line endings.
func normalizeText(s string) string {
	s = norm.NFKC.String(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

func trimExt(filename string, exts ...string) string {
	for _, ext := range exts {
		if strings.HasSuffix(strings.ToLower(filename), ext) {
			return filename[:len(filename)-len(ext)]
		}
	}
	return filename
}
