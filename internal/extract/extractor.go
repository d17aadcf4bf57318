// Package extract turns dropped inbox files into plain text for ingestion.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Extractor extracts plain text from document files.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract reads the file at path and returns its text content.
// Plain text files (.txt, .md, .rst) are returned as-is after UTF-8
// validation; PDF, DOCX, and XLSX are unpacked from their binary formats.
func (e *Extractor) Extract(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(path))
	return e.ExtractBytes(content, ext)
}

// ExtractBytes extracts text from content based on the given extension.
// ext includes the leading dot (e.g. ".pdf"). Unknown extensions are
// treated as plain text.
func (e *Extractor) ExtractBytes(content []byte, ext string) (string, error) {
	switch ext {
	case ".pdf":
		return extractPDF(content)
	case ".docx":
		return extractDOCX(content)
	case ".xlsx":
		return extractExcel(content)
	default:
		return extractPlain(content)
	}
}
