package document

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dslipak/pdf"
)

// Extractor converts one file format to plain text. Implementations are
// pluggable per extension.
type Extractor interface {
	Extract(data []byte) (string, error)
}

// ExtractorSet routes extraction by file extension.
type ExtractorSet struct {
	byExtension map[string]Extractor
}

// NewExtractorSet creates the default extractor set (PDF, DOCX).
func NewExtractorSet() *ExtractorSet {
	return &ExtractorSet{
		byExtension: map[string]Extractor{
			".pdf":  PDFExtractor{},
			".docx": DocxExtractor{},
		},
	}
}

// Extract converts file bytes to plain text based on the file name's
// extension. Unknown extensions yield an error; callers store the document
// with empty text rather than rejecting the upload.
func (s *ExtractorSet) Extract(fileName string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(fileName))
	extractor, ok := s.byExtension[ext]
	if !ok {
		return "", fmt.Errorf("no extractor for %q", ext)
	}
	return extractor.Extract(data)
}

// PDFExtractor extracts plain text from PDF bytes.
type PDFExtractor struct{}

// Extract implements Extractor.
func (PDFExtractor) Extract(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to parse pdf: %w", err)
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to extract pdf text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", fmt.Errorf("failed to read pdf text: %w", err)
	}

	return buf.String(), nil
}

// DocxExtractor extracts plain text from DOCX bytes. A .docx file is a zip
// archive whose word/document.xml holds the text runs.
type DocxExtractor struct{}

// Extract implements Extractor.
func (DocxExtractor) Extract(data []byte) (string, error) {
	archive, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open docx archive: %w", err)
	}

	for _, file := range archive.File {
		if file.Name != "word/document.xml" {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return "", fmt.Errorf("failed to open document.xml: %w", err)
		}
		defer rc.Close()
		return docxText(rc)
	}

	return "", fmt.Errorf("docx archive has no word/document.xml")
}

// docxText walks the document XML and collects text runs, inserting a line
// break at each paragraph end.
func docxText(r io.Reader) (string, error) {
	decoder := xml.NewDecoder(r)
	var sb strings.Builder
	inText := false

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to decode document.xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				sb.WriteString("\n")
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}

	return strings.TrimSpace(sb.String()), nil
}
