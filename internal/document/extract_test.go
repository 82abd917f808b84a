package document

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func docxBytes(t *testing.T, documentXML string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(documentXML))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestDocxExtract(t *testing.T) {
	data := docxBytes(t, `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>Lease Agreement</w:t></w:r></w:p>
    <w:p><w:r><w:t>Monthly rent: </w:t></w:r><w:r><w:t>$2000</w:t></w:r></w:p>
  </w:body>
</w:document>`)

	text, err := DocxExtractor{}.Extract(data)
	require.NoError(t, err)
	assert.Equal(t, "Lease Agreement\nMonthly rent: $2000", text)
}

func TestDocxExtractIgnoresNonTextElements(t *testing.T) {
	data := docxBytes(t, `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:pPr><w:jc w:val="center"/></w:pPr><w:r><w:t>only this</w:t></w:r></w:p>
  </w:body>
</w:document>`)

	text, err := DocxExtractor{}.Extract(data)
	require.NoError(t, err)
	assert.Equal(t, "only this", text)
}

func TestDocxExtractRejectsNonZip(t *testing.T) {
	_, err := DocxExtractor{}.Extract([]byte("not a zip archive"))
	assert.Error(t, err)
}

func TestDocxExtractMissingDocumentXML(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("unrelated.txt")
	require.NoError(t, err)
	_, err = w.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	_, err = DocxExtractor{}.Extract(buf.Bytes())
	assert.Error(t, err)
}

func TestPDFExtractRejectsGarbage(t *testing.T) {
	_, err := PDFExtractor{}.Extract([]byte("definitely not a pdf"))
	assert.Error(t, err)
}

func TestExtractorSetRouting(t *testing.T) {
	s := NewExtractorSet()

	_, err := s.Extract("notes.txt", []byte("plain text"))
	assert.Error(t, err, "unknown extensions have no extractor")

	data := docxBytes(t, `<w:document xmlns:w="x"><w:body><w:p><w:r><w:t>hi</w:t></w:r></w:p></w:body></w:document>`)
	text, err := s.Extract("FILE.DOCX", data)
	require.NoError(t, err)
	assert.Equal(t, "hi", text)
}
