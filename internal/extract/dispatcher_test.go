package extract

import (
	"archive/zip"
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeFile(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, content, 0o600))
	return path
}

func writeZip(t *testing.T, name string, files map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for n, body := range files {
		w, err := zw.Create(n)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return path
}

func TestDispatcher_Resolve(t *testing.T) {
	d := NewDefaultDispatcher()

	tests := []struct {
		name     string
		mimeType string
		filename string
		want     string
	}{
		{name: "mime wins", mimeType: "text/plain", filename: "notes.pdf", want: "text"},
		{name: "mime parameters ignored", mimeType: "text/plain; charset=utf-8", filename: "a", want: "text"},
		{name: "empty mime uses extension", mimeType: "", filename: "report.PDF", want: "pdf"},
		{name: "generic mime uses extension", mimeType: "application/octet-stream", filename: "deck.pptx", want: "pptx"},
		{name: "spreadsheet prefers excelize", mimeType: mimeXLSX, filename: "s.xlsx", want: "xlsx"},
		{name: "markdown alias", mimeType: "text/x-markdown", filename: "x", want: "markdown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			formats := d.Resolve(tt.mimeType, tt.filename)
			require.NotEmpty(t, formats)
			assert.Equal(t, tt.want, formats[0].Name)
		})
	}
}

func TestDispatcher_Unsupported(t *testing.T) {
	d := NewDefaultDispatcher()
	assert.False(t, d.Supports("application/zip", "archive.zip"))
	assert.False(t, d.Supports("", "binary.exe"))
	// A specific but unknown MIME type does not fall back to the extension.
	assert.False(t, d.Supports("application/zip", "notes.txt"))

	_, err := d.Extract(context.Background(), "/nonexistent", "application/zip", "archive.zip")
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestDispatcher_PriorityFallback(t *testing.T) {
	calls := []string{}
	failing := &Format{
		Name: "primary", MIMETypes: []string{"text/x-test"}, Priority: 10,
		Extract: func(context.Context, string) (string, error) {
			calls = append(calls, "primary")
			return "", errors.New("boom")
		},
	}
	backup := &Format{
		Name: "backup", MIMETypes: []string{"text/x-test"}, Priority: 1,
		Extract: func(context.Context, string) (string, error) {
			calls = append(calls, "backup")
			return "from backup", nil
		},
	}
	d := NewDispatcher(backup, failing)

	text, err := d.Extract(context.Background(), "ignored", "text/x-test", "f")
	require.NoError(t, err)
	assert.Equal(t, "from backup", text)
	assert.Equal(t, []string{"primary", "backup"}, calls)
}

func TestDispatcher_FailureYieldsPlaceholder(t *testing.T) {
	panicking := &Format{
		Name: "fragile", MIMETypes: []string{"text/x-test"},
		Extract: func(context.Context, string) (string, error) { panic("malformed") },
	}
	d := NewDispatcher(panicking)
	path := writeFile(t, "f.bin", []byte("12345"))

	text, err := d.Extract(context.Background(), path, "text/x-test", "f.bin")
	require.NoError(t, err)
	assert.Equal(t, Placeholder("f.bin", "fragile", 5), text)
	assert.Contains(t, text, "5 bytes")
}

func TestDispatcher_CorruptPDF(t *testing.T) {
	path := writeFile(t, "broken.pdf", []byte("%PDF-1.4 this is not really a pdf"))
	text, err := NewDefaultDispatcher().Extract(context.Background(), path, "application/pdf", "broken.pdf")
	require.NoError(t, err)
	assert.Contains(t, text, "broken.pdf")
	assert.Contains(t, text, "could not be extracted")
}

func TestExtract_PlainText(t *testing.T) {
	path := writeFile(t, "a.txt", []byte("Hello there. Second sentence."))
	text, err := NewDefaultDispatcher().Extract(context.Background(), path, "text/plain", "a.txt")
	require.NoError(t, err)
	assert.Equal(t, "Hello there. Second sentence.", text)
}

func TestExtract_InvalidUTF8Repaired(t *testing.T) {
	path := writeFile(t, "a.txt", []byte{'o', 'k', 0xff, '!'})
	text, err := NewDefaultDispatcher().Extract(context.Background(), path, "", "a.txt")
	require.NoError(t, err)
	assert.Equal(t, "ok�!", text)
}

func TestExtract_Markdown(t *testing.T) {
	path := writeFile(t, "readme.md", []byte("# Title\n\nFirst paragraph.\n\n- item one\n- item two\n"))
	text, err := NewDefaultDispatcher().Extract(context.Background(), path, "", "readme.md")
	require.NoError(t, err)
	assert.Equal(t, "Title\nFirst paragraph.\nitem one\nitem two", text)
}

func TestExtract_HTML(t *testing.T) {
	page := `<html><head><title>T</title><script>var x = 1;</script></head><body>
		<nav>Home | About</nav>
		<main><p>The main article body has enough words to count as real content.</p><p>Another paragraph.</p></main>
		<footer>Copyright</footer></body></html>`
	path := writeFile(t, "page.html", []byte(page))
	text, err := NewDefaultDispatcher().Extract(context.Background(), path, "text/html", "page.html")
	require.NoError(t, err)
	assert.Equal(t, "The main article body has enough words to count as real content.\nAnother paragraph.", text)
}

func TestExtract_XLSX(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "name"))
	require.NoError(t, f.SetCellValue("Sheet1", "B1", "qty"))
	require.NoError(t, f.SetCellValue("Sheet1", "A2", "widget"))
	require.NoError(t, f.SetCellValue("Sheet1", "B2", 3))
	path := filepath.Join(t.TempDir(), "s.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	text, err := NewDefaultDispatcher().Extract(context.Background(), path, mimeXLSX, "s.xlsx")
	require.NoError(t, err)
	assert.Equal(t, "Sheet: Sheet1\nname\tqty\nwidget\t3", text)
}

func TestExtract_PPTX(t *testing.T) {
	path := writeZip(t, "deck.pptx", map[string]string{
		"ppt/slides/slide2.xml":  `<p:sld><a:t>Second slide</a:t></p:sld>`,
		"ppt/slides/slide10.xml": `<p:sld><a:t>Tenth</a:t></p:sld>`,
		"ppt/slides/slide1.xml":  `<p:sld><a:t>Hello</a:t><a:t>&amp; welcome</a:t></p:sld>`,
	})
	text, err := NewDefaultDispatcher().Extract(context.Background(), path, mimePPTX, "deck.pptx")
	require.NoError(t, err)
	assert.Equal(t, "Hello & welcome\n\nSecond slide\n\nTenth", text)
}

func TestExtract_DOCX(t *testing.T) {
	path := writeZip(t, "memo.docx", map[string]string{
		"[Content_Types].xml":          `<?xml version="1.0"?><Types></Types>`,
		"word/_rels/document.xml.rels": `<?xml version="1.0"?><Relationships></Relationships>`,
		"word/document.xml": `<?xml version="1.0"?><w:document><w:body>` +
			`<w:p><w:r><w:t>First line.</w:t></w:r></w:p>` +
			`<w:p><w:r><w:t>Tom &amp; Jerry.</w:t></w:r></w:p>` +
			`</w:body></w:document>`,
	})
	text, err := NewDefaultDispatcher().Extract(context.Background(), path, "", "memo.docx")
	require.NoError(t, err)
	assert.Equal(t, "First line.\nTom & Jerry.", text)
}

func TestExtract_ImageDescribed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pic.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, image.NewRGBA(image.Rect(0, 0, 4, 3))))
	require.NoError(t, f.Close())

	text, err := NewDefaultDispatcher().Extract(context.Background(), path, "image/png", "pic.png")
	require.NoError(t, err)
	assert.Contains(t, text, "4x3")
	assert.Contains(t, text, "png")
}

func TestMainContent_FallsBackToBody(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(
		`<html><body><div class="ads">Buy now</div><div>Only body text here.</div></body></html>`))
	require.NoError(t, err)
	assert.Equal(t, "Only body text here.", MainContent(doc.Selection))
}

func TestMainContent_SelectorOrder(t *testing.T) {
	long := strings.Repeat("Article sentence. ", 5)
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(
		`<html><body><div id="content">` + strings.Repeat("Content div text. ", 5) +
			`</div><article>` + long + `</article></body></html>`))
	require.NoError(t, err)
	assert.Equal(t, strings.TrimSpace(long), MainContent(doc.Selection))
}
