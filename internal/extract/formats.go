package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"html"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/tealeg/xlsx"
	"github.com/xuri/excelize/v2"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

const (
	mimePDF  = "application/pdf"
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	mimePPTX = "application/vnd.openxmlformats-officedocument.presentationml.presentation"
)

// PDFFormat reads page text with ledongthuc/pdf.
func PDFFormat() *Format {
	return &Format{
		Name:       "pdf",
		MIMETypes:  []string{mimePDF, "application/x-pdf"},
		Extensions: []string{".pdf"},
		Priority:   10,
		Extract:    extractPDF,
	}
}

func extractPDF(ctx context.Context, path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	var pages []string
	for i := 1; i <= r.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			pages = append(pages, text)
		}
	}
	return strings.Join(pages, "\n\n"), nil
}

// DOCXFormat reads word-processing documents.
func DOCXFormat() *Format {
	return &Format{
		Name:       "docx",
		MIMETypes:  []string{mimeDOCX},
		Extensions: []string{".docx"},
		Priority:   10,
		Extract:    extractDOCX,
	}
}

var (
	paragraphEnd = regexp.MustCompile(`</w:p>|<w:br/>|<w:tab/>`)
	xmlTag       = regexp.MustCompile(`<[^>]+>`)
)

func extractDOCX(_ context.Context, path string) (string, error) {
	r, err := docx.ReadDocxFile(path)
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}
	defer r.Close()

	content := r.Editable().GetContent()
	content = paragraphEnd.ReplaceAllString(content, "\n")
	content = xmlTag.ReplaceAllString(content, "")
	return strings.TrimSpace(html.UnescapeString(content)), nil
}

// XLSXFormat reads spreadsheets with excelize, one tab-separated line per row.
func XLSXFormat() *Format {
	return &Format{
		Name:       "xlsx",
		MIMETypes:  []string{mimeXLSX, "application/vnd.ms-excel.sheet.macroenabled.12"},
		Extensions: []string{".xlsx", ".xlsm"},
		Priority:   10,
		Extract:    extractXLSX,
	}
}

func extractXLSX(_ context.Context, path string) (string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return "", fmt.Errorf("open spreadsheet: %w", err)
	}
	defer f.Close()

	var b strings.Builder
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			continue
		}
		writeSheet(&b, sheet, rows)
	}
	return strings.TrimSpace(b.String()), nil
}

// XLSXLegacyFormat is a lower-priority spreadsheet reader used when
// excelize rejects a workbook.
func XLSXLegacyFormat() *Format {
	return &Format{
		Name:       "xlsx-legacy",
		MIMETypes:  []string{mimeXLSX},
		Extensions: []string{".xlsx"},
		Priority:   5,
		Extract:    extractXLSXLegacy,
	}
}

func extractXLSXLegacy(_ context.Context, path string) (string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return "", fmt.Errorf("open spreadsheet: %w", err)
	}

	var b strings.Builder
	for _, sheet := range f.Sheets {
		rows := make([][]string, 0, len(sheet.Rows))
		for _, row := range sheet.Rows {
			cells := make([]string, 0, len(row.Cells))
			for _, cell := range row.Cells {
				cells = append(cells, cell.String())
			}
			rows = append(rows, cells)
		}
		writeSheet(&b, sheet.Name, rows)
	}
	return strings.TrimSpace(b.String()), nil
}

func writeSheet(b *strings.Builder, name string, rows [][]string) {
	fmt.Fprintf(b, "Sheet: %s\n", name)
	for _, row := range rows {
		line := strings.TrimRight(strings.Join(row, "\t"), "\t")
		if line != "" {
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}
	b.WriteByte('\n')
}

// PPTXFormat collects the text runs of every slide in slide order.
func PPTXFormat() *Format {
	return &Format{
		Name:       "pptx",
		MIMETypes:  []string{mimePPTX},
		Extensions: []string{".pptx"},
		Priority:   10,
		Extract:    extractPPTX,
	}
}

var slideText = regexp.MustCompile(`<a:t>([^<]*)</a:t>`)

func extractPPTX(_ context.Context, path string) (string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("open pptx: %w", err)
	}
	defer zr.Close()

	var slides []*zip.File
	for _, f := range zr.File {
		if strings.HasPrefix(f.Name, "ppt/slides/slide") && strings.HasSuffix(f.Name, ".xml") {
			slides = append(slides, f)
		}
	}
	sort.Slice(slides, func(i, j int) bool { return slideNumber(slides[i].Name) < slideNumber(slides[j].Name) })

	var parts []string
	for _, f := range slides {
		rc, err := f.Open()
		if err != nil {
			continue
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			continue
		}
		var runs []string
		for _, m := range slideText.FindAllStringSubmatch(string(data), -1) {
			runs = append(runs, html.UnescapeString(m[1]))
		}
		if text := strings.TrimSpace(strings.Join(runs, " ")); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n\n"), nil
}

func slideNumber(name string) int {
	var n int
	fmt.Sscanf(strings.TrimPrefix(name, "ppt/slides/slide"), "%d", &n)
	return n
}

// MarkdownFormat renders Markdown and keeps the visible text.
func MarkdownFormat() *Format {
	return &Format{
		Name:       "markdown",
		MIMETypes:  []string{"text/markdown", "text/x-markdown"},
		Extensions: []string{".md", ".markdown"},
		Priority:   10,
		Extract:    extractMarkdown,
	}
}

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

func extractMarkdown(_ context.Context, path string) (string, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := markdown.Convert(src, &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(&buf)
	if err != nil {
		return "", fmt.Errorf("parse rendered markdown: %w", err)
	}
	return blockText(doc.Selection), nil
}

// HTMLFormat extracts the main content of saved web pages.
func HTMLFormat() *Format {
	return &Format{
		Name:       "html",
		MIMETypes:  []string{"text/html", "application/xhtml+xml"},
		Extensions: []string{".html", ".htm", ".xhtml"},
		Priority:   10,
		Extract:    extractHTML,
	}
}

func extractHTML(_ context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	return MainContent(doc.Selection), nil
}

// PlainTextFormat reads UTF-8 text files as-is.
func PlainTextFormat() *Format {
	return &Format{
		Name:       "text",
		MIMETypes:  []string{"text/plain", "text/csv", "application/json", "text/tab-separated-values"},
		Extensions: []string{".txt", ".csv", ".tsv", ".json", ".log"},
		Priority:   10,
		Extract:    extractText,
	}
}

func extractText(_ context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(data) {
		data = bytes.ToValidUTF8(data, []byte("�"))
	}
	return string(data), nil
}

// ImageFormat describes images; no OCR is attempted.
func ImageFormat() *Format {
	return &Format{
		Name:       "image",
		MIMETypes:  []string{"image/png", "image/jpeg", "image/jpg", "image/gif"},
		Extensions: []string{".png", ".jpg", ".jpeg", ".gif"},
		Priority:   10,
		Extract:    describeImage,
	}
}

func describeImage(_ context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return "", fmt.Errorf("decode image header: %w", err)
	}
	return fmt.Sprintf("Image (%s, %dx%d pixels, %d bytes). No text content was extracted from this image.",
		format, cfg.Width, cfg.Height, fileSize(path)), nil
}
