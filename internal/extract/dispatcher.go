// Package extract turns uploaded files into plain text. Formats are looked
// up in a priority table keyed by MIME type, with the file extension used
// when the declared type is missing or generic. Parse failures never reach
// the caller: a short placeholder describing the file is returned instead.
package extract

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"docchat-platform/internal/logger"
)

// ErrUnsupported is returned when no extractor handles a file.
var ErrUnsupported = errors.New("unsupported file type")

// Format describes one extractor and the inputs it handles.
type Format struct {
	Name       string
	MIMETypes  []string
	Extensions []string
	// Priority orders formats registered for the same key; higher runs first.
	Priority int
	Extract  func(ctx context.Context, path string) (string, error)
}

// Dispatcher routes files to the highest-priority matching format.
type Dispatcher struct {
	byMIME map[string][]*Format
	byExt  map[string][]*Format
}

// NewDispatcher builds a dispatcher from formats.
func NewDispatcher(formats ...*Format) *Dispatcher {
	d := &Dispatcher{
		byMIME: make(map[string][]*Format),
		byExt:  make(map[string][]*Format),
	}
	for _, f := range formats {
		d.Register(f)
	}
	return d
}

// NewDefaultDispatcher registers every built-in format.
func NewDefaultDispatcher() *Dispatcher {
	return NewDispatcher(
		PDFFormat(),
		DOCXFormat(),
		XLSXFormat(),
		XLSXLegacyFormat(),
		PPTXFormat(),
		MarkdownFormat(),
		HTMLFormat(),
		PlainTextFormat(),
		ImageFormat(),
	)
}

// Register adds a format, keeping each lookup list sorted by priority.
func (d *Dispatcher) Register(f *Format) {
	for _, m := range f.MIMETypes {
		key := strings.ToLower(m)
		d.byMIME[key] = insertByPriority(d.byMIME[key], f)
	}
	for _, e := range f.Extensions {
		key := strings.ToLower(e)
		d.byExt[key] = insertByPriority(d.byExt[key], f)
	}
}

func insertByPriority(list []*Format, f *Format) []*Format {
	list = append(list, f)
	sort.SliceStable(list, func(i, j int) bool { return list[i].Priority > list[j].Priority })
	return list
}

// Resolve returns the candidate formats for a file, best first.
func (d *Dispatcher) Resolve(mimeType, filename string) []*Format {
	mt := normalizeMIME(mimeType)
	if mt != "" && mt != "application/octet-stream" && mt != "binary/octet-stream" {
		return d.byMIME[mt]
	}
	return d.byExt[strings.ToLower(filepath.Ext(filename))]
}

// Supports reports whether a file can be routed to an extractor.
func (d *Dispatcher) Supports(mimeType, filename string) bool {
	return len(d.Resolve(mimeType, filename)) > 0
}

// Extract returns the text of the file at path. ErrUnsupported is the only
// error for a readable request; extractor failures yield a placeholder.
func (d *Dispatcher) Extract(ctx context.Context, path, mimeType, displayName string) (string, error) {
	formats := d.Resolve(mimeType, displayName)
	if len(formats) == 0 {
		return "", fmt.Errorf("%w: %s (%s)", ErrUnsupported, displayName, mimeType)
	}

	for _, f := range formats {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		text, err := safeExtract(ctx, f, path)
		if err != nil {
			logger.Warn("Extraction failed", "format", f.Name, "file", displayName, "error", err)
			continue
		}
		if strings.TrimSpace(text) == "" {
			logger.Warn("Extraction produced no text", "format", f.Name, "file", displayName)
			continue
		}
		return text, nil
	}

	return Placeholder(displayName, formats[0].Name, fileSize(path)), nil
}

// safeExtract turns extractor panics on malformed input into errors.
func safeExtract(ctx context.Context, f *Format, path string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s extractor panicked: %v", f.Name, r)
		}
	}()
	return f.Extract(ctx, path)
}

// Placeholder describes a file whose text could not be extracted.
func Placeholder(displayName, kind string, size int64) string {
	return fmt.Sprintf("[%s] %s document, %d bytes. Text content could not be extracted.", displayName, kind, size)
}

func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}

func normalizeMIME(mimeType string) string {
	if mimeType == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(mimeType))
	}
	return mt
}
