package document

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ppiankov/vesselcost/internal/model"
)

var (
	// ErrUnsupportedFormat is returned for inputs that are not PDF, HTML or text
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// ErrTooLarge is returned when a document exceeds the configured size
	ErrTooLarge = errors.New("document too large")

	// ErrNoText is returned when a document holds no extractable text (e.g. a scanned PDF)
	ErrNoText = errors.New("no extractable text")
)

// Format identifies how raw bytes are turned into text
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatHTML Format = "html"
	FormatText Format = "text"
)

// Document is the text of one input; only Text reaches the extractor
type Document struct {
	Location string
	Name     string
	Format   Format
	Pages    int
	Text     string
}

// Meta converts the document into report metadata
func (d *Document) Meta() model.DocumentMeta {
	return model.DocumentMeta{
		Path:   d.Location,
		Name:   d.Name,
		Format: string(d.Format),
		Pages:  d.Pages,
	}
}

// Source loads a document from a path or URL
type Source interface {
	Load(ctx context.Context, location string) (*Document, error)
}

// Loader reads local files and http(s) URLs
type Loader struct {
	maxBytes int64
	maxPages int
	fetcher  *Fetcher
}

// NewLoader creates a loader honoring the document limits; fetcher may be nil
// to disable remote documents
func NewLoader(cfg model.DocumentConfig, fetcher *Fetcher) *Loader {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = model.DefaultConfig().Document.MaxBytes
	}
	return &Loader{
		maxBytes: cfg.MaxBytes,
		maxPages: cfg.MaxPages,
		fetcher:  fetcher,
	}
}

// NewDefaultLoader creates a loader with a fetcher built from configuration
func NewDefaultLoader(cfg *model.Config) *Loader {
	fetcher := NewFetcher(30*time.Second, "vesselcost/"+model.Version, cfg.Document.MaxBytes,
		cfg.LLM.HTTPProxy, cfg.LLM.HTTPSProxy, cfg.LLM.NoProxy)
	return NewLoader(cfg.Document, fetcher)
}

// Load reads location and converts it to text
func (l *Loader) Load(ctx context.Context, location string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		data        []byte
		contentType string
		name        = filepath.Base(location)
	)

	if isURL(location) {
		if l.fetcher == nil {
			return nil, fmt.Errorf("remote documents are disabled: %s", location)
		}
		res, err := l.fetcher.FetchWithRetry(ctx, location)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", location, err)
		}
		data, contentType, name = res.Body, res.ContentType, res.Name
	} else {
		var err error
		data, err = l.readFile(location)
		if err != nil {
			return nil, err
		}
	}

	format, err := detectFormat(name, contentType, data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", location, err)
	}

	doc := &Document{Location: location, Name: name, Format: format}

	switch format {
	case FormatPDF:
		doc.Text, doc.Pages, err = pdfText(data, l.maxPages)
	case FormatHTML:
		doc.Text, err = htmlText(data)
		doc.Pages = 1
	default:
		doc.Text = string(data)
		doc.Pages = 1
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", location, err)
	}

	if strings.TrimSpace(doc.Text) == "" {
		return nil, fmt.Errorf("%s: %w (it may be scanned or image-based)", location, ErrNoText)
	}

	return doc, nil
}

func (l *Loader) readFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open document: %w", err)
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(io.LimitReader(f, l.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	if int64(len(data)) > l.maxBytes {
		return nil, fmt.Errorf("%s: %w (limit %d bytes)", path, ErrTooLarge, l.maxBytes)
	}
	return data, nil
}

func isURL(location string) bool {
	lower := strings.ToLower(location)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// detectFormat trusts the extension, then the content type, then the leading bytes
func detectFormat(name, contentType string, data []byte) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return FormatPDF, nil
	case ".html", ".htm", ".xhtml":
		return FormatHTML, nil
	case ".txt", ".text", ".md", ".csv", ".log":
		return FormatText, nil
	}

	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "application/pdf"):
		return FormatPDF, nil
	case strings.Contains(ct, "html"):
		return FormatHTML, nil
	case strings.HasPrefix(ct, "text/"):
		return FormatText, nil
	}

	head := strings.ToLower(strings.TrimSpace(string(data[:min(len(data), 512)])))
	switch {
	case strings.HasPrefix(head, "%pdf-"):
		return FormatPDF, nil
	case strings.HasPrefix(head, "<!doctype html"), strings.HasPrefix(head, "<html"):
		return FormatHTML, nil
	case isPrintable(head):
		return FormatText, nil
	}

	return "", ErrUnsupportedFormat
}

func isPrintable(s string) bool {
	for _, r := range s {
		if r == '\uFFFD' || (r < 0x20 && r != '\n' && r != '\r' && r != '\t') {
			return false
		}
	}
	return true
}
