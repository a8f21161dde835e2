package document

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/vesselcost/internal/model"
)

func init() {
	// Disable retry sleep in all tests for fast execution
	fetchSleepFunc = func(d time.Duration) {}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoader_TextFile(t *testing.T) {
	path := writeFile(t, "sheet.txt", "Design Pressure: 150 psi\n")

	doc, err := NewLoader(model.DocumentConfig{MaxBytes: 1 << 20}, nil).Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if doc.Format != FormatText || doc.Name != "sheet.txt" || doc.Pages != 1 {
		t.Errorf("Unexpected document metadata: %+v", doc)
	}
	if !strings.Contains(doc.Text, "150 psi") {
		t.Errorf("Unexpected text %q", doc.Text)
	}
}

func TestLoader_HTMLKeepsRows(t *testing.T) {
	page := `<html><head><title>ignored</title><style>p{}</style></head><body>
	<table>
	<tr><td>Design Pressure:</td><td>150 psi</td></tr>
	<tr><td>Diameter:</td><td>48 in</td></tr>
	</table>
	<script>var x = "Diameter: 99";</script>
	</body></html>`
	path := writeFile(t, "sheet.html", page)

	doc, err := NewLoader(model.DocumentConfig{MaxBytes: 1 << 20}, nil).Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	want := "Design Pressure: 150 psi\nDiameter: 48 in"
	if doc.Text != want {
		t.Errorf("Expected %q, got %q", want, doc.Text)
	}
}

func TestLoader_TooLarge(t *testing.T) {
	path := writeFile(t, "big.txt", strings.Repeat("x", 100))

	_, err := NewLoader(model.DocumentConfig{MaxBytes: 10}, nil).Load(context.Background(), path)
	if !errors.Is(err, ErrTooLarge) {
		t.Errorf("Expected ErrTooLarge, got %v", err)
	}
}

func TestLoader_EmptyDocument(t *testing.T) {
	path := writeFile(t, "blank.txt", "   \n\t")

	_, err := NewLoader(model.DocumentConfig{MaxBytes: 1 << 20}, nil).Load(context.Background(), path)
	if !errors.Is(err, ErrNoText) {
		t.Errorf("Expected ErrNoText, got %v", err)
	}
}

func TestLoader_BinaryIsUnsupported(t *testing.T) {
	path := writeFile(t, "blob.bin", "\x00\x01\x02\x03binary")

	_, err := NewLoader(model.DocumentConfig{MaxBytes: 1 << 20}, nil).Load(context.Background(), path)
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("Expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestLoader_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewLoader(model.DocumentConfig{}, nil).Load(ctx, "whatever.txt")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestLoader_RemoteDocument(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Header().Set("Content-Disposition", `attachment; filename="V-1024.txt"`)
		_, _ = fmt.Fprint(w, "Vessel No: V-1024\n")
	}))
	defer server.Close()

	fetcher := NewFetcher(5*time.Second, "test-agent", 1<<20, "", "", "")
	doc, err := NewLoader(model.DocumentConfig{MaxBytes: 1 << 20}, fetcher).Load(context.Background(), server.URL+"/download")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if doc.Name != "V-1024.txt" || doc.Format != FormatText {
		t.Errorf("Unexpected document %+v", doc)
	}
}

func TestLoader_RemoteDisabled(t *testing.T) {
	_, err := NewLoader(model.DocumentConfig{}, nil).Load(context.Background(), "https://example.com/sheet.pdf")
	if err == nil {
		t.Error("Expected an error when no fetcher is configured")
	}
}

func TestFetchWithRetry_TransientThenSuccess(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = fmt.Fprint(w, "OK")
	}))
	defer server.Close()

	fetcher := NewFetcher(5*time.Second, "test-agent", 1<<20, "", "", "")
	res, err := fetcher.FetchWithRetry(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected success after retries, got %v", err)
	}
	if string(res.Body) != "OK" {
		t.Errorf("Unexpected body %q", res.Body)
	}
	if attempts.Load() != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts.Load())
	}
}

func TestFetchWithRetry_NotFoundIsPermanent(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	fetcher := NewFetcher(5*time.Second, "test-agent", 1<<20, "", "", "")
	if _, err := fetcher.FetchWithRetry(context.Background(), server.URL); err == nil {
		t.Fatal("Expected an error for 404")
	}
	if attempts.Load() != 1 {
		t.Errorf("Expected 1 attempt, got %d", attempts.Load())
	}
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name, contentType, data string
		want                    Format
	}{
		{"a.PDF", "", "", FormatPDF},
		{"download", "application/pdf", "", FormatPDF},
		{"download", "", "%PDF-1.7\n...", FormatPDF},
		{"page", "text/html; charset=utf-8", "", FormatHTML},
		{"page", "", "<!DOCTYPE html><html>", FormatHTML},
		{"notes", "", "Diameter: 48 in", FormatText},
	}

	for _, tt := range tests {
		got, err := detectFormat(tt.name, tt.contentType, []byte(tt.data))
		if err != nil || got != tt.want {
			t.Errorf("detectFormat(%q, %q) = %s, %v; want %s", tt.name, tt.contentType, got, err, tt.want)
		}
	}
}
