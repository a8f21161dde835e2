package report

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ppiankov/vesselcost/internal/model"
)

// JSONSink writes the report as indented JSON, to a directory or a writer
type JSONSink struct {
	dir string
	w   io.Writer
}

// NewJSONSink writes <base>.json into dir
func NewJSONSink(dir string) *JSONSink {
	return &JSONSink{dir: dir}
}

// NewJSONWriterSink writes to w (e.g. stdout)
func NewJSONWriterSink(w io.Writer) *JSONSink {
	return &JSONSink{w: w}
}

func (s *JSONSink) Name() string { return "json" }

// Deliver encodes the report
func (s *JSONSink) Deliver(ctx context.Context, rep *model.Report) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &DeliveryError{Sink: s.Name(), Err: err}
	}

	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return "", &DeliveryError{Sink: s.Name(), Err: fmt.Errorf("marshal report: %w", err)}
	}
	data = append(data, '\n')

	if s.w != nil {
		if _, err := s.w.Write(data); err != nil {
			return "", &DeliveryError{Sink: s.Name(), Err: err}
		}
		return "stdout", nil
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", &DeliveryError{Sink: s.Name(), Err: fmt.Errorf("create output dir: %w", err)}
	}
	path := filepath.Join(s.dir, BaseName(rep)+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", &DeliveryError{Sink: s.Name(), Err: fmt.Errorf("write report: %w", err)}
	}
	return path, nil
}
