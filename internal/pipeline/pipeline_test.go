package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ppiankov/vesselcost/internal/document"
	"github.com/ppiankov/vesselcost/internal/llm"
	"github.com/ppiankov/vesselcost/internal/model"
	"github.com/ppiankov/vesselcost/internal/report"
)

const datasheet = `PRESSURE VESSEL DATA SHEET
Vessel No: V-1024
Customer: Acme Refining Co.
Material: SA-516 Gr. 70
Inside Diameter: 48 in
Shell Length: 20 ft
Wall Thickness: 0.5 in
Design Pressure: 150 psi
Number of Nozzles: 6
Support Legs: 4
Operating Weight: 12,500 lb
Surface Area: 320 ft²
`

var fixedClock = func() time.Time { return time.Date(2026, 1, 15, 9, 30, 0, 0, time.UTC) }

// fakeSource serves documents from memory
type fakeSource struct {
	docs map[string]string
}

func (f *fakeSource) Load(ctx context.Context, location string) (*document.Document, error) {
	text, ok := f.docs[location]
	if !ok {
		return nil, os.ErrNotExist
	}
	return &document.Document{Location: location, Name: location, Format: document.FormatText, Pages: 1, Text: text}, nil
}

// mockProvider answers every completion with a fixed reply
type mockProvider struct {
	reply string
	err   error

	mu    sync.Mutex
	calls int
}

func (m *mockProvider) Name() string { return "openai" }

func (m *mockProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return &llm.CompletionResponse{Text: m.reply, Model: "gpt-3.5-turbo", TokensUsed: 42}, nil
}

func (m *mockProvider) Check(ctx context.Context) error { return nil }

// recordingSink remembers delivered reports
type recordingSink struct {
	name    string
	err     error
	reports []*model.Report
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Deliver(ctx context.Context, rep *model.Report) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.reports = append(s.reports, rep)
	return "memory://" + s.name, nil
}

func newTestPipeline(t *testing.T, provider llm.Provider) *Pipeline {
	t.Helper()
	cfg := model.DefaultConfig()
	cfg.Cache.Enabled = false
	return New(cfg,
		WithSource(&fakeSource{docs: map[string]string{"V-1024.txt": datasheet}}),
		WithEnricher(llm.NewEnricherWithProvider(provider, llm.Config{Provider: "openai", Timeout: 5})),
		WithClock(fixedClock),
	)
}

func TestPipeline_ProcessWithoutEnrichment(t *testing.T) {
	p := newTestPipeline(t, nil)

	run, err := p.Extract(context.Background(), "V-1024.txt")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if run.State() != StateExtracted {
		t.Fatalf("Expected state extracted, got %s", run.State())
	}

	rep, err := p.Process(context.Background(), run, ProcessOptions{})
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if run.State() != StateAssembled {
		t.Errorf("Expected state assembled, got %s", run.State())
	}
	if rep.VesselNumber != "V-1024" {
		t.Errorf("Expected vessel V-1024, got %q", rep.VesselNumber)
	}
	if rep.Enrichment != nil {
		t.Errorf("Expected no enrichment summary when skipped, got %+v", rep.Enrichment)
	}
	if !rep.Total.IsPositive() {
		t.Errorf("Expected a positive total, got %s", rep.Total)
	}
	if run.Breakdown != run.Base {
		t.Error("Expected the rule breakdown to be reported when enrichment is skipped")
	}
	if !run.Attributes.Frozen() {
		t.Error("Expected attributes to be frozen once costing began")
	}
	if rep.GeneratedAt != fixedClock() {
		t.Errorf("Expected injected clock, got %s", rep.GeneratedAt)
	}
}

func TestPipeline_ProcessIsDeterministic(t *testing.T) {
	p := newTestPipeline(t, nil)

	var totals []string
	var lines []string
	for i := 0; i < 2; i++ {
		run, err := p.ProcessFile(context.Background(), "V-1024.txt", ProcessOptions{})
		if err != nil {
			t.Fatalf("ProcessFile failed: %v", err)
		}
		b, _ := json.Marshal(run.Report.Lines)
		lines = append(lines, string(b))
		totals = append(totals, run.Report.Total.String())
	}

	if totals[0] != totals[1] || lines[0] != lines[1] {
		t.Errorf("Expected identical reports for identical input\n%s\n%s", lines[0], lines[1])
	}
}

func TestPipeline_ProcessTwiceIsIllegal(t *testing.T) {
	p := newTestPipeline(t, nil)

	run, err := p.ProcessFile(context.Background(), "V-1024.txt", ProcessOptions{})
	if err != nil {
		t.Fatalf("ProcessFile failed: %v", err)
	}

	_, err = p.Process(context.Background(), run, ProcessOptions{})
	if !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("Expected ErrIllegalTransition, got %v", err)
	}
	if run.State() != StateAssembled {
		t.Errorf("Rejected transition must not change state, got %s", run.State())
	}
}

func TestPipeline_InvalidOverrideFailsRun(t *testing.T) {
	p := newTestPipeline(t, nil)

	run, _ := p.Extract(context.Background(), "V-1024.txt")
	_, err := p.Process(context.Background(), run, ProcessOptions{
		Overrides: []Override{{Name: "design_pressure_psi", Value: "-50"}},
	})

	if !errors.Is(err, model.ErrInvalidAttribute) {
		t.Fatalf("Expected ErrInvalidAttribute, got %v", err)
	}
	if run.State() != StateFailed {
		t.Errorf("Expected state failed, got %s", run.State())
	}
	if run.Report != nil {
		t.Error("Expected no report for a failed run")
	}
	if !errors.Is(run.Err(), model.ErrInvalidAttribute) {
		t.Errorf("Expected run error to be recorded, got %v", run.Err())
	}
}

func TestPipeline_NonNumericOverrideFailsRun(t *testing.T) {
	p := newTestPipeline(t, nil)

	run, _ := p.Extract(context.Background(), "V-1024.txt")
	_, err := p.Process(context.Background(), run, ProcessOptions{
		Overrides: []Override{{Name: "length_ft", Value: "long"}},
	})

	if err == nil || run.State() != StateFailed {
		t.Fatalf("Expected failed run, got state %s err %v", run.State(), err)
	}
}

func TestPipeline_UnknownOverrideIsWarning(t *testing.T) {
	p := newTestPipeline(t, nil)

	run, _ := p.Extract(context.Background(), "V-1024.txt")
	rep, err := p.Process(context.Background(), run, ProcessOptions{
		Overrides: []Override{{Name: "paint_color", Value: "blue"}, {Name: "length_ft", Value: "24"}},
	})
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if !strings.Contains(strings.Join(rep.Warnings, "\n"), "paint_color") {
		t.Errorf("Expected a warning naming paint_color, got %v", rep.Warnings)
	}
	length, _ := rep.Attribute(model.AttrLengthFt).Float()
	if length != 24 {
		t.Errorf("Expected overridden length 24, got %v", length)
	}
	if rep.Attribute(model.AttrLengthFt).Source != model.SourceUserOverride {
		t.Errorf("Expected user_override source, got %s", rep.Attribute(model.AttrLengthFt).Source)
	}
}

func TestPipeline_MaterialOverrideStoresCatalogKey(t *testing.T) {
	p := newTestPipeline(t, nil)

	run, _ := p.Extract(context.Background(), "V-1024.txt")
	rep, err := p.Process(context.Background(), run, ProcessOptions{
		Overrides: []Override{{Name: "material", Value: "SA-240 316L"}},
	})
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	mat := rep.Attribute(model.AttrMaterial)
	if got, _ := mat.Str(); got != "stainless_316" {
		t.Errorf("Expected catalog key stainless_316, got %q", got)
	}
	if mat.Raw != "SA-240 316L" || mat.Source != model.SourceUserOverride {
		t.Errorf("Expected the raw input kept as a user override, got %+v", mat)
	}
}

func TestPipeline_EnrichmentSuccess(t *testing.T) {
	mock := &mockProvider{reply: `{"narrative": "Plate prices are stable.", "adjustments": [{"name": "crating", "category": "service", "unit_cost": 300, "quantity": 1}], "confidence": 8}`}
	p := newTestPipeline(t, mock)

	run, err := p.ProcessFile(context.Background(), "V-1024.txt", ProcessOptions{Enrich: true, Mode: model.ModeFull})
	if err != nil {
		t.Fatalf("ProcessFile failed: %v", err)
	}
	rep := run.Report

	if rep.Enrichment == nil || rep.Enrichment.Status != model.EnrichmentStatusOK {
		t.Fatalf("Expected ok enrichment summary, got %+v", rep.Enrichment)
	}
	if rep.Enrichment.Mode != model.ModeFull || rep.Enrichment.Adjustments != 1 {
		t.Errorf("Unexpected summary %+v", rep.Enrichment)
	}
	if rep.Narrative != "Plate prices are stable." {
		t.Errorf("Expected narrative from enrichment, got %q", rep.Narrative)
	}
	if !rep.Total.GreaterThan(run.Base.Total()) {
		t.Errorf("Expected enriched total %s above rule total %s", rep.Total, run.Base.Total())
	}

	found := false
	for _, line := range rep.Lines {
		if line.Name == "crating" && line.Source == model.LineSourceEnrichment {
			found = true
		}
	}
	if !found {
		t.Error("Expected the crating adjustment in the report lines")
	}
}

func TestPipeline_EnrichmentFailureKeepsRuleBreakdown(t *testing.T) {
	mock := &mockProvider{err: errors.New("503 service unavailable")}
	p := newTestPipeline(t, mock)

	run, err := p.ProcessFile(context.Background(), "V-1024.txt", ProcessOptions{Enrich: true})
	if err != nil {
		t.Fatalf("Enrichment failure must not fail the run: %v", err)
	}

	if run.State() != StateAssembled {
		t.Errorf("Expected state assembled, got %s", run.State())
	}
	if run.Breakdown != run.Base {
		t.Error("Expected the rule breakdown after a failed enrichment")
	}
	if run.Report.Enrichment == nil || run.Report.Enrichment.Status != model.EnrichmentStatusFailed {
		t.Errorf("Expected failed enrichment summary, got %+v", run.Report.Enrichment)
	}
	if !strings.Contains(strings.Join(run.Report.Warnings, "\n"), "503") {
		t.Errorf("Expected a warning with the cause, got %v", run.Report.Warnings)
	}
}

func TestPipeline_EnrichRequestedWithoutProvider(t *testing.T) {
	p := newTestPipeline(t, nil)

	run, err := p.ProcessFile(context.Background(), "V-1024.txt", ProcessOptions{Enrich: true})
	if err != nil {
		t.Fatalf("ProcessFile failed: %v", err)
	}
	if !strings.Contains(strings.Join(run.Report.Warnings, "\n"), "no provider") {
		t.Errorf("Expected a warning about the missing provider, got %v", run.Report.Warnings)
	}
}

func TestPipeline_CancelledContext(t *testing.T) {
	mock := &mockProvider{reply: `{"narrative": "ok"}`}
	p := newTestPipeline(t, mock)

	run, _ := p.Extract(context.Background(), "V-1024.txt")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rep, err := p.Process(ctx, run, ProcessOptions{Enrich: true})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if rep != nil || run.Report != nil {
		t.Error("Expected no report after cancellation")
	}
	if run.State() != StateExtracted {
		t.Errorf("Expected run to stay extracted, got %s", run.State())
	}
	if mock.calls != 0 {
		t.Errorf("Expected no provider calls, got %d", mock.calls)
	}
}

func TestPipeline_ExtractMissingDocument(t *testing.T) {
	p := newTestPipeline(t, nil)

	run, err := p.Extract(context.Background(), "missing.pdf")
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("Expected os.ErrNotExist, got %v", err)
	}
	if run.State() != StateFailed {
		t.Errorf("Expected state failed, got %s", run.State())
	}
}

func TestPipeline_ExtractText(t *testing.T) {
	p := newTestPipeline(t, nil)

	run, err := p.ExtractText(model.DocumentMeta{Name: "stdin", Format: "text"}, datasheet)
	if err != nil {
		t.Fatalf("ExtractText failed: %v", err)
	}
	if run.Document.Profile != "generic" {
		t.Errorf("Expected generic profile, got %q", run.Document.Profile)
	}
	if v, _ := run.Attributes.Get(model.AttrVesselNumber).Str(); v != "V-1024" {
		t.Errorf("Expected vessel V-1024, got %q", v)
	}
}

func TestRun_Fork(t *testing.T) {
	p := newTestPipeline(t, nil)

	run, err := p.ProcessFile(context.Background(), "V-1024.txt", ProcessOptions{})
	if err != nil {
		t.Fatalf("ProcessFile failed: %v", err)
	}

	fork, err := run.Fork()
	if err != nil {
		t.Fatalf("Fork failed: %v", err)
	}
	if fork.State() != StateExtracted {
		t.Fatalf("Expected forked run to be extracted, got %s", fork.State())
	}

	rep, err := p.Process(context.Background(), fork, ProcessOptions{
		Overrides: []Override{{Name: "length_ft", Value: "40"}},
	})
	if err != nil {
		t.Fatalf("Process on fork failed: %v", err)
	}

	if !rep.Total.GreaterThan(run.Report.Total) {
		t.Errorf("Expected longer vessel to cost more: %s vs %s", rep.Total, run.Report.Total)
	}
	if length, _ := run.Attributes.Get(model.AttrLengthFt).Float(); length != 20 {
		t.Errorf("Original run must keep its attributes, got length %v", length)
	}
}

func TestRun_ForkBeforeExtract(t *testing.T) {
	if _, err := newRun().Fork(); !errors.Is(err, ErrIllegalTransition) {
		t.Errorf("Expected ErrIllegalTransition, got %v", err)
	}
}

func TestPipeline_Deliver(t *testing.T) {
	p := newTestPipeline(t, nil)

	run, _ := p.Extract(context.Background(), "V-1024.txt")

	good := &recordingSink{name: "memory"}
	if _, err := p.Deliver(context.Background(), run, good); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("Expected ErrIllegalTransition before assembly, got %v", err)
	}

	if _, err := p.Process(context.Background(), run, ProcessOptions{}); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	bad := &recordingSink{name: "webhook", err: errors.New("connection refused")}
	deliveries, err := p.Deliver(context.Background(), run, bad, good)

	if !errors.Is(err, report.ErrDelivery) {
		t.Errorf("Expected ErrDelivery, got %v", err)
	}
	if len(deliveries) != 1 || deliveries[0].Location != "memory://memory" {
		t.Errorf("Expected the good sink to still deliver, got %+v", deliveries)
	}
	if len(good.reports) != 1 || good.reports[0] != run.Report {
		t.Error("Expected the assembled report to reach the good sink")
	}
}

func TestParseOverride(t *testing.T) {
	tests := []struct {
		in      string
		want    Override
		wantErr bool
	}{
		{"length_ft=24", Override{Name: "length_ft", Value: "24"}, false},
		{" material = SA-240 316L ", Override{Name: "material", Value: "SA-240 316L"}, false},
		{"customer=", Override{Name: "customer", Value: ""}, false},
		{"length_ft", Override{}, true},
		{"=24", Override{}, true},
	}

	for _, tt := range tests {
		got, err := ParseOverride(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseOverride(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseOverride(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}
