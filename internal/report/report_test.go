package report

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/ppiankov/vesselcost/internal/model"
)

var fixedNow = time.Date(2026, 1, 15, 9, 30, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func fixtureInput() Input {
	attrs := model.NewAttributeMap()
	_ = attrs.Override("vessel_number", "V-1024")
	_ = attrs.Override("customer", "Acme Refining")
	_ = attrs.Override("material", "carbon_steel")
	_ = attrs.Override("diameter_in", "48")
	_ = attrs.Override("paint_color", "blue")
	attrs.Freeze()

	items := []model.CostLineItem{
		{Name: "painting", Category: model.CategoryService, Unit: "ft²", UnitCost: dec("12"), Quantity: dec("10"), Source: model.LineSourceRule},
		{Name: "shells", Category: model.CategoryMaterial, Unit: "lb", UnitCost: dec("13"), Quantity: dec("100"), Source: model.LineSourceRule},
		{Name: "shop_fabrication", Category: model.CategoryLabor, Unit: "hr", UnitCost: dec("95"), Quantity: dec("2"), Source: model.LineSourceEnrichment},
	}
	items = append(items, model.CostLineItem{
		Name: "overhead", Category: model.CategoryOverhead, Unit: "rate",
		UnitCost: model.OverheadBase(items), Quantity: dec("0.12"), Source: model.LineSourceRule,
	})

	return Input{
		Document:   model.DocumentMeta{Path: "in/V-1024.pdf", Name: "V-1024.pdf", Format: "pdf", Pages: 3, Profile: "generic"},
		Attributes: attrs,
		Breakdown: model.NewCostBreakdown(items, model.BreakdownParams{
			Confidence: model.ConfidenceMedium,
			Defaulted:  []model.AttributeName{model.AttrLengthFt, model.AttrWallThicknessIn},
			Narrative:  "Plate prices are stable.",
			Enriched:   true,
		}),
		Enrichment: model.EnrichmentOK(&model.Enrichment{
			Narrative: "Plate prices are stable.", Provider: "openai", Model: "gpt-4o",
			Mode: model.ModeFull, Confidence: 8, TokensUsed: 900,
			Adjustments: []model.Adjustment{{Name: "shop_fabrication", Category: model.CategoryLabor}},
		}),
		Warnings: []string{"AI: check nozzle schedule"},
	}
}

func fixtureReport() *model.Report {
	return NewAssembler().WithClock(func() time.Time { return fixedNow }).Assemble(fixtureInput())
}

func TestAssemble(t *testing.T) {
	rep := fixtureReport()

	if rep.VesselNumber != "V-1024" || rep.Customer != "Acme Refining" {
		t.Errorf("Unexpected vessel info: %q %q", rep.VesselNumber, rep.Customer)
	}
	if !rep.GeneratedAt.Equal(fixedNow) {
		t.Errorf("Expected injected clock, got %v", rep.GeneratedAt)
	}

	names := []string{}
	for _, l := range rep.Lines {
		names = append(names, l.Name)
	}
	if diff := cmp.Diff([]string{"shells", "shop_fabrication", "painting", "overhead"}, names); diff != "" {
		t.Errorf("Line order mismatch (-want +got):\n%s", diff)
	}

	// 1300 + 190 + 120 = 1610, overhead 193.2
	if rep.Total.String() != "1803.2" {
		t.Errorf("Expected total 1803.2, got %s", rep.Total)
	}
	sum := decimal.Zero
	for _, ct := range rep.CategoryTotals {
		sum = sum.Add(ct.Total)
	}
	if !sum.Equal(rep.Total) {
		t.Errorf("Category totals %s do not add up to %s", sum, rep.Total)
	}

	if rep.Enrichment == nil || rep.Enrichment.Provider != "openai" || rep.Enrichment.Adjustments != 1 || rep.Enrichment.Confidence != 8 {
		t.Errorf("Unexpected enrichment summary: %+v", rep.Enrichment)
	}

	want := []string{
		"Fallback defaults used for: length_ft, wall_thickness_in",
		"Ignored unknown attributes: paint_color",
		"AI: check nozzle schedule",
	}
	if diff := cmp.Diff(want, rep.Warnings); diff != "" {
		t.Errorf("Warnings mismatch (-want +got):\n%s", diff)
	}
}

func TestAssemble_EnrichmentStatus(t *testing.T) {
	in := fixtureInput()
	in.Enrichment = model.EnrichmentSkipped()
	rep := NewAssembler().Assemble(in)
	if rep.Enrichment != nil {
		t.Errorf("Expected no enrichment summary when skipped, got %+v", rep.Enrichment)
	}

	in.Enrichment = model.EnrichmentFailed(errors.New("timeout"))
	in.Provider, in.Model, in.Mode = "anthropic", "claude-3-5-haiku-20241022", model.ModeBudget
	rep = NewAssembler().Assemble(in)
	if rep.Enrichment == nil || rep.Enrichment.Status != model.EnrichmentStatusFailed || !strings.Contains(rep.Enrichment.Error, "timeout") {
		t.Errorf("Unexpected failed summary: %+v", rep.Enrichment)
	}
	if rep.Enrichment.Provider != "anthropic" {
		t.Errorf("Expected provider recorded for failed attempt, got %q", rep.Enrichment.Provider)
	}
}

func TestFileName(t *testing.T) {
	rep := fixtureReport()
	if got := FileName(rep); got != "V-1024_Cost_Calculator_20260115_0930.xlsx" {
		t.Errorf("Unexpected file name: %s", got)
	}

	rep.VesselNumber = "V 10/24"
	if got := BaseName(rep); got != "V_10_24_Cost_Calculator_20260115_0930" {
		t.Errorf("Expected unsafe characters replaced, got %s", got)
	}

	rep.VesselNumber = ""
	if got := FileName(rep); !strings.HasPrefix(got, "Unknown_Cost_Calculator_") {
		t.Errorf("Expected Unknown prefix, got %s", got)
	}
}

func TestXLSXSink_Layout(t *testing.T) {
	dir := t.TempDir()
	rep := fixtureReport()

	path, err := NewXLSXSink(dir).Deliver(context.Background(), rep)
	if err != nil {
		t.Fatalf("Deliver failed: %v", err)
	}
	if filepath.Base(path) != "V-1024_Cost_Calculator_20260115_0930.xlsx" {
		t.Errorf("Unexpected path: %s", path)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("Failed to open workbook: %v", err)
	}
	defer func() { _ = f.Close() }()

	title, _ := f.GetCellValue(SheetName, "A1")
	if title != Title {
		t.Errorf("Expected title %q, got %q", Title, title)
	}
	vessel, _ := f.GetCellValue(SheetName, "B3")
	if vessel != "V-1024" {
		t.Errorf("Expected vessel number in B3, got %q", vessel)
	}

	width, _ := f.GetColWidth(SheetName, "B")
	if width != 35 {
		t.Errorf("Expected description column width 35, got %v", width)
	}

	rows, err := f.GetRows(SheetName, excelize.Options{RawCellValue: true})
	if err != nil {
		t.Fatalf("GetRows failed: %v", err)
	}

	var headerRow, totalRow []string
	var items []string
	inTable := false
	for _, r := range rows {
		if len(r) == 0 {
			continue
		}
		switch {
		case r[0] == "ITEM":
			headerRow = r
			inTable = true
		case len(r) > 4 && r[4] == "TOTAL PROJECT COST:":
			totalRow = r
			inTable = false
		case inTable && len(r) == len(Headers):
			items = append(items, r[0]+"|"+r[6])
		}
	}

	if diff := cmp.Diff(Headers, headerRow); diff != "" {
		t.Errorf("Header mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Shells|Rule", "Shop Fabrication|AI", "Painting|Rule", "Overhead|Rule"}, items); diff != "" {
		t.Errorf("Item rows mismatch (-want +got):\n%s", diff)
	}
	if totalRow == nil || totalRow[5] != "1803.2" || totalRow[6] != "USD" {
		t.Errorf("Unexpected total row: %v", totalRow)
	}

	all := []string{}
	for _, r := range rows {
		all = append(all, strings.Join(r, " "))
	}
	joined := strings.Join(all, "\n")
	for _, want := range []string{"AI ANALYSIS", "Plate prices are stable.", "WARNINGS", "AI: check nozzle schedule", "8/10"} {
		if !strings.Contains(joined, want) {
			t.Errorf("Workbook missing %q", want)
		}
	}
}

func TestJSONSink_Writer(t *testing.T) {
	var buf bytes.Buffer
	if _, err := NewJSONWriterSink(&buf).Deliver(context.Background(), fixtureReport()); err != nil {
		t.Fatalf("Deliver failed: %v", err)
	}

	var decoded struct {
		VesselNumber string `json:"vessel_number"`
		Total        string `json:"total"`
		Lines        []struct {
			Name     string `json:"name"`
			Subtotal string `json:"subtotal"`
		} `json:"lines"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	if decoded.VesselNumber != "V-1024" || decoded.Total != "1803.2" || len(decoded.Lines) != 4 {
		t.Errorf("Unexpected JSON report: %+v", decoded)
	}
}

func TestJSONSink_Dir(t *testing.T) {
	dir := t.TempDir()
	path, err := NewJSONSink(dir).Deliver(context.Background(), fixtureReport())
	if err != nil {
		t.Fatalf("Deliver failed: %v", err)
	}
	if filepath.Base(path) != "V-1024_Cost_Calculator_20260115_0930.json" {
		t.Errorf("Unexpected path: %s", path)
	}
}

func TestConsoleSink(t *testing.T) {
	var buf bytes.Buffer
	if _, err := NewConsoleSink(&buf, true).Deliver(context.Background(), fixtureReport()); err != nil {
		t.Fatalf("Deliver failed: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"V-1024 for Acme Refining (V-1024.pdf)", "TOTAL (USD)", "1803.20", "shop_fabrication", "Confidence: medium", "openai/gpt-4o"} {
		if !strings.Contains(out, want) {
			t.Errorf("Console output missing %q:\n%s", want, out)
		}
	}
}

func TestWebhookSink_Multipart(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			t.Errorf("Expected multipart form: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if got := r.FormValue("email"); got != "buyer@example.com" {
			t.Errorf("Expected email field, got %q", got)
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("Expected file part: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer func() { _ = file.Close() }()

		if header.Filename != "V-1024_Cost_Calculator_20260115_0930.xlsx" {
			t.Errorf("Unexpected filename %q", header.Filename)
		}
		data, _ := io.ReadAll(file)
		f, err := excelize.OpenReader(bytes.NewReader(data))
		if err != nil {
			t.Errorf("Uploaded file is not a workbook: %v", err)
		} else {
			title, _ := f.GetCellValue(SheetName, "A1")
			if title != Title {
				t.Errorf("Unexpected title in uploaded workbook: %q", title)
			}
			_ = f.Close()
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sink := NewWebhookSink(model.DeliveryConfig{WebhookURL: server.URL, Recipient: "buyer@example.com", Timeout: 5 * time.Second}, "", "", "")
	where, err := sink.Deliver(context.Background(), fixtureReport())
	if err != nil {
		t.Fatalf("Deliver failed: %v", err)
	}
	if where != "buyer@example.com" {
		t.Errorf("Expected recipient returned, got %q", where)
	}
}

func TestWebhookSink_Failures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	sink := NewWebhookSink(model.DeliveryConfig{WebhookURL: server.URL, Recipient: "buyer@example.com"}, "", "", "")
	_, err := sink.Deliver(context.Background(), fixtureReport())
	if !errors.Is(err, ErrDelivery) || !strings.Contains(err.Error(), "502") {
		t.Errorf("Expected delivery error with status, got %v", err)
	}

	var de *DeliveryError
	if !errors.As(err, &de) || de.Sink != "webhook" {
		t.Errorf("Expected DeliveryError naming the webhook sink, got %v", err)
	}

	noRecipient := NewWebhookSink(model.DeliveryConfig{WebhookURL: server.URL}, "", "", "")
	if _, err := noRecipient.Deliver(context.Background(), fixtureReport()); !errors.Is(err, ErrDelivery) {
		t.Errorf("Expected delivery error without recipient, got %v", err)
	}
}
