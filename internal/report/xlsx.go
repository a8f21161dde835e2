package report

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/ppiankov/vesselcost/internal/model"
)

const (
	// SheetName is the single worksheet of the cost calculator
	SheetName = "Cost Calculator"
	// Title is the banner in A1
	Title = "AI-ENHANCED PRESSURE VESSEL COST CALCULATOR"

	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Headers of the line item table
var Headers = []string{"ITEM", "DESCRIPTION", "QUANTITY", "UNIT", "RATE", "TOTAL", "SOURCE"}

var columnWidths = []float64{20, 35, 15, 8, 15, 18, 15}

var titleCase = cases.Title(language.English)

// XLSXSink writes the cost calculator spreadsheet into a directory
type XLSXSink struct {
	dir string
}

// NewXLSXSink creates a spreadsheet sink writing into dir
func NewXLSXSink(dir string) *XLSXSink {
	return &XLSXSink{dir: dir}
}

func (s *XLSXSink) Name() string { return "xlsx" }

// Deliver renders and saves the workbook
func (s *XLSXSink) Deliver(ctx context.Context, rep *model.Report) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &DeliveryError{Sink: s.Name(), Err: err}
	}

	f, err := Render(rep)
	if err != nil {
		return "", &DeliveryError{Sink: s.Name(), Err: err}
	}
	defer func() { _ = f.Close() }()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", &DeliveryError{Sink: s.Name(), Err: fmt.Errorf("create output dir: %w", err)}
	}
	path := filepath.Join(s.dir, FileName(rep))
	if err := f.SaveAs(path); err != nil {
		return "", &DeliveryError{Sink: s.Name(), Err: fmt.Errorf("save workbook: %w", err)}
	}
	return path, nil
}

// RenderBytes renders the workbook in memory
func RenderBytes(rep *model.Report) ([]byte, error) {
	f, err := Render(rep)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

type styles struct {
	title, header, category, money, total int
}

func newStyles(f *excelize.File) (styles, error) {
	var s styles
	var err error

	if s.title, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 16, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"1F4E79"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	}); err != nil {
		return s, err
	}
	if s.header, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 12, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"366092"}, Pattern: 1},
	}); err != nil {
		return s, err
	}
	if s.category, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"D9E1F2"}, Pattern: 1},
	}); err != nil {
		return s, err
	}
	moneyFmt := "#,##0.00"
	if s.money, err = f.NewStyle(&excelize.Style{CustomNumFmt: &moneyFmt}); err != nil {
		return s, err
	}
	s.total, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}, CustomNumFmt: &moneyFmt})
	return s, err
}

// Render lays out the cost calculator: title, vessel information, the line
// table grouped by category, category subtotals, grand total, AI analysis
// and warnings
func Render(rep *model.Report) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("name sheet: %w", err)
	}

	w := &sheetWriter{f: f}
	st, err := newStyles(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("create styles: %w", err)
	}

	last := column(len(Headers))
	w.set(1, 1, Title)
	w.merge(fmt.Sprintf("A1:%s1", last))
	w.style(fmt.Sprintf("A1:%s1", last), st.title)

	row := 3
	for _, a := range rep.Attributes {
		w.set(1, row, a.Name.Label()+":")
		w.set(2, row, a.Display())
		row++
	}
	w.set(1, row, "Report Date:")
	w.set(2, row, rep.GeneratedAt.Format("2006-01-02"))
	row++
	w.set(1, row, "Estimate Confidence:")
	w.set(2, row, string(rep.Confidence))
	row++
	w.set(1, row, "AI Confidence:")
	w.set(2, row, aiConfidence(rep))
	row += 3

	for i, h := range Headers {
		w.set(i+1, row, h)
	}
	w.style(fmt.Sprintf("A%d:%s%d", row, last, row), st.header)
	row++

	for _, ct := range rep.CategoryTotals {
		w.set(1, row, strings.ToUpper(string(ct.Category)))
		w.style(fmt.Sprintf("A%d:%s%d", row, last, row), st.category)
		row++

		for _, line := range rep.Lines {
			if line.Category != ct.Category {
				continue
			}
			w.set(1, row, titleCase.String(strings.ReplaceAll(line.Name, "_", " ")))
			w.set(2, row, line.Description)
			w.set(3, row, line.Quantity.InexactFloat64())
			w.set(4, row, line.Unit)
			w.set(5, row, line.UnitCost.InexactFloat64())
			w.set(6, row, line.Subtotal.InexactFloat64())
			w.set(7, row, sourceLabel(line.Source))
			w.style(fmt.Sprintf("E%d:F%d", row, row), st.money)
			row++
		}

		w.set(5, row, titleCase.String(string(ct.Category))+" subtotal:")
		w.set(6, row, ct.Total.InexactFloat64())
		w.style(fmt.Sprintf("F%d", row), st.total)
		row++
	}

	row++
	w.set(5, row, "TOTAL PROJECT COST:")
	w.set(6, row, rep.Total.InexactFloat64())
	w.set(7, row, rep.Currency)
	w.style(fmt.Sprintf("E%d:F%d", row, row), st.total)
	row += 2

	if rep.Narrative != "" {
		w.set(1, row, "AI ANALYSIS")
		w.style(fmt.Sprintf("A%d:%s%d", row, last, row), st.category)
		row++
		w.set(1, row, rep.Narrative)
		w.merge(fmt.Sprintf("A%d:%s%d", row, last, row))
		row += 2
	}

	if len(rep.Warnings) > 0 {
		w.set(1, row, "WARNINGS")
		w.style(fmt.Sprintf("A%d:%s%d", row, last, row), st.category)
		row++
		for _, warning := range rep.Warnings {
			w.set(1, row, warning)
			w.merge(fmt.Sprintf("A%d:%s%d", row, last, row))
			row++
		}
	}

	for i, width := range columnWidths {
		col := column(i + 1)
		w.check(f.SetColWidth(SheetName, col, col, width))
	}

	if w.err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("render workbook: %w", w.err)
	}
	return f, nil
}

// sheetWriter keeps the first error so layout code reads top to bottom
type sheetWriter struct {
	f   *excelize.File
	err error
}

func (w *sheetWriter) check(err error) {
	if w.err == nil && err != nil {
		w.err = err
	}
}

func (w *sheetWriter) set(col, row int, value interface{}) {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		w.check(err)
		return
	}
	w.check(w.f.SetCellValue(SheetName, cell, value))
}

func (w *sheetWriter) merge(ref string) {
	parts := strings.SplitN(ref, ":", 2)
	w.check(w.f.MergeCell(SheetName, parts[0], parts[1]))
}

func (w *sheetWriter) style(ref string, id int) {
	parts := strings.SplitN(ref, ":", 2)
	if len(parts) == 1 {
		parts = append(parts, parts[0])
	}
	w.check(w.f.SetCellStyle(SheetName, parts[0], parts[1], id))
}

func column(n int) string {
	name, _ := excelize.ColumnNumberToName(n)
	return name
}

func sourceLabel(s model.LineSource) string {
	if s == model.LineSourceEnrichment {
		return "AI"
	}
	return "Rule"
}

func aiConfidence(rep *model.Report) string {
	if rep.Enrichment == nil || rep.Enrichment.Status != model.EnrichmentStatusOK || rep.Enrichment.Confidence == 0 {
		return "N/A"
	}
	return fmt.Sprintf("%d/10", rep.Enrichment.Confidence)
}
