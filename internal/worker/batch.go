package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ppiankov/vesselcost/internal/model"
	"github.com/ppiankov/vesselcost/internal/pipeline"
	"github.com/ppiankov/vesselcost/internal/report"
)

// Processor runs one document through the pipeline and delivers its report
type Processor interface {
	ProcessFile(ctx context.Context, location string, opts pipeline.ProcessOptions) (*pipeline.Run, error)
	Deliver(ctx context.Context, run *pipeline.Run, sinks ...report.Sink) ([]pipeline.Delivery, error)
}

// QuoteJob costs one document
type QuoteJob struct {
	Location  string
	Options   pipeline.ProcessOptions
	Processor Processor
	Sinks     []report.Sink

	index int
}

// Execute executes the quote job
func (j *QuoteJob) Execute(ctx context.Context) Result {
	run, err := j.Processor.ProcessFile(ctx, j.Location, j.Options)
	if err != nil {
		return &QuoteResult{Location: j.Location, Error: err, index: j.index}
	}

	res := &QuoteResult{Location: j.Location, Report: run.Report, index: j.index}
	if len(j.Sinks) > 0 {
		res.Deliveries, res.DeliveryError = j.Processor.Deliver(ctx, run, j.Sinks...)
	}
	return res
}

// QuoteResult is the outcome of one document in a batch
type QuoteResult struct {
	Location      string
	Report        *model.Report
	Deliveries    []pipeline.Delivery
	Error         error // the document could not be costed
	DeliveryError error // costed, but at least one sink failed

	index int
}

// GetError returns the processing error, or the delivery error
func (r *QuoteResult) GetError() error {
	if r.Error != nil {
		return r.Error
	}
	return r.DeliveryError
}

// BatchProcessor processes multiple documents concurrently
type BatchProcessor struct {
	processor   Processor
	concurrency int
	options     pipeline.ProcessOptions
	sinks       []report.Sink
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(processor Processor, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		processor:   processor,
		concurrency: concurrency,
	}
}

// WithOptions sets the per-document processing options
func (b *BatchProcessor) WithOptions(opts pipeline.ProcessOptions) *BatchProcessor {
	b.options = opts
	return b
}

// WithSinks sets where each report is delivered
func (b *BatchProcessor) WithSinks(sinks ...report.Sink) *BatchProcessor {
	b.sinks = sinks
	return b
}

// ProcessDocuments costs documents concurrently. Results follow the input
// order; documents not started before ctx was cancelled carry ctx's error.
func (b *BatchProcessor) ProcessDocuments(ctx context.Context, locations []string) []*QuoteResult {
	if len(locations) == 0 {
		return []*QuoteResult{}
	}

	pool := NewPoolContext(ctx, b.concurrency)
	pool.Start()

	for i, location := range locations {
		pool.Submit(&QuoteJob{
			Location:  location,
			Options:   b.options,
			Processor: b.processor,
			Sinks:     b.sinks,
			index:     i,
		})
	}

	quoteResults := make([]*QuoteResult, len(locations))
	for _, result := range pool.Wait() {
		qr := result.(*QuoteResult)
		quoteResults[qr.index] = qr
	}

	for i, qr := range quoteResults {
		if qr != nil {
			continue
		}
		err := ctx.Err()
		if err == nil {
			err = context.Canceled
		}
		quoteResults[i] = &QuoteResult{Location: locations[i], Error: err, index: i}
	}

	return quoteResults
}

// ProcessFile reads document paths from a list file and processes them
func (b *BatchProcessor) ProcessFile(ctx context.Context, listPath string) ([]*QuoteResult, error) {
	locations, err := ReadListFromFile(listPath)
	if err != nil {
		return nil, fmt.Errorf("read document list: %w", err)
	}

	return b.ProcessDocuments(ctx, locations), nil
}

// Summary totals a batch
type Summary struct {
	Processed      int
	Failed         int
	DeliveryFailed int
	Total          decimal.Decimal
}

// Summarize counts successes and failures and sums the quoted totals
func Summarize(results []*QuoteResult) Summary {
	s := Summary{Total: decimal.Zero}
	for _, r := range results {
		switch {
		case r.Error != nil:
			s.Failed++
			continue
		case r.DeliveryError != nil:
			s.DeliveryFailed++
		}
		s.Processed++
		if r.Report != nil {
			s.Total = s.Total.Add(r.Report.Total)
		}
	}
	return s
}

// ReadListFromFile reads document paths or URLs from a file (one per line)
func ReadListFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var locations []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !seen[line] {
			seen[line] = true
			locations = append(locations, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return locations, nil
}
