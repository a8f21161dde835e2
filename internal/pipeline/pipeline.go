package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/vesselcost/internal/cache"
	"github.com/ppiankov/vesselcost/internal/cost"
	"github.com/ppiankov/vesselcost/internal/document"
	"github.com/ppiankov/vesselcost/internal/extract"
	"github.com/ppiankov/vesselcost/internal/llm"
	"github.com/ppiankov/vesselcost/internal/model"
	"github.com/ppiankov/vesselcost/internal/report"
)

// Pipeline orchestrates document → attributes → breakdown → report
type Pipeline struct {
	source    document.Source
	extractor *extract.FieldExtractor
	engine    *cost.Engine
	enricher  *llm.Enricher
	assembler *report.Assembler
	logger    *zap.Logger
	config    *model.Config
}

type options struct {
	source   document.Source
	enricher *llm.Enricher
	limiter  llm.Limiter
	cache    cache.Cache
	logger   *zap.Logger
	clock    func() time.Time
}

// Option configures a Pipeline
type Option func(*options)

// WithSource replaces the document loader
func WithSource(s document.Source) Option {
	return func(o *options) { o.source = s }
}

// WithEnricher replaces the enricher built from configuration
func WithEnricher(e *llm.Enricher) Option {
	return func(o *options) { o.enricher = e }
}

// WithLimiter shares an enrichment rate limiter (batch mode)
func WithLimiter(l llm.Limiter) Option {
	return func(o *options) { o.limiter = l }
}

// WithCache shares an enrichment cache between pipelines
func WithCache(c cache.Cache) Option {
	return func(o *options) { o.cache = c }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithClock fixes report timestamps
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.clock = now }
}

// New creates a pipeline with the given configuration.
// An enrichment provider that cannot be created is logged and disabled.
func New(cfg *model.Config, opts ...Option) *Pipeline {
	if cfg == nil {
		cfg = model.DefaultConfig()
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.source == nil {
		o.source = document.NewDefaultLoader(cfg)
	}

	enricher := o.enricher
	if enricher == nil {
		c := o.cache
		if c == nil {
			c = cache.New(cfg.Cache)
		}
		enrichOpts := []llm.Option{llm.WithCache(c), llm.WithLogger(o.logger)}
		if o.limiter != nil {
			enrichOpts = append(enrichOpts, llm.WithLimiter(o.limiter))
		}

		llmConfig := llm.ConfigFromModel(cfg.LLM)
		e, err := llm.NewEnricher(llmConfig, enrichOpts...)
		if err != nil {
			o.logger.Warn("AI enrichment disabled", zap.Error(err))
			e = llm.NewEnricherWithProvider(nil, llmConfig)
		}
		enricher = e
	}

	assembler := report.NewAssembler()
	if o.clock != nil {
		assembler.WithClock(o.clock)
	}

	engine := cost.NewEngine(cfg)

	return &Pipeline{
		source:    o.source,
		extractor: extract.NewFieldExtractor(engine.Materials()),
		engine:    engine,
		enricher:  enricher,
		assembler: assembler,
		logger:    o.logger,
		config:    cfg,
	}
}

// Enricher returns the enricher the pipeline uses
func (p *Pipeline) Enricher() *llm.Enricher {
	return p.enricher
}

// Extract loads a document and extracts its attributes: NotStarted → Extracted
func (p *Pipeline) Extract(ctx context.Context, location string) (*Run, error) {
	run := newRun()
	if err := ctx.Err(); err != nil {
		return run, err
	}

	doc, err := p.source.Load(ctx, location)
	if err != nil {
		return run, run.fail(fmt.Errorf("load document: %w", err))
	}

	p.logger.Debug("document loaded",
		zap.String("document", doc.Name),
		zap.String("format", string(doc.Format)),
		zap.Int("pages", doc.Pages),
		zap.Int("chars", len(doc.Text)),
	)

	return run, p.extractInto(run, doc.Meta(), doc.Text)
}

// ExtractText extracts attributes from text that is already loaded
func (p *Pipeline) ExtractText(meta model.DocumentMeta, text string) (*Run, error) {
	run := newRun()
	return run, p.extractInto(run, meta, text)
}

func (p *Pipeline) extractInto(run *Run, meta model.DocumentMeta, text string) error {
	res := p.extractor.Extract(text)
	meta.Profile = res.Profile

	run.Document = meta
	run.Attributes = res.Attributes

	p.logger.Debug("attributes extracted",
		zap.String("document", meta.Name),
		zap.String("profile", res.Profile),
		zap.Int("present", res.Attributes.PresentCount(model.AttributeNames()...)),
	)

	return run.advance(StateExtracted)
}

// ProcessOptions controls costing and enrichment for one run
type ProcessOptions struct {
	Overrides []Override
	Enrich    bool
	Mode      model.EnrichmentMode
}

// Process applies overrides, costs, optionally enriches and assembles:
// Extracted → Costed → EnrichedOrSkipped → Assembled. Context cancellation
// is checked between stages and leaves the run where it stopped; use Fork to
// start over.
func (p *Pipeline) Process(ctx context.Context, run *Run, opts ProcessOptions) (*model.Report, error) {
	if run == nil {
		return nil, errors.New("nil run")
	}
	if run.state != StateExtracted {
		return nil, fmt.Errorf("%w: cannot process a run in state %s", ErrIllegalTransition, run.state)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	attrs := run.Attributes
	for _, ov := range opts.Overrides {
		err := attrs.Override(ov.Name, ov.Value)
		if errors.Is(err, model.ErrUnknownAttribute) {
			// Recorded in the map's ignored list and reported by the assembler
			p.logger.Warn("ignoring unknown attribute override", zap.String("name", ov.Name))
			continue
		}
		if err != nil {
			return nil, run.fail(fmt.Errorf("apply override: %w", err))
		}
	}
	// Store the catalog key so reports show what was priced
	if mat := attrs.Get(model.AttrMaterial); mat.Source == model.SourceUserOverride {
		if key, ok := p.engine.Materials().Resolve(mat.Raw); ok && key != mat.Text {
			mat.Text = key
			if err := attrs.Set(mat); err != nil {
				return nil, run.fail(fmt.Errorf("apply override: %w", err))
			}
		}
	}
	attrs.Freeze()

	base, err := p.engine.Compute(attrs)
	if err != nil {
		return nil, run.fail(fmt.Errorf("compute costs: %w", err))
	}
	run.Base = base
	if err := run.advance(StateCosted); err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mode := opts.Mode
	if mode == "" {
		mode = model.ModeBudget
	}

	breakdown := base
	result := model.EnrichmentSkipped()
	var warnings []string
	if opts.Enrich {
		if p.enricher.IsEnabled() {
			breakdown, result, warnings = p.enricher.Apply(ctx, attrs, base, mode)
		} else {
			warnings = append(warnings, "AI enrichment requested but no provider is configured")
		}
	}
	run.Breakdown = breakdown
	run.Enrichment = result
	run.Warnings = warnings
	if err := run.advance(StateEnriched); err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rep := p.assembler.Assemble(report.Input{
		Document:   run.Document,
		Attributes: attrs,
		Breakdown:  breakdown,
		Enrichment: result,
		Provider:   p.enricher.ProviderName(),
		Model:      p.enricher.Model(mode),
		Mode:       mode,
		Warnings:   warnings,
	})
	run.Report = rep
	if err := run.advance(StateAssembled); err != nil {
		return nil, err
	}

	p.logger.Info("quote assembled",
		zap.String("document", run.Document.Name),
		zap.String("vessel", rep.VesselNumber),
		zap.String("total", rep.Total.StringFixed(model.CurrencyPlaces)),
		zap.String("confidence", string(rep.Confidence)),
		zap.String("enrichment", string(result.Status)),
	)

	return rep, nil
}

// ProcessFile runs Extract then Process
func (p *Pipeline) ProcessFile(ctx context.Context, location string, opts ProcessOptions) (*Run, error) {
	run, err := p.Extract(ctx, location)
	if err != nil {
		return run, err
	}
	if _, err := p.Process(ctx, run, opts); err != nil {
		return run, err
	}
	return run, nil
}

// Delivery records where a sink put the report
type Delivery struct {
	Sink     string
	Location string
}

// Deliver hands an assembled report to each sink. Every sink is attempted;
// failures are joined and each matches report.ErrDelivery.
func (p *Pipeline) Deliver(ctx context.Context, run *Run, sinks ...report.Sink) ([]Delivery, error) {
	if run == nil || run.state != StateAssembled {
		state := StateNotStarted
		if run != nil {
			state = run.state
		}
		return nil, fmt.Errorf("%w: cannot deliver a run in state %s", ErrIllegalTransition, state)
	}

	var deliveries []Delivery
	var errs []error
	for _, sink := range sinks {
		where, err := sink.Deliver(ctx, run.Report)
		if err != nil {
			p.logger.Warn("report delivery failed", zap.String("sink", sink.Name()), zap.Error(err))
			if !errors.Is(err, report.ErrDelivery) {
				err = &report.DeliveryError{Sink: sink.Name(), Err: err}
			}
			errs = append(errs, err)
			continue
		}
		deliveries = append(deliveries, Delivery{Sink: sink.Name(), Location: where})
	}

	return deliveries, errors.Join(errs...)
}

// Override is a user-supplied attribute value
type Override struct {
	Name  string
	Value string
}

// ParseOverride parses "name=value"
func ParseOverride(s string) (Override, error) {
	name, value, ok := strings.Cut(s, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return Override{}, fmt.Errorf("invalid override %q (expected name=value)", s)
	}
	return Override{Name: name, Value: strings.TrimSpace(value)}, nil
}
