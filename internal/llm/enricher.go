package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/vesselcost/internal/cache"
	"github.com/ppiankov/vesselcost/internal/model"
)

// Limiter throttles calls per provider
type Limiter interface {
	Wait(ctx context.Context, key string) error
}

// Enricher runs the optional AI pass over a costed breakdown
type Enricher struct {
	provider Provider
	config   Config
	cache    cache.Cache
	limiter  Limiter
	logger   *zap.Logger
}

// Option configures an Enricher
type Option func(*Enricher)

// WithCache stores replies keyed by provider, model, mode and prompt
func WithCache(c cache.Cache) Option {
	return func(e *Enricher) { e.cache = c }
}

// WithLimiter shares a rate limiter between enrichers (batch mode)
func WithLimiter(l Limiter) Option {
	return func(e *Enricher) { e.limiter = l }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(e *Enricher) { e.logger = l }
}

// NewEnricher creates an enricher; an empty provider disables enrichment
func NewEnricher(config Config, opts ...Option) (*Enricher, error) {
	provider, err := NewProvider(config)
	if err != nil {
		return nil, fmt.Errorf("create provider: %w", err)
	}
	return NewEnricherWithProvider(provider, config, opts...), nil
}

// NewEnricherWithProvider wraps an existing provider (nil disables enrichment)
func NewEnricherWithProvider(provider Provider, config Config, opts ...Option) *Enricher {
	e := &Enricher{
		provider: provider,
		config:   config,
		cache:    cache.Nop{},
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// IsEnabled returns true if a provider is configured
func (e *Enricher) IsEnabled() bool {
	return e != nil && e.provider != nil
}

// ProviderName returns the name of the configured provider ("" when disabled)
func (e *Enricher) ProviderName() string {
	if !e.IsEnabled() {
		return ""
	}
	return e.provider.Name()
}

// Model returns the model used for mode
func (e *Enricher) Model(mode model.EnrichmentMode) string {
	if e.config.Model != "" {
		return e.config.Model
	}
	return DefaultModel(e.ProviderName(), mode)
}

// Check verifies the provider is reachable
func (e *Enricher) Check(ctx context.Context) error {
	if !e.IsEnabled() {
		return errors.New("no LLM provider configured")
	}
	ctx, cancel := context.WithTimeout(ctx, e.config.timeout())
	defer cancel()
	return e.provider.Check(ctx)
}

// Enrich asks the provider for a narrative and adjustments. It never returns
// an error: every failure is folded into an EnrichmentFailed result.
func (e *Enricher) Enrich(ctx context.Context, attrs *model.AttributeMap, breakdown *model.CostBreakdown, mode model.EnrichmentMode) model.EnrichmentResult {
	if !e.IsEnabled() {
		return model.EnrichmentSkipped()
	}

	profile := profileFor(mode)
	modelName := e.Model(mode)
	prompt := BuildPrompt(attrs, breakdown, mode)
	key := cache.Key(e.provider.Name(), modelName, string(mode), prompt)

	logger := e.logger.With(
		zap.String("provider", e.provider.Name()),
		zap.String("model", modelName),
		zap.String("mode", string(mode)),
	)

	if data, ok := e.cache.Get(key); ok {
		enrichment, err := ParseEnrichment(string(data), mode)
		if err == nil {
			logger.Debug("enrichment cache hit")
			e.stamp(enrichment, modelName, 0)
			enrichment.Cached = true
			return model.EnrichmentOK(enrichment)
		}
		logger.Warn("discarding unreadable cache entry", zap.Error(err))
		_ = e.cache.Delete(key)
	}

	if e.limiter != nil {
		if err := e.limiter.Wait(ctx, e.provider.Name()); err != nil {
			logger.Warn("enrichment rate limit wait aborted", zap.Error(err))
			return model.EnrichmentFailed(fmt.Errorf("rate limit: %w", err))
		}
	}

	maxTokens := profile.MaxTokens
	if e.config.MaxTokens > 0 {
		maxTokens = e.config.MaxTokens
	}

	callCtx, cancel := context.WithTimeout(ctx, e.config.timeout())
	defer cancel()

	start := time.Now()
	resp, err := e.provider.Complete(callCtx, CompletionRequest{
		System:    systemPrompt,
		Prompt:    prompt,
		Model:     modelName,
		MaxTokens: maxTokens,
		JSON:      true,
	})
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("timed out after %s: %w", e.config.timeout(), err)
		}
		logger.Warn("enrichment call failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		return model.EnrichmentFailed(err)
	}

	enrichment, err := ParseEnrichment(resp.Text, mode)
	if err != nil {
		logger.Warn("enrichment reply rejected", zap.Error(err))
		return model.EnrichmentFailed(err)
	}

	if resp.Model != "" {
		modelName = resp.Model
	}
	e.stamp(enrichment, modelName, resp.TokensUsed)

	if err := e.cache.Set(key, []byte(resp.Text), 0); err != nil {
		logger.Warn("failed to cache enrichment", zap.Error(err))
	}

	logger.Info("enrichment complete",
		zap.Int("adjustments", len(enrichment.Adjustments)),
		zap.Int("tokens", resp.TokensUsed),
		zap.Duration("elapsed", time.Since(start)),
	)

	return model.EnrichmentOK(enrichment)
}

// Apply enriches and merges in one step; the breakdown is returned unchanged
// (plus a warning) whenever enrichment fails
func (e *Enricher) Apply(ctx context.Context, attrs *model.AttributeMap, breakdown *model.CostBreakdown, mode model.EnrichmentMode) (*model.CostBreakdown, model.EnrichmentResult, []string) {
	res := e.Enrich(ctx, attrs, breakdown, mode)
	merged, warnings := model.MergeEnrichment(breakdown, res)
	return merged, res, warnings
}

func (e *Enricher) stamp(enrichment *model.Enrichment, modelName string, tokens int) {
	enrichment.Provider = e.provider.Name()
	enrichment.Model = modelName
	enrichment.TokensUsed = tokens
}
