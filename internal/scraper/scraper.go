// Package scraper runs a single compliance audit: fetch the page, optionally
// render it, and apply the consent-banner detector.
package scraper

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/compliance-gateway/internal/compliance"
	"github.com/JakeFAU/compliance-gateway/internal/metrics"
)

// RenderHint decides whether a static fetch should be retried in a browser.
type RenderHint interface {
	NeedsRender(resp compliance.FetchResponse) bool
}

// Config bounds the static fetch.
type Config struct {
	Timeout time.Duration
}

// Service implements the audit operation.
type Service struct {
	fetcher  compliance.Fetcher
	renderer compliance.Fetcher
	hint     RenderHint
	detector compliance.Detector
	clock    compliance.Clock
	timeout  time.Duration
	logger   *zap.Logger
}

// Option customizes a Service.
type Option func(*Service)

// WithRenderer enables the headless fallback for pages the hint flags.
func WithRenderer(renderer compliance.Fetcher, hint RenderHint) Option {
	return func(s *Service) {
		s.renderer = renderer
		s.hint = hint
	}
}

// New builds a Service.
func New(
	fetcher compliance.Fetcher,
	detector compliance.Detector,
	clock compliance.Clock,
	cfg Config,
	logger *zap.Logger,
	opts ...Option,
) *Service {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		fetcher:  fetcher,
		detector: detector,
		clock:    clock,
		timeout:  cfg.Timeout,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scrape fetches url once and reports whether it carries a cookie consent
// notice. Fetch failures (network, timeout, non-2xx) are KindFetch errors.
func (s *Service) Scrape(ctx context.Context, url string) (compliance.AuditResult, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, s.timeout)
	resp, err := s.fetcher.Fetch(fetchCtx, compliance.FetchRequest{URL: url})
	cancel()
	if err != nil {
		metrics.ObserveScrape(url, "error", 0)
		return compliance.AuditResult{}, compliance.Wrap(compliance.KindFetch, "scrape.fetch", err)
	}

	issues, err := s.detector.Issues(resp.Body)
	if err != nil {
		metrics.ObserveScrape(url, "error", len(resp.Body))
		return compliance.AuditResult{}, compliance.Wrap(compliance.KindInternal, "scrape.detect", err)
	}

	if len(issues) > 0 && s.renderer != nil && s.hint != nil && s.hint.NeedsRender(resp) {
		issues = s.rerender(ctx, url, issues)
	}

	verdict := "pass"
	if len(issues) > 0 {
		verdict = "fail"
	}
	metrics.ObserveScrape(url, verdict, len(resp.Body))
	s.logger.Info("page audited",
		zap.String("url", url),
		zap.String("verdict", verdict),
		zap.Int("status", resp.StatusCode),
		zap.Duration("fetch_duration", resp.Duration),
	)

	return compliance.AuditResult{
		AuditDate: s.clock.Now(),
		Issues:    issues,
	}, nil
}

// rerender returns the issues found in the rendered DOM, or the static issues
// when rendering fails.
func (s *Service) rerender(ctx context.Context, url string, static []string) []string {
	rendered, err := s.renderer.Fetch(ctx, compliance.FetchRequest{URL: url})
	if err != nil {
		s.logger.Warn("headless render failed; keeping static verdict", zap.String("url", url), zap.Error(err))
		return static
	}
	issues, err := s.detector.Issues(rendered.Body)
	if err != nil {
		s.logger.Warn("rendered page not parseable", zap.String("url", url), zap.Error(err))
		return static
	}
	return issues
}

// Audit validates req and scrapes its URL.
func (s *Service) Audit(ctx context.Context, req compliance.AuditRequest) (compliance.AuditResult, error) {
	if req.BusinessID == "" || req.URL == "" {
		return compliance.AuditResult{}, compliance.Validation("Missing business_id or url")
	}
	result, err := s.Scrape(ctx, req.URL)
	if err != nil {
		return compliance.AuditResult{}, fmt.Errorf("audit %s: %w", req.BusinessID, err)
	}
	return result, nil
}
