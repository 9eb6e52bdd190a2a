package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/compliance-gateway/internal/api"
	"github.com/JakeFAU/compliance-gateway/internal/clock/system"
	"github.com/JakeFAU/compliance-gateway/internal/config"
	"github.com/JakeFAU/compliance-gateway/internal/detector"
	collyfetcher "github.com/JakeFAU/compliance-gateway/internal/fetcher/colly"
	headlessfetcher "github.com/JakeFAU/compliance-gateway/internal/fetcher/headless"
	"github.com/JakeFAU/compliance-gateway/internal/scraper"
)

// Scraper holds the audit scraper's dependencies.
type Scraper struct {
	cfg     config.Config
	logger  *zap.Logger
	api     *api.ScraperServer
	closers []namedCloser
}

// BuildScraper constructs the audit scraper. The headless renderer is only
// started when scraper.render_js is set.
func BuildScraper(cfg config.Config, logger *zap.Logger) (*Scraper, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Scraper{cfg: cfg, logger: logger}

	fetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent: cfg.Scraper.UserAgent,
		Timeout:   cfg.ScrapeTimeout(),
	})
	logger.Info("using colly fetcher", zap.String("user_agent", cfg.Scraper.UserAgent))

	var opts []scraper.Option
	if cfg.Scraper.RenderJS {
		renderer, err := headlessfetcher.NewChromedp(headlessfetcher.Config{
			UserAgent:         cfg.Scraper.UserAgent,
			NavigationTimeout: time.Duration(cfg.Scraper.NavTimeoutSeconds) * time.Second,
		})
		if err != nil {
			return nil, fmt.Errorf("headless fetcher init failed: %w", err)
		}
		s.closers = append(s.closers, namedCloser{name: "headless browser", close: func() error {
			renderer.Close()
			return nil
		}})
		opts = append(opts, scraper.WithRenderer(renderer, detector.NewRenderHint(0)))
		logger.Info("headless render fallback enabled")
	}

	svc := scraper.New(
		fetcher,
		detector.NewBanner(),
		system.New(),
		scraper.Config{Timeout: cfg.ScrapeTimeout()},
		logger.Named("scraper"),
		opts...,
	)
	s.api = api.NewScraperServer(svc, cfg, logger.Named("api"))
	return s, nil
}

// Handler exposes the scraper router.
func (s *Scraper) Handler() http.Handler {
	return s.api.Handler()
}

// Run listens on the configured scraper port until ctx is canceled.
func (s *Scraper) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.cfg.Server.ScraperPort))
	if err != nil {
		return fmt.Errorf("listen on port %d: %w", s.cfg.Server.ScraperPort, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is canceled, then shuts down.
func (s *Scraper) Serve(ctx context.Context, ln net.Listener) error {
	defer s.Close()
	return serve(ctx, ln, s.Handler(), s.cfg, s.logger)
}

// Close stops the headless browser, if one was started.
func (s *Scraper) Close() {
	closeAll(s.closers, s.logger)
	s.closers = nil
}
