package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/compliance-gateway/internal/compliance"
	"github.com/JakeFAU/compliance-gateway/internal/config"
)

// Auditor performs one audit; *scraper.Service satisfies it.
type Auditor interface {
	Audit(ctx context.Context, req compliance.AuditRequest) (compliance.AuditResult, error)
}

// ScraperServer is the HTTP surface of the audit scraper deployable.
type ScraperServer struct {
	router   chi.Router
	auditor  Auditor
	failures failureWriter
}

// NewScraperServer builds the scraper router.
func NewScraperServer(auditor Auditor, cfg config.Config, logger *zap.Logger) *ScraperServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &ScraperServer{
		auditor:  auditor,
		failures: failureWriter{exposeDetails: cfg.Server.ExposeErrorDetails, logger: logger},
	}
	// Only the gateway is called from browsers.
	r := newRouter(nil, s.failures, logger)
	r.Post("/api/audit", s.audit)
	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *ScraperServer) Handler() http.Handler {
	return s.router
}

func (s *ScraperServer) audit(w http.ResponseWriter, r *http.Request) {
	var req auditRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.failures.write(w, r, err)
		return
	}
	result, err := s.auditor.Audit(r.Context(), compliance.AuditRequest{
		BusinessID: req.BusinessID,
		URL:        req.URL,
	})
	if err != nil {
		s.failures.write(w, r, err)
		return
	}
	if result.Issues == nil {
		result.Issues = []string{}
	}
	writeJSON(w, http.StatusOK, result)
}
