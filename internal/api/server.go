package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/compliance-gateway/internal/compliance"
	"github.com/JakeFAU/compliance-gateway/internal/config"
	"github.com/JakeFAU/compliance-gateway/internal/metrics"
)

// Server wires gateway HTTP handlers to the dispatcher and stores.
type Server struct {
	router     chi.Router
	dispatcher compliance.AuditDispatcher
	consent    compliance.ConsentStore
	checklist  compliance.ChecklistStore
	failures   failureWriter
	logger     *zap.Logger
}

// NewServer constructs the gateway Server with middleware and routes.
func NewServer(
	dispatcher compliance.AuditDispatcher,
	consent compliance.ConsentStore,
	checklist compliance.ChecklistStore,
	cfg config.Config,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		dispatcher: dispatcher,
		consent:    consent,
		checklist:  checklist,
		failures:   failureWriter{exposeDetails: cfg.Server.ExposeErrorDetails, logger: logger},
		logger:     logger,
	}

	r := newRouter(cfg.CORS.AllowedOrigins, s.failures, logger)
	r.Route("/api", func(r chi.Router) {
		r.Post("/audit", s.triggerAudit)
		r.Post("/consent", s.storeConsent)
		r.Get("/consent", s.getConsent)
		r.Post("/checklist", s.addChecklistTask)
		r.Get("/checklist", s.listChecklist)
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

type auditRequest struct {
	BusinessID string `json:"business_id"`
	URL        string `json:"url"`
}

type auditResponse struct {
	Message string                  `json:"message"`
	Result  *compliance.AuditResult `json:"result,omitempty"`
}

func (s *Server) triggerAudit(w http.ResponseWriter, r *http.Request) {
	var req auditRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.failures.write(w, r, err)
		return
	}
	if req.BusinessID == "" || req.URL == "" {
		s.failures.write(w, r, compliance.Validation("Missing business_id or url"))
		return
	}

	s.logger.Debug("dispatching audit", zap.String("business_id", req.BusinessID), zap.String("url", req.URL))
	result, err := s.dispatcher.Dispatch(r.Context(), compliance.AuditRequest{
		BusinessID: req.BusinessID,
		URL:        req.URL,
	})
	if err != nil {
		s.failures.write(w, r, err)
		return
	}

	resp := auditResponse{Message: "Audit triggered successfully"}
	if !result.AuditDate.IsZero() || result.Issues != nil {
		if result.Issues == nil {
			result.Issues = []string{}
		}
		resp.Result = &result
	}
	s.logger.Info("audit triggered", zap.String("business_id", req.BusinessID), zap.String("url", req.URL))
	writeJSON(w, http.StatusOK, resp)
}

type consentRequest struct {
	BusinessID string          `json:"business_id"`
	Template   json.RawMessage `json:"template_json"`
}

func (s *Server) storeConsent(w http.ResponseWriter, r *http.Request) {
	var req consentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.failures.write(w, r, err)
		return
	}
	if req.BusinessID == "" || isNullJSON(req.Template) {
		s.failures.write(w, r, compliance.Validation("Missing business_id or template_json"))
		return
	}

	err := s.consent.PutTemplate(r.Context(), req.BusinessID, req.Template)
	metrics.ObserveConsentWrite(metrics.Outcome(err))
	if err != nil {
		s.failures.write(w, r, classify(compliance.KindStorage, "consent.put", err))
		return
	}
	s.logger.Info("consent template stored", zap.String("business_id", req.BusinessID))
	writeJSON(w, http.StatusOK, map[string]string{"message": "Consent template stored successfully"})
}

func (s *Server) getConsent(w http.ResponseWriter, r *http.Request) {
	businessID := r.URL.Query().Get("business_id")
	if businessID == "" {
		s.failures.write(w, r, compliance.Validation("Missing business_id"))
		return
	}
	tmpl, err := s.consent.GetTemplate(r.Context(), businessID)
	if err != nil {
		s.failures.write(w, r, classify(compliance.KindStorage, "consent.get", err))
		return
	}
	writeJSON(w, http.StatusOK, tmpl)
}

type checklistRequest struct {
	BusinessID string `json:"business_id"`
	Task       string `json:"task"`
}

type checklistAddResponse struct {
	Message string `json:"message"`
	TaskID  int64  `json:"task_id"`
}

type checklistItem struct {
	ID        int64     `json:"id"`
	Task      string    `json:"task"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *Server) addChecklistTask(w http.ResponseWriter, r *http.Request) {
	var req checklistRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.failures.write(w, r, err)
		return
	}
	if req.BusinessID == "" || req.Task == "" {
		s.failures.write(w, r, compliance.Validation("Missing business_id or task"))
		return
	}

	row, err := s.checklist.AddTask(r.Context(), req.BusinessID, req.Task)
	metrics.ObserveChecklist("add", metrics.Outcome(err))
	if err != nil {
		s.failures.write(w, r, classify(compliance.KindPersistence, "checklist.add", err))
		return
	}
	s.logger.Info("checklist task added", zap.String("business_id", req.BusinessID), zap.Int64("task_id", row.ID))
	writeJSON(w, http.StatusOK, checklistAddResponse{Message: "Task added successfully", TaskID: row.ID})
}

func (s *Server) listChecklist(w http.ResponseWriter, r *http.Request) {
	businessID := r.URL.Query().Get("business_id")
	if businessID == "" {
		s.failures.write(w, r, compliance.Validation("Missing business_id"))
		return
	}

	rows, err := s.checklist.ListTasks(r.Context(), businessID)
	metrics.ObserveChecklist("list", metrics.Outcome(err))
	if err != nil {
		s.failures.write(w, r, classify(compliance.KindPersistence, "checklist.list", err))
		return
	}
	items := make([]checklistItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, checklistItem{ID: row.ID, Task: row.Task, CreatedAt: row.CreatedAt.UTC()})
	}
	writeJSON(w, http.StatusOK, map[string][]checklistItem{"tasks": items})
}

func isNullJSON(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
