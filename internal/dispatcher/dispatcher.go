// Package dispatcher forwards audit requests to the remote audit scraper.
package dispatcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/compliance-gateway/internal/compliance"
	"github.com/JakeFAU/compliance-gateway/internal/metrics"
)

const (
	op            = "audit.dispatch"
	failedMessage = "Audit failed"
	// maxErrorBody caps how much of a failed response is kept for logs.
	maxErrorBody = 4 << 10
)

// Config controls the outbound call.
type Config struct {
	Endpoint string
	Timeout  time.Duration
}

// Dispatcher posts audit requests to the scraper endpoint. It makes exactly
// one attempt per request.
type Dispatcher struct {
	endpoint string
	timeout  time.Duration
	client   *http.Client
	logger   *zap.Logger
}

// New creates a Dispatcher. A nil client uses a dedicated http.Client.
func New(cfg Config, client *http.Client, logger *zap.Logger) (*Dispatcher, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("audit endpoint is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if client == nil {
		client = &http.Client{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		endpoint: cfg.Endpoint,
		timeout:  cfg.Timeout,
		client:   client,
		logger:   logger,
	}, nil
}

// Dispatch sends req and returns the scraper's verdict. Every failure,
// whether network, timeout or non-2xx, is a KindDispatch error carrying the
// fixed message "Audit failed". A 2xx response whose body does not decode is
// still a success with a zero AuditResult.
func (d *Dispatcher) Dispatch(ctx context.Context, req compliance.AuditRequest) (compliance.AuditResult, error) {
	start := time.Now()
	result, err := d.dispatch(ctx, req)
	metrics.ObserveAuditDispatch(metrics.Outcome(err), time.Since(start))
	if err != nil {
		d.logger.Error("audit dispatch failed",
			zap.String("business_id", req.BusinessID),
			zap.String("url", req.URL),
			zap.Error(err),
		)
		return compliance.AuditResult{}, compliance.WrapMessage(compliance.KindDispatch, op, failedMessage, err)
	}
	d.logger.Info("audit dispatched",
		zap.String("business_id", req.BusinessID),
		zap.String("url", req.URL),
		zap.Int("issues", len(result.Issues)),
		zap.Duration("duration", time.Since(start)),
	)
	return result, nil
}

func (d *Dispatcher) dispatch(ctx context.Context, req compliance.AuditRequest) (compliance.AuditResult, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return compliance.AuditResult{}, fmt.Errorf("encode audit request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(payload))
	if err != nil {
		return compliance.AuditResult{}, fmt.Errorf("build audit request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := d.client.Do(httpReq)
	if err != nil {
		return compliance.AuditResult{}, fmt.Errorf("call audit endpoint: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return compliance.AuditResult{}, fmt.Errorf("audit endpoint returned %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}

	var result compliance.AuditResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		d.logger.Warn("audit verdict not decodable", zap.String("business_id", req.BusinessID), zap.Error(err))
		return compliance.AuditResult{}, nil
	}
	return result, nil
}
