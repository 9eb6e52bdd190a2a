// Package compliance defines core types shared across subsystems.
package compliance

import (
	"encoding/json"
	"time"
)

// MissingBannerIssue is reported when no text on the page mentions both cookies and consent.
const MissingBannerIssue = "Missing GDPR-compliant cookie consent banner"

// ChecklistTask is a free-text to-do item tracked for a business.
type ChecklistTask struct {
	ID         int64     `json:"id"`
	BusinessID string    `json:"business_id"`
	Task       string    `json:"task"`
	CreatedAt  time.Time `json:"created_at"`
}

// ConsentTemplate is the single live consent document stored for a business.
type ConsentTemplate struct {
	BusinessID string          `json:"business_id"`
	Template   json.RawMessage `json:"template_json"`
}

// AuditRequest asks the scraper to inspect one URL on behalf of a business.
type AuditRequest struct {
	BusinessID string `json:"business_id"`
	URL        string `json:"url"`
}

// AuditResult is the scraper's verdict for a single page.
type AuditResult struct {
	AuditDate time.Time `json:"audit_date"`
	Issues    []string  `json:"issues"`
}

// Passed reports whether the audit found no issues.
func (r AuditResult) Passed() bool {
	return len(r.Issues) == 0
}

// FetchRequest describes a page retrieval performed by the scraper.
type FetchRequest struct {
	URL string
}

// FetchResponse is the raw page returned by a Fetcher.
type FetchResponse struct {
	URL        string
	StatusCode int
	Body       []byte
	Duration   time.Duration
	Rendered   bool
}
