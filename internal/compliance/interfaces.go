package compliance

import (
	"context"
	"encoding/json"
	"time"
)

// ChecklistStore persists checklist tasks.
type ChecklistStore interface {
	// AddTask inserts a task and returns the stored row with its assigned id and timestamp.
	AddTask(ctx context.Context, businessID, task string) (ChecklistTask, error)
	// ListTasks returns every task for businessID, newest first.
	ListTasks(ctx context.Context, businessID string) ([]ChecklistTask, error)
}

// ConsentStore keeps one consent document per business.
type ConsentStore interface {
	PutTemplate(ctx context.Context, businessID string, template json.RawMessage) error
	GetTemplate(ctx context.Context, businessID string) (ConsentTemplate, error)
}

// BlobStore writes and reads raw objects and returns a URI for writes.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data []byte) (string, error)
	GetObject(ctx context.Context, path string) ([]byte, error)
}

// AuditDispatcher forwards audit requests to the remote scraper.
type AuditDispatcher interface {
	Dispatch(ctx context.Context, req AuditRequest) (AuditResult, error)
}

// Fetcher fetches a URL and returns the body plus metadata.
type Fetcher interface {
	Fetch(ctx context.Context, request FetchRequest) (FetchResponse, error)
}

// Detector inspects a fetched page and lists compliance issues.
type Detector interface {
	Issues(body []byte) ([]string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}
