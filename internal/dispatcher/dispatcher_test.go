package dispatcher

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/compliance-gateway/internal/compliance"
	"github.com/JakeFAU/compliance-gateway/internal/metrics"
)

func init() {
	metrics.Init()
}

func TestDispatchRelaysVerdict(t *testing.T) {
	t.Parallel()

	var got compliance.AuditRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"audit_date":"2024-04-01T10:00:00Z","issues":["Missing GDPR-compliant cookie consent banner"]}`))
	}))
	defer srv.Close()

	d, err := New(Config{Endpoint: srv.URL}, srv.Client(), nil)
	require.NoError(t, err)

	res, err := d.Dispatch(context.Background(), compliance.AuditRequest{BusinessID: "biz-1", URL: "https://shop.example"})
	require.NoError(t, err)
	assert.Equal(t, compliance.AuditRequest{BusinessID: "biz-1", URL: "https://shop.example"}, got)
	assert.Equal(t, []string{compliance.MissingBannerIssue}, res.Issues)
	assert.True(t, res.AuditDate.Equal(time.Date(2024, 4, 1, 10, 0, 0, 0, time.UTC)))
}

func TestDispatchUndecodableBodyIsSuccess(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	d, err := New(Config{Endpoint: srv.URL}, nil, nil)
	require.NoError(t, err)

	res, err := d.Dispatch(context.Background(), compliance.AuditRequest{BusinessID: "b", URL: "u"})
	require.NoError(t, err)
	assert.Empty(t, res.Issues)
}

func TestDispatchFailuresAreDispatchErrors(t *testing.T) {
	t.Parallel()

	unavailable := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	// Subtests run in parallel after this function returns; servers must
	// outlive them.
	t.Cleanup(unavailable.Close)

	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(slow.Close)

	closed := httptest.NewServer(http.NotFoundHandler())
	unreachable := closed.URL
	closed.Close()

	tests := []struct {
		name      string
		endpoint  string
		timeout   time.Duration
		wantCause string
	}{
		{"service unavailable", unavailable.URL, time.Second, "returned 503: overloaded"},
		{"unreachable", unreachable, time.Second, "connection refused"},
		{"timeout", slow.URL, 50 * time.Millisecond, context.DeadlineExceeded.Error()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			d, err := New(Config{Endpoint: tt.endpoint, Timeout: tt.timeout}, nil, nil)
			require.NoError(t, err)

			_, err = d.Dispatch(context.Background(), compliance.AuditRequest{BusinessID: "b", URL: "https://x.example"})
			require.Error(t, err)
			assert.Equal(t, compliance.KindDispatch, compliance.KindOf(err))

			var ce *compliance.Error
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, "Audit failed", ce.Public())
			require.Error(t, ce.Err)
			assert.Contains(t, ce.Err.Error(), tt.wantCause)
		})
	}
}

func TestNewRequiresEndpoint(t *testing.T) {
	t.Parallel()

	_, err := New(Config{}, nil, nil)
	require.Error(t, err)
}
