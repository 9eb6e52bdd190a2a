package gcs

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"cloud.google.com/go/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/JakeFAU/compliance-gateway/internal/compliance"
)

const testBucket = "consent-templates"

// newTestStore creates a BlobStore pointed at a test server.
func newTestStore(t *testing.T, handler http.Handler) *BlobStore {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := storage.NewClient(context.Background(), option.WithEndpoint(server.URL), option.WithoutAuthentication())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	store, err := New(client, Config{Bucket: testBucket})
	require.NoError(t, err)
	return store
}

func TestNewValidatesInputs(t *testing.T) {
	t.Parallel()

	_, err := New(nil, Config{Bucket: testBucket})
	require.Error(t, err)

	client, err := storage.NewClient(context.Background(), option.WithoutAuthentication())
	require.NoError(t, err)
	defer client.Close() //nolint:errcheck
	_, err = New(client, Config{})
	require.Error(t, err)
}

func TestPutObjectUploadsJSON(t *testing.T) {
	t.Parallel()

	objectName := "biz-1/consent.json"
	payload := []byte(`{"banner":"on"}`)

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, fmt.Sprintf("/upload/storage/v1/b/%s/o", testBucket))
		assert.Equal(t, objectName, r.URL.Query().Get("name"))
		assert.Equal(t, "multipart", r.URL.Query().Get("uploadType"))

		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.Contains(t, string(body), string(payload))
		assert.Contains(t, string(body), "application/json")

		fmt.Fprintf(w, `{"name":%q,"bucket":%q}`, objectName, testBucket)
	})

	store := newTestStore(t, handler)
	uri, err := store.PutObject(context.Background(), objectName, "application/json", payload)
	require.NoError(t, err)
	assert.Equal(t, "gs://consent-templates/biz-1/consent.json", uri)
}

func TestPutObjectServerError(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	store := newTestStore(t, handler)
	_, err := store.PutObject(context.Background(), "biz/consent.json", "application/json", []byte("{}"))
	assert.Error(t, err)
}

func TestPutObjectRequiresPath(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, http.NotFoundHandler())
	_, err := store.PutObject(context.Background(), " ", "application/json", []byte("{}"))
	assert.Error(t, err)
}

func TestGetObject(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.String(), "present") {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"v":2}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})

	store := newTestStore(t, handler)

	got, err := store.GetObject(context.Background(), "present/consent.json")
	require.NoError(t, err)
	assert.Equal(t, `{"v":2}`, string(got))

	_, err = store.GetObject(context.Background(), "absent/consent.json")
	assert.ErrorIs(t, err, compliance.ErrNotFound)
}
