package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/erp/pdfkit/internal/infrastructure/config"
)

func testConfig(endpoint string) *config.StorageConfig {
	return &config.StorageConfig{
		Bucket:       "pdf-artifacts",
		AccessKey:    "test-key",
		SecretKey:    "test-secret",
		Region:       "us-east-1",
		Endpoint:     endpoint,
		UsePathStyle: true,
	}
}

func TestNewS3Mirror_Validation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.StorageConfig
		wantErr string
	}{
		{"nil config", nil, "configuration is required"},
		{"missing bucket", &config.StorageConfig{AccessKey: "k", SecretKey: "s"}, "bucket is required"},
		{"missing access key", &config.StorageConfig{Bucket: "b", SecretKey: "s"}, "access key is required"},
		{"missing secret key", &config.StorageConfig{Bucket: "b", AccessKey: "k"}, "secret key is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewS3Mirror(tt.cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	t.Run("valid config uses defaults", func(t *testing.T) {
		cfg := testConfig("")
		cfg.Region = ""
		mirror, err := NewS3Mirror(cfg)
		require.NoError(t, err)
		assert.Equal(t, "pdf-artifacts", mirror.Bucket())
		assert.Equal(t, 15*time.Minute, mirror.presignExpiration)
	})

	t.Run("options override config", func(t *testing.T) {
		logger := zaptest.NewLogger(t)
		mirror, err := NewS3Mirror(testConfig(""), WithLogger(logger), WithPresignExpiration(time.Hour))
		require.NoError(t, err)
		assert.Same(t, logger, mirror.logger)
		assert.Equal(t, time.Hour, mirror.presignExpiration)
	})
}

func TestNormalizeEndpoint(t *testing.T) {
	tests := []struct {
		endpoint string
		useSSL   bool
		want     string
	}{
		{"", false, "http://localhost:9000"},
		{"minio:9000", false, "http://minio:9000"},
		{"minio:9000", true, "https://minio:9000"},
		{"https://s3.eu-west-1.amazonaws.com", false, "https://s3.eu-west-1.amazonaws.com"},
	}
	for _, tt := range tests {
		got, err := normalizeEndpoint(tt.endpoint, tt.useSSL)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestS3Mirror_EmptyKey(t *testing.T) {
	mirror, err := NewS3Mirror(testConfig(""))
	require.NoError(t, err)
	ctx := context.Background()

	assert.Error(t, mirror.Upload(ctx, "", []byte("x"), "application/pdf"))
	assert.Error(t, mirror.DeleteObject(ctx, ""))
	_, err = mirror.ObjectExists(ctx, "")
	assert.Error(t, err)
	_, _, err = mirror.GenerateDownloadURL(ctx, "", 0)
	assert.Error(t, err)
}

func TestS3Mirror_GenerateDownloadURL(t *testing.T) {
	mirror, err := NewS3Mirror(testConfig("http://localhost:9000"))
	require.NoError(t, err)

	before := time.Now()
	url, expiresAt, err := mirror.GenerateDownloadURL(context.Background(), "invoice/a.pdf", 0)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(url, "http://localhost:9000/pdf-artifacts/invoice/a.pdf?"), url)
	assert.Contains(t, url, "X-Amz-Signature=")
	assert.Contains(t, url, "X-Amz-Expires=900")
	assert.WithinDuration(t, before.Add(15*time.Minute), expiresAt, 5*time.Second)
}

// fakeS3 records the requests of an S3 client in path-style mode
type fakeS3 struct {
	mu       sync.Mutex
	requests []recordedRequest
	objects  map[string]bool
}

type recordedRequest struct {
	Method      string
	Path        string
	ContentType string
}

func newFakeS3(t *testing.T) (*fakeS3, *httptest.Server) {
	f := &fakeS3{objects: make(map[string]bool)}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)

		f.mu.Lock()
		defer f.mu.Unlock()
		f.requests = append(f.requests, recordedRequest{r.Method, r.URL.Path, r.Header.Get("Content-Type")})

		switch r.Method {
		case http.MethodPut:
			f.objects[r.URL.Path] = true
			w.WriteHeader(http.StatusOK)
		case http.MethodDelete:
			delete(f.objects, r.URL.Path)
			w.WriteHeader(http.StatusNoContent)
		case http.MethodHead:
			if f.objects[r.URL.Path] {
				w.WriteHeader(http.StatusOK)
				return
			}
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeS3) last() recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func TestS3Mirror_ObjectLifecycle(t *testing.T) {
	fake, srv := newFakeS3(t)
	mirror, err := NewS3Mirror(testConfig(srv.URL))
	require.NoError(t, err)
	ctx := context.Background()

	exists, err := mirror.ObjectExists(ctx, "invoice/a.pdf")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, mirror.Upload(ctx, "invoice/a.pdf", []byte("%PDF-1.4"), "application/pdf"))
	put := fake.last()
	assert.Equal(t, http.MethodPut, put.Method)
	assert.Equal(t, "/pdf-artifacts/invoice/a.pdf", put.Path)
	assert.Equal(t, "application/pdf", put.ContentType)

	exists, err = mirror.ObjectExists(ctx, "invoice/a.pdf")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, mirror.DeleteObject(ctx, "invoice/a.pdf"))
	assert.Equal(t, http.MethodDelete, fake.last().Method)

	exists, err = mirror.ObjectExists(ctx, "invoice/a.pdf")
	require.NoError(t, err)
	assert.False(t, exists)
}
