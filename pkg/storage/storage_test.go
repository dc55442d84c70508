package storage

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMemoryStore(t *testing.T) {
	var fs FileStore = NewMemoryStore("http://files.local")
	ctx := context.Background()

	require.NoError(t, fs.Upload(ctx, "events/1/a.jpg", strings.NewReader("jpeg"), 4, "image/jpeg"))
	assert.Equal(t, "http://files.local/events/1/a.jpg", fs.PublicURL("events/1/a.jpg"))

	b, ok := fs.(*MemoryStore).Get("events/1/a.jpg")
	require.True(t, ok)
	assert.Equal(t, []byte("jpeg"), b)

	require.NoError(t, fs.Delete(ctx, "events/1/a.jpg"))
	_, ok = fs.(*MemoryStore).Get("events/1/a.jpg")
	assert.False(t, ok)
}

func TestCloudflareStorageAgainstS3CompatibleServer(t *testing.T) {
	var (
		mu      sync.Mutex
		methods []string
		paths   []string
		body    []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		methods = append(methods, r.Method)
		paths = append(paths, r.URL.Path)
		if r.Method == http.MethodPut {
			body, _ = io.ReadAll(r.Body)
		}
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s, err := NewCloudflareStorage(context.Background(), R2Config{
		AccessKeyID:     "key",
		SecretAccessKey: "secret",
		Bucket:          "photos",
		PublicURL:       "https://cdn.example.com/",
		Endpoint:        srv.URL,
	}, zap.NewNop())
	require.NoError(t, err)

	payload := []byte("image-bytes")
	require.NoError(t, s.Upload(context.Background(), "events/7/x.png", bytes.NewReader(payload), int64(len(payload)), "image/png"))
	require.NoError(t, s.Delete(context.Background(), "events/7/x.png"))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{http.MethodPut, http.MethodDelete}, methods)
	assert.Equal(t, "/photos/events/7/x.png", paths[0])
	assert.Contains(t, string(body), "image-bytes")
	assert.Equal(t, "https://cdn.example.com/events/7/x.png", s.PublicURL("events/7/x.png"))
}

func TestCloudflareStorageRequiresBucket(t *testing.T) {
	_, err := NewCloudflareStorage(context.Background(), R2Config{}, zap.NewNop())
	assert.Error(t, err)
}
