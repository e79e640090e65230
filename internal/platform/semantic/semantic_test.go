package semantic

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PaperSieve/internal/models"
	"PaperSieve/internal/platform"
)

func newClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	cfg := DefaultConfig()
	cfg.APIBase = srv.URL
	cfg.APIKey = "k"
	c, err := New(cfg)
	require.NoError(t, err)
	return c
}

func TestLookup_Found(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/paper/DOI:10.1126/science.abc123", r.URL.Path)
		assert.Equal(t, "k", r.Header.Get("x-api-key"))
		w.Write([]byte(`{"title":"T","abstract":" Light. ","venue":"Science","fieldsOfStudy":["Physics"],"authors":[{"name":"A"}]}`))
	})
	meta, err := c.Lookup(context.Background(), &models.PaperRecord{ID: "10.1126/science.abc123"})
	require.NoError(t, err)
	require.NotNil(t, meta)
	assert.Equal(t, "Light.", meta.Abstract)
	assert.Equal(t, []string{"Physics"}, meta.Categories)
	assert.Equal(t, []string{"A"}, meta.Authors)
}

func TestLookup_NullAbstract(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"title":"T","abstract":null}`))
	})
	meta, err := c.Lookup(context.Background(), &models.PaperRecord{ID: "10.1/x"})
	require.NoError(t, err)
	assert.Nil(t, meta)
}

func TestLookup_NotFound(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	meta, err := c.Lookup(context.Background(), &models.PaperRecord{ID: "10.1/x"})
	require.NoError(t, err)
	assert.Nil(t, meta)
}

func TestLookup_RateLimitedIsTransient(t *testing.T) {
	old := platform.RetryConfig
	platform.RetryConfig.InitialDelay = time.Millisecond
	platform.RetryConfig.MaxDelay = time.Millisecond
	t.Cleanup(func() { platform.RetryConfig = old })

	calls := 0
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusTooManyRequests)
	})
	_, err := c.Lookup(context.Background(), &models.PaperRecord{ID: "10.1/x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrTransient)
	assert.Equal(t, 3, calls)
}
