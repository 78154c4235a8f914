package embedder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/reelstack/recoserve/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(serverURL string, retryMax int) *HTTPClient {
	c := NewHTTPClient(serverURL, "tower", 4, time.Second, 1000, retryMax)
	return c
}

// ==================== happy path ====================

func TestEmbedSuccess(t *testing.T) {
	var gotReq embedRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/predictions/tower", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		json.NewEncoder(w).Encode(embedResponse{Embedding: []float32{0.1, 0.2, 0.3, 0.4}})
	}))
	defer server.Close()

	c := newTestClient(server.URL, 0)
	vector, err := c.Embed(context.Background(), 42, []int64{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3, 0.4}, vector)
	assert.Equal(t, int64(42), gotReq.SubjectID)
	assert.Equal(t, []int64{1, 2, 3}, gotReq.ItemSequence)
}

// ==================== error taxonomy ====================

func TestEmbed4xxIsPermanentAndNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "unknown subject", http.StatusBadRequest)
	}))
	defer server.Close()

	c := newTestClient(server.URL, 3)
	_, err := c.Embed(context.Background(), 1, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrPermanentInput)
	assert.Equal(t, int32(1), calls.Load())
}

func TestEmbed5xxRetriesThenModelUnavailable(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	c := newTestClient(server.URL, 2)
	_, err := c.Embed(context.Background(), 1, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrModelUnavailable)
	assert.Equal(t, int32(3), calls.Load())
}

func TestEmbed5xxRecoversOnRetry(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "warming up", http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(embedResponse{Embedding: []float32{1, 0, 0, 0}})
	}))
	defer server.Close()

	c := newTestClient(server.URL, 2)
	vector, err := c.Embed(context.Background(), 1, nil)
	require.NoError(t, err)
	assert.Len(t, vector, 4)
	assert.Equal(t, int32(2), calls.Load())
}

func TestEmbedUnreachableServerIsModelUnavailable(t *testing.T) {
	c := newTestClient("http://127.0.0.1:1", 0)
	_, err := c.Embed(context.Background(), 1, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrModelUnavailable)
}

func TestEmbedDimensionMismatchIsPermanent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(embedResponse{Embedding: []float32{1, 2}})
	}))
	defer server.Close()

	c := newTestClient(server.URL, 3)
	_, err := c.Embed(context.Background(), 1, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrPermanentInput)
}

func TestEmbedCancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := newTestClient(server.URL, 5)
	_, err := c.Embed(ctx, 1, nil)
	require.Error(t, err)
}
