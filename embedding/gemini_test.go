package embedding

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T, endpoint string, dimension int) *GeminiClient {
	t.Helper()
	client, err := NewGeminiClient(GeminiConfig{
		Endpoint:  endpoint,
		APIKey:    "test-key",
		Dimension: dimension,
		Timeout:   2 * time.Second,
	})
	if err != nil {
		t.Fatalf("NewGeminiClient failed: %v", err)
	}
	return client
}

func TestGeminiEmbedNormalizes(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("x-goog-api-key"); got != "test-key" {
			t.Errorf("api key header = %q", got)
		}
		var req geminiRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		if req.TaskType != "RETRIEVAL_DOCUMENT" {
			t.Errorf("task type = %q", req.TaskType)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"embedding": map[string]interface{}{"values": []float64{3, 4, 0}},
		})
	})

	client := newTestClient(t, srv.URL, 3)
	vec, err := client.Embed(context.Background(), "indemnity clause")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	if math.Abs(norm-1) > 1e-9 {
		t.Errorf("vector norm = %f, want 1", math.Sqrt(norm))
	}
	if math.Abs(vec[0]-0.6) > 1e-9 || math.Abs(vec[1]-0.8) > 1e-9 {
		t.Errorf("vector = %v, want [0.6 0.8 0]", vec)
	}
}

func TestGeminiEmbedRetriesTransientErrors(t *testing.T) {
	var attempts int64
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt64(&attempts, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"embedding": map[string]interface{}{"values": []float64{1, 0}},
		})
	})

	client := newTestClient(t, srv.URL, 2)
	if _, err := client.Embed(context.Background(), "text"); err != nil {
		t.Fatalf("Embed failed after retries: %v", err)
	}
	if got := atomic.LoadInt64(&attempts); got != 3 {
		t.Errorf("attempts = %d, want 3", got)
	}
}

func TestGeminiEmbedDoesNotRetryBadRequest(t *testing.T) {
	var attempts int64
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&attempts, 1)
		w.WriteHeader(http.StatusBadRequest)
	})

	client := newTestClient(t, srv.URL, 2)
	if _, err := client.Embed(context.Background(), "text"); err == nil {
		t.Fatal("Embed succeeded, want error")
	}
	if got := atomic.LoadInt64(&attempts); got != 1 {
		t.Errorf("attempts = %d, want 1", got)
	}
}

func TestGeminiEmbedRejectsDimensionMismatch(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"embedding": map[string]interface{}{"values": []float64{1, 0, 0}},
		})
	})

	client := newTestClient(t, srv.URL, 2)
	if _, err := client.Embed(context.Background(), "text"); err == nil {
		t.Fatal("Embed succeeded with mismatched dimension, want error")
	}
}

func TestGeminiEmbedHonorsContextCancellation(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	client := newTestClient(t, srv.URL, 2)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := client.Embed(ctx, "text"); err == nil {
		t.Fatal("Embed succeeded with canceled context, want error")
	}
}

func TestGeminiClientID(t *testing.T) {
	client := newTestClient(t, "http://localhost", 768)
	want := "gemini:models/gemini-embedding-001:768"
	if got := client.ID(); got != want {
		t.Errorf("ID() = %q, want %q", got, want)
	}
}

func TestNewGeminiClientRequiresAPIKey(t *testing.T) {
	if _, err := NewGeminiClient(GeminiConfig{}); err == nil {
		t.Fatal("NewGeminiClient without API key succeeded, want error")
	}
}
