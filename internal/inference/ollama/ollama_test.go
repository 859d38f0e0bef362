package ollama

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grantalign/internal/inference"
)

func TestInfer_NativeResponse(t *testing.T) {
	var got generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = io.WriteString(w, `{"model":"m","response":"Partly.","done":true}`)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL + "/", Model: "m"})
	out, err := c.Infer(context.Background(), "Q\nAnswer:", 250)
	require.NoError(t, err)
	assert.Equal(t, "Partly.", out)
	assert.Equal(t, "Q\nAnswer:", got.Prompt)
	assert.Equal(t, 250, got.Options.NumPredict)
	assert.False(t, got.Stream)
}

func TestInfer_CompatibleFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"choices":[{"text":"From llama.cpp"}]}`)
	}))
	defer srv.Close()

	out, err := NewClient(Config{BaseURL: srv.URL}).Infer(context.Background(), "q", 5)
	require.NoError(t, err)
	assert.Equal(t, "From llama.cpp", out)
}

func TestInfer_StatusClassification(t *testing.T) {
	status := http.StatusServiceUnavailable
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))
	defer srv.Close()
	c := NewClient(Config{BaseURL: srv.URL})

	_, err := c.Infer(context.Background(), "q", 5)
	assert.ErrorIs(t, err, inference.ErrTransient)

	status = http.StatusNotFound
	_, err = c.Infer(context.Background(), "q", 5)
	require.Error(t, err)
	assert.NotErrorIs(t, err, inference.ErrTransient)
}

func TestInfer_ModelError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"error":"model 'x' not found"}`)
	}))
	defer srv.Close()

	_, err := NewClient(Config{BaseURL: srv.URL}).Infer(context.Background(), "q", 5)
	assert.ErrorContains(t, err, "not found")
}

func TestInfer_RetriedThroughDecorator(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = io.WriteString(w, `{"response":"second time lucky"}`)
	}))
	defer srv.Close()

	r := inference.NewRetrying(NewClient(Config{BaseURL: srv.URL}), 2, nil)
	out, err := r.Infer(context.Background(), "q", 5)
	require.NoError(t, err)
	assert.Equal(t, "second time lucky", out)
	assert.Equal(t, 2, calls)
}
