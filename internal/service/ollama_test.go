package service

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adams521/everything-gift/internal/config"
)

func ollamaConfig(baseURL string) *config.AIConfig {
	return &config.AIConfig{
		Provider:  "ollama",
		Enabled:   true,
		BaseURL:   baseURL,
		Model:     "qwen3:4b",
		Timeout:   5 * time.Second,
		MaxTokens: 256,
	}
}

func TestOllamaClient_Generate(t *testing.T) {
	var got ollamaGenerateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/generate", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model":"qwen3:4b","response":"{\"sort_by\":\"relevance\"}","done":true}`))
	}))
	defer server.Close()

	client := NewOllamaClient(ollamaConfig(server.URL))
	out, err := client.Generate(context.Background(), "分析", GenerateOptions{Temperature: 0.3, TopP: 0.9})
	require.NoError(t, err)

	assert.Equal(t, `{"sort_by":"relevance"}`, out)
	assert.Equal(t, "qwen3:4b", got.Model)
	assert.Equal(t, "分析", got.Prompt)
	assert.False(t, got.Stream)
	assert.Equal(t, 0.3, got.Options.Temperature)
	assert.Equal(t, 0.9, got.Options.TopP)
	assert.Equal(t, 256, got.Options.NumPredict)
}

func TestOllamaClient_Errors(t *testing.T) {
	t.Run("HTTP error status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "model not found", http.StatusNotFound)
		}))
		defer server.Close()

		_, err := NewOllamaClient(ollamaConfig(server.URL)).Generate(context.Background(), "x", GenerateOptions{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "404")
	})

	t.Run("Error field", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"error":"out of memory"}`))
		}))
		defer server.Close()

		_, err := NewOllamaClient(ollamaConfig(server.URL)).Generate(context.Background(), "x", GenerateOptions{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "out of memory")
	})

	t.Run("Disabled", func(t *testing.T) {
		cfg := ollamaConfig("http://127.0.0.1:1")
		cfg.Enabled = false
		_, err := NewOllamaClient(cfg).Generate(context.Background(), "x", GenerateOptions{})
		assert.ErrorIs(t, err, ErrAIDisabled)
	})
}

func TestOllamaClient_Connect(t *testing.T) {
	t.Run("Configured host answers", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/tags", r.URL.Path)
			_, _ = w.Write([]byte(`{"models":[]}`))
		}))
		defer server.Close()

		client := NewOllamaClient(ollamaConfig(server.URL))
		assert.True(t, client.Connect(context.Background()))
		assert.True(t, client.IsEnabled())
		assert.Equal(t, server.URL, client.BaseURL())
	})

	t.Run("Falls back to the next host", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"models":[]}`))
		}))
		defer server.Close()

		saved := fallbackOllamaHosts
		fallbackOllamaHosts = []string{"http://127.0.0.1:1", server.URL}
		defer func() { fallbackOllamaHosts = saved }()

		client := NewOllamaClient(ollamaConfig("http://127.0.0.1:1"))
		assert.True(t, client.Connect(context.Background()))
		assert.Equal(t, server.URL, client.BaseURL())
	})

	t.Run("Nothing answers disables the client", func(t *testing.T) {
		saved := fallbackOllamaHosts
		fallbackOllamaHosts = []string{"http://127.0.0.1:1"}
		defer func() { fallbackOllamaHosts = saved }()

		client := NewOllamaClient(ollamaConfig("http://127.0.0.1:1"))
		assert.False(t, client.Connect(context.Background()))
		assert.False(t, client.IsEnabled())
	})
}
