package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/Adams521/everything-gift/internal/config"
	"github.com/Adams521/everything-gift/internal/logging"
)

// fallbackOllamaHosts are probed in order when the configured base URL does not answer
var fallbackOllamaHosts = []string{
	"http://ollama:11434",               // docker compose service name
	"http://host.docker.internal:11434", // Docker Desktop
	"http://172.17.0.1:11434",           // default docker bridge gateway on Linux
	"http://localhost:11434",
}

// OllamaClient calls a local Ollama server's generate API
type OllamaClient struct {
	baseURL    string
	model      string
	maxTokens  int
	enabled    bool
	httpClient *http.Client
}

// NewOllamaClient creates a client; call Connect before sharing it to verify reachability
func NewOllamaClient(cfg *config.AIConfig) *OllamaClient {
	return &OllamaClient{
		baseURL:   cfg.BaseURL,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		enabled:   cfg.Enabled,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// IsEnabled returns whether the client is configured and reachable
func (c *OllamaClient) IsEnabled() bool {
	return c.enabled
}

// BaseURL returns the base URL in use after Connect
func (c *OllamaClient) BaseURL() string {
	return c.baseURL
}

// Connect probes the configured base URL, then the well-known fallback hosts.
// When nothing answers the client disables itself and every later call degrades.
func (c *OllamaClient) Connect(ctx context.Context) bool {
	if !c.enabled {
		logging.Info().Msg("Ollama is disabled by configuration")
		return false
	}

	candidates := append([]string{c.baseURL}, fallbackOllamaHosts...)
	for i, base := range candidates {
		if i > 0 && base == c.baseURL {
			continue
		}
		if err := c.ping(ctx, base); err != nil {
			logging.Debug().Str("base_url", base).Err(err).Msg("Ollama probe failed")
			continue
		}
		if base != c.baseURL {
			logging.Info().Str("base_url", base).Msg("Connected to Ollama via fallback address")
		}
		c.baseURL = base
		return true
	}

	logging.Warn().Str("base_url", c.baseURL).Msg("All Ollama connection attempts failed, using rule-based fallback")
	c.enabled = false
	return false
}

func (c *OllamaClient) ping(ctx context.Context, base string) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/api/tags", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

// ollamaGenerateRequest is the body of POST /api/generate
type ollamaGenerateRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaGenerateResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

// Generate performs one non-streaming generation
func (c *OllamaClient) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	if !c.enabled {
		return "", ErrAIDisabled
	}

	maxTokens := opts.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.maxTokens
	}

	reqBody, err := json.Marshal(ollamaGenerateRequest{
		Model:  c.model,
		Prompt: prompt,
		Options: ollamaOptions{
			Temperature: opts.Temperature,
			TopP:        opts.TopP,
			NumPredict:  maxTokens,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var result ollamaGenerateResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if result.Error != "" {
		return "", fmt.Errorf("ollama error: %s", result.Error)
	}

	return result.Response, nil
}
