// Package clip is an HTTP client for a CLIP inference server. The server
// exposes two endpoints that return vectors in the same joint space:
//
//	POST /embed/image  {"image": "<base64>", "filename": "cat.jpg"}
//	POST /embed/text   {"text": "a cat on a sofa"}
//
// and answers both with {"embedding": [..]}.
package clip

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Bella2013quq/Local-Multimodal-AI-Agent/internal/llm"
	"github.com/Bella2013quq/Local-Multimodal-AI-Agent/internal/version"
)

// Compile-time interface check.
var _ llm.VisualEmbedder = (*Client)(nil)

const (
	DefaultEndpoint   = "http://127.0.0.1:8765"
	DefaultMaxTextLen = 77
	defaultTimeout    = 30 * time.Second
	maxRetries        = 3
)

// Client implements llm.VisualEmbedder over HTTP.
type Client struct {
	endpoint   string
	maxTextLen int
	client     *http.Client
	backoff    time.Duration // base delay, doubled per retry
}

// New creates a CLIP client. Zero values select defaults.
func New(endpoint string, timeout time.Duration, maxTextLen int) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if maxTextLen <= 0 {
		maxTextLen = DefaultMaxTextLen
	}
	return &Client{
		endpoint:   strings.TrimRight(endpoint, "/"),
		maxTextLen: maxTextLen,
		client:     &http.Client{Timeout: timeout},
		backoff:    time.Second,
	}
}

// EmbedImage reads the image at path and returns its visual vector.
func (c *Client) EmbedImage(ctx context.Context, path string) ([]float32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("clip embed image: %w", err)
	}
	req := imageRequest{
		Image:    base64.StdEncoding.EncodeToString(data),
		Filename: filepath.Base(path),
	}
	vec, err := c.post(ctx, "/embed/image", req)
	if err != nil {
		return nil, fmt.Errorf("clip embed image: %w", err)
	}
	return vec, nil
}

// EmbedTextForVisual embeds text into the visual space. Text longer than the
// model's context is truncated.
func (c *Client) EmbedTextForVisual(ctx context.Context, text string) ([]float32, error) {
	vec, err := c.post(ctx, "/embed/text", textRequest{Text: truncate(text, c.maxTextLen)})
	if err != nil {
		return nil, fmt.Errorf("clip embed text: %w", err)
	}
	return vec, nil
}

func (c *Client) post(ctx context.Context, route string, payload interface{}) ([]float32, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	var resp embedResponse
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(math.Pow(2, float64(attempt-1))) * c.backoff
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+route, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", version.UserAgent())

		httpResp, err := c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			continue
		}

		respBody, err := io.ReadAll(httpResp.Body)
		httpResp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		if httpResp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("server error %d: %s", httpResp.StatusCode, strings.TrimSpace(string(respBody)))
			if httpResp.StatusCode >= 400 && httpResp.StatusCode < 500 && httpResp.StatusCode != http.StatusTooManyRequests {
				return nil, lastErr
			}
			continue
		}

		if err := json.Unmarshal(respBody, &resp); err != nil {
			return nil, fmt.Errorf("unmarshal response: %w", err)
		}
		lastErr = nil
		break
	}

	if lastErr != nil {
		return nil, lastErr
	}
	if len(resp.Embedding) == 0 {
		return nil, llm.ErrEmptyEmbedding
	}
	return resp.Embedding, nil
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

type imageRequest struct {
	Image    string `json:"image"`
	Filename string `json:"filename"`
}

type textRequest struct {
	Text string `json:"text"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}
