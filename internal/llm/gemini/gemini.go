// Package gemini adapts the Google Generative AI SDK to the llm interfaces.
// Every call goes through a rate limiter and a circuit breaker so a failing
// or throttled API degrades ingestion instead of stalling it.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/generative-ai-go/genai"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"

	"github.com/Bella2013quq/Local-Multimodal-AI-Agent/internal/llm"
)

const (
	DefaultChatModel  = "gemini-2.5-flash"
	DefaultEmbedModel = "text-embedding-004"
	defaultRPM        = 60
	defaultTimeout    = 60 * time.Second
)

// ErrMissingAPIKey is returned by New when no key is configured.
var ErrMissingAPIKey = errors.New("gemini: missing API key")

// Config holds client settings.
type Config struct {
	APIKey            string
	ChatModel         string
	EmbedModel        string
	RequestsPerMinute int
	Timeout           time.Duration
}

// Client implements llm.TextEmbedder and llm.Generator.
type Client struct {
	client     *genai.Client
	chat       *genai.GenerativeModel
	embed      *genai.EmbeddingModel
	embedModel string
	breaker    *gobreaker.CircuitBreaker
	limiter    *rate.Limiter
	timeout    time.Duration
}

var (
	_ llm.TextEmbedder = (*Client)(nil)
	_ llm.Generator    = (*Client)(nil)
)

// New creates a Gemini client.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	cfg = withDefaults(cfg)

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}

	embed := client.EmbeddingModel(cfg.EmbedModel)
	embed.TaskType = genai.TaskTypeSemanticSimilarity

	c := newGuarded(cfg)
	c.client = client
	c.chat = client.GenerativeModel(cfg.ChatModel)
	c.embed = embed
	return c, nil
}

func withDefaults(cfg Config) Config {
	if cfg.ChatModel == "" {
		cfg.ChatModel = DefaultChatModel
	}
	if cfg.EmbedModel == "" {
		cfg.EmbedModel = DefaultEmbedModel
	}
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = defaultRPM
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return cfg
}

// newGuarded builds a Client with its limiter and breaker but no SDK handle.
func newGuarded(cfg Config) *Client {
	burst := cfg.RequestsPerMinute / 10
	if burst < 1 {
		burst = 1
	}
	return &Client{
		embedModel: cfg.EmbedModel,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "gemini",
			MaxRequests: 3,
			Interval:    30 * time.Second,
			Timeout:     60 * time.Second,
			ReadyToTrip: readyToTrip,
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Warn("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
			},
		}),
		limiter: rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), burst),
		timeout: cfg.Timeout,
	}
}

// readyToTrip opens the breaker after at least five requests with a failure
// ratio of 60% or more.
func readyToTrip(counts gobreaker.Counts) bool {
	if counts.Requests < 5 {
		return false
	}
	return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
}

// EmbedModel returns the embedding model name, used as a cache namespace.
func (c *Client) EmbedModel() string {
	return c.embedModel
}

// EmbedText embeds text in the semantic-similarity task space.
func (c *Client) EmbedText(ctx context.Context, text string) ([]float32, error) {
	out, err := c.call(ctx, func(ctx context.Context) (interface{}, error) {
		resp, err := c.embed.EmbedContent(ctx, genai.Text(text))
		if err != nil {
			return nil, err
		}
		if resp == nil || resp.Embedding == nil || len(resp.Embedding.Values) == 0 {
			return nil, llm.ErrEmptyEmbedding
		}
		return resp.Embedding.Values, nil
	})
	if err != nil {
		return nil, fmt.Errorf("gemini embed: %w", err)
	}
	return out.([]float32), nil
}

// Generate answers a text-only prompt.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	return c.generate(ctx, genai.Text(prompt))
}

// GenerateWithImage sends the prompt together with the image at imagePath.
func (c *Client) GenerateWithImage(ctx context.Context, prompt, imagePath string) (string, error) {
	blob, err := loadImage(imagePath)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	return c.generate(ctx, genai.Text(prompt), blob)
}

// DescribeImage asks for a single-paragraph description of the image.
func (c *Client) DescribeImage(ctx context.Context, imagePath string) (string, error) {
	return c.GenerateWithImage(ctx, llm.DescribePrompt, imagePath)
}

func (c *Client) generate(ctx context.Context, parts ...genai.Part) (string, error) {
	out, err := c.call(ctx, func(ctx context.Context) (interface{}, error) {
		resp, err := c.chat.GenerateContent(ctx, parts...)
		if err != nil {
			return nil, err
		}
		return responseText(resp)
	})
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	return out.(string), nil
}

// call applies the per-call timeout, waits on the limiter and runs fn behind
// the circuit breaker.
func (c *Client) call(ctx context.Context, fn func(context.Context) (interface{}, error)) (interface{}, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return c.breaker.Execute(func() (interface{}, error) {
		return fn(ctx)
	})
}

// Close releases the underlying SDK client.
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", llm.ErrEmptyResponse
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", llm.ErrEmptyResponse
	}
	return text, nil
}

func loadImage(path string) (genai.Blob, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return genai.Blob{}, fmt.Errorf("read image: %w", err)
	}
	return genai.ImageData(imageFormat(path), data), nil
}

// imageFormat maps a file extension to the MIME subtype Gemini expects.
func imageFormat(path string) string {
	switch ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")); ext {
	case "jpg", "jpeg":
		return "jpeg"
	case "":
		return "png"
	default:
		return ext
	}
}
