// Package geminiengine provides a real ProviderClient backed by Gemini's
// URL-context generation. It is wired into the router only when an API key
// is configured; the stub package otherwise stands in for it.
package geminiengine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"golang.org/x/time/rate"

	"github.com/parsehub/parsehub/internal/common"
	"github.com/parsehub/parsehub/internal/interfaces"
	"github.com/parsehub/parsehub/internal/models"
)

const (
	// DefaultModel is the Gemini model used for timetable extraction.
	DefaultModel = "gemini-3-flash-preview"
	// DefaultRateLimit caps outbound calls to Gemini, independent of the
	// router's own admission quota — this paces the HTTP traffic itself.
	DefaultRateLimit = 5 // requests per second
)

// Client implements interfaces.ProviderClient against the real Gemini API.
type Client struct {
	client  *genai.Client
	model   string
	limiter *rate.Limiter
	logger  *common.Logger
}

// ClientOption configures the client.
type ClientOption func(*Client)

// WithModel overrides the Gemini model used for generation.
func WithModel(model string) ClientOption {
	return func(c *Client) { c.model = model }
}

// WithLogger attaches a logger for request tracing.
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) { c.logger = logger }
}

// WithRateLimit overrides the outbound requests-per-second cap.
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// NewClient creates a Gemini-backed provider client.
func NewClient(ctx context.Context, apiKey string, opts ...ClientOption) (*Client, error) {
	genaiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	c := &Client{
		client:  genaiClient,
		model:   DefaultModel,
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  common.NewSilentLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ParseTimetable asks Gemini to extract timetable events from the document
// at sourceURL via the URL context tool, and decodes the model's JSON
// response into ParsedEvents.
func (c *Client) ParseTimetable(ctx context.Context, sourceURL string) ([]models.ParsedEvent, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	c.logger.Debug().Str("model", c.model).Str("source_url", sourceURL).Msg("Parsing timetable")

	prompt := buildExtractionPrompt(sourceURL)
	contents := genai.Text(prompt)
	config := &genai.GenerateContentConfig{
		Tools: []*genai.Tool{{URLContext: &genai.URLContext{}}},
	}

	result, err := c.client.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("gemini generate content: %w", err)
	}

	text, err := extractText(result)
	if err != nil {
		return nil, err
	}

	events, err := decodeEvents(text)
	if err != nil {
		return nil, fmt.Errorf("decode gemini response: %w", err)
	}
	return events, nil
}

func buildExtractionPrompt(sourceURL string) string {
	var sb strings.Builder
	sb.WriteString("Reference URL:\n- ")
	sb.WriteString(sourceURL)
	sb.WriteString("\n\n")
	sb.WriteString(`Extract the class/timetable events found at the reference URL. Respond with a
JSON array only, no surrounding prose. Each element must have the shape:
{"title": string, "weekday": 1-7, "start": "HH:MM", "end": "HH:MM",
 "location": string, "assignees": [string], "confidence": 0.0-1.0}`)
	return sb.String()
}

func extractText(result *genai.GenerateContentResponse) (string, error) {
	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil || len(result.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no content generated")
	}
	var sb strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return sb.String(), nil
}

func decodeEvents(text string) ([]models.ParsedEvent, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	var events []models.ParsedEvent
	if err := json.Unmarshal([]byte(text), &events); err != nil {
		return nil, err
	}
	return events, nil
}

var _ interfaces.ProviderClient = (*Client)(nil)
