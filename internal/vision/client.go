package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/bagel786/pregrader/internal/detection"
)

const (
	defaultEndpoint  = "https://api.anthropic.com/v1/messages"
	defaultModel     = "claude-3-5-sonnet-20241022"
	apiVersion       = "2023-06-01"
	maxResponseBytes = 1 << 20

	// JPEG quality for the uploaded photo. High enough that corner
	// positions survive compression, low enough to keep requests small.
	uploadQuality = 90
)

// detectionPrompt demands machine-parseable output. The quality flags feed
// user-facing capture recommendations and never affect detection itself.
const detectionPrompt = `Analyze this photo of a trading card. Respond with ONLY a JSON object, no other text:
{
  "card_detected": true or false,
  "corners": {
    "top_left": [x, y],
    "top_right": [x, y],
    "bottom_right": [x, y],
    "bottom_left": [x, y]
  },
  "confidence": 0.0 to 1.0,
  "quality_assessment": {
    "lighting": "good" or "poor",
    "blur": "none" or "slight" or "heavy",
    "angle": "straight" or "tilted",
    "background": "clean" or "busy"
  }
}
Coordinates are pixels in the original image. If no card is visible set card_detected to false and omit corners.`

// Client calls a vision AI service to locate a card. It implements
// detection.SlowDetector. The zero value is not usable; construct with
// NewClient.
type Client struct {
	endpoint string
	apiKey   string
	model    string
	http     *http.Client

	// RefineCorners snaps service-reported corners to nearby edge pixels.
	// On by default.
	RefineCorners bool

	logger *log.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithEndpoint overrides the service URL, mainly for tests.
func WithEndpoint(url string) Option {
	return func(c *Client) { c.endpoint = url }
}

// WithModel selects the vision model.
func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the diagnostic logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient builds a vision client. apiKey must be non-empty; everything
// else has a sensible default.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("vision: api key required")
	}
	c := &Client{
		endpoint:      defaultEndpoint,
		apiKey:        apiKey,
		model:         defaultModel,
		http:          &http.Client{Timeout: 60 * time.Second},
		RefineCorners: true,
		logger:        log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Request/response shapes for the messages API. Only the fields this
// client needs are declared.
type apiRequest struct {
	Model     string       `json:"model"`
	MaxTokens int          `json:"max_tokens"`
	Messages  []apiMessage `json:"messages"`
}

type apiMessage struct {
	Role    string       `json:"role"`
	Content []apiContent `json:"content"`
}

type apiContent struct {
	Type   string     `json:"type"`
	Text   string     `json:"text,omitempty"`
	Source *apiSource `json:"source,omitempty"`
}

type apiSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type apiResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// DetectSlow asks the vision service where the card is.
//
// Returns an empty Result with nil error when the service responded but
// either saw no card or produced an unusable reply; the orchestrator then
// falls back to whatever the fast path found. Transport failures and
// context expiry return errors, with timeouts wrapped so that
// errors.Is(err, detection.ErrDetectionTimeout) matches.
func (c *Client) DetectSlow(ctx context.Context, img image.Image) (detection.Result, error) {
	start := time.Now()

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: uploadQuality}); err != nil {
		return detection.Result{}, fmt.Errorf("vision: encode image: %w", err)
	}

	body, err := json.Marshal(apiRequest{
		Model:     c.model,
		MaxTokens: 1024,
		Messages: []apiMessage{{
			Role: "user",
			Content: []apiContent{
				{Type: "image", Source: &apiSource{
					Type:      "base64",
					MediaType: "image/jpeg",
					Data:      base64.StdEncoding.EncodeToString(buf.Bytes()),
				}},
				{Type: "text", Text: detectionPrompt},
			},
		}},
	})
	if err != nil {
		return detection.Result{}, fmt.Errorf("vision: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return detection.Result{}, fmt.Errorf("vision: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", apiVersion)

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
			return detection.Result{}, fmt.Errorf("%w: vision service: %v", detection.ErrDetectionTimeout, err)
		}
		return detection.Result{}, fmt.Errorf("vision: request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return detection.Result{}, fmt.Errorf("vision: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		// The service answered but refused us. Not a card-detection verdict,
		// but retrying elsewhere in the pipeline is pointless, so report it
		// as "saw nothing" and let the fast fallback decide.
		c.logger.Printf("vision: service returned %d: %s", resp.StatusCode, truncate(raw, 200))
		return detection.Result{Method: detection.MethodSlowAI, Elapsed: time.Since(start)}, nil
	}

	var api apiResponse
	if err := json.Unmarshal(raw, &api); err != nil || api.Error != nil {
		c.logger.Printf("vision: unusable response envelope: %v", err)
		return detection.Result{Method: detection.MethodSlowAI, Elapsed: time.Since(start)}, nil
	}

	var text string
	for _, block := range api.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}

	bounds := img.Bounds()
	result, ok := parseDetection(text, bounds.Dx(), bounds.Dy())
	if !ok {
		c.logger.Printf("vision: model reply failed validation: %s", truncate([]byte(text), 200))
		return detection.Result{Method: detection.MethodSlowAI, Elapsed: time.Since(start)}, nil
	}

	if c.RefineCorners && result.Quad != nil {
		result = refineResult(result, img)
	}
	result.Elapsed = time.Since(start)
	return result, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
