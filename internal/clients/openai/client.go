package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yungbote/studyforge-backend/internal/pkg/envutil"
	pkgerrors "github.com/yungbote/studyforge-backend/internal/pkg/errors"
	"github.com/yungbote/studyforge-backend/internal/pkg/httpx"
	"github.com/yungbote/studyforge-backend/internal/pkg/logger"
)

// Client is the structured-output generation backend used by the study pipeline.
// GenerateStructured returns the raw JSON text the model produced; callers own
// decoding and validation.
type Client interface {
	GenerateStructured(ctx context.Context, system string, user string, schemaName string, schema map[string]any) (string, error)
}

type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	Timeout     time.Duration
	MaxRetries  int
	// APIMode selects the wire protocol: "responses" (default) or "chat".
	APIMode string
}

// ConfigFromEnv reads OPENAI_* settings.
func ConfigFromEnv() Config {
	return Config{
		APIKey:      envutil.String("OPENAI_API_KEY", ""),
		BaseURL:     envutil.String("OPENAI_BASE_URL", "https://api.openai.com"),
		Model:       envutil.String("OPENAI_MODEL", "gpt-4o-mini"),
		Temperature: envutil.Float("OPENAI_TEMPERATURE", 0.4),
		Timeout:     envutil.Duration("OPENAI_TIMEOUT_SECONDS", 180*time.Second),
		MaxRetries:  envutil.Int("OPENAI_MAX_RETRIES", 4),
		APIMode:     envutil.String("OPENAI_API_MODE", "responses"),
	}
}

// New builds the client selected by cfg.APIMode. A missing key is reported as
// errors.ErrMisconfigured.
func New(cfg Config, log *logger.Logger) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("%w: missing OPENAI_API_KEY", pkgerrors.ErrMisconfigured)
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("%w: missing OPENAI_MODEL", pkgerrors.ErrMisconfigured)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 180 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com"
	}

	switch strings.ToLower(strings.TrimSpace(cfg.APIMode)) {
	case "chat":
		return newChatClient(cfg, log), nil
	default:
		return &client{
			log:         log.With("service", "OpenAIClient", "api_mode", "responses"),
			baseURL:     cfg.BaseURL,
			apiKey:      cfg.APIKey,
			model:       cfg.Model,
			temperature: cfg.Temperature,
			httpClient:  &http.Client{Timeout: cfg.Timeout},
			maxRetries:  cfg.MaxRetries,
		}, nil
	}
}

// Unconfigured returns a Client whose every call fails with reason wrapped in
// errors.ErrMisconfigured. It lets the service start and serve reads without a key.
func Unconfigured(reason error) Client {
	return unconfigured{reason: reason}
}

type unconfigured struct{ reason error }

func (u unconfigured) GenerateStructured(context.Context, string, string, string, map[string]any) (string, error) {
	if errors.Is(u.reason, pkgerrors.ErrMisconfigured) {
		return "", u.reason
	}
	return "", fmt.Errorf("%w: %v", pkgerrors.ErrMisconfigured, u.reason)
}

type client struct {
	log         *logger.Logger
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	httpClient  *http.Client

	maxRetries int
}

type openAIHTTPError struct {
	StatusCode int
	Body       string
}

func (e *openAIHTTPError) Error() string {
	return fmt.Sprintf("openai http %d: %s", e.StatusCode, e.Body)
}

func (e *openAIHTTPError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

// Unwrap exposes credential rejections as errors.ErrMisconfigured.
func (e *openAIHTTPError) Unwrap() error {
	if e != nil && (e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden) {
		return pkgerrors.ErrMisconfigured
	}
	return nil
}

func (c *client) doOnce(ctx context.Context, method, path string, body any) (*http.Response, []byte, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}

	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, nil, readErr
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, raw, &openAIHTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return resp, raw, nil
}

func (c *client) do(ctx context.Context, method, path string, body any, out any) error {
	backoff := 1 * time.Second

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		resp, raw, err := c.doOnce(ctx, method, path, body)
		if err == nil {
			if out == nil {
				return nil
			}
			if uErr := json.Unmarshal(raw, out); uErr != nil {
				return fmt.Errorf("openai decode error: %w; raw=%s", uErr, string(raw))
			}
			return nil
		}

		if !httpx.IsRetryableError(err) || ctx.Err() != nil {
			return err
		}
		if attempt == c.maxRetries {
			return err
		}

		sleepFor := httpx.RetryAfterDuration(resp, backoff, 10*time.Second)
		sleepFor = httpx.JitterSleep(sleepFor)

		c.log.Warn("OpenAI request retrying",
			"path", path,
			"attempt", attempt+1,
			"max_retries", c.maxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)

		if sErr := httpx.SleepContext(ctx, sleepFor); sErr != nil {
			return sErr
		}
		backoff *= 2
	}

	return fmt.Errorf("unreachable retry loop")
}

type inputMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responsesRequest struct {
	Model string         `json:"model"`
	Input []inputMessage `json:"input"`

	Text struct {
		Format map[string]any `json:"format,omitempty"`
	} `json:"text,omitempty"`

	Temperature float64 `json:"temperature,omitempty"`
}

type responsesResponse struct {
	Output []struct {
		Type    string `json:"type"`
		Role    string `json:"role,omitempty"`
		Content []struct {
			Type    string `json:"type"`
			Text    string `json:"text,omitempty"`
			Refusal string `json:"refusal,omitempty"`
		} `json:"content,omitempty"`
	} `json:"output"`
	Refusal string `json:"refusal,omitempty"`
}

func extractOutputText(resp responsesResponse) (text string, refusal string) {
	var out strings.Builder
	for _, item := range resp.Output {
		if item.Type == "message" && item.Role == "assistant" {
			for _, c := range item.Content {
				switch {
				case c.Type == "output_text" && c.Text != "":
					out.WriteString(c.Text)
				case c.Type == "refusal" && c.Refusal != "":
					refusal = c.Refusal
				}
			}
		}
	}
	if refusal == "" {
		refusal = resp.Refusal
	}
	return out.String(), refusal
}

func (c *client) GenerateStructured(ctx context.Context, system string, user string, schemaName string, schema map[string]any) (string, error) {
	if schemaName == "" {
		return "", errors.New("schemaName required")
	}
	if schema == nil {
		return "", errors.New("schema required")
	}

	req := responsesRequest{
		Model: c.model,
		Input: []inputMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: c.temperature,
	}
	req.Text.Format = map[string]any{
		"type":   "json_schema",
		"name":   schemaName,
		"schema": schema,
		"strict": true,
	}

	start := time.Now()
	var resp responsesResponse
	if err := c.do(ctx, http.MethodPost, "/v1/responses", req, &resp); err != nil {
		return "", err
	}

	text, refusal := extractOutputText(resp)
	if refusal != "" {
		return "", fmt.Errorf("model refused: %s", refusal)
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("no output_text found in response")
	}
	c.log.Debug("OpenAI structured response", "schema", schemaName, "elapsed_ms", time.Since(start).Milliseconds(), "bytes", len(text))
	return text, nil
}
