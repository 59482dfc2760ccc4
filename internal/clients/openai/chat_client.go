package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/yungbote/studyforge-backend/internal/pkg/httpx"
	"github.com/yungbote/studyforge-backend/internal/pkg/logger"
)

// chatClient speaks the Chat Completions protocol through go-openai, for
// compatible gateways that do not implement the Responses API.
type chatClient struct {
	log         *logger.Logger
	api         *goopenai.Client
	model       string
	temperature float32
	maxRetries  int
}

func newChatClient(cfg Config, log *logger.Logger) *chatClient {
	apiCfg := goopenai.DefaultConfig(cfg.APIKey)
	apiCfg.BaseURL = cfg.BaseURL + "/v1"
	apiCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	return &chatClient{
		log:         log.With("service", "OpenAIClient", "api_mode", "chat"),
		api:         goopenai.NewClientWithConfig(apiCfg),
		model:       cfg.Model,
		temperature: float32(cfg.Temperature),
		maxRetries:  cfg.MaxRetries,
	}
}

type jsonSchema map[string]any

func (s jsonSchema) MarshalJSON() ([]byte, error) { return json.Marshal(map[string]any(s)) }

func (c *chatClient) GenerateStructured(ctx context.Context, system string, user string, schemaName string, schema map[string]any) (string, error) {
	if schemaName == "" {
		return "", errors.New("schemaName required")
	}
	if schema == nil {
		return "", errors.New("schema required")
	}

	req := goopenai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: system},
			{Role: goopenai.ChatMessageRoleUser, Content: user},
		},
		ResponseFormat: &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &goopenai.ChatCompletionResponseFormatJSONSchema{
				Name:   schemaName,
				Schema: jsonSchema(schema),
				Strict: true,
			},
		},
	}

	backoff := 1 * time.Second
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		resp, err := c.api.CreateChatCompletion(ctx, req)
		if err == nil {
			if len(resp.Choices) == 0 {
				return "", fmt.Errorf("no choices in chat completion")
			}
			msg := resp.Choices[0].Message
			if msg.Refusal != "" {
				return "", fmt.Errorf("model refused: %s", msg.Refusal)
			}
			if strings.TrimSpace(msg.Content) == "" {
				return "", fmt.Errorf("empty chat completion content")
			}
			return msg.Content, nil
		}

		err = classifyChatError(err)
		if !httpx.IsRetryableError(err) || ctx.Err() != nil || attempt == c.maxRetries {
			return "", err
		}

		sleepFor := httpx.JitterSleep(backoff)
		c.log.Warn("OpenAI chat request retrying",
			"attempt", attempt+1,
			"max_retries", c.maxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)
		if sErr := httpx.SleepContext(ctx, sleepFor); sErr != nil {
			return "", sErr
		}
		backoff *= 2
		if backoff > 10*time.Second {
			backoff = 10 * time.Second
		}
	}
	return "", fmt.Errorf("unreachable retry loop")
}

// classifyChatError maps go-openai errors onto openAIHTTPError so retry and
// configuration checks behave the same across protocols.
func classifyChatError(err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return fmt.Errorf("%w: %w", &openAIHTTPError{StatusCode: apiErr.HTTPStatusCode, Body: apiErr.Message}, err)
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return fmt.Errorf("%w: %w", &openAIHTTPError{StatusCode: reqErr.HTTPStatusCode, Body: reqErr.Error()}, err)
	}
	return err
}
