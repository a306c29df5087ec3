// OpenAI chat-completions implementation of [Completer]
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/kurator/internal/shared"
	"github.com/go-resty/resty/v2"
)

const (
	openAIProvider = "openai"
	openAIBaseURL  = "https://api.openai.com/v1"
	openAIModel    = "gpt-4o-mini"
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type apiErrorBody struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// OpenAIService sends chat completions to an OpenAI-compatible endpoint.
type OpenAIService struct {
	client      *resty.Client
	model       string
	temperature float64
	jsonMode    bool
	logger      *log.Logger
}

// NewOpenAIService creates a completer from the credentials and [shared.LLMConfig] sections.
func NewOpenAIService(creds shared.OpenAIConfig, llm shared.LLMConfig, httpClient *http.Client, logger *log.Logger) (*OpenAIService, error) {
	if creds.APIKey == "" {
		return nil, fmt.Errorf("%w: openai api_key", shared.ErrMissingCredentials)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}

	baseURL := strings.TrimSuffix(creds.BaseURL, "/")
	if baseURL == "" {
		baseURL = openAIBaseURL
	}
	model := creds.Model
	if model == "" {
		model = openAIModel
	}

	client := resty.NewWithClient(httpClient).
		SetBaseURL(baseURL).
		SetAuthToken(creds.APIKey).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &OpenAIService{
		client:      client,
		model:       model,
		temperature: llm.Temperature,
		jsonMode:    llm.JSONMode,
		logger:      logger,
	}, nil
}

// Model returns the configured model name.
func (s *OpenAIService) Model() string { return s.model }

// Complete sends one system and one user message and returns the assistant's content.
//
// Non-2xx responses are [shared.ProviderError]s. A 2xx response without a readable message
// wraps [shared.ErrMalformedModelOutput].
func (s *OpenAIService) Complete(ctx context.Context, system, user string) (string, error) {
	body := chatRequest{
		Model: s.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: s.temperature,
	}
	if s.jsonMode {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	resp, err := s.client.R().
		SetContext(ReplaySafe(ctx)).
		SetBody(body).
		Post("/chat/completions")
	if err != nil {
		return "", shared.NewProviderError(openAIProvider, "chat completion", 0, err)
	}

	if resp.IsError() {
		return "", shared.NewProviderError(openAIProvider, "chat completion", resp.StatusCode(), errors.New(apiErrorMessage(resp.Body())))
	}

	var parsed chatResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return "", fmt.Errorf("%w: decode envelope: %v", shared.ErrMalformedModelOutput, err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices", shared.ErrMalformedModelOutput)
	}

	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("%w: empty content", shared.ErrMalformedModelOutput)
	}

	s.logger.Debug("chat completion", "model", s.model, "bytes", len(content))
	return content, nil
}

func apiErrorMessage(body []byte) string {
	var apiErr apiErrorBody
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		return apiErr.Error.Message
	}
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return "empty response"
	}
	return shared.Truncate(msg, 200)
}
