package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"graph-investigator/config"
	"graph-investigator/errors"
)

// GenerationClient implements GenerationService against an OpenAI-compatible
// chat completions endpoint.
//
// There is no transport retry here: the pipeline's cost bounds count
// generation calls per stage, and a planner or generator failure is a turn
// failure by contract.
type GenerationClient struct {
	config     *config.GenerationConfig
	httpClient *http.Client
}

// NewGenerationClient creates a new generation service client
func NewGenerationClient(cfg *config.GenerationConfig) *GenerationClient {
	return &GenerationClient{
		config: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// chatMessage is one message in a chat completions request
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatRequest represents the request structure for the completions API
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

// chatResponse represents the response structure from the completions API
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Complete implements GenerationService.Complete
func (c *GenerationClient) Complete(ctx context.Context, systemInstruction, userContent string, temperature float64) (string, error) {
	if userContent == "" {
		return "", errors.NewValidationError(
			errors.ErrCodeInvalidInput,
			"User content cannot be empty",
			nil,
		)
	}

	messages := []chatMessage{}
	if systemInstruction != "" {
		messages = append(messages, chatMessage{Role: "system", Content: systemInstruction})
	}
	messages = append(messages, chatMessage{Role: "user", Content: userContent})

	request := chatRequest{
		Model:       c.config.Model,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   c.config.MaxTokens,
	}

	var response chatResponse
	if err := c.makeHTTPRequest(ctx, request, &response); err != nil {
		return "", err
	}

	if response.Error != nil {
		return "", errors.WrapError(
			fmt.Errorf("%s: %s", response.Error.Type, response.Error.Message),
			errors.ErrTypeExternal,
			errors.ErrCodeGenerationFailed,
			"Completions API returned error",
		)
	}

	if len(response.Choices) == 0 {
		return "", errors.NewInternalError(
			errors.ErrCodeEmptyCompletion,
			"Completions API returned no choices",
			nil,
		)
	}

	return response.Choices[0].Message.Content, nil
}

// makeHTTPRequest makes the actual HTTP request to the completions API
func (c *GenerationClient) makeHTTPRequest(ctx context.Context, request chatRequest, response *chatResponse) error {
	requestBody, err := json.Marshal(request)
	if err != nil {
		return errors.NewInternalError(
			errors.ErrCodeSerializationError,
			"Failed to marshal completions request",
			err,
		)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.config.Endpoint, bytes.NewBuffer(requestBody))
	if err != nil {
		return errors.NewInternalError(
			errors.ErrCodeProcessingError,
			"Failed to create HTTP request",
			err,
		)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.NewNetworkError(
			errors.ErrCodeNetworkConnection,
			"Completions API request failed",
			err,
		)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.NewNetworkError(
			errors.ErrCodeNetworkConnection,
			"Failed to read completions API response",
			err,
		)
	}

	if resp.StatusCode >= 400 {
		return c.handleHTTPError(resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, response); err != nil {
		return errors.NewInternalError(
			errors.ErrCodeSerializationError,
			"Failed to unmarshal completions API response",
			err,
		)
	}

	return nil
}

// handleHTTPError converts HTTP errors to appropriate AppErrors
func (c *GenerationClient) handleHTTPError(statusCode int, body string) error {
	switch {
	case statusCode == 401:
		return errors.NewAuthError(
			errors.ErrCodeInvalidCredentials,
			"Completions API authentication failed",
			fmt.Errorf("HTTP %d: %s", statusCode, body),
		)
	case statusCode == 429:
		return errors.NewRateLimitError(
			errors.ErrCodeGenerationLimit,
			"Completions API rate limit exceeded",
			fmt.Errorf("HTTP %d: %s", statusCode, body),
		)
	case statusCode >= 500:
		return errors.WrapError(
			fmt.Errorf("HTTP %d: %s", statusCode, body),
			errors.ErrTypeExternal,
			errors.ErrCodeGenerationFailed,
			"Completions API server error",
		)
	default:
		return errors.NewValidationError(
			errors.ErrCodeInvalidInput,
			"Completions API client error",
			fmt.Errorf("HTTP %d: %s", statusCode, body),
		)
	}
}
