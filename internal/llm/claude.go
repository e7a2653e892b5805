// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/answer-engine/pkg/types"
)

// claudeAPIURL is the Claude API endpoint. Package-level var for test substitution.
var claudeAPIURL = "https://api.anthropic.com/v1/messages"

const claudeProvider = "anthropic"

// ClaudeProvider calls the Anthropic Messages API.
type ClaudeProvider struct {
	APIKey    string
	Model     string
	MaxTokens int
	Options
}

// claudeRequest is the request body for the Claude Messages API.
type claudeRequest struct {
	Model       string          `json:"model"`
	MaxTokens   int             `json:"max_tokens"`
	System      string          `json:"system,omitempty"`
	Temperature float64         `json:"temperature"`
	Messages    []claudeMessage `json:"messages"`
}

// claudeMessage is a single message in the Claude API conversation.
type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// claudeResponse is the response body from the Claude Messages API.
type claudeResponse struct {
	Content    []claudeContent `json:"content"`
	StopReason string          `json:"stop_reason"`
}

// claudeContent is a content block in the Claude API response.
type claudeContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Complete sends the conversation to Claude. System messages are lifted
// into the top-level system field; consecutive turns of the same role are
// merged because the API requires alternation.
func (c *ClaudeProvider) Complete(ctx context.Context, messages []types.Message, temperature float64) (string, error) {
	maxTokens := c.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	reqBody := claudeRequest{
		Model:       c.Model,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}
	var system []string
	for _, m := range messages {
		if m.Role == "system" {
			system = append(system, m.Content)
			continue
		}
		role := m.Role
		if role != "assistant" {
			role = "user"
		}
		if n := len(reqBody.Messages); n > 0 && reqBody.Messages[n-1].Role == role {
			reqBody.Messages[n-1].Content += "\n\n" + m.Content
			continue
		}
		reqBody.Messages = append(reqBody.Messages, claudeMessage{Role: role, Content: m.Content})
	}
	reqBody.System = strings.Join(system, "\n\n")
	if len(reqBody.Messages) == 0 {
		return "", fmt.Errorf("no user messages to send")
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, claudeAPIURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.APIKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	body, err := c.do(ctx, claudeProvider, req)
	if err != nil {
		return "", err
	}

	var cResp claudeResponse
	if err := json.Unmarshal(body, &cResp); err != nil {
		return "", &ProviderError{Provider: claudeProvider, Err: fmt.Errorf("decoding response: %w", err)}
	}

	var out strings.Builder
	for _, block := range cResp.Content {
		if block.Type == "text" {
			out.WriteString(block.Text)
		}
	}
	if out.Len() == 0 {
		return "", &ProviderError{Provider: claudeProvider, Message: "no text content in response"}
	}

	c.logger().Debug("llm: completion received",
		zap.String("provider", claudeProvider),
		zap.String("model", c.Model),
		zap.String("stop_reason", cResp.StopReason),
		zap.Int("chars", out.Len()),
	)
	return out.String(), nil
}
