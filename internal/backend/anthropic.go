package backend

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/tidwall/gjson"
)

// ModeClaude is the mode name of the Anthropic Messages API backend
const ModeClaude = "claude"

const anthropicVersion = "2023-06-01"

// ClaudeAdapter talks to the Anthropic Messages API directly. Only the request/response types of
// the SDK are used; the exchange itself goes through the dispatch transport like every other
// backend.
type ClaudeAdapter struct {
	endpoint  string
	apiKey    string
	model     anthropic.Model
	maxTokens int64
}

// NewClaudeAdapter creates an adapter that posts to {baseURL}/v1/messages
func NewClaudeAdapter(baseURL string, apiKey string, model anthropic.Model, maxTokens int64) (*ClaudeAdapter, error) {
	endpoint, err := url.JoinPath(baseURL, "v1", "messages")
	if err != nil {
		return nil, fmt.Errorf("failed to build messages endpoint from '%s': %w", baseURL, err)
	}
	if apiKey == "" {
		return nil, fmt.Errorf("an API key is required")
	}
	if maxTokens <= 0 {
		return nil, fmt.Errorf("max tokens must be positive, got %d", maxTokens)
	}
	return &ClaudeAdapter{
		endpoint:  endpoint,
		apiKey:    apiKey,
		model:     model,
		maxTokens: maxTokens,
	}, nil
}

func (ca *ClaudeAdapter) Mode() string {
	return ModeClaude
}

func (ca *ClaudeAdapter) BuildRequest(prompt string) (Request, error) {
	params := anthropic.MessageNewParams{
		Model:     ca.model,
		MaxTokens: ca.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	body, err := json.Marshal(params)
	if err != nil {
		return Request{}, fmt.Errorf("failed to marshal message params: %w", err)
	}

	header := jsonHeader()
	header.Set("x-api-key", ca.apiKey)
	header.Set("anthropic-version", anthropicVersion)

	return Request{
		Method: http.MethodPost,
		URL:    ca.endpoint,
		Header: header,
		Body:   body,
	}, nil
}

// ParseResponse joins the text blocks of a Messages API response. Non-text blocks (thinking, tool
// use) are ignored.
func (ca *ClaudeAdapter) ParseResponse(payload []byte) (string, error) {
	if t := gjson.GetBytes(payload, "type"); t.String() != "message" {
		return "", newParseError(ModeClaude, "is not a message", payload)
	}

	var message anthropic.Message
	err := json.Unmarshal(payload, &message)
	if err != nil {
		return "", newParseError(ModeClaude, fmt.Sprintf("could not be decoded (%v)", err), payload)
	}

	var parts []string
	for _, block := range message.Content {
		if block.Type == "text" && block.Text != "" {
			parts = append(parts, block.Text)
		}
	}
	if len(parts) == 0 {
		return "", newParseError(ModeClaude, "has no text content", payload)
	}
	return strings.Join(parts, "\n\n"), nil
}
