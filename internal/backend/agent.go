package backend

import (
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// ModeAgent is the mode name of the agent backend
const ModeAgent = "agent"

// AgentAdapter talks to the agent endpoint, which accepts a chat-style message list and answers
// with {"text": ...}
type AgentAdapter struct {
	endpoint string
}

// NewAgentAdapter creates an adapter that posts directly to endpoint
func NewAgentAdapter(endpoint string) *AgentAdapter {
	return &AgentAdapter{endpoint: endpoint}
}

func (aa *AgentAdapter) Mode() string {
	return ModeAgent
}

func (aa *AgentAdapter) BuildRequest(prompt string) (Request, error) {
	body, err := sjson.SetBytes([]byte(`{"messages":[{"role":"user"}]}`), "messages.0.content", prompt)
	if err != nil {
		return Request{}, fmt.Errorf("failed to build agent request body: %w", err)
	}
	return Request{
		Method: http.MethodPost,
		URL:    aa.endpoint,
		Header: jsonHeader(),
		Body:   body,
	}, nil
}

// ParseResponse accepts any non-empty string in the 'text' field. No further schema validation
// is applied.
func (aa *AgentAdapter) ParseResponse(payload []byte) (string, error) {
	text := gjson.GetBytes(payload, "text")
	if !text.Exists() {
		return "", newParseError(ModeAgent, "is missing the 'text' field", payload)
	}
	if text.Type != gjson.String {
		return "", newParseError(ModeAgent, fmt.Sprintf("has a non-string 'text' field (%s)", text.Type), payload)
	}
	if text.String() == "" {
		return "", newParseError(ModeAgent, "has an empty 'text' field", payload)
	}
	return text.String(), nil
}
