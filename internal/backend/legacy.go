package backend

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// ModeLegacy is the mode name of the legacy chat backend
const ModeLegacy = "legacy"

// LegacyAdapter talks to the legacy chat endpoint, which accepts {"prompt": ...} and answers with
// {"reply": ...}
type LegacyAdapter struct {
	endpoint string
}

// NewLegacyAdapter creates an adapter for the legacy chat service rooted at baseURL. Requests are
// sent to {baseURL}/api/chat.
func NewLegacyAdapter(baseURL string) (*LegacyAdapter, error) {
	endpoint, err := url.JoinPath(baseURL, "api", "chat")
	if err != nil {
		return nil, fmt.Errorf("failed to build legacy chat endpoint from '%s': %w", baseURL, err)
	}
	return &LegacyAdapter{endpoint: endpoint}, nil
}

func (la *LegacyAdapter) Mode() string {
	return ModeLegacy
}

func (la *LegacyAdapter) BuildRequest(prompt string) (Request, error) {
	body, err := sjson.SetBytes([]byte(`{}`), "prompt", prompt)
	if err != nil {
		return Request{}, fmt.Errorf("failed to build legacy request body: %w", err)
	}
	return Request{
		Method: http.MethodPost,
		URL:    la.endpoint,
		Header: jsonHeader(),
		Body:   body,
	}, nil
}

func (la *LegacyAdapter) ParseResponse(payload []byte) (string, error) {
	reply := gjson.GetBytes(payload, "reply")
	if !reply.Exists() {
		return "", newParseError(ModeLegacy, "is missing the 'reply' field", payload)
	}
	if reply.Type != gjson.String {
		return "", newParseError(ModeLegacy, fmt.Sprintf("has a non-string 'reply' field (%s)", reply.Type), payload)
	}
	return reply.String(), nil
}
