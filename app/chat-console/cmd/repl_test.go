package cmd

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cchalm/chat-console/internal/ai"
	"github.com/cchalm/chat-console/internal/backend"
	"github.com/cchalm/chat-console/internal/dispatch"
)

type echoDispatcher struct{}

func (echoDispatcher) Send(ctx context.Context, prompt string, adapter backend.Adapter) dispatch.Outcome {
	return dispatch.Success("echo: " + prompt)
}

func newTestConversation(t *testing.T) *ai.Conversation {
	legacy, err := backend.NewLegacyAdapter("http://legacy")
	require.NoError(t, err)
	registry, err := backend.NewRegistry(legacy, backend.NewAgentAdapter("http://agent"))
	require.NoError(t, err)
	return ai.NewConversation(echoDispatcher{}, registry)
}

func TestReplCommand_Quit(t *testing.T) {
	var out bytes.Buffer
	assert.True(t, runReplCommand(&out, newTestConversation(t), "/quit"))
}

func TestReplCommand_ListModes(t *testing.T) {
	var out bytes.Buffer
	quit := runReplCommand(&out, newTestConversation(t), "/mode")

	assert.False(t, quit)
	assert.Contains(t, out.String(), "legacy, agent")
	assert.Contains(t, out.String(), "current: legacy")
}

func TestReplCommand_SwitchMode(t *testing.T) {
	var out bytes.Buffer
	conv := newTestConversation(t)

	runReplCommand(&out, conv, "/mode agent")
	assert.Equal(t, backend.ModeAgent, conv.State().BackendMode)

	out.Reset()
	runReplCommand(&out, conv, "/mode nonsense")
	assert.Contains(t, out.String(), "unknown backend 'nonsense'")
	assert.Equal(t, backend.ModeAgent, conv.State().BackendMode)
}

func TestReplCommand_Transcript(t *testing.T) {
	var out bytes.Buffer
	conv := newTestConversation(t)
	require.True(t, conv.Submit(context.Background(), "ping"))
	conv.Wait()

	runReplCommand(&out, conv, "/transcript")
	assert.Contains(t, out.String(), "ping")
	assert.Contains(t, out.String(), "echo: ping")
}

func TestReplCommand_Unknown(t *testing.T) {
	var out bytes.Buffer
	assert.False(t, runReplCommand(&out, newTestConversation(t), "/bogus"))
	assert.Contains(t, out.String(), "unknown command /bogus")
}
