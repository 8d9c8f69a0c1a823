package ai

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cchalm/chat-console/internal/backend"
	"github.com/cchalm/chat-console/internal/dispatch"
)

type dispatchCall struct {
	prompt string
	mode   string
}

// gatedDispatcher holds every dispatch until the test releases an outcome for it
type gatedDispatcher struct {
	calls    chan dispatchCall
	outcomes chan dispatch.Outcome
}

func newGatedDispatcher() *gatedDispatcher {
	return &gatedDispatcher{
		calls:    make(chan dispatchCall, 10),
		outcomes: make(chan dispatch.Outcome),
	}
}

func (gd *gatedDispatcher) Send(ctx context.Context, prompt string, adapter backend.Adapter) dispatch.Outcome {
	gd.calls <- dispatchCall{prompt: prompt, mode: adapter.Mode()}
	return <-gd.outcomes
}

// release settles the outstanding dispatch of c with outcome and waits for c to become idle
func (gd *gatedDispatcher) release(c *Conversation, outcome dispatch.Outcome) {
	gd.outcomes <- outcome
	c.Wait()
}

func testRegistry(t *testing.T, legacyURL string, agentURL string) *backend.Registry {
	legacy, err := backend.NewLegacyAdapter(legacyURL)
	require.NoError(t, err)
	registry, err := backend.NewRegistry(legacy, backend.NewAgentAdapter(agentURL))
	require.NoError(t, err)
	return registry
}

func newTestConversation(t *testing.T, opts ...Option) (*Conversation, *gatedDispatcher) {
	dispatcher := newGatedDispatcher()
	return NewConversation(dispatcher, testRegistry(t, "http://legacy", "http://agent"), opts...), dispatcher
}

// requireInvariants checks the relationship between the busy flag and the placeholder
func requireInvariants(t *testing.T, state ConversationState) {
	t.Helper()
	if state.IsBusy {
		require.Equal(t, 1, state.Placeholders(), "a busy conversation must hold exactly one placeholder")
		require.True(t, state.Last().IsPlaceholder, "the placeholder must be the last message")
	} else {
		require.Equal(t, 0, state.Placeholders(), "an idle conversation must not hold a placeholder")
	}
}

func TestNewConversation_SeedsGreeting(t *testing.T) {
	c, _ := newTestConversation(t)
	state := c.State()

	require.Len(t, state.History, 1)
	assert.Equal(t, DefaultGreeting, state.History[0].Text)
	assert.Equal(t, OriginAssistant, state.History[0].Origin)
	assert.False(t, state.IsBusy)
	assert.Equal(t, backend.ModeLegacy, state.BackendMode)
	assert.NotEmpty(t, state.ConversationID)
	requireInvariants(t, state)
}

func TestNewConversation_Options(t *testing.T) {
	c, _ := newTestConversation(t, WithGreeting("Welcome back"), WithBackendMode(backend.ModeAgent))
	state := c.State()

	assert.Equal(t, "Welcome back", state.History[0].Text)
	assert.Equal(t, backend.ModeAgent, state.BackendMode)
}

func TestNewConversation_UnknownInitialModeIsIgnored(t *testing.T) {
	c, _ := newTestConversation(t, WithBackendMode(backend.ModeClaude))
	assert.Equal(t, backend.ModeLegacy, c.State().BackendMode)
}

func TestSubmit_AppendsUserMessageAndPlaceholder(t *testing.T) {
	c, dispatcher := newTestConversation(t)
	c.SetPendingInput("hello")

	require.True(t, c.Submit(context.Background(), "hello"))
	state := c.State()

	require.Len(t, state.History, 3)
	assert.Equal(t, "hello", state.History[1].Text)
	assert.Equal(t, OriginUser, state.History[1].Origin)
	assert.False(t, state.History[1].IsPlaceholder)
	assert.Equal(t, ThinkingText, state.History[2].Text)
	assert.Equal(t, OriginAssistant, state.History[2].Origin)
	assert.True(t, state.History[2].IsPlaceholder)
	assert.True(t, state.IsBusy)
	assert.Empty(t, state.PendingInput)
	requireInvariants(t, state)

	call := <-dispatcher.calls
	assert.Equal(t, dispatchCall{prompt: "hello", mode: backend.ModeLegacy}, call)

	dispatcher.release(c, dispatch.Success("world"))
}

func TestSubmit_SettleReplacesPlaceholder(t *testing.T) {
	c, dispatcher := newTestConversation(t)
	require.True(t, c.Submit(context.Background(), "hello"))

	dispatcher.release(c, dispatch.Success("world"))
	state := c.State()

	require.Len(t, state.History, 3)
	last := state.Last()
	assert.Equal(t, "world", last.Text)
	assert.Equal(t, OriginAssistant, last.Origin)
	assert.False(t, last.IsPlaceholder)
	assert.False(t, state.IsBusy)
	requireInvariants(t, state)
}

func TestSubmit_FailureSettlesLikeSuccess(t *testing.T) {
	c, dispatcher := newTestConversation(t)
	require.True(t, c.Submit(context.Background(), "hello"))

	dispatcher.release(c, dispatch.Failed(&dispatch.HTTPStatusError{StatusCode: 500, Body: `{"error":"boom"}`}))
	state := c.State()

	require.Len(t, state.History, 3)
	assert.Equal(t, `The chat service returned status 500: {"error":"boom"}`, state.Last().Text)
	assert.Equal(t, OriginAssistant, state.Last().Origin)
	assert.False(t, state.IsBusy)
	requireInvariants(t, state)
}

func TestSubmit_HistoryGrowsByTwoPerSubmission(t *testing.T) {
	c, dispatcher := newTestConversation(t)

	for i := 0; i < 3; i++ {
		before := len(c.State().History)
		require.True(t, c.Submit(context.Background(), "again"))
		dispatcher.release(c, dispatch.Success("ok"))
		state := c.State()
		assert.Len(t, state.History, before+2)
		requireInvariants(t, state)
	}
}

func TestSubmit_PreservesChronologicalOrder(t *testing.T) {
	c, dispatcher := newTestConversation(t)

	require.True(t, c.Submit(context.Background(), "one"))
	dispatcher.release(c, dispatch.Success("reply one"))
	require.True(t, c.Submit(context.Background(), "two"))
	dispatcher.release(c, dispatch.Success("reply two"))

	var texts []string
	for _, m := range c.State().History {
		texts = append(texts, m.Text)
	}
	assert.Equal(t, []string{DefaultGreeting, "one", "reply one", "two", "reply two"}, texts)
}

// testSubmitIsNoOp is a test harness asserting that a submission changes nothing
func testSubmitIsNoOp(t *testing.T, c *Conversation, text string) {
	before := c.State()
	assert.False(t, c.Submit(context.Background(), text))
	assert.Equal(t, before, c.State())
}

func TestSubmit_EmptyIsNoOp(t *testing.T) {
	c, _ := newTestConversation(t)
	testSubmitIsNoOp(t, c, "")
}

func TestSubmit_WhitespaceIsNoOp(t *testing.T) {
	c, _ := newTestConversation(t)
	c.SetPendingInput("   ")
	testSubmitIsNoOp(t, c, "   ")
	assert.Equal(t, "   ", c.State().PendingInput)
}

func TestSubmit_WhileBusyIsNoOp(t *testing.T) {
	c, dispatcher := newTestConversation(t)
	require.True(t, c.Submit(context.Background(), "first"))

	testSubmitIsNoOp(t, c, "second")
	requireInvariants(t, c.State())

	dispatcher.release(c, dispatch.Success("reply"))
	assert.Len(t, dispatcher.calls, 1, "only the first submission may be dispatched")
}

func TestSetPendingInput_FrozenWhileBusy(t *testing.T) {
	c, dispatcher := newTestConversation(t)
	require.True(t, c.Submit(context.Background(), "first"))

	c.SetPendingInput("draft")
	assert.Empty(t, c.State().PendingInput)

	dispatcher.release(c, dispatch.Success("reply"))
	c.SetPendingInput("draft")
	assert.Equal(t, "draft", c.State().PendingInput)
}

func TestToggleBackendMode_Idle(t *testing.T) {
	c, dispatcher := newTestConversation(t)

	assert.True(t, c.ToggleBackendMode(backend.ModeAgent))
	assert.Equal(t, backend.ModeAgent, c.State().BackendMode)

	// Setting the same mode again is allowed and leaves it unchanged
	assert.True(t, c.ToggleBackendMode(backend.ModeAgent))
	assert.Equal(t, backend.ModeAgent, c.State().BackendMode)

	require.True(t, c.Submit(context.Background(), "hello"))
	call := <-dispatcher.calls
	assert.Equal(t, backend.ModeAgent, call.mode)
	dispatcher.release(c, dispatch.Success("hi"))
}

func TestToggleBackendMode_WhileBusyIsNoOp(t *testing.T) {
	c, dispatcher := newTestConversation(t)
	require.True(t, c.Submit(context.Background(), "hello"))

	assert.False(t, c.ToggleBackendMode(backend.ModeAgent))
	assert.Equal(t, backend.ModeLegacy, c.State().BackendMode)

	dispatcher.release(c, dispatch.Success("hi"))
	assert.True(t, c.ToggleBackendMode(backend.ModeAgent))
}

func TestToggleBackendMode_UnknownModeIsNoOp(t *testing.T) {
	c, _ := newTestConversation(t)
	assert.False(t, c.ToggleBackendMode(backend.ModeClaude))
	assert.Equal(t, backend.ModeLegacy, c.State().BackendMode)
}

func TestNextMode(t *testing.T) {
	c, _ := newTestConversation(t)
	assert.Equal(t, backend.ModeAgent, c.NextMode())
	require.True(t, c.ToggleBackendMode(c.NextMode()))
	assert.Equal(t, backend.ModeLegacy, c.NextMode())
}

func TestSubmit_NoAdapterForModeSettlesWithFailure(t *testing.T) {
	registry, err := backend.NewRegistry()
	require.NoError(t, err)
	c := NewConversation(newGatedDispatcher(), registry)

	require.True(t, c.Submit(context.Background(), "hello"))
	c.Wait()

	state := c.State()
	assert.False(t, state.IsBusy)
	assert.Equal(t, dispatch.GenericFailureMessage, state.Last().Text)
	requireInvariants(t, state)
}

func TestObserver_SeesEveryTransition(t *testing.T) {
	var mu sync.Mutex
	var states []ConversationState
	observer := func(s ConversationState) {
		mu.Lock()
		defer mu.Unlock()
		states = append(states, s)
	}
	c, dispatcher := newTestConversation(t, WithObserver(observer))

	require.True(t, c.Submit(context.Background(), "hello"))
	dispatcher.release(c, dispatch.Success("world"))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, states, 2)
	assert.True(t, states[0].IsBusy)
	assert.False(t, states[1].IsBusy)
	for _, s := range states {
		requireInvariants(t, s)
	}
}

func TestState_IsACopy(t *testing.T) {
	c, _ := newTestConversation(t)
	state := c.State()
	state.History[0].Text = "tampered"

	assert.Equal(t, DefaultGreeting, c.State().History[0].Text)
}

func TestMessages_AreStamped(t *testing.T) {
	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	c, dispatcher := newTestConversation(t, withClock(func() time.Time { return fixed }))
	require.True(t, c.Submit(context.Background(), "hello"))
	dispatcher.release(c, dispatch.Success("world"))

	ids := map[string]bool{}
	for _, m := range c.State().History {
		assert.Equal(t, fixed, m.CreatedAt)
		assert.NotEmpty(t, m.ID)
		ids[m.ID] = true
	}
	assert.Len(t, ids, 3, "message IDs must be unique")
}

// The scenarios below drive a conversation through a real dispatch service against test servers

func newServedConversation(t *testing.T, handler http.HandlerFunc, opts ...Option) *Conversation {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	service := dispatch.NewService(dispatch.NewHTTPTransport(server.Client()))
	return NewConversation(service, testRegistry(t, server.URL, server.URL+"/agent"), opts...)
}

func respond(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}

func TestScenario_LegacyReply(t *testing.T) {
	c := newServedConversation(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		_, _ = io.WriteString(w, `{"reply":"world"}`)
	})

	require.True(t, c.Submit(context.Background(), "hello"))
	c.Wait()
	state := c.State()

	last := state.Last()
	assert.Equal(t, "world", last.Text)
	assert.Equal(t, OriginAssistant, last.Origin)
	assert.False(t, last.IsPlaceholder)
	assert.False(t, state.IsBusy)
	requireInvariants(t, state)
}

func TestScenario_AgentEmptyText(t *testing.T) {
	c := newServedConversation(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/agent", r.URL.Path)
		_, _ = io.WriteString(w, `{"text":""}`)
	}, WithBackendMode(backend.ModeAgent))

	require.True(t, c.Submit(context.Background(), "hello"))
	c.Wait()
	state := c.State()

	last := state.Last()
	assert.NotEmpty(t, last.Text)
	assert.Contains(t, last.Text, "Unexpected response")
	assert.Contains(t, last.Text, `{"text":""}`)
	assert.Equal(t, OriginAssistant, last.Origin)
	assert.False(t, state.IsBusy)
}

func TestScenario_ServerError(t *testing.T) {
	c := newServedConversation(t, respond(http.StatusInternalServerError, `{"error":"boom"}`))

	require.True(t, c.Submit(context.Background(), "hello"))
	c.Wait()
	state := c.State()

	assert.Contains(t, state.Last().Text, "500")
	assert.Contains(t, state.Last().Text, `{"error":"boom"}`)
	assert.False(t, state.IsBusy)
	requireInvariants(t, state)
}

func TestScenario_NetworkFailure(t *testing.T) {
	server := httptest.NewServer(respond(http.StatusOK, `{"reply":"never"}`))
	url := server.URL
	server.Close()
	service := dispatch.NewService(dispatch.NewHTTPTransport(nil))
	c := NewConversation(service, testRegistry(t, url, url))

	require.True(t, c.Submit(context.Background(), "hello"))
	c.Wait()
	state := c.State()

	assert.Equal(t, dispatch.GenericFailureMessage, state.Last().Text)
	assert.False(t, state.IsBusy)
	requireInvariants(t, state)
}
