package ai

import (
	"context"
	"fmt"
	"log"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cchalm/chat-console/internal/backend"
	"github.com/cchalm/chat-console/internal/dispatch"
	"github.com/cchalm/chat-console/internal/telemetry"
)

const (
	// DefaultGreeting seeds every new conversation unless another greeting is configured
	DefaultGreeting = "Hello! I'm your AI assistant. How can I help you today?"
	// ThinkingText is the text of the placeholder shown while a reply is outstanding
	ThinkingText = "Thinking..."
)

// Dispatcher sends a prompt to a backend and reports the normalized outcome
type Dispatcher interface {
	Send(ctx context.Context, prompt string, adapter backend.Adapter) dispatch.Outcome
}

// Conversation owns the transcript of a chat session and the state machine that drives it. It is
// either idle or awaiting exactly one reply; while awaiting, the last message in the history is
// the thinking placeholder and new submissions and mode changes are rejected.
type Conversation struct {
	dispatcher     Dispatcher
	adapters       *backend.Registry
	observer       func(ConversationState)
	conversationID string
	greeting       string
	now            func() time.Time

	mu           sync.Mutex
	history      []Message
	pendingInput string
	busy         bool
	mode         string

	inflight sync.WaitGroup
}

type Option func(*Conversation)

// WithObserver registers a function called with a fresh snapshot after every state change. It is
// called without any lock held, possibly from the dispatch goroutine.
func WithObserver(observer func(ConversationState)) Option {
	return func(c *Conversation) {
		c.observer = observer
	}
}

// WithGreeting overrides the message the conversation is seeded with
func WithGreeting(greeting string) Option {
	return func(c *Conversation) {
		if strings.TrimSpace(greeting) != "" {
			c.greeting = greeting
		}
	}
}

// WithBackendMode selects the initial backend mode. Unregistered modes are ignored.
func WithBackendMode(mode string) Option {
	return func(c *Conversation) {
		if c.adapters.Has(mode) {
			c.mode = mode
		}
	}
}

func withClock(now func() time.Time) Option {
	return func(c *Conversation) {
		c.now = now
	}
}

// NewConversation creates an idle conversation seeded with a greeting. The initial backend mode is
// the first mode in adapters unless WithBackendMode says otherwise.
func NewConversation(dispatcher Dispatcher, adapters *backend.Registry, opts ...Option) *Conversation {
	c := &Conversation{
		dispatcher:     dispatcher,
		adapters:       adapters,
		conversationID: telemetry.NewConversationID(),
		greeting:       DefaultGreeting,
		now:            time.Now,
	}
	if modes := adapters.Modes(); len(modes) > 0 {
		c.mode = modes[0]
	}
	for _, opt := range opts {
		opt(c)
	}

	c.history = []Message{c.newMessage(c.greeting, OriginAssistant, false)}
	return c
}

// ID returns the conversation's unique ID
func (c *Conversation) ID() string {
	return c.conversationID
}

// State returns a snapshot of the conversation
func (c *Conversation) State() ConversationState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

// SetPendingInput records the user's draft. Drafts are frozen while a reply is outstanding.
func (c *Conversation) SetPendingInput(text string) {
	c.mu.Lock()
	if c.busy || c.pendingInput == text {
		c.mu.Unlock()
		return
	}
	c.pendingInput = text
	state := c.snapshot()
	c.mu.Unlock()

	c.notify(state)
}

// Submit sends text to the active backend. It returns false, changing nothing, if text is blank or
// a reply is already outstanding. Otherwise the user message and the thinking placeholder are
// appended and the dispatch runs in the background; its outcome replaces the placeholder.
//
// ctx bounds the dispatch. The conversation itself never cancels a dispatch once started.
func (c *Conversation) Submit(ctx context.Context, text string) bool {
	c.mu.Lock()
	if c.busy || strings.TrimSpace(text) == "" {
		c.mu.Unlock()
		return false
	}

	c.history = append(c.history,
		c.newMessage(text, OriginUser, false),
		c.newMessage(ThinkingText, OriginAssistant, true),
	)
	c.pendingInput = ""
	c.busy = true
	mode := c.mode
	adapter, ok := c.adapters.Get(mode)
	state := c.snapshot()
	c.inflight.Add(1)
	c.mu.Unlock()

	c.notify(state)

	ctx = telemetry.WithConversationID(ctx, c.conversationID)
	go func() {
		defer c.inflight.Done()

		var outcome dispatch.Outcome
		if !ok {
			outcome = dispatch.Failed(&dispatch.TransportError{
				Op:  "build",
				Err: fmt.Errorf("no adapter registered for backend mode '%s'", mode),
			})
		} else {
			outcome = c.dispatcher.Send(ctx, text, adapter)
		}
		c.settle(outcome)
	}()

	return true
}

// settle replaces the placeholder with the outcome of the dispatch and returns to idle. Success
// and failure take the same path; only the text differs.
func (c *Conversation) settle(outcome dispatch.Outcome) {
	c.mu.Lock()
	i := slices.IndexFunc(c.history, func(m Message) bool { return m.IsPlaceholder })
	if i < 0 {
		log.Printf("Internal consistency violation: conversation %s settled without a placeholder", c.conversationID)
	} else {
		c.history = slices.Delete(c.history, i, i+1)
	}
	c.history = append(c.history, c.newMessage(outcome.Text, OriginAssistant, false))
	c.busy = false
	state := c.snapshot()
	c.mu.Unlock()

	c.notify(state)
}

// ToggleBackendMode switches the backend used for future submissions. It returns false, changing
// nothing, while a reply is outstanding or if no adapter serves mode.
func (c *Conversation) ToggleBackendMode(mode string) bool {
	c.mu.Lock()
	if c.busy || !c.adapters.Has(mode) {
		c.mu.Unlock()
		return false
	}
	changed := c.mode != mode
	c.mode = mode
	state := c.snapshot()
	c.mu.Unlock()

	if changed {
		log.Printf("Backend mode set to %s", mode)
		c.notify(state)
	}
	return true
}

// Modes returns the backend modes the conversation can be toggled to
func (c *Conversation) Modes() []string {
	return c.adapters.Modes()
}

// NextMode returns the mode after the current one, for UIs that cycle through modes
func (c *Conversation) NextMode() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.adapters.Next(c.mode)
}

// Wait blocks until no dispatch is outstanding
func (c *Conversation) Wait() {
	c.inflight.Wait()
}

func (c *Conversation) newMessage(text string, origin Origin, placeholder bool) Message {
	return Message{
		ID:            uuid.New().String(),
		Text:          text,
		Origin:        origin,
		IsPlaceholder: placeholder,
		CreatedAt:     c.now(),
	}
}

// snapshot must be called with mu held
func (c *Conversation) snapshot() ConversationState {
	return ConversationState{
		ConversationID: c.conversationID,
		History:        slices.Clone(c.history),
		PendingInput:   c.pendingInput,
		IsBusy:         c.busy,
		BackendMode:    c.mode,
	}
}

func (c *Conversation) notify(state ConversationState) {
	if c.observer != nil {
		c.observer(state)
	}
}
