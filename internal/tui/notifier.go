package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/cchalm/chat-console/internal/ai"
)

// conversationChangedMsg tells the model to re-read the conversation state
type conversationChangedMsg struct{}

// Notifier bridges conversation observer callbacks, which may arrive on any goroutine, into the
// bubbletea event loop. Bursts of changes are coalesced into a single message.
type Notifier struct {
	changes chan struct{}
}

func NewNotifier() *Notifier {
	return &Notifier{changes: make(chan struct{}, 1)}
}

// Observe is an ai.Conversation observer
func (n *Notifier) Observe(ai.ConversationState) {
	select {
	case n.changes <- struct{}{}:
	default:
		// A change is already pending
	}
}

func (n *Notifier) wait() tea.Cmd {
	return func() tea.Msg {
		<-n.changes
		return conversationChangedMsg{}
	}
}
