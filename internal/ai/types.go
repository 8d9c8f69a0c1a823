// Package ai provides conversation state management for the chat console.
package ai

import "time"

// Origin identifies who produced a message
type Origin int

const (
	OriginUser Origin = iota
	OriginAssistant
)

func (o Origin) String() string {
	switch o {
	case OriginUser:
		return "user"
	case OriginAssistant:
		return "assistant"
	default:
		return "unknown"
	}
}

// Message is a single transcript entry. Messages are never modified once appended; the thinking
// placeholder is replaced by a new message when its dispatch settles.
type Message struct {
	ID            string
	Text          string
	Origin        Origin
	IsPlaceholder bool
	CreatedAt     time.Time
}

// ConversationState is a snapshot of a conversation, safe to read while the conversation moves on
type ConversationState struct {
	ConversationID string
	History        []Message
	PendingInput   string
	IsBusy         bool
	BackendMode    string
}

// Placeholders returns the number of placeholder messages in the history
func (s ConversationState) Placeholders() int {
	n := 0
	for _, m := range s.History {
		if m.IsPlaceholder {
			n++
		}
	}
	return n
}

// Last returns the most recent message. The history always holds at least the greeting.
func (s ConversationState) Last() Message {
	return s.History[len(s.History)-1]
}
