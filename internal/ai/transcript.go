package ai

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"text/template"
	"time"
)

//go:embed transcript.tmpl
var transcriptTemplate string

// transcriptData is the data the transcript template is rendered from
type transcriptData struct {
	ConversationID string
	ExportedAt     string
	BackendMode    string
	Messages       []transcriptMessage
}

type transcriptMessage struct {
	Heading string
	Time    string
	Text    string
	IsUser  bool
}

// Transcript renders a conversation snapshot as markdown. The thinking placeholder is left out; a
// transcript exported while a reply is outstanding simply ends at the user's last message.
func Transcript(state ConversationState, exportedAt time.Time) (string, error) {
	data := transcriptData{
		ConversationID: state.ConversationID,
		ExportedAt:     exportedAt.Format("2006-01-02 15:04:05 MST"),
		BackendMode:    state.BackendMode,
	}
	for _, m := range state.History {
		if m.IsPlaceholder {
			continue
		}
		heading := "Assistant"
		if m.Origin == OriginUser {
			heading = "You"
		}
		data.Messages = append(data.Messages, transcriptMessage{
			Heading: heading,
			Time:    m.CreatedAt.Format("15:04:05"),
			Text:    strings.TrimRight(m.Text, "\n"),
			IsUser:  m.Origin == OriginUser,
		})
	}

	return renderTranscript(data)
}

func renderTranscript(data transcriptData) (string, error) {
	funcMap := template.FuncMap{
		"indent": func(prefix string, text string) string {
			prefixed := strings.Builder{}
			for line := range strings.Lines(text) {
				prefixed.WriteString(prefix)
				prefixed.WriteString(line)
			}
			return prefixed.String()
		},
	}

	tmpl, err := template.New("transcript").Funcs(funcMap).Parse(transcriptTemplate)
	if err != nil {
		return "", fmt.Errorf("failed to parse transcript template: %w", err)
	}

	var buf bytes.Buffer
	err = tmpl.Execute(&buf, data)
	if err != nil {
		return "", fmt.Errorf("failed to execute transcript template: %w", err)
	}

	return buf.String(), nil
}
