package gemini_live

import (
	"errors"
	"strings"

	"google.golang.org/genai"

	"github.com/vango-go/vai-copilot/pkg/core/live"
)

// ErrGoAway is reported when the server announces it will drop the connection.
var ErrGoAway = errors.New("server requested disconnect")

// decodeServerMessage maps one server message to engine events, in the
// order input, output, turn boundary, go-away.
//
// Response text comes from the output transcription when present and from
// the model turn's text parts otherwise, so audio and text modalities never
// double-count.
func decodeServerMessage(msg *genai.LiveServerMessage) []live.Event {
	if msg == nil {
		return nil
	}

	var events []live.Event
	if sc := msg.ServerContent; sc != nil {
		// Gemini Live transcriptions carry no speaker labels, so Segments is
		// never set here and input is recorded as plain text.
		if t := sc.InputTranscription; t != nil && t.Text != "" {
			events = append(events, live.InputTranscriptionDelta{Text: t.Text})
		}

		if t := sc.OutputTranscription; t != nil && t.Text != "" {
			events = append(events, live.OutputTranscriptionDelta{Text: t.Text})
		} else if text := modelTurnText(sc.ModelTurn); text != "" {
			events = append(events, live.OutputTranscriptionDelta{Text: text})
		}

		if sc.TurnComplete {
			events = append(events, live.TurnComplete{})
		}
	}

	if msg.GoAway != nil {
		events = append(events, live.ChannelError{Err: ErrGoAway})
	}
	return events
}

func modelTurnText(content *genai.Content) string {
	if content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range content.Parts {
		if part == nil || part.Thought {
			continue
		}
		sb.WriteString(part.Text)
	}
	return sb.String()
}
