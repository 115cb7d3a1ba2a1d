package event

// Type identifies the kind of conversation event
type Type string

const (
	// TypeConversationEnd is published when an utterance has been transcribed
	// and resolved to a speaker.
	TypeConversationEnd Type = "CONVERSATION_END"

	// TypeFaceDetected is published when a face has been matched or newly
	// associated with a voice identity.
	TypeFaceDetected Type = "FACE_DETECTED"
)

// Utterance is a single speaker-attributed line of conversation.
// Immutable once constructed.
type Utterance struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// Event is a conversation/presence event published on the bus.
// Events are fanned out by value; subscribers cannot mutate a shared copy.
type Event struct {
	Type           Type        `json:"event_type"`
	PersonID       string      `json:"person_id,omitempty"`
	ConversationID string      `json:"conversation_id"`
	SessionID      string      `json:"session_id"`
	Conversation   []Utterance `json:"conversation"`
}

// Transcript joins the event's utterance texts into one string
func (e Event) Transcript() string {
	out := ""
	for i, u := range e.Conversation {
		if i > 0 {
			out += " "
		}
		out += u.Text
	}
	return out
}

// SpeakerName returns the display name of the first utterance, or "Unknown"
func (e Event) SpeakerName() string {
	if len(e.Conversation) > 0 && e.Conversation[0].Speaker != "" {
		return e.Conversation[0].Speaker
	}
	return "Unknown"
}
