package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Update is what an extractor learned about the speaker from a transcript.
// Empty fields mean the transcript did not reveal that detail.
type Update struct {
	Name         string `json:"name"`
	Relationship string `json:"relationship"`
	Summary      string `json:"summary"`
}

// Extractor pulls speaker identity hints out of a conversation transcript
type Extractor interface {
	// Name identifies the provider in logs
	Name() string
	// Available reports whether the provider can currently serve requests
	Available() bool
	// Extract analyzes a transcript and returns what it learned
	Extract(ctx context.Context, transcript string) (*Update, error)
}

// extractionPrompt instructs the model to answer in bare JSON so the
// response parses without a structured-output contract.
const extractionPrompt = `You are analyzing a transcript of someone speaking to a wearable assistant.
Extract what the conversation reveals about the speaker.

Respond with ONLY a JSON object, no markdown, in this exact shape:
{"name": "", "relationship": "", "summary": ""}

- name: the speaker's own name if they state or strongly imply it, else ""
- relationship: their relationship to the wearer (friend, colleague, doctor, ...) if revealed, else ""
- summary: one sentence summarizing what was discussed

Transcript:
`

// parseUpdate tolerantly decodes a model reply into an Update. Models
// sometimes wrap JSON in markdown fences or prose despite instructions.
func parseUpdate(reply string) (*Update, error) {
	start := strings.IndexByte(reply, '{')
	end := strings.LastIndexByte(reply, '}')
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in reply")
	}

	var upd Update
	if err := json.Unmarshal([]byte(reply[start:end+1]), &upd); err != nil {
		return nil, fmt.Errorf("failed to parse extraction reply: %w", err)
	}

	upd.Name = strings.TrimSpace(upd.Name)
	upd.Relationship = strings.TrimSpace(upd.Relationship)
	upd.Summary = strings.TrimSpace(upd.Summary)

	// Models sometimes echo placeholders instead of leaving fields empty
	for _, junk := range []string{"unknown", "n/a", "none", "null"} {
		if strings.EqualFold(upd.Name, junk) {
			upd.Name = ""
		}
		if strings.EqualFold(upd.Relationship, junk) {
			upd.Relationship = ""
		}
	}
	return &upd, nil
}
