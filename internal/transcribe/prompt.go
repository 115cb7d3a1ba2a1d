package transcribe

import "strings"

// BuildPrompt assembles the priming prompt sent to transcription backends
// that accept one. Recently seen names bias the recognizer toward spelling
// them correctly, which matters most for Indian English names that generic
// models tend to mangle.
func BuildPrompt(recentNames []string) string {
	var b strings.Builder
	b.WriteString("Conversational Indian English. Transcribe names carefully.")
	if len(recentNames) > 0 {
		b.WriteString(" People who may be speaking: ")
		b.WriteString(strings.Join(recentNames, ", "))
		b.WriteString(".")
	}
	return b.String()
}
