// Package identity resolves transcripts to known people using LLM-based name and
// relationship extraction plus person-directory lookup, and persists conversation
// records as an event-bus side effect.
package identity
