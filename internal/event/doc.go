// Package event defines conversation/presence events and the in-process event bus.
// Publish fans events out to independent per-subscriber queues so one slow
// consumer can never stall the publisher or its peers.
package event
