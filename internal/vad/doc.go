// Package vad provides an energy-based voice-activity gate with configurable
// aggressiveness and a minimum speech RMS floor.
package vad
