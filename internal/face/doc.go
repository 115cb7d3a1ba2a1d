// Package face provides embedding-based face matching against a person directory
// and the narrow interfaces to the external face detector and person store.
package face
