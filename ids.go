package main

import "github.com/google/uuid"

// newID returns a random v4 UUID string, used for match ids, beam ids, and
// coin-drop ids. google/uuid was already an indirect dependency in the
// teacher's go.mod (pulled in but never imported); this promotes it to
// direct use instead of hand-rolling a hex id generator.
func newID() string {
	return uuid.NewString()
}

// shortID returns a compact id (first 8 hex chars of a v4 UUID) for
// high-churn, short-lived entities like beams and coin drops, where a full
// UUID would bloat the per-tick wire payload for no benefit.
func shortID() string {
	return uuid.NewString()[:8]
}
