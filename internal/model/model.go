package model

import "time"

// UnknownSender is used for transcript lines that carry no sender clause.
const UnknownSender = "Unknown"

// Message represents a single parsed transcript line.
type Message struct {
	// Timestamp carries the wall-clock fields of the source line in the
	// location the transcript was parsed with.
	Timestamp time.Time

	Sender string
	Body   string

	// Origin identifies the input the line came from. It only feeds the
	// identity hash and is never rendered.
	Origin string

	// ID is the content-addressed identity (SHA-1 hex).
	ID string

	// DiaryDay is the MM/DD/YYYY label assigned after the cutoff rule.
	// Empty until assigned.
	DiaryDay string
}

// Group is one calendar event candidate: every message of one sender on
// one diary day, ordered by (Timestamp, ID).
type Group struct {
	Sender     string
	DisplayDay string
	Messages   []Message

	// ID is derived from the ordered member IDs.
	ID string
}

// First returns the anchor message of the group.
func (g Group) First() Message {
	return g.Messages[0]
}
