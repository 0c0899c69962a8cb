// Package identity derives the content-addressed keys used for
// deduplication (per message) and for stable event UIDs (per group).
//
// The digest is SHA-1 over fields joined with a bare "|". Fields are not
// escaped, so a "|" inside a sender or body can in theory collide with a
// different split. Changing the input format or the algorithm changes every
// identity and invalidates persisted dedup stores, so Version must be bumped
// together with any such change.
package identity

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"
	"time"
)

// Version of the identity scheme. Stores written by another version are not
// comparable.
const Version = 1

const (
	delimiter = "|"

	// timestampLayout matches an ISO-8601 UTC instant with milliseconds.
	timestampLayout = "2006-01-02T15:04:05.000Z"
)

// Timestamp renders ts as the UTC string that feeds the message digest.
func Timestamp(ts time.Time) string {
	return ts.UTC().Format(timestampLayout)
}

// Message returns the identity of one transcript line.
func Message(origin string, ts time.Time, sender, body string) string {
	return digest(origin, Timestamp(ts), sender, body)
}

// Group returns the identity of an ordered list of message identities.
// Order matters: callers must sort members first.
func Group(ids []string) string {
	return digest(ids...)
}

func digest(parts ...string) string {
	sum := sha1.Sum([]byte(strings.Join(parts, delimiter)))
	return hex.EncodeToString(sum[:])
}
