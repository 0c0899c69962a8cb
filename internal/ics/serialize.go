package ics

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"kakaocal/internal/diary"
	"kakaocal/internal/model"
)

const (
	prodID    = "-//kakao-chat-to-ics//EN"
	uidSuffix = "@kakao-chat"
	category  = "Kakao Diary"

	// DefaultDurationMinutes is recorded in X-KAKAO-DURATION-MINUTES.
	DefaultDurationMinutes = 30

	maxLineBytes    = 75
	maxSubjectRunes = 60
	crlf            = "\r\n"

	dateLayout  = "20060102"
	stampLayout = "20060102T150405Z"
)

var textEscaper = strings.NewReplacer(
	`\`, `\\`,
	"\n", `\n`,
	",", `\,`,
	";", `\;`,
)

var newlineNormalizer = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// Serializer renders groups into an iCalendar document of all-day events.
type Serializer struct {
	// DurationMinutes is informational only.
	DurationMinutes int

	// Location anchors the all-day dates. Nil means time.Local.
	Location *time.Location

	// Now supplies DTSTAMP. Nil means time.Now.
	Now func() time.Time
}

// Render returns the complete document with CRLF line endings, folded at
// 75 bytes, ending with a trailing CRLF.
func (s Serializer) Render(groups []model.Group) string {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	duration := s.DurationMinutes
	if duration <= 0 {
		duration = DefaultDurationMinutes
	}
	dtstamp := now().UTC().Format(stampLayout)

	lines := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:" + prodID,
		"CALSCALE:GREGORIAN",
		"METHOD:PUBLISH",
	}

	for _, g := range groups {
		start := diary.ParseDay(g.DisplayDay, s.Location)
		end := start.AddDate(0, 0, 1)

		lines = append(lines,
			"BEGIN:VEVENT",
			"UID:"+EscapeText(UID(g)),
			"DTSTAMP:"+dtstamp,
			"DTSTART;VALUE=DATE:"+start.Format(dateLayout),
			"DTEND;VALUE=DATE:"+end.Format(dateLayout),
			"SUMMARY:"+EscapeText(Subject(g)),
			"DESCRIPTION:"+EscapeText(Description(g)),
			"TRANSP:OPAQUE",
			"CLASS:PRIVATE",
			"STATUS:CONFIRMED",
			"CATEGORIES:"+category,
			"X-MICROSOFT-CDO-ALLDAYEVENT:TRUE",
			fmt.Sprintf("X-KAKAO-DURATION-MINUTES:%d", duration),
			"END:VEVENT",
		)
	}

	lines = append(lines, "END:VCALENDAR")

	var b strings.Builder
	for _, l := range lines {
		b.WriteString(FoldLine(l))
		b.WriteString(crlf)
	}
	return b.String()
}

// UID is the stable event identifier of a group.
func UID(g model.Group) string {
	return g.ID + uidSuffix
}

// Subject builds the event title: "<sender> - <first body> (+N more)".
func Subject(g model.Group) string {
	prefix := g.Sender
	if prefix == "" {
		prefix = "Diary"
	}

	var first string
	if len(g.Messages) > 0 {
		first = g.Messages[0].Body
	}
	if first == "" {
		return prefix + " entry"
	}

	snippet := first
	if utf8.RuneCountInString(first) > maxSubjectRunes {
		snippet = string([]rune(first)[:maxSubjectRunes-3]) + "..."
	}

	if extra := len(g.Messages) - 1; extra > 0 {
		return fmt.Sprintf("%s - %s (+%d more)", prefix, snippet, extra)
	}
	return prefix + " - " + snippet
}

// Description lists the entry metadata followed by every body in order.
// Timestamps and origins are left out on purpose.
func Description(g model.Group) string {
	day := g.DisplayDay
	if day == "" && len(g.Messages) > 0 {
		day = diary.FormatDate(g.Messages[0].Timestamp)
	}

	bodies := make([]string, len(g.Messages))
	for i, m := range g.Messages {
		bodies[i] = m.Body
	}

	return strings.Join([]string{
		"Original Sender: " + g.Sender,
		fmt.Sprintf("Message Count: %d", len(g.Messages)),
		"Entry Date: " + day,
		"Entry ID: " + g.ID,
		"",
		strings.Join(bodies, "\n\n"),
	}, "\n")
}

// EscapeText applies TEXT value escaping after normalizing line breaks.
func EscapeText(v string) string {
	return textEscaper.Replace(newlineNormalizer.Replace(v))
}

// FoldLine splits a content line longer than 75 bytes into segments joined
// by CRLF plus one space. Continuation segments count the leading space and
// never split a multi-byte character.
func FoldLine(line string) string {
	if len(line) <= maxLineBytes {
		return line
	}

	var (
		b   strings.Builder
		cur int
	)
	for i := 0; i < len(line); {
		_, n := utf8.DecodeRuneInString(line[i:])
		if cur+n > maxLineBytes {
			b.WriteString(crlf + " ")
			cur = 1
		}
		b.WriteString(line[i : i+n])
		cur += n
		i += n
	}
	return b.String()
}
