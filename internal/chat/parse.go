package chat

import (
	"regexp"
	"strings"
	"time"

	"kakaocal/internal/identity"
	appLog "kakaocal/internal/log"
	"kakaocal/internal/model"
)

const narrowNoBreakSpace = "\u202f"

// timeLayout parses the reassembled "<date> <h:mm> <AM|PM>" string.
const timeLayout = "Jan 2, 2006 3:04 PM"

var (
	lineBreak = regexp.MustCompile(`\r\n|\r|\n`)

	// dayHeader matches separators such as "Friday, January 5, 2024".
	dayHeader = regexp.MustCompile(`^[A-Za-z]+, [A-Za-z]+ \d{1,2}, \d{4}$`)

	// messageLine captures date, time, meridiem, optional sender and body.
	messageLine = regexp.MustCompile(`(?i)^([A-Za-z]{3} \d{1,2}, \d{4}) at ([0-9]{1,2}:[0-9]{2})[ \x{202f}]?(AM|PM)(?:,\s*([^:]+?))?\s*:\s*(.*)$`)

	headerPrefixes = []string{"Talk_", "Date Saved"}
)

// Parse turns the full text of one export into messages, in file order.
//
// Lines that are blank, file headers, day separators, or that do not match
// the message pattern are dropped without error. Wall-clock fields are
// interpreted in loc; nil means time.Local.
func Parse(text, origin string, loc *time.Location) []model.Message {
	if loc == nil {
		loc = time.Local
	}

	var (
		messages []model.Message
		skipped  int
	)

	for _, raw := range lineBreak.Split(text, -1) {
		line := strings.TrimSpace(raw)
		if line == "" || isHeader(line) || dayHeader.MatchString(line) {
			continue
		}

		msg, ok := parseLine(line, origin, loc)
		if !ok {
			skipped++
			continue
		}
		messages = append(messages, msg)
	}

	appLog.Debug("chat parse completed", "origin", origin, "message_count", len(messages), "skipped", skipped)
	return messages
}

func isHeader(line string) bool {
	for _, p := range headerPrefixes {
		if strings.HasPrefix(line, p) {
			return true
		}
	}
	return false
}

// parseLine matches one trimmed line. The second result is false for noise.
func parseLine(line, origin string, loc *time.Location) (model.Message, bool) {
	m := messageLine.FindStringSubmatchIndex(line)
	if m == nil {
		return model.Message{}, false
	}
	group := func(i int) string {
		if m[2*i] < 0 {
			return ""
		}
		return line[m[2*i]:m[2*i+1]]
	}

	clock := strings.TrimSpace(strings.ReplaceAll(group(2), narrowNoBreakSpace, " "))
	meridiem := strings.ToUpper(group(3))

	ts, err := time.ParseInLocation(timeLayout, group(1)+" "+clock+" "+meridiem, loc)
	if err != nil {
		return model.Message{}, false
	}

	sender := model.UnknownSender
	if m[8] >= 0 {
		sender = strings.TrimSpace(group(4))
	}
	body := strings.TrimSpace(group(5))

	return model.Message{
		Timestamp: ts,
		Sender:    sender,
		Body:      body,
		Origin:    origin,
		ID:        identity.Message(origin, ts, sender, body),
	}, true
}
