package ics

import (
	"bytes"
	"errors"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "kakaocal/internal/log"
)

// Entry is the read-back view of one VEVENT in a generated document.
type Entry struct {
	UID         string
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
	AllDay      bool
	Categories  string
}

// Inspect parses an iCalendar payload and returns its events in document
// order. It relies on the library for unfolding, so it doubles as a check
// that Render output is readable by a standard parser.
func Inspect(body []byte) ([]Entry, error) {
	if len(body) == 0 {
		return nil, errors.New("empty ICS body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0)
	for _, ve := range cal.Events() {
		var e Entry

		if p := ve.GetProperty(ical.ComponentPropertyUniqueId); p != nil {
			e.UID = p.Value
		}
		if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
			e.Summary = p.Value
		}
		if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
			e.Description = p.Value
		}
		if p := ve.GetProperty(ical.ComponentPropertyCategories); p != nil {
			e.Categories = p.Value
		}

		if p := ve.GetProperty(ical.ComponentPropertyDtStart); p != nil {
			if vs, ok := p.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
				e.AllDay = true
			}
			if !strings.Contains(p.Value, "T") {
				e.AllDay = true
			}
		}

		if e.AllDay {
			e.Start, _ = ve.GetAllDayStartAt()
			e.End, _ = ve.GetAllDayEndAt()
		} else {
			e.Start, _ = ve.GetStartAt()
			e.End, _ = ve.GetEndAt()
		}

		entries = append(entries, e)
	}

	appLog.Debug("ics inspect completed", "event_count", len(entries))
	return entries, nil
}
