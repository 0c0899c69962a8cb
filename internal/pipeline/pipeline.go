// Package pipeline wires parser, dedup filter, diary-day assignment,
// grouping and serialization into one side-effect-free call shared by the
// CLI batch runner, the watch scheduler and the HTTP front end.
package pipeline

import (
	"time"

	"kakaocal/internal/chat"
	"kakaocal/internal/dedup"
	"kakaocal/internal/diary"
	"kakaocal/internal/ics"
	"kakaocal/internal/model"
)

// Source is the full text of one export plus its origin label.
type Source struct {
	Origin  string
	Content string
}

// Options are the plain parameters of one run.
type Options struct {
	CutoffHour      int
	DurationMinutes int

	// Location interprets transcript wall-clock times. Nil means time.Local.
	Location *time.Location

	// Now supplies DTSTAMP. Nil means time.Now.
	Now func() time.Time
}

// Result is the outcome of Process.
type Result struct {
	Parsed int
	Fresh  []model.Message
	Groups []model.Group

	// Calendar is empty when no fresh messages remained.
	Calendar string
}

// Empty reports whether the run produced no new events.
func (r Result) Empty() bool {
	return len(r.Groups) == 0
}

// Process parses every source, filters against seen (mutating it), and
// renders the remaining messages. A nil store filters nothing known but
// still drops in-run duplicates.
func Process(sources []Source, seen *dedup.Store, opts Options) Result {
	if seen == nil {
		seen = dedup.New()
	}

	var messages []model.Message
	for _, src := range sources {
		messages = append(messages, chat.Parse(src.Content, src.Origin, opts.Location)...)
	}
	diary.SortMessages(messages)

	res := Result{Parsed: len(messages)}
	res.Fresh = seen.Filter(messages)
	if len(res.Fresh) == 0 {
		return res
	}

	diary.Assign(res.Fresh, opts.CutoffHour)
	res.Groups = diary.GroupMessages(res.Fresh)

	s := ics.Serializer{
		DurationMinutes: opts.DurationMinutes,
		Location:        opts.Location,
		Now:             opts.Now,
	}
	res.Calendar = s.Render(res.Groups)
	return res
}
