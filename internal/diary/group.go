package diary

import (
	"cmp"
	"slices"

	"kakaocal/internal/identity"
	"kakaocal/internal/model"
)

type groupKey struct {
	sender string
	day    string
}

// CompareMessages orders messages by timestamp, then identity.
func CompareMessages(a, b model.Message) int {
	if c := a.Timestamp.Compare(b.Timestamp); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// SortMessages sorts msgs in place by (timestamp, identity).
func SortMessages(msgs []model.Message) {
	slices.SortFunc(msgs, CompareMessages)
}

// GroupMessages buckets msgs by (sender, diary day). Messages without a
// diary day fall back to their literal date. The result is ordered by
// (first timestamp, sender, group identity) and does not depend on the
// order of msgs.
func GroupMessages(msgs []model.Message) []model.Group {
	if len(msgs) == 0 {
		return nil
	}

	buckets := make(map[groupKey]*model.Group)
	for _, m := range msgs {
		day := m.DiaryDay
		if day == "" {
			day = FormatDate(m.Timestamp)
		}

		key := groupKey{sender: m.Sender, day: day}
		g, ok := buckets[key]
		if !ok {
			g = &model.Group{Sender: m.Sender, DisplayDay: day}
			buckets[key] = g
		}
		g.Messages = append(g.Messages, m)
	}

	groups := make([]model.Group, 0, len(buckets))
	for _, g := range buckets {
		SortMessages(g.Messages)

		ids := make([]string, len(g.Messages))
		for i, m := range g.Messages {
			ids[i] = m.ID
		}
		g.ID = identity.Group(ids)

		groups = append(groups, *g)
	}

	slices.SortFunc(groups, compareGroups)
	return groups
}

func compareGroups(a, b model.Group) int {
	if c := a.First().Timestamp.Compare(b.First().Timestamp); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Sender, b.Sender); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}
