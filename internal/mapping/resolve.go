// Package mapping decides which family member an external calendar event or
// task list belongs to.
package mapping

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/dukerupert/homehub/internal/model"
)

const (
	// Family is the member name given to events nobody claimed.
	Family = "Family"

	DefaultColor = "#6B7280"
)

// Source records which rule decided an event's member.
type Source string

const (
	SourceOverride Source = "override"
	SourcePrefix   Source = "prefix"
	SourceDefault  Source = "default"
)

type ResolvedEvent struct {
	model.ExternalEvent
	Member string `json:"member"`
	Color  string `json:"color"`
	Source Source `json:"source"`
}

var prefixPattern = regexp.MustCompile(`^\[([^\]]+)\]\s*`)

// ResolveEvent assigns a member to an external event. A manual override wins,
// even when it is empty ("cleared"); then a leading "[Name]" in the title;
// then Family. The bracket prefix is always removed from the shown title.
func ResolveEvent(event model.ExternalEvent, overrides map[string]string, members []model.FamilyMember) ResolvedEvent {
	r := ResolvedEvent{ExternalEvent: event}

	prefixName := ""
	if m := prefixPattern.FindStringSubmatch(event.Title); m != nil {
		prefixName = strings.TrimSpace(m[1])
		r.Title = event.Title[len(m[0]):]
	}

	switch target, ok := overrides[event.ID]; {
	case ok:
		r.Member = target
		r.Source = SourceOverride
	case prefixName != "":
		r.Member = prefixName
		r.Source = SourcePrefix
	default:
		r.Member = Family
		r.Source = SourceDefault
	}

	r.Color = colorFor(r.Member, members)
	return r
}

// ResolveEvents resolves a batch against the same overrides and members.
func ResolveEvents(events []model.ExternalEvent, overrides map[string]string, members []model.FamilyMember) []ResolvedEvent {
	out := make([]ResolvedEvent, 0, len(events))
	for _, e := range events {
		out = append(out, ResolveEvent(e, overrides, members))
	}
	return out
}

func colorFor(name string, members []model.FamilyMember) string {
	for _, m := range members {
		if m.Name == name {
			return m.Color
		}
	}
	return DefaultColor
}

// ResolveTaskList returns the member id a task list is mapped to. Lists are
// only ever assigned by hand; an absent, cleared or unparsable mapping
// reports mapped == false.
func ResolveTaskList(listID string, overrides map[string]string) (*int64, bool) {
	target, ok := overrides[listID]
	if !ok || target == "" {
		return nil, false
	}
	id, err := strconv.ParseInt(target, 10, 64)
	if err != nil {
		return nil, false
	}
	return &id, true
}

// SuggestTaskListMember proposes a member for a list whose title and the
// member's name contain one another, ignoring case. It is only a hint for
// the settings screen and never feeds point attribution.
func SuggestTaskListMember(listTitle string, members []model.FamilyMember) *model.FamilyMember {
	title := strings.ToLower(strings.TrimSpace(listTitle))
	if title == "" {
		return nil
	}
	for i := range members {
		name := strings.ToLower(strings.TrimSpace(members[i].Name))
		if name == "" {
			continue
		}
		if strings.Contains(title, name) || strings.Contains(name, title) {
			return &members[i]
		}
	}
	return nil
}
