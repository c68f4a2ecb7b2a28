package audit

import (
	"fmt"
	"sort"
	"strings"
	"time"

	id "repoguard/pkg/domain"
)

// Filter selects and orders events for QueryEvents. Zero values mean
// "no constraint". Filtering is pure: it never mutates stored events.
type Filter struct {
	Types      []EventType
	Severities []Severity
	Categories []EventCategory

	ActorID   id.UserID
	SessionID id.SessionID
	Workspace string

	ResourceType  string
	Origin        string
	CorrelationID id.CorrelationID

	// From is inclusive, To is exclusive.
	From time.Time
	To   time.Time

	// Search is a case-insensitive substring match over the stringified
	// details, the action, and the resource type.
	Search string

	// SortBy selects the sort field: timestamp, severity, type, actor,
	// origin, result, or category. Empty means timestamp.
	SortBy string
	// SortAsc flips the default descending order.
	SortAsc bool

	Offset int
	Limit  int
}

func (f *Filter) matches(e *Event) bool {
	if len(f.Types) > 0 && !containsType(f.Types, e.Type) {
		return false
	}
	if len(f.Severities) > 0 && !containsSeverity(f.Severities, e.Severity) {
		return false
	}
	if len(f.Categories) > 0 && !containsCategory(f.Categories, e.Category) {
		return false
	}
	if f.ActorID != "" && e.ActorID != f.ActorID {
		return false
	}
	if f.SessionID != "" && e.SessionID != f.SessionID {
		return false
	}
	if f.Workspace != "" && e.Workspace != f.Workspace {
		return false
	}
	if f.ResourceType != "" && e.ResourceType != f.ResourceType {
		return false
	}
	if f.Origin != "" && e.Origin != f.Origin {
		return false
	}
	if f.CorrelationID != "" && e.CorrelationID != f.CorrelationID {
		return false
	}
	if !f.From.IsZero() && e.Timestamp.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && !e.Timestamp.Before(f.To) {
		return false
	}
	if f.Search != "" && !matchesSearch(e, f.Search) {
		return false
	}
	return true
}

func matchesSearch(e *Event, query string) bool {
	query = strings.ToLower(query)
	haystack := strings.ToLower(strings.Join([]string{
		e.Action,
		e.ResourceType,
		e.ResourceID,
		e.Details.Error,
		fmt.Sprintf("%v", e.Details.Parameters),
		fmt.Sprintf("%v", e.Details.Before),
		fmt.Sprintf("%v", e.Details.After),
		strings.Join(e.Details.Related, " "),
	}, " "))
	return strings.Contains(haystack, query)
}

// apply filters, sorts, and paginates a snapshot.
func (f *Filter) apply(events []Event) []Event {
	matched := make([]Event, 0, len(events))
	for i := range events {
		if f.matches(&events[i]) {
			matched = append(matched, events[i])
		}
	}

	sortEvents(matched, f.SortBy, f.SortAsc)

	if f.Offset > 0 {
		if f.Offset >= len(matched) {
			return []Event{}
		}
		matched = matched[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(matched) {
		matched = matched[:f.Limit]
	}
	return matched
}

// sortEvents orders events by the named field, descending unless asc.
// Ties fall back to timestamp so pagination stays stable.
func sortEvents(events []Event, field string, asc bool) {
	less := lessFunc(field)
	sort.SliceStable(events, func(i, j int) bool {
		a, b := &events[i], &events[j]
		if asc {
			return less(a, b)
		}
		return less(b, a)
	})
}

func lessFunc(field string) func(a, b *Event) bool {
	switch field {
	case "severity":
		return func(a, b *Event) bool {
			if a.Severity.Rank() != b.Severity.Rank() {
				return a.Severity.Rank() < b.Severity.Rank()
			}
			return a.Timestamp.Before(b.Timestamp)
		}
	case "type":
		return func(a, b *Event) bool {
			if a.Type != b.Type {
				return a.Type < b.Type
			}
			return a.Timestamp.Before(b.Timestamp)
		}
	case "actor":
		return func(a, b *Event) bool {
			if a.ActorID != b.ActorID {
				return a.ActorID < b.ActorID
			}
			return a.Timestamp.Before(b.Timestamp)
		}
	case "origin":
		return func(a, b *Event) bool {
			if a.Origin != b.Origin {
				return a.Origin < b.Origin
			}
			return a.Timestamp.Before(b.Timestamp)
		}
	case "result":
		return func(a, b *Event) bool {
			if a.Result != b.Result {
				return a.Result < b.Result
			}
			return a.Timestamp.Before(b.Timestamp)
		}
	case "category":
		return func(a, b *Event) bool {
			if a.Category != b.Category {
				return a.Category < b.Category
			}
			return a.Timestamp.Before(b.Timestamp)
		}
	default: // timestamp
		return func(a, b *Event) bool {
			return a.Timestamp.Before(b.Timestamp)
		}
	}
}

func containsType(list []EventType, v EventType) bool {
	for _, t := range list {
		if t == v {
			return true
		}
	}
	return false
}

func containsSeverity(list []Severity, v Severity) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func containsCategory(list []EventCategory, v EventCategory) bool {
	for _, c := range list {
		if c == v {
			return true
		}
	}
	return false
}
