package audit

import (
	"sort"
	"time"

	id "repoguard/pkg/domain"
)

// SecurityStats is the rolling aggregate view over a (optionally
// time-bounded) slice of the event log.
type SecurityStats struct {
	TotalEvents int                   `json:"total_events"`
	ByType      map[EventType]int     `json:"by_type"`
	BySeverity  map[Severity]int      `json:"by_severity"`
	ByCategory  map[EventCategory]int `json:"by_category"`

	// FailedCount counts failure, error, and denied results.
	FailedCount     int `json:"failed_count"`
	DeniedCount     int `json:"denied_count"`
	CriticalCount   int `json:"critical_count"`
	SuspiciousCount int `json:"suspicious_count"`

	TopOrigins []OriginCount `json:"top_origins"`
	TopActors  []ActorCount  `json:"top_actors"`
}

type OriginCount struct {
	Origin string `json:"origin"`
	Count  int    `json:"count"`
}

type ActorCount struct {
	ActorID id.UserID `json:"actor_id"`
	Count   int       `json:"count"`
}

const topN = 10

// computeStats aggregates the event slice. From is inclusive, To exclusive;
// zero bounds mean unbounded.
func computeStats(events []Event, from, to time.Time) SecurityStats {
	stats := SecurityStats{
		ByType:     make(map[EventType]int),
		BySeverity: make(map[Severity]int),
		ByCategory: make(map[EventCategory]int),
	}
	origins := make(map[string]int)
	actors := make(map[id.UserID]int)

	for i := range events {
		e := &events[i]
		if !from.IsZero() && e.Timestamp.Before(from) {
			continue
		}
		if !to.IsZero() && !e.Timestamp.Before(to) {
			continue
		}

		stats.TotalEvents++
		stats.ByType[e.Type]++
		stats.BySeverity[e.Severity]++
		stats.ByCategory[e.Category]++

		switch e.Result {
		case ResultFailure, ResultError:
			stats.FailedCount++
		case ResultDenied:
			stats.FailedCount++
			stats.DeniedCount++
		}
		if e.Severity == SeverityCritical {
			stats.CriticalCount++
		}
		if e.Details.Suspicious {
			stats.SuspiciousCount++
		}
		if e.Origin != "" {
			origins[e.Origin]++
		}
		if e.ActorID != "" {
			actors[e.ActorID]++
		}
	}

	for origin, count := range origins {
		stats.TopOrigins = append(stats.TopOrigins, OriginCount{Origin: origin, Count: count})
	}
	sort.Slice(stats.TopOrigins, func(i, j int) bool {
		if stats.TopOrigins[i].Count != stats.TopOrigins[j].Count {
			return stats.TopOrigins[i].Count > stats.TopOrigins[j].Count
		}
		return stats.TopOrigins[i].Origin < stats.TopOrigins[j].Origin
	})
	if len(stats.TopOrigins) > topN {
		stats.TopOrigins = stats.TopOrigins[:topN]
	}

	for actor, count := range actors {
		stats.TopActors = append(stats.TopActors, ActorCount{ActorID: actor, Count: count})
	}
	sort.Slice(stats.TopActors, func(i, j int) bool {
		if stats.TopActors[i].Count != stats.TopActors[j].Count {
			return stats.TopActors[i].Count > stats.TopActors[j].Count
		}
		return stats.TopActors[i].ActorID < stats.TopActors[j].ActorID
	})
	if len(stats.TopActors) > topN {
		stats.TopActors = stats.TopActors[:topN]
	}

	return stats
}
