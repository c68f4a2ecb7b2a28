package audit

import (
	"strings"
	"time"
)

// classify determines the retention category for an event. Evaluated once at
// log time, deterministically:
//
//	authentication/authorization category  -> compliance
//	security category or critical severity -> security (overrides compliance)
//	data category or type naming PII or
//	sensitive data                         -> legal (overrides the above)
//	anything else                          -> standard
func classify(e *Event) RetentionCategory {
	cat := RetentionStandard
	if e.Category == CategoryAuthentication || e.Category == CategoryAuthorization {
		cat = RetentionCompliance
	}
	if e.Category == CategorySecurity || e.Severity == SeverityCritical {
		cat = RetentionSecurity
	}
	if e.Category == CategoryData || mentionsSensitiveData(e.Type) {
		cat = RetentionLegal
	}
	return cat
}

func mentionsSensitiveData(t EventType) bool {
	s := string(t)
	return strings.Contains(s, "pii") || strings.Contains(s, "sensitive")
}

// buildRetention derives the full retention record from configuration.
// The archive threshold is 10% of the retention period.
func buildRetention(cfg Config, e *Event, now time.Time) Retention {
	cat := classify(e)
	days := cfg.periodDays(cat)
	return Retention{
		Category:         cat,
		PeriodDays:       days,
		ArchiveAfterDays: days / 10,
		DeleteAfter:      now.AddDate(0, 0, days),
	}
}
