// Package observability provides audit logging helpers for the access module.
package observability

import (
	"context"
	"log/slog"

	"repoguard/internal/access/ports"
	"repoguard/pkg/attrs"
	id "repoguard/pkg/domain"
	audit "repoguard/pkg/platform/audit"
	"repoguard/pkg/requestcontext"
)

// LogAudit reports an access-control decision to both the structured logger
// and the audit log. It enriches events with the request-scoped origin and
// extracts actor/resource fields from attrList. A nil logger or publisher is
// skipped, so services can run unaudited in tests.
func LogAudit(ctx context.Context, logger *slog.Logger, publisher ports.AuditPublisher, eventType audit.EventType, result audit.Result, attrList ...any) {
	args := append(attrList, "event", string(eventType), "log_type", "audit")
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		args = append(args, "request_id", requestID)
	}

	if logger != nil {
		logger.InfoContext(ctx, string(eventType), args...)
	}

	if publisher == nil {
		return
	}

	publisher.LogEvent(ctx, audit.Event{
		Type:         eventType,
		Severity:     extractSeverity(attrList),
		Result:       result,
		ActorID:      id.UserID(attrs.ExtractFirst(attrList, "actor", "actor_id")),
		ResourceType: attrs.ExtractString(attrList, "resource_type"),
		ResourceID:   attrs.ExtractString(attrList, "resource_id"),
		Action:       attrs.ExtractString(attrList, "action"),
		Origin:       requestcontext.Origin(ctx),
		Details: audit.Details{
			Parameters: extractParameters(attrList),
		},
	})
}

func extractSeverity(attrList []any) audit.Severity {
	switch audit.Severity(attrs.ExtractString(attrList, "severity")) {
	case audit.SeverityMedium:
		return audit.SeverityMedium
	case audit.SeverityHigh:
		return audit.SeverityHigh
	case audit.SeverityCritical:
		return audit.SeverityCritical
	default:
		return audit.SeverityLow
	}
}

// extractParameters keeps the remaining string attrs as event parameters so
// the free-text search over details can find them.
func extractParameters(attrList []any) map[string]any {
	params := make(map[string]any)
	for i := 0; i+1 < len(attrList); i += 2 {
		key, ok := attrList[i].(string)
		if !ok {
			continue
		}
		switch key {
		case "actor", "actor_id", "resource_type", "resource_id", "action", "severity":
			continue
		}
		params[key] = attrList[i+1]
	}
	if len(params) == 0 {
		return nil
	}
	return params
}
