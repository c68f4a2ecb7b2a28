// Package testutil provides shared helpers for tests.
package testutil

import (
	"context"
	"time"

	"repoguard/pkg/requestcontext"
)

// ContextAt returns a context whose request-scoped clock is frozen at the
// given instant. Services read time through requestcontext.Now, so tests can
// place operations precisely on the timeline.
func ContextAt(at time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), at)
}

// ContextWithOrigin freezes the clock and stamps a request origin, the shape
// audit-sensitive operations see in production.
func ContextWithOrigin(at time.Time, origin string) context.Context {
	return requestcontext.WithOrigin(ContextAt(at), origin)
}
