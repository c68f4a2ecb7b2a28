package requestcontext

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRequestID(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, RequestID(ctx))

	ctx = WithRequestID(ctx, "req-42")
	assert.Equal(t, "req-42", RequestID(ctx))
}

func TestNow(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, fixed, Now(WithTime(context.Background(), fixed)))

	// without a stamped time, falls back to the wall clock
	before := time.Now()
	got := Now(context.Background())
	assert.False(t, got.Before(before))
}

func TestOrigin(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, Origin(ctx))
	assert.Equal(t, "10.0.0.1", Origin(WithOrigin(ctx, "10.0.0.1")))
}
