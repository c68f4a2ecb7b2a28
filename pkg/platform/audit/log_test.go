package audit_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "repoguard/pkg/domain"
	dErrors "repoguard/pkg/domain-errors"
	"repoguard/pkg/platform/audit"
	"repoguard/pkg/platform/audit/store/memory"
	"repoguard/pkg/requestcontext"
)

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func at(offset time.Duration) context.Context {
	return requestcontext.WithTime(context.Background(), baseTime.Add(offset))
}

func newTestLog(t *testing.T, opts ...audit.Option) (*audit.Log, *memory.InMemoryStore) {
	t.Helper()
	store := memory.NewInMemoryStore(1000)
	log, err := audit.NewLog(store, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = log.Close(context.Background()) })
	return log, store
}

func TestLogEventStampsAndClassifies(t *testing.T) {
	log, store := newTestLog(t)

	log.LogEvent(at(0), audit.Event{
		Type:    audit.EventLoginSuccess,
		ActorID: "alice",
		Origin:  "10.0.0.1",
	})

	events := store.Snapshot(context.Background())
	require.Len(t, events, 1)
	e := events[0]
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, baseTime, e.Timestamp)
	assert.Equal(t, audit.CategoryAuthentication, e.Category)
	assert.Equal(t, audit.SeverityLow, e.Severity, "severity defaults to low")
	assert.Equal(t, audit.ResultSuccess, e.Result, "result defaults to success")
	assert.NotEmpty(t, e.Fingerprint)
	assert.Equal(t, audit.RetentionCompliance, e.Retention.Category)
}

func TestLogEventRejectsUnknownType(t *testing.T) {
	var faults []error
	log, store := newTestLog(t, audit.WithErrorHandler(func(err error) { faults = append(faults, err) }))

	log.LogEvent(at(0), audit.Event{Type: "made.up"})

	assert.Empty(t, store.Snapshot(context.Background()))
	require.Len(t, faults, 1)
	assert.True(t, dErrors.HasCode(faults[0], dErrors.CodeValidation))
}

func TestDeduplication(t *testing.T) {
	event := audit.Event{
		Type:    audit.EventPermissionDenied,
		ActorID: "alice",
		Action:  "push",
		Origin:  "10.0.0.1",
	}

	t.Run("duplicate inside window is dropped", func(t *testing.T) {
		var faults []error
		log, store := newTestLog(t, audit.WithErrorHandler(func(err error) { faults = append(faults, err) }))

		log.LogEvent(at(0), event)
		log.LogEvent(at(time.Minute), event)

		assert.Equal(t, 1, store.Len())
		require.Len(t, faults, 1)
		assert.True(t, errors.Is(faults[0], audit.ErrDuplicateEvent))
	})

	t.Run("window is anchored on the stored event", func(t *testing.T) {
		log, store := newTestLog(t)

		log.LogEvent(at(0), event)
		// dropped, and does not extend the window
		log.LogEvent(at(4*time.Minute), event)
		// window elapsed, stored; the next duplicate opens a fresh window
		log.LogEvent(at(5*time.Minute), event)
		log.LogEvent(at(5*time.Minute+time.Second), event)

		assert.Equal(t, 2, store.Len())
	})

	t.Run("differing field defeats dedup", func(t *testing.T) {
		log, store := newTestLog(t)

		log.LogEvent(at(0), event)
		other := event
		other.Origin = "10.0.0.2"
		log.LogEvent(at(time.Second), other)

		assert.Equal(t, 2, store.Len())
	})

	t.Run("disabled dedup stores everything", func(t *testing.T) {
		cfg := audit.DefaultConfig()
		cfg.DedupEnabled = false
		log, store := newTestLog(t, audit.WithConfig(cfg))

		log.LogEvent(at(0), event)
		log.LogEvent(at(time.Second), event)

		assert.Equal(t, 2, store.Len())
	})
}

func TestSessionCorrelation(t *testing.T) {
	log, store := newTestLog(t)

	log.LogEvent(at(0), audit.Event{Type: audit.EventSessionCreated, SessionID: "sess-1"})
	log.LogEvent(at(time.Minute), audit.Event{Type: audit.EventTokenIssued, SessionID: "sess-1"})
	log.LogEvent(at(2*time.Minute), audit.Event{Type: audit.EventSessionCreated, SessionID: "sess-2"})

	events := store.Snapshot(context.Background())
	require.Len(t, events, 3)
	assert.NotEmpty(t, events[0].CorrelationID)
	assert.Equal(t, events[0].CorrelationID, events[1].CorrelationID, "same session shares one id")
	assert.NotEqual(t, events[0].CorrelationID, events[2].CorrelationID)
}

func TestExplicitCorrelationIDPreserved(t *testing.T) {
	log, store := newTestLog(t)

	log.LogEvent(at(0), audit.Event{
		Type:          audit.EventAdminAction,
		SessionID:     "sess-1",
		CorrelationID: "corr-explicit",
	})

	events := store.Snapshot(context.Background())
	require.Len(t, events, 1)
	assert.Equal(t, id.CorrelationID("corr-explicit"), events[0].CorrelationID)
}

func TestCreateCorrelation(t *testing.T) {
	log, store := newTestLog(t)

	log.LogEvent(at(0), audit.Event{Type: audit.EventUserCreated, ActorID: "root"})
	log.LogEvent(at(time.Minute), audit.Event{Type: audit.EventRoleAssigned, ActorID: "root"})
	events := store.Snapshot(context.Background())
	require.Len(t, events, 2)

	t.Run("stamps a minted id across events", func(t *testing.T) {
		corrID, err := log.CreateCorrelation(context.Background(),
			[]id.EventID{events[0].ID, events[1].ID}, "")
		require.NoError(t, err)
		require.NotEmpty(t, corrID)

		correlated := log.GetCorrelatedEvents(context.Background(), corrID)
		require.Len(t, correlated, 2)
		assert.True(t, correlated[0].Timestamp.Before(correlated[1].Timestamp), "oldest first")
	})

	t.Run("requires event ids", func(t *testing.T) {
		_, err := log.CreateCorrelation(context.Background(), nil, "corr-x")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("unknown ids are not found", func(t *testing.T) {
		_, err := log.CreateCorrelation(context.Background(), []id.EventID{"ghost"}, "corr-x")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func TestBruteForceDetection(t *testing.T) {
	cfg := audit.DefaultConfig()
	cfg.DedupEnabled = false
	log, _ := newTestLog(t, audit.WithConfig(cfg))

	actors := []id.UserID{"u1", "u2", "u3", "u4", "u5"}
	for i, actor := range actors {
		log.LogEvent(at(time.Duration(i)*time.Minute), audit.Event{
			Type:    audit.EventLoginFailure,
			Result:  audit.ResultFailure,
			ActorID: actor,
			Origin:  "1.2.3.4",
		})
	}

	detections := log.QueryEvents(context.Background(), audit.Filter{
		Types: []audit.EventType{audit.EventBruteForceDetected},
	})
	require.Len(t, detections, 1)
	d := detections[0]
	assert.Equal(t, audit.SeverityHigh, d.Severity)
	assert.Equal(t, "1.2.3.4", d.Origin)
	assert.True(t, d.Details.Suspicious)
	assert.Equal(t, 5, d.Details.Parameters["failure_count"])
}

func TestBruteForceIgnoresOtherOrigins(t *testing.T) {
	cfg := audit.DefaultConfig()
	cfg.DedupEnabled = false
	log, _ := newTestLog(t, audit.WithConfig(cfg))

	for i := 0; i < 4; i++ {
		log.LogEvent(at(time.Duration(i)*time.Minute), audit.Event{
			Type: audit.EventLoginFailure, Result: audit.ResultFailure, Origin: "1.2.3.4",
		})
	}
	log.LogEvent(at(5*time.Minute), audit.Event{
		Type: audit.EventLoginFailure, Result: audit.ResultFailure, Origin: "5.6.7.8",
	})

	detections := log.QueryEvents(context.Background(), audit.Filter{
		Types: []audit.EventType{audit.EventBruteForceDetected},
	})
	assert.Empty(t, detections)
}

func TestBruteForceFailuresOutsideWindowAge(t *testing.T) {
	cfg := audit.DefaultConfig()
	cfg.DedupEnabled = false
	cfg.BruteForceWindow = 10 * time.Minute
	log, _ := newTestLog(t, audit.WithConfig(cfg))

	// first two failures fall out of the window before the count reaches five
	offsets := []time.Duration{0, time.Minute, 12 * time.Minute, 13 * time.Minute, 14 * time.Minute}
	for _, off := range offsets {
		log.LogEvent(at(off), audit.Event{
			Type: audit.EventLoginFailure, Result: audit.ResultFailure, Origin: "1.2.3.4",
		})
	}

	detections := log.QueryEvents(context.Background(), audit.Filter{
		Types: []audit.EventType{audit.EventBruteForceDetected},
	})
	assert.Empty(t, detections)
}

type recordingSubscriber struct {
	calls []string
}

func (r *recordingSubscriber) Logged(audit.Event)   { r.calls = append(r.calls, "logged") }
func (r *recordingSubscriber) Critical(audit.Event) { r.calls = append(r.calls, "critical") }
func (r *recordingSubscriber) Anomaly(audit.Event)  { r.calls = append(r.calls, "anomaly") }

func TestSubscriberOrdering(t *testing.T) {
	log, _ := newTestLog(t)
	sub := &recordingSubscriber{}
	log.Subscribe(sub)

	log.LogEvent(at(0), audit.Event{Type: audit.EventAccessViolation, Severity: audit.SeverityCritical})
	assert.Equal(t, []string{"logged", "critical"}, sub.calls)

	sub.calls = nil
	log.LogEvent(at(time.Minute), audit.Event{Type: audit.EventLogout})
	assert.Equal(t, []string{"logged"}, sub.calls, "non-critical events only signal logged")
}

func TestAnomalySignalOnDetection(t *testing.T) {
	cfg := audit.DefaultConfig()
	cfg.DedupEnabled = false
	log, _ := newTestLog(t, audit.WithConfig(cfg))
	sub := &recordingSubscriber{}
	log.Subscribe(sub)

	for i := 0; i < 5; i++ {
		log.LogEvent(at(time.Duration(i)*time.Minute), audit.Event{
			Type: audit.EventLoginFailure, Result: audit.ResultFailure, Origin: "1.2.3.4",
		})
	}

	// five failure events signal logged only, then the synthesized detection
	// signals logged followed by anomaly
	assert.Equal(t, []string{
		"logged", "logged", "logged", "logged", "logged",
		"logged", "anomaly",
	}, sub.calls)
}

func TestPanickingSubscriberDoesNotReachCaller(t *testing.T) {
	var faults []error
	log, store := newTestLog(t, audit.WithErrorHandler(func(err error) { faults = append(faults, err) }))
	log.Subscribe(audit.SubscriberFuncs{
		OnLogged: func(audit.Event) { panic("subscriber bug") },
	})

	log.LogEvent(at(0), audit.Event{Type: audit.EventLogout})

	assert.Equal(t, 1, store.Len(), "event stored before notification")
	require.Len(t, faults, 1)
}

func TestFlushDrainsToSink(t *testing.T) {
	sink := audit.NewMemorySink()
	log, _ := newTestLog(t, audit.WithSink(sink))

	log.LogEvent(at(0), audit.Event{Type: audit.EventLoginSuccess, ActorID: "alice"})
	log.LogEvent(at(time.Minute), audit.Event{Type: audit.EventLogout, ActorID: "alice"})

	require.NoError(t, log.Flush(context.Background()))
	assert.Len(t, sink.Events(), 2)

	// nothing new to flush
	require.NoError(t, log.Flush(context.Background()))
	assert.Len(t, sink.Events(), 2)
}

func TestCloseFlushesRemaining(t *testing.T) {
	sink := audit.NewMemorySink()
	store := memory.NewInMemoryStore(1000)
	log, err := audit.NewLog(store, audit.WithSink(sink))
	require.NoError(t, err)

	log.LogEvent(at(0), audit.Event{Type: audit.EventServiceStopped})
	require.NoError(t, log.Close(context.Background()))
	assert.Len(t, sink.Events(), 1)

	// closing twice is safe
	require.NoError(t, log.Close(context.Background()))
}
