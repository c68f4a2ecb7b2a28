package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	id "repoguard/pkg/domain"
	dErrors "repoguard/pkg/domain-errors"
	"repoguard/pkg/requestcontext"
)

// Store is the authoritative event store consumed by the log. The in-memory
// implementation lives in store/memory; durable implementations are external
// collaborators.
type Store interface {
	Append(ctx context.Context, event Event) error
	Snapshot(ctx context.Context) []Event
	Get(ctx context.Context, eventID id.EventID) (Event, bool)
	SetCorrelation(ctx context.Context, eventIDs []id.EventID, corrID id.CorrelationID) int
}

// ErrDuplicateEvent is surfaced on the error signal when deduplication drops
// an event. It is informational: the caller of LogEvent never sees it.
var ErrDuplicateEvent = errors.New("duplicate event within dedup window")

// Log is the structured security-event log. LogEvent has fire-and-forget
// semantics: internal faults are surfaced on the error signal and counted,
// never returned to the caller whose operation is being audited.
type Log struct {
	cfg     Config
	store   Store
	sink    Sink
	buffer  *RingBuffer
	logger  *slog.Logger
	metrics *Metrics
	onError ErrorHandler

	mu          sync.Mutex
	dedup       map[string]time.Time
	sessions    map[id.SessionID]id.CorrelationID
	subscribers []Subscriber

	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// Option configures a Log.
type Option func(*Log)

func WithConfig(cfg Config) Option {
	return func(l *Log) { l.cfg = cfg }
}

func WithLogger(logger *slog.Logger) Option {
	return func(l *Log) { l.logger = logger }
}

// WithSink wires the durable sink receiving periodic flushes.
func WithSink(sink Sink) Option {
	return func(l *Log) { l.sink = sink }
}

func WithMetrics(m *Metrics) Option {
	return func(l *Log) { l.metrics = m }
}

// WithErrorHandler wires the internal error signal.
func WithErrorHandler(handler ErrorHandler) Option {
	return func(l *Log) { l.onError = handler }
}

// NewLog creates the audit log and starts its periodic flush loop. Callers
// must Close it to perform the final flush and stop the timer.
func NewLog(store Store, opts ...Option) (*Log, error) {
	if store == nil {
		return nil, errors.New("audit store is required")
	}

	l := &Log{
		cfg:      DefaultConfig(),
		store:    store,
		sink:     NopSink{},
		dedup:    make(map[string]time.Time),
		sessions: make(map[id.SessionID]id.CorrelationID),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.buffer = NewRingBuffer(l.cfg.MaxEvents)

	l.wg.Add(1)
	go l.flushLoop()

	return l, nil
}

// Subscribe registers a subscriber for logged/critical notifications.
func (l *Log) Subscribe(sub Subscriber) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.subscribers = append(l.subscribers, sub)
}

// LogEvent classifies, deduplicates, correlates, and stores the event, then
// notifies subscribers and runs pattern detection. It never returns an error
// and never panics into the caller.
func (l *Log) LogEvent(ctx context.Context, event Event) {
	defer func() {
		if r := recover(); r != nil {
			l.fault(fmt.Errorf("panic while logging audit event: %v", r))
		}
	}()

	if !event.Type.IsValid() {
		l.fault(dErrors.Newf(dErrors.CodeValidation, "unknown audit event type %q", event.Type))
		return
	}

	now := requestcontext.Now(ctx)
	event.ID = id.NewEventID()
	event.Timestamp = now
	event.Category = event.Type.Category()
	if event.Severity == "" {
		event.Severity = SeverityLow
	}
	if event.Result == "" {
		event.Result = ResultSuccess
	}
	event.Fingerprint = fingerprint(&event)
	event.Retention = buildRetention(l.cfg, &event, now)

	if l.isDuplicate(event.Fingerprint, now) {
		if l.metrics != nil {
			l.metrics.EventsDeduplicated.Inc()
		}
		if l.onError != nil {
			l.onError(fmt.Errorf("%w: fingerprint %s", ErrDuplicateEvent, event.Fingerprint))
		}
		return
	}

	event.CorrelationID = l.correlate(&event)

	if err := l.store.Append(ctx, event); err != nil {
		l.fault(dErrors.Wrap(err, dErrors.CodeInternal, "failed to store audit event"))
		return
	}
	l.buffer.Enqueue(event)

	if l.metrics != nil {
		l.metrics.EventsLogged.WithLabelValues(string(event.Severity)).Inc()
	}
	if l.logger != nil {
		l.logger.InfoContext(ctx, "audit event logged",
			"event_id", event.ID.String(),
			"type", string(event.Type),
			"severity", string(event.Severity),
			"result", string(event.Result),
		)
	}

	l.notify(event)
	l.detect(ctx, event)
}

// isDuplicate checks and records the fingerprint. The window is anchored on
// the stored event: duplicates inside it do not extend it.
func (l *Log) isDuplicate(fp string, now time.Time) bool {
	if !l.cfg.DedupEnabled {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if last, ok := l.dedup[fp]; ok && now.Sub(last) < l.cfg.DedupWindow {
		return true
	}
	l.dedup[fp] = now

	// Opportunistic pruning keeps the map bounded by the window.
	if len(l.dedup) > 4*l.cfg.MaxEvents {
		for k, t := range l.dedup {
			if now.Sub(t) >= l.cfg.DedupWindow {
				delete(l.dedup, k)
			}
		}
	}
	return false
}

// correlate backfills a correlation id from the event's session, minting and
// remembering one when the session has none yet.
func (l *Log) correlate(event *Event) id.CorrelationID {
	if event.CorrelationID != "" || !l.cfg.CorrelationEnabled || event.SessionID == "" {
		return event.CorrelationID
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if corr, ok := l.sessions[event.SessionID]; ok {
		return corr
	}
	corr := id.NewCorrelationID()
	l.sessions[event.SessionID] = corr
	return corr
}

// notify dispatches in subscription order: logged first, then critical and
// anomaly where they apply.
func (l *Log) notify(event Event) {
	l.mu.Lock()
	subs := append([]Subscriber(nil), l.subscribers...)
	l.mu.Unlock()

	for _, sub := range subs {
		sub.Logged(event)
	}
	if event.Severity == SeverityCritical {
		for _, sub := range subs {
			sub.Critical(event)
		}
	}
	if event.Details.Suspicious {
		for _, sub := range subs {
			sub.Anomaly(event)
		}
	}
}

// detect re-queries recent login failures from the event's origin and raises
// a synthetic brute-force event at the configured threshold. The synthetic
// event follows the normal LogEvent path and is subject to deduplication, so
// a sustained attack raises one detection per dedup window.
func (l *Log) detect(ctx context.Context, event Event) {
	if event.Type != EventLoginFailure || event.Origin == "" {
		return
	}

	since := event.Timestamp.Add(-l.cfg.BruteForceWindow)
	failures := 0
	for _, e := range l.store.Snapshot(ctx) {
		if e.Type == EventLoginFailure && e.Origin == event.Origin && !e.Timestamp.Before(since) {
			failures++
		}
	}
	if failures < l.cfg.BruteForceThreshold {
		return
	}

	if l.metrics != nil {
		l.metrics.Detections.Inc()
	}
	if l.logger != nil {
		l.logger.WarnContext(ctx, "brute force pattern detected",
			"origin", event.Origin,
			"failures", failures,
		)
	}

	l.LogEvent(ctx, Event{
		Type:          EventBruteForceDetected,
		Severity:      SeverityHigh,
		Result:        ResultFailure,
		Origin:        event.Origin,
		CorrelationID: event.CorrelationID,
		ResourceType:  "origin",
		ResourceID:    event.Origin,
		Action:        "brute_force",
		Details: Details{
			Parameters: map[string]any{
				"failure_count": failures,
				"window":        l.cfg.BruteForceWindow.String(),
				"threshold":     l.cfg.BruteForceThreshold,
			},
			Suspicious: true,
		},
	})
}

// QueryEvents returns the filtered, sorted, paginated page. The default
// order is timestamp descending.
func (l *Log) QueryEvents(ctx context.Context, filter Filter) []Event {
	return filter.apply(l.store.Snapshot(ctx))
}

// GetSecurityStats aggregates the event set, optionally bounded to
// [from, to). Zero bounds mean unbounded.
func (l *Log) GetSecurityStats(ctx context.Context, from, to time.Time) SecurityStats {
	return computeStats(l.store.Snapshot(ctx), from, to)
}

// CreateCorrelation retroactively stamps a shared correlation id across the
// given events, minting one when corrID is empty. This is the only permitted
// mutation of stored events.
func (l *Log) CreateCorrelation(ctx context.Context, eventIDs []id.EventID, corrID id.CorrelationID) (id.CorrelationID, error) {
	if len(eventIDs) == 0 {
		return "", dErrors.New(dErrors.CodeValidation, "correlation requires at least one event id")
	}
	if corrID == "" {
		corrID = id.NewCorrelationID()
	}
	if stamped := l.store.SetCorrelation(ctx, eventIDs, corrID); stamped == 0 {
		return "", dErrors.New(dErrors.CodeNotFound, "none of the given event ids exist")
	}
	return corrID, nil
}

// GetCorrelatedEvents lists all events sharing the correlation id, oldest
// first.
func (l *Log) GetCorrelatedEvents(ctx context.Context, corrID id.CorrelationID) []Event {
	return l.QueryEvents(ctx, Filter{CorrelationID: corrID, SortAsc: true})
}

func (l *Log) fault(err error) {
	if l.metrics != nil {
		l.metrics.InternalErrors.Inc()
	}
	if l.logger != nil {
		l.logger.Error("audit log internal fault", "error", err)
	}
	if l.onError != nil {
		l.onError(err)
	}
}
