package audit

// Subscriber receives notifications about logged events. Dispatch is
// synchronous and in order: Logged always fires first for the same event,
// then Critical and Anomaly when they apply. Subscribers must not call back
// into the log from their handlers.
type Subscriber interface {
	// Logged fires for every accepted event.
	Logged(event Event)
	// Critical fires after Logged when the event severity is critical.
	Critical(event Event)
	// Anomaly fires after Logged for events flagged suspicious by pattern
	// detection.
	Anomaly(event Event)
}

// SubscriberFuncs adapts plain functions to the Subscriber interface. Nil
// fields are skipped.
type SubscriberFuncs struct {
	OnLogged   func(Event)
	OnCritical func(Event)
	OnAnomaly  func(Event)
}

func (s SubscriberFuncs) Logged(event Event) {
	if s.OnLogged != nil {
		s.OnLogged(event)
	}
}

func (s SubscriberFuncs) Critical(event Event) {
	if s.OnCritical != nil {
		s.OnCritical(event)
	}
}

func (s SubscriberFuncs) Anomaly(event Event) {
	if s.OnAnomaly != nil {
		s.OnAnomaly(event)
	}
}

// ErrorHandler receives internal audit faults (construction or storage
// failures, deduplication drops are not faults). An audit outage must never
// block the operation being audited, so faults are surfaced here instead of
// being returned to LogEvent callers.
type ErrorHandler func(err error)
