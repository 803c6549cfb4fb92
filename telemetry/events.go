package telemetry

// EventType identifies telemetry events.
type EventType uint8

const (
	EventEmit EventType = iota
	EventExpire
	EventKill
	EventPinBreak
	EventStepAborted
)

var eventNames = [...]string{"emit", "expire", "kill", "pin_break", "step_aborted"}

func (t EventType) String() string {
	if int(t) < len(eventNames) {
		return eventNames[t]
	}
	return "unknown"
}

// Event represents a single telemetry event.
type Event struct {
	Type     EventType
	Step     int64
	Particle int32

	// Optional fields depending on event type
	Collider int32   // pin breaks
	Amount   float32 // lifetime for emits, force for pin breaks
}

// NewEmitEvent creates an event for a particle leaving an emitter pool.
func NewEmitEvent(step int64, particle int32, lifetime float32) Event {
	return Event{Type: EventEmit, Step: step, Particle: particle, Amount: lifetime}
}

// NewExpireEvent creates an event for a particle whose lifetime ran out.
func NewExpireEvent(step int64, particle int32) Event {
	return Event{Type: EventExpire, Step: step, Particle: particle}
}

// NewKillEvent creates an event for a particle killed by the caller.
func NewKillEvent(step int64, particle int32) Event {
	return Event{Type: EventKill, Step: step, Particle: particle}
}

// NewPinBreakEvent creates an event for a pin torn off its collider.
func NewPinBreakEvent(step int64, particle, collider int32, force float32) Event {
	return Event{Type: EventPinBreak, Step: step, Particle: particle, Collider: collider, Amount: force}
}

// NewStepAbortedEvent creates an event for a step that was rolled back.
func NewStepAbortedEvent(step int64) Event {
	return Event{Type: EventStepAborted, Step: step, Particle: -1}
}
