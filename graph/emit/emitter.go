package emit

// Emitter receives observability events from workflow execution.
//
// Implementations should be:
//   - Non-blocking: avoid slowing down workflow execution
//   - Thread-safe: may be called concurrently for different sessions
//   - Resilient: handle backend failures without panicking
//
// Emit must not panic; errors are the emitter's to swallow or log.
type Emitter interface {
	Emit(event Event)
}

// NullEmitter discards all events. It is the engine default.
type NullEmitter struct{}

// NewNullEmitter creates an emitter that drops everything.
func NewNullEmitter() *NullEmitter {
	return &NullEmitter{}
}

// Emit discards the event.
func (*NullEmitter) Emit(Event) {}
