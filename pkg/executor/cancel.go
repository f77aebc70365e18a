package executor

// NewCancelSignal wraps a plain channel as a CancelSignal: closing ch (or
// sending on it) causes the next cancellation check inside RunStep to
// report cancelled. Matches spec.md §4.6: "the executor polls a
// cancellation signal between the LLM call and tool dispatch, and again
// before the atomic persist; resumption reconstructs purely from the State
// Store," so callers need nothing beyond a channel they control.
func NewCancelSignal(ch <-chan struct{}) CancelSignal { return CancelSignal(ch) }
