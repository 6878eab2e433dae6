package stream

// State is the lifecycle of a single channel within a subscription.
//
//	Idle -> Fetching -> Emitting -> Fetching ... -> Done
//	                 \-> Failed
//
// Any non-terminal state moves to Cancelled when the subscription ends early.
type State int

const (
	StateIdle State = iota
	StateFetching
	StateEmitting
	StateDone
	StateFailed
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateEmitting:
		return "emitting"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further pages will be requested.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed || s == StateCancelled
}
