package service

// State is the poll loop's current phase.
type State int32

const (
	StateConnecting State = iota
	StateCollecting
	StatePersisting
	StateSleeping
	StateShuttingDown
)

var states = []State{StateConnecting, StateCollecting, StatePersisting, StateSleeping, StateShuttingDown}

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateCollecting:
		return "collecting"
	case StatePersisting:
		return "persisting"
	case StateSleeping:
		return "sleeping"
	case StateShuttingDown:
		return "shutting_down"
	default:
		return "unknown"
	}
}
