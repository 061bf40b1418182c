package notifier

// State is the poll loop's position in its cycle.
type State int

const (
	StateIdle State = iota
	StateFetching
	StateDisplaying
	StateErrorDisplay
	StateSleeping
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateDisplaying:
		return "displaying"
	case StateErrorDisplay:
		return "error_display"
	case StateSleeping:
		return "sleeping"
	default:
		return "unknown"
	}
}
