package capture

// State is the lifecycle state of a Session.
type State int

const (
	Idle State = iota
	Requesting
	Active
	Error
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Requesting:
		return "requesting"
	case Active:
		return "active"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}
