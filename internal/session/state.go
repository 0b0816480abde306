package session

// State is the lifecycle state of the broker session.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
	Disconnecting
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "CONNECTING"
	case Connected:
		return "CONNECTED"
	case Disconnecting:
		return "DISCONNECTING"
	}
	return "DISCONNECTED"
}

var stateNames = []string{
	Disconnected.String(),
	Connecting.String(),
	Connected.String(),
	Disconnecting.String(),
}
