package audio

// State represents the lifecycle state of a recording session.
// Initial < Prepared < Recording; Paused sorts after Recording so that
// ordering checks treat a paused session as at least recording.
type State int

const (
	StateInitial State = iota
	StatePrepared
	StateRecording
	StatePaused
)

func (s State) String() string {
	switch s {
	case StateInitial:
		return "INITIAL"
	case StatePrepared:
		return "PREPARED"
	case StateRecording:
		return "RECORDING"
	case StatePaused:
		return "PAUSED"
	default:
		return "UNKNOWN"
	}
}

// MarshalText lets the state appear by name in JSON and YAML output
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// SessionInfo is a point-in-time copy of the session aggregate
type SessionInfo struct {
	State        State  `json:"state"`
	PreparedPath string `json:"prepared_path,omitempty"`
	HasPath      bool   `json:"has_path"`
}
