package call

// Status is the lifecycle state of a voice interview call.
type Status int

const (
	StatusInactive Status = iota
	StatusConnecting
	StatusActive
	StatusFinished
)

// String returns the wire name of the status.
func (s Status) String() string {
	switch s {
	case StatusInactive:
		return "INACTIVE"
	case StatusConnecting:
		return "CONNECTING"
	case StatusActive:
		return "ACTIVE"
	case StatusFinished:
		return "FINISHED"
	default:
		return "UNKNOWN"
	}
}

// IsTerminal reports whether no voice event can move the call out of s.
func (s Status) IsTerminal() bool {
	return s == StatusFinished
}

// canStart reports whether Start is allowed from s.
func (s Status) canStart() bool {
	return s == StatusInactive || s == StatusFinished
}

// Mode selects what the call is for and what happens when it ends.
type Mode string

const (
	// ModeGenerate runs the question-generation workflow.
	ModeGenerate Mode = "generate"
	// ModeInterview runs the scripted interviewer and scores the transcript.
	ModeInterview Mode = "interview"
)

// ParseMode maps a client-supplied mode, defaulting to interview.
func ParseMode(s string) Mode {
	if Mode(s) == ModeGenerate {
		return ModeGenerate
	}
	return ModeInterview
}
