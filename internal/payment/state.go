package payment

type State string

const (
	StateIdle       State = "idle"
	StateProcessing State = "processing"
	StateSuccess    State = "success"
	StateError      State = "error"
)

// IsTerminal reports whether no further transition is possible.
func (s State) IsTerminal() bool {
	return s == StateSuccess
}

func (s State) String() string {
	return string(s)
}

// CanTransitionTo reports whether the payment page may move from s to next.
func CanTransitionTo(s, next State) bool {
	switch s {
	case StateIdle:
		return next == StateProcessing
	case StateProcessing:
		return next == StateSuccess || next == StateError
	case StateError:
		return next == StateProcessing || next == StateIdle
	}
	return false
}
