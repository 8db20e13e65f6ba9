package playback

// StateType represents the lifecycle state of a reading session.
type StateType int

const (
	// StateIdle indicates no document is loaded.
	StateIdle StateType = iota
	// StateLoading indicates a document load is in progress.
	StateLoading
	// StateLoaded indicates chapters are ready but nothing is playing.
	StateLoaded
	// StatePlaying indicates speech is in progress.
	StatePlaying
	// StatePaused indicates playback is paused.
	StatePaused
	// StateSeeking is a transient state entered during a position change.
	StateSeeking
	// StateChapterTransition is a transient state entered whenever the
	// chapter index changes, exited once the new chapter has been
	// published to observers.
	StateChapterTransition
)

// String returns the string representation of the state.
func (s StateType) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateSeeking:
		return "seeking"
	case StateChapterTransition:
		return "chapter-transition"
	default:
		return "unknown"
	}
}

// IsTransient reports whether the state is a transient sub-state that
// always returns to Playing, Paused, or Loaded.
func (s StateType) IsTransient() bool {
	return s == StateSeeking || s == StateChapterTransition
}

// StateMachine validates lifecycle transitions for a session.
type StateMachine struct {
	current     StateType
	transitions map[StateType][]StateType
}

// NewStateMachine creates a state machine starting at StateIdle.
func NewStateMachine() *StateMachine {
	return &StateMachine{
		current: StateIdle,
		transitions: map[StateType][]StateType{
			StateIdle:    {StateLoading},
			StateLoading: {StateLoaded, StateIdle},
			StateLoaded: {
				StatePlaying, StateSeeking, StateChapterTransition,
				StateLoading, StateIdle,
			},
			StatePlaying: {
				StatePaused, StateSeeking, StateChapterTransition,
				StateLoaded, StateIdle,
			},
			StatePaused: {
				StatePlaying, StateSeeking, StateChapterTransition,
				StateLoaded, StateIdle,
			},
			StateSeeking:           {StatePlaying, StatePaused, StateLoaded},
			StateChapterTransition: {StatePlaying, StatePaused, StateLoaded},
		},
	}
}

// Transition attempts to move to the given state and reports whether
// the transition was valid.
func (sm *StateMachine) Transition(to StateType) bool {
	valid, ok := sm.transitions[sm.current]
	if !ok {
		return false
	}
	for _, s := range valid {
		if s == to {
			sm.current = to
			return true
		}
	}
	return false
}

// Current returns the current state.
func (sm *StateMachine) Current() StateType {
	return sm.current
}

// CanPlay reports whether playback can start or resume.
func (sm *StateMachine) CanPlay() bool {
	return sm.current == StateLoaded || sm.current == StatePaused
}

// CanPause reports whether playback can be paused.
func (sm *StateMachine) CanPause() bool {
	return sm.current == StatePlaying
}

// CanSeek reports whether a position change is currently allowed.
func (sm *StateMachine) CanSeek() bool {
	switch sm.current {
	case StateLoaded, StatePlaying, StatePaused:
		return true
	}
	return false
}
