package playback

import "errors"

// Common errors for the playback engine. Position errors are recovered
// locally by clamping; none of them abort a reading session.
var (
	// Session errors
	ErrNoDocument      = errors.New("no document loaded")
	ErrAlreadyLoading  = errors.New("document load already in progress")
	ErrLoadTimeout     = errors.New("document load exceeded attempt budget")
	ErrSessionClosed   = errors.New("session has been closed")
	ErrInvalidState    = errors.New("invalid state for operation")
	ErrStateTransition = errors.New("invalid state transition")

	// Segmentation errors
	ErrSegmentationEmpty = errors.New("no chapters found in document")

	// Position errors
	ErrIndexOutOfRange = errors.New("chapter index out of range")
	ErrDegenerateSpan  = errors.New("chapter has zero-width span")
	ErrStaleHighlight  = errors.New("highlight callback for superseded chapter")

	// Engine errors
	ErrEngineNotAvailable = errors.New("speech engine is not available")
	ErrEngineBusy         = errors.New("speech engine is busy")
)

// IsRecoverable reports whether the session can continue after err.
// Everything except a closed session or a missing engine is recovered
// locally by clamping or discarding.
func IsRecoverable(err error) bool {
	if err == nil {
		return true
	}
	switch {
	case errors.Is(err, ErrSessionClosed),
		errors.Is(err, ErrEngineNotAvailable):
		return false
	}
	return true
}
