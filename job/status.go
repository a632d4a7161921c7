package job

import (
	"fmt"

	"github.com/viralclips/dispatch"
)

// IsTerminal reports whether s is completed or failed. No write may follow
// a terminal status.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// IsPhase reports whether s is a worker-reported sub-status such as
// "downloading" that refines in_progress.
func (s Status) IsPhase() bool {
	switch s {
	case "", StatusQueued, StatusInProgress, StatusCompleted, StatusFailed:
		return false
	}
	return true
}

// ValidateTransition checks a status change against the state machine
//
//	queued → in_progress (and worker phases) → completed | failed
//
// Terminal states are final and nothing returns to queued. queued may go
// straight to failed when the runner cannot start the job.
func ValidateTransition(from, to Status) error {
	switch {
	case from.IsTerminal():
		return fmt.Errorf("%w: %s is terminal", dispatch.ErrInvalidTransition, from)
	case to == "":
		return fmt.Errorf("%w: empty status", dispatch.ErrInvalidTransition)
	case to == StatusQueued:
		return fmt.Errorf("%w: %s -> %s", dispatch.ErrInvalidTransition, from, to)
	case from == StatusQueued && to == StatusCompleted:
		return fmt.Errorf("%w: %s -> %s", dispatch.ErrInvalidTransition, from, to)
	}
	return nil
}
