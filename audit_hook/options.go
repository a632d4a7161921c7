package audithook

import "log/slog"

// Option configures an Extension.
type Option func(*Extension)

// WithActions limits the trail to the listed actions; anything not listed
// is skipped before it reaches the Recorder. Names that are not one of the
// job actions are dropped. Without this option every action is recorded.
func WithActions(actions ...string) Option {
	return func(e *Extension) {
		e.enabled = make(map[string]bool, len(actions))
		for _, a := range actions {
			if IsAction(a) {
				e.enabled[a] = true
			}
		}
	}
}

// WithLogger sets the logger that reports Recorder errors.
func WithLogger(l *slog.Logger) Option {
	return func(e *Extension) { e.logger = l }
}
