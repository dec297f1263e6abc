// Package notify delivers user-visible failure notifications. The sync
// coordinator fires one per failed cycle; delivery is fire-and-forget and the
// message key is resolved to display text by the presentation layer, not here.
package notify

import "log/slog"

// FailureKeySync is the message key for a failed cart sync cycle.
const FailureKeySync = "store/minicart.checkout-failure"

// Notifier is the notification port consumed by the sync coordinator.
type Notifier interface {
	// NotifyFailure signals a non-blocking user-visible failure.
	// Never returns an error: notification is best-effort.
	NotifyFailure(messageKey string)
}

// LogNotifier records notifications in the structured log. The presentation
// layer reads them off the daemon's log stream or substitutes its own
// Notifier entirely.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a notifier writing to the given logger.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// NotifyFailure logs the message key at warn level.
func (n *LogNotifier) NotifyFailure(messageKey string) {
	n.logger.Warn("user notification", slog.String("message_key", messageKey))
}
