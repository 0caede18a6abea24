// internal/channel/notifier.go
package channel

import (
	"time"

	"github.com/google/uuid"

	"github.com/agboredim/studendashboard-sub001/internal/common/logger"
	"github.com/agboredim/studendashboard-sub001/internal/common/metrics"
)

// Severity of an ephemeral UI notice.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Auto-dismiss durations for notices. Zero means the notice is persistent
// until dismissed by the user.
const (
	noticeShort      = 3 * time.Second
	noticeHigh       = 5 * time.Second
	noticeUrgent     = 15 * time.Second
	noticePersistent = 0
)

// Notifier is the fire-and-forget sink for ephemeral status messages.
// Implementations must not block, must not panic, and must not call back
// into the channel.
type Notifier interface {
	Notify(title, message string, severity Severity, duration time.Duration)
}

// LogNotifier surfaces notices through the structured log. The daemon uses
// it in place of a real UI toast layer.
type LogNotifier struct {
	log logger.Logger
}

func NewLogNotifier(log logger.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Notify(title, message string, severity Severity, duration time.Duration) {
	metrics.NoticesEmitted.WithLabelValues(string(severity)).Inc()
	fields := map[string]interface{}{
		"noticeId": uuid.NewString(),
		"title":    title,
		"message":  message,
		"duration": duration.String(),
	}
	switch severity {
	case SeverityError:
		n.log.Error("notice", fields)
	case SeverityWarning:
		n.log.Warn("notice", fields)
	default:
		n.log.Info("notice", fields)
	}
}

// NopNotifier discards all notices.
type NopNotifier struct{}

func (NopNotifier) Notify(string, string, Severity, time.Duration) {}
