// Package channel maintains a per-user live notification stream: one
// websocket connection per subject id, an in-memory notification list with
// optimistic read/delete operations mirrored to the server, and automatic
// recovery from transient network failures.
package channel

// Kind classifies a notification.
type Kind string

const (
	KindLiveClass    Kind = "live_class"
	KindAssignment   Kind = "assignment"
	KindCourseUpdate Kind = "course_update"
	KindSystem       Kind = "system"
	KindReminder     Kind = "reminder"
)

// Priority governs whether an ephemeral UI notice accompanies insertion and
// how long it stays up.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Notification is the value object held in the channel's list. Instances are
// replaced wholesale on read-state change, never mutated in place by callers.
type Notification struct {
	ID        string                 `json:"id"`
	Kind      Kind                   `json:"notification_type"`
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	Timestamp string                 `json:"timestamp"`
	Read      bool                   `json:"read"`
	Priority  Priority               `json:"priority"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}
