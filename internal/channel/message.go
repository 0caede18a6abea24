// internal/channel/message.go
package channel

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/agboredim/studendashboard-sub001/internal/common/validation"
)

// Inbound frame types.
const (
	frameNotification     = "notification"
	frameNotificationList = "notification_list"
	framePong             = "pong"
	frameError            = "error"
)

// Outbound frame types.
const (
	frameInit               = "init"
	frameMarkRead           = "mark_read"
	frameMarkAllRead        = "mark_all_read"
	frameDeleteNotification = "delete_notification"
	frameClearAll           = "clear_all"
	framePing               = "ping"
)

// inboundFrame is the superset of every server frame. The Type discriminator
// decides which fields are meaningful.
type inboundFrame struct {
	Type          string                 `json:"type"`
	ID            string                 `json:"id"`
	Kind          Kind                   `json:"notification_type"`
	Title         string                 `json:"title"`
	Message       string                 `json:"message"`
	Timestamp     string                 `json:"timestamp"`
	Priority      Priority               `json:"priority"`
	Metadata      map[string]interface{} `json:"metadata"`
	Notifications []Notification         `json:"notifications"`
}

// outboundFrame is the superset of every client frame.
type outboundFrame struct {
	Type           string `json:"type"`
	UserID         string `json:"user_id,omitempty"`
	NotificationID string `json:"notification_id,omitempty"`
}

// decodeFrame validates and parses a single inbound frame. A non-nil error
// means the frame must be dropped; the channel itself stays open.
func decodeFrame(data []byte) (*inboundFrame, error) {
	if err := validation.ValidateFrame(data); err != nil {
		return nil, err
	}
	var f inboundFrame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	return &f, nil
}

// notificationFromFrame builds a Notification from a "notification" frame,
// filling the fields the server is allowed to omit.
func notificationFromFrame(f *inboundFrame, now time.Time) Notification {
	return normalizeNotification(Notification{
		ID:        f.ID,
		Kind:      f.Kind,
		Title:     f.Title,
		Message:   f.Message,
		Timestamp: f.Timestamp,
		Priority:  f.Priority,
		Metadata:  f.Metadata,
	}, now)
}

// normalizeNotification applies the defaulting contract: missing ids get a
// timestamp-based synthetic id so list operations can still address the
// entry, kind falls back to system and priority to medium.
func normalizeNotification(n Notification, now time.Time) Notification {
	if n.ID == "" {
		n.ID = newSyntheticID(now)
	}
	if n.Kind == "" {
		n.Kind = KindSystem
	}
	if n.Priority == "" {
		n.Priority = PriorityMedium
	}
	if n.Timestamp == "" {
		n.Timestamp = now.UTC().Format(time.RFC3339)
	}
	return n
}

func newSyntheticID(now time.Time) string {
	return fmt.Sprintf("notif-%d", now.UnixMilli())
}
