// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ChannelPhase = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "notification_channel_phase",
			Help: "Current channel phase (1 for the active phase, 0 otherwise)",
		},
		[]string{"phase"},
	)

	ConnectionsOpened = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notification_connections_opened_total",
			Help: "Total number of successfully opened channel connections",
		},
	)

	ReconnectsScheduled = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notification_reconnects_scheduled_total",
			Help: "Total number of reconnect attempts scheduled",
		},
	)

	FramesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_frames_received_total",
			Help: "Total number of inbound frames by type",
		},
		[]string{"type"},
	)

	FramesDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notification_frames_dropped_total",
			Help: "Total number of inbound frames dropped as malformed",
		},
	)

	SendsSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notification_sends_skipped_total",
			Help: "Total number of outbound sends skipped because the channel was not open",
		},
	)

	NoticesEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_notices_emitted_total",
			Help: "Total number of ephemeral UI notices emitted by severity",
		},
		[]string{"severity"},
	)
)

var knownPhases = []string{"disconnected", "connecting", "connected", "error"}

// SetChannelPhase marks the given phase active and zeroes the others, so the
// gauge always reads as a one-hot vector.
func SetChannelPhase(phase string) {
	for _, p := range knownPhases {
		v := 0.0
		if p == phase {
			v = 1.0
		}
		ChannelPhase.WithLabelValues(p).Set(v)
	}
}
