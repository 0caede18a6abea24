// internal/channel/channel.go
package channel

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/agboredim/studendashboard-sub001/internal/common/logger"
	"github.com/agboredim/studendashboard-sub001/internal/common/metrics"
)

// Phase is the single source of truth for the connection lifecycle.
type Phase string

const (
	PhaseDisconnected Phase = "disconnected"
	PhaseConnecting   Phase = "connecting"
	PhaseConnected    Phase = "connected"
	PhaseError        Phase = "error"
)

// Options holds the channel lifecycle timings.
type Options struct {
	ConnectTimeout       time.Duration
	HeartbeatInterval    time.Duration
	ReconnectBaseDelay   time.Duration
	ReconnectMaxDelay    time.Duration
	MaxReconnectAttempts int
	ManualReconnectDelay time.Duration
}

// DefaultOptions returns the production timings: 10s connect budget, 30s
// heartbeat, 1s..30s exponential backoff, 5 attempts, 100ms manual-reconnect
// settle delay.
func DefaultOptions() Options {
	return Options{
		ConnectTimeout:       10 * time.Second,
		HeartbeatInterval:    30 * time.Second,
		ReconnectBaseDelay:   time.Second,
		ReconnectMaxDelay:    30 * time.Second,
		MaxReconnectAttempts: 5,
		ManualReconnectDelay: 100 * time.Millisecond,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.ConnectTimeout == 0 {
		o.ConnectTimeout = d.ConnectTimeout
	}
	if o.HeartbeatInterval == 0 {
		o.HeartbeatInterval = d.HeartbeatInterval
	}
	if o.ReconnectBaseDelay == 0 {
		o.ReconnectBaseDelay = d.ReconnectBaseDelay
	}
	if o.ReconnectMaxDelay == 0 {
		o.ReconnectMaxDelay = d.ReconnectMaxDelay
	}
	if o.MaxReconnectAttempts == 0 {
		o.MaxReconnectAttempts = d.MaxReconnectAttempts
	}
	if o.ManualReconnectDelay == 0 {
		o.ManualReconnectDelay = d.ManualReconnectDelay
	}
	return o
}

// Store persists the latest notification list per subject so a freshly
// mounted dashboard has something to render before the socket syncs.
// Implementations are best-effort; the channel never fails on store errors.
type Store interface {
	SaveSnapshot(ctx context.Context, subjectID string, list []Notification) error
	LoadSnapshot(ctx context.Context, subjectID string) ([]Notification, error)
}

const storeTimeout = 2 * time.Second

// Channel owns one live connection for one subject id, the notification
// list, and every timer involved in keeping the connection alive. All state
// is guarded by mu; callbacks from stale connections are rejected by the
// generation counter, so a single Disconnect tears everything down without
// leaking timers or goroutines.
type Channel struct {
	opts      Options
	subjectID string
	baseURL   string
	transport Transport
	clk       clock.Clock
	notifier  Notifier
	store     Store
	log       logger.Logger

	mu                sync.Mutex
	phase             Phase
	conn              Conn
	gen               uint64
	list              []Notification
	reconnectAttempts int
	reconnecting      bool
	suspended         bool
	budgetNotified    bool
	dialCancel        context.CancelFunc
	connectTimer      *clock.Timer
	reconnectTimer    *clock.Timer
	heartbeatStop     chan struct{}
}

// New builds a channel for the given subject. transport, clk, notifier,
// store and log may be nil; sensible defaults are substituted. When a store
// is present the last snapshot is preloaded so the list is non-empty before
// the first sync.
func New(subjectID, baseURL string, opts Options, transport Transport, clk clock.Clock, notifier Notifier, store Store, log logger.Logger) *Channel {
	if transport == nil {
		transport = NewWebsocketTransport()
	}
	if clk == nil {
		clk = clock.New()
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	c := &Channel{
		opts:      opts.withDefaults(),
		subjectID: subjectID,
		baseURL:   baseURL,
		transport: transport,
		clk:       clk,
		notifier:  notifier,
		store:     store,
		log:       log.WithFields(map[string]interface{}{"subjectId": subjectID}),
		phase:     PhaseDisconnected,
	}

	if store != nil && subjectID != "" {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		if snapshot, err := store.LoadSnapshot(ctx, subjectID); err != nil {
			c.log.Debug("snapshot preload failed", map[string]interface{}{"error": err.Error()})
		} else if len(snapshot) > 0 {
			// Copied so in-place list filtering never touches a slice the
			// store may still be holding.
			c.list = make([]Notification, len(snapshot))
			copy(c.list, snapshot)
		}
	}

	return c
}

// Connect opens the channel. It is a no-op without a subject id and a
// guaranteed no-op while an attempt is already in flight or open, so rapid
// repeated calls produce exactly one transport dial.
func (c *Channel) Connect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connectLocked()
}

func (c *Channel) connectLocked() {
	if c.subjectID == "" {
		c.log.Debug("connect skipped, no subject id", nil)
		return
	}
	if c.phase == PhaseConnecting || c.phase == PhaseConnected {
		return
	}

	c.suspended = false
	c.gen++
	gen := c.gen
	c.setPhaseLocked(PhaseConnecting)

	endpoint := DeriveEndpoint(c.baseURL, c.subjectID)
	ctx, cancel := context.WithCancel(context.Background())
	c.dialCancel = cancel

	// Connection budget: a half-open attempt is forced closed and routed
	// through the close handler like any other failure.
	c.connectTimer = c.clk.AfterFunc(c.opts.ConnectTimeout, func() {
		c.onConnectTimeout(gen)
	})

	c.log.Info("connecting", map[string]interface{}{"endpoint": endpoint, "attempt": c.reconnectAttempts})
	go c.dial(ctx, gen, endpoint)
}

func (c *Channel) dial(ctx context.Context, gen uint64, endpoint string) {
	conn, err := c.transport.Dial(ctx, endpoint)
	if err != nil {
		c.handleClose(gen, &CloseError{Code: closeAbnormal, Reason: err.Error()})
		return
	}
	c.handleOpen(gen, conn)
}

func (c *Channel) onConnectTimeout(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen || c.phase != PhaseConnecting {
		return
	}
	c.log.Warn("connection attempt timed out", map[string]interface{}{"timeout": c.opts.ConnectTimeout.String()})
	if c.dialCancel != nil {
		c.dialCancel()
		c.dialCancel = nil
	}
}

func (c *Channel) handleOpen(gen uint64, conn Conn) {
	c.mu.Lock()
	if gen != c.gen || c.phase != PhaseConnecting {
		c.mu.Unlock()
		_ = conn.Close(CloseNormal, "stale connection")
		return
	}

	c.stopConnectTimerLocked()
	if c.dialCancel != nil {
		c.dialCancel()
		c.dialCancel = nil
	}
	c.conn = conn
	c.setPhaseLocked(PhaseConnected)
	c.reconnectAttempts = 0
	c.budgetNotified = false

	if err := conn.WriteJSON(outboundFrame{Type: frameInit, UserID: c.subjectID}); err != nil {
		c.log.Warn("init handshake failed", map[string]interface{}{"error": err.Error()})
	}

	stop := make(chan struct{})
	c.heartbeatStop = stop
	c.mu.Unlock()

	metrics.ConnectionsOpened.Inc()
	c.log.Info("connected", nil)
	c.notifier.Notify("Connected", "Notification stream is live", SeveritySuccess, noticeShort)

	go c.readLoop(gen, conn)
	go c.heartbeat(gen, stop)
}

func (c *Channel) readLoop(gen uint64, conn Conn) {
	for {
		data, err := conn.ReadMessage()
		if err != nil {
			var cerr *CloseError
			if !errors.As(err, &cerr) {
				cerr = &CloseError{Code: closeAbnormal, Reason: err.Error()}
			}
			c.handleClose(gen, cerr)
			return
		}
		c.handleFrame(gen, data)
	}
}

// handleClose is the single exit point for every failed or finished
// connection: dial errors, timeouts, server closes and network drops all
// land here. A normal closure (1000) parks the channel; anything else
// transitions to error and consults the reconnection policy.
func (c *Channel) handleClose(gen uint64, cerr *CloseError) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return
	}

	c.stopConnectTimerLocked()
	c.stopHeartbeatLocked()
	if c.dialCancel != nil {
		c.dialCancel()
		c.dialCancel = nil
	}
	if c.conn != nil {
		_ = c.conn.Close(CloseNormal, "")
		c.conn = nil
	}

	if cerr.Code == CloseNormal {
		c.log.Info("channel closed", map[string]interface{}{"code": cerr.Code})
		c.setPhaseLocked(PhaseDisconnected)
		return
	}

	c.log.Warn("channel closed abnormally", map[string]interface{}{
		"code":   cerr.Code,
		"reason": cerr.Reason,
	})
	c.setPhaseLocked(PhaseError)
	c.scheduleReconnectLocked()
}

func (c *Channel) scheduleReconnectLocked() {
	if c.suspended || c.reconnecting {
		return
	}
	if c.reconnectAttempts >= c.opts.MaxReconnectAttempts {
		if !c.budgetNotified {
			c.budgetNotified = true
			c.log.Error("reconnect budget exhausted", map[string]interface{}{
				"attempts": c.reconnectAttempts,
			})
			c.notifier.Notify("Connection lost",
				"Unable to reconnect to the notification service. Please refresh the page.",
				SeverityError, noticePersistent)
		}
		return
	}

	delay := c.opts.ReconnectBaseDelay * time.Duration(1<<uint(c.reconnectAttempts))
	if delay > c.opts.ReconnectMaxDelay {
		delay = c.opts.ReconnectMaxDelay
	}
	c.reconnecting = true
	c.reconnectAttempts++
	metrics.ReconnectsScheduled.Inc()
	c.log.Info("reconnect scheduled", map[string]interface{}{
		"attempt": c.reconnectAttempts,
		"delay":   delay.String(),
	})

	// The generation guard covers the window where the timer has already
	// fired but the callback has not yet taken the lock when Disconnect runs.
	gen := c.gen
	c.reconnectTimer = c.clk.AfterFunc(delay, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if gen != c.gen {
			return
		}
		c.reconnecting = false
		c.connectLocked()
	})
}

// Disconnect tears down the connection and every outstanding timer, and
// suppresses any reconnect already scheduled. Idempotent.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.suspended = true
	c.gen++
	c.stopConnectTimerLocked()
	c.stopReconnectTimerLocked()
	c.stopHeartbeatLocked()
	c.reconnecting = false
	if c.dialCancel != nil {
		c.dialCancel()
		c.dialCancel = nil
	}
	if c.conn != nil {
		_ = c.conn.Close(CloseNormal, "client disconnect")
		c.conn = nil
	}
	if c.phase != PhaseDisconnected {
		c.log.Info("disconnected", nil)
	}
	c.setPhaseLocked(PhaseDisconnected)
}

// Reconnect is the manual override: full teardown, a short settle delay,
// then a fresh connect with the attempt budget reset. Used for user-driven
// retry and visibility recovery. The settle timer is held in reconnectTimer
// so a Disconnect during the delay cancels it like any scheduled reconnect.
func (c *Channel) Reconnect() {
	c.Disconnect()

	c.mu.Lock()
	defer c.mu.Unlock()
	gen := c.gen
	c.reconnectTimer = c.clk.AfterFunc(c.opts.ManualReconnectDelay, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if gen != c.gen {
			return
		}
		c.reconnectAttempts = 0
		c.reconnecting = false
		c.budgetNotified = false
		c.connectLocked()
	})
}

// MarkAsRead flips the matching notification to read locally and best-effort
// mirrors it to the server. The returned bool reports only the send; the
// local change always applies.
func (c *Channel) MarkAsRead(id string) bool {
	c.mu.Lock()
	for i := range c.list {
		if c.list[i].ID == id {
			c.list[i].Read = true
		}
	}
	sent := c.sendLocked(outboundFrame{Type: frameMarkRead, NotificationID: id})
	snapshot := c.snapshotLocked()
	c.mu.Unlock()

	c.saveSnapshot(snapshot)
	return sent
}

// MarkAllAsRead applies MarkAsRead semantics to the whole list with a single
// server message.
func (c *Channel) MarkAllAsRead() bool {
	c.mu.Lock()
	for i := range c.list {
		c.list[i].Read = true
	}
	sent := c.sendLocked(outboundFrame{Type: frameMarkAllRead})
	snapshot := c.snapshotLocked()
	c.mu.Unlock()

	c.saveSnapshot(snapshot)
	return sent
}

// DeleteNotification removes the entry with the given id. Unknown ids are a
// no-op, not an error.
func (c *Channel) DeleteNotification(id string) bool {
	c.mu.Lock()
	filtered := c.list[:0]
	for _, n := range c.list {
		if n.ID != id {
			filtered = append(filtered, n)
		}
	}
	c.list = filtered
	sent := c.sendLocked(outboundFrame{Type: frameDeleteNotification, NotificationID: id})
	snapshot := c.snapshotLocked()
	c.mu.Unlock()

	c.saveSnapshot(snapshot)
	return sent
}

// ClearAllNotifications empties the list.
func (c *Channel) ClearAllNotifications() bool {
	c.mu.Lock()
	c.list = nil
	sent := c.sendLocked(outboundFrame{Type: frameClearAll})
	snapshot := c.snapshotLocked()
	c.mu.Unlock()

	c.saveSnapshot(snapshot)
	return sent
}

// Notifications returns a copy of the list, most recent first.
func (c *Channel) Notifications() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// UnreadCount is derived from the list on every call, never stored.
func (c *Channel) UnreadCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	count := 0
	for _, n := range c.list {
		if !n.Read {
			count++
		}
	}
	return count
}

func (c *Channel) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

func (c *Channel) ReconnectAttempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reconnectAttempts
}

func (c *Channel) SubjectID() string {
	return c.subjectID
}

func (c *Channel) handleFrame(gen uint64, data []byte) {
	f, err := decodeFrame(data)
	if err != nil {
		metrics.FramesDropped.Inc()
		c.log.Warn("dropping malformed frame", map[string]interface{}{"error": err.Error()})
		return
	}
	metrics.FramesReceived.WithLabelValues(f.Type).Inc()

	switch f.Type {
	case frameNotification:
		n := notificationFromFrame(f, c.clk.Now())
		if f.ID == "" || f.Kind == "" || f.Priority == "" {
			c.log.Debug("server omitted notification fields, defaults applied", map[string]interface{}{
				"id": n.ID,
			})
		}

		c.mu.Lock()
		if gen != c.gen {
			c.mu.Unlock()
			return
		}
		c.list = append([]Notification{n}, c.list...)
		snapshot := c.snapshotLocked()
		c.mu.Unlock()

		switch n.Priority {
		case PriorityUrgent:
			c.notifier.Notify(n.Title, n.Message, SeverityError, noticeUrgent)
		case PriorityHigh:
			c.notifier.Notify(n.Title, n.Message, SeverityWarning, noticeHigh)
		}
		c.saveSnapshot(snapshot)

	case frameNotificationList:
		now := c.clk.Now()
		list := make([]Notification, 0, len(f.Notifications))
		for i := range f.Notifications {
			list = append(list, normalizeNotification(f.Notifications[i], now))
		}

		c.mu.Lock()
		if gen != c.gen {
			c.mu.Unlock()
			return
		}
		c.list = list
		snapshot := c.snapshotLocked()
		c.mu.Unlock()

		c.log.Debug("notification list synced", map[string]interface{}{"count": len(list)})
		c.saveSnapshot(snapshot)

	case framePong:
		c.log.Debug("pong received", nil)

	case frameError:
		c.log.Warn("server reported error", map[string]interface{}{"message": f.Message})
		c.notifier.Notify("Notification error", f.Message, SeverityError, noticeHigh)

	default:
		c.log.Debug("ignoring unknown frame type", map[string]interface{}{"type": f.Type})
	}
}

func (c *Channel) heartbeat(gen uint64, stop chan struct{}) {
	ticker := c.clk.Ticker(c.opts.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.mu.Lock()
			if gen != c.gen || c.phase != PhaseConnected {
				c.mu.Unlock()
				return
			}
			c.sendLocked(outboundFrame{Type: framePing})
			c.mu.Unlock()
		}
	}
}

// sendLocked writes a frame when the channel is open and reports success.
// A closed channel is not an error here; the caller's optimistic local
// mutation stands either way.
func (c *Channel) sendLocked(f outboundFrame) bool {
	if c.phase != PhaseConnected || c.conn == nil {
		metrics.SendsSkipped.Inc()
		c.log.Debug("send skipped, channel not open", map[string]interface{}{"type": f.Type})
		return false
	}
	if err := c.conn.WriteJSON(f); err != nil {
		c.log.Warn("send failed", map[string]interface{}{"type": f.Type, "error": err.Error()})
		return false
	}
	return true
}

func (c *Channel) snapshotLocked() []Notification {
	out := make([]Notification, len(c.list))
	copy(out, c.list)
	return out
}

func (c *Channel) saveSnapshot(snapshot []Notification) {
	if c.store == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		if err := c.store.SaveSnapshot(ctx, c.subjectID, snapshot); err != nil {
			c.log.Debug("snapshot save failed", map[string]interface{}{"error": err.Error()})
		}
	}()
}

func (c *Channel) setPhaseLocked(p Phase) {
	if c.phase == p {
		return
	}
	c.log.Debug("phase transition", map[string]interface{}{
		"from": string(c.phase),
		"to":   string(p),
	})
	c.phase = p
	metrics.SetChannelPhase(string(p))
}

func (c *Channel) stopConnectTimerLocked() {
	if c.connectTimer != nil {
		c.connectTimer.Stop()
		c.connectTimer = nil
	}
}

func (c *Channel) stopReconnectTimerLocked() {
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
}

func (c *Channel) stopHeartbeatLocked() {
	if c.heartbeatStop != nil {
		close(c.heartbeatStop)
		c.heartbeatStop = nil
	}
}
