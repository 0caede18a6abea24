// internal/channel/manager.go
package channel

import (
	"sync"

	"github.com/benbjohnson/clock"

	"github.com/agboredim/studendashboard-sub001/internal/common/logger"
)

// Manager binds channel lifetime to the identity provider's current subject:
// at most one channel exists at a time, the old one is fully torn down
// before a channel for a new subject is built, and page-visibility changes
// can resume a dropped connection.
type Manager struct {
	baseURL   string
	opts      Options
	transport Transport
	clk       clock.Clock
	notifier  Notifier
	store     Store
	log       logger.Logger

	mu        sync.Mutex
	current   *Channel
	subjectID string
	visible   bool
}

func NewManager(baseURL string, opts Options, transport Transport, clk clock.Clock, notifier Notifier, store Store, log logger.Logger) *Manager {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Manager{
		baseURL:   baseURL,
		opts:      opts,
		transport: transport,
		clk:       clk,
		notifier:  notifier,
		store:     store,
		log:       log,
		visible:   true,
	}
}

// SetSubject reacts to an identity change: same id is a no-op, any other
// value disconnects the current channel first and, when the new id is
// non-empty, builds and connects a fresh one.
func (m *Manager) SetSubject(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id == m.subjectID {
		return
	}

	if m.current != nil {
		m.log.Info("subject changed, tearing down channel", map[string]interface{}{
			"oldSubjectId": m.subjectID,
		})
		m.current.Disconnect()
		m.current = nil
	}

	m.subjectID = id
	if id == "" {
		return
	}

	ch := New(id, m.baseURL, m.opts, m.transport, m.clk, m.notifier, m.store, m.log)
	m.current = ch
	ch.Connect()
}

// SetVisible reports host page visibility. A hidden-to-visible transition
// with a dropped connection triggers a manual reconnect; browsers routinely
// kill background tab sockets.
func (m *Manager) SetVisible(visible bool) {
	m.mu.Lock()
	wasVisible := m.visible
	m.visible = visible
	ch := m.current
	m.mu.Unlock()

	if !visible || wasVisible || ch == nil {
		return
	}
	if ch.Phase() != PhaseConnected {
		m.log.Info("page visible again, reconnecting", nil)
		ch.Reconnect()
	}
}

// Channel returns the currently owned channel, or nil.
func (m *Manager) Channel() *Channel {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Close tears down the current channel, equivalent to the subject going away.
func (m *Manager) Close() {
	m.SetSubject("")
}
