// internal/channel/list_test.go
package channel

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pushNotification(t *testing.T, c *Channel, conn *fakeConn, id, title string, priority Priority) {
	t.Helper()
	before := len(c.Notifications())
	conn.push([]byte(fmt.Sprintf(
		`{"type":"notification","id":%q,"notification_type":"assignment","title":%q,"message":"m","priority":%q}`,
		id, title, priority)))
	require.Eventually(t, func() bool { return len(c.Notifications()) == before+1 }, waitFor, tick)
}

// ==========================
// List Semantics
// ==========================

func TestList_MostRecentFirst(t *testing.T) {
	c, tr, _, _ := newTestChannel(t, "u1")
	defer c.Disconnect()
	conn := connectAndOpen(t, c, tr)

	pushNotification(t, c, conn, "n1", "first", PriorityLow)
	pushNotification(t, c, conn, "n2", "second", PriorityLow)
	pushNotification(t, c, conn, "n3", "third", PriorityLow)

	list := c.Notifications()
	require.Len(t, list, 3)
	assert.Equal(t, "n3", list[0].ID)
	assert.Equal(t, "n2", list[1].ID)
	assert.Equal(t, "n1", list[2].ID)
	assert.Equal(t, 3, c.UnreadCount())
}

func TestMarkAsRead_Idempotent(t *testing.T) {
	c, tr, _, _ := newTestChannel(t, "u1")
	defer c.Disconnect()
	conn := connectAndOpen(t, c, tr)

	pushNotification(t, c, conn, "n1", "first", PriorityLow)
	require.Equal(t, 1, c.UnreadCount())

	assert.True(t, c.MarkAsRead("n1"))
	assert.Equal(t, 0, c.UnreadCount())
	assert.True(t, c.Notifications()[0].Read)

	// A second call changes nothing and the count never goes negative.
	assert.True(t, c.MarkAsRead("n1"))
	assert.Equal(t, 0, c.UnreadCount())

	marks := conn.writesOfType(frameMarkRead)
	require.Len(t, marks, 2)
	assert.Equal(t, "n1", marks[0].NotificationID)
}

func TestMarkAllAsRead(t *testing.T) {
	c, tr, _, _ := newTestChannel(t, "u1")
	defer c.Disconnect()
	conn := connectAndOpen(t, c, tr)

	pushNotification(t, c, conn, "n1", "first", PriorityLow)
	pushNotification(t, c, conn, "n2", "second", PriorityLow)
	pushNotification(t, c, conn, "n3", "third", PriorityLow)

	assert.True(t, c.MarkAllAsRead())
	assert.Equal(t, 0, c.UnreadCount())
	for _, n := range c.Notifications() {
		assert.True(t, n.Read)
	}
	assert.Len(t, conn.writesOfType(frameMarkAllRead), 1)
}

func TestDeleteNotification_UnknownIDIsNoOp(t *testing.T) {
	c, tr, _, _ := newTestChannel(t, "u1")
	defer c.Disconnect()
	conn := connectAndOpen(t, c, tr)

	pushNotification(t, c, conn, "n1", "first", PriorityLow)

	assert.True(t, c.DeleteNotification("missing"))
	require.Len(t, c.Notifications(), 1)

	assert.True(t, c.DeleteNotification("n1"))
	assert.Empty(t, c.Notifications())
	assert.Equal(t, 0, c.UnreadCount())
}

func TestClearAllNotifications(t *testing.T) {
	c, tr, _, _ := newTestChannel(t, "u1")
	defer c.Disconnect()
	conn := connectAndOpen(t, c, tr)

	pushNotification(t, c, conn, "n1", "first", PriorityLow)
	pushNotification(t, c, conn, "n2", "second", PriorityHigh)

	assert.True(t, c.ClearAllNotifications())
	assert.Empty(t, c.Notifications())
	assert.Equal(t, 0, c.UnreadCount())
	assert.Len(t, conn.writesOfType(frameClearAll), 1)
}

func TestMutations_ApplyLocallyWhileDisconnected(t *testing.T) {
	store := &fakeStore{snapshot: []Notification{
		{ID: "n1", Kind: KindAssignment, Title: "t", Priority: PriorityLow},
		{ID: "n2", Kind: KindAssignment, Title: "t", Priority: PriorityLow},
	}}
	tr := newFakeTransport()
	c := New("u1", "https://api.learnhub.example.com", DefaultOptions(), tr, nil, nil, store, nil)
	defer c.Disconnect()

	// No connection: the send is reported skipped but the mutation lands.
	assert.False(t, c.MarkAsRead("n1"))
	assert.Equal(t, 1, c.UnreadCount())
	assert.False(t, c.DeleteNotification("n2"))
	assert.Len(t, c.Notifications(), 1)
}

// ==========================
// Inbound Frames
// ==========================

func TestHandleFrame_DefaultsForSparsePayload(t *testing.T) {
	c, tr, _, _ := newTestChannel(t, "u1")
	defer c.Disconnect()
	conn := connectAndOpen(t, c, tr)

	conn.push([]byte(`{"type":"notification","title":"bare","message":"m"}`))
	require.Eventually(t, func() bool { return len(c.Notifications()) == 1 }, waitFor, tick)

	n := c.Notifications()[0]
	assert.True(t, strings.HasPrefix(n.ID, "notif-"), "missing id must get a synthetic one, got %q", n.ID)
	assert.Equal(t, KindSystem, n.Kind)
	assert.Equal(t, PriorityMedium, n.Priority)
	assert.NotEmpty(t, n.Timestamp)
	assert.False(t, n.Read)
}

func TestHandleFrame_UrgentAndHighNotices(t *testing.T) {
	c, tr, _, nf := newTestChannel(t, "u1")
	defer c.Disconnect()
	conn := connectAndOpen(t, c, tr)

	pushNotification(t, c, conn, "n1", "Class starting", PriorityUrgent)
	pushNotification(t, c, conn, "n2", "Assignment graded", PriorityHigh)
	pushNotification(t, c, conn, "n3", "FYI", PriorityLow)

	urgent := nf.withDuration(noticeUrgent)
	require.Len(t, urgent, 1)
	assert.Equal(t, "Class starting", urgent[0].title)
	assert.Equal(t, SeverityError, urgent[0].severity)

	high := nf.withDuration(noticeHigh)
	require.Len(t, high, 1)
	assert.Equal(t, "Assignment graded", high[0].title)
	assert.Equal(t, SeverityWarning, high[0].severity)
}

func TestHandleFrame_ListReplacesState(t *testing.T) {
	c, tr, _, _ := newTestChannel(t, "u1")
	defer c.Disconnect()
	conn := connectAndOpen(t, c, tr)

	pushNotification(t, c, conn, "stale", "old", PriorityLow)

	sync := inboundFrame{Type: frameNotificationList, Notifications: []Notification{
		{ID: "s1", Kind: KindCourseUpdate, Title: "a", Read: true, Priority: PriorityLow, Timestamp: "2026-08-30T10:00:00Z"},
		{ID: "s2", Title: "b"},
	}}
	data, err := json.Marshal(sync)
	require.NoError(t, err)
	conn.push(data)

	require.Eventually(t, func() bool {
		list := c.Notifications()
		return len(list) == 2 && list[0].ID == "s1"
	}, waitFor, tick)

	list := c.Notifications()
	assert.Equal(t, 1, c.UnreadCount())
	// Entries inside a list sync get the same defaulting as single frames.
	assert.Equal(t, KindSystem, list[1].Kind)
	assert.Equal(t, PriorityMedium, list[1].Priority)
}

func TestHandleFrame_MalformedAndUnknownTolerated(t *testing.T) {
	c, tr, _, _ := newTestChannel(t, "u1")
	defer c.Disconnect()
	conn := connectAndOpen(t, c, tr)

	conn.push([]byte(`this is not json`))
	conn.push([]byte(`{"title":"no type field"}`))
	conn.push([]byte(`{"type":"mystery_frame","id":"x"}`))
	pushNotification(t, c, conn, "n1", "still alive", PriorityLow)

	assert.Equal(t, PhaseConnected, c.Phase())
	require.Len(t, c.Notifications(), 1)
	assert.Equal(t, "n1", c.Notifications()[0].ID)
}

func TestHandleFrame_ServerError(t *testing.T) {
	c, tr, _, nf := newTestChannel(t, "u1")
	defer c.Disconnect()
	conn := connectAndOpen(t, c, tr)

	conn.push([]byte(`{"type":"error","message":"subscription expired"}`))

	require.Eventually(t, func() bool {
		for _, x := range nf.withSeverity(SeverityError) {
			if x.message == "subscription expired" {
				return true
			}
		}
		return false
	}, waitFor, tick)
	assert.Equal(t, PhaseConnected, c.Phase(), "a server error frame must not close the channel")
}

func TestHandleFrame_StaleGenerationDropped(t *testing.T) {
	c, tr, _, _ := newTestChannel(t, "u1")
	conn := connectAndOpen(t, c, tr)

	c.Disconnect()
	conn.push([]byte(`{"type":"notification","id":"late","title":"t","message":"m"}`))

	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, c.Notifications(), "frames from a torn-down connection must be ignored")
}
