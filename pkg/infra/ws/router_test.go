package ws

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/keyduel/keyduel-api/pkg/domain"
	pvp_in "github.com/keyduel/keyduel-api/pkg/domain/pvp/ports/in"
	pvp_out "github.com/keyduel/keyduel-api/pkg/domain/pvp/ports/out"
)

type stubJoinQueue struct {
	err     error
	lastCmd pvp_in.JoinQueueCommand
}

func (s *stubJoinQueue) Exec(_ context.Context, cmd pvp_in.JoinQueueCommand) (*pvp_in.QueueStatusDTO, error) {
	s.lastCmd = cmd
	if s.err != nil {
		return nil, s.err
	}
	return &pvp_in.QueueStatusDTO{QueueID: cmd.UserID, QueueSize: 1}, nil
}

type stubLeaveQueue struct {
	err     error
	lastCmd pvp_in.LeaveQueueCommand
}

func (s *stubLeaveQueue) Exec(_ context.Context, cmd pvp_in.LeaveQueueCommand) error {
	s.lastCmd = cmd
	return s.err
}

type matchCall struct {
	op      string
	matchID string
	userID  string
	wpm     float64
	acc     float64
}

type stubMatchEvents struct {
	err   error
	calls []matchCall
}

func (s *stubMatchEvents) StartMatch(_ context.Context, matchID, userID string) error {
	s.calls = append(s.calls, matchCall{op: "start", matchID: matchID, userID: userID})
	return s.err
}

func (s *stubMatchEvents) Progress(_ context.Context, matchID, userID string, wpm, acc float64) error {
	s.calls = append(s.calls, matchCall{op: "progress", matchID: matchID, userID: userID, wpm: wpm, acc: acc})
	return s.err
}

func (s *stubMatchEvents) Complete(_ context.Context, matchID, userID string, wpm, acc float64) error {
	s.calls = append(s.calls, matchCall{op: "complete", matchID: matchID, userID: userID, wpm: wpm, acc: acc})
	return s.err
}

func (s *stubMatchEvents) Forfeit(_ context.Context, matchID, userID string) error {
	s.calls = append(s.calls, matchCall{op: "forfeit", matchID: matchID, userID: userID})
	return s.err
}

func (s *stubMatchEvents) Reconnect(_ context.Context, matchID, userID string) error {
	s.calls = append(s.calls, matchCall{op: "reconnect", matchID: matchID, userID: userID})
	return s.err
}

type routerFixture struct {
	hub     *Hub
	router  *Router
	join    *stubJoinQueue
	leave   *stubLeaveQueue
	matches *stubMatchEvents
}

func newRouterFixture() *routerFixture {
	hub := NewHub()
	join := &stubJoinQueue{}
	leave := &stubLeaveQueue{}
	matches := &stubMatchEvents{}
	return &routerFixture{
		hub:     hub,
		router:  NewRouter(hub, join, leave, matches),
		join:    join,
		leave:   leave,
		matches: matches,
	}
}

func (f *routerFixture) client(userID, username string) *Client {
	return &Client{
		id:       "conn-" + userID,
		userID:   userID,
		username: username,
		hub:      f.hub,
		router:   f.router,
		send:     make(chan []byte, sendBuffer),
	}
}

type receivedFrame struct {
	Event string         `json:"event"`
	Data  map[string]any `json:"data"`
}

func nextFrame(t *testing.T, c *Client) receivedFrame {
	t.Helper()
	select {
	case raw := <-c.send:
		var f receivedFrame
		require.NoError(t, json.Unmarshal(raw, &f))
		return f
	default:
		t.Fatal("no frame queued")
		return receivedFrame{}
	}
}

func assertNoFrame(t *testing.T, c *Client) {
	t.Helper()
	select {
	case raw := <-c.send:
		t.Fatalf("unexpected frame queued: %s", raw)
	default:
	}
}

func TestDispatchRejectsUnboundIdentity(t *testing.T) {
	f := newRouterFixture()
	c := f.client("", "")

	f.router.Dispatch(c, []byte(`{"event":"pvp:join_queue"}`))

	frame := nextFrame(t, c)
	assert.Equal(t, pvp_out.EventError, frame.Event)
	assert.Equal(t, "Authentication failed", frame.Data["message"])
}

func TestDispatchMalformedFrame(t *testing.T) {
	f := newRouterFixture()
	c := f.client("alice", "Alice")

	f.router.Dispatch(c, []byte(`{not json`))
	frame := nextFrame(t, c)
	assert.Equal(t, pvp_out.EventError, frame.Event)
	assert.Equal(t, "malformed event", frame.Data["message"])

	// valid JSON without an event name is equally malformed
	f.router.Dispatch(c, []byte(`{"data":{}}`))
	frame = nextFrame(t, c)
	assert.Equal(t, "malformed event", frame.Data["message"])
}

func TestDispatchUnknownEvent(t *testing.T) {
	f := newRouterFixture()
	c := f.client("alice", "Alice")

	f.router.Dispatch(c, []byte(`{"event":"pvp:teleport"}`))

	frame := nextFrame(t, c)
	assert.Equal(t, pvp_out.EventError, frame.Event)
	assert.Equal(t, "unknown event: pvp:teleport", frame.Data["message"])
}

func TestJoinQueueEvent(t *testing.T) {
	f := newRouterFixture()
	c := f.client("alice", "Alice")

	f.router.Dispatch(c, []byte(`{"event":"pvp:join_queue"}`))

	frame := nextFrame(t, c)
	assert.Equal(t, pvp_out.EventQueueJoined, frame.Event)
	assert.Equal(t, float64(1), frame.Data["queueSize"])
	assert.Equal(t, "alice", f.join.lastCmd.UserID)
	assert.Equal(t, "Alice", f.join.lastCmd.Username)
	assert.Equal(t, c.id, f.join.lastCmd.ConnID)
}

func TestJoinQueueDuplicate(t *testing.T) {
	f := newRouterFixture()
	f.join.err = domain.ErrAlreadyInQueue
	c := f.client("alice", "Alice")

	f.router.Dispatch(c, []byte(`{"event":"pvp:join_queue"}`))

	frame := nextFrame(t, c)
	assert.Equal(t, pvp_out.EventError, frame.Event)
	assert.Equal(t, "Already in queue", frame.Data["message"])
}

func TestLeaveQueueEvent(t *testing.T) {
	f := newRouterFixture()
	c := f.client("alice", "Alice")

	f.router.Dispatch(c, []byte(`{"event":"pvp:leave_queue"}`))
	frame := nextFrame(t, c)
	assert.Equal(t, pvp_out.EventQueueLeft, frame.Event)
	assert.Equal(t, "alice", f.leave.lastCmd.UserID)

	f.leave.err = domain.ErrNotInQueue
	f.router.Dispatch(c, []byte(`{"event":"pvp:leave_queue"}`))
	frame = nextFrame(t, c)
	assert.Equal(t, pvp_out.EventError, frame.Event)
	assert.Equal(t, "Not in queue", frame.Data["message"])
}

func TestAcceptMatchJoinsRoomAndStarts(t *testing.T) {
	f := newRouterFixture()
	c := f.client("alice", "Alice")

	f.router.Dispatch(c, []byte(`{"event":"ACCEPT_MATCH","data":{"matchId":"m-1"}}`))

	require.Len(t, f.matches.calls, 1)
	assert.Equal(t, matchCall{op: "start", matchID: "m-1", userID: "alice"}, f.matches.calls[0])
	assertNoFrame(t, c)

	// the connection now receives room-scoped broadcasts
	f.hub.EmitToRoom(pvp_out.MatchRoom("m-1"), pvp_out.EventGameStart, map[string]any{"matchId": "m-1"})
	frame := nextFrame(t, c)
	assert.Equal(t, pvp_out.EventGameStart, frame.Event)
}

func TestAcceptMatchLowercaseAlias(t *testing.T) {
	f := newRouterFixture()
	c := f.client("alice", "Alice")

	f.router.Dispatch(c, []byte(`{"event":"pvp:accept_match","data":{"matchId":"m-1"}}`))

	require.Len(t, f.matches.calls, 1)
	assert.Equal(t, "start", f.matches.calls[0].op)
}

func TestAcceptMatchRequiresMatchID(t *testing.T) {
	f := newRouterFixture()
	c := f.client("alice", "Alice")

	f.router.Dispatch(c, []byte(`{"event":"ACCEPT_MATCH","data":{}}`))

	assert.Empty(t, f.matches.calls)
	frame := nextFrame(t, c)
	assert.Equal(t, "matchId is required", frame.Data["message"])
}

func TestAcceptMatchRejection(t *testing.T) {
	f := newRouterFixture()
	f.matches.err = assert.AnError
	c := f.client("alice", "Alice")

	f.router.Dispatch(c, []byte(`{"event":"ACCEPT_MATCH","data":{"matchId":"m-1"}}`))

	frame := nextFrame(t, c)
	assert.Equal(t, "Unable to start match", frame.Data["message"])

	// a rejected caller gets no room membership and hears no broadcasts
	f.hub.EmitToRoom(pvp_out.MatchRoom("m-1"), pvp_out.EventOpponentFinished, map[string]any{"wpm": 80})
	assertNoFrame(t, c)
}

func TestProgressIdentityComesFromConnection(t *testing.T) {
	f := newRouterFixture()
	c := f.client("alice", "Alice")

	// a spoofed userId in the payload is ignored
	f.router.Dispatch(c, []byte(`{"event":"MATCH_PROGRESS","data":{"matchId":"m-1","userId":"bob","wpm":64.2,"acc":97.5}}`))

	require.Len(t, f.matches.calls, 1)
	call := f.matches.calls[0]
	assert.Equal(t, "progress", call.op)
	assert.Equal(t, "alice", call.userID)
	assert.Equal(t, 64.2, call.wpm)
	assert.Equal(t, 97.5, call.acc)
	assertNoFrame(t, c)
}

func TestCompleteEvent(t *testing.T) {
	f := newRouterFixture()
	c := f.client("alice", "Alice")

	f.router.Dispatch(c, []byte(`{"event":"MATCH_COMPLETE","data":{"matchId":"m-1","wpm":81,"acc":95}}`))

	require.Len(t, f.matches.calls, 1)
	assert.Equal(t, matchCall{op: "complete", matchID: "m-1", userID: "alice", wpm: 81, acc: 95}, f.matches.calls[0])
}

func TestForfeitRejection(t *testing.T) {
	f := newRouterFixture()
	f.matches.err = assert.AnError
	c := f.client("alice", "Alice")

	f.router.Dispatch(c, []byte(`{"event":"FORFEIT","data":{"matchId":"m-1"}}`))

	require.Len(t, f.matches.calls, 1)
	assert.Equal(t, "forfeit", f.matches.calls[0].op)
	frame := nextFrame(t, c)
	assert.Equal(t, "Unable to forfeit match", frame.Data["message"])
}

func TestReconnectRejoinsRoomAndNotifies(t *testing.T) {
	f := newRouterFixture()
	alice := f.client("alice", "Alice")
	bob := f.client("bob", "Bob")
	f.hub.JoinRoom(bob, pvp_out.MatchRoom("m-1"))

	f.router.Dispatch(alice, []byte(`{"event":"RECONNECT","data":{"matchId":"m-1"}}`))

	frame := nextFrame(t, bob)
	assert.Equal(t, pvp_out.EventOpponentReconnected, frame.Event)
	assert.Equal(t, "m-1", frame.Data["matchId"])

	// alice is in the room too and hears her own reconnect broadcast
	frame = nextFrame(t, alice)
	assert.Equal(t, pvp_out.EventOpponentReconnected, frame.Event)

	require.Len(t, f.matches.calls, 1)
	assert.Equal(t, matchCall{op: "reconnect", matchID: "m-1", userID: "alice"}, f.matches.calls[0])
}

func TestReconnectRejectedKeepsCallerOutOfRoom(t *testing.T) {
	f := newRouterFixture()
	f.matches.err = assert.AnError
	mallory := f.client("mallory", "Mallory")
	bob := f.client("bob", "Bob")
	f.hub.JoinRoom(bob, pvp_out.MatchRoom("m-1"))

	f.router.Dispatch(mallory, []byte(`{"event":"RECONNECT","data":{"matchId":"m-1"}}`))

	frame := nextFrame(t, mallory)
	assert.Equal(t, pvp_out.EventError, frame.Event)
	assert.Equal(t, "Unable to reconnect", frame.Data["message"])
	assertNoFrame(t, bob)

	// and the outsider receives nothing broadcast to the room
	f.hub.EmitToRoom(pvp_out.MatchRoom("m-1"), pvp_out.EventOpponentFinished, map[string]any{"wpm": 80})
	assertNoFrame(t, mallory)
}
