package ws_test

import (
	"context"
	"errors"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cwrk-planet/presence-service/internal/auth"
	"github.com/cwrk-planet/presence-service/internal/bus"
	"github.com/cwrk-planet/presence-service/internal/domain"
	"github.com/cwrk-planet/presence-service/internal/memory"
	"github.com/cwrk-planet/presence-service/internal/service"
	"github.com/cwrk-planet/presence-service/internal/transport/ws"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

type harness struct {
	ts       *httptest.Server
	verifier *auth.Verifier
	presence *memory.PresenceRepository
	rooms    *service.RoomService
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	verifier := auth.NewVerifier("test-secret", "", time.Minute)
	b := bus.NewMemoryBus()
	presRepo := memory.NewPresenceRepository()
	roomSvc := service.NewRoomService(memory.NewRoomRepository(), presRepo, service.NewRoomLifecycle(b))

	srv := ws.NewServer(b, service.NewPresenceService(presRepo), roomSvc, verifier)

	r := chi.NewRouter()
	r.Get("/ws/rooms/{id}", srv.HandleWS)

	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)

	return &harness{ts: ts, verifier: verifier, presence: presRepo, rooms: roomSvc}
}

func (h *harness) newRoom(t *testing.T, name string, ownerID int64) *domain.Room {
	t.Helper()
	room, err := h.rooms.CreateRoom(context.Background(), name, ownerID)
	require.NoError(t, err)
	return room
}

func (h *harness) wsURL(roomID int64, token string) string {
	return "ws" + strings.TrimPrefix(h.ts.URL, "http") +
		fmt.Sprintf("/ws/rooms/%d?access_token=%s", roomID, token)
}

func (h *harness) dial(t *testing.T, roomID int64, user domain.User) *websocket.Conn {
	t.Helper()
	token, err := h.verifier.Sign(user, time.Now(), time.Hour)
	require.NoError(t, err)

	conn, _, err := websocket.DefaultDialer.Dial(h.wsURL(roomID, token), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) bus.Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var evt bus.Event
	require.NoError(t, conn.ReadJSON(&evt))

	return evt
}

// readChats читает события, пропуская join/leave, пока не наберёт n сообщений.
func readChats(t *testing.T, conn *websocket.Conn, n int) []bus.Event {
	t.Helper()

	var out []bus.Event
	for len(out) < n {
		evt := readEvent(t, conn)
		if evt.Type == bus.TypeChatMessage {
			out = append(out, evt)
		}
	}

	return out
}

func readUntilClose(t *testing.T, conn *websocket.Conn) *websocket.CloseError {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	for {
		var evt bus.Event
		if err := conn.ReadJSON(&evt); err != nil {
			var closeErr *websocket.CloseError
			require.ErrorAs(t, err, &closeErr)
			return closeErr
		}
	}
}

func sendChat(t *testing.T, conn *websocket.Conn, text string) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(map[string]string{"type": bus.TypeChatMessage, "message": text}))
}

func TestHandleWS_RejectsBadToken(t *testing.T) {
	h := newHarness(t)
	room := h.newRoom(t, "general", 1)

	_, resp, err := websocket.DefaultDialer.Dial(h.wsURL(room.ID, "garbage"), nil)
	require.True(t, errors.Is(err, websocket.ErrBadHandshake))
	require.Equal(t, 401, resp.StatusCode)
}

func TestHandleWS_RejectsUnknownRoom(t *testing.T) {
	h := newHarness(t)

	token, err := h.verifier.Sign(domain.User{ID: 1, Username: "alice"}, time.Now(), time.Hour)
	require.NoError(t, err)

	_, resp, err := websocket.DefaultDialer.Dial(h.wsURL(999, token), nil)
	require.True(t, errors.Is(err, websocket.ErrBadHandshake))
	require.Equal(t, 404, resp.StatusCode)
}

// Две вкладки одного пользователя: join рассылается на первой, leave — после
// закрытия последней.
func TestHandleWS_SecondTabIsSilent(t *testing.T) {
	h := newHarness(t)
	room := h.newRoom(t, "general", 1)

	alice := domain.User{ID: 1, Username: "alice"}
	bob := domain.User{ID: 2, Username: "bob"}

	observer := h.dial(t, room.ID, bob)

	tab1 := h.dial(t, room.ID, alice)
	evt := readEvent(t, observer)
	require.Equal(t, bus.TypeUserJoin, evt.Type)
	require.Equal(t, "alice", evt.Username)

	// вторая вкладка: join не дублируется — следующее событие у наблюдателя
	// это маркерное сообщение самой вкладки
	tab2 := h.dial(t, room.ID, alice)
	sendChat(t, tab2, "marker-1")
	evt = readEvent(t, observer)
	require.Equal(t, bus.TypeChatMessage, evt.Type)
	require.Equal(t, "marker-1", evt.Message)

	// закрытие первой вкладки не снимает присутствие
	require.NoError(t, tab1.Close())
	sendChat(t, tab2, "marker-2")
	evt = readEvent(t, observer)
	require.Equal(t, bus.TypeChatMessage, evt.Type)
	require.Equal(t, "marker-2", evt.Message)

	require.NoError(t, tab2.Close())
	evt = readEvent(t, observer)
	require.Equal(t, bus.TypeUserLeave, evt.Type)
	require.Equal(t, "alice", evt.Username)

	require.Eventually(t, func() bool {
		present, err := h.presence.IsPresent(context.Background(), room.ID, alice.ID)
		return err == nil && !present
	}, 2*time.Second, 10*time.Millisecond)
}

// Два подписчика получают одно и то же сообщение в одном порядке.
func TestHandleWS_BroadcastToAllSubscribers(t *testing.T) {
	h := newHarness(t)
	room := h.newRoom(t, "general", 1)

	sender := h.dial(t, room.ID, domain.User{ID: 1, Username: "bob"})
	sub1 := h.dial(t, room.ID, domain.User{ID: 2, Username: "carol"})
	sub2 := h.dial(t, room.ID, domain.User{ID: 3, Username: "dave"})

	sendChat(t, sender, "hi")
	sendChat(t, sender, "there")

	for _, conn := range []*websocket.Conn{sub1, sub2} {
		chats := readChats(t, conn, 2)
		require.Equal(t, "bob", chats[0].Sender)
		require.Equal(t, "hi", chats[0].Message)
		require.Equal(t, "there", chats[1].Message)
	}
}

// Удаление комнаты: каждый подписчик закрывается кодом 4000,
// присутствие в комнате не остаётся.
func TestHandleWS_RoomDeletedEvictsEveryone(t *testing.T) {
	h := newHarness(t)
	room := h.newRoom(t, "doomed", 1)

	conns := []*websocket.Conn{
		h.dial(t, room.ID, domain.User{ID: 1, Username: "alice"}),
		h.dial(t, room.ID, domain.User{ID: 2, Username: "bob"}),
		h.dial(t, room.ID, domain.User{ID: 3, Username: "carol"}),
	}

	require.NoError(t, h.rooms.DeleteRoom(context.Background(), room.ID, 1))

	for _, conn := range conns {
		closeErr := readUntilClose(t, conn)
		require.Equal(t, ws.CloseRoomDeleted, closeErr.Code)
	}

	require.Eventually(t, func() bool {
		users, err := h.presence.ListOnline(context.Background(), room.ID)
		return err == nil && len(users) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

// Незнакомый тип сообщения не закрывает соединение и не трогает состояние.
func TestHandleWS_UnknownTypeIsNonFatal(t *testing.T) {
	h := newHarness(t)
	room := h.newRoom(t, "general", 1)
	alice := domain.User{ID: 1, Username: "alice"}

	conn := h.dial(t, room.ID, alice)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "chat.typing", "x": 1}))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))

	// соединение живо: своё же сообщение возвращается через группу
	sendChat(t, conn, "still here")
	evt := readEvent(t, conn)
	require.Equal(t, bus.TypeChatMessage, evt.Type)
	require.Equal(t, "still here", evt.Message)

	present, err := h.presence.IsPresent(context.Background(), room.ID, alice.ID)
	require.NoError(t, err)
	require.True(t, present)
}
