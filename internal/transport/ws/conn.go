package ws

import (
	"sync"
	"time"

	"github.com/cwrk-planet/presence-service/internal/bus"
	"github.com/cwrk-planet/presence-service/internal/domain"

	"github.com/gorilla/websocket"
)

const (
	writeTimeout = 5 * time.Second
	outboxSize   = 64
)

// wsConn — одно живое подключение; channelID — его опознавательный токен
// в PresenceStore и на шине.
type wsConn struct {
	conn      *websocket.Conn
	channelID string
	user      domain.User
	room      *domain.Room
	group     string

	outbox    chan bus.Event
	closed    chan struct{}
	closeOnce sync.Once
}

func newWsConn(c *websocket.Conn, channelID string, user domain.User, room *domain.Room) *wsConn {
	return &wsConn{
		conn:      c,
		channelID: channelID,
		user:      user,
		room:      room,
		group:     room.ChatGroupName(),
		outbox:    make(chan bus.Event, outboxSize),
		closed:    make(chan struct{}),
	}
}

func (c *wsConn) ID() string { return c.channelID }

// Deliver кладёт событие в очередь записи без блокировки: переполненная
// очередь (мёртвый или медленный клиент) — событие теряется.
func (c *wsConn) Deliver(evt bus.Event) bool {
	select {
	case <-c.closed:
		return false
	default:
	}

	select {
	case c.outbox <- evt:
		return true
	default:
		return false
	}
}

// writeLoop — единственный писатель в сокет: события из outbox, пинги,
// закрытие по событию удаления комнаты.
func (c *wsConn) writeLoop(pingEvery time.Duration) {
	ticker := time.NewTicker(pingEvery)
	defer ticker.Stop()

	for {
		select {
		case evt := <-c.outbox:
			if evt.Type == bus.TypeRoomDeleted {
				c.closeWithCode(CloseRoomDeleted)
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteJSON(evt); err != nil {
				_ = c.Close()
				return
			}
		case <-ticker.C:
			_ = c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
		case <-c.closed:
			return
		}
	}
}

func (c *wsConn) closeWithCode(code int) {
	msg := websocket.FormatCloseMessage(code, "")
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeTimeout))
	_ = c.Close()
}

func (c *wsConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return c.conn.Close()
}
