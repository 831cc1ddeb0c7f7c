package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/cwrk-planet/presence-service/internal/bus"
	"github.com/cwrk-planet/presence-service/internal/domain"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type PresenceSvc interface {
	Join(ctx context.Context, roomID int64, user domain.User, channelID string) (bool, error)
	Leave(ctx context.Context, roomID int64, user domain.User, channelID string) (bool, error)
}

type RoomSvc interface {
	GetRoom(ctx context.Context, id int64) (*domain.Room, error)
}

type TokenVerifier interface {
	Verify(token string) (domain.User, error)
}

type Server struct {
	upgrader websocket.Upgrader
	bus      bus.Bus
	presence PresenceSvc
	rooms    RoomSvc
	auth     TokenVerifier

	pingEvery time.Duration
}

func NewServer(b bus.Bus, presence PresenceSvc, rooms RoomSvc, auth TokenVerifier) *Server {
	return &Server{
		bus:      b,
		presence: presence,
		rooms:    rooms,
		auth:     auth,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		pingEvery: 15 * time.Second,
	}
}

// WS endpoint: GET /ws/rooms/{id}?access_token=...
//
// Допуск: токен -> комната -> регистрация присутствия -> подписка на группу.
// Отказ (плохой токен, нет комнаты) отдаётся HTTP-статусом до апгрейда.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	user, err := s.auth.Verify(r.URL.Query().Get("access_token"))
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	roomID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}
	room, err := s.rooms.GetRoom(r.Context(), roomID)
	if err != nil {
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("ws upgrade failed", "room", roomID, "user", user.ID, "err", err)
		return
	}

	c := newWsConn(conn, uuid.NewString(), user, room)

	// r.Context() гаснет вместе с соединением, а очистка обязана дойти
	// до хранилища и при обрыве транспорта
	ctx := context.WithoutCancel(r.Context())

	isNew, err := s.presence.Join(ctx, roomID, user, c.channelID)
	if err != nil {
		// потерять присутствие хуже, чем потерять соединение
		slog.Error("ws presence join failed", "room", roomID, "user", user.ID, "err", err)
		_ = c.Close()
		return
	}

	// публикация до собственной подписки: своё же user.join клиент не получает
	if isNew {
		s.publish(ctx, c, bus.Event{Type: bus.TypeUserJoin, Username: user.Username})
	}
	s.bus.Subscribe(c.group, c)

	go c.writeLoop(s.pingEvery)
	s.readLoop(ctx, c)

	s.teardown(ctx, c)
}

func (s *Server) readLoop(ctx context.Context, c *wsConn) {
	c.conn.SetReadLimit(1 << 20)
	_ = c.conn.SetReadDeadline(time.Now().Add(2 * s.pingEvery))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(2 * s.pingEvery))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var msg Inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Debug("ws malformed message", "room", c.room.ID, "user", c.user.ID, "err", err)
			continue
		}

		switch msg.Type {
		case bus.TypeChatMessage:
			// содержимое не валидируем: произвольная строка уходит как есть
			s.publish(ctx, c, bus.Event{
				Type:    bus.TypeChatMessage,
				Sender:  c.user.Username,
				Message: msg.Message,
			})
		default:
			// незнакомый тип не рвёт сессию
			slog.Debug("ws unknown message type", "room", c.room.ID, "user", c.user.ID, "type", msg.Type)
		}
	}
}

// teardown — единственное место снятия присутствия; выполняется при любом
// завершении соединения, штатном или нет.
func (s *Server) teardown(ctx context.Context, c *wsConn) {
	s.bus.UnsubscribeAll(c)

	isLast, err := s.presence.Leave(ctx, c.room.ID, c.user, c.channelID)
	if err != nil {
		slog.Error("ws presence leave failed", "room", c.room.ID, "user", c.user.ID, "err", err)
	} else if isLast {
		s.publish(ctx, c, bus.Event{Type: bus.TypeUserLeave, Username: c.user.Username})
	}

	_ = c.Close()
}

func (s *Server) publish(ctx context.Context, c *wsConn, evt bus.Event) {
	if err := s.bus.Publish(ctx, c.group, evt); err != nil {
		slog.Error("ws publish failed", "group", c.group, "type", evt.Type, "err", err)
	}
}
