package bus

import "context"

// Типы событий, которые ходят по группам комнат
const (
	TypeUserJoin    = "chat.user.join"    // первый канал пользователя в комнате
	TypeUserLeave   = "chat.user.leave"   // закрыт последний канал пользователя
	TypeChatMessage = "chat.message"      // чат-сообщение
	TypeRoomDeleted = "chat.room.deleted" // комната удалена; подписчики закрываются
)

// Event — плоский формат события; поля заполняются по типу.
// Наружу к клиенту уходит в том же виде (см. transport/ws).
type Event struct {
	Type     string `json:"type"`
	Username string `json:"username,omitempty"`
	Sender   string `json:"sender,omitempty"`
	Message  string `json:"message,omitempty"`
}

// Subscriber — получатель событий группы. Deliver обязан не блокироваться:
// медленный подписчик теряет событие (false), но не тормозит публикацию.
type Subscriber interface {
	ID() string
	Deliver(evt Event) bool
}

// Bus — broadcast-примитив, ключуемый именем группы.
// Subscribe/Unsubscribe идемпотентны; Publish доставляет событие всем,
// кто подписан на момент публикации, at-least-once, FIFO по издателю.
type Bus interface {
	Subscribe(group string, sub Subscriber)
	Unsubscribe(group string, sub Subscriber)
	UnsubscribeAll(sub Subscriber)
	Publish(ctx context.Context, group string, evt Event) error
}
