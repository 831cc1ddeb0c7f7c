package ws

// Код закрытия при удалении комнаты; отличим от обычного закрытия,
// чтобы клиент мог увести пользователя со страницы комнаты.
const CloseRoomDeleted = 4000

// Inbound — сообщение от клиента. Наружу уходят события bus.Event как есть
// (chat.user.join / chat.user.leave / chat.message).
type Inbound struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
