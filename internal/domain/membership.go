package domain

// Membership — факт присутствия пользователя в комнате.
// Инвариант: запись существует тогда и только тогда, когда Channels непуст;
// пустой набор каналов означает «не присутствует» и не хранится.
type Membership struct {
	RoomID   int64
	UserID   int64
	Username string
	Channels []string // id живых соединений пользователя (вкладки, устройства)
}
