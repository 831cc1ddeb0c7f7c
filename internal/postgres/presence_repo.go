package postgres

import (
	"context"
	"errors"
	"slices"

	"github.com/cwrk-planet/presence-service/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PresenceRepository хранит Membership в таблице room_presence:
//
//	room_presence(room_id bigint, user_id bigint, username text,
//	              channels text[] not null, primary key (room_id, user_id))
//
// Закоммиченная строка всегда имеет непустой channels: последний Leave
// удаляет строку целиком.
type PresenceRepository struct {
	db *pgxpool.Pool
}

func NewPresenceRepository(db *pgxpool.Pool) *PresenceRepository {
	return &PresenceRepository{db: db}
}

// Join — защищён от гонок по ключу (room_id, user_id): upsert пустой строки,
// затем FOR UPDATE. Два параллельных Join одного пользователя сериализуются
// на блокировке строки, «новым присутствием» окажется ровно один.
func (r *PresenceRepository) Join(ctx context.Context, roomID int64, user domain.User, channelID string) (bool, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		INSERT INTO room_presence (room_id, user_id, username, channels)
		VALUES ($1, $2, $3, '{}')
		ON CONFLICT (room_id, user_id) DO NOTHING
	`, roomID, user.ID, user.Username); err != nil {
		return false, err
	}

	var channels []string
	if err := tx.QueryRow(ctx, `
		SELECT channels FROM room_presence
		WHERE room_id=$1 AND user_id=$2
		FOR UPDATE
	`, roomID, user.ID).Scan(&channels); err != nil {
		return false, err
	}

	isNew := len(channels) == 0
	if !slices.Contains(channels, channelID) {
		if _, err := tx.Exec(ctx, `
			UPDATE room_presence SET channels = array_append(channels, $3)
			WHERE room_id=$1 AND user_id=$2
		`, roomID, user.ID, channelID); err != nil {
			return false, err
		}
	}

	return isNew, tx.Commit(ctx)
}

// Leave идемпотентен: отсутствие записи значит «уже полностью вышел» (true).
// Снятие последнего канала удаляет запись и тоже возвращает true.
func (r *PresenceRepository) Leave(ctx context.Context, roomID int64, user domain.User, channelID string) (bool, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	var channels []string
	err = tx.QueryRow(ctx, `
		SELECT channels FROM room_presence
		WHERE room_id=$1 AND user_id=$2
		FOR UPDATE
	`, roomID, user.ID).Scan(&channels)
	if errors.Is(err, pgx.ErrNoRows) {
		return true, tx.Commit(ctx)
	}
	if err != nil {
		return false, err
	}

	channels = slices.DeleteFunc(channels, func(c string) bool { return c == channelID })

	if len(channels) == 0 {
		if _, err := tx.Exec(ctx,
			`DELETE FROM room_presence WHERE room_id=$1 AND user_id=$2`,
			roomID, user.ID); err != nil {
			return false, err
		}
		return true, tx.Commit(ctx)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE room_presence SET channels=$3
		WHERE room_id=$1 AND user_id=$2
	`, roomID, user.ID, channels); err != nil {
		return false, err
	}

	return false, tx.Commit(ctx)
}

func (r *PresenceRepository) ListOnline(ctx context.Context, roomID int64) ([]domain.User, error) {
	rows, err := r.db.Query(ctx,
		`SELECT user_id, username FROM room_presence WHERE room_id=$1 ORDER BY username`,
		roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Username); err != nil {
			return nil, err
		}
		users = append(users, u)
	}

	return users, rows.Err()
}

func (r *PresenceRepository) IsPresent(ctx context.Context, roomID, userID int64) (bool, error) {
	var present bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM room_presence WHERE room_id=$1 AND user_id=$2)`,
		roomID, userID).Scan(&present)

	return present, err
}

// DeleteByRoom подчищает присутствие после удаления комнаты.
func (r *PresenceRepository) DeleteByRoom(ctx context.Context, roomID int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM room_presence WHERE room_id=$1`, roomID)
	return err
}
