package postgres

import (
	"context"
	"errors"

	"github.com/cwrk-planet/presence-service/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RoomRepository struct {
	db *pgxpool.Pool
}

func NewRoomRepository(db *pgxpool.Pool) *RoomRepository {
	return &RoomRepository{db: db}
}

func (r *RoomRepository) Create(ctx context.Context, room *domain.Room) error {
	query := `
		INSERT INTO rooms (name, owner_id)
		VALUES ($1, $2)
		RETURNING id, created_at`

	return r.db.QueryRow(ctx, query, room.Name, room.OwnerID).
		Scan(&room.ID, &room.CreatedAt)
}

func (r *RoomRepository) Get(ctx context.Context, id int64) (*domain.Room, error) {
	var rm domain.Room
	query := `SELECT id, name, owner_id, created_at FROM rooms WHERE id=$1`
	err := r.db.QueryRow(ctx, query, id).
		Scan(&rm.ID, &rm.Name, &rm.OwnerID, &rm.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRoomNotFound
		}
		return nil, err
	}

	return &rm, nil
}

func (r *RoomRepository) List(ctx context.Context, limit int, cursorStr string) ([]domain.Room, string, error) {
	cur, err := DecodeCursor(cursorStr)
	if err != nil {
		return nil, "", err
	}

	query := `
		SELECT id, name, owner_id, created_at
		FROM rooms
		WHERE ($1::timestamptz IS NULL OR created_at < $1
		       OR (created_at = $1 AND id < $2))
		ORDER BY created_at DESC, id DESC
		LIMIT $3`

	var createdAt any
	var id any
	if cur != nil {
		createdAt = cur.CreatedAt
		id = cur.ID
	}

	rows, err := r.db.Query(ctx, query, createdAt, id, limit)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()

	var rooms []domain.Room
	for rows.Next() {
		var rm domain.Room
		if err := rows.Scan(&rm.ID, &rm.Name, &rm.OwnerID, &rm.CreatedAt); err != nil {
			return nil, "", err
		}
		rooms = append(rooms, rm)
	}

	var nextCursor string
	if len(rooms) == limit {
		last := rooms[len(rooms)-1]
		nextCursor, _ = EncodeCursor(Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}

	return rooms, nextCursor, rows.Err()
}

// Delete возвращает true, если комната действительно существовала.
func (r *RoomRepository) Delete(ctx context.Context, id int64) (bool, error) {
	cmd, err := r.db.Exec(ctx, `DELETE FROM rooms WHERE id=$1`, id)
	if err != nil {
		return false, err
	}

	return cmd.RowsAffected() > 0, nil
}
