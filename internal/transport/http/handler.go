package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/cwrk-planet/presence-service/internal/domain"
	"github.com/cwrk-planet/presence-service/internal/postgres"
	"github.com/cwrk-planet/presence-service/internal/service"
	httpmw "github.com/cwrk-planet/presence-service/internal/transport/http/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"
)

type Handler struct {
	roomSvc     *service.RoomService
	presenceSvc *service.PresenceService
}

func NewHandler(room *service.RoomService, presence *service.PresenceService) *Handler {
	return &Handler{
		roomSvc:     room,
		presenceSvc: presence,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func roomIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func toRoomItem(rm domain.Room) RoomItem {
	return RoomItem{
		ID:        rm.ID,
		Name:      rm.Name,
		OwnerID:   rm.OwnerID,
		CreatedAt: rm.CreatedAt,
	}
}

// POST /rooms
func (h *Handler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	user, ok := httpmw.UserFromCtx(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "missing user"})
		return
	}

	var req CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid json"})
		return
	}

	room, err := h.roomSvc.CreateRoom(r.Context(), req.Name, user.ID)
	if err != nil {
		slog.Error("handler.CreateRoom:", slog.Any("err", err))
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusCreated, toRoomItem(*room))
}

// GET /rooms?limit=&cursor=
func (h *Handler) ListRooms(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			limit = n
		}
	}

	rooms, next, err := h.roomSvc.ListRooms(r.Context(), limit, r.URL.Query().Get("cursor"))
	if err != nil {
		if errors.Is(err, postgres.ErrInvalidCursor) {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid_cursor"})
			return
		}
		slog.Error("handler.ListRooms:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, RoomsListResponse{
		Items:      lo.Map(rooms, func(rm domain.Room, _ int) RoomItem { return toRoomItem(rm) }),
		NextCursor: next,
	})
}

// GET /rooms/{id}
func (h *Handler) GetRoom(w http.ResponseWriter, r *http.Request) {
	id, err := roomIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "room not found"})
		return
	}

	room, err := h.roomSvc.GetRoom(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrRoomNotFound) {
			writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "room not found"})
			return
		}
		slog.Error("handler.GetRoom:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, toRoomItem(*room))
}

// DELETE /rooms/{id} — только владелец; рассылает событие удаления в группу.
func (h *Handler) DeleteRoom(w http.ResponseWriter, r *http.Request) {
	user, ok := httpmw.UserFromCtx(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "missing user"})
		return
	}
	id, err := roomIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "room not found"})
		return
	}

	switch err := h.roomSvc.DeleteRoom(r.Context(), id, user.ID); {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	case errors.Is(err, domain.ErrRoomNotFound):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "room not found"})
	case errors.Is(err, domain.ErrNotOwner):
		writeJSON(w, http.StatusForbidden, ErrorResponse{Error: "not the room owner"})
	default:
		slog.Error("handler.DeleteRoom:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
	}
}

// GET /rooms/{id}/online — список ников присутствующих; доступен только
// тем, кто сам сейчас в комнате.
func (h *Handler) OnlineUsers(w http.ResponseWriter, r *http.Request) {
	user, ok := httpmw.UserFromCtx(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "missing user"})
		return
	}
	id, err := roomIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "room not found"})
		return
	}

	if _, err := h.roomSvc.GetRoom(r.Context(), id); err != nil {
		if errors.Is(err, domain.ErrRoomNotFound) {
			writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "room not found"})
			return
		}
		slog.Error("handler.OnlineUsers:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	present, err := h.presenceSvc.IsPresent(r.Context(), id, user.ID)
	if err != nil {
		slog.Error("handler.OnlineUsers:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	if !present {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "not joined"})
		return
	}

	users, err := h.presenceSvc.ListOnline(r.Context(), id)
	if err != nil {
		slog.Error("handler.OnlineUsers:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, OnlineUsersResponse{
		UsernameList: lo.Map(users, func(u domain.User, _ int) string { return u.Username }),
	})
}
