package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/sweepy/internal/auth"
	"github.com/dukerupert/sweepy/internal/chore"
	"github.com/dukerupert/sweepy/internal/model"
	"github.com/dukerupert/sweepy/internal/store"
	"github.com/dukerupert/sweepy/internal/websocket"
)

type MemberHandler struct {
	svc     *chore.Service
	members *store.MemberStore
	hub     *websocket.Hub
	logger  *slog.Logger
}

func NewMemberHandler(svc *chore.Service, ms *store.MemberStore, hub *websocket.Hub, logger *slog.Logger) *MemberHandler {
	return &MemberHandler{svc: svc, members: ms, hub: hub, logger: logger}
}

func (h *MemberHandler) broadcast(householdID string, msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(householdID, msg)
	}
}

func (h *MemberHandler) List(w http.ResponseWriter, r *http.Request) {
	members, err := h.members.ListMembers(r.Context(), auth.HouseholdID(r.Context()))
	if err != nil {
		writeError(w, h.logger, "list members", err)
		return
	}
	if members == nil {
		members = []model.Member{}
	}
	writeJSON(w, http.StatusOK, members)
}

func (h *MemberHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	members, err := h.members.Leaderboard(r.Context(), auth.HouseholdID(r.Context()))
	if err != nil {
		writeError(w, h.logger, "load leaderboard", err)
		return
	}
	if members == nil {
		members = []model.Member{}
	}
	writeJSON(w, http.StatusOK, members)
}

func (h *MemberHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	hid := auth.HouseholdID(r.Context())
	member, err := h.svc.CreateMember(r.Context(), hid, req.Name)
	if err != nil {
		writeError(w, h.logger, "create member", err)
		return
	}

	h.broadcast(hid, websocket.NewMessage("member", "created", member.ID, nil))
	writeJSON(w, http.StatusCreated, member)
}

func (h *MemberHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	hid := auth.HouseholdID(r.Context())
	if err := h.svc.DeleteMember(r.Context(), hid, id); err != nil {
		writeError(w, h.logger, "delete member", err)
		return
	}

	h.broadcast(hid, websocket.NewMessage("member", "deleted", id, nil))
	w.WriteHeader(http.StatusNoContent)
}

// UpdateSortOrder sets the order members are listed in, which is also the
// allocator's tie-break order.
func (h *MemberHandler) UpdateSortOrder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs []string `json:"ids"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.IDs) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "ids is required"})
		return
	}

	hid := auth.HouseholdID(r.Context())
	if err := h.members.UpdateSortOrder(r.Context(), hid, req.IDs); err != nil {
		writeError(w, h.logger, "update sort order", err)
		return
	}

	h.broadcast(hid, websocket.NewMessage("member", "sorted", "", nil))
	w.WriteHeader(http.StatusNoContent)
}
