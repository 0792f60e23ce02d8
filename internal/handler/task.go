package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukerupert/sweepy/internal/auth"
	"github.com/dukerupert/sweepy/internal/chore"
	"github.com/dukerupert/sweepy/internal/model"
	"github.com/dukerupert/sweepy/internal/recurrence"
	"github.com/dukerupert/sweepy/internal/websocket"
)

type TaskHandler struct {
	svc    *chore.Service
	hub    *websocket.Hub
	logger *slog.Logger
}

func NewTaskHandler(svc *chore.Service, hub *websocket.Hub, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{svc: svc, hub: hub, logger: logger}
}

func (h *TaskHandler) broadcast(householdID string, msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(householdID, msg)
	}
}

type repeatRequest struct {
	Enabled  bool      `json:"enabled"`
	Interval flexInt   `json:"interval"`
	NextDate *flexTime `json:"nextDate"`
}

func (r *repeatRequest) toModel() *model.Repeat {
	if r == nil {
		return nil
	}
	repeat := &model.Repeat{Enabled: r.Enabled, Interval: int(r.Interval)}
	if r.NextDate != nil {
		repeat.NextDate = r.NextDate.Time
	}
	return repeat
}

type taskRequest struct {
	Title      string         `json:"title"`
	Difficulty flexInt        `json:"difficulty"`
	AssignedTo *string        `json:"assignedTo"`
	Completed  bool           `json:"completed"`
	DueDate    *flexTime      `json:"dueDate"`
	Repeat     *repeatRequest `json:"repeat"`
	HasParent  *string        `json:"hasParent"`
}

type taskPatchRequest struct {
	Title      *string          `json:"title"`
	Difficulty *flexInt         `json:"difficulty"`
	AssignedTo nullable[string] `json:"assignedTo"`
	Completed  *bool            `json:"completed"`
	DueDate    *flexTime        `json:"dueDate"`
	Repeat     *repeatRequest   `json:"repeat"`
	HasParent  nullable[string] `json:"hasParent"`
}

// List returns the household's tasks with their status. endDate includes the
// whole of its day.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	var from, to *time.Time
	if s := r.URL.Query().Get("startDate"); s != "" {
		t, err := parseTime(s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid startDate"})
			return
		}
		from = &t
	}
	if s := r.URL.Query().Get("endDate"); s != "" {
		t, err := parseTime(s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid endDate"})
			return
		}
		t = recurrence.EndOfDay(t)
		to = &t
	}

	tasks, err := h.svc.ListTasks(r.Context(), auth.HouseholdID(r.Context()), from, to)
	if err != nil {
		writeError(w, h.logger, "list tasks", err)
		return
	}
	writeJSON(w, http.StatusOK, chore.WithStatus(tasks, h.svc.Now()))
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req taskRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	in := chore.NewTask{
		Title:      req.Title,
		Difficulty: int(req.Difficulty),
		AssignedTo: emptyToNil(req.AssignedTo),
		Completed:  req.Completed,
		Repeat:     req.Repeat.toModel(),
		HasParent:  emptyToNil(req.HasParent),
	}
	if req.DueDate != nil {
		in.DueDate = &req.DueDate.Time
	}

	hid := auth.HouseholdID(r.Context())
	task, err := h.svc.CreateTask(r.Context(), hid, in)
	if err != nil {
		writeError(w, h.logger, "create task", err)
		return
	}

	h.broadcast(hid, websocket.NewMessage("task", "created", task.ID, nil))
	writeJSON(w, http.StatusCreated, task)
}

func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req taskPatchRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	patch := chore.TaskPatch{
		Title:     req.Title,
		Completed: req.Completed,
		Repeat:    req.Repeat.toModel(),
	}
	if req.Difficulty != nil {
		d := int(*req.Difficulty)
		patch.Difficulty = &d
	}
	if req.AssignedTo.Set {
		if req.AssignedTo.Null || req.AssignedTo.Value == "" {
			patch.Unassign = true
		} else {
			patch.AssignedTo = &req.AssignedTo.Value
		}
	}
	if req.DueDate != nil {
		patch.DueDate = &req.DueDate.Time
	}
	if req.HasParent.Set && !req.HasParent.Null && req.HasParent.Value != "" {
		patch.HasParent = &req.HasParent.Value
	}

	hid := auth.HouseholdID(r.Context())
	task, err := h.svc.UpdateTask(r.Context(), hid, r.PathValue("id"), patch)
	if err != nil {
		writeError(w, h.logger, "update task", err)
		return
	}

	h.broadcast(hid, websocket.NewMessage("task", "updated", task.ID, nil))
	writeJSON(w, http.StatusOK, task)
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	cascade := r.URL.Query().Get("cascade") == "true"

	hid := auth.HouseholdID(r.Context())
	removed, err := h.svc.DeleteTask(r.Context(), hid, id, cascade)
	if err != nil {
		writeError(w, h.logger, "delete task", err)
		return
	}

	h.broadcast(hid, websocket.NewMessage("task", "deleted", id, map[string]any{
		"removed": removed,
		"cascade": cascade,
	}))
	w.WriteHeader(http.StatusNoContent)
}

// Complete completes or reopens a task and reports the points applied.
func (h *TaskHandler) Complete(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Completed *bool `json:"completed"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Completed == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "completed is required"})
		return
	}

	hid := auth.HouseholdID(r.Context())
	res, err := h.svc.SetCompletion(r.Context(), hid, r.PathValue("id"), *req.Completed)
	if err != nil {
		writeError(w, h.logger, "update completion", err)
		return
	}

	if res.Changed {
		action := "reopened"
		if res.Task.Completed {
			action = "completed"
		}
		extra := map[string]any{"pointsDelta": res.PointsDelta}
		if res.Member != nil {
			extra["memberId"] = res.Member.ID
			extra["points"] = res.Member.Points
		}
		if res.Successor != nil {
			extra["successorId"] = res.Successor.ID
		}
		h.broadcast(hid, websocket.NewMessage("task", action, res.Task.ID, extra))
	}
	writeJSON(w, http.StatusOK, res)
}

// GenerateFuture expands a recurring task up to the current horizon and
// returns the instances created.
func (h *TaskHandler) GenerateFuture(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TaskID string `json:"taskId"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.TaskID) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "taskId is required"})
		return
	}

	hid := auth.HouseholdID(r.Context())
	created, err := h.svc.GenerateFuture(r.Context(), hid, req.TaskID)
	if err != nil {
		writeError(w, h.logger, "generate future tasks", err)
		return
	}
	if created == nil {
		created = []model.Task{}
	}

	if len(created) > 0 {
		h.broadcast(hid, websocket.NewMessage("task", "generated", req.TaskID, map[string]any{"count": len(created)}))
	}
	writeJSON(w, http.StatusCreated, created)
}

// Distribute assigns every open, unassigned task.
func (h *TaskHandler) Distribute(w http.ResponseWriter, r *http.Request) {
	hid := auth.HouseholdID(r.Context())
	tasks, err := h.svc.DistributeUnassigned(r.Context(), hid)
	if err != nil {
		writeError(w, h.logger, "distribute tasks", err)
		return
	}
	if tasks == nil {
		tasks = []model.Task{}
	}

	if len(tasks) > 0 {
		h.broadcast(hid, websocket.NewMessage("task", "distributed", "", map[string]any{"count": len(tasks)}))
	}
	writeJSON(w, http.StatusOK, tasks)
}

func emptyToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return s
}
