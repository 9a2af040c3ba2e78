// Package api implements the REST handlers over the task store.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/GoCodeAlone/taskvault/comms"
	"github.com/GoCodeAlone/taskvault/task"
)

// defaultLimit bounds list responses when the caller gives no limit.
const defaultLimit = 100

// Handlers bundles all REST API handler dependencies.
type Handlers struct {
	Tasks   task.Store
	Bus     comms.Bus
	Logger  *slog.Logger
	Version string
	StartAt int64 // unix timestamp of server start
}

// RegisterRoutes registers all API routes on the given mux.
func (h *Handlers) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/tasks", h.listTasks)
	mux.HandleFunc("POST /api/tasks", h.createTask)
	mux.HandleFunc("GET /api/tasks/pending", h.listPending)
	mux.HandleFunc("GET /api/tasks/agent/{id}", h.listByAgent)
	mux.HandleFunc("GET /api/tasks/{id}", h.getTask)
	mux.HandleFunc("PUT /api/tasks/{id}", h.updateTask)
	mux.HandleFunc("DELETE /api/tasks/{id}", h.deleteTask)

	mux.HandleFunc("GET /api/cache/stats", h.cacheStats)
	mux.HandleFunc("POST /api/cache/clear", h.cacheClear)

	mux.HandleFunc("GET /api/version", h.version)
}

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// queryLimit parses the limit query parameter, falling back to defaultLimit.
func queryLimit(r *http.Request) int {
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			return n
		}
	}
	return defaultLimit
}

// publish emits a task lifecycle event if a bus is attached.
func (h *Handlers) publish(r *http.Request, typ comms.EventType, t *task.Task) {
	if h.Bus == nil {
		return
	}
	ev := &comms.Event{Type: typ, TaskID: t.ID}
	if t.AssignedAgentID != nil {
		ev.AgentID = *t.AssignedAgentID
	}
	if err := h.Bus.Publish(r.Context(), ev); err != nil {
		h.Logger.Error("publish task event", slog.String("type", string(typ)), slog.Any("err", err))
	}
}

// --- Task handlers ---

func (h *Handlers) listTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.Tasks.GetAll(r.Context(), queryLimit(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (h *Handlers) listPending(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.Tasks.GetPending(r.Context(), queryLimit(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (h *Handlers) listByAgent(w http.ResponseWriter, r *http.Request) {
	agentID := r.PathValue("id")
	tasks, err := h.Tasks.GetByAgent(r.Context(), agentID, queryLimit(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (h *Handlers) createTask(w http.ResponseWriter, r *http.Request) {
	var t task.Task
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if err := h.Tasks.Add(r.Context(), &t); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.publish(r, comms.TypeTaskCreated, &t)
	writeJSON(w, http.StatusCreated, t)
}

func (h *Handlers) getTask(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	t, err := h.Tasks.Get(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if t == nil {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *Handlers) updateTask(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	existing, err := h.Tasks.Get(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}

	// Decode partial update over existing task
	if err := json.NewDecoder(r.Body).Decode(existing); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	existing.ID = id // ensure ID is not overwritten

	if err := h.Tasks.Update(r.Context(), existing); err != nil {
		if errors.Is(err, task.ErrNotFound) {
			writeError(w, http.StatusNotFound, "task not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.publish(r, comms.TypeTaskUpdated, existing)
	writeJSON(w, http.StatusOK, existing)
}

func (h *Handlers) deleteTask(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.Tasks.Delete(r.Context(), id); err != nil {
		if errors.Is(err, task.ErrNotFound) {
			writeError(w, http.StatusNotFound, "task not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.publish(r, comms.TypeTaskDeleted, &task.Task{ID: id})
	w.WriteHeader(http.StatusNoContent)
}

// --- Cache handlers ---

func (h *Handlers) cacheStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.Tasks.CacheStats())
}

func (h *Handlers) cacheClear(w http.ResponseWriter, _ *http.Request) {
	h.Tasks.ClearCache()
	w.WriteHeader(http.StatusNoContent)
}

// --- Status ---

// Status reports server health, version, and uptime.
func (h *Handlers) Status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": h.Version,
		"uptime":  (time.Duration(time.Now().Unix()-h.StartAt) * time.Second).String(),
	})
}

func (h *Handlers) version(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": h.Version})
}
