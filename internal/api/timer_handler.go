package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tickstream/tickstream/internal/models"
	"github.com/tickstream/tickstream/internal/repositories"
	"github.com/tickstream/tickstream/internal/services"
)

type timerAction string

const (
	actionStart  timerAction = "start"
	actionStop   timerAction = "stop"
	actionCancel timerAction = "cancel"
)

type timerRequest struct {
	Action     timerAction       `json:"action"`
	CategoryID string            `json:"categoryId"`
	DeviceInfo models.DeviceInfo `json:"deviceInfo"`
	Notes      *string           `json:"notes,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type apiResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *apiError   `json:"error,omitempty"`
}

// TimerHandler exposes the active-timer registry over HTTP. Mutations
// are action-dispatched on a single POST endpoint.
type TimerHandler struct {
	registry *services.TimerRegistry
}

func NewTimerHandler(registry *services.TimerRegistry) *TimerHandler {
	return &TimerHandler{registry: registry}
}

func (h *TimerHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.handleGet)
	r.Post("/", h.handlePost)
	r.Delete("/", h.handleDelete)
	return r
}

func (h *TimerHandler) handlePost(w http.ResponseWriter, r *http.Request) {
	var req timerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "malformed request body")
		return
	}
	if req.CategoryID == "" {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "categoryId is required")
		return
	}

	claims := ClaimsFromContext(r.Context())

	switch req.Action {
	case actionStart:
		record, err := h.registry.Start(r.Context(), req.CategoryID, claims.UserID, req.DeviceInfo, req.Notes)
		if err != nil {
			var conflict *services.ConflictError
			if errors.As(err, &conflict) {
				writeError(w, http.StatusConflict, "CONFLICT", conflict.Error())
				return
			}
			h.writeInternal(w, err)
			return
		}
		writeData(w, http.StatusOK, record)

	case actionStop:
		entry, err := h.registry.Stop(r.Context(), req.CategoryID, req.DeviceInfo, req.Notes)
		if err != nil {
			h.writeInternal(w, err)
			return
		}
		if entry == nil {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "no active timer for category")
			return
		}
		writeData(w, http.StatusOK, entry)

	case actionCancel:
		cancelled, err := h.registry.Cancel(r.Context(), req.CategoryID)
		if err != nil {
			h.writeInternal(w, err)
			return
		}
		if !cancelled {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "no active timer for category")
			return
		}
		writeData(w, http.StatusOK, map[string]bool{"cancelled": true})

	default:
		writeError(w, http.StatusBadRequest, "INVALID_ACTION", "action must be start, stop or cancel")
	}
}

func (h *TimerHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	categoryID := r.URL.Query().Get("categoryId")

	if categoryID != "" {
		record, err := h.registry.GetActive(r.Context(), categoryID)
		if err != nil {
			h.writeInternal(w, err)
			return
		}
		if record == nil {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "no active timer for category")
			return
		}
		writeData(w, http.StatusOK, record)
		return
	}

	timers, err := h.registry.ListActive(r.Context())
	if err != nil {
		h.writeInternal(w, err)
		return
	}
	if timers == nil {
		timers = []*models.ActiveTimerRecord{}
	}
	writeData(w, http.StatusOK, timers)
}

func (h *TimerHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	count, err := h.registry.ClearAll(r.Context())
	if err != nil {
		h.writeInternal(w, err)
		return
	}
	writeData(w, http.StatusOK, map[string]int{"deletedCount": count})
}

func (h *TimerHandler) writeInternal(w http.ResponseWriter, err error) {
	if errors.Is(err, repositories.ErrQuotaExceeded) {
		writeError(w, http.StatusTooManyRequests, "QUOTA_EXCEEDED", "store quota exceeded")
		return
	}
	log.Printf("timer endpoint error: %v", err)
	writeError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
}

func writeData(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(apiResponse{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(apiResponse{Success: false, Error: &apiError{Code: code, Message: message}})
}
