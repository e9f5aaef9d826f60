package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/atomic"

	"otm.relay/internal/metrics"
	"otm.relay/internal/store"
)

type Handler struct {
	store   store.Store
	metrics *metrics.Recorder
	log     *slog.Logger
	ready   atomic.Bool
}

func NewHandler(s store.Store, m *metrics.Recorder, log *slog.Logger) *Handler {
	h := &Handler{
		store:   s,
		metrics: m,
		log:     log,
	}
	h.ready.Store(true)
	return h
}

type CreateRequest struct {
	EncryptedData string `json:"encryptedData"`
	// ExpiresAt is an ISO 8601 timestamp; null or absent means no expiry.
	ExpiresAt *string `json:"expiresAt"`
}

// expiresAtLayouts are the ISO 8601 forms accepted for expiresAt. Values
// without a zone are read as UTC.
var expiresAtLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

func parseExpiresAt(v string) (time.Time, error) {
	var err error
	for _, layout := range expiresAtLayouts {
		var t time.Time
		if t, err = time.Parse(layout, v); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, err
}

type CreateResponse struct {
	ID string `json:"id"`
}

type MessageResponse struct {
	EncryptedData string     `json:"encryptedData"`
	ExpiresAt     *time.Time `json:"expiresAt"`
	CreatedAt     time.Time  `json:"createdAt"`
}

type DeleteResponse struct {
	OK bool `json:"ok"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type StatusResponse struct {
	Status string `json:"status"`
}

func (h *Handler) CreateMessage(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.error(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		h.error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.EncryptedData == "" {
		h.error(w, http.StatusBadRequest, "encryptedData is required")
		return
	}

	var expiresAt *time.Time
	if req.ExpiresAt != nil {
		t, err := parseExpiresAt(*req.ExpiresAt)
		if err != nil {
			h.error(w, http.StatusBadRequest, "expiresAt must be a valid date")
			return
		}
		expiresAt = &t
	}

	id, err := h.store.Create(r.Context(), req.EncryptedData, expiresAt)
	if err != nil {
		if errors.Is(err, store.ErrInvalidMessage) {
			h.error(w, http.StatusBadRequest, "encryptedData is required")
			return
		}
		h.internalError(w, r, "create message", err, "Database error")
		return
	}

	h.metrics.Created()
	h.json(w, http.StatusCreated, CreateResponse{ID: id})
}

func (h *Handler) GetMessage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	msg, err := h.store.Fetch(r.Context(), id)
	switch {
	case err == nil:
	case errors.Is(err, store.ErrNotFound):
		h.metrics.Fetched(metrics.OutcomeNotFound)
		h.error(w, http.StatusNotFound, "Message not found or destroyed.")
		return
	case errors.Is(err, store.ErrExpired):
		h.metrics.Fetched(metrics.OutcomeExpired)
		h.error(w, http.StatusGone, "Message expired.")
		return
	default:
		h.metrics.Fetched(metrics.OutcomeError)
		h.internalError(w, r, "fetch message", err, "Server error")
		return
	}

	h.metrics.Fetched(metrics.OutcomeOK)
	h.json(w, http.StatusOK, MessageResponse{
		EncryptedData: msg.EncryptedData,
		ExpiresAt:     msg.ExpiresAt,
		CreatedAt:     msg.CreatedAt,
	})
}

func (h *Handler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	err := h.store.Delete(r.Context(), id)
	switch {
	case err == nil:
	case errors.Is(err, store.ErrNotFound):
		h.metrics.Deleted(metrics.OutcomeAlreadyGone)
		h.error(w, http.StatusNotFound, "Message already gone.")
		return
	default:
		h.metrics.Deleted(metrics.OutcomeError)
		h.internalError(w, r, "delete message", err, "Delete error")
		return
	}

	h.metrics.Deleted(metrics.OutcomeOK)
	h.json(w, http.StatusOK, DeleteResponse{OK: true})
}

// Health reports whether the store answers.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		h.log.Warn("store ping failed", "err", err)
		h.json(w, http.StatusServiceUnavailable, StatusResponse{Status: "unavailable"})
		return
	}
	h.json(w, http.StatusOK, StatusResponse{Status: "ok"})
}

func (h *Handler) Livez(w http.ResponseWriter, r *http.Request) {
	h.json(w, http.StatusOK, StatusResponse{Status: "alive"})
}

func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	if !h.ready.Load() {
		h.json(w, http.StatusServiceUnavailable, StatusResponse{Status: "not ready"})
		return
	}
	h.json(w, http.StatusOK, StatusResponse{Status: "ready"})
}

// SetReady flips readiness and returns the previous value.
func (h *Handler) SetReady(ready bool) bool {
	return h.ready.Swap(ready)
}

func (h *Handler) json(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Debug("writing response failed", "err", err)
	}
}

func (h *Handler) error(w http.ResponseWriter, status int, message string) {
	h.json(w, status, ErrorResponse{Error: message})
}

// internalError logs the cause and answers 500 with a generic body.
func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, op string, err error, message string) {
	h.log.Error(op+" failed",
		"err", err,
		"requestID", middleware.GetReqID(r.Context()),
		"id", chi.URLParam(r, "id"),
	)
	h.error(w, http.StatusInternalServerError, message)
}
