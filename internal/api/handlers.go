// Package api exposes HTTP handlers for the enrollment service.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"example.com/extracurricular/internal/cache"
	"example.com/extracurricular/internal/domain"
	"example.com/extracurricular/internal/observability/logger"
)

const (
	idempotencyHeader = "Idempotency-Key"
	replayHeader      = "Idempotent-Replay"
)

// Handler coordinates HTTP requests with the domain service.
type Handler struct {
	service *domain.Service
	cache   cache.ResponseCache
	logger  *zap.Logger
}

// NewHandler builds a Handler. A nil cache disables idempotent replay.
func NewHandler(service *domain.Service, responses cache.ResponseCache, log *zap.Logger) *Handler {
	if responses == nil {
		responses = cache.NoopCache{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{service: service, cache: responses, logger: log}
}

// RegisterRoutes wires endpoints to the router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.MethodNotAllowed(methodNotAllowed)
	r.NotFound(notFound)
	r.Get("/healthz", healthz)
	r.Route("/activities", func(r chi.Router) {
		r.Get("/", h.listActivities)
		r.Post("/{activity_name}/signup", h.signUp)
		r.Delete("/{activity_name}/unregister", h.unregister)
	})
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
}

func notFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "not_found", "Not Found")
}

func (h *Handler) listActivities(w http.ResponseWriter, r *http.Request) {
	activities := h.service.ListActivities(r.Context())
	resp := make(ActivitiesResponse, len(activities))
	for name, activity := range activities {
		resp[name] = toActivityView(activity)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) signUp(w http.ResponseWriter, r *http.Request) {
	replayKey, proceed := h.claim(w, r)
	if !proceed {
		return
	}
	activity := activityName(r)
	email := r.URL.Query().Get("email")

	result, err := h.service.SignUp(r.Context(), activity, email)
	if err != nil {
		h.fail(w, r, replayKey, err)
		return
	}
	h.respond(w, replayKey, http.StatusOK, MessageResponse{
		Message: fmt.Sprintf("Signed up %s for %s", result.Participant, result.Activity),
	})
}

func (h *Handler) unregister(w http.ResponseWriter, r *http.Request) {
	replayKey, proceed := h.claim(w, r)
	if !proceed {
		return
	}
	activity := activityName(r)
	email := r.URL.Query().Get("email")

	result, err := h.service.Unregister(r.Context(), activity, email)
	if err != nil {
		h.fail(w, r, replayKey, err)
		return
	}
	h.respond(w, replayKey, http.StatusOK, MessageResponse{
		Message: fmt.Sprintf("Removed %s from %s", result.Participant, result.Activity),
	})
}

// claim decides whether a mutating request may execute. Requests without an
// idempotency key always proceed with an empty replay key. A repeated key is
// answered from the cache, or with 409 while the first request is still running.
func (h *Handler) claim(w http.ResponseWriter, r *http.Request) (string, bool) {
	idempotencyKey := r.Header.Get(idempotencyHeader)
	if idempotencyKey == "" {
		return "", true
	}
	key := cache.Key(r.Method, r.URL.RequestURI(), idempotencyKey)
	if h.replay(w, r, key) {
		return "", false
	}
	if h.cache.Claim(key) {
		return key, true
	}
	// The claim holder may have finished between the lookup and the claim.
	if h.replay(w, r, key) {
		return "", false
	}
	writeError(w, http.StatusConflict, "idempotency_conflict", "a request with this Idempotency-Key is still in progress")
	return "", false
}

func (h *Handler) replay(w http.ResponseWriter, r *http.Request, key string) bool {
	resp, ok := h.cache.Get(key)
	if !ok {
		return false
	}
	logger.From(r.Context(), h.logger).Debug("idempotent replay", zap.String("idempotency_key", r.Header.Get(idempotencyHeader)))
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set(replayHeader, "true")
	w.WriteHeader(resp.Status)
	_, _ = w.Write(resp.Body)
	return true
}

// respond writes payload and, when replayKey is set, records it for replay.
func (h *Handler) respond(w http.ResponseWriter, replayKey string, status int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		if replayKey != "" {
			h.cache.Release(replayKey)
		}
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	body = append(body, '\n')
	if replayKey != "" {
		h.cache.Put(replayKey, cache.Response{Status: status, Body: body})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// fail writes the error envelope. Errors are not replayed, so the claim is released.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, replayKey string, err error) {
	if replayKey != "" {
		h.cache.Release(replayKey)
	}
	status, code := statusForError(err)
	detail := err.Error()
	if status == http.StatusInternalServerError {
		logger.From(r.Context(), h.logger).Error("request failed", zap.Error(err))
	}
	if errors.Is(err, domain.ErrActivityNotFound) {
		detail = domain.ErrActivityNotFound.Error()
	}
	writeError(w, status, code, detail)
}

// statusForError maps domain errors to HTTP status codes and error types.
func statusForError(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrActivityNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrAlreadySignedUp),
		errors.Is(err, domain.ErrActivityFull),
		errors.Is(err, domain.ErrInvalidParticipant):
		return http.StatusBadRequest, "validation_failed"
	default:
		return http.StatusInternalServerError, "server_error"
	}
}

// activityName returns the decoded activity_name segment. chi routes on RawPath
// when the request carries one, leaving the segment escaped; otherwise the
// segment comes from the already decoded Path and must be used as is.
func activityName(r *http.Request) string {
	raw := chi.URLParam(r, "activity_name")
	if r.URL.RawPath == "" {
		return raw
	}
	if name, err := url.PathUnescape(raw); err == nil {
		return name
	}
	return raw
}

// ActivityView is the public shape of one catalog entry.
type ActivityView struct {
	Description     string   `json:"description"`
	Schedule        string   `json:"schedule"`
	MaxParticipants int      `json:"max_participants"`
	Participants    []string `json:"participants"`
}

// ActivitiesResponse maps activity names to their details.
type ActivitiesResponse map[string]ActivityView

// MessageResponse carries a human readable confirmation.
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is the envelope written for failed requests.
type ErrorResponse struct {
	Type   string `json:"type"`
	Detail string `json:"detail"`
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	writeJSON(w, status, ErrorResponse{Type: code, Detail: detail})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func toActivityView(activity domain.Activity) ActivityView {
	participants := activity.Participants
	if participants == nil {
		participants = []string{}
	}
	return ActivityView{
		Description:     activity.Description,
		Schedule:        activity.Schedule,
		MaxParticipants: activity.MaxParticipants,
		Participants:    participants,
	}
}
