package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/jonny/logtail/internal/adapter/inbound/httpapi/hooks"
	"github.com/jonny/logtail/internal/domain/model"
	"github.com/jonny/logtail/internal/domain/port/inbound"
	"github.com/jonny/logtail/internal/observability/metrics"
	"github.com/jonny/logtail/pkg/apierror"
)

// Handler serves the /v1 API on top of an inbound.TailPort.
type Handler struct {
	tail   inbound.TailPort
	logger *slog.Logger
}

// NewHandler creates a Handler.
func NewHandler(tail inbound.TailPort, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{tail: tail, logger: logger}
}

// Register mounts every route on mux. Each endpoint runs inside the same hook
// chain: errors are rendered as apierror bodies, successes are counted, and
// security headers are set before the endpoint writes.
//
//	POST /v1/partitions/{partition}/entries
//	GET  /v1/partitions/{partition}/entries
//	GET  /v1/partitions/{partition}/entries/{key}/{id}
//	POST /v1/keys
//	GET  /v1/keys/{key}
func (h *Handler) Register(mux *http.ServeMux) {
	h.route(mux, "POST /v1/partitions/{partition}/entries", "append", h.appendEntry)
	h.route(mux, "GET /v1/partitions/{partition}/entries", "list", h.listEntries)
	h.route(mux, "GET /v1/partitions/{partition}/entries/{key}/{id}", "get", h.getEntry)
	h.route(mux, "POST /v1/keys", "encode_key", h.encodeKey)
	h.route(mux, "GET /v1/keys/{key}", "decode_key", h.decodeKey)
}

func (h *Handler) route(mux *http.ServeMux, pattern, name string, e hooks.Endpoint) {
	mux.Handle(pattern, hooks.Chain(e,
		hooks.OnError(h.renderError(name)),
		hooks.After(countSuccess(name)),
		hooks.Before(securityHeaders),
	))
}

type appendBody struct {
	Level      string            `json:"level"`
	Message    string            `json:"message"`
	Attributes map[string]string `json:"attributes"`
}

type entryResponse struct {
	model.Entry
	Time time.Time `json:"time"`
}

func toResponse(e model.Entry) entryResponse {
	return entryResponse{Entry: e, Time: e.Timestamp()}
}

func (h *Handler) appendEntry(w http.ResponseWriter, r *http.Request) error {
	var body appendBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return apierror.WithDetail(http.StatusBadRequest, "invalid JSON body", err.Error())
	}
	if body.Message == "" {
		return apierror.BadRequest("message is required")
	}
	entry, err := h.tail.Append(r.Context(), inbound.AppendRequest{
		Partition:  r.PathValue("partition"),
		Level:      body.Level,
		Message:    body.Message,
		Attributes: body.Attributes,
	})
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusCreated, toResponse(entry))
}

func (h *Handler) listEntries(w http.ResponseWriter, r *http.Request) error {
	q := inbound.TailQuery{
		Partition: r.PathValue("partition"),
		Before:    r.URL.Query().Get("before"),
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return apierror.BadRequest("limit must be a non-negative integer")
		}
		q.Limit = n
	}
	if raw := r.URL.Query().Get("since"); raw != "" {
		since, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return apierror.WithDetail(http.StatusBadRequest, "since must be RFC 3339", err.Error())
		}
		q.Since = &since
	}

	entries, err := h.tail.Query(r.Context(), q)
	if err != nil {
		return err
	}
	out := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toResponse(e))
	}
	return writeJSON(w, http.StatusOK, map[string]any{"entries": out})
}

func (h *Handler) getEntry(w http.ResponseWriter, r *http.Request) error {
	entry, err := h.tail.Get(r.Context(), r.PathValue("partition"), r.PathValue("key"), r.PathValue("id"))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, toResponse(entry))
}

type keyResponse struct {
	Key   model.TailKey `json:"key"`
	Time  time.Time     `json:"time"`
	Ticks int64         `json:"ticks"`
}

func (h *Handler) encodeKey(w http.ResponseWriter, r *http.Request) error {
	var body struct {
		Time string `json:"time"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return apierror.WithDetail(http.StatusBadRequest, "invalid JSON body", err.Error())
	}
	if body.Time == "" {
		return fmt.Errorf("%w: time is required", model.ErrInvalidInput)
	}
	at, err := time.Parse(time.RFC3339Nano, body.Time)
	if err != nil {
		return apierror.WithDetail(http.StatusBadRequest, "time must be RFC 3339", err.Error())
	}
	key, err := model.NewTailKey(at)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, keyResponse{Key: key, Time: key.Time(), Ticks: key.Ticks()})
}

func (h *Handler) decodeKey(w http.ResponseWriter, r *http.Request) error {
	key, err := model.ParseTailKey(r.PathValue("key"))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, keyResponse{Key: key, Time: key.Time(), Ticks: key.Ticks()})
}

// renderError maps domain errors to status codes and writes the body. It
// handles every error, so nothing escapes to hooks.Endpoint.ServeHTTP.
func (h *Handler) renderError(route string) hooks.ErrorHook {
	return func(w http.ResponseWriter, r *http.Request, err error) error {
		apiErr := toAPIError(err)
		if apiErr.Code >= http.StatusInternalServerError {
			h.logger.Error("request failed", "route", route, "path", r.URL.Path, "error", err)
		}
		metrics.IncEndpoint(route, "error")
		apierror.Write(w, apiErr)
		return nil
	}
}

func toAPIError(err error) *apierror.Error {
	if e, ok := apierror.As(err); ok {
		return e
	}
	switch {
	case errors.Is(err, model.ErrInvalidFormat):
		return apierror.WithDetail(http.StatusBadRequest, "invalid key format", err.Error())
	case errors.Is(err, model.ErrInvalidInput):
		return apierror.WithDetail(http.StatusBadRequest, "invalid input", err.Error())
	case errors.Is(err, model.ErrNotFound):
		return apierror.NotFound("entry")
	}
	return apierror.Internal("internal error")
}

func countSuccess(route string) hooks.Hook {
	return func(http.ResponseWriter, *http.Request) error {
		metrics.IncEndpoint(route, "ok")
		return nil
	}
}

func securityHeaders(w http.ResponseWriter, _ *http.Request) error {
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Security-Policy", "default-src 'none'")
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

// HealthHandler returns an http.HandlerFunc for the /health endpoint.
func HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_ = writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
