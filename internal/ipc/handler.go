// Package ipc provides the HTTP and websocket API of the court engine.
package ipc

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/rogersf/court-engine/internal/catalog"
	"github.com/rogersf/court-engine/internal/court"
	"github.com/rogersf/court-engine/internal/domain"
)

// Handler holds all dependencies for the HTTP handlers.
type Handler struct {
	Manager *court.Manager
	Logger  *log.Logger
}

// ChoiceRequest is the body for POST /api/v1/session/{id}/choice.
type ChoiceRequest struct {
	PetitionID  *int `json:"petition_id"`
	ChoiceIndex *int `json:"choice_index"`
}

// TaxRequest is the body for POST /api/v1/session/{id}/tax.
type TaxRequest struct {
	Rate *float64 `json:"rate"`
}

// CatalogResponse is the response for GET /api/v1/catalog.
type CatalogResponse struct {
	Digest string                     `json:"digest"`
	Events []*catalog.EventDefinition `json:"events"`
}

// APIError is a structured error response.
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Health handles GET /api/v1/health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"live":   len(h.Manager.Live()),
	})
}

// GetCatalog handles GET /api/v1/catalog.
func (h *Handler) GetCatalog(w http.ResponseWriter, r *http.Request) {
	cat := h.Manager.Catalog()
	writeJSON(w, http.StatusOK, CatalogResponse{Digest: cat.Digest(), Events: cat.Events()})
}

// ListSessions handles GET /api/v1/sessions?limit=N.
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		parsed, err := strconv.Atoi(s)
		if err == nil {
			limit = parsed
		}
	}
	recs, err := h.Manager.Sessions(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

// CreateSession handles POST /api/v1/session. The body is optional.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var o court.Overrides
	if err := json.NewDecoder(r.Body).Decode(&o); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, APIError{Code: 400, Message: "invalid request body"})
		return
	}

	res, err := h.Manager.Create(r.Context(), &o)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// GetSession handles GET /api/v1/session/{id}.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	view, err := h.Manager.View(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// GetRecord handles GET /api/v1/session/{id}/record.
func (h *Handler) GetRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Manager.Record(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// SelectChoice handles POST /api/v1/session/{id}/choice.
func (h *Handler) SelectChoice(w http.ResponseWriter, r *http.Request) {
	var req ChoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, APIError{Code: 400, Message: "invalid request body"})
		return
	}
	if req.PetitionID == nil || req.ChoiceIndex == nil {
		writeJSON(w, http.StatusBadRequest, APIError{Code: 400, Message: "petition_id and choice_index are required"})
		return
	}

	res, err := h.Manager.Choice(r.Context(), r.PathValue("id"), *req.PetitionID, *req.ChoiceIndex)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// AdvanceDay handles POST /api/v1/session/{id}/advance.
func (h *Handler) AdvanceDay(w http.ResponseWriter, r *http.Request) {
	res, err := h.Manager.Advance(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// SetTax handles POST /api/v1/session/{id}/tax.
func (h *Handler) SetTax(w http.ResponseWriter, r *http.Request) {
	var req TaxRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, APIError{Code: 400, Message: "invalid request body"})
		return
	}
	if req.Rate == nil {
		writeJSON(w, http.StatusBadRequest, APIError{Code: 400, Message: "rate is required"})
		return
	}

	res, err := h.Manager.SetTax(r.Context(), r.PathValue("id"), *req.Rate)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// CloseSession handles DELETE /api/v1/session/{id}.
func (h *Handler) CloseSession(w http.ResponseWriter, r *http.Request) {
	if err := h.Manager.Close(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListEvents handles GET /api/v1/session/{id}/events?since_seq=N.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.Manager.Events(r.Context(), r.PathValue("id"), sinceSeq(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// ListSnapshots handles GET /api/v1/session/{id}/snapshots.
func (h *Handler) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	snaps, err := h.Manager.Snapshots(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snaps)
}

// LatestSnapshot handles GET /api/v1/session/{id}/snapshots/latest.
func (h *Handler) LatestSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Manager.LatestSnapshot(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if snap == nil {
		writeJSON(w, http.StatusNotFound, APIError{Code: 404, Message: "no snapshot recorded"})
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// ListAudit handles GET /api/v1/session/{id}/audit.
func (h *Handler) ListAudit(w http.ResponseWriter, r *http.Request) {
	recs, err := h.Manager.Audit(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

// GetLedger handles GET /api/v1/session/{id}/ledger.
func (h *Handler) GetLedger(w http.ResponseWriter, r *http.Request) {
	ledger, err := h.Manager.Ledger(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ledger)
}

// StreamEvents handles GET /api/v1/session/{id}/events/stream (SSE).
// Stored events are sent first; live sessions then push new events until
// they close or the client goes away.
func (h *Handler) StreamEvents(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, APIError{Code: 500, Message: "streaming not supported"})
		return
	}

	// Subscribe before listing so nothing falls between the two.
	live, cancel, subErr := h.Manager.Subscribe(id)
	if subErr == nil {
		defer cancel()
	}

	events, err := h.Manager.Events(r.Context(), id, sinceSeq(r))
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	lastSeq := sinceSeq(r)
	for _, ev := range events {
		writeSSEEvent(w, flusher, ev)
		lastSeq = ev.SeqNo
	}
	if subErr != nil {
		flusher.Flush()
		return
	}

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-live:
			if !ok {
				return
			}
			if ev.SeqNo <= lastSeq {
				continue
			}
			writeSSEEvent(w, flusher, ev)
			lastSeq = ev.SeqNo
		}
	}
}

func sinceSeq(r *http.Request) int64 {
	if s := r.URL.Query().Get("since_seq"); s != "" {
		parsed, err := strconv.ParseInt(s, 10, 64)
		if err == nil {
			return parsed
		}
	}
	return 0
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// statusFor maps a GameError code to an HTTP status.
func statusFor(code int) int {
	switch code {
	case domain.ErrSessionNotFound.Code:
		return http.StatusNotFound
	case domain.ErrGameOver.Code, domain.ErrSessionNotPlaying.Code,
		domain.ErrInvalidTransition.Code, domain.ErrDuplicateSession.Code:
		return http.StatusConflict
	case domain.ErrNoActionsLeft.Code, domain.ErrPetitionNotFound.Code,
		domain.ErrChoiceNotFound.Code, domain.ErrCannotAfford.Code,
		domain.ErrTaxOutOfRange.Code, domain.ErrConfigInvalid.Code:
		return http.StatusUnprocessableEntity
	case domain.ErrRateLimitExceeded.Code, domain.ErrSessionLimit.Code:
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}

func apiError(err error) (int, APIError) {
	var gameErr *domain.GameError
	if errors.As(err, &gameErr) {
		return statusFor(gameErr.Code), APIError{Code: gameErr.Code, Message: gameErr.Message}
	}
	return http.StatusInternalServerError, APIError{Code: -1, Message: err.Error()}
}

func writeError(w http.ResponseWriter, err error) {
	status, body := apiError(err)
	writeJSON(w, status, body)
}

func writeSSEEvent(w http.ResponseWriter, f http.Flusher, ev domain.SessionEvent) {
	data, _ := json.Marshal(ev)
	fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", ev.SeqNo, ev.EventType, data)
	f.Flush()
}
