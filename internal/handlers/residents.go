package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/harbor-house/apiserver/internal/services"
	"github.com/harbor-house/apiserver/internal/store"
	"github.com/harbor-house/apiserver/types"
)

// ResidentsHandler serves the internal roster.
type ResidentsHandler struct {
	roster *services.RosterService
}

// NewResidentsHandler constructs a ResidentsHandler with the provided
// dependencies.
func NewResidentsHandler(roster *services.RosterService) *ResidentsHandler {
	return &ResidentsHandler{roster: roster}
}

// ResidentsRouter registers roster routes on the given router.
func ResidentsRouter(r chi.Router, roster *services.RosterService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewResidentsHandler(roster)

	r.With(authMiddleware).Get("/", handler.List)
	r.Route("/{id}", func(r chi.Router) {
		r.With(authMiddleware).Get("/", handler.Get)
		r.With(authMiddleware).Put("/", handler.Update)
		r.With(authMiddleware).Get("/agreement", handler.GetAgreement)
	})
}

// RosterRowResponse is a roster row plus its display-rendered date.
type RosterRowResponse struct {
	types.RosterRow
	SobrietyDateDisplay string `json:"sobriety_date_display"`
}

// List returns every registered resident in storage order.
func (h *ResidentsHandler) List(w http.ResponseWriter, r *http.Request) {
	roster, err := h.roster.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load residents")
		return
	}

	rows := make([]RosterRowResponse, 0, len(roster))
	for _, row := range roster {
		rows = append(rows, RosterRowResponse{
			RosterRow:           row,
			SobrietyDateDisplay: types.FormatDate(row.SobrietyDate),
		})
	}
	writeJSON(w, http.StatusOK, rows)
}

// Get returns the joined detail for one resident.
func (h *ResidentsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	detail, err := h.roster.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "resident not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load resident")
		return
	}

	writeJSON(w, http.StatusOK, detail)
}

// Update writes both tables' mutable fields in one transaction.
func (h *ResidentsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var patch types.ResidentPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	if err := h.roster.Update(r.Context(), id, patch); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "resident not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to update resident")
		return
	}

	detail, err := h.roster.Get(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load resident")
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// GetAgreement returns the resident's persisted questionnaire answers.
func (h *ResidentsHandler) GetAgreement(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	agreement, err := h.roster.GetAgreement(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "agreement not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load agreement")
		return
	}

	writeJSON(w, http.StatusOK, agreement)
}
