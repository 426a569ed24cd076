package httptransport

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Wynergy-Fibre-Solutions/wfsl-org-profile-guard/internal/anchor"
	"github.com/Wynergy-Fibre-Solutions/wfsl-org-profile-guard/internal/digest"
	"github.com/Wynergy-Fibre-Solutions/wfsl-org-profile-guard/internal/seal"
	"github.com/Wynergy-Fibre-Solutions/wfsl-org-profile-guard/pkg/platform/sentinel"
)

// GuardService is the slice of the guard pipeline the HTTP layer needs.
type GuardService interface {
	VerifyAnchor() (anchor.Report, error)
	AnchorStatus() (tip string, entries int, err error)
}

// Handler serves the audit endpoints.
type Handler struct {
	guard  GuardService
	eng    digest.Engine
	logger *slog.Logger
}

func NewHandler(guard GuardService, eng digest.Engine, logger *slog.Logger) *Handler {
	return &Handler{guard: guard, eng: eng, logger: logger}
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	tip, entries, err := h.guard.AnchorStatus()
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"chain_tip": tip,
		"entries":   entries,
	})
}

// handleVerifyEvidence verifies the seal of a JSON evidence document posted
// in the request body. A failed seal is a 200 with ok=false: the document
// was judged, and the judgment is the payload.
func (h *Handler) handleVerifyEvidence(w http.ResponseWriter, r *http.Request) {
	var doc map[string]any
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4<<20)).Decode(&doc); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "request body is not valid JSON"})
		return
	}

	res := seal.Verify(h.eng, doc)
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) handleVerifyAnchor(w http.ResponseWriter, r *http.Request) {
	report, err := h.guard.VerifyAnchor()
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, sentinel.ErrMalformed):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, sentinel.ErrUnavailable):
		status = http.StatusBadGateway
	}
	h.logger.Error("request failed", "status", status, "error", err)
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
