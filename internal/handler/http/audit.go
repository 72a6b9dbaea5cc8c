package http

import (
	"net/http"
	"strconv"

	"github.com/consultamed/auth-core/internal/logger"
	"github.com/consultamed/auth-core/internal/utils"
)

// auditTrail returns the most recent audit entries, newest first.
// Administrator-only.
func (h *Handler) auditTrail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 1000 {
			writeError(w, http.StatusBadRequest, CodeValidationError, "el parámetro limit no es válido")
			return
		}
		limit = parsed
	}

	entries, err := h.services.AuditService.Recent(ctx, limit)
	if err != nil {
		logger.FromRequest(r).Err(err).Msg("failed to load audit trail")
		writeError(w, http.StatusInternalServerError, CodeInternalError, "error interno del servidor")
		return
	}

	_, _ = utils.WriteJSON(w, entries, http.StatusOK)
}
