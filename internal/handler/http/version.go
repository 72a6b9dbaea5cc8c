package http

import (
	"net/http"

	"github.com/consultamed/auth-core/internal/utils"
)

func (h *Handler) version(w http.ResponseWriter, r *http.Request) {
	serverVersion := h.services.AppInfoService.GetAppVersion(r.Context())

	_, _ = utils.WriteJSON(w, map[string]string{"version": serverVersion}, http.StatusOK)
}
