// SPDX-License-Identifier: Apache-2.0

package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/consultamed/auth-core/internal/logger"
	"github.com/consultamed/auth-core/internal/utils"
	"github.com/consultamed/auth-core/models"
)

// clientInfo captures the caller's network context for sessions and audit.
func clientInfo(r *http.Request) models.ClientInfo {
	return models.ClientInfo{
		IPAddress: clientIP(r),
		UserAgent: r.UserAgent(),
	}
}

// clientIP prefers the reverse-proxy headers and falls back to the socket
// address.
func clientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		if first, _, found := strings.Cut(forwarded, ","); found || first != "" {
			return strings.TrimSpace(first)
		}
	}

	host := r.RemoteAddr
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		host = host[:idx]
	}
	return host
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		logger.FromRequest(r).Err(err).Msg("invalid JSON was passed")
		writeError(w, http.StatusBadRequest, CodeValidationError, "el cuerpo de la solicitud no es JSON válido")
		return false
	}
	return true
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req models.RegisterRequest
	if !decodeBody(w, r, &req) {
		return
	}

	resp, err := h.services.AuthService.Register(ctx, req, clientInfo(r))
	h.metrics.observeAttempt(models.ActionRegistration, err)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	_, _ = utils.WriteJSON(w, resp, http.StatusCreated)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req models.LoginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	resp, err := h.services.AuthService.Login(ctx, req, clientInfo(r))
	h.metrics.observeAttempt(models.ActionLogin, err)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	_, _ = utils.WriteJSON(w, resp, http.StatusOK)
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req models.RefreshRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, CodeNoToken, "falta el token de renovación")
		return
	}

	pair, err := h.services.AuthService.Refresh(ctx, req.RefreshToken, clientInfo(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	_, _ = utils.WriteJSON(w, pair, http.StatusOK)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identity, ok := utils.GetIdentityFromContext(ctx)
	if !ok {
		writeError(w, http.StatusUnauthorized, CodeNoToken, "se requiere autenticación")
		return
	}

	// body is optional; an empty or absent one means "my own session"
	var req models.LogoutRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	h.services.AuthService.Logout(ctx, identity, req.SessionID, clientInfo(r))

	_, _ = utils.WriteJSON(w, map[string]bool{"success": true}, http.StatusOK)
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identity, ok := utils.GetIdentityFromContext(ctx)
	if !ok {
		writeError(w, http.StatusUnauthorized, CodeNoToken, "se requiere autenticación")
		return
	}

	session, err := h.services.SessionService.Get(ctx, identity.SessionID)
	if err != nil {
		writeError(w, http.StatusUnauthorized, CodeInvalidToken, "la sesión ya no es válida")
		return
	}

	_, _ = utils.WriteJSON(w, models.SessionInfo{ID: session.ID, ExpiresAt: session.ExpiresAt}, http.StatusOK)
}

func (h *Handler) recoverPassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req models.RecoverRequest
	if !decodeBody(w, r, &req) {
		return
	}

	_, err := h.services.AuthService.RequestPasswordRecovery(ctx, req.Email, clientInfo(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	// identical answer whether or not the email exists
	_, _ = utils.WriteJSON(w, map[string]string{
		"status": "ok",
		"detail": "si el correo está registrado, recibirá instrucciones de recuperación",
	}, http.StatusAccepted)
}

func (h *Handler) resetPassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req models.ResetPasswordRequest
	if !decodeBody(w, r, &req) {
		return
	}

	err := h.services.AuthService.ResetPassword(ctx, req.Token, req.NewPassword, clientInfo(r))
	h.metrics.observeAttempt(models.ActionPasswordReset, err)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	_, _ = utils.WriteJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}
