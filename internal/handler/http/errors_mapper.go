package http

import (
	"errors"
	"net/http"

	"github.com/consultamed/auth-core/internal/logger"
	"github.com/consultamed/auth-core/internal/service"
	"github.com/consultamed/auth-core/internal/utils"
	"github.com/consultamed/auth-core/models"
)

// writeError sends the standard failure envelope.
func writeError(w http.ResponseWriter, statusCode int, code, message string) {
	_, _ = utils.WriteJSON(w, models.ErrorResponse{
		Error: models.APIError{Code: code, Message: message},
	}, statusCode)
}

// writeValidationError sends a 400 with the per-field detail.
func writeValidationError(w http.ResponseWriter, verr *service.ValidationError) {
	_, _ = utils.WriteJSON(w, models.ErrorResponse{
		Error: models.APIError{
			Code:    CodeValidationError,
			Message: "los datos enviados no son válidos",
			Fields:  verr.Fields,
		},
	}, http.StatusBadRequest)
}

// writeServiceError translates a service-layer error into the HTTP failure
// envelope. Unrecognized errors become an opaque 500; their detail stays in
// the log.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromRequest(r)

	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		writeValidationError(w, verr)
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, CodeInvalidCredentials, "correo electrónico o contraseña incorrectos")
	case errors.Is(err, service.ErrAccountInactive):
		writeError(w, http.StatusUnauthorized, CodeAccountInactive, "la cuenta está inactiva o pendiente de verificación")
	case errors.Is(err, service.ErrInvalidToken):
		writeError(w, http.StatusUnauthorized, CodeInvalidToken, "el token no es válido o ha expirado")
	case errors.Is(err, service.ErrEmailAlreadyExists):
		writeError(w, http.StatusConflict, CodeEmailAlreadyExists, "el correo electrónico ya está registrado")
	case errors.Is(err, service.ErrLicenseAlreadyExists):
		writeError(w, http.StatusConflict, CodeLicenseAlreadyExists, "el número de licencia ya está registrado")
	case errors.Is(err, service.ErrRecoveryTokenExpired):
		writeError(w, http.StatusUnauthorized, CodeTokenExpired, "el token de recuperación ha expirado")
	case errors.Is(err, service.ErrRecoveryTokenInvalid):
		writeError(w, http.StatusUnauthorized, CodeInvalidToken, "el token de recuperación no es válido")
	default:
		log.Err(err).Msg("unexpected error")
		writeError(w, http.StatusInternalServerError, CodeInternalError, "error interno del servidor")
	}
}
