package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/consultamed/auth-core/internal/logger"
	"github.com/consultamed/auth-core/internal/utils"
	"github.com/consultamed/auth-core/models"
)

const refreshRequiredHeader = "X-Token-Refresh-Required"

// auth enforces JWT-based authentication on protected routes.
//
// It extracts the bearer token from the "Authorization" header, verifies it
// via the token service, and on success stores the caller's [models.Identity]
// (with the permission set derived from the role) in the request context
// under [utils.IdentityCtxKey].
//
// When the token is close to expiry, the response carries
// "X-Token-Refresh-Required: true" so clients refresh proactively.
//
// Every authenticated request is audited as an api_access event; the audit
// write happens off the request path.
func (h *Handler) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromRequest(r)

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			log.Debug().Err(ErrEmptyAuthorizationHeader).Send()
			writeError(w, http.StatusUnauthorized, CodeNoToken, "se requiere un token de acceso")
			return
		}

		tokenString, err := getTokenFromAuthHeader(authHeader)
		if err != nil {
			log.Debug().Err(err).Send()
			writeError(w, http.StatusUnauthorized, CodeNoToken, "el encabezado de autorización no es válido")
			return
		}

		ctx := r.Context()
		claims, err := h.services.TokenService.VerifyAccess(ctx, tokenString)
		if err != nil {
			log.Debug().Err(err).Msg("access token rejected")
			writeError(w, http.StatusUnauthorized, CodeInvalidToken, "el token no es válido o ha expirado")
			return
		}

		identity := models.Identity{
			UserID:        claims.Subject,
			Email:         claims.Email,
			Role:          claims.Role,
			Specialty:     claims.Specialty,
			LicenseNumber: claims.LicenseNumber,
			SessionID:     claims.SessionID,
			Permissions:   models.PermissionsForRole(claims.Role),
		}

		if h.services.TokenService.IsExpiringSoon(claims) {
			w.Header().Set(refreshRequiredHeader, "true")
		}

		// the audit write must not delay the request
		entry := models.AuditEntry{
			UserID:    identity.UserID,
			Action:    models.AuditActionAPIAccess,
			Resource:  r.URL.Path,
			IPAddress: clientIP(r),
			UserAgent: r.UserAgent(),
			Success:   true,
		}
		go h.services.AuditService.Record(context.WithoutCancel(ctx), entry)

		ctx = context.WithValue(ctx, utils.IdentityCtxKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// getTokenFromAuthHeader extracts the bearer token string from a raw
// "Authorization" HTTP header value of the standard form:
//
//	Authorization: Bearer <token>
//
// Any other scheme (e.g. "Basic") is rejected with
// [ErrInvalidAuthorizationHeader]; a "Bearer" header without a token value
// yields [ErrEmptyToken].
func getTokenFromAuthHeader(authHeader string) (string, error) {
	scheme, token, found := strings.Cut(strings.TrimSpace(authHeader), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", ErrInvalidAuthorizationHeader
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrEmptyToken
	}

	return token, nil
}

// requireRole gates a route on an exact role.
func (h *Handler) requireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := utils.GetIdentityFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, CodeNoToken, "se requiere autenticación")
				return
			}
			if identity.Role != role {
				writeError(w, http.StatusForbidden, CodeInsufficientRole, "su rol no permite esta operación")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requirePermission gates a route on a derived permission.
func (h *Handler) requirePermission(permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := utils.GetIdentityFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, CodeNoToken, "se requiere autenticación")
				return
			}
			if !identity.HasPermission(permission) {
				writeError(w, http.StatusForbidden, CodeInsufficientPermissions, "no cuenta con los permisos médicos necesarios")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
