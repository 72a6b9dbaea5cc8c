package http

import (
	"net/http"
	"strconv"

	"github.com/consultamed/auth-core/internal/logger"
	"github.com/consultamed/auth-core/internal/utils"
	"github.com/consultamed/auth-core/models"
)

// rateLimit gates a route behind the limiter policy of the given action,
// keyed by client address. A rejected request answers 429 with a Retry-After
// header and the retry delay mirrored in the body.
func (h *Handler) rateLimit(action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client := clientInfo(r)

			result := h.services.RateLimiter.Check(r.Context(), action, client.IPAddress, client)
			if !result.Allowed {
				if h.metrics != nil {
					h.metrics.RateLimitBlocks.WithLabelValues(action).Inc()
				}

				retryAfter := int64(result.RetryAfter.Seconds())
				logger.FromRequest(r).Warn().
					Str("action", action).
					Str("ip", client.IPAddress).
					Int64("retry_after", retryAfter).
					Msg("request rejected by rate limiter")

				w.Header().Set("Retry-After", strconv.FormatInt(retryAfter, 10))
				_, _ = utils.WriteJSON(w, models.ErrorResponse{
					Error: models.APIError{
						Code:    CodeRateLimitExceeded,
						Message: "demasiados intentos, espere antes de volver a intentarlo",
					},
					RetryAfter: retryAfter,
				}, http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
