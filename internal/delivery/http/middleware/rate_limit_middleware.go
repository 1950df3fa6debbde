package middleware

import (
	"net/http"
	"time"

	"clinic-appointment-service/pkg/response"

	"github.com/go-chi/httprate"
)

// NewBookingRateLimiter limits booking attempts per client IP per minute.
// A non-positive limit disables limiting.
func NewBookingRateLimiter(requestsPerMinute int) func(http.Handler) http.Handler {
	if requestsPerMinute <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	return httprate.Limit(
		requestsPerMinute,
		time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			response.TooManyRequests(w, "Too many booking attempts, try again later")
		}),
	)
}
