package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"

	"github.com/outbreakwatch/outbreakwatch/internal/api/models"
)

// RateLimit is a per-client request budget over a sliding window.
type RateLimit struct {
	Requests int
	Window   time.Duration
}

// Budgets for the two endpoint classes. A risk request can trigger a full
// fan-out to every upstream, so it gets the smaller one.
var (
	AggregateLimit = RateLimit{Requests: 30, Window: time.Minute}
	ReadLimit      = RateLimit{Requests: 100, Window: time.Minute}
)

// RateLimitByIP limits by client IP, honouring X-Forwarded-For and
// X-Real-IP. Rejections are too-many-requests problems.
func RateLimitByIP(limit RateLimit) func(http.Handler) http.Handler {
	// httprate does not expose the exact reset, so advertise the full window.
	retryAfter := strconv.Itoa(int(limit.Window.Round(time.Second).Seconds()))

	onLimit := func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", retryAfter)
		models.KindRateLimited.
			New(GetRequestID(r.Context()), "Rate limit exceeded. Please try again later.").
			WithInstance(r.URL.Path).
			Write(w)
	}

	return httprate.Limit(limit.Requests, limit.Window,
		httprate.WithKeyFuncs(httprate.KeyByRealIP),
		httprate.WithLimitHandler(onLimit),
	)
}
