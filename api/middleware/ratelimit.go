package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/rushela/Smart-Waste-Management-System-sub000/api/responses"
	pkgerrors "github.com/rushela/Smart-Waste-Management-System-sub000/pkg/errors"
	"github.com/rushela/Smart-Waste-Management-System-sub000/pkg/logger"
	pkgredis "github.com/rushela/Smart-Waste-Management-System-sub000/pkg/redis"
)

// RateLimit caps requests per resident within a fixed window. The counter
// lives in redis; if the counter backend is down the request is let through
// so a cache outage never blocks payments.
func RateLimit(limiter pkgredis.RateLimiter, logg *logger.Logger, limit int64, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil || limit <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			residentID := ResidentIDFromContext(r.Context())
			if residentID == "" {
				next.ServeHTTP(w, r)
				return
			}

			scope := fmt.Sprintf("%s|%s|%s", residentID, r.Method, r.URL.Path)
			allowed, count, err := limiter.FixedWindowAllow(r.Context(), scope, limit, window)
			if err != nil {
				if logg != nil {
					logg.Warn(r.Context(), "ratelimit.backend_unavailable")
				}
				next.ServeHTTP(w, r)
				return
			}

			if !allowed {
				if logg != nil {
					ctx := logg.WithFields(r.Context(), map[string]any{
						"count": count,
						"limit": limit,
					})
					logg.Warn(ctx, "ratelimit.exceeded")
				}
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeRateLimit, "too many requests, slow down"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
