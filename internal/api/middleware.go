package api

import (
	"encoding/json"
	"log/slog"
	"mime"
	"net/http"
	"slices"
	"time"

	"github.com/didip/tollbooth/v7"
	"github.com/didip/tollbooth/v7/limiter"
	"github.com/flashbots/go-utils/httplogger"
	"github.com/rs/cors"

	"otm.relay/config"
)

// newCORS allows requests from the configured origins. An empty list allows
// any origin. Requests without an Origin header are not cross-origin and pass
// through untouched.
func newCORS(origins []string) *cors.Cors {
	return cors.New(cors.Options{
		AllowOriginFunc: func(origin string) bool {
			return len(origins) == 0 || slices.Contains(origins, origin)
		},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowedHeaders: []string{"Content-Type"},
	})
}

// rateLimit limits requests per client IP. Mount it after middleware.RealIP so
// RemoteAddr already holds the client address.
func rateLimit(cfg config.RateLimitConfig) func(http.Handler) http.Handler {
	lmt := tollbooth.NewLimiter(float64(cfg.RequestsPerMin)/60, &limiter.ExpirableOptions{
		DefaultExpirationTTL: time.Hour,
	})
	lmt.SetBurst(max(cfg.Burst, 1))
	lmt.SetIPLookups([]string{"RemoteAddr"})

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if httpErr := tollbooth.LimitByRequest(lmt, w, r); httpErr != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(httpErr.StatusCode)
				_ = json.NewEncoder(w).Encode(ErrorResponse{Error: "too many requests, try again later"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// jsonOnly rejects request bodies that are not declared as JSON with 400.
// Empty bodies pass so the handler can report the missing field.
func jsonOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength != 0 {
			mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
			if err != nil || mediaType != "application/json" {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusBadRequest)
				_ = json.NewEncoder(w).Encode(ErrorResponse{Error: "Content-Type must be application/json"})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func requestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return httplogger.LoggingMiddlewareSlog(log, next)
	}
}
