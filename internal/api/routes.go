package api

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/onnwee/minimonday/backend/internal/api/handlers"
	"github.com/onnwee/minimonday/backend/internal/apierr"
	"github.com/onnwee/minimonday/backend/internal/config"
	"github.com/onnwee/minimonday/backend/internal/facade"
	"github.com/onnwee/minimonday/backend/internal/middleware"
)

// Deps are the services the router wires into handlers.
type Deps struct {
	Store  handlers.RowStore
	Facade facade.Facade
}

// NewRouter builds the API routes. Cross-cutting middleware that must also
// see unmatched requests (request ids, recovery, CORS, rate limits) is applied
// by Handler.
func NewRouter(d Deps) *mux.Router {
	cfg := config.Load()
	r := mux.NewRouter()
	r.Use(middleware.Metrics)

	r.HandleFunc("/health", handlers.Health).Methods(http.MethodGet)
	r.HandleFunc("/ready", handlers.Ready(d.Facade)).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	rows := handlers.NewRowsHandler(d.Store)
	sheetsAPI := r.PathPrefix("/api/sheets/{sheet}").Subrouter()
	sheetsAPI.Handle("/rows", middleware.ETag(http.HandlerFunc(rows.List))).Methods(http.MethodGet)
	sheetsAPI.HandleFunc("/rows", rows.Create).Methods(http.MethodPost)
	sheetsAPI.Handle("/rows/{id}", middleware.ETag(http.HandlerFunc(rows.Get))).Methods(http.MethodGet)
	sheetsAPI.HandleFunc("/rows/{id}", rows.Update).Methods(http.MethodPut)
	sheetsAPI.HandleFunc("/rows/{id}", rows.Delete).Methods(http.MethodDelete)

	fa := handlers.NewFacadeAdminHandler(d.Facade)
	admin := r.PathPrefix("/api/admin").Subrouter()
	admin.Use(adminOnly(cfg.AdminAPIToken))
	admin.HandleFunc("/facade", fa.GetStats).Methods(http.MethodGet)
	admin.HandleFunc("/cache/invalidate", fa.InvalidateCache).Methods(http.MethodPost)
	admin.HandleFunc("/breakers", fa.ListBreakers).Methods(http.MethodGet)
	admin.HandleFunc("/breakers/{endpoint}/reset", fa.ResetBreaker).Methods(http.MethodPost)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apierr.WriteErrorWithContext(w, r, apierr.ResourceNotFound("route"))
	})
	return r
}

// Handler wraps the router with the server-wide middleware chain. The
// returned stop func releases the rate limiter's cleanup goroutine.
func Handler(d Deps) (http.Handler, func()) {
	cfg := config.Load()
	var h http.Handler = NewRouter(d)
	h = middleware.ValidateRequestBody(h)

	stop := func() {}
	if cfg.EnableRateLimit {
		rl := middleware.NewRateLimiter(cfg.RateLimitGlobal, cfg.RateLimitGlobalBurst, cfg.RateLimitPerIP, cfg.RateLimitPerIPBurst)
		h = rl.Limit(h)
		stop = rl.Stop
	}

	h = middleware.CORS(middleware.DefaultCORSConfig(cfg.CORSAllowedOrigins...))(h)
	h = middleware.SecurityHeaders(h)
	h = middleware.RecoverWithSentry(h)
	h = middleware.RequestID(h)
	return h, stop
}

// adminOnly requires "Authorization: Bearer <ADMIN_API_TOKEN>". Without a
// configured token the admin surface is disabled.
func adminOnly(token string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				apierr.WriteErrorWithContext(w, r, apierr.New(apierr.ErrSystemUnavailable, "Admin API is not configured", http.StatusServiceUnavailable))
				return
			}
			const prefix = "Bearer "
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, prefix) || len(auth) == len(prefix) {
				apierr.WriteErrorWithContext(w, r, apierr.AuthMissing("Bearer token required"))
				return
			}
			if subtle.ConstantTimeCompare([]byte(auth[len(prefix):]), []byte(token)) != 1 {
				apierr.WriteErrorWithContext(w, r, apierr.AuthInvalid("Invalid admin token"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
