package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/l5yth/potato-mesh/internal/api/middleware"
	"github.com/l5yth/potato-mesh/internal/handlers"
)

// maxTransactionBytes bounds inbound appservice transaction bodies.
const maxTransactionBytes = 4 << 20

// NewRouter creates the appservice listener router. Every route except
// /health and /metrics requires the homeserver token, and the token is
// checked before anything else about the request.
func NewRouter(logger zerolog.Logger, hsToken string, h *handlers.Handler) *chi.Mux {
	r := chi.NewRouter()

	// Metrics middleware (first to capture all requests)
	r.Use(middleware.Metrics)

	r.Use(middleware.SecurityHeaders)

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)

	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/health", h.Health)

	auth := middleware.NewAuthMiddleware(hsToken, logger)
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireToken)
		r.Use(middleware.MaxBodySize(maxTransactionBytes))

		// Current appservice API
		r.Put("/_matrix/app/v1/transactions/{txnID}", h.Transaction)
		r.Post("/_matrix/app/v1/transactions/{txnID}", h.Transaction)
		r.Get("/_matrix/app/v1/users/{userID}", h.QueryUser)
		r.Get("/_matrix/app/v1/rooms/{roomAlias}", h.QueryRoom)

		// Path used by earlier releases of this bridge
		r.Put("/_matrix/appservice/v1/transactions/{txnID}", h.Transaction)
		r.Post("/_matrix/appservice/v1/transactions/{txnID}", h.Transaction)

		// Legacy unprefixed path
		r.Put("/transactions/{txnID}", h.Transaction)
	})

	return r
}

// NewServer wraps the router in an http.Server for addr.
func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
