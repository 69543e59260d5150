package server

import (
	"context"
	"net/http"
	"time"

	"github.com/rentalhub/rentalhub-be/internal/auth"
	"github.com/rentalhub/rentalhub-be/internal/booking"
	"github.com/rentalhub/rentalhub-be/internal/config"
	"github.com/rentalhub/rentalhub-be/internal/http/handlers"
	"github.com/rentalhub/rentalhub-be/internal/middleware"
	"github.com/rentalhub/rentalhub-be/internal/notify"
	"github.com/rentalhub/rentalhub-be/internal/settlement"
	"github.com/rentalhub/rentalhub-be/internal/storage/postgres"
)

// Server wraps an http.Server with configured routes.
type Server struct {
	inner *http.Server
}

// New wires middleware, services, and routes, and returns a ready server.
func New(cfg config.Config, store *postgres.Store, events notify.Emitter) *Server {
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)
	lifecycle := booking.NewService(store, store, store, events)

	var orders settlement.OrderClient
	if !cfg.PaymentDevMode() {
		orders = settlement.NewRazorpayOrders(cfg.RazorpayKeyID, cfg.RazorpayKeySecret)
	}
	verifier := settlement.NewVerifier(store, store, events, orders,
		settlement.NewStripeIntents(cfg.StripeSecretKey), cfg.RazorpayKeySecret, cfg.PaymentDevMode())

	mux := http.NewServeMux()
	protect := middleware.RequireActor(tokens, store)

	handlers.NewHealthHandler(time.Now()).Register(mux)
	handlers.NewAuthHandler(store, tokens).Register(mux)
	handlers.NewUserHandler(store).Register(mux, protect)
	handlers.NewPropertyHandler(store).Register(mux, protect)
	handlers.NewBookingHandler(lifecycle).Register(mux, protect)
	handlers.NewPaymentHandler(verifier, store).Register(mux, protect)

	handler := middleware.CORS(cfg.CORSOrigins, middleware.Logging(mux))

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddress(),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return &Server{inner: httpServer}
}

// Start begins serving HTTP traffic.
func (s *Server) Start() error {
	return s.inner.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.inner.Shutdown(ctx)
}
