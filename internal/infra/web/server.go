package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"openapp-settlement/internal/infra/logging"
	"openapp-settlement/internal/usecase"
)

type Server struct {
	settlementUC usecase.SettlementUseCase
	earningsUC   usecase.EarningsUseCase
	subUC        usecase.SubscriptionUseCase
	auth         *AuthManager
	log          *zerolog.Logger
}

func NewServer(
	settlementUC usecase.SettlementUseCase,
	earningsUC usecase.EarningsUseCase,
	subUC usecase.SubscriptionUseCase,
	auth *AuthManager,
	logger *zerolog.Logger,
) *Server {
	l := logger.With().Str("component", "web").Logger()
	return &Server{
		settlementUC: settlementUC,
		earningsUC:   earningsUC,
		subUC:        subUC,
		auth:         auth,
		log:          &l,
	}
}

// Router builds the full route tree. Settlement endpoints are open (the
// payment network is the authority, not the caller); dashboard endpoints
// require an admin session.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/payments", s.handlePaymentAction)
		r.Post("/payments/complete", s.handleVerifiedComplete)

		r.Post("/admin/login", s.handleAdminLogin)
		r.Group(func(r chi.Router) {
			r.Use(s.adminOnly)
			r.Post("/admin/logout", s.handleAdminLogout)
			r.Get("/developers/{developerID}/earnings", s.handleDeveloperEarnings)
			r.Get("/profiles/{profileID}/subscription", s.handleProfileSubscription)
		})
	})
	return r
}

// requestLogger stamps the chi request id into the context as the trace id, so
// every log line downstream of the handler carries it.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logging.WithTraceID(r.Context(), middleware.GetReqID(r.Context()))
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))
		logging.With(ctx, s.log).Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Msg("request served")
	})
}

func (s *Server) adminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := s.auth.ParseFromRequest(r); err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
