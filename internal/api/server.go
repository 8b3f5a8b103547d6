package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/edvin/cronbeat/internal/api/handler"
	mw "github.com/edvin/cronbeat/internal/api/middleware"
	"github.com/edvin/cronbeat/internal/api/response"
)

type Server struct {
	router      chi.Router
	logger      zerolog.Logger
	cron        *handler.Cron
	httpMetrics *mw.HTTPMetrics
	gatherer    prometheus.Gatherer
}

// NewServer wires the router. HTTP collectors are registered with reg and
// /metrics serves gatherer.
func NewServer(logger zerolog.Logger, runner handler.Runner, reg prometheus.Registerer, gatherer prometheus.Gatherer) *Server {
	s := &Server{
		router:      chi.NewRouter(),
		logger:      logger.With().Str("component", "api").Logger(),
		cron:        handler.NewCron(runner),
		httpMetrics: mw.NewHTTPMetrics(reg),
		gatherer:    gatherer,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(mw.RequestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(s.httpMetrics.Handler)
}

func (s *Server) setupRoutes() {
	s.router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	s.router.Get("/healthz", s.handleHealthz)
	s.router.Get("/readyz", s.cron.Ready)

	s.router.Get("/cron", s.cron.Run)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	response.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
