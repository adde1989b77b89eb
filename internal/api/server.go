// Package api is the HTTP surface for the pipeline: trigger a run,
// poll its status, and fetch the final public outputs once aggregation
// completes (SPEC_FULL.md §1 "HTTP surface"). Routegroup-based routing,
// a shared middleware stack, and a swagger UI route.
package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/go-pkgz/rest"
	"github.com/go-pkgz/routegroup"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/lotpnl/pnl-proof-host/docs"
	"github.com/lotpnl/pnl-proof-host/internal/api/handlers"
	"github.com/lotpnl/pnl-proof-host/internal/api/middleware"
	"github.com/lotpnl/pnl-proof-host/internal/config"
	"github.com/lotpnl/pnl-proof-host/internal/service"
	"github.com/lotpnl/pnl-proof-host/internal/storage"
)

// Server is the HTTP server wrapping the run orchestration service.
type Server struct {
	service service.Runner
	store   storage.Store
	logger  lgr.L
	config  *config.Config
}

// NewServer creates a new HTTP server.
func NewServer(svc service.Runner, store storage.Store, logger lgr.L, cfg *config.Config) *Server {
	return &Server{service: svc, store: store, logger: logger, config: cfg}
}

// SetupRoutes configures all HTTP routes and middleware.
//
//	@title			PnL Proof Host API
//	@version		1.0
//	@description	Orchestrates tag discovery, per-swap proving, and recursive aggregation for confidential AMM PnL proofs.
//	@BasePath		/api
func (s *Server) SetupRoutes() http.Handler {
	healthHandler := handlers.NewHealthHandler(s.logger)
	runHandler := handlers.NewRunHandler(s.service, s.store, s.logger)

	router := routegroup.New(http.NewServeMux())

	router.Use(rest.RealIP)
	router.Use(rest.Trace)
	router.Use(rest.SizeLimit(1024 * 1024))
	router.Use(middleware.Logging(s.logger))
	router.Use(middleware.Recovery(s.logger))
	router.Use(rest.AppInfo("pnl-proof-host", "lotpnl", "1.0.0"))
	router.Use(rest.Ping)

	router.HandleFunc("GET /health", healthHandler.HandleHealth)
	router.HandleFunc("GET /swagger/*", httpSwagger.Handler())

	router.Group().Mount("/api").Route(func(apiRouter *routegroup.Bundle) {
		apiRouter.Group().Mount("/runs").Route(func(runsRouter *routegroup.Bundle) {
			runsRouter.HandleFunc("POST /", runHandler.HandleTriggerRun)
			runsRouter.HandleFunc("GET /", runHandler.HandleListRuns)
			runsRouter.HandleFunc("GET /{runId}", runHandler.HandleGetRunStatus)
			runsRouter.HandleFunc("GET /{runId}/outputs", runHandler.HandleGetRunOutputs)
		})
	})

	return router
}

// Start starts the HTTP server with fixed timeouts.
func (s *Server) Start() error {
	handler := s.SetupRoutes()
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.logger.Logf("INFO starting server on %s", addr)

	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return server.ListenAndServe()
}
