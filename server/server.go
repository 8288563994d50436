package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"graph-investigator/clients"
	"graph-investigator/config"
	"graph-investigator/database"
	"graph-investigator/handlers"
	"graph-investigator/services"
)

// Server represents the HTTP server
type Server struct {
	config     *config.Config
	router     *mux.Router
	httpServer *http.Server
	logger     services.Logger

	store   *clients.Neo4jStore
	audit   *database.TurnAuditStore
	metrics *services.PipelineMetrics

	investigationHandler *handlers.InvestigationHandler
	schemaHandler        *handlers.SchemaHandler
}

// NewServer wires the pipeline and handlers and returns a server ready to
// start. The graph store and, when enabled, the audit store are connected
// and verified here.
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	logger := services.NewLoggerFromLevel(cfg.Logging.Level)

	store, err := clients.NewNeo4jStore(ctx, cfg.Neo4j)
	if err != nil {
		return nil, err
	}

	var audit *database.TurnAuditStore
	if cfg.Audit.Enabled {
		audit, err = database.NewTurnAuditStore(ctx, cfg.Audit)
		if err != nil {
			store.Close(ctx)
			return nil, err
		}
	}

	view, err := services.LoadSchemaView(cfg.Schema.Path)
	if err != nil {
		store.Close(ctx)
		return nil, err
	}

	var metrics *services.PipelineMetrics
	if cfg.Metrics.Enabled {
		metrics = services.NewPipelineMetrics()
	}

	generation := services.NewGenerationClient(&cfg.Generation)
	prompts := services.DefaultPromptSet()
	schema := services.NewSchemaProvider(view, store, logger, cfg.Schema.LiveStatistics)

	pipeline := services.NewInvestigationPipeline(
		services.NewComplexityClassifier(),
		schema,
		services.NewInvestigationPlanner(generation, prompts, logger, cfg.Pipeline.PlannerTemperature),
		services.NewQueryGenerator(generation, prompts, logger, cfg.Pipeline.GeneratorTemperature, cfg.Pipeline.RowLimit, cfg.Pipeline.MaxCandidates),
		services.NewQueryExecutor(store, generation, prompts, logger, metrics, cfg.Pipeline.RowLimit, cfg.Pipeline.ErrorTruncation),
		services.NewVisualizationEnricher(store, logger, cfg.Pipeline.EnrichmentEntityCap, cfg.Pipeline.EnrichmentRelCap),
		services.NewSynthesizer(generation, prompts, logger, cfg.Pipeline.SynthesizerTemperature, cfg.Pipeline.SynthesisRowCap, cfg.Pipeline.MaxFollowUps),
		auditStoreOrNil(audit),
		metrics,
		logger,
		cfg.Pipeline.HistoryWindow,
	)

	router := mux.NewRouter()
	server := &Server{
		config:               cfg,
		router:               router,
		logger:               logger,
		store:                store,
		audit:                audit,
		metrics:              metrics,
		investigationHandler: handlers.NewInvestigationHandler(services.NewSessionRegistry(), pipeline),
		schemaHandler:        handlers.NewSchemaHandler(schema),
		httpServer: &http.Server{
			Addr:         ":" + cfg.Server.Port,
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			IdleTimeout:  cfg.Server.IdleTimeout,
		},
	}

	server.setupRoutes()
	server.setupMiddleware()

	return server, nil
}

// auditStoreOrNil avoids a non-nil interface wrapping a nil pointer.
func auditStoreOrNil(audit *database.TurnAuditStore) services.AuditStore {
	if audit == nil {
		return nil
	}
	return audit
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/health", s.healthCheck).Methods("GET", "OPTIONS")

	// Session routes
	api.HandleFunc("/sessions", s.investigationHandler.CreateSession).Methods("POST")
	api.HandleFunc("/sessions/{id}/questions", s.investigationHandler.AskQuestion).Methods("POST")
	api.HandleFunc("/sessions/{id}/history", s.investigationHandler.GetHistory).Methods("GET")

	// Schema routes
	api.HandleFunc("/schema", s.schemaHandler.GetSchema).Methods("GET")
	api.HandleFunc("/questions/suggested", s.schemaHandler.GetSuggestedQuestions).Methods("GET")

	if s.config.Metrics.Enabled && s.metrics != nil {
		s.router.Handle(s.config.Metrics.Endpoint,
			promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{})).Methods("GET")
	}
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware() {
	// CORS must be first to handle preflight requests
	s.router.Use(s.corsMiddleware)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.recoveryMiddleware)
}

// Start starts the HTTP server and blocks until shutdown
func (s *Server) Start() error {
	log.Printf("Starting server on port %s", s.config.Server.Port)

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	return s.Shutdown()
}

// Shutdown gracefully shuts down the server and closes its stores
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err := s.httpServer.Shutdown(ctx)

	if s.audit != nil {
		if closeErr := s.audit.Close(); closeErr != nil {
			s.logger.Warn("Audit store close failed", services.Field("error", closeErr.Error()))
		}
	}
	if closeErr := s.store.Close(ctx); closeErr != nil {
		s.logger.Warn("Graph store close failed", services.Field("error", closeErr.Error()))
	}

	return err
}

// healthCheck handles health check requests
func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if _, err := s.store.Run(ctx, "RETURN 1 AS ok", nil); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprintf(w, `{"status":"unhealthy","error":%q,"timestamp":"%s"}`,
			err.Error(), time.Now().Format(time.RFC3339))
		return
	}

	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"healthy","timestamp":"%s"}`, time.Now().Format(time.RFC3339))
}
