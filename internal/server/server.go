// Package server exposes the convergence engine and its collaborators over
// HTTP. Transport concerns stop here: handlers bind and validate payloads,
// then delegate to the owning component.
package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/attractorlabs/attractor/internal/engine"
	"github.com/attractorlabs/attractor/internal/scenario"
	"github.com/attractorlabs/attractor/internal/session"
	"github.com/attractorlabs/attractor/internal/twin"
	"github.com/attractorlabs/attractor/internal/types"
)

// Version is reported by the health endpoint; overridden at build time.
var Version = "dev"

// Server wires the HTTP surface to the engine and its collaborators.
type Server struct {
	engine    *engine.Engine
	executor  *scenario.Executor
	evaluator *scenario.Evaluator
	twins     *twin.Manager
	registry  *session.Registry
	log       zerolog.Logger
}

// Config wires a Server.
type Config struct {
	Engine    *engine.Engine
	Executor  *scenario.Executor
	Evaluator *scenario.Evaluator
	Twins     *twin.Manager
	Registry  *session.Registry
	Logger    zerolog.Logger
}

// New creates a Server.
func New(cfg Config) *Server {
	return &Server{
		engine:    cfg.Engine,
		executor:  cfg.Executor,
		evaluator: cfg.Evaluator,
		twins:     cfg.Twins,
		registry:  cfg.Registry,
		log:       cfg.Logger,
	}
}

// Router builds the gin engine with all routes and middleware attached.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(s.requestLogger())

	r.GET("/health", s.handleHealth)
	r.GET("/ready", s.handleReady)

	attractor := r.Group("/attractor")
	{
		attractor.POST("/converge", s.handleConverge)
		attractor.POST("/converge-async", s.handleConvergeAsync)
		attractor.GET("/status/:spec_id", s.handleStatus)
	}

	specs := r.Group("/specs")
	{
		specs.POST("/validate", s.handleSpecValidate)
		specs.POST("/compile", s.handleSpecCompile)
	}

	r.POST("/scenarios/execute-batch", s.handleExecuteBatch)
	r.POST("/evaluate", s.handleEvaluate)

	dtu := r.Group("/dtu")
	{
		dtu.POST("/provision", s.handleProvision)
		dtu.GET("/environments", s.handleEnvironments)
		dtu.GET("/:namespace", s.handleEnvironmentStatus)
		dtu.DELETE("/:namespace", s.handleTeardown)
	}

	return r
}

// Run serves HTTP until the context is canceled or the listener fails.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Router()}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	s.log.Info().Str("addr", addr).Msg("attractor.server.listening")

	select {
	case <-ctx.Done():
		s.log.Info().Msg("attractor.server.shutdown")
		return srv.Shutdown(context.Background())
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "attractor", "version": Version})
}

func (s *Server) handleReady(c *gin.Context) {
	components := gin.H{
		"engine":   s.engine != nil,
		"executor": s.executor != nil,
		"twins":    s.twins != nil,
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready", "components": components})
}

func (s *Server) handleConverge(c *gin.Context) {
	var req types.ConvergeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := s.engine.Converge(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleConvergeAsync(c *gin.Context) {
	var req types.ConvergeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Reject malformed requests synchronously; the loop itself runs detached.
	probe := req
	probe.ApplyDefaults()
	if err := probe.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if s.registry != nil {
		s.registry.Begin(req.SpecID)
	}
	go func() {
		if _, err := s.engine.Converge(context.Background(), req); err != nil {
			s.log.Error().Str("spec_id", req.SpecID).Err(err).Msg("attractor.converge_async.failed")
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{
		"spec_id": req.SpecID,
		"state":   types.StateInitializing,
	})
}

func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.engine.Status(c.Param("spec_id")))
}

func (s *Server) handleExecuteBatch(c *gin.Context) {
	var req scenario.BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, s.executor.ExecuteBatch(c.Request.Context(), req))
}

func (s *Server) handleEvaluate(c *gin.Context) {
	var req struct {
		SpecID string         `json:"spec_id" binding:"required"`
		Spec   map[string]any `json:"spec"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	satisfaction, criteriaScores, cost, err := s.evaluator.Evaluate(c.Request.Context(), req.SpecID, req.Spec)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"spec_id":         req.SpecID,
		"satisfaction":    satisfaction,
		"criteria_scores": criteriaScores,
		"cost_usd":        cost,
	})
}
