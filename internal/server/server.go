package server

import (
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/inkhaven/canonforge/internal/config"
	"github.com/inkhaven/canonforge/internal/core"
	"github.com/inkhaven/canonforge/internal/core/extraction"
	"github.com/inkhaven/canonforge/internal/core/lifecycle"
	"github.com/inkhaven/canonforge/internal/core/model"
	"github.com/inkhaven/canonforge/internal/driver"
	"github.com/inkhaven/canonforge/internal/llm"
	"github.com/inkhaven/canonforge/internal/logger"
)

type Server struct {
	Engine *core.Engine
	Log    *logger.Logger
}

func NewServer() (*Server, error) {
	log, err := logger.New(os.Getenv("LOG_MODE"))
	if err != nil {
		return nil, err
	}

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config/config.toml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()

	d, err := driver.NewMemgraphDriver(cfg.Memgraph.URI, cfg.Memgraph.User, cfg.Memgraph.Password)
	if err != nil {
		return nil, err
	}
	if err := d.BuildIndices(context.Background()); err != nil {
		log.Warn("failed to build indices", "error", err)
	}

	llmClient, err := llm.NewClient(context.Background(), cfg.LLM)
	if err != nil {
		return nil, err
	}

	engine := core.NewEngine(d, extraction.NewExtractor(llmClient, cfg.Extraction), log)
	engine.LookupChunkSize = cfg.Scan.LookupChunkSize
	engine.MaxDocumentChars = cfg.Scan.MaxDocumentChars

	return &Server{Engine: engine, Log: log}, nil
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.Default()

	r.POST("/scopes/:scope/scan", s.Scan)
	r.GET("/scopes/:scope/unresolved", s.ListUnresolved)
	r.POST("/scopes/:scope/candidates/:id/focus", s.BeginFocus)
	r.POST("/scopes/:scope/candidates/:id/materialize", s.Materialize)
	r.POST("/scopes/:scope/candidates/:id/discard", s.Discard)
	r.POST("/scopes/:scope/candidates/merge", s.MergeCandidates)
	r.POST("/scopes/:scope/entities/merge", s.MergeEntities)
	r.GET("/scopes/:scope/entities/:id", s.GetEntity)
	r.GET("/scopes/:scope/entities/:id/relations", s.ActiveRelations)
	r.POST("/scopes/:scope/relations", s.AddRelation)
	r.GET("/scopes/:scope/relations/history", s.RelationHistory)
	r.POST("/scopes/:scope/blacklist/restore", s.Restore)

	return r
}

type ScanRequest struct {
	Documents []core.Document    `json:"documents"`
	Types     []model.EntityType `json:"types,omitempty"`
}

func (s *Server) Scan(c *gin.Context) {
	var req ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	result, err := s.Engine.ScanPass(c.Request.Context(), c.Param("scope"), req.Documents, core.PassOptions{Types: req.Types})
	if err != nil {
		s.Log.Error("scan pass failed", "scope", c.Param("scope"), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to run scan pass"})
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) ListUnresolved(c *gin.Context) {
	queue := s.Engine.ListUnresolved(c.Request.Context(), c.Param("scope"))
	c.JSON(http.StatusOK, gin.H{"unresolved": queue})
}

func (s *Server) BeginFocus(c *gin.Context) {
	rc, err := s.Engine.BeginFocus(c.Request.Context(), c.Param("scope"), c.Param("id"))
	if err != nil {
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, rc)
}

func (s *Server) Materialize(c *gin.Context) {
	var overrides core.Overrides
	// Body is optional; an empty body materializes with candidate values as-is.
	_ = c.ShouldBindJSON(&overrides)

	ent, err := s.Engine.Materialize(c.Request.Context(), c.Param("scope"), c.Param("id"), overrides)
	if err != nil {
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, ent)
}

type DiscardRequest struct {
	Hard bool `json:"hard"`
}

func (s *Server) Discard(c *gin.Context) {
	var req DiscardRequest
	// Body is optional; the default is a soft discard.
	_ = c.ShouldBindJSON(&req)

	level := lifecycle.DiscardSoft
	if req.Hard {
		level = lifecycle.DiscardHard
	}
	if err := s.Engine.Discard(c.Request.Context(), c.Param("scope"), c.Param("id"), level); err != nil {
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "discarded"})
}

type MergeRequest struct {
	WinnerID string   `json:"winner_id"`
	LoserIDs []string `json:"loser_ids"`
}

func (s *Server) MergeEntities(c *gin.Context) {
	var req MergeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	winner, err := s.Engine.MergeEntities(c.Request.Context(), c.Param("scope"), req.WinnerID, req.LoserIDs)
	if err != nil {
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, winner)
}

func (s *Server) MergeCandidates(c *gin.Context) {
	var req MergeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	winner, err := s.Engine.MergeCandidates(c.Request.Context(), c.Param("scope"), req.WinnerID, req.LoserIDs)
	if err != nil {
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, winner)
}

func (s *Server) GetEntity(c *gin.Context) {
	ent, err := s.Engine.GetEntity(c.Request.Context(), c.Param("scope"), c.Param("id"))
	if err != nil {
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, ent)
}

func (s *Server) AddRelation(c *gin.Context) {
	var req core.RelationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	edge, err := s.Engine.AddRelation(c.Request.Context(), c.Param("scope"), req)
	if err != nil {
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, edge)
}

func (s *Server) ActiveRelations(c *gin.Context) {
	edges := s.Engine.ActiveRelations(c.Request.Context(), c.Param("scope"), c.Param("id"))
	c.JSON(http.StatusOK, gin.H{"relations": edges})
}

func (s *Server) RelationHistory(c *gin.Context) {
	source := c.Query("source")
	target := c.Query("target")
	if source == "" || target == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "source and target are required"})
		return
	}
	history := s.Engine.RelationHistory(c.Request.Context(), c.Param("scope"), source, target)
	c.JSON(http.StatusOK, gin.H{"history": history})
}

type RestoreRequest struct {
	Name string `json:"name"`
}

func (s *Server) Restore(c *gin.Context) {
	var req RestoreRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if err := s.Engine.Restore(c.Request.Context(), c.Param("scope"), req.Name); err != nil {
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "restored"})
}

func respondEngineError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, core.ErrCandidateNotFound), errors.Is(err, core.ErrEntityNotFound), errors.Is(err, core.ErrNotBlacklisted):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, core.ErrPreconditionFailed):
		c.JSON(http.StatusPreconditionFailed, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
