package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"rectifier-sim/config"
	"rectifier-sim/internal/export"
	"rectifier-sim/internal/rectifier"
	"rectifier-sim/internal/runner"
	"rectifier-sim/internal/storage"
	"rectifier-sim/internal/sweep"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
)

const maxSweepSteps = 200

type Server struct {
	router      *gin.Engine
	server      *http.Server
	runner      *runner.Runner
	db          *storage.Database
	port        int
	corsOrigins []string
	config      *config.Config
	configPath  string
	configMutex sync.RWMutex
}

type ServerConfig struct {
	Port       int
	Runner     *runner.Runner
	Database   *storage.Database
	Config     *config.Config
	ConfigPath string
}

func NewServer(cfg ServerConfig) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gin.Logger())

	s := &Server{
		router:      router,
		runner:      cfg.Runner,
		db:          cfg.Database,
		port:        cfg.Port,
		corsOrigins: cfg.Config.API.CORSOrigins,
		config:      cfg.Config,
		configPath:  cfg.ConfigPath,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	// Health check
	s.router.GET("/health", s.healthHandler)

	// API routes
	api := s.router.Group("/api/v1")
	{
		api.GET("/parameters/defaults", s.defaultParametersHandler)
		api.POST("/simulate", s.simulateHandler)
		api.POST("/sweep", s.sweepHandler)

		api.GET("/results/latest", s.latestResultHandler)
		api.GET("/results/latest/chart.html", s.latestChartHandler)
		api.GET("/results/latest/plot.png", s.latestPlotHandler)
		api.GET("/results/latest/export.xlsx", s.latestWorkbookHandler)
		api.GET("/results/latest/waveforms.tsv", s.latestTSVHandler)

		api.GET("/runs", s.runsHandler)
		api.GET("/runs/stats", s.runStatsHandler)
		api.GET("/runs/:id", s.runHandler)

		// Config routes
		api.GET("/config/circuit", s.getCircuitConfigHandler)
		api.PUT("/config/circuit", s.updateCircuitConfigHandler)
	}
}

// Handler returns the router wrapped in the CORS middleware.
func (s *Server) Handler() http.Handler {
	origins := s.corsOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: false,
	})
	return c.Handler(s.router)
}

func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Printf("API server starting on port %d", s.port)
	return s.server.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) healthHandler(c *gin.Context) {
	mqttConnected := false
	if pub := s.runner.Publisher(); pub != nil {
		mqttConnected = pub.IsConnected()
	}

	c.JSON(http.StatusOK, gin.H{
		"status":         "healthy",
		"runs":           s.runner.RunCount(),
		"has_result":     s.runner.Latest() != nil,
		"mqtt_connected": mqttConnected,
		"timestamp":      time.Now(),
	})
}

// defaults returns the configured parameter set.
func (s *Server) defaults() (rectifier.Parameters, error) {
	s.configMutex.RLock()
	defer s.configMutex.RUnlock()
	return s.config.Circuit.Parameters()
}

func (s *Server) defaultParametersHandler(c *gin.Context) {
	p, err := s.defaults()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, p)
}

// bindOverrides decodes the request body on top of v. An empty body
// keeps v unchanged.
func bindOverrides(c *gin.Context, v interface{}) error {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	return json.Unmarshal(body, v)
}

// ResultResponse is the JSON view of a run, optionally with its series.
type ResultResponse struct {
	ID uint `json:"id,omitempty"`
	*rectifier.Result
	Series map[string][]float64 `json:"series,omitempty"`
}

func (s *Server) maxPoints(c *gin.Context) int {
	s.configMutex.RLock()
	n := s.config.Export.MaxChartPoints
	s.configMutex.RUnlock()

	if v, err := strconv.Atoi(c.Query("max_points")); err == nil && v > 0 {
		n = v
	}
	return n
}

func (s *Server) resultResponse(c *gin.Context, id uint, res *rectifier.Result) ResultResponse {
	resp := ResultResponse{ID: id, Result: res}
	if c.Query("series") == "true" {
		resp.Series = make(map[string][]float64)
		for _, col := range export.Downsample(export.Columns(res), s.maxPoints(c)) {
			resp.Series[col.Key] = col.Values
		}
	}
	return resp
}

func (s *Server) simulateHandler(c *gin.Context) {
	p, err := s.defaults()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if err := bindOverrides(c, &p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := s.runner.Run(p, "api")
	if err != nil {
		writeRunError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.resultResponse(c, s.runner.LatestID(), res))
}

func writeRunError(c *gin.Context, err error) {
	if errors.Is(err, rectifier.ErrInvalidParameter) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

// SweepRequest describes a sweep over the configured defaults, with
// optional parameter overrides.
type SweepRequest struct {
	Parameter  string          `json:"parameter" binding:"required"`
	Min        float64         `json:"min"`
	Max        float64         `json:"max"`
	Steps      int             `json:"steps" binding:"required,min=1"`
	Scale      string          `json:"scale"`
	Parameters json.RawMessage `json:"parameters"`
}

// SweepResponse carries the grid and its points.
type SweepResponse struct {
	Spec   sweep.Spec    `json:"spec"`
	Scale  string        `json:"scale"`
	Points []sweep.Point `json:"points"`
}

func (s *Server) sweepHandler(c *gin.Context) {
	var req SweepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Steps > maxSweepSteps {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("steps must be <= %d", maxSweepSteps)})
		return
	}

	scale, err := sweep.ParseScale(req.Scale)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	spec := sweep.Spec{Parameter: req.Parameter, Min: req.Min, Max: req.Max, Steps: req.Steps, Scale: scale}
	if err := spec.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	base, err := s.defaults()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if len(req.Parameters) > 0 {
		if err := json.Unmarshal(req.Parameters, &base); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	points, err := s.runner.Sweep(c.Request.Context(), base, spec)
	if err != nil {
		writeRunError(c, err)
		return
	}
	c.JSON(http.StatusOK, SweepResponse{Spec: spec, Scale: scale.String(), Points: points})
}

// latest aborts with 503 before the first run.
func (s *Server) latest(c *gin.Context) *rectifier.Result {
	res := s.runner.Latest()
	if res == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "No simulation has run yet",
		})
	}
	return res
}

func (s *Server) latestResultHandler(c *gin.Context) {
	res := s.latest(c)
	if res == nil {
		return
	}
	c.JSON(http.StatusOK, s.resultResponse(c, s.runner.LatestID(), res))
}

// render writes one export of the latest result with the given type.
func (s *Server) render(c *gin.Context, contentType, attachment string, write func(w io.Writer, res *rectifier.Result) error) {
	res := s.latest(c)
	if res == nil {
		return
	}

	var buf bytes.Buffer
	if err := write(&buf, res); err != nil {
		log.Printf("Error rendering %s: %v", contentType, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if attachment != "" {
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", attachment))
	}
	c.Data(http.StatusOK, contentType, buf.Bytes())
}

func (s *Server) latestChartHandler(c *gin.Context) {
	n := s.maxPoints(c)
	s.render(c, "text/html; charset=utf-8", "", func(w io.Writer, res *rectifier.Result) error {
		return export.WriteHTML(w, res, n)
	})
}

func (s *Server) latestPlotHandler(c *gin.Context) {
	n := s.maxPoints(c)
	s.configMutex.RLock()
	size := export.PlotSize{Width: s.config.Export.PlotWidthCM, Height: s.config.Export.PlotHeightCM}
	s.configMutex.RUnlock()

	s.render(c, "image/png", "", func(w io.Writer, res *rectifier.Result) error {
		return export.WritePNG(w, res, n, size)
	})
}

func (s *Server) latestWorkbookHandler(c *gin.Context) {
	s.render(c, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "rectifier.xlsx",
		func(w io.Writer, res *rectifier.Result) error {
			return export.WriteXLSX(w, res, 0)
		})
}

func (s *Server) latestTSVHandler(c *gin.Context) {
	n, _ := strconv.Atoi(c.Query("max_points"))
	s.render(c, "text/tab-separated-values; charset=utf-8", "waveforms.tsv", func(w io.Writer, res *rectifier.Result) error {
		return export.WriteTSV(w, res, n)
	})
}

func (s *Server) runsHandler(c *gin.Context) {
	if s.db == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Run archive is disabled"})
		return
	}

	fromStr := c.Query("from")
	toStr := c.Query("to")
	limitStr := c.DefaultQuery("limit", "100")

	var limit int
	fmt.Sscanf(limitStr, "%d", &limit)
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	if fromStr != "" && toStr != "" {
		from, err := time.Parse(time.RFC3339, fromStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid 'from' date format"})
			return
		}
		to, err := time.Parse(time.RFC3339, toStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid 'to' date format"})
			return
		}

		runs, err := s.db.GetRunsByRange(from, to)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, runs)
		return
	}

	if modeStr := c.Query("mode"); modeStr != "" {
		mode, err := rectifier.ParseMode(modeStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		runs, err := s.db.GetRunsByMode(mode, limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, runs)
		return
	}

	runs, err := s.db.GetRunsWithLimit(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, runs)
}

func (s *Server) runStatsHandler(c *gin.Context) {
	if s.db == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Run archive is disabled"})
		return
	}

	stats, err := s.db.GetModeStats()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	total, err := s.db.CountRuns()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"total": total, "modes": stats})
}

func (s *Server) runHandler(c *gin.Context) {
	if s.db == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Run archive is disabled"})
		return
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid run id"})
		return
	}
	run, err := s.db.GetRun(uint(id))
	if errors.Is(err, storage.ErrNoRuns) {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("Run %d not found", id)})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, run)
}

// Get current circuit defaults
func (s *Server) getCircuitConfigHandler(c *gin.Context) {
	s.configMutex.RLock()
	defer s.configMutex.RUnlock()
	c.JSON(http.StatusOK, s.config.Circuit)
}

// Update circuit defaults, partial bodies keep the other fields
func (s *Server) updateCircuitConfigHandler(c *gin.Context) {
	s.configMutex.RLock()
	req := s.config.Circuit
	s.configMutex.RUnlock()

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, err := req.Parameters()
	if err == nil {
		err = p.Validate()
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	// Normalize the mode name
	req.Mode = p.Mode.String()

	s.configMutex.Lock()
	s.config.Circuit = req
	s.configMutex.Unlock()

	if err := config.SaveCircuit(s.configPath, req); err != nil {
		log.Printf("Warning: Failed to save config to file: %v", err)
		c.JSON(http.StatusOK, gin.H{
			"message": "Circuit defaults updated (not persisted)",
			"warning": err.Error(),
			"circuit": req,
		})
		return
	}

	log.Printf("Circuit defaults updated: %s, %.0f V, %.0f µF", req.Mode, req.SourceRMSVoltage, req.FilterCapacitanceUF)
	c.JSON(http.StatusOK, gin.H{
		"message": "Circuit defaults updated",
		"circuit": req,
	})
}
