package ui

import (
	"bytes"
	"context"
	stderrors "errors"
	"html/template"
	"net/http"
	"time"

	"biometric/app"
	"biometric/internal/config"
	"biometric/internal/errors"
	"biometric/internal/logging"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Server is the HTTP front of the view registry: JSON mutations, an SSE
// stream of view models, the HTML table fragment and export downloads
type Server struct {
	router    *gin.Engine
	registry  *app.Registry
	templates *template.Template
	logger    *zap.Logger
	cfg       config.ServerConfig

	// keepAlive is the SSE ping interval
	keepAlive time.Duration
	now       func() time.Time
}

// NewServer wires routes onto a fresh gin engine
func NewServer(registry *app.Registry, cfg config.ServerConfig, logger *zap.Logger) (*Server, error) {
	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}
	tmpl, err := parseTemplates()
	if err != nil {
		return nil, err
	}

	s := &Server{
		router:    gin.New(),
		registry:  registry,
		templates: tmpl,
		logger:    logging.OrNop(logger).Named("ui"),
		cfg:       cfg,
		keepAlive: 30 * time.Second,
		now:       time.Now,
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s, nil
}

// Handler exposes the router, mainly for httptest
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.requestLogger())
}

func (s *Server) setupRoutes() {
	s.router.GET("/", s.handleIndex)
	s.router.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	views := s.router.Group("/api/views")
	views.POST("", s.handleOpenView)

	v := views.Group("/:id", s.loadView)
	v.GET("", s.handleGetView)
	v.DELETE("", s.handleCloseView)
	v.PUT("/session", s.handleSetSession)
	v.PUT("/variables", s.handleSetVariables)
	v.POST("/variables/toggle", s.handleToggleVariable)
	v.PUT("/methods", s.handleSetMethods)
	v.POST("/methods/compare-all", s.handleCompareAll)
	v.PUT("/segment-by", s.handleSetSegmentBy)
	v.PUT("/percentiles", s.handleSetPercentiles)
	v.POST("/filters", s.handleAddFilter)
	v.DELETE("/filters", s.handleClearFilters)
	v.DELETE("/filters/last", s.handleRemoveLastFilter)
	v.PATCH("/filters/:rule", s.handleUpdateFilter)
	v.DELETE("/filters/:rule", s.handleRemoveFilter)
	v.PUT("/filters/enabled", s.handleFiltersEnabled)
	v.PUT("/filters/mode", s.handleCombineMode)
	v.PUT("/active", s.handleSetActive)
	v.PUT("/render-mode", s.handleRenderMode)
	v.POST("/refresh", s.handleRefresh)
	v.GET("/matrix", s.handleMatrix)
	v.GET("/export", s.handleExport)
	v.GET("/events", s.handleEvents)
}

// Run serves on addr until ctx is cancelled, then drains for up to five seconds
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.router, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("ui listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.registry.CloseAll()
	return err
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		// the event stream is long-lived and logged by its handler
		if c.FullPath() == "/api/views/:id/events" {
			return
		}
		s.logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)))
	}
}

// renderTemplate renders into a buffer first so a template error never
// leaves a half-written page
func (s *Server) renderTemplate(c *gin.Context, name string, data any) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.logger.Error("template failed", zap.String("template", name), zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "template rendering failed"})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

// statusFor maps error codes onto HTTP statuses
func statusFor(err error) int {
	switch errors.GetCode(err) {
	case errors.CodeValidationError, errors.CodeInvalidInput:
		return http.StatusBadRequest
	case errors.CodeNotFound:
		return http.StatusNotFound
	case errors.CodeExport:
		return http.StatusUnprocessableEntity
	case app.ErrViewClosed.Code:
		return http.StatusGone
	case errors.CodeAggregation:
		return http.StatusBadGateway
	case errors.CodeTimeout:
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func (s *Server) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.AbortWithStatusJSON(status, gin.H{"error": errors.Message(err), "code": errors.GetCode(err)})
}
