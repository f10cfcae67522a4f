package ui

import (
	"net/http"

	"biometric/app"
	"biometric/domain/core"
	"biometric/domain/filter"
	"biometric/domain/report"
	"biometric/domain/selection"
	"biometric/internal/errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const viewKey = "view"

func (s *Server) handleIndex(c *gin.Context) {
	s.renderTemplate(c, "index.html", gin.H{"OpenViews": s.registry.Len()})
}

// loadView resolves :id and stores the controller on the context
func (s *Server) loadView(c *gin.Context) {
	id, err := core.ParseID(c.Param("id"))
	if err != nil {
		s.fail(c, errors.InvalidInput(err.Error()))
		return
	}
	v, err := s.registry.Get(id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Set(viewKey, v)
	c.Next()
}

func view(c *gin.Context) *app.ViewController {
	return c.MustGet(viewKey).(*app.ViewController)
}

// bind decodes the JSON body, failing the request on malformed input
func (s *Server) bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		s.fail(c, errors.InvalidInput("invalid request body: "+err.Error()))
		return false
	}
	return true
}

// reply answers a mutation with the resulting view model
func (s *Server) reply(c *gin.Context, err error) {
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view(c).Snapshot())
}

func (s *Server) handleOpenView(c *gin.Context) {
	var req struct {
		Kind      string   `json:"kind"`
		SessionID string   `json:"session_id" binding:"required"`
		Variables []string `json:"variables"`
	}
	if !s.bind(c, &req) {
		return
	}
	kind, err := selection.ParseKind(req.Kind)
	if err != nil {
		s.fail(c, errors.InvalidInput(err.Error()))
		return
	}

	v := s.registry.Open(kind, req.SessionID)
	if len(req.Variables) > 0 {
		if err := v.SetVariables(req.Variables); err != nil {
			_ = s.registry.Close(v.ID())
			s.fail(c, err)
			return
		}
	}
	c.JSON(http.StatusCreated, v.Snapshot())
}

func (s *Server) handleGetView(c *gin.Context) {
	c.JSON(http.StatusOK, view(c).Snapshot())
}

func (s *Server) handleCloseView(c *gin.Context) {
	if err := s.registry.Close(view(c).ID()); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleSetSession(c *gin.Context) {
	var req struct {
		SessionID string `json:"session_id"`
	}
	if s.bind(c, &req) {
		s.reply(c, view(c).SetSession(req.SessionID))
	}
}

func (s *Server) handleSetVariables(c *gin.Context) {
	var req struct {
		Variables []string `json:"variables"`
	}
	if s.bind(c, &req) {
		s.reply(c, view(c).SetVariables(req.Variables))
	}
}

func (s *Server) handleToggleVariable(c *gin.Context) {
	var req struct {
		Variable string `json:"variable" binding:"required"`
	}
	if s.bind(c, &req) {
		s.reply(c, view(c).ToggleVariable(req.Variable))
	}
}

func (s *Server) handleSetMethods(c *gin.Context) {
	var req struct {
		Methods []string `json:"methods"`
	}
	if !s.bind(c, &req) {
		return
	}
	methods := make([]selection.Method, 0, len(req.Methods))
	for _, raw := range req.Methods {
		m, err := selection.ParseMethod(raw)
		if err != nil {
			s.fail(c, errors.InvalidInput(err.Error()))
			return
		}
		methods = append(methods, m)
	}
	s.reply(c, view(c).SetMethods(methods))
}

func (s *Server) handleCompareAll(c *gin.Context) {
	s.reply(c, view(c).CompareAllMethods())
}

func (s *Server) handleSetSegmentBy(c *gin.Context) {
	var req struct {
		Column string `json:"column"`
	}
	if s.bind(c, &req) {
		s.reply(c, view(c).SetSegmentBy(req.Column))
	}
}

func (s *Server) handleSetPercentiles(c *gin.Context) {
	var req struct {
		Percentiles []float64 `json:"percentiles"`
	}
	if s.bind(c, &req) {
		s.reply(c, view(c).SetCustomPercentiles(req.Percentiles))
	}
}

func (s *Server) handleAddFilter(c *gin.Context) {
	var req struct {
		Column string `json:"column"`
	}
	if !s.bind(c, &req) {
		return
	}
	rule, err := view(c).AddFilterRule(req.Column)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"rule": rule, "view": view(c).Snapshot()})
}

func (s *Server) handleRemoveLastFilter(c *gin.Context) {
	s.reply(c, view(c).RemoveLastFilterRule())
}

func (s *Server) handleRemoveFilter(c *gin.Context) {
	s.reply(c, view(c).RemoveFilterRule(core.ID(c.Param("rule"))))
}

func (s *Server) handleUpdateFilter(c *gin.Context) {
	var req struct {
		Field string `json:"field" binding:"required"`
		Value string `json:"value"`
	}
	if s.bind(c, &req) {
		s.reply(c, view(c).UpdateFilterRule(core.ID(c.Param("rule")), filter.Field(req.Field), req.Value))
	}
}

func (s *Server) handleClearFilters(c *gin.Context) {
	s.reply(c, view(c).ClearFilters())
}

func (s *Server) handleFiltersEnabled(c *gin.Context) {
	var req struct {
		Enabled bool `json:"enabled"`
	}
	if s.bind(c, &req) {
		s.reply(c, view(c).SetFiltersEnabled(req.Enabled))
	}
}

func (s *Server) handleCombineMode(c *gin.Context) {
	var req struct {
		Mode string `json:"mode" binding:"required"`
	}
	if !s.bind(c, &req) {
		return
	}
	mode, err := filter.ParseCombineMode(req.Mode)
	if err != nil {
		s.fail(c, errors.InvalidInput(err.Error()))
		return
	}
	s.reply(c, view(c).SetCombineMode(mode))
}

// handleSetActive is a tab click. A tab the result does not have is
// rejected with 409 and the unchanged view.
func (s *Server) handleSetActive(c *gin.Context) {
	var req struct {
		Segment string `json:"segment"`
		Method  string `json:"method"`
	}
	if !s.bind(c, &req) {
		return
	}
	v := view(c)
	accepted := true
	if req.Segment != "" {
		accepted = v.SelectSegment(req.Segment)
	}
	if accepted && req.Method != "" {
		accepted = v.SelectMethod(selection.Method(req.Method))
	}
	status := http.StatusOK
	if !accepted {
		status = http.StatusConflict
	}
	c.JSON(status, v.Snapshot())
}

func (s *Server) handleRenderMode(c *gin.Context) {
	var req struct {
		Mode string `json:"mode" binding:"required"`
	}
	if s.bind(c, &req) {
		s.reply(c, view(c).SetRenderMode(app.RenderMode(req.Mode)))
	}
}

func (s *Server) handleRefresh(c *gin.Context) {
	s.reply(c, view(c).Refresh())
}

func (s *Server) handleMatrix(c *gin.Context) {
	s.renderTemplate(c, "matrix", buildFragment(view(c).Snapshot(), s.now()))
}

// handleExport streams the artifact only once it is fully rendered; any
// failure is a JSON error and no file
func (s *Server) handleExport(c *gin.Context) {
	format, err := app.ParseFormat(c.DefaultQuery("format", string(app.FormatExcel)))
	if err != nil {
		s.fail(c, err)
		return
	}
	scope, err := report.ParseScope(c.Query("scope"))
	if err != nil {
		s.fail(c, err)
		return
	}

	artifact, err := view(c).Export(format, scope)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.logger.Info("export served",
		zap.String("view_id", view(c).ID().String()),
		zap.String("file", artifact.Filename),
		zap.Int("bytes", len(artifact.Data)))
	c.Header("Content-Disposition", `attachment; filename="`+artifact.Filename+`"`)
	c.Data(http.StatusOK, artifact.ContentType, artifact.Data)
}
