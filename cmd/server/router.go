package main

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/ZanzyTHEbar/supply-risk-simulator/docs"
	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/adapters"
	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/analysis"
	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/cache"
	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/config"
	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/contact"
	apperrors "github.com/ZanzyTHEbar/supply-risk-simulator/internal/errors"
	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/generation"
	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/monitoring"
	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/ratelimit"
	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/resilience"
	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/security"
	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/types"
)

// server holds everything the handlers need. It is built once in buildServer, or directly by tests.
type server struct {
	cfg       config.Config
	analysis  *analysis.Service
	modes     *generation.Modes
	contact   *contact.Service
	limiter   *ratelimit.RateLimiter
	redis     *ratelimit.RedisClient
	health    *resilience.DegradationManager
	pools     map[string]*resilience.ConnectionPool
	responses *cache.Cache[[]byte]
	metrics   *monitoring.Metrics
	logger    *monitoring.Logger
	tracer    *monitoring.Tracer
	security  *security.SecurityMiddleware

	newsSource   *adapters.NewsSource
	marketSource *adapters.MarketSource
	closers      []io.Closer
}

// cachedPaths are the routes whose responses depend only on the request body.
var cachedPaths = []string{"/risk-score", "/api/risk-score"}

func setupRouter(s *server) *gin.Engine {
	r := gin.New()

	r.Use(cors.New(corsConfig(s.cfg.CORSOrigins)))
	r.Use(monitoring.RequestIDMiddleware())
	r.Use(monitoring.TracingMiddleware(s.tracer))
	r.Use(monitoring.MonitoringMiddleware(s.metrics, s.logger))
	r.Use(monitoring.SecurityMonitoringMiddleware(s.logger))
	r.Use(apperrors.ErrorHandler())
	r.Use(apperrors.RecoveryHandler())
	r.Use(s.security.SecurityHeaders)
	r.Use(s.security.ValidateContentType)
	r.Use(s.security.LimitBody)

	registerRoutes(&r.RouterGroup, s)
	registerRoutes(r.Group("/api"), s)

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}

func registerRoutes(g *gin.RouterGroup, s *server) {
	// Generation calls can take minutes across retries, so only the rate limiter guards them.
	gen := g.Group("", s.limiter.IPRateLimitMiddleware())
	gen.POST("/disruption-analysis", s.handleDisruptionAnalysis)
	gen.POST("/disruption-explain", s.handleDisruptionExplain)
	gen.POST("/mitigation-plan", s.handleMitigationPlan)
	gen.POST("/evaluate-suppliers", s.handleEvaluateSuppliers)
	gen.POST("/find-supplier", s.handleFindSupplier)
	gen.POST("/component-info", s.handleComponentInfo)
	gen.POST("/ai-action", s.handleAIAction)
	gen.POST("/scenario-probability", s.handleScenarioProbability)

	local := g.Group("", s.security.RequestTimeout)
	local.POST("/generate-supply-chain-news", s.handleNews)
	local.POST("/contact", s.handleContact)
	local.POST("/risk-score", cache.Middleware(s.responses, s.metrics, cachedPaths...), s.handleRiskScore)
	local.GET("/model-modes", s.handleModelModes)
	local.GET("/health", s.handleHealth)
	local.GET("/health/services", s.handleServiceHealth)
	local.GET("/metrics", s.handleMetrics)
	local.GET("/rate-limit/status", s.limiter.HandleRateLimitStatus())
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "X-Request-ID"},
		ExposeHeaders: []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		MaxAge:        12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	if len(origins) == 0 {
		origins = config.DefaultCORSOrigins
	}
	cfg.AllowOrigins = origins
	return cfg
}

// bindJSON decodes the body into obj and answers 422 when it does not fit
func bindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		respondError(c, apperrors.NewValidationError("invalid request body", err.Error()))
		return false
	}
	return true
}

func respondError(c *gin.Context, err error) {
	appErr := apperrors.ToAppError(err)
	apperrors.LogError(c, appErr)
	apperrors.RespondError(c, appErr)
}

// cleanText strips markup from free text and enforces the length limit
func (s *server) cleanText(field string, text types.FlexText) (types.FlexText, error) {
	if err := s.security.ValidateText(field, text.String()); err != nil {
		return "", err
	}
	return types.FlexText(s.security.SanitizeInput(text.String())), nil
}

//	@Summary	Generate disruption scenarios for a BOM
//	@Tags		analysis
//	@Accept		json
//	@Produce	json
//	@Param		request	body		types.DisruptionAnalysisRequest	true	"BOM, KPI history and concerns"
//	@Success	200		{object}	types.ResultResponse
//	@Router		/disruption-analysis [post]
func (s *server) handleDisruptionAnalysis(c *gin.Context) {
	var req types.DisruptionAnalysisRequest
	if !bindJSON(c, &req) {
		return
	}
	openText, err := s.cleanText("openText", req.OpenText)
	if err != nil {
		respondError(c, err)
		return
	}
	req.OpenText = openText

	result, err := s.analysis.DisruptionAnalysis(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, types.ResultResponse{Result: result})
}

//	@Summary	Explain one disruption scenario
//	@Tags		analysis
//	@Accept		json
//	@Produce	json
//	@Param		request	body		types.DisruptionExplainRequest	true	"Scenario and context"
//	@Success	200		{object}	analysis.Explanation
//	@Router		/disruption-explain [post]
func (s *server) handleDisruptionExplain(c *gin.Context) {
	var req types.DisruptionExplainRequest
	if !bindJSON(c, &req) {
		return
	}
	openText, err := s.cleanText("openText", req.OpenText)
	if err != nil {
		respondError(c, err)
		return
	}
	req.OpenText = openText

	explanation, err := s.analysis.ExplainScenario(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, explanation)
}

func (s *server) handleMitigationPlan(c *gin.Context) {
	var req types.MitigationPlanRequest
	if !bindJSON(c, &req) {
		return
	}
	openText, err := s.cleanText("openText", req.OpenText)
	if err != nil {
		respondError(c, err)
		return
	}
	req.OpenText = openText
	for k, v := range req.UserInput {
		if req.UserInput[k], err = s.cleanText(k, v); err != nil {
			respondError(c, err)
			return
		}
	}

	result, err := s.analysis.MitigationPlan(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, types.ResultResponse{Result: result})
}

func (s *server) handleEvaluateSuppliers(c *gin.Context) {
	var req types.SupplierEvaluationRequest
	if !bindJSON(c, &req) {
		return
	}
	req.PartNumber = strings.TrimSpace(req.PartNumber)
	if err := s.security.ValidatePartNumber(req.PartNumber); err != nil {
		respondError(c, err)
		return
	}

	eval, err := s.analysis.EvaluateSuppliers(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, eval)
}

func (s *server) handleFindSupplier(c *gin.Context) {
	var req types.PartRequest
	if !bindJSON(c, &req) {
		return
	}
	req.PartNumber = strings.TrimSpace(req.PartNumber)
	if err := s.security.ValidatePartNumber(req.PartNumber); err != nil {
		respondError(c, err)
		return
	}

	result, err := s.analysis.FindSupplier(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, types.ResultResponse{Result: result})
}

func (s *server) handleComponentInfo(c *gin.Context) {
	var req types.PartRequest
	if !bindJSON(c, &req) {
		return
	}
	req.PartNumber = strings.TrimSpace(req.PartNumber)
	if err := s.security.ValidatePartNumber(req.PartNumber); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.analysis.ComponentInfo(c.Request.Context(), req))
}

func (s *server) handleAIAction(c *gin.Context) {
	var req types.AIActionRequest
	if !bindJSON(c, &req) {
		return
	}
	userContext, err := s.cleanText("userContext", req.UserContext)
	if err != nil {
		respondError(c, err)
		return
	}
	req.UserContext = userContext

	result, err := s.analysis.AIAction(c.Request.Context(), req)
	if err != nil {
		appErr := apperrors.ToAppError(err)
		if appErr.Category == apperrors.CategoryValidation {
			respondError(c, appErr)
			return
		}
		apperrors.LogError(c, appErr)
		c.JSON(http.StatusOK, types.ResultResponse{Error: "Failed to generate AI action content: " + appErr.Message()})
		return
	}
	c.JSON(http.StatusOK, types.ResultResponse{Result: result})
}

func (s *server) handleScenarioProbability(c *gin.Context) {
	var req types.ScenarioProbabilityRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := s.analysis.ScenarioProbability(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *server) handleNews(c *gin.Context) {
	var req types.NewsRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}
	req.Prompt = s.security.SanitizeInput(req.Prompt)
	c.JSON(http.StatusOK, gin.H{"headlines": s.analysis.SupplyChainNews(c.Request.Context(), req)})
}

func (s *server) handleContact(c *gin.Context) {
	var req types.ContactRequest
	if !bindJSON(c, &req) {
		return
	}
	receipt, err := s.contact.Submit(req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, receipt)
}

//	@Summary	Score a BOM and KPI history without generation
//	@Tags		analysis
//	@Accept		json
//	@Produce	json
//	@Param		request	body	types.RiskScoreRequest	true	"BOM, KPI and scenario type"
//	@Router		/risk-score [post]
func (s *server) handleRiskScore(c *gin.Context) {
	var req types.RiskScoreRequest
	if !bindJSON(c, &req) {
		return
	}
	c.JSON(http.StatusOK, s.analysis.RiskScore(req))
}

func (s *server) handleModelModes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"modes":   s.modes.List(),
		"default": s.modes.Default(),
	})
}

func (s *server) handleHealth(c *gin.Context) {
	response := gin.H{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   version,
		"services":  s.health.GetAllServiceHealth(),
	}

	if s.health.OverallLevel() == resilience.LevelEmergency {
		response["status"] = "degraded"
		c.JSON(http.StatusServiceUnavailable, response)
		return
	}
	c.JSON(http.StatusOK, response)
}

func (s *server) handleServiceHealth(c *gin.Context) {
	breakers := make(map[string]interface{}, len(s.pools))
	for name, p := range s.pools {
		breakers[name] = p.GetStats()
	}

	c.JSON(http.StatusOK, gin.H{
		"services":         s.health.GetAllServiceHealth(),
		"circuit_breakers": breakers,
		"redis":            s.redis.PoolStats(),
		"response_cache":   s.responses.Stats(),
		"timestamp":        time.Now().Format(time.RFC3339),
	})
}

func (s *server) handleMetrics(c *gin.Context) {
	stats := s.metrics.GetStats()
	stats["rate_limit"] = s.metrics.GetRateLimitStats()
	c.JSON(http.StatusOK, stats)
}
