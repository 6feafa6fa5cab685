package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/jsodeh/konvato/internal/cache"
	"github.com/jsodeh/konvato/internal/core"
	"github.com/jsodeh/konvato/internal/ratelimit"
)

// convertPayload is the inbound JSON body for a conversion request
type convertPayload struct {
	BetslipCode          string `json:"betslipCode" binding:"required"`
	SourceBookmaker      string `json:"sourceBookmaker" binding:"required"`
	DestinationBookmaker string `json:"destinationBookmaker" binding:"required"`
}

// Server is the thin HTTP surface over the conversion orchestrator
type Server struct {
	service *core.ConversionService
	manager *cache.Manager
	limiter *ratelimit.SlidingWindow
	logger  *zap.Logger
	srv     *http.Server
}

// NewServer creates the HTTP server and its routes
func NewServer(
	service *core.ConversionService,
	manager *cache.Manager,
	limiter *ratelimit.SlidingWindow,
	logger *zap.Logger,
	listenAddr string,
) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		service: service,
		manager: manager,
		limiter: limiter,
		logger:  logger,
		srv: &http.Server{
			Addr:    listenAddr,
			Handler: engine,
		},
	}

	engine.GET("/healthz", s.handleHealth)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := engine.Group("/api")
	api.Use(RateLimitMiddleware(limiter, logger))
	api.POST("/convert", s.handleConvert)
	api.GET("/cache/stats", s.handleCacheStats)

	return s
}

// handleConvert runs one conversion flow end to end
func (s *Server) handleConvert(c *gin.Context) {
	var payload convertPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, core.ConversionResult{
			Success:    false,
			Selections: []core.ConvertedSelection{},
			Warnings:   []string{},
			ErrorCode:  core.CodeValidation,
			Message:    "betslipCode, sourceBookmaker and destinationBookmaker are required",
		})
		return
	}

	req := &core.ConversionRequest{
		BetslipCode:          payload.BetslipCode,
		SourceBookmaker:      payload.SourceBookmaker,
		DestinationBookmaker: payload.DestinationBookmaker,
		ClientID:             c.ClientIP(),
	}

	result := s.service.Convert(c.Request.Context(), req)
	c.JSON(statusFor(result), result)
}

// handleCacheStats exposes the read-only cache counters
func (s *Server) handleCacheStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.manager.Stats())
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// statusFor maps the envelope's error code onto an HTTP status. The body
// shape is identical either way.
func statusFor(result *core.ConversionResult) int {
	if result.Success {
		return http.StatusOK
	}
	switch result.ErrorCode {
	case core.CodeValidation:
		return http.StatusBadRequest
	case core.CodeRateLimited:
		return http.StatusTooManyRequests
	case core.CodeTimeout:
		return http.StatusGatewayTimeout
	case core.CodeUpstreamTransient, core.CodeUpstreamRejected:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Start begins serving in the background
func (s *Server) Start() error {
	s.logger.Info("HTTP server listening", zap.String("address", s.srv.Addr))

	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server failed", zap.Error(err))
		}
	}()

	return nil
}

// Stop drains in-flight requests and shuts the listener down
func (s *Server) Stop(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	return s.srv.Shutdown(ctx)
}
