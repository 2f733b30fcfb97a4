package cmd

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/drawdown-sim/drawdown-sim/sim"
)

// Handler exposes a Simulator over HTTP.
type Handler struct {
	simulator *Simulator
}

// NewHandler creates an HTTP handler for s.
func NewHandler(s *Simulator) *Handler {
	return &Handler{simulator: s}
}

// RegisterRoutes binds the handler to router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.POST("/simulate", h.Simulate)
	router.GET("/healthz", h.Health)
}

// Simulate accepts form or JSON parameters and returns deciles and summary statistics.
func (h *Handler) Simulate(c *gin.Context) {
	var req SimulationRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": sim.ErrInvalidInput.Error() + ": " + err.Error()})
		return
	}

	resp, _, err := h.simulator.Simulate(c.Request.Context(), req)
	if err != nil {
		status := StatusCode(err)
		if status >= http.StatusInternalServerError {
			logrus.Errorf("Simulation failed: %v", err)
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Health reports liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// NewRouter builds the gin engine with recovery and request logging.
func NewRouter(s *Simulator) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())
	NewHandler(s).RegisterRoutes(router)
	return router
}

// requestLogger logs one line per request through logrus.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logrus.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start),
		}).Info("request")
	}
}
