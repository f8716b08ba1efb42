package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"encounter/internal/config"
	"encounter/internal/database"
)

// Statuts de santé du service
const (
	HealthStatusHealthy   = "healthy"
	HealthStatusUnhealthy = "unhealthy"
	HealthStatusDegraded  = "degraded"
)

// HealthHandler gère les requêtes de santé du service
type HealthHandler struct {
	config *config.Config
	db     *database.DB
}

// NewHealthHandler crée un nouveau handler de santé
func NewHealthHandler(config *config.Config, db *database.DB) *HealthHandler {
	return &HealthHandler{
		config: config,
		db:     db,
	}
}

// HealthResponse représente la réponse de santé du service
type HealthResponse struct {
	Status    string                 `json:"status"`
	Service   string                 `json:"service"`
	Timestamp time.Time              `json:"timestamp"`
	Uptime    string                 `json:"uptime"`
	Checks    map[string]HealthCheck `json:"checks"`
}

// HealthCheck représente le résultat d'une vérification de santé
type HealthCheck struct {
	Status  string                 `json:"status"`
	Message string                 `json:"message,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
	Latency string                 `json:"latency,omitempty"`
}

var serviceStartTime = time.Now()

// HealthCheck effectue une vérification complète de la santé du service
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	response := HealthResponse{
		Service:   "encounter",
		Timestamp: time.Now(),
		Uptime:    time.Since(serviceStartTime).String(),
		Checks:    make(map[string]HealthCheck),
	}

	response.Checks["database"] = h.checkDatabase()

	overallStatus := HealthStatusHealthy
	for _, check := range response.Checks {
		if check.Status == HealthStatusUnhealthy {
			overallStatus = HealthStatusUnhealthy
			break
		}
		if check.Status == HealthStatusDegraded {
			overallStatus = HealthStatusDegraded
		}
	}
	response.Status = overallStatus

	statusCode := http.StatusOK
	if overallStatus == HealthStatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, response)
}

// ReadinessCheck vérifie si le service est prêt à recevoir du traffic
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	if err := h.db.HealthCheck(); err != nil {
		logrus.WithError(err).Error("Database readiness check failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not_ready",
			"reason": "database_unavailable",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "ready",
		"service":   "encounter",
		"timestamp": time.Now(),
	})
}

// LivenessCheck vérifie si le service est en vie
func (h *HealthHandler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "alive",
		"service":   "encounter",
		"timestamp": time.Now(),
		"uptime":    time.Since(serviceStartTime).String(),
	})
}

// checkDatabase vérifie la santé de la base de données
func (h *HealthHandler) checkDatabase() HealthCheck {
	start := time.Now()

	if err := h.db.HealthCheck(); err != nil {
		return HealthCheck{
			Status:  HealthStatusUnhealthy,
			Message: "Database connection failed",
			Details: map[string]interface{}{
				"error": err.Error(),
			},
			Latency: time.Since(start).String(),
		}
	}

	stats := h.db.GetStats()

	status := HealthStatusHealthy
	if stats["open_connections"].(int) >= h.db.Config.MaxOpenConns {
		status = HealthStatusDegraded
	}

	return HealthCheck{
		Status:  status,
		Message: "Database connection successful",
		Details: stats,
		Latency: time.Since(start).String(),
	}
}
