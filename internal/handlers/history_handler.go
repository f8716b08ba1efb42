package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"encounter/internal/middleware"
	"encounter/internal/service"
)

// HistoryHandler gère les requêtes HTTP de l'historique de combat
type HistoryHandler struct {
	history service.HistoryServiceInterface
}

// NewHistoryHandler crée une nouvelle instance du handler d'historique
func NewHistoryHandler(history service.HistoryServiceInterface) *HistoryHandler {
	return &HistoryHandler{history: history}
}

// GetLocationHistory retourne l'historique du joueur sur un lieu
// GET /api/v1/history/locations/:locationId
func (h *HistoryHandler) GetLocationHistory(c *gin.Context) {
	userID, err := middleware.UserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	locationID, err := uuid.Parse(c.Param("locationId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid location ID"})
		return
	}

	history, err := h.history.GetHistory(userID, locationID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, history)
}

// GetStats retourne les statistiques agrégées du joueur
// GET /api/v1/history/stats
func (h *HistoryHandler) GetStats(c *gin.Context) {
	userID, err := middleware.UserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	stats, err := h.history.GetStats(userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// GetTopLocations retourne les lieux les plus fréquentés du joueur
// GET /api/v1/history/top?limit=10
func (h *HistoryHandler) GetTopLocations(c *gin.Context) {
	userID, err := middleware.UserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	limit := 10
	if raw := c.Query("limit"); raw != "" {
		parsed, perr := strconv.Atoi(raw)
		if perr != nil || parsed < 1 || parsed > 100 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit, must be between 1 and 100"})
			return
		}
		limit = parsed
	}

	top, err := h.history.GetTopLocations(userID, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"locations": top, "count": len(top)})
}
