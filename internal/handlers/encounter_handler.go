package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"encounter/internal/middleware"
	"encounter/internal/models"
	"encounter/internal/service"
)

// EncounterHandler gère les requêtes HTTP des rencontres de combat
type EncounterHandler struct {
	encounters service.EncounterServiceInterface
	sessions   service.SessionServiceInterface
	journal    service.JournalServiceInterface
}

// NewEncounterHandler crée une nouvelle instance du handler de rencontres
func NewEncounterHandler(encounters service.EncounterServiceInterface, sessions service.SessionServiceInterface, journal service.JournalServiceInterface) *EncounterHandler {
	return &EncounterHandler{
		encounters: encounters,
		sessions:   sessions,
		journal:    journal,
	}
}

// respondError traduit la taxonomie d'erreurs en statuts HTTP
func respondError(c *gin.Context, err error) {
	requestID := c.GetHeader("X-Request-ID")

	switch {
	case models.IsValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "request_id": requestID})
	case models.IsBusinessLogic(err):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "request_id": requestID})
	case models.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error(), "request_id": requestID})
	case models.IsSelection(err):
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "request_id": requestID})
	default:
		logrus.WithError(err).WithField("path", c.Request.URL.Path).Error("Unhandled error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error", "request_id": requestID})
	}
}

// StartEncounter démarre une nouvelle rencontre pour le joueur authentifié
// POST /api/v1/encounters
func (h *EncounterHandler) StartEncounter(c *gin.Context) {
	userID, err := middleware.UserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var req models.StartEncounterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	resp, err := h.encounters.StartEncounter(userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// GetEncounter retourne une rencontre avec son journal
// GET /api/v1/encounters/:id
func (h *EncounterHandler) GetEncounter(c *gin.Context) {
	combatID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid encounter ID"})
		return
	}

	resp, err := h.encounters.GetEncounter(combatID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetActiveEncounter retourne la rencontre active du joueur authentifié
// GET /api/v1/encounters/active
func (h *EncounterHandler) GetActiveEncounter(c *gin.Context) {
	userID, err := middleware.UserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	session, err := h.sessions.GetUserActiveSession(userID)
	if err != nil {
		respondError(c, err)
		return
	}
	if session == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No active encounter"})
		return
	}

	events, err := h.journal.ReadJournal(session.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.EncounterStatusResponse{
		Session: session,
		Events:  events,
	})
}

// RecordTurn journalise un événement de tour
// POST /api/v1/encounters/:id/turns
func (h *EncounterHandler) RecordTurn(c *gin.Context) {
	combatID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid encounter ID"})
		return
	}

	var req models.TurnEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	event, err := h.encounters.RecordTurn(combatID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, event)
}

// CompleteEncounter termine une rencontre avec une issue explicite
// POST /api/v1/encounters/:id/complete
func (h *EncounterHandler) CompleteEncounter(c *gin.Context) {
	combatID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid encounter ID"})
		return
	}

	var req models.CompleteEncounterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	resp, err := h.encounters.CompleteEncounter(combatID, models.Outcome(req.Outcome))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetJournal retourne le journal d'une rencontre, filtrable par acteur
// GET /api/v1/encounters/:id/journal?actor=player
func (h *EncounterHandler) GetJournal(c *gin.Context) {
	combatID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid encounter ID"})
		return
	}

	var events []*models.CombatLogEvent
	if actor := c.Query("actor"); actor != "" {
		events, err = h.journal.ReadJournalByActor(combatID, models.EventActor(actor))
	} else {
		events, err = h.journal.ReadJournal(combatID)
	}
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"events": events, "count": len(events)})
}

// CleanupExpired matérialise les sessions expirées, réservé aux admins
// POST /api/v1/admin/encounters/cleanup
func (h *EncounterHandler) CleanupExpired(c *gin.Context) {
	cleaned, err := h.sessions.CleanupExpiredSessions()
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.CleanupResponse{Cleaned: cleaned})
}

// DeleteEncounter supprime définitivement une rencontre, réservé aux admins
// DELETE /api/v1/admin/encounters/:id
func (h *EncounterHandler) DeleteEncounter(c *gin.Context) {
	combatID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid encounter ID"})
		return
	}

	if err := h.journal.PurgeJournal(combatID); err != nil {
		respondError(c, err)
		return
	}
	if err := h.sessions.DeleteSession(combatID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": combatID})
}
