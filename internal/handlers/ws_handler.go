package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"encounter/internal/service"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// L'authentification passe par le JWT, pas par l'origine
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WSHandler gère les connexions WebSocket spectatrices des rencontres
type WSHandler struct {
	realtime service.RealtimePublisherInterface
	sessions service.SessionServiceInterface
}

// NewWSHandler crée une nouvelle instance du handler WebSocket
func NewWSHandler(realtime service.RealtimePublisherInterface, sessions service.SessionServiceInterface) *WSHandler {
	return &WSHandler{
		realtime: realtime,
		sessions: sessions,
	}
}

// Watch attache la connexion au flux d'événements d'une rencontre active
// GET /api/v1/encounters/:id/ws
func (h *WSHandler) Watch(c *gin.Context) {
	combatID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid encounter ID"})
		return
	}

	session, err := h.sessions.GetActiveSession(combatID)
	if err != nil {
		respondError(c, err)
		return
	}
	if session == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No active encounter"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	h.realtime.Subscribe(combatID, conn)
	logrus.WithFields(logrus.Fields{
		"combat_id": combatID,
		"client_ip": c.ClientIP(),
	}).Debug("WebSocket spectator connected")

	// Boucle de lecture : on ne consomme que les messages de contrôle,
	// la connexion est en écriture seule côté client
	go func() {
		defer func() {
			h.realtime.Unsubscribe(combatID, conn)
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
