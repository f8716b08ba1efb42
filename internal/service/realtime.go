package service

import (
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"encounter/internal/models"
)

// RealtimePublisherInterface définit la diffusion temps réel des événements
// de combat aux spectateurs connectés
type RealtimePublisherInterface interface {
	Subscribe(combatID uuid.UUID, conn *websocket.Conn)
	Unsubscribe(combatID uuid.UUID, conn *websocket.Conn)
	BroadcastEvent(combatID uuid.UUID, event *models.CombatLogEvent)
	CloseCombat(combatID uuid.UUID)
}

// RealtimeHub implémente la diffusion par combat sur des connexions
// WebSocket. Les écritures vers un abonné défaillant le désabonnent.
type RealtimeHub struct {
	mu          sync.RWMutex
	subscribers map[uuid.UUID]map[*websocket.Conn]bool
}

// NewRealtimeHub crée une nouvelle instance du hub temps réel
func NewRealtimeHub() RealtimePublisherInterface {
	return &RealtimeHub{
		subscribers: make(map[uuid.UUID]map[*websocket.Conn]bool),
	}
}

// Subscribe enregistre une connexion comme spectatrice du combat
func (h *RealtimeHub) Subscribe(combatID uuid.UUID, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subscribers[combatID] == nil {
		h.subscribers[combatID] = make(map[*websocket.Conn]bool)
	}
	h.subscribers[combatID][conn] = true

	logrus.WithFields(logrus.Fields{
		"combat_id":   combatID,
		"subscribers": len(h.subscribers[combatID]),
	}).Debug("WebSocket subscriber added")
}

// Unsubscribe retire une connexion des spectateurs du combat
func (h *RealtimeHub) Unsubscribe(combatID uuid.UUID, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.subscribers[combatID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.subscribers, combatID)
		}
	}
}

// BroadcastEvent envoie un événement à tous les spectateurs du combat
func (h *RealtimeHub) BroadcastEvent(combatID uuid.UUID, event *models.CombatLogEvent) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.subscribers[combatID]))
	for conn := range h.subscribers[combatID] {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		if err := conn.WriteJSON(event); err != nil {
			logrus.WithError(err).WithField("combat_id", combatID).Debug("WebSocket write failed, dropping subscriber")
			h.Unsubscribe(combatID, conn)
			conn.Close()
		}
	}
}

// CloseCombat ferme toutes les connexions spectatrices d'un combat terminé
func (h *RealtimeHub) CloseCombat(combatID uuid.UUID) {
	h.mu.Lock()
	conns := h.subscribers[combatID]
	delete(h.subscribers, combatID)
	h.mu.Unlock()

	for conn := range conns {
		conn.Close()
	}
}
