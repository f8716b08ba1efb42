package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"encounter/internal/config"
	"encounter/internal/models"
)

// Sujets publiés sur le bus d'événements
const (
	SubjectEncounterStarted   = "encounter.started"
	SubjectEncounterCompleted = "encounter.completed"
)

// EncounterStartedEvent est publié quand une rencontre démarre
type EncounterStartedEvent struct {
	SessionID   uuid.UUID `json:"session_id"`
	UserID      uuid.UUID `json:"user_id"`
	LocationID  uuid.UUID `json:"location_id"`
	CombatLevel int       `json:"combat_level"`
	EnemyTypeID uuid.UUID `json:"enemy_type_id"`
	Timestamp   time.Time `json:"timestamp"`
}

// EncounterCompletedEvent est publié quand une rencontre se termine
type EncounterCompletedEvent struct {
	SessionID  uuid.UUID          `json:"session_id"`
	UserID     uuid.UUID          `json:"user_id"`
	LocationID uuid.UUID          `json:"location_id"`
	Outcome    models.Outcome     `json:"outcome"`
	Drops      []*models.LootDrop `json:"drops,omitempty"`
	Timestamp  time.Time          `json:"timestamp"`
}

// PublisherInterface définit la publication d'événements de rencontre
type PublisherInterface interface {
	PublishEncounterStarted(event *EncounterStartedEvent) error
	PublishEncounterCompleted(event *EncounterCompletedEvent) error
	Close()
}

// NATSPublisher implémente PublisherInterface sur NATS
type NATSPublisher struct {
	conn *nats.Conn
}

// NewPublisher crée le publieur d'événements. URL vide désactive la
// publication (publieur no-op), les autres erreurs de connexion remontent.
func NewPublisher(cfg *config.NATSConfig) (PublisherInterface, error) {
	if cfg.URL == "" {
		logrus.Info("NATS URL not configured, event publishing disabled")
		return &noopPublisher{}, nil
	}

	conn, err := nats.Connect(cfg.URL,
		nats.Name(cfg.ClientID),
		nats.Timeout(cfg.ConnectTimeout),
		nats.ReconnectWait(cfg.ReconnectDelay),
		nats.MaxReconnects(cfg.MaxReconnectAttempts),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	logrus.WithField("url", cfg.URL).Info("Connected to NATS")
	return &NATSPublisher{conn: conn}, nil
}

// PublishEncounterStarted publie le démarrage d'une rencontre
func (p *NATSPublisher) PublishEncounterStarted(event *EncounterStartedEvent) error {
	return p.publish(SubjectEncounterStarted, event)
}

// PublishEncounterCompleted publie la fin d'une rencontre
func (p *NATSPublisher) PublishEncounterCompleted(event *EncounterCompletedEvent) error {
	return p.publish(SubjectEncounterCompleted, event)
}

func (p *NATSPublisher) publish(subject string, event interface{}) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}
	return nil
}

// Close ferme la connexion au bus
func (p *NATSPublisher) Close() {
	p.conn.Close()
}

// noopPublisher est utilisé quand le bus n'est pas configuré
type noopPublisher struct{}

func (n *noopPublisher) PublishEncounterStarted(*EncounterStartedEvent) error     { return nil }
func (n *noopPublisher) PublishEncounterCompleted(*EncounterCompletedEvent) error { return nil }
func (n *noopPublisher) Close()                                                   {}
