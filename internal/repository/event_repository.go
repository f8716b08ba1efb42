package repository

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"encounter/internal/database"
	"encounter/internal/models"
)

// EventRepositoryInterface définit les méthodes du repository du journal.
// Le journal est append-only : aucune mise à jour, aucune suppression hors
// purge de session.
type EventRepositoryInterface interface {
	Append(event *models.CombatLogEvent) error
	// MaxSeq retourne le seq le plus élevé du combat et false si le journal
	// est vide
	MaxSeq(combatID uuid.UUID) (int, bool, error)
	ListByCombat(combatID uuid.UUID) ([]*models.CombatLogEvent, error)
	ListByActor(combatID uuid.UUID, actor models.EventActor) ([]*models.CombatLogEvent, error)
	PurgeByCombat(combatID uuid.UUID) error
}

// EventRepository implémente l'interface EventRepositoryInterface
type EventRepository struct {
	db *database.DB
}

// NewEventRepository crée une nouvelle instance du repository du journal
func NewEventRepository(db *database.DB) EventRepositoryInterface {
	return &EventRepository{db: db}
}

// Append persiste un événement de combat
func (r *EventRepository) Append(event *models.CombatLogEvent) error {
	payloadJSON, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	query := `
		INSERT INTO combat_log_events (
			id, combat_id, seq, actor, event_type, payload, value, timestamp
		) VALUES (
			:id, :combat_id, :seq, :actor, :event_type, :payload, :value, :timestamp
		)`

	data := map[string]interface{}{
		"id":         event.ID,
		"combat_id":  event.CombatID,
		"seq":        event.Seq,
		"actor":      event.Actor,
		"event_type": event.EventType,
		"payload":    payloadJSON,
		"value":      event.Value,
		"timestamp":  event.Timestamp,
	}

	_, err = r.db.NamedExec(query, data)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return models.NewValidationError("duplicate seq %d for combat %s", event.Seq, event.CombatID)
		}
		return fmt.Errorf("failed to append combat event: %w", err)
	}

	return nil
}

// MaxSeq retourne le seq le plus élevé journalisé pour un combat
func (r *EventRepository) MaxSeq(combatID uuid.UUID) (int, bool, error) {
	var maxSeq *int

	query := `SELECT MAX(seq) FROM combat_log_events WHERE combat_id = $1`

	if err := r.db.Get(&maxSeq, query, combatID); err != nil {
		return 0, false, fmt.Errorf("failed to get max seq: %w", err)
	}

	if maxSeq == nil {
		return 0, false, nil
	}

	return *maxSeq, true, nil
}

// ListByCombat récupère le journal complet d'un combat, trié par seq croissant
func (r *EventRepository) ListByCombat(combatID uuid.UUID) ([]*models.CombatLogEvent, error) {
	query := `
		SELECT id, combat_id, seq, actor, event_type, payload, value, timestamp
		FROM combat_log_events
		WHERE combat_id = $1
		ORDER BY seq ASC`

	return r.queryEvents(query, combatID)
}

// ListByActor récupère le journal d'un combat filtré par acteur, même ordre
func (r *EventRepository) ListByActor(combatID uuid.UUID, actor models.EventActor) ([]*models.CombatLogEvent, error) {
	query := `
		SELECT id, combat_id, seq, actor, event_type, payload, value, timestamp
		FROM combat_log_events
		WHERE combat_id = $1 AND actor = $2
		ORDER BY seq ASC`

	return r.queryEvents(query, combatID, actor)
}

// PurgeByCombat supprime le journal complet d'un combat
func (r *EventRepository) PurgeByCombat(combatID uuid.UUID) error {
	query := `DELETE FROM combat_log_events WHERE combat_id = $1`

	if _, err := r.db.Exec(query, combatID); err != nil {
		return fmt.Errorf("failed to purge combat events: %w", err)
	}

	return nil
}

// queryEvents exécute une requête de lecture du journal
func (r *EventRepository) queryEvents(query string, args ...interface{}) ([]*models.CombatLogEvent, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query combat events: %w", err)
	}
	defer rows.Close()

	var events []*models.CombatLogEvent
	for rows.Next() {
		var event models.CombatLogEvent
		var payloadJSON []byte

		err := rows.Scan(
			&event.ID, &event.CombatID, &event.Seq, &event.Actor,
			&event.EventType, &payloadJSON, &event.Value, &event.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan combat event: %w", err)
		}

		if err := json.Unmarshal(payloadJSON, &event.Payload); err != nil {
			return nil, fmt.Errorf("failed to unmarshal event payload: %w", err)
		}

		events = append(events, &event)
	}

	return events, rows.Err()
}
