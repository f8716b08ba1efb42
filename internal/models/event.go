package models

import (
	"time"

	"github.com/google/uuid"
)

// EventActor définit qui est à l'origine d'un événement de combat
type EventActor string

const (
	ActorPlayer EventActor = "player"
	ActorEnemy  EventActor = "enemy"
	ActorSystem EventActor = "system"
)

// IsValid vérifie que l'acteur fait partie des valeurs connues
func (a EventActor) IsValid() bool {
	switch a {
	case ActorPlayer, ActorEnemy, ActorSystem:
		return true
	}
	return false
}

// CombatLogEvent représente un fait au niveau du tour, journalisé en append-only.
// Le seq est attribué par l'appelant et strictement croissant par combat.
type CombatLogEvent struct {
	ID        uuid.UUID              `json:"id" db:"id"`
	CombatID  uuid.UUID              `json:"combat_id" db:"combat_id"`
	Seq       int                    `json:"seq" db:"seq"`
	Actor     EventActor             `json:"actor" db:"actor"`
	EventType string                 `json:"event_type" db:"event_type"`
	Payload   map[string]interface{} `json:"payload" db:"-"`
	Value     *int                   `json:"value" db:"value"`
	Timestamp time.Time              `json:"timestamp" db:"timestamp"`
}
