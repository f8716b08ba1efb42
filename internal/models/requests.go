package models

import (
	"github.com/google/uuid"
)

// StartEncounterRequest démarre une rencontre sur un lieu. Le descripteur de
// lieu est fourni par l'appelant, le service de lieux étant externe.
type StartEncounterRequest struct {
	LocationID   uuid.UUID `json:"location_id" binding:"required"`
	LocationType string    `json:"location_type" binding:"required"`
	StateCode    string    `json:"state_code"`
	CountryCode  string    `json:"country_code"`
	Latitude     float64   `json:"latitude"`
	Longitude    float64   `json:"longitude"`

	CombatLevel  int    `json:"combat_level" binding:"required,min=1"`
	EnemyStyleID string `json:"enemy_style_id"`

	PlayerRating           *float64 `json:"player_rating"`
	WinProbabilityEstimate *float64 `json:"win_probability_estimate"`
}

// Location construit le descripteur de lieu de la requête
func (r *StartEncounterRequest) Location() *Location {
	return &Location{
		ID:           r.LocationID,
		LocationType: r.LocationType,
		StateCode:    r.StateCode,
		CountryCode:  r.CountryCode,
		Latitude:     r.Latitude,
		Longitude:    r.Longitude,
	}
}

// TurnEventRequest ajoute un événement de tour au journal d'une rencontre
type TurnEventRequest struct {
	Seq       int                    `json:"seq" binding:"required,min=1"`
	Actor     string                 `json:"actor" binding:"required"`
	EventType string                 `json:"event_type" binding:"required"`
	Payload   map[string]interface{} `json:"payload"`
	Value     *int                   `json:"value"`

	// Mise à jour optionnelle des ratings en même temps que le tour
	Ratings *UpdateSessionParams `json:"ratings"`
}

// CompleteEncounterRequest termine une rencontre avec une issue explicite
type CompleteEncounterRequest struct {
	Outcome string `json:"outcome" binding:"required"`
}
