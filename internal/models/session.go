package models

import (
	"time"

	"github.com/google/uuid"
)

// Outcome définit les issues terminales d'une session de combat
type Outcome string

const (
	OutcomeVictory   Outcome = "victory"
	OutcomeDefeat    Outcome = "defeat"
	OutcomeEscape    Outcome = "escape"
	OutcomeAbandoned Outcome = "abandoned"
)

// IsValid vérifie que l'issue fait partie des valeurs connues
func (o Outcome) IsValid() bool {
	switch o {
	case OutcomeVictory, OutcomeDefeat, OutcomeEscape, OutcomeAbandoned:
		return true
	}
	return false
}

// CountsAsVictory indique si l'issue compte comme une victoire pour les séries.
// escape et abandoned cassent la série comme une défaite.
func (o Outcome) CountsAsVictory() bool {
	return o == OutcomeVictory
}

// CombatSession représente une tentative de combat, active ou terminée
type CombatSession struct {
	ID          uuid.UUID `json:"id" db:"id"`
	UserID      uuid.UUID `json:"user_id" db:"user_id"`
	LocationID  uuid.UUID `json:"location_id" db:"location_id"`
	CombatLevel int       `json:"combat_level" db:"combat_level"`

	EnemyTypeID  uuid.UUID `json:"enemy_type_id" db:"enemy_type_id"`
	EnemyStyleID string    `json:"enemy_style_id" db:"enemy_style_id"`

	// Snapshots des pools utilisés à la création, pour l'audit
	AppliedEnemyPools []uuid.UUID `json:"applied_enemy_pools" db:"-"`
	AppliedLootPools  []uuid.UUID `json:"applied_loot_pools" db:"-"`

	PlayerRating           *float64 `json:"player_rating" db:"player_rating"`
	EnemyRating            *float64 `json:"enemy_rating" db:"enemy_rating"`
	WinProbabilityEstimate *float64 `json:"win_probability_estimate" db:"win_probability"`

	// nil = session active (non terminée)
	Outcome *Outcome `json:"outcome" db:"outcome"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// IsTerminal vérifie si la session a une issue terminale
func (s *CombatSession) IsTerminal() bool {
	return s.Outcome != nil
}

// IsExpired évalue le prédicat d'expiration dérivé : une session est expirée
// strictement au-delà du TTL (âge == TTL reste visible)
func (s *CombatSession) IsExpired(now time.Time, ttl time.Duration) bool {
	return now.Sub(s.CreatedAt) > ttl
}

// IsActive vérifie que la session est ouverte et non expirée
func (s *CombatSession) IsActive(now time.Time, ttl time.Duration) bool {
	return s.Outcome == nil && !s.IsExpired(now, ttl)
}

// SessionInit contient les données initiales d'une session de combat
type SessionInit struct {
	LocationID             uuid.UUID
	CombatLevel            int
	EnemyTypeID            uuid.UUID
	EnemyStyleID           string
	AppliedEnemyPools      []uuid.UUID
	AppliedLootPools       []uuid.UUID
	PlayerRating           *float64
	EnemyRating            *float64
	WinProbabilityEstimate *float64
}

// UpdateSessionParams contient les champs mutables pendant un combat.
// L'issue n'est jamais modifiée par ce chemin.
type UpdateSessionParams struct {
	PlayerRating           *float64 `json:"player_rating"`
	EnemyRating            *float64 `json:"enemy_rating"`
	WinProbabilityEstimate *float64 `json:"win_probability_estimate"`
}

// IsEmpty vérifie qu'au moins un champ est fourni
func (p *UpdateSessionParams) IsEmpty() bool {
	return p.PlayerRating == nil && p.EnemyRating == nil && p.WinProbabilityEstimate == nil
}
