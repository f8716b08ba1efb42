package models

import (
	"time"

	"github.com/google/uuid"
)

// PlayerCombatHistory représente l'historique cumulé d'un joueur sur un lieu
type PlayerCombatHistory struct {
	UserID        uuid.UUID `json:"user_id" db:"user_id"`
	LocationID    uuid.UUID `json:"location_id" db:"location_id"`
	TotalAttempts int       `json:"total_attempts" db:"total_attempts"`
	Victories     int       `json:"victories" db:"victories"`
	Defeats       int       `json:"defeats" db:"defeats"`
	CurrentStreak int       `json:"current_streak" db:"current_streak"`
	LongestStreak int       `json:"longest_streak" db:"longest_streak"`
	LastAttempt   time.Time `json:"last_attempt" db:"last_attempt"`
}

// WinRate retourne le taux de victoire sur ce lieu (0 si aucune tentative)
func (h *PlayerCombatHistory) WinRate() float64 {
	if h.TotalAttempts == 0 {
		return 0
	}
	return float64(h.Victories) / float64(h.TotalAttempts)
}

// PlayerStatsSummary agrège l'historique d'un joueur sur tous ses lieux
type PlayerStatsSummary struct {
	TotalLocations       int     `json:"total_locations"`
	TotalAttempts        int     `json:"total_attempts"`
	TotalVictories       int     `json:"total_victories"`
	TotalDefeats         int     `json:"total_defeats"`
	WinRate              float64 `json:"win_rate"`
	LongestStreak        int     `json:"longest_streak"`
	CurrentActiveStreaks int     `json:"current_active_streaks"`
}

// TopLocation représente un lieu fréquenté, annoté de son taux de victoire
type TopLocation struct {
	LocationID    uuid.UUID `json:"location_id"`
	TotalAttempts int       `json:"total_attempts"`
	Victories     int       `json:"victories"`
	Defeats       int       `json:"defeats"`
	WinRate       float64   `json:"win_rate"`
	CurrentStreak int       `json:"current_streak"`
	LongestStreak int       `json:"longest_streak"`
}
