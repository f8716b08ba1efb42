package models

import (
	"time"

	"github.com/google/uuid"
)

// PoolFilterKind définit les types de filtres de lieu d'un pool
type PoolFilterKind string

const (
	FilterUniversal    PoolFilterKind = "universal"
	FilterLocationType PoolFilterKind = "location_type"
	FilterState        PoolFilterKind = "state"
	FilterCountry      PoolFilterKind = "country"
	// Réservés : aucune règle de correspondance définie pour l'instant
	FilterLatRange PoolFilterKind = "lat_range"
	FilterLngRange PoolFilterKind = "lng_range"
)

// IsValid vérifie que le filtre fait partie des valeurs connues
func (k PoolFilterKind) IsValid() bool {
	switch k {
	case FilterUniversal, FilterLocationType, FilterState, FilterCountry,
		FilterLatRange, FilterLngRange:
		return true
	}
	return false
}

// Location décrit le lieu d'une rencontre, tel que fourni par l'appelant
type Location struct {
	ID           uuid.UUID `json:"id"`
	LocationType string    `json:"location_type"`
	StateCode    string    `json:"state_code"`
	CountryCode  string    `json:"country_code"`
	Latitude     float64   `json:"latitude"`
	Longitude    float64   `json:"longitude"`
}

// EnemyPool représente un pool d'ennemis pour un niveau de combat donné
type EnemyPool struct {
	ID          uuid.UUID      `json:"id" db:"id"`
	Name        string         `json:"name" db:"name"`
	CombatLevel int            `json:"combat_level" db:"combat_level"`
	FilterKind  PoolFilterKind `json:"filter_kind" db:"filter_kind"`
	FilterValue string         `json:"filter_value" db:"filter_value"`
	CreatedAt   time.Time      `json:"created_at" db:"created_at"`
}

// EnemyPoolMember représente un ennemi pondéré au sein d'un pool
type EnemyPoolMember struct {
	ID          uuid.UUID `json:"id" db:"id"`
	PoolID      uuid.UUID `json:"pool_id" db:"pool_id"`
	EnemyTypeID uuid.UUID `json:"enemy_type_id" db:"enemy_type_id"`
	SpawnWeight float64   `json:"spawn_weight" db:"spawn_weight"`
}

// LootPool représente un pool de butin, même forme de filtrage qu'EnemyPool
type LootPool struct {
	ID          uuid.UUID      `json:"id" db:"id"`
	Name        string         `json:"name" db:"name"`
	CombatLevel int            `json:"combat_level" db:"combat_level"`
	FilterKind  PoolFilterKind `json:"filter_kind" db:"filter_kind"`
	FilterValue string         `json:"filter_value" db:"filter_value"`
	CreatedAt   time.Time      `json:"created_at" db:"created_at"`
}

// LootableType définit les types d'objets pouvant tomber en butin
type LootableType string

const (
	LootableMaterial LootableType = "material"
	LootableItemType LootableType = "item_type"
)

// LootPoolEntry représente une entrée pondérée d'un pool de butin
type LootPoolEntry struct {
	ID             uuid.UUID    `json:"id" db:"id"`
	PoolID         uuid.UUID    `json:"pool_id" db:"pool_id"`
	LootableType   LootableType `json:"lootable_type" db:"lootable_type"`
	LootableID     uuid.UUID    `json:"lootable_id" db:"lootable_id"`
	BaseDropWeight float64      `json:"base_drop_weight" db:"base_drop_weight"`
}

// LootPoolTierWeight multiplie le poids des matériaux d'un palier de force
// au sein d'un pool donné
type LootPoolTierWeight struct {
	PoolID     uuid.UUID `json:"pool_id" db:"pool_id"`
	TierName   string    `json:"tier_name" db:"tier_name"`
	Multiplier float64   `json:"multiplier" db:"multiplier"`
}

// LootDrop représente un butin résolu. Le style est hérité de l'ennemi vaincu,
// jamais du pool.
type LootDrop struct {
	LootableType LootableType `json:"lootable_type"`
	LootableID   uuid.UUID    `json:"lootable_id"`
	StyleID      string       `json:"style_id"`
	Quantity     int          `json:"quantity"`
}

// EnemySpawn représente le résultat d'une résolution d'ennemi
type EnemySpawn struct {
	EnemyTypeID uuid.UUID   `json:"enemy_type_id"`
	PoolIDs     []uuid.UUID `json:"pool_ids"`
}
