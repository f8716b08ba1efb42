package models

// StartEncounterResponse retourne la session ouverte et l'ennemi résolu
type StartEncounterResponse struct {
	Session *CombatSession `json:"session"`
	Spawn   *EnemySpawn    `json:"spawn"`
}

// CompleteEncounterResponse retourne la session terminée, le butin résolu
// et l'historique mis à jour du joueur sur ce lieu
type CompleteEncounterResponse struct {
	Session *CombatSession       `json:"session"`
	Drops   []*LootDrop          `json:"drops"`
	History *PlayerCombatHistory `json:"history,omitempty"`
}

// EncounterStatusResponse retourne une session avec son journal
type EncounterStatusResponse struct {
	Session *CombatSession    `json:"session"`
	Events  []*CombatLogEvent `json:"events"`
}

// CleanupResponse retourne le nombre de sessions expirées matérialisées
type CleanupResponse struct {
	Cleaned int `json:"cleaned"`
}
