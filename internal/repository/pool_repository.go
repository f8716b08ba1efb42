package repository

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"encounter/internal/database"
	"encounter/internal/models"
)

// PoolRepositoryInterface définit les lectures de pools par niveau de combat.
// Le filtrage par lieu est évalué par le résolveur, pas par le stockage.
type PoolRepositoryInterface interface {
	ListEnemyPoolsByLevel(combatLevel int) ([]*models.EnemyPool, error)
	ListEnemyPoolMembers(poolIDs []uuid.UUID) ([]*models.EnemyPoolMember, error)
	ListLootPoolsByLevel(combatLevel int) ([]*models.LootPool, error)
	ListLootPoolEntries(poolIDs []uuid.UUID) ([]*models.LootPoolEntry, error)
	ListLootTierWeights(poolIDs []uuid.UUID) ([]*models.LootPoolTierWeight, error)
}

// PoolRepository implémente l'interface PoolRepositoryInterface
type PoolRepository struct {
	db *database.DB
}

// NewPoolRepository crée une nouvelle instance du repository des pools
func NewPoolRepository(db *database.DB) PoolRepositoryInterface {
	return &PoolRepository{db: db}
}

// ListEnemyPoolsByLevel récupère les pools d'ennemis d'un niveau de combat
func (r *PoolRepository) ListEnemyPoolsByLevel(combatLevel int) ([]*models.EnemyPool, error) {
	query := `
		SELECT id, name, combat_level, filter_kind, filter_value, created_at
		FROM enemy_pools
		WHERE combat_level = $1
		ORDER BY created_at ASC`

	var pools []*models.EnemyPool
	if err := r.db.Select(&pools, query, combatLevel); err != nil {
		return nil, fmt.Errorf("failed to list enemy pools: %w", err)
	}

	return pools, nil
}

// ListEnemyPoolMembers récupère les membres de tous les pools donnés
func (r *PoolRepository) ListEnemyPoolMembers(poolIDs []uuid.UUID) ([]*models.EnemyPoolMember, error) {
	if len(poolIDs) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(`
		SELECT id, pool_id, enemy_type_id, spawn_weight
		FROM enemy_pool_members
		WHERE pool_id IN (?)`, poolIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to build member query: %w", err)
	}

	var members []*models.EnemyPoolMember
	if err := r.db.Select(&members, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list enemy pool members: %w", err)
	}

	return members, nil
}

// ListLootPoolsByLevel récupère les pools de butin d'un niveau de combat
func (r *PoolRepository) ListLootPoolsByLevel(combatLevel int) ([]*models.LootPool, error) {
	query := `
		SELECT id, name, combat_level, filter_kind, filter_value, created_at
		FROM loot_pools
		WHERE combat_level = $1
		ORDER BY created_at ASC`

	var pools []*models.LootPool
	if err := r.db.Select(&pools, query, combatLevel); err != nil {
		return nil, fmt.Errorf("failed to list loot pools: %w", err)
	}

	return pools, nil
}

// ListLootPoolEntries récupère les entrées de tous les pools donnés
func (r *PoolRepository) ListLootPoolEntries(poolIDs []uuid.UUID) ([]*models.LootPoolEntry, error) {
	if len(poolIDs) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(`
		SELECT id, pool_id, lootable_type, lootable_id, base_drop_weight
		FROM loot_pool_entries
		WHERE pool_id IN (?)`, poolIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to build entry query: %w", err)
	}

	var entries []*models.LootPoolEntry
	if err := r.db.Select(&entries, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list loot pool entries: %w", err)
	}

	return entries, nil
}

// ListLootTierWeights récupère les multiplicateurs de palier des pools donnés
func (r *PoolRepository) ListLootTierWeights(poolIDs []uuid.UUID) ([]*models.LootPoolTierWeight, error) {
	if len(poolIDs) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(`
		SELECT pool_id, tier_name, multiplier
		FROM loot_pool_tier_weights
		WHERE pool_id IN (?)`, poolIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to build tier weight query: %w", err)
	}

	var weights []*models.LootPoolTierWeight
	if err := r.db.Select(&weights, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list loot tier weights: %w", err)
	}

	return weights, nil
}
