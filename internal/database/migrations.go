package database

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Migration 1: Table des sessions de combat
const createCombatSessionsTable = `
CREATE TABLE IF NOT EXISTS combat_sessions (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    user_id UUID NOT NULL,
    location_id UUID NOT NULL,
    combat_level INTEGER NOT NULL CHECK (combat_level >= 1),
    enemy_type_id UUID NOT NULL,
    enemy_style_id VARCHAR(50) NOT NULL DEFAULT '',

    -- Snapshots des pools appliqués, pour l'audit
    applied_enemy_pools JSONB NOT NULL DEFAULT '[]',
    applied_loot_pools JSONB NOT NULL DEFAULT '[]',

    -- Ratings mis à jour pendant le combat
    player_rating DOUBLE PRECISION,
    enemy_rating DOUBLE PRECISION,
    win_probability DOUBLE PRECISION,

    -- NULL = session active
    outcome VARCHAR(20) CHECK (outcome IN ('victory', 'defeat', 'escape', 'abandoned')),

    created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
);`

// Migration 2: Garde d'unicité au niveau stockage : au plus une session non
// terminale par joueur. Le check applicatif n'est qu'une optimisation.
const createActiveSessionGuard = `
CREATE UNIQUE INDEX IF NOT EXISTS uniq_combat_sessions_open_per_user
    ON combat_sessions(user_id) WHERE outcome IS NULL;`

// Migration 3: Table du journal d'événements de combat
const createCombatLogEventsTable = `
CREATE TABLE IF NOT EXISTS combat_log_events (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    combat_id UUID NOT NULL REFERENCES combat_sessions(id) ON DELETE CASCADE,
    seq INTEGER NOT NULL CHECK (seq >= 1),
    actor VARCHAR(10) NOT NULL CHECK (actor IN ('player', 'enemy', 'system')),
    event_type VARCHAR(50) NOT NULL,
    payload JSONB NOT NULL DEFAULT '{}',
    value INTEGER,
    timestamp TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,

    UNIQUE(combat_id, seq)
);`

// Migration 4: Table de l'historique par (joueur, lieu)
const createPlayerCombatHistoryTable = `
CREATE TABLE IF NOT EXISTS player_combat_history (
    user_id UUID NOT NULL,
    location_id UUID NOT NULL,
    total_attempts INTEGER NOT NULL DEFAULT 0,
    victories INTEGER NOT NULL DEFAULT 0,
    defeats INTEGER NOT NULL DEFAULT 0,
    current_streak INTEGER NOT NULL DEFAULT 0,
    longest_streak INTEGER NOT NULL DEFAULT 0,
    last_attempt TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,

    PRIMARY KEY(user_id, location_id),
    CHECK (victories + defeats <= total_attempts),
    CHECK (longest_streak >= current_streak)
);`

// Migration 5: Tables des pools d'ennemis
const createEnemyPoolsTables = `
CREATE TABLE IF NOT EXISTS enemy_pools (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    name VARCHAR(100) NOT NULL DEFAULT '',
    combat_level INTEGER NOT NULL CHECK (combat_level >= 1),
    filter_kind VARCHAR(20) NOT NULL CHECK (filter_kind IN ('universal', 'location_type', 'state', 'country', 'lat_range', 'lng_range')),
    filter_value VARCHAR(255) NOT NULL DEFAULT '',
    created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS enemy_pool_members (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    pool_id UUID NOT NULL REFERENCES enemy_pools(id) ON DELETE CASCADE,
    enemy_type_id UUID NOT NULL,
    spawn_weight DOUBLE PRECISION NOT NULL CHECK (spawn_weight >= 0),

    UNIQUE(pool_id, enemy_type_id)
);`

// Migration 6: Tables des pools de butin
const createLootPoolsTables = `
CREATE TABLE IF NOT EXISTS loot_pools (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    name VARCHAR(100) NOT NULL DEFAULT '',
    combat_level INTEGER NOT NULL CHECK (combat_level >= 1),
    filter_kind VARCHAR(20) NOT NULL CHECK (filter_kind IN ('universal', 'location_type', 'state', 'country', 'lat_range', 'lng_range')),
    filter_value VARCHAR(255) NOT NULL DEFAULT '',
    created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS loot_pool_entries (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    pool_id UUID NOT NULL REFERENCES loot_pools(id) ON DELETE CASCADE,
    lootable_type VARCHAR(20) NOT NULL CHECK (lootable_type IN ('material', 'item_type')),
    lootable_id UUID NOT NULL,
    base_drop_weight DOUBLE PRECISION NOT NULL CHECK (base_drop_weight >= 0)
);

CREATE TABLE IF NOT EXISTS loot_pool_tier_weights (
    pool_id UUID NOT NULL REFERENCES loot_pools(id) ON DELETE CASCADE,
    tier_name VARCHAR(30) NOT NULL,
    multiplier DOUBLE PRECISION NOT NULL CHECK (multiplier >= 0),

    PRIMARY KEY(pool_id, tier_name)
);`

// Migration 7: Index pour les performances
const createIndexes = `
-- Index pour combat_sessions
CREATE INDEX IF NOT EXISTS idx_combat_sessions_user_id ON combat_sessions(user_id);
CREATE INDEX IF NOT EXISTS idx_combat_sessions_location_id ON combat_sessions(location_id);
CREATE INDEX IF NOT EXISTS idx_combat_sessions_created_at ON combat_sessions(created_at);
CREATE INDEX IF NOT EXISTS idx_combat_sessions_outcome ON combat_sessions(outcome);

-- Index pour combat_log_events
CREATE INDEX IF NOT EXISTS idx_combat_log_events_combat_id ON combat_log_events(combat_id);
CREATE INDEX IF NOT EXISTS idx_combat_log_events_actor ON combat_log_events(combat_id, actor);

-- Index pour player_combat_history
CREATE INDEX IF NOT EXISTS idx_player_combat_history_user_id ON player_combat_history(user_id);

-- Index pour les pools
CREATE INDEX IF NOT EXISTS idx_enemy_pools_combat_level ON enemy_pools(combat_level);
CREATE INDEX IF NOT EXISTS idx_enemy_pool_members_pool_id ON enemy_pool_members(pool_id);
CREATE INDEX IF NOT EXISTS idx_loot_pools_combat_level ON loot_pools(combat_level);
CREATE INDEX IF NOT EXISTS idx_loot_pool_entries_pool_id ON loot_pool_entries(pool_id);`

// RunMigrations exécute les migrations de base de données
func RunMigrations(db *DB) error {
	logrus.Info("Running encounter database migrations...")

	migrations := []string{
		createCombatSessionsTable,
		createActiveSessionGuard,
		createCombatLogEventsTable,
		createPlayerCombatHistoryTable,
		createEnemyPoolsTables,
		createLootPoolsTables,
		createIndexes,
	}

	for i, migration := range migrations {
		logrus.WithField("migration", i+1).Debug("Executing migration")

		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("failed to execute migration %d: %w", i+1, err)
		}
	}

	logrus.Info("Encounter database migrations completed successfully")
	return nil
}
