package repository

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"encounter/internal/database"
	"encounter/internal/models"
)

// ErrOpenSessionExists est retournée quand la garde d'unicité du stockage
// refuse une deuxième session non terminale pour le même joueur. Le service
// décide si la session bloquante est expirée et peut être abandonnée.
var ErrOpenSessionExists = errors.New("an open combat session already exists for this user")

// SessionRepositoryInterface définit les méthodes du repository des sessions
type SessionRepositoryInterface interface {
	Create(session *models.CombatSession) error
	GetByID(id uuid.UUID) (*models.CombatSession, error)
	// GetLatestOpenByUser retourne la session ouverte la plus récente du
	// joueur, expirée ou non. (nil, nil) si aucune.
	GetLatestOpenByUser(userID uuid.UUID) (*models.CombatSession, error)
	// UpdateFields met à jour les ratings d'une session encore active
	// (ouverte et créée après le cutoff). Ne touche jamais l'issue.
	UpdateFields(id uuid.UUID, params *models.UpdateSessionParams, cutoff, now time.Time) error
	// Complete pose l'issue de façon gardée : seule une session dont
	// l'issue est encore NULL et créée après le cutoff est affectée.
	Complete(id uuid.UUID, outcome models.Outcome, cutoff, now time.Time) (*models.CombatSession, error)
	// MarkAbandoned abandonne une session ouverte sans condition de TTL.
	// Perdre la course contre une complétion concurrente n'est pas une erreur.
	MarkAbandoned(id uuid.UUID, now time.Time) error
	// CleanupExpired matérialise en 'abandoned' toutes les sessions
	// ouvertes créées avant le cutoff et les retourne.
	CleanupExpired(cutoff, now time.Time) ([]*models.CombatSession, error)
	Delete(id uuid.UUID) error
}

// SessionRepository implémente l'interface SessionRepositoryInterface
type SessionRepository struct {
	db *database.DB
}

// NewSessionRepository crée une nouvelle instance du repository des sessions
func NewSessionRepository(db *database.DB) SessionRepositoryInterface {
	return &SessionRepository{db: db}
}

const sessionColumns = `id, user_id, location_id, combat_level, enemy_type_id, enemy_style_id,
       applied_enemy_pools, applied_loot_pools,
       player_rating, enemy_rating, win_probability,
       outcome, created_at, updated_at`

// Create persiste une nouvelle session ouverte
func (r *SessionRepository) Create(session *models.CombatSession) error {
	enemyPoolsJSON, err := json.Marshal(session.AppliedEnemyPools)
	if err != nil {
		return fmt.Errorf("failed to marshal enemy pool snapshot: %w", err)
	}
	lootPoolsJSON, err := json.Marshal(session.AppliedLootPools)
	if err != nil {
		return fmt.Errorf("failed to marshal loot pool snapshot: %w", err)
	}

	query := `
		INSERT INTO combat_sessions (
			id, user_id, location_id, combat_level, enemy_type_id, enemy_style_id,
			applied_enemy_pools, applied_loot_pools,
			player_rating, enemy_rating, win_probability,
			created_at, updated_at
		) VALUES (
			:id, :user_id, :location_id, :combat_level, :enemy_type_id, :enemy_style_id,
			:applied_enemy_pools, :applied_loot_pools,
			:player_rating, :enemy_rating, :win_probability,
			:created_at, :updated_at
		)`

	data := map[string]interface{}{
		"id":                  session.ID,
		"user_id":             session.UserID,
		"location_id":         session.LocationID,
		"combat_level":        session.CombatLevel,
		"enemy_type_id":       session.EnemyTypeID,
		"enemy_style_id":      session.EnemyStyleID,
		"applied_enemy_pools": enemyPoolsJSON,
		"applied_loot_pools":  lootPoolsJSON,
		"player_rating":       session.PlayerRating,
		"enemy_rating":        session.EnemyRating,
		"win_probability":     session.WinProbabilityEstimate,
		"created_at":          session.CreatedAt,
		"updated_at":          session.UpdatedAt,
	}

	_, err = r.db.NamedExec(query, data)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrOpenSessionExists
		}
		return fmt.Errorf("failed to create combat session: %w", err)
	}

	return nil
}

// GetByID récupère une session par son ID, quelle que soit son issue
func (r *SessionRepository) GetByID(id uuid.UUID) (*models.CombatSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM combat_sessions WHERE id = $1`

	session, err := r.scanSession(r.db.QueryRow(query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.NewNotFoundError("combat session", "combat session %s not found", id)
		}
		return nil, fmt.Errorf("failed to get combat session: %w", err)
	}

	return session, nil
}

// GetLatestOpenByUser récupère la session ouverte la plus récente d'un joueur
func (r *SessionRepository) GetLatestOpenByUser(userID uuid.UUID) (*models.CombatSession, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM combat_sessions
		WHERE user_id = $1 AND outcome IS NULL
		ORDER BY created_at DESC
		LIMIT 1`

	session, err := r.scanSession(r.db.QueryRow(query, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get open session for user: %w", err)
	}

	return session, nil
}

// UpdateFields met à jour les champs mutables d'une session active
func (r *SessionRepository) UpdateFields(id uuid.UUID, params *models.UpdateSessionParams, cutoff, now time.Time) error {
	query := `
		UPDATE combat_sessions SET
			player_rating = COALESCE($2, player_rating),
			enemy_rating = COALESCE($3, enemy_rating),
			win_probability = COALESCE($4, win_probability),
			updated_at = $5
		WHERE id = $1 AND outcome IS NULL AND created_at >= $6`

	result, err := r.db.Exec(query, id,
		params.PlayerRating, params.EnemyRating, params.WinProbabilityEstimate,
		now, cutoff)
	if err != nil {
		return fmt.Errorf("failed to update combat session: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}

	if rowsAffected == 0 {
		return models.NewNotFoundError("combat session", "no active combat session %s", id)
	}

	return nil
}

// Complete pose l'issue de façon gardée. La condition outcome IS NULL sert
// aussi de garde de concurrence : une complétion qui arrive après le
// nettoyage batch échoue au lieu d'écraser l'issue abandoned.
func (r *SessionRepository) Complete(id uuid.UUID, outcome models.Outcome, cutoff, now time.Time) (*models.CombatSession, error) {
	query := `
		UPDATE combat_sessions SET
			outcome = $2,
			updated_at = $3
		WHERE id = $1 AND outcome IS NULL AND created_at >= $4
		RETURNING ` + sessionColumns

	session, err := r.scanSession(r.db.QueryRow(query, id, outcome, now, cutoff))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.NewNotFoundError("combat session", "no active combat session %s", id)
		}
		return nil, fmt.Errorf("failed to complete combat session: %w", err)
	}

	return session, nil
}

// MarkAbandoned abandonne une session ouverte, sans condition de TTL
func (r *SessionRepository) MarkAbandoned(id uuid.UUID, now time.Time) error {
	query := `
		UPDATE combat_sessions SET
			outcome = $2,
			updated_at = $3
		WHERE id = $1 AND outcome IS NULL`

	if _, err := r.db.Exec(query, id, models.OutcomeAbandoned, now); err != nil {
		return fmt.Errorf("failed to abandon combat session: %w", err)
	}

	return nil
}

// CleanupExpired matérialise les sessions expirées en 'abandoned'
func (r *SessionRepository) CleanupExpired(cutoff, now time.Time) ([]*models.CombatSession, error) {
	query := `
		UPDATE combat_sessions SET
			outcome = $1,
			updated_at = $2
		WHERE outcome IS NULL AND created_at < $3
		RETURNING ` + sessionColumns

	rows, err := r.db.Query(query, models.OutcomeAbandoned, now, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to cleanup expired sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*models.CombatSession
	for rows.Next() {
		session, err := r.scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expired session: %w", err)
		}
		sessions = append(sessions, session)
	}

	return sessions, rows.Err()
}

// Delete supprime une session sans condition, usage administratif uniquement
func (r *SessionRepository) Delete(id uuid.UUID) error {
	query := `DELETE FROM combat_sessions WHERE id = $1`

	result, err := r.db.Exec(query, id)
	if err != nil {
		return fmt.Errorf("failed to delete combat session: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}

	if rowsAffected == 0 {
		return models.NewNotFoundError("combat session", "combat session %s not found", id)
	}

	return nil
}

// scannable couvre *sql.Row et *sql.Rows
type scannable interface {
	Scan(dest ...interface{}) error
}

// scanSession lit une ligne de combat_sessions dans l'ordre de sessionColumns
func (r *SessionRepository) scanSession(row scannable) (*models.CombatSession, error) {
	var session models.CombatSession
	var enemyPoolsJSON, lootPoolsJSON []byte

	err := row.Scan(
		&session.ID, &session.UserID, &session.LocationID, &session.CombatLevel,
		&session.EnemyTypeID, &session.EnemyStyleID,
		&enemyPoolsJSON, &lootPoolsJSON,
		&session.PlayerRating, &session.EnemyRating, &session.WinProbabilityEstimate,
		&session.Outcome, &session.CreatedAt, &session.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(enemyPoolsJSON, &session.AppliedEnemyPools); err != nil {
		return nil, fmt.Errorf("failed to unmarshal enemy pool snapshot: %w", err)
	}
	if err := json.Unmarshal(lootPoolsJSON, &session.AppliedLootPools); err != nil {
		return nil, fmt.Errorf("failed to unmarshal loot pool snapshot: %w", err)
	}

	return &session, nil
}
