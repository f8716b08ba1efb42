package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"encounter/internal/database"
	"encounter/internal/models"
)

// HistoryRepositoryInterface définit les méthodes du repository d'historique.
// Le stockage ne porte que la persistance atomique : le calcul des séries
// vit dans le service agrégateur.
type HistoryRepositoryInterface interface {
	// IncrementAttempts incrémente le compteur de tentatives de façon
	// atomique, en créant la ligne au premier passage
	IncrementAttempts(userID, locationID uuid.UUID, now time.Time) (*models.PlayerCombatHistory, error)
	// WithTx exécute fn dans une transaction
	WithTx(fn func(tx *sqlx.Tx) error) error
	// GetForUpdate verrouille et retourne la ligne dans la transaction.
	// (nil, nil) si la ligne n'existe pas encore.
	GetForUpdate(tx *sqlx.Tx, userID, locationID uuid.UUID) (*models.PlayerCombatHistory, error)
	// Save persiste la ligne complète dans la transaction (upsert)
	Save(tx *sqlx.Tx, history *models.PlayerCombatHistory) error
	Get(userID, locationID uuid.UUID) (*models.PlayerCombatHistory, error)
	GetAllByUser(userID uuid.UUID) ([]*models.PlayerCombatHistory, error)
}

// HistoryRepository implémente l'interface HistoryRepositoryInterface
type HistoryRepository struct {
	db *database.DB
}

// NewHistoryRepository crée une nouvelle instance du repository d'historique
func NewHistoryRepository(db *database.DB) HistoryRepositoryInterface {
	return &HistoryRepository{db: db}
}

const historyColumns = `user_id, location_id, total_attempts, victories, defeats,
       current_streak, longest_streak, last_attempt`

// IncrementAttempts incrémente total_attempts via un upsert atomique
func (r *HistoryRepository) IncrementAttempts(userID, locationID uuid.UUID, now time.Time) (*models.PlayerCombatHistory, error) {
	query := `
		INSERT INTO player_combat_history (
			user_id, location_id, total_attempts, last_attempt
		) VALUES ($1, $2, 1, $3)
		ON CONFLICT (user_id, location_id) DO UPDATE SET
			total_attempts = player_combat_history.total_attempts + 1,
			last_attempt = $3
		RETURNING ` + historyColumns

	var history models.PlayerCombatHistory
	err := r.db.QueryRowx(query, userID, locationID, now).StructScan(&history)
	if err != nil {
		return nil, fmt.Errorf("failed to record attempt: %w", err)
	}

	return &history, nil
}

// WithTx exécute fn dans une transaction, commit si elle réussit
func (r *HistoryRepository) WithTx(fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetForUpdate verrouille la ligne d'historique pour la durée de la transaction
func (r *HistoryRepository) GetForUpdate(tx *sqlx.Tx, userID, locationID uuid.UUID) (*models.PlayerCombatHistory, error) {
	query := `
		SELECT ` + historyColumns + `
		FROM player_combat_history
		WHERE user_id = $1 AND location_id = $2
		FOR UPDATE`

	var history models.PlayerCombatHistory
	err := tx.QueryRowx(query, userID, locationID).StructScan(&history)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to lock history row: %w", err)
	}

	return &history, nil
}

// Save persiste la ligne complète via upsert
func (r *HistoryRepository) Save(tx *sqlx.Tx, history *models.PlayerCombatHistory) error {
	query := `
		INSERT INTO player_combat_history (
			user_id, location_id, total_attempts, victories, defeats,
			current_streak, longest_streak, last_attempt
		) VALUES (
			:user_id, :location_id, :total_attempts, :victories, :defeats,
			:current_streak, :longest_streak, :last_attempt
		)
		ON CONFLICT (user_id, location_id) DO UPDATE SET
			total_attempts = EXCLUDED.total_attempts,
			victories = EXCLUDED.victories,
			defeats = EXCLUDED.defeats,
			current_streak = EXCLUDED.current_streak,
			longest_streak = EXCLUDED.longest_streak,
			last_attempt = EXCLUDED.last_attempt`

	if _, err := tx.NamedExec(query, history); err != nil {
		return fmt.Errorf("failed to save history row: %w", err)
	}

	return nil
}

// Get récupère la ligne d'historique d'un joueur sur un lieu
func (r *HistoryRepository) Get(userID, locationID uuid.UUID) (*models.PlayerCombatHistory, error) {
	query := `
		SELECT ` + historyColumns + `
		FROM player_combat_history
		WHERE user_id = $1 AND location_id = $2`

	var history models.PlayerCombatHistory
	err := r.db.Get(&history, query, userID, locationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.NewNotFoundError("combat history", "no combat history for user %s at location %s", userID, locationID)
		}
		return nil, fmt.Errorf("failed to get combat history: %w", err)
	}

	return &history, nil
}

// GetAllByUser récupère toutes les lignes d'historique d'un joueur
func (r *HistoryRepository) GetAllByUser(userID uuid.UUID) ([]*models.PlayerCombatHistory, error) {
	query := `
		SELECT ` + historyColumns + `
		FROM player_combat_history
		WHERE user_id = $1
		ORDER BY last_attempt DESC`

	var rows []*models.PlayerCombatHistory
	if err := r.db.Select(&rows, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list combat history: %w", err)
	}

	return rows, nil
}
