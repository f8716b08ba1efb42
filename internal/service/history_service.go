package service

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"encounter/internal/models"
	"encounter/internal/repository"
)

// HistoryServiceInterface définit la tenue de l'historique de combat
// par couple (joueur, lieu)
type HistoryServiceInterface interface {
	RecordAttemptStart(userID, locationID uuid.UUID, now time.Time) (*models.PlayerCombatHistory, error)
	RecordResult(userID, locationID uuid.UUID, outcome models.Outcome, now time.Time) (*models.PlayerCombatHistory, error)
	GetHistory(userID, locationID uuid.UUID) (*models.PlayerCombatHistory, error)
	GetStats(userID uuid.UUID) (*models.PlayerStatsSummary, error)
	GetTopLocations(userID uuid.UUID, limit int) ([]*models.TopLocation, error)
}

// HistoryService implémente la logique des compteurs et des séries de
// victoires. Les règles de série vivent ici, pas dans le SQL.
type HistoryService struct {
	historyRepo repository.HistoryRepositoryInterface
}

// NewHistoryService crée une nouvelle instance du service d'historique
func NewHistoryService(historyRepo repository.HistoryRepositoryInterface) HistoryServiceInterface {
	return &HistoryService{historyRepo: historyRepo}
}

// RecordAttemptStart incrémente le compteur de tentatives au démarrage
// d'une rencontre, avant de connaître l'issue
func (s *HistoryService) RecordAttemptStart(userID, locationID uuid.UUID, now time.Time) (*models.PlayerCombatHistory, error) {
	history, err := s.historyRepo.IncrementAttempts(userID, locationID, now)
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"user_id":        userID,
		"location_id":    locationID,
		"total_attempts": history.TotalAttempts,
	}).Debug("Combat attempt recorded")

	return history, nil
}

// RecordResult applique l'issue d'une rencontre aux compteurs et aux séries :
// une victoire incrémente victoires et série courante (et pousse la plus
// longue série si dépassée) ; toute autre issue incrémente les défaites et
// remet la série courante à zéro.
func (s *HistoryService) RecordResult(userID, locationID uuid.UUID, outcome models.Outcome, now time.Time) (*models.PlayerCombatHistory, error) {
	var result *models.PlayerCombatHistory

	err := s.historyRepo.WithTx(func(tx *sqlx.Tx) error {
		history, err := s.historyRepo.GetForUpdate(tx, userID, locationID)
		if err != nil {
			return err
		}
		if history == nil {
			// La ligne aurait dû être créée au démarrage ; on la crée ici
			// pour rester robuste aux complétions orphelines
			history = &models.PlayerCombatHistory{
				UserID:        userID,
				LocationID:    locationID,
				TotalAttempts: 1,
			}
		}

		if outcome.CountsAsVictory() {
			history.Victories++
			history.CurrentStreak++
			if history.CurrentStreak > history.LongestStreak {
				history.LongestStreak = history.CurrentStreak
			}
		} else {
			history.Defeats++
			history.CurrentStreak = 0
		}
		history.LastAttempt = now

		// Garde d'invariant : les issues décomptées ne peuvent pas dépasser
		// les tentatives démarrées
		if history.Victories+history.Defeats > history.TotalAttempts {
			history.TotalAttempts = history.Victories + history.Defeats
		}

		if err := s.historyRepo.Save(tx, history); err != nil {
			return err
		}
		result = history
		return nil
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"user_id":        userID,
		"location_id":    locationID,
		"outcome":        outcome,
		"current_streak": result.CurrentStreak,
		"longest_streak": result.LongestStreak,
	}).Info("Combat result recorded")

	return result, nil
}

// GetHistory retourne l'historique d'un joueur sur un lieu donné
func (s *HistoryService) GetHistory(userID, locationID uuid.UUID) (*models.PlayerCombatHistory, error) {
	return s.historyRepo.Get(userID, locationID)
}

// GetStats agrège l'historique d'un joueur sur l'ensemble de ses lieux
func (s *HistoryService) GetStats(userID uuid.UUID) (*models.PlayerStatsSummary, error) {
	histories, err := s.historyRepo.GetAllByUser(userID)
	if err != nil {
		return nil, err
	}

	summary := &models.PlayerStatsSummary{
		TotalLocations: len(histories),
	}
	for _, h := range histories {
		summary.TotalAttempts += h.TotalAttempts
		summary.TotalVictories += h.Victories
		summary.TotalDefeats += h.Defeats
		if h.LongestStreak > summary.LongestStreak {
			summary.LongestStreak = h.LongestStreak
		}
		if h.CurrentStreak > 0 {
			summary.CurrentActiveStreaks++
		}
	}
	if summary.TotalAttempts > 0 {
		summary.WinRate = float64(summary.TotalVictories) / float64(summary.TotalAttempts)
	}

	return summary, nil
}

// Un lieu doit avoir été tenté au moins ce nombre de fois pour figurer
// dans le classement
const topLocationMinAttempts = 3

// GetTopLocations retourne les lieux où le joueur gagne le plus, triés par
// victoires décroissantes. Les lieux trop peu tentés sont exclus.
func (s *HistoryService) GetTopLocations(userID uuid.UUID, limit int) ([]*models.TopLocation, error) {
	if limit <= 0 {
		limit = 10
	}

	all, err := s.historyRepo.GetAllByUser(userID)
	if err != nil {
		return nil, err
	}

	histories := make([]*models.PlayerCombatHistory, 0, len(all))
	for _, h := range all {
		if h.TotalAttempts >= topLocationMinAttempts {
			histories = append(histories, h)
		}
	}

	sort.Slice(histories, func(i, j int) bool {
		if histories[i].Victories != histories[j].Victories {
			return histories[i].Victories > histories[j].Victories
		}
		return histories[i].LocationID.String() < histories[j].LocationID.String()
	})

	if len(histories) > limit {
		histories = histories[:limit]
	}

	top := make([]*models.TopLocation, 0, len(histories))
	for _, h := range histories {
		top = append(top, &models.TopLocation{
			LocationID:    h.LocationID,
			TotalAttempts: h.TotalAttempts,
			Victories:     h.Victories,
			Defeats:       h.Defeats,
			WinRate:       h.WinRate(),
			CurrentStreak: h.CurrentStreak,
			LongestStreak: h.LongestStreak,
		})
	}

	return top, nil
}
