package service

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"encounter/internal/config"
	"encounter/internal/models"
	"encounter/internal/monitoring"
	"encounter/internal/repository"
)

// SessionServiceInterface définit le cycle de vie des sessions de combat
type SessionServiceInterface interface {
	CreateSession(userID uuid.UUID, init *models.SessionInit) (*models.CombatSession, error)
	// GetActiveSession retourne la session si elle est encore active,
	// (nil, nil) sinon. Une session expirée est invisible par ce chemin
	// même si sa ligne n'est pas encore matérialisée.
	GetActiveSession(id uuid.UUID) (*models.CombatSession, error)
	GetSession(id uuid.UUID) (*models.CombatSession, error)
	GetUserActiveSession(userID uuid.UUID) (*models.CombatSession, error)
	UpdateSession(id uuid.UUID, params *models.UpdateSessionParams) (*models.CombatSession, error)
	CompleteSession(id uuid.UUID, outcome models.Outcome) (*models.CombatSession, error)
	CleanupExpiredSessions() (int, error)
	DeleteSession(id uuid.UUID) error
	StartCleanupRoutine()
	Stop()
}

// SessionService implémente la machine à états des sessions : active,
// terminale (victory/defeat/escape/abandoned) ou expirée. L'expiration est
// un prédicat dérivé de l'âge, matérialisé paresseusement en 'abandoned'.
type SessionService struct {
	sessionRepo repository.SessionRepositoryInterface
	historySvc  HistoryServiceInterface
	cfg         *config.EncounterConfig

	// injectable pour les tests
	now func() time.Time

	stopCh chan struct{}
}

// NewSessionService crée une nouvelle instance du service de sessions
func NewSessionService(sessionRepo repository.SessionRepositoryInterface, historySvc HistoryServiceInterface, cfg *config.EncounterConfig) SessionServiceInterface {
	return &SessionService{
		sessionRepo: sessionRepo,
		historySvc:  historySvc,
		cfg:         cfg,
		now:         time.Now,
		stopCh:      make(chan struct{}),
	}
}

// cutoff retourne l'instant de création en deçà duquel une session
// ouverte est considérée expirée
func (s *SessionService) cutoff(now time.Time) time.Time {
	return now.Add(-s.cfg.SessionTTL)
}

// CreateSession ouvre une nouvelle session pour le joueur. Au plus une
// session active par joueur : si une session ouverte existe déjà, elle
// bloque la création sauf si elle est expirée, auquel cas elle est
// abandonnée et la création retentée une fois.
func (s *SessionService) CreateSession(userID uuid.UUID, init *models.SessionInit) (*models.CombatSession, error) {
	if init.CombatLevel < 1 {
		return nil, models.NewValidationError("combat level must be at least 1, got %d", init.CombatLevel)
	}

	session := s.buildSession(userID, init)
	err := s.sessionRepo.Create(session)
	if err == nil {
		logrus.WithFields(logrus.Fields{
			"session_id":    session.ID,
			"user_id":       userID,
			"enemy_type_id": session.EnemyTypeID,
		}).Info("Combat session created")
		return session, nil
	}
	if !errors.Is(err, repository.ErrOpenSessionExists) {
		return nil, err
	}

	// Une session ouverte bloque : si elle est expirée on la matérialise
	// en abandon et on retente, sinon c'est une erreur métier
	blocker, berr := s.sessionRepo.GetLatestOpenByUser(userID)
	if berr != nil {
		return nil, berr
	}
	now := s.now()
	if blocker == nil || !blocker.IsExpired(now, s.cfg.SessionTTL) {
		return nil, models.NewBusinessLogicError("user %s already has an active combat session", userID)
	}

	if aerr := s.sessionRepo.MarkAbandoned(blocker.ID, now); aerr != nil {
		return nil, aerr
	}
	logrus.WithFields(logrus.Fields{
		"session_id": blocker.ID,
		"user_id":    userID,
	}).Info("Expired session abandoned to unblock creation")

	session = s.buildSession(userID, init)
	if err := s.sessionRepo.Create(session); err != nil {
		if errors.Is(err, repository.ErrOpenSessionExists) {
			return nil, models.NewBusinessLogicError("user %s already has an active combat session", userID)
		}
		return nil, err
	}
	return session, nil
}

// buildSession construit une session ouverte à partir des données initiales
func (s *SessionService) buildSession(userID uuid.UUID, init *models.SessionInit) *models.CombatSession {
	now := s.now()
	return &models.CombatSession{
		ID:                     uuid.New(),
		UserID:                 userID,
		LocationID:             init.LocationID,
		CombatLevel:            init.CombatLevel,
		EnemyTypeID:            init.EnemyTypeID,
		EnemyStyleID:           init.EnemyStyleID,
		AppliedEnemyPools:      init.AppliedEnemyPools,
		AppliedLootPools:       init.AppliedLootPools,
		PlayerRating:           init.PlayerRating,
		EnemyRating:            init.EnemyRating,
		WinProbabilityEstimate: init.WinProbabilityEstimate,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
}

// GetSession retourne la session quelle que soit sa phase
func (s *SessionService) GetSession(id uuid.UUID) (*models.CombatSession, error) {
	return s.sessionRepo.GetByID(id)
}

// GetActiveSession retourne la session si elle est active, (nil, nil) sinon
func (s *SessionService) GetActiveSession(id uuid.UUID) (*models.CombatSession, error) {
	session, err := s.sessionRepo.GetByID(id)
	if err != nil {
		if models.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	if !session.IsActive(s.now(), s.cfg.SessionTTL) {
		return nil, nil
	}
	return session, nil
}

// GetUserActiveSession retourne la session active du joueur, (nil, nil)
// si aucune
func (s *SessionService) GetUserActiveSession(userID uuid.UUID) (*models.CombatSession, error) {
	session, err := s.sessionRepo.GetLatestOpenByUser(userID)
	if err != nil {
		return nil, err
	}
	if session == nil || !session.IsActive(s.now(), s.cfg.SessionTTL) {
		return nil, nil
	}
	return session, nil
}

// UpdateSession met à jour les ratings d'une session active. Les sessions
// terminées ou expirées sont inaccessibles par ce chemin.
func (s *SessionService) UpdateSession(id uuid.UUID, params *models.UpdateSessionParams) (*models.CombatSession, error) {
	if params == nil || params.IsEmpty() {
		return nil, models.NewValidationError("at least one field is required for update")
	}

	now := s.now()
	if err := s.sessionRepo.UpdateFields(id, params, s.cutoff(now), now); err != nil {
		return nil, err
	}
	return s.sessionRepo.GetByID(id)
}

// CompleteSession pose une issue terminale sur une session active et
// enregistre le résultat dans l'historique. La condition gardée du stockage
// fait qu'une seule complétion concurrente peut gagner ; les suivantes
// voient une session introuvable.
func (s *SessionService) CompleteSession(id uuid.UUID, outcome models.Outcome) (*models.CombatSession, error) {
	if !outcome.IsValid() {
		return nil, models.NewValidationError("invalid outcome: %s", outcome)
	}

	now := s.now()
	session, err := s.sessionRepo.Complete(id, outcome, s.cutoff(now), now)
	if err != nil {
		return nil, err
	}

	if _, herr := s.historySvc.RecordResult(session.UserID, session.LocationID, outcome, now); herr != nil {
		// L'issue est posée ; une défaillance d'historique ne l'annule pas
		logrus.WithError(herr).WithField("session_id", id).Error("Failed to record combat result in history")
	}

	logrus.WithFields(logrus.Fields{
		"session_id": id,
		"user_id":    session.UserID,
		"outcome":    outcome,
	}).Info("Combat session completed")

	return session, nil
}

// CleanupExpiredSessions matérialise en 'abandoned' toutes les sessions
// ouvertes dont l'âge dépasse le TTL et retourne leur nombre
func (s *SessionService) CleanupExpiredSessions() (int, error) {
	now := s.now()
	expired, err := s.sessionRepo.CleanupExpired(s.cutoff(now), now)
	if err != nil {
		return 0, err
	}

	if s.cfg.CleanupRecordsHistory {
		for _, session := range expired {
			if _, herr := s.historySvc.RecordResult(session.UserID, session.LocationID, models.OutcomeAbandoned, now); herr != nil {
				logrus.WithError(herr).WithField("session_id", session.ID).Error("Failed to record abandoned session in history")
			}
		}
	}

	if len(expired) > 0 {
		monitoring.ExpiredSessionsCleanedTotal.Add(float64(len(expired)))
		logrus.WithField("count", len(expired)).Info("Expired combat sessions cleaned up")
	}
	return len(expired), nil
}

// DeleteSession supprime définitivement une session et ses événements
func (s *SessionService) DeleteSession(id uuid.UUID) error {
	return s.sessionRepo.Delete(id)
}

// StartCleanupRoutine lance la routine périodique de nettoyage des
// sessions expirées
func (s *SessionService) StartCleanupRoutine() {
	go func() {
		ticker := time.NewTicker(s.cfg.CleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if _, err := s.CleanupExpiredSessions(); err != nil {
					logrus.WithError(err).Error("Session cleanup failed")
				}
			case <-s.stopCh:
				return
			}
		}
	}()
}

// Stop arrête la routine de nettoyage
func (s *SessionService) Stop() {
	close(s.stopCh)
}
