package service

import (
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"encounter/internal/config"
	"encounter/internal/events"
	"encounter/internal/models"
	"encounter/internal/monitoring"
)

// EncounterServiceInterface orchestre le cycle de vie complet d'une
// rencontre : résolution des pools, session, journal, historique, butin
type EncounterServiceInterface interface {
	StartEncounter(userID uuid.UUID, req *models.StartEncounterRequest) (*models.StartEncounterResponse, error)
	RecordTurn(combatID uuid.UUID, req *models.TurnEventRequest) (*models.CombatLogEvent, error)
	CompleteEncounter(combatID uuid.UUID, outcome models.Outcome) (*models.CompleteEncounterResponse, error)
	GetEncounter(combatID uuid.UUID) (*models.EncounterStatusResponse, error)
}

// EncounterService implémente l'orchestration des rencontres
type EncounterService struct {
	sessions  SessionServiceInterface
	journal   JournalServiceInterface
	history   HistoryServiceInterface
	resolver  PoolResolverInterface
	publisher events.PublisherInterface
	realtime  RealtimePublisherInterface
	rng       RandomSource
	cfg       *config.EncounterConfig

	// injectable pour les tests
	now func() time.Time
}

// NewEncounterService crée une nouvelle instance du service de rencontres
func NewEncounterService(
	sessions SessionServiceInterface,
	journal JournalServiceInterface,
	history HistoryServiceInterface,
	resolver PoolResolverInterface,
	publisher events.PublisherInterface,
	realtime RealtimePublisherInterface,
	rng RandomSource,
	cfg *config.EncounterConfig,
) EncounterServiceInterface {
	return &EncounterService{
		sessions:  sessions,
		journal:   journal,
		history:   history,
		resolver:  resolver,
		publisher: publisher,
		realtime:  realtime,
		rng:       rng,
		cfg:       cfg,
		now:       time.Now,
	}
}

// StartEncounter démarre une rencontre : résout l'ennemi et les pools de
// butin depuis le lieu, ouvre la session, compte la tentative, journalise
// l'apparition en seq 1 et publie l'événement de démarrage
func (s *EncounterService) StartEncounter(userID uuid.UUID, req *models.StartEncounterRequest) (*models.StartEncounterResponse, error) {
	location := req.Location()

	spawn, err := s.resolver.ResolveEnemy(req.CombatLevel, location, s.rng)
	if err != nil {
		if models.IsSelection(err) {
			monitoring.SelectionFailuresTotal.WithLabelValues("enemy").Inc()
		}
		return nil, err
	}

	lootPoolIDs, err := s.resolver.MatchLootPools(req.CombatLevel, location)
	if err != nil {
		return nil, err
	}

	session, err := s.sessions.CreateSession(userID, &models.SessionInit{
		LocationID:             req.LocationID,
		CombatLevel:            req.CombatLevel,
		EnemyTypeID:            spawn.EnemyTypeID,
		EnemyStyleID:           req.EnemyStyleID,
		AppliedEnemyPools:      spawn.PoolIDs,
		AppliedLootPools:       lootPoolIDs,
		PlayerRating:           req.PlayerRating,
		WinProbabilityEstimate: req.WinProbabilityEstimate,
	})
	if err != nil {
		return nil, err
	}

	if _, herr := s.history.RecordAttemptStart(userID, req.LocationID, s.now()); herr != nil {
		logrus.WithError(herr).WithField("session_id", session.ID).Error("Failed to record attempt start")
	}

	spawnPayload := map[string]interface{}{
		"enemy_type_id": spawn.EnemyTypeID.String(),
		"combat_level":  req.CombatLevel,
	}
	if _, jerr := s.journal.AppendEvent(session.ID, 1, models.ActorSystem, "enemy_spawned", spawnPayload, nil); jerr != nil {
		logrus.WithError(jerr).WithField("session_id", session.ID).Error("Failed to journal spawn event")
	}

	if perr := s.publisher.PublishEncounterStarted(&events.EncounterStartedEvent{
		SessionID:   session.ID,
		UserID:      userID,
		LocationID:  req.LocationID,
		CombatLevel: req.CombatLevel,
		EnemyTypeID: spawn.EnemyTypeID,
		Timestamp:   s.now(),
	}); perr != nil {
		logrus.WithError(perr).Error("Failed to publish encounter started event")
	}

	monitoring.EncountersStartedTotal.WithLabelValues(strconv.Itoa(req.CombatLevel)).Inc()

	return &models.StartEncounterResponse{
		Session: session,
		Spawn:   spawn,
	}, nil
}

// RecordTurn journalise un événement de tour sur une rencontre active et
// applique la mise à jour de ratings si fournie
func (s *EncounterService) RecordTurn(combatID uuid.UUID, req *models.TurnEventRequest) (*models.CombatLogEvent, error) {
	session, err := s.sessions.GetActiveSession(combatID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, models.NewNotFoundError("combat session", "no active combat session %s", combatID)
	}

	if req.Ratings != nil && !req.Ratings.IsEmpty() {
		if _, uerr := s.sessions.UpdateSession(combatID, req.Ratings); uerr != nil {
			return nil, uerr
		}
	}

	return s.journal.AppendEvent(combatID, req.Seq, models.EventActor(req.Actor), req.EventType, req.Payload, req.Value)
}

// CompleteEncounter pose l'issue d'une rencontre. Une victoire déclenche la
// résolution du butin sur les pools capturés au démarrage ; le butin hérite
// du style de l'ennemi vaincu.
func (s *EncounterService) CompleteEncounter(combatID uuid.UUID, outcome models.Outcome) (*models.CompleteEncounterResponse, error) {
	session, err := s.sessions.CompleteSession(combatID, outcome)
	if err != nil {
		return nil, err
	}

	var drops []*models.LootDrop
	if outcome.CountsAsVictory() {
		drops, err = s.resolver.ResolveLoot(session.AppliedLootPools, s.cfg.DefaultDropCount, session.EnemyStyleID, s.rng)
		if err != nil {
			if models.IsSelection(err) {
				// Une victoire sans butin éligible reste une victoire
				monitoring.SelectionFailuresTotal.WithLabelValues("loot").Inc()
				logrus.WithError(err).WithField("session_id", combatID).Warn("No loot resolved for victory")
				drops = nil
			} else {
				return nil, err
			}
		}
	}

	history, herr := s.history.GetHistory(session.UserID, session.LocationID)
	if herr != nil && !models.IsNotFound(herr) {
		logrus.WithError(herr).WithField("session_id", combatID).Error("Failed to load combat history")
	}

	if perr := s.publisher.PublishEncounterCompleted(&events.EncounterCompletedEvent{
		SessionID:  session.ID,
		UserID:     session.UserID,
		LocationID: session.LocationID,
		Outcome:    outcome,
		Drops:      drops,
		Timestamp:  s.now(),
	}); perr != nil {
		logrus.WithError(perr).Error("Failed to publish encounter completed event")
	}

	s.realtime.CloseCombat(combatID)
	monitoring.EncountersCompletedTotal.WithLabelValues(string(outcome)).Inc()

	return &models.CompleteEncounterResponse{
		Session: session,
		Drops:   drops,
		History: history,
	}, nil
}

// GetEncounter retourne une session, quelle que soit sa phase, avec son
// journal complet
func (s *EncounterService) GetEncounter(combatID uuid.UUID) (*models.EncounterStatusResponse, error) {
	session, err := s.sessions.GetSession(combatID)
	if err != nil {
		return nil, err
	}

	eventsList, err := s.journal.ReadJournal(combatID)
	if err != nil {
		return nil, err
	}

	return &models.EncounterStatusResponse{
		Session: session,
		Events:  eventsList,
	}, nil
}
