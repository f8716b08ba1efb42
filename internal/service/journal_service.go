package service

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"encounter/internal/models"
	"encounter/internal/repository"
)

// JournalServiceInterface définit le journal append-only des événements
// de combat
type JournalServiceInterface interface {
	AppendEvent(combatID uuid.UUID, seq int, actor models.EventActor, eventType string, payload map[string]interface{}, value *int) (*models.CombatLogEvent, error)
	ReadJournal(combatID uuid.UUID) ([]*models.CombatLogEvent, error)
	ReadJournalByActor(combatID uuid.UUID, actor models.EventActor) ([]*models.CombatLogEvent, error)
	PurgeJournal(combatID uuid.UUID) error
}

// JournalService implémente le journal de combat. Le seq est attribué par
// l'appelant ; le service garantit la stricte croissance par combat, sous
// verrou par combat pour sérialiser les appends concurrents.
type JournalService struct {
	eventRepo repository.EventRepositoryInterface
	realtime  RealtimePublisherInterface

	// injectable pour les tests
	now func() time.Time

	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

// NewJournalService crée une nouvelle instance du service de journal
func NewJournalService(eventRepo repository.EventRepositoryInterface, realtime RealtimePublisherInterface) JournalServiceInterface {
	return &JournalService{
		eventRepo: eventRepo,
		realtime:  realtime,
		now:       time.Now,
		locks:     make(map[uuid.UUID]*sync.Mutex),
	}
}

// combatLock retourne le verrou d'append du combat, créé au premier accès
func (s *JournalService) combatLock(combatID uuid.UUID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[combatID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[combatID] = lock
	}
	return lock
}

// AppendEvent ajoute un événement au journal du combat. Le seq doit être
// strictement supérieur au seq le plus élevé déjà journalisé.
func (s *JournalService) AppendEvent(combatID uuid.UUID, seq int, actor models.EventActor, eventType string, payload map[string]interface{}, value *int) (*models.CombatLogEvent, error) {
	if seq < 1 {
		return nil, models.NewValidationError("seq must be at least 1, got %d", seq)
	}
	if !actor.IsValid() {
		return nil, models.NewValidationError("invalid event actor: %s", actor)
	}
	if eventType == "" {
		return nil, models.NewValidationError("event type is required")
	}

	lock := s.combatLock(combatID)
	lock.Lock()
	defer lock.Unlock()

	maxSeq, hasEvents, err := s.eventRepo.MaxSeq(combatID)
	if err != nil {
		return nil, err
	}
	if hasEvents && seq <= maxSeq {
		return nil, models.NewValidationError("seq %d is not greater than current max %d for combat %s", seq, maxSeq, combatID)
	}

	event := &models.CombatLogEvent{
		ID:        uuid.New(),
		CombatID:  combatID,
		Seq:       seq,
		Actor:     actor,
		EventType: eventType,
		Payload:   payload,
		Value:     value,
		Timestamp: s.now(),
	}
	if err := s.eventRepo.Append(event); err != nil {
		return nil, err
	}

	if s.realtime != nil {
		s.realtime.BroadcastEvent(combatID, event)
	}

	logrus.WithFields(logrus.Fields{
		"combat_id":  combatID,
		"seq":        seq,
		"actor":      actor,
		"event_type": eventType,
	}).Debug("Combat event journaled")

	return event, nil
}

// ReadJournal retourne tous les événements du combat, par seq croissant
func (s *JournalService) ReadJournal(combatID uuid.UUID) ([]*models.CombatLogEvent, error) {
	return s.eventRepo.ListByCombat(combatID)
}

// ReadJournalByActor retourne les événements d'un acteur, par seq croissant
func (s *JournalService) ReadJournalByActor(combatID uuid.UUID, actor models.EventActor) ([]*models.CombatLogEvent, error) {
	if !actor.IsValid() {
		return nil, models.NewValidationError("invalid event actor: %s", actor)
	}
	return s.eventRepo.ListByActor(combatID, actor)
}

// PurgeJournal supprime le journal d'un combat et libère son verrou
func (s *JournalService) PurgeJournal(combatID uuid.UUID) error {
	if err := s.eventRepo.PurgeByCombat(combatID); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.locks, combatID)
	s.mu.Unlock()
	return nil
}
