package service

import (
	"sort"
	"testing"

	"github.com/google/uuid"

	"encounter/internal/models"
)

// fakeEventRepo journalise en mémoire avec la contrainte d'unicité du seq
type fakeEventRepo struct {
	events []*models.CombatLogEvent
}

func (f *fakeEventRepo) Append(event *models.CombatLogEvent) error {
	for _, e := range f.events {
		if e.CombatID == event.CombatID && e.Seq == event.Seq {
			return models.NewValidationError("duplicate seq %d for combat %s", event.Seq, event.CombatID)
		}
	}
	cp := *event
	f.events = append(f.events, &cp)
	return nil
}

func (f *fakeEventRepo) MaxSeq(combatID uuid.UUID) (int, bool, error) {
	max := 0
	found := false
	for _, e := range f.events {
		if e.CombatID == combatID && e.Seq > max {
			max = e.Seq
			found = true
		}
	}
	return max, found, nil
}

func (f *fakeEventRepo) ListByCombat(combatID uuid.UUID) ([]*models.CombatLogEvent, error) {
	var out []*models.CombatLogEvent
	for _, e := range f.events {
		if e.CombatID == combatID {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

func (f *fakeEventRepo) ListByActor(combatID uuid.UUID, actor models.EventActor) ([]*models.CombatLogEvent, error) {
	all, _ := f.ListByCombat(combatID)
	var out []*models.CombatLogEvent
	for _, e := range all {
		if e.Actor == actor {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeEventRepo) PurgeByCombat(combatID uuid.UUID) error {
	var kept []*models.CombatLogEvent
	for _, e := range f.events {
		if e.CombatID != combatID {
			kept = append(kept, e)
		}
	}
	f.events = kept
	return nil
}

func TestAppendEventOrdering(t *testing.T) {
	svc := NewJournalService(&fakeEventRepo{}, nil)
	combatID := uuid.New()

	for seq := 1; seq <= 3; seq++ {
		if _, err := svc.AppendEvent(combatID, seq, models.ActorPlayer, "attack", nil, nil); err != nil {
			t.Fatalf("AppendEvent(seq=%d) error = %v", seq, err)
		}
	}

	events, err := svc.ReadJournal(combatID)
	if err != nil {
		t.Fatalf("ReadJournal() error = %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}
	for i, e := range events {
		if e.Seq != i+1 {
			t.Errorf("events[%d].Seq = %d, want %d", i, e.Seq, i+1)
		}
	}
}

func TestAppendEventRejectsNonIncreasingSeq(t *testing.T) {
	svc := NewJournalService(&fakeEventRepo{}, nil)
	combatID := uuid.New()

	if _, err := svc.AppendEvent(combatID, 2, models.ActorPlayer, "attack", nil, nil); err != nil {
		t.Fatalf("AppendEvent(seq=2) error = %v", err)
	}

	// Même seq
	if _, err := svc.AppendEvent(combatID, 2, models.ActorEnemy, "counter", nil, nil); !models.IsValidation(err) {
		t.Errorf("AppendEvent(seq=2 again) = %v, want validation error", err)
	}
	// Seq inférieur
	if _, err := svc.AppendEvent(combatID, 1, models.ActorEnemy, "counter", nil, nil); !models.IsValidation(err) {
		t.Errorf("AppendEvent(seq=1 after 2) = %v, want validation error", err)
	}
	// Les trous sont permis, seule la croissance stricte compte
	if _, err := svc.AppendEvent(combatID, 10, models.ActorEnemy, "counter", nil, nil); err != nil {
		t.Errorf("AppendEvent(seq=10) error = %v", err)
	}
}

func TestAppendEventSeqIsPerCombat(t *testing.T) {
	svc := NewJournalService(&fakeEventRepo{}, nil)

	combatA := uuid.New()
	combatB := uuid.New()

	if _, err := svc.AppendEvent(combatA, 1, models.ActorPlayer, "attack", nil, nil); err != nil {
		t.Fatalf("AppendEvent(A, 1) error = %v", err)
	}
	// Le même seq sur un autre combat est indépendant
	if _, err := svc.AppendEvent(combatB, 1, models.ActorPlayer, "attack", nil, nil); err != nil {
		t.Errorf("AppendEvent(B, 1) error = %v", err)
	}
}

func TestAppendEventValidation(t *testing.T) {
	svc := NewJournalService(&fakeEventRepo{}, nil)
	combatID := uuid.New()

	if _, err := svc.AppendEvent(combatID, 0, models.ActorPlayer, "attack", nil, nil); !models.IsValidation(err) {
		t.Errorf("AppendEvent(seq=0) = %v, want validation error", err)
	}
	if _, err := svc.AppendEvent(combatID, 1, models.EventActor("npc"), "attack", nil, nil); !models.IsValidation(err) {
		t.Errorf("AppendEvent(invalid actor) = %v, want validation error", err)
	}
	if _, err := svc.AppendEvent(combatID, 1, models.ActorPlayer, "", nil, nil); !models.IsValidation(err) {
		t.Errorf("AppendEvent(empty type) = %v, want validation error", err)
	}
}

func TestReadJournalByActor(t *testing.T) {
	svc := NewJournalService(&fakeEventRepo{}, nil)
	combatID := uuid.New()

	damage := 12
	if _, err := svc.AppendEvent(combatID, 1, models.ActorSystem, "enemy_spawned", nil, nil); err != nil {
		t.Fatalf("AppendEvent() error = %v", err)
	}
	if _, err := svc.AppendEvent(combatID, 2, models.ActorPlayer, "attack", map[string]interface{}{"skill": "slash"}, &damage); err != nil {
		t.Fatalf("AppendEvent() error = %v", err)
	}
	if _, err := svc.AppendEvent(combatID, 3, models.ActorEnemy, "attack", nil, nil); err != nil {
		t.Fatalf("AppendEvent() error = %v", err)
	}

	playerEvents, err := svc.ReadJournalByActor(combatID, models.ActorPlayer)
	if err != nil {
		t.Fatalf("ReadJournalByActor() error = %v", err)
	}
	if len(playerEvents) != 1 {
		t.Fatalf("got %d player events, want 1", len(playerEvents))
	}
	if playerEvents[0].Value == nil || *playerEvents[0].Value != damage {
		t.Errorf("event value = %v, want %d", playerEvents[0].Value, damage)
	}
	if playerEvents[0].Payload["skill"] != "slash" {
		t.Errorf("payload skill = %v, want slash", playerEvents[0].Payload["skill"])
	}

	if _, err := svc.ReadJournalByActor(combatID, models.EventActor("ghost")); !models.IsValidation(err) {
		t.Errorf("ReadJournalByActor(invalid) = %v, want validation error", err)
	}
}

func TestPurgeJournal(t *testing.T) {
	repo := &fakeEventRepo{}
	svc := NewJournalService(repo, nil)
	combatID := uuid.New()

	if _, err := svc.AppendEvent(combatID, 1, models.ActorPlayer, "attack", nil, nil); err != nil {
		t.Fatalf("AppendEvent() error = %v", err)
	}
	if err := svc.PurgeJournal(combatID); err != nil {
		t.Fatalf("PurgeJournal() error = %v", err)
	}

	events, err := svc.ReadJournal(combatID)
	if err != nil {
		t.Fatalf("ReadJournal() error = %v", err)
	}
	if len(events) != 0 {
		t.Errorf("got %d events after purge, want 0", len(events))
	}

	// Après purge, le seq repart de zéro
	if _, err := svc.AppendEvent(combatID, 1, models.ActorPlayer, "attack", nil, nil); err != nil {
		t.Errorf("AppendEvent after purge error = %v", err)
	}
}
