package service

import (
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"encounter/internal/events"
	"encounter/internal/models"
)

// fakePublisher capture les événements publiés sur le bus
type fakePublisher struct {
	started   []*events.EncounterStartedEvent
	completed []*events.EncounterCompletedEvent
}

func (f *fakePublisher) PublishEncounterStarted(e *events.EncounterStartedEvent) error {
	f.started = append(f.started, e)
	return nil
}

func (f *fakePublisher) PublishEncounterCompleted(e *events.EncounterCompletedEvent) error {
	f.completed = append(f.completed, e)
	return nil
}

func (f *fakePublisher) Close() {}

// fakeRealtime compte les fermetures de flux
type fakeRealtime struct {
	closed []uuid.UUID
}

func (f *fakeRealtime) Subscribe(combatID uuid.UUID, conn *websocket.Conn)   {}
func (f *fakeRealtime) Unsubscribe(combatID uuid.UUID, conn *websocket.Conn) {}
func (f *fakeRealtime) BroadcastEvent(combatID uuid.UUID, event *models.CombatLogEvent) {
}
func (f *fakeRealtime) CloseCombat(combatID uuid.UUID) {
	f.closed = append(f.closed, combatID)
}

type encounterFixture struct {
	svc       EncounterServiceInterface
	history   *fakeHistoryService
	publisher *fakePublisher
	realtime  *fakeRealtime
	journal   JournalServiceInterface
	sessions  SessionServiceInterface
}

func newEncounterFixture(t *testing.T) *encounterFixture {
	t.Helper()

	enemyPool := uuid.New()
	lootPool := uuid.New()
	enemyType := uuid.New()
	material := uuid.New()

	poolRepo := &fakePoolRepo{
		enemyPools: []*models.EnemyPool{
			{ID: enemyPool, CombatLevel: 3, FilterKind: models.FilterUniversal},
		},
		members: []*models.EnemyPoolMember{
			{PoolID: enemyPool, EnemyTypeID: enemyType, SpawnWeight: 1},
		},
		lootPools: []*models.LootPool{
			{ID: lootPool, CombatLevel: 3, FilterKind: models.FilterUniversal},
		},
		entries: []*models.LootPoolEntry{
			{ID: uuid.New(), PoolID: lootPool, LootableType: models.LootableMaterial, LootableID: material, BaseDropWeight: 1},
		},
	}

	cfg := testEncounterConfig()
	history := &fakeHistoryService{}
	publisher := &fakePublisher{}
	realtime := &fakeRealtime{}

	sessions := NewSessionService(newFakeSessionRepo(), history, cfg)
	journal := NewJournalService(&fakeEventRepo{}, nil)
	resolver := NewPoolResolver(poolRepo, &fakeClassifier{})

	svc := NewEncounterService(sessions, journal, history, resolver, publisher, realtime, newSeededSource(21), cfg)

	return &encounterFixture{
		svc:       svc,
		history:   history,
		publisher: publisher,
		realtime:  realtime,
		journal:   journal,
		sessions:  sessions,
	}
}

func startRequest() *models.StartEncounterRequest {
	return &models.StartEncounterRequest{
		LocationID:   uuid.New(),
		LocationType: "park",
		StateCode:    "CA",
		CountryCode:  "US",
		CombatLevel:  3,
		EnemyStyleID: "frost",
	}
}

func TestStartEncounterFullFlow(t *testing.T) {
	f := newEncounterFixture(t)
	userID := uuid.New()

	resp, err := f.svc.StartEncounter(userID, startRequest())
	if err != nil {
		t.Fatalf("StartEncounter() error = %v", err)
	}

	if resp.Session == nil || resp.Spawn == nil {
		t.Fatal("response missing session or spawn")
	}
	if resp.Session.EnemyTypeID != resp.Spawn.EnemyTypeID {
		t.Error("session enemy does not match spawn")
	}
	if len(resp.Session.AppliedLootPools) != 1 {
		t.Errorf("captured %d loot pools, want 1", len(resp.Session.AppliedLootPools))
	}

	// La tentative est comptée au démarrage
	if len(f.history.attemptCalls) != 1 {
		t.Errorf("history attempt calls = %d, want 1", len(f.history.attemptCalls))
	}

	// L'apparition est journalisée en seq 1
	journal, err := f.journal.ReadJournal(resp.Session.ID)
	if err != nil {
		t.Fatalf("ReadJournal() error = %v", err)
	}
	if len(journal) != 1 || journal[0].Seq != 1 || journal[0].EventType != "enemy_spawned" {
		t.Errorf("journal = %+v, want one enemy_spawned event at seq 1", journal)
	}

	// L'événement de démarrage est publié
	if len(f.publisher.started) != 1 {
		t.Fatalf("published %d started events, want 1", len(f.publisher.started))
	}
	if f.publisher.started[0].SessionID != resp.Session.ID {
		t.Error("published started event references wrong session")
	}
}

func TestRecordTurnOnActiveEncounter(t *testing.T) {
	f := newEncounterFixture(t)
	userID := uuid.New()

	resp, err := f.svc.StartEncounter(userID, startRequest())
	if err != nil {
		t.Fatalf("StartEncounter() error = %v", err)
	}

	rating := 1480.0
	event, err := f.svc.RecordTurn(resp.Session.ID, &models.TurnEventRequest{
		Seq:       2,
		Actor:     "player",
		EventType: "attack",
		Payload:   map[string]interface{}{"skill": "slash"},
		Ratings:   &models.UpdateSessionParams{PlayerRating: &rating},
	})
	if err != nil {
		t.Fatalf("RecordTurn() error = %v", err)
	}
	if event.Seq != 2 {
		t.Errorf("event seq = %d, want 2", event.Seq)
	}

	session, err := f.sessions.GetSession(resp.Session.ID)
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	if session.PlayerRating == nil || *session.PlayerRating != rating {
		t.Errorf("player rating = %v, want %f", session.PlayerRating, rating)
	}
}

func TestRecordTurnOnUnknownEncounter(t *testing.T) {
	f := newEncounterFixture(t)

	_, err := f.svc.RecordTurn(uuid.New(), &models.TurnEventRequest{
		Seq: 1, Actor: "player", EventType: "attack",
	})
	if !models.IsNotFound(err) {
		t.Errorf("RecordTurn(unknown) = %v, want not found", err)
	}
}

func TestCompleteEncounterVictoryResolvesLoot(t *testing.T) {
	f := newEncounterFixture(t)
	userID := uuid.New()

	resp, err := f.svc.StartEncounter(userID, startRequest())
	if err != nil {
		t.Fatalf("StartEncounter() error = %v", err)
	}

	completed, err := f.svc.CompleteEncounter(resp.Session.ID, models.OutcomeVictory)
	if err != nil {
		t.Fatalf("CompleteEncounter() error = %v", err)
	}

	if len(completed.Drops) != 3 {
		t.Fatalf("got %d drops, want configured count 3", len(completed.Drops))
	}
	for _, d := range completed.Drops {
		if d.StyleID != "frost" {
			t.Errorf("drop style = %q, want enemy style frost", d.StyleID)
		}
	}

	if len(f.publisher.completed) != 1 {
		t.Errorf("published %d completed events, want 1", len(f.publisher.completed))
	}
	if len(f.realtime.closed) != 1 {
		t.Errorf("closed %d realtime streams, want 1", len(f.realtime.closed))
	}
}

func TestCompleteEncounterDefeatSkipsLoot(t *testing.T) {
	f := newEncounterFixture(t)
	userID := uuid.New()

	resp, err := f.svc.StartEncounter(userID, startRequest())
	if err != nil {
		t.Fatalf("StartEncounter() error = %v", err)
	}

	completed, err := f.svc.CompleteEncounter(resp.Session.ID, models.OutcomeDefeat)
	if err != nil {
		t.Fatalf("CompleteEncounter() error = %v", err)
	}
	if len(completed.Drops) != 0 {
		t.Errorf("got %d drops on defeat, want 0", len(completed.Drops))
	}
}

func TestStartEncounterNoMatchingPools(t *testing.T) {
	f := newEncounterFixture(t)

	req := startRequest()
	req.CombatLevel = 99

	_, err := f.svc.StartEncounter(uuid.New(), req)
	if !models.IsSelection(err) {
		t.Errorf("StartEncounter(level 99) = %v, want selection error", err)
	}
}
