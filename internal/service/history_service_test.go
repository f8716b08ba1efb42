package service

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"encounter/internal/models"
)

type historyKey struct {
	userID     uuid.UUID
	locationID uuid.UUID
}

// fakeHistoryRepo tient les lignes d'historique en mémoire. Les méthodes
// transactionnelles ignorent la transaction, le fake étant mono-thread.
type fakeHistoryRepo struct {
	rows map[historyKey]*models.PlayerCombatHistory
}

func newFakeHistoryRepo() *fakeHistoryRepo {
	return &fakeHistoryRepo{rows: make(map[historyKey]*models.PlayerCombatHistory)}
}

func (f *fakeHistoryRepo) IncrementAttempts(userID, locationID uuid.UUID, now time.Time) (*models.PlayerCombatHistory, error) {
	key := historyKey{userID, locationID}
	row, ok := f.rows[key]
	if !ok {
		row = &models.PlayerCombatHistory{UserID: userID, LocationID: locationID}
		f.rows[key] = row
	}
	row.TotalAttempts++
	row.LastAttempt = now
	cp := *row
	return &cp, nil
}

func (f *fakeHistoryRepo) WithTx(fn func(tx *sqlx.Tx) error) error {
	return fn(nil)
}

func (f *fakeHistoryRepo) GetForUpdate(tx *sqlx.Tx, userID, locationID uuid.UUID) (*models.PlayerCombatHistory, error) {
	row, ok := f.rows[historyKey{userID, locationID}]
	if !ok {
		return nil, nil
	}
	cp := *row
	return &cp, nil
}

func (f *fakeHistoryRepo) Save(tx *sqlx.Tx, history *models.PlayerCombatHistory) error {
	cp := *history
	f.rows[historyKey{history.UserID, history.LocationID}] = &cp
	return nil
}

func (f *fakeHistoryRepo) Get(userID, locationID uuid.UUID) (*models.PlayerCombatHistory, error) {
	row, ok := f.rows[historyKey{userID, locationID}]
	if !ok {
		return nil, models.NewNotFoundError("combat history", "no combat history for user %s at location %s", userID, locationID)
	}
	cp := *row
	return &cp, nil
}

func (f *fakeHistoryRepo) GetAllByUser(userID uuid.UUID) ([]*models.PlayerCombatHistory, error) {
	var out []*models.PlayerCombatHistory
	for _, row := range f.rows {
		if row.UserID == userID {
			cp := *row
			out = append(out, &cp)
		}
	}
	return out, nil
}

func TestRecordResultStreakScenario(t *testing.T) {
	repo := newFakeHistoryRepo()
	svc := NewHistoryService(repo)
	userID := uuid.New()
	locationID := uuid.New()
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	steps := []struct {
		outcome       models.Outcome
		attempts      int
		victories     int
		defeats       int
		currentStreak int
		longestStreak int
	}{
		{models.OutcomeVictory, 1, 1, 0, 1, 1},
		{models.OutcomeVictory, 2, 2, 0, 2, 2},
		{models.OutcomeDefeat, 3, 2, 1, 0, 2},
		{models.OutcomeVictory, 4, 3, 1, 1, 2},
	}

	for i, step := range steps {
		if _, err := svc.RecordAttemptStart(userID, locationID, now); err != nil {
			t.Fatalf("attempt %d: RecordAttemptStart() error = %v", i+1, err)
		}
		got, err := svc.RecordResult(userID, locationID, step.outcome, now)
		if err != nil {
			t.Fatalf("attempt %d: RecordResult() error = %v", i+1, err)
		}

		if got.TotalAttempts != step.attempts {
			t.Errorf("attempt %d: attempts = %d, want %d", i+1, got.TotalAttempts, step.attempts)
		}
		if got.Victories != step.victories {
			t.Errorf("attempt %d: victories = %d, want %d", i+1, got.Victories, step.victories)
		}
		if got.Defeats != step.defeats {
			t.Errorf("attempt %d: defeats = %d, want %d", i+1, got.Defeats, step.defeats)
		}
		if got.CurrentStreak != step.currentStreak {
			t.Errorf("attempt %d: currentStreak = %d, want %d", i+1, got.CurrentStreak, step.currentStreak)
		}
		if got.LongestStreak != step.longestStreak {
			t.Errorf("attempt %d: longestStreak = %d, want %d", i+1, got.LongestStreak, step.longestStreak)
		}
	}
}

func TestRecordResultEscapeBreaksStreak(t *testing.T) {
	repo := newFakeHistoryRepo()
	svc := NewHistoryService(repo)
	userID := uuid.New()
	locationID := uuid.New()
	now := time.Now()

	for _, outcome := range []models.Outcome{models.OutcomeVictory, models.OutcomeVictory, models.OutcomeEscape} {
		if _, err := svc.RecordAttemptStart(userID, locationID, now); err != nil {
			t.Fatalf("RecordAttemptStart() error = %v", err)
		}
		if _, err := svc.RecordResult(userID, locationID, outcome, now); err != nil {
			t.Fatalf("RecordResult(%s) error = %v", outcome, err)
		}
	}

	got, err := svc.GetHistory(userID, locationID)
	if err != nil {
		t.Fatalf("GetHistory() error = %v", err)
	}
	if got.CurrentStreak != 0 {
		t.Errorf("currentStreak after escape = %d, want 0", got.CurrentStreak)
	}
	if got.LongestStreak != 2 {
		t.Errorf("longestStreak = %d, want 2", got.LongestStreak)
	}
	if got.Defeats != 1 {
		t.Errorf("defeats = %d, want 1 (escape counts as defeat)", got.Defeats)
	}
}

func TestRecordResultOrphanCompletionCreatesRow(t *testing.T) {
	repo := newFakeHistoryRepo()
	svc := NewHistoryService(repo)
	userID := uuid.New()
	locationID := uuid.New()

	// Complétion sans démarrage préalable : la ligne est créée et
	// l'invariant attempts >= victories + defeats tenu
	got, err := svc.RecordResult(userID, locationID, models.OutcomeVictory, time.Now())
	if err != nil {
		t.Fatalf("RecordResult() error = %v", err)
	}
	if got.TotalAttempts < got.Victories+got.Defeats {
		t.Errorf("invariant broken: attempts=%d victories=%d defeats=%d",
			got.TotalAttempts, got.Victories, got.Defeats)
	}
}

func TestGetStatsAggregatesAcrossLocations(t *testing.T) {
	repo := newFakeHistoryRepo()
	svc := NewHistoryService(repo)
	userID := uuid.New()
	now := time.Now()

	repo.rows[historyKey{userID, uuid.New()}] = &models.PlayerCombatHistory{
		UserID: userID, TotalAttempts: 10, Victories: 7, Defeats: 3,
		CurrentStreak: 2, LongestStreak: 5, LastAttempt: now,
	}
	repo.rows[historyKey{userID, uuid.New()}] = &models.PlayerCombatHistory{
		UserID: userID, TotalAttempts: 4, Victories: 1, Defeats: 2,
		CurrentStreak: 0, LongestStreak: 1, LastAttempt: now,
	}
	// Ligne d'un autre joueur, ignorée
	repo.rows[historyKey{uuid.New(), uuid.New()}] = &models.PlayerCombatHistory{
		UserID: uuid.New(), TotalAttempts: 99, Victories: 99,
	}

	stats, err := svc.GetStats(userID)
	if err != nil {
		t.Fatalf("GetStats() error = %v", err)
	}

	if stats.TotalLocations != 2 {
		t.Errorf("totalLocations = %d, want 2", stats.TotalLocations)
	}
	if stats.TotalAttempts != 14 {
		t.Errorf("totalAttempts = %d, want 14", stats.TotalAttempts)
	}
	if stats.TotalVictories != 8 {
		t.Errorf("totalVictories = %d, want 8", stats.TotalVictories)
	}
	wantRate := 8.0 / 14.0
	if stats.WinRate != wantRate {
		t.Errorf("winRate = %f, want %f", stats.WinRate, wantRate)
	}
	if stats.LongestStreak != 5 {
		t.Errorf("longestStreak = %d, want 5", stats.LongestStreak)
	}
	if stats.CurrentActiveStreaks != 1 {
		t.Errorf("currentActiveStreaks = %d, want 1", stats.CurrentActiveStreaks)
	}
}

func TestGetStatsEmptyHistory(t *testing.T) {
	svc := NewHistoryService(newFakeHistoryRepo())

	stats, err := svc.GetStats(uuid.New())
	if err != nil {
		t.Fatalf("GetStats() error = %v", err)
	}
	if stats.WinRate != 0 {
		t.Errorf("winRate with no attempts = %f, want 0", stats.WinRate)
	}
}

func TestGetTopLocationsFiltersAndOrders(t *testing.T) {
	repo := newFakeHistoryRepo()
	svc := NewHistoryService(repo)
	userID := uuid.New()

	best := uuid.New()
	second := uuid.New()
	tooFew := uuid.New()

	repo.rows[historyKey{userID, best}] = &models.PlayerCombatHistory{
		UserID: userID, LocationID: best, TotalAttempts: 10, Victories: 9, Defeats: 1,
	}
	repo.rows[historyKey{userID, second}] = &models.PlayerCombatHistory{
		UserID: userID, LocationID: second, TotalAttempts: 8, Victories: 4, Defeats: 4,
	}
	// Moins de trois tentatives : exclu du classement
	repo.rows[historyKey{userID, tooFew}] = &models.PlayerCombatHistory{
		UserID: userID, LocationID: tooFew, TotalAttempts: 2, Victories: 2,
	}

	top, err := svc.GetTopLocations(userID, 10)
	if err != nil {
		t.Fatalf("GetTopLocations() error = %v", err)
	}

	if len(top) != 2 {
		t.Fatalf("got %d locations, want 2", len(top))
	}
	if top[0].LocationID != best || top[1].LocationID != second {
		t.Errorf("order = [%s, %s], want [%s, %s]", top[0].LocationID, top[1].LocationID, best, second)
	}
	if top[0].WinRate != 0.9 {
		t.Errorf("winRate = %f, want 0.9", top[0].WinRate)
	}
}

func TestGetTopLocationsHonorsLimit(t *testing.T) {
	repo := newFakeHistoryRepo()
	svc := NewHistoryService(repo)
	userID := uuid.New()

	for i := 0; i < 5; i++ {
		loc := uuid.New()
		repo.rows[historyKey{userID, loc}] = &models.PlayerCombatHistory{
			UserID: userID, LocationID: loc, TotalAttempts: 5, Victories: i,
		}
	}

	top, err := svc.GetTopLocations(userID, 3)
	if err != nil {
		t.Fatalf("GetTopLocations() error = %v", err)
	}
	if len(top) != 3 {
		t.Errorf("got %d locations, want 3", len(top))
	}
	if top[0].Victories != 4 {
		t.Errorf("first entry victories = %d, want 4", top[0].Victories)
	}
}
