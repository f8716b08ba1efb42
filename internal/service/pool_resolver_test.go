package service

import (
	"testing"

	"github.com/google/uuid"

	"encounter/internal/models"
)

// fakePoolRepo sert des pools en mémoire pour les tests du résolveur
type fakePoolRepo struct {
	enemyPools  []*models.EnemyPool
	members     []*models.EnemyPoolMember
	lootPools   []*models.LootPool
	entries     []*models.LootPoolEntry
	tierWeights []*models.LootPoolTierWeight
}

func (f *fakePoolRepo) ListEnemyPoolsByLevel(combatLevel int) ([]*models.EnemyPool, error) {
	var out []*models.EnemyPool
	for _, p := range f.enemyPools {
		if p.CombatLevel == combatLevel {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePoolRepo) ListEnemyPoolMembers(poolIDs []uuid.UUID) ([]*models.EnemyPoolMember, error) {
	var out []*models.EnemyPoolMember
	for _, m := range f.members {
		for _, id := range poolIDs {
			if m.PoolID == id {
				out = append(out, m)
			}
		}
	}
	return out, nil
}

func (f *fakePoolRepo) ListLootPoolsByLevel(combatLevel int) ([]*models.LootPool, error) {
	var out []*models.LootPool
	for _, p := range f.lootPools {
		if p.CombatLevel == combatLevel {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePoolRepo) ListLootPoolEntries(poolIDs []uuid.UUID) ([]*models.LootPoolEntry, error) {
	var out []*models.LootPoolEntry
	for _, e := range f.entries {
		for _, id := range poolIDs {
			if e.PoolID == id {
				out = append(out, e)
			}
		}
	}
	return out, nil
}

func (f *fakePoolRepo) ListLootTierWeights(poolIDs []uuid.UUID) ([]*models.LootPoolTierWeight, error) {
	var out []*models.LootPoolTierWeight
	for _, tw := range f.tierWeights {
		for _, id := range poolIDs {
			if tw.PoolID == id {
				out = append(out, tw)
			}
		}
	}
	return out, nil
}

// fakeClassifier mappe les matériaux vers des paliers fixes
type fakeClassifier struct {
	tiers map[uuid.UUID]string
}

func (f *fakeClassifier) TierOf(materialID uuid.UUID) (string, error) {
	if tier, ok := f.tiers[materialID]; ok {
		return tier, nil
	}
	return "standard", nil
}

func testLocation() *models.Location {
	return &models.Location{
		ID:           uuid.New(),
		LocationType: "park",
		StateCode:    "CA",
		CountryCode:  "US",
	}
}

func TestMatchesLocationFilters(t *testing.T) {
	location := testLocation()

	tests := []struct {
		name  string
		kind  models.PoolFilterKind
		value string
		want  bool
	}{
		{"universal always matches", models.FilterUniversal, "", true},
		{"location type match", models.FilterLocationType, "park", true},
		{"location type mismatch", models.FilterLocationType, "museum", false},
		{"state match", models.FilterState, "CA", true},
		{"state mismatch", models.FilterState, "NY", false},
		{"country match", models.FilterCountry, "US", true},
		{"country mismatch", models.FilterCountry, "FR", false},
		{"lat range reserved", models.FilterLatRange, "34.0,35.0", false},
		{"lng range reserved", models.FilterLngRange, "-120.0,-118.0", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := matchesLocation(tt.kind, tt.value, location); got != tt.want {
				t.Errorf("matchesLocation(%s, %q) = %v, want %v", tt.kind, tt.value, got, tt.want)
			}
		})
	}
}

func TestResolveEnemySumsWeightsAcrossPools(t *testing.T) {
	location := testLocation()
	poolA := uuid.New()
	poolB := uuid.New()
	shared := uuid.New()
	other := uuid.New()

	repo := &fakePoolRepo{
		enemyPools: []*models.EnemyPool{
			{ID: poolA, CombatLevel: 3, FilterKind: models.FilterUniversal},
			{ID: poolB, CombatLevel: 3, FilterKind: models.FilterState, FilterValue: "CA"},
		},
		members: []*models.EnemyPoolMember{
			{PoolID: poolA, EnemyTypeID: shared, SpawnWeight: 10},
			{PoolID: poolB, EnemyTypeID: shared, SpawnWeight: 30},
			{PoolID: poolB, EnemyTypeID: other, SpawnWeight: 60},
		},
	}
	resolver := NewPoolResolver(repo, &fakeClassifier{})

	rng := newSeededSource(11)
	const draws = 100000
	counts := make(map[uuid.UUID]int)
	for i := 0; i < draws; i++ {
		spawn, err := resolver.ResolveEnemy(3, location, rng)
		if err != nil {
			t.Fatalf("ResolveEnemy() error = %v", err)
		}
		if len(spawn.PoolIDs) != 2 {
			t.Fatalf("got %d matched pools, want 2", len(spawn.PoolIDs))
		}
		counts[spawn.EnemyTypeID]++
	}

	// shared cumule 10+30=40 sur un total de 100
	sharedShare := float64(counts[shared]) / draws
	if sharedShare < 0.39 || sharedShare > 0.41 {
		t.Errorf("shared enemy drawn %.4f of the time, want ~0.40", sharedShare)
	}
}

func TestResolveEnemyNoMatchingPool(t *testing.T) {
	repo := &fakePoolRepo{
		enemyPools: []*models.EnemyPool{
			{ID: uuid.New(), CombatLevel: 3, FilterKind: models.FilterState, FilterValue: "NY"},
		},
	}
	resolver := NewPoolResolver(repo, &fakeClassifier{})

	_, err := resolver.ResolveEnemy(3, testLocation(), newSeededSource(1))
	if !models.IsSelection(err) {
		t.Errorf("expected selection error, got %v", err)
	}
}

func TestResolveEnemyWrongLevelPoolExcluded(t *testing.T) {
	repo := &fakePoolRepo{
		enemyPools: []*models.EnemyPool{
			{ID: uuid.New(), CombatLevel: 5, FilterKind: models.FilterUniversal},
		},
	}
	resolver := NewPoolResolver(repo, &fakeClassifier{})

	_, err := resolver.ResolveEnemy(3, testLocation(), newSeededSource(1))
	if !models.IsSelection(err) {
		t.Errorf("expected selection error for level mismatch, got %v", err)
	}
}

func TestResolveLootInheritsEnemyStyle(t *testing.T) {
	pool := uuid.New()
	material := uuid.New()

	repo := &fakePoolRepo{
		entries: []*models.LootPoolEntry{
			{ID: uuid.New(), PoolID: pool, LootableType: models.LootableMaterial, LootableID: material, BaseDropWeight: 1},
		},
	}
	resolver := NewPoolResolver(repo, &fakeClassifier{})

	drops, err := resolver.ResolveLoot([]uuid.UUID{pool}, 3, "frost", newSeededSource(5))
	if err != nil {
		t.Fatalf("ResolveLoot() error = %v", err)
	}
	if len(drops) != 3 {
		t.Fatalf("got %d drops, want 3", len(drops))
	}
	for _, d := range drops {
		if d.StyleID != "frost" {
			t.Errorf("drop style = %q, want inherited enemy style %q", d.StyleID, "frost")
		}
		if d.Quantity != 1 {
			t.Errorf("drop quantity = %d, want 1", d.Quantity)
		}
		if d.LootableID != material {
			t.Errorf("drop lootable = %s, want %s", d.LootableID, material)
		}
	}
}

func TestResolveLootTierMultiplierShiftsOdds(t *testing.T) {
	pool := uuid.New()
	boosted := uuid.New()
	plain := uuid.New()

	repo := &fakePoolRepo{
		entries: []*models.LootPoolEntry{
			{ID: uuid.New(), PoolID: pool, LootableType: models.LootableMaterial, LootableID: boosted, BaseDropWeight: 10},
			{ID: uuid.New(), PoolID: pool, LootableType: models.LootableMaterial, LootableID: plain, BaseDropWeight: 10},
		},
		tierWeights: []*models.LootPoolTierWeight{
			{PoolID: pool, TierName: "legendary", Multiplier: 3},
		},
	}
	classifier := &fakeClassifier{tiers: map[uuid.UUID]string{
		boosted: "legendary",
		plain:   "weak",
	}}
	resolver := NewPoolResolver(repo, classifier)

	rng := newSeededSource(13)
	counts := make(map[uuid.UUID]int)
	const draws = 40000
	drops, err := resolver.ResolveLoot([]uuid.UUID{pool}, draws, "ember", rng)
	if err != nil {
		t.Fatalf("ResolveLoot() error = %v", err)
	}
	for _, d := range drops {
		counts[d.LootableID]++
	}

	// boosted pèse 30 contre 10 : ~75% des tirages
	boostedShare := float64(counts[boosted]) / draws
	if boostedShare < 0.73 || boostedShare > 0.77 {
		t.Errorf("boosted material drawn %.4f of the time, want ~0.75", boostedShare)
	}
}

func TestResolveLootItemTypeIgnoresTierMultiplier(t *testing.T) {
	pool := uuid.New()
	itemType := uuid.New()

	repo := &fakePoolRepo{
		entries: []*models.LootPoolEntry{
			{ID: uuid.New(), PoolID: pool, LootableType: models.LootableItemType, LootableID: itemType, BaseDropWeight: 5},
		},
		tierWeights: []*models.LootPoolTierWeight{
			{PoolID: pool, TierName: "standard", Multiplier: 0},
		},
	}
	resolver := NewPoolResolver(repo, &fakeClassifier{})

	// Si le multiplicateur s'appliquait aux types d'objets, le poids total
	// serait nul et la résolution échouerait
	drops, err := resolver.ResolveLoot([]uuid.UUID{pool}, 1, "", newSeededSource(2))
	if err != nil {
		t.Fatalf("ResolveLoot() error = %v", err)
	}
	if drops[0].LootableType != models.LootableItemType {
		t.Errorf("drop type = %s, want item_type", drops[0].LootableType)
	}
}

func TestResolveLootNoPools(t *testing.T) {
	resolver := NewPoolResolver(&fakePoolRepo{}, &fakeClassifier{})

	_, err := resolver.ResolveLoot(nil, 3, "frost", newSeededSource(1))
	if !models.IsSelection(err) {
		t.Errorf("expected selection error, got %v", err)
	}
}

func TestMatchLootPoolsCapturesMatchingIDs(t *testing.T) {
	location := testLocation()
	universal := uuid.New()
	wrongState := uuid.New()

	repo := &fakePoolRepo{
		lootPools: []*models.LootPool{
			{ID: universal, CombatLevel: 2, FilterKind: models.FilterUniversal},
			{ID: wrongState, CombatLevel: 2, FilterKind: models.FilterState, FilterValue: "NY"},
		},
	}
	resolver := NewPoolResolver(repo, &fakeClassifier{})

	ids, err := resolver.MatchLootPools(2, location)
	if err != nil {
		t.Fatalf("MatchLootPools() error = %v", err)
	}
	if len(ids) != 1 || ids[0] != universal {
		t.Errorf("got pools %v, want only %s", ids, universal)
	}
}
