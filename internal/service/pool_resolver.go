package service

import (
	"sort"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"encounter/internal/external"
	"encounter/internal/models"
	"encounter/internal/repository"
)

// PoolResolverInterface définit la résolution des pools vers un ennemi
// et vers du butin
type PoolResolverInterface interface {
	ResolveEnemy(combatLevel int, location *models.Location, rng RandomSource) (*models.EnemySpawn, error)
	MatchLootPools(combatLevel int, location *models.Location) ([]uuid.UUID, error)
	ResolveLoot(poolIDs []uuid.UUID, dropCount int, enemyStyleID string, rng RandomSource) ([]*models.LootDrop, error)
}

// PoolResolver implémente la sélection pondérée d'ennemis et de butin
// sur l'ensemble des pools correspondant au lieu et au niveau de combat
type PoolResolver struct {
	poolRepo   repository.PoolRepositoryInterface
	classifier external.MaterialTierClassifierInterface
}

// NewPoolResolver crée une nouvelle instance du résolveur de pools
func NewPoolResolver(poolRepo repository.PoolRepositoryInterface, classifier external.MaterialTierClassifierInterface) PoolResolverInterface {
	return &PoolResolver{
		poolRepo:   poolRepo,
		classifier: classifier,
	}
}

// matchesLocation indique si un filtre de pool correspond au lieu donné.
// Les filtres lat_range et lng_range sont réservés : ils ne correspondent
// jamais tant que leur règle n'est pas définie.
func matchesLocation(kind models.PoolFilterKind, value string, location *models.Location) bool {
	switch kind {
	case models.FilterUniversal:
		return true
	case models.FilterLocationType:
		return value == location.LocationType
	case models.FilterState:
		return value == location.StateCode
	case models.FilterCountry:
		return value == location.CountryCode
	case models.FilterLatRange, models.FilterLngRange:
		return false
	}
	return false
}

// ResolveEnemy sélectionne un type d'ennemi par tirage pondéré sur tous
// les pools d'ennemis correspondant au lieu. Les poids d'un même type
// présent dans plusieurs pools sont additionnés avant le tirage.
func (r *PoolResolver) ResolveEnemy(combatLevel int, location *models.Location, rng RandomSource) (*models.EnemySpawn, error) {
	pools, err := r.poolRepo.ListEnemyPoolsByLevel(combatLevel)
	if err != nil {
		return nil, err
	}

	var poolIDs []uuid.UUID
	for _, p := range pools {
		if matchesLocation(p.FilterKind, p.FilterValue, location) {
			poolIDs = append(poolIDs, p.ID)
		}
	}
	if len(poolIDs) == 0 {
		return nil, models.NewSelectionError("no enemy pool matches location %s at combat level %d", location.ID, combatLevel)
	}

	members, err := r.poolRepo.ListEnemyPoolMembers(poolIDs)
	if err != nil {
		return nil, err
	}

	weights := make(map[uuid.UUID]float64)
	for _, m := range members {
		weights[m.EnemyTypeID] += m.SpawnWeight
	}

	candidates := make([]WeightedCandidate, 0, len(weights))
	for enemyTypeID, weight := range weights {
		candidates = append(candidates, WeightedCandidate{ID: enemyTypeID, Weight: weight})
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].ID.String() < candidates[j].ID.String()
	})

	enemyTypeID, err := SelectWeighted(candidates, rng)
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"enemy_type_id": enemyTypeID,
		"combat_level":  combatLevel,
		"pool_count":    len(poolIDs),
	}).Debug("Enemy resolved from pools")

	return &models.EnemySpawn{
		EnemyTypeID: enemyTypeID,
		PoolIDs:     poolIDs,
	}, nil
}

// MatchLootPools retourne les identifiants des pools de butin correspondant
// au lieu et au niveau de combat. Le résultat est capturé au début de la
// rencontre puis rejoué à la complétion.
func (r *PoolResolver) MatchLootPools(combatLevel int, location *models.Location) ([]uuid.UUID, error) {
	pools, err := r.poolRepo.ListLootPoolsByLevel(combatLevel)
	if err != nil {
		return nil, err
	}

	var poolIDs []uuid.UUID
	for _, p := range pools {
		if matchesLocation(p.FilterKind, p.FilterValue, location) {
			poolIDs = append(poolIDs, p.ID)
		}
	}
	return poolIDs, nil
}

// ResolveLoot effectue dropCount tirages pondérés indépendants sur les
// entrées des pools donnés. Le poids d'un matériau est son poids de base
// multiplié par le multiplicateur de palier de son pool (1.0 par défaut) ;
// les types d'objets gardent leur poids de base. Chaque butin hérite du
// style de l'ennemi vaincu, quantité 1.
func (r *PoolResolver) ResolveLoot(poolIDs []uuid.UUID, dropCount int, enemyStyleID string, rng RandomSource) ([]*models.LootDrop, error) {
	if len(poolIDs) == 0 {
		return nil, models.NewSelectionError("no loot pool available for drop resolution")
	}

	entries, err := r.poolRepo.ListLootPoolEntries(poolIDs)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, models.NewSelectionError("loot pools contain no entries")
	}

	tierWeights, err := r.poolRepo.ListLootTierWeights(poolIDs)
	if err != nil {
		return nil, err
	}
	multipliers := make(map[uuid.UUID]map[string]float64)
	for _, tw := range tierWeights {
		if multipliers[tw.PoolID] == nil {
			multipliers[tw.PoolID] = make(map[string]float64)
		}
		multipliers[tw.PoolID][tw.TierName] = tw.Multiplier
	}

	// Chaque entrée est un candidat individuel : un même matériau présent
	// dans deux pools concourt deux fois, chacun avec son propre poids.
	candidates := make([]WeightedCandidate, 0, len(entries))
	byEntry := make(map[uuid.UUID]*models.LootPoolEntry, len(entries))
	for _, e := range entries {
		weight := e.BaseDropWeight
		if e.LootableType == models.LootableMaterial {
			tier, err := r.classifier.TierOf(e.LootableID)
			if err != nil {
				return nil, models.NewSelectionError("failed to classify material %s: %v", e.LootableID, err)
			}
			if m, ok := multipliers[e.PoolID][tier]; ok {
				weight *= m
			}
		}
		candidates = append(candidates, WeightedCandidate{ID: e.ID, Weight: weight})
		byEntry[e.ID] = e
	}

	drawn, err := SelectWeightedMany(candidates, dropCount, rng)
	if err != nil {
		return nil, err
	}

	drops := make([]*models.LootDrop, 0, len(drawn))
	for _, entryID := range drawn {
		entry := byEntry[entryID]
		drops = append(drops, &models.LootDrop{
			LootableType: entry.LootableType,
			LootableID:   entry.LootableID,
			StyleID:      enemyStyleID,
			Quantity:     1,
		})
	}

	logrus.WithFields(logrus.Fields{
		"drop_count": len(drops),
		"pool_count": len(poolIDs),
		"style_id":   enemyStyleID,
	}).Debug("Loot resolved from pools")

	return drops, nil
}
