package service

import (
	"github.com/google/uuid"

	"encounter/internal/models"
)

// WeightedCandidate représente un candidat pondéré pour la sélection.
// L'ordre de la slice est l'ordre stable défini par l'appelant : il fixe le
// découpage de [0, total) en intervalles, pas les probabilités.
type WeightedCandidate struct {
	ID     uuid.UUID
	Weight float64
}

// SelectWeighted tire un candidat proportionnellement à son poids.
// Un poids total nul est un défaut de contenu : SelectionError, jamais de
// repli silencieux sur un candidat arbitraire.
func SelectWeighted(candidates []WeightedCandidate, rng RandomSource) (uuid.UUID, error) {
	total, err := totalWeight(candidates)
	if err != nil {
		return uuid.Nil, err
	}

	r := rng.Float64() * total

	// Intervalles semi-ouverts [prev, cum) : un poids nul ne peut jamais
	// satisfaire la comparaison stricte
	var cumulative float64
	for _, c := range candidates {
		cumulative += c.Weight
		if cumulative > r {
			return c.ID, nil
		}
	}

	// Inatteignable : r < total et la somme des poids atteint total
	return candidates[len(candidates)-1].ID, nil
}

// SelectWeightedMany effectue n tirages indépendants, avec remise : un
// tirage ne réduit pas le poids restant des suivants.
func SelectWeightedMany(candidates []WeightedCandidate, n int, rng RandomSource) ([]uuid.UUID, error) {
	if n < 0 {
		return nil, models.NewValidationError("draw count cannot be negative: %d", n)
	}

	// Valider les poids une seule fois avant de tirer
	if _, err := totalWeight(candidates); err != nil {
		return nil, err
	}

	results := make([]uuid.UUID, 0, n)
	for i := 0; i < n; i++ {
		id, err := SelectWeighted(candidates, rng)
		if err != nil {
			return nil, err
		}
		results = append(results, id)
	}

	return results, nil
}

// totalWeight valide les poids et retourne leur somme
func totalWeight(candidates []WeightedCandidate) (float64, error) {
	var total float64
	for _, c := range candidates {
		if c.Weight < 0 {
			return 0, models.NewValidationError("negative weight %f for candidate %s", c.Weight, c.ID)
		}
		total += c.Weight
	}

	if total == 0 {
		return 0, models.NewSelectionError("no eligible candidate with positive weight")
	}

	return total, nil
}
