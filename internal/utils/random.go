package utils

import (
	"crypto/rand"
	"math/big"
)

const (
	// Constantes pour la génération aléatoire sécurisée
	randomPrecision     = 1 << 53
	randomPrecisionF64  = float64(randomPrecision)
	fallbackRandomValue = 0.5
)

// SecureRandFloat64 génère un nombre aléatoire sécurisé dans [0.0, 1.0)
func SecureRandFloat64() float64 {
	maxVal := big.NewInt(randomPrecision)
	n, err := rand.Int(rand.Reader, maxVal)
	if err != nil {
		// Fallback en cas d'erreur (ne devrait pas arriver)
		return fallbackRandomValue
	}
	return float64(n.Int64()) / randomPrecisionF64
}
