package service

import (
	"encounter/internal/utils"
)

// RandomSource fournit des tirages uniformes dans [0, 1). Injectée partout
// où un tirage est nécessaire, pour rendre la sélection reproductible en test.
type RandomSource interface {
	Float64() float64
}

// cryptoRandomSource tire depuis crypto/rand
type cryptoRandomSource struct{}

// NewCryptoRandomSource crée la source aléatoire de production
func NewCryptoRandomSource() RandomSource {
	return cryptoRandomSource{}
}

// Float64 retourne un tirage uniforme dans [0, 1)
func (cryptoRandomSource) Float64() float64 {
	return utils.SecureRandFloat64()
}
