package external

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"encounter/internal/config"
)

// MaterialTierClassifierInterface définit la classification de palier de
// force d'un matériau, dépendance du calcul des poids de butin
type MaterialTierClassifierInterface interface {
	TierOf(materialID uuid.UUID) (string, error)
}

// materialStats représente les modificateurs de stats d'un matériau tels
// qu'exposés par le service Content
type materialStats struct {
	MaterialID      uuid.UUID `json:"material_id"`
	AttackModifier  float64   `json:"attack_modifier"`
	DefenseModifier float64   `json:"defense_modifier"`
	SpeedModifier   float64   `json:"speed_modifier"`
	MagicModifier   float64   `json:"magic_modifier"`
}

// Magnitude retourne la somme des valeurs absolues des quatre modificateurs
func (s *materialStats) Magnitude() float64 {
	return math.Abs(s.AttackModifier) +
		math.Abs(s.DefenseModifier) +
		math.Abs(s.SpeedModifier) +
		math.Abs(s.MagicModifier)
}

// TierClient implémente MaterialTierClassifierInterface contre le service
// Content. Les paliers sont dérivés de la magnitude des modificateurs,
// bucketée par les seuils configurés.
type TierClient struct {
	baseURL    string
	httpClient *http.Client
	thresholds []config.TierThreshold

	mu    sync.RWMutex
	cache map[uuid.UUID]string
}

// NewTierClient crée une nouvelle instance du classificateur de paliers
func NewTierClient(cfg *config.Config) MaterialTierClassifierInterface {
	return &TierClient{
		baseURL: cfg.Services.ContentService.URL,
		httpClient: &http.Client{
			Timeout: cfg.Services.ContentService.Timeout,
		},
		thresholds: cfg.Encounter.TierThresholds,
		cache:      make(map[uuid.UUID]string),
	}
}

// TierOf retourne le nom du palier de force d'un matériau
func (c *TierClient) TierOf(materialID uuid.UUID) (string, error) {
	c.mu.RLock()
	tier, ok := c.cache[materialID]
	c.mu.RUnlock()
	if ok {
		return tier, nil
	}

	stats, err := c.fetchStats(materialID)
	if err != nil {
		return "", err
	}

	tier = c.classify(stats.Magnitude())

	c.mu.Lock()
	c.cache[materialID] = tier
	c.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"material_id": materialID,
		"tier":        tier,
	}).Debug("Material tier classified")

	return tier, nil
}

// fetchStats récupère les modificateurs de stats depuis le service Content
func (c *TierClient) fetchStats(materialID uuid.UUID) (*materialStats, error) {
	url := fmt.Sprintf("%s/api/v1/materials/%s/stats", c.baseURL, materialID)

	resp, err := c.httpClient.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch material stats: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("content service returned status %d for material %s", resp.StatusCode, materialID)
	}

	var stats materialStats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return nil, fmt.Errorf("failed to decode material stats: %w", err)
	}

	return &stats, nil
}

// classify retourne le palier dont le seuil est le plus haut parmi ceux
// atteints par la magnitude. Les seuils sont configurés par ordre croissant.
func (c *TierClient) classify(magnitude float64) string {
	tier := c.thresholds[0].Tier
	for _, t := range c.thresholds {
		if magnitude >= t.MinMagnitude {
			tier = t.Tier
		}
	}
	return tier
}
