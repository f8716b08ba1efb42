package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config structure principale de configuration
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	JWT        JWTConfig        `mapstructure:"jwt"`
	NATS       NATSConfig       `mapstructure:"nats"`
	Services   ServicesConfig   `mapstructure:"services"`
	Encounter  EncounterConfig  `mapstructure:"encounter"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ServerConfig configuration du serveur HTTP
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Environment  string        `mapstructure:"environment"`
	Debug        bool          `mapstructure:"debug"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig configuration de la base de données
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Name            string        `mapstructure:"name"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// JWTConfig configuration JWT
type JWTConfig struct {
	Secret         string        `mapstructure:"secret"`
	ExpirationTime time.Duration `mapstructure:"expiration_time"`
}

// NATSConfig configuration du bus d'événements. URL vide = publication désactivée.
type NATSConfig struct {
	URL                  string        `mapstructure:"url"`
	ClientID             string        `mapstructure:"client_id"`
	ConnectTimeout       time.Duration `mapstructure:"connect_timeout"`
	ReconnectDelay       time.Duration `mapstructure:"reconnect_delay"`
	MaxReconnectAttempts int           `mapstructure:"max_reconnect_attempts"`
}

// ServicesConfig configuration des services externes
type ServicesConfig struct {
	ContentService ServiceEndpoint `mapstructure:"content_service"`
}

// ServiceEndpoint configuration d'un service externe
type ServiceEndpoint struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
	Retries int           `mapstructure:"retries"`
}

// EncounterConfig configuration spécifique aux rencontres
type EncounterConfig struct {
	// TTL des sessions : au-delà de cet âge une session ouverte est expirée
	SessionTTL time.Duration `mapstructure:"session_ttl"`
	// Intervalle de la routine de matérialisation des sessions expirées
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
	// Si vrai, le nettoyage batch passe par le même chemin d'historique
	// qu'un abandon explicite. Par défaut le nettoyage est silencieux.
	CleanupRecordsHistory bool `mapstructure:"cleanup_records_history"`
	// Nombre de tirages de butin indépendants par victoire
	DefaultDropCount int `mapstructure:"default_drop_count"`
	// Seuils de palier de force des matériaux (magnitude cumulée des
	// modificateurs de stats), par ordre croissant
	TierThresholds []TierThreshold `mapstructure:"tier_thresholds"`
}

// TierThreshold associe un nom de palier à sa magnitude minimale
type TierThreshold struct {
	Tier         string  `mapstructure:"tier"`
	MinMagnitude float64 `mapstructure:"min_magnitude"`
}

// RateLimitConfig configuration du rate limiting
type RateLimitConfig struct {
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
	BurstSize         int           `mapstructure:"burst_size"`
	CleanupInterval   time.Duration `mapstructure:"cleanup_interval"`
}

// MonitoringConfig configuration du monitoring
type MonitoringConfig struct {
	MetricsPath string `mapstructure:"metrics_path"`
	HealthPath  string `mapstructure:"health_path"`
}

// LoggingConfig configuration des logs
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LoadConfig charge la configuration depuis les variables d'environnement
func LoadConfig() (*Config, error) {
	// Configuration par défaut
	config := &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8085,
			Environment:  "development",
			Debug:        true,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			Name:            "gameserver_encounter",
			User:            "postgres",
			Password:        "postgres",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 300 * time.Second,
		},
		JWT: JWTConfig{
			Secret:         "your-super-secret-jwt-key-change-in-production-minimum-64-characters",
			ExpirationTime: 24 * time.Hour,
		},
		NATS: NATSConfig{
			URL:                  "",
			ClientID:             "encounter-service",
			ConnectTimeout:       10 * time.Second,
			ReconnectDelay:       2 * time.Second,
			MaxReconnectAttempts: 10,
		},
		Services: ServicesConfig{
			ContentService: ServiceEndpoint{
				URL:     "http://localhost:8086",
				Timeout: 10 * time.Second,
				Retries: 3,
			},
		},
		Encounter: EncounterConfig{
			SessionTTL:            3600 * time.Second,
			CleanupInterval:       5 * time.Minute,
			CleanupRecordsHistory: false,
			DefaultDropCount:      3,
			TierThresholds: []TierThreshold{
				{Tier: "weak", MinMagnitude: 0},
				{Tier: "standard", MinMagnitude: 10},
				{Tier: "strong", MinMagnitude: 25},
				{Tier: "legendary", MinMagnitude: 50},
			},
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 100,
			BurstSize:         20,
			CleanupInterval:   5 * time.Minute,
		},
		Monitoring: MonitoringConfig{
			MetricsPath: "/metrics",
			HealthPath:  "/health",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}

	// Configuration Viper
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Mapping des variables d'environnement
	viper.BindEnv("server.host", "SERVER_HOST")
	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("server.environment", "SERVER_ENVIRONMENT")
	viper.BindEnv("server.debug", "SERVER_DEBUG")
	viper.BindEnv("server.read_timeout", "SERVER_READ_TIMEOUT")
	viper.BindEnv("server.write_timeout", "SERVER_WRITE_TIMEOUT")

	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.name", "DATABASE_NAME")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.ssl_mode", "DATABASE_SSL_MODE")
	viper.BindEnv("database.max_open_conns", "DATABASE_MAX_OPEN_CONNS")
	viper.BindEnv("database.max_idle_conns", "DATABASE_MAX_IDLE_CONNS")
	viper.BindEnv("database.conn_max_lifetime", "DATABASE_CONN_MAX_LIFETIME")

	viper.BindEnv("jwt.secret", "JWT_SECRET")
	viper.BindEnv("jwt.expiration_time", "JWT_EXPIRATION_TIME")

	viper.BindEnv("nats.url", "NATS_URL")
	viper.BindEnv("nats.client_id", "NATS_CLIENT_ID")
	viper.BindEnv("nats.connect_timeout", "NATS_CONNECT_TIMEOUT")
	viper.BindEnv("nats.reconnect_delay", "NATS_RECONNECT_DELAY")
	viper.BindEnv("nats.max_reconnect_attempts", "NATS_MAX_RECONNECT_ATTEMPTS")

	viper.BindEnv("services.content_service.url", "CONTENT_SERVICE_URL")
	viper.BindEnv("services.content_service.timeout", "CONTENT_SERVICE_TIMEOUT")

	viper.BindEnv("encounter.session_ttl", "ENCOUNTER_SESSION_TTL")
	viper.BindEnv("encounter.cleanup_interval", "ENCOUNTER_CLEANUP_INTERVAL")
	viper.BindEnv("encounter.cleanup_records_history", "ENCOUNTER_CLEANUP_RECORDS_HISTORY")
	viper.BindEnv("encounter.default_drop_count", "ENCOUNTER_DEFAULT_DROP_COUNT")

	viper.BindEnv("rate_limit.requests_per_minute", "RATE_LIMIT_REQUESTS_PER_MINUTE")
	viper.BindEnv("rate_limit.burst_size", "RATE_LIMIT_BURST_SIZE")

	viper.BindEnv("monitoring.metrics_path", "MONITORING_METRICS_PATH")
	viper.BindEnv("monitoring.health_path", "MONITORING_HEALTH_PATH")

	viper.BindEnv("logging.level", "LOG_LEVEL")
	viper.BindEnv("logging.format", "LOG_FORMAT")

	// Charger le fichier de configuration s'il existe
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Merger avec la configuration par défaut
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validation
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Validate valide la configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT secret must be at least 32 characters long")
	}

	if c.Database.Name == "" {
		return fmt.Errorf("database name is required")
	}

	if c.Encounter.SessionTTL <= 0 {
		return fmt.Errorf("session TTL must be positive")
	}

	if c.Encounter.DefaultDropCount < 0 {
		return fmt.Errorf("default drop count cannot be negative")
	}

	if len(c.Encounter.TierThresholds) == 0 {
		return fmt.Errorf("at least one tier threshold is required")
	}
	for i := 1; i < len(c.Encounter.TierThresholds); i++ {
		if c.Encounter.TierThresholds[i].MinMagnitude <= c.Encounter.TierThresholds[i-1].MinMagnitude {
			return fmt.Errorf("tier thresholds must be strictly increasing")
		}
	}

	if c.Services.ContentService.URL == "" {
		return fmt.Errorf("content service URL is required")
	}

	return nil
}

// GetDSN retourne la chaîne de connection PostgreSQL
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}
