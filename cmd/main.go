package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"encounter/internal/config"
	"encounter/internal/database"
	"encounter/internal/events"
	"encounter/internal/external"
	"encounter/internal/handlers"
	"encounter/internal/middleware"
	"encounter/internal/monitoring"
	"encounter/internal/repository"
	"encounter/internal/service"
)

// Version du service (à définir lors du build)
var (
	Version   = "1.0.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Initialisation du logger
	initLogger()

	logrus.WithFields(logrus.Fields{
		"service":    "encounter",
		"version":    Version,
		"build_time": BuildTime,
		"git_commit": GitCommit,
	}).Info("⚔️  Starting Encounter Service...")

	// Chargement de la configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatal("Failed to load config: ", err)
	}

	// Connexion à la base de données
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logrus.Fatal("Failed to connect to database: ", err)
	}
	defer db.Close()

	// Exécution des migrations
	if err := database.RunMigrations(db); err != nil {
		logrus.Fatal("Failed to run migrations: ", err)
	}

	// Connexion au bus d'événements
	publisher, err := events.NewPublisher(&cfg.NATS)
	if err != nil {
		logrus.Fatal("Failed to connect to event bus: ", err)
	}
	defer publisher.Close()

	// Initialisation des repositories
	sessionRepo := repository.NewSessionRepository(db)
	eventRepo := repository.NewEventRepository(db)
	historyRepo := repository.NewHistoryRepository(db)
	poolRepo := repository.NewPoolRepository(db)

	// Clients externes
	tierClassifier := external.NewTierClient(cfg)

	// Initialisation des services
	rng := service.NewCryptoRandomSource()
	realtimeHub := service.NewRealtimeHub()
	historyService := service.NewHistoryService(historyRepo)
	sessionService := service.NewSessionService(sessionRepo, historyService, &cfg.Encounter)
	journalService := service.NewJournalService(eventRepo, realtimeHub)
	poolResolver := service.NewPoolResolver(poolRepo, tierClassifier)
	encounterService := service.NewEncounterService(
		sessionService, journalService, historyService,
		poolResolver, publisher, realtimeHub, rng, &cfg.Encounter,
	)

	// Démarrage de la routine de nettoyage des sessions expirées
	sessionService.StartCleanupRoutine()

	// Initialisation des métriques
	metrics := monitoring.NewMetrics()

	// Initialisation des handlers
	encounterHandler := handlers.NewEncounterHandler(encounterService, sessionService, journalService)
	historyHandler := handlers.NewHistoryHandler(historyService)
	healthHandler := handlers.NewHealthHandler(cfg, db)
	wsHandler := handlers.NewWSHandler(realtimeHub, sessionService)

	// Configuration du mode Gin
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Configuration des routes
	router := setupRoutes(encounterHandler, historyHandler, healthHandler, wsHandler, metrics, cfg)

	// Configuration du serveur HTTP
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Démarrage du serveur en arrière-plan
	go func() {
		logrus.WithFields(logrus.Fields{
			"host": cfg.Server.Host,
			"port": cfg.Server.Port,
			"env":  cfg.Server.Environment,
		}).Info("⚔️  Encounter Service started successfully")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatal("Failed to start server: ", err)
		}
	}()

	// Gestion gracieuse de l'arrêt
	gracefulShutdown(server, sessionService)
}

// setupRoutes configure toutes les routes du service Encounter
func setupRoutes(
	encounterHandler *handlers.EncounterHandler,
	historyHandler *handlers.HistoryHandler,
	healthHandler *handlers.HealthHandler,
	wsHandler *handlers.WSHandler,
	metrics *monitoring.Metrics,
	cfg *config.Config,
) *gin.Engine {
	router := gin.New()

	// Middleware globaux
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	router.Use(middleware.CORS())
	router.Use(middleware.RequestID())
	router.Use(middleware.SecurityHeaders())
	router.Use(metrics.Middleware())

	// Rate limiting global si configuré
	if cfg.RateLimit.RequestsPerMinute > 0 {
		router.Use(middleware.RateLimit(cfg.RateLimit))
	}

	// Routes de santé et monitoring (sans auth)
	router.GET(cfg.Monitoring.HealthPath, healthHandler.HealthCheck)
	router.GET("/ready", healthHandler.ReadinessCheck)
	router.GET("/live", healthHandler.LivenessCheck)
	router.GET(cfg.Monitoring.MetricsPath, gin.WrapH(metrics.Handler()))

	// API v1
	v1 := router.Group("/api/v1")
	{
		// Routes protégées (authentification JWT requise)
		protected := v1.Group("/")
		protected.Use(middleware.JWTAuth(cfg.JWT.Secret))
		{
			// Cycle de vie des rencontres
			encounters := protected.Group("/encounters")
			{
				encounters.POST("", encounterHandler.StartEncounter)
				encounters.GET("/active", encounterHandler.GetActiveEncounter)
				encounters.GET("/:id", encounterHandler.GetEncounter)
				encounters.POST("/:id/turns", encounterHandler.RecordTurn)
				encounters.POST("/:id/complete", encounterHandler.CompleteEncounter)
				encounters.GET("/:id/journal", encounterHandler.GetJournal)
				encounters.GET("/:id/ws", wsHandler.Watch)
			}

			// Historique et statistiques
			history := protected.Group("/history")
			{
				history.GET("/locations/:locationId", historyHandler.GetLocationHistory)
				history.GET("/stats", historyHandler.GetStats)
				history.GET("/top", historyHandler.GetTopLocations)
			}

			// Routes admin
			admin := protected.Group("/admin")
			admin.Use(middleware.RequireRole("admin", "moderator"))
			{
				admin.POST("/encounters/cleanup", encounterHandler.CleanupExpired)
				admin.DELETE("/encounters/:id", encounterHandler.DeleteEncounter)
			}
		}
	}

	return router
}

// initLogger initialise le système de logging
func initLogger() {
	if os.Getenv("SERVER_ENVIRONMENT") == "production" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
		logrus.SetLevel(logrus.InfoLevel)
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
			ForceColors:   true,
		})
		logrus.SetLevel(logrus.DebugLevel)
	}

	logrus.SetOutput(os.Stdout)
}

// gracefulShutdown gère l'arrêt gracieux du service
func gracefulShutdown(server *http.Server, sessionService service.SessionServiceInterface) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	logrus.Info("⚔️  Encounter Service is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logrus.Fatal("Server forced to shutdown: ", err)
	}

	// Arrêter la routine de nettoyage et matérialiser un dernier passage
	sessionService.Stop()
	if cleaned, err := sessionService.CleanupExpiredSessions(); err == nil && cleaned > 0 {
		logrus.WithField("cleaned", cleaned).Info("Final expired session cleanup completed")
	}

	logrus.Info("⚔️  Encounter Service stopped gracefully")
}
