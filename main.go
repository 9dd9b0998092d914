package main

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"practice-service/internal/auth"
	"practice-service/internal/cache"
	"practice-service/internal/config"
	"practice-service/internal/db"
	"practice-service/internal/event"
	"practice-service/internal/gateway"
	"practice-service/internal/handlers"
	"practice-service/internal/repository"
	"practice-service/internal/service"
	"practice-service/pkg/discovery"
)

func main() {
	// Load env
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system env")
	}
	cfg := config.ServiceConfig

	db.InitMongo(cfg.MongoDB.URI)
	database := db.Client.Database(cfg.MongoDB.Database)

	// Redis snapshot cache
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	progressCache := cache.NewProgressCache(redisClient, cfg.Redis.SnapTTL)

	// RabbitMQ event publisher
	var publisher service.Publisher
	if cfg.RabbitMQ.URI != "" {
		eventPublisher, err := event.NewEventPublisher(cfg.RabbitMQ.URI, cfg.RabbitMQ.Exchange)
		if err != nil {
			log.Fatalf("Failed to connect to RabbitMQ: %v", err)
		}
		defer eventPublisher.Close()
		publisher = eventPublisher
	} else {
		log.Println("RabbitMQ not configured, practice events will not be published")
	}

	// Repository, service, handler wiring
	sessionRepo := repository.NewSessionRepository(database)
	answerRepo := repository.NewAnswerRepository(database)
	resultRepo := repository.NewResultRepository(database)

	backendClient := gateway.NewClient(cfg.Backend.BaseURL, cfg.Backend.Timeout)
	practiceService := service.NewPracticeService(
		sessionRepo,
		answerRepo,
		resultRepo,
		backendClient,
		publisher,
		progressCache,
	)

	sessionHandler := handlers.NewSessionHandler(practiceService)
	progressHandler := handlers.NewProgressHandler(practiceService)

	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Content-Length", "Accept-Encoding", "X-CSRF-Token", "Authorization", "accept", "origin", "Cache-Control", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": cfg.Server.ServiceName})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	practice := r.Group("/practice")
	practice.Use(auth.Middleware())
	{
		practice.POST("/lessons/:lessonId/session", sessionHandler.OpenSession)
		practice.GET("/session/:id", sessionHandler.GetSession)
		practice.POST("/session/:id/answer", sessionHandler.SubmitAnswer)
		practice.POST("/session/:id/exit", sessionHandler.ExitSession)
		practice.POST("/session/:id/modal/dismiss", sessionHandler.DismissModal)

		practice.GET("/user-progress", progressHandler.GetProgress)
		practice.PUT("/user-progress/active-course", progressHandler.SwitchCourse)
		practice.POST("/hearts/refill", progressHandler.RefillHearts)
	}

	if err := discovery.InitServiceDiscovery(cfg); err != nil {
		log.Printf("Consul registration failed: %v", err)
	} else {
		defer discovery.ServiceDiscovery.Deregister()
	}

	r.Run(":" + cfg.Server.Port)
}
