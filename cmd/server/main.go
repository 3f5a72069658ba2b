package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/paybot/backend/docs"
	"github.com/paybot/backend/internal/audit"
	"github.com/paybot/backend/internal/config"
	"github.com/paybot/backend/internal/database"
	"github.com/paybot/backend/internal/handlers"
	"github.com/paybot/backend/internal/messaging"
	mW "github.com/paybot/backend/internal/middleware"
	"github.com/paybot/backend/internal/repository"
	"github.com/paybot/backend/internal/services"
	"github.com/paybot/backend/internal/storage"
	httpSwagger "github.com/swaggo/http-swagger"
)

//go:generate swag init -g cmd/server/main.go -d ../../ -o ../../docs

// @title Payment Bot Backend API
// @version 1.0
// @description Money transfers and transaction history for the payment bot
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()

	db := database.InitDatabase(cfg.Database)
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			log.Fatalf("Failed to migrate database: %v", err)
		}
	}

	redisClient := database.InitRedis(cfg.Redis)
	if redisClient != nil {
		defer redisClient.Close()
	}

	var publisher services.EventPublisher = messaging.NoopPublisher{}
	if cfg.RabbitMQ.URL != "" {
		rabbit, err := messaging.NewRabbitMQPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange)
		if err != nil {
			log.Printf("RabbitMQ unavailable, transfer events will not be published: %v", err)
		} else {
			defer rabbit.Close()
			publisher = rabbit
		}
	}

	var media services.MediaResolver
	if cfg.S3.Bucket != "" {
		presigner, err := storage.NewPresignClient(ctx, cfg.S3)
		if err != nil {
			log.Printf("S3 unavailable, media links disabled: %v", err)
		} else {
			media = services.NewMediaService(presigner, redisClient, cfg.S3.Bucket, cfg.S3.Prefix, cfg.S3.PresignExpiry)
		}
	}

	// Stores
	accountRepo := repository.NewAccountRepository(db)
	cardRepo := repository.NewCardRepository(db)
	transactionRepo := repository.NewTransactionRepository(db)
	userRepo := repository.NewUserRepository(db)

	// Services
	transferService := services.NewTransferService(repository.NewUnitOfWork(db), accountRepo, transactionRepo, publisher, audit.NewLogger())
	historyService := services.NewHistoryService(transactionRepo, userRepo, media, cfg.History.Location())
	resolver := services.NewAccountResolver(accountRepo, cardRepo)
	paymentHandler := handlers.NewPaymentHandler(transferService, historyService, resolver)
	auth := mW.NewAuthenticator(cfg.JWT.SecretKey)

	// Swagger docs
	docs.SwaggerInfo.Host = "localhost:" + cfg.Server.Port

	// Setup router
	r := chi.NewRouter()

	r.Use(mW.SecurityHeaders)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		status, code := "healthy", http.StatusOK
		if err := db.PingContext(r.Context()); err != nil {
			status, code = "database unavailable", http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(map[string]string{"status": status})
	})

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(auth.AuthMiddleware)
			paymentHandler.Routes(r)
		})
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Printf("Server starting on :%s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server stopped")
}
