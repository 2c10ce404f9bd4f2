package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nexus/config"
	"nexus/database"
	"nexus/handlers"
	"nexus/logger"
	"nexus/mail"
	"nexus/routes"
	"nexus/websocket"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	godotenv.Load()
	cfg := config.Load()

	release := os.Getenv("GIN_MODE") == "release"
	sugar, err := logger.Init(!release)
	if err != nil {
		log.Fatal("logger init failed:", err)
	}
	defer sugar.Sync()

	if os.Getenv("JWT_SECRET") == "" {
		sugar.Warn("JWT_SECRET not set, using an insecure default")
	}

	sugar.Info("connecting to MongoDB...")
	var dbErr error
	for i := 1; i <= 3; i++ {
		if err := database.Connect(cfg.MongoURI, cfg.MongoDB); err != nil {
			dbErr = err
			sugar.Warnf("MongoDB connection attempt %d failed: %v", i, err)
			time.Sleep(2 * time.Second)
			continue
		}
		dbErr = nil
		break
	}
	if dbErr != nil {
		sugar.Fatalf("failed to connect to MongoDB: %v", dbErr)
	}
	defer database.Disconnect()
	sugar.Info("MongoDB connected")

	idxCtx, idxCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := database.EnsureIndexes(idxCtx); err != nil {
		sugar.Warnf("index bootstrap failed: %v", err)
	}
	idxCancel()

	if release {
		gin.SetMode(gin.ReleaseMode)
	}

	hub := websocket.NewHub(database.ConversationParticipants)
	handlers.SetHub(hub)
	handlers.SetMailer(mail.New(cfg.MailAPIKey, cfg.MailSender))
	handlers.SetFrontendURL(cfg.FrontendURL)
	handlers.SetUploadDir(cfg.UploadDir)

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			sugar.Warnf("Redis unavailable, falling back to in-memory rate limiting: %v", err)
			rdb = nil
		}
		pingCancel()
	}

	router := routes.SetupRouter(cfg, hub, rdb)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sugar.Infof("server running on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sugar.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	sugar.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		sugar.Errorf("forced shutdown: %v", err)
	}

	sugar.Info("server stopped gracefully")
}
