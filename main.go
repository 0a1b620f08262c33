package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"pairing-system/handlers"
	"pairing-system/models"
	"pairing-system/services"
	"pairing-system/utils"
	"pairing-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 1 * 1024 * 1024, // rating payloads are tiny
	})

	// Load allowed origins from environment variable
	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("⚠️  ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}
	allowedOriginsString := strings.Join(allowedOriginsList, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOriginsString,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	if os.Getenv("JWT_SECRET") == "" {
		log.Fatal("JWT_SECRET environment variable not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.Session{},
		&models.Participant{},
		&models.Preference{},
		&models.PairingResult{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	sessionService := services.NewSessionService(db)
	preferenceService := services.NewPreferenceService(db)
	pairingService := services.NewPairingService(db)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Optional R2 archive of computed results
	if utils.R2Configured() {
		if err := utils.InitR2(); err != nil {
			log.Fatal("failed to initialize R2 client:", err)
		}
		archiver := workers.NewResultsArchiver(db)
		go workers.PollResultsArchive(ctx, archiver, 1*time.Minute)
		log.Println("✅ Results archive worker running (every 1m)")
	} else {
		log.Println("⚠️  R2 not configured, pairing results kept in database only")
	}

	sessionService.StartExpiryScheduler()

	handlers.SetupSessionRoutes(app, sessionService, preferenceService)
	handlers.SetupPairingRoutes(app, pairingService)

	app.Static("/", "./public")

	port := os.Getenv("PORT")
	if port == "" {
		port = "5010"
	}

	go func() {
		if err := app.Listen(":" + port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Server running on http://localhost:%s", port)
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}
