package main

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	redis "github.com/redis/go-redis/v9"

	"github.com/liorbd/LuachBack/internal/cache"
	"github.com/liorbd/LuachBack/internal/config"
	"github.com/liorbd/LuachBack/internal/database"
	"github.com/liorbd/LuachBack/internal/notify"
	"github.com/liorbd/LuachBack/internal/routes"
)

func main() {
	// 1. Load Config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. Connect to Database
	if cfg.DBUrl == "" {
		log.Fatal("DB_URL is required")
	}
	if err := database.ConnectDB(cfg.DBUrl); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.CloseDB()

	// 3. Connect to Redis (presence + notification queue). Optional: without
	// it, presence degrades to the durable rows and emails are skipped.
	var redisClient *redis.Client
	var notifyClient *notify.Client
	if cfg.RedisURL != "" {
		redisClient, err = cache.Connect(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to connect to redis: %v", err)
		}
		defer redisClient.Close()

		notifyClient, err = notify.NewClient(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to create notification client: %v", err)
		}
		defer notifyClient.Close()
	} else {
		log.Println("REDIS_URL not set; presence uses database rows only and email notifications are disabled")
	}

	// 4. Setup Fiber
	app := fiber.New()

	// Middleware
	app.Use(cors.New())
	app.Use(logger.New())
	app.Use(recover.New())

	// Routes
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
		})
	})
	routes.RegisterRoutes(app, cfg, database.DB, redisClient, notifyClient)

	// 5. Start Server
	log.Printf("Server starting on port %s", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
