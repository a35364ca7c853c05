package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/liorbd/LuachBack/internal/config"
	"github.com/liorbd/LuachBack/internal/database"
	"github.com/liorbd/LuachBack/internal/notify"
	"github.com/liorbd/LuachBack/internal/repository"
	"github.com/liorbd/LuachBack/internal/services"
)

const expirySweepInterval = 10 * time.Minute

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if cfg.DBUrl == "" {
		log.Fatal("DB_URL is required")
	}
	if cfg.RedisURL == "" {
		log.Fatal("REDIS_URL is required")
	}
	if err := database.ConnectDB(cfg.DBUrl); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.CloseDB()

	var notifier notify.Notifier = notify.LogNotifier{}
	if cfg.SMTPAddr != "" && cfg.SMTPFrom != "" {
		notifier = notify.NewSMTPNotifier(cfg.SMTPAddr, cfg.SMTPFrom, cfg.SMTPUser, cfg.SMTPPassword)
	} else {
		log.Println("SMTP not configured; notifications are logged only")
	}

	userRepo := repository.NewUserRepository(database.DB)
	promotionRepo := repository.NewPromotionRepository(database.DB)
	paymentRepo := repository.NewPaymentRepository(database.DB)
	priceRepo := repository.NewListingPriceRepository(database.DB)
	promotionService := services.NewPromotionService(database.DB, promotionRepo, paymentRepo, priceRepo)

	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to parse redis url: %v", err)
	}

	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 5,
		Queues: map[string]int{
			"email": 1,
		},
	})

	mux := notify.Mux(notify.NewMessageNotificationHandler(userRepo, notifier))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Periodic sweep: promotions past their window move to expired even if no
	// request ever touches them again.
	go func() {
		ticker := time.NewTicker(expirySweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				expired, err := promotionService.ExpireDue(ctx)
				if err != nil {
					log.Printf("worker: expire promotions: %v", err)
					continue
				}
				if expired > 0 {
					log.Printf("worker: expired %d promotions", expired)
				}
			}
		}
	}()

	go func() {
		<-ctx.Done()
		srv.Shutdown()
	}()

	log.Println("Worker starting")
	if err := srv.Run(mux); err != nil {
		log.Fatalf("Worker failed: %v", err)
	}
}
