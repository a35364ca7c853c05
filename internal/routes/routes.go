package routes

import (
	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	redis "github.com/redis/go-redis/v9"

	"github.com/liorbd/LuachBack/internal/config"
	"github.com/liorbd/LuachBack/internal/handlers"
	"github.com/liorbd/LuachBack/internal/middleware"
	"github.com/liorbd/LuachBack/internal/notify"
	"github.com/liorbd/LuachBack/internal/repository"
	"github.com/liorbd/LuachBack/internal/services"
	chatws "github.com/liorbd/LuachBack/internal/websocket"
)

func RegisterRoutes(
	app *fiber.App,
	cfg *config.Config,
	db *pgxpool.Pool,
	redisClient *redis.Client,
	notifyClient *notify.Client,
) {
	userRepo := repository.NewUserRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	conversationRepo := repository.NewConversationRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	onlineStatusRepo := repository.NewOnlineStatusRepository(db)
	favoriteRepo := repository.NewFavoriteRepository(db)
	priceRepo := repository.NewListingPriceRepository(db)
	promotionRepo := repository.NewPromotionRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)

	var storageService services.StorageService
	if cfg.SupabaseURL != "" && cfg.SupabaseBucket != "" && cfg.SupabaseServiceKey != "" {
		storageService = services.NewSupabaseStorageService(cfg.SupabaseURL, cfg.SupabaseBucket, cfg.SupabaseServiceKey)
	}

	presenceService := services.NewPresenceService(onlineStatusRepo, redisClient)
	chatService := services.NewChatService(db, conversationRepo, messageRepo, userRepo, profileRepo)
	if redisClient != nil {
		chatService = chatService.WithBadgeCache(redisClient)
	}
	if notifyClient != nil {
		chatService = chatService.WithNotifications(presenceService, notifyClient)
	}
	favoriteService := services.NewFavoriteService(favoriteRepo, priceRepo)
	promotionService := services.NewPromotionService(db, promotionRepo, paymentRepo, priceRepo)

	chatHub := chatws.NewHub()
	go chatHub.Run()

	authHandler := handlers.NewAuthHandler(db, userRepo, profileRepo, cfg.JWTSecret)
	profileHandler := handlers.NewProfileHandler(profileRepo, storageService)
	chatHandler := handlers.NewChatHandler(chatService, chatHub, presenceService, cfg.JWTSecret)
	presenceHandler := handlers.NewPresenceHandler(presenceService)
	favoriteHandler := handlers.NewFavoriteHandler(favoriteService)
	promotionHandler := handlers.NewPromotionHandler(promotionService)

	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Get("/me", middleware.AuthRequired(cfg.JWTSecret), authHandler.Me)

	authProtected := api.Group("/v1", middleware.AuthRequired(cfg.JWTSecret))

	users := authProtected.Group("/users")
	users.Get("/profile", profileHandler.GetMyProfile)
	users.Put("/profile", profileHandler.UpdateProfile)
	users.Post("/profile/avatar", profileHandler.UploadAvatar)
	users.Get("/:id/profile", profileHandler.GetProfile)

	conversations := authProtected.Group("/conversations")
	conversations.Get("", chatHandler.ListConversations)
	conversations.Post("", chatHandler.CreateConversation)
	conversations.Get("/unread-count", chatHandler.GetUnreadCount)
	conversations.Get("/:id/messages", chatHandler.GetMessages)
	conversations.Post("/:id/messages", chatHandler.SendMessage)
	conversations.Post("/:id/read", chatHandler.MarkConversationRead)
	conversations.Delete("/:id", chatHandler.DeleteConversation)

	presence := authProtected.Group("/presence")
	presence.Post("/heartbeat", presenceHandler.Heartbeat)
	presence.Post("/offline", presenceHandler.MarkOffline)
	presence.Get("/:id", presenceHandler.GetStatus)

	favorites := authProtected.Group("/favorites")
	favorites.Post("/toggle", favoriteHandler.Toggle)
	favorites.Get("", favoriteHandler.List)
	favorites.Get("/:item_id/status", favoriteHandler.GetStatus)

	promotions := authProtected.Group("/promotions")
	promotions.Get("/packages", promotionHandler.ListPackages)
	promotions.Post("", promotionHandler.Purchase)
	promotions.Get("", promotionHandler.ListPromotions)
	promotions.Get("/:id", promotionHandler.GetPromotion)
	promotions.Post("/:id/pay", promotionHandler.Pay)

	api.Use("/v1/ws", chatHandler.WebSocketAuth)
	api.Get("/v1/ws", websocket.New(chatHandler.HandleWebSocket))
}
