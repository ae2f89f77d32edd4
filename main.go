// File: reservo/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"reservo/config"
	"reservo/cron"
	"reservo/database"
	businessRepo "reservo/database/repository/business"
	conversationRepo "reservo/database/repository/conversation"
	reservationRepo "reservo/database/repository/reservation"
	"reservo/handlers"
	"reservo/middleware"
	"reservo/models"
	"reservo/routes"
	"reservo/services/contextcache"
	"reservo/services/dialog"
	"reservo/services/extractor"
	ai "reservo/services/intelligence"
	"reservo/services/nlu"
	"reservo/services/payment"
	"reservo/services/reservation"
	"reservo/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/stripe/stripe-go/v76"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	database.InitDB()
	utils.InitRedis()

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	router.Use(middleware.RateLimitMiddleware())
	stripe.Key = config.AppConfig.StripeKey

	// repositories.
	bizRepo := businessRepo.NewMongoBusinessRepo()
	convRepo := conversationRepo.NewMongoConversationRepo()
	resRepo := reservationRepo.NewMongoReservationRepo()

	// caches.
	ctxCache := contextcache.NewRedisCache(utils.GetContextCacheClient(), "ctx", config.AppConfig.ContextCacheTTL, logger)
	cfgCache := contextcache.NewRedisCache(utils.GetConfigCacheClient(), "cfg", config.AppConfig.ConfigCacheTTL, logger)
	sweepCtx := context.Background()
	ctxCache.StartSweeper(sweepCtx, time.Minute)
	cfgCache.StartSweeper(sweepCtx, 5*time.Minute)

	// intent detection cascade.
	var semantic nlu.Strategy
	if config.AppConfig.GeminiAPIKey != "" {
		geminiClient, err := ai.NewGeminiClient(config.AppConfig.GeminiAPIKey, config.AppConfig.GeminiModel)
		if err != nil {
			logger.Sugar().Fatalf("main: failed to initialize gemini client: %v", err)
		}
		semantic = nlu.NewSemanticStrategy(
			geminiClient,
			config.AppConfig.SemanticTimeout,
			logger,
			func(biz *models.Business, state *models.ConversationState) []string {
				res := reservation.Resolve(biz, state.Collected.Service)
				if res.Ambiguous {
					return res.RequiredFields
				}
				return reservation.MissingFields(res.RequiredFields, &state.Collected)
			},
		)
	} else {
		logger.Warn("main: no gemini API key configured, semantic layer disabled")
	}
	cascade := &nlu.Cascade{
		Keyword:  nlu.NewKeywordStrategy(),
		Fuzzy:    nlu.NewFuzzyStrategy(),
		Semantic: semantic,
		Breaker:  nlu.NewBreaker(config.AppConfig.BreakerThreshold, config.AppConfig.BreakerCooldown, logger),
		Logger:   logger,
	}

	// payments and reminders.
	paymentSvc := payment.NewStripePaymentService(
		config.AppConfig.PaymentSuccessURL,
		config.AppConfig.PaymentCancelURL,
	)
	reminderScheduler := cron.NewScheduler()
	defer reminderScheduler.Close()
	cron.InitReminderWorker(cron.LogNotifier{})

	// reservation pipeline.
	validator := &reservation.Validator{Repo: resRepo, Logger: logger}
	committer := &reservation.Committer{
		Repo:      resRepo,
		Payments:  paymentSvc,
		Reminders: reminderScheduler,
		Logger:    logger,
	}

	dialogEngine := &dialog.Engine{
		Businesses:    bizRepo,
		Conversations: convRepo,
		ContextCache:  ctxCache,
		ConfigCache:   cfgCache,
		Cascade:       cascade,
		Extractor:     extractor.DefaultRegistry(),
		Validator:     validator,
		Committer:     committer,
		HistoryMax:    config.AppConfig.HistoryWindowSize,
		Logger:        logger,
	}

	chatHandler := handlers.NewChatHandler(dialogEngine)

	// Assemble the handler bundle.
	handlerBundle := &handlers.HandlerBundle{
		ChatMessageHandler:    chatHandler.HandleMessage,
		PaymentWebhookHandler: chatHandler.HandlePaymentWebhook,
	}

	// Register routes with the assembled handler bundle.
	routes.RegisterRoutes(router, handlerBundle)

	utils.StartHealthMonitor(
		[]*redis.Client{utils.GetContextCacheClient(), utils.GetConfigCacheClient()},
		database.MongoClient,
	)

	// Start the HTTP server.
	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Fatalf("main: server forced to shutdown: %v", err)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
