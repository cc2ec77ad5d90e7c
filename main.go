package main

import (
	"context"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"messenger-service/internal/auth"
	"messenger-service/internal/db"
	"messenger-service/internal/delivery"
	"messenger-service/internal/handlers"
	"messenger-service/internal/middleware"
	"messenger-service/internal/observability"
	"messenger-service/internal/presence"
	"messenger-service/internal/push"
	"messenger-service/internal/rabbitmq"
	"messenger-service/internal/registry"
	"messenger-service/internal/repositories"
	"messenger-service/internal/telemetry"
	"messenger-service/internal/ws"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	database, err := db.Connect()
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}

	ctx := context.Background()
	shutdownTracing := observability.SetupTracing(ctx, "messenger-service", getEnv("OTLP_ENDPOINT", ""))
	defer func() {
		if err := shutdownTracing(ctx); err != nil {
			log.Printf("tracing shutdown failed: %v", err)
		}
	}()

	amqpURL := getEnv("AMQP_URL", "")
	if eventPublisher, err := observability.NewAMQPPublisher(amqpURL, getEnv("AMQP_EXCHANGE", "messenger.events")); err != nil {
		log.Printf("event publishing disabled: %v", err)
	} else {
		observability.SetPublisher(eventPublisher)
		defer eventPublisher.Close()
	}

	auditPublisher := rabbitmq.NewPublisher(amqpURL, getEnv("AUDIT_EXCHANGE", "messenger.audit"))
	defer auditPublisher.Close()
	auditEmitter := telemetry.NewAuditEmitter(auditPublisher, "audit.messenger", "messenger-service", getEnv("ENVIRONMENT", "development"))

	userRepo := repositories.NewUserRepo(database)
	messageRepo := repositories.NewMessageRepo(database)
	conversationRepo := repositories.NewConversationRepo(database)

	sessions := registry.New()
	hub := ws.NewHub()
	dispatcher := push.NewDispatcher(getEnv("PUSH_ENDPOINT", ""))

	engine := delivery.NewEngine(messageRepo, userRepo, sessions, hub, dispatcher)
	presenceMgr := presence.NewManager(userRepo, hub, engine)

	verifier := auth.NewJWTVerifier(getEnv("JWT_SECRET", "dev-secret"), getEnv("JWT_ISSUER", ""))

	userHandler := handlers.NewUserHandler(userRepo, presenceMgr)
	conversationHandler := handlers.NewConversationHandler(conversationRepo, engine)
	messageHandler := handlers.NewMessageHandler(messageRepo, engine)
	notificationHandler := handlers.NewNotificationHandler(userRepo, auditEmitter)
	wsHandler := ws.NewHandler(hub, sessions, engine, presenceMgr, verifier)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("messenger-service"))
	router.Use(observability.HTTPMetricsMiddleware())

	authMiddleware := middleware.AuthMiddleware(verifier)

	router.GET("/users", authMiddleware, userHandler.ListUsers)
	router.GET("/users/:user_id/status", authMiddleware, userHandler.GetUserStatus)

	router.GET("/conversations", authMiddleware, conversationHandler.ListConversations)
	router.POST("/conversations/:user_id/read", authMiddleware, conversationHandler.MarkConversationRead)
	router.POST("/conversations/:user_id/unread", authMiddleware, conversationHandler.MarkConversationUnread)

	router.GET("/chats/:user_id/messages", authMiddleware, messageHandler.GetChatMessages)
	router.GET("/messages/favourites", authMiddleware, messageHandler.ListFavourites)
	router.POST("/messages/:message_id/pin", authMiddleware, messageHandler.PinMessage)
	router.POST("/messages/:message_id/unpin", authMiddleware, messageHandler.UnpinMessage)
	router.POST("/messages/:message_id/favourite", authMiddleware, messageHandler.FavouriteMessage)
	router.POST("/messages/:message_id/unfavourite", authMiddleware, messageHandler.UnfavouriteMessage)

	router.GET("/notifications", authMiddleware, notificationHandler.GetPreferences)
	router.PUT("/notifications", authMiddleware, notificationHandler.UpdatePreferences)
	router.POST("/push-tokens", authMiddleware, notificationHandler.RegisterPushToken)

	router.GET("/ws", wsHandler.Handle)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	handlers.RegisterDebugRoutes(router, auditEmitter, getEnv("DEBUG_ROUTES", "") == "true")

	port := getEnv("PORT", "8083")
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}
