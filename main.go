package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"spark-service/internal/auth"
	"spark-service/internal/db"
	"spark-service/internal/handlers"
	"spark-service/internal/middleware"
	"spark-service/internal/notifications"
	"spark-service/internal/observability"
	"spark-service/internal/rabbitmq"
	"spark-service/internal/repositories"
	"spark-service/internal/service"
	"spark-service/internal/ws"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	database, err := db.Connect()
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}

	shutdownTracing := observability.SetupTracing(context.Background(), "spark-service", getEnv("OTLP_ENDPOINT", ""))
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Printf("tracing shutdown: %v", err)
		}
	}()

	publisher := rabbitmq.NewPublisher(getEnv("AMQP_URL", ""), getEnv("AMQP_EXCHANGE", "devfolio.events"))
	defer publisher.Close()
	log.Printf("notification publisher mode=%s", rabbitmq.PublisherMode(publisher))

	if amqpURL := getEnv("AMQP_URL", ""); amqpURL != "" {
		wsEvents, err := observability.NewAMQPPublisher(amqpURL, getEnv("AMQP_EXCHANGE", "devfolio.events"))
		if err != nil {
			log.Printf("ws telemetry publisher disabled: %v", err)
		} else {
			observability.SetPublisher(wsEvents)
			defer wsEvents.Close()
		}
	}

	notifier := notifications.NewEmailNotifier(publisher, "notifications.email", "spark-service", getEnv("ENVIRONMENT", "development"))

	secret := getEnv("JWT_SECRET", "dev-secret-change-me")
	sessionAuth := auth.NewAuthenticator(secret, auth.IssuerSession, 7*24*time.Hour)
	realtimeAuth := auth.NewAuthenticator(secret, auth.IssuerRealtime, time.Hour)

	userRepo := repositories.NewUserRepo(database)
	connectionRepo := repositories.NewConnectionRepo(database)
	conversationRepo := repositories.NewConversationRepo(database)
	messageRepo := repositories.NewMessageRepo(database)

	hub := ws.NewHub()

	connectionSvc := service.NewConnectionService(connectionRepo, userRepo, hub, notifier)
	messageSvc := service.NewMessageService(conversationRepo, messageRepo, connectionRepo, userRepo, hub)

	connectionHandler := handlers.NewConnectionHandler(connectionSvc)
	conversationHandler := handlers.NewConversationHandler(messageSvc)
	realtimeHandler := handlers.NewRealtimeHandler(realtimeAuth)

	gateway := ws.NewGateway(hub, messageSvc, userRepo, realtimeAuth)

	router := gin.Default()

	// middlewares
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("spark-service"))
	router.Use(observability.HTTPMetricsMiddleware())

	authMiddleware := middleware.AuthMiddleware(sessionAuth, userRepo)

	router.POST("/connections/request", authMiddleware, connectionHandler.Request)
	router.PATCH("/connections/:id", authMiddleware, connectionHandler.Respond)
	router.GET("/connections", authMiddleware, connectionHandler.List)

	router.POST("/conversations", authMiddleware, conversationHandler.Create)
	router.GET("/conversations", authMiddleware, conversationHandler.List)
	router.GET("/conversations/:id/messages", authMiddleware, conversationHandler.GetMessages)
	router.POST("/conversations/:id/messages", authMiddleware, conversationHandler.PostMessage)
	router.POST("/conversations/:id/read", authMiddleware, conversationHandler.MarkRead)

	router.GET("/realtime/token", authMiddleware, realtimeHandler.Token)
	router.GET("/realtime", gateway.Handle)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/healthz", handlers.Health(database))

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
