package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"meetup-chat/internal/db"
	"meetup-chat/internal/handlers"
	"meetup-chat/internal/middleware"
	"meetup-chat/internal/observability"
	"meetup-chat/internal/rabbitmq"
	"meetup-chat/internal/repositories"
	"meetup-chat/internal/service"
	"meetup-chat/internal/telemetry"
	"meetup-chat/internal/ws"
)

const serviceName = "meetup-chat"

func main() {
	database, err := db.Connect()
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}

	ctx := context.Background()
	shutdownTracer, err := telemetry.InitTracer(ctx, serviceName, getEnv("OTLP_ENDPOINT", ""))
	if err != nil {
		log.Fatalf("failed to init tracing: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracer(shutdownCtx)
	}()

	amqpURL := getEnv("AMQP_URL", "")
	auditPublisher := rabbitmq.NewPublisher(amqpURL, getEnv("AMQP_EXCHANGE", "platform_events"))
	defer auditPublisher.Close()
	log.Printf("audit publisher mode=%s reason=%q", rabbitmq.PublisherMode(auditPublisher), rabbitmq.PublisherNoopReason(auditPublisher))

	audit := telemetry.NewAuditEmitter(auditPublisher, "audit_log.chat", serviceName, getEnv("ENVIRONMENT", "development"))

	if wsEvents, err := observability.NewAMQPPublisher(amqpURL, getEnv("AMQP_WS_EXCHANGE", "ws_events")); err != nil {
		log.Printf("ws event publishing disabled: %v", err)
	} else {
		observability.SetPublisher(wsEvents)
		defer wsEvents.Close()
	}

	groupRepo := repositories.NewGroupRepo(database)
	messageRepo := repositories.NewMessageRepo(database)
	userRepo := repositories.NewUserRepo(database)

	hub := ws.NewHub()
	chatChannel := ws.NewChatBroadcastChannel(hub)
	groupChannel := ws.NewGroupBroadcastChannel(hub)

	chatService := service.NewChatService(messageRepo, groupRepo, userRepo, chatChannel)
	groupService := service.NewGroupService(groupRepo, groupChannel)

	groupHandler := handlers.NewGroupHandler(groupService, groupRepo, audit)
	messageHandler := handlers.NewMessageHandler(chatService, groupRepo, audit)

	verifier := middleware.NewJWTVerifier(getEnv("JWT_SECRET", "meetup-dev-secret"))
	socketHandler := ws.NewSocketHandler(hub, chatChannel, groupChannel, groupRepo, verifier)

	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(observability.HTTPMetricsMiddleware())

	authMiddleware := middleware.AuthMiddleware(verifier)

	router.POST("/groups", authMiddleware, groupHandler.CreateGroup)
	router.GET("/groups", authMiddleware, groupHandler.ListGroups)
	router.PATCH("/groups/:group_id/name", authMiddleware, groupHandler.RenameGroup)
	router.PATCH("/groups/:group_id/description", authMiddleware, groupHandler.RedescribeGroup)
	router.PATCH("/groups/:group_id/photo", authMiddleware, groupHandler.RephotoGroup)
	router.POST("/groups/:group_id/members", authMiddleware, groupHandler.AddMember)
	router.DELETE("/groups/:group_id/members/:user_id", authMiddleware, groupHandler.RemoveMember)
	router.GET("/groups/:group_id/messages", authMiddleware, messageHandler.GetMessagePage)
	router.POST("/groups/:group_id/messages", authMiddleware, messageHandler.PostMessage)

	router.GET("/ws", socketHandler.Handle)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	handlers.RegisterDebugRoutes(router, audit, getEnv("DEBUG_ROUTES", "") == "true")

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
