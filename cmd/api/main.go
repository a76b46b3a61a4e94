package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "kelabpetani/api/swagger" // swagger docs
	"kelabpetani/internal/auth"
	"kelabpetani/internal/config"
	"kelabpetani/internal/database"
	"kelabpetani/internal/events"
	"kelabpetani/internal/handler"
	"kelabpetani/internal/logger"
	"kelabpetani/internal/middleware"
	"kelabpetani/internal/notifier"
	"kelabpetani/internal/repository"
	"kelabpetani/internal/service"
	"kelabpetani/internal/tracing"
	"kelabpetani/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// @title           Kelab Petani API
// @version         1.0
// @description     Farmer marketplace and pawah (land-share) project platform.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	if err := logger.Init(cfg.Server.Env); err != nil {
		panic(err)
	}
	defer logger.Sync()
	log := logger.Get()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Observ.TracingEnabled {
		tp, err := tracing.Init(cfg.Observ.ServiceName, cfg.Observ.JaegerEndpoint)
		if err != nil {
			log.Warn("tracing disabled", zap.Error(err))
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = tp.Shutdown(shutdownCtx)
			}()
		}
	}

	db, err := database.NewConnection(cfg.Database.DSN(), cfg.IsProduction(), log)
	if err != nil {
		log.Fatal("database connection failed", zap.Error(err))
	}
	log.Info("connected to PostgreSQL")

	// Event sinks: connected browsers always, Kafka when configured.
	wsHub := websocket.NewHub(cfg.Server.CORSOrigins, log.Named("ws"))
	go wsHub.Run(ctx)
	sinks := events.Multi{wsHub}
	if cfg.Kafka.Enabled {
		kafkaPub := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, log.Named("kafka"))
		defer kafkaPub.Close()
		sinks = append(sinks, kafkaPub)
	}

	var mailer notifier.Mailer
	if cfg.Mail.Enabled {
		ses, err := notifier.NewSESMailer(ctx, notifier.SESConfig{
			Region:          cfg.Mail.AWSRegion,
			AccessKeyID:     cfg.Mail.AccessKeyID,
			SecretAccessKey: cfg.Mail.SecretAccessKey,
			Sender:          cfg.Mail.Sender,
		})
		if err != nil {
			log.Warn("email disabled", zap.Error(err))
		} else {
			mailer = ses
		}
	}
	gateway := notifier.NewGateway(cfg.Mail.Enabled, mailer, log.Named("mail"))

	var limiter *middleware.RateLimiter
	if cfg.Redis.RateLimit {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password})
		defer rdb.Close()
		limiter = middleware.NewRateLimiter(rdb, log.Named("ratelimit"))
	}

	// Set up dependencies (Repository -> Service -> Handler)
	userRepo := repository.NewUserRepository(db)
	productRepo := repository.NewProductRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	pawahRepo := repository.NewPawahRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	txManager := repository.NewTransactionManager(db)

	auditWriter := service.NewAuditWriter(auditRepo)
	dispatch := service.NewDispatcher(userRepo, gateway, sinks, log.Named("dispatch"))

	userService := service.NewUserService(userRepo, cfg.Auth.AdminEmail, log)
	marketplaceService := service.NewMarketplaceService(productRepo, auditWriter, txManager, log)
	orderService := service.NewOrderService(orderRepo, productRepo, auditWriter, txManager, dispatch, log)
	pawahService := service.NewPawahService(pawahRepo, auditWriter, txManager, dispatch, log)
	moderationService := service.NewModerationService(productRepo, pawahRepo, auditWriter, txManager, dispatch, log)
	messageService := service.NewMessageService(messageRepo, orderRepo, pawahRepo, dispatch, log)
	auditService := service.NewAuditService(auditRepo, log)

	var provider handler.IdentityProvider
	if cfg.Auth.GoogleClientID != "" {
		p, err := auth.NewProvider(ctx, auth.OIDCConfig{
			Issuer:       cfg.Auth.OIDCIssuer,
			ClientID:     cfg.Auth.GoogleClientID,
			ClientSecret: cfg.Auth.GoogleClientSecret,
			RedirectURL:  cfg.Auth.OIDCRedirectURL,
		})
		if err != nil {
			log.Warn("login disabled", zap.Error(err))
		} else {
			provider = p
		}
	}

	secret := []byte(cfg.Auth.JWTSecret)

	// Initialize Handlers
	authHandler := handler.NewAuthHandler(provider, userService, secret, log)
	productHandler := handler.NewProductHandler(marketplaceService)
	orderHandler := handler.NewOrderHandler(orderService, messageService)
	pawahHandler := handler.NewPawahHandler(pawahService, messageService)
	adminHandler := handler.NewAdminHandler(moderationService, auditService)

	router := gin.New()
	router.Use(gin.Recovery(), gin.Logger(), middleware.Metrics())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.Server.CORSOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	store := cookie.NewStore([]byte(cfg.Auth.SessionSecret))
	store.Options(sessions.Options{Path: "/", MaxAge: 600, HttpOnly: true, Secure: cfg.IsProduction(), SameSite: http.SameSiteLaxMode})
	router.Use(sessions.Sessions("kp_session", store))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})
	router.GET("/ws", func(c *gin.Context) {
		wsHub.ServeWs(c, secret)
	})

	guards := handler.Guards{
		Auth:     middleware.RequireAuth(secret),
		Optional: middleware.OptionalAuth(secret),
		Admin:    middleware.RequireAdmin(),
		Limiter:  limiter,
	}
	authHandler.RegisterRoutes(router.Group(""), guards)
	productHandler.RegisterRoutes(router.Group(""), guards)
	orderHandler.RegisterRoutes(router.Group(""), guards)
	pawahHandler.RegisterRoutes(router.Group(""), guards)
	adminHandler.RegisterRoutes(router.Group(""), guards)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
}
