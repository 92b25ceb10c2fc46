// File: internal/app/server.go
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"gatortrader_backend/internal/auth"
	"gatortrader_backend/internal/category"
	"gatortrader_backend/internal/chatbot"
	"gatortrader_backend/internal/config"
	"gatortrader_backend/internal/contact"
	"gatortrader_backend/internal/filestorage"
	"gatortrader_backend/internal/jobs"
	"gatortrader_backend/internal/listing"
	"gatortrader_backend/internal/middleware"
	"gatortrader_backend/internal/notification"
	"gatortrader_backend/internal/platform/elasticsearch"
	"gatortrader_backend/internal/session"
	"gatortrader_backend/internal/shared"
	"gatortrader_backend/internal/transaction"
	"gatortrader_backend/internal/user"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handlers groups the HTTP handlers mounted under /api/v1.
type Handlers struct {
	User         *user.Handler
	Auth         *auth.Handler
	Category     *category.Handler
	Listing      *listing.Handler
	Transaction  *transaction.Handler
	Notification *notification.Handler
	Contact      *contact.Handler
	Chatbot      *chatbot.Handler
}

// Server struct holds the dependencies for the HTTP server.
type Server struct {
	httpServer  *http.Server
	router      *gin.Engine
	cfg         *config.Config
	logger      *zap.Logger
	dispatcher  *jobs.NotificationDispatcher
	es          *elasticsearch.ESClientWrapper
	unsubscribe []func()
}

// NewServer creates a new instance of our application server.
func NewServer(
	cfg *config.Config,
	logger *zap.Logger,
	handlers Handlers,
	verifier shared.TokenVerifier,
	userService *user.ServiceImplementation,
	broker *session.Broker,
	dispatcher *jobs.NotificationDispatcher,
	es *elasticsearch.ESClientWrapper,
) (*Server, error) {
	gin.SetMode(cfg.GinMode)
	user.RegisterValidators()
	router := gin.New()

	// --- Global Middleware ---
	router.Use(middleware.ZapLogger(logger, cfg.GinMode))
	router.Use(middleware.ErrorHandler(logger))
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSAllowedOrigins
	if len(corsConfig.AllowOrigins) == 0 || corsConfig.AllowOrigins[0] == "*" {
		corsConfig.AllowOrigins = nil
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowCredentials = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader}
	corsConfig.ExposeHeaders = []string{"Content-Length", middleware.RequestIDHeader}
	router.Use(cors.New(corsConfig))

	authMW := middleware.AuthMiddleware(verifier, userService, logger.Named("AuthMiddleware"))
	optionalAuthMW := middleware.OptionalAuthMiddleware(verifier, userService, logger.Named("AuthMiddleware"))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "UP", "message": "GatorTrader API is healthy!"})
	})
	if cfg.BlobDriver == config.BlobDriverLocal {
		router.Static(filestorage.LocalFilesRoute, cfg.FileStoragePath)
	}

	v1 := router.Group("/api/v1")
	handlers.Auth.RegisterRoutes(v1, authMW)
	handlers.User.RegisterRoutes(v1, authMW)
	handlers.Category.RegisterRoutes(v1)
	handlers.Listing.RegisterRoutes(v1, authMW, optionalAuthMW)
	handlers.Transaction.RegisterRoutes(v1, authMW)
	handlers.Notification.RegisterRoutes(v1.Group("/notifications", authMW))
	handlers.Contact.RegisterRoutes(v1)
	handlers.Chatbot.RegisterRoutes(v1, middleware.RateLimit(cfg.ChatbotRatePerMin))

	addr := fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		httpServer:  httpServer,
		router:      router,
		cfg:         cfg,
		logger:      logger,
		dispatcher:  dispatcher,
		es:          es,
		unsubscribe: []func(){broker.Subscribe(userService.HandleSessionEvent)},
	}, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	if s.es != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := elasticsearch.CreateListingsIndexIfNotExists(ctx, s.es, s.logger); err != nil {
			s.logger.Error("Failed to create Elasticsearch listings index; search may be unavailable.", zap.Error(err))
		}
		cancel()
	} else {
		s.logger.Info("Elasticsearch not configured, skipping index creation.")
	}

	if s.dispatcher != nil {
		if err := s.dispatcher.SetupAndStart(); err != nil {
			s.logger.Error("Failed to start notification dispatcher", zap.Error(err))
		}
	}

	s.logger.Info("HTTP Server starting",
		zap.String("address", s.httpServer.Addr),
		zap.String("gin_mode", s.cfg.GinMode),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Error("Failed to start HTTP server", zap.Error(err))
		return err
	}
	return nil
}

// Shutdown stops background jobs, drops session subscriptions and then drains HTTP.
// Connections (DB, AMQP, Redis) are closed afterwards by the injector cleanup.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Attempting graceful server shutdown...")
	if s.dispatcher != nil {
		s.dispatcher.Stop()
	}
	for _, unsub := range s.unsubscribe {
		unsub()
	}
	return s.httpServer.Shutdown(ctx)
}
