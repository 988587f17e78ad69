package main

import (
	"context" // context package is needed for Redis operations
	"log"     // log package is needed for logging

	"github.com/learner420/quizify/internal/api"        // Custom package for API handlers
	"github.com/learner420/quizify/internal/config"     // Custom package for configuration
	"github.com/learner420/quizify/internal/content"    // Quiz content store
	"github.com/learner420/quizify/internal/mail"       // Email delivery
	"github.com/learner420/quizify/internal/middleware" // Custom package for middleware
	"github.com/learner420/quizify/internal/payment"    // Purchase flow
	"github.com/learner420/quizify/internal/quiz"       // Attempt lifecycle engine

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logrus for structured logging
	"gorm.io/driver/mysql"         // MySQL driver for GORM
	"gorm.io/gorm"                 // GORM ORM library
)

// Main function to set up and run the server
func main() {
	cfg := config.LoadConfig() // Load configuration

	// Setup logger
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// Setup Data Source Name (DSN) and connect to the database
	dsn := cfg.DBUser + ":" + cfg.DBPassword + "@tcp(" + cfg.DBHost + ":" + cfg.DBPort + ")/" + cfg.DBName + "?parseTime=true"
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err) // Fatal error if DB connection fails
	}

	// Setup Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr, // Redis server address
		Password: cfg.RedisPass, // Redis password
		DB:       cfg.RedisDB,   // Redis database number
	})

	// Test Redis connection
	_, err = redisClient.Ping(context.Background()).Result()
	if err != nil {
		logrus.Fatalf("failed to connect to Redis: %v", err)
	}

	// Quiz content store and attempt lifecycle engine
	store := content.NewStore(cfg.QuizDir)
	engine := quiz.NewEngine(db, store)

	// Payment gateway: missing credentials enable the offline test mode
	var gateway payment.Gateway
	if cfg.RazorpayKey != "" && cfg.RazorpaySec != "" {
		gateway = payment.NewRazorpayGateway(cfg.RazorpayKey, cfg.RazorpaySec)
	} else {
		logrus.Warn("Razorpay credentials not set, running payments in offline mode")
	}
	payments := payment.NewService(db, gateway)

	// Mailer and quiz generator
	mailer := mail.NewMailer(cfg.SMTPServer, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword)
	generator := content.NewOpenRouterGenerator(cfg.AIAPIKey)

	// Set Mode to Release if in production
	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup Gin
	r := gin.Default() // Gin router instance

	// Set trusted proxies for Gin
	if err := r.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		logrus.Fatalf("failed to set trusted proxies: %v", err)
	}

	authRequired := middleware.JWTAuthMiddleware(cfg.JWTSecret, redisClient) // Bearer token guard

	// Root and health endpoints
	apiGroup := r.Group("/api")
	apiGroup.GET("/", api.IndexHandler())        // Welcome endpoint
	apiGroup.GET("/health", api.HealthHandler()) // Health endpoint

	// Auth routes
	authGroup := apiGroup.Group("/auth")
	authGroup.POST("/register", api.RegisterHandler(db))                                      // Registration endpoint
	authGroup.POST("/login", api.LoginHandler(db, cfg.JWTSecret))                             // Login endpoint
	authGroup.POST("/forgot-password", api.ForgotPasswordHandler(db, mailer, cfg.AppBaseURL)) // Reset request endpoint
	authGroup.POST("/reset-password", api.ResetPasswordHandler(db))                           // Reset completion endpoint
	authGroup.POST("/logout", authRequired, api.LogoutHandler(redisClient))                   // Logout endpoint
	authGroup.GET("/profile", authRequired, api.ProfileHandler(db))                           // Profile endpoint

	// Quiz routes; listing is public, taking a quiz requires auth
	quizGroup := apiGroup.Group("/quizzes")
	quizGroup.GET("/", api.SubjectsHandler(store))                                            // Subject listing endpoint
	quizGroup.GET("/attempts", authRequired, api.AttemptsHandler(db, engine))                 // Attempt history endpoint
	quizGroup.GET("/:subject", api.QuizzesHandler(store))                                     // Quiz listing endpoint
	quizGroup.GET("/:subject/:quiz", authRequired, api.GetQuizHandler(db, engine))            // Start-or-resume endpoint
	quizGroup.POST("/:subject/:quiz/submit", authRequired, api.SubmitQuizHandler(db, engine)) // Submission endpoint

	// Payment routes
	paymentGroup := apiGroup.Group("/payment")
	paymentGroup.GET("/packages", api.PackagesHandler(payments))                                            // Package listing endpoint
	paymentGroup.POST("/create-order", authRequired, api.CreateOrderHandler(db, payments, redisClient))     // Order creation endpoint
	paymentGroup.POST("/verify-payment", authRequired, api.VerifyPaymentHandler(db, payments, redisClient)) // Verification endpoint
	paymentGroup.GET("/transactions", authRequired, api.TransactionsHandler(db, payments, redisClient))     // History endpoint

	// Quiz generation routes
	aiGroup := apiGroup.Group("/ai")
	aiGroup.GET("/subjects", api.AISubjectsHandler(store))                                      // Subject listing endpoint
	aiGroup.POST("/generate-quiz", authRequired, api.GenerateQuizHandler(db, store, generator)) // Generation endpoint

	// Admin routes (protected, admin only)
	adminGroup := apiGroup.Group("/admin")
	adminGroup.Use(authRequired, middleware.AdminOnlyMiddleware(db))
	adminGroup.GET("/users", api.ListUsersHandler(db, redisClient))                   // List users endpoint
	adminGroup.GET("/users/:id", api.GetUserHandler(db))                              // Single user endpoint
	adminGroup.PUT("/users/:id/tokens", api.UpdateUserTokensHandler(db, redisClient)) // Token adjustment endpoint
	adminGroup.PUT("/users/:id/role", api.UpdateUserRoleHandler(db, redisClient))     // Role change endpoint
	adminGroup.GET("/token-packages", api.TokenPackagesHandler(payments))             // Package listing endpoint
	adminGroup.PUT("/token-packages", api.UpdateTokenPackagesHandler(payments))       // Package update endpoint

	log.Println("Server running on " + cfg.AppPort) // Log server start
	r.Run(":" + cfg.AppPort)                        // Start the server on port cfg.AppPort
}
