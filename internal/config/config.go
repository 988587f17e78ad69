package config

import (
	"os"      // For environment variables
	"strconv" // For string to int conversion

	"github.com/joho/godotenv" // For loading .env files
)

// Config holds the application configuration
type Config struct {
	AppPort      string // Application port
	AppBaseURL   string // Public base URL, used in password reset links
	DBUser       string // Database user
	DBPassword   string // Database password
	DBHost       string // Database host
	DBPort       string // Database port
	DBName       string // Database name
	JWTSecret    string // JWT secret key
	RedisAddr    string // Redis server address
	RedisPass    string // Redis password
	RedisDB      int    // Redis database number
	QuizDir      string // Root directory of the quiz content files
	RazorpayKey  string // Razorpay key id, empty enables offline mode
	RazorpaySec  string // Razorpay key secret
	SMTPServer   string // SMTP server host
	SMTPPort     string // SMTP server port
	SMTPUsername string // SMTP username, empty enables dev-mode logging
	SMTPPassword string // SMTP password
	AIAPIKey     string // OpenRouter API key for quiz generation
	IsProd       bool   // Is production environment
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	_ = godotenv.Load() // Load .env file if present
	redisDB, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
	quizDir := os.Getenv("QUIZ_DIR")
	if quizDir == "" {
		quizDir = "quizzes" // Default content directory next to the binary
	}
	return &Config{
		AppPort:      os.Getenv("APP_PORT"),           // Application port
		AppBaseURL:   os.Getenv("APP_BASE_URL"),       // Public base URL
		DBUser:       os.Getenv("DB_USER"),            // Database user
		DBPassword:   os.Getenv("DB_PASSWORD"),        // Database password
		DBHost:       os.Getenv("DB_HOST"),            // Database host
		DBPort:       os.Getenv("DB_PORT"),            // Database port
		DBName:       os.Getenv("DB_NAME"),            // Database name
		JWTSecret:    os.Getenv("JWT_SECRET"),         // JWT secret key
		RedisAddr:    os.Getenv("REDIS_ADDR"),         // Redis server address
		RedisPass:    os.Getenv("REDIS_PASS"),         // Redis password
		RedisDB:      redisDB,                         // Redis database number
		QuizDir:      quizDir,                         // Quiz content directory
		RazorpayKey:  os.Getenv("RAZORPAY_KEY_ID"),    // Razorpay key id
		RazorpaySec:  os.Getenv("RAZORPAY_SECRET"),    // Razorpay key secret
		SMTPServer:   os.Getenv("SMTP_SERVER"),        // SMTP server host
		SMTPPort:     os.Getenv("SMTP_PORT"),          // SMTP server port
		SMTPUsername: os.Getenv("SMTP_USERNAME"),      // SMTP username
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),      // SMTP password
		AIAPIKey:     os.Getenv("OPENROUTER_API_KEY"), // Quiz generation API key
		IsProd:       os.Getenv("IS_PROD") == "true",  // Is production environment
	}
}
