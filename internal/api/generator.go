package api

import (
	"errors"   // Sentinel error checks
	"fmt"      // Error messages
	"net/http" // HTTP status codes

	"github.com/learner420/quizify/internal/content" // Quiz content store and generator
	"github.com/learner420/quizify/internal/ledger"  // Token balance ledger

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
	"gorm.io/gorm"               // GORM ORM library
)

// GenerateQuizRequest is the quiz generation payload
type GenerateQuizRequest struct {
	Subject      string `json:"subject" binding:"required"`       // Subject area
	Topic        string `json:"topic" binding:"required"`         // Quiz topic
	NumQuestions int    `json:"num_questions" binding:"required"` // Question count
	Difficulty   string `json:"difficulty"`                       // Optional difficulty
}

// GenerateQuizHandler creates a new quiz through the injected content
// generator. Generation costs one token per five questions with a
// minimum of one; admins generate for free.
func GenerateQuizHandler(db *gorm.DB, store *content.Store, generator content.Generator) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c, db) // Load the caller
		if !ok {
			return
		}
		var req GenerateQuizRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields (subject, topic, num_questions)"})
			return
		}
		difficulty := req.Difficulty
		if difficulty == "" {
			difficulty = "medium" // Default difficulty
		}
		// One token per five questions, minimum one
		requiredTokens := req.NumQuestions / 5
		if requiredTokens < 1 {
			requiredTokens = 1
		}
		if user.Tokens < requiredTokens && !user.IsAdmin() {
			c.JSON(http.StatusForbidden, gin.H{
				"error": fmt.Sprintf("Not enough tokens. You need %d tokens to generate this quiz.", requiredTokens),
			})
			return
		}
		// Refuse to overwrite an existing quiz
		if _, err := store.Load(req.Subject, req.Topic); err == nil {
			c.JSON(http.StatusConflict, gin.H{"error": "A quiz with this topic already exists in this subject"})
			return
		}
		// Generate the questions through the injected capability
		questions, err := generator.Generate(req.Subject, req.Topic, req.NumQuestions, difficulty)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		// Persist the new quiz
		if err := store.Save(req.Subject, req.Topic, questions); err != nil {
			if errors.Is(err, content.ErrExists) {
				c.JSON(http.StatusConflict, gin.H{"error": "A quiz with this topic already exists in this subject"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		// Charge the generation cost after the quiz is durable
		if !user.IsAdmin() {
			if err := ledger.New(db).Debit(user.ID, requiredTokens); err != nil {
				// The balance check above can race other spends
				logrus.WithFields(logrus.Fields{
					"user_id": user.ID,     // Generating user
					"error":   err.Error(), // Debit failure
				}).Warn("Generation debit failed")
			}
		}
		tokens, err := ledger.New(db).Balance(user.ID)
		if err != nil {
			tokens = user.Tokens // Fall back to the pre-call balance
		}
		logrus.WithFields(logrus.Fields{
			"user_id":   user.ID,        // Generating user
			"subject":   req.Subject,    // Subject area
			"topic":     req.Topic,      // Quiz topic
			"questions": len(questions), // Generated question count
		}).Info("Quiz generated")
		c.JSON(http.StatusCreated, gin.H{
			"message":          "Quiz generated successfully",
			"subject":          req.Subject, // Subject area
			"topic":            req.Topic,   // Quiz topic
			"file_path":        content.Sanitize(req.Subject) + "/" + content.Sanitize(req.Topic),
			"num_questions":    len(questions), // Generated question count
			"tokens_used":      requiredTokens, // Cost of the generation
			"tokens_remaining": tokens,         // Current balance
		})
	}
}

// AISubjectsHandler lists subjects available for generation
func AISubjectsHandler(store *content.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		subjects, err := store.Subjects() // Read subject directories
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"subjects": subjects})
	}
}
