package api

import (
	"errors"   // Sentinel error checks
	"net/http" // HTTP status codes
	"strconv"  // Query parameter parsing

	"github.com/learner420/quizify/internal/content" // Quiz content store
	"github.com/learner420/quizify/internal/quiz"    // Attempt lifecycle engine

	"github.com/gin-gonic/gin" // Gin web framework
	"gorm.io/gorm"             // GORM ORM library
)

// SubjectsHandler lists all quiz subjects
func SubjectsHandler(store *content.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		subjects, err := store.Subjects() // Read subject directories
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"subjects": subjects})
	}
}

// QuizzesHandler lists all quizzes within a subject
func QuizzesHandler(store *content.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		subject := c.Param("subject")          // Subject from the path
		quizzes, err := store.Quizzes(subject) // Quiz names in the subject
		if err != nil {
			if errors.Is(err, content.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Subject not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"subject": subject, "quizzes": quizzes})
	}
}

// GetQuizHandler serves a start-or-resume request: it resolves the
// governing attempt, charges a token when a fresh attempt is needed,
// and returns the questions with answer keys stripped
func GetQuizHandler(db *gorm.DB, engine *quiz.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c, db) // Load the caller
		if !ok {
			return
		}
		subject := c.Param("subject") // Subject from the path
		quizName := c.Param("quiz")   // Quiz name from the path
		// Optional explicit attempt to resume
		attemptID := uint(0)
		if raw := c.Query("attempt_id"); raw != "" {
			if v, err := strconv.Atoi(raw); err == nil && v > 0 {
				attemptID = uint(v) // Resume this exact attempt
			}
		}
		forceNew := c.Query("new_attempt") == "true" // Force a fresh attempt

		result, err := engine.StartOrResume(user, subject, quizName, attemptID, forceNew)
		if err != nil {
			switch {
			case errors.Is(err, quiz.ErrInsufficientTokens):
				// Zero balance blocks the start without side effects
				c.JSON(http.StatusForbidden, gin.H{
					"error":        "You need at least 1 token to take this quiz",
					"tokens":       user.Tokens, // Unchanged balance
					"needs_tokens": true,        // Client shows the purchase flow
				})
			case errors.Is(err, quiz.ErrQuizNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": "Quiz not found"})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			}
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"subject":        subject,              // Echoed subject
			"quiz_name":      quizName,             // Echoed quiz name
			"questions":      result.Questions,     // Answer keys stripped
			"token_required": true,                 // Quizzes are token gated
			"user_tokens":    result.Tokens,        // Current balance
			"has_attempted":  result.HasAttempted,  // An attempt record exists
			"token_deducted": result.TokenDeducted, // Charged this call
			"attempt_id":     result.AttemptID,     // The resolved attempt
			"is_new_attempt": result.IsNewAttempt,  // Created vs resumed
		})
	}
}

// SubmitRequest is the quiz submission payload
type SubmitRequest struct {
	Answers       []string `json:"answers" binding:"required"` // One answer per question
	AttemptID     uint     `json:"attempt_id"`                 // Optional explicit attempt
	PreserveScore bool     `json:"preserve_score"`             // Keep the stored summary
}

// SubmitQuizHandler scores a submission. The caller's answers are
// persisted before scoring, so a broken quiz definition degrades the
// response rather than losing them.
func SubmitQuizHandler(db *gorm.DB, engine *quiz.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c, db) // Load the caller
		if !ok {
			return
		}
		var req SubmitRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// Missing answer list is a validation error
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing answers"})
			return
		}
		subject := c.Param("subject") // Subject from the path
		quizName := c.Param("quiz")   // Quiz name from the path

		result, err := engine.Submit(user, subject, quizName, req.Answers, req.AttemptID, req.PreserveScore)
		if err != nil {
			if errors.Is(err, quiz.ErrQuizNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Quiz not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if result.Err != "" {
			// Degraded scoring: the answers were stored, report the error
			c.JSON(http.StatusOK, gin.H{
				"error":            result.Err,         // Scoring failure detail
				"score":            0,                  // No score computed
				"total_questions":  0,                  // No total computed
				"percentage":       0,                  // Derived
				"results":          result.Results,     // Empty breakdown
				"attempt_id":       result.AttemptID,   // The resolved attempt
				"tokens_remaining": result.Tokens,      // Current balance
				"user_answers":     result.UserAnswers, // Echoed answers
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"message":          "Quiz submitted successfully",
			"score":            result.Score,          // Reported score
			"total_questions":  result.TotalQuestions, // Reported total
			"percentage":       result.Percentage,     // Derived percentage
			"results":          result.Results,        // Per-question breakdown
			"tokens_remaining": result.Tokens,         // Current balance
			"attempt_id":       result.AttemptID,      // The resolved attempt
			"user_answers":     result.UserAnswers,    // Echoed answers
		})
	}
}

// AttemptsHandler lists the caller's quiz attempts
func AttemptsHandler(db *gorm.DB, engine *quiz.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c, db) // Load the caller
		if !ok {
			return
		}
		attempts, err := engine.ListAttempts(user.ID) // Newest first
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch attempts"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"attempts": attempts})
	}
}
