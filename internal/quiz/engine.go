// Package quiz implements the token-gated attempt lifecycle: deciding
// which attempt record governs a start or submit request, when a token
// is charged, and how scores are computed and persisted.
package quiz

import (
	"errors" // Sentinel error checks
	"time"   // Attempt date formatting

	"github.com/learner420/quizify/internal/content" // Quiz content store
	"github.com/learner420/quizify/internal/domain"  // Importing domain models
	"github.com/learner420/quizify/internal/ledger"  // Token balance ledger

	"github.com/sirupsen/logrus" // Logging library
	"gorm.io/gorm"               // GORM ORM library
)

// ErrQuizNotFound is returned when the quiz definition does not exist
var ErrQuizNotFound = errors.New("quiz not found")

// ErrInsufficientTokens is returned when a start cannot charge a token
var ErrInsufficientTokens = ledger.ErrInsufficientTokens

// DefaultExplanation is reported when a question has none authored
const DefaultExplanation = "No explanation provided."

// Engine orchestrates the content store, the account ledger and the
// attempt records behind start-or-resume and submit requests
type Engine struct {
	db     *gorm.DB       // Attempt store
	store  *content.Store // Quiz definitions
	ledger *ledger.Ledger // Token balances
}

// NewEngine creates an attempt lifecycle engine
func NewEngine(db *gorm.DB, store *content.Store) *Engine {
	return &Engine{db: db, store: store, ledger: ledger.New(db)}
}

// StartResult is the outcome of a start-or-resume request
type StartResult struct {
	Questions     []content.ClientQuestion // Questions with answer keys stripped
	AttemptID     uint                     // The resolved attempt
	TokenDeducted bool                     // Whether this call charged a token
	IsNewAttempt  bool                     // Freshly created vs resumed
	HasAttempted  bool                     // An attempt record now exists
	Tokens        int                      // Current token balance
}

// StartOrResume resolves the attempt governing a "take quiz" request.
// An explicit attempt id or an unscored attempt is resumed free of
// charge; otherwise one token is debited and a fresh attempt created,
// both inside a single transaction so a charge can never exist without
// a persisted attempt. Admins are never charged.
func (e *Engine) StartOrResume(user *domain.User, subject, quizName string, attemptID uint, forceNew bool) (*StartResult, error) {
	// Load the definition first so an unknown quiz can never charge
	questions, err := e.store.Load(subject, quizName)
	if err != nil {
		if errors.Is(err, content.ErrNotFound) {
			return nil, ErrQuizNotFound
		}
		return nil, err
	}

	var resolved *domain.QuizAttempt
	if attemptID != 0 && !forceNew {
		// An explicit attempt id resumes that exact attempt
		var attempt domain.QuizAttempt
		err := e.db.Where("user_id = ? AND subject = ? AND quiz_name = ? AND id = ?",
			user.ID, subject, quizName, attemptID).First(&attempt).Error
		if err == nil {
			resolved = &attempt
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	} else if !forceNew {
		// Otherwise resume the newest unscored attempt, if any
		var attempt domain.QuizAttempt
		err := e.db.Where("user_id = ? AND subject = ? AND quiz_name = ? AND total_questions = 0",
			user.ID, subject, quizName).Order("created_at desc").First(&attempt).Error
		if err == nil {
			resolved = &attempt
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	tokenDeducted := false
	isNew := false
	if resolved == nil {
		// No resumable attempt: create a fresh one, charging non-admins
		attempt := domain.QuizAttempt{
			UserID:         user.ID,  // Owner of the attempt
			Subject:        subject,  // Quiz subject
			QuizName:       quizName, // Quiz name
			Score:          0,        // Unscored until submission
			TotalQuestions: 0,        // Zero marks the attempt in progress
		}
		err := e.db.Transaction(func(tx *gorm.DB) error {
			if !user.IsAdmin() {
				// Debit and creation commit or roll back as a pair
				if err := e.ledger.WithTx(tx).DebitOne(user.ID); err != nil {
					return err
				}
				tokenDeducted = true
			}
			return tx.Create(&attempt).Error
		})
		if err != nil {
			if errors.Is(err, ledger.ErrInsufficientTokens) {
				return nil, ErrInsufficientTokens // No side effects
			}
			return nil, err
		}
		resolved = &attempt
		isNew = true
		logrus.WithFields(logrus.Fields{
			"user_id":    user.ID,       // Owner of the attempt
			"subject":    subject,       // Quiz subject
			"quiz":       quizName,      // Quiz name
			"attempt_id": attempt.ID,    // Fresh attempt id
			"charged":    tokenDeducted, // Whether a token was debited
		}).Info("Quiz attempt created")
	}

	tokens, err := e.ledger.Balance(user.ID)
	if err != nil {
		return nil, err
	}
	return &StartResult{
		Questions:     content.StripAnswers(questions), // Answer keys become indexes
		AttemptID:     resolved.ID,                     // The resolved attempt
		TokenDeducted: tokenDeducted,                   // Charged this call
		IsNewAttempt:  isNew,                           // Created vs resumed
		HasAttempted:  true,                            // An attempt record exists
		Tokens:        tokens,                          // Current balance
	}, nil
}

// QuestionResult is the per-question breakdown of a submission
type QuestionResult struct {
	Question      string   `json:"question"`       // Question text
	Options       []string `json:"options"`        // Options presented
	UserAnswer    string   `json:"user_answer"`    // What the caller answered
	CorrectAnswer string   `json:"correct_answer"` // The answer key
	IsCorrect     bool     `json:"is_correct"`     // Exact match of the two
	Explanation   string   `json:"explanation"`    // Authored or default text
}

// SubmitResult is the outcome of a submit request
type SubmitResult struct {
	Score          int              // Reported score
	TotalQuestions int              // Reported total
	Percentage     float64          // score/total*100, 0 when total is 0
	Results        []QuestionResult // Per-question breakdown
	AttemptID      uint             // The resolved attempt
	Tokens         int              // Current token balance
	UserAnswers    []string         // Echo of the submitted answers
	Err            string           // Set when scoring was degraded
}

// Submit persists the caller's answers onto the resolved attempt and
// scores them. Submission never charges tokens. When preserveScore is
// set the stored summary stays untouched and is reported as-is, while
// the per-question breakdown is still computed fresh.
func (e *Engine) Submit(user *domain.User, subject, quizName string, answers []string, attemptID uint, preserveScore bool) (*SubmitResult, error) {
	// Reject unknown quizzes before touching any attempt record
	if _, err := e.store.Load(subject, quizName); err != nil {
		if errors.Is(err, content.ErrNotFound) {
			return nil, ErrQuizNotFound
		}
	}

	attempt, err := e.resolveForSubmit(user, subject, quizName, attemptID)
	if err != nil {
		return nil, err
	}

	// Answers are stored unconditionally, before any scoring can fail
	attempt.SetAnswers(answers)
	if err := e.db.Model(attempt).Update("user_answers", attempt.UserAnswers).Error; err != nil {
		return nil, err
	}

	tokens, err := e.ledger.Balance(user.ID)
	if err != nil {
		return nil, err
	}

	questions, err := e.store.Load(subject, quizName)
	if err != nil {
		// The answers are already durable, so a broken definition
		// degrades the response instead of failing the submission
		logrus.WithFields(logrus.Fields{
			"user_id": user.ID,     // Submitting user
			"subject": subject,     // Quiz subject
			"quiz":    quizName,    // Quiz name
			"error":   err.Error(), // Load or parse failure
		}).Error("Quiz scoring degraded")
		return &SubmitResult{
			Results:     []QuestionResult{}, // Empty breakdown
			AttemptID:   attempt.ID,         // The resolved attempt
			Tokens:      tokens,             // Current balance
			UserAnswers: answers,            // Echoed answers
			Err:         err.Error(),        // Error surfaced to the caller
		}, nil
	}

	score, results := scoreAnswers(questions, answers)
	total := len(results)

	if !preserveScore {
		// Overwrite the stored summary with the fresh computation
		updates := map[string]any{"score": score, "total_questions": total}
		if err := e.db.Model(attempt).Updates(updates).Error; err != nil {
			return nil, err
		}
	} else {
		// Report the stored summary, not the fresh one
		score = attempt.Score
		total = attempt.TotalQuestions
	}

	percentage := 0.0
	if total > 0 {
		percentage = float64(score) / float64(total) * 100 // Avoid division by zero
	}
	return &SubmitResult{
		Score:          score,      // Stored or fresh depending on preserveScore
		TotalQuestions: total,      // Matching total
		Percentage:     percentage, // Derived percentage
		Results:        results,    // Always the fresh breakdown
		AttemptID:      attempt.ID, // The resolved attempt
		Tokens:         tokens,     // Current balance
		UserAnswers:    answers,    // Echoed answers
	}, nil
}

// resolveForSubmit finds the attempt a submission applies to, creating
// one without any token charge when none exists at all
func (e *Engine) resolveForSubmit(user *domain.User, subject, quizName string, attemptID uint) (*domain.QuizAttempt, error) {
	var attempt domain.QuizAttempt
	var err error
	if attemptID != 0 {
		// An explicit attempt id targets that exact attempt
		err = e.db.Where("user_id = ? AND subject = ? AND quiz_name = ? AND id = ?",
			user.ID, subject, quizName, attemptID).First(&attempt).Error
	} else {
		// Otherwise the most recent attempt for this quiz
		err = e.db.Where("user_id = ? AND subject = ? AND quiz_name = ?",
			user.ID, subject, quizName).Order("created_at desc").First(&attempt).Error
	}
	if err == nil {
		return &attempt, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	// Session expired or page refreshed: create the attempt now, but
	// only starting a quiz charges tokens, never submitting
	attempt = domain.QuizAttempt{
		UserID:         user.ID,  // Owner of the attempt
		Subject:        subject,  // Quiz subject
		QuizName:       quizName, // Quiz name
		Score:          0,        // Unscored
		TotalQuestions: 0,        // In progress
	}
	if err := e.db.Create(&attempt).Error; err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"user_id":    user.ID,    // Owner of the attempt
		"subject":    subject,    // Quiz subject
		"quiz":       quizName,   // Quiz name
		"attempt_id": attempt.ID, // Fresh attempt id
	}).Info("Attempt created at submission time without charge")
	return &attempt, nil
}

// scoreAnswers compares answers to the definition by exact value
// equality. Answer i pairs with question i; missing answers count as
// empty strings.
func scoreAnswers(questions []content.Question, answers []string) (int, []QuestionResult) {
	score := 0
	results := make([]QuestionResult, 0, len(questions))
	for i, q := range questions {
		answer := ""
		if i < len(answers) {
			answer = answers[i] // Short answer lists leave the rest blank
		}
		correct := answer == q.CorrectAnswer
		if correct {
			score++
		}
		explanation := q.Explanation
		if explanation == "" {
			explanation = DefaultExplanation // Default when none authored
		}
		results = append(results, QuestionResult{
			Question:      q.Question,      // Question text
			Options:       q.Options,       // Options presented
			UserAnswer:    answer,          // Caller's answer
			CorrectAnswer: q.CorrectAnswer, // Answer key
			IsCorrect:     correct,         // Exact match
			Explanation:   explanation,     // Authored or default
		})
	}
	return score, results
}

// AttemptSummary is one row of a user's attempt history
type AttemptSummary struct {
	ID             uint     `json:"id"`              // Attempt id
	Subject        string   `json:"subject"`         // Quiz subject
	QuizName       string   `json:"quiz_name"`       // Quiz name
	Score          int      `json:"score"`           // Stored score
	TotalQuestions int      `json:"total_questions"` // Stored total
	Percentage     float64  `json:"percentage"`      // Derived percentage
	AttemptDate    string   `json:"attempt_date"`    // RFC 3339 timestamp
	UserAnswers    []string `json:"user_answers"`    // Stored answers
}

// ListAttempts returns the user's attempts, newest first
func (e *Engine) ListAttempts(userID uint) ([]AttemptSummary, error) {
	var attempts []domain.QuizAttempt
	err := e.db.Where("user_id = ?", userID).Order("created_at desc").Find(&attempts).Error
	if err != nil {
		return nil, err
	}
	summaries := make([]AttemptSummary, len(attempts))
	for i, a := range attempts {
		summaries[i] = AttemptSummary{
			ID:             a.ID,                             // Attempt id
			Subject:        a.Subject,                        // Quiz subject
			QuizName:       a.QuizName,                       // Quiz name
			Score:          a.Score,                          // Stored score
			TotalQuestions: a.TotalQuestions,                 // Stored total
			Percentage:     a.Percentage(),                   // Derived percentage
			AttemptDate:    a.CreatedAt.Format(time.RFC3339), // Attempt timestamp
			UserAnswers:    a.Answers(),                      // Stored answers
		}
	}
	return summaries, nil
}
