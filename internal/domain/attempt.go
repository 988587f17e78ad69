package domain

import (
	"encoding/json" // JSON encoding for stored answers
	"time"          // Attempt timestamps
)

// QuizAttempt Model
// An attempt with TotalQuestions == 0 is still in progress; any other
// value means it has been scored.
type QuizAttempt struct {
	ID             uint      `gorm:"primaryKey" json:"id"`          // Primary key
	UserID         uint      `gorm:"not null;index" json:"user_id"` // Foreign key to User
	Subject        string    `gorm:"not null" json:"subject"`       // Quiz subject
	QuizName       string    `gorm:"not null" json:"quiz_name"`     // Quiz name within the subject
	Score          int       `gorm:"not null" json:"score"`         // Number of correct answers
	TotalQuestions int       `gorm:"not null" json:"total_questions"`
	CreatedAt      time.Time `json:"created_at"` // When the attempt was started
	UserAnswers    *string   `json:"-"`          // JSON-serialized answer list
}

// InProgress reports whether the attempt has not been scored yet
func (a *QuizAttempt) InProgress() bool {
	return a.TotalQuestions == 0
}

// SetAnswers stores the user's answers as a JSON string
func (a *QuizAttempt) SetAnswers(answers []string) {
	if len(answers) == 0 {
		a.UserAnswers = nil // Empty submissions clear the stored answers
		return
	}
	b, err := json.Marshal(answers) // Marshal answers to JSON
	if err != nil {
		return // A []string cannot fail to marshal; keep previous value
	}
	s := string(b)
	a.UserAnswers = &s
}

// Answers returns the stored answers as a list
func (a *QuizAttempt) Answers() []string {
	if a.UserAnswers == nil {
		return []string{} // No answers stored yet
	}
	var answers []string
	if err := json.Unmarshal([]byte(*a.UserAnswers), &answers); err != nil {
		return []string{} // Unreadable payloads are treated as empty
	}
	return answers
}

// Percentage returns the score as a percentage, 0 when unscored
func (a *QuizAttempt) Percentage() float64 {
	if a.TotalQuestions == 0 {
		return 0 // Avoid division by zero for in-progress attempts
	}
	return float64(a.Score) / float64(a.TotalQuestions) * 100
}
