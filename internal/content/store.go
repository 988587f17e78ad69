package content

import (
	"encoding/json" // Quiz files are JSON arrays
	"errors"        // Sentinel errors
	"os"            // File system access
	"path/filepath" // Path construction
	"strings"       // Name sanitization

	"github.com/sirupsen/logrus" // Logging library
)

// ErrNotFound is returned when a subject or quiz does not exist
var ErrNotFound = errors.New("quiz not found")

// ErrExists is returned when saving a quiz that already exists
var ErrExists = errors.New("quiz already exists")

// Question is one entry of a quiz definition file
type Question struct {
	ID            int      `json:"id,omitempty"`          // Optional ordinal from the authoring tool
	Question      string   `json:"question"`              // Question text
	Options       []string `json:"options"`               // Fixed set of options
	CorrectAnswer string   `json:"correct_answer"`        // Correct option value
	Explanation   string   `json:"explanation,omitempty"` // Optional explanation
}

// Valid reports whether the question carries every required field
func (q Question) Valid() bool {
	return q.Question != "" && len(q.Options) > 0 && q.CorrectAnswer != ""
}

// ClientQuestion is a question with the answer key stripped for rendering
type ClientQuestion struct {
	ID                 int      `json:"id,omitempty"`         // Optional ordinal
	Question           string   `json:"question"`             // Question text
	Options            []string `json:"options"`              // Options to render
	CorrectAnswerIndex int      `json:"correct_answer_index"` // Index of the correct option
	Explanation        string   `json:"explanation,omitempty"`
}

// Store reads and writes quiz definition files under a root directory.
// Layout: <root>/<subject>/<quiz>.json, one JSON array per quiz.
type Store struct {
	root string // Root content directory
}

// NewStore creates a content store rooted at dir
func NewStore(dir string) *Store {
	return &Store{root: dir}
}

// Subjects lists all subject directories
func (s *Store) Subjects() ([]string, error) {
	entries, err := os.ReadDir(s.root) // Read the root directory
	if err != nil {
		return nil, err
	}
	subjects := []string{}
	for _, e := range entries {
		if e.IsDir() {
			subjects = append(subjects, e.Name()) // Each directory is a subject
		}
	}
	return subjects, nil
}

// Quizzes lists all quiz names within a subject
func (s *Store) Quizzes(subject string) ([]string, error) {
	dir := filepath.Join(s.root, Sanitize(subject))
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, ErrNotFound // Unknown subject
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	quizzes := []string{}
	for _, e := range entries {
		// Only JSON files are quiz definitions
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			quizzes = append(quizzes, strings.TrimSuffix(e.Name(), ".json"))
		}
	}
	return quizzes, nil
}

// Load reads and validates a quiz definition. Malformed entries are
// skipped with a logged warning rather than carried forward.
func (s *Store) Load(subject, quizName string) ([]Question, error) {
	path := s.quizPath(subject, quizName)
	data, err := os.ReadFile(path) // Read the quiz file
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound // Missing file means unknown quiz
		}
		return nil, err
	}
	var raw []Question
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err // Unparseable content is an upstream error
	}
	questions := make([]Question, 0, len(raw))
	for i, q := range raw {
		if !q.Valid() {
			// Record the skip so authoring mistakes are visible
			logrus.WithFields(logrus.Fields{
				"subject": subject,  // Quiz subject
				"quiz":    quizName, // Quiz name
				"index":   i,        // Position of the bad entry
			}).Warn("Skipping malformed quiz question")
			continue
		}
		questions = append(questions, q)
	}
	return questions, nil
}

// Save writes a new quiz definition, refusing to overwrite an existing one
func (s *Store) Save(subject, quizName string, questions []Question) error {
	dir := filepath.Join(s.root, Sanitize(subject))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err // Subject directory could not be created
	}
	path := s.quizPath(subject, quizName)
	if _, err := os.Stat(path); err == nil {
		return ErrExists // Published quizzes are immutable
	}
	data, err := json.MarshalIndent(questions, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// StripAnswers converts questions to their client-safe form, replacing
// each correct answer value with its index within the option list
func StripAnswers(questions []Question) []ClientQuestion {
	stripped := make([]ClientQuestion, len(questions))
	for i, q := range questions {
		idx := 0
		for j, opt := range q.Options {
			if opt == q.CorrectAnswer {
				idx = j // Index of the correct option
				break
			}
		}
		stripped[i] = ClientQuestion{
			ID:                 q.ID,          // Optional ordinal
			Question:           q.Question,    // Question text
			Options:            q.Options,     // Options to render
			CorrectAnswerIndex: idx,           // Answer key as an index only
			Explanation:        q.Explanation, // Optional explanation
		}
	}
	return stripped
}

// Sanitize reduces a name to lowercase alphanumerics and underscores so
// it is safe to use as a path component
func Sanitize(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteRune('_') // Everything else becomes an underscore
		}
	}
	return b.String()
}

// quizPath builds the file path for a quiz
func (s *Store) quizPath(subject, quizName string) string {
	return filepath.Join(s.root, Sanitize(subject), Sanitize(quizName)+".json")
}
