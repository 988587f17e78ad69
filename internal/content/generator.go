package content

import (
	"bytes"         // Request body buffers
	"encoding/json" // Chat API wire format
	"fmt"           // Prompt assembly
	"net/http"      // Generation API client
	"strings"       // Response cleanup
	"time"          // Request timeout and retry backoff

	"github.com/sirupsen/logrus" // Logging library
)

// Generator produces quiz questions for a topic. It is injected so the
// handlers never depend on the generation API's liveness directly.
type Generator interface {
	Generate(subject, topic string, numQuestions int, difficulty string) ([]Question, error)
}

// OpenRouterGenerator generates quizzes through the OpenRouter chat API
type OpenRouterGenerator struct {
	apiKey  string       // API key
	baseURL string       // API base URL
	model   string       // Model identifier
	client  *http.Client // HTTP client with an explicit timeout
	retries int          // Retry count for transient failures
}

// NewOpenRouterGenerator creates a generator client
func NewOpenRouterGenerator(apiKey string) *OpenRouterGenerator {
	return &OpenRouterGenerator{
		apiKey:  apiKey,                                  // API key
		baseURL: "https://openrouter.ai/api/v1",          // OpenRouter endpoint
		model:   "deepseek/deepseek-r1:free",             // Generation model
		client:  &http.Client{Timeout: 60 * time.Second}, // Bounded network calls
		retries: 1,                                       // One retry on transient failure
	}
}

// chatResponse is the subset of the chat completion reply we read
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"` // Generated text
		} `json:"message"`
	} `json:"choices"`
}

// Generate asks the model for a quiz and parses the JSON it returns
func (g *OpenRouterGenerator) Generate(subject, topic string, numQuestions int, difficulty string) ([]Question, error) {
	prompt := fmt.Sprintf(`Create a quiz on the topic of %q in the subject area of %q with %d multiple-choice questions.
The difficulty level should be %s.

Each question should have a clear question, four possible options, one correct answer, and a brief explanation of why the answer is correct.

Format the response as a JSON array where each question is an object with the fields "id", "question", "options", "correct_answer" and "explanation".

Only return the JSON array, nothing else.`, topic, subject, numQuestions, difficulty)

	payload, err := json.Marshal(map[string]any{
		"model": g.model, // Generation model
		"messages": []map[string]string{
			{"role": "system", "content": "You are a helpful assistant that generates quiz questions in JSON format."},
			{"role": "user", "content": prompt},
		},
		"temperature": 0.7,  // Some variety between quizzes
		"max_tokens":  2048, // Enough for a full quiz
	})
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt <= g.retries; attempt++ {
		if attempt > 0 {
			time.Sleep(time.Second) // Brief backoff before retrying
			logrus.WithFields(logrus.Fields{
				"subject": subject, // Quiz subject
				"topic":   topic,   // Quiz topic
				"attempt": attempt, // Retry counter
			}).Warn("Retrying quiz generation")
		}
		questions, err := g.request(payload)
		if err == nil {
			return questions, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// request performs one generation call
func (g *OpenRouterGenerator) request(payload []byte) ([]Question, error) {
	req, err := http.NewRequest(http.MethodPost, g.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("generation request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("generation request: unexpected status %d", resp.StatusCode)
	}
	var reply chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return nil, fmt.Errorf("generation response: %w", err)
	}
	if len(reply.Choices) == 0 {
		return nil, fmt.Errorf("generation response: no choices returned")
	}
	// Strip markdown fences the model sometimes wraps around the JSON
	text := strings.TrimSpace(reply.Choices[0].Message.Content)
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")
	var questions []Question
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &questions); err != nil {
		return nil, fmt.Errorf("generation response: %w", err)
	}
	return questions, nil
}
