package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/learner420/quizify/internal/content"
	"github.com/learner420/quizify/internal/domain"
	"github.com/learner420/quizify/internal/middleware"
	"github.com/learner420/quizify/internal/quiz"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testSecret = "test-secret"

const fixtureQuiz = `[
	{"question": "First?", "options": ["A", "B"], "correct_answer": "A"},
	{"question": "Second?", "options": ["A", "B"], "correct_answer": "B"}
]`

func newTestRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.User{}, &domain.QuizAttempt{}, &domain.Transaction{}, &domain.TokenPackage{}))

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "math"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "math", "algebra.json"), []byte(fixtureQuiz), 0o644))

	store := content.NewStore(root)
	engine := quiz.NewEngine(db, store)
	authRequired := middleware.JWTAuthMiddleware(testSecret, nil)

	r := gin.New()
	auth := r.Group("/api/auth")
	auth.POST("/register", RegisterHandler(db))
	auth.POST("/login", LoginHandler(db, testSecret))
	auth.GET("/profile", authRequired, ProfileHandler(db))

	quizzes := r.Group("/api/quizzes")
	quizzes.GET("/", SubjectsHandler(store))
	quizzes.GET("/attempts", authRequired, AttemptsHandler(db, engine))
	quizzes.GET("/:subject", QuizzesHandler(store))
	quizzes.GET("/:subject/:quiz", authRequired, GetQuizHandler(db, engine))
	quizzes.POST("/:subject/:quiz/submit", authRequired, SubmitQuizHandler(db, engine))

	return r, db
}

func doJSON(t *testing.T, r *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

// registerAndLogin creates an account and returns its bearer token
func registerAndLogin(t *testing.T, r *gin.Engine, username, email string) string {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/api/auth/register", "", gin.H{
		"username": username,
		"email":    email,
		"password": "password123",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/auth/login", "", gin.H{
		"email":    email,
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, w.Code)
	return decode(t, w)["token"].(string)
}

func TestRegister_FirstUserBecomesAdmin(t *testing.T) {
	r, db := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/auth/register", "", gin.H{
		"username": "founder",
		"email":    "founder@example.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var user domain.User
	require.NoError(t, db.First(&user, "username = ?", "founder").Error)
	assert.Equal(t, "admin", user.Role)
	assert.Equal(t, 100, user.Tokens)

	// The second account is a regular user with no tokens
	w = doJSON(t, r, http.MethodPost, "/api/auth/register", "", gin.H{
		"username": "second",
		"email":    "second@example.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	// A fresh destination struct so the founder's primary key cannot
	// leak into the lookup conditions
	var second domain.User
	require.NoError(t, db.First(&second, "username = ?", "second").Error)
	assert.Equal(t, "user", second.Role)
	assert.Zero(t, second.Tokens)
}

func TestRegister_Validation(t *testing.T) {
	r, _ := newTestRouter(t)

	// Missing fields
	w := doJSON(t, r, http.MethodPost, "/api/auth/register", "", gin.H{"username": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Bad email format
	w = doJSON(t, r, http.MethodPost, "/api/auth/register", "", gin.H{
		"username": "bob", "email": "not-an-email", "password": "password123",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRegister_Duplicates(t *testing.T) {
	r, _ := newTestRouter(t)
	registerAndLogin(t, r, "alice", "alice@example.com")

	w := doJSON(t, r, http.MethodPost, "/api/auth/register", "", gin.H{
		"username": "alice", "email": "other@example.com", "password": "password123",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w)["error"], "Username already exists")

	w = doJSON(t, r, http.MethodPost, "/api/auth/register", "", gin.H{
		"username": "alice2", "email": "alice@example.com", "password": "password123",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w)["error"], "Email already exists")
}

func TestLogin_BadCredentials(t *testing.T) {
	r, _ := newTestRouter(t)
	registerAndLogin(t, r, "alice", "alice@example.com")

	w := doJSON(t, r, http.MethodPost, "/api/auth/login", "", gin.H{
		"email": "alice@example.com", "password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestProfile_RequiresAuth(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodGet, "/api/auth/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token := registerAndLogin(t, r, "alice", "alice@example.com")
	w = doJSON(t, r, http.MethodGet, "/api/auth/profile", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	user := decode(t, w)["user"].(map[string]any)
	assert.Equal(t, "alice", user["username"])
}

func TestGetQuiz_InsufficientTokens(t *testing.T) {
	r, db := newTestRouter(t)
	registerAndLogin(t, r, "admin", "admin@example.com") // Absorbs the bootstrap admin role
	token := registerAndLogin(t, r, "alice", "alice@example.com")

	w := doJSON(t, r, http.MethodGet, "/api/quizzes/math/algebra", token, nil)
	require.Equal(t, http.StatusForbidden, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["needs_tokens"])
	assert.Equal(t, float64(0), body["tokens"])

	// The failed start left no attempt behind
	var count int64
	require.NoError(t, db.Model(&domain.QuizAttempt{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestGetQuiz_NotFound(t *testing.T) {
	r, _ := newTestRouter(t)
	token := registerAndLogin(t, r, "admin", "admin@example.com")

	w := doJSON(t, r, http.MethodGet, "/api/quizzes/math/missing", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestQuizLifecycleOverHTTP(t *testing.T) {
	r, db := newTestRouter(t)
	registerAndLogin(t, r, "admin", "admin@example.com")
	token := registerAndLogin(t, r, "alice", "alice@example.com")
	// Fund the account directly
	require.NoError(t, db.Model(&domain.User{}).Where("username = ?", "alice").Update("tokens", 2).Error)

	// Starting charges one token and strips the answer keys
	w := doJSON(t, r, http.MethodGet, "/api/quizzes/math/algebra", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["token_deducted"])
	assert.Equal(t, true, body["is_new_attempt"])
	assert.Equal(t, float64(1), body["user_tokens"])
	questions := body["questions"].([]any)
	require.Len(t, questions, 2)
	first := questions[0].(map[string]any)
	assert.NotContains(t, first, "correct_answer")
	assert.Contains(t, first, "correct_answer_index")

	// A refresh resumes the same attempt without charging again
	w = doJSON(t, r, http.MethodGet, "/api/quizzes/math/algebra", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	assert.Equal(t, false, body["token_deducted"])
	assert.Equal(t, float64(1), body["user_tokens"])
	attemptID := body["attempt_id"].(float64)

	// Submission scores against the stored definition
	w = doJSON(t, r, http.MethodPost, "/api/quizzes/math/algebra/submit", token, gin.H{
		"answers":    []string{"A", "A"},
		"attempt_id": uint(attemptID),
	})
	require.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	assert.Equal(t, float64(1), body["score"])
	assert.Equal(t, float64(2), body["total_questions"])
	assert.InDelta(t, 50.0, body["percentage"].(float64), 0.001)
	results := body["results"].([]any)
	require.Len(t, results, 2)

	// The attempt history reflects the stored score
	w = doJSON(t, r, http.MethodGet, "/api/quizzes/attempts", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	attempts := decode(t, w)["attempts"].([]any)
	require.Len(t, attempts, 1)
	attempt := attempts[0].(map[string]any)
	assert.Equal(t, float64(1), attempt["score"])
	assert.InDelta(t, 50.0, attempt["percentage"].(float64), 0.001)
}

func TestSubmit_MissingAnswers(t *testing.T) {
	r, _ := newTestRouter(t)
	token := registerAndLogin(t, r, "admin", "admin@example.com")

	w := doJSON(t, r, http.MethodPost, "/api/quizzes/math/algebra/submit", token, gin.H{})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w)["error"], "Missing answers")
}

func TestSubjectListing(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodGet, "/api/quizzes/", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	subjects := decode(t, w)["subjects"].([]any)
	assert.Equal(t, []any{"math"}, subjects)

	w = doJSON(t, r, http.MethodGet, "/api/quizzes/math", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	quizzes := decode(t, w)["quizzes"].([]any)
	assert.Equal(t, []any{"algebra"}, quizzes)

	w = doJSON(t, r, http.MethodGet, "/api/quizzes/unknown", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
