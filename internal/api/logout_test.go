package api

import (
	"net/http"
	"testing"

	"github.com/learner420/quizify/internal/domain"
	"github.com/learner420/quizify/internal/middleware"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newAuthRouter builds the auth routes against an in-process Redis so
// the logout denylist path runs for real
func newAuthRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.User{}))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	authRequired := middleware.JWTAuthMiddleware(testSecret, rdb)

	r := gin.New()
	auth := r.Group("/api/auth")
	auth.POST("/register", RegisterHandler(db))
	auth.POST("/login", LoginHandler(db, testSecret))
	auth.POST("/logout", authRequired, LogoutHandler(rdb))
	auth.GET("/profile", authRequired, ProfileHandler(db))
	return r
}

func TestLogout_DenylistsToken(t *testing.T) {
	r := newAuthRouter(t)
	token := registerAndLogin(t, r, "alice", "alice@example.com")

	// The token works before logout
	w := doJSON(t, r, http.MethodGet, "/api/auth/profile", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, decode(t, w)["message"], "Logout successful")

	// A logged-out token is rejected even though it has not expired
	w = doJSON(t, r, http.MethodGet, "/api/auth/profile", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// So is a repeated logout with the same dead token
	w = doJSON(t, r, http.MethodPost, "/api/auth/logout", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogout_OtherSessionsUnaffected(t *testing.T) {
	r := newAuthRouter(t)
	aliceToken := registerAndLogin(t, r, "alice", "alice@example.com")
	bobToken := registerAndLogin(t, r, "bob", "bob@example.com")

	// Logging out one session must not invalidate another user's token
	w := doJSON(t, r, http.MethodPost, "/api/auth/logout", aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/auth/profile", bobToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
