package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/soramame/workgroup-api/internal/dto"
	"github.com/soramame/workgroup-api/internal/models"
	"github.com/soramame/workgroup-api/internal/repository"
	"github.com/soramame/workgroup-api/internal/services"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type authTestEnv struct {
	db      *gorm.DB
	handler *AuthHandler
}

func setupAuthTestEnv(t *testing.T) authTestEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&models.User{}))

	userRepo := repository.NewUserRepository(db)
	handler := NewAuthHandler(services.NewAuthService(userRepo))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB.Close()
	})

	gin.SetMode(gin.TestMode)

	return authTestEnv{db: db, handler: handler}
}

func authTestContext(method, url string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, url, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c, _ := gin.CreateTestContext(w)
	c.Request = req

	return c, w
}

func TestAuthHandler_Signup(t *testing.T) {
	env := setupAuthTestEnv(t)

	payload := map[string]string{"username": "soramame", "password": "longenough"}
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	c, w := authTestContext(http.MethodPost, "/api/auth/signup", body)

	env.handler.Signup(c)

	require.Equal(t, http.StatusCreated, w.Code)

	var response dto.UserDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Equal(t, "soramame", response.Username)

	// password never leaves the server
	require.NotContains(t, w.Body.String(), "longenough")
	require.NotContains(t, w.Body.String(), "password_hash")
}

func TestAuthHandler_Signup_PasswordTooShort(t *testing.T) {
	env := setupAuthTestEnv(t)

	payload := map[string]string{"username": "soramame", "password": "short"}
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	c, w := authTestContext(http.MethodPost, "/api/auth/signup", body)

	env.handler.Signup(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthHandler_Signup_UsernameTaken(t *testing.T) {
	env := setupAuthTestEnv(t)

	payload := map[string]string{"username": "soramame", "password": "longenough"}
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	c, _ := authTestContext(http.MethodPost, "/api/auth/signup", body)
	env.handler.Signup(c)

	c, w := authTestContext(http.MethodPost, "/api/auth/signup", body)
	env.handler.Signup(c)

	require.Equal(t, http.StatusConflict, w.Code)
}
