package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pribylovaa/booking-platform/auth-core/internal/clock"
	"github.com/pribylovaa/booking-platform/auth-core/internal/config"
	"github.com/pribylovaa/booking-platform/auth-core/internal/ledger"
	"github.com/pribylovaa/booking-platform/auth-core/internal/lockout"
	"github.com/pribylovaa/booking-platform/auth-core/internal/models"
	"github.com/pribylovaa/booking-platform/auth-core/internal/service"
	"github.com/pribylovaa/booking-platform/auth-core/internal/token"
	"github.com/pribylovaa/booking-platform/auth-core/mocks"

	"github.com/gin-gonic/gin"
	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type testEnv struct {
	router *gin.Engine
	svc    *service.Service
	users  *mocks.MockUserStorage
	tokens *mocks.MockRefreshLedger
	guard  *mocks.MockGuard
	clk    *clock.Manual
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	gin.SetMode(gin.TestMode)

	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	cfg := config.AuthConfig{
		JWTSecret:       "unit-test-secret-unit-test-secret",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 720 * time.Hour,
		Issuer:          "auth-core",
		Audience:        []string{"booking-api"},
	}

	env := &testEnv{
		users:  mocks.NewMockUserStorage(ctrl),
		tokens: mocks.NewMockRefreshLedger(ctrl),
		guard:  mocks.NewMockGuard(ctrl),
		clk:    clock.NewManual(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)),
	}

	signer, err := token.New(cfg, env.clk)
	require.NoError(t, err)

	env.svc, err = service.New(env.users, env.tokens, env.guard, signer, cfg, env.clk, nil)
	require.NoError(t, err)

	env.router = gin.New()
	NewAuthHandler(env.svc).Register(env.router)

	return env
}

func (e *testEnv) post(t *testing.T, path, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	return w
}

func (e *testEnv) expectNotLocked(login string) {
	e.guard.EXPECT().
		CheckLocked(gomock.Any(), lockout.KindAddress, gomock.Any()).
		Return(false, time.Duration(0), nil)
	e.guard.EXPECT().
		CheckLocked(gomock.Any(), lockout.KindAccount, login).
		Return(false, time.Duration(0), nil)
}

func testUser(t *testing.T, login, password string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	return &models.User{
		ID:           uuid.New(),
		Login:        login,
		PasswordHash: string(hash),
		Active:       true,
	}
}

func TestLogin_OK(t *testing.T) {
	env := newTestEnv(t)

	user := testUser(t, "user@example.com", "correct-password")

	env.expectNotLocked("user@example.com")
	env.users.EXPECT().
		UserByLogin(gomock.Any(), "user@example.com").
		Return(user, nil)
	env.guard.EXPECT().
		RegisterSuccess(gomock.Any(), "user@example.com").
		Return(nil)
	env.tokens.EXPECT().
		Issue(gomock.Any(), user.ID, gomock.Any()).
		Return("refresh-raw", nil)

	w := env.post(t, "/v1/auth/login",
		`{"login":"user@example.com","password":"correct-password"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		UserID          string `json:"user_id"`
		AccessToken     string `json:"access_token"`
		RefreshToken    string `json:"refresh_token"`
		AccessExpiresAt int64  `json:"access_expires_at"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, user.ID.String(), resp.UserID)
	require.NotEmpty(t, resp.AccessToken)
	require.Equal(t, "refresh-raw", resp.RefreshToken)
	require.Equal(t, env.clk.Now().Add(15*time.Minute).Unix(), resp.AccessExpiresAt)
}

func TestLogin_BadRequest(t *testing.T) {
	env := newTestEnv(t)

	w := env.post(t, "/v1/auth/login", `{"login":"user@example.com"}`, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = env.post(t, "/v1/auth/login", `{broken`, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogin_WrongPassword_Uniform401(t *testing.T) {
	env := newTestEnv(t)

	user := testUser(t, "user@example.com", "correct-password")

	env.expectNotLocked("user@example.com")
	env.users.EXPECT().
		UserByLogin(gomock.Any(), "user@example.com").
		Return(user, nil)
	env.guard.EXPECT().
		RegisterFailure(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(false, nil).
		Times(2)

	w := env.post(t, "/v1/auth/login",
		`{"login":"user@example.com","password":"wrong"}`, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	// Тело не различает причины отказа.
	require.JSONEq(t, `{"error":"unauthorized"}`, w.Body.String())
}

func TestLogin_Locked_Returns429(t *testing.T) {
	env := newTestEnv(t)

	env.guard.EXPECT().
		CheckLocked(gomock.Any(), lockout.KindAddress, gomock.Any()).
		Return(true, 5*time.Minute, nil)

	w := env.post(t, "/v1/auth/login",
		`{"login":"user@example.com","password":"password"}`, nil)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	require.JSONEq(t, `{"error":"too many attempts"}`, w.Body.String())
}

func TestLogin_BackendFailure_Uniform500(t *testing.T) {
	env := newTestEnv(t)

	env.guard.EXPECT().
		CheckLocked(gomock.Any(), lockout.KindAddress, gomock.Any()).
		Return(false, time.Duration(0), errors.New("redis down"))

	w := env.post(t, "/v1/auth/login",
		`{"login":"user@example.com","password":"password"}`, nil)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.JSONEq(t, `{"error":"internal server error"}`, w.Body.String())
}

func TestRefresh_OK(t *testing.T) {
	env := newTestEnv(t)

	user := testUser(t, "user@example.com", "correct-password")

	env.tokens.EXPECT().
		Rotate(gomock.Any(), "old-refresh", gomock.Any()).
		Return("new-refresh", user.ID, nil)
	env.users.EXPECT().
		UserByID(gomock.Any(), user.ID).
		Return(user, nil)

	w := env.post(t, "/v1/auth/refresh", `{"refresh_token":"old-refresh"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		RefreshToken string `json:"refresh_token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "new-refresh", resp.RefreshToken)
}

func TestRefresh_Replay_Uniform401(t *testing.T) {
	env := newTestEnv(t)

	uid := uuid.New()
	env.tokens.EXPECT().
		Rotate(gomock.Any(), "replayed", gomock.Any()).
		Return("", uid, fmt.Errorf("wrapped: %w", ledger.ErrRevoked))
	env.tokens.EXPECT().
		RevokeAllForUser(gomock.Any(), uid, models.RevokeReasonReplay).
		Return(int64(1), nil)

	w := env.post(t, "/v1/auth/refresh", `{"refresh_token":"replayed"}`, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.JSONEq(t, `{"error":"unauthorized"}`, w.Body.String())
}

func TestLogout_OK(t *testing.T) {
	env := newTestEnv(t)

	env.tokens.EXPECT().
		Revoke(gomock.Any(), "refresh-raw", models.RevokeReasonLogout).
		Return(nil)

	w := env.post(t, "/v1/auth/logout", `{"refresh_token":"refresh-raw"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestLogout_MissingToken(t *testing.T) {
	env := newTestEnv(t)

	w := env.post(t, "/v1/auth/logout", `{}`, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogoutAll_OK(t *testing.T) {
	env := newTestEnv(t)

	uid := uuid.New()

	// Валидный access-токен получаем от того же сервисного слоя.
	access := issueAccess(t, env, uid, "user@example.com")

	env.tokens.EXPECT().
		RevokeAllForUser(gomock.Any(), uid, models.RevokeReasonLogout).
		Return(int64(2), nil)

	w := env.post(t, "/v1/auth/logout_all", `{}`,
		map[string]string{"Authorization": "Bearer " + access})
	require.Equal(t, http.StatusOK, w.Code)
}

func TestLogoutAll_MissingOrMalformedBearer(t *testing.T) {
	env := newTestEnv(t)

	w := env.post(t, "/v1/auth/logout_all", `{}`, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.post(t, "/v1/auth/logout_all", `{}`,
		map[string]string{"Authorization": "Token abc"})
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.post(t, "/v1/auth/logout_all", `{}`,
		map[string]string{"Authorization": "Bearer garbage"})
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestBearerToken(t *testing.T) {
	t.Parallel()

	tok, ok := bearerToken("Bearer abc.def.ghi")
	require.True(t, ok)
	require.Equal(t, "abc.def.ghi", tok)

	_, ok = bearerToken("")
	require.False(t, ok)

	_, ok = bearerToken("Bearer ")
	require.False(t, ok)

	_, ok = bearerToken("bearer abc")
	require.False(t, ok)
}

// issueAccess выпускает access-токен через полный путь Login, чтобы он
// гарантированно проходил ValidateToken того же сервиса.
func issueAccess(t *testing.T, env *testEnv, uid uuid.UUID, login string) string {
	t.Helper()

	user := testUser(t, login, "correct-password")
	user.ID = uid

	env.expectNotLocked(login)
	env.users.EXPECT().
		UserByLogin(gomock.Any(), login).
		Return(user, nil)
	env.guard.EXPECT().
		RegisterSuccess(gomock.Any(), login).
		Return(nil)
	env.tokens.EXPECT().
		Issue(gomock.Any(), uid, gomock.Any()).
		Return("refresh-raw", nil)

	pair, _, err := env.svc.Login(context.Background(), login, "correct-password", "")
	require.NoError(t, err)

	return pair.AccessToken
}
