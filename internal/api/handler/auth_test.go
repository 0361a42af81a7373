package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/zr8c/index_go_server/config"
	"github.com/zr8c/index_go_server/internal/model/dto"
	"github.com/zr8c/index_go_server/internal/pkg/response"
	"github.com/zr8c/index_go_server/internal/repository"
	"github.com/zr8c/index_go_server/internal/service"
	"github.com/zr8c/index_go_server/internal/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	gatewayHash, err := bcrypt.GenerateFromPassword([]byte("gateway-secret"), bcrypt.MinCost)
	require.NoError(t, err)
	adminHash, err := bcrypt.GenerateFromPassword([]byte("admin-pass"), bcrypt.MinCost)
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.JWT.Secret = "test-secret-key"
	cfg.JWT.ExpireHours = 24
	cfg.Gateway.SecretHash = string(gatewayHash)
	cfg.Admin.Username = "admin"
	cfg.Admin.PasswordHash = string(adminHash)
	cfg.Credit.FreeCredits = 10
	cfg.RateLimit.FilesPerHour = 100
	cfg.RateLimit.URLsPerDay = 1000
	cfg.RateLimit.APICallsPerMinute = 100
	cfg.RateLimit.CommandsPerMinute = 100
	cfg.Verification.CacheTTLHours = 24
	return cfg
}

func setupAuthHandler(t *testing.T) *AuthHandler {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.CleanupTestDB(t, db) })

	cfg := testConfig(t)
	ledger := service.NewLedgerService(
		repository.NewAccountRepository(db),
		repository.NewTransactionRepository(db),
		cfg,
	)
	return NewAuthHandler(service.NewAuthService(ledger, cfg))
}

func performRequest(r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBytes)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder) response.Response {
	var resp response.Response
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	return resp
}

func TestAuthHandler_GatewayToken_Success(t *testing.T) {
	handler := setupAuthHandler(t)

	router := gin.New()
	router.POST("/gateway-token", handler.GatewayToken)

	req := dto.GatewayTokenRequest{
		Secret:   "gateway-secret",
		UserID:   42,
		Username: "alice",
	}

	w := performRequest(router, "POST", "/gateway-token", req)
	resp := parseResponse(t, w)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, response.CodeSuccess, resp.Code)

	data := resp.Data.(map[string]interface{})
	assert.NotEmpty(t, data["token"])
	assert.True(t, data["new_account"].(bool))
	assert.Equal(t, float64(10), data["credits"])
}

func TestAuthHandler_GatewayToken_WrongSecret(t *testing.T) {
	handler := setupAuthHandler(t)

	router := gin.New()
	router.POST("/gateway-token", handler.GatewayToken)

	w := performRequest(router, "POST", "/gateway-token", dto.GatewayTokenRequest{
		Secret: "wrong",
		UserID: 42,
	})
	resp := parseResponse(t, w)

	assert.Equal(t, response.CodeAuthFailed, resp.Code)
}

func TestAuthHandler_GatewayToken_MissingFields(t *testing.T) {
	handler := setupAuthHandler(t)

	router := gin.New()
	router.POST("/gateway-token", handler.GatewayToken)

	w := performRequest(router, "POST", "/gateway-token", map[string]string{"secret": "x"})
	resp := parseResponse(t, w)

	assert.Equal(t, response.CodeParamError, resp.Code)
}

func TestAuthHandler_AdminLogin_Success(t *testing.T) {
	handler := setupAuthHandler(t)

	router := gin.New()
	router.POST("/admin/login", handler.AdminLogin)

	w := performRequest(router, "POST", "/admin/login", dto.AdminLoginRequest{
		Username: "admin",
		Password: "admin-pass",
	})
	resp := parseResponse(t, w)

	assert.Equal(t, response.CodeSuccess, resp.Code)
	data := resp.Data.(map[string]interface{})
	assert.NotEmpty(t, data["token"])
}

func TestAuthHandler_AdminLogin_BadPassword(t *testing.T) {
	handler := setupAuthHandler(t)

	router := gin.New()
	router.POST("/admin/login", handler.AdminLogin)

	w := performRequest(router, "POST", "/admin/login", dto.AdminLoginRequest{
		Username: "admin",
		Password: "wrong",
	})
	resp := parseResponse(t, w)

	assert.Equal(t, response.CodeAuthFailed, resp.Code)
}
