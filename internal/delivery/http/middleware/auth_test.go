package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = strings.Repeat("k", 32)

func newEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", NewAuthMiddleware(secret).RequireAuth(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user_id":    c.GetString(ContextUserID),
			"privileged": c.GetBool(ContextPrivileged),
		})
	})
	return r
}

func do(r *gin.Engine, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireAuth(t *testing.T) {
	r := newEngine()

	admin, err := IssueToken(secret, "u-1", RoleAdmin, time.Hour)
	require.NoError(t, err)
	w := do(r, "Bearer "+admin)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":"u-1","privileged":true}`, w.Body.String())

	member, err := IssueToken(secret, "u-2", "member", time.Hour)
	require.NoError(t, err)
	w = do(r, "Bearer "+member)
	assert.JSONEq(t, `{"user_id":"u-2","privileged":false}`, w.Body.String())
}

func TestRequireAuth_Rejects(t *testing.T) {
	r := newEngine()
	expired, err := IssueToken(secret, "u-1", "", -time.Minute)
	require.NoError(t, err)
	foreign, err := IssueToken(strings.Repeat("x", 32), "u-1", "", time.Hour)
	require.NoError(t, err)
	noUser, err := IssueToken(secret, "", "", time.Hour)
	require.NoError(t, err)

	for name, header := range map[string]string{
		"missing":      "",
		"not bearer":   "Basic abc",
		"expired":      "Bearer " + expired,
		"wrong secret": "Bearer " + foreign,
		"no user":      "Bearer " + noUser,
	} {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, http.StatusUnauthorized, do(r, header).Code)
		})
	}
}
