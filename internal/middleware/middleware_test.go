package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"gatortrader_backend/internal/common"
	"gatortrader_backend/internal/shared"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type tokenTable map[string]string // token -> uid

func (t tokenTable) VerifyToken(_ context.Context, token string) (*shared.Identity, error) {
	if uid, ok := t[token]; ok {
		return &shared.Identity{UID: uid}, nil
	}
	return nil, errors.New("bad token")
}

type usersByUID map[string]*shared.User

func (u usersByUID) GetUserByID(context.Context, uuid.UUID) (*shared.User, error) {
	return nil, common.ErrNotFound
}

func (u usersByUID) GetUserByUsername(context.Context, string) (*shared.User, error) {
	return nil, common.ErrNotFound
}

func (u usersByUID) GetUserByFirebaseUID(_ context.Context, uid string) (*shared.User, error) {
	if usr, ok := u[uid]; ok {
		return usr, nil
	}
	return nil, common.ErrNotFound
}

func init() {
	gin.SetMode(gin.TestMode)
}

func newAuthRouter(mw gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.GET("/whoami", mw, func(c *gin.Context) {
		if s := common.GetSessionFromContext(c); s != nil {
			c.String(http.StatusOK, s.Username)
			return
		}
		c.String(http.StatusOK, "anonymous")
	})
	return r
}

func get(r http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	verifier := tokenTable{"good": "uid-1", "orphan": "uid-2"}
	users := usersByUID{"uid-1": {ID: uuid.New(), Username: "bob99"}}
	r := newAuthRouter(AuthMiddleware(verifier, users, zap.NewNop()))

	w := get(r, "good")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "bob99", w.Body.String())

	for _, token := range []string{"", "forged", "orphan"} {
		w := get(r, token)
		assert.Equal(t, http.StatusUnauthorized, w.Code, "token %q", token)
		assert.Contains(t, w.Body.String(), "AUTHENTICATION_REQUIRED")
	}
}

func TestOptionalAuthMiddleware(t *testing.T) {
	verifier := tokenTable{"good": "uid-1"}
	users := usersByUID{"uid-1": {ID: uuid.New(), Username: "bob99"}}
	r := newAuthRouter(OptionalAuthMiddleware(verifier, users, zap.NewNop()))

	assert.Equal(t, "bob99", get(r, "good").Body.String())
	assert.Equal(t, "anonymous", get(r, "forged").Body.String())
	assert.Equal(t, "anonymous", get(r, "").Body.String())
}

func TestRateLimit(t *testing.T) {
	r := gin.New()
	r.GET("/whoami", RateLimit(2), func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, get(r, "").Code)
	assert.Equal(t, http.StatusOK, get(r, "").Code)

	w := get(r, "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestErrorHandler(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler(zap.NewNop()))
	r.GET("/boom", func(c *gin.Context) { _ = c.Error(common.ErrConflict) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "CONFLICT")
}

func TestZapLoggerEchoesRequestID(t *testing.T) {
	r := gin.New()
	r.Use(ZapLogger(zap.NewNop(), gin.TestMode))
	r.GET("/whoami", func(c *gin.Context) {
		_, ok := c.Get(common.LoggerKey)
		assert.True(t, ok)
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "req-42", w.Header().Get(RequestIDHeader))
}
