package contact

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"gatortrader_backend/internal/platform/database/dbtest"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newRouter(t *testing.T) (*gin.Engine, *ServiceImplementation) {
	gin.SetMode(gin.TestMode)
	db := dbtest.New(t, &Submission{})
	svc := NewService(NewGORMRepository(db), zap.NewNop())
	r := gin.New()
	NewHandler(svc).RegisterRoutes(r.Group("/api/v1"))
	return r, svc
}

func post(r http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/contact", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSubmit(t *testing.T) {
	r, _ := newRouter(t)

	w := post(r, `{"name":"Ana","email":"Ana@UFL.edu","message":"The search page is broken."}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"id"`)
}

func TestSubmit_Validation(t *testing.T) {
	r, _ := newRouter(t)

	cases := map[string]string{
		"missing email": `{"name":"Ana","message":"The search page is broken."}`,
		"bad email":     `{"name":"Ana","email":"nope","message":"The search page is broken."}`,
		"short message": `{"name":"Ana","email":"ana@ufl.edu","message":"hi"}`,
		"not json":      `name=Ana`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			w := post(r, body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestSubmit_BlankNameAfterTrim(t *testing.T) {
	r, _ := newRouter(t)
	w := post(r, `{"name":"   ","email":"ana@ufl.edu","message":"The search page is broken."}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
