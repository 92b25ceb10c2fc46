package chatbot

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockCompleter struct {
	mock.Mock
}

func (m *MockCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

func serve(t *testing.T, c Completer, body string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(c, zap.NewNop()).RegisterRoutes(r.Group("/api/v1"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chatbot", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestChat_EmptyPrompt(t *testing.T) {
	m := new(MockCompleter)
	for _, body := range []string{`{}`, `{"prompt":"  "}`, ``} {
		w := serve(t, m, body)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "No prompt provided")
	}
	m.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestChat_UpstreamFailure(t *testing.T) {
	m := new(MockCompleter)
	m.On("Complete", mock.Anything, "how do I sell?").Return("", errors.New("timeout"))

	w := serve(t, m, `{"prompt":"how do I sell?"}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "OpenAI call failed")
}

func TestChat_Reply(t *testing.T) {
	m := new(MockCompleter)
	m.On("Complete", mock.Anything, "how do I sell?").Return("Open the listing and press Mark as sold.", nil)

	w := serve(t, m, `{"prompt":"how do I sell?"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data ChatResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Open the listing and press Mark as sold.", body.Data.Response)
}

func TestChat_MalformedJSONIsBadRequest(t *testing.T) {
	m := new(MockCompleter)

	w := serve(t, m, `{"prompt": "hi"`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NotContains(t, w.Body.String(), "No prompt provided")
	m.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestChat_UnknownModeIsValidationError(t *testing.T) {
	m := new(MockCompleter)

	w := serve(t, m, `{"prompt":"desk","mode":"poem"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "VALIDATION_ERROR")
	m.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestChat_PriceModeWrapsItemName(t *testing.T) {
	m := new(MockCompleter)
	want := "What is the average price for a used desk lamp? Please provide a range and keep the response to be under 50 words."
	m.On("Complete", mock.Anything, want).Return("Usually $10 to $25.", nil).Once()

	w := serve(t, m, `{"prompt":"  used desk lamp ","mode":"price"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Usually $10 to $25.")
	m.AssertExpectations(t)
}

func TestOpenAICompleter_TrimsFirstChoice(t *testing.T) {
	var got struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"  hello there \n"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	c := NewOpenAICompleterWithBaseURL("sk-test", srv.URL, "gpt-3.5-turbo", zap.NewNop())
	reply, err := c.Complete(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "hello there", reply)
	assert.Equal(t, "gpt-3.5-turbo", got.Model)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
	assert.Equal(t, "hi", got.Messages[0].Content)
}

func TestOpenAICompleter_Unconfigured(t *testing.T) {
	c := &OpenAICompleter{}
	_, err := c.Complete(context.Background(), "hi")
	assert.ErrorIs(t, err, ErrNotConfigured)
}
