package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRequestID はRequestIDミドルウェアを検証する。
func TestRequestID(t *testing.T) {
	t.Parallel()

	newRouter := func() *gin.Engine {
		router := gin.New()
		router.Use(RequestID())
		router.GET("/health", func(c *gin.Context) {
			c.String(http.StatusOK, RequestIDFrom(c))
		})
		return router
	}

	t.Run("ヘッダーが無い場合はUUIDが割り当てられること", func(t *testing.T) {
		t.Parallel()

		w := httptest.NewRecorder()
		newRouter().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		id := w.Header().Get(HeaderRequestID)
		_, err := uuid.Parse(id)
		require.NoError(t, err)
		assert.Equal(t, id, w.Body.String())
	})

	t.Run("クライアントのリクエストIDが引き継がれること", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set(HeaderRequestID, "req-from-client")
		w := httptest.NewRecorder()
		newRouter().ServeHTTP(w, req)

		assert.Equal(t, "req-from-client", w.Header().Get(HeaderRequestID))
		assert.Equal(t, "req-from-client", w.Body.String())
	})

	t.Run("長すぎるリクエストIDは置き換えられること", func(t *testing.T) {
		t.Parallel()

		long := strings.Repeat("x", maxRequestIDLength+1)
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set(HeaderRequestID, long)
		w := httptest.NewRecorder()
		newRouter().ServeHTTP(w, req)

		assert.NotEqual(t, long, w.Header().Get(HeaderRequestID))
		assert.NotEmpty(t, w.Header().Get(HeaderRequestID))
	})
}
