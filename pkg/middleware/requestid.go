package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// HeaderRequestID はリクエストIDを受け渡すHTTPヘッダー。
const HeaderRequestID = "X-Request-ID"

// maxRequestIDLength はクライアントから受け付けるリクエストIDの最大長。
const maxRequestIDLength = 128

const contextKeyRequestID = "artify.request_id"

// RequestID はリクエストごとにIDを割り当てるGinミドルウェアを返す。
// クライアントがX-Request-IDを送ってきた場合はそれを引き継ぎ、レスポンスヘッダーにも設定する。
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" || len(id) > maxRequestIDLength {
			id = uuid.New().String()
		}

		c.Set(contextKeyRequestID, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

// RequestIDFrom はRequestIDミドルウェアが割り当てたIDを返す。無ければ空文字列。
func RequestIDFrom(c *gin.Context) string {
	return c.GetString(contextKeyRequestID)
}
