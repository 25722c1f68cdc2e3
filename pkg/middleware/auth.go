package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/artify/pkg/identity"
	"go.uber.org/zap"
)

// MessageUnauthorized は認証に失敗した場合のメッセージ。失敗の理由は含めない。
const MessageUnauthorized = "Unauthorized"

// contextKeySubject は検証済みの利用者をGinコンテキストに格納するキー。
const contextKeySubject = "artify.subject"

// AuthGate はAuthorizationヘッダーのベアラートークンを検証するGinミドルウェアを返す。
//
// ヘッダーが無い場合はverifierを呼ばずに401を返す。
// トークンはヘッダー値の最初の空白より後ろの部分で、検証結果はキャッシュしない。
// 検証に失敗した場合は理由によらず同じ401を返す。
// 成功した場合は利用者をコンテキストに設定する（SubjectFromで取得できる）。
func AuthGate(verifier identity.Verifier, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			abortWithMessage(c, http.StatusUnauthorized, MessageUnauthorized)
			return
		}

		_, token, _ := strings.Cut(header, " ")
		if token == "" {
			abortWithMessage(c, http.StatusUnauthorized, MessageUnauthorized)
			return
		}

		subject, err := verifier.Verify(c.Request.Context(), token)
		if err != nil {
			logger.Debug("token verification failed",
				zap.String("path", c.FullPath()),
				zap.String("request_id", RequestIDFrom(c)),
				zap.Error(err),
			)
			abortWithMessage(c, http.StatusUnauthorized, MessageUnauthorized)
			return
		}

		c.Set(contextKeySubject, subject)
		c.Next()
	}
}

// SubjectFrom はAuthGateが設定した利用者を返す。
// AuthGateを通っていないルートではfalseを返す。
func SubjectFrom(c *gin.Context) (*identity.Subject, bool) {
	v, ok := c.Get(contextKeySubject)
	if !ok {
		return nil, false
	}
	subject, ok := v.(*identity.Subject)
	return subject, ok
}

// abortWithMessage は {"success": false, "message": msg} を返して処理を中断する。
func abortWithMessage(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"message": msg,
	})
}
