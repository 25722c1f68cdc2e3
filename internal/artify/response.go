package artify

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/artify/pkg/middleware"
	"go.uber.org/zap"
)

// レスポンスのメッセージ。クライアントとの互換性のため文言を変えないこと。
const (
	messageNotFound        = "Not found"
	messageAlreadyFavorite = "Already in favorites"
	messageInvalidBody     = "Invalid request body"
)

// respondResult は {"success": true, "result": result} を返す。
func respondResult(c *gin.Context, status int, result any) {
	c.JSON(status, gin.H{
		"success": true,
		"result":  result,
	})
}

// respondFailure は {"success": false, "message": message} を返す。
// 「見つからない」「既にある」はエラーではないため200で返すことがある。
func respondFailure(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"message": message,
	})
}

// respondInternalError はerrをログに残し、理由を伏せて500を返す。
func (s *Server) respondInternalError(c *gin.Context, err error) {
	_ = c.Error(err)
	s.logger.Error("request failed",
		zap.String("method", c.Request.Method),
		zap.String("route", c.FullPath()),
		zap.String("request_id", middleware.RequestIDFrom(c)),
		zap.Error(err),
	)
	respondFailure(c, http.StatusInternalServerError, middleware.MessageInternalError)
}
