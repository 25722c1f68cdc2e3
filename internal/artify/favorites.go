package artify

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/artify/internal/favorites"
)

// addFavoriteRequest はお気に入り追加リクエストのJSON構造。
type addFavoriteRequest struct {
	// ArtworkID はお気に入りに追加する作品のID。
	ArtworkID string `json:"artwork_id"`
	// LikesBy はお気に入りに追加する利用者のメールアドレス。
	LikesBy string `json:"likes_by"`
}

// handleAddFavorite はお気に入りを追加する。
// 既に追加済みの場合は200で {"success": false, "message": "Already in favorites"} を返す。
func (s *Server) handleAddFavorite() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req addFavoriteRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondFailure(c, http.StatusBadRequest, messageInvalidBody)
			return
		}

		fav, err := s.ledger.Add(c.Request.Context(), req.ArtworkID, req.LikesBy)
		switch {
		case errors.Is(err, favorites.ErrAlreadyExists):
			respondFailure(c, http.StatusOK, messageAlreadyFavorite)
		case errors.Is(err, favorites.ErrInvalidLink):
			respondFailure(c, http.StatusBadRequest, err.Error())
		case err != nil:
			s.respondInternalError(c, err)
		default:
			respondResult(c, http.StatusCreated, fav)
		}
	}
}

// handleCheckFavorite は作品が利用者のお気に入りかどうかを返す。
// artwork_idかemailが無い場合はエラーにせず {"success": false, "isFavorite": false} を返す。
func (s *Server) handleCheckFavorite() gin.HandlerFunc {
	return func(c *gin.Context) {
		artworkID, email := c.Query("artwork_id"), c.Query("email")
		if artworkID == "" || email == "" {
			c.JSON(http.StatusOK, gin.H{"success": false, "isFavorite": false})
			return
		}

		ok, err := s.ledger.Check(c.Request.Context(), artworkID, email)
		if err != nil {
			s.respondInternalError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "isFavorite": ok})
	}
}

// handleMyFavorites は利用者のお気に入り作品を新しく追加した順に返す。
func (s *Server) handleMyFavorites() gin.HandlerFunc {
	return func(c *gin.Context) {
		email := c.Query("email")
		if email == "" {
			respondFailure(c, http.StatusBadRequest, "email is required")
			return
		}

		artworks, err := s.ledger.ListForUser(c.Request.Context(), email)
		if err != nil {
			s.respondInternalError(c, err)
			return
		}
		respondResult(c, http.StatusOK, nonNil(artworks))
	}
}

// handleRemoveFavorite はお気に入りを削除する。
// 対象が無い場合は200で {"success": false, "message": "Not found"} を返す。
func (s *Server) handleRemoveFavorite() gin.HandlerFunc {
	return func(c *gin.Context) {
		err := s.ledger.Remove(c.Request.Context(), c.Query("artwork_id"), c.Query("email"))
		switch {
		case errors.Is(err, favorites.ErrNotFound):
			respondFailure(c, http.StatusOK, messageNotFound)
		case errors.Is(err, favorites.ErrInvalidLink):
			respondFailure(c, http.StatusBadRequest, err.Error())
		case err != nil:
			s.respondInternalError(c, err)
		default:
			c.JSON(http.StatusOK, gin.H{"success": true})
		}
	}
}
