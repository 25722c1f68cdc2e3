package artify

import (
	"errors"
	"fmt"
	"html"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/artify/internal/store"
	"github.com/nao1215/artify/pkg/middleware"
)

const (
	// maxPageSize は1回の一覧取得で返す最大件数。
	maxPageSize = 100
	// latestCount はGET /latest-artworksが返す件数。
	latestCount = 6
)

// handleRoot は疎通確認用の固定文言を返す。
func (s *Server) handleRoot() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.String(http.StatusOK, "Welcome to Artify Server")
	}
}

// handleHealth はヘルスチェックに応答する。
func (s *Server) handleHealth() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "artify"})
	}
}

// handleListArtworks は作品を検索する。
// クエリ: search, category, limit, page（0始まり）, sort（created_at|likes）, order（asc|desc）。
func (s *Server) handleListArtworks() gin.HandlerFunc {
	return func(c *gin.Context) {
		opts, err := parseSearchOptions(c)
		if err != nil {
			respondFailure(c, http.StatusBadRequest, err.Error())
			return
		}

		filter := store.ArtworkFilter{
			Search:   c.Query("search"),
			Category: c.Query("category"),
		}
		artworks, err := s.artworks.SearchArtworks(c.Request.Context(), filter, opts)
		if err != nil {
			s.respondInternalError(c, err)
			return
		}
		respondResult(c, http.StatusOK, nonNil(artworks))
	}
}

// handleLatestArtworks は新しい順に6件の作品を返す。
func (s *Server) handleLatestArtworks() gin.HandlerFunc {
	return func(c *gin.Context) {
		opts := store.DefaultSearchOptions()
		opts.Limit = latestCount

		artworks, err := s.artworks.SearchArtworks(c.Request.Context(), store.ArtworkFilter{}, opts)
		if err != nil {
			s.respondInternalError(c, err)
			return
		}
		respondResult(c, http.StatusOK, nonNil(artworks))
	}
}

// handleGetArtwork はIDで作品を1件返す。無ければ404。
func (s *Server) handleGetArtwork() gin.HandlerFunc {
	return func(c *gin.Context) {
		artwork, err := s.artworks.Artwork(c.Request.Context(), c.Param("id"))
		if errors.Is(err, store.ErrNotFound) {
			respondFailure(c, http.StatusNotFound, messageNotFound)
			return
		}
		if err != nil {
			s.respondInternalError(c, err)
			return
		}
		respondResult(c, http.StatusOK, artwork)
	}
}

// handleMyArtworks はクエリemailのアーティストの作品を返す。
func (s *Server) handleMyArtworks() gin.HandlerFunc {
	return func(c *gin.Context) {
		email := c.Query("email")
		if email == "" {
			respondFailure(c, http.StatusBadRequest, "email is required")
			return
		}

		artworks, err := s.artworks.SearchArtworks(c.Request.Context(),
			store.ArtworkFilter{ArtistEmail: email}, store.DefaultSearchOptions())
		if err != nil {
			s.respondInternalError(c, err)
			return
		}
		respondResult(c, http.StatusOK, nonNil(artworks))
	}
}

// handleCreateArtwork は作品を登録する。
// いいね数は0から始まり、artist_emailが無ければ認証済みの利用者のメールアドレスを使う。
func (s *Server) handleCreateArtwork() gin.HandlerFunc {
	return func(c *gin.Context) {
		fields, ok := s.bindFields(c)
		if !ok {
			return
		}

		artwork := &store.Artwork{}
		if err := artwork.Apply(fields); err != nil {
			s.respondStoreError(c, err)
			return
		}
		artwork.Likes = 0
		if artwork.ArtistEmail == "" {
			if subject, ok := middleware.SubjectFrom(c); ok {
				artwork.ArtistEmail = subject.Email
			}
		}

		created, err := s.artworks.CreateArtwork(c.Request.Context(), artwork)
		if err != nil {
			s.respondStoreError(c, err)
			return
		}
		respondResult(c, http.StatusCreated, created)
	}
}

// handleUpdateArtwork はリクエストに含まれるフィールドだけを上書きする。
// _id, created_at, updated_at は変更できない。所有者の確認は行わない。
func (s *Server) handleUpdateArtwork() gin.HandlerFunc {
	return func(c *gin.Context) {
		fields, ok := s.bindFields(c)
		if !ok {
			return
		}

		updated, err := s.artworks.UpdateArtwork(c.Request.Context(), c.Param("id"), fields)
		if err != nil {
			s.respondStoreError(c, err)
			return
		}
		respondResult(c, http.StatusOK, updated)
	}
}

// handleLikeArtwork は作品のいいね数を1増やす。
func (s *Server) handleLikeArtwork() gin.HandlerFunc {
	return func(c *gin.Context) {
		liked, err := s.artworks.LikeArtwork(c.Request.Context(), c.Param("id"))
		if err != nil {
			s.respondStoreError(c, err)
			return
		}
		respondResult(c, http.StatusOK, liked)
	}
}

// handleDeleteArtwork は作品を削除する。所有者の確認は行わない。
func (s *Server) handleDeleteArtwork() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.artworks.DeleteArtwork(c.Request.Context(), c.Param("id")); err != nil {
			s.respondStoreError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

// sanitizedFields は表示用のテキストとしてHTMLタグを取り除くフィールド。
// それ以外のフィールドは受け取った値のまま保存する。
var sanitizedFields = []string{store.FieldTitle, store.FieldCategory}

// bindFields はリクエストボディをJSONオブジェクトとして読み、titleとcategoryからHTMLタグを取り除く。
// 失敗した場合は400を返してfalseを返す。
func (s *Server) bindFields(c *gin.Context) (map[string]any, bool) {
	var fields map[string]any
	if err := c.ShouldBindJSON(&fields); err != nil || fields == nil {
		respondFailure(c, http.StatusBadRequest, messageInvalidBody)
		return nil, false
	}

	for _, k := range sanitizedFields {
		if str, ok := fields[k].(string); ok {
			fields[k] = s.stripTags(str)
		}
	}
	return fields, true
}

// stripTags はHTMLタグを取り除く。bluemondayが実体参照にした文字（&や引用符）は元に戻す。
func (s *Server) stripTags(str string) string {
	return html.UnescapeString(s.sanitizer.Sanitize(str))
}

// respondStoreError はストアのエラーをレスポンスに変換する。
// 見つからない場合は成功と同じ200で {"success": false} を返す。
func (s *Server) respondStoreError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		respondFailure(c, http.StatusOK, messageNotFound)
	case errors.Is(err, store.ErrInvalidField):
		respondFailure(c, http.StatusBadRequest, err.Error())
	default:
		s.respondInternalError(c, err)
	}
}

// parseSearchOptions はクエリから検索オプションを組み立てる。
func parseSearchOptions(c *gin.Context) (store.ArtworkSearchOptions, error) {
	opts := store.DefaultSearchOptions()

	if v := c.Query("limit"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			return opts, fmt.Errorf("limit must be a positive integer: %q", v)
		}
		opts.Limit = min(n, maxPageSize)
	}

	if v := c.Query("page"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			return opts, fmt.Errorf("page must be a non-negative integer: %q", v)
		}
		opts.Page = n
	}

	switch v := c.Query("sort"); v {
	case "", store.FieldCreatedAt:
		opts.Sort = store.ByTime
	case store.FieldLikes:
		opts.Sort = store.ByLikes
	default:
		return opts, fmt.Errorf("sort must be %q or %q: %q", store.FieldCreatedAt, store.FieldLikes, v)
	}

	switch v := c.Query("order"); v {
	case "", "desc":
		opts.Order = store.Descending
	case "asc":
		opts.Order = store.Ascending
	default:
		return opts, fmt.Errorf("order must be \"asc\" or \"desc\": %q", v)
	}

	return opts, nil
}

// nonNil は空の結果をnullではなく[]としてエンコードさせる。
func nonNil(artworks []*store.Artwork) []*store.Artwork {
	if artworks == nil {
		return []*store.Artwork{}
	}
	return artworks
}
