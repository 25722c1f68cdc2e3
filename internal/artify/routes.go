package artify

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/artify/pkg/middleware"
)

// route はルート表の1行。gatedがtrueのルートはAuthGateを通す。
type route struct {
	method  string
	path    string
	gated   bool
	handler func(s *Server) gin.HandlerFunc
}

// key は "GET /artworks" 形式の識別子を返す。PUBLIC_ROUTESの書式と同じ。
func (r route) key() string {
	return r.method + " " + r.path
}

// routeTable はサーバーが公開する全ルート。
// 変更系のルートと利用者ごとのデータを返すルートは既定で認証が必要。
func routeTable() []route {
	return []route{
		{method: "GET", path: "/", handler: (*Server).handleRoot},
		{method: "GET", path: "/health", handler: (*Server).handleHealth},

		// 作品
		{method: "GET", path: "/artworks", handler: (*Server).handleListArtworks},
		{method: "GET", path: "/latest-artworks", handler: (*Server).handleLatestArtworks},
		{method: "GET", path: "/artworks/:id", handler: (*Server).handleGetArtwork},
		{method: "GET", path: "/my-artworks", gated: true, handler: (*Server).handleMyArtworks},
		{method: "POST", path: "/artworks", gated: true, handler: (*Server).handleCreateArtwork},
		{method: "PUT", path: "/artworks/:id", gated: true, handler: (*Server).handleUpdateArtwork},
		{method: "PATCH", path: "/artworks/:id/like", gated: true, handler: (*Server).handleLikeArtwork},
		{method: "DELETE", path: "/artworks/:id", gated: true, handler: (*Server).handleDeleteArtwork},

		// お気に入り
		{method: "POST", path: "/favorites", gated: true, handler: (*Server).handleAddFavorite},
		{method: "GET", path: "/favorites/check", gated: true, handler: (*Server).handleCheckFavorite},
		{method: "GET", path: "/my-favorites", gated: true, handler: (*Server).handleMyFavorites},
		{method: "DELETE", path: "/favorites", gated: true, handler: (*Server).handleRemoveFavorite},
	}
}

// resolveRoutes はpublicに挙げられたルートの認証を外したルート表を返す。
// ルート表に無いエントリがあればエラーを返す。
func resolveRoutes(public []string) ([]route, error) {
	routes := routeTable()
	index := make(map[string]int, len(routes))
	for i, r := range routes {
		index[r.key()] = i
	}

	for _, entry := range public {
		method, path, ok := strings.Cut(strings.TrimSpace(entry), " ")
		if !ok {
			return nil, fmt.Errorf("PUBLIC_ROUTESの書式が不正: %q (want \"METHOD /path\")", entry)
		}
		key := strings.ToUpper(method) + " " + strings.TrimSpace(path)
		i, ok := index[key]
		if !ok {
			return nil, fmt.Errorf("PUBLIC_ROUTESに未知のルート: %q", entry)
		}
		routes[i].gated = false
	}
	return routes, nil
}

// setupRoutes はルート表に従ってルーティングを設定する。
func (s *Server) setupRoutes(public []string) error {
	routes, err := resolveRoutes(public)
	if err != nil {
		return err
	}

	gate := middleware.AuthGate(s.verifier, s.logger.Named("auth"))
	for _, r := range routes {
		handlers := []gin.HandlerFunc{r.handler(s)}
		if r.gated {
			handlers = append([]gin.HandlerFunc{gate}, handlers...)
		}
		s.router.Handle(r.method, r.path, handlers...)
	}
	return nil
}
