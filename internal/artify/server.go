// Package artify はArtifyサーバーのHTTP層（ルート表、ハンドラ、レスポンス形式）を提供する。
package artify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/microcosm-cc/bluemonday"
	"github.com/nao1215/artify/internal/favorites"
	"github.com/nao1215/artify/internal/store"
	"github.com/nao1215/artify/pkg/identity"
	"github.com/nao1215/artify/pkg/middleware"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// shutdownTimeout はグレースフルシャットダウンで処理中のリクエストを待つ最大時間。
const shutdownTimeout = 10 * time.Second

// Options はサーバーの振る舞いを変える設定。
type Options struct {
	// CORSOrigins は許可するオリジン。空なら全て許可する。
	CORSOrigins []string
	// RateLimitRPS はクライアントIPごとの秒間リクエスト数。0なら制限しない。
	RateLimitRPS   float64
	RateLimitBurst int
	// PublicRoutes は認証を外すルート（"GET /my-artworks" 形式）。
	PublicRoutes []string
	// TrustedProxies はX-Forwarded-Forを信頼するプロキシ。空ならクライアントIPは接続元アドレスになる。
	TrustedProxies []string
}

// Server はArtifyのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// artworks は作品コレクション。
	artworks store.ArtworkStore
	// ledger はお気に入り台帳。
	ledger *favorites.Ledger
	// verifier はゲート付きルートでトークンを検証する。
	verifier identity.Verifier
	// sanitizer は作品の文字列フィールドからHTMLを取り除く。
	sanitizer *bluemonday.Policy
	logger    *zap.Logger
}

// NewServer は新しいサーバーを生成する。
// PublicRoutesにルート表に無いエントリが含まれる場合や、TrustedProxiesが解釈できない場合はエラーを返す。
func NewServer(st store.Store, verifier identity.Verifier, logger *zap.Logger, opts Options) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	if err := router.SetTrustedProxies(opts.TrustedProxies); err != nil {
		return nil, fmt.Errorf("信頼するプロキシの設定に失敗: %w", err)
	}
	router.Use(
		middleware.RequestID(),
		middleware.AccessLog(logger.Named("http")),
		middleware.Recovery(logger),
		middleware.CORS(opts.CORSOrigins),
		middleware.RateLimit(opts.RateLimitRPS, opts.RateLimitBurst),
	)

	s := &Server{
		router:    router,
		artworks:  st,
		ledger:    favorites.NewLedger(st, st, logger),
		verifier:  verifier,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger,
	}
	if err := s.setupRoutes(opts.PublicRoutes); err != nil {
		return nil, err
	}
	return s, nil
}

// Handler はリクエストを処理するhttp.Handlerを返す。
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run はaddrでHTTPサーバーを起動し、ctxがキャンセルされるまで処理を続ける。
// キャンセル後は処理中のリクエストを最大10秒待ってから終了する。
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("artify server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTPサーバーの起動に失敗: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("shutting down artify server")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("シャットダウンに失敗: %w", err)
		}
		return nil
	})
	return g.Wait()
}
