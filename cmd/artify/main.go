// Artifyサーバーのエントリポイント。
// 作品のCRUDとお気に入りを提供し、変更系と利用者ごとのルートをベアラートークンで保護する。
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/nao1215/artify/internal/artify"
	"github.com/nao1215/artify/internal/config"
	"github.com/nao1215/artify/internal/logger"
	"github.com/nao1215/artify/internal/store"
	"github.com/nao1215/artify/internal/store/mongo"
	"github.com/nao1215/artify/internal/store/sqlite"
	"github.com/nao1215/artify/pkg/httpclient"
	"github.com/nao1215/artify/pkg/identity"
	"go.uber.org/zap"
)

// storeInitTimeout は保存先への接続と初期化に掛けてよい時間。
const storeInitTimeout = 10 * time.Second

// verifierTimeout は外部の認証サービスへの問い合わせのタイムアウト。
const verifierTimeout = 5 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("設定の読み込みに失敗: %w", err)
	}

	log, err := logger.New(cfg.IsDevelopment(), cfg.SentryDSN)
	if err != nil {
		return fmt.Errorf("ロガーの初期化に失敗: %w", err)
	}
	defer func() { _ = log.Sync() }()
	if cfg.SentryDSN != "" {
		defer sentry.Flush(2 * time.Second)
	}

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := initStore(ctx, cfg.Store, log)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), storeInitTimeout)
		defer cancel()
		if err := st.Close(closeCtx); err != nil {
			log.Warn("failed to close store", zap.Error(err))
		}
	}()

	verifier, err := newVerifier(cfg.Auth)
	if err != nil {
		return err
	}

	server, err := artify.NewServer(st, verifier, log, artify.Options{
		CORSOrigins:    cfg.CORSOrigins,
		RateLimitRPS:   cfg.RateLimit.RPS,
		RateLimitBurst: cfg.RateLimit.Burst,
		PublicRoutes:   cfg.PublicRoutes,
		TrustedProxies: cfg.TrustedProxies,
	})
	if err != nil {
		return fmt.Errorf("サーバーの初期化に失敗: %w", err)
	}

	log.Info("starting artify",
		zap.String("env", cfg.Env),
		zap.String("store", cfg.Store.Backend),
		zap.String("auth", cfg.Auth.Mode),
		zap.Strings("public_routes", cfg.PublicRoutes),
	)
	return server.Run(ctx, cfg.Addr())
}

// initStore は設定に応じた保存先に接続し、スキーマとインデックスを用意する。
func initStore(ctx context.Context, cfg config.StoreConfig, log *zap.Logger) (store.Store, error) {
	ctx, cancel := context.WithTimeout(ctx, storeInitTimeout)
	defer cancel()

	var (
		st  store.Store
		err error
	)
	switch cfg.Backend {
	case config.BackendSQLite:
		st, err = sqlite.Open(ctx, cfg.SQLitePath, log)
	default:
		st, err = mongo.New(ctx, cfg.MongoURI, cfg.MongoDatabase, log)
	}
	if err != nil {
		return nil, fmt.Errorf("%sへの接続に失敗: %w", cfg.Backend, err)
	}

	if err := st.Init(ctx); err != nil {
		_ = st.Close(ctx)
		return nil, fmt.Errorf("%sの初期化に失敗: %w", cfg.Backend, err)
	}
	return st, nil
}

// newVerifier は設定に応じたトークン検証器を返す。
func newVerifier(cfg config.AuthConfig) (identity.Verifier, error) {
	switch cfg.Mode {
	case config.AuthModeJWT:
		var opts []identity.JWTOption
		if cfg.JWTIssuer != "" {
			opts = append(opts, identity.WithIssuer(cfg.JWTIssuer))
		}
		if cfg.JWTAudience != "" {
			opts = append(opts, identity.WithAudience(cfg.JWTAudience))
		}
		return identity.NewJWTVerifier(cfg.JWTSecret, opts...), nil
	case config.AuthModeRemote:
		client := httpclient.New(cfg.VerifierURL, httpclient.WithTimeout(verifierTimeout))
		return identity.NewRemoteVerifier(client), nil
	default:
		return nil, fmt.Errorf("AUTH_MODEの値 %q は不明です", cfg.Mode)
	}
}
