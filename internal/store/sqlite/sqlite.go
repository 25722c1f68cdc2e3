// Package sqlite はSQLiteを使ったドキュメントストアの実装を提供する。
//
// 作品の既知のフィールドは列として、それ以外のフィールドはJSON文字列として保存する。
// お気に入りリンクは (artwork_id, likes_by) の一意制約で重複を防ぐ。
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/nao1215/artify/internal/store"
	"github.com/nao1215/artify/pkg/migration"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

// timeLayout はUTCの固定長表現。文字列の辞書順が時刻順と一致する。
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store はSQLiteによる store.Store の実装。
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

var _ store.Store = (*Store)(nil)

// Open はdsnのSQLiteデータベースを開く。
// ":memory:" を指定した場合も全ての操作が同じデータベースを見るよう、接続数は1に制限する。
func Open(ctx context.Context, dsn string, logger *zap.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("データベースへの疎通確認に失敗: %w", err)
	}

	return New(db, logger), nil
}

// New は既存の接続からStoreを生成する。
func New(db *sql.DB, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: db, logger: logger.Named("sqlite")}
}

// Init はマイグレーションを適用する。
func (s *Store) Init(ctx context.Context) error {
	if _, err := migration.Run(ctx, s.db, migrations, "migrations", s.logger); err != nil {
		return fmt.Errorf("スキーマ初期化に失敗: %w", err)
	}
	return nil
}

// Close はデータベース接続を閉じる。
func (s *Store) Close(_ context.Context) error {
	return s.db.Close()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("日時の解析に失敗: %w", err)
	}
	return t, nil
}

// now は保存用の現在時刻（UTC）を返す。
func now() time.Time {
	return time.Now().UTC()
}
