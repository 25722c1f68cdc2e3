// Package store はArtifyが扱うドキュメント（作品・お気に入り）と、
// それを永続化するドキュメントストアのインターフェースを定義する。
//
// 実装は store/mongo（MongoDB）と store/sqlite（組み込みSQLite）の2種類。
// ハンドラやお気に入り台帳はこのパッケージのインターフェースにのみ依存する。
package store

import (
	"context"
	"errors"
)

// Store は作品とお気に入りの両方を扱うドキュメントストア。
type Store interface {
	ArtworkStore
	FavoriteStore
	// Init はコレクション・インデックス等の初期化を行う。何度呼び出してもよい。
	Init(ctx context.Context) error
	// Close は接続を閉じる。
	Close(ctx context.Context) error
}

var (
	// ErrNotFound は対象のドキュメントが存在しないことを表す。
	ErrNotFound = errors.New("document not found")
	// ErrDuplicate は一意制約に違反する挿入であることを表す。
	ErrDuplicate = errors.New("duplicate document")
	// ErrInvalidField はドキュメントに使用できないフィールド名が含まれることを表す。
	ErrInvalidField = errors.New("invalid field name")
)
