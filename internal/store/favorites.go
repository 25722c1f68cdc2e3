package store

import (
	"context"
	"time"
)

// FavoriteStore はお気に入りリンクのコレクションを操作する。
type FavoriteStore interface {
	// Favorite は (artworkID, likesBy) に一致するリンクを返す。無ければ ErrNotFound。
	Favorite(ctx context.Context, artworkID, likesBy string) (*Favorite, error)
	// InsertFavorite はリンクが存在しない場合のみ挿入する。
	// 既に同じ組が存在する場合は ErrDuplicate を返し、何も変更しない。
	InsertFavorite(ctx context.Context, fav *Favorite) (*Favorite, error)
	// DeleteFavorite は一致するリンクを削除し、削除したかどうかを返す。
	DeleteFavorite(ctx context.Context, artworkID, likesBy string) (bool, error)
	// ListFavorites はユーザーのリンクを作成日時の降順で返す。
	ListFavorites(ctx context.Context, likesBy string) ([]*Favorite, error)
}

// Favorite は作品とそれを気に入ったユーザーを結ぶリンク。
// (ArtworkID, LikesBy) の組は常に高々1件しか存在しない。
type Favorite struct {
	ID        string    `json:"_id"`
	ArtworkID string    `json:"artwork_id"`
	LikesBy   string    `json:"likes_by"`
	CreatedAt time.Time `json:"created_at"`
}
