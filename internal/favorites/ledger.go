// Package favorites はユーザーと作品のお気に入り関係を管理する台帳を提供する。
//
// (artwork_id, likes_by) の組は常に高々1件しか存在しない。
// 組ごとの状態は「無し」と「有り」の2つだけで、Addは無し→有り、Removeは有り→無しへ遷移させる。
// どちらも既にその状態にある場合は何も変更せず、区別可能な結果（ErrAlreadyExists / ErrNotFound）を返す。
package favorites

import (
	"context"
	"errors"
	"fmt"

	"github.com/nao1215/artify/internal/store"
	"go.uber.org/zap"
)

var (
	// ErrAlreadyExists は同じ組のお気に入りが既に存在することを表す。エラーではなく「変更なし」の結果。
	ErrAlreadyExists = errors.New("already in favorites")
	// ErrNotFound は削除対象のお気に入りが存在しないことを表す。
	ErrNotFound = errors.New("favorite not found")
	// ErrInvalidLink は作品IDまたはユーザーが空であることを表す。
	ErrInvalidLink = errors.New("artwork_id and likes_by are required")
)

// Ledger はお気に入りの追加・削除・確認・一覧を行う。
type Ledger struct {
	favorites store.FavoriteStore
	artworks  store.ArtworkStore
	logger    *zap.Logger
}

// NewLedger は新しい台帳を生成する。
func NewLedger(favorites store.FavoriteStore, artworks store.ArtworkStore, logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{
		favorites: favorites,
		artworks:  artworks,
		logger:    logger.Named("favorites"),
	}
}

// Add はお気に入りを追加する。
// 挿入は一意制約付きの1操作で行うため、並行に呼ばれても作られるのは1件だけ。
func (l *Ledger) Add(ctx context.Context, artworkID, likesBy string) (*store.Favorite, error) {
	if artworkID == "" || likesBy == "" {
		return nil, ErrInvalidLink
	}

	fav, err := l.favorites.InsertFavorite(ctx, &store.Favorite{ArtworkID: artworkID, LikesBy: likesBy})
	if errors.Is(err, store.ErrDuplicate) {
		return nil, ErrAlreadyExists
	}
	if err != nil {
		return nil, fmt.Errorf("お気に入りの追加に失敗: %w", err)
	}

	l.logger.Debug("favorite added", zap.String("artwork_id", artworkID), zap.String("likes_by", likesBy))
	return fav, nil
}

// Remove はお気に入りを削除する。存在しない場合は ErrNotFound を返す。
func (l *Ledger) Remove(ctx context.Context, artworkID, likesBy string) error {
	if artworkID == "" || likesBy == "" {
		return ErrInvalidLink
	}

	deleted, err := l.favorites.DeleteFavorite(ctx, artworkID, likesBy)
	if err != nil {
		return fmt.Errorf("お気に入りの削除に失敗: %w", err)
	}
	if !deleted {
		return ErrNotFound
	}

	l.logger.Debug("favorite removed", zap.String("artwork_id", artworkID), zap.String("likes_by", likesBy))
	return nil
}

// Check はお気に入りが存在するかを返す。
// どちらかの引数が空の場合は問い合わせずにfalseを返す。
func (l *Ledger) Check(ctx context.Context, artworkID, likesBy string) (bool, error) {
	if artworkID == "" || likesBy == "" {
		return false, nil
	}

	_, err := l.favorites.Favorite(ctx, artworkID, likesBy)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("お気に入りの確認に失敗: %w", err)
	}
	return true, nil
}

// ListForUser はユーザーがお気に入りに入れた作品を、お気に入りに入れた新しい順に返す。
// 作品が既に削除されているリンクは結果から除外する。
func (l *Ledger) ListForUser(ctx context.Context, likesBy string) ([]*store.Artwork, error) {
	if likesBy == "" {
		return []*store.Artwork{}, nil
	}

	links, err := l.favorites.ListFavorites(ctx, likesBy)
	if err != nil {
		return nil, fmt.Errorf("お気に入り一覧の取得に失敗: %w", err)
	}
	if len(links) == 0 {
		return []*store.Artwork{}, nil
	}

	ids := make([]string, 0, len(links))
	for _, link := range links {
		ids = append(ids, link.ArtworkID)
	}

	found, err := l.artworks.ArtworksByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("お気に入り作品の取得に失敗: %w", err)
	}

	byID := make(map[string]*store.Artwork, len(found))
	for _, a := range found {
		byID[a.ID] = a
	}

	artworks := make([]*store.Artwork, 0, len(links))
	dangling := 0
	for _, link := range links {
		a, ok := byID[link.ArtworkID]
		if !ok {
			dangling++
			continue
		}
		artworks = append(artworks, a)
	}

	if dangling > 0 {
		l.logger.Debug("skipped favorites of deleted artworks", zap.String("likes_by", likesBy), zap.Int("count", dangling))
	}
	return artworks, nil
}
