package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/nao1215/artify/internal/store"
)

// Favorite は (artworkID, likesBy) に一致するリンクを返す。
func (s *Store) Favorite(ctx context.Context, artworkID, likesBy string) (*store.Favorite, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, artwork_id, likes_by, created_at FROM favorites WHERE artwork_id = ? AND likes_by = ?`,
		artworkID, likesBy,
	)

	fav, err := scanFavorite(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("お気に入りの取得に失敗: %w", err)
	}
	return fav, nil
}

// InsertFavorite は一意制約に衝突しない場合のみリンクを挿入する。
// 衝突した場合は ErrDuplicate を返す。確認と挿入は1つの文で行う。
func (s *Store) InsertFavorite(ctx context.Context, fav *store.Favorite) (*store.Favorite, error) {
	created := *fav
	created.ID = uuid.New().String()
	if created.CreatedAt.IsZero() {
		created.CreatedAt = now()
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO favorites (id, artwork_id, likes_by, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (artwork_id, likes_by) DO NOTHING`,
		created.ID, created.ArtworkID, created.LikesBy, formatTime(created.CreatedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("お気に入りの挿入に失敗: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("挿入件数の取得に失敗: %w", err)
	}
	if n == 0 {
		return nil, store.ErrDuplicate
	}
	return &created, nil
}

// DeleteFavorite は一致するリンクを削除する。
func (s *Store) DeleteFavorite(ctx context.Context, artworkID, likesBy string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM favorites WHERE artwork_id = ? AND likes_by = ?`,
		artworkID, likesBy,
	)
	if err != nil {
		return false, fmt.Errorf("お気に入りの削除に失敗: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("削除件数の取得に失敗: %w", err)
	}
	return n > 0, nil
}

// ListFavorites はユーザーのリンクを新しい順に返す。
func (s *Store) ListFavorites(ctx context.Context, likesBy string) ([]*store.Favorite, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, artwork_id, likes_by, created_at FROM favorites
		 WHERE likes_by = ? ORDER BY created_at DESC, rowid DESC`,
		likesBy,
	)
	if err != nil {
		return nil, fmt.Errorf("お気に入り一覧の取得に失敗: %w", err)
	}
	defer func() { _ = rows.Close() }()

	favorites := make([]*store.Favorite, 0)
	for rows.Next() {
		fav, err := scanFavorite(rows)
		if err != nil {
			return nil, fmt.Errorf("お気に入りの読み取りに失敗: %w", err)
		}
		favorites = append(favorites, fav)
	}
	return favorites, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanFavorite(row scanner) (*store.Favorite, error) {
	var (
		fav       store.Favorite
		createdAt string
	)
	if err := row.Scan(&fav.ID, &fav.ArtworkID, &fav.LikesBy, &createdAt); err != nil {
		return nil, err
	}

	t, err := parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	fav.CreatedAt = t
	return &fav, nil
}
