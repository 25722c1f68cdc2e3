package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/nao1215/artify/internal/store"
)

const artworkColumns = `id, title, artist_email, category, likes, extra, created_at, updated_at`

// querier は *sql.DB と *sql.Tx の共通部分。
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Artwork はIDに一致する作品を返す。
func (s *Store) Artwork(ctx context.Context, id string) (*store.Artwork, error) {
	return artworkByID(ctx, s.db, id)
}

func artworkByID(ctx context.Context, q querier, id string) (*store.Artwork, error) {
	row := q.QueryRowContext(ctx, `SELECT `+artworkColumns+` FROM artworks WHERE id = ?`, id)

	artwork, err := scanArtwork(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("作品の取得に失敗: %w", err)
	}
	return artwork, nil
}

// ArtworksByIDs はIDのいずれかに一致する作品を返す。
func (s *Store) ArtworksByIDs(ctx context.Context, ids []string) ([]*store.Artwork, error) {
	if len(ids) == 0 {
		return []*store.Artwork{}, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	return s.queryArtworks(ctx, `SELECT `+artworkColumns+` FROM artworks WHERE id IN (`+placeholders+`)`, args...)
}

// SearchArtworks は条件に一致する作品をソート・ページングして返す。
func (s *Store) SearchArtworks(ctx context.Context, filter store.ArtworkFilter, opts store.ArtworkSearchOptions) ([]*store.Artwork, error) {
	var (
		conds []string
		args  []any
	)

	if filter.Search != "" {
		pattern := "%" + escapeLike(filter.Search) + "%"
		conds = append(conds, `(title LIKE ? ESCAPE '\' OR artist_email LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}
	if filter.Category != "" {
		conds = append(conds, `category = ?`)
		args = append(args, filter.Category)
	}
	if filter.ArtistEmail != "" {
		conds = append(conds, `artist_email = ?`)
		args = append(args, filter.ArtistEmail)
	}

	query := `SELECT ` + artworkColumns + ` FROM artworks`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, ` AND `)
	}

	column := opts.Sort.String()
	if column == "" {
		column = store.FieldCreatedAt
	}
	direction := "DESC"
	if opts.Order == store.Ascending {
		direction = "ASC"
	}
	query += fmt.Sprintf(` ORDER BY %s %s, rowid %s`, column, direction, direction)

	limit := opts.Limit
	if limit <= 0 {
		limit = -1
	}
	query += ` LIMIT ? OFFSET ?`
	args = append(args, limit, opts.Skip())

	return s.queryArtworks(ctx, query, args...)
}

// CreateArtwork はUUIDを採番して作品を保存する。
func (s *Store) CreateArtwork(ctx context.Context, artwork *store.Artwork) (*store.Artwork, error) {
	created := *artwork
	created.ID = uuid.New().String()
	created.CreatedAt = now()
	created.UpdatedAt = created.CreatedAt

	extra, err := encodeExtra(created.Extra)
	if err != nil {
		return nil, err
	}

	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO artworks (`+artworkColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		created.ID, created.Title, created.ArtistEmail, created.Category, created.Likes,
		extra, formatTime(created.CreatedAt), formatTime(created.UpdatedAt),
	); err != nil {
		return nil, fmt.Errorf("作品の作成に失敗: %w", err)
	}

	return &created, nil
}

// UpdateArtwork はfieldsを作品に反映して保存する。
func (s *Store) UpdateArtwork(ctx context.Context, id string, fields map[string]any) (*store.Artwork, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	artwork, err := artworkByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	if err := artwork.Apply(fields); err != nil {
		return nil, err
	}
	artwork.UpdatedAt = now()

	extra, err := encodeExtra(artwork.Extra)
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE artworks SET title = ?, artist_email = ?, category = ?, likes = ?, extra = ?, updated_at = ? WHERE id = ?`,
		artwork.Title, artwork.ArtistEmail, artwork.Category, artwork.Likes, extra, formatTime(artwork.UpdatedAt), id,
	); err != nil {
		return nil, fmt.Errorf("作品の更新に失敗: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("コミットに失敗: %w", err)
	}
	return artwork, nil
}

// LikeArtwork はいいね数を1増やす。
func (s *Store) LikeArtwork(ctx context.Context, id string) (*store.Artwork, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE artworks SET likes = likes + 1, updated_at = ? WHERE id = ?`,
		formatTime(now()), id,
	)
	if err != nil {
		return nil, fmt.Errorf("いいね数の更新に失敗: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("更新件数の取得に失敗: %w", err)
	}
	if n == 0 {
		return nil, store.ErrNotFound
	}

	return s.Artwork(ctx, id)
}

// DeleteArtwork は作品を削除する。お気に入りリンクは残す。
func (s *Store) DeleteArtwork(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM artworks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("作品の削除に失敗: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("削除件数の取得に失敗: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) queryArtworks(ctx context.Context, query string, args ...any) ([]*store.Artwork, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("作品の検索に失敗: %w", err)
	}
	defer func() { _ = rows.Close() }()

	artworks := make([]*store.Artwork, 0)
	for rows.Next() {
		artwork, err := scanArtwork(rows)
		if err != nil {
			return nil, fmt.Errorf("作品の読み取りに失敗: %w", err)
		}
		artworks = append(artworks, artwork)
	}
	return artworks, rows.Err()
}

func scanArtwork(row scanner) (*store.Artwork, error) {
	var (
		a                    store.Artwork
		extra                string
		createdAt, updatedAt string
	)
	if err := row.Scan(&a.ID, &a.Title, &a.ArtistEmail, &a.Category, &a.Likes, &extra, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	if extra != "" && extra != "{}" {
		if err := json.Unmarshal([]byte(extra), &a.Extra); err != nil {
			return nil, fmt.Errorf("追加フィールドの解析に失敗: %w", err)
		}
	}

	var err error
	if a.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if a.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

func encodeExtra(extra map[string]any) (string, error) {
	if len(extra) == 0 {
		return "{}", nil
	}
	data, err := json.Marshal(extra)
	if err != nil {
		return "", fmt.Errorf("追加フィールドのシリアライズに失敗: %w", err)
	}
	return string(data), nil
}

// escapeLike はLIKEのワイルドカードをエスケープする。
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
