package sqlite

import (
	"sync"
	"testing"
	"time"

	"github.com/nao1215/artify/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestStore はインメモリSQLiteにスキーマを適用したStoreを返す。
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(t.Context(), ":memory:", nil)
	require.NoError(t, err, "インメモリDBの作成に失敗")
	t.Cleanup(func() { _ = s.Close(t.Context()) })

	require.NoError(t, s.Init(t.Context()), "スキーマ初期化に失敗")
	return s
}

func createTestArtwork(t *testing.T, s *Store, title, email string) *store.Artwork {
	t.Helper()

	a, err := s.CreateArtwork(t.Context(), &store.Artwork{Title: title, ArtistEmail: email, Category: "oil"})
	require.NoError(t, err, "テスト用作品の作成に失敗")
	return a
}

func TestInitIsIdempotent(t *testing.T) {
	t.Parallel()

	s := setupTestStore(t)
	assert.NoError(t, s.Init(t.Context()))
}

func TestArtworks(t *testing.T) {
	t.Parallel()

	t.Run("作成した作品をIDで取得できること", func(t *testing.T) {
		t.Parallel()
		s := setupTestStore(t)

		created, err := s.CreateArtwork(t.Context(), &store.Artwork{
			Title:       "Water Lilies",
			ArtistEmail: "monet@example.com",
			Extra:       map[string]any{"image": "https://example.com/w.png", "price": float64(120)},
		})
		require.NoError(t, err)
		assert.NotEmpty(t, created.ID)
		assert.False(t, created.CreatedAt.IsZero())

		got, err := s.Artwork(t.Context(), created.ID)
		require.NoError(t, err)
		assert.Equal(t, "Water Lilies", got.Title)
		assert.Equal(t, "https://example.com/w.png", got.Extra["image"])
		assert.Equal(t, float64(120), got.Extra["price"])
		assert.True(t, created.CreatedAt.Equal(got.CreatedAt))
	})

	t.Run("存在しないIDはErrNotFoundになること", func(t *testing.T) {
		t.Parallel()
		s := setupTestStore(t)

		_, err := s.Artwork(t.Context(), "missing")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("更新で指定したフィールドだけが変わること", func(t *testing.T) {
		t.Parallel()
		s := setupTestStore(t)
		a := createTestArtwork(t, s, "Old", "a@example.com")

		updated, err := s.UpdateArtwork(t.Context(), a.ID, map[string]any{
			"title":      "New",
			"frame":      "gold",
			"created_at": "1999-01-01T00:00:00Z",
		})
		require.NoError(t, err)
		assert.Equal(t, "New", updated.Title)
		assert.Equal(t, "a@example.com", updated.ArtistEmail)
		assert.Equal(t, "gold", updated.Extra["frame"])
		assert.True(t, a.CreatedAt.Equal(updated.CreatedAt), "created_atは変更されない")

		_, err = s.UpdateArtwork(t.Context(), "missing", map[string]any{"title": "x"})
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("いいね数が1ずつ増えること", func(t *testing.T) {
		t.Parallel()
		s := setupTestStore(t)
		a := createTestArtwork(t, s, "Liked", "a@example.com")

		_, err := s.LikeArtwork(t.Context(), a.ID)
		require.NoError(t, err)
		got, err := s.LikeArtwork(t.Context(), a.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(2), got.Likes)

		_, err = s.LikeArtwork(t.Context(), "missing")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("削除後は取得できず、2回目の削除はErrNotFoundになること", func(t *testing.T) {
		t.Parallel()
		s := setupTestStore(t)
		a := createTestArtwork(t, s, "Gone", "a@example.com")

		require.NoError(t, s.DeleteArtwork(t.Context(), a.ID))
		_, err := s.Artwork(t.Context(), a.ID)
		assert.ErrorIs(t, err, store.ErrNotFound)
		assert.ErrorIs(t, s.DeleteArtwork(t.Context(), a.ID), store.ErrNotFound)
	})

	t.Run("ArtworksByIDsは存在するIDの作品だけを返すこと", func(t *testing.T) {
		t.Parallel()
		s := setupTestStore(t)
		a := createTestArtwork(t, s, "A", "a@example.com")
		b := createTestArtwork(t, s, "B", "b@example.com")

		got, err := s.ArtworksByIDs(t.Context(), []string{a.ID, "missing", b.ID})
		require.NoError(t, err)
		assert.Len(t, got, 2)

		empty, err := s.ArtworksByIDs(t.Context(), nil)
		require.NoError(t, err)
		assert.Empty(t, empty)
	})
}

func TestSearchArtworks(t *testing.T) {
	t.Parallel()

	s := setupTestStore(t)
	first := createTestArtwork(t, s, "Starry Night", "vincent@example.com")
	second := createTestArtwork(t, s, "Irises", "vincent@example.com")
	third, err := s.CreateArtwork(t.Context(), &store.Artwork{Title: "100% Blue", ArtistEmail: "yves@example.com", Category: "mono"})
	require.NoError(t, err)
	_, err = s.LikeArtwork(t.Context(), second.ID)
	require.NoError(t, err)

	t.Run("既定では新しい順に返ること", func(t *testing.T) {
		t.Parallel()

		got, err := s.SearchArtworks(t.Context(), store.ArtworkFilter{}, store.DefaultSearchOptions())
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, third.ID, got[0].ID)
		assert.Equal(t, first.ID, got[2].ID)
	})

	t.Run("タイトルの部分一致は大文字小文字を区別しないこと", func(t *testing.T) {
		t.Parallel()

		got, err := s.SearchArtworks(t.Context(), store.ArtworkFilter{Search: "starry"}, store.DefaultSearchOptions())
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, first.ID, got[0].ID)
	})

	t.Run("ワイルドカード文字は文字として扱われること", func(t *testing.T) {
		t.Parallel()

		got, err := s.SearchArtworks(t.Context(), store.ArtworkFilter{Search: "%"}, store.DefaultSearchOptions())
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, third.ID, got[0].ID)
	})

	t.Run("カテゴリとアーティストで絞り込めること", func(t *testing.T) {
		t.Parallel()

		got, err := s.SearchArtworks(t.Context(), store.ArtworkFilter{Category: "oil", ArtistEmail: "vincent@example.com"}, store.DefaultSearchOptions())
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("いいね数順とページングが効くこと", func(t *testing.T) {
		t.Parallel()

		got, err := s.SearchArtworks(t.Context(), store.ArtworkFilter{}, store.ArtworkSearchOptions{
			Limit: 1, Page: 0, Sort: store.ByLikes, Order: store.Descending,
		})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, second.ID, got[0].ID)

		page2, err := s.SearchArtworks(t.Context(), store.ArtworkFilter{}, store.ArtworkSearchOptions{
			Limit: 2, Page: 1, Sort: store.ByTime, Order: store.Ascending,
		})
		require.NoError(t, err)
		require.Len(t, page2, 1)
		assert.Equal(t, third.ID, page2[0].ID)
	})
}

func TestFavorites(t *testing.T) {
	t.Parallel()

	t.Run("同じ組の2回目の挿入はErrDuplicateになること", func(t *testing.T) {
		t.Parallel()
		s := setupTestStore(t)

		fav, err := s.InsertFavorite(t.Context(), &store.Favorite{ArtworkID: "art1", LikesBy: "u@x.com"})
		require.NoError(t, err)
		assert.NotEmpty(t, fav.ID)

		_, err = s.InsertFavorite(t.Context(), &store.Favorite{ArtworkID: "art1", LikesBy: "u@x.com"})
		assert.ErrorIs(t, err, store.ErrDuplicate)

		list, err := s.ListFavorites(t.Context(), "u@x.com")
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})

	t.Run("削除は一致した場合のみtrueを返すこと", func(t *testing.T) {
		t.Parallel()
		s := setupTestStore(t)

		_, err := s.InsertFavorite(t.Context(), &store.Favorite{ArtworkID: "art1", LikesBy: "u@x.com"})
		require.NoError(t, err)

		deleted, err := s.DeleteFavorite(t.Context(), "art1", "u@x.com")
		require.NoError(t, err)
		assert.True(t, deleted)

		deleted, err = s.DeleteFavorite(t.Context(), "art1", "u@x.com")
		require.NoError(t, err)
		assert.False(t, deleted)

		_, err = s.Favorite(t.Context(), "art1", "u@x.com")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("一覧は新しい順でユーザーごとに分かれること", func(t *testing.T) {
		t.Parallel()
		s := setupTestStore(t)

		base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		for i, id := range []string{"a", "b", "c"} {
			_, err := s.InsertFavorite(t.Context(), &store.Favorite{
				ArtworkID: id, LikesBy: "u@x.com", CreatedAt: base.Add(time.Duration(i) * time.Minute),
			})
			require.NoError(t, err)
		}
		_, err := s.InsertFavorite(t.Context(), &store.Favorite{ArtworkID: "a", LikesBy: "other@x.com"})
		require.NoError(t, err)

		list, err := s.ListFavorites(t.Context(), "u@x.com")
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, "c", list[0].ArtworkID)
		assert.Equal(t, "a", list[2].ArtworkID)
	})

	t.Run("同じ組を並行して挿入しても1件しか作られないこと", func(t *testing.T) {
		t.Parallel()
		s := setupTestStore(t)

		const workers = 16
		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			succeeded int
		)
		for range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.InsertFavorite(t.Context(), &store.Favorite{ArtworkID: "art1", LikesBy: "u@x.com"})
				if err == nil {
					mu.Lock()
					succeeded++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, succeeded)
		list, err := s.ListFavorites(t.Context(), "u@x.com")
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})
}
