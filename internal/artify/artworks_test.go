package artify

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/nao1215/artify/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createArtwork はPOST /artworksで作品を登録し、レスポンスのresultを返す。
func (e *testEnv) createArtwork(t *testing.T, body string) map[string]any {
	t.Helper()

	w := e.do(t, http.MethodPost, "/artworks", body, true)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	resp := decodeBody(t, w)
	require.Equal(t, true, resp["success"])
	result, ok := resp["result"].(map[string]any)
	require.True(t, ok)
	return result
}

// resultList はレスポンスのresultを配列として返す。
func resultList(t *testing.T, body map[string]any) []any {
	t.Helper()

	list, ok := body["result"].([]any)
	require.True(t, ok, "resultが配列ではない: %v", body["result"])
	return list
}

// TestArtworkLifecycle は作品の登録から削除までを検証する。
func TestArtworkLifecycle(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	created := env.createArtwork(t, `{
		"title": "<b>Water Lilies</b>",
		"category": "oil",
		"likes": 99,
		"image": "https://example.com/water-lilies.png",
		"price": 120
	}`)
	id, ok := created["_id"].(string)
	require.True(t, ok)
	require.NotEmpty(t, id)

	assert.Equal(t, "Water Lilies", created["title"], "HTMLタグが取り除かれること")
	assert.Equal(t, testEmail, created["artist_email"], "artist_emailが無ければ利用者のメールアドレスになること")
	assert.InDelta(t, 0, created["likes"], 0, "いいね数は0から始まること")
	assert.Equal(t, "https://example.com/water-lilies.png", created["image"])
	assert.InDelta(t, 120, created["price"], 0)
	assert.NotEmpty(t, created["created_at"])

	t.Run("IDで取得できること", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/artworks/"+id, "", false)
		require.Equal(t, http.StatusOK, w.Code)
		result := decodeBody(t, w)["result"].(map[string]any)
		assert.Equal(t, "Water Lilies", result["title"])
		assert.Equal(t, "oil", result["category"])
	})

	t.Run("部分更新で指定したフィールドだけが変わること", func(t *testing.T) {
		w := env.do(t, http.MethodPut, "/artworks/"+id,
			`{"title":"Water Lilies (1906)","_id":"hijack","created_at":"2000-01-01T00:00:00Z"}`, true)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		result := decodeBody(t, w)["result"].(map[string]any)
		assert.Equal(t, id, result["_id"], "_idは変更できないこと")
		assert.Equal(t, "Water Lilies (1906)", result["title"])
		assert.Equal(t, "oil", result["category"])
		assert.Equal(t, created["created_at"], result["created_at"], "created_atは変更できないこと")
	})

	t.Run("いいねで数が1増えること", func(t *testing.T) {
		w := env.do(t, http.MethodPatch, "/artworks/"+id+"/like", "", true)
		require.Equal(t, http.StatusOK, w.Code)
		result := decodeBody(t, w)["result"].(map[string]any)
		assert.InDelta(t, 1, result["likes"], 0)
	})

	t.Run("自分の作品一覧に含まれること", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/my-artworks?email="+testEmail, "", true)
		require.Equal(t, http.StatusOK, w.Code)
		list := resultList(t, decodeBody(t, w))
		require.Len(t, list, 1)
		assert.Equal(t, id, list[0].(map[string]any)["_id"])
	})

	t.Run("削除後は取得できないこと", func(t *testing.T) {
		w := env.do(t, http.MethodDelete, "/artworks/"+id, "", true)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"success":true}`, w.Body.String())

		w = env.do(t, http.MethodGet, "/artworks/"+id, "", false)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.JSONEq(t, `{"success":false,"message":"Not found"}`, w.Body.String())

		w = env.do(t, http.MethodDelete, "/artworks/"+id, "", true)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"success":false,"message":"Not found"}`, w.Body.String())
	})
}

// TestArtworkTextFields はtitleとcategoryだけからタグが取り除かれ、他の値はそのまま保存されることを検証する。
func TestArtworkTextFields(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	created := env.createArtwork(t, `{
		"title": "<i>Tom & Jerry</i>",
		"category": "Ink & Wash",
		"image": "https://cdn.example.com/a.jpg?w=1&h=2",
		"description": "<b>O'Keeffe's \"Iris\"</b>"
	}`)
	id := created["_id"].(string)

	assert.Equal(t, "Tom & Jerry", created["title"])
	assert.Equal(t, "Ink & Wash", created["category"])
	assert.Equal(t, "https://cdn.example.com/a.jpg?w=1&h=2", created["image"], "追加フィールドは変更されないこと")
	assert.Equal(t, `<b>O'Keeffe's "Iris"</b>`, created["description"])

	w := env.do(t, http.MethodGet, "/artworks/"+id, "", false)
	require.Equal(t, http.StatusOK, w.Code)
	stored := decodeBody(t, w)["result"].(map[string]any)
	assert.Equal(t, "Tom & Jerry", stored["title"])
	assert.Equal(t, "https://cdn.example.com/a.jpg?w=1&h=2", stored["image"])

	w = env.do(t, http.MethodPut, "/artworks/"+id,
		`{"title":"Rock & Roll <br/>","image":"https://cdn.example.com/b.jpg?w=3&h=4"}`, true)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decodeBody(t, w)["result"].(map[string]any)
	assert.Equal(t, "Rock & Roll ", updated["title"])
	assert.Equal(t, "https://cdn.example.com/b.jpg?w=3&h=4", updated["image"])
}

// TestArtworkNotFound は存在しない作品への変更操作を検証する。
func TestArtworkNotFound(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	tests := []struct {
		name   string
		method string
		target string
		body   string
	}{
		{name: "更新", method: http.MethodPut, target: "/artworks/missing", body: `{"title":"x"}`},
		{name: "いいね", method: http.MethodPatch, target: "/artworks/missing/like"},
		{name: "削除", method: http.MethodDelete, target: "/artworks/missing"},
	}
	for _, tt := range tests {
		t.Run(tt.name+"は200でNot foundを返すこと", func(t *testing.T) {
			t.Parallel()

			w := env.do(t, tt.method, tt.target, tt.body, true)
			assert.Equal(t, http.StatusOK, w.Code)
			assert.JSONEq(t, `{"success":false,"message":"Not found"}`, w.Body.String())
		})
	}
}

// TestCreateArtworkValidation は不正な作品データを検証する。
func TestCreateArtworkValidation(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	tests := []struct {
		name string
		body string
	}{
		{name: "JSONでないボディは400になること", body: `title=x`},
		{name: "配列のボディは400になること", body: `[1,2]`},
		{name: "$で始まるフィールド名は400になること", body: `{"$where":"1"}`},
		{name: "ドットを含むフィールド名は400になること", body: `{"meta.size":"big"}`},
		{name: "文字列でないtitleは400になること", body: `{"title":42}`},
		{name: "整数でないlikesは400になること", body: `{"likes":"many"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			w := env.do(t, http.MethodPost, "/artworks", tt.body, true)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			assert.Equal(t, false, decodeBody(t, w)["success"])
		})
	}
}

// TestListArtworks は作品検索のクエリを検証する。
func TestListArtworks(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := t.Context()

	titles := []string{"Water Lilies", "Impression, Sunrise", "Starry Night", "Sunflowers", "The Kiss", "Wheatfield", "Irises", "Haystacks"}
	ids := make([]string, 0, len(titles))
	for i, title := range titles {
		category := "oil"
		if i%2 == 1 {
			category = "sketch"
		}
		a, err := env.store.CreateArtwork(ctx, &store.Artwork{Title: title, ArtistEmail: fmt.Sprintf("artist%d@example.com", i), Category: category})
		require.NoError(t, err)
		ids = append(ids, a.ID)
		// created_atの順序を確定させる
		time.Sleep(2 * time.Millisecond)
	}
	for range 3 {
		_, err := env.store.LikeArtwork(ctx, ids[2])
		require.NoError(t, err)
	}

	get := func(t *testing.T, target string) []any {
		t.Helper()
		w := env.do(t, http.MethodGet, target, "", false)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		return resultList(t, decodeBody(t, w))
	}
	idOf := func(v any) string { return v.(map[string]any)["_id"].(string) }

	t.Run("既定では新しい順に返ること", func(t *testing.T) {
		t.Parallel()

		list := get(t, "/artworks")
		require.Len(t, list, len(titles))
		assert.Equal(t, ids[len(ids)-1], idOf(list[0]))
	})

	t.Run("最新作品は6件だけ返ること", func(t *testing.T) {
		t.Parallel()

		list := get(t, "/latest-artworks")
		require.Len(t, list, 6)
		assert.Equal(t, ids[len(ids)-1], idOf(list[0]))
	})

	t.Run("検索語は大文字小文字を区別せず部分一致すること", func(t *testing.T) {
		t.Parallel()

		list := get(t, "/artworks?search=SUN")
		assert.Len(t, list, 2)
	})

	t.Run("カテゴリで絞り込めること", func(t *testing.T) {
		t.Parallel()

		list := get(t, "/artworks?category=sketch")
		assert.Len(t, list, 4)
	})

	t.Run("いいね順で並べられること", func(t *testing.T) {
		t.Parallel()

		list := get(t, "/artworks?sort=likes&order=desc&limit=1")
		require.Len(t, list, 1)
		assert.Equal(t, ids[2], idOf(list[0]))
	})

	t.Run("ページングできること", func(t *testing.T) {
		t.Parallel()

		list := get(t, "/artworks?order=asc&limit=3&page=1")
		require.Len(t, list, 3)
		assert.Equal(t, ids[3], idOf(list[0]))
	})

	t.Run("該当が無い場合は空配列を返すこと", func(t *testing.T) {
		t.Parallel()

		w := env.do(t, http.MethodGet, "/artworks?category=fresco", "", false)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"success":true,"result":[]}`, w.Body.String())
	})

	for _, query := range []string{"limit=0", "limit=abc", "page=-1", "sort=title", "order=up"} {
		t.Run(query+" は400になること", func(t *testing.T) {
			t.Parallel()

			w := env.do(t, http.MethodGet, "/artworks?"+query, "", false)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, false, decodeBody(t, w)["success"])
		})
	}

	t.Run("emailの無い自分の作品一覧は400になること", func(t *testing.T) {
		t.Parallel()

		w := env.do(t, http.MethodGet, "/my-artworks", "", true)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
