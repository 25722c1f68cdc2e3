package store

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
)

// ArtworkStore は作品コレクションを操作する。
type ArtworkStore interface {
	// Artwork はIDに一致する作品を返す。無ければ ErrNotFound。
	Artwork(ctx context.Context, id string) (*Artwork, error)
	// ArtworksByIDs はIDのいずれかに一致する作品を返す。存在しないIDは無視する。
	// 返却順は保証しない。
	ArtworksByIDs(ctx context.Context, ids []string) ([]*Artwork, error)
	SearchArtworks(ctx context.Context, filter ArtworkFilter, opts ArtworkSearchOptions) ([]*Artwork, error)
	// CreateArtwork はIDと作成日時を採番して作品を保存する。
	CreateArtwork(ctx context.Context, artwork *Artwork) (*Artwork, error)
	// UpdateArtwork はfieldsに含まれるフィールドだけを上書きし、更新後の作品を返す。
	UpdateArtwork(ctx context.Context, id string, fields map[string]any) (*Artwork, error)
	// LikeArtwork はいいね数を1増やし、更新後の作品を返す。
	LikeArtwork(ctx context.Context, id string) (*Artwork, error)
	DeleteArtwork(ctx context.Context, id string) error
}

// Artwork は作品ドキュメント。
// 既知のフィールド以外はExtraに保持し、JSONでは既知のフィールドと同じ階層に展開する。
type Artwork struct {
	ID          string
	Title       string
	ArtistEmail string
	Category    string
	Likes       int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Extra       map[string]any
}

// 作品ドキュメントの既知のフィールド名。JSONとBSONで共通。
const (
	FieldID          = "_id"
	FieldTitle       = "title"
	FieldArtistEmail = "artist_email"
	FieldCategory    = "category"
	FieldLikes       = "likes"
	FieldCreatedAt   = "created_at"
	FieldUpdatedAt   = "updated_at"
)

// immutableFields はクライアントから変更できないフィールド。
var immutableFields = map[string]struct{}{
	FieldID:        {},
	FieldCreatedAt: {},
	FieldUpdatedAt: {},
}

// CheckFieldName はドキュメントのフィールド名として使用できるかを検証する。
// 演算子やネストしたパスとして解釈される名前は受け付けない。
func CheckFieldName(name string) error {
	if name == "" || strings.HasPrefix(name, "$") || strings.Contains(name, ".") {
		return fmt.Errorf("%w: %q", ErrInvalidField, name)
	}
	return nil
}

// Apply はfieldsの値を作品に反映する。
// 変更不可のフィールドは無視し、型が合わない場合は ErrInvalidField を返す。
func (a *Artwork) Apply(fields map[string]any) error {
	for k, v := range fields {
		if err := CheckFieldName(k); err != nil {
			return err
		}
		if _, ok := immutableFields[k]; ok {
			continue
		}

		switch k {
		case FieldTitle, FieldArtistEmail, FieldCategory:
			s, ok := v.(string)
			if !ok {
				return fmt.Errorf("%w: %s must be a string", ErrInvalidField, k)
			}
			switch k {
			case FieldTitle:
				a.Title = s
			case FieldArtistEmail:
				a.ArtistEmail = s
			default:
				a.Category = s
			}
		case FieldLikes:
			n, err := toInt64(v)
			if err != nil {
				return fmt.Errorf("%w: likes %v", ErrInvalidField, err)
			}
			a.Likes = n
		default:
			if a.Extra == nil {
				a.Extra = make(map[string]any)
			}
			a.Extra[k] = v
		}
	}
	return nil
}

// NormalizeUpdate は部分更新用のフィールドを検証し、変更不可のフィールドを取り除いたものを返す。
// likesはint64に変換する。
func NormalizeUpdate(fields map[string]any) (map[string]any, error) {
	scratch := &Artwork{}
	if err := scratch.Apply(fields); err != nil {
		return nil, err
	}

	normalized := make(map[string]any, len(fields))
	for k, v := range fields {
		if _, ok := immutableFields[k]; ok {
			continue
		}
		if k == FieldLikes {
			v = scratch.Likes
		}
		normalized[k] = v
	}
	return normalized, nil
}

// MarshalJSON はExtraを既知のフィールドと同じ階層に展開する。
func (a Artwork) MarshalJSON() ([]byte, error) {
	doc := make(map[string]any, len(a.Extra)+7)
	for k, v := range a.Extra {
		doc[k] = v
	}
	if a.ID != "" {
		doc[FieldID] = a.ID
	}
	doc[FieldTitle] = a.Title
	doc[FieldArtistEmail] = a.ArtistEmail
	doc[FieldCategory] = a.Category
	doc[FieldLikes] = a.Likes
	doc[FieldCreatedAt] = a.CreatedAt
	doc[FieldUpdatedAt] = a.UpdatedAt
	return json.Marshal(doc)
}

// UnmarshalJSON は平坦なJSONオブジェクトを作品に変換する。
func (a *Artwork) UnmarshalJSON(data []byte) error {
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}

	if v, ok := doc[FieldID]; ok {
		id, ok := v.(string)
		if !ok {
			return fmt.Errorf("%w: _id must be a string", ErrInvalidField)
		}
		a.ID = id
	}

	for _, field := range []struct {
		name string
		dst  *time.Time
	}{
		{FieldCreatedAt, &a.CreatedAt},
		{FieldUpdatedAt, &a.UpdatedAt},
	} {
		v, ok := doc[field.name]
		if !ok {
			continue
		}
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("%w: %s must be a timestamp", ErrInvalidField, field.name)
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidField, field.name, err)
		}
		*field.dst = t
	}

	return a.Apply(doc)
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("not an integer: %v", n)
		}
		return int64(n), nil
	case json.Number:
		return n.Int64()
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}
}

// ArtworkFilter は作品検索の条件。空のフィールドは条件に含めない。
type ArtworkFilter struct {
	// Search はタイトルまたはアーティストのメールアドレスに対する部分一致（大文字小文字を区別しない）。
	Search      string
	Category    string
	ArtistEmail string
}

// Order はソート順。値はMongoDBのソート指定と一致する。
type Order int

const (
	Descending Order = iota - 1
	_
	Ascending
)

// ArtworkSort はソートキー。
type ArtworkSort int

const (
	ByTime ArtworkSort = iota
	ByLikes
)

func (s ArtworkSort) String() string {
	return map[ArtworkSort]string{
		ByTime:  FieldCreatedAt,
		ByLikes: FieldLikes,
	}[s]
}

// ArtworkSearchOptions はページングとソートの指定。
type ArtworkSearchOptions struct {
	Limit int64
	Page  int64
	Order Order
	Sort  ArtworkSort
}

// Skip はページ番号から読み飛ばす件数を計算する。
func (o ArtworkSearchOptions) Skip() int64 {
	if o.Page <= 0 {
		return 0
	}
	return o.Page * o.Limit
}

// DefaultSearchOptions は新しい順に100件を返す既定の検索オプション。
func DefaultSearchOptions() ArtworkSearchOptions {
	return ArtworkSearchOptions{
		Limit: 100,
		Page:  0,
		Order: Descending,
		Sort:  ByTime,
	}
}
