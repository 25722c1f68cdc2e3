package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nao1215/artify/internal/store"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type favoriteStore struct {
	col *mongo.Collection
}

type favoriteDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	ArtworkID string             `bson:"artwork_id"`
	LikesBy   string             `bson:"likes_by"`
	CreatedAt time.Time          `bson:"created_at"`
}

func (d *favoriteDocument) toFavorite() *store.Favorite {
	return &store.Favorite{
		ID:        d.ID.Hex(),
		ArtworkID: d.ArtworkID,
		LikesBy:   d.LikesBy,
		CreatedAt: d.CreatedAt,
	}
}

func pairFilter(artworkID, likesBy string) bson.M {
	return bson.M{"artwork_id": artworkID, "likes_by": likesBy}
}

func (f *favoriteStore) Favorite(ctx context.Context, artworkID, likesBy string) (*store.Favorite, error) {
	var doc favoriteDocument
	if err := f.col.FindOne(ctx, pairFilter(artworkID, likesBy)).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("お気に入りの取得に失敗: %w", err)
	}
	return doc.toFavorite(), nil
}

// InsertFavorite は一意インデックスに任せて挿入する。
// 重複キーエラーは store.ErrDuplicate に変換する。
func (f *favoriteStore) InsertFavorite(ctx context.Context, fav *store.Favorite) (*store.Favorite, error) {
	doc := favoriteDocument{
		ArtworkID: fav.ArtworkID,
		LikesBy:   fav.LikesBy,
		CreatedAt: fav.CreatedAt,
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}

	res, err := f.col.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, store.ErrDuplicate
		}
		return nil, fmt.Errorf("お気に入りの登録に失敗: %w", err)
	}

	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		doc.ID = oid
	}
	return doc.toFavorite(), nil
}

func (f *favoriteStore) DeleteFavorite(ctx context.Context, artworkID, likesBy string) (bool, error) {
	res, err := f.col.DeleteOne(ctx, pairFilter(artworkID, likesBy))
	if err != nil {
		return false, fmt.Errorf("お気に入りの削除に失敗: %w", err)
	}
	return res.DeletedCount > 0, nil
}

func (f *favoriteStore) ListFavorites(ctx context.Context, likesBy string) ([]*store.Favorite, error) {
	cur, err := f.col.Find(
		ctx,
		bson.M{"likes_by": likesBy},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("お気に入りの検索に失敗: %w", err)
	}

	docs := make([]*favoriteDocument, 0)
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("お気に入り一覧のデコードに失敗: %w", err)
	}

	favorites := make([]*store.Favorite, 0, len(docs))
	for _, doc := range docs {
		favorites = append(favorites, doc.toFavorite())
	}
	return favorites, nil
}
