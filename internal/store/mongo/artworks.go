package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/nao1215/artify/internal/store"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type artworkStore struct {
	col *mongo.Collection
}

// artworkDocument は作品のBSON表現。既知のフィールド以外はExtraにインラインで保持する。
type artworkDocument struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Title       string             `bson:"title"`
	ArtistEmail string             `bson:"artist_email"`
	Category    string             `bson:"category"`
	Likes       int64              `bson:"likes"`
	CreatedAt   time.Time          `bson:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at"`
	Extra       bson.M             `bson:",inline"`
}

func newArtworkDocument(a *store.Artwork) *artworkDocument {
	doc := &artworkDocument{
		Title:       a.Title,
		ArtistEmail: a.ArtistEmail,
		Category:    a.Category,
		Likes:       a.Likes,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
	if len(a.Extra) > 0 {
		doc.Extra = bson.M{}
		for k, v := range a.Extra {
			doc.Extra[k] = v
		}
	}
	return doc
}

func (d *artworkDocument) toArtwork() *store.Artwork {
	a := &store.Artwork{
		ID:          d.ID.Hex(),
		Title:       d.Title,
		ArtistEmail: d.ArtistEmail,
		Category:    d.Category,
		Likes:       d.Likes,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
	if len(d.Extra) > 0 {
		a.Extra = make(map[string]any, len(d.Extra))
		for k, v := range d.Extra {
			a.Extra[k] = plain(v)
		}
	}
	return a
}

// plain はドライバ固有の型をJSONにそのまま出せる型に変換する。
func plain(v any) any {
	switch x := v.(type) {
	case primitive.D:
		m := make(map[string]any, len(x))
		for _, e := range x {
			m[e.Key] = plain(e.Value)
		}
		return m
	case primitive.M:
		m := make(map[string]any, len(x))
		for k, e := range x {
			m[k] = plain(e)
		}
		return m
	case primitive.A:
		s := make([]any, len(x))
		for i, e := range x {
			s[i] = plain(e)
		}
		return s
	case primitive.ObjectID:
		return x.Hex()
	case primitive.DateTime:
		return x.Time().UTC()
	default:
		return v
	}
}

// objectID は不正な16進文字列を「存在しないID」として扱う。
func objectID(id string) (primitive.ObjectID, bool) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, false
	}
	return oid, true
}

func (a *artworkStore) Artwork(ctx context.Context, id string) (*store.Artwork, error) {
	oid, ok := objectID(id)
	if !ok {
		return nil, store.ErrNotFound
	}

	var doc artworkDocument
	if err := a.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("作品のデコードに失敗: %w", err)
	}
	return doc.toArtwork(), nil
}

func (a *artworkStore) ArtworksByIDs(ctx context.Context, ids []string) ([]*store.Artwork, error) {
	oids := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, ok := objectID(id); ok {
			oids = append(oids, oid)
		}
	}
	if len(oids) == 0 {
		return []*store.Artwork{}, nil
	}

	return a.find(ctx, bson.M{"_id": bson.M{"$in": oids}})
}

func (a *artworkStore) SearchArtworks(ctx context.Context, filter store.ArtworkFilter, opts store.ArtworkSearchOptions) ([]*store.Artwork, error) {
	return a.find(ctx, filterBSON(filter), findOptions(opts))
}

func (a *artworkStore) CreateArtwork(ctx context.Context, artwork *store.Artwork) (*store.Artwork, error) {
	doc := newArtworkDocument(artwork)
	doc.CreatedAt = time.Now().UTC()
	doc.UpdatedAt = doc.CreatedAt

	res, err := a.col.InsertOne(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("作品の登録に失敗: %w", err)
	}

	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		doc.ID = oid
	}
	return doc.toArtwork(), nil
}

func (a *artworkStore) UpdateArtwork(ctx context.Context, id string, fields map[string]any) (*store.Artwork, error) {
	set, err := store.NormalizeUpdate(fields)
	if err != nil {
		return nil, err
	}
	set[store.FieldUpdatedAt] = time.Now().UTC()

	return a.findOneAndUpdate(ctx, id, bson.M{"$set": set})
}

func (a *artworkStore) LikeArtwork(ctx context.Context, id string) (*store.Artwork, error) {
	return a.findOneAndUpdate(ctx, id, bson.M{
		"$inc": bson.M{store.FieldLikes: 1},
		"$set": bson.M{store.FieldUpdatedAt: time.Now().UTC()},
	})
}

func (a *artworkStore) DeleteArtwork(ctx context.Context, id string) error {
	oid, ok := objectID(id)
	if !ok {
		return store.ErrNotFound
	}

	res, err := a.col.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("作品の削除に失敗: %w", err)
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (a *artworkStore) findOneAndUpdate(ctx context.Context, id string, update bson.M) (*store.Artwork, error) {
	oid, ok := objectID(id)
	if !ok {
		return nil, store.ErrNotFound
	}

	var doc artworkDocument
	err := a.col.FindOneAndUpdate(
		ctx,
		bson.M{"_id": oid},
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("作品の更新に失敗: %w", err)
	}
	return doc.toArtwork(), nil
}

func (a *artworkStore) find(ctx context.Context, filter any, opts ...*options.FindOptions) ([]*store.Artwork, error) {
	cur, err := a.col.Find(ctx, filter, opts...)
	if err != nil {
		return nil, fmt.Errorf("作品の検索に失敗: %w", err)
	}

	docs := make([]*artworkDocument, 0)
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("作品一覧のデコードに失敗: %w", err)
	}

	artworks := make([]*store.Artwork, 0, len(docs))
	for _, doc := range docs {
		artworks = append(artworks, doc.toArtwork())
	}
	return artworks, nil
}

func findOptions(o store.ArtworkSearchOptions) *options.FindOptions {
	sort := bson.D{{Key: o.Sort.String(), Value: int(o.Order)}, {Key: "_id", Value: int(o.Order)}}
	if o.Sort.String() == "" {
		sort[0].Key = store.FieldCreatedAt
	}
	if o.Order == 0 {
		sort[0].Value, sort[1].Value = int(store.Descending), int(store.Descending)
	}

	return options.Find().SetLimit(o.Limit).SetSkip(o.Skip()).SetSort(sort)
}

func filterBSON(f store.ArtworkFilter) bson.D {
	filter := bson.D{}

	regex := func(key, value string) bson.M {
		return bson.M{key: primitive.Regex{Pattern: regexp.QuoteMeta(value), Options: "i"}}
	}

	if f.Search != "" {
		filter = append(filter, bson.E{
			Key:   "$or",
			Value: bson.A{regex(store.FieldTitle, f.Search), regex(store.FieldArtistEmail, f.Search)},
		})
	}

	if f.Category != "" {
		filter = append(filter, bson.E{Key: store.FieldCategory, Value: f.Category})
	}

	if f.ArtistEmail != "" {
		filter = append(filter, bson.E{Key: store.FieldArtistEmail, Value: f.ArtistEmail})
	}

	return filter
}
