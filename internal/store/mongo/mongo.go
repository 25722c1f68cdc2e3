// Package mongo はMongoDBを使ったドキュメントストアの実装を提供する。
package mongo

import (
	"context"
	"errors"
	"fmt"

	"github.com/nao1215/artify/internal/store"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// コレクション名。
const (
	artworksCollection  = "artworks"
	favoritesCollection = "favorites"
)

// mongoStore はMongoDBによる store.Store の実装。
// 接続はプロセス全体で共有し、各リクエストからは同じクライアントを使う。
type mongoStore struct {
	client   *mongo.Client
	database *mongo.Database
	logger   *zap.Logger

	*artworkStore
	*favoriteStore
}

// namespaceExistsCode は作成しようとしたコレクションが既に存在する場合のエラーコード。
const namespaceExistsCode = 48

// New はMongoDBに接続し、疎通を確認したStoreを返す。
func New(ctx context.Context, uri, db string, logger *zap.Logger) (store.Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("MongoDBへの接続に失敗: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("MongoDBの疎通確認に失敗: %w", err)
	}

	return newMongoStore(client, client.Database(db), logger), nil
}

func newMongoStore(client *mongo.Client, database *mongo.Database, logger *zap.Logger) *mongoStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &mongoStore{
		client:        client,
		database:      database,
		logger:        logger.Named("mongo"),
		artworkStore:  &artworkStore{col: database.Collection(artworksCollection)},
		favoriteStore: &favoriteStore{col: database.Collection(favoritesCollection)},
	}
}

// favoriteIndexes はfavoritesのインデックス。
// (artwork_id, likes_by) の一意インデックスが重複登録を防ぐ。
func favoriteIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "artwork_id", Value: 1}, {Key: "likes_by", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("artwork_id_likes_by_unique"),
		},
		{
			Keys:    bson.D{{Key: "likes_by", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("likes_by_created_at"),
		},
	}
}

func artworkIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{Keys: bson.D{{Key: store.FieldArtistEmail, Value: 1}}},
		{Keys: bson.D{{Key: store.FieldCreatedAt, Value: -1}}},
	}
}

// Init はコレクションとインデックスを作成する。既にあるコレクションはそのまま使う。
func (m *mongoStore) Init(ctx context.Context) error {
	for _, col := range []string{artworksCollection, favoritesCollection} {
		if err := m.database.CreateCollection(ctx, col); err != nil && !isNamespaceExists(err) {
			return fmt.Errorf("コレクション%sの作成に失敗: %w", col, err)
		}
	}

	favorites, err := m.favoriteStore.col.Indexes().CreateMany(ctx, favoriteIndexes())
	if err != nil {
		return fmt.Errorf("favoritesのインデックス作成に失敗: %w", err)
	}

	artworks, err := m.artworkStore.col.Indexes().CreateMany(ctx, artworkIndexes())
	if err != nil {
		return fmt.Errorf("artworksのインデックス作成に失敗: %w", err)
	}

	m.logger.Info("mongo indexes ensured", zap.Strings("favorites", favorites), zap.Strings("artworks", artworks))
	return nil
}

func isNamespaceExists(err error) bool {
	var cmdErr mongo.CommandError
	return errors.As(err, &cmdErr) && cmdErr.Code == namespaceExistsCode
}

// Close はクライアントを切断する。
func (m *mongoStore) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}
