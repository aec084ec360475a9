package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/user/watchwise/internal/logger"
	"github.com/user/watchwise/internal/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// InitMongo 连接 MongoDB 并创建所需索引
func InitMongo(ctx context.Context, url, database string) (*mongo.Database, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(url))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	db := client.Database(database)
	if err := ensureMongoIndexes(ctx, db); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	logger.For("repository").WithField("db", database).Info("connected to MongoDB")
	return db, nil
}

func ensureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	if _, err := db.Collection("credentials").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return err
	}
	_, err := db.Collection("watchlists").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "members", Value: 1}, {Key: "updatedAt", Value: -1}},
	})
	return err
}

// NewMongoRepositories 创建基于 MongoDB 的仓库集合
func NewMongoRepositories(db *mongo.Database, revocations RevocationStore) *Repositories {
	repos := &Repositories{
		Profiles:    &MongoUserRepository{coll: db.Collection("users")},
		Watchlists:  &MongoWatchlistRepository{coll: db.Collection("watchlists")},
		Credentials: &MongoCredentialRepository{coll: db.Collection("credentials")},
		Revocations: revocations,
	}
	repos.AddCloser(func(ctx context.Context) error {
		return db.Client().Disconnect(ctx)
	})
	return repos
}

// ==================== users ====================

type MongoUserRepository struct {
	coll *mongo.Collection
}

func (r *MongoUserRepository) GetProfile(ctx context.Context, uid string) (*model.UserProfile, error) {
	var profile model.UserProfile
	err := r.coll.FindOne(ctx, bson.M{"_id": uid}).Decode(&profile)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *MongoUserRepository) CreateProfile(ctx context.Context, profile *model.UserProfile) error {
	if profile.Watchlist == nil {
		profile.Watchlist = pq.StringArray{}
	}
	_, err := r.coll.ReplaceOne(ctx, bson.M{"_id": profile.UID}, profile, options.Replace().SetUpsert(true))
	return err
}

func (r *MongoUserRepository) AppendWatchlistMarker(ctx context.Context, uid, watchlistID string) error {
	_, err := r.coll.UpdateOne(ctx, bson.M{"_id": uid}, bson.M{"$addToSet": bson.M{"watchlist": watchlistID}})
	return err
}

// ==================== watchlists ====================

type MongoWatchlistRepository struct {
	coll *mongo.Collection
}

func (r *MongoWatchlistRepository) CreateWatchlist(ctx context.Context, w *model.Watchlist) error {
	if w.Movies == nil {
		w.Movies = pq.StringArray{}
	}
	_, err := r.coll.InsertOne(ctx, w)
	return err
}

func (r *MongoWatchlistRepository) FindWatchlist(ctx context.Context, id string) (*model.Watchlist, error) {
	var w model.Watchlist
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&w)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *MongoWatchlistRepository) ListByMember(ctx context.Context, uid string) ([]*model.Watchlist, error) {
	opts := options.Find().SetSort(bson.D{{Key: "updatedAt", Value: -1}})
	cursor, err := r.coll.Find(ctx, bson.M{"members": uid}, opts)
	if err != nil {
		return nil, err
	}
	var lists []*model.Watchlist
	if err := cursor.All(ctx, &lists); err != nil {
		return nil, err
	}
	return lists, nil
}

func (r *MongoWatchlistRepository) UpdateIfVersion(ctx context.Context, w *model.Watchlist, expected int64) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": w.ID, "version": expected},
		bson.M{"$set": bson.M{
			"members":   w.Members,
			"movies":    w.Movies,
			"updatedAt": w.UpdatedAt,
			"version":   expected + 1,
		}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrVersionConflict
	}
	w.Version = expected + 1
	return nil
}

// ==================== credentials ====================

type MongoCredentialRepository struct {
	coll *mongo.Collection
}

func (r *MongoCredentialRepository) CreateCredential(ctx context.Context, c *model.Credential) error {
	c.Email = strings.ToLower(c.Email)
	_, err := r.coll.InsertOne(ctx, c)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateEmail
	}
	return err
}

func (r *MongoCredentialRepository) FindByEmail(ctx context.Context, email string) (*model.Credential, error) {
	return r.findOne(ctx, bson.M{"email": strings.ToLower(email)})
}

func (r *MongoCredentialRepository) findOne(ctx context.Context, filter bson.M) (*model.Credential, error) {
	var c model.Credential
	err := r.coll.FindOne(ctx, filter).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *MongoCredentialRepository) ListWithoutProfile(ctx context.Context, before time.Time, limit int) ([]*model.Credential, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"createdAt": bson.M{"$lt": before}}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         "users",
			"localField":   "_id",
			"foreignField": "_id",
			"as":           "profile",
		}}},
		{{Key: "$match", Value: bson.M{"profile": bson.M{"$size": 0}}}},
		{{Key: "$sort", Value: bson.M{"createdAt": 1}}},
		{{Key: "$limit", Value: limit}},
		{{Key: "$project", Value: bson.M{"profile": 0}}},
	}
	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	var creds []*model.Credential
	if err := cursor.All(ctx, &creds); err != nil {
		return nil, err
	}
	return creds, nil
}
