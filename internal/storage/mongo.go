package storage

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"flickfusion-tg-bot/internal/catalog"
)

// Mongo implements Store on top of a MongoDB database with a movies
// collection, a counters collection for id assignment, and request_logs
// and users side collections.
type Mongo struct {
	client   *mongo.Client
	movies   *mongo.Collection
	counters *mongo.Collection
	requests *mongo.Collection
	users    *mongo.Collection
}

type movieDoc struct {
	ID              int64     `bson:"id"`
	Title           string    `bson:"title"`
	SearchKey       string    `bson:"search_key"`
	Year            int       `bson:"year,omitempty"`
	SourceChatID    int64     `bson:"source_chat_id"`
	SourceMessageID int       `bson:"source_message_id"`
	AddedBy         int64     `bson:"added_by"`
	CreatedAt       time.Time `bson:"created_at"`
}

func NewMongo(ctx context.Context, uri string) (*Mongo, error) {
	if uri == "" {
		return nil, errors.New("MONGODB_URI is empty")
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	db := client.Database("flickfusion")
	m := &Mongo{
		client:   client,
		movies:   db.Collection("movies"),
		counters: db.Collection("counters"),
		requests: db.Collection("request_logs"),
		users:    db.Collection("users"),
	}
	_, _ = m.movies.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{bson.E{Key: "id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return m, nil
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

func (m *Mongo) nextID(ctx context.Context) (int64, error) {
	res := m.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": "movies"},
		bson.M{"$inc": bson.M{"seq": 1}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	)
	var doc struct {
		Seq int64 `bson:"seq"`
	}
	if err := res.Decode(&doc); err != nil {
		return 0, err
	}
	return doc.Seq, nil
}

func (m *Mongo) CreateMovie(ctx context.Context, rec catalog.MovieRecord) (catalog.MovieRecord, error) {
	id, err := m.nextID(ctx)
	if err != nil {
		return catalog.MovieRecord{}, err
	}
	rec.ID = id
	rec.SearchKey = catalog.NormalizeTitle(rec.Title)
	rec.CreatedAt = time.Now().UTC()
	_, err = m.movies.InsertOne(ctx, movieDoc{
		ID:              rec.ID,
		Title:           rec.Title,
		SearchKey:       rec.SearchKey,
		Year:            rec.Year,
		SourceChatID:    rec.Source.ChatID,
		SourceMessageID: rec.Source.MessageID,
		AddedBy:         rec.AddedBy,
		CreatedAt:       rec.CreatedAt,
	})
	if err != nil {
		return catalog.MovieRecord{}, err
	}
	return rec, nil
}

func (m *Mongo) MovieByID(ctx context.Context, id int64) (catalog.MovieRecord, error) {
	var doc movieDoc
	err := m.movies.FindOne(ctx, bson.M{"id": id}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return catalog.MovieRecord{}, ErrNotFound
	}
	if err != nil {
		return catalog.MovieRecord{}, err
	}
	return doc.record(), nil
}

func (m *Mongo) All(ctx context.Context) ([]catalog.MovieRecord, error) {
	opts := options.Find().SetSort(bson.D{bson.E{Key: "id", Value: 1}})
	cur, err := m.movies.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var records []catalog.MovieRecord
	for cur.Next(ctx) {
		var doc movieDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		records = append(records, doc.record())
	}
	return records, cur.Err()
}

func (m *Mongo) DeleteMovie(ctx context.Context, id int64) error {
	res, err := m.movies.DeleteOne(ctx, bson.M{"id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *Mongo) LogRequest(ctx context.Context, userID, movieID, chatID int64) error {
	_, err := m.requests.InsertOne(ctx, bson.M{
		"user_id":      userID,
		"movie_id":     movieID,
		"chat_id":      chatID,
		"requested_at": time.Now().UTC(),
	})
	return err
}

func (m *Mongo) UpsertUser(ctx context.Context, userID int64) error {
	now := time.Now().UTC()
	_, err := m.users.UpdateOne(ctx,
		bson.M{"user_id": userID},
		bson.M{
			"$set":         bson.M{"last_seen": now},
			"$setOnInsert": bson.M{"user_id": userID, "first_seen": now},
		},
		options.Update().SetUpsert(true),
	)
	return err
}

func (m *Mongo) UserIDs(ctx context.Context) ([]int64, error) {
	cur, err := m.users.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var ids []int64
	for cur.Next(ctx) {
		var doc struct {
			UserID int64 `bson:"user_id"`
		}
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		ids = append(ids, doc.UserID)
	}
	return ids, cur.Err()
}

func (m *Mongo) Stats(ctx context.Context) (Stats, error) {
	movies, err := m.movies.CountDocuments(ctx, bson.M{})
	if err != nil {
		return Stats{}, err
	}
	users, err := m.users.CountDocuments(ctx, bson.M{})
	if err != nil {
		return Stats{}, err
	}
	requests, err := m.requests.CountDocuments(ctx, bson.M{})
	if err != nil {
		return Stats{}, err
	}
	return Stats{Movies: movies, Users: users, Requests: requests}, nil
}

func (d movieDoc) record() catalog.MovieRecord {
	return catalog.MovieRecord{
		ID:        d.ID,
		Title:     d.Title,
		SearchKey: d.SearchKey,
		Year:      d.Year,
		Source:    catalog.SourceRef{ChatID: d.SourceChatID, MessageID: d.SourceMessageID},
		AddedBy:   d.AddedBy,
		CreatedAt: d.CreatedAt,
	}
}
