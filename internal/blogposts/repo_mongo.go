package blogposts

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel/attribute"

	"github.com/2beens/blogposts/internal/telemetry/tracing"
)

const postsCollection = "blogposts"

type mongoPost struct {
	ID      primitive.ObjectID `bson:"_id,omitempty"`
	Author  Author             `bson:"author"`
	Title   string             `bson:"title"`
	Content string             `bson:"content"`
	Created time.Time          `bson:"created"`
}

func (p *mongoPost) toBlogPost() *BlogPost {
	return &BlogPost{
		ID:      p.ID.Hex(),
		Author:  p.Author,
		Title:   p.Title,
		Content: p.Content,
		Created: p.Created.UTC(),
	}
}

func newMongoPost(post *BlogPost) *mongoPost {
	return &mongoPost{
		Author:  post.Author,
		Title:   post.Title,
		Content: post.Content,
		Created: post.Created,
	}
}

// MongoRepo stores blog posts as documents in the "blogposts" collection.
type MongoRepo struct {
	client     *mongo.Client
	collection *mongo.Collection
}

func NewMongoRepo(client *mongo.Client, db *mongo.Database) *MongoRepo {
	return &MongoRepo{
		client:     client,
		collection: db.Collection(postsCollection),
	}
}

func (r *MongoRepo) Add(ctx context.Context, post *BlogPost) error {
	ctx, span := tracing.GlobalTracer.Start(ctx, "mongoRepo.Add")
	defer span.End()

	prepareForInsert(post)

	res, err := r.collection.InsertOne(ctx, newMongoPost(post))
	if err != nil {
		return fmt.Errorf("insert blog post: %w", err)
	}

	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return fmt.Errorf("unexpected inserted id type: %T", res.InsertedID)
	}
	post.ID = oid.Hex()

	return nil
}

func (r *MongoRepo) AddMany(ctx context.Context, posts []*BlogPost) error {
	ctx, span := tracing.GlobalTracer.Start(ctx, "mongoRepo.AddMany")
	span.SetAttributes(attribute.Int("count", len(posts)))
	defer span.End()

	if len(posts) == 0 {
		return nil
	}

	docs := make([]interface{}, 0, len(posts))
	for _, post := range posts {
		prepareForInsert(post)
		docs = append(docs, newMongoPost(post))
	}

	res, err := r.collection.InsertMany(ctx, docs)
	if err != nil {
		return fmt.Errorf("insert blog posts: %w", err)
	}

	// inserted ids come back in the order of the documents (ordered insert)
	for i, insertedID := range res.InsertedIDs {
		if oid, ok := insertedID.(primitive.ObjectID); ok {
			posts[i].ID = oid.Hex()
		}
	}

	return nil
}

func (r *MongoRepo) Get(ctx context.Context, id string) (*BlogPost, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "mongoRepo.Get")
	span.SetAttributes(attribute.String("id", id))
	defer span.End()

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		log.Tracef("get blog post, invalid object id [%s]: %s", id, err)
		return nil, ErrPostNotFound
	}

	var doc mongoPost
	if err := r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrPostNotFound
		}
		return nil, fmt.Errorf("find blog post %s: %w", id, err)
	}

	return doc.toBlogPost(), nil
}

func (r *MongoRepo) All(ctx context.Context) ([]*BlogPost, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "mongoRepo.All")
	defer span.End()

	cursor, err := r.collection.Find(
		ctx,
		bson.D{},
		options.Find().SetSort(bson.D{{Key: "created", Value: -1}, {Key: "_id", Value: -1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("find blog posts: %w", err)
	}

	var docs []mongoPost
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode blog posts: %w", err)
	}

	posts := make([]*BlogPost, 0, len(docs))
	for i := range docs {
		posts = append(posts, docs[i].toBlogPost())
	}

	return posts, nil
}

func (r *MongoRepo) Update(ctx context.Context, id string, update PostUpdate) error {
	ctx, span := tracing.GlobalTracer.Start(ctx, "mongoRepo.Update")
	span.SetAttributes(attribute.String("id", id))
	defer span.End()

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrPostNotFound
	}
	filter := bson.M{"_id": oid}

	set := bson.M{}
	if update.Title != nil {
		set["title"] = *update.Title
	}
	if update.Content != nil {
		set["content"] = *update.Content
	}
	if update.Author != nil {
		set["author"] = *update.Author
	}

	if len(set) == 0 {
		// nothing to change, just make sure the post is there
		count, err := r.collection.CountDocuments(ctx, filter)
		if err != nil {
			return fmt.Errorf("count blog post %s: %w", id, err)
		}
		if count == 0 {
			return ErrPostNotFound
		}
		return nil
	}

	res, err := r.collection.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("update blog post %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return ErrPostNotFound
	}

	return nil
}

func (r *MongoRepo) Delete(ctx context.Context, id string) error {
	ctx, span := tracing.GlobalTracer.Start(ctx, "mongoRepo.Delete")
	span.SetAttributes(attribute.String("id", id))
	defer span.End()

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		log.Tracef("delete blog post, invalid object id [%s], nothing to delete", id)
		return nil
	}

	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete blog post %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		log.Tracef("blog post %s not deleted, not found", id)
	}

	return nil
}

func (r *MongoRepo) Count(ctx context.Context) (int, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "mongoRepo.Count")
	defer span.End()

	count, err := r.collection.CountDocuments(ctx, bson.D{})
	if err != nil {
		return -1, fmt.Errorf("count blog posts: %w", err)
	}
	return int(count), nil
}

// Drop drops the whole database, leaving nothing behind after tests.
func (r *MongoRepo) Drop(ctx context.Context) error {
	log.Warnf("dropping mongo database [%s]", r.collection.Database().Name())
	if err := r.collection.Database().Drop(ctx); err != nil {
		return fmt.Errorf("drop database: %w", err)
	}
	return nil
}

func (r *MongoRepo) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}
