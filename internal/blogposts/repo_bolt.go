package blogposts

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/boltdb/bolt"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/2beens/blogposts/internal/telemetry/tracing"
)

var postsBucket = []byte("blog_posts")

// BoltRepo keeps blog posts as json documents in a single bolt bucket, keyed by uuid.
// Meant for local runs without a database server.
type BoltRepo struct {
	db *bolt.DB
}

func NewBoltRepo(db *bolt.DB) (*BoltRepo, error) {
	err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(postsBucket)
		if err != nil {
			return fmt.Errorf("could not ensure bucket %q exists: %w", postsBucket, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &BoltRepo{db: db}, nil
}

func (r *BoltRepo) put(tx *bolt.Tx, post *BlogPost) error {
	value, err := json.Marshal(post)
	if err != nil {
		return fmt.Errorf("marshal blog post: %w", err)
	}
	if err := tx.Bucket(postsBucket).Put([]byte(post.ID), value); err != nil {
		return fmt.Errorf("could not put blog post %s: %w", post.ID, err)
	}
	return nil
}

func (r *BoltRepo) get(tx *bolt.Tx, id string) (*BlogPost, error) {
	value := tx.Bucket(postsBucket).Get([]byte(id))
	if value == nil {
		return nil, ErrPostNotFound
	}
	var post BlogPost
	if err := json.Unmarshal(value, &post); err != nil {
		return nil, fmt.Errorf("unmarshal blog post %s: %w", id, err)
	}
	return &post, nil
}

func (r *BoltRepo) Add(ctx context.Context, post *BlogPost) error {
	return r.AddMany(ctx, []*BlogPost{post})
}

func (r *BoltRepo) AddMany(ctx context.Context, posts []*BlogPost) error {
	_, span := tracing.GlobalTracer.Start(ctx, "boltRepo.AddMany")
	span.SetAttributes(attribute.Int("count", len(posts)))
	defer span.End()

	ids := make([]string, len(posts))
	err := r.db.Update(func(tx *bolt.Tx) error {
		for i, post := range posts {
			prepareForInsert(post)
			ids[i] = uuid.NewString()

			stored := *post
			stored.ID = ids[i]
			if err := r.put(tx, &stored); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for i, post := range posts {
		post.ID = ids[i]
	}
	return nil
}

func (r *BoltRepo) Get(ctx context.Context, id string) (*BlogPost, error) {
	_, span := tracing.GlobalTracer.Start(ctx, "boltRepo.Get")
	span.SetAttributes(attribute.String("id", id))
	defer span.End()

	var post *BlogPost
	err := r.db.View(func(tx *bolt.Tx) error {
		var err error
		post, err = r.get(tx, id)
		return err
	})
	return post, err
}

func (r *BoltRepo) All(ctx context.Context) ([]*BlogPost, error) {
	_, span := tracing.GlobalTracer.Start(ctx, "boltRepo.All")
	defer span.End()

	var posts []*BlogPost
	err := r.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(postsBucket).ForEach(func(k, v []byte) error {
			var post BlogPost
			if err := json.Unmarshal(v, &post); err != nil {
				return fmt.Errorf("unmarshal blog post %s: %w", k, err)
			}
			posts = append(posts, &post)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(posts, func(i, j int) bool {
		if posts[i].Created.Equal(posts[j].Created) {
			return posts[i].ID > posts[j].ID
		}
		return posts[i].Created.After(posts[j].Created)
	})

	return posts, nil
}

func (r *BoltRepo) Update(ctx context.Context, id string, update PostUpdate) error {
	_, span := tracing.GlobalTracer.Start(ctx, "boltRepo.Update")
	span.SetAttributes(attribute.String("id", id))
	defer span.End()

	return r.db.Update(func(tx *bolt.Tx) error {
		post, err := r.get(tx, id)
		if err != nil {
			return err
		}
		update.Apply(post)
		return r.put(tx, post)
	})
}

func (r *BoltRepo) Delete(ctx context.Context, id string) error {
	_, span := tracing.GlobalTracer.Start(ctx, "boltRepo.Delete")
	span.SetAttributes(attribute.String("id", id))
	defer span.End()

	return r.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(postsBucket)
		key := []byte(id)
		if bucket.Get(key) == nil {
			log.Tracef("blog post %s not deleted, not found", id)
			return nil
		}
		return bucket.Delete(key)
	})
}

func (r *BoltRepo) Count(_ context.Context) (int, error) {
	count := 0
	err := r.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(postsBucket).Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return -1, err
	}
	return count, nil
}

func (r *BoltRepo) Drop(_ context.Context) error {
	log.Warnf("dropping bolt bucket [%s]", postsBucket)
	return r.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(postsBucket); err != nil && err != bolt.ErrBucketNotFound {
			return err
		}
		_, err := tx.CreateBucket(postsBucket)
		return err
	})
}

func (r *BoltRepo) Close(_ context.Context) error {
	return r.db.Close()
}

