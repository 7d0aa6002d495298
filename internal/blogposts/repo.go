package blogposts

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/2beens/blogposts/internal/db"
)

// Repo is the blog posts store. Implementations: MongoRepo, PsqlRepo, BoltRepo.
type Repo interface {
	// Add assigns the ID and the creation time, and inserts the post.
	Add(ctx context.Context, post *BlogPost) error
	AddMany(ctx context.Context, posts []*BlogPost) error
	Get(ctx context.Context, id string) (*BlogPost, error)
	// All returns all posts, newest first.
	All(ctx context.Context) ([]*BlogPost, error)
	Update(ctx context.Context, id string, update PostUpdate) error
	// Delete is idempotent, deleting a missing post is not an error.
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
	// Drop removes all the stored posts.
	Drop(ctx context.Context) error
	Close(ctx context.Context) error
}

var (
	_ Repo = (*MongoRepo)(nil)
	_ Repo = (*PsqlRepo)(nil)
	_ Repo = (*BoltRepo)(nil)
)

type OpenRepoParams struct {
	DatabaseURL    string
	TracingEnabled bool
}

// OpenRepo connects to the store the database url points to.
func OpenRepo(ctx context.Context, params OpenRepoParams) (Repo, error) {
	driver, err := db.DriverFromURL(params.DatabaseURL)
	if err != nil {
		return nil, err
	}

	log.Debugf("opening blog posts repo, driver: %s", driver)

	switch driver {
	case db.DriverMongo:
		client, mongoDB, err := db.NewMongoClient(ctx, params.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return NewMongoRepo(client, mongoDB), nil
	case db.DriverPostgres:
		dbPool, err := db.NewDBPool(ctx, db.NewDBPoolParams{
			ConnString:     params.DatabaseURL,
			TracingEnabled: params.TracingEnabled,
		})
		if err != nil {
			return nil, err
		}
		repo := NewPsqlRepo(dbPool)
		if err := repo.EnsureSchema(ctx); err != nil {
			dbPool.Close()
			return nil, err
		}
		return repo, nil
	case db.DriverBolt:
		boltDB, err := db.OpenBolt(params.DatabaseURL)
		if err != nil {
			return nil, err
		}
		repo, err := NewBoltRepo(boltDB)
		if err != nil {
			_ = boltDB.Close()
			return nil, err
		}
		return repo, nil
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}
}
