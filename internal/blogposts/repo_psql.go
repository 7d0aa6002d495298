package blogposts

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/2beens/blogposts/internal/telemetry/tracing"
)

const psqlSchema = `
	CREATE TABLE IF NOT EXISTS blog_post (
		id      UUID PRIMARY KEY,
		author  JSONB NOT NULL,
		title   TEXT NOT NULL,
		content TEXT NOT NULL,
		created TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS blog_post_created_idx ON blog_post (created DESC);
`

// PsqlRepo stores blog posts in the blog_post table, author kept as jsonb.
type PsqlRepo struct {
	db *pgxpool.Pool
}

func NewPsqlRepo(db *pgxpool.Pool) *PsqlRepo {
	return &PsqlRepo{
		db: db,
	}
}

// Pool is exposed for the pool stats collector.
func (r *PsqlRepo) Pool() *pgxpool.Pool {
	return r.db
}

func (r *PsqlRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, psqlSchema); err != nil {
		return fmt.Errorf("ensure blog_post schema: %w", err)
	}
	return nil
}

const insertPostQuery = `INSERT INTO blog_post (id, author, title, content, created) VALUES ($1, $2, $3, $4, $5);`

func (r *PsqlRepo) Add(ctx context.Context, post *BlogPost) error {
	ctx, span := tracing.GlobalTracer.Start(ctx, "psqlRepo.Add")
	defer span.End()

	prepareForInsert(post)
	id := uuid.New()

	if _, err := r.db.Exec(
		ctx,
		insertPostQuery,
		id, post.Author, post.Title, post.Content, post.Created,
	); err != nil {
		return fmt.Errorf("insert blog post: %w", err)
	}

	post.ID = id.String()
	return nil
}

func (r *PsqlRepo) AddMany(ctx context.Context, posts []*BlogPost) error {
	ctx, span := tracing.GlobalTracer.Start(ctx, "psqlRepo.AddMany")
	span.SetAttributes(attribute.Int("count", len(posts)))
	defer span.End()

	if len(posts) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, len(posts))
	batch := &pgx.Batch{}
	for i, post := range posts {
		prepareForInsert(post)
		ids[i] = uuid.New()
		batch.Queue(insertPostQuery, ids[i], post.Author, post.Title, post.Content, post.Created)
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		// no-op if already committed
		_ = tx.Rollback(ctx)
	}()

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert blog posts batch: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}

	for i, post := range posts {
		post.ID = ids[i].String()
	}

	return nil
}

func (r *PsqlRepo) Get(ctx context.Context, id string) (*BlogPost, error) {
	log.Tracef("getting blog post %s", id)

	ctx, span := tracing.GlobalTracer.Start(ctx, "psqlRepo.Get")
	span.SetAttributes(attribute.String("id", id))
	defer span.End()

	postID, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrPostNotFound
	}

	rows, err := r.db.Query(
		ctx,
		`
			SELECT id::text, author, title, content, created FROM blog_post
			WHERE id = $1;
		`,
		postID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts, err := r.rows2posts(rows)
	if err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		return nil, ErrPostNotFound
	}

	return posts[0], nil
}

func (r *PsqlRepo) All(ctx context.Context) ([]*BlogPost, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "psqlRepo.All")
	defer span.End()

	rows, err := r.db.Query(
		ctx,
		`SELECT id::text, author, title, content, created FROM blog_post ORDER BY created DESC, id DESC;`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.rows2posts(rows)
}

func (r *PsqlRepo) Update(ctx context.Context, id string, update PostUpdate) error {
	ctx, span := tracing.GlobalTracer.Start(ctx, "psqlRepo.Update")
	span.SetAttributes(attribute.String("id", id))
	defer span.End()

	postID, err := uuid.Parse(id)
	if err != nil {
		return ErrPostNotFound
	}

	// nil fields are sent as NULL and keep the current column value
	tag, err := r.db.Exec(
		ctx,
		`
			UPDATE blog_post SET
				title = COALESCE($2, title),
				content = COALESCE($3, content),
				author = COALESCE($4, author)
			WHERE id = $1;
		`,
		postID, update.Title, update.Content, update.Author,
	)
	if err != nil {
		return fmt.Errorf("update blog post %s: %w", id, err)
	}

	if tag.RowsAffected() == 0 {
		return ErrPostNotFound
	}

	return nil
}

func (r *PsqlRepo) Delete(ctx context.Context, id string) error {
	ctx, span := tracing.GlobalTracer.Start(ctx, "psqlRepo.Delete")
	span.SetAttributes(attribute.String("id", id))
	defer span.End()

	postID, err := uuid.Parse(id)
	if err != nil {
		return nil
	}

	tag, err := r.db.Exec(ctx, `DELETE FROM blog_post WHERE id = $1`, postID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		log.Tracef("blog post %s not deleted, not found", id)
	}

	return nil
}

func (r *PsqlRepo) Count(ctx context.Context) (int, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "psqlRepo.Count")
	defer span.End()

	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM blog_post`).Scan(&count); err != nil {
		return -1, err
	}
	return count, nil
}

func (r *PsqlRepo) Drop(ctx context.Context) error {
	log.Warn("truncating blog_post table")
	_, err := r.db.Exec(ctx, `TRUNCATE TABLE blog_post;`)
	return err
}

func (r *PsqlRepo) Close(_ context.Context) error {
	r.db.Close()
	return nil
}

func (r *PsqlRepo) rows2posts(rows pgx.Rows) ([]*BlogPost, error) {
	var posts []*BlogPost
	for rows.Next() {
		var id string
		var author Author
		var title string
		var content string
		var created time.Time
		if err := rows.Scan(&id, &author, &title, &content, &created); err != nil {
			return nil, err
		}
		posts = append(posts, &BlogPost{
			ID:      id,
			Author:  author,
			Title:   title,
			Content: content,
			Created: created.UTC(),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return posts, nil
}
