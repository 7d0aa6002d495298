package blogposts

import (
	"context"
	"fmt"

	"github.com/brianvoe/gofakeit/v6"
	log "github.com/sirupsen/logrus"
)

// FakePosts builds n posts with fake authors, titles and contents. IDs and creation times are left to the store.
func FakePosts(n int) []*BlogPost {
	posts := make([]*BlogPost, 0, n)
	for i := 0; i < n; i++ {
		posts = append(posts, &BlogPost{
			Author: Author{
				FirstName: gofakeit.FirstName(),
				LastName:  gofakeit.LastName(),
			},
			Title:   gofakeit.Sentence(4),
			Content: gofakeit.Paragraph(2, 3, 12, " "),
		})
	}
	return posts
}

type bulkAdder interface {
	AddMany(ctx context.Context, posts []*BlogPost) error
}

// SeedFakePosts inserts n fake posts with a single bulk insert.
func SeedFakePosts(ctx context.Context, repo bulkAdder, n int) ([]*BlogPost, error) {
	if n <= 0 {
		return nil, nil
	}

	posts := FakePosts(n)
	if err := repo.AddMany(ctx, posts); err != nil {
		return nil, fmt.Errorf("seed %d posts: %w", n, err)
	}

	log.Debugf("seeded %d fake blog posts", n)
	return posts, nil
}
