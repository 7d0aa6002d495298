package blogposts

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrPostNotFound = errors.New("blog post not found")
)

type Author struct {
	FirstName string `json:"firstName" bson:"firstName"`
	LastName  string `json:"lastName" bson:"lastName"`
}

// DisplayName is the author as exposed on read: "firstName lastName".
func (a Author) DisplayName() string {
	return strings.TrimSpace(strings.TrimSpace(a.FirstName) + " " + strings.TrimSpace(a.LastName))
}

type BlogPost struct {
	ID      string    `json:"id"`
	Author  Author    `json:"author"`
	Title   string    `json:"title"`
	Content string    `json:"content"`
	Created time.Time `json:"created"`
}

// PostUpdate holds the fields of a partial update, nil fields are left untouched.
type PostUpdate struct {
	Title   *string
	Content *string
	Author  *Author
}

func (u PostUpdate) IsEmpty() bool {
	return u.Title == nil && u.Content == nil && u.Author == nil
}

// Apply sets the supplied fields on the post, ID and Created are never touched.
func (u PostUpdate) Apply(post *BlogPost) {
	if u.Title != nil {
		post.Title = *u.Title
	}
	if u.Content != nil {
		post.Content = *u.Content
	}
	if u.Author != nil {
		post.Author = *u.Author
	}
}

// PostResponse is the public representation of a blog post.
type PostResponse struct {
	ID      string    `json:"id"`
	Author  string    `json:"author"`
	Title   string    `json:"title"`
	Content string    `json:"content"`
	Created time.Time `json:"created"`
}

func (p *BlogPost) Serialize() PostResponse {
	return PostResponse{
		ID:      p.ID,
		Author:  p.Author.DisplayName(),
		Title:   p.Title,
		Content: p.Content,
		Created: p.Created,
	}
}

// prepareForInsert defaults the creation timestamp. Millisecond precision
// is the common denominator of all the stores (mongo keeps only millis).
func prepareForInsert(post *BlogPost) {
	if post.Created.IsZero() {
		post.Created = time.Now()
	}
	post.Created = post.Created.UTC().Truncate(time.Millisecond)
}
