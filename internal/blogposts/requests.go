package blogposts

import (
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// notBlank rejects whitespace-only strings, empty ones are left to Required/NilOrNotEmpty.
var notBlank = validation.Match(regexp.MustCompile(`\S`))

type authorRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

func (r authorRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FirstName,
			validation.Required.Error("firstName is required"),
			notBlank.Error("firstName cannot be blank"),
		),
		validation.Field(&r.LastName,
			validation.Required.Error("lastName is required"),
			notBlank.Error("lastName cannot be blank"),
		),
	)
}

func (r *authorRequest) toAuthor() Author {
	return Author{
		FirstName: r.FirstName,
		LastName:  r.LastName,
	}
}

type newPostRequest struct {
	Title   string         `json:"title"`
	Content string         `json:"content"`
	Author  *authorRequest `json:"author"`
}

func (r newPostRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title,
			validation.Required.Error("title is required"),
			notBlank.Error("title cannot be blank"),
		),
		validation.Field(&r.Content,
			validation.Required.Error("content is required"),
			notBlank.Error("content cannot be blank"),
		),
		validation.Field(&r.Author, validation.Required.Error("author is required")),
	)
}

func (r *newPostRequest) toBlogPost() *BlogPost {
	return &BlogPost{
		Title:   r.Title,
		Content: r.Content,
		Author:  r.Author.toAuthor(),
	}
}

type updatePostRequest struct {
	ID      string         `json:"id"`
	Title   *string        `json:"title"`
	Content *string        `json:"content"`
	Author  *authorRequest `json:"author"`
}

// Validate checks only the supplied fields, the id is checked against the path by the handler.
func (r updatePostRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title,
			validation.NilOrNotEmpty.Error("title cannot be empty"),
			notBlank.Error("title cannot be blank"),
		),
		validation.Field(&r.Content,
			validation.NilOrNotEmpty.Error("content cannot be empty"),
			notBlank.Error("content cannot be blank"),
		),
		validation.Field(&r.Author),
	)
}

func (r *updatePostRequest) toPostUpdate() PostUpdate {
	update := PostUpdate{
		Title:   r.Title,
		Content: r.Content,
	}
	if r.Author != nil {
		author := r.Author.toAuthor()
		update.Author = &author
	}
	return update
}
