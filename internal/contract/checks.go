package contract

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/brianvoe/gofakeit/v6"
)

// unknownPostID is a well-formed mongo ObjectID that is never generated, and a malformed id for the
// uuid based stores. Both have to be answered as not found.
const unknownPostID = "000000000000000000000000"

var postKeys = []string{"id", "author", "title", "content", "created"}

type Check struct {
	Name string
	Run  func(ctx context.Context, c *Client) error
}

type post struct {
	ID      string `json:"id"`
	Author  string `json:"author"`
	Title   string `json:"title"`
	Content string `json:"content"`
	Created string `json:"created"`
}

func expectStatus(resp *Response, expected int) error {
	if resp.StatusCode != expected {
		return fmt.Errorf("expected status %d, got %d, body: %s", expected, resp.StatusCode, resp.Body)
	}
	return nil
}

func expectJSONError(resp *Response, expected int) error {
	if err := expectStatus(resp, expected); err != nil {
		return err
	}
	var errResp map[string]string
	if err := resp.DecodeJSON(&errResp); err != nil {
		return err
	}
	if errResp["error"] == "" {
		return fmt.Errorf("error message missing in body: %s", resp.Body)
	}
	return nil
}

func newPostBody(firstName, lastName string) map[string]any {
	return map[string]any{
		"title":   gofakeit.Sentence(4),
		"content": gofakeit.Paragraph(1, 2, 8, " "),
		"author": map[string]string{
			"firstName": firstName,
			"lastName":  lastName,
		},
	}
}

// createPost creates a post and registers its removal when the check is done.
func createPost(ctx context.Context, c *Client, cleanup *[]string) (*post, map[string]any, error) {
	body := newPostBody(gofakeit.FirstName(), gofakeit.LastName())
	resp, err := c.Do(ctx, http.MethodPost, "/blog-posts", body)
	if err != nil {
		return nil, nil, err
	}
	if err := expectStatus(resp, http.StatusCreated); err != nil {
		return nil, nil, err
	}

	var created post
	if err := resp.DecodeJSON(&created); err != nil {
		return nil, nil, err
	}
	if created.ID == "" {
		return nil, nil, errors.New("created post has no id")
	}
	*cleanup = append(*cleanup, created.ID)

	return &created, body, nil
}

func deletePosts(ctx context.Context, c *Client, ids []string) {
	for _, id := range ids {
		// best effort, the checks report their own failures
		_, _ = c.Do(ctx, http.MethodDelete, "/blog-posts/"+id, nil)
	}
}

func getPost(ctx context.Context, c *Client, id string) (*Response, *post, error) {
	resp, err := c.Do(ctx, http.MethodGet, "/blog-posts/"+id, nil)
	if err != nil {
		return nil, nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return resp, nil, nil
	}
	var p post
	if err := resp.DecodeJSON(&p); err != nil {
		return nil, nil, err
	}
	return resp, &p, nil
}

// withCleanup runs fn and deletes every post it created.
func withCleanup(fn func(ctx context.Context, c *Client, cleanup *[]string) error) func(ctx context.Context, c *Client) error {
	return func(ctx context.Context, c *Client) error {
		var created []string
		defer func() {
			deletePosts(context.WithoutCancel(ctx), c, created)
		}()
		return fn(ctx, c, &created)
	}
}

// AllChecks returns the API contract checks, in run order.
func AllChecks() []Check {
	return []Check{
		{
			Name: "list/posts have all fields",
			Run: withCleanup(func(ctx context.Context, c *Client, cleanup *[]string) error {
				for i := 0; i < 2; i++ {
					if _, _, err := createPost(ctx, c, cleanup); err != nil {
						return err
					}
				}

				resp, err := c.Do(ctx, http.MethodGet, "/blog-posts", nil)
				if err != nil {
					return err
				}
				if err := expectStatus(resp, http.StatusOK); err != nil {
					return err
				}

				var posts []map[string]any
				if err := resp.DecodeJSON(&posts); err != nil {
					return err
				}
				if len(posts) < 2 {
					return fmt.Errorf("expected at least 2 posts, got %d", len(posts))
				}
				for _, p := range posts {
					for _, key := range postKeys {
						if _, ok := p[key]; !ok {
							return fmt.Errorf("post %v is missing key [%s]", p["id"], key)
						}
					}
				}
				return nil
			}),
		},
		{
			Name: "create/returns created post",
			Run: withCleanup(func(ctx context.Context, c *Client, cleanup *[]string) error {
				body := newPostBody("Ada", "Lovelace")
				resp, err := c.Do(ctx, http.MethodPost, "/blog-posts", body)
				if err != nil {
					return err
				}
				if err := expectStatus(resp, http.StatusCreated); err != nil {
					return err
				}

				var created post
				if err := resp.DecodeJSON(&created); err != nil {
					return err
				}
				if created.ID != "" {
					*cleanup = append(*cleanup, created.ID)
				}

				switch {
				case created.ID == "":
					return errors.New("created post has no id")
				case created.Title != body["title"]:
					return fmt.Errorf("title: expected [%s], got [%s]", body["title"], created.Title)
				case created.Content != body["content"]:
					return fmt.Errorf("content: expected [%s], got [%s]", body["content"], created.Content)
				case created.Author != "Ada Lovelace":
					return fmt.Errorf("author: expected [Ada Lovelace], got [%s]", created.Author)
				case created.Created == "":
					return errors.New("created timestamp missing")
				}

				if location := resp.Header.Get("Location"); location != "/blog-posts/"+created.ID {
					return fmt.Errorf("unexpected location header [%s]", location)
				}

				getResp, fetched, err := getPost(ctx, c, created.ID)
				if err != nil {
					return err
				}
				if err := expectStatus(getResp, http.StatusOK); err != nil {
					return err
				}
				if *fetched != created {
					return fmt.Errorf("fetched post %+v differs from created %+v", *fetched, created)
				}
				return nil
			}),
		},
		{
			Name: "create/missing fields rejected",
			Run: func(ctx context.Context, c *Client) error {
				for _, body := range []any{
					map[string]any{"content": "c", "author": map[string]string{"firstName": "a", "lastName": "b"}},
					map[string]any{"title": "t", "author": map[string]string{"firstName": "a", "lastName": "b"}},
					map[string]any{"title": "t", "content": "c"},
					`{"title":`,
				} {
					resp, err := c.Do(ctx, http.MethodPost, "/blog-posts", body)
					if err != nil {
						return err
					}
					if err := expectJSONError(resp, http.StatusBadRequest); err != nil {
						return fmt.Errorf("body %v: %w", body, err)
					}
				}
				return nil
			},
		},
		{
			Name: "update/applies supplied fields",
			Run: withCleanup(func(ctx context.Context, c *Client, cleanup *[]string) error {
				created, _, err := createPost(ctx, c, cleanup)
				if err != nil {
					return err
				}

				resp, err := c.Do(ctx, http.MethodPut, "/blog-posts/"+created.ID, map[string]any{
					"id":      created.ID,
					"title":   "foofofofofofo",
					"content": "barbarbarbar",
				})
				if err != nil {
					return err
				}
				if err := expectStatus(resp, http.StatusNoContent); err != nil {
					return err
				}
				if len(resp.Body) != 0 {
					return fmt.Errorf("expected empty body, got: %s", resp.Body)
				}

				getResp, updated, err := getPost(ctx, c, created.ID)
				if err != nil {
					return err
				}
				if err := expectStatus(getResp, http.StatusOK); err != nil {
					return err
				}
				switch {
				case updated.Title != "foofofofofofo":
					return fmt.Errorf("title not updated: [%s]", updated.Title)
				case updated.Content != "barbarbarbar":
					return fmt.Errorf("content not updated: [%s]", updated.Content)
				case updated.Author != created.Author:
					return fmt.Errorf("author changed: [%s] -> [%s]", created.Author, updated.Author)
				case updated.Created != created.Created:
					return fmt.Errorf("created changed: [%s] -> [%s]", created.Created, updated.Created)
				}
				return nil
			}),
		},
		{
			Name: "update/mismatched id rejected",
			Run: withCleanup(func(ctx context.Context, c *Client, cleanup *[]string) error {
				created, _, err := createPost(ctx, c, cleanup)
				if err != nil {
					return err
				}
				resp, err := c.Do(ctx, http.MethodPut, "/blog-posts/"+created.ID, map[string]any{
					"id":    unknownPostID,
					"title": "t",
				})
				if err != nil {
					return err
				}
				return expectJSONError(resp, http.StatusBadRequest)
			}),
		},
		{
			Name: "update/unknown post not found",
			Run: func(ctx context.Context, c *Client) error {
				resp, err := c.Do(ctx, http.MethodPut, "/blog-posts/"+unknownPostID, map[string]any{
					"id":    unknownPostID,
					"title": "t",
				})
				if err != nil {
					return err
				}
				return expectJSONError(resp, http.StatusNotFound)
			},
		},
		{
			Name: "get/unknown post not found",
			Run: func(ctx context.Context, c *Client) error {
				resp, err := c.Do(ctx, http.MethodGet, "/blog-posts/"+unknownPostID, nil)
				if err != nil {
					return err
				}
				return expectJSONError(resp, http.StatusNotFound)
			},
		},
		{
			Name: "delete/removes post and is idempotent",
			Run: withCleanup(func(ctx context.Context, c *Client, cleanup *[]string) error {
				created, _, err := createPost(ctx, c, cleanup)
				if err != nil {
					return err
				}

				for i := 0; i < 2; i++ {
					resp, err := c.Do(ctx, http.MethodDelete, "/blog-posts/"+created.ID, nil)
					if err != nil {
						return err
					}
					if err := expectStatus(resp, http.StatusNoContent); err != nil {
						return fmt.Errorf("delete #%d: %w", i+1, err)
					}
				}

				getResp, _, err := getPost(ctx, c, created.ID)
				if err != nil {
					return err
				}
				return expectJSONError(getResp, http.StatusNotFound)
			}),
		},
		{
			Name: "routing/unknown path not found",
			Run: func(ctx context.Context, c *Client) error {
				resp, err := c.Do(ctx, http.MethodGet, "/no-such-path", nil)
				if err != nil {
					return err
				}
				return expectJSONError(resp, http.StatusNotFound)
			},
		},
	}
}
