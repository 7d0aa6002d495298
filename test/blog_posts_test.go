//go:build integration_test || all_tests

package test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/2beens/blogposts/internal/blogposts"
	"github.com/2beens/blogposts/internal/contract"
	pkgtesting "github.com/2beens/blogposts/pkg/testing"
)

func (s *IntegrationTestSuite) TestGetAllPosts() {
	ctx := context.Background()

	posts := s.getAllPosts(ctx)
	s.Len(posts, seedCount)

	storedCount, err := s.server.Repo().Count(ctx)
	s.Require().NoError(err)
	s.Len(posts, storedCount)

	// raw body check, every post carries all the public keys
	resp, respBody := s.doRequest(ctx, http.MethodGet, "/blog-posts", nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.Equal("application/json", resp.Header.Get("Content-Type"))

	var rawPosts []map[string]any
	s.Require().NoError(json.Unmarshal(respBody, &rawPosts))
	for _, p := range rawPosts {
		for _, key := range []string{"id", "author", "title", "content", "created"} {
			s.Contains(p, key)
		}
	}

	// newest first
	for i := 1; i < len(posts); i++ {
		prev, err := time.Parse(time.RFC3339Nano, posts[i-1].Created)
		s.Require().NoError(err)
		curr, err := time.Parse(time.RFC3339Nano, posts[i].Created)
		s.Require().NoError(err)
		s.False(curr.After(prev), "posts not sorted newest first")
	}
}

func (s *IntegrationTestSuite) TestGetPost() {
	ctx := context.Background()

	seededPost := s.seeded[3]
	status, post := s.getPost(ctx, seededPost.ID)
	s.Require().Equal(http.StatusOK, status)
	s.Equal(seededPost.ID, post.ID)
	s.Equal(seededPost.Title, post.Title)
	s.Equal(seededPost.Content, post.Content)
	s.Equal(seededPost.Author.FirstName+" "+seededPost.Author.LastName, post.Author)
}

func (s *IntegrationTestSuite) TestGetPost_unknown() {
	ctx := context.Background()

	for _, id := range []string{"000000000000000000000000", "0d9e0f8c-2a4b-4c1d-9e3f-5a6b7c8d9e0f", "not-an-id"} {
		resp, respBody := s.doRequest(ctx, http.MethodGet, "/blog-posts/"+id, nil)
		s.Equal(http.StatusNotFound, resp.StatusCode, id)
		s.requireJSONError(respBody)
	}
}

func (s *IntegrationTestSuite) TestCreatePost() {
	ctx := context.Background()

	resp, respBody := s.doRequest(ctx, http.MethodPost, "/blog-posts",
		newPostBody("my post", "some content", "Jane", "Doe"))
	s.Require().Equal(http.StatusCreated, resp.StatusCode, string(respBody))

	var created postResponse
	s.Require().NoError(json.Unmarshal(respBody, &created))
	s.NotEmpty(created.ID)
	s.Equal("Jane Doe", created.Author)
	s.Equal("my post", created.Title)
	s.Equal("some content", created.Content)
	s.NotEmpty(created.Created)
	s.True(strings.HasSuffix(resp.Header.Get("Location"), "/blog-posts/"+created.ID))

	// name parts are kept separately in the store
	stored, err := s.server.Repo().Get(ctx, created.ID)
	s.Require().NoError(err)
	s.Equal("Jane", stored.Author.FirstName)
	s.Equal("Doe", stored.Author.LastName)

	storedCount, err := s.server.Repo().Count(ctx)
	s.Require().NoError(err)
	s.Equal(seedCount+1, storedCount)
}

func (s *IntegrationTestSuite) TestCreatePost_invalid() {
	ctx := context.Background()

	testCases := []struct {
		name string
		body any
	}{
		{name: "missing title", body: newPostBody("", "content", "Jane", "Doe")},
		{name: "missing content", body: newPostBody("title", "", "Jane", "Doe")},
		{name: "missing first name", body: newPostBody("title", "content", "", "Doe")},
		{name: "missing last name", body: newPostBody("title", "content", "Jane", "")},
		{name: "missing author", body: map[string]string{"title": "title", "content": "content"}},
		{name: "whitespace title", body: newPostBody("   ", "content", "Jane", "Doe")},
		{name: "whitespace names", body: newPostBody("title", "content", "  ", "  ")},
	}

	for _, tc := range testCases {
		resp, respBody := s.doRequest(ctx, http.MethodPost, "/blog-posts", tc.body)
		s.Equal(http.StatusBadRequest, resp.StatusCode, tc.name)
		s.requireJSONError(respBody)
	}

	storedCount, err := s.server.Repo().Count(ctx)
	s.Require().NoError(err)
	s.Equal(seedCount, storedCount)
}

func (s *IntegrationTestSuite) TestUpdatePost() {
	ctx := context.Background()

	target := s.seeded[0]
	_, before := s.getPost(ctx, target.ID)
	s.Require().NotNil(before)

	resp, respBody := s.doRequest(ctx, http.MethodPut, "/blog-posts/"+target.ID, map[string]any{
		"id":      target.ID,
		"title":   "foofofofofofo",
		"content": "barbarbarbar",
	})
	s.Require().Equal(http.StatusNoContent, resp.StatusCode, string(respBody))
	s.Empty(respBody)

	status, after := s.getPost(ctx, target.ID)
	s.Require().Equal(http.StatusOK, status)
	s.Equal("foofofofofofo", after.Title)
	s.Equal("barbarbarbar", after.Content)
	s.Equal(before.Author, after.Author)
	s.Equal(before.Created, after.Created)

	// other posts are untouched
	other, err := s.server.Repo().Get(ctx, s.seeded[1].ID)
	s.Require().NoError(err)
	s.Equal(s.seeded[1].Title, other.Title)
}

func (s *IntegrationTestSuite) TestUpdatePost_invalid() {
	ctx := context.Background()

	target := s.seeded[2]
	testCases := []struct {
		name           string
		path           string
		body           any
		expectedStatus int
	}{
		{
			name:           "mismatched ids",
			path:           "/blog-posts/" + target.ID,
			body:           map[string]any{"id": s.seeded[3].ID, "title": "t"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "missing id",
			path:           "/blog-posts/" + target.ID,
			body:           map[string]any{"title": "t"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "blank title",
			path:           "/blog-posts/" + target.ID,
			body:           map[string]any{"id": target.ID, "title": ""},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "whitespace content",
			path:           "/blog-posts/" + target.ID,
			body:           map[string]any{"id": target.ID, "content": "  \n "},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "unknown post",
			path:           "/blog-posts/000000000000000000000000",
			body:           map[string]any{"id": "000000000000000000000000", "title": "t"},
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tc := range testCases {
		resp, respBody := s.doRequest(ctx, http.MethodPut, tc.path, tc.body)
		s.Equal(tc.expectedStatus, resp.StatusCode, tc.name)
		s.requireJSONError(respBody)
	}

	stored, err := s.server.Repo().Get(ctx, target.ID)
	s.Require().NoError(err)
	s.Equal(target.Title, stored.Title)
}

func (s *IntegrationTestSuite) TestDeletePost() {
	ctx := context.Background()

	target := s.seeded[5]
	resp, respBody := s.doRequest(ctx, http.MethodDelete, "/blog-posts/"+target.ID, nil)
	s.Require().Equal(http.StatusNoContent, resp.StatusCode)
	s.Empty(respBody)

	status, _ := s.getPost(ctx, target.ID)
	s.Equal(http.StatusNotFound, status)
	s.Len(s.getAllPosts(ctx), seedCount-1)

	// deleting again is not an error
	resp, _ = s.doRequest(ctx, http.MethodDelete, "/blog-posts/"+target.ID, nil)
	s.Equal(http.StatusNoContent, resp.StatusCode)
	s.Len(s.getAllPosts(ctx), seedCount-1)
}

func (s *IntegrationTestSuite) TestDeleteAllPosts() {
	ctx := context.Background()

	for _, p := range s.seeded {
		resp, _ := s.doRequest(ctx, http.MethodDelete, "/blog-posts/"+p.ID, nil)
		s.Require().Equal(http.StatusNoContent, resp.StatusCode)
	}

	resp, respBody := s.doRequest(ctx, http.MethodGet, "/blog-posts", nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.Equal("[]", strings.TrimSpace(string(respBody)))
}

func (s *IntegrationTestSuite) TestSeedAdditionalPosts() {
	ctx := context.Background()

	added, err := blogposts.SeedFakePosts(ctx, s.server.Repo(), 5)
	s.Require().NoError(err)
	s.Len(added, 5)
	s.Len(s.getAllPosts(ctx), seedCount+5)
}

func (s *IntegrationTestSuite) TestContractChecks() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	client := contract.NewClient(s.serverEndpoint, 10*time.Second)
	defer client.CloseIdleConnections()

	var out bytes.Buffer
	runner := &contract.Runner{
		Client:       client,
		Out:          &out,
		Verbose:      true,
		CheckTimeout: 10 * time.Second,
	}
	results := runner.Run(ctx, contract.AllChecks())
	s.True(results.OK(), out.String())

	// checks clean up after themselves
	s.Len(s.getAllPosts(ctx), seedCount)
}

func (s *IntegrationTestSuite) TestWriteRateLimiterUsesRedis() {
	if s.redisPort == "" {
		s.T().Skip("redis is not set up for this suite")
	}
	ctx := context.Background()

	resp, respBody := s.doRequest(ctx, http.MethodPost, "/blog-posts",
		newPostBody("rate limited", "content", "Jane", "Doe"))
	s.Require().Equal(http.StatusCreated, resp.StatusCode, string(respBody))

	rdb := pkgtesting.GetRedisClient(s.T(), "localhost", s.redisPort, "")
	keys, err := rdb.Keys(ctx, "rate:*").Result()
	s.Require().NoError(err)
	s.NotEmpty(keys)

	_, err = rdb.Get(ctx, "missing-key").Result()
	s.ErrorIs(err, redis.Nil)
}
