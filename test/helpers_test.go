//go:build integration_test || all_tests

package test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
)

type postResponse struct {
	ID      string `json:"id"`
	Author  string `json:"author"`
	Title   string `json:"title"`
	Content string `json:"content"`
	Created string `json:"created"`
}

func (s *IntegrationTestSuite) doRequest(ctx context.Context, method, path string, body any) (*http.Response, []byte) {
	var reqBody io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		s.Require().NoError(err)
		reqBody = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.serverEndpoint+path, reqBody)
	s.Require().NoError(err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)

	return resp, respBody
}

func (s *IntegrationTestSuite) getAllPosts(ctx context.Context) []postResponse {
	resp, respBody := s.doRequest(ctx, http.MethodGet, "/blog-posts", nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	var posts []postResponse
	s.Require().NoError(json.Unmarshal(respBody, &posts))
	return posts
}

func (s *IntegrationTestSuite) getPost(ctx context.Context, id string) (int, *postResponse) {
	resp, respBody := s.doRequest(ctx, http.MethodGet, "/blog-posts/"+id, nil)
	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, nil
	}

	var post postResponse
	s.Require().NoError(json.Unmarshal(respBody, &post))
	return resp.StatusCode, &post
}

func (s *IntegrationTestSuite) requireJSONError(respBody []byte) {
	var errResp map[string]string
	s.Require().NoError(json.Unmarshal(respBody, &errResp))
	s.NotEmpty(errResp["error"])
}

func newPostBody(title, content, firstName, lastName string) map[string]any {
	return map[string]any{
		"title":   title,
		"content": content,
		"author": map[string]string{
			"firstName": firstName,
			"lastName":  lastName,
		},
	}
}
