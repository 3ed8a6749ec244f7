package handlers_test

import (
	"context"
	"net/http"
	"testing"

	"pulse/websocket"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePost(t *testing.T) {
	ts := newTestServer(t)
	author := ts.user("author")

	res := ts.do(http.MethodPost, "/api/posts", map[string]any{
		"userId":      author.ID,
		"description": "hi",
	}, "")
	require.Equal(t, http.StatusCreated, res.Code, res.Raw)
	assert.True(t, res.Body.Success)
	assert.Equal(t, "Post created successfully", res.Body.Message)

	var data struct {
		PostID string `json:"postId"`
	}
	res.data(t, &data)

	posts, total, err := ts.store.ListPosts(context.Background(), postQuery())
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	assert.Equal(t, formatUint(posts[0].ID), data.PostID)
	assert.Equal(t, []string{websocket.EventPostCreated}, ts.events.types())
}

func TestCreatePostAcceptsStringUserID(t *testing.T) {
	ts := newTestServer(t)
	author := ts.user("author")

	res := ts.do(http.MethodPost, "/api/posts",
		`{"userId":"`+formatUint(author.ID)+`","description":"from a form","imageUrl":"https://img.test/a.png"}`, "")
	require.Equal(t, http.StatusCreated, res.Code, res.Raw)

	posts, _, err := ts.store.ListPosts(context.Background(), postQuery())
	require.NoError(t, err)
	require.Len(t, posts, 1)
	require.NotNil(t, posts[0].ImageURL)
	assert.Equal(t, "https://img.test/a.png", *posts[0].ImageURL)
}

func TestCreatePostValidation(t *testing.T) {
	ts := newTestServer(t)
	author := ts.user("author")

	tests := []struct {
		name    string
		body    any
		status  int
		message string
	}{
		{"missing user", map[string]any{"description": "hi"}, http.StatusBadRequest, "Invalid request body"},
		{"missing description", map[string]any{"userId": author.ID}, http.StatusBadRequest, "Invalid request body"},
		{"blank description", map[string]any{"userId": author.ID, "description": "   "}, http.StatusBadRequest, "Description is required"},
		{"non-numeric user", `{"userId":"abc","description":"hi"}`, http.StatusBadRequest, "Invalid user ID"},
		{"malformed json", `{"userId":`, http.StatusBadRequest, "Invalid request body"},
		{"unknown user", map[string]any{"userId": 9999, "description": "hi"}, http.StatusNotFound, "User not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ts.do(http.MethodPost, "/api/posts", tt.body, "")
			assert.Equal(t, tt.status, res.Code, res.Raw)
			assert.False(t, res.Body.Success)
			assert.Equal(t, tt.message, res.Body.Message)
		})
	}

	_, total, err := ts.store.ListPosts(context.Background(), postQuery())
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestGetPost(t *testing.T) {
	ts := newTestServer(t)
	author := ts.user("author")
	p := ts.post(author.ID, "single")

	res := ts.do(http.MethodGet, "/api/posts/"+formatUint(p.ID), nil, "")
	require.Equal(t, http.StatusOK, res.Code, res.Raw)

	var view postJSON
	res.data(t, &view)
	assert.Equal(t, "single", view.Description)
	assert.Equal(t, "author", view.User.Username)

	assert.Equal(t, http.StatusNotFound, ts.do(http.MethodGet, "/api/posts/9999", nil, "").Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(http.MethodGet, "/api/posts/abc", nil, "").Code)
}

func TestUpdatePost(t *testing.T) {
	ts := newTestServer(t)
	author := ts.user("author")
	p := ts.post(author.ID, "before")
	path := "/api/posts/" + formatUint(p.ID)

	res := ts.do(http.MethodPut, path, map[string]any{"imageUrl": "https://img.test/x.png"}, "")
	assert.Equal(t, http.StatusBadRequest, res.Code, res.Raw)

	unchanged, err := ts.store.PostByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, "before", unchanged.Description)
	assert.Nil(t, unchanged.ImageURL)

	res = ts.do(http.MethodPut, path, map[string]any{"description": "after", "imageUrl": "https://img.test/x.png"}, "")
	require.Equal(t, http.StatusOK, res.Code, res.Raw)
	var view postJSON
	res.data(t, &view)
	assert.Equal(t, "after", view.Description)
	require.NotNil(t, view.ImageURL)
	assert.Equal(t, "https://img.test/x.png", *view.ImageURL)

	// An empty imageUrl keeps the stored one.
	res = ts.do(http.MethodPut, path, map[string]any{"description": "again", "imageUrl": ""}, "")
	require.Equal(t, http.StatusOK, res.Code, res.Raw)
	res.data(t, &view)
	require.NotNil(t, view.ImageURL)
	assert.Equal(t, "https://img.test/x.png", *view.ImageURL)

	assert.Equal(t, http.StatusNotFound, ts.do(http.MethodPut, "/api/posts/9999", map[string]any{"description": "x"}, "").Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(http.MethodPut, "/api/posts/x", map[string]any{"description": "x"}, "").Code)
	assert.Contains(t, ts.events.types(), websocket.EventPostUpdated)
}

func TestDeletePost(t *testing.T) {
	ts := newTestServer(t)
	author := ts.user("author")
	fan := ts.user("fan")
	p := ts.post(author.ID, "doomed")
	path := "/api/posts/" + formatUint(p.ID)

	require.Equal(t, http.StatusCreated, ts.do(http.MethodPost, path+"/like", nil, token(t, fan.ID)).Code)
	require.Equal(t, http.StatusCreated, ts.do(http.MethodPost, path+"/comment",
		map[string]any{"userId": fan.ID, "content": "bye"}, "").Code)

	res := ts.do(http.MethodDelete, path, nil, "")
	require.Equal(t, http.StatusOK, res.Code, res.Raw)
	assert.Equal(t, "Post deleted successfully", res.Body.Message)

	likes, err := ts.store.CountLikes(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Zero(t, likes)

	res = ts.do(http.MethodDelete, path, nil, "")
	assert.Equal(t, http.StatusNotFound, res.Code)
	assert.Equal(t, "Post not found", res.Body.Message)

	res = ts.do(http.MethodDelete, "/api/posts/-1", nil, "")
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Equal(t, "Invalid post ID", res.Body.Message)
	assert.Contains(t, ts.events.types(), websocket.EventPostDeleted)
}
