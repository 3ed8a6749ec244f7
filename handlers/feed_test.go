package handlers_test

import (
	"context"
	"net/http"
	"strconv"
	"testing"
	"time"

	"pulse/database"
	"pulse/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type postJSON struct {
	ID          uint    `json:"id"`
	UserID      uint    `json:"userId"`
	Description string  `json:"description"`
	ImageURL    *string `json:"imageUrl"`
	User        struct {
		ID       uint   `json:"id"`
		Username string `json:"username"`
		Profile  *struct {
			ProfilePicture string `json:"profilePicture"`
		} `json:"profile"`
	} `json:"user"`
	Comments []struct {
		ID      uint   `json:"id"`
		Content string `json:"content"`
		User    struct {
			ID       uint   `json:"id"`
			Username string `json:"username"`
		} `json:"user"`
	} `json:"comments"`
	Likes []struct {
		ID   uint `json:"id"`
		User struct {
			ID       uint   `json:"id"`
			Username string `json:"username"`
		} `json:"user"`
	} `json:"likes"`
	LikeCount    int `json:"likeCount"`
	CommentCount int `json:"commentCount"`
}

type feedJSON struct {
	Posts      []postJSON `json:"posts"`
	Pagination struct {
		Total      int64 `json:"total"`
		Page       int   `json:"page"`
		Limit      int   `json:"limit"`
		TotalPages int64 `json:"totalPages"`
	} `json:"pagination"`
}

func postQuery() database.PostQuery {
	return database.PostQuery{Limit: 100}
}

func formatUint(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func TestFeedPagination(t *testing.T) {
	ts := newTestServer(t)
	author := ts.user("author")
	for i := 1; i <= 3; i++ {
		ts.post(author.ID, "post "+strconv.Itoa(i))
		time.Sleep(2 * time.Millisecond)
	}

	res := ts.do(http.MethodGet, "/api/feed?page=1&limit=2", nil, "")
	require.Equal(t, http.StatusOK, res.Code, res.Raw)
	assert.True(t, res.Body.Success)

	var feed feedJSON
	res.data(t, &feed)
	require.Len(t, feed.Posts, 2)
	assert.Equal(t, "post 3", feed.Posts[0].Description)
	assert.EqualValues(t, 3, feed.Pagination.Total)
	assert.Equal(t, 1, feed.Pagination.Page)
	assert.Equal(t, 2, feed.Pagination.Limit)
	assert.EqualValues(t, 2, feed.Pagination.TotalPages)

	res = ts.do(http.MethodGet, "/api/feed?page=2&limit=2", nil, "")
	require.Equal(t, http.StatusOK, res.Code)
	res.data(t, &feed)
	require.Len(t, feed.Posts, 1)
	assert.Equal(t, "post 1", feed.Posts[0].Description)

	res = ts.do(http.MethodGet, "/api/feed", nil, "")
	require.Equal(t, http.StatusOK, res.Code)
	res.data(t, &feed)
	assert.Equal(t, 1, feed.Pagination.Page)
	assert.Equal(t, 10, feed.Pagination.Limit)
	assert.Len(t, feed.Posts, 3)

	res = ts.do(http.MethodGet, "/api/feed?limit=1000", nil, "")
	require.Equal(t, http.StatusOK, res.Code)
	res.data(t, &feed)
	assert.Equal(t, 100, feed.Pagination.Limit)
}

func TestFeedRejectsBadPaging(t *testing.T) {
	ts := newTestServer(t)

	for _, q := range []string{"page=0", "page=-1", "limit=0", "limit=-5", "page=abc", "limit=1.5"} {
		t.Run(q, func(t *testing.T) {
			res := ts.do(http.MethodGet, "/api/feed?"+q, nil, "")
			assert.Equal(t, http.StatusBadRequest, res.Code)
			assert.False(t, res.Body.Success)
			assert.Equal(t, "null", string(res.Body.Data))
		})
	}
}

func TestFeedNestedShape(t *testing.T) {
	ts := newTestServer(t)
	author := ts.user("author")
	fan := ts.user("fan")
	require.NoError(t, ts.store.UpsertProfile(context.Background(), &models.UserProfile{
		UserID: author.ID, ProfilePicture: "https://img.test/author.png",
	}))
	p := ts.post(author.ID, "nested")

	require.Equal(t, http.StatusCreated, ts.do(http.MethodPost, "/api/posts/"+formatUint(p.ID)+"/like", nil, token(t, fan.ID)).Code)
	require.Equal(t, http.StatusCreated, ts.do(http.MethodPost, "/api/posts/"+formatUint(p.ID)+"/comment",
		map[string]any{"userId": fan.ID, "content": "great"}, "").Code)

	var feed feedJSON
	res := ts.do(http.MethodGet, "/api/feed", nil, "")
	require.Equal(t, http.StatusOK, res.Code)
	res.data(t, &feed)
	require.Len(t, feed.Posts, 1)

	got := feed.Posts[0]
	assert.Equal(t, author.ID, got.User.ID)
	assert.Equal(t, "author", got.User.Username)
	require.NotNil(t, got.User.Profile)
	assert.Equal(t, "https://img.test/author.png", got.User.Profile.ProfilePicture)

	assert.Equal(t, 1, got.LikeCount)
	require.Len(t, got.Likes, 1)
	assert.Equal(t, "fan", got.Likes[0].User.Username)

	assert.Equal(t, 1, got.CommentCount)
	require.Len(t, got.Comments, 1)
	assert.Equal(t, "great", got.Comments[0].Content)
	assert.Equal(t, fan.ID, got.Comments[0].User.ID)
}

func TestFeedEmpty(t *testing.T) {
	ts := newTestServer(t)

	res := ts.do(http.MethodGet, "/api/feed", nil, "")
	require.Equal(t, http.StatusOK, res.Code)
	assert.JSONEq(t, `{"posts":[],"pagination":{"total":0,"page":1,"limit":10,"totalPages":0}}`, string(res.Body.Data))
}

func TestUserPosts(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.user("alice")
	bob := ts.user("bob")
	ts.post(alice.ID, "a1")
	ts.post(bob.ID, "b1")
	ts.post(alice.ID, "a2")

	var feed feedJSON
	res := ts.do(http.MethodGet, "/api/users/"+formatUint(alice.ID)+"/posts", nil, "")
	require.Equal(t, http.StatusOK, res.Code, res.Raw)
	res.data(t, &feed)
	assert.EqualValues(t, 2, feed.Pagination.Total)
	for _, p := range feed.Posts {
		assert.Equal(t, alice.ID, p.UserID)
	}

	assert.Equal(t, http.StatusNotFound, ts.do(http.MethodGet, "/api/users/9999/posts", nil, "").Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(http.MethodGet, "/api/users/abc/posts", nil, "").Code)
}
