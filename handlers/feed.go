package handlers

import (
	"net/http"

	"pulse/response"

	"github.com/gin-gonic/gin"
)

type feedPage struct {
	Posts      []postView `json:"posts"`
	Pagination Pagination `json:"pagination"`
}

// GetFeed lists every post, newest first.
func (h *Handler) GetFeed(c *gin.Context) {
	page, err := parsePage(c)
	if err != nil {
		h.fail(c, "get feed", err)
		return
	}

	ctx, cancel := h.timeout(c, requestTimeout)
	defer cancel()

	posts, total, err := h.Store.ListPosts(ctx, page.query(0))
	if err != nil {
		h.fail(c, "get feed", err)
		return
	}

	response.OK(c, http.StatusOK, "Feed fetched successfully", feedPage{
		Posts:      newPostViews(posts),
		Pagination: page.result(total),
	})
}

// GetUserPosts lists one user's posts with the same paging as the feed.
func (h *Handler) GetUserPosts(c *gin.Context) {
	userID, err := pathID(c, "userId")
	if err != nil {
		h.fail(c, "get user posts", err)
		return
	}
	page, err := parsePage(c)
	if err != nil {
		h.fail(c, "get user posts", err)
		return
	}

	ctx, cancel := h.timeout(c, requestTimeout)
	defer cancel()

	if _, err := h.Store.UserByID(ctx, userID); err != nil {
		h.fail(c, "get user posts", err)
		return
	}

	posts, total, err := h.Store.ListPosts(ctx, page.query(userID))
	if err != nil {
		h.fail(c, "get user posts", err)
		return
	}

	response.OK(c, http.StatusOK, "Posts fetched successfully", feedPage{
		Posts:      newPostViews(posts),
		Pagination: page.result(total),
	})
}
