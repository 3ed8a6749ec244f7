package handlers

import (
	"net/http"
	"strings"

	"pulse/apperr"
	"pulse/database"
	"pulse/models"
	"pulse/response"
	"pulse/websocket"

	"github.com/gin-gonic/gin"
)

type CreatePostRequest struct {
	UserID      FlexibleID `json:"userId" binding:"required"`
	Description string     `json:"description" binding:"required"`
	ImageURL    *string    `json:"imageUrl"`
}

type UpdatePostRequest struct {
	Description string  `json:"description" binding:"required"`
	ImageURL    *string `json:"imageUrl"`
}

// nonEmpty returns nil for a missing or blank URL.
func nonEmpty(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func (h *Handler) CreatePost(c *gin.Context) {
	var req CreatePostRequest
	if err := bindJSON(c, &req); err != nil {
		h.fail(c, "create post", err)
		return
	}
	if strings.TrimSpace(req.Description) == "" {
		h.fail(c, "create post", apperr.Validation("Description is required"))
		return
	}

	ctx, cancel := h.timeout(c, requestTimeout)
	defer cancel()

	post := models.Post{
		UserID:      uint(req.UserID),
		Description: req.Description,
		ImageURL:    nonEmpty(req.ImageURL),
	}
	if err := h.Store.CreatePost(ctx, &post); err != nil {
		h.fail(c, "create post", err)
		return
	}

	h.publish(websocket.EventPostCreated, newPostView(&post))
	response.OK(c, http.StatusCreated, "Post created successfully", gin.H{
		"postId": formatID(post.ID),
	})
}

func (h *Handler) GetPost(c *gin.Context) {
	postID, err := pathID(c, "postId")
	if err != nil {
		h.fail(c, "get post", err)
		return
	}

	ctx, cancel := h.timeout(c, requestTimeout)
	defer cancel()

	post, err := h.Store.PostByID(ctx, postID)
	if err != nil {
		h.fail(c, "get post", err)
		return
	}
	response.OK(c, http.StatusOK, "Post fetched successfully", newPostView(post))
}

func (h *Handler) UpdatePost(c *gin.Context) {
	postID, err := pathID(c, "postId")
	if err != nil {
		h.fail(c, "update post", err)
		return
	}

	var req UpdatePostRequest
	if err := bindJSON(c, &req); err != nil {
		h.fail(c, "update post", err)
		return
	}
	if strings.TrimSpace(req.Description) == "" {
		h.fail(c, "update post", apperr.Validation("Description is required"))
		return
	}

	ctx, cancel := h.timeout(c, requestTimeout)
	defer cancel()

	post, err := h.Store.UpdatePost(ctx, postID, database.PostUpdate{
		Description: req.Description,
		ImageURL:    nonEmpty(req.ImageURL),
	})
	if err != nil {
		h.fail(c, "update post", err)
		return
	}

	view := newPostView(post)
	h.publish(websocket.EventPostUpdated, view)
	response.OK(c, http.StatusOK, "Post updated successfully", view)
}

func (h *Handler) DeletePost(c *gin.Context) {
	postID, err := pathID(c, "postId")
	if err != nil {
		h.fail(c, "delete post", err)
		return
	}

	ctx, cancel := h.timeout(c, requestTimeout)
	defer cancel()

	if err := h.Store.DeletePost(ctx, postID); err != nil {
		h.fail(c, "delete post", err)
		return
	}

	h.publish(websocket.EventPostDeleted, gin.H{"postId": formatID(postID)})
	response.OK(c, http.StatusOK, "Post deleted successfully", gin.H{"postId": formatID(postID)})
}
