package handlers

import (
	"net/http"
	"strings"

	"pulse/apperr"
	"pulse/models"
	"pulse/response"
	"pulse/websocket"

	"github.com/gin-gonic/gin"
)

type CommentRequest struct {
	Content string     `json:"content" binding:"required"`
	UserID  FlexibleID `json:"userId" binding:"required"`
}

func (h *Handler) AddComment(c *gin.Context) {
	postID, err := pathID(c, "postId")
	if err != nil {
		h.fail(c, "add comment", err)
		return
	}

	var req CommentRequest
	if err := bindJSON(c, &req); err != nil {
		h.fail(c, "add comment", err)
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		h.fail(c, "add comment", apperr.Validation("Content is required"))
		return
	}

	ctx, cancel := h.timeout(c, requestTimeout)
	defer cancel()

	comment := models.Comment{
		PostID:  postID,
		UserID:  uint(req.UserID),
		Content: req.Content,
	}
	if err := h.Store.AddComment(ctx, &comment); err != nil {
		h.fail(c, "add comment", err)
		return
	}

	view := newCommentView(&comment)
	h.publish(websocket.EventCommentAdded, view)
	h.notifyAuthor(ctx, postID, comment.UserID, "commented on your post")
	response.OK(c, http.StatusCreated, "Comment added successfully", view)
}
