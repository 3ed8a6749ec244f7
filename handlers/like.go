package handlers

import (
	"context"
	"net/http"

	"pulse/middleware"
	"pulse/push"
	"pulse/response"
	"pulse/websocket"

	"github.com/gin-gonic/gin"
)

type likeResult struct {
	PostID    string `json:"postId"`
	Liked     bool   `json:"liked"`
	LikeCount int64  `json:"likeCount"`
}

// LikePost records a like from the session user. Liking again is a no-op
// answered with 200.
func (h *Handler) LikePost(c *gin.Context) {
	userID, err := middleware.SessionUserID(c)
	if err != nil {
		h.fail(c, "like post", err)
		return
	}
	postID, err := pathID(c, "postId")
	if err != nil {
		h.fail(c, "like post", err)
		return
	}

	ctx, cancel := h.timeout(c, requestTimeout)
	defer cancel()

	created, err := h.Store.AddLike(ctx, postID, userID)
	if err != nil {
		h.fail(c, "like post", err)
		return
	}
	count, err := h.Store.CountLikes(ctx, postID)
	if err != nil {
		h.fail(c, "like post", err)
		return
	}

	result := likeResult{PostID: formatID(postID), Liked: true, LikeCount: count}
	if !created {
		response.OK(c, http.StatusOK, "Post already liked", result)
		return
	}

	h.publish(websocket.EventPostLiked, gin.H{
		"postId":    result.PostID,
		"userId":    formatID(userID),
		"likeCount": count,
	})
	h.notifyAuthor(ctx, postID, userID, "liked your post")
	response.OK(c, http.StatusCreated, "Like added successfully", result)
}

// notifyAuthor pushes "<actor> <action>" to the author of postID unless the
// actor is the author. Lookup failures only skip the notification.
func (h *Handler) notifyAuthor(ctx context.Context, postID, actorID uint, action string) {
	if h.Push == nil || !h.Push.Enabled() {
		return
	}
	post, err := h.Store.PostByID(ctx, postID)
	if err != nil || post.UserID == actorID {
		return
	}
	name := "Someone"
	if actor, err := h.Store.UserByID(ctx, actorID); err == nil {
		name = actor.Username
	}
	h.notify(post.UserID, push.Message{
		Title: "Pulse",
		Body:  name + " " + action,
		URL:   "/posts/" + formatID(postID),
	})
}
