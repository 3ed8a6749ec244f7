package handlers

import (
	"net/http"

	"pulse/apperr"
	"pulse/middleware"
	"pulse/models"
	"pulse/response"

	"github.com/gin-gonic/gin"
)

type SubscribeRequest struct {
	Endpoint string `json:"endpoint" binding:"required,url"`
	Keys     struct {
		P256dh string `json:"p256dh" binding:"required"`
		Auth   string `json:"auth" binding:"required"`
	} `json:"keys" binding:"required"`
}

func (h *Handler) VAPIDPublicKey(c *gin.Context) {
	if h.Push == nil || !h.Push.Enabled() {
		h.fail(c, "vapid public key", apperr.Unavailable("Push notifications are not configured"))
		return
	}
	response.OK(c, http.StatusOK, "VAPID public key retrieved successfully", gin.H{
		"publicKey": h.Push.PublicKey(),
	})
}

func (h *Handler) SubscribePush(c *gin.Context) {
	userID, err := middleware.SessionUserID(c)
	if err != nil {
		h.fail(c, "subscribe push", err)
		return
	}

	var req SubscribeRequest
	if err := bindJSON(c, &req); err != nil {
		h.fail(c, "subscribe push", err)
		return
	}

	ctx, cancel := h.timeout(c, requestTimeout)
	defer cancel()

	sub := models.PushSubscription{
		UserID:   userID,
		Endpoint: req.Endpoint,
		P256dh:   req.Keys.P256dh,
		Auth:     req.Keys.Auth,
	}
	if err := h.Store.SavePushSubscription(ctx, &sub); err != nil {
		h.fail(c, "subscribe push", err)
		return
	}

	h.logger(c).WithField("user_id", userID).Info("push subscription saved")
	response.OK(c, http.StatusCreated, "Push subscription saved successfully", gin.H{
		"userId": formatID(userID),
	})
}
