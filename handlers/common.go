package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"pulse/apperr"
	"pulse/config"
	"pulse/database"
	"pulse/media"
	"pulse/middleware"
	"pulse/push"
	"pulse/response"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const requestTimeout = 10 * time.Second

// UploadTimeout bounds handlers that forward an image to Cloudinary.
const UploadTimeout = 30 * time.Second

// Publisher broadcasts a feed event to live clients.
type Publisher interface {
	Publish(eventType string, payload any)
}

// Notifier delivers push notifications to a user's browsers.
type Notifier interface {
	Notify(userID uint, msg push.Message)
	Enabled() bool
	PublicKey() string
}

// Handler holds everything the route handlers share. Events, Push, Uploader
// and Google are optional; handlers degrade to 503 or skip the side effect
// when they are nil.
type Handler struct {
	Store    database.Store
	Log      logrus.FieldLogger
	Config   *config.Config
	Events   Publisher
	Push     Notifier
	Uploader media.Uploader
	Google   GoogleProvider
}

func (h *Handler) timeout(c *gin.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), d)
}

func (h *Handler) logger(c *gin.Context) logrus.FieldLogger {
	return h.Log.WithField("request_id", c.GetString(middleware.ContextRequestID))
}

// fail writes err as an envelope. Store errors become 404/409; anything
// unclassified is logged under op and answered with a generic 500.
func (h *Handler) fail(c *gin.Context, op string, err error) {
	response.Error(c, h.logger(c).WithField("op", op), classify(err))
}

func classify(err error) error {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	if entity := database.EntityOf(err); entity != "" {
		return &apperr.Error{Kind: apperr.KindNotFound, Message: entity + " not found", Err: err}
	}
	if errors.Is(err, database.ErrConflict) {
		return &apperr.Error{Kind: apperr.KindConflict, Message: "Resource already exists", Err: err}
	}
	return apperr.Unexpected(err)
}

func (h *Handler) publish(eventType string, payload any) {
	if h.Events != nil {
		h.Events.Publish(eventType, payload)
	}
}

func (h *Handler) notify(userID uint, msg push.Message) {
	if h.Push != nil {
		h.Push.Notify(userID, msg)
	}
}

// pathID parses a numeric route parameter.
var pathIDLabels = map[string]string{
	"postId": "post ID",
	"userId": "user ID",
}

func pathID(c *gin.Context, name string) (uint, error) {
	id, err := parseID(c.Param(name))
	if err != nil {
		label, ok := pathIDLabels[name]
		if !ok {
			label = name
		}
		return 0, apperr.Validation("Invalid " + label)
	}
	return id, nil
}

func parseID(s string) (uint, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, err
	}
	if id == 0 {
		return 0, errors.New("id must be positive")
	}
	return uint(id), nil
}

func formatID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

// FlexibleID accepts a user id sent either as a JSON number or as a numeric
// string. Zero means absent.
type FlexibleID uint

func (f *FlexibleID) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = 0
		return nil
	}
	var raw json.Number
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if strings.TrimSpace(s) == "" {
			*f = 0
			return nil
		}
		raw = json.Number(s)
	} else {
		raw = json.Number(b)
	}
	id, err := parseID(raw.String())
	if err != nil {
		return errInvalidUserID
	}
	*f = FlexibleID(id)
	return nil
}

var errInvalidUserID = errors.New("invalid user id")

// bindJSON decodes the body into req, answering 400 on malformed input.
func bindJSON(c *gin.Context, req any) error {
	if err := c.ShouldBindJSON(req); err != nil {
		if errors.Is(err, errInvalidUserID) {
			return apperr.Validation("Invalid user ID")
		}
		return &apperr.Error{Kind: apperr.KindValidation, Message: "Invalid request body", Err: err}
	}
	return nil
}
