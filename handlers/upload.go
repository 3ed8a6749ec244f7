package handlers

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"

	"pulse/apperr"
	"pulse/media"
	"pulse/middleware"
	"pulse/response"

	"github.com/gin-gonic/gin"
)

const (
	// maxUploadBody leaves room for form fields and multipart framing around
	// one image.
	maxUploadBody   = media.MaxImageBytes + 1<<20
	multipartMemory = 8 << 20
)

// UploadImage stores a post image for the session user and returns its URL.
func (h *Handler) UploadImage(c *gin.Context) {
	userID, err := middleware.SessionUserID(c)
	if err != nil {
		h.fail(c, "upload image", err)
		return
	}
	if h.Uploader == nil {
		h.fail(c, "upload image", apperr.Unavailable("Image uploads are not configured"))
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBody)
	fh, err := c.FormFile("image")
	if err != nil {
		h.fail(c, "upload image", apperr.Validation("No image file provided"))
		return
	}

	ctx, cancel := h.timeout(c, UploadTimeout)
	defer cancel()

	url, err := h.uploadImage(ctx, fh, media.PostImage(userID))
	if err != nil {
		h.fail(c, "upload image", err)
		return
	}
	response.OK(c, http.StatusCreated, "Image uploaded successfully", gin.H{"url": url})
}

func (h *Handler) uploadImage(ctx context.Context, fh *multipart.FileHeader, target media.Target) (string, error) {
	if h.Uploader == nil {
		return "", apperr.Unavailable("Image uploads are not configured")
	}

	file, err := media.OpenImage(fh)
	switch {
	case errors.Is(err, media.ErrNotImage):
		return "", apperr.Validation("File must be an image")
	case errors.Is(err, media.ErrTooLarge):
		return "", apperr.Validation("Image must be 10MB or smaller")
	case err != nil:
		return "", err
	}
	defer file.Close()

	url, err := h.Uploader.Upload(ctx, file, target)
	if err != nil {
		return "", &apperr.Error{Kind: apperr.KindUnavailable, Message: "Image upload failed", Err: err}
	}
	return url, nil
}
