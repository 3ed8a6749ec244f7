package handlers

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strings"

	"pulse/apperr"
	"pulse/database"
	"pulse/media"
	"pulse/middleware"
	"pulse/models"
	"pulse/response"

	"github.com/gin-gonic/gin"
)

const maxBioLength = 1000

// UpdateProfileRequest is the JSON body. Multipart bodies carry the same
// fields as form values, and profilePicture may be a file part instead.
type UpdateProfileRequest struct {
	Bio            *string `json:"bio"`
	ProfilePicture *string `json:"profilePicture"`
}

func (h *Handler) GetProfile(c *gin.Context) {
	userID, err := pathID(c, "userId")
	if err != nil {
		h.fail(c, "get profile", err)
		return
	}

	ctx, cancel := h.timeout(c, requestTimeout)
	defer cancel()

	profile, err := h.Store.ProfileByUserID(ctx, userID)
	if err != nil {
		h.fail(c, "get profile", err)
		return
	}
	response.OK(c, http.StatusOK, "Profile fetched successfully", newProfileView(profile))
}

// UpdateProfile changes the session user's bio and picture. Fields left out
// of the request keep their stored value. A multipart upload in the
// profilePicture field is stored on Cloudinary first.
func (h *Handler) UpdateProfile(c *gin.Context) {
	sessionID, err := middleware.SessionUserID(c)
	if err != nil {
		h.fail(c, "update profile", err)
		return
	}
	userID, err := pathID(c, "userId")
	if err != nil {
		h.fail(c, "update profile", err)
		return
	}
	if sessionID != userID {
		h.fail(c, "update profile", apperr.Forbidden("You can only edit your own profile"))
		return
	}

	var (
		req     UpdateProfileRequest
		picture *multipart.FileHeader
	)
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		req, picture, err = bindProfileForm(c)
	} else {
		err = c.ShouldBindJSON(&req)
	}
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		h.fail(c, "update profile", &apperr.Error{Kind: apperr.KindValidation, Message: "Image must be 10MB or smaller", Err: err})
		return
	case err != nil:
		h.fail(c, "update profile", &apperr.Error{Kind: apperr.KindValidation, Message: "Invalid request body", Err: err})
		return
	}
	if req.Bio != nil && len(*req.Bio) > maxBioLength {
		h.fail(c, "update profile", apperr.Validation("Bio is too long"))
		return
	}

	ctx, cancel := h.timeout(c, UploadTimeout)
	defer cancel()

	if picture != nil {
		url, err := h.uploadImage(ctx, picture, media.Avatar(userID))
		if err != nil {
			h.fail(c, "update profile", err)
			return
		}
		req.ProfilePicture = &url
	}

	current, err := h.Store.ProfileByUserID(ctx, userID)
	switch {
	case err == nil:
	case errors.Is(err, database.ErrNotFound):
		current = &models.UserProfile{UserID: userID}
	default:
		h.fail(c, "update profile", err)
		return
	}

	next := models.UserProfile{
		UserID:         userID,
		Bio:            current.Bio,
		ProfilePicture: current.ProfilePicture,
	}
	if req.Bio != nil {
		next.Bio = strings.TrimSpace(*req.Bio)
	}
	if req.ProfilePicture != nil {
		next.ProfilePicture = strings.TrimSpace(*req.ProfilePicture)
	}

	if err := h.Store.UpsertProfile(ctx, &next); err != nil {
		h.fail(c, "update profile", err)
		return
	}
	updated, err := h.Store.ProfileByUserID(ctx, userID)
	if err != nil {
		h.fail(c, "update profile", err)
		return
	}
	response.OK(c, http.StatusOK, "Profile updated successfully", newProfileView(updated))
}

// bindProfileForm reads a multipart profile update. The body is capped like an
// image upload. A profilePicture file part wins over a profilePicture value.
func bindProfileForm(c *gin.Context) (UpdateProfileRequest, *multipart.FileHeader, error) {
	var req UpdateProfileRequest
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBody)
	if err := c.Request.ParseMultipartForm(multipartMemory); err != nil {
		return req, nil, err
	}

	if bio, ok := c.GetPostForm("bio"); ok {
		req.Bio = &bio
	}
	if fh, err := c.FormFile("profilePicture"); err == nil {
		return req, fh, nil
	}
	if url, ok := c.GetPostForm("profilePicture"); ok {
		req.ProfilePicture = &url
	}
	return req, nil, nil
}
