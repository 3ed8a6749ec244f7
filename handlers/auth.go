package handlers

import (
	"errors"
	"net/http"
	"strings"

	"pulse/apperr"
	"pulse/database"
	"pulse/middleware"
	"pulse/models"
	"pulse/response"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

type SignupRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Username string `json:"username" binding:"required,min=3,max=64"`
	Password string `json:"password" binding:"required,min=8"`
	Name     string `json:"name" binding:"max=255"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type sessionResult struct {
	Token  string `json:"token"`
	UserID string `json:"userId"`
}

func (h *Handler) Signup(c *gin.Context) {
	var req SignupRequest
	if err := bindJSON(c, &req); err != nil {
		h.fail(c, "signup", err)
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.fail(c, "signup", err)
		return
	}
	hash := string(hashed)

	ctx, cancel := h.timeout(c, requestTimeout)
	defer cancel()

	user := models.User{
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		Username:     strings.TrimSpace(req.Username),
		Name:         strings.TrimSpace(req.Name),
		Role:         models.RoleUser,
		PasswordHash: &hash,
		AuthProvider: models.ProviderEmail,
	}
	if err := h.Store.CreateUser(ctx, &user); err != nil {
		if errors.Is(err, database.ErrConflict) {
			h.fail(c, "signup", apperr.Conflict("Email or username already in use"))
			return
		}
		h.fail(c, "signup", err)
		return
	}

	h.respondWithSession(c, http.StatusCreated, "User created successfully", user.ID)
}

func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := bindJSON(c, &req); err != nil {
		h.fail(c, "login", err)
		return
	}

	ctx, cancel := h.timeout(c, requestTimeout)
	defer cancel()

	user, err := h.Store.UserByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if errors.Is(err, database.ErrNotFound) {
		h.fail(c, "login", apperr.Auth("Invalid email or password"))
		return
	}
	if err != nil {
		h.fail(c, "login", err)
		return
	}

	// Google-only accounts have no password.
	if user.PasswordHash == nil ||
		bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(req.Password)) != nil {
		h.fail(c, "login", apperr.Auth("Invalid email or password"))
		return
	}

	h.respondWithSession(c, http.StatusOK, "Login successful", user.ID)
}

func (h *Handler) respondWithSession(c *gin.Context, status int, message string, userID uint) {
	token, err := middleware.IssueToken(h.Config.JWTSecret, userID, h.Config.TokenTTL)
	if err != nil {
		h.fail(c, "issue token", err)
		return
	}
	response.OK(c, status, message, sessionResult{Token: token, UserID: formatID(userID)})
}
