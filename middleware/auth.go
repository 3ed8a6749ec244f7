package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"pulse/apperr"
	"pulse/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// ContextUserID is the gin context key holding the session user id (string).
const ContextUserID = "userId"

type Claims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

// IssueToken signs an HS256 session token for userID valid for ttl.
func IssueToken(secret string, userID uint, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: strconv.FormatUint(uint64(userID), 10),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ParseToken validates tokenString and returns its claims.
func ParseToken(secret, tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("token is not valid")
	}
	return claims, nil
}

// bearerToken reads the token from the Authorization header, falling back to
// the token query parameter used by websocket clients.
func bearerToken(c *gin.Context) (string, error) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		token := c.Query("token")
		if token == "" {
			return "", apperr.Auth("Authentication required")
		}
		return token, nil
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", apperr.Auth("Invalid authorization header")
	}
	return parts[1], nil
}

// RequireSession rejects requests without a valid session token with 401 and
// stores the session user id under ContextUserID.
func RequireSession(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		// CORS preflight carries no credentials.
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		tokenString, err := bearerToken(c)
		if err != nil {
			response.Abort(c, nil, err)
			return
		}

		claims, err := ParseToken(secret, tokenString)
		if err != nil {
			response.Abort(c, nil, &apperr.Error{Kind: apperr.KindAuth, Message: "Invalid token", Err: err})
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Next()
	}
}

// SessionUserID returns the numeric id of the session user. A missing or
// non-numeric id is an authentication failure.
func SessionUserID(c *gin.Context) (uint, error) {
	raw := c.GetString(ContextUserID)
	if raw == "" {
		return 0, apperr.Auth("Authentication required")
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.Auth("Invalid session")
	}
	return uint(id), nil
}
