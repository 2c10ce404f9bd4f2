package middleware

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"nexus/database"
	"nexus/models"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

type Claims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

// UserLookup resolves the id encoded in a token to a user record.
type UserLookup func(ctx context.Context, hexID string) (*models.User, error)

var lookupUser UserLookup = database.FindUserByID

// SetUserLookup replaces the store-backed user resolution. Tests use this to
// run the middleware without a database.
func SetUserLookup(fn UserLookup) {
	lookupUser = fn
}

func jwtSecret() []byte {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "your-secret-key"
	}
	return []byte(secret)
}

// CreateToken signs a 24h HS256 token carrying the user id.
func CreateToken(userID string) (string, error) {
	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(jwtSecret())
}

// JWTAuthMiddleware verifies the bearer token, resolves the encoded identity
// to a user record and attaches both to the request context. Rejects with
// 401 otherwise.
func JWTAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			// Query fallback for clients that cannot set headers
			// (websocket handshake).
			if token := c.Query("token"); token != "" {
				authHeader = "Bearer " + token
			}
		}
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "No authentication token, access denied"})
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid authorization header"})
			c.Abort()
			return
		}

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return jwtSecret(), nil
		})
		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Please authenticate"})
			c.Abort()
			return
		}

		user, err := lookupUser(c.Request.Context(), claims.UserID)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Please authenticate"})
			c.Abort()
			return
		}

		c.Set("userId", claims.UserID)
		c.Set("currentUser", user)
		c.Next()
	}
}

// CurrentUser returns the user attached by JWTAuthMiddleware.
func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get("currentUser")
	if !ok {
		return nil
	}
	user, _ := v.(*models.User)
	return user
}
