package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"nexus/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func authTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/protected", JWTAuthMiddleware(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"userId": c.GetString("userId")})
	})
	return router
}

func TestMissingTokenRejected(t *testing.T) {
	router := authTestRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMalformedHeaderRejected(t *testing.T) {
	router := authTestRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Token abc")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGarbageTokenRejected(t *testing.T) {
	router := authTestRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer not.a.token")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestValidTokenResolvesUser(t *testing.T) {
	userID := primitive.NewObjectID()
	SetUserLookup(func(ctx context.Context, hexID string) (*models.User, error) {
		if hexID != userID.Hex() {
			return nil, errors.New("unknown user")
		}
		return &models.User{ID: userID, Username: "ada"}, nil
	})
	t.Cleanup(func() { SetUserLookup(nil) })

	token, err := CreateToken(userID.Hex())
	require.NoError(t, err)

	router := authTestRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), userID.Hex())
}

func TestTokenForUnknownUserRejected(t *testing.T) {
	SetUserLookup(func(ctx context.Context, hexID string) (*models.User, error) {
		return nil, errors.New("not found")
	})
	t.Cleanup(func() { SetUserLookup(nil) })

	token, err := CreateToken(primitive.NewObjectID().Hex())
	require.NoError(t, err)

	router := authTestRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestQueryTokenFallback(t *testing.T) {
	userID := primitive.NewObjectID()
	SetUserLookup(func(ctx context.Context, hexID string) (*models.User, error) {
		return &models.User{ID: userID}, nil
	})
	t.Cleanup(func() { SetUserLookup(nil) })

	token, err := CreateToken(userID.Hex())
	require.NoError(t, err)

	router := authTestRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected?token="+token, nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
