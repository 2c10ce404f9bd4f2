package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"nexus/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

func jsonRequest(t *testing.T, handler gin.HandlerFunc, body interface{}, setup func(*gin.Context)) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)

	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(raw))
	c.Request.Header.Set("Content-Type", "application/json")
	if setup != nil {
		setup(c)
	}

	handler(c)
	return w
}

func TestRegisterRejectsShortUsername(t *testing.T) {
	w := jsonRequest(t, Register, gin.H{
		"username": "ab",
		"email":    "ada@example.com",
		"password": "password123",
		"name":     "Ada",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRegisterRejectsInvalidEmail(t *testing.T) {
	w := jsonRequest(t, Register, gin.H{
		"username": "ada",
		"email":    "not-an-email",
		"password": "password123",
		"name":     "Ada",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	w := jsonRequest(t, Register, gin.H{
		"username": "ada",
		"email":    "ada@example.com",
		"password": "short",
		"name":     "Ada",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLoginRequiresBothFields(t *testing.T) {
	w := jsonRequest(t, Login, gin.H{"identifier": "ada"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestResetPasswordRequiresToken(t *testing.T) {
	w := jsonRequest(t, ResetPassword, gin.H{"password": "password123"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateProfileRejectsUnknownTheme(t *testing.T) {
	userID := primitive.NewObjectID()
	w := jsonRequest(t, UpdateProfile, gin.H{
		"theme": gin.H{"mode": "sepia"},
	}, func(c *gin.Context) {
		c.Set("userId", userID.Hex())
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdatePasswordRejectsWrongCurrent(t *testing.T) {
	hashed, err := bcrypt.GenerateFromPassword([]byte("correct-password"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	user := &models.User{ID: primitive.NewObjectID(), Password: string(hashed)}

	w := jsonRequest(t, UpdatePassword, gin.H{
		"currentPassword": "wrong-password",
		"newPassword":     "brand-new-password",
	}, func(c *gin.Context) {
		c.Set("currentUser", user)
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Current password is incorrect")
}

func TestHandlersRejectMissingIdentity(t *testing.T) {
	handlers := map[string]gin.HandlerFunc{
		"createPost":    CreatePost,
		"updateProfile": UpdateProfile,
		"subscribePush": SubscribePush,
	}
	for name, handler := range handlers {
		w := jsonRequest(t, handler, gin.H{}, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, name)
	}
}

func TestContainsID(t *testing.T) {
	a := primitive.NewObjectID()
	b := primitive.NewObjectID()

	assert.True(t, containsID([]primitive.ObjectID{a, b}, a))
	assert.False(t, containsID([]primitive.ObjectID{a}, b))
	assert.False(t, containsID(nil, a))
}

func TestSummaryOrFallback(t *testing.T) {
	known := primitive.NewObjectID()
	missing := primitive.NewObjectID()
	summaries := map[primitive.ObjectID]models.UserSummary{
		known: {ID: known, Username: "ada", Name: "Ada", Avatar: "a.png"},
	}

	assert.Equal(t, "ada", summaryOrFallback(summaries, known).Username)

	fallback := summaryOrFallback(summaries, missing)
	assert.Equal(t, "Unknown", fallback.Name)
	assert.Equal(t, models.DefaultAvatar, fallback.Avatar)
}
