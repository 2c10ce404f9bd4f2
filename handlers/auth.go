package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"time"

	"nexus/database"
	"nexus/middleware"
	"nexus/models"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Name     string `json:"name" binding:"required"`
}

type LoginRequest struct {
	Identifier string `json:"identifier" binding:"required"`
	Password   string `json:"password" binding:"required"`
}

// authUser is the user shape returned next to a fresh token.
func authUser(u models.User) gin.H {
	return gin.H{
		"_id":      u.ID.Hex(),
		"username": u.Username,
		"email":    u.Email,
		"name":     u.Name,
		"avatar":   u.Avatar,
	}
}

func Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	var existing models.User
	err := database.Users.FindOne(ctx, bson.M{
		"$or": []bson.M{{"email": req.Email}, {"username": req.Username}},
	}).Decode(&existing)
	if err == nil {
		if existing.Email == req.Email {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Email already exists"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"message": "Username already exists"})
		return
	}
	if err != mongo.ErrNoDocuments {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
		return
	}

	now := time.Now()
	user := models.User{
		ID:         primitive.NewObjectID(),
		Username:   req.Username,
		Email:      req.Email,
		Password:   string(hashed),
		Name:       req.Name,
		Avatar:     models.DefaultAvatar,
		Followers:  []primitive.ObjectID{},
		Following:  []primitive.ObjectID{},
		SavedPosts: []primitive.ObjectID{},
		Theme:      models.DefaultTheme(),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if _, err := database.Users.InsertOne(ctx, user); err != nil {
		// Unique index closes the race the FindOne above leaves open.
		if mongo.IsDuplicateKeyError(err) {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Email already exists"})
			return
		}
		zap.S().Errorf("register insert error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
		return
	}

	token, err := middleware.CreateToken(user.ID.Hex())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"token": token, "user": authUser(user)})
}

func Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	var user models.User
	err := database.Users.FindOne(ctx, bson.M{
		"$or": []bson.M{{"email": req.Identifier}, {"username": req.Identifier}},
	}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		c.JSON(http.StatusBadRequest, gin.H{"message": "User not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Incorrect password"})
		return
	}

	token, err := middleware.CreateToken(user.ID.Hex())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "user": authUser(user)})
}

func ForgotPassword(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	var user models.User
	err := database.Users.FindOne(ctx, bson.M{"email": req.Email}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		c.JSON(http.StatusNotFound, gin.H{"message": "No account with this email"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
		return
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
		return
	}
	resetToken := hex.EncodeToString(buf)

	_, err = database.Users.UpdateOne(ctx, bson.M{"_id": user.ID}, bson.M{"$set": bson.M{
		"resetToken":       resetToken,
		"resetTokenExpiry": time.Now().Add(time.Hour),
	}})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
		return
	}

	resetURL := frontendURL + "/reset-password?token=" + resetToken
	if err := mailer.SendPasswordReset(ctx, user.Email, resetURL); err != nil {
		zap.S().Errorf("reset mail to %s failed: %v", user.Email, err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error sending recovery email"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "A recovery link has been sent to your email"})
}

func ResetPassword(c *gin.Context) {
	var req struct {
		Token    string `json:"token" binding:"required"`
		Password string `json:"password" binding:"required,min=8"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	var user models.User
	err := database.Users.FindOne(ctx, bson.M{
		"resetToken":       req.Token,
		"resetTokenExpiry": bson.M{"$gt": time.Now()},
	}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid or expired token"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
		return
	}

	_, err = database.Users.UpdateOne(ctx, bson.M{"_id": user.ID}, bson.M{
		"$set":   bson.M{"password": string(hashed), "updatedAt": time.Now()},
		"$unset": bson.M{"resetToken": "", "resetTokenExpiry": ""},
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password updated successfully"})
}
