package handlers

import (
	"net/http"
	"time"

	"nexus/database"
	"nexus/middleware"
	"nexus/models"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type UpdateProfileRequest struct {
	Name  string `json:"name"`
	Bio   string `json:"bio"`
	Theme *struct {
		Mode  string `json:"mode" binding:"omitempty,oneof=light dark"`
		Color string `json:"color" binding:"omitempty,oneof=blue green red violet yellow"`
	} `json:"theme"`
}

// GetMe serves both /users/me and /users/profile; the middleware already
// resolved the record.
func GetMe(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Please authenticate"})
		return
	}
	c.JSON(http.StatusOK, user)
}

func UpdateProfile(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	set := bson.M{"updatedAt": time.Now()}
	if req.Name != "" {
		set["name"] = req.Name
	}
	if req.Bio != "" {
		set["bio"] = req.Bio
	}
	if req.Theme != nil {
		if req.Theme.Mode != "" {
			set["theme.mode"] = req.Theme.Mode
		}
		if req.Theme.Color != "" {
			set["theme.color"] = req.Theme.Color
		}
	}

	ctx, cancel := requestContext()
	defer cancel()

	var updated models.User
	err := database.Users.FindOneAndUpdate(
		ctx,
		bson.M{"_id": userID},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err == mongo.ErrNoDocuments {
		c.JSON(http.StatusNotFound, gin.H{"message": "User not found"})
		return
	}
	if err != nil {
		zap.S().Errorf("profile update error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error updating profile"})
		return
	}

	c.JSON(http.StatusOK, updated)
}

func UpdatePassword(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Please authenticate"})
		return
	}

	var req struct {
		CurrentPassword string `json:"currentPassword" binding:"required"`
		NewPassword     string `json:"newPassword" binding:"required,min=8"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.CurrentPassword)); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Current password is incorrect"})
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	_, err = database.Users.UpdateOne(ctx, bson.M{"_id": user.ID}, bson.M{"$set": bson.M{
		"password":  string(hashed),
		"updatedAt": time.Now(),
	}})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error updating password"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password updated successfully"})
}

func UploadAvatar(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	path, err := saveUpload(c, "avatar", "avatars", 5<<20, imageExts)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	_, err = database.Users.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{"$set": bson.M{
		"avatar":    path,
		"updatedAt": time.Now(),
	}})
	if err != nil {
		zap.S().Errorf("avatar update error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error uploading image"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"avatar": path})
}

// GetUserByUsername returns a public profile with the user's posts joined at
// read time.
func GetUserByUsername(c *gin.Context) {
	ctx, cancel := requestContext()
	defer cancel()

	var user models.User
	err := database.Users.FindOne(ctx, bson.M{"username": c.Param("username")}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		c.JSON(http.StatusNotFound, gin.H{"message": "User not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
		return
	}

	posts, err := loadPosts(ctx, bson.M{"author": user.ID}, 0)
	if err != nil {
		zap.S().Errorf("user posts load error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"_id":       user.ID.Hex(),
		"username":  user.Username,
		"email":     user.Email,
		"name":      user.Name,
		"bio":       user.Bio,
		"avatar":    user.Avatar,
		"followers": user.Followers,
		"following": user.Following,
		"theme":     user.Theme,
		"createdAt": user.CreatedAt,
		"posts":     posts,
	})
}

func FollowUser(c *gin.Context) {
	current := middleware.CurrentUser(c)
	if current == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Please authenticate"})
		return
	}

	targetID, err := primitive.ObjectIDFromHex(c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid user ID"})
		return
	}
	if targetID == current.ID {
		c.JSON(http.StatusBadRequest, gin.H{"message": "You cannot follow yourself"})
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	count, err := database.Users.CountDocuments(ctx, bson.M{"_id": targetID})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
		return
	}
	if count == 0 {
		c.JSON(http.StatusNotFound, gin.H{"message": "User not found"})
		return
	}

	if containsID(current.Following, targetID) {
		c.JSON(http.StatusBadRequest, gin.H{"message": "You already follow this user"})
		return
	}

	// Two independent writes; no rollback if the second fails.
	_, err = database.Users.UpdateOne(ctx, bson.M{"_id": current.ID},
		bson.M{"$addToSet": bson.M{"following": targetID}})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error following user"})
		return
	}
	_, err = database.Users.UpdateOne(ctx, bson.M{"_id": targetID},
		bson.M{"$addToSet": bson.M{"followers": current.ID}})
	if err != nil {
		zap.S().Errorf("follow backlink write failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error following user"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "User followed successfully"})
}

func UnfollowUser(c *gin.Context) {
	current := middleware.CurrentUser(c)
	if current == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Please authenticate"})
		return
	}

	targetID, err := primitive.ObjectIDFromHex(c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid user ID"})
		return
	}
	if targetID == current.ID {
		c.JSON(http.StatusBadRequest, gin.H{"message": "You cannot unfollow yourself"})
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	count, err := database.Users.CountDocuments(ctx, bson.M{"_id": targetID})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
		return
	}
	if count == 0 {
		c.JSON(http.StatusNotFound, gin.H{"message": "User not found"})
		return
	}

	if !containsID(current.Following, targetID) {
		c.JSON(http.StatusBadRequest, gin.H{"message": "You do not follow this user"})
		return
	}

	_, err = database.Users.UpdateOne(ctx, bson.M{"_id": current.ID},
		bson.M{"$pull": bson.M{"following": targetID}})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error unfollowing user"})
		return
	}
	_, err = database.Users.UpdateOne(ctx, bson.M{"_id": targetID},
		bson.M{"$pull": bson.M{"followers": current.ID}})
	if err != nil {
		zap.S().Errorf("unfollow backlink write failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error unfollowing user"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "User unfollowed successfully"})
}
