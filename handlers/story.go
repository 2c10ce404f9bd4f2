package handlers

import (
	"net/http"
	"strings"
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
)

func storyResponse(story models.Story, users map[primitive.ObjectID]models.UserSummary) gin.H {
	return gin.H{
		"_id":       story.ID.Hex(),
		"user":      summaryOrFallback(users, story.User),
		"media":     story.Media,
		"mediaType": story.MediaType,
		"caption":   story.Caption,
		"views":     story.Views,
		"createdAt": story.CreatedAt,
		"expiresAt": story.ExpiresAt,
	}
}

func CreateStory(c *gin.Context) {
	current := middleware.CurrentUser(c)
	if current == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Please authenticate"})
		return
	}

	path, err := saveUpload(c, "media", "stories", 10<<20, storyExts)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	mediaType := "image"
	if strings.HasSuffix(path, ".mp4") {
		mediaType = "video"
	}

	now := time.Now()
	story := models.Story{
		ID:        primitive.NewObjectID(),
		User:      current.ID,
		Media:     path,
		MediaType: mediaType,
		Caption:   c.PostForm("caption"),
		Views:     []models.StoryView{},
		CreatedAt: now,
		ExpiresAt: now.Add(models.StoryTTL),
	}

	ctx, cancel := requestContext()
	defer cancel()

	if _, err := database.Stories.InsertOne(ctx, story); err != nil {
		zap.S().Errorf("story insert error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error creating story"})
		return
	}

	users := map[primitive.ObjectID]models.UserSummary{current.ID: current.Summary()}
	c.JSON(http.StatusCreated, storyResponse(story, users))
}

// GetStories returns unexpired stories by the caller and everyone they
// follow. The TTL index lags actual expiry, so the query filters on
// expiresAt as well.
func GetStories(c *gin.Context) {
	current := middleware.CurrentUser(c)
	if current == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Please authenticate"})
		return
	}

	owners := append([]primitive.ObjectID{current.ID}, current.Following...)

	ctx, cancel := requestContext()
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := database.Stories.Find(ctx, bson.M{
		"user":      bson.M{"$in": owners},
		"expiresAt": bson.M{"$gt": time.Now()},
	}, opts)
	if err != nil {
		zap.S().Errorf("stories find error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error fetching stories"})
		return
	}
	defer cursor.Close(ctx)

	var stories []models.Story
	if err := cursor.All(ctx, &stories); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error fetching stories"})
		return
	}

	var refs []primitive.ObjectID
	for _, s := range stories {
		refs = append(refs, s.User)
	}

	users, err := fetchUserSummaries(ctx, refs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error fetching stories"})
		return
	}

	response := make([]gin.H, len(stories))
	for i, s := range stories {
		response[i] = storyResponse(s, users)
	}

	c.JSON(http.StatusOK, response)
}

// ViewStory records the viewer once; owner views are not recorded.
func ViewStory(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	storyID, err := primitive.ObjectIDFromHex(c.Param("storyId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid story ID"})
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	var story models.Story
	err = database.Stories.FindOne(ctx, bson.M{"_id": storyID}).Decode(&story)
	if err == mongo.ErrNoDocuments {
		c.JSON(http.StatusNotFound, gin.H{"message": "Story not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
		return
	}

	if story.User == userID {
		c.JSON(http.StatusOK, gin.H{"message": "Story viewed"})
		return
	}
	for _, v := range story.Views {
		if v.User == userID {
			c.JSON(http.StatusOK, gin.H{"message": "Story viewed"})
			return
		}
	}

	_, err = database.Stories.UpdateOne(ctx, bson.M{"_id": storyID}, bson.M{
		"$push": bson.M{"views": models.StoryView{User: userID, ViewedAt: time.Now()}},
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error viewing story"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Story viewed"})
}
