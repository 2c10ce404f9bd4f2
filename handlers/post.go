package handlers

import (
	"context"
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
)

const feedLimit = 20

// postResponse embeds the joined author and comment authors.
func postResponse(post models.Post, users map[primitive.ObjectID]models.UserSummary) gin.H {
	comments := make([]gin.H, len(post.Comments))
	for i, cm := range post.Comments {
		comments[i] = gin.H{
			"_id":       cm.ID.Hex(),
			"author":    summaryOrFallback(users, cm.Author),
			"content":   cm.Content,
			"createdAt": cm.CreatedAt,
		}
	}

	return gin.H{
		"_id":       post.ID.Hex(),
		"author":    summaryOrFallback(users, post.Author),
		"content":   post.Content,
		"image":     post.Image,
		"likes":     post.Likes,
		"comments":  comments,
		"savedBy":   post.SavedBy,
		"createdAt": post.CreatedAt,
	}
}

// loadPosts fetches posts newest first, batch-fetches every referenced user
// and assembles the joined responses. limit 0 means unbounded.
func loadPosts(ctx context.Context, filter bson.M, limit int64) ([]gin.H, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cursor, err := database.Posts.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var posts []models.Post
	if err := cursor.All(ctx, &posts); err != nil {
		return nil, err
	}

	var refs []primitive.ObjectID
	for _, p := range posts {
		refs = append(refs, p.Author)
		for _, cm := range p.Comments {
			refs = append(refs, cm.Author)
		}
	}

	users, err := fetchUserSummaries(ctx, refs)
	if err != nil {
		return nil, err
	}

	response := make([]gin.H, len(posts))
	for i, p := range posts {
		response[i] = postResponse(p, users)
	}
	return response, nil
}

func CreatePost(c *gin.Context) {
	current := middleware.CurrentUser(c)
	if current == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Please authenticate"})
		return
	}

	content := c.PostForm("content")
	if content == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Content is required"})
		return
	}

	image := ""
	if _, err := c.FormFile("image"); err == nil {
		path, err := saveUpload(c, "image", "posts", 10<<20, imageExts)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
			return
		}
		image = path
	}

	post := models.Post{
		ID:        primitive.NewObjectID(),
		Author:    current.ID,
		Content:   content,
		Image:     image,
		Likes:     []primitive.ObjectID{},
		Comments:  []models.Comment{},
		SavedBy:   []primitive.ObjectID{},
		CreatedAt: time.Now(),
	}

	ctx, cancel := requestContext()
	defer cancel()

	if _, err := database.Posts.InsertOne(ctx, post); err != nil {
		zap.S().Errorf("create post error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error creating post"})
		return
	}

	users := map[primitive.ObjectID]models.UserSummary{current.ID: current.Summary()}
	c.JSON(http.StatusCreated, postResponse(post, users))
}

// GetFeed returns the 20 most recent posts by the caller and everyone they
// follow.
func GetFeed(c *gin.Context) {
	current := middleware.CurrentUser(c)
	if current == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Please authenticate"})
		return
	}

	authors := append([]primitive.ObjectID{current.ID}, current.Following...)

	ctx, cancel := requestContext()
	defer cancel()

	posts, err := loadPosts(ctx, bson.M{"author": bson.M{"$in": authors}}, feedLimit)
	if err != nil {
		zap.S().Errorf("feed load error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error fetching feed"})
		return
	}

	c.JSON(http.StatusOK, posts)
}

func GetUserPosts(c *gin.Context) {
	authorID, err := primitive.ObjectIDFromHex(c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid user ID"})
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	posts, err := loadPosts(ctx, bson.M{"author": authorID}, 0)
	if err != nil {
		zap.S().Errorf("user posts load error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error fetching posts"})
		return
	}

	c.JSON(http.StatusOK, posts)
}

// findPost writes the error response itself when the post cannot be served.
func findPost(c *gin.Context, ctx context.Context) (*models.Post, bool) {
	postID, err := primitive.ObjectIDFromHex(c.Param("postId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid post ID"})
		return nil, false
	}

	var post models.Post
	err = database.Posts.FindOne(ctx, bson.M{"_id": postID}).Decode(&post)
	if err == mongo.ErrNoDocuments {
		c.JSON(http.StatusNotFound, gin.H{"message": "Post not found"})
		return nil, false
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
		return nil, false
	}
	return &post, true
}

func LikePost(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	post, ok := findPost(c, ctx)
	if !ok {
		return
	}

	if containsID(post.Likes, userID) {
		c.JSON(http.StatusBadRequest, gin.H{"message": "You already liked this post"})
		return
	}

	_, err := database.Posts.UpdateOne(ctx, bson.M{"_id": post.ID},
		bson.M{"$addToSet": bson.M{"likes": userID}})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error liking post"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Like added successfully"})
}

func UnlikePost(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	post, ok := findPost(c, ctx)
	if !ok {
		return
	}

	if !containsID(post.Likes, userID) {
		c.JSON(http.StatusBadRequest, gin.H{"message": "You have not liked this post"})
		return
	}

	_, err := database.Posts.UpdateOne(ctx, bson.M{"_id": post.ID},
		bson.M{"$pull": bson.M{"likes": userID}})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error removing like"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Like removed successfully"})
}

func AddComment(c *gin.Context) {
	current := middleware.CurrentUser(c)
	if current == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Please authenticate"})
		return
	}

	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	post, ok := findPost(c, ctx)
	if !ok {
		return
	}

	comment := models.Comment{
		ID:        primitive.NewObjectID(),
		Author:    current.ID,
		Content:   req.Content,
		CreatedAt: time.Now(),
	}

	_, err := database.Posts.UpdateOne(ctx, bson.M{"_id": post.ID},
		bson.M{"$push": bson.M{"comments": comment}})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error adding comment"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"_id":       comment.ID.Hex(),
		"author":    current.Summary(),
		"content":   comment.Content,
		"createdAt": comment.CreatedAt,
	})
}

func SavePost(c *gin.Context) {
	current := middleware.CurrentUser(c)
	if current == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Please authenticate"})
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	post, ok := findPost(c, ctx)
	if !ok {
		return
	}

	if containsID(current.SavedPosts, post.ID) {
		c.JSON(http.StatusBadRequest, gin.H{"message": "You already saved this post"})
		return
	}

	_, err := database.Users.UpdateOne(ctx, bson.M{"_id": current.ID},
		bson.M{"$addToSet": bson.M{"savedPosts": post.ID}})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error saving post"})
		return
	}
	_, err = database.Posts.UpdateOne(ctx, bson.M{"_id": post.ID},
		bson.M{"$addToSet": bson.M{"savedBy": current.ID}})
	if err != nil {
		zap.S().Errorf("savedBy backlink write failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error saving post"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Post saved successfully"})
}

func UnsavePost(c *gin.Context) {
	current := middleware.CurrentUser(c)
	if current == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Please authenticate"})
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	post, ok := findPost(c, ctx)
	if !ok {
		return
	}

	if !containsID(current.SavedPosts, post.ID) {
		c.JSON(http.StatusBadRequest, gin.H{"message": "You have not saved this post"})
		return
	}

	_, err := database.Users.UpdateOne(ctx, bson.M{"_id": current.ID},
		bson.M{"$pull": bson.M{"savedPosts": post.ID}})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error removing saved post"})
		return
	}
	_, err = database.Posts.UpdateOne(ctx, bson.M{"_id": post.ID},
		bson.M{"$pull": bson.M{"savedBy": current.ID}})
	if err != nil {
		zap.S().Errorf("savedBy backlink write failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error removing saved post"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Post removed from saved successfully"})
}

func GetSavedPosts(c *gin.Context) {
	current := middleware.CurrentUser(c)
	if current == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Please authenticate"})
		return
	}

	if len(current.SavedPosts) == 0 {
		c.JSON(http.StatusOK, []gin.H{})
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	posts, err := loadPosts(ctx, bson.M{"_id": bson.M{"$in": current.SavedPosts}}, 0)
	if err != nil {
		zap.S().Errorf("saved posts load error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error fetching saved posts"})
		return
	}

	c.JSON(http.StatusOK, posts)
}
