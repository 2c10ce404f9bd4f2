package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"nexus/database"
	"nexus/mail"
	"nexus/models"
	"nexus/websocket"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Shared collaborators wired in at startup.
var hub *websocket.Hub
var mailer *mail.Mailer
var frontendURL = "http://localhost:3000"
var uploadDir = "uploads"

func SetHub(h *websocket.Hub) {
	hub = h
}

func SetMailer(m *mail.Mailer) {
	mailer = m
}

func SetFrontendURL(url string) {
	frontendURL = strings.TrimRight(url, "/")
}

func SetUploadDir(dir string) {
	uploadDir = dir
}

// currentUserID reads the id the auth middleware attached. On failure it
// writes the 401 itself and reports false.
func currentUserID(c *gin.Context) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.GetString("userId"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Please authenticate"})
		return primitive.NilObjectID, false
	}
	return id, true
}

func requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 10*time.Second)
}

func containsID(ids []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// fetchUserSummaries batch-loads the referenced users in one query and
// returns them keyed by id. Read-time join used everywhere a response embeds
// author/sender/participant data.
func fetchUserSummaries(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.UserSummary, error) {
	summaries := make(map[primitive.ObjectID]models.UserSummary)
	if len(ids) == 0 {
		return summaries, nil
	}

	seen := make(map[primitive.ObjectID]struct{}, len(ids))
	unique := ids[:0:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	cursor, err := database.Users.Find(ctx, bson.M{"_id": bson.M{"$in": unique}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var users []models.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}

	for _, u := range users {
		summaries[u.ID] = u.Summary()
	}
	return summaries, nil
}

// summaryOrFallback keeps joined responses non-null even when the referenced
// user is gone.
func summaryOrFallback(summaries map[primitive.ObjectID]models.UserSummary, id primitive.ObjectID) models.UserSummary {
	if s, ok := summaries[id]; ok {
		return s
	}
	return models.UserSummary{ID: id, Username: "unknown", Name: "Unknown", Avatar: models.DefaultAvatar}
}

var errUploadType = errors.New("only jpeg, jpg and png images are allowed")
var errUploadSize = errors.New("file is too large")

var imageExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true}
var storyExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".mp4": true}

// saveUpload writes a multipart file under the uploads directory and returns
// the public path the static route serves it from.
func saveUpload(c *gin.Context, field, subdir string, maxBytes int64, allowed map[string]bool) (string, error) {
	file, err := c.FormFile(field)
	if err != nil {
		return "", err
	}
	if file.Size > maxBytes {
		return "", errUploadSize
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowed[ext] {
		return "", errUploadType
	}

	name := fmt.Sprintf("%d-%s%s", time.Now().UnixMilli(), uuid.NewString(), ext)
	if err := c.SaveUploadedFile(file, filepath.Join(uploadDir, subdir, name)); err != nil {
		return "", err
	}
	return "/uploads/" + subdir + "/" + name, nil
}
