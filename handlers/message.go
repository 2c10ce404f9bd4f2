package handlers

import (
	"context"
	"net/http"
	"time"

	"nexus/database"
	"nexus/models"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

func conversationResponse(conv models.Conversation, users map[primitive.ObjectID]models.UserSummary) gin.H {
	participants := make([]models.UserSummary, len(conv.Participants))
	for i, p := range conv.Participants {
		participants[i] = summaryOrFallback(users, p)
	}

	return gin.H{
		"_id":          conv.ID.Hex(),
		"participants": participants,
		"lastMessage":  conv.LastMessage,
		"createdAt":    conv.CreatedAt,
		"updatedAt":    conv.UpdatedAt,
	}
}

func messageResponse(msg models.Message, sender models.UserSummary) gin.H {
	return gin.H{
		"_id":          msg.ID.Hex(),
		"conversation": msg.Conversation.Hex(),
		"sender":       sender,
		"text":         msg.Text,
		"media":        msg.Media,
		"read":         msg.Read,
		"createdAt":    msg.CreatedAt,
	}
}

func GetConversations(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "updatedAt", Value: -1}})
	cursor, err := database.Conversations.Find(ctx, bson.M{"participants": userID}, opts)
	if err != nil {
		zap.S().Errorf("conversations find error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error fetching conversations"})
		return
	}
	defer cursor.Close(ctx)

	var conversations []models.Conversation
	if err := cursor.All(ctx, &conversations); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error fetching conversations"})
		return
	}

	var refs []primitive.ObjectID
	for _, conv := range conversations {
		refs = append(refs, conv.Participants...)
	}

	users, err := fetchUserSummaries(ctx, refs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error fetching conversations"})
		return
	}

	response := make([]gin.H, len(conversations))
	for i, conv := range conversations {
		response[i] = conversationResponse(conv, users)
	}

	c.JSON(http.StatusOK, response)
}

// CreateConversation returns the existing conversation when one already
// links the pair, regardless of who initiated it.
func CreateConversation(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req struct {
		RecipientID string `json:"recipientId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	recipientID, err := primitive.ObjectIDFromHex(req.RecipientID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid recipient ID"})
		return
	}
	if recipientID == userID {
		c.JSON(http.StatusBadRequest, gin.H{"message": "You cannot message yourself"})
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	count, err := database.Users.CountDocuments(ctx, bson.M{"_id": recipientID})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
		return
	}
	if count == 0 {
		c.JSON(http.StatusNotFound, gin.H{"message": "User not found"})
		return
	}

	pair := []primitive.ObjectID{userID, recipientID}
	users, err := fetchUserSummaries(ctx, pair)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
		return
	}

	var existing models.Conversation
	err = database.Conversations.FindOne(ctx, bson.M{
		"participants": bson.M{"$all": pair},
	}).Decode(&existing)
	if err == nil {
		c.JSON(http.StatusOK, conversationResponse(existing, users))
		return
	}
	if err != mongo.ErrNoDocuments {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error creating conversation"})
		return
	}

	now := time.Now()
	conv := models.Conversation{
		ID:           primitive.NewObjectID(),
		Participants: pair,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if _, err := database.Conversations.InsertOne(ctx, conv); err != nil {
		zap.S().Errorf("conversation insert error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error creating conversation"})
		return
	}

	c.JSON(http.StatusCreated, conversationResponse(conv, users))
}

// findConversation writes the 404 itself when the conversation is missing or
// the caller is not a participant.
func findConversation(c *gin.Context, ctx context.Context, userID primitive.ObjectID) (*models.Conversation, bool) {
	convID, err := primitive.ObjectIDFromHex(c.Param("conversationId"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Conversation not found"})
		return nil, false
	}

	var conv models.Conversation
	err = database.Conversations.FindOne(ctx, bson.M{
		"_id":          convID,
		"participants": userID,
	}).Decode(&conv)
	if err == mongo.ErrNoDocuments {
		c.JSON(http.StatusNotFound, gin.H{"message": "Conversation not found"})
		return nil, false
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
		return nil, false
	}
	return &conv, true
}

// GetMessages returns a conversation's messages in creation order.
func GetMessages(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	conv, ok := findConversation(c, ctx, userID)
	if !ok {
		return
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cursor, err := database.Messages.Find(ctx, bson.M{"conversation": conv.ID}, opts)
	if err != nil {
		zap.S().Errorf("messages find error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error fetching messages"})
		return
	}
	defer cursor.Close(ctx)

	var messages []models.Message
	if err := cursor.All(ctx, &messages); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error fetching messages"})
		return
	}

	users, err := fetchUserSummaries(ctx, conv.Participants)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error fetching messages"})
		return
	}

	response := make([]gin.H, len(messages))
	for i, msg := range messages {
		response[i] = messageResponse(msg, summaryOrFallback(users, msg.Sender))
	}

	c.JSON(http.StatusOK, response)
}

// SendMessage is the single write path for messages: persist, refresh the
// conversation snapshot, then fan out to participant rooms and push the
// recipient.
func SendMessage(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req struct {
		Text string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	conv, ok := findConversation(c, ctx, userID)
	if !ok {
		return
	}

	msg := models.Message{
		ID:           primitive.NewObjectID(),
		Conversation: conv.ID,
		Sender:       userID,
		Text:         req.Text,
		CreatedAt:    time.Now(),
	}

	if _, err := database.Messages.InsertOne(ctx, msg); err != nil {
		zap.S().Errorf("message insert error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error sending message"})
		return
	}

	_, err := database.Conversations.UpdateOne(ctx, bson.M{"_id": conv.ID}, bson.M{"$set": bson.M{
		"lastMessage": models.LastMessage{
			Text:      msg.Text,
			Sender:    userID,
			CreatedAt: msg.CreatedAt,
		},
		"updatedAt": msg.CreatedAt,
	}})
	if err != nil {
		// Message is already durable; the stale snapshot heals on the next
		// send.
		zap.S().Warnf("conversation snapshot update failed: %v", err)
	}

	users, err := fetchUserSummaries(ctx, conv.Participants)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error sending message"})
		return
	}

	sender := summaryOrFallback(users, userID)
	response := messageResponse(msg, sender)

	if hub != nil {
		participants := make([]string, len(conv.Participants))
		for i, p := range conv.Participants {
			participants[i] = p.Hex()
		}
		hub.NotifyMessage(participants, conv.ID.Hex(), response)
	}

	for _, p := range conv.Participants {
		if p != userID {
			go notifyPush(p, sender.Name+" sent you a message", msg.Text, sender.Avatar)
		}
	}

	c.JSON(http.StatusCreated, response)
}
