package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"time"

	"nexus/database"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// PushSubscription stores a browser's webpush endpoint per user.
type PushSubscription struct {
	ID     primitive.ObjectID   `bson:"_id,omitempty"`
	UserID primitive.ObjectID   `bson:"userId"`
	Sub    webpush.Subscription `bson:"sub"`
}

var vapidPrivateKey string

func init() {
	// Generated keys only survive the process; set the env variables for
	// anything beyond local development.
	if os.Getenv("VAPID_PUBLIC_KEY") == "" || os.Getenv("VAPID_PRIVATE_KEY") == "" {
		privateKey, publicKey, err := webpush.GenerateVAPIDKeys()
		if err != nil {
			zap.S().Warnf("failed to generate VAPID keys: %v", err)
			return
		}
		os.Setenv("VAPID_PUBLIC_KEY", publicKey)
		os.Setenv("VAPID_PRIVATE_KEY", privateKey)
	}
	vapidPrivateKey = os.Getenv("VAPID_PRIVATE_KEY")
}

func GetVapidPublicKey(c *gin.Context) {
	publicKey := os.Getenv("VAPID_PUBLIC_KEY")
	if publicKey == "" {
		c.JSON(http.StatusNotFound, gin.H{"message": "Push notifications not configured"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"publicKey": publicKey})
}

func SubscribePush(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var sub webpush.Subscription
	if err := c.ShouldBindJSON(&sub); err != nil || sub.Endpoint == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid subscription"})
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	_, err := database.PushSubs.ReplaceOne(
		ctx,
		bson.M{"userId": userID},
		PushSubscription{UserID: userID, Sub: sub},
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		zap.S().Errorf("push subscription upsert error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error saving subscription"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Subscribed"})
}

// notifyPush is best-effort; missing subscriptions and delivery failures are
// not surfaced to the sender.
func notifyPush(userID primitive.ObjectID, title, body, icon string) {
	defer func() {
		if r := recover(); r != nil {
			zap.S().Errorf("panic in push notification: %v", r)
		}
	}()

	if vapidPrivateKey == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var sub PushSubscription
	err := database.PushSubs.FindOne(ctx, bson.M{"userId": userID}).Decode(&sub)
	if err == mongo.ErrNoDocuments {
		return
	}
	if err != nil {
		zap.S().Warnf("push subscription lookup failed: %v", err)
		return
	}

	payload, err := json.Marshal(map[string]string{
		"title": title,
		"body":  body,
		"icon":  icon,
	})
	if err != nil {
		return
	}

	resp, err := webpush.SendNotification(payload, &sub.Sub, &webpush.Options{
		Subscriber:      os.Getenv("MAIL_SENDER"),
		VAPIDPublicKey:  os.Getenv("VAPID_PUBLIC_KEY"),
		VAPIDPrivateKey: vapidPrivateKey,
		TTL:             30,
	})
	if err != nil {
		zap.S().Warnf("push send failed: %v", err)
		return
	}
	resp.Body.Close()
}
