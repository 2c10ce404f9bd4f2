package database

import (
	"context"
	"time"

	"nexus/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var Client *mongo.Client
var Users *mongo.Collection
var Posts *mongo.Collection
var Conversations *mongo.Collection
var Messages *mongo.Collection
var Stories *mongo.Collection
var PushSubs *mongo.Collection

func Connect(uri, dbName string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	var err error
	Client, err = mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return err
	}

	if err := Client.Ping(ctx, nil); err != nil {
		return err
	}

	db := Client.Database(dbName)
	Users = db.Collection("users")
	Posts = db.Collection("posts")
	Conversations = db.Collection("conversations")
	Messages = db.Collection("messages")
	Stories = db.Collection("stories")
	PushSubs = db.Collection("push_subscriptions")

	return nil
}

// EnsureIndexes creates the unique identity indexes, the query indexes the
// handlers rely on and the TTL index that lets the store expire stories on
// its own.
func EnsureIndexes(ctx context.Context) error {
	unique := options.Index().SetUnique(true)

	_, err := Users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: unique},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: unique},
	})
	if err != nil {
		return err
	}

	_, err = Conversations.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "participants", Value: 1}},
	})
	if err != nil {
		return err
	}

	_, err = Messages.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "conversation", Value: 1}, {Key: "createdAt", Value: 1}},
	})
	if err != nil {
		return err
	}

	_, err = Posts.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "author", Value: 1}, {Key: "createdAt", Value: -1}},
	})
	if err != nil {
		return err
	}

	_, err = Stories.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expiresAt", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	})
	return err
}

func Disconnect() error {
	if Client == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return Client.Disconnect(ctx)
}

// FindUserByID resolves a hex id to a user document. The auth middleware is
// wired to this at startup.
func FindUserByID(ctx context.Context, hexID string) (*models.User, error) {
	id, err := primitive.ObjectIDFromHex(hexID)
	if err != nil {
		return nil, err
	}

	var user models.User
	if err := Users.FindOne(ctx, bson.M{"_id": id}).Decode(&user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ConversationParticipants returns the participant ids of a conversation as
// hex strings. The websocket hub is wired to this at startup.
func ConversationParticipants(ctx context.Context, hexID string) ([]string, error) {
	id, err := primitive.ObjectIDFromHex(hexID)
	if err != nil {
		return nil, err
	}

	var conv models.Conversation
	if err := Conversations.FindOne(ctx, bson.M{"_id": id}).Decode(&conv); err != nil {
		return nil, err
	}

	participants := make([]string, len(conv.Participants))
	for i, p := range conv.Participants {
		participants[i] = p.Hex()
	}
	return participants, nil
}
