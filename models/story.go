package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const StoryTTL = 24 * time.Hour

type StoryView struct {
	User     primitive.ObjectID `bson:"user" json:"user"`
	ViewedAt time.Time          `bson:"viewedAt" json:"viewedAt"`
}

// Story expires StoryTTL after creation; the store drops expired documents
// through a TTL index on expiresAt.
type Story struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	User      primitive.ObjectID `bson:"user" json:"user"`
	Media     string             `bson:"media" json:"media"`
	MediaType string             `bson:"mediaType" json:"mediaType"`
	Caption   string             `bson:"caption,omitempty" json:"caption,omitempty"`
	Views     []StoryView        `bson:"views" json:"views"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	ExpiresAt time.Time          `bson:"expiresAt" json:"expiresAt"`
}
