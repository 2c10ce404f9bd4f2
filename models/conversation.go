package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// LastMessage is the denormalized snapshot kept on a conversation so the
// conversation list renders without touching the messages collection.
type LastMessage struct {
	Text      string             `bson:"text" json:"text"`
	Sender    primitive.ObjectID `bson:"sender" json:"sender"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

// Conversation links exactly two participants.
type Conversation struct {
	ID           primitive.ObjectID   `bson:"_id,omitempty" json:"_id"`
	Participants []primitive.ObjectID `bson:"participants" json:"participants"`
	LastMessage  *LastMessage         `bson:"lastMessage,omitempty" json:"lastMessage,omitempty"`
	CreatedAt    time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time            `bson:"updatedAt" json:"updatedAt"`
}
