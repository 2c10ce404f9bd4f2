package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Message struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Conversation primitive.ObjectID `bson:"conversation" json:"conversation"`
	Sender       primitive.ObjectID `bson:"sender" json:"sender"`
	Text         string             `bson:"text" json:"text"`
	Media        string             `bson:"media,omitempty" json:"media,omitempty"`
	Read         bool               `bson:"read" json:"read"`
	ReadAt       *time.Time         `bson:"readAt,omitempty" json:"readAt,omitempty"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
}
