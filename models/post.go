package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Comment struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Author    primitive.ObjectID `bson:"author" json:"author"`
	Content   string             `bson:"content" json:"content"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

type Post struct {
	ID        primitive.ObjectID   `bson:"_id,omitempty" json:"_id"`
	Author    primitive.ObjectID   `bson:"author" json:"author"`
	Content   string               `bson:"content" json:"content"`
	Image     string               `bson:"image,omitempty" json:"image,omitempty"`
	Likes     []primitive.ObjectID `bson:"likes" json:"likes"`
	Comments  []Comment            `bson:"comments" json:"comments"`
	SavedBy   []primitive.ObjectID `bson:"savedBy" json:"savedBy"`
	CreatedAt time.Time            `bson:"createdAt" json:"createdAt"`
}
