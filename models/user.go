package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Theme is the client-side preference stored per user.
type Theme struct {
	Mode  string `bson:"mode" json:"mode"`
	Color string `bson:"color" json:"color"`
}

type User struct {
	ID               primitive.ObjectID   `bson:"_id,omitempty" json:"_id"`
	Username         string               `bson:"username" json:"username"`
	Email            string               `bson:"email" json:"email"`
	Password         string               `bson:"password" json:"-"`
	Name             string               `bson:"name" json:"name"`
	Bio              string               `bson:"bio" json:"bio"`
	Avatar           string               `bson:"avatar" json:"avatar"`
	Followers        []primitive.ObjectID `bson:"followers" json:"followers"`
	Following        []primitive.ObjectID `bson:"following" json:"following"`
	SavedPosts       []primitive.ObjectID `bson:"savedPosts" json:"savedPosts"`
	Theme            Theme                `bson:"theme" json:"theme"`
	ResetToken       string               `bson:"resetToken,omitempty" json:"-"`
	ResetTokenExpiry time.Time            `bson:"resetTokenExpiry,omitempty" json:"-"`
	CreatedAt        time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time            `bson:"updatedAt" json:"updatedAt"`
}

// UserSummary is the shape embedded in joined responses
// (post authors, message senders, conversation participants).
type UserSummary struct {
	ID       primitive.ObjectID `json:"_id"`
	Username string             `json:"username"`
	Name     string             `json:"name"`
	Avatar   string             `json:"avatar"`
}

func (u User) Summary() UserSummary {
	return UserSummary{
		ID:       u.ID,
		Username: u.Username,
		Name:     u.Name,
		Avatar:   u.Avatar,
	}
}

const DefaultAvatar = "default-avatar.jpg"

func DefaultTheme() Theme {
	return Theme{Mode: "light", Color: "blue"}
}
