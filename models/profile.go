package models

import "time"

// UserProfile holds the public, editable part of a user. There is at most one
// per user.
type UserProfile struct {
	ID             uint      `gorm:"primaryKey" bson:"_id" json:"id"`
	UserID         uint      `gorm:"uniqueIndex;not null" bson:"userId" json:"userId"`
	ProfilePicture string    `gorm:"size:1024" bson:"profilePicture" json:"profilePicture"`
	Bio            string    `gorm:"type:text" bson:"bio" json:"bio"`
	CreatedAt      time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time `bson:"updatedAt" json:"updatedAt"`

	User *User `gorm:"foreignKey:UserID" bson:"-" json:"user,omitempty"`
}
