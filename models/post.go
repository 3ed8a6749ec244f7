package models

import "time"

type Post struct {
	ID          uint      `gorm:"primaryKey" bson:"_id" json:"id"`
	UserID      uint      `gorm:"index;not null" bson:"userId" json:"userId"`
	Description string    `gorm:"type:text;not null" bson:"description" json:"description"`
	ImageURL    *string   `gorm:"size:1024" bson:"imageUrl,omitempty" json:"imageUrl"`
	CreatedAt   time.Time `gorm:"index" bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time `bson:"updatedAt" json:"updatedAt"`

	User     *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" bson:"-" json:"user,omitempty"`
	Comments []Comment `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" bson:"-" json:"comments,omitempty"`
	Likes    []Like    `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" bson:"-" json:"likes,omitempty"`
}

type Comment struct {
	ID        uint      `gorm:"primaryKey" bson:"_id" json:"id"`
	PostID    uint      `gorm:"index;not null" bson:"postId" json:"postId"`
	UserID    uint      `gorm:"index;not null" bson:"userId" json:"userId"`
	Content   string    `gorm:"type:text;not null" bson:"content" json:"content"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`

	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" bson:"-" json:"user,omitempty"`
}

// Like is unique per (user, post).
type Like struct {
	ID        uint      `gorm:"primaryKey" bson:"_id" json:"id"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_likes_user_post,priority:2" bson:"postId" json:"postId"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_likes_user_post,priority:1" bson:"userId" json:"userId"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`

	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" bson:"-" json:"user,omitempty"`
}
