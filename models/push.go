package models

import "time"

// PushSubscription is a browser Web Push endpoint registered by a user.
type PushSubscription struct {
	ID        uint      `gorm:"primaryKey" bson:"_id" json:"id"`
	UserID    uint      `gorm:"index;not null" bson:"userId" json:"userId"`
	Endpoint  string    `gorm:"size:2048;uniqueIndex;not null" bson:"endpoint" json:"endpoint"`
	P256dh    string    `gorm:"size:255;not null" bson:"p256dh" json:"-"`
	Auth      string    `gorm:"size:255;not null" bson:"auth" json:"-"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`

	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" bson:"-" json:"-"`
}
