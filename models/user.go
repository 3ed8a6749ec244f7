package models

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"

	ProviderEmail  = "email"
	ProviderGoogle = "google"
)

type User struct {
	ID           uint    `gorm:"primaryKey" bson:"_id" json:"id"`
	Email        string  `gorm:"size:320;uniqueIndex;not null" bson:"email" json:"email"`
	Username     string  `gorm:"size:64;uniqueIndex;not null" bson:"username" json:"username"`
	Name         string  `gorm:"size:255" bson:"name" json:"name"`
	Role         string  `gorm:"size:32;not null;default:user" bson:"role" json:"role"`
	PasswordHash *string `gorm:"size:255" bson:"passwordHash,omitempty" json:"-"`
	AuthProvider string  `gorm:"size:32;not null;default:email" bson:"authProvider" json:"authProvider"`
	GoogleID     *string `gorm:"size:64;uniqueIndex" bson:"googleId,omitempty" json:"-"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`

	// Populated by the store on reads that ask for it.
	Profile *UserProfile `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" bson:"-" json:"profile,omitempty"`
}
