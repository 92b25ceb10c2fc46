// File: internal/user/model.go
package user

import (
	"time"

	"gatortrader_backend/internal/common"
)

// User represents the user model in the database.
type User struct {
	common.BaseModel
	FirebaseUID    string     `gorm:"type:varchar(128);not null;uniqueIndex"`
	Email          string     `gorm:"type:varchar(255);not null;uniqueIndex"`
	Username       string     `gorm:"type:varchar(30);not null;uniqueIndex"`
	ProfilePicture string     `gorm:"type:varchar(512)"` // object path in the profile_pictures bucket
	LastLoginAt    *time.Time
}

// TableName specifies the table name for the User model.
func (User) TableName() string {
	return "users"
}

// RegisteredUser is the university roster that sign-up may be restricted to.
type RegisteredUser struct {
	Email     string    `gorm:"type:varchar(255);primaryKey"`
	CreatedAt time.Time `gorm:"not null"`
}

func (RegisteredUser) TableName() string {
	return "registered_users"
}

// --- DTOs ---

// UpdateProfileRequest is the body of PUT /users/me.
type UpdateProfileRequest struct {
	Username string `json:"username" binding:"required,min=3,max=30,username"`
}
