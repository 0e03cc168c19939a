package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is created the first time an identity provider subject signs in.
type User struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Auth0ID   string    `gorm:"uniqueIndex;not null;size:191" json:"auth0_id"`
	Nickname  string    `gorm:"size:100" json:"nickname"`
	Email     string    `gorm:"size:255" json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}
