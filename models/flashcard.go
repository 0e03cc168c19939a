package models

import (
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"gorm.io/gorm"
)

// Flashcard is one English/Spanish word pair. A user has at most one card
// per exact (case-sensitive) pair.
type Flashcard struct {
	ID            string    `gorm:"primaryKey;size:32" json:"id"`
	UserID        string    `gorm:"not null;size:36;uniqueIndex:idx_flashcards_pair,priority:1" json:"user_id"`
	User          User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	EnglishWord   string    `gorm:"not null;size:200;uniqueIndex:idx_flashcards_pair,priority:2" json:"english_word"`
	SpanishWord   string    `gorm:"not null;size:200;uniqueIndex:idx_flashcards_pair,priority:3" json:"spanish_word"`
	ImageURL      *string   `gorm:"size:2048" json:"image_url"`
	IsAIGenerated bool      `gorm:"not null;default:false" json:"is_ai_generated"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (f *Flashcard) BeforeCreate(tx *gorm.DB) error {
	if f.ID != "" {
		return nil
	}
	id, err := gonanoid.New()
	if err != nil {
		return err
	}
	f.ID = id
	return nil
}

// Image returns the image url or "" when the card has none.
func (f *Flashcard) Image() string {
	if f.ImageURL == nil {
		return ""
	}
	return *f.ImageURL
}
