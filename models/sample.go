package models

import "time"

// SampleCardCustomization stores a user's replacement image for a card of a
// built-in sample deck.
type SampleCardCustomization struct {
	ID           uint      `gorm:"primaryKey" json:"-"`
	UserID       string    `gorm:"not null;size:36;uniqueIndex:idx_sample_custom,priority:1" json:"user_id"`
	SampleDeckID string    `gorm:"not null;size:64;uniqueIndex:idx_sample_custom,priority:2" json:"sample_deck_id"`
	EnglishWord  string    `gorm:"not null;size:200;uniqueIndex:idx_sample_custom,priority:3" json:"english_word"`
	SpanishWord  string    `gorm:"not null;size:200;uniqueIndex:idx_sample_custom,priority:4" json:"spanish_word"`
	ImageURL     string    `gorm:"not null;size:2048" json:"image_url"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (SampleCardCustomization) TableName() string {
	return "user_sample_card_customizations"
}
