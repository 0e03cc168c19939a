package models

import (
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"gorm.io/gorm"
)

type DeckKind string

const (
	DeckOrdinary      DeckKind = "ordinary"
	DeckFavorites     DeckKind = "favorites"
	DeckUncategorized DeckKind = "uncategorized"
)

// DisplayName is the name given to lazily created special decks.
func (k DeckKind) DisplayName() string {
	switch k {
	case DeckFavorites:
		return "Favorites"
	case DeckUncategorized:
		return "Uncategorized"
	default:
		return ""
	}
}

// Deck is a named collection of flashcards. Favorites and Uncategorized are
// identified by Kind, never by Name; a user owns at most one of each.
type Deck struct {
	ID          string    `gorm:"primaryKey;size:32" json:"id"`
	UserID      string    `gorm:"not null;size:36;index;uniqueIndex:idx_decks_special,where:kind <> 'ordinary'" json:"user_id"`
	User        User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Name        string    `gorm:"not null;size:100" json:"name"`
	Description *string   `gorm:"size:500" json:"description"`
	Kind        DeckKind  `gorm:"type:varchar(16);not null;default:ordinary;uniqueIndex:idx_decks_special,where:kind <> 'ordinary'" json:"kind"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (d *Deck) BeforeCreate(tx *gorm.DB) error {
	if d.Kind == "" {
		d.Kind = DeckOrdinary
	}
	if d.ID != "" {
		return nil
	}
	id, err := gonanoid.New()
	if err != nil {
		return err
	}
	d.ID = id
	return nil
}

// DeckCard places a flashcard in a deck. Position 0 is shown first.
type DeckCard struct {
	DeckID      string    `gorm:"primaryKey;size:32" json:"deck_id"`
	FlashcardID string    `gorm:"primaryKey;size:32;index" json:"flashcard_id"`
	Deck        Deck      `gorm:"foreignKey:DeckID;constraint:OnDelete:CASCADE" json:"-"`
	Flashcard   Flashcard `gorm:"foreignKey:FlashcardID;constraint:OnDelete:CASCADE" json:"-"`
	Position    int       `gorm:"not null;default:0" json:"position"`
	CreatedAt   time.Time `json:"created_at"`
}

func (DeckCard) TableName() string {
	return "deck_cards"
}
