package cards

import (
	"context"
	"strings"

	"github.com/andrewpaige1/tarjetas-api/models"
	"gorm.io/gorm"
)

// CreateFlashcard returns the user's card for the word pair, creating it
// when it does not exist yet.
func (s *Service) CreateFlashcard(ctx context.Context, english, spanish string, imageURL *string, isAI bool) (*models.Flashcard, error) {
	u, err := s.user(ctx)
	if err != nil {
		return nil, err
	}
	english, spanish = strings.TrimSpace(english), strings.TrimSpace(spanish)

	card, err := upsertCard(s.db.WithContext(ctx), u.ID, english, spanish, imageURL, isAI)
	if err != nil {
		return nil, s.fail("CreateFlashcard", err, "user", u.ID, "english", english)
	}
	return card, nil
}

// DeleteFlashcard removes the card and every membership that references it.
// The decks it leaves are renumbered.
func (s *Service) DeleteFlashcard(ctx context.Context, cardID string) error {
	u, err := s.user(ctx)
	if err != nil {
		return err
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := ownedCard(tx, u.ID, cardID); err != nil {
			return err
		}
		return hardDelete(tx, u.ID, cardID)
	})
	return s.fail("DeleteFlashcard", err, "user", u.ID, "card", cardID)
}

// UpdateFlashcardImage replaces the card image. A nil or empty url clears it.
func (s *Service) UpdateFlashcardImage(ctx context.Context, cardID string, imageURL *string) error {
	u, err := s.user(ctx)
	if err != nil {
		return err
	}
	var value interface{}
	if imageURL != nil && strings.TrimSpace(*imageURL) != "" {
		value = strings.TrimSpace(*imageURL)
	}
	res := s.db.WithContext(ctx).Model(&models.Flashcard{}).
		Where("id = ? AND user_id = ?", cardID, u.ID).
		Update("image_url", value)
	if res.Error != nil {
		return s.fail("UpdateFlashcardImage", res.Error, "user", u.ID, "card", cardID)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Service) Flashcard(ctx context.Context, cardID string) (*models.Flashcard, error) {
	u, err := s.user(ctx)
	if err != nil {
		return nil, err
	}
	card, err := ownedCard(s.db.WithContext(ctx), u.ID, cardID)
	if err != nil {
		return nil, s.fail("Flashcard", err, "user", u.ID, "card", cardID)
	}
	return card, nil
}

// ListFlashcards returns every card of the user, newest first.
func (s *Service) ListFlashcards(ctx context.Context) ([]models.Flashcard, error) {
	u, err := s.user(ctx)
	if err != nil {
		return nil, err
	}
	var cards []models.Flashcard
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", u.ID).
		Order("created_at desc").
		Find(&cards).Error; err != nil {
		return nil, s.fail("ListFlashcards", err, "user", u.ID)
	}
	return cards, nil
}

// DeckCountForCard is the number of decks the card belongs to.
func (s *Service) DeckCountForCard(ctx context.Context, cardID string) (int64, error) {
	u, err := s.user(ctx)
	if err != nil {
		return 0, err
	}
	db := s.db.WithContext(ctx)
	if _, err := ownedCard(db, u.ID, cardID); err != nil {
		return 0, s.fail("DeckCountForCard", err, "card", cardID)
	}
	var count int64
	if err := db.Model(&models.DeckCard{}).Where("flashcard_id = ?", cardID).Count(&count).Error; err != nil {
		return 0, s.fail("DeckCountForCard", err, "card", cardID)
	}
	return count, nil
}
