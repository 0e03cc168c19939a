package cards

import (
	"context"
	"strings"

	"github.com/andrewpaige1/tarjetas-api/models"
	"gorm.io/gorm"
)

// AddCardToFavorites stars the word pair. It is not a toggle: the card ends
// up at the front of Favorites whether or not it was already there.
func (s *Service) AddCardToFavorites(ctx context.Context, english, spanish string, imageURL *string, isAI bool) (*models.Flashcard, error) {
	u, err := s.user(ctx)
	if err != nil {
		return nil, err
	}
	english, spanish = strings.TrimSpace(english), strings.TrimSpace(spanish)

	var card *models.Flashcard
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fav, err := ensureDeck(tx, u.ID, models.DeckFavorites)
		if err != nil {
			return err
		}
		card, err = upsertCard(tx, u.ID, english, spanish, imageURL, isAI)
		if err != nil {
			return err
		}
		return s.frontInsert(tx, fav.ID, card.ID)
	})
	if err != nil {
		return nil, s.fail("AddCardToFavorites", err, "user", u.ID, "english", english)
	}
	return card, nil
}

// RemoveCardFromFavorites unstars the word pair and files the card in
// Uncategorized so it is never left without a deck.
func (s *Service) RemoveCardFromFavorites(ctx context.Context, english, spanish string) error {
	u, err := s.user(ctx)
	if err != nil {
		return err
	}
	english, spanish = strings.TrimSpace(english), strings.TrimSpace(spanish)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fav, err := specialDeck(tx, u.ID, models.DeckFavorites)
		if err != nil {
			return err
		}
		card, err := cardByPair(tx, u.ID, english, spanish)
		if err != nil {
			return err
		}
		return s.moveToUncategorized(tx, u.ID, fav.ID, card.ID)
	})
	return s.fail("RemoveCardFromFavorites", err, "user", u.ID, "english", english)
}

// IsCardInFavorites reports false when any of the deck, card or membership
// is missing.
func (s *Service) IsCardInFavorites(ctx context.Context, english, spanish string) (bool, error) {
	u, err := s.user(ctx)
	if err != nil {
		return false, err
	}
	var count int64
	err = s.db.WithContext(ctx).Model(&models.DeckCard{}).
		Joins("JOIN decks ON decks.id = deck_cards.deck_id").
		Joins("JOIN flashcards ON flashcards.id = deck_cards.flashcard_id").
		Where("decks.user_id = ? AND decks.kind = ?", u.ID, models.DeckFavorites).
		Where("flashcards.user_id = ? AND flashcards.english_word = ? AND flashcards.spanish_word = ?",
			u.ID, strings.TrimSpace(english), strings.TrimSpace(spanish)).
		Count(&count).Error
	if err != nil {
		return false, s.fail("IsCardInFavorites", err, "user", u.ID)
	}
	return count > 0, nil
}
