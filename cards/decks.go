package cards

import (
	"context"
	"strings"
	"time"

	"github.com/andrewpaige1/tarjetas-api/models"
	"gorm.io/gorm"
)

// DeckCardView is a flashcard as seen through one deck.
type DeckCardView struct {
	models.Flashcard
	Position int       `json:"position"`
	AddedAt  time.Time `json:"added_at"`
}

// DeckSummary annotates a deck with derived values.
type DeckSummary struct {
	models.Deck
	CardCount  int    `json:"card_count"`
	CoverImage string `json:"cover_image,omitempty"`
}

// CreateDeck creates an ordinary deck. Names are not unique.
func (s *Service) CreateDeck(ctx context.Context, name string, description *string) (*models.Deck, error) {
	u, err := s.user(ctx)
	if err != nil {
		return nil, err
	}
	deck := models.Deck{
		UserID:      u.ID,
		Name:        strings.TrimSpace(name),
		Description: description,
		Kind:        models.DeckOrdinary,
	}
	if err := s.db.WithContext(ctx).Create(&deck).Error; err != nil {
		return nil, s.fail("CreateDeck", err, "user", u.ID, "name", name)
	}
	return &deck, nil
}

// AddCardToDecks front-inserts the card into every listed deck the user
// owns. Decks that are not visible to the user are skipped; when none are
// left the call fails with ErrNoValidDecks.
func (s *Service) AddCardToDecks(ctx context.Context, cardID string, deckIDs []string) error {
	u, err := s.user(ctx)
	if err != nil {
		return err
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var decks []models.Deck
		if len(deckIDs) > 0 {
			if err := tx.Where("id IN ? AND user_id = ?", deckIDs, u.ID).Find(&decks).Error; err != nil {
				return err
			}
		}
		if len(decks) == 0 {
			return ErrNoValidDecks
		}
		if _, err := ownedCard(tx, u.ID, cardID); err != nil {
			return err
		}
		for _, deck := range decks {
			if err := s.frontInsert(tx, deck.ID, cardID); err != nil {
				return err
			}
		}
		return nil
	})
	return s.fail("AddCardToDecks", err, "user", u.ID, "card", cardID, "decks", deckIDs)
}

// RemoveCardFromDeck deletes a single membership. Other positions are left
// untouched.
func (s *Service) RemoveCardFromDeck(ctx context.Context, deckID, cardID string) error {
	u, err := s.user(ctx)
	if err != nil {
		return err
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return detach(tx, u.ID, deckID, cardID)
	})
	return s.fail("RemoveCardFromDeck", err, "user", u.ID, "deck", deckID, "card", cardID)
}

// MoveCardToUncategorized takes the card out of deckID and files it at the
// front of the Uncategorized deck unless it is already there.
func (s *Service) MoveCardToUncategorized(ctx context.Context, deckID, cardID string) error {
	u, err := s.user(ctx)
	if err != nil {
		return err
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.moveToUncategorized(tx, u.ID, deckID, cardID)
	})
	return s.fail("MoveCardToUncategorized", err, "user", u.ID, "deck", deckID, "card", cardID)
}

// detach is RemoveCardFromDeck inside an open transaction. Callers renumber.
func detach(tx *gorm.DB, userID, deckID, cardID string) error {
	if _, err := ownedDeck(tx, userID, deckID); err != nil {
		return err
	}
	return removeMembership(tx, deckID, cardID)
}

func (s *Service) moveToUncategorized(tx *gorm.DB, userID, deckID, cardID string) error {
	if err := detach(tx, userID, deckID, cardID); err != nil {
		return err
	}
	if err := renumber(tx, deckID); err != nil {
		return err
	}
	unc, err := ensureDeck(tx, userID, models.DeckUncategorized)
	if err != nil {
		return err
	}
	return s.insertIfAbsent(tx, unc.ID, cardID)
}

// DeleteCardFromDeck applies the delete action of a deck view: a card in
// Uncategorized is deleted for good, anywhere else it is moved to
// Uncategorized. It reports whether the card was deleted.
func (s *Service) DeleteCardFromDeck(ctx context.Context, deckID, cardID string) (bool, error) {
	u, err := s.user(ctx)
	if err != nil {
		return false, err
	}
	deleted := false
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		deck, err := ownedDeck(tx, u.ID, deckID)
		if err != nil {
			return err
		}
		if deck.Kind != models.DeckUncategorized {
			return s.moveToUncategorized(tx, u.ID, deckID, cardID)
		}
		if _, err := ownedCard(tx, u.ID, cardID); err != nil {
			return err
		}
		var member int64
		if err := tx.Model(&models.DeckCard{}).
			Where("deck_id = ? AND flashcard_id = ?", deckID, cardID).
			Count(&member).Error; err != nil {
			return err
		}
		if member == 0 {
			return ErrNotFound
		}
		if err := hardDelete(tx, u.ID, cardID); err != nil {
			return err
		}
		deleted = true
		return nil
	})
	if err != nil {
		return false, s.fail("DeleteCardFromDeck", err, "user", u.ID, "deck", deckID, "card", cardID)
	}
	return deleted, nil
}

// DeleteDeck removes the deck and its memberships. The cards are kept.
func (s *Service) DeleteDeck(ctx context.Context, deckID string) error {
	u, err := s.user(ctx)
	if err != nil {
		return err
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := ownedDeck(tx, u.ID, deckID); err != nil {
			return err
		}
		if err := tx.Where("deck_id = ?", deckID).Delete(&models.DeckCard{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ? AND user_id = ?", deckID, u.ID).Delete(&models.Deck{}).Error
	})
	return s.fail("DeleteDeck", err, "user", u.ID, "deck", deckID)
}

func (s *Service) UpdateDeckName(ctx context.Context, deckID, name string) error {
	u, err := s.user(ctx)
	if err != nil {
		return err
	}
	res := s.db.WithContext(ctx).Model(&models.Deck{}).
		Where("id = ? AND user_id = ?", deckID, u.ID).
		Update("name", strings.TrimSpace(name))
	if res.Error != nil {
		return s.fail("UpdateDeckName", res.Error, "user", u.ID, "deck", deckID)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListDecks returns Favorites first, then Uncategorized, then the rest in
// creation order.
func (s *Service) ListDecks(ctx context.Context) ([]models.Deck, error) {
	u, err := s.user(ctx)
	if err != nil {
		return nil, err
	}
	decks, err := listDecks(s.db.WithContext(ctx), u.ID)
	if err != nil {
		return nil, s.fail("ListDecks", err, "user", u.ID)
	}
	return decks, nil
}

func listDecks(db *gorm.DB, userID string) ([]models.Deck, error) {
	var decks []models.Deck
	err := db.Where("user_id = ?", userID).
		Order("CASE kind WHEN 'favorites' THEN 0 WHEN 'uncategorized' THEN 1 ELSE 2 END").
		Order("created_at asc").
		Find(&decks).Error
	return decks, err
}

func (s *Service) GetDeck(ctx context.Context, deckID string) (*models.Deck, error) {
	u, err := s.user(ctx)
	if err != nil {
		return nil, err
	}
	deck, err := ownedDeck(s.db.WithContext(ctx), u.ID, deckID)
	if err != nil {
		return nil, s.fail("GetDeck", err, "deck", deckID)
	}
	return deck, nil
}

// DeckCards returns the cards of a deck in display order.
func (s *Service) DeckCards(ctx context.Context, deckID string) ([]DeckCardView, error) {
	u, err := s.user(ctx)
	if err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)
	if _, err := ownedDeck(db, u.ID, deckID); err != nil {
		return nil, s.fail("DeckCards", err, "deck", deckID)
	}
	members, err := orderedMembers(db, deckID)
	if err != nil {
		return nil, s.fail("DeckCards", err, "deck", deckID)
	}
	if len(members) == 0 {
		return []DeckCardView{}, nil
	}

	ids := make([]string, len(members))
	for i, m := range members {
		ids[i] = m.FlashcardID
	}
	var cards []models.Flashcard
	if err := db.Where("id IN ?", ids).Find(&cards).Error; err != nil {
		return nil, s.fail("DeckCards", err, "deck", deckID)
	}
	byID := make(map[string]models.Flashcard, len(cards))
	for _, c := range cards {
		byID[c.ID] = c
	}

	views := make([]DeckCardView, 0, len(members))
	for _, m := range members {
		card, ok := byID[m.FlashcardID]
		if !ok {
			continue
		}
		views = append(views, DeckCardView{Flashcard: card, Position: m.Position, AddedAt: m.CreatedAt})
	}
	return views, nil
}

type memberImage struct {
	DeckID   string
	Position int
	ImageURL *string
}

// DeckSummaries lists the decks of userID with card counts and covers. It
// takes the user id directly so background cache refreshes can call it.
func (s *Service) DeckSummaries(ctx context.Context, userID string) ([]DeckSummary, error) {
	db := s.db.WithContext(ctx)
	decks, err := listDecks(db, userID)
	if err != nil {
		return nil, s.fail("DeckSummaries", err, "user", userID)
	}
	summaries := make([]DeckSummary, len(decks))
	if len(decks) == 0 {
		return summaries, nil
	}

	ids := make([]string, len(decks))
	for i, d := range decks {
		ids[i] = d.ID
		summaries[i].Deck = d
	}
	var rows []memberImage
	err = db.Table("deck_cards").
		Select("deck_cards.deck_id, deck_cards.position, flashcards.image_url").
		Joins("JOIN flashcards ON flashcards.id = deck_cards.flashcard_id").
		Where("deck_cards.deck_id IN ?", ids).
		Order("deck_cards.deck_id").
		Order("deck_cards.position asc").
		Order("deck_cards.created_at desc").
		Scan(&rows).Error
	if err != nil {
		return nil, s.fail("DeckSummaries", err, "user", userID)
	}

	index := make(map[string]int, len(decks))
	for i, d := range decks {
		index[d.ID] = i
	}
	for _, row := range rows {
		i, ok := index[row.DeckID]
		if !ok {
			continue
		}
		summaries[i].CardCount++
		if summaries[i].CoverImage == "" && row.ImageURL != nil && *row.ImageURL != "" {
			summaries[i].CoverImage = *row.ImageURL
		}
	}
	return summaries, nil
}
