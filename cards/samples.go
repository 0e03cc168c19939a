package cards

import (
	"context"
	"strings"

	"github.com/andrewpaige1/tarjetas-api/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// WordPair identifies a card by its words.
type WordPair struct {
	English string `json:"english_word"`
	Spanish string `json:"spanish_word"`
}

// CopySampleCardToUncategorized adopts a sample card: the user gets a card
// for the pair (reused if it exists) filed in Uncategorized.
func (s *Service) CopySampleCardToUncategorized(ctx context.Context, english, spanish string, imageURL *string) (*models.Flashcard, error) {
	u, err := s.user(ctx)
	if err != nil {
		return nil, err
	}
	english, spanish = strings.TrimSpace(english), strings.TrimSpace(spanish)

	var card *models.Flashcard
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		card, err = upsertCard(tx, u.ID, english, spanish, imageURL, false)
		if err != nil {
			return err
		}
		unc, err := ensureDeck(tx, u.ID, models.DeckUncategorized)
		if err != nil {
			return err
		}
		return s.insertIfAbsent(tx, unc.ID, card.ID)
	})
	if err != nil {
		return nil, s.fail("CopySampleCardToUncategorized", err, "user", u.ID, "english", english)
	}
	return card, nil
}

// UncategorizedPairs lists the word pairs filed in the user's Uncategorized
// deck. Sample deck views hide these.
func (s *Service) UncategorizedPairs(ctx context.Context) ([]WordPair, error) {
	u, err := s.user(ctx)
	if err != nil {
		return nil, err
	}
	var pairs []WordPair
	err = s.db.WithContext(ctx).Table("flashcards").
		Select("flashcards.english_word AS english, flashcards.spanish_word AS spanish").
		Joins("JOIN deck_cards ON deck_cards.flashcard_id = flashcards.id").
		Joins("JOIN decks ON decks.id = deck_cards.deck_id").
		Where("decks.user_id = ? AND decks.kind = ?", u.ID, models.DeckUncategorized).
		Scan(&pairs).Error
	if err != nil {
		return nil, s.fail("UncategorizedPairs", err, "user", u.ID)
	}
	return pairs, nil
}

// SaveSampleCardCustomization stores the user's image for a sample card,
// replacing an earlier one.
func (s *Service) SaveSampleCardCustomization(ctx context.Context, sampleDeckID, english, spanish, imageURL string) error {
	u, err := s.user(ctx)
	if err != nil {
		return err
	}
	now := s.now()
	row := models.SampleCardCustomization{
		UserID:       u.ID,
		SampleDeckID: sampleDeckID,
		EnglishWord:  strings.TrimSpace(english),
		SpanishWord:  strings.TrimSpace(spanish),
		ImageURL:     imageURL,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "user_id"}, {Name: "sample_deck_id"}, {Name: "english_word"}, {Name: "spanish_word"},
		},
		DoUpdates: clause.Assignments(map[string]interface{}{"image_url": imageURL, "updated_at": now}),
	}).Create(&row).Error
	return s.fail("SaveSampleCardCustomization", err, "user", u.ID, "sample", sampleDeckID)
}

func (s *Service) GetSampleCardCustomizations(ctx context.Context, sampleDeckID string) ([]models.SampleCardCustomization, error) {
	u, err := s.user(ctx)
	if err != nil {
		return nil, err
	}
	var rows []models.SampleCardCustomization
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND sample_deck_id = ?", u.ID, sampleDeckID).
		Order("updated_at desc").
		Find(&rows).Error; err != nil {
		return nil, s.fail("GetSampleCardCustomizations", err, "user", u.ID, "sample", sampleDeckID)
	}
	return rows, nil
}
