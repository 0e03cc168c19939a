// Package cards is the deck and flashcard data-access layer. Every
// operation is scoped to the user resolved from the request context, and
// every membership mutation leaves the touched decks numbered 0..n-1.
package cards

import (
	"context"
	"errors"
	"time"

	"github.com/andrewpaige1/tarjetas-api/logger"
	"github.com/andrewpaige1/tarjetas-api/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrNotFound         = errors.New("not found")
	ErrNoValidDecks     = errors.New("no valid decks")
)

// Identity resolves the signed-in user for a request.
type Identity interface {
	CurrentUser(ctx context.Context) (*models.User, error)
}

type Service struct {
	db       *gorm.DB
	identity Identity
	log      *logger.Logger
	now      func() time.Time
}

func NewService(db *gorm.DB, identity Identity, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		db:       db,
		identity: identity,
		log:      log.With("service", "CardService"),
		now:      time.Now,
	}
}

func (s *Service) user(ctx context.Context) (*models.User, error) {
	if s.identity == nil {
		return nil, ErrNotAuthenticated
	}
	u, err := s.identity.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	if u == nil || u.ID == "" {
		return nil, ErrNotAuthenticated
	}
	return u, nil
}

// fail logs unexpected storage errors and passes sentinel errors through.
func (s *Service) fail(op string, err error, kv ...interface{}) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrNoValidDecks) || errors.Is(err, ErrNotAuthenticated) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	s.log.Error(op+": storage error", append(kv, "error", err)...)
	return &OpError{Op: op, Err: err}
}

// OpError wraps a storage failure with the operation that hit it.
type OpError struct {
	Op  string
	Err error
}

func (e *OpError) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *OpError) Unwrap() error { return e.Err }

func ownedDeck(tx *gorm.DB, userID, deckID string) (*models.Deck, error) {
	var deck models.Deck
	err := tx.Where("id = ? AND user_id = ?", deckID, userID).First(&deck).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &deck, nil
}

func ownedCard(tx *gorm.DB, userID, cardID string) (*models.Flashcard, error) {
	var card models.Flashcard
	err := tx.Where("id = ? AND user_id = ?", cardID, userID).First(&card).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &card, nil
}

func cardByPair(tx *gorm.DB, userID, english, spanish string) (*models.Flashcard, error) {
	var card models.Flashcard
	err := tx.Where("user_id = ? AND english_word = ? AND spanish_word = ?", userID, english, spanish).
		First(&card).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &card, nil
}

func specialDeck(tx *gorm.DB, userID string, kind models.DeckKind) (*models.Deck, error) {
	var deck models.Deck
	err := tx.Where("user_id = ? AND kind = ?", userID, kind).First(&deck).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &deck, nil
}

// upsertCard returns the user's card for the pair, creating it if needed.
// A concurrent insert of the same pair is absorbed by the unique index.
func upsertCard(tx *gorm.DB, userID, english, spanish string, imageURL *string, isAI bool) (*models.Flashcard, error) {
	card, err := cardByPair(tx, userID, english, spanish)
	if err == nil {
		return card, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	fresh := models.Flashcard{
		UserID:        userID,
		EnglishWord:   english,
		SpanishWord:   spanish,
		ImageURL:      imageURL,
		IsAIGenerated: isAI,
	}
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&fresh)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return cardByPair(tx, userID, english, spanish)
	}
	return &fresh, nil
}

// ensureDeck returns the user's deck of the given special kind, creating it
// lazily.
func ensureDeck(tx *gorm.DB, userID string, kind models.DeckKind) (*models.Deck, error) {
	deck, err := specialDeck(tx, userID, kind)
	if err == nil {
		return deck, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	fresh := models.Deck{UserID: userID, Name: kind.DisplayName(), Kind: kind}
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&fresh)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return specialDeck(tx, userID, kind)
	}
	return &fresh, nil
}

func orderedMembers(tx *gorm.DB, deckID string) ([]models.DeckCard, error) {
	var members []models.DeckCard
	err := tx.Where("deck_id = ?", deckID).
		Order("position asc").
		Order("created_at desc").
		Order("flashcard_id asc").
		Find(&members).Error
	return members, err
}

func setPosition(tx *gorm.DB, deckID, cardID string, pos int) error {
	return tx.Model(&models.DeckCard{}).
		Where("deck_id = ? AND flashcard_id = ?", deckID, cardID).
		Update("position", pos).Error
}

// renumber rewrites positions of a deck to 0..n-1 keeping display order.
func renumber(tx *gorm.DB, deckID string) error {
	members, err := orderedMembers(tx, deckID)
	if err != nil {
		return err
	}
	for i, m := range members {
		if m.Position == i {
			continue
		}
		if err := setPosition(tx, deckID, m.FlashcardID, i); err != nil {
			return err
		}
	}
	return nil
}

// frontInsert places the card at position 0 and shifts every other member
// to 1..n. A card that is already a member moves to the front.
func (s *Service) frontInsert(tx *gorm.DB, deckID, cardID string) error {
	members, err := orderedMembers(tx, deckID)
	if err != nil {
		return err
	}
	pos := 1
	for _, m := range members {
		if m.FlashcardID == cardID {
			continue
		}
		if m.Position != pos {
			if err := setPosition(tx, deckID, m.FlashcardID, pos); err != nil {
				return err
			}
		}
		pos++
	}

	link := models.DeckCard{DeckID: deckID, FlashcardID: cardID, Position: 0, CreatedAt: s.now()}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "deck_id"}, {Name: "flashcard_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"position", "created_at"}),
	}).Create(&link).Error
}

// insertIfAbsent front-inserts the card unless it is already a member.
func (s *Service) insertIfAbsent(tx *gorm.DB, deckID, cardID string) error {
	var count int64
	if err := tx.Model(&models.DeckCard{}).
		Where("deck_id = ? AND flashcard_id = ?", deckID, cardID).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	return s.frontInsert(tx, deckID, cardID)
}

func removeMembership(tx *gorm.DB, deckID, cardID string) error {
	res := tx.Where("deck_id = ? AND flashcard_id = ?", deckID, cardID).Delete(&models.DeckCard{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// hardDelete removes the card and its memberships, then renumbers every deck
// that held it.
func hardDelete(tx *gorm.DB, userID, cardID string) error {
	var deckIDs []string
	if err := tx.Model(&models.DeckCard{}).
		Where("flashcard_id = ?", cardID).
		Pluck("deck_id", &deckIDs).Error; err != nil {
		return err
	}
	if err := tx.Where("flashcard_id = ?", cardID).Delete(&models.DeckCard{}).Error; err != nil {
		return err
	}
	if err := tx.Where("id = ? AND user_id = ?", cardID, userID).Delete(&models.Flashcard{}).Error; err != nil {
		return err
	}
	for _, id := range deckIDs {
		if err := renumber(tx, id); err != nil {
			return err
		}
	}
	return nil
}
