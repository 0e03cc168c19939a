package samples

import (
	"testing"

	"github.com/andrewpaige1/tarjetas-api/cards"
	"github.com/andrewpaige1/tarjetas-api/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListAndGet(t *testing.T) {
	decks := List()
	require.NotEmpty(t, decks)

	seen := map[string]bool{}
	for _, d := range decks {
		assert.False(t, seen[d.ID], "duplicate id %s", d.ID)
		seen[d.ID] = true
		assert.Equal(t, len(d.Cards), d.CardCount)
		assert.NotEmpty(t, d.CoverImage)
	}

	home, ok := Get("home")
	require.True(t, ok)
	_, ok = home.Contains("Chair", "Silla")
	assert.True(t, ok)

	_, ok = Get("nope")
	assert.False(t, ok)
}

func TestListReturnsCopies(t *testing.T) {
	decks := List()
	decks[0].Cards[0].EnglishWord = "changed"

	again, _ := Get(decks[0].ID)
	assert.NotEqual(t, "changed", again.Cards[0].EnglishWord)
}

func TestViewHidesAdoptedCards(t *testing.T) {
	home, _ := Get("home")

	view := View(home, nil, []cards.WordPair{{English: "Chair", Spanish: "Silla"}})

	_, ok := view.Contains("Chair", "Silla")
	assert.False(t, ok)
	assert.Equal(t, home.CardCount-1, view.CardCount)
	_, ok = home.Contains("Chair", "Silla")
	assert.True(t, ok, "sample data is not mutated")
}

func TestViewAppliesCustomImages(t *testing.T) {
	food, _ := Get("food")
	customs := []models.SampleCardCustomization{
		{SampleDeckID: "food", EnglishWord: "Bread", SpanishWord: "Pan", ImageURL: "https://img.example/my-bread.jpg"},
		{SampleDeckID: "home", EnglishWord: "Apple", SpanishWord: "Manzana", ImageURL: "https://img.example/wrong-deck.jpg"},
	}

	view := View(food, customs, nil)

	bread, ok := view.Contains("Bread", "Pan")
	require.True(t, ok)
	assert.Equal(t, "https://img.example/my-bread.jpg", bread.ImageURL)
	assert.True(t, bread.Customized)

	apple, _ := view.Contains("Apple", "Manzana")
	assert.False(t, apple.Customized)
}
