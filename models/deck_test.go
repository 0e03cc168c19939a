package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeckBeforeCreateDefaults(t *testing.T) {
	d := &Deck{Name: "Animals"}
	require.NoError(t, d.BeforeCreate(nil))
	assert.Equal(t, DeckOrdinary, d.Kind)
	assert.NotEmpty(t, d.ID)

	keep := &Deck{ID: "fixed", Kind: DeckFavorites}
	require.NoError(t, keep.BeforeCreate(nil))
	assert.Equal(t, "fixed", keep.ID)
	assert.Equal(t, DeckFavorites, keep.Kind)
}

func TestDeckKindDisplayName(t *testing.T) {
	assert.Equal(t, "Favorites", DeckFavorites.DisplayName())
	assert.Equal(t, "Uncategorized", DeckUncategorized.DisplayName())
	assert.Equal(t, "", DeckOrdinary.DisplayName())
}

func TestFlashcardImage(t *testing.T) {
	url := "https://img.example/dog.jpg"
	assert.Equal(t, url, (&Flashcard{ImageURL: &url}).Image())
	assert.Equal(t, "", (&Flashcard{}).Image())
}
