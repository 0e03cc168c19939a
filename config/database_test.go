package config

import (
	"testing"

	"github.com/andrewpaige1/tarjetas-api/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectMigrates(t *testing.T) {
	db, err := Connect(Environment{DBDriver: "sqlite", DBURL: "file:connect_migrates?mode=memory&cache=shared"})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	for _, table := range []interface{}{&models.User{}, &models.Flashcard{}, &models.Deck{}, &models.DeckCard{}, &models.SampleCardCustomization{}} {
		assert.True(t, db.Migrator().HasTable(table), "%T", table)
	}
}

func TestConnectUnknownDriver(t *testing.T) {
	_, err := Connect(Environment{DBDriver: "oracle"})
	assert.ErrorContains(t, err, "oracle")
}
