package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swipebite_server/models"
)

func TestLoadRecipeCatalog(t *testing.T) {
	catalog, err := LoadRecipeCatalog()
	require.NoError(t, err)
	require.Greater(t, catalog.Len(), 5)

	seen := map[string]bool{}
	for _, r := range catalog.List("") {
		assert.NotEmpty(t, r.ID)
		assert.NotEmpty(t, r.Title)
		assert.False(t, seen[r.ID], "duplicate id %s", r.ID)
		seen[r.ID] = true
	}

	r, err := catalog.Get("716429")
	require.NoError(t, err)
	assert.Equal(t, "Creamy Garlic Pasta", r.Title)

	_, err = catalog.Get("nope")
	assert.ErrorIs(t, err, models.ErrRecipeNotFound)
}

func TestRecipeService_ListByDiet(t *testing.T) {
	catalog := NewRecipeService([]models.Recipe{
		{ID: "1", Diets: []string{"vegan", "vegetarian"}},
		{ID: "2", Diets: []string{"vegetarian"}},
		{ID: "3"},
	})

	assert.Len(t, catalog.List("Vegetarian"), 2)
	vegan := catalog.List("vegan")
	require.Len(t, vegan, 1)
	assert.Equal(t, "1", vegan[0].ID)
	assert.Empty(t, catalog.List("keto"))
	assert.Len(t, catalog.List(" "), 3)
}

func TestDeck(t *testing.T) {
	deck := NewDeck(NewRecipeService([]models.Recipe{{ID: "1"}, {ID: "2"}}))

	cur, err := deck.Current()
	require.NoError(t, err)
	assert.Equal(t, "1", cur.ID)

	assert.False(t, deck.AdvancePast("2"))
	assert.True(t, deck.AdvancePast("1"))
	cur, err = deck.Current()
	require.NoError(t, err)
	assert.Equal(t, "2", cur.ID)

	_, err = deck.Advance()
	assert.ErrorIs(t, err, models.ErrNoMoreRecipes)
	_, err = deck.Advance()
	assert.ErrorIs(t, err, models.ErrNoMoreRecipes)

	deck.Reset()
	cur, err = deck.Current()
	require.NoError(t, err)
	assert.Equal(t, "1", cur.ID)
}
