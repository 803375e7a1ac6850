package services

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"

	"swipebite_server/models"
)

//go:embed data/recipes.json
var seedRecipes []byte

// RecipeService is the read-only recipe catalog behind every deck.
type RecipeService struct {
	recipes []models.Recipe
	byID    map[string]int
}

// NewRecipeService builds a catalog in the given order.
func NewRecipeService(recipes []models.Recipe) *RecipeService {
	rs := &RecipeService{
		recipes: slices.Clone(recipes),
		byID:    make(map[string]int, len(recipes)),
	}
	for i, r := range rs.recipes {
		rs.byID[r.ID] = i
	}
	return rs
}

// LoadRecipeCatalog parses the embedded seed catalog.
func LoadRecipeCatalog() (*RecipeService, error) {
	var recipes []models.Recipe
	if err := json.Unmarshal(seedRecipes, &recipes); err != nil {
		return nil, fmt.Errorf("failed to parse recipe catalog: %w", err)
	}
	return NewRecipeService(recipes), nil
}

// List returns the catalog, filtered to recipes tagged with diet when diet
// is non-empty. Matching ignores case.
func (rs *RecipeService) List(diet string) []models.Recipe {
	diet = strings.TrimSpace(diet)
	if diet == "" {
		return slices.Clone(rs.recipes)
	}
	var out []models.Recipe
	for _, r := range rs.recipes {
		if slices.ContainsFunc(r.Diets, func(d string) bool { return strings.EqualFold(d, diet) }) {
			out = append(out, r)
		}
	}
	return out
}

// Get returns the recipe with the given id.
func (rs *RecipeService) Get(id string) (models.Recipe, error) {
	i, ok := rs.byID[id]
	if !ok {
		return models.Recipe{}, models.ErrRecipeNotFound
	}
	return rs.recipes[i], nil
}

func (rs *RecipeService) Len() int { return len(rs.recipes) }

// Deck walks the catalog in order for one user.
type Deck struct {
	mu      sync.Mutex
	catalog *RecipeService
	pos     int
}

func NewDeck(catalog *RecipeService) *Deck {
	return &Deck{catalog: catalog}
}

// Current returns the card on top of the deck.
func (d *Deck) Current() (models.Recipe, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.currentLocked()
}

func (d *Deck) currentLocked() (models.Recipe, error) {
	if d.pos >= len(d.catalog.recipes) {
		return models.Recipe{}, models.ErrNoMoreRecipes
	}
	return d.catalog.recipes[d.pos], nil
}

// Advance moves to the next card and returns it.
func (d *Deck) Advance() (models.Recipe, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pos < len(d.catalog.recipes) {
		d.pos++
	}
	return d.currentLocked()
}

// AdvancePast moves on only if recipeID is the current card. It reports
// whether the deck moved.
func (d *Deck) AdvancePast(recipeID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	cur, err := d.currentLocked()
	if err != nil || cur.ID != recipeID {
		return false
	}
	d.pos++
	return true
}

// Reset puts the deck back at the first card.
func (d *Deck) Reset() {
	d.mu.Lock()
	d.pos = 0
	d.mu.Unlock()
}

func (d *Deck) Catalog() *RecipeService { return d.catalog }
