package models

// Recipe is a card in the swipe deck.
type Recipe struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Image          string   `json:"image"`
	Ingredients    []string `json:"ingredients"`
	Instructions   []string `json:"instructions"`
	ReadyInMinutes int      `json:"readyInMinutes"`
	Servings       int      `json:"servings"`
	SourceURL      string   `json:"sourceUrl"`
	Summary        string   `json:"summary"`
	Diets          []string `json:"diets"`
}
