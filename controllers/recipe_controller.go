package controllers

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"swipebite_server/services"
)

// RecipeController serves the recipe catalog
type RecipeController struct {
	Catalog *services.RecipeService
	logger  *zap.Logger
}

func NewRecipeController(catalog *services.RecipeService, logger *zap.Logger) *RecipeController {
	return &RecipeController{Catalog: catalog, logger: logger}
}

// ListRecipes handles GET /api/recipes?diet=
func (rc *RecipeController) ListRecipes(w http.ResponseWriter, r *http.Request) {
	recipes := rc.Catalog.List(r.URL.Query().Get("diet"))
	WriteJSONResponse(w, http.StatusOK, map[string]interface{}{"recipes": recipes})
}

// GetRecipe handles GET /api/recipes/{recipeId}
func (rc *RecipeController) GetRecipe(w http.ResponseWriter, r *http.Request) {
	recipe, err := rc.Catalog.Get(mux.Vars(r)["recipeId"])
	if err != nil {
		writeServiceError(w, rc.logger, r, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, recipe)
}
