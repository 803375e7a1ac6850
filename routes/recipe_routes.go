package routes

import (
	"swipebite_server/controllers"
	"swipebite_server/services"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// RegisterRecipeRoutes sets up the public recipe catalog routes under /api/recipes
func RegisterRecipeRoutes(r *mux.Router, catalog *services.RecipeService, logger *zap.Logger) {
	controller := controllers.NewRecipeController(catalog, logger)

	recipeRouter := r.PathPrefix("/api/recipes").Subrouter()
	recipeRouter.HandleFunc("", controller.ListRecipes).Methods("GET") // Handles /api/recipes?diet=
	recipeRouter.HandleFunc("/{recipeId}", controller.GetRecipe).Methods("GET")
}
