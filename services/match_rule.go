package services

import "swipebite_server/models"

// RequiredLikes returns how many active participants must like a recipe for
// it to match. All-must-agree needs every one of them; majority needs
// max(2, ceil(active/2)).
func RequiredLikes(active int, requiresAll bool) int {
	if requiresAll {
		return active
	}
	return max(2, (active+1)/2)
}

// IsMatch folds over the snapshot's active roster. It does not look at the
// existing matches list, so any client evaluating the same snapshot reaches
// the same answer.
func IsMatch(s *models.SwipeSession, recipeID string) bool {
	active := s.ActiveParticipants()
	if len(active) == 0 {
		return false
	}
	likes := 0
	for _, p := range active {
		if p.HasLiked(recipeID) {
			likes++
		}
	}
	return likes >= RequiredLikes(len(active), s.RequiresAllToMatch)
}
