package workflow

import "github.com/persistorai/caseqc/internal/models"

// IsAuthorizedActor reports whether actor may act on or read review: the
// assigned reviewer or any supervisor. Plain users never qualify, even when
// named as the reviewer.
func IsAuthorizedActor(review *models.Review, actor models.Actor) bool {
	if review == nil || !actor.Authenticated() || !actor.Role.AtLeast(models.RoleReviewer) {
		return false
	}

	return actor.Role == models.RoleSupervisor || actor.ID == review.ReviewerID
}
