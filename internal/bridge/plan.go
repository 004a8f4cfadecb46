package bridge

import "github.com/l5yth/potato-mesh/internal/models"

// legacyWindow is the page size used while a migrated checkpoint has no
// receipt time to page by.
const legacyWindow uint32 = 10

// PlanFetch derives the upstream query from the checkpoint.
func PlanFetch(cp *models.Checkpoint) models.FetchPlan {
	if cp == nil || cp.LastMessageID == nil {
		return models.FetchPlan{}
	}
	if cp.LastRxTime != nil {
		since := *cp.LastRxTime
		return models.FetchPlan{Since: &since}
	}
	limit := legacyWindow
	return models.FetchPlan{Limit: &limit}
}
