package alerts

import (
	"context"
	"fmt"
	"time"

	"github.com/capermax-01/energy-waste-engine/internal/models"
)

var validAlertStatuses = map[models.AlertStatus]struct{}{
	models.AlertOpen:          {},
	models.AlertAcknowledged:  {},
	models.AlertInvestigating: {},
	models.AlertResolved:      {},
}

// UpdateAlertStatus moves an alert through its lifecycle. assignedTo and note
// are optional; empty values leave the existing fields untouched.
func UpdateAlertStatus(ctx context.Context, store Store, id string, status models.AlertStatus, assignedTo, note string) (*models.Alert, error) {
	if _, ok := validAlertStatuses[status]; !ok {
		return nil, fmt.Errorf("invalid alert status %q", status)
	}
	return store.UpdateAlert(ctx, id, func(a *models.Alert) error {
		a.Status = status
		if assignedTo != "" {
			a.AssignedTo = assignedTo
		}
		if note != "" {
			a.Notes = note
		}
		a.UpdatedAt = time.Now()
		return nil
	})
}

// ApproveRecommendation marks a proposed recommendation as approved.
func ApproveRecommendation(ctx context.Context, store Store, id, approvedBy string) (*models.Recommendation, error) {
	return store.UpdateRecommendation(ctx, id, func(r *models.Recommendation) error {
		if r.Status != models.RecProposed {
			return fmt.Errorf("recommendation %s is %s, only proposed can be approved", id, r.Status)
		}
		r.Status = models.RecApproved
		r.ApprovedBy = approvedBy
		return nil
	})
}

// CompleteRecommendation records a finished implementation, optionally with
// measured savings.
func CompleteRecommendation(ctx context.Context, store Store, id string, actualSavingsINR *float64) (*models.Recommendation, error) {
	return store.UpdateRecommendation(ctx, id, func(r *models.Recommendation) error {
		if r.Status == models.RecRejected {
			return fmt.Errorf("recommendation %s was rejected", id)
		}
		r.Status = models.RecCompleted
		now := time.Now()
		r.CompletionDate = &now
		if actualSavingsINR != nil {
			v := *actualSavingsINR
			r.ActualSavingsINR = &v
		}
		return nil
	})
}
