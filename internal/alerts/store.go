// Package alerts turns classified waste into deduplicated, severity-ranked
// alerts with costed recommendations, and rolls them up into building
// reports.
package alerts

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/capermax-01/energy-waste-engine/internal/models"
)

// ErrNotFound signals a missing alert or recommendation id.
var ErrNotFound = errors.New("not found")

// Store abstracts persistence for alerts and recommendations so the backend
// is swappable (in-memory for a single process, SQLite when a caller wants
// durability). Update methods apply the mutation atomically per key.
type Store interface {
	PutAlert(ctx context.Context, alert *models.Alert) error
	GetAlert(ctx context.Context, id string) (*models.Alert, error)
	// FindOpenAlert returns the most recent non-resolved alert for a
	// (device, waste type) pair, or ErrNotFound.
	FindOpenAlert(ctx context.Context, deviceID string, wasteType models.WasteCategory) (*models.Alert, error)
	ListAlerts(ctx context.Context) ([]*models.Alert, error)
	UpdateAlert(ctx context.Context, id string, mutate func(*models.Alert) error) (*models.Alert, error)

	PutRecommendation(ctx context.Context, rec *models.Recommendation) error
	ListRecommendations(ctx context.Context) ([]*models.Recommendation, error)
	UpdateRecommendation(ctx context.Context, id string, mutate func(*models.Recommendation) error) (*models.Recommendation, error)

	Close() error
}

// MemoryStore is the default in-process Store. All reads return copies, so
// aggregation can run against a snapshot without holding the lock.
type MemoryStore struct {
	mu   sync.RWMutex
	alts map[string]*models.Alert
	recs map[string]*models.Recommendation
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		alts: make(map[string]*models.Alert),
		recs: make(map[string]*models.Recommendation),
	}
}

// PutAlert inserts or replaces an alert.
func (s *MemoryStore) PutAlert(_ context.Context, alert *models.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := cloneAlert(alert)
	s.alts[alert.ID] = cp
	return nil
}

// GetAlert fetches an alert copy by id.
func (s *MemoryStore) GetAlert(_ context.Context, id string) (*models.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.alts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneAlert(a), nil
}

// FindOpenAlert returns the latest non-resolved alert for the pair.
func (s *MemoryStore) FindOpenAlert(_ context.Context, deviceID string, wasteType models.WasteCategory) (*models.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var best *models.Alert
	for _, a := range s.alts {
		if a.DeviceID != deviceID || a.WasteType != wasteType || a.Status == models.AlertResolved {
			continue
		}
		if best == nil || a.LastDetected.After(best.LastDetected) {
			best = a
		}
	}
	if best == nil {
		return nil, ErrNotFound
	}
	return cloneAlert(best), nil
}

// ListAlerts returns a snapshot of all alerts, newest first.
func (s *MemoryStore) ListAlerts(_ context.Context) ([]*models.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Alert, 0, len(s.alts))
	for _, a := range s.alts {
		out = append(out, cloneAlert(a))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// UpdateAlert applies mutate under the store lock and returns the result.
func (s *MemoryStore) UpdateAlert(_ context.Context, id string, mutate func(*models.Alert) error) (*models.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.alts[id]
	if !ok {
		return nil, ErrNotFound
	}
	if err := mutate(a); err != nil {
		return nil, err
	}
	return cloneAlert(a), nil
}

// PutRecommendation inserts or replaces a recommendation.
func (s *MemoryStore) PutRecommendation(_ context.Context, rec *models.Recommendation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := cloneRecommendation(rec)
	s.recs[rec.ID] = cp
	return nil
}

// ListRecommendations returns a snapshot of all recommendations.
func (s *MemoryStore) ListRecommendations(_ context.Context) ([]*models.Recommendation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Recommendation, 0, len(s.recs))
	for _, r := range s.recs {
		out = append(out, cloneRecommendation(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// UpdateRecommendation applies mutate under the store lock.
func (s *MemoryStore) UpdateRecommendation(_ context.Context, id string, mutate func(*models.Recommendation) error) (*models.Recommendation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.recs[id]
	if !ok {
		return nil, ErrNotFound
	}
	if err := mutate(r); err != nil {
		return nil, err
	}
	return cloneRecommendation(r), nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error { return nil }

func cloneAlert(a *models.Alert) *models.Alert {
	cp := *a
	cp.Evidence = append([]string(nil), a.Evidence...)
	cp.RecommendationIDs = append([]string(nil), a.RecommendationIDs...)
	return &cp
}

func cloneRecommendation(r *models.Recommendation) *models.Recommendation {
	cp := *r
	cp.ActionSteps = append([]string(nil), r.ActionSteps...)
	if r.CompletionDate != nil {
		t := *r.CompletionDate
		cp.CompletionDate = &t
	}
	if r.ActualSavingsINR != nil {
		v := *r.ActualSavingsINR
		cp.ActualSavingsINR = &v
	}
	return &cp
}
