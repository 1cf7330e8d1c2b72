package services

import (
	"context"
	"sort"
	"sync"

	"community-challenges/models"
)

// Repository persists challenge aggregates and the records derived from them.
// The Store is the only writer of challenges and submissions.
type Repository interface {
	SaveAggregate(ctx context.Context, challenge *models.Challenge, submissions []*models.Submission) error
	ListChallenges(ctx context.Context) ([]models.Challenge, error)
	ListSubmissions(ctx context.Context) ([]models.Submission, error)

	SaveDistributions(ctx context.Context, records []models.PrizeDistribution) error
	ListDistributions(ctx context.Context, challengeID string) ([]models.PrizeDistribution, error)
	ListPendingDistributions(ctx context.Context) ([]models.PrizeDistribution, error)

	SaveAnalytics(ctx context.Context, snapshot *models.AnalyticsSnapshot) error
	ListAnalytics(ctx context.Context) ([]models.AnalyticsSnapshot, error)

	FindProfile(ctx context.Context, externalUserID string) (*models.ProfileMirror, error)
}

// MemoryRepository keeps everything in process. Used in tests and when no
// database is configured.
type MemoryRepository struct {
	mu            sync.RWMutex
	challenges    map[string]models.Challenge
	submissions   map[string]models.Submission
	distributions map[string]models.PrizeDistribution
	analytics     map[string]models.AnalyticsSnapshot
	profiles      map[string]models.ProfileMirror
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		challenges:    make(map[string]models.Challenge),
		submissions:   make(map[string]models.Submission),
		distributions: make(map[string]models.PrizeDistribution),
		analytics:     make(map[string]models.AnalyticsSnapshot),
		profiles:      make(map[string]models.ProfileMirror),
	}
}

func (r *MemoryRepository) SaveAggregate(ctx context.Context, c *models.Challenge, subs []*models.Submission) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.challenges[c.ID] = *c.Clone()
	for _, s := range subs {
		r.submissions[s.ID] = *s.Clone()
	}
	return nil
}

func (r *MemoryRepository) ListChallenges(ctx context.Context) ([]models.Challenge, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Challenge, 0, len(r.challenges))
	for _, c := range r.challenges {
		out = append(out, *c.Clone())
	}
	return out, nil
}

func (r *MemoryRepository) ListSubmissions(ctx context.Context) ([]models.Submission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Submission, 0, len(r.submissions))
	for _, s := range r.submissions {
		out = append(out, *s.Clone())
	}
	return out, nil
}

func (r *MemoryRepository) SaveDistributions(ctx context.Context, records []models.PrizeDistribution) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range records {
		r.distributions[d.ID] = d
	}
	return nil
}

func (r *MemoryRepository) ListDistributions(ctx context.Context, challengeID string) ([]models.PrizeDistribution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []models.PrizeDistribution
	for _, d := range r.distributions {
		if d.ChallengeID == challengeID {
			out = append(out, d)
		}
	}
	sortDistributions(out)
	return out, nil
}

func (r *MemoryRepository) ListPendingDistributions(ctx context.Context) ([]models.PrizeDistribution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []models.PrizeDistribution
	for _, d := range r.distributions {
		if d.Status == models.DistributionPending {
			out = append(out, d)
		}
	}
	sortDistributions(out)
	return out, nil
}

func (r *MemoryRepository) SaveAnalytics(ctx context.Context, snap *models.AnalyticsSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.analytics[snap.ChallengeID] = *snap.Clone()
	return nil
}

func (r *MemoryRepository) ListAnalytics(ctx context.Context) ([]models.AnalyticsSnapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.AnalyticsSnapshot, 0, len(r.analytics))
	for _, a := range r.analytics {
		out = append(out, *a.Clone())
	}
	return out, nil
}

func (r *MemoryRepository) FindProfile(ctx context.Context, externalUserID string) (*models.ProfileMirror, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.profiles[externalUserID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// PutProfile seeds a mirrored profile.
func (r *MemoryRepository) PutProfile(p models.ProfileMirror) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[p.ExternalUserID] = p
}

func sortDistributions(ds []models.PrizeDistribution) {
	sort.SliceStable(ds, func(i, j int) bool {
		if !ds[i].CreatedAt.Equal(ds[j].CreatedAt) {
			return ds[i].CreatedAt.Before(ds[j].CreatedAt)
		}
		return ds[i].Position < ds[j].Position
	})
}
