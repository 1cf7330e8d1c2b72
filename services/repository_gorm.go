package services

import (
	"context"
	"errors"
	"fmt"

	"community-challenges/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormRepository stores aggregates in postgres (or sqlite for local runs).
type GormRepository struct {
	DB *gorm.DB
}

func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{DB: db}
}

// Migrate creates or updates every table the engine owns.
func (r *GormRepository) Migrate() error {
	return r.DB.AutoMigrate(
		&models.Challenge{},
		&models.Submission{},
		&models.PrizeDistribution{},
		&models.AnalyticsSnapshot{},
		&models.ProfileMirror{},
	)
}

// SaveAggregate writes the challenge row and the touched submissions in one transaction.
func (r *GormRepository) SaveAggregate(ctx context.Context, c *models.Challenge, subs []*models.Submission) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(c).Error; err != nil {
			return fmt.Errorf("save challenge %s: %w", c.ID, err)
		}
		for _, s := range subs {
			if err := tx.Save(s).Error; err != nil {
				return fmt.Errorf("save submission %s: %w", s.ID, err)
			}
		}
		return nil
	})
}

func (r *GormRepository) ListChallenges(ctx context.Context) ([]models.Challenge, error) {
	var out []models.Challenge
	if err := r.DB.WithContext(ctx).Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list challenges: %w", err)
	}
	return out, nil
}

func (r *GormRepository) ListSubmissions(ctx context.Context) ([]models.Submission, error) {
	var out []models.Submission
	if err := r.DB.WithContext(ctx).Order("challenge_id, sequence").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return out, nil
}

func (r *GormRepository) SaveDistributions(ctx context.Context, records []models.PrizeDistribution) error {
	if len(records) == 0 {
		return nil
	}
	err := r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "failure_reason", "attempts", "distributed_at", "updated_at"}),
	}).Create(&records).Error
	if err != nil {
		return fmt.Errorf("save prize distributions: %w", err)
	}
	return nil
}

func (r *GormRepository) ListDistributions(ctx context.Context, challengeID string) ([]models.PrizeDistribution, error) {
	var out []models.PrizeDistribution
	err := r.DB.WithContext(ctx).
		Where("challenge_id = ?", challengeID).
		Order("created_at ASC, position ASC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list prize distributions: %w", err)
	}
	return out, nil
}

func (r *GormRepository) ListPendingDistributions(ctx context.Context) ([]models.PrizeDistribution, error) {
	var out []models.PrizeDistribution
	err := r.DB.WithContext(ctx).
		Where("status = ?", models.DistributionPending).
		Order("created_at ASC, position ASC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list pending distributions: %w", err)
	}
	return out, nil
}

func (r *GormRepository) SaveAnalytics(ctx context.Context, snap *models.AnalyticsSnapshot) error {
	if err := r.DB.WithContext(ctx).Save(snap).Error; err != nil {
		return fmt.Errorf("save analytics %s: %w", snap.ChallengeID, err)
	}
	return nil
}

func (r *GormRepository) ListAnalytics(ctx context.Context) ([]models.AnalyticsSnapshot, error) {
	var out []models.AnalyticsSnapshot
	if err := r.DB.WithContext(ctx).Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list analytics: %w", err)
	}
	return out, nil
}

// FindProfile returns nil, nil when the user has not been mirrored yet.
func (r *GormRepository) FindProfile(ctx context.Context, externalUserID string) (*models.ProfileMirror, error) {
	var p models.ProfileMirror
	err := r.DB.WithContext(ctx).Where("external_user_id = ?", externalUserID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find profile %s: %w", externalUserID, err)
	}
	return &p, nil
}
