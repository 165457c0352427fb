package repository

import (
	"context"
	"errors"

	"github.com/rmazariegos/campaign-gateway/internal/model"
	"github.com/rmazariegos/campaign-gateway/pkg/pg"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrNotFound is returned when a campaign does not exist.
	ErrNotFound = errors.New("campaign not found")
)

type CampaignRepository struct {
	*pg.DB
}

func NewCampaignRepository(db *pg.DB) *CampaignRepository {
	return &CampaignRepository{
		db,
	}
}

func (r *CampaignRepository) Create(ctx context.Context, c *model.Campaign) (*model.Campaign, error) {
	entity, err := toCampaignEntity(c)
	if err != nil {
		return nil, err
	}

	if err := r.Write(ctx).Create(entity).Error; err != nil {
		return nil, err
	}

	return toCampaignModel(entity)
}

// List returns every campaign, newest first.
func (r *CampaignRepository) List(ctx context.Context) ([]*model.Campaign, error) {
	var entities []*CampaignEntity
	if err := r.Read(ctx).Model(&CampaignEntity{}).Order("created_at DESC").Find(&entities).Error; err != nil {
		return nil, err
	}
	return toCampaignModels(entities)
}

func (r *CampaignRepository) Get(ctx context.Context, id string) (*model.Campaign, error) {
	var entity CampaignEntity
	err := r.Read(ctx).First(&entity, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return toCampaignModel(&entity)
}

// Update persists the full campaign record, inserting if the row is
// missing. The scheduler relies on this being a single-row upsert so a
// crash mid-tick only leaves the campaign being processed inconsistent.
func (r *CampaignRepository) Update(ctx context.Context, c *model.Campaign) error {
	entity, err := toCampaignEntity(c)
	if err != nil {
		return err
	}
	return r.Write(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(entity).Error
}

func (r *CampaignRepository) Delete(ctx context.Context, id string) error {
	res := r.Write(ctx).Delete(&CampaignEntity{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
