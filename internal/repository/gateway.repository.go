package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/model"
	"github.com/jmsperu/sms-suite-whmcs-sub001/pkg/pg"
)

type GatewayRepository struct {
	*pg.DB
}

func NewGatewayRepository(db *pg.DB) *GatewayRepository {
	return &GatewayRepository{
		db,
	}
}

func (r *GatewayRepository) Create(ctx context.Context, gw *model.Gateway) (*model.Gateway, error) {
	entity := toGatewayEntity(gw)
	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, err
	}
	return toGatewayModel(entity), nil
}

func (r *GatewayRepository) Update(ctx context.Context, gw *model.Gateway) error {
	entity := toGatewayEntity(gw)
	res := r.Write(ctx).WithContext(ctx).
		Model(&GatewayEntity{}).
		Where("id = ?", entity.ID).
		Select("*").
		Omit("id", "created_at").
		Updates(entity)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetGateway loads one gateway record. A missing record comes back as
// (nil, nil) so the provider registry can map it to its own error.
func (r *GatewayRepository) GetGateway(ctx context.Context, id int64) (*model.Gateway, error) {
	var entity GatewayEntity
	err := r.Read(ctx).WithContext(ctx).First(&entity, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return toGatewayModel(&entity), nil
}

// ListActive returns enabled gateways able to carry the given channel, in
// id order.
func (r *GatewayRepository) ListActive(ctx context.Context, channel model.Channel) ([]*model.Gateway, error) {
	var entities []*GatewayEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("active = ?", true).
		Where("channels IN ?", []string{string(channel), string(model.GatewayChannelBoth)}).
		Order("id ASC").
		Find(&entities).Error
	if err != nil {
		return nil, err
	}
	return toGatewayModels(entities), nil
}
