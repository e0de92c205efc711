package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/model"
	"github.com/jmsperu/sms-suite-whmcs-sub001/pkg/pg"
)

type RateRepository struct {
	*pg.DB
}

func NewRateRepository(db *pg.DB) *RateRepository {
	return &RateRepository{
		db,
	}
}

func (r *RateRepository) CreateRate(ctx context.Context, rate *model.Rate) (*model.Rate, error) {
	entity := toRateEntity(rate)
	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, err
	}
	return toRateModel(entity), nil
}

func (r *RateRepository) CreatePrefix(ctx context.Context, p *model.Prefix) (*model.Prefix, error) {
	entity := toPrefixEntity(p)
	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, err
	}
	return toPrefixModel(entity), nil
}

// FindRate resolves pricing from most to least specific: country+network,
// country-wide, then the platform fallback row with an empty country.
func (r *RateRepository) FindRate(ctx context.Context, country, network string, channel model.Channel) (*model.Rate, error) {
	lookups := [][2]string{
		{country, network},
		{country, ""},
		{"", ""},
	}
	for _, l := range lookups {
		var entity RateEntity
		err := r.Read(ctx).WithContext(ctx).
			Where("country = ? AND network = ? AND channel = ?", l[0], l[1], string(channel)).
			First(&entity).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return toRateModel(&entity), nil
	}
	return nil, ErrNotFound
}

// MatchPrefix finds the longest dialing prefix the number starts with.
func (r *RateRepository) MatchPrefix(ctx context.Context, number string) (*model.Prefix, error) {
	var entity PrefixEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("? LIKE prefix || '%'", number).
		Order("length(prefix) DESC").
		First(&entity).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return toPrefixModel(&entity), nil
}
