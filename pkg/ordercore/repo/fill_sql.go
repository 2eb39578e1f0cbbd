package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/openquant/ordercore/pkg/ordercore/model"
)

type FillSQLRepo struct {
	db *gorm.DB
}

func NewFillSQLRepo(db *gorm.DB) *FillSQLRepo {
	return &FillSQLRepo{
		db: db,
	}
}

func (s *FillSQLRepo) dbWithContext(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

func (s *FillSQLRepo) Save(ctx context.Context, fill *model.Fill) error {
	return s.dbWithContext(ctx).Create(fill).Error
}

func (s *FillSQLRepo) FindByOrderID(ctx context.Context, brokerOrderID string) ([]*model.Fill, error) {
	var fills []*model.Fill
	err := s.dbWithContext(ctx).
		Where("broker_order_id = ?", brokerOrderID).
		Order("fill_time asc").
		Find(&fills).Error
	if err != nil {
		return nil, err
	}
	return fills, nil
}
