package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/openquant/ordercore/pkg/ordercore/model"
)

type OrderEventSQLRepo struct {
	db *gorm.DB
}

func NewOrderEventSQLRepo(db *gorm.DB) *OrderEventSQLRepo {
	return &OrderEventSQLRepo{
		db: db,
	}
}

func (s *OrderEventSQLRepo) dbWithContext(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

func (s *OrderEventSQLRepo) Create(ctx context.Context, record *model.OrderEvent) (*model.OrderEvent, error) {
	err := s.dbWithContext(ctx).Create(record).Error
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (s *OrderEventSQLRepo) BulkCreate(ctx context.Context, records []*model.OrderEvent) ([]*model.OrderEvent, error) {
	err := s.dbWithContext(ctx).CreateInBatches(records, 100).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}
