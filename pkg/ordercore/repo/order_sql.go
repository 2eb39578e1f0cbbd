package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/openquant/ordercore/pkg/ordercore/model"
)

type OrderSQLRepo struct {
	db *gorm.DB
}

func NewOrderSQLRepo(db *gorm.DB) *OrderSQLRepo {
	return &OrderSQLRepo{
		db: db,
	}
}

func (s *OrderSQLRepo) dbWithContext(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

// Save upserts by primary key; mutators read-modify-write whole records.
func (s *OrderSQLRepo) Save(ctx context.Context, order *model.Order) error {
	return s.dbWithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(order).Error
}

func (s *OrderSQLRepo) FindByID(ctx context.Context, id string) (*model.Order, error) {
	var order model.Order
	err := s.dbWithContext(ctx).Where("id = ?", id).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *OrderSQLRepo) FindPending(ctx context.Context) ([]*model.Order, error) {
	var orders []*model.Order
	err := s.dbWithContext(ctx).
		Where("status IN ?", []model.OrderStatus{
			model.OrderStatusPending,
			model.OrderStatusOpen,
			model.OrderStatusTriggerPending,
			model.OrderStatusPartial,
		}).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}
