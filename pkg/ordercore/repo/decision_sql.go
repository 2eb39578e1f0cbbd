package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/openquant/ordercore/pkg/ordercore/model"
)

type DecisionSQLRepo struct {
	db *gorm.DB
}

func NewDecisionSQLRepo(db *gorm.DB) *DecisionSQLRepo {
	return &DecisionSQLRepo{
		db: db,
	}
}

func (s *DecisionSQLRepo) dbWithContext(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

func (s *DecisionSQLRepo) SaveDecision(ctx context.Context, d *model.Decision) error {
	return s.dbWithContext(ctx).Create(d).Error
}

func (s *DecisionSQLRepo) FindByCorrelationID(ctx context.Context, correlationID string) ([]*model.Decision, error) {
	var decisions []*model.Decision
	err := s.dbWithContext(ctx).
		Where("correlation_id = ?", correlationID).
		Order("decision_time asc").
		Find(&decisions).Error
	if err != nil {
		return nil, err
	}
	return decisions, nil
}
