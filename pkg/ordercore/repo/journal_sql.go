package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/openquant/ordercore/pkg/ordercore/model"
)

type JournalSQLRepo struct {
	db *gorm.DB
}

func NewJournalSQLRepo(db *gorm.DB) *JournalSQLRepo {
	return &JournalSQLRepo{
		db: db,
	}
}

func (s *JournalSQLRepo) dbWithContext(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

func (s *JournalSQLRepo) Save(ctx context.Context, entry *model.JournalEntry) error {
	return s.dbWithContext(ctx).Create(entry).Error
}

// Update rewrites one leg row; rows are keyed by (group_id, leg_index) so
// concurrently-running legs never touch each other's rows.
func (s *JournalSQLRepo) Update(ctx context.Context, entry *model.JournalEntry) error {
	return s.dbWithContext(ctx).
		Model(&model.JournalEntry{}).
		Where("group_id = ? AND leg_index = ?", entry.GroupID, entry.LegIndex).
		Updates(map[string]interface{}{
			"status":          entry.Status,
			"reason":          entry.Reason,
			"broker_order_id": entry.BrokerOrderID,
			"updated_at":      entry.UpdatedAt,
		}).Error
}

// FindAllPendingOrExecuting feeds the external crash-recovery scan.
func (s *JournalSQLRepo) FindAllPendingOrExecuting(ctx context.Context) ([]*model.JournalEntry, error) {
	var entries []*model.JournalEntry
	err := s.dbWithContext(ctx).
		Where("status IN ?", []model.JournalStatus{
			model.JournalPending,
			model.JournalInProgress,
		}).
		Order("group_id, leg_index").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
