package repo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mpr89/wheeltrader/pkg/ledger/model"
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

// Create inserts one audit event. Redelivered bus messages hit the primary
// key and are dropped silently.
func (s *OrderEventSQLRepo) Create(ctx context.Context, record *model.OrderEvent) (*model.OrderEvent, error) {
	err := s.dbWithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(record).Error
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (s *OrderEventSQLRepo) BulkCreate(ctx context.Context, records []*model.OrderEvent) ([]*model.OrderEvent, error) {
	if len(records) == 0 {
		return records, nil
	}
	err := s.dbWithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (s *OrderEventSQLRepo) ListByOrder(ctx context.Context, orderID int64) ([]*model.OrderEvent, error) {
	var events []*model.OrderEvent
	err := s.dbWithContext(ctx).
		Where("order_id = ?", orderID).
		Order("timestamp ASC").
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}
