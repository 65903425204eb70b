package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/mpr89/wheeltrader/pkg/ledger/model"
)

var ErrOrderNotFound = errors.New("order not found")

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

func (s *OrderSQLRepo) Get(ctx context.Context, id int64) (*model.Order, error) {
	var order model.Order
	err := s.dbWithContext(ctx).First(&order, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *OrderSQLRepo) List(ctx context.Context, statusFilter []model.OrderStatus, limit int) ([]*model.Order, error) {
	if limit <= 0 {
		limit = 50
	}
	q := s.dbWithContext(ctx).Model(&model.Order{})
	if len(statusFilter) > 0 {
		q = q.Where("status IN ?", statusFilter)
	}

	var orders []*model.Order
	err := q.Order("created_at DESC").Limit(limit).Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (s *OrderSQLRepo) Insert(ctx context.Context, order *model.Order) (int64, error) {
	if order.Status == "" {
		order.Status = model.OrderStatusPending
	}
	if err := s.dbWithContext(ctx).Create(order).Error; err != nil {
		return 0, err
	}
	return order.ID, nil
}

func (s *OrderSQLRepo) UpdateStatus(ctx context.Context, id int64, status model.OrderStatus, executed bool, details model.ExecutionDetails) (bool, error) {
	updates := map[string]interface{}{
		"status":       status,
		"executed":     executed,
		"last_updated": time.Now(),
	}
	for column, value := range details {
		updates[column] = value
	}

	// The predecessor predicate makes the update a no-op instead of a
	// corruption when a concurrent transition won the race.
	res := s.dbWithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND status IN ?", id, model.Predecessors(status)).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (s *OrderSQLRepo) Delete(ctx context.Context, id int64) error {
	res := s.dbWithContext(ctx).Delete(&model.Order{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrOrderNotFound
	}
	return nil
}
