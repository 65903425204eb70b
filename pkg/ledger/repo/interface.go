package repo

import (
	"context"

	"github.com/mpr89/wheeltrader/pkg/ledger/model"
)

type IOrder interface {
	Get(ctx context.Context, id int64) (*model.Order, error)
	// List returns the most recent orders matching any of the statuses.
	// An empty filter matches everything.
	List(ctx context.Context, statusFilter []model.OrderStatus, limit int) ([]*model.Order, error)
	Insert(ctx context.Context, order *model.Order) (int64, error)
	// UpdateStatus applies the transition and the sparse detail columns in
	// one atomic statement, guarded so a monotonicity-violating write
	// affects zero rows. It reports whether a row actually changed.
	UpdateStatus(ctx context.Context, id int64, status model.OrderStatus, executed bool, details model.ExecutionDetails) (bool, error)
	Delete(ctx context.Context, id int64) error
}

type IOrderEvent interface {
	Create(ctx context.Context, record *model.OrderEvent) (*model.OrderEvent, error)
	BulkCreate(ctx context.Context, records []*model.OrderEvent) ([]*model.OrderEvent, error)
	ListByOrder(ctx context.Context, orderID int64) ([]*model.OrderEvent, error)
}
