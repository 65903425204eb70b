package repo

import (
	"gorm.io/gorm"
)

type IRepo interface {
	Order() IOrder
	OrderEvent() IOrderEvent
}

type Repo struct {
	ledgerDB *gorm.DB
}

func NewRepo(ledgerDB *gorm.DB) IRepo {
	return &Repo{
		ledgerDB: ledgerDB,
	}
}

func (r *Repo) Order() IOrder {
	return NewOrderSQLRepo(r.ledgerDB)
}

func (r *Repo) OrderEvent() IOrderEvent {
	return NewOrderEventSQLRepo(r.ledgerDB)
}
