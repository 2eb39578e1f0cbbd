// Package repo holds the SQL implementations of the order-core stores.
package repo

import (
	"gorm.io/gorm"
)

type IRepo interface {
	Order() *OrderSQLRepo
	Fill() *FillSQLRepo
	Journal() *JournalSQLRepo
	Decision() *DecisionSQLRepo
	OrderEvent() *OrderEventSQLRepo
}

type Repo struct {
	coreDB *gorm.DB
}

func NewRepo(coreDB *gorm.DB) IRepo {
	return &Repo{
		coreDB: coreDB,
	}
}

func (r *Repo) Order() *OrderSQLRepo {
	return NewOrderSQLRepo(r.coreDB)
}

func (r *Repo) Fill() *FillSQLRepo {
	return NewFillSQLRepo(r.coreDB)
}

func (r *Repo) Journal() *JournalSQLRepo {
	return NewJournalSQLRepo(r.coreDB)
}

func (r *Repo) Decision() *DecisionSQLRepo {
	return NewDecisionSQLRepo(r.coreDB)
}

func (r *Repo) OrderEvent() *OrderEventSQLRepo {
	return NewOrderEventSQLRepo(r.coreDB)
}
