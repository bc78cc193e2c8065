// Package repository wires the concrete repository implementations behind
// the domain interfaces.
package repository

import (
	"github.com/jmoiron/sqlx"

	"retail-service/internal/adapters/repository/memory"
	"retail-service/internal/adapters/repository/postgres"
	"retail-service/internal/domain/membership"
	"retail-service/internal/domain/product"
	"retail-service/internal/domain/report"
	"retail-service/internal/domain/sale"
	"retail-service/internal/domain/stock"
	"retail-service/internal/domain/subscription"
	"retail-service/internal/domain/tenant"
	"retail-service/internal/domain/user"
)

// Repositories bundles every persistence interface of the platform.
type Repositories struct {
	Tenant       tenant.Repository
	User         user.Repository
	Membership   membership.Repository
	Product      product.Repository
	Stock        stock.Repository
	Sale         sale.Repository
	Subscription subscription.Repository
	Report       report.Repository
}

// Configuration is a function that mutates the container during New.
type Configuration func(r *Repositories) error

// New builds the container from the given configurations.
func New(configs ...Configuration) (*Repositories, error) {
	r := &Repositories{}
	for _, cfg := range configs {
		if err := cfg(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// WithPostgresStore wires all repositories against one sqlx connection.
func WithPostgresStore(db *sqlx.DB) Configuration {
	return func(r *Repositories) error {
		r.Tenant = postgres.NewTenantRepository(db)
		r.User = postgres.NewUserRepository(db)
		r.Membership = postgres.NewMembershipRepository(db)
		r.Product = postgres.NewProductRepository(db)
		r.Stock = postgres.NewStockRepository(db)
		r.Sale = postgres.NewSaleRepository(db)
		r.Subscription = postgres.NewSubscriptionRepository(db)
		r.Report = postgres.NewReportRepository(db)
		return nil
	}
}

// WithMemoryStore wires the in-memory repositories; used by tests and local
// runs without a datastore.
func WithMemoryStore() Configuration {
	return func(r *Repositories) error {
		stocks := memory.NewStockRepository()
		sales := memory.NewSaleRepository(stocks)

		r.Tenant = memory.NewTenantRepository()
		r.User = memory.NewUserRepository()
		r.Membership = memory.NewMembershipRepository()
		r.Product = memory.NewProductRepository(stocks)
		r.Stock = stocks
		r.Sale = sales
		r.Subscription = memory.NewSubscriptionRepository()
		r.Report = memory.NewReportRepository(sales)
		return nil
	}
}
