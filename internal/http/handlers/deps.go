package handlers

import (
	"erpbridge/internal/config"
	"erpbridge/internal/querylog"
	"erpbridge/internal/repos"
	"erpbridge/internal/services"
)

type Deps struct {
	HealthHandler  *HealthHandler
	CatalogHandler *CatalogHandler
	OrderHandler   *OrderHandler
	DiagHandler    *DiagHandler
}

// NewDeps wires the gateway on top of pool. c may be nil to disable caching.
func NewDeps(pool *repos.Pool, cfg config.Config, c services.Cache) *Deps {
	ql := querylog.New(querylog.DefaultCapacity)
	d := repos.DialectFor(cfg.DB)

	prodRepo := repos.NewProductRepo(pool, d, ql, cfg.ProductsLimit)
	custRepo := repos.NewCustomerRepo(pool, d, ql, cfg.CustomersLimit)
	orderRepo := repos.NewOrderRepo(pool, d, ql)

	bridgeSvc := services.NewBridgeService(pool, cfg.DB)
	catalogSvc := services.NewCatalogService(prodRepo, custRepo, c)
	orderSvc := services.NewOrderService(orderRepo, c)

	return &Deps{
		HealthHandler:  &HealthHandler{Bridge: bridgeSvc},
		CatalogHandler: &CatalogHandler{Catalog: catalogSvc},
		OrderHandler:   &OrderHandler{Orders: orderSvc, Repo: orderRepo},
		DiagHandler:    &DiagHandler{Log: ql, Pool: pool, DB: cfg.DB},
	}
}
