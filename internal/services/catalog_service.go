package services

import (
	"context"
	"errors"

	"erpbridge/internal/cache"
	"erpbridge/internal/domain"
	applog "erpbridge/internal/log"
	"erpbridge/internal/repos"
)

// Cache is the subset of cache.Redis the catalog needs. A nil Cache disables
// caching.
type Cache interface {
	GetJSON(ctx context.Context, key string, dst any) error
	SetJSON(ctx context.Context, key string, v any) error
	Delete(ctx context.Context, keys ...string) error
}

const (
	productsKey  = "products"
	customersKey = "customers"
)

// Source tells where a catalog list came from.
type Source string

const (
	FromCache    Source = "cache"
	FromDatabase Source = "database"
)

type CatalogService struct {
	Prods *repos.ProductRepo
	Custs *repos.CustomerRepo
	Cache Cache
}

func NewCatalogService(prods *repos.ProductRepo, custs *repos.CustomerRepo, c Cache) *CatalogService {
	return &CatalogService{Prods: prods, Custs: custs, Cache: c}
}

func (s *CatalogService) Products(ctx context.Context) ([]domain.Product, Source, error) {
	return cached(ctx, s.Cache, productsKey, s.Prods.List)
}

func (s *CatalogService) Customers(ctx context.Context) ([]domain.Customer, Source, error) {
	return cached(ctx, s.Cache, customersKey, s.Custs.List)
}

// cached reads key from c, falling back to load on a miss or a cache error. A
// cache that misbehaves never fails the request.
func cached[T any](ctx context.Context, c Cache, key string, load func(context.Context) ([]T, error)) ([]T, Source, error) {
	if c != nil {
		var out []T
		err := c.GetJSON(ctx, key, &out)
		if err == nil {
			return out, FromCache, nil
		}
		if !errors.Is(err, cache.ErrMiss) {
			applog.Warn(nil, "cache.get", err, map[string]any{"key": key})
		}
	}

	out, err := load(ctx)
	if err != nil {
		return nil, FromDatabase, err
	}
	if c != nil {
		if err := c.SetJSON(ctx, key, out); err != nil {
			applog.Warn(nil, "cache.set", err, map[string]any{"key": key})
		}
	}
	return out, FromDatabase, nil
}
