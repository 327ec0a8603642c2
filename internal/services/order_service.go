package services

import (
	"context"
	"fmt"
	"math"

	"erpbridge/internal/domain"
	applog "erpbridge/internal/log"
	"erpbridge/internal/repos"
	"erpbridge/internal/validate"
)

type OrderService struct {
	Orders *repos.OrderRepo
	Cache  Cache
}

// NewOrderService builds the order path. c may be nil.
func NewOrderService(orders *repos.OrderRepo, c Cache) *OrderService {
	return &OrderService{Orders: orders, Cache: c}
}

// Create validates the order and inserts it. The id normally comes from the
// storefront; an order without one gets a fresh PED number here. The stated
// total must match the lines to the cent.
func (s *OrderService) Create(ctx context.Context, in domain.Order) (domain.Order, error) {
	o, err := checkOrder(in)
	if err != nil {
		return domain.Order{}, err
	}
	saved, err := s.Orders.Insert(ctx, o)
	if err != nil {
		return domain.Order{}, err
	}
	// The ERP adjusts stock when it invoices; reread products on the next sync.
	if s.Cache != nil {
		if err := s.Cache.Delete(ctx, productsKey); err != nil {
			applog.Warn(nil, "cache.delete", err, map[string]any{"key": productsKey})
		}
	}
	return saved, nil
}

func checkOrder(in domain.Order) (domain.Order, error) {
	o := in
	if o.ID == "" {
		o.ID = domain.NewOrderID()
	} else if id, ok := validate.OrderID(o.ID); ok {
		o.ID = id
	} else {
		return domain.Order{}, &domain.ValidationError{Field: "id", Reason: "must look like PED-12345"}
	}

	id, ok := validate.ID(o.CustomerID)
	if !ok {
		return domain.Order{}, &domain.ValidationError{Field: "customerId", Reason: "missing or invalid customer"}
	}
	o.CustomerID = id
	if o.CustomerName != "" {
		name, ok := validate.Name(o.CustomerName)
		if !ok {
			return domain.Order{}, &domain.ValidationError{Field: "customerName", Reason: "must be 1-120 characters"}
		}
		o.CustomerName = name
	}

	if len(o.Items) == 0 {
		return domain.Order{}, &domain.ValidationError{Field: "items", Reason: "order has no items"}
	}
	for i, it := range o.Items {
		if _, ok := validate.ID(it.ID); !ok {
			return domain.Order{}, &domain.ValidationError{Field: fmt.Sprintf("items[%d].id", i), Reason: "missing or invalid product"}
		}
		if !validate.Qty(it.Quantity) {
			return domain.Order{}, &domain.ValidationError{Field: fmt.Sprintf("items[%d].quantity", i), Reason: "must be between 1 and 9999"}
		}
		if !validate.Amount(it.Price) {
			return domain.Order{}, &domain.ValidationError{Field: fmt.Sprintf("items[%d].price", i), Reason: "must be a non-negative amount"}
		}
	}

	want := domain.SumItems(o.Items)
	if !validate.Amount(o.Total) || math.Abs(domain.RoundCents(o.Total)-want) >= 0.005 {
		return domain.Order{}, &domain.ValidationError{Field: "total", Reason: fmt.Sprintf("%.2f does not match the items (%.2f)", o.Total, want)}
	}
	o.Total = want
	return o, nil
}
