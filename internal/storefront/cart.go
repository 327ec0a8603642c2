package storefront

import (
	"context"
	"fmt"

	"erpbridge/internal/domain"
	applog "erpbridge/internal/log"
	"erpbridge/internal/querylog"
	"erpbridge/internal/validate"
)

// AddToCart puts one unit of the product in the cart, or one more if the
// line already exists.
func (o *Orchestrator) AddToCart(productID string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	p, ok := o.productLocked(productID)
	if !ok {
		return ErrUnknownProduct
	}
	if !p.Available() {
		return ErrOutOfStock
	}
	for i := range o.cart {
		if o.cart[i].ID == productID {
			if o.cart[i].Quantity < validate.MaxQty {
				o.cart[i].Quantity++
			}
			return nil
		}
	}
	o.cart = append(o.cart, domain.CartItem{Product: p, Quantity: 1})
	return nil
}

// UpdateQuantity sets a line's quantity, clamped to what the relay accepts
// on one line (1 to validate.MaxQty).
func (o *Orchestrator) UpdateQuantity(productID string, qty int) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	qty = min(max(qty, 1), validate.MaxQty)
	for i := range o.cart {
		if o.cart[i].ID == productID {
			o.cart[i].Quantity = qty
			return nil
		}
	}
	return ErrUnknownProduct
}

func (o *Orchestrator) RemoveFromCart(productID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := o.cart[:0]
	for _, it := range o.cart {
		if it.ID != productID {
			out = append(out, it)
		}
	}
	o.cart = out
}

func (o *Orchestrator) Cart() []domain.CartItem {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]domain.CartItem(nil), o.cart...)
}

// CartTotal is recomputed from the current lines on every call.
func (o *Orchestrator) CartTotal() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return domain.SumItems(o.cart)
}

func (o *Orchestrator) CartCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := 0
	for _, it := range o.cart {
		n += it.Quantity
	}
	return n
}

func (o *Orchestrator) SelectCustomer(id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, c := range o.customers {
		if c.ID == id {
			o.selected = &c
			return nil
		}
	}
	return ErrUnknownCustomer
}

func (o *Orchestrator) SelectedCustomer() (domain.Customer, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.selected == nil {
		return domain.Customer{}, false
	}
	return *o.selected, true
}

// Orders is the session's order history, newest first.
func (o *Orchestrator) Orders() []domain.Order {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]domain.Order(nil), o.orders...)
}

// Checkout sends the cart as one order. Validation happens before any network
// call. On failure the cart and the selected customer stay as they were and
// nothing is retried; connectivity status is never touched here. Only one
// checkout runs at a time; lines added while it is in flight stay in the cart.
func (o *Orchestrator) Checkout(ctx context.Context) (domain.Order, error) {
	if !o.checkingOut.CompareAndSwap(false, true) {
		return domain.Order{}, ErrCheckoutBusy
	}
	defer o.checkingOut.Store(false)

	o.mu.Lock()
	if len(o.cart) == 0 {
		o.mu.Unlock()
		return domain.Order{}, ErrEmptyCart
	}
	if o.selected == nil {
		o.mu.Unlock()
		return domain.Order{}, ErrNoCustomer
	}
	items := append([]domain.CartItem(nil), o.cart...)
	order := domain.Order{
		ID:           domain.NewOrderID(),
		CustomerID:   o.selected.ID,
		CustomerName: o.selected.Name,
		Items:        items,
		Total:        domain.SumItems(items),
	}
	base := o.cfg.BaseURL
	o.mu.Unlock()

	if base == "" {
		order.Date = o.now().UTC()
		order.Status = domain.OrderProcessed
		applog.Audit(nil, "storefront.order.local", map[string]any{"order_id": order.ID, "total": order.Total})
	} else {
		o.log.Add(querylog.Insert, fmt.Sprintf("SQL: INSERT INTO safact VALUES ('%s', ...)", order.ID))
		saved, err := o.dial(base).CreateOrder(ctx, order)
		if err != nil {
			o.log.Add(querylog.Error, "order "+order.ID+": "+err.Error())
			applog.Error(nil, "storefront.order.fail", err, map[string]any{"order_id": order.ID})
			return domain.Order{}, err
		}
		order = saved
		applog.Audit(nil, "storefront.order.sync", map[string]any{"order_id": order.ID, "total": order.Total})
	}

	o.mu.Lock()
	o.orders = append([]domain.Order{order}, o.orders...)
	o.removeOrderedLocked(items)
	o.mu.Unlock()
	return order, nil
}

// removeOrderedLocked takes the ordered quantities out of the cart.
func (o *Orchestrator) removeOrderedLocked(ordered []domain.CartItem) {
	sent := make(map[string]int, len(ordered))
	for _, it := range ordered {
		sent[it.ID] += it.Quantity
	}
	out := o.cart[:0]
	for _, it := range o.cart {
		it.Quantity -= sent[it.ID]
		if it.Quantity > 0 {
			out = append(out, it)
		}
	}
	if len(out) == 0 {
		out = nil
	}
	o.cart = out
}

func (o *Orchestrator) productLocked(id string) (domain.Product, bool) {
	for _, p := range o.products {
		if p.ID == id {
			return p, true
		}
	}
	return domain.Product{}, false
}
