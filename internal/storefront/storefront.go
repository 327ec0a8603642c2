// Package storefront is the client side of the bridge: it probes the relay,
// pulls the catalog, keeps the cart and pushes orders back.
package storefront

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"erpbridge/internal/bridgeclient"
	"erpbridge/internal/domain"
	applog "erpbridge/internal/log"
	"erpbridge/internal/querylog"
)

// Relay is the part of the bridge contract the storefront uses.
type Relay interface {
	Health(ctx context.Context) (domain.Health, error)
	Products(ctx context.Context) ([]domain.Product, error)
	Customers(ctx context.Context) ([]domain.Customer, error)
	CreateOrder(ctx context.Context, o domain.Order) (domain.Order, error)
}

// ConfigStore persists the bridge settings between runs.
type ConfigStore interface {
	LoadBridge() (domain.BridgeConfig, bool, error)
	SaveBridge(domain.BridgeConfig) error
}

// Placeholder catalog shown until the relay has delivered real data.
var (
	placeholderProducts = []domain.Product{{
		ID:          "M1",
		Code:        "MOCK-01",
		Name:        "Sample laptop",
		Description: "Sample data (bridge disconnected)",
		Price:       999,
		Stock:       10,
		Category:    "Demo",
	}}
	placeholderCredit   = 1000.0
	placeholderCustomer = []domain.Customer{{
		ID:          "C1",
		Name:        "Sample customer",
		TaxID:       "000",
		Address:     "Calle 123",
		CreditLimit: &placeholderCredit,
	}}
)

type Orchestrator struct {
	store ConfigStore
	dial  func(baseURL string) Relay
	now   func() time.Time
	log   *querylog.Log

	probing     atomic.Bool
	checkingOut atomic.Bool

	mu        sync.Mutex
	cfg       domain.BridgeConfig
	loading   bool
	latency   string
	connErr   *ConnError
	products  []domain.Product
	customers []domain.Customer
	haveProds bool
	haveCusts bool
	cart      []domain.CartItem
	selected  *domain.Customer
	orders    []domain.Order
}

type Option func(*Orchestrator)

// WithDialer replaces how a Relay is built for a base URL.
func WithDialer(dial func(baseURL string) Relay) Option {
	return func(o *Orchestrator) { o.dial = dial }
}

func WithClock(now func() time.Time) Option { return func(o *Orchestrator) { o.now = now } }

// New restores the saved bridge config, falling back to defaultURL on a
// fresh store. The restored status is informational only; Start probes again.
func New(store ConfigStore, defaultURL string, opts ...Option) (*Orchestrator, error) {
	o := &Orchestrator{
		store: store,
		dial:  func(u string) Relay { return bridgeclient.New(u) },
		now:   time.Now,
		log:   querylog.New(querylog.DefaultCapacity),
	}
	for _, opt := range opts {
		opt(o)
	}

	cfg, found, err := store.LoadBridge()
	if err != nil {
		return nil, fmt.Errorf("load bridge config: %w", err)
	}
	if !found {
		cfg = domain.BridgeConfig{BaseURL: strings.TrimRight(defaultURL, "/"), Status: domain.StatusDisconnected}
	}
	if cfg.Status == "" {
		cfg.Status = domain.StatusDisconnected
	}
	o.cfg = cfg
	return o, nil
}

// Start always runs a fresh probe, whatever status the last session saved.
func (o *Orchestrator) Start(ctx context.Context) error {
	return o.Connect(ctx)
}

// Connect probes the relay and, when healthy, refreshes products and
// customers concurrently. Fetch failures are logged and leave connectivity
// alone; the catalog keeps its previous contents or the placeholders.
func (o *Orchestrator) Connect(ctx context.Context) error {
	if !o.probing.CompareAndSwap(false, true) {
		return ErrProbeInFlight
	}
	defer o.probing.Store(false)

	o.mu.Lock()
	o.loading = true
	o.connErr = nil
	o.latency = ""
	o.setStatusLocked(domain.StatusChecking, nil)
	base := o.cfg.BaseURL
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		o.loading = false
		o.mu.Unlock()
	}()

	if base == "" {
		o.mu.Lock()
		o.connErr = &ConnError{Title: connErrTitle, Message: noRelayDetail}
		o.setStatusLocked(domain.StatusDisconnected, nil)
		o.fillPlaceholdersLocked()
		o.mu.Unlock()
		applog.Info(nil, "storefront.offline", nil)
		return nil
	}

	relay := o.dial(base)
	start := o.now()
	h, err := relay.Health(ctx)
	if err != nil {
		ce := connError(err)
		o.log.Add(querylog.Error, "health: "+err.Error())
		o.mu.Lock()
		o.connErr = ce
		o.setStatusLocked(domain.StatusDisconnected, nil)
		o.mu.Unlock()
		applog.Warn(nil, "storefront.connect.fail", err, map[string]any{"base_url": base})
		return ce
	}

	ping := o.now()
	o.mu.Lock()
	o.latency = h.Latency
	o.setStatusLocked(domain.StatusConnected, &ping)
	o.mu.Unlock()
	applog.Timed(nil, "storefront.connect.ok", ping.Sub(start), nil, map[string]any{"base_url": base, "latency": h.Latency})

	var (
		wg         sync.WaitGroup
		prods      []domain.Product
		custs      []domain.Customer
		perr, cerr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		o.log.Add(querylog.Select, "SQL: SELECT products FROM saprod via "+base+"/products")
		prods, perr = relay.Products(ctx)
	}()
	go func() {
		defer wg.Done()
		o.log.Add(querylog.Select, "SQL: SELECT customers FROM sacli via "+base+"/customers")
		custs, cerr = relay.Customers(ctx)
	}()
	wg.Wait()

	o.mu.Lock()
	defer o.mu.Unlock()
	if perr == nil {
		o.products, o.haveProds = prods, true
	} else {
		o.log.Add(querylog.Error, "products: "+perr.Error())
		applog.Warn(nil, "storefront.products.fail", perr, nil)
	}
	if cerr == nil {
		o.customers, o.haveCusts = custs, true
		o.reselectLocked()
	} else {
		o.log.Add(querylog.Error, "customers: "+cerr.Error())
		applog.Warn(nil, "storefront.customers.fail", cerr, nil)
	}
	o.fillPlaceholdersLocked()
	return nil
}

// SetBaseURL records a user edit of the relay address. The new address is
// not probed until the next Connect.
func (o *Orchestrator) SetBaseURL(raw string) error {
	base := strings.TrimRight(strings.TrimSpace(raw), "/")
	if base != "" {
		u, err := url.Parse(base)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("invalid relay URL %q", raw)
		}
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.cfg.BaseURL = base
	o.cfg.Status = domain.StatusDisconnected
	return o.persistErrLocked()
}

func (o *Orchestrator) setStatusLocked(s domain.ConnStatus, ping *time.Time) {
	o.cfg.Status = s
	if ping != nil {
		o.cfg.LastPing = ping
	}
	if err := o.persistErrLocked(); err != nil {
		applog.Warn(nil, "storefront.config.save", err, nil)
	}
}

func (o *Orchestrator) persistErrLocked() error {
	if err := o.store.SaveBridge(o.cfg); err != nil {
		return fmt.Errorf("save bridge config: %w", err)
	}
	return nil
}

func (o *Orchestrator) fillPlaceholdersLocked() {
	if !o.haveProds && len(o.products) == 0 {
		o.products = append([]domain.Product(nil), placeholderProducts...)
	}
	if !o.haveCusts && len(o.customers) == 0 {
		o.customers = append([]domain.Customer(nil), placeholderCustomer...)
	}
}

// reselectLocked drops a selection that no longer exists in the catalog.
func (o *Orchestrator) reselectLocked() {
	if o.selected == nil {
		return
	}
	for _, c := range o.customers {
		if c.ID == o.selected.ID {
			o.selected = &c
			return
		}
	}
	o.selected = nil
}

func (o *Orchestrator) Config() domain.BridgeConfig {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.cfg
}

func (o *Orchestrator) Latency() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.latency
}

// LastError is the error of the most recent probe, nil after a success.
func (o *Orchestrator) LastError() *ConnError {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.connErr
}

func (o *Orchestrator) Loading() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.loading
}

func (o *Orchestrator) Products() []domain.Product {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]domain.Product(nil), o.products...)
}

func (o *Orchestrator) Customers() []domain.Customer {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]domain.Customer(nil), o.customers...)
}

// Logs returns the client's query log, newest first.
func (o *Orchestrator) Logs() []querylog.Entry { return o.log.Entries() }
