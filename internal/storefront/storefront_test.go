package storefront_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"erpbridge/internal/bridgeclient"
	"erpbridge/internal/config"
	"erpbridge/internal/domain"
	"erpbridge/internal/http/handlers"
	"erpbridge/internal/querylog"
	"erpbridge/internal/repos"
	"erpbridge/internal/storefront"
	"erpbridge/internal/validate"
)

type memStore struct {
	mu    sync.Mutex
	cfg   domain.BridgeConfig
	found bool
	saves int
}

func (m *memStore) LoadBridge() (domain.BridgeConfig, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg, m.found, nil
}

func (m *memStore) SaveBridge(cfg domain.BridgeConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg, m.found = cfg, true
	m.saves++
	return nil
}

func (m *memStore) saved() domain.BridgeConfig {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg
}

type fakeRelay struct {
	healthErr error
	prods     []domain.Product
	prodErr   error
	custs     []domain.Customer
	custErr   error
	orderErr  error

	// when set, each fetch reports on started and waits for release
	started chan string
	release chan struct{}
	// when set, Health waits for it
	healthGate chan struct{}
	// when set, CreateOrder reports on orderStarted and waits for orderGate
	orderStarted chan struct{}
	orderGate    chan struct{}

	healthCalls atomic.Int32
	orderCalls  atomic.Int32
}

func (f *fakeRelay) Health(context.Context) (domain.Health, error) {
	f.healthCalls.Add(1)
	if f.healthGate != nil {
		<-f.healthGate
	}
	if f.healthErr != nil {
		return domain.Health{}, f.healthErr
	}
	return domain.Health{Status: "OK", Latency: "42ms", LatencyMs: 42, Server: "sql5113"}, nil
}

func (f *fakeRelay) wait(name string) {
	if f.started != nil {
		f.started <- name
		<-f.release
	}
}

func (f *fakeRelay) Products(context.Context) ([]domain.Product, error) {
	f.wait("products")
	return f.prods, f.prodErr
}

func (f *fakeRelay) Customers(context.Context) ([]domain.Customer, error) {
	f.wait("customers")
	return f.custs, f.custErr
}

func (f *fakeRelay) CreateOrder(_ context.Context, o domain.Order) (domain.Order, error) {
	f.orderCalls.Add(1)
	if f.orderGate != nil {
		f.orderStarted <- struct{}{}
		<-f.orderGate
	}
	if f.orderErr != nil {
		return domain.Order{}, f.orderErr
	}
	o.Status = domain.OrderProcessed
	o.Date = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return o, nil
}

func catalogRelay() *fakeRelay {
	return &fakeRelay{
		prods: []domain.Product{
			{ID: "M1", Code: "M1", Name: "Laptop", Price: 999, Stock: 10},
			{ID: "K2", Code: "K2", Name: "Keyboard", Price: 25.5, Stock: 3},
			{ID: "Z0", Code: "Z0", Name: "Sold out", Price: 10, Stock: 0},
		},
		custs: []domain.Customer{{ID: "C1", Name: "Cliente Uno"}, {ID: "C2", Name: "Cliente Dos"}},
	}
}

func newOrchestrator(t *testing.T, relay storefront.Relay, store *memStore, opts ...storefront.Option) *storefront.Orchestrator {
	t.Helper()
	if store == nil {
		store = &memStore{}
	}
	opts = append(opts, storefront.WithDialer(func(string) storefront.Relay { return relay }))
	o, err := storefront.New(store, "http://localhost:3000/", opts...)
	require.NoError(t, err)
	return o
}

func productIDs(ps []domain.Product) []string {
	var ids []string
	for _, p := range ps {
		ids = append(ids, p.ID)
	}
	return ids
}

func TestConnectSuccess(t *testing.T) {
	store := &memStore{}
	at := time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)
	o := newOrchestrator(t, catalogRelay(), store, storefront.WithClock(func() time.Time { return at }))
	assert.Equal(t, "http://localhost:3000", o.Config().BaseURL)

	require.NoError(t, o.Connect(context.Background()))

	cfg := o.Config()
	assert.Equal(t, domain.StatusConnected, cfg.Status)
	require.NotNil(t, cfg.LastPing)
	assert.True(t, at.Equal(*cfg.LastPing))
	assert.Equal(t, "42ms", o.Latency())
	assert.Nil(t, o.LastError())
	assert.False(t, o.Loading())
	assert.Equal(t, []string{"M1", "K2", "Z0"}, productIDs(o.Products()))
	assert.Len(t, o.Customers(), 2)
	assert.Equal(t, domain.StatusConnected, store.saved().Status)

	logs := o.Logs()
	require.Len(t, logs, 2)
	for _, e := range logs {
		assert.Equal(t, querylog.Select, e.Type)
	}
}

func TestConnectFetchesConcurrently(t *testing.T) {
	relay := catalogRelay()
	relay.started = make(chan string, 2)
	relay.release = make(chan struct{})
	o := newOrchestrator(t, relay, nil)

	done := make(chan error, 1)
	go func() { done <- o.Connect(context.Background()) }()

	// both fetches are in flight before either completes
	got := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case name := <-relay.started:
			got[name] = true
		case <-time.After(2 * time.Second):
			t.Fatal("fetches were not issued concurrently")
		}
	}
	assert.True(t, got["products"] && got["customers"])
	assert.True(t, o.Loading())
	assert.Empty(t, o.Products())

	close(relay.release)
	require.NoError(t, <-done)
	assert.False(t, o.Loading())
	assert.Len(t, o.Products(), 3)
	assert.Len(t, o.Customers(), 2)
}

func TestConnectUnreachableRelay(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	dead := srv.URL
	srv.Close()

	store := &memStore{}
	o, err := storefront.New(store, dead)
	require.NoError(t, err)

	err = o.Connect(context.Background())
	require.Error(t, err)
	assert.Equal(t, domain.StatusDisconnected, o.Config().Status)
	ce := o.LastError()
	require.NotNil(t, ce)
	assert.Equal(t, "SQL connection failed", ce.Title)
	assert.Contains(t, ce.Message, "Is the local relay running?")
	assert.ErrorIs(t, err, bridgeclient.ErrUnreachable)
	assert.Empty(t, o.Products(), "health failure leaves the catalog alone")
	assert.Equal(t, querylog.Error, o.Logs()[0].Type)
}

func TestConnectRelayRejectionPassesMessageThrough(t *testing.T) {
	relay := catalogRelay()
	relay.healthErr = &bridgeclient.RelayError{StatusCode: 500, Message: "Login failed for user 'ventas'."}
	o := newOrchestrator(t, relay, nil)

	err := o.Connect(context.Background())
	require.Error(t, err)
	assert.Equal(t, domain.StatusDisconnected, o.Config().Status)
	assert.Equal(t, "Login failed for user 'ventas'.", o.LastError().Message)
	assert.Empty(t, o.Latency())
}

func TestHealthFailureKeepsPreviousCatalog(t *testing.T) {
	relay := catalogRelay()
	o := newOrchestrator(t, relay, nil)
	require.NoError(t, o.Connect(context.Background()))

	relay.healthErr = &bridgeclient.NetworkError{URL: "x", Err: errors.New("connection refused")}
	require.Error(t, o.Connect(context.Background()))

	assert.Equal(t, domain.StatusDisconnected, o.Config().Status)
	assert.Equal(t, []string{"M1", "K2", "Z0"}, productIDs(o.Products()))
	assert.Len(t, o.Customers(), 2)
}

func TestFetchFailureDegradesWithoutDisconnecting(t *testing.T) {
	relay := catalogRelay()
	relay.prodErr = errors.New("Invalid object name 'dbo.saprod'.")
	relay.custErr = errors.New("timeout")
	o := newOrchestrator(t, relay, nil)

	require.NoError(t, o.Connect(context.Background()))
	assert.Equal(t, domain.StatusConnected, o.Config().Status)

	prods := o.Products()
	require.Len(t, prods, 1)
	assert.Equal(t, "M1", prods[0].ID)
	assert.Equal(t, 999.0, prods[0].Price)
	assert.Equal(t, 10, prods[0].Stock)
	custs := o.Customers()
	require.Len(t, custs, 1)
	assert.Equal(t, "C1", custs[0].ID)

	var errs int
	for _, e := range o.Logs() {
		if e.Type == querylog.Error {
			errs++
		}
	}
	assert.Equal(t, 2, errs)
}

func TestFetchFailureKeepsPreviousData(t *testing.T) {
	relay := catalogRelay()
	o := newOrchestrator(t, relay, nil)
	require.NoError(t, o.Connect(context.Background()))

	relay.prodErr = errors.New("deadlock victim")
	require.NoError(t, o.Connect(context.Background()))
	assert.Equal(t, []string{"M1", "K2", "Z0"}, productIDs(o.Products()))
}

func TestConnectIsNotReentrant(t *testing.T) {
	relay := catalogRelay()
	relay.healthGate = make(chan struct{})
	o := newOrchestrator(t, relay, nil)

	done := make(chan error, 1)
	go func() { done <- o.Connect(context.Background()) }()
	require.Eventually(t, func() bool { return relay.healthCalls.Load() == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, domain.StatusChecking, o.Config().Status)

	assert.ErrorIs(t, o.Connect(context.Background()), storefront.ErrProbeInFlight)

	close(relay.healthGate)
	require.NoError(t, <-done)
	assert.Equal(t, int32(1), relay.healthCalls.Load())
}

func TestStartAlwaysProbes(t *testing.T) {
	for _, saved := range []domain.ConnStatus{domain.StatusConnected, domain.StatusDisconnected} {
		t.Run(string(saved), func(t *testing.T) {
			relay := catalogRelay()
			store := &memStore{found: true, cfg: domain.BridgeConfig{BaseURL: "http://10.0.0.5:3000", Status: saved}}
			o := newOrchestrator(t, relay, store)
			assert.Equal(t, saved, o.Config().Status)

			require.NoError(t, o.Start(context.Background()))
			assert.Equal(t, int32(1), relay.healthCalls.Load())
			assert.Equal(t, "http://10.0.0.5:3000", o.Config().BaseURL)
		})
	}
}

func TestQueryLogStaysBounded(t *testing.T) {
	o := newOrchestrator(t, catalogRelay(), nil)
	for i := 0; i < 20; i++ {
		require.NoError(t, o.Connect(context.Background()))
	}
	assert.Len(t, o.Logs(), querylog.DefaultCapacity)
}

func TestSetBaseURL(t *testing.T) {
	store := &memStore{}
	o := newOrchestrator(t, catalogRelay(), store)
	require.NoError(t, o.Connect(context.Background()))

	assert.Error(t, o.SetBaseURL("ftp://relay"))
	assert.Error(t, o.SetBaseURL("localhost:3000"))

	require.NoError(t, o.SetBaseURL(" http://192.168.1.20:3000/ "))
	cfg := store.saved()
	assert.Equal(t, "http://192.168.1.20:3000", cfg.BaseURL)
	assert.Equal(t, domain.StatusDisconnected, cfg.Status)
}

func TestCartOperations(t *testing.T) {
	o := newOrchestrator(t, catalogRelay(), nil)
	require.NoError(t, o.Connect(context.Background()))

	require.NoError(t, o.AddToCart("M1"))
	require.NoError(t, o.AddToCart("M1"))
	require.NoError(t, o.AddToCart("K2"))
	assert.ErrorIs(t, o.AddToCart("Z0"), storefront.ErrOutOfStock)
	assert.ErrorIs(t, o.AddToCart("nope"), storefront.ErrUnknownProduct)

	cart := o.Cart()
	require.Len(t, cart, 2, "same id increments instead of duplicating")
	assert.Equal(t, 2, cart[0].Quantity)
	assert.Equal(t, 3, o.CartCount())
	assert.InDelta(t, 2*999+25.5, o.CartTotal(), 0.001)

	require.NoError(t, o.UpdateQuantity("K2", 4))
	assert.InDelta(t, 2*999+4*25.5, o.CartTotal(), 0.001)
	require.NoError(t, o.UpdateQuantity("K2", 0))
	assert.Equal(t, 1, o.Cart()[1].Quantity)
	assert.ErrorIs(t, o.UpdateQuantity("Z0", 2), storefront.ErrUnknownProduct)

	o.RemoveFromCart("M1")
	assert.InDelta(t, 25.5, o.CartTotal(), 0.001)
	assert.Equal(t, 1, o.CartCount())

	assert.ErrorIs(t, o.SelectCustomer("C9"), storefront.ErrUnknownCustomer)
	require.NoError(t, o.SelectCustomer("C2"))
	c, ok := o.SelectedCustomer()
	require.True(t, ok)
	assert.Equal(t, "Cliente Dos", c.Name)
}

func TestQuantityCappedAtLineMaximum(t *testing.T) {
	o := newOrchestrator(t, catalogRelay(), nil)
	require.NoError(t, o.Connect(context.Background()))
	require.NoError(t, o.AddToCart("M1"))

	require.NoError(t, o.UpdateQuantity("M1", 10000))
	assert.Equal(t, validate.MaxQty, o.Cart()[0].Quantity)
	require.NoError(t, o.AddToCart("M1"))
	assert.Equal(t, validate.MaxQty, o.CartCount())
}

func TestCheckoutRejectedLocally(t *testing.T) {
	relay := catalogRelay()
	o := newOrchestrator(t, relay, nil)
	require.NoError(t, o.Connect(context.Background()))

	_, err := o.Checkout(context.Background())
	assert.ErrorIs(t, err, storefront.ErrEmptyCart)

	require.NoError(t, o.AddToCart("M1"))
	_, err = o.Checkout(context.Background())
	assert.ErrorIs(t, err, storefront.ErrNoCustomer)

	assert.Equal(t, int32(0), relay.orderCalls.Load())
	assert.Len(t, o.Cart(), 1)
}

func TestCheckoutSuccess(t *testing.T) {
	relay := catalogRelay()
	o := newOrchestrator(t, relay, nil)
	require.NoError(t, o.Connect(context.Background()))

	require.NoError(t, o.AddToCart("M1"))
	require.NoError(t, o.UpdateQuantity("M1", 2))
	require.NoError(t, o.SelectCustomer("C1"))

	first, err := o.Checkout(context.Background())
	require.NoError(t, err)
	assert.Regexp(t, `^PED-\d{5}$`, first.ID)
	assert.Equal(t, 1998.0, first.Total)
	assert.Equal(t, "C1", first.CustomerID)
	assert.Equal(t, domain.OrderProcessed, first.Status)
	assert.Empty(t, o.Cart())
	assert.Equal(t, 0, o.CartCount())

	require.NoError(t, o.AddToCart("K2"))
	second, err := o.Checkout(context.Background())
	require.NoError(t, err)

	history := o.Orders()
	require.Len(t, history, 2)
	assert.Equal(t, second.ID, history[0].ID, "newest first")
	assert.Equal(t, first.ID, history[1].ID)
	assert.Equal(t, querylog.Insert, o.Logs()[0].Type)
}

func TestCheckoutFailureKeepsCart(t *testing.T) {
	relay := catalogRelay()
	o := newOrchestrator(t, relay, nil)
	require.NoError(t, o.Connect(context.Background()))
	require.NoError(t, o.AddToCart("M1"))
	require.NoError(t, o.SelectCustomer("C1"))

	relay.orderErr = &bridgeclient.NetworkError{URL: "x", Err: errors.New("connection reset by peer")}
	_, err := o.Checkout(context.Background())
	require.Error(t, err)

	assert.Equal(t, int32(1), relay.orderCalls.Load(), "never retried")
	assert.Len(t, o.Cart(), 1)
	_, ok := o.SelectedCustomer()
	assert.True(t, ok)
	assert.Empty(t, o.Orders())
	assert.Equal(t, domain.StatusConnected, o.Config().Status)
	assert.Equal(t, querylog.Error, o.Logs()[0].Type)
}

func TestCheckoutKeepsLinesAddedInFlight(t *testing.T) {
	relay := catalogRelay()
	relay.orderStarted = make(chan struct{}, 1)
	relay.orderGate = make(chan struct{})
	o := newOrchestrator(t, relay, nil)
	require.NoError(t, o.Connect(context.Background()))
	require.NoError(t, o.AddToCart("M1"))
	require.NoError(t, o.SelectCustomer("C1"))

	type result struct {
		order domain.Order
		err   error
	}
	done := make(chan result, 1)
	go func() {
		ord, err := o.Checkout(context.Background())
		done <- result{ord, err}
	}()
	select {
	case <-relay.orderStarted:
	case <-time.After(2 * time.Second):
		t.Fatal("order was not sent")
	}

	_, err := o.Checkout(context.Background())
	assert.ErrorIs(t, err, storefront.ErrCheckoutBusy)
	require.NoError(t, o.AddToCart("M1"))
	require.NoError(t, o.AddToCart("K2"))

	close(relay.orderGate)
	res := <-done
	require.NoError(t, res.err)
	require.Len(t, res.order.Items, 1)
	assert.Equal(t, 1, res.order.Items[0].Quantity)
	assert.Equal(t, int32(1), relay.orderCalls.Load())

	cart := o.Cart()
	require.Len(t, cart, 2)
	assert.Equal(t, "M1", cart[0].ID)
	assert.Equal(t, 1, cart[0].Quantity)
	assert.Equal(t, "K2", cart[1].ID)
	assert.Equal(t, 1, cart[1].Quantity)
}

func TestOfflineMode(t *testing.T) {
	relay := catalogRelay()
	store := &memStore{found: true, cfg: domain.BridgeConfig{Status: domain.StatusDisconnected}}
	o := newOrchestrator(t, relay, store)

	require.NoError(t, o.Start(context.Background()))
	assert.Equal(t, int32(0), relay.healthCalls.Load())
	assert.Equal(t, domain.StatusDisconnected, o.Config().Status)
	assert.NotNil(t, o.LastError())
	assert.Equal(t, []string{"M1"}, productIDs(o.Products()))

	require.NoError(t, o.AddToCart("M1"))
	require.NoError(t, o.SelectCustomer("C1"))
	order, err := o.Checkout(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.OrderProcessed, order.Status)
	assert.False(t, order.Date.IsZero())
	assert.Equal(t, int32(0), relay.orderCalls.Load())
}

// appTransport serves requests from an in-process fiber app.
type appTransport struct{ app *fiber.App }

func (t appTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	return t.app.Test(r, -1)
}

func TestEndToEndAgainstRelay(t *testing.T) {
	cfg := config.Config{
		DB:             config.DB{Driver: "sqlite", Name: filepath.Join(t.TempDir(), "erp.db"), ConnectTimeout: 5 * time.Second},
		ProductsLimit:  100,
		CustomersLimit: 200,
		OrderRateLimit: 30,
	}
	pool := repos.NewPool(cfg.DB, repos.WithOnConnect(repos.Bootstrap))
	t.Cleanup(func() { _ = pool.Close() })
	app := handlers.NewApp(cfg, handlers.NewDeps(pool, cfg, nil))

	settings, err := repos.OpenSettings(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = settings.Close() })

	dial := storefront.WithDialer(func(u string) storefront.Relay {
		return bridgeclient.New(u, bridgeclient.WithTransport(appTransport{app}))
	})
	o, err := storefront.New(settings, "http://relay.test", dial)
	require.NoError(t, err)

	require.NoError(t, o.Start(context.Background()))
	assert.Equal(t, domain.StatusConnected, o.Config().Status)
	assert.Regexp(t, `^\d+ms$`, o.Latency())
	require.Len(t, o.Products(), 4)

	require.NoError(t, o.AddToCart("TEC-101"))
	require.NoError(t, o.UpdateQuantity("TEC-101", 2))
	require.NoError(t, o.SelectCustomer("C001"))
	order, err := o.Checkout(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 119.0, order.Total)
	assert.Equal(t, domain.OrderProcessed, order.Status)

	// the saved config survives into a fresh orchestrator
	again, err := storefront.New(settings, "http://other:1", dial)
	require.NoError(t, err)
	assert.Equal(t, "http://relay.test", again.Config().BaseURL)
	assert.Equal(t, domain.StatusConnected, again.Config().Status)
	assert.NotNil(t, again.Config().LastPing)
}
