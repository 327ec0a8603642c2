package domain

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"
)

type Product struct {
	ID          string  `json:"id"`
	Code        string  `json:"code"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Price       float64 `json:"price"`
	Stock       int     `json:"stock"`
	Category    string  `json:"category,omitempty"`
	Image       string  `json:"image,omitempty"`
}

// Available reports whether the product can be put in a cart. Out of stock
// products are still listed.
func (p Product) Available() bool { return p.Stock > 0 }

type Customer struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	TaxID       string   `json:"taxId,omitempty"`
	Address     string   `json:"address,omitempty"`
	CreditLimit *float64 `json:"creditLimit,omitempty"`
}

type CartItem struct {
	Product
	Quantity int `json:"quantity"`
}

func (i CartItem) Subtotal() float64 { return i.Price * float64(i.Quantity) }

type OrderStatus string

const (
	OrderPending   OrderStatus = "Pending"
	OrderProcessed OrderStatus = "Processed"
	OrderShipped   OrderStatus = "Shipped"
	OrderCancelled OrderStatus = "Cancelled"
)

type Order struct {
	ID           string      `json:"id"`
	Date         time.Time   `json:"date"`
	CustomerID   string      `json:"customerId"`
	CustomerName string      `json:"customerName"`
	Items        []CartItem  `json:"items"`
	Total        float64     `json:"total"`
	Status       OrderStatus `json:"status,omitempty"`
}

// SumItems is the order total derived from its lines, rounded to cents.
func SumItems(items []CartItem) float64 {
	total := 0.0
	for _, it := range items {
		total += it.Subtotal()
	}
	return RoundCents(total)
}

func RoundCents(v float64) float64 { return math.Round(v*100) / 100 }

type ConnStatus string

const (
	StatusConnected    ConnStatus = "connected"
	StatusDisconnected ConnStatus = "disconnected"
	StatusChecking     ConnStatus = "checking"
)

// BridgeConfig is the client's persisted view of the relay.
type BridgeConfig struct {
	BaseURL  string     `json:"baseUrl"`
	Status   ConnStatus `json:"status"`
	LastPing *time.Time `json:"lastPing,omitempty"`
}

// Health is the /health success body.
type Health struct {
	Status    string `json:"status"`
	DB        string `json:"db"`
	Latency   string `json:"latency"`
	LatencyMs int64  `json:"latencyMs"`
	Server    string `json:"server"`
}

// NewOrderID returns a PED-NNNNN order number. The suffix is random, so two
// attempts at the same checkout get different numbers.
func NewOrderID() string {
	return fmt.Sprintf("PED-%05d", 10000+rand.IntN(90000))
}
