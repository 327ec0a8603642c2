// Package bridgeclient talks to the relay's HTTP contract on behalf of the
// storefront.
package bridgeclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"erpbridge/internal/domain"
	"erpbridge/internal/normalize"
)

// ErrUnreachable matches failures where no HTTP response came back at all.
var ErrUnreachable = errors.New("relay unreachable")

type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string { return e.Err.Error() }

func (e *NetworkError) Unwrap() error { return e.Err }

func (e *NetworkError) Is(target error) bool { return target == ErrUnreachable }

// RelayError is a non-2xx answer. Message is what the relay said, or a
// default when the body carried nothing usable.
type RelayError struct {
	StatusCode int
	Message    string
}

func (e *RelayError) Error() string { return e.Message }

type Client struct {
	baseURL string
	hc      *http.Client
}

type Option func(*Client)

// WithTransport swaps the round tripper, e.g. to call an in-process app.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.hc = &http.Client{Transport: rt} }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{baseURL: strings.TrimRight(baseURL, "/"), hc: &http.Client{}}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) Health(ctx context.Context) (domain.Health, error) {
	var h domain.Health
	err := c.do(ctx, http.MethodGet, "/health", nil, "the remote server rejected the connection", func(r io.Reader) error {
		return json.NewDecoder(r).Decode(&h)
	})
	return h, err
}

func (c *Client) Products(ctx context.Context) ([]domain.Product, error) {
	rows, err := c.rows(ctx, "/products", "could not read products from SQL")
	if err != nil {
		return nil, err
	}
	return normalize.Products(rows), nil
}

func (c *Client) Customers(ctx context.Context) ([]domain.Customer, error) {
	rows, err := c.rows(ctx, "/customers", "could not read customers from SQL")
	if err != nil {
		return nil, err
	}
	return normalize.Customers(rows), nil
}

type orderRequest struct {
	ID           string            `json:"id"`
	CustomerID   string            `json:"customerId"`
	CustomerName string            `json:"customerName"`
	Items        []domain.CartItem `json:"items"`
	Total        float64           `json:"total"`
}

// CreateOrder posts the order once. It never retries: a second attempt could
// insert a duplicate.
func (c *Client) CreateOrder(ctx context.Context, o domain.Order) (domain.Order, error) {
	body, err := json.Marshal(orderRequest{
		ID:           o.ID,
		CustomerID:   o.CustomerID,
		CustomerName: o.CustomerName,
		Items:        o.Items,
		Total:        o.Total,
	})
	if err != nil {
		return domain.Order{}, err
	}
	var out domain.Order
	err = c.do(ctx, http.MethodPost, "/orders", body, "could not insert the order in SQL", func(r io.Reader) error {
		return json.NewDecoder(r).Decode(&out)
	})
	return out, err
}

func (c *Client) rows(ctx context.Context, path, fallback string) ([]normalize.Row, error) {
	var rows []normalize.Row
	err := c.do(ctx, http.MethodGet, path, nil, fallback, func(r io.Reader) error {
		dec := json.NewDecoder(r)
		dec.UseNumber()
		return dec.Decode(&rows)
	})
	return rows, err
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, fallback string, decode func(io.Reader) error) error {
	url := c.baseURL + path
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return &NetworkError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &RelayError{StatusCode: resp.StatusCode, Message: relayMessage(resp.Body, fallback)}
	}
	if err := decode(resp.Body); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// relayMessage prefers the body's "message", then "error".
func relayMessage(r io.Reader, fallback string) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(r, 64<<10)).Decode(&body); err != nil {
		return fallback
	}
	switch {
	case body.Message != "":
		return body.Message
	case body.Error != "":
		return body.Error
	}
	return fallback
}
