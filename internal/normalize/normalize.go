// Package normalize maps rows from the remote ERP (or from the relay's JSON)
// onto the canonical Product and Customer shapes.
//
// Remote column names drift independently of the storefront, so every
// canonical field accepts a list of source names. The lists live in
// ProductFields and CustomerFields; lookups try them in order, first with an
// exact match and then ignoring case. Nothing in here returns an error: a
// field that cannot be read becomes its zero value.
package normalize

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"erpbridge/internal/domain"
)

// Row is one record keyed by column or JSON field name.
type Row map[string]any

// PlaceholderImage is used when the source row carries no image reference.
const PlaceholderImage = "https://images.unsplash.com/photo-1581091226825-a6a2a5aee158?w=400"

// Aliases lists accepted source names per canonical field, canonical name first.
type Aliases map[string][]string

var ProductFields = Aliases{
	"id":          {"id", "CodProd"},
	"code":        {"code", "CodProd"},
	"name":        {"name", "Descrip"},
	"price":       {"price", "Precio1"},
	"stock":       {"stock", "Existen"},
	"description": {"description", "Descrip"},
	"category":    {"category", "CodInst"},
	"image":       {"image", "Imagen"},
}

var CustomerFields = Aliases{
	"id":          {"id", "CodClie"},
	"name":        {"name", "Descrip"},
	"taxId":       {"taxId", "ID3", "Id3"},
	"address":     {"address", "Direc1"},
	"creditLimit": {"creditLimit", "LimiteCred"},
}

// Lookup returns the first present value for field. Nil values and empty
// strings count as absent.
func (a Aliases) Lookup(r Row, field string) (any, bool) {
	names, ok := a[field]
	if !ok {
		names = []string{field}
	}
	for _, n := range names {
		if v, ok := r[n]; ok && present(v) {
			return v, true
		}
	}
	for _, n := range names {
		for k, v := range r {
			if strings.EqualFold(k, n) && present(v) {
				return v, true
			}
		}
	}
	return nil, false
}

func (a Aliases) String(r Row, field string) string {
	v, ok := a.Lookup(r, field)
	if !ok {
		return ""
	}
	return toString(v)
}

// Number coerces the field to a float, 0 when absent or unparsable.
func (a Aliases) Number(r Row, field string) float64 {
	v, ok := a.Lookup(r, field)
	if !ok {
		return 0
	}
	f, ok := toFloat(v)
	if !ok {
		return 0
	}
	return f
}

func Product(r Row) domain.Product {
	f := ProductFields
	p := domain.Product{
		ID:          f.String(r, "id"),
		Code:        f.String(r, "code"),
		Name:        f.String(r, "name"),
		Description: f.String(r, "description"),
		Price:       nonNegative(f.Number(r, "price")),
		Stock:       int(nonNegative(math.Trunc(f.Number(r, "stock")))),
		Category:    f.String(r, "category"),
		Image:       f.String(r, "image"),
	}
	if p.Image == "" {
		p.Image = PlaceholderImage
	}
	return p
}

func Customer(r Row) domain.Customer {
	f := CustomerFields
	c := domain.Customer{
		ID:      f.String(r, "id"),
		Name:    f.String(r, "name"),
		TaxID:   f.String(r, "taxId"),
		Address: f.String(r, "address"),
	}
	if v, ok := f.Lookup(r, "creditLimit"); ok {
		if n, ok := toFloat(v); ok {
			c.CreditLimit = &n
		}
	}
	return c
}

func Products(rows []Row) []domain.Product {
	out := make([]domain.Product, 0, len(rows))
	for _, r := range rows {
		out = append(out, Product(r))
	}
	return out
}

func Customers(rows []Row) []domain.Customer {
	out := make([]domain.Customer, 0, len(rows))
	for _, r := range rows {
		out = append(out, Customer(r))
	}
	return out
}

func present(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(x) != ""
	case []byte:
		return len(strings.TrimSpace(string(x))) > 0
	}
	return true
}

func toString(v any) string {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case []byte:
		return strings.TrimSpace(string(x))
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case bool:
		return strconv.FormatBool(x)
	case interface{ String() string }:
		return x.String()
	}
	return ""
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, !math.IsNaN(x) && !math.IsInf(x, 0)
	case float32:
		return float64(x), true
	case int64:
		return float64(x), true
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case string:
		return parseFloat(x)
	case []byte:
		return parseFloat(string(x))
	}
	return 0, false
}

func parseFloat(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func nonNegative(f float64) float64 {
	if f < 0 {
		return 0
	}
	return f
}
