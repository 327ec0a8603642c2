package repos

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"

	"erpbridge/internal/config"
)

// Dialect hides the few SQL differences between the supported remote engines.
type Dialect struct {
	Driver string
	Prefix string
}

func DialectFor(cfg config.DB) Dialect {
	return Dialect{Driver: cfg.Driver, Prefix: cfg.TablePrefix}
}

// Table qualifies an ERP table name (dbo.saprod on SQL Server).
func (d Dialect) Table(name string) string { return d.Prefix + name }

// TopN builds a capped select. n is a trusted config value, never user input.
func (d Dialect) TopN(n int, cols, from, where, orderBy string) string {
	var b strings.Builder
	b.WriteString("SELECT ")
	if d.Driver == "sqlserver" {
		b.WriteString("TOP (" + strconv.Itoa(n) + ") ")
	}
	b.WriteString(cols)
	b.WriteString(" FROM " + from)
	if where != "" {
		b.WriteString(" WHERE " + where)
	}
	if orderBy != "" {
		b.WriteString(" ORDER BY " + orderBy)
	}
	if d.Driver != "sqlserver" {
		b.WriteString(" LIMIT " + strconv.Itoa(n))
	}
	return b.String()
}

// DSN builds the driver-specific connection string.
func DSN(cfg config.DB) (string, error) {
	if cfg.DSN != "" {
		return cfg.DSN, nil
	}
	timeout := int(cfg.ConnectTimeout.Seconds())
	if timeout <= 0 {
		timeout = 30
	}
	switch cfg.Driver {
	case "sqlserver":
		q := url.Values{}
		q.Set("database", cfg.Name)
		q.Set("encrypt", strconv.FormatBool(cfg.Encrypt))
		q.Set("TrustServerCertificate", strconv.FormatBool(cfg.TrustCert))
		q.Set("connection timeout", strconv.Itoa(timeout))
		u := &url.URL{
			Scheme:   "sqlserver",
			User:     url.UserPassword(cfg.User, cfg.Password),
			Host:     hostPort(cfg.Host, cfg.Port),
			RawQuery: q.Encode(),
		}
		return u.String(), nil
	case "postgres":
		sslmode := "disable"
		if cfg.Encrypt {
			sslmode = "require"
			if !cfg.TrustCert {
				sslmode = "verify-full"
			}
		}
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s connect_timeout=%d",
			cfg.Host, cfg.Port, pqQuote(cfg.User), pqQuote(cfg.Password), cfg.Name, sslmode, timeout), nil
	case "sqlite":
		name := cfg.Name
		if name == "" {
			name = "erpbridge.db"
		}
		return filepath.Clean(name) + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", nil
	}
	return "", fmt.Errorf("unsupported DB_DRIVER %q (want sqlserver, postgres or sqlite)", cfg.Driver)
}

func hostPort(host, port string) string {
	if port == "" {
		return host
	}
	return host + ":" + port
}

// pqQuote quotes a keyword/value parameter for lib/pq.
func pqQuote(s string) string {
	if s == "" {
		return "''"
	}
	if !strings.ContainsAny(s, ` '\`) {
		return s
	}
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	return "'" + s + "'"
}
