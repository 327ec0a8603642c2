package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DB describes how the relay reaches the remote ERP database.
type DB struct {
	Driver         string // sqlserver | postgres | sqlite
	Host           string
	Port           string
	User           string
	Password       string
	Name           string
	Encrypt        bool
	TrustCert      bool
	ConnectTimeout time.Duration
	StaleAfter     time.Duration
	DSN            string // overrides the fields above when set
	TablePrefix    string
	Seed           bool // create and seed the demo schema (sqlite only)
}

type Config struct {
	Port           string
	LogFile        string
	DB             DB
	ProductsLimit  int
	CustomersLimit int
	RedisAddr      string
	CacheTTL       time.Duration
	OrderRateLimit int
}

// ClientConfig is read by the storefront binary.
type ClientConfig struct {
	BridgeURL string
	StateDSN  string
}

var dotenvLoaded bool

func loadDotenv() {
	if dotenvLoaded {
		return
	}
	dotenvLoaded = true
	if err := godotenv.Load(); err == nil {
		log.Println("[config] loaded .env")
	}
}

func Load() Config {
	loadDotenv()

	driver := strings.ToLower(getEnv("DB_DRIVER", "sqlite"))
	db := DB{
		Driver:         driver,
		Host:           getEnv("DB_HOST", "localhost"),
		Port:           getEnv("DB_PORT", defaultPort(driver)),
		User:           os.Getenv("DB_USER"),
		Password:       os.Getenv("DB_PASSWORD"),
		Name:           getEnv("DB_NAME", defaultName(driver)),
		Encrypt:        getBool("DB_ENCRYPT", true),
		TrustCert:      getBool("DB_TRUST_CERT", true),
		ConnectTimeout: getDuration("DB_CONNECT_TIMEOUT", 30*time.Second),
		StaleAfter:     getDuration("DB_STALE_AFTER", time.Minute),
		DSN:            os.Getenv("DB_DSN"),
		TablePrefix:    getEnv("DB_TABLE_PREFIX", defaultPrefix(driver)),
		Seed:           getBool("DB_SEED", driver == "sqlite"),
	}

	cfg := Config{
		Port:           getEnv("PORT", "3000"),
		LogFile:        os.Getenv("LOG_FILE"),
		DB:             db,
		ProductsLimit:  getInt("PRODUCTS_LIMIT", 100),
		CustomersLimit: getInt("CUSTOMERS_LIMIT", 200),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		CacheTTL:       getDuration("CACHE_TTL", 5*time.Minute),
		OrderRateLimit: getInt("ORDER_RATE_LIMIT", 30),
	}
	log.Printf("[config] PORT=%s DB_DRIVER=%s DB_HOST=%s DB_NAME=%s DB_USER=%s DB_PASSWORD=%s REDIS_ADDR=%s LOG_FILE=%s",
		cfg.Port, db.Driver, db.Host, db.Name, db.User, mask(db.Password), cfg.RedisAddr, cfg.LogFile)
	return cfg
}

func LoadClient() ClientConfig {
	loadDotenv()
	cfg := ClientConfig{
		BridgeURL: strings.TrimRight(getEnv("BRIDGE_URL", "http://localhost:3000"), "/"),
		StateDSN:  getEnv("STATE_DSN", "storefront.db"),
	}
	log.Printf("[config] BRIDGE_URL=%s STATE_DSN=%s", cfg.BridgeURL, cfg.StateDSN)
	return cfg
}

// Server is the identity reported by /health.
func (d DB) Server() string {
	if d.Driver == "sqlite" {
		return "local"
	}
	return d.Host
}

// Label is the human readable database description reported by /health.
func (d DB) Label() string {
	switch d.Driver {
	case "sqlserver":
		return "SQL Server " + d.Name + " online"
	case "postgres":
		return "PostgreSQL " + d.Name + " online"
	default:
		return "SQLite " + d.Name + " online"
	}
}

func defaultPort(driver string) string {
	switch driver {
	case "sqlserver":
		return "1433"
	case "postgres":
		return "5432"
	}
	return ""
}

func defaultName(driver string) string {
	if driver == "sqlite" {
		return "erpbridge.db"
	}
	return "erp"
}

func defaultPrefix(driver string) string {
	if driver == "sqlserver" {
		return "dbo."
	}
	return ""
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "****"
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Printf("[config] ignoring %s=%q: want a positive integer", key, v)
		return def
	}
	return n
}

func getBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("[config] ignoring %s=%q: want a boolean", key, v)
		return def
	}
	return b
}

func getDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		log.Printf("[config] ignoring %s=%q: want a duration such as 30s", key, v)
		return def
	}
	return d
}
