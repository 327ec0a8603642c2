package repos

import (
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/jmoiron/sqlx"

	"erpbridge/internal/domain"
)

const bridgeConfigKey = "erp_bridge_config"

// SettingsRepo is the storefront's local key/value store. The bridge
// configuration is the only thing it persists.
type SettingsRepo struct{ db *sqlx.DB }

func OpenSettings(dsn string) (*SettingsRepo, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS settings(
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updated_at TEXT DEFAULT CURRENT_TIMESTAMP
)`); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SettingsRepo{db: db}, nil
}

// LoadBridge returns the saved config; found is false on a fresh store.
func (r *SettingsRepo) LoadBridge() (cfg domain.BridgeConfig, found bool, err error) {
	var raw string
	err = r.db.Get(&raw, `SELECT value FROM settings WHERE key = ?`, bridgeConfigKey)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.BridgeConfig{}, false, nil
	}
	if err != nil {
		return domain.BridgeConfig{}, false, err
	}
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return domain.BridgeConfig{}, false, err
	}
	return cfg, true, nil
}

func (r *SettingsRepo) SaveBridge(cfg domain.BridgeConfig) error {
	b, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(`
		INSERT INTO settings(key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, bridgeConfigKey, string(b))
	return err
}

func (r *SettingsRepo) Close() error { return r.db.Close() }
