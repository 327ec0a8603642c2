package repos_test

import (
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"erpbridge/internal/config"
	"erpbridge/internal/repos"
)

func TestTopN(t *testing.T) {
	mssql := repos.Dialect{Driver: "sqlserver", Prefix: "dbo."}
	assert.Equal(t,
		"SELECT TOP (100) a, b FROM dbo.saprod WHERE Existen > 0 ORDER BY Descrip ASC",
		mssql.TopN(100, "a, b", mssql.Table("saprod"), "Existen > 0", "Descrip ASC"))

	lite := repos.Dialect{Driver: "sqlite"}
	assert.Equal(t,
		"SELECT a FROM sacli ORDER BY Descrip ASC LIMIT 200",
		lite.TopN(200, "a", lite.Table("sacli"), "", "Descrip ASC"))
}

func TestDSNSQLServer(t *testing.T) {
	dsn, err := repos.DSN(config.DB{
		Driver: "sqlserver", Host: "sql.example.net", Port: "1433", User: "erp", Password: "p@ss word",
		Name: "erpdb", Encrypt: true, TrustCert: true, ConnectTimeout: 30 * time.Second,
	})
	require.NoError(t, err)

	u, err := url.Parse(dsn)
	require.NoError(t, err)
	assert.Equal(t, "sqlserver", u.Scheme)
	assert.Equal(t, "sql.example.net:1433", u.Host)
	pw, _ := u.User.Password()
	assert.Equal(t, "p@ss word", pw)
	assert.Equal(t, "erpdb", u.Query().Get("database"))
	assert.Equal(t, "true", u.Query().Get("encrypt"))
	assert.Equal(t, "true", u.Query().Get("TrustServerCertificate"))
	assert.Equal(t, "30", u.Query().Get("connection timeout"))
}

func TestDSNPostgres(t *testing.T) {
	dsn, err := repos.DSN(config.DB{
		Driver: "postgres", Host: "db", Port: "5432", User: "erp", Password: "it's", Name: "erp",
		Encrypt: false, ConnectTimeout: 5 * time.Second,
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(dsn, "host=db port=5432 user=erp password='it\\'s' dbname=erp"))
	assert.Contains(t, dsn, "sslmode=disable")
	assert.Contains(t, dsn, "connect_timeout=5")
}

func TestDSNOverride(t *testing.T) {
	dsn, err := repos.DSN(config.DB{Driver: "postgres", DSN: "postgres://x"})
	require.NoError(t, err)
	assert.Equal(t, "postgres://x", dsn)
}

func TestDSNUnknownDriver(t *testing.T) {
	_, err := repos.DSN(config.DB{Driver: "oracle"})
	assert.Error(t, err)
}
