// Package mysql implements a MySQL-backed storage.Repository using
// go-sql-driver/mysql through database/sql.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"musicetl/internal/ddl"
	"musicetl/internal/storage/sqlstore"
	"musicetl/internal/table"
)

// DefaultPort is used when Config.Port is zero.
const DefaultPort = 3306

const existsSQL = `SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = DATABASE() AND table_name = ?`

// Config holds MySQL repository configuration.
type Config struct {
	DSN      string
	Host     string
	Port     int
	User     string
	Password string
	Name     string
}

// FormatDSN returns DSN, or a driver DSN assembled from the fields with
// parseTime enabled so DATETIME columns scan into time.Time.
func (c Config) FormatDSN() string {
	if s := strings.TrimSpace(c.DSN); s != "" {
		return s
	}
	port := c.Port
	if port == 0 {
		port = DefaultPort
	}
	mc := mysql.NewConfig()
	mc.User = c.User
	mc.Passwd = c.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(c.Host, strconv.Itoa(port))
	mc.DBName = c.Name
	mc.ParseTime = true
	mc.Loc = time.UTC
	return mc.FormatDSN()
}

// Dialect renders MySQL DDL with backtick-quoted identifiers.
type Dialect struct{ ddl.ANSI }

func (Dialect) QuoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func (Dialect) MapType(k table.Kind) string {
	switch k {
	case table.KindInt:
		return "BIGINT"
	case table.KindFloat:
		return "DOUBLE"
	case table.KindBool:
		return "BOOLEAN"
	case table.KindDate:
		return "DATETIME(6)"
	default:
		return "TEXT"
	}
}

// Repository is a MySQL-backed implementation of storage.Repository.
type Repository struct {
	*sqlstore.Store
	cfg Config
}

// NewRepository opens a connection pool and returns a Repository plus a
// Close function for cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	dsn := cfg.FormatDSN()
	if _, err := mysql.ParseDSN(dsn); err != nil {
		return nil, nil, fmt.Errorf("mysql dsn: %w", err)
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("mysql: open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("mysql: ping: %w", err)
	}
	store := &sqlstore.Store{DB: db, D: Dialect{}, ExistsSQL: existsSQL, Name: "mysql"}
	return &Repository{Store: store, cfg: cfg}, store.Close, nil
}
