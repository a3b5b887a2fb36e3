package source

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/go-sql-driver/mysql" // mysql driver
	_ "github.com/lib/pq"              // postgres driver
)

// SQLConfig configures a SQLFetcher.
type SQLConfig struct {
	// Name is the connector name policies refer to.
	Name string `yaml:"name"`

	// Driver selects the database driver: "postgres" or "mysql".
	Driver string `yaml:"driver"`

	// DSN is the driver-specific connection string.
	DSN string `yaml:"dsn"`

	// Query is the single-row lookup statement. It must take the
	// subject key as its only parameter, e.g.
	// "SELECT name, annual_income FROM customers WHERE id = $1".
	Query string `yaml:"query"`

	// Timeout bounds each query.
	Timeout time.Duration `yaml:"timeout"`

	// MaxOpenConns caps the connection pool.
	MaxOpenConns int `yaml:"max_open_conns"`

	// MaxIdleConns caps idle pooled connections.
	MaxIdleConns int `yaml:"max_idle_conns"`

	// ConnMaxLifetime recycles pooled connections.
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// DefaultSQLConfig returns a SQLConfig with sensible defaults.
func DefaultSQLConfig() *SQLConfig {
	return &SQLConfig{
		Timeout:         5 * time.Second,
		MaxOpenConns:    16,
		MaxIdleConns:    4,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

// Validate checks the configuration for correctness.
func (c *SQLConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if c.Driver != "postgres" && c.Driver != "mysql" {
		return fmt.Errorf("driver must be postgres or mysql, got %q", c.Driver)
	}
	if c.DSN == "" {
		return fmt.Errorf("dsn cannot be empty")
	}
	if c.Query == "" {
		return fmt.Errorf("query cannot be empty")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	return nil
}

// SQLFetcher retrieves subject records from a relational database. The
// configured query runs with the subject key as its single parameter
// and the first row becomes the payload.
type SQLFetcher struct {
	config *SQLConfig
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLFetcher opens a connection pool for the configured database.
func NewSQLFetcher(cfg *SQLConfig) (*SQLFetcher, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	applySQLDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid sql source config: %w", err)
	}

	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, NewSourceError(cfg.Name, "open", "failed to open database", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	return newSQLFetcher(cfg, db), nil
}

// NewSQLFetcherWithDB wraps an existing database handle. The caller
// retains ownership of pool settings.
func NewSQLFetcherWithDB(cfg *SQLConfig, db *sql.DB) (*SQLFetcher, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if db == nil {
		return nil, fmt.Errorf("db cannot be nil")
	}
	applySQLDefaults(cfg)
	if cfg.Name == "" {
		return nil, fmt.Errorf("name cannot be empty")
	}
	if cfg.Query == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}
	return newSQLFetcher(cfg, db), nil
}

func newSQLFetcher(cfg *SQLConfig, db *sql.DB) *SQLFetcher {
	return &SQLFetcher{
		config: cfg,
		db:     db,
		logger: slog.Default().With("component", "source", "source", cfg.Name),
	}
}

func applySQLDefaults(cfg *SQLConfig) {
	defaults := DefaultSQLConfig()
	if cfg.Timeout == 0 {
		cfg.Timeout = defaults.Timeout
	}
	if cfg.MaxOpenConns == 0 {
		cfg.MaxOpenConns = defaults.MaxOpenConns
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = defaults.MaxIdleConns
	}
	if cfg.ConnMaxLifetime == 0 {
		cfg.ConnMaxLifetime = defaults.ConnMaxLifetime
	}
}

// Name returns the connector name.
func (f *SQLFetcher) Name() string {
	return f.config.Name
}

// Fetch runs the lookup query and maps the first row to a payload.
// No rows means the subject is unknown and returns *NotFoundError.
func (f *SQLFetcher) Fetch(ctx context.Context, key string) (*Payload, error) {
	queryCtx, cancel := context.WithTimeout(ctx, f.config.Timeout)
	defer cancel()

	start := time.Now()
	rows, err := f.db.QueryContext(queryCtx, f.config.Query, key)
	if err != nil {
		if queryCtx.Err() != nil {
			return nil, NewSourceError(f.config.Name, "query", "query timed out", queryCtx.Err())
		}
		return nil, NewSourceError(f.config.Name, "query", "query execution failed", err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return nil, NewSourceError(f.config.Name, "query", "failed to get columns", err)
	}

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, NewSourceError(f.config.Name, "query", "error during row iteration", err)
		}
		return nil, NewNotFoundError(f.config.Name, key)
	}

	values := make([]any, len(columns))
	pointers := make([]any, len(columns))
	for i := range values {
		pointers[i] = &values[i]
	}
	if err := rows.Scan(pointers...); err != nil {
		return nil, NewSourceError(f.config.Name, "query", "failed to scan row", err)
	}

	data := make(map[string]any, len(columns))
	for i, col := range columns {
		val := values[i]
		// Text columns surface as []byte; store them as strings so
		// the payload serializes cleanly.
		if b, ok := val.([]byte); ok {
			data[col] = string(b)
		} else {
			data[col] = val
		}
	}

	f.logger.Debug("source query executed",
		"key", key,
		"columns", len(columns),
		"duration", time.Since(start),
	)

	return &Payload{
		Source:    f.config.Name,
		Data:      data,
		FetchedAt: time.Now().UTC(),
	}, nil
}

// HealthCheck pings the database.
func (f *SQLFetcher) HealthCheck(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, f.config.Timeout)
	defer cancel()
	if err := f.db.PingContext(pingCtx); err != nil {
		return NewSourceError(f.config.Name, "health_check", "database ping failed", err)
	}
	return nil
}

// Close closes the connection pool.
func (f *SQLFetcher) Close() error {
	if err := f.db.Close(); err != nil {
		return NewSourceError(f.config.Name, "close", "failed to close database", err)
	}
	return nil
}
