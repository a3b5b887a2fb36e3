package source

import (
	"context"
	"errors"
	"fmt"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
)

const customerQuery = "SELECT name, ssn, annual_income FROM customers WHERE id = $1"

func newSQLTestFetcher(t *testing.T) (*SQLFetcher, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock.New failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	fetcher, err := NewSQLFetcherWithDB(&SQLConfig{
		Name:  "customer",
		Query: customerQuery,
	}, db)
	if err != nil {
		t.Fatalf("NewSQLFetcherWithDB failed: %v", err)
	}
	return fetcher, mock
}

func TestSQLFetcher_Fetch(t *testing.T) {
	fetcher, mock := newSQLTestFetcher(t)

	rows := sqlmock.NewRows([]string{"name", "ssn", "annual_income"}).
		AddRow([]byte("Jane Doe"), "123-45-6789", int64(85000))
	mock.ExpectQuery("SELECT name, ssn, annual_income FROM customers").
		WithArgs("CUST-001").
		WillReturnRows(rows)

	payload, err := fetcher.Fetch(context.Background(), "CUST-001")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	if payload.Source != "customer" {
		t.Errorf("Unexpected source: %s", payload.Source)
	}
	if payload.Data["name"] != "Jane Doe" {
		t.Errorf("Expected []byte column as string, got %T %v", payload.Data["name"], payload.Data["name"])
	}
	if payload.Data["ssn"] != "123-45-6789" {
		t.Errorf("Unexpected ssn: %v", payload.Data["ssn"])
	}
	if payload.Data["annual_income"] != int64(85000) {
		t.Errorf("Unexpected annual_income: %v", payload.Data["annual_income"])
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestSQLFetcher_NoRows(t *testing.T) {
	fetcher, mock := newSQLTestFetcher(t)

	mock.ExpectQuery("SELECT name, ssn, annual_income FROM customers").
		WithArgs("CUST-404").
		WillReturnRows(sqlmock.NewRows([]string{"name", "ssn", "annual_income"}))

	_, err := fetcher.Fetch(context.Background(), "CUST-404")
	if !IsNotFound(err) {
		t.Errorf("Expected NotFoundError, got %v", err)
	}
}

func TestSQLFetcher_QueryError(t *testing.T) {
	fetcher, mock := newSQLTestFetcher(t)

	mock.ExpectQuery("SELECT name, ssn, annual_income FROM customers").
		WithArgs("CUST-001").
		WillReturnError(fmt.Errorf("connection refused"))

	_, err := fetcher.Fetch(context.Background(), "CUST-001")
	if err == nil {
		t.Fatal("Expected error")
	}
	var srcErr *SourceError
	if !errors.As(err, &srcErr) {
		t.Fatalf("Expected *SourceError, got %T", err)
	}
	if srcErr.Source != "customer" || srcErr.Operation != "query" {
		t.Errorf("Unexpected error fields: %+v", srcErr)
	}
}

func TestSQLFetcher_HealthCheck(t *testing.T) {
	fetcher, mock := newSQLTestFetcher(t)

	mock.ExpectPing()
	if err := fetcher.HealthCheck(context.Background()); err != nil {
		t.Errorf("Expected healthy, got: %v", err)
	}

	mock.ExpectPing().WillReturnError(fmt.Errorf("connection lost"))
	if err := fetcher.HealthCheck(context.Background()); err == nil {
		t.Error("Expected health check failure")
	}
}

func TestSQLConfig_Validate(t *testing.T) {
	valid := func() *SQLConfig {
		cfg := DefaultSQLConfig()
		cfg.Name = "customer"
		cfg.Driver = "postgres"
		cfg.DSN = "postgres://localhost/bank?sslmode=disable"
		cfg.Query = customerQuery
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*SQLConfig)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *SQLConfig) {}},
		{name: "valid mysql", mutate: func(c *SQLConfig) { c.Driver = "mysql" }},
		{name: "missing name", mutate: func(c *SQLConfig) { c.Name = "" }, wantErr: true},
		{name: "bad driver", mutate: func(c *SQLConfig) { c.Driver = "oracle" }, wantErr: true},
		{name: "missing dsn", mutate: func(c *SQLConfig) { c.DSN = "" }, wantErr: true},
		{name: "missing query", mutate: func(c *SQLConfig) { c.Query = "" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Error("Expected validation error, got none")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Unexpected validation error: %v", err)
			}
		})
	}
}
