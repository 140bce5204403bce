package clickhouse

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// Conn wraps a ClickHouse driver connection so stores can be constructed
// without depending on the driver package directly.
type Conn struct {
	driver.Conn
}

// NewConn opens a connection to the database named in the DSN.
func NewConn(ctx context.Context, dsn string) (*Conn, error) {
	db, err := databaseFromDSN(dsn)
	if err != nil {
		return nil, err
	}
	return NewConnWithDatabase(ctx, dsn, db)
}

// NewConnWithDatabase opens a connection using the DSN's host and credentials
// but the given database. An empty database connects without selecting one,
// which is what migrations need before CREATE DATABASE has run.
func NewConnWithDatabase(ctx context.Context, dsn string, database string) (*Conn, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse clickhouse dsn: %w", err)
	}

	host := u.Hostname()
	port := u.Port()
	if port == "" {
		port = "9000" // ClickHouse native protocol default
	}

	opts := &clickhouse.Options{
		Protocol: clickhouse.Native,
		Addr:     []string{fmt.Sprintf("%s:%s", host, port)},
	}
	if u.User != nil {
		opts.Auth.Username = u.User.Username()
		if password, ok := u.User.Password(); ok {
			opts.Auth.Password = password
		}
	}
	opts.Auth.Database = database

	conn, err := clickhouse.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open clickhouse connection: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping clickhouse: %w", err)
	}

	return &Conn{Conn: conn}, nil
}

// Close closes the underlying connection.
func (c *Conn) Close() error {
	return c.Conn.Close()
}

func databaseFromDSN(dsn string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("parse clickhouse dsn: %w", err)
	}
	db := strings.TrimPrefix(u.Path, "/")
	if db == "" {
		return "", fmt.Errorf("clickhouse dsn missing database")
	}
	return db, nil
}
