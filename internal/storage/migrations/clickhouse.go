package migrations

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	chstore "newsvendor-lab/internal/storage/clickhouse"
)

// ErrInvalidDatabase is returned for a DSN without a usable database name.
var ErrInvalidDatabase = errors.New("invalid clickhouse database name")

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// RunClickhouseMigrations creates the DSN's database if needed, applies every
// embedded ClickHouse file statement by statement, and returns a connection
// to that database for reuse. The native protocol has no multi-statement Exec.
func RunClickhouseMigrations(ctx context.Context, dsn string) (*chstore.Conn, error) {
	logger := zerolog.Ctx(ctx)

	dbName, err := databaseFromDSN(dsn)
	if err != nil {
		return nil, err
	}

	adminConn, err := chstore.NewConnWithDatabase(ctx, dsn, "")
	if err != nil {
		return nil, fmt.Errorf("connect clickhouse admin: %w", err)
	}
	if err := adminConn.Exec(ctx, fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s`", dbName)); err != nil {
		adminConn.Close()
		return nil, fmt.Errorf("create database %s: %w", dbName, err)
	}
	if err := adminConn.Close(); err != nil {
		return nil, fmt.Errorf("close admin connection: %w", err)
	}

	conn, err := chstore.NewConnWithDatabase(ctx, dsn, dbName)
	if err != nil {
		return nil, fmt.Errorf("connect clickhouse db: %w", err)
	}

	files, err := sqlFiles(ClickhouseFS, "clickhouse")
	if err != nil {
		conn.Close()
		return nil, err
	}

	for _, file := range files {
		data, err := fs.ReadFile(ClickhouseFS, file)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("read migration %s: %w", file, err)
		}
		for i, stmt := range splitStatements(string(data)) {
			if err := conn.Exec(ctx, stmt); err != nil {
				conn.Close()
				return nil, fmt.Errorf("apply migration %s statement %d: %w", file, i+1, err)
			}
		}
		logger.Debug().Str("database", "clickhouse").Str("file", file).Msg("migration applied")
	}

	return conn, nil
}

// databaseFromDSN extracts and checks the database name in the DSN path.
func databaseFromDSN(dsn string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("parse clickhouse dsn: %w", err)
	}
	db := strings.TrimPrefix(u.Path, "/")
	if db == "" {
		return "", fmt.Errorf("%w: dsn has no database", ErrInvalidDatabase)
	}
	if !identRe.MatchString(db) {
		return "", fmt.Errorf("%w: %q", ErrInvalidDatabase, db)
	}
	return db, nil
}
