// Package migrations applies the embedded schema for the run registry
// (PostgreSQL) and the summary store (ClickHouse). Every file is idempotent,
// so migrations run on each start.
package migrations

import "embed"

// PostgresFS embeds the PostgreSQL migration files.
//
//go:embed postgres/*.sql
var PostgresFS embed.FS

// ClickhouseFS embeds the ClickHouse migration files.
//
//go:embed clickhouse/*.sql
var ClickhouseFS embed.FS
