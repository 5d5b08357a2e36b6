package migrations

import (
	"context"
	"fmt"
	"io/fs"
	"strings"

	"github.com/rs/zerolog"

	"newsvendor-lab/internal/storage/postgres"
)

// RunPostgresMigrations applies every embedded PostgreSQL file in lexical
// order and returns the files applied. Each file runs as one multi-statement
// Exec. Progress is logged to the logger carried by ctx, if any.
func RunPostgresMigrations(ctx context.Context, pool *postgres.Pool) ([]string, error) {
	logger := zerolog.Ctx(ctx)

	files, err := sqlFiles(PostgresFS, "postgres")
	if err != nil {
		return nil, err
	}

	var applied []string
	for _, file := range files {
		data, err := fs.ReadFile(PostgresFS, file)
		if err != nil {
			return applied, fmt.Errorf("read migration %s: %w", file, err)
		}
		if strings.TrimSpace(string(data)) == "" {
			continue
		}
		if _, err := pool.Exec(ctx, string(data)); err != nil {
			return applied, fmt.Errorf("apply migration %s: %w", file, err)
		}
		applied = append(applied, file)
		logger.Debug().Str("database", "postgres").Str("file", file).Msg("migration applied")
	}

	return applied, nil
}
