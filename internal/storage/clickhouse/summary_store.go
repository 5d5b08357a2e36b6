package clickhouse

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"newsvendor-lab/internal/domain"
	"newsvendor-lab/internal/storage"
)

// SummaryStore implements storage.SummaryStore using ClickHouse.
type SummaryStore struct {
	conn *Conn
}

// NewSummaryStore creates a new SummaryStore.
func NewSummaryStore(conn *Conn) *SummaryStore {
	return &SummaryStore{conn: conn}
}

// Compile-time interface check.
var _ storage.SummaryStore = (*SummaryStore)(nil)

const summaryColumns = `
	run_id, position, q, n_games, seed,
	avg_profit, sd_profit, min_profit, max_profit,
	avg_attendance, avg_demand, avg_sold, avg_leftover, stockout_rate,
	price, cost, salvage, fixed_cost_per_game`

// InsertBulk adds multiple summaries atomically. Fails entire batch on any duplicate.
// ReplacingMergeTree would silently replace rows, so duplicates are checked first.
func (s *SummaryStore) InsertBulk(ctx context.Context, summaries []*domain.RunSummary) error {
	if len(summaries) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	type key struct {
		runID    string
		position int
	}
	seen := make(map[key]struct{}, len(summaries))
	runIDs := make(map[string]struct{})
	for _, rs := range summaries {
		if rs == nil || rs.RunID == "" || rs.Position < 0 {
			return storage.ErrInvalidInput
		}
		k := key{rs.RunID, rs.Position}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
		runIDs[rs.RunID] = struct{}{}
	}

	// Check for duplicates against existing DB rows
	for runID := range runIDs {
		existing, err := s.positions(ctx, runID)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		for _, pos := range existing {
			if _, clash := seen[key{runID, pos}]; clash {
				return storage.ErrDuplicateKey
			}
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `INSERT INTO run_summaries (`+summaryColumns+`)`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, rs := range summaries {
		err = batch.Append(
			rs.RunID, uint32(rs.Position), int64(rs.Q), uint32(rs.NGames), rs.Seed,
			rs.AvgProfit, rs.SDProfit, rs.MinProfit, rs.MaxProfit,
			rs.AvgAttendance, rs.AvgDemand, rs.AvgSold, rs.AvgLeftover, rs.StockoutRate,
			rs.Price, rs.Cost, rs.Salvage, rs.FixedCostPerGame,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByRunID retrieves all summaries for a run, ordered by position ASC.
func (s *SummaryStore) GetByRunID(ctx context.Context, runID string) ([]*domain.RunSummary, error) {
	query := `
		SELECT ` + summaryColumns + `
		FROM run_summaries FINAL
		WHERE run_id = ?
		ORDER BY position ASC
	`

	rows, err := s.conn.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query by run: %w", err)
	}
	defer rows.Close()

	return scanRunSummaries(rows)
}

func (s *SummaryStore) positions(ctx context.Context, runID string) ([]int, error) {
	rows, err := s.conn.Query(ctx, `SELECT position FROM run_summaries WHERE run_id = ?`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int
	for rows.Next() {
		var pos uint32
		if err := rows.Scan(&pos); err != nil {
			return nil, err
		}
		out = append(out, int(pos))
	}
	return out, rows.Err()
}

func scanRunSummaries(rows driver.Rows) ([]*domain.RunSummary, error) {
	var result []*domain.RunSummary
	for rows.Next() {
		var (
			rs       domain.RunSummary
			position uint32
			q        int64
			nGames   uint32
		)
		err := rows.Scan(
			&rs.RunID, &position, &q, &nGames, &rs.Seed,
			&rs.AvgProfit, &rs.SDProfit, &rs.MinProfit, &rs.MaxProfit,
			&rs.AvgAttendance, &rs.AvgDemand, &rs.AvgSold, &rs.AvgLeftover, &rs.StockoutRate,
			&rs.Price, &rs.Cost, &rs.Salvage, &rs.FixedCostPerGame,
		)
		if err != nil {
			return nil, fmt.Errorf("scan run summary: %w", err)
		}
		rs.Position = int(position)
		rs.Q = int(q)
		rs.NGames = int(nGames)
		result = append(result, &rs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run summaries: %w", err)
	}
	return result, nil
}
