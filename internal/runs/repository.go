package runs

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/CedricEugeni/MoMentor/internal/contracts"
)

// Repository implements contracts.RunRepository
// ⭐ SSOT: 런/확인/스케줄러 로그 저장은 여기서만
type Repository struct {
	db  backend
	now func() time.Time
}

// NewPostgresRepository creates a repository over a pgx pool
func NewPostgresRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{db: newPgxBackend(pool), now: time.Now}
}

// NewSQLiteRepository creates a repository over a modernc.org/sqlite handle
func NewSQLiteRepository(db *sql.DB) *Repository {
	return &Repository{db: newSQLBackend(db), now: time.Now}
}

// Driver returns the backing database driver name
func (r *Repository) Driver() string {
	return r.db.Driver()
}

var _ contracts.RunRepository = (*Repository)(nil)

// ============================================================================
// Runs
// ============================================================================

// CreateRun stores a pending run with its allocations and moves in one transaction
func (r *Repository) CreateRun(ctx context.Context, run *contracts.Run) error {
	if run.Status == "" {
		run.Status = contracts.RunPending
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = r.now().UTC()
	}
	if run.InputCurrency == "" {
		run.InputCurrency = contracts.BaseCurrency
	}
	if run.FXRateToUSD.IsZero() {
		run.FXRateToUSD = decimal.NewFromInt(1)
	}

	err := r.db.WithTx(ctx, func(q querier) error {
		var id int64
		err := q.QueryRow(ctx, `
			INSERT INTO runs (
				run_date, trigger_type, status, total_capital, uninvested_cash,
				input_currency, fx_rate_to_usd, fx_rate_timestamp, market_open,
				allocation_residual_cash, confirmation_key, strategy_hash, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			RETURNING id
		`,
			dateOnly(run.RunDate), string(run.TriggerType), string(run.Status),
			contracts.RoundMoney(run.TotalCapital), contracts.RoundMoney(run.UninvestedCash),
			run.InputCurrency, run.FXRateToUSD.Round(contracts.FXPrecision), run.FXRateTimestamp,
			run.MarketOpen, contracts.RoundMoney(run.AllocationResidualCash),
			nullString(run.ConfirmationKey), run.StrategyHash, run.CreatedAt,
		).Scan(&id)
		if err != nil {
			return err
		}

		for i, a := range run.Allocations {
			_, err := q.Exec(ctx, `
				INSERT INTO run_allocations (run_id, seq, symbol, weight, amount, alloc_rank, reason)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
			`, id, i+1, a.Symbol, a.Weight, contracts.RoundMoney(a.Amount), a.Rank, a.Reason)
			if err != nil {
				return fmt.Errorf("insert allocation %s: %w", a.Symbol, err)
			}
		}

		for _, m := range run.CashflowMoves {
			_, err := q.Exec(ctx, `
				INSERT INTO cashflow_moves (run_id, order_index, symbol, action, shares, value)
				VALUES ($1, $2, $3, $4, $5, $6)
			`, id, m.OrderIndex, m.Symbol, string(m.Action), contracts.FloorShares(m.Shares), contracts.RoundMoney(m.Value))
			if err != nil {
				return fmt.Errorf("insert cashflow move %d: %w", m.OrderIndex, err)
			}
		}

		for _, m := range run.SwapMoves {
			_, err := q.Exec(ctx, `
				INSERT INTO swap_moves (run_id, order_index, from_symbol, to_symbol, shares_from, shares_to, value)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
			`, id, m.OrderIndex, m.FromSymbol, m.ToSymbol, nullShares(m.SharesFrom), nullShares(m.SharesTo), contracts.RoundMoney(m.Value))
			if err != nil {
				return fmt.Errorf("insert swap move %d: %w", m.OrderIndex, err)
			}
		}

		run.ID = id
		return nil
	})
	if err != nil {
		if r.db.IsUniqueViolation(err) {
			return fmt.Errorf("%w: a pending run already exists", contracts.ErrPreconditionViolation)
		}
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

const runColumns = `
	id, run_date, trigger_type, status, total_capital, uninvested_cash,
	input_currency, fx_rate_to_usd, fx_rate_timestamp, market_open,
	allocation_residual_cash, confirmation_key, strategy_hash, created_at
`

func scanRun(s row) (*contracts.Run, error) {
	var (
		run            contracts.Run
		runDate        dbTime
		createdAt      dbTime
		fxTimestamp    nullTime
		trigger        string
		status         string
		confirmationID *string
	)
	err := s.Scan(
		&run.ID, &runDate, &trigger, &status, &run.TotalCapital, &run.UninvestedCash,
		&run.InputCurrency, &run.FXRateToUSD, &fxTimestamp, &run.MarketOpen,
		&run.AllocationResidualCash, &confirmationID, &run.StrategyHash, &createdAt,
	)
	if err != nil {
		return nil, err
	}

	run.RunDate = dateOnly(runDate.Time)
	run.CreatedAt = createdAt.Time
	run.TriggerType = contracts.TriggerType(trigger)
	run.Status = contracts.RunStatus(status)
	if fxTimestamp.Valid {
		t := fxTimestamp.Time
		run.FXRateTimestamp = &t
	}
	if confirmationID != nil {
		run.ConfirmationKey = *confirmationID
	}
	return &run, nil
}

// GetRun loads a run with its allocations and moves
func (r *Repository) GetRun(ctx context.Context, id int64) (*contracts.Run, error) {
	run, err := scanRun(r.db.QueryRow(ctx, `SELECT `+runColumns+` FROM runs WHERE id = $1`, id))
	if err != nil {
		if r.db.IsNoRows(err) {
			return nil, fmt.Errorf("%w: run %d", contracts.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get run %d: %w", id, err)
	}

	if err := r.loadDetails(ctx, run); err != nil {
		return nil, err
	}
	return run, nil
}

// GetPendingRun returns the single pending run or nil
func (r *Repository) GetPendingRun(ctx context.Context) (*contracts.Run, error) {
	run, err := scanRun(r.db.QueryRow(ctx, `
		SELECT `+runColumns+` FROM runs WHERE status = $1 ORDER BY id DESC LIMIT 1
	`, string(contracts.RunPending)))
	if err != nil {
		if r.db.IsNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get pending run: %w", err)
	}

	if err := r.loadDetails(ctx, run); err != nil {
		return nil, err
	}
	return run, nil
}

// ListRuns returns the most recent runs, newest first
func (r *Repository) ListRuns(ctx context.Context, limit int) ([]contracts.RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}

	rs, err := r.db.Query(ctx, `SELECT `+runColumns+` FROM runs ORDER BY created_at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rs.Close()

	out := make([]contracts.RunSummary, 0)
	for rs.Next() {
		run, err := scanRun(rs)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		out = append(out, run.Summary())
	}
	if err := rs.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return out, nil
}

func (r *Repository) loadDetails(ctx context.Context, run *contracts.Run) error {
	allocs, err := r.db.Query(ctx, `
		SELECT symbol, weight, amount, alloc_rank, reason
		FROM run_allocations WHERE run_id = $1 ORDER BY seq
	`, run.ID)
	if err != nil {
		return fmt.Errorf("failed to query allocations: %w", err)
	}
	run.Allocations = make([]contracts.TargetAllocation, 0)
	for allocs.Next() {
		var a contracts.TargetAllocation
		if err := allocs.Scan(&a.Symbol, &a.Weight, &a.Amount, &a.Rank, &a.Reason); err != nil {
			allocs.Close()
			return fmt.Errorf("failed to scan allocation: %w", err)
		}
		run.Allocations = append(run.Allocations, a)
	}
	allocs.Close()
	if err := allocs.Err(); err != nil {
		return fmt.Errorf("error iterating allocations: %w", err)
	}

	cash, err := r.db.Query(ctx, `
		SELECT order_index, symbol, action, shares, value
		FROM cashflow_moves WHERE run_id = $1 ORDER BY order_index
	`, run.ID)
	if err != nil {
		return fmt.Errorf("failed to query cashflow moves: %w", err)
	}
	run.CashflowMoves = make([]contracts.CashflowMove, 0)
	for cash.Next() {
		var (
			m      contracts.CashflowMove
			action string
		)
		if err := cash.Scan(&m.OrderIndex, &m.Symbol, &action, &m.Shares, &m.Value); err != nil {
			cash.Close()
			return fmt.Errorf("failed to scan cashflow move: %w", err)
		}
		m.Action = contracts.Action(action)
		run.CashflowMoves = append(run.CashflowMoves, m)
	}
	cash.Close()
	if err := cash.Err(); err != nil {
		return fmt.Errorf("error iterating cashflow moves: %w", err)
	}

	swaps, err := r.db.Query(ctx, `
		SELECT order_index, from_symbol, to_symbol, shares_from, shares_to, value
		FROM swap_moves WHERE run_id = $1 ORDER BY order_index
	`, run.ID)
	if err != nil {
		return fmt.Errorf("failed to query swap moves: %w", err)
	}
	run.SwapMoves = make([]contracts.SwapMove, 0)
	for swaps.Next() {
		var (
			m        contracts.SwapMove
			from, to decimal.NullDecimal
		)
		if err := swaps.Scan(&m.OrderIndex, &m.FromSymbol, &m.ToSymbol, &from, &to, &m.Value); err != nil {
			swaps.Close()
			return fmt.Errorf("failed to scan swap move: %w", err)
		}
		if from.Valid {
			m.SharesFrom = &from.Decimal
		}
		if to.Valid {
			m.SharesTo = &to.Decimal
		}
		run.SwapMoves = append(run.SwapMoves, m)
	}
	swaps.Close()
	if err := swaps.Err(); err != nil {
		return fmt.Errorf("error iterating swap moves: %w", err)
	}

	return nil
}

// ============================================================================
// Confirmations
// ============================================================================

// CompleteRun stores the confirmation and flips the run to completed atomically
func (r *Repository) CompleteRun(ctx context.Context, conf *contracts.Confirmation) error {
	if conf.ConfirmedAt.IsZero() {
		conf.ConfirmedAt = r.now().UTC()
	}

	err := r.db.WithTx(ctx, func(q querier) error {
		n, err := q.Exec(ctx, `
			UPDATE runs SET status = $1, confirmation_key = $2
			WHERE id = $3 AND status = $4
		`, string(contracts.RunCompleted), conf.Key, conf.RunID, string(contracts.RunPending))
		if err != nil {
			return err
		}
		if n == 0 {
			var exists int64
			if err := q.QueryRow(ctx, `SELECT id FROM runs WHERE id = $1`, conf.RunID).Scan(&exists); err != nil {
				if r.db.IsNoRows(err) {
					return fmt.Errorf("%w: run %d", contracts.ErrNotFound, conf.RunID)
				}
				return err
			}
			return fmt.Errorf("%w: run %d is not pending", contracts.ErrPreconditionViolation, conf.RunID)
		}

		_, err = q.Exec(ctx, `
			INSERT INTO confirmations (run_id, cash, confirmation_key, confirmed_at)
			VALUES ($1, $2, $3, $4)
		`, conf.RunID, contracts.RoundMoney(conf.Cash), conf.Key, conf.ConfirmedAt)
		if err != nil {
			return err
		}

		for _, h := range conf.Holdings {
			_, err := q.Exec(ctx, `
				INSERT INTO confirmed_positions (run_id, symbol, shares, avg_price)
				VALUES ($1, $2, $3, $4)
			`, conf.RunID, h.Symbol, h.Shares.Round(contracts.SharePrecision), h.AvgPrice.Round(contracts.PricePrecision))
			if err != nil {
				return fmt.Errorf("insert position %s: %w", h.Symbol, err)
			}
		}
		return nil
	})
	if err != nil {
		if r.db.IsUniqueViolation(err) {
			return fmt.Errorf("%w: run %d already confirmed", contracts.ErrPreconditionViolation, conf.RunID)
		}
		return fmt.Errorf("failed to complete run %d: %w", conf.RunID, err)
	}
	return nil
}

// GetConfirmation loads the confirmation of a run
func (r *Repository) GetConfirmation(ctx context.Context, runID int64) (*contracts.Confirmation, error) {
	var (
		conf        contracts.Confirmation
		confirmedAt dbTime
	)
	err := r.db.QueryRow(ctx, `
		SELECT run_id, cash, confirmation_key, confirmed_at FROM confirmations WHERE run_id = $1
	`, runID).Scan(&conf.RunID, &conf.Cash, &conf.Key, &confirmedAt)
	if err != nil {
		if r.db.IsNoRows(err) {
			return nil, fmt.Errorf("%w: confirmation for run %d", contracts.ErrNotFound, runID)
		}
		return nil, fmt.Errorf("failed to get confirmation: %w", err)
	}
	conf.ConfirmedAt = confirmedAt.Time

	rs, err := r.db.Query(ctx, `
		SELECT symbol, shares, avg_price FROM confirmed_positions WHERE run_id = $1 ORDER BY symbol
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions: %w", err)
	}
	defer rs.Close()

	conf.Holdings = make([]contracts.Holding, 0)
	for rs.Next() {
		var h contracts.Holding
		if err := rs.Scan(&h.Symbol, &h.Shares, &h.AvgPrice); err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		conf.Holdings = append(conf.Holdings, h)
	}
	if err := rs.Err(); err != nil {
		return nil, fmt.Errorf("error iterating positions: %w", err)
	}
	return &conf, nil
}

// GetLatestConfirmation returns the most recent confirmation or nil
func (r *Repository) GetLatestConfirmation(ctx context.Context) (*contracts.Confirmation, error) {
	var runID int64
	err := r.db.QueryRow(ctx, `
		SELECT run_id FROM confirmations ORDER BY confirmed_at DESC, run_id DESC LIMIT 1
	`).Scan(&runID)
	if err != nil {
		if r.db.IsNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest confirmation: %w", err)
	}
	return r.GetConfirmation(ctx, runID)
}

// ============================================================================
// Scheduler logs
// ============================================================================

// SaveSchedulerLog appends one scheduler execution record
func (r *Repository) SaveSchedulerLog(ctx context.Context, entry *contracts.SchedulerLog) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = r.now().UTC()
	}

	err := r.db.QueryRow(ctx, `
		INSERT INTO scheduler_logs (execution_id, job_name, run_date, status, run_id, error_message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`,
		entry.ExecutionID, entry.JobName, dateOnly(entry.RunDate), string(entry.Status),
		entry.RunID, nullString(contracts.TruncateError(entry.ErrorMessage)), entry.CreatedAt,
	).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("failed to save scheduler log: %w", err)
	}
	return nil
}

// ListSchedulerLogs returns recent scheduler executions, newest first
func (r *Repository) ListSchedulerLogs(ctx context.Context, limit int) ([]contracts.SchedulerLog, error) {
	if limit <= 0 {
		limit = 20
	}

	rs, err := r.db.Query(ctx, `
		SELECT id, execution_id, job_name, run_date, status, run_id, error_message, created_at
		FROM scheduler_logs ORDER BY created_at DESC, id DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list scheduler logs: %w", err)
	}
	defer rs.Close()

	out := make([]contracts.SchedulerLog, 0)
	for rs.Next() {
		var (
			l                  contracts.SchedulerLog
			runDate, createdAt dbTime
			status             string
			msg                *string
		)
		if err := rs.Scan(&l.ID, &l.ExecutionID, &l.JobName, &runDate, &status, &l.RunID, &msg, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan scheduler log: %w", err)
		}
		l.RunDate = dateOnly(runDate.Time)
		l.CreatedAt = createdAt.Time
		l.Status = contracts.SchedulerStatus(status)
		if msg != nil {
			l.ErrorMessage = *msg
		}
		out = append(out, l)
	}
	if err := rs.Err(); err != nil {
		return nil, fmt.Errorf("error iterating scheduler logs: %w", err)
	}
	return out, nil
}

// Reset deletes everything. Child tables go first for backends without cascades.
func (r *Repository) Reset(ctx context.Context) error {
	tables := []string{
		"confirmed_positions",
		"confirmations",
		"swap_moves",
		"cashflow_moves",
		"run_allocations",
		"runs",
		"scheduler_logs",
	}
	return r.db.WithTx(ctx, func(q querier) error {
		for _, t := range tables {
			if _, err := q.Exec(ctx, "DELETE FROM "+t); err != nil {
				return fmt.Errorf("failed to reset %s: %w", t, err)
			}
		}
		return nil
	})
}
