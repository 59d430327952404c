package state

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/vaultguard/gvm/internal/types"
)

// InsertStrategy stores a new marketplace listing.
func InsertStrategy(s types.Strategy) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	paramsJSON, err := json.Marshal(s.Parameters)
	if err != nil {
		return fmt.Errorf("failed to marshal strategy parameters: %w", err)
	}

	query := `
		INSERT INTO strategies (
			creator, strategy_id, name, description, price, is_active,
			total_purchases, total_executions, total_profit, success_rate,
			created_at, strategy_type, parameters
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13);
	`
	_, err = DB.Exec(query,
		s.Creator.String(), u64str(s.StrategyID), s.Name, s.Description,
		u64str(s.Price), s.IsActive,
		u64str(s.TotalPurchases), u64str(s.TotalExecutions), s.TotalProfit, s.SuccessRate,
		s.CreatedAt, string(s.Type), paramsJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to insert strategy: %w", err)
	}
	return nil
}

// UpdateStrategy rewrites a listing's mutable fields.
func UpdateStrategy(s types.Strategy) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	paramsJSON, err := json.Marshal(s.Parameters)
	if err != nil {
		return fmt.Errorf("failed to marshal strategy parameters: %w", err)
	}

	query := `
		UPDATE strategies SET
			name = $3, description = $4, price = $5, is_active = $6,
			total_purchases = $7, total_executions = $8, total_profit = $9,
			success_rate = $10, parameters = $11
		WHERE creator = $1 AND strategy_id = $2;
	`
	res, err := DB.Exec(query,
		s.Creator.String(), u64str(s.StrategyID),
		s.Name, s.Description, u64str(s.Price), s.IsActive,
		u64str(s.TotalPurchases), u64str(s.TotalExecutions), s.TotalProfit,
		s.SuccessRate, paramsJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to update strategy: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("strategy %d by %s not found", s.StrategyID, s.Creator)
	}
	return nil
}

// GetStrategy reads one listing, or nil if it does not exist.
func GetStrategy(creator solana.PublicKey, strategyID uint64) (*types.Strategy, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	query := `
		SELECT creator, strategy_id, name, description, price, is_active,
			total_purchases, total_executions, total_profit, success_rate,
			created_at, strategy_type, parameters
		FROM strategies WHERE creator = $1 AND strategy_id = $2;
	`
	s, err := scanStrategy(DB.QueryRow(query, creator.String(), u64str(strategyID)))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// ListStrategies returns listings, newest first. With activeOnly set the
// result skips delisted strategies.
func ListStrategies(activeOnly bool, limit int) ([]types.Strategy, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT creator, strategy_id, name, description, price, is_active,
			total_purchases, total_executions, total_profit, success_rate,
			created_at, strategy_type, parameters
		FROM strategies
		WHERE (NOT $1) OR is_active
		ORDER BY created_at DESC
		LIMIT $2;
	`
	rows, err := DB.Query(query, activeOnly, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query strategies: %w", err)
	}
	defer rows.Close()

	var out []types.Strategy
	for rows.Next() {
		s, err := scanStrategy(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("strategy row iteration failed: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStrategy(row rowScanner) (*types.Strategy, error) {
	var (
		creator, strategyID, price                string
		totalPurchases, totalExecutions, sType    string
		paramsJSON                                []byte
		s                                         types.Strategy
	)
	err := row.Scan(&creator, &strategyID, &s.Name, &s.Description, &price, &s.IsActive,
		&totalPurchases, &totalExecutions, &s.TotalProfit, &s.SuccessRate,
		&s.CreatedAt, &sType, &paramsJSON)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan strategy row: %w", err)
	}

	if s.Creator, err = parseKey(creator); err != nil {
		return nil, err
	}
	if s.StrategyID, err = parseU64(strategyID); err != nil {
		return nil, err
	}
	if s.Price, err = parseU64(price); err != nil {
		return nil, err
	}
	if s.TotalPurchases, err = parseU64(totalPurchases); err != nil {
		return nil, err
	}
	if s.TotalExecutions, err = parseU64(totalExecutions); err != nil {
		return nil, err
	}
	s.Type = types.StrategyType(sType)
	if len(paramsJSON) > 0 {
		if err := json.Unmarshal(paramsJSON, &s.Parameters); err != nil {
			return nil, fmt.Errorf("failed to unmarshal strategy parameters: %w", err)
		}
	}
	return &s, nil
}

// InsertUserStrategy stores a purchase record.
func InsertUserStrategy(us types.UserStrategy) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	query := `
		INSERT INTO user_strategies (owner, creator, strategy_id, purchased_at, times_executed, total_profit)
		VALUES ($1, $2, $3, $4, $5, $6);
	`
	_, err := DB.Exec(query, us.Owner.String(), us.Creator.String(), u64str(us.StrategyID),
		us.PurchasedAt, u64str(us.TimesExecuted), us.TotalProfit)
	if err != nil {
		return fmt.Errorf("failed to insert user strategy: %w", err)
	}
	return nil
}

// GetUserStrategy reads a purchase record, or nil if the owner never bought
// the strategy.
func GetUserStrategy(owner, creator solana.PublicKey, strategyID uint64) (*types.UserStrategy, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	query := `
		SELECT owner, creator, strategy_id, purchased_at, times_executed, total_profit
		FROM user_strategies
		WHERE owner = $1 AND creator = $2 AND strategy_id = $3;
	`
	var (
		ownerCol, creatorCol, strategyCol, executed string
		us                                          types.UserStrategy
	)
	err := DB.QueryRow(query, owner.String(), creator.String(), u64str(strategyID)).
		Scan(&ownerCol, &creatorCol, &strategyCol, &us.PurchasedAt, &executed, &us.TotalProfit)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user strategy: %w", err)
	}

	if us.Owner, err = parseKey(ownerCol); err != nil {
		return nil, err
	}
	if us.Creator, err = parseKey(creatorCol); err != nil {
		return nil, err
	}
	if us.StrategyID, err = parseU64(strategyCol); err != nil {
		return nil, err
	}
	if us.TimesExecuted, err = parseU64(executed); err != nil {
		return nil, err
	}
	return &us, nil
}

// UpdateUserStrategy rewrites a purchase record's counters.
func UpdateUserStrategy(us types.UserStrategy) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	query := `
		UPDATE user_strategies SET times_executed = $4, total_profit = $5
		WHERE owner = $1 AND creator = $2 AND strategy_id = $3;
	`
	_, err := DB.Exec(query, us.Owner.String(), us.Creator.String(), u64str(us.StrategyID),
		u64str(us.TimesExecuted), us.TotalProfit)
	if err != nil {
		return fmt.Errorf("failed to update user strategy: %w", err)
	}
	return nil
}

// InsertStrategyExecution appends an execution outcome to the journal.
func InsertStrategyExecution(ex types.StrategyExecution) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	query := `
		INSERT INTO strategy_executions (
			creator, strategy_id, executor, executed_at,
			input_amount, output_amount, profit, success
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
	`
	_, err := DB.Exec(query,
		ex.Creator.String(), u64str(ex.StrategyID), ex.Executor.String(), ex.ExecutedAt,
		u64str(ex.InputAmount), u64str(ex.OutputAmount), ex.Profit, ex.Success,
	)
	if err != nil {
		return fmt.Errorf("failed to insert strategy execution: %w", err)
	}
	return nil
}

// GetRecentExecutions returns the newest execution outcomes for a listing.
func GetRecentExecutions(creator solana.PublicKey, strategyID uint64, limit int) ([]types.StrategyExecution, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT creator, strategy_id, executor, executed_at,
			input_amount, output_amount, profit, success
		FROM strategy_executions
		WHERE creator = $1 AND strategy_id = $2
		ORDER BY executed_at DESC
		LIMIT $3;
	`
	rows, err := DB.Query(query, creator.String(), u64str(strategyID), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query strategy executions: %w", err)
	}
	defer rows.Close()

	var out []types.StrategyExecution
	for rows.Next() {
		var (
			creatorCol, strategyCol, executor, inputAmt, outputAmt string
			ex                                                     types.StrategyExecution
		)
		err := rows.Scan(&creatorCol, &strategyCol, &executor, &ex.ExecutedAt,
			&inputAmt, &outputAmt, &ex.Profit, &ex.Success)
		if err != nil {
			return nil, fmt.Errorf("failed to scan strategy execution row: %w", err)
		}
		if ex.Creator, err = parseKey(creatorCol); err != nil {
			return nil, err
		}
		if ex.StrategyID, err = parseU64(strategyCol); err != nil {
			return nil, err
		}
		if ex.Executor, err = parseKey(executor); err != nil {
			return nil, err
		}
		if ex.InputAmount, err = parseU64(inputAmt); err != nil {
			return nil, err
		}
		if ex.OutputAmount, err = parseU64(outputAmt); err != nil {
			return nil, err
		}
		out = append(out, ex)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("strategy execution row iteration failed: %w", err)
	}
	return out, nil
}
