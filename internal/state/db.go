package state

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/rs/zerolog/log"
)

// DB is a global database connection pool.
var DB *sql.DB

// DBConfig holds database connection parameters.
type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string // "disable", "require", "verify-full", etc.
}

// InitDB initializes the database connection pool.
func InitDB(cfg DBConfig) error {
	psqlInfo := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	var err error
	DB, err = sql.Open("postgres", psqlInfo)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}

	DB.SetMaxOpenConns(25)
	DB.SetMaxIdleConns(25)
	DB.SetConnMaxLifetime(5 * time.Minute)

	err = DB.Ping()
	if err != nil {
		DB.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().Msg("Successfully connected to the PostgreSQL database!")
	return nil
}

// CloseDB closes the database connection pool.
func CloseDB() {
	if DB != nil {
		log.Info().Msg("Closing database connection...")
		if err := DB.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing database connection")
		}
	}
}

// EnsureSchema applies the necessary DDL to create tables if they don't exist.
// Addresses are stored in their base58 text form; unsigned 64-bit amounts as
// NUMERIC(20, 0) so the full range survives the round trip.
func EnsureSchema() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	schemaSQL := `
		CREATE TABLE IF NOT EXISTS global_state (
			id INTEGER PRIMARY KEY DEFAULT 1,
			address VARCHAR(64) NOT NULL,
			admin VARCHAR(64) NOT NULL,
			bump SMALLINT NOT NULL,
			fee_bps INTEGER NOT NULL,
			version NUMERIC(20, 0) NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT single_row_check CHECK (id = 1)
		);

		CREATE TABLE IF NOT EXISTS vaults (
			address VARCHAR(64) PRIMARY KEY,
			authority VARCHAR(64) NOT NULL,
			token_mint VARCHAR(64) NOT NULL UNIQUE,
			share_mint VARCHAR(64) NOT NULL,
			escrow_account VARCHAR(64) NOT NULL,
			total_assets NUMERIC(20, 0) NOT NULL DEFAULT 0,
			total_shares NUMERIC(20, 0) NOT NULL DEFAULT 0,
			bump SMALLINT NOT NULL,
			strategy_enabled BOOLEAN NOT NULL DEFAULT FALSE,
			performance_fee_bps INTEGER NOT NULL DEFAULT 0,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_vaults_token_mint ON vaults(token_mint);

		CREATE TABLE IF NOT EXISTS user_states (
			address VARCHAR(64) PRIMARY KEY,
			principal VARCHAR(64) NOT NULL UNIQUE,
			bump SMALLINT NOT NULL,
			total_volume NUMERIC(20, 0) NOT NULL DEFAULT 0,
			swap_count NUMERIC(20, 0) NOT NULL DEFAULT 0,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_user_states_principal ON user_states(principal);

		CREATE TABLE IF NOT EXISTS swap_contexts (
			address VARCHAR(64) PRIMARY KEY,
			principal VARCHAR(64) NOT NULL,
			input_mint VARCHAR(64) NOT NULL,
			output_mint VARCHAR(64) NOT NULL,
			amount_in NUMERIC(20, 0) NOT NULL,
			min_amount_out NUMERIC(20, 0) NOT NULL,
			swap_id NUMERIC(20, 0) NOT NULL,
			swap_timestamp BIGINT NOT NULL,
			bump SMALLINT NOT NULL,
			CONSTRAINT uq_swap_contexts_principal_swap UNIQUE (principal, swap_id)
		);
		CREATE INDEX IF NOT EXISTS idx_swap_contexts_principal ON swap_contexts(principal, swap_id DESC);
		CREATE INDEX IF NOT EXISTS idx_swap_contexts_timestamp ON swap_contexts(swap_timestamp DESC);

		CREATE TABLE IF NOT EXISTS strategies (
			creator VARCHAR(64) NOT NULL,
			strategy_id NUMERIC(20, 0) NOT NULL,
			name VARCHAR(50) NOT NULL,
			description VARCHAR(200) NOT NULL,
			price NUMERIC(20, 0) NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			total_purchases NUMERIC(20, 0) NOT NULL DEFAULT 0,
			total_executions NUMERIC(20, 0) NOT NULL DEFAULT 0,
			total_profit BIGINT NOT NULL DEFAULT 0,
			success_rate INTEGER NOT NULL DEFAULT 0,
			created_at BIGINT NOT NULL,
			strategy_type VARCHAR(20) NOT NULL,
			parameters JSONB,
			PRIMARY KEY (creator, strategy_id)
		);
		CREATE INDEX IF NOT EXISTS idx_strategies_active ON strategies(is_active, created_at DESC);

		CREATE TABLE IF NOT EXISTS user_strategies (
			owner VARCHAR(64) NOT NULL,
			creator VARCHAR(64) NOT NULL,
			strategy_id NUMERIC(20, 0) NOT NULL,
			purchased_at BIGINT NOT NULL,
			times_executed NUMERIC(20, 0) NOT NULL DEFAULT 0,
			total_profit BIGINT NOT NULL DEFAULT 0,
			PRIMARY KEY (owner, creator, strategy_id)
		);

		CREATE TABLE IF NOT EXISTS strategy_executions (
			execution_id SERIAL PRIMARY KEY,
			creator VARCHAR(64) NOT NULL,
			strategy_id NUMERIC(20, 0) NOT NULL,
			executor VARCHAR(64) NOT NULL,
			executed_at BIGINT NOT NULL,
			input_amount NUMERIC(20, 0) NOT NULL,
			output_amount NUMERIC(20, 0) NOT NULL,
			profit BIGINT NOT NULL,
			success BOOLEAN NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_strategy_executions_strategy ON strategy_executions(creator, strategy_id, executed_at DESC);

		CREATE TABLE IF NOT EXISTS engine_events (
			event_id SERIAL PRIMARY KEY,
			event_name VARCHAR(50) NOT NULL,
			payload JSONB,
			recorded_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_engine_events_name ON engine_events(event_name, recorded_at DESC);
	`
	_, err := DB.Exec(schemaSQL)
	if err != nil {
		return fmt.Errorf("failed to execute schema DDL: %w", err)
	}
	log.Info().Msg("Database schema ensured.")
	return nil
}

// TestDBConnection tests if the database connection is healthy
func TestDBConnection() error {
	if DB == nil {
		return fmt.Errorf("database connection is nil")
	}

	// Use a short timeout context for health checks
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := DB.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	return nil
}
