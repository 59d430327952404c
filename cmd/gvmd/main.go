package main

import (
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/vaultguard/gvm/internal/config"
	"github.com/vaultguard/gvm/internal/engine"
	"github.com/vaultguard/gvm/internal/events"
	"github.com/vaultguard/gvm/internal/logger"
	"github.com/vaultguard/gvm/internal/marketplace"
	"github.com/vaultguard/gvm/internal/state"
	"github.com/vaultguard/gvm/internal/swaptarget"
	"github.com/vaultguard/gvm/internal/token"
	"github.com/vaultguard/gvm/internal/web"
)

// main is the entry point for the GVM service.
func main() {
	// --- 1. Initialization Phase ---
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("Warning: .env file not found. Relying on OS environment variables.")
	}

	// Load configuration from environment variables
	if err := config.LoadConfig(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Initialize(os.Getenv("LOG_LEVEL"))
	log.Info().Msg("GVM Core Logic Starting...")

	// Initialize Database Connection
	dbCfg := state.DBConfig{
		Host: os.Getenv("DB_HOST"), Port: mustAtoi(os.Getenv("DB_PORT"), 5432),
		User: os.Getenv("DB_USER"), Password: os.Getenv("DB_PASSWORD"),
		DBName: os.Getenv("DB_NAME"), SSLMode: os.Getenv("DB_SSLMODE"),
	}
	if err := state.InitDB(dbCfg); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer state.CloseDB()
	if err := state.EnsureSchema(); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure database schema")
	}
	reportAuditMirror()

	// --- 2. Engine Assembly with Dependency Injection ---
	bank := token.NewBank()

	target, err := swaptarget.NewRPCTarget(config.SwapTargetRPC)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize swap target client")
	}

	sink := events.NewMultiSink(
		events.NewLogSink("engine_events"),
		state.NewEventJournal(),
	)

	eng, err := engine.New(engine.Config{
		Bank:                bank,
		Target:              target,
		Sink:                sink,
		Persister:           state.StorePersister{},
		ProgramID:           config.ProgramID,
		SwapTargetProgramID: config.SwapTargetProgramID,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create vault engine")
	}

	// Bootstrap the global fee configuration on first run.
	if _, err := eng.GlobalState(); err != nil {
		gs, err := eng.InitializeGlobalState(config.AdminKey, config.DefaultFeeBps)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize global state")
		}
		log.Info().
			Str("admin", gs.Admin.String()).
			Uint16("feeBps", gs.FeeBps).
			Msg("Global state initialized")
	}

	market, err := marketplace.New(marketplace.Config{
		Store: state.MarketplaceStore{},
		Bank:  bank,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create marketplace service")
	}

	// --- 3. Start Web Server ---
	webServer := web.NewWebServer(config.WebPort, eng, market)
	go func() {
		log.Info().Str("port", config.WebPort).Str("url", "http://localhost:"+config.WebPort).Msg("Starting GVM API server")
		if err := webServer.Start(); err != nil {
			log.Error().Err(err).Msg("Web server failed to start")
		}
	}()

	// --- 4. Wait for Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info().Str("signal", sig.String()).Msg("Shutdown signal received, stopping GVM")
}

// reportAuditMirror logs what the persisted audit mirror holds from
// previous runs. The database is a write-behind record, not a recovery
// source; the engine always starts from an empty ledger.
func reportAuditMirror() {
	gs, err := state.LoadGlobalState()
	if err != nil {
		log.Warn().Err(err).Msg("Could not read persisted global state")
		return
	}
	vaults, err := state.LoadVaults()
	if err != nil {
		log.Warn().Err(err).Msg("Could not read persisted vault records")
		return
	}
	users, err := state.LoadUserStates()
	if err != nil {
		log.Warn().Err(err).Msg("Could not read persisted user state records")
		return
	}
	if gs == nil && len(vaults) == 0 && len(users) == 0 {
		log.Info().Msg("Audit mirror is empty, first run against this database")
		return
	}
	evt := log.Info().Int("vaults", len(vaults)).Int("users", len(users))
	if gs != nil {
		evt = evt.Uint64("globalStateVersion", gs.Version)
	}
	evt.Msg("Audit mirror holds records from a previous run; engine starts fresh")
}

func mustAtoi(s string, fallback int) int {
	if s == "" {
		return fallback
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return v
}
