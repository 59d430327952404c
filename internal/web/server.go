package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gorilla/mux"

	"github.com/vaultguard/gvm/internal/engine"
	"github.com/vaultguard/gvm/internal/logger"
	"github.com/vaultguard/gvm/internal/marketplace"
	"github.com/vaultguard/gvm/internal/state"
	"github.com/vaultguard/gvm/internal/types"
	"github.com/vaultguard/gvm/internal/vaultmath"
)

var webLogger = logger.GetForComponent("web_server")

// WebServer exposes the vault engine and marketplace over HTTP.
type WebServer struct {
	router *mux.Router
	port   string
	engine *engine.Engine
	market *marketplace.Service
}

// NewWebServer creates a new web server instance
func NewWebServer(port string, eng *engine.Engine, market *marketplace.Service) *WebServer {
	if port == "" {
		port = "8080"
	}

	server := &WebServer{
		router: mux.NewRouter(),
		port:   port,
		engine: eng,
		market: market,
	}

	server.setupRoutes()
	return server
}

// setupRoutes configures all HTTP routes
func (ws *WebServer) setupRoutes() {
	// Health endpoint (direct route)
	ws.router.HandleFunc("/health", ws.handleHealth).Methods("GET")

	// API endpoints
	api := ws.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", ws.handleHealth).Methods("GET")

	api.HandleFunc("/global-state", ws.handleGetGlobalState).Methods("GET")
	api.HandleFunc("/global-state/fee-rate", ws.handleUpdateFeeRate).Methods("POST")

	api.HandleFunc("/vaults", ws.handleGetVaults).Methods("GET")
	api.HandleFunc("/vaults", ws.handleInitializeVault).Methods("POST")
	api.HandleFunc("/vaults/{mint}", ws.handleGetVault).Methods("GET")
	api.HandleFunc("/vaults/{mint}/strategy", ws.handleSetStrategyEnabled).Methods("POST")
	api.HandleFunc("/vaults/{mint}/execute-strategy", ws.handleExecuteStrategy).Methods("POST")

	api.HandleFunc("/users", ws.handleRegisterUser).Methods("POST")
	api.HandleFunc("/users/{user}", ws.handleGetUser).Methods("GET")
	api.HandleFunc("/users/{user}/swaps", ws.handleGetUserSwaps).Methods("GET")

	api.HandleFunc("/fee-vaults", ws.handleInitializeFeeVault).Methods("POST")

	api.HandleFunc("/deposit", ws.handleDeposit).Methods("POST")
	api.HandleFunc("/withdraw", ws.handleWithdraw).Methods("POST")
	api.HandleFunc("/swap", ws.handleSwap).Methods("POST")
	api.HandleFunc("/swap-intent", ws.handleSwapIntent).Methods("POST")
	api.HandleFunc("/swaps", ws.handleGetRecentSwaps).Methods("GET")

	api.HandleFunc("/strategies", ws.handleListStrategies).Methods("GET")
	api.HandleFunc("/strategies", ws.handleCreateStrategy).Methods("POST")
	api.HandleFunc("/strategies/{creator}/{id}", ws.handleGetStrategy).Methods("GET")
	api.HandleFunc("/strategies/{creator}/{id}", ws.handleUpdateStrategy).Methods("PUT")
	api.HandleFunc("/strategies/{creator}/{id}/buy", ws.handleBuyStrategy).Methods("POST")
	api.HandleFunc("/strategies/{creator}/{id}/executions", ws.handleRecordExecution).Methods("POST")
	api.HandleFunc("/strategies/{creator}/{id}/executions", ws.handleGetExecutions).Methods("GET")

	// Add CORS middleware
	ws.router.Use(ws.corsMiddleware)
	ws.router.Use(ws.loggingMiddleware)
}

// Start starts the web server
func (ws *WebServer) Start() error {
	webLogger.Info().Str("port", ws.port).Msg("Starting web server")

	server := &http.Server{
		Addr:         ":" + ws.port,
		Handler:      ws.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return server.ListenAndServe()
}

// handleHealth returns server health status
func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	dbHealthy := true
	if err := state.TestDBConnection(); err != nil {
		dbHealthy = false
	}

	overallStatus := "OK"
	statusCode := http.StatusOK
	if !dbHealthy {
		overallStatus = "DEGRADED"
		statusCode = http.StatusServiceUnavailable
	}

	response := map[string]interface{}{
		"status":    overallStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"system": map[string]interface{}{
			"version":          runtime.Version(),
			"goroutines_count": runtime.NumGoroutine(),
			"alloc_bytes":      memStats.Alloc,
			"sys_bytes":        memStats.Sys,
			"gc_cycles":        memStats.NumGC,
		},
		"component": map[string]interface{}{
			"name":    "gvm-guarded-vault-manager",
			"version": "1.0.0",
		},
		"database_healthy": dbHealthy,
		"vault_count":      len(ws.engine.Vaults()),
	}

	ws.writeJSONResponse(w, statusCode, response)
}

func (ws *WebServer) handleGetGlobalState(w http.ResponseWriter, r *http.Request) {
	gs, err := ws.engine.GlobalState()
	if err != nil {
		ws.writeEngineError(w, err)
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, gs)
}

func (ws *WebServer) handleUpdateFeeRate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Admin  solana.PublicKey `json:"admin"`
		FeeBps uint16           `json:"fee_bps"`
	}
	if !ws.decodeRequest(w, r, &req) {
		return
	}

	gs, err := ws.engine.UpdateFeeRate(req.Admin, req.FeeBps)
	if err != nil {
		ws.writeEngineError(w, err)
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, gs)
}

func (ws *WebServer) handleGetVaults(w http.ResponseWriter, r *http.Request) {
	vaults := ws.engine.Vaults()
	response := map[string]interface{}{
		"vaults": vaults,
		"count":  len(vaults),
	}
	ws.writeJSONResponse(w, http.StatusOK, response)
}

func (ws *WebServer) handleGetVault(w http.ResponseWriter, r *http.Request) {
	mint, ok := ws.pathKey(w, r, "mint")
	if !ok {
		return
	}
	v, err := ws.engine.VaultByMint(mint)
	if err != nil {
		ws.writeEngineError(w, err)
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, v)
}

func (ws *WebServer) handleInitializeVault(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Authority         solana.PublicKey `json:"authority"`
		TokenMint         solana.PublicKey `json:"token_mint"`
		PerformanceFeeBps uint16           `json:"performance_fee_bps"`
	}
	if !ws.decodeRequest(w, r, &req) {
		return
	}

	v, err := ws.engine.InitializeVault(req.Authority, req.TokenMint, req.PerformanceFeeBps)
	if err != nil {
		ws.writeEngineError(w, err)
		return
	}
	ws.writeJSONResponse(w, http.StatusCreated, v)
}

func (ws *WebServer) handleSetStrategyEnabled(w http.ResponseWriter, r *http.Request) {
	mint, ok := ws.pathKey(w, r, "mint")
	if !ok {
		return
	}
	var req struct {
		Authority solana.PublicKey `json:"authority"`
		Enabled   bool             `json:"enabled"`
	}
	if !ws.decodeRequest(w, r, &req) {
		return
	}

	if err := ws.engine.SetStrategyEnabled(req.Authority, mint, req.Enabled); err != nil {
		ws.writeEngineError(w, err)
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{"enabled": req.Enabled})
}

func (ws *WebServer) handleExecuteStrategy(w http.ResponseWriter, r *http.Request) {
	mint, ok := ws.pathKey(w, r, "mint")
	if !ok {
		return
	}
	var req struct {
		Authority          solana.PublicKey    `json:"authority"`
		Strategy           types.VaultStrategy `json:"strategy"`
		Amount             uint64              `json:"amount"`
		MinAmountOut       uint64              `json:"min_amount_out"`
		VaultOutputAccount solana.PublicKey    `json:"vault_output_account"`
		OutputMint         solana.PublicKey    `json:"output_mint"`
		TargetProgram      solana.PublicKey    `json:"target_program"`
		Payload            []byte              `json:"payload"`
		Accounts           []types.AccountMeta `json:"accounts"`
	}
	if !ws.decodeRequest(w, r, &req) {
		return
	}

	rcpt, err := ws.engine.ExecuteStrategy(r.Context(), engine.StrategyRequest{
		Authority:          req.Authority,
		TokenMint:          mint,
		Strategy:           req.Strategy,
		Amount:             req.Amount,
		MinAmountOut:       req.MinAmountOut,
		VaultOutputAccount: req.VaultOutputAccount,
		OutputMint:         req.OutputMint,
		TargetProgram:      req.TargetProgram,
		Payload:            req.Payload,
		Accounts:           req.Accounts,
	})
	if err != nil {
		ws.writeEngineError(w, err)
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, rcpt)
}

func (ws *WebServer) handleRegisterUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		User solana.PublicKey `json:"user"`
	}
	if !ws.decodeRequest(w, r, &req) {
		return
	}

	us, err := ws.engine.RegisterUser(req.User)
	if err != nil {
		ws.writeEngineError(w, err)
		return
	}
	ws.writeJSONResponse(w, http.StatusCreated, us)
}

func (ws *WebServer) handleGetUser(w http.ResponseWriter, r *http.Request) {
	user, ok := ws.pathKey(w, r, "user")
	if !ok {
		return
	}
	us, err := ws.engine.UserState(user)
	if err != nil {
		ws.writeEngineError(w, err)
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, us)
}

func (ws *WebServer) handleGetUserSwaps(w http.ResponseWriter, r *http.Request) {
	user, ok := ws.pathKey(w, r, "user")
	if !ok {
		return
	}
	swaps, err := state.GetSwapsByUser(user, ws.queryLimit(r))
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get user swaps")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve swaps")
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"swaps": swaps,
		"count": len(swaps),
	})
}

func (ws *WebServer) handleInitializeFeeVault(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mint solana.PublicKey `json:"mint"`
	}
	if !ws.decodeRequest(w, r, &req) {
		return
	}

	addr, err := ws.engine.InitializeFeeVault(req.Mint)
	if err != nil {
		ws.writeEngineError(w, err)
		return
	}
	ws.writeJSONResponse(w, http.StatusCreated, map[string]interface{}{"fee_vault": addr})
}

func (ws *WebServer) handleDeposit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		User             solana.PublicKey `json:"user"`
		TokenMint        solana.PublicKey `json:"token_mint"`
		UserTokenAccount solana.PublicKey `json:"user_token_account"`
		UserShareAccount solana.PublicKey `json:"user_share_account"`
		Amount           uint64           `json:"amount"`
	}
	if !ws.decodeRequest(w, r, &req) {
		return
	}

	rcpt, err := ws.engine.Deposit(req.User, req.TokenMint, req.UserTokenAccount, req.UserShareAccount, req.Amount)
	if err != nil {
		ws.writeEngineError(w, err)
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, rcpt)
}

func (ws *WebServer) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	var req struct {
		User             solana.PublicKey `json:"user"`
		TokenMint        solana.PublicKey `json:"token_mint"`
		UserTokenAccount solana.PublicKey `json:"user_token_account"`
		UserShareAccount solana.PublicKey `json:"user_share_account"`
		Shares           uint64           `json:"shares"`
	}
	if !ws.decodeRequest(w, r, &req) {
		return
	}

	rcpt, err := ws.engine.Withdraw(req.User, req.TokenMint, req.UserTokenAccount, req.UserShareAccount, req.Shares)
	if err != nil {
		ws.writeEngineError(w, err)
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, rcpt)
}

func (ws *WebServer) handleSwap(w http.ResponseWriter, r *http.Request) {
	var req struct {
		User              solana.PublicKey    `json:"user"`
		UserInputAccount  solana.PublicKey    `json:"user_input_account"`
		UserOutputAccount solana.PublicKey    `json:"user_output_account"`
		InputMint         solana.PublicKey    `json:"input_mint"`
		OutputMint        solana.PublicKey    `json:"output_mint"`
		AmountIn          uint64              `json:"amount_in"`
		MinAmountOut      uint64              `json:"min_amount_out"`
		TargetProgram     solana.PublicKey    `json:"target_program"`
		Payload           []byte              `json:"payload"`
		Accounts          []types.AccountMeta `json:"accounts"`
	}
	if !ws.decodeRequest(w, r, &req) {
		return
	}

	rcpt, err := ws.engine.Swap(r.Context(), engine.SwapRequest{
		User:              req.User,
		UserInputAccount:  req.UserInputAccount,
		UserOutputAccount: req.UserOutputAccount,
		InputMint:         req.InputMint,
		OutputMint:        req.OutputMint,
		AmountIn:          req.AmountIn,
		MinAmountOut:      req.MinAmountOut,
		TargetProgram:     req.TargetProgram,
		Payload:           req.Payload,
		Accounts:          req.Accounts,
	})
	if err != nil {
		ws.writeEngineError(w, err)
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, rcpt)
}

func (ws *WebServer) handleSwapIntent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		User         solana.PublicKey `json:"user"`
		InputMint    solana.PublicKey `json:"input_mint"`
		OutputMint   solana.PublicKey `json:"output_mint"`
		AmountIn     uint64           `json:"amount_in"`
		MinAmountOut uint64           `json:"min_amount_out"`
	}
	if !ws.decodeRequest(w, r, &req) {
		return
	}

	rcpt, err := ws.engine.RecordSwapIntent(engine.IntentRequest{
		User:         req.User,
		InputMint:    req.InputMint,
		OutputMint:   req.OutputMint,
		AmountIn:     req.AmountIn,
		MinAmountOut: req.MinAmountOut,
	})
	if err != nil {
		ws.writeEngineError(w, err)
		return
	}
	ws.writeJSONResponse(w, http.StatusCreated, rcpt)
}

func (ws *WebServer) handleGetRecentSwaps(w http.ResponseWriter, r *http.Request) {
	swaps, err := state.GetRecentSwaps(ws.queryLimit(r))
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get recent swaps")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve swaps")
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"swaps": swaps,
		"count": len(swaps),
	})
}

func (ws *WebServer) handleListStrategies(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"
	strategies, err := ws.market.ListStrategies(activeOnly, ws.queryLimit(r))
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to list strategies")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve strategies")
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"strategies": strategies,
		"count":      len(strategies),
	})
}

func (ws *WebServer) handleCreateStrategy(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Creator     solana.PublicKey         `json:"creator"`
		StrategyID  uint64                   `json:"strategy_id"`
		Name        string                   `json:"name"`
		Description string                   `json:"description"`
		Price       uint64                   `json:"price"`
		Type        types.StrategyType       `json:"type"`
		Parameters  types.StrategyParameters `json:"parameters"`
	}
	if !ws.decodeRequest(w, r, &req) {
		return
	}

	s, err := ws.market.CreateStrategy(req.Creator, req.StrategyID, req.Name, req.Description,
		req.Price, req.Type, req.Parameters)
	if err != nil {
		ws.writeEngineError(w, err)
		return
	}
	ws.writeJSONResponse(w, http.StatusCreated, s)
}

func (ws *WebServer) handleGetStrategy(w http.ResponseWriter, r *http.Request) {
	creator, id, ok := ws.strategyPath(w, r)
	if !ok {
		return
	}
	s, err := ws.market.GetStrategy(creator, id)
	if err != nil {
		ws.writeEngineError(w, err)
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, s)
}

func (ws *WebServer) handleUpdateStrategy(w http.ResponseWriter, r *http.Request) {
	creator, id, ok := ws.strategyPath(w, r)
	if !ok {
		return
	}
	var req struct {
		Caller      solana.PublicKey `json:"caller"`
		Description string           `json:"description"`
		Price       uint64           `json:"price"`
		IsActive    bool             `json:"is_active"`
	}
	if !ws.decodeRequest(w, r, &req) {
		return
	}

	s, err := ws.market.UpdateStrategy(req.Caller, creator, id, req.Description, req.Price, req.IsActive)
	if err != nil {
		ws.writeEngineError(w, err)
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, s)
}

func (ws *WebServer) handleBuyStrategy(w http.ResponseWriter, r *http.Request) {
	creator, id, ok := ws.strategyPath(w, r)
	if !ok {
		return
	}
	var req struct {
		Buyer          solana.PublicKey `json:"buyer"`
		BuyerAccount   solana.PublicKey `json:"buyer_account"`
		CreatorAccount solana.PublicKey `json:"creator_account"`
	}
	if !ws.decodeRequest(w, r, &req) {
		return
	}

	us, err := ws.market.BuyStrategy(req.Buyer, creator, id, req.BuyerAccount, req.CreatorAccount)
	if err != nil {
		ws.writeEngineError(w, err)
		return
	}
	ws.writeJSONResponse(w, http.StatusCreated, us)
}

func (ws *WebServer) handleRecordExecution(w http.ResponseWriter, r *http.Request) {
	creator, id, ok := ws.strategyPath(w, r)
	if !ok {
		return
	}
	var req struct {
		Executor     solana.PublicKey `json:"executor"`
		InputAmount  uint64           `json:"input_amount"`
		OutputAmount uint64           `json:"output_amount"`
		Profit       int64            `json:"profit"`
		Success      bool             `json:"success"`
	}
	if !ws.decodeRequest(w, r, &req) {
		return
	}

	err := ws.market.RecordExecutionResult(req.Executor, creator, id,
		req.InputAmount, req.OutputAmount, req.Profit, req.Success)
	if err != nil {
		ws.writeEngineError(w, err)
		return
	}
	ws.writeJSONResponse(w, http.StatusCreated, map[string]interface{}{"recorded": true})
}

func (ws *WebServer) handleGetExecutions(w http.ResponseWriter, r *http.Request) {
	creator, id, ok := ws.strategyPath(w, r)
	if !ok {
		return
	}
	execs, err := state.GetRecentExecutions(creator, id, ws.queryLimit(r))
	if err != nil {
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to load execution history")
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"executions": execs,
		"count":      len(execs),
	})
}

// decodeRequest parses a JSON body, answering 400 on malformed input.
func (ws *WebServer) decodeRequest(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

// pathKey parses a base58 address path variable.
func (ws *WebServer) pathKey(w http.ResponseWriter, r *http.Request, name string) (solana.PublicKey, bool) {
	pk, err := solana.PublicKeyFromBase58(mux.Vars(r)[name])
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid "+name+" address")
		return solana.PublicKey{}, false
	}
	return pk, true
}

func (ws *WebServer) strategyPath(w http.ResponseWriter, r *http.Request) (solana.PublicKey, uint64, bool) {
	creator, ok := ws.pathKey(w, r, "creator")
	if !ok {
		return solana.PublicKey{}, 0, false
	}
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid strategy ID")
		return solana.PublicKey{}, 0, false
	}
	return creator, id, true
}

func (ws *WebServer) queryLimit(r *http.Request) int {
	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil && parsedLimit > 0 && parsedLimit <= 100 {
			limit = parsedLimit
		}
	}
	return limit
}

// writeEngineError maps engine and marketplace errors onto HTTP statuses.
func (ws *WebServer) writeEngineError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, engine.ErrUnknownVault),
		errors.Is(err, engine.ErrUnknownUser),
		errors.Is(err, engine.ErrUnknownFeeVault),
		errors.Is(err, engine.ErrGlobalStateMissing),
		errors.Is(err, marketplace.ErrStrategyNotFound):
		status = http.StatusNotFound
	case errors.Is(err, engine.ErrUnauthorized),
		errors.Is(err, engine.ErrInvalidOwner),
		errors.Is(err, engine.ErrInvalidTokenAccountOwner),
		errors.Is(err, marketplace.ErrNotCreator):
		status = http.StatusForbidden
	case errors.Is(err, engine.ErrVaultExists),
		errors.Is(err, engine.ErrUserExists),
		errors.Is(err, engine.ErrFeeVaultExists),
		errors.Is(err, engine.ErrGlobalStateExists),
		errors.Is(err, marketplace.ErrStrategyExists),
		errors.Is(err, marketplace.ErrAlreadyPurchased):
		status = http.StatusConflict
	case errors.Is(err, engine.ErrZeroAmount),
		errors.Is(err, engine.ErrInvalidAmount),
		errors.Is(err, engine.ErrInsufficientBalance),
		errors.Is(err, engine.ErrInsufficientAssets),
		errors.Is(err, engine.ErrMintMismatch),
		errors.Is(err, engine.ErrInvalidFee),
		errors.Is(err, engine.ErrProtectedAccount),
		errors.Is(err, engine.ErrSlippageExceeded),
		errors.Is(err, engine.ErrUnexpectedInputAmount),
		errors.Is(err, engine.ErrInvalidSwapProgram),
		errors.Is(err, engine.ErrInvalidSwapInstruction),
		errors.Is(err, engine.ErrStrategyDisabled),
		errors.Is(err, engine.ErrStrategyNotImplemented),
		errors.Is(err, vaultmath.ErrMathOverflow),
		errors.Is(err, vaultmath.ErrZeroShares),
		errors.Is(err, vaultmath.ErrZeroAssets),
		errors.Is(err, vaultmath.ErrNoShares),
		errors.Is(err, vaultmath.ErrInvalidFeeRate),
		errors.Is(err, marketplace.ErrNameTooLong),
		errors.Is(err, marketplace.ErrDescriptionTooLong),
		errors.Is(err, marketplace.ErrInvalidPrice),
		errors.Is(err, marketplace.ErrStrategyInactive),
		errors.Is(err, marketplace.ErrSelfPurchase),
		errors.Is(err, marketplace.ErrNotPurchased):
		status = http.StatusBadRequest
	}

	ws.writeErrorResponse(w, status, err.Error())
}

// writeJSONResponse writes a JSON response
func (ws *WebServer) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		webLogger.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeErrorResponse writes an error response
func (ws *WebServer) writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	response := map[string]interface{}{
		"error":     true,
		"message":   message,
		"timestamp": time.Now().UTC(),
	}

	ws.writeJSONResponse(w, statusCode, response)
}

// corsMiddleware adds CORS headers
func (ws *WebServer) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests
func (ws *WebServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Create a response writer wrapper to capture status code
		wrapper := &responseWriterWrapper{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		duration := time.Since(start)

		webLogger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote_addr", r.RemoteAddr).
			Int("status", wrapper.statusCode).
			Dur("duration", duration).
			Msg("HTTP request")
	})
}

// responseWriterWrapper wraps http.ResponseWriter to capture status code
type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriterWrapper) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
