package swaptarget

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/vaultguard/gvm/internal/logger"
	"github.com/vaultguard/gvm/internal/types"
)

var rpcLogger = logger.GetForComponent("swap_target_rpc")

// JSON-RPC structures for the remote execution endpoint with validation

// JSONRPCRequest defines the structure of a JSON-RPC request.
type JSONRPCRequest struct {
	JSONRPC string                   `json:"jsonrpc"`
	ID      int                      `json:"id"`
	Method  string                   `json:"method"`
	Params  ExecuteInstructionParams `json:"params"`
}

// ExecuteInstructionParams defines the parameters for the
// "execute_instruction" method.
type ExecuteInstructionParams struct {
	ProgramID string        `json:"program_id"`
	Accounts  []AccountMeta `json:"accounts"`
	Data      string        `json:"data"` // Base64-encoded payload bytes
}

// AccountMeta mirrors the caller-declared account flags on the wire.
type AccountMeta struct {
	Address    string `json:"address"`
	IsWritable bool   `json:"is_writable"`
	IsSigner   bool   `json:"is_signer"`
}

// JSONRPCResponse defines the structure of a JSON-RPC response.
type JSONRPCResponse struct {
	JSONRPC string                    `json:"jsonrpc"`
	ID      int                       `json:"id"`
	Result  *ExecuteInstructionResult `json:"result,omitempty"`
	Error   *JSONRPCError             `json:"error,omitempty"`
}

// ExecuteInstructionResult defines the "result" field for
// "execute_instruction".
type ExecuteInstructionResult struct {
	Code uint32 `json:"code"` // 0 means the target committed
	Log  string `json:"log,omitempty"`
}

// JSONRPCError defines the structure of a JSON-RPC error.
type JSONRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data,omitempty"`
}

// RPCTarget submits forwarded instructions to an out-of-process swap target
// over JSON-RPC.
type RPCTarget struct {
	endpoint string
	client   *http.Client
}

// NewRPCTarget creates a forwarder for the given endpoint.
func NewRPCTarget(endpoint string) (*RPCTarget, error) {
	if endpoint == "" {
		return nil, errors.New("swap target endpoint cannot be empty")
	}
	return &RPCTarget{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (t *RPCTarget) Execute(ctx context.Context, ix types.ForwardInstruction) error {
	if len(ix.Data) == 0 {
		return ErrEmptyPayload
	}
	if len(ix.Accounts) == 0 {
		return ErrNoAccounts
	}

	accounts := make([]AccountMeta, 0, len(ix.Accounts))
	for _, meta := range ix.Accounts {
		accounts = append(accounts, AccountMeta{
			Address:    meta.Address.String(),
			IsWritable: meta.IsWritable,
			IsSigner:   meta.IsSigner,
		})
	}

	req := JSONRPCRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "execute_instruction",
		Params: ExecuteInstructionParams{
			ProgramID: ix.ProgramID.String(),
			Accounts:  accounts,
			Data:      base64.StdEncoding.EncodeToString(ix.Data),
		},
	}

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal execute_instruction request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build execute_instruction request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return errors.Join(ErrExecutionFailed, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Join(ErrExecutionFailed, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: HTTP %d: %s", ErrExecutionFailed, resp.StatusCode, string(respBody))
	}

	var rpcResp JSONRPCResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return errors.Join(ErrExecutionFailed, err)
	}
	if rpcResp.Error != nil {
		return fmt.Errorf("%w: RPC error %d: %s", ErrExecutionFailed, rpcResp.Error.Code, rpcResp.Error.Message)
	}
	if rpcResp.Result == nil {
		return fmt.Errorf("%w: empty result", ErrExecutionFailed)
	}
	if rpcResp.Result.Code != 0 {
		return fmt.Errorf("%w: target code %d: %s", ErrExecutionFailed, rpcResp.Result.Code, rpcResp.Result.Log)
	}

	rpcLogger.Debug().
		Str("program", ix.ProgramID.String()).
		Int("accounts", len(ix.Accounts)).
		Int("payloadBytes", len(ix.Data)).
		Msg("Forwarded instruction executed")

	return nil
}
