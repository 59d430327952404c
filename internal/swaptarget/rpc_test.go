package swaptarget

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"

	"github.com/vaultguard/gvm/internal/types"
)

func testInstruction() types.ForwardInstruction {
	var program, account solana.PublicKey
	program[0] = 1
	account[0] = 2
	return types.ForwardInstruction{
		ProgramID: program,
		Accounts: []types.AccountMeta{
			{Address: account, IsWritable: true},
		},
		Data: []byte{0xDE, 0xAD, 0xBE, 0xEF},
	}
}

func TestExecuteSuccess(t *testing.T) {
	ix := testInstruction()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req JSONRPCRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "execute_instruction", req.Method)
		require.Equal(t, ix.ProgramID.String(), req.Params.ProgramID)
		require.Equal(t, base64.StdEncoding.EncodeToString(ix.Data), req.Params.Data)
		require.Len(t, req.Params.Accounts, 1)
		require.True(t, req.Params.Accounts[0].IsWritable)

		json.NewEncoder(w).Encode(JSONRPCResponse{
			JSONRPC: "2.0", ID: req.ID,
			Result: &ExecuteInstructionResult{Code: 0},
		})
	}))
	defer srv.Close()

	target, err := NewRPCTarget(srv.URL)
	require.NoError(t, err)
	require.NoError(t, target.Execute(context.Background(), ix))
}

func TestExecuteTargetCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(JSONRPCResponse{
			JSONRPC: "2.0", ID: 1,
			Result: &ExecuteInstructionResult{Code: 6001, Log: "slippage tolerance exceeded"},
		})
	}))
	defer srv.Close()

	target, err := NewRPCTarget(srv.URL)
	require.NoError(t, err)
	err = target.Execute(context.Background(), testInstruction())
	require.ErrorIs(t, err, ErrExecutionFailed)
	require.Contains(t, err.Error(), "6001")
}

func TestExecuteRPCError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(JSONRPCResponse{
			JSONRPC: "2.0", ID: 1,
			Error: &JSONRPCError{Code: -32601, Message: "method not found"},
		})
	}))
	defer srv.Close()

	target, err := NewRPCTarget(srv.URL)
	require.NoError(t, err)
	err = target.Execute(context.Background(), testInstruction())
	require.ErrorIs(t, err, ErrExecutionFailed)
}

func TestExecuteHTTPFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	target, err := NewRPCTarget(srv.URL)
	require.NoError(t, err)
	err = target.Execute(context.Background(), testInstruction())
	require.ErrorIs(t, err, ErrExecutionFailed)
}

func TestExecuteValidation(t *testing.T) {
	target, err := NewRPCTarget("http://localhost:0")
	require.NoError(t, err)

	ix := testInstruction()
	ix.Data = nil
	require.ErrorIs(t, target.Execute(context.Background(), ix), ErrEmptyPayload)

	ix = testInstruction()
	ix.Accounts = nil
	require.ErrorIs(t, target.Execute(context.Background(), ix), ErrNoAccounts)

	_, err = NewRPCTarget("")
	require.Error(t, err)
}
