/*

Boundary to the external, untrusted swap target. The core forwards an
opaque instruction envelope and observes nothing of the target's behavior
beyond the pre/post balances of accounts it explicitly tracks.

*/

package swaptarget

import (
	"context"
	"errors"

	"github.com/vaultguard/gvm/internal/types"
)

// Error definitions for zero-tolerance error handling
var (
	ErrExecutionFailed = errors.New("swap target execution failed")
	ErrEmptyPayload    = errors.New("instruction payload is empty")
	ErrNoAccounts      = errors.New("instruction account list is empty")
)

// Target executes a forwarded instruction against the supplied accounts.
// A returned error aborts the entire enclosing vault operation.
type Target interface {
	Execute(ctx context.Context, ix types.ForwardInstruction) error
}
