package randomness

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// Oracle is the verifiable randomness provider. SubmitRequest must return
// without delivering: words always arrive later through a Router.
type Oracle interface {
	SubmitRequest(ctx context.Context, numWords uint32) (RequestID, error)
	// Identity is the only caller allowed to deliver words
	Identity() common.Address
}
