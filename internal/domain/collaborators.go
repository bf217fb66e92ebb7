package domain

import (
	"context"

	"github.com/google/uuid"
)

// AccountDirectory defines the interface for the external account
// lookup collaborator. Balances it returns are snapshots that may be
// stale; freshness is the caller's concern and the core never mutates
// them.
type AccountDirectory interface {
	// GetAccountSnapshot retrieves a point-in-time copy of an account
	GetAccountSnapshot(ctx context.Context, id uuid.UUID) (*Account, error)
}

// TransferGateway defines the interface for the remote service that
// creates the partner authorization and executes the transfer.
type TransferGateway interface {
	// ExecuteTransfer performs the transfer as a single logical call,
	// even if the backend performs multiple steps internally.
	// Failures may be a *GatewayError carrying the backend's raw code
	// and message.
	ExecuteTransfer(ctx context.Context, req *TransferRequest) (*GatewayResult, error)
}
