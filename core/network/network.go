package network

import (
	"context"

	"github.com/gagliardetto/solana-go"
)

// SendOptions configures a single transaction submission
type SendOptions struct {
	SkipPreflight bool
	// MaxRetries is how many times the receiving node rebroadcasts the transaction
	MaxRetries uint
	Encoding   solana.EncodingType
}

// Commitment level reported for a signature
type Commitment string

const (
	CommitmentNone      Commitment = ""
	CommitmentProcessed Commitment = "processed"
	CommitmentConfirmed Commitment = "confirmed"
	CommitmentFinalized Commitment = "finalized"
)

// SignatureStatus is network view of a submitted transaction. Err is non nil
// when the transaction landed but failed.
type SignatureStatus struct {
	Slot       uint64
	Commitment Commitment
	Err        interface{}
}

type Sender interface {
	Send(ctx context.Context, tx *solana.Transaction, opts SendOptions) (solana.Signature, error)
}

type StatusQuerier interface {
	// SignatureStatuses returns statuses positionally, nil for signatures the network has not seen.
	// Callers must not pass more signatures than the protocol ceiling.
	SignatureStatuses(ctx context.Context, signatures []solana.Signature) ([]*SignatureStatus, error)
}

// Network is everything the upload pipeline needs from the ledger
type Network interface {
	Sender
	StatusQuerier

	LatestBlockhash(ctx context.Context) (solana.Hash, error)
	// MinimumBalance returns lamports needed to keep account of size bytes alive
	MinimumBalance(ctx context.Context, size uint64) (uint64, error)
	AccountExists(ctx context.Context, account solana.PublicKey) (bool, error)
}
