package ledger

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Outcome is the typed result of a partition-creation attempt. The engine
// branches on this value and never inspects error strings.
type Outcome int

const (
	// OutcomeCreated means the partition was created by this call.
	OutcomeCreated Outcome = iota
	// OutcomeAlreadyExists means the partition existed before this call.
	// Expected when recovering from a crash between chain confirmation and
	// the off-chain write; callers treat it as success.
	OutcomeAlreadyExists
)

// Error is a failed ledger call. Fatal errors abort the whole operation;
// non-fatal ones (timeouts waiting for confirmation) are retryable by the
// caller.
type Error struct {
	Fatal  bool
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ledger: %s: %v", e.Reason, e.Err)
	}
	return "ledger: " + e.Reason
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Gateway is the thin adapter over the external partitioned-token ledger.
// Every mutating call blocks until the transaction is confirmed and returns
// its reference. Contexts bound the confirmation wait; a deadline surfaces as
// a retryable *Error.
type Gateway interface {
	// CreatePartition creates the named partition, reporting
	// OutcomeAlreadyExists instead of failing when it is already present.
	CreatePartition(ctx context.Context, name string) (Outcome, string, error)

	// Issue mints amount tokens into the partition for the given address.
	// Not idempotent: callers must dedupe retries themselves.
	Issue(ctx context.Context, partition string, to string, amount int64) (string, error)

	// OperatorTransfer moves tokens between holders, signed by the platform
	// operator on behalf of the sender.
	OperatorTransfer(ctx context.Context, partition string, from, to string, amount int64) (string, error)

	// BalanceOf returns the confirmed partition balance in whole tokens.
	BalanceOf(ctx context.Context, partition string, address string) (int64, error)

	// AddToWhitelist permits the address to hold and trade tokens.
	AddToWhitelist(ctx context.Context, address string) (string, error)

	// ListPartitions returns the names of all partitions on the contract.
	ListPartitions(ctx context.Context) ([]string, error)
}

// PartitionName derives the deterministic partition namespace for a property.
func PartitionName(propertyID string) string {
	return "Sukuk_Asset_" + propertyID
}

// PartitionID is the on-chain identifier: keccak256 of the partition name.
func PartitionID(name string) common.Hash {
	return crypto.Keccak256Hash([]byte(name))
}

// tokenDecimals is the contract's fixed-point scale.
var tokenScale = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// ToChainAmount scales a whole-token count to the 18-decimal on-chain
// representation.
func ToChainAmount(tokens int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(tokens), tokenScale)
}

// FromChainAmount converts an 18-decimal on-chain value back to whole
// tokens, truncating sub-token dust.
func FromChainAmount(v *big.Int) int64 {
	if v == nil {
		return 0
	}
	return new(big.Int).Div(v, tokenScale).Int64()
}
