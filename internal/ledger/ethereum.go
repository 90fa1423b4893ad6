package ledger

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// NodeClient is the subset of ethclient.Client the gateway needs, kept as an
// interface so tests can fake the node.
type NodeClient interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// tokenABI is the surface of the partitioned security-token contract the
// platform operates against.
const tokenABI = `[
	{"name":"createPartition","type":"function","stateMutability":"nonpayable","inputs":[{"name":"name","type":"string"}],"outputs":[]},
	{"name":"issueByPartition","type":"function","stateMutability":"nonpayable","inputs":[{"name":"partition","type":"bytes32"},{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[]},
	{"name":"operatorTransferByPartition","type":"function","stateMutability":"nonpayable","inputs":[{"name":"partition","type":"bytes32"},{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[]},
	{"name":"balanceOfByPartition","type":"function","stateMutability":"view","inputs":[{"name":"partition","type":"bytes32"},{"name":"holder","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"name":"addToWhitelist","type":"function","stateMutability":"nonpayable","inputs":[{"name":"account","type":"address"}],"outputs":[]},
	{"name":"listPartitions","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string[]"}]}
]`

const (
	txGasLimit   = 500_000
	pollInterval = 2 * time.Second
)

// EthGateway talks to the token contract through a JSON-RPC node, signing
// operator transactions with the platform key and waiting for confirmation.
type EthGateway struct {
	client   NodeClient
	contract common.Address
	key      *ecdsa.PrivateKey
	operator common.Address
	chainID  *big.Int
	abi      abi.ABI
}

// NewEthGateway builds a gateway for the given contract address and operator
// key (hex, no 0x prefix).
func NewEthGateway(client NodeClient, contractAddress, operatorKeyHex string, chainID int64) (*EthGateway, error) {
	if !common.IsHexAddress(contractAddress) {
		return nil, errors.New("invalid contract address")
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(operatorKeyHex, "0x"))
	if err != nil {
		return nil, err
	}
	parsed, err := abi.JSON(strings.NewReader(tokenABI))
	if err != nil {
		return nil, err
	}
	return &EthGateway{
		client:   client,
		contract: common.HexToAddress(contractAddress),
		key:      key,
		operator: crypto.PubkeyToAddress(key.PublicKey),
		chainID:  big.NewInt(chainID),
		abi:      parsed,
	}, nil
}

func (g *EthGateway) CreatePartition(ctx context.Context, name string) (Outcome, string, error) {
	data, err := g.abi.Pack("createPartition", name)
	if err != nil {
		return 0, "", &Error{Fatal: true, Reason: "pack createPartition", Err: err}
	}
	// Simulate first so a revert surfaces before any gas is spent. The
	// revert text is inspected only here, at the edge; the engine sees a
	// typed outcome.
	if err := g.simulate(ctx, data); err != nil {
		if isAlreadyExists(err) {
			return OutcomeAlreadyExists, "", nil
		}
		return 0, "", classify(err, "createPartition reverted")
	}
	txRef, err := g.sendAndConfirm(ctx, data)
	if err != nil {
		return 0, "", err
	}
	return OutcomeCreated, txRef, nil
}

func (g *EthGateway) Issue(ctx context.Context, partition string, to string, amount int64) (string, error) {
	data, err := g.abi.Pack("issueByPartition", PartitionID(partition), common.HexToAddress(to), ToChainAmount(amount))
	if err != nil {
		return "", &Error{Fatal: true, Reason: "pack issueByPartition", Err: err}
	}
	return g.sendAndConfirm(ctx, data)
}

func (g *EthGateway) OperatorTransfer(ctx context.Context, partition string, from, to string, amount int64) (string, error) {
	data, err := g.abi.Pack("operatorTransferByPartition",
		PartitionID(partition), common.HexToAddress(from), common.HexToAddress(to), ToChainAmount(amount))
	if err != nil {
		return "", &Error{Fatal: true, Reason: "pack operatorTransferByPartition", Err: err}
	}
	return g.sendAndConfirm(ctx, data)
}

func (g *EthGateway) BalanceOf(ctx context.Context, partition string, address string) (int64, error) {
	data, err := g.abi.Pack("balanceOfByPartition", PartitionID(partition), common.HexToAddress(address))
	if err != nil {
		return 0, &Error{Fatal: true, Reason: "pack balanceOfByPartition", Err: err}
	}
	out, err := g.call(ctx, data)
	if err != nil {
		return 0, classify(err, "balanceOfByPartition failed")
	}
	values, err := g.abi.Unpack("balanceOfByPartition", out)
	if err != nil {
		return 0, &Error{Fatal: true, Reason: "unpack balance", Err: err}
	}
	raw, ok := values[0].(*big.Int)
	if !ok {
		return 0, &Error{Fatal: true, Reason: "unexpected balance type"}
	}
	return FromChainAmount(raw), nil
}

func (g *EthGateway) AddToWhitelist(ctx context.Context, address string) (string, error) {
	data, err := g.abi.Pack("addToWhitelist", common.HexToAddress(address))
	if err != nil {
		return "", &Error{Fatal: true, Reason: "pack addToWhitelist", Err: err}
	}
	return g.sendAndConfirm(ctx, data)
}

func (g *EthGateway) ListPartitions(ctx context.Context) ([]string, error) {
	data, err := g.abi.Pack("listPartitions")
	if err != nil {
		return nil, &Error{Fatal: true, Reason: "pack listPartitions", Err: err}
	}
	out, err := g.call(ctx, data)
	if err != nil {
		return nil, classify(err, "listPartitions failed")
	}
	values, err := g.abi.Unpack("listPartitions", out)
	if err != nil {
		return nil, &Error{Fatal: true, Reason: "unpack partitions", Err: err}
	}
	names, ok := values[0].([]string)
	if !ok {
		return nil, &Error{Fatal: true, Reason: "unexpected partitions type"}
	}
	return names, nil
}

func (g *EthGateway) call(ctx context.Context, data []byte) ([]byte, error) {
	return g.client.CallContract(ctx, ethereum.CallMsg{
		From: g.operator,
		To:   &g.contract,
		Data: data,
	}, nil)
}

func (g *EthGateway) simulate(ctx context.Context, data []byte) error {
	_, err := g.call(ctx, data)
	return err
}

// sendAndConfirm signs an operator transaction, broadcasts it and polls until
// it is mined or ctx expires. A reverted receipt is fatal; an expired ctx is
// retryable.
func (g *EthGateway) sendAndConfirm(ctx context.Context, data []byte) (string, error) {
	nonce, err := g.client.PendingNonceAt(ctx, g.operator)
	if err != nil {
		return "", classify(err, "fetch nonce")
	}
	gasPrice, err := g.client.SuggestGasPrice(ctx)
	if err != nil {
		return "", classify(err, "suggest gas price")
	}
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &g.contract,
		Gas:      txGasLimit,
		GasPrice: gasPrice,
		Data:     data,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(g.chainID), g.key)
	if err != nil {
		return "", &Error{Fatal: true, Reason: "sign transaction", Err: err}
	}
	if err := g.client.SendTransaction(ctx, signed); err != nil {
		return "", classify(err, "broadcast transaction")
	}

	hash := signed.Hash()
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		receipt, err := g.client.TransactionReceipt(ctx, hash)
		if err == nil {
			if receipt.Status == types.ReceiptStatusFailed {
				return "", &Error{Fatal: true, Reason: "transaction reverted"}
			}
			return hash.Hex(), nil
		}
		select {
		case <-ctx.Done():
			return "", &Error{Fatal: false, Reason: "confirmation timed out", Err: ctx.Err()}
		case <-ticker.C:
		}
	}
}

// isAlreadyExists matches the contract's duplicate-partition revert reason.
func isAlreadyExists(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "already exists") || strings.Contains(msg, "partition exists")
}

func classify(err error, reason string) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &Error{Fatal: false, Reason: reason, Err: err}
	}
	return &Error{Fatal: true, Reason: reason, Err: err}
}
