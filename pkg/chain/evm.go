package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	"github.com/hsong-dev/tradegate/pkg/asset"
	"github.com/hsong-dev/tradegate/pkg/exchange"
)

// ErrSettlementFailed marks on-chain settlement failures: transport
// errors, reverts, and exceeded confirmation waits.
var ErrSettlementFailed = fmt.Errorf("on-chain settlement failed")

// settlementABI is the venue settlement contract interface: asset
// registration plus batched balance updates keyed by an idempotency
// hash. Accounts are keccak256 hashes of the venue account identifier.
const settlementABI = `[
	{"name":"registerAsset","type":"function","inputs":[
		{"name":"assetId","type":"bytes32"},
		{"name":"symbol","type":"string"},
		{"name":"decimals","type":"uint8"}],"outputs":[]},
	{"name":"unregisterAsset","type":"function","inputs":[
		{"name":"assetId","type":"bytes32"}],"outputs":[]},
	{"name":"settleBatch","type":"function","inputs":[
		{"name":"batchId","type":"bytes32"},
		{"name":"updates","type":"tuple[]","components":[
			{"name":"account","type":"bytes32"},
			{"name":"assetId","type":"bytes32"},
			{"name":"amount","type":"int256"}]}],"outputs":[]}
]`

// contractBalanceUpdate mirrors the settleBatch tuple layout.
type contractBalanceUpdate struct {
	Account [32]byte
	AssetId [32]byte
	Amount  *big.Int
}

// receiptBackend is the slice of the RPC client the confirmation wait
// needs. Narrow so tests can fake it.
type receiptBackend interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	BlockNumber(ctx context.Context) (uint64, error)
}

// Config for the EVM settlement client.
type Config struct {
	RPCURL       string
	ChainID      int64
	ContractAddr string
	// PrivateKey is the hex-encoded key of the venue's settlement
	// signer account.
	PrivateKey   string
	PollInterval time.Duration
}

// EVMSettler drives the settlement contract over an Ethereum RPC
// endpoint. It implements exchange.Settler.
type EVMSettler struct {
	client   *ethclient.Client
	backend  receiptBackend
	contract *bind.BoundContract
	opts     *bind.TransactOpts

	pollInterval time.Duration
	log          *zap.SugaredLogger
}

var _ exchange.Settler = (*EVMSettler)(nil)

// Dial connects the settlement client and prepares the keyed
// transactor.
func Dial(cfg Config, log *zap.SugaredLogger) (*EVMSettler, error) {
	client, err := ethclient.Dial(cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial settlement RPC: %w", err)
	}

	parsed, err := abi.JSON(strings.NewReader(settlementABI))
	if err != nil {
		return nil, fmt.Errorf("parse settlement ABI: %w", err)
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse settlement key: %w", err)
	}
	opts, err := bind.NewKeyedTransactorWithChainID(key, big.NewInt(cfg.ChainID))
	if err != nil {
		return nil, fmt.Errorf("build transactor: %w", err)
	}

	addr := common.HexToAddress(cfg.ContractAddr)
	poll := cfg.PollInterval
	if poll <= 0 {
		poll = 2 * time.Second
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	return &EVMSettler{
		client:       client,
		backend:      client,
		contract:     bind.NewBoundContract(addr, parsed, client, client, client),
		opts:         opts,
		pollInterval: poll,
		log:          log,
	}, nil
}

func (s *EVMSettler) Close() {
	s.client.Close()
}

// accountHash maps a venue account identifier to the bytes32 the
// contract keys balances by.
func accountHash(account string) [32]byte {
	var h [32]byte
	copy(h[:], crypto.Keccak256([]byte(account)))
	return h
}

type pendingTx struct {
	tx *types.Transaction
}

func (p *pendingTx) TxHash() string { return p.tx.Hash().Hex() }

// SubmitSettlement sends one settleBatch transaction carrying the
// balance updates, bound to the trade by the batch ID.
func (s *EVMSettler) SubmitSettlement(ctx context.Context, batchID [32]byte, updates []exchange.BalanceUpdate) (exchange.PendingSettlement, error) {
	batch := make([]contractBalanceUpdate, len(updates))
	for i, u := range updates {
		batch[i] = contractBalanceUpdate{
			Account: accountHash(u.Account),
			AssetId: u.AssetID,
			Amount:  u.Amount,
		}
	}

	opts := *s.opts
	opts.Context = ctx
	tx, err := s.contract.Transact(&opts, "settleBatch", batchID, batch)
	if err != nil {
		return nil, fmt.Errorf("%w: submit: %v", ErrSettlementFailed, err)
	}
	s.log.Infow("settlement_submitted", "tx_hash", tx.Hash().Hex(), "updates", len(batch))
	return &pendingTx{tx: tx}, nil
}

// AwaitConfirmation polls for the transaction receipt and waits until
// the head has advanced minConfirmations past the inclusion block. A
// reverted receipt is a settlement failure.
func (s *EVMSettler) AwaitConfirmation(ctx context.Context, pending exchange.PendingSettlement, minConfirmations uint64) (*exchange.SettlementReceipt, error) {
	p, ok := pending.(*pendingTx)
	if !ok {
		return nil, fmt.Errorf("%w: unknown pending handle %T", ErrSettlementFailed, pending)
	}
	if minConfirmations == 0 {
		minConfirmations = 1
	}
	return awaitReceipt(ctx, s.backend, p.tx.Hash(), minConfirmations, s.pollInterval)
}

func awaitReceipt(ctx context.Context, backend receiptBackend, txHash common.Hash, minConfirmations uint64, poll time.Duration) (*exchange.SettlementReceipt, error) {
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		receipt, err := backend.TransactionReceipt(ctx, txHash)
		switch {
		case errors.Is(err, ethereum.NotFound):
			// Not mined yet, keep polling.
		case err != nil:
			return nil, fmt.Errorf("%w: receipt: %v", ErrSettlementFailed, err)
		case receipt.Status != types.ReceiptStatusSuccessful:
			return nil, fmt.Errorf("%w: transaction reverted in block %s", ErrSettlementFailed, receipt.BlockNumber)
		default:
			head, err := backend.BlockNumber(ctx)
			if err != nil {
				return nil, fmt.Errorf("%w: head: %v", ErrSettlementFailed, err)
			}
			included := receipt.BlockNumber.Uint64()
			if head >= included && head-included+1 >= minConfirmations {
				return &exchange.SettlementReceipt{
					TxHash:      txHash.Hex(),
					BlockNumber: included,
				}, nil
			}
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: confirmation wait: %v", ErrSettlementFailed, ctx.Err())
		case <-ticker.C:
		}
	}
}

// RegisterAsset registers an asset on the settlement contract and waits
// for one confirmation.
func (s *EVMSettler) RegisterAsset(ctx context.Context, a asset.Asset) (*exchange.SettlementReceipt, error) {
	opts := *s.opts
	opts.Context = ctx
	tx, err := s.contract.Transact(&opts, "registerAsset", a.ID, a.Symbol, a.Decimals)
	if err != nil {
		return nil, fmt.Errorf("%w: register asset: %v", ErrSettlementFailed, err)
	}
	return awaitReceipt(ctx, s.backend, tx.Hash(), 1, s.pollInterval)
}

// UnregisterAsset removes an asset from the settlement contract.
func (s *EVMSettler) UnregisterAsset(ctx context.Context, assetID [32]byte) (*exchange.SettlementReceipt, error) {
	opts := *s.opts
	opts.Context = ctx
	tx, err := s.contract.Transact(&opts, "unregisterAsset", assetID)
	if err != nil {
		return nil, fmt.Errorf("%w: unregister asset: %v", ErrSettlementFailed, err)
	}
	return awaitReceipt(ctx, s.backend, tx.Hash(), 1, s.pollInterval)
}
