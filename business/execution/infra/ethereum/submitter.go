package ethereum

import (
	"context"
	"math/big"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/dexter-bot/dexter/business/execution/domain"
	"github.com/dexter-bot/dexter/internal/apperror"
	"github.com/dexter-bot/dexter/internal/logger"
)

const tracerName = "execution.ethereum"

// Submitter signs and broadcasts finalized drafts as EIP-1559
// transactions. It is an external-collaborator surface: the evaluation
// loop never calls it.
type Submitter struct {
	client  *ethclient.Client
	wallet  *WalletResolver
	chainID *big.Int

	logger logger.LoggerInterface
	tracer trace.Tracer
}

// NewSubmitter creates a Submitter for the given chain.
func NewSubmitter(client *ethclient.Client, wallet *WalletResolver, chainID uint64, log logger.LoggerInterface) *Submitter {
	return &Submitter{
		client:  client,
		wallet:  wallet,
		chainID: new(big.Int).SetUint64(chainID),
		logger:  log,
		tracer:  otel.Tracer(tracerName),
	}
}

// Submit signs the draft and sends it. The private key never leaves the
// wallet resolver and is never logged.
func (s *Submitter) Submit(ctx context.Context, draft domain.Draft) (common.Hash, error) {
	ctx, span := s.tracer.Start(ctx, "submitter.Submit",
		trace.WithAttributes(
			attribute.String("to", draft.To.Hex()),
			attribute.Int64("gas_limit", int64(draft.GasLimit)),
		))
	defer span.End()

	key, err := s.wallet.PrivateKey()
	if err != nil {
		span.SetStatus(codes.Error, "no signing key")
		return common.Hash{}, err
	}

	from, err := s.wallet.OwnAddress(ctx)
	if err != nil {
		return common.Hash{}, err
	}

	nonce, err := s.client.PendingNonceAt(ctx, from)
	if err != nil {
		span.SetStatus(codes.Error, "nonce fetch failed")
		return common.Hash{}, apperror.New(apperror.CodeEthereumRPCError,
			apperror.WithContext(err.Error()))
	}

	tip, err := s.client.SuggestGasTipCap(ctx)
	if err != nil {
		span.SetStatus(codes.Error, "tip fetch failed")
		return common.Hash{}, apperror.New(apperror.CodeEthereumRPCError,
			apperror.WithContext(err.Error()))
	}

	head, err := s.client.HeaderByNumber(ctx, nil)
	if err != nil {
		span.SetStatus(codes.Error, "head fetch failed")
		return common.Hash{}, apperror.New(apperror.CodeEthereumRPCError,
			apperror.WithContext(err.Error()))
	}

	// maxFee = 2*baseFee + tip absorbs base fee growth over the next
	// few blocks.
	feeCap := new(big.Int).Add(
		new(big.Int).Mul(head.BaseFee, big.NewInt(2)),
		tip,
	)

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   s.chainID,
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		Gas:       draft.GasLimit,
		To:        &draft.To,
		Value:     draft.ValueOrZero(),
		Data:      draft.Data,
	})

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(s.chainID), key)
	if err != nil {
		span.SetStatus(codes.Error, "signing failed")
		return common.Hash{}, apperror.New(apperror.CodeTransactionFailed,
			apperror.WithContext(err.Error()))
	}

	if err := s.client.SendTransaction(ctx, signed); err != nil {
		span.SetStatus(codes.Error, "broadcast failed")
		return common.Hash{}, apperror.New(apperror.CodeTransactionFailed,
			apperror.WithContext(err.Error()))
	}

	hash := signed.Hash()
	s.logger.Info(ctx, "transaction submitted",
		"hash", hash.Hex(), "nonce", nonce, "gas_limit", draft.GasLimit)
	span.SetAttributes(attribute.String("tx_hash", hash.Hex()))
	span.SetStatus(codes.Ok, "")
	return hash, nil
}
