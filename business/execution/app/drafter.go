package app

import (
	"context"
	"math/big"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/shopspring/decimal"

	arbitrageDomain "github.com/dexter-bot/dexter/business/arbitrage/domain"
	"github.com/dexter-bot/dexter/business/execution/domain"
	"github.com/dexter-bot/dexter/internal/apperror"
	"github.com/dexter-bot/dexter/internal/asset"
	"github.com/dexter-bot/dexter/internal/logger"
)

const (
	tracerName = "execution"
	meterName  = "execution"

	defaultDeadline    = 20 * time.Minute
	gasEstimateMargin  = 10  // percent added on re-estimation
	reduceSizePercent  = 80  // value retained by a reduce_size fix
	slippageBumpPoints = 0.5 // percentage points added by raise_slippage
)

// DrafterConfig holds drafting defaults.
type DrafterConfig struct {
	// DefaultGasLimit is used when gas estimation fails.
	DefaultGasLimit uint64

	DefaultFeeTier     int
	DefaultSlippagePct decimal.Decimal
	DraftDeadline      time.Duration
}

// Drafter converts intents and opportunities into unsigned drafts. The
// wallet placeholder is resolved before any draft is returned.
type Drafter struct {
	encoder   SwapEncoder
	wallet    WalletResolver
	estimator GasEstimator
	cfg       DrafterConfig

	logger logger.LoggerInterface
	tracer trace.Tracer
}

// NewDrafter creates a Drafter.
func NewDrafter(encoder SwapEncoder, wallet WalletResolver, estimator GasEstimator,
	cfg DrafterConfig, log logger.LoggerInterface) *Drafter {
	if cfg.DraftDeadline <= 0 {
		cfg.DraftDeadline = defaultDeadline
	}
	if cfg.DefaultGasLimit == 0 {
		cfg.DefaultGasLimit = 200000
	}
	if cfg.DefaultSlippagePct.IsZero() {
		cfg.DefaultSlippagePct = decimal.RequireFromString("0.5")
	}
	return &Drafter{
		encoder:   encoder,
		wallet:    wallet,
		estimator: estimator,
		cfg:       cfg,
		logger:    log,
		tracer:    otel.Tracer(tracerName),
	}
}

// DraftFromIntent builds a draft from a structured intent.
func (d *Drafter) DraftFromIntent(ctx context.Context, intent domain.Intent) (domain.Draft, error) {
	ctx, span := d.tracer.Start(ctx, "drafter.DraftFromIntent",
		trace.WithAttributes(attribute.String("intent.kind", string(intent.Kind))))
	defer span.End()

	if err := intent.Validate(); err != nil {
		span.SetStatus(codes.Error, "invalid intent")
		return domain.Draft{}, apperror.New(apperror.CodeInvalidIntent,
			apperror.WithContext(err.Error()))
	}

	from, err := d.wallet.OwnAddress(ctx)
	if err != nil {
		span.SetStatus(codes.Error, "wallet unavailable")
		return domain.Draft{}, err
	}

	draft := domain.Draft{
		From:        from,
		SlippagePct: d.slippageFor(intent),
		CreatedAt:   time.Now(),
	}

	switch intent.Kind {
	case domain.IntentSwap:
		recipient := from
		if intent.Recipient != "" {
			recipient, err = d.wallet.Resolve(ctx, intent.Recipient)
			if err != nil {
				return domain.Draft{}, err
			}
		}
		ttl := d.cfg.DraftDeadline
		if intent.Deadline > 0 {
			ttl = intent.Deadline
		}
		to, data, value, encErr := d.encoder.EncodeSwap(
			intent.TokenIn, intent.TokenOut, intent.Amount, intent.ExpectedOut,
			draft.SlippagePct, recipient, d.cfg.DefaultFeeTier, time.Now().Add(ttl))
		if encErr != nil {
			span.SetStatus(codes.Error, "encoding failed")
			return domain.Draft{}, apperror.New(apperror.CodeInvalidIntent,
				apperror.WithContext(encErr.Error()))
		}
		draft.To, draft.Data, draft.Value = to, data, value
		draft.Kind = domain.KindSimpleSwap

	case domain.IntentTransfer:
		recipient, resErr := d.wallet.Resolve(ctx, intent.Recipient)
		if resErr != nil {
			return domain.Draft{}, resErr
		}
		to, data, value, encErr := d.encoder.EncodeTransfer(intent.TokenIn, intent.Amount, recipient)
		if encErr != nil {
			span.SetStatus(codes.Error, "encoding failed")
			return domain.Draft{}, apperror.New(apperror.CodeInvalidIntent,
				apperror.WithContext(encErr.Error()))
		}
		draft.To, draft.Data, draft.Value = to, data, value
		if len(data) == 0 {
			draft.Kind = domain.KindETHTransfer
		} else {
			draft.Kind = domain.KindERC20Transfer
		}

	case domain.IntentApprove:
		spender, resErr := d.wallet.Resolve(ctx, intent.Spender)
		if resErr != nil {
			return domain.Draft{}, resErr
		}
		to, data, encErr := d.encoder.EncodeApprove(intent.TokenIn, spender, intent.Amount)
		if encErr != nil {
			span.SetStatus(codes.Error, "encoding failed")
			return domain.Draft{}, apperror.New(apperror.CodeInvalidIntent,
				apperror.WithContext(encErr.Error()))
		}
		draft.To, draft.Data, draft.Value = to, data, big.NewInt(0)
		draft.Kind = domain.KindERC20Transfer
	}

	d.estimateGas(ctx, &draft)
	span.SetStatus(codes.Ok, "")
	return draft, nil
}

// DraftFromOpportunity builds the buy-leg swap draft for an
// opportunity: quote tokens in, base tokens out, on the buy venue's
// router.
func (d *Drafter) DraftFromOpportunity(ctx context.Context, opp *arbitrageDomain.Opportunity, amountIn *big.Int) (domain.Draft, error) {
	ctx, span := d.tracer.Start(ctx, "drafter.DraftFromOpportunity",
		trace.WithAttributes(
			attribute.String("pair", opp.Pair.String()),
			attribute.String("buy_venue", opp.BuyVenue),
		))
	defer span.End()

	if amountIn == nil || amountIn.Sign() <= 0 {
		span.SetStatus(codes.Error, "invalid amount")
		return domain.Draft{}, apperror.New(apperror.CodeInvalidIntent,
			apperror.WithContext("opportunity draft requires a positive input amount"))
	}

	from, err := d.wallet.OwnAddress(ctx)
	if err != nil {
		span.SetStatus(codes.Error, "wallet unavailable")
		return domain.Draft{}, err
	}

	// The detector sized the opportunity in base units; that is the
	// output this swap is expected to produce.
	var expectedOut *big.Int
	if baseOut, parseErr := asset.ParseDecimal(opp.Pair.Base, opp.TradeSize); parseErr == nil {
		expectedOut = baseOut.Raw()
	}

	deadline := time.Now().Add(d.cfg.DraftDeadline)
	to, data, value, err := d.encoder.EncodeSwap(
		opp.Pair.Quote.Symbol(), opp.Pair.Base.Symbol(), amountIn, expectedOut,
		d.cfg.DefaultSlippagePct, from, d.cfg.DefaultFeeTier, deadline)
	if err != nil {
		span.SetStatus(codes.Error, "encoding failed")
		return domain.Draft{}, apperror.New(apperror.CodeInvalidIntent,
			apperror.WithContext(err.Error()))
	}

	draft := domain.Draft{
		From:        from,
		To:          to,
		Value:       value,
		Data:        data,
		Kind:        domain.KindComplexSwap,
		SlippagePct: d.cfg.DefaultSlippagePct,
		Origin:      opp,
		CreatedAt:   time.Now(),
	}

	d.estimateGas(ctx, &draft)
	span.SetStatus(codes.Ok, "")
	return draft, nil
}

// Revise derives the next draft revision from evaluation feedback.
// Unknown fixes are logged and skipped; the revision counter advances
// regardless so the loop stays bounded.
func (d *Drafter) Revise(ctx context.Context, draft domain.Draft, fixes []domain.SuggestedFix) (domain.Draft, error) {
	ctx, span := d.tracer.Start(ctx, "drafter.Revise",
		trace.WithAttributes(attribute.Int("revision", draft.Revision+1)))
	defer span.End()

	next := draft.WithRevision()

	for _, fix := range fixes {
		switch fix.Kind {
		case domain.FixReduceSize:
			if next.Value != nil && next.Value.Sign() > 0 {
				next.Value.Mul(next.Value, big.NewInt(reduceSizePercent))
				next.Value.Div(next.Value, big.NewInt(100))
			}
		case domain.FixSplitValue:
			if next.Value != nil && next.Value.Sign() > 0 {
				next.Value.Div(next.Value, big.NewInt(2))
			}
		case domain.FixRaiseSlippage:
			next.SlippagePct = next.SlippagePct.Add(decimal.NewFromFloat(slippageBumpPoints))
		case domain.FixReestimateGas:
			d.estimateGas(ctx, &next)
		default:
			d.logger.Warn(ctx, "skipping unsupported fix", "fix", string(fix.Kind), "detail", fix.Detail)
		}
	}

	span.SetStatus(codes.Ok, "")
	return next, nil
}

// estimateGas fills the draft's gas limit. Estimator failure yields the
// conservative default with GasEstimated=false.
func (d *Drafter) estimateGas(ctx context.Context, draft *domain.Draft) {
	gas, err := d.estimator.EstimateGas(ctx, draft.From, draft.To, draft.ValueOrZero(), draft.Data)
	if err != nil {
		d.logger.Warn(ctx, "gas estimation failed, using default",
			"error", err, "default_gas", d.cfg.DefaultGasLimit)
		draft.GasLimit = d.cfg.DefaultGasLimit
		draft.GasEstimated = false
		return
	}
	draft.GasLimit = gas + gas*gasEstimateMargin/100
	draft.GasEstimated = true
}

func (d *Drafter) slippageFor(intent domain.Intent) decimal.Decimal {
	if intent.SlippagePct.IsPositive() {
		return intent.SlippagePct
	}
	return d.cfg.DefaultSlippagePct
}
