package app

import (
	"context"
	"time"

	"github.com/dexter-bot/dexter/business/arbitrage/domain"
	blockchainApp "github.com/dexter-bot/dexter/business/blockchain/app"
	blockchainDomain "github.com/dexter-bot/dexter/business/blockchain/domain"
	pricingApp "github.com/dexter-bot/dexter/business/pricing/app"
	pricingDomain "github.com/dexter-bot/dexter/business/pricing/domain"
	"github.com/dexter-bot/dexter/internal/asset"
	"github.com/dexter-bot/dexter/internal/logger"
	"github.com/shopspring/decimal"
)

// ScannerConfig holds configuration for the arbitrage scanner.
type ScannerConfig struct {
	Pairs       []pricingDomain.Pair
	TradeSizes  []decimal.Decimal
	ScanTimeout time.Duration // deadline for one full scan

	// AutoDraft runs the top opportunity of every scan through the
	// drafting and evaluation loop. Nothing is submitted either way.
	AutoDraft bool
}

// Scanner drives detection: on every new block it fans quote fetches
// out across venues and runs the detector over the results.
type Scanner struct {
	blockchain *blockchainApp.BlockchainService
	aggregator *pricingApp.Aggregator
	detector   *Detector
	reporter   Reporter
	drafter    OpportunityDrafter // nil unless AutoDraft
	validator  DraftValidator     // nil unless AutoDraft
	config     ScannerConfig
	logger     logger.LoggerInterface
}

// NewScanner creates a new arbitrage Scanner. drafter and validator
// may be nil when AutoDraft is off.
func NewScanner(
	blockchain *blockchainApp.BlockchainService,
	aggregator *pricingApp.Aggregator,
	detector *Detector,
	reporter Reporter,
	drafter OpportunityDrafter,
	validator DraftValidator,
	config ScannerConfig,
	log logger.LoggerInterface,
) *Scanner {
	if config.ScanTimeout <= 0 {
		config.ScanTimeout = 15 * time.Second
	}
	if drafter == nil || validator == nil {
		config.AutoDraft = false
	}
	return &Scanner{
		blockchain: blockchain,
		aggregator: aggregator,
		detector:   detector,
		reporter:   reporter,
		drafter:    drafter,
		validator:  validator,
		config:     config,
		logger:     log,
	}
}

// Start begins the scan loop.
func (s *Scanner) Start(ctx context.Context) error {
	s.logger.Info(ctx, "starting arbitrage scanner",
		"pairs", len(s.config.Pairs),
		"trade_sizes", len(s.config.TradeSizes))

	blocks, err := s.blockchain.SubscribeBlocks(ctx)
	if err != nil {
		return err
	}

	if err := s.reporter.Start(ctx); err != nil {
		return err
	}

	go s.run(ctx, blocks)

	return nil
}

func (s *Scanner) run(ctx context.Context, blocks <-chan *blockchainDomain.Block) {
	for {
		select {
		case <-ctx.Done():
			s.logger.Info(ctx, "scanner stopping", "reason", ctx.Err())
			return
		case block, ok := <-blocks:
			if !ok {
				return
			}
			if block != nil {
				s.onNewBlock(ctx, block)
			}
		}
	}
}

func (s *Scanner) onNewBlock(ctx context.Context, block *blockchainDomain.Block) {
	ctx, cancel := context.WithTimeout(ctx, s.config.ScanTimeout)
	defer cancel()

	s.logger.Debug(ctx, "scanning block", "number", block.Number, "hash", block.Hash.Hex())
	s.reporter.UpdateConnectionStatus("ethereum", s.blockchain.ConnectionState() == blockchainDomain.StateConnected)

	for _, pair := range s.config.Pairs {
		for _, tradeSize := range s.config.TradeSizes {
			if ctx.Err() != nil {
				return
			}
			s.scanPair(ctx, pair, tradeSize)
		}
	}
}

func (s *Scanner) scanPair(ctx context.Context, pair pricingDomain.Pair, tradeSize decimal.Decimal) {
	size, err := asset.ParseDecimal(pair.Base, tradeSize)
	if err != nil {
		s.logger.Error(ctx, "bad trade size", "pair", pair.String(), "size", tradeSize.String(), "error", err)
		return
	}

	quotes := s.aggregator.FetchAll(ctx, pair, size)
	s.reporter.UpdateQuotes(pair, quotes)
	if len(quotes) < 2 {
		return // need at least two venues to cross
	}

	opps := s.detector.FindOpportunities(ctx, quotes, tradeSize)
	for i := range opps {
		s.reporter.Report(&opps[i])
	}

	if s.config.AutoDraft && len(opps) > 0 {
		s.validateOpportunity(ctx, &opps[0])
	}
}

// validateOpportunity drafts the buy leg of an opportunity and runs it
// through the evaluation loop, reporting the outcome. The input amount
// is the quote currency spent buying the trade size at the buy price.
func (s *Scanner) validateOpportunity(ctx context.Context, opp *domain.Opportunity) {
	spend, err := asset.ParseDecimal(opp.Pair.Quote, opp.TradeSize.Mul(opp.BuyPrice))
	if err != nil {
		s.logger.Error(ctx, "cannot size opportunity draft",
			"route", opp.Route(), "error", err)
		return
	}

	draft, err := s.drafter.DraftFromOpportunity(ctx, opp, spend.Raw())
	if err != nil {
		s.logger.Error(ctx, "opportunity draft failed",
			"route", opp.Route(), "error", err)
		return
	}

	outcome, err := s.validator.RunLoop(ctx, draft)
	if err != nil {
		s.logger.Error(ctx, "draft validation failed",
			"route", opp.Route(), "error", err)
		return
	}

	s.logger.Info(ctx, "opportunity draft validated",
		"route", opp.Route(),
		"state", string(outcome.State),
		"rounds", outcome.Rounds)
	s.reporter.ReportValidation(opp, outcome)
}

// Stop gracefully shuts down the scanner.
func (s *Scanner) Stop() error {
	return s.reporter.Stop()
}
