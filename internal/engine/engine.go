// Package engine runs the live pipeline: market data polling, signal
// generation, trade execution and online model updates as four cooperating
// workers connected by bounded channels.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"tradefusion/internal/classifier"
	"tradefusion/internal/fusion"
	"tradefusion/internal/indicators"
	"tradefusion/internal/levels"
	"tradefusion/models"
)

// MarketData supplies candles and symbol snapshots.
type MarketData interface {
	GetCandles(ctx context.Context, symbol, timeframe string, count int) ([]models.Candle, error)
	GetSymbolInfo(ctx context.Context, symbol string) (models.SymbolInfo, error)
}

// MarketStream pushes finalized bars as they close. Optional: a MarketData
// source that also implements MarketStream can drive the pipeline in
// streaming mode instead of polling.
type MarketStream interface {
	StreamCandles(ctx context.Context, symbol, timeframe string) <-chan models.Candle
}

// Broker executes orders.
type Broker interface {
	GetAccountInfo(ctx context.Context) (models.AccountInfo, error)
	PlaceOrder(ctx context.Context, order models.OrderRequest) (models.TradeResult, error)
}

// Notifier delivers signal alerts.
type Notifier interface {
	NotifySignal(sig models.Signal) error
}

// SignalStore persists pipeline output.
type SignalStore interface {
	SaveCandles(symbol, timeframe string, candles []models.Candle) error
	SaveSignal(sig models.Signal) error
	SaveTrade(signalID string, req models.OrderRequest, result models.TradeResult) error
}

// Recorder counts pipeline events.
type Recorder interface {
	CandlesFetched(n int)
	SignalGenerated(signalType string, confidence float64)
	OrderPlaced(side string)
	OnlineUpdate(applied bool)
	LastPrice(price float64)
	ModelVersion(version int)
}

// Options configures the pipeline.
type Options struct {
	Symbol         string
	Timeframe      string
	CandleCount    int
	PollInterval   time.Duration
	UpdateInterval time.Duration
	// UseStream switches ingestion from interval polling to the market
	// data source's websocket stream when the source supports it.
	UseStream      bool
	AutoTrade      bool
	ExecConfidence float64
	RiskPercent    float64
	QueueSize      int
}

// Pipeline wires the workers together. Store and Notifier may be nil; the
// pipeline then runs without persistence or alerting.
type Pipeline struct {
	opts       Options
	market     MarketData
	broker     Broker
	classifier *classifier.Classifier
	indicators *indicators.Engine
	levels     *levels.Detector
	fusion     *fusion.Engine
	store      SignalStore
	notifier   Notifier
	metrics    Recorder
	logger     zerolog.Logger

	// latest enriched series for the model updater, written by the
	// signal generator
	mu     sync.Mutex
	latest *models.FeatureSeries
}

// New assembles a pipeline from its components.
func New(
	opts Options,
	market MarketData,
	broker Broker,
	cls *classifier.Classifier,
	ind *indicators.Engine,
	lvl *levels.Detector,
	fus *fusion.Engine,
	store SignalStore,
	notifier Notifier,
	metrics Recorder,
	logger zerolog.Logger,
) *Pipeline {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Minute
	}
	if opts.UpdateInterval <= 0 {
		opts.UpdateInterval = 5 * time.Minute
	}
	return &Pipeline{
		opts:       opts,
		market:     market,
		broker:     broker,
		classifier: cls,
		indicators: ind,
		levels:     lvl,
		fusion:     fus,
		store:      store,
		notifier:   notifier,
		metrics:    metrics,
		logger:     logger,
	}
}

// Run starts the four workers and blocks until ctx is cancelled and all
// workers have drained.
func (p *Pipeline) Run(ctx context.Context) {
	candleCh := make(chan []models.Candle, p.opts.QueueSize)
	signalCh := make(chan models.Signal, p.opts.QueueSize)

	var wg sync.WaitGroup
	wg.Add(4)
	go func() {
		defer wg.Done()
		if p.opts.UseStream {
			if stream, ok := p.market.(MarketStream); ok {
				p.streamMarketData(ctx, stream, candleCh)
				return
			}
			p.logger.Warn().Msg("Market data source cannot stream, falling back to polling")
		}
		p.pollMarketData(ctx, candleCh)
	}()
	go func() {
		defer wg.Done()
		p.generateSignals(ctx, candleCh, signalCh)
	}()
	go func() {
		defer wg.Done()
		p.executeTrades(ctx, signalCh)
	}()
	go func() {
		defer wg.Done()
		p.updateModel(ctx)
	}()

	p.logger.Info().
		Str("symbol", p.opts.Symbol).
		Str("timeframe", p.opts.Timeframe).
		Dur("poll_interval", p.opts.PollInterval).
		Bool("auto_trade", p.opts.AutoTrade).
		Msg("Pipeline started")
	wg.Wait()
	p.logger.Info().Msg("Pipeline stopped")
}

// pollMarketData fetches fresh candles on a fixed interval and feeds the
// signal generator. When the queue is full the batch is dropped; the next
// poll supersedes it anyway.
func (p *Pipeline) pollMarketData(ctx context.Context, out chan<- []models.Candle) {
	defer close(out)

	ticker := time.NewTicker(p.opts.PollInterval)
	defer ticker.Stop()

	poll := func() {
		candles, err := p.market.GetCandles(ctx, p.opts.Symbol, p.opts.Timeframe, p.opts.CandleCount)
		if err != nil {
			p.logger.Error().Err(err).Msg("Failed to fetch candles")
			return
		}
		if len(candles) == 0 {
			p.logger.Warn().Msg("Data feed returned no candles")
			return
		}
		if p.metrics != nil {
			p.metrics.CandlesFetched(len(candles))
			p.metrics.LastPrice(candles[len(candles)-1].Close)
		}
		if p.store != nil {
			if err := p.store.SaveCandles(p.opts.Symbol, p.opts.Timeframe, candles); err != nil {
				p.logger.Error().Err(err).Msg("Failed to persist candles")
			}
		}
		select {
		case out <- candles:
		default:
			p.logger.Warn().Msg("Candle queue full, dropping batch")
		}
	}

	poll()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			poll()
		}
	}
}

// streamMarketData drives the signal generator from the gateway's candle
// stream. The analysis window is seeded with one history fetch, then each
// finalized bar is folded into it; a bar repeating the last timestamp is a
// correction and replaces it.
func (p *Pipeline) streamMarketData(ctx context.Context, stream MarketStream, out chan<- []models.Candle) {
	defer close(out)

	window, err := p.market.GetCandles(ctx, p.opts.Symbol, p.opts.Timeframe, p.opts.CandleCount)
	if err != nil {
		p.logger.Error().Err(err).Msg("Failed to seed candle window, starting empty")
		window = nil
	}
	p.logger.Info().Int("seed_candles", len(window)).Msg("Streaming market data")

	for candle := range stream.StreamCandles(ctx, p.opts.Symbol, p.opts.Timeframe) {
		window = foldCandle(window, candle, p.opts.CandleCount)

		if p.metrics != nil {
			p.metrics.CandlesFetched(1)
			p.metrics.LastPrice(candle.Close)
		}
		if p.store != nil {
			if err := p.store.SaveCandles(p.opts.Symbol, p.opts.Timeframe, []models.Candle{candle}); err != nil {
				p.logger.Error().Err(err).Msg("Failed to persist candle")
			}
		}

		batch := make([]models.Candle, len(window))
		copy(batch, window)
		select {
		case out <- batch:
		default:
			p.logger.Warn().Msg("Candle queue full, dropping batch")
		}
	}
}

// foldCandle appends a bar to the rolling window, replacing the last bar on
// a repeated timestamp and trimming the front beyond max.
func foldCandle(window []models.Candle, candle models.Candle, max int) []models.Candle {
	if n := len(window); n > 0 && window[n-1].Timestamp.Equal(candle.Timestamp) {
		window[n-1] = candle
		return window
	}
	window = append(window, candle)
	if max > 0 && len(window) > max {
		window = window[len(window)-max:]
	}
	return window
}

// generateSignals turns each candle batch into a fused signal. Only
// actionable signals are forwarded to the executor.
func (p *Pipeline) generateSignals(ctx context.Context, in <-chan []models.Candle, out chan<- models.Signal) {
	defer close(out)

	for candles := range in {
		sig := p.evaluate(ctx, candles)

		if p.metrics != nil {
			p.metrics.SignalGenerated(string(sig.Type), sig.Confidence)
		}
		if p.store != nil {
			if err := p.store.SaveSignal(sig); err != nil {
				p.logger.Error().Err(err).Str("signal_id", sig.ID).Msg("Failed to persist signal")
			}
		}
		if p.notifier != nil && sig.Type.Actionable() {
			if err := p.notifier.NotifySignal(sig); err != nil {
				p.logger.Error().Err(err).Msg("Failed to send alert")
			}
		}
		if !sig.Type.Actionable() {
			continue
		}
		select {
		case out <- sig:
		case <-ctx.Done():
			return
		}
	}
}

// evaluate runs the full analysis chain on one candle batch.
func (p *Pipeline) evaluate(ctx context.Context, candles []models.Candle) models.Signal {
	fs := p.indicators.Enrich(candles)

	p.mu.Lock()
	p.latest = fs
	p.mu.Unlock()

	lv := p.levels.DetectSupportResistance(fs.Candles)
	pred := p.classifier.Predict(fs)
	if p.metrics != nil {
		p.metrics.ModelVersion(pred.ModelVersion)
	}

	snapshot, err := p.market.GetSymbolInfo(ctx, p.opts.Symbol)
	if err != nil {
		p.logger.Warn().Err(err).Msg("Symbol snapshot unavailable, using last close")
		snapshot = models.SymbolInfo{Symbol: p.opts.Symbol, Close: fs.LastClose()}
	}

	sig := p.fusion.Generate(pred, fs, snapshot, lv)
	sig.Timeframe = p.opts.Timeframe
	p.logger.Info().
		Str("signal_type", string(sig.Type)).
		Float64("confidence", sig.Confidence).
		Str("ai_signal", string(pred.Signal)).
		Msg("Signal generated")
	return sig
}

// executeTrades places orders for signals clearing the execution threshold.
func (p *Pipeline) executeTrades(ctx context.Context, in <-chan models.Signal) {
	for sig := range in {
		if !p.opts.AutoTrade {
			p.logger.Info().Str("signal_id", sig.ID).Msg("Auto-trade disabled, signal not executed")
			continue
		}
		if sig.Confidence < p.opts.ExecConfidence {
			p.logger.Debug().
				Float64("confidence", sig.Confidence).
				Float64("threshold", p.opts.ExecConfidence).
				Msg("Signal below execution threshold")
			continue
		}
		p.execute(ctx, sig)
	}
}

func (p *Pipeline) execute(ctx context.Context, sig models.Signal) {
	account, err := p.broker.GetAccountInfo(ctx)
	if err != nil {
		p.logger.Error().Err(err).Msg("Failed to fetch account info")
		return
	}
	symbol, err := p.market.GetSymbolInfo(ctx, sig.Symbol)
	if err != nil {
		p.logger.Error().Err(err).Msg("Failed to fetch symbol info")
		return
	}

	volume := PositionSize(account.Balance, p.opts.RiskPercent, *sig.EntryPrice, *sig.StopLoss, symbol)
	if volume <= 0 {
		p.logger.Warn().Str("signal_id", sig.ID).Msg("Position size rounded to zero, skipping trade")
		return
	}

	side := models.OrderBuy
	if sig.Type.IsShort() {
		side = models.OrderSell
	}
	order := models.OrderRequest{
		Symbol:     sig.Symbol,
		Side:       side,
		Volume:     volume,
		Price:      *sig.EntryPrice,
		StopLoss:   *sig.StopLoss,
		TakeProfit: *sig.TakeProfit,
		Comment:    sig.ID,
	}

	result, err := p.broker.PlaceOrder(ctx, order)
	if err != nil {
		p.logger.Error().Err(err).Str("signal_id", sig.ID).Msg("Order placement failed")
		return
	}
	if p.metrics != nil {
		p.metrics.OrderPlaced(string(side))
	}
	if p.store != nil {
		if err := p.store.SaveTrade(sig.ID, order, result); err != nil {
			p.logger.Error().Err(err).Int64("ticket", result.Ticket).Msg("Failed to persist trade")
		}
	}
}

// updateModel periodically refines the classifier on the newest bars.
func (p *Pipeline) updateModel(ctx context.Context) {
	ticker := time.NewTicker(p.opts.UpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.mu.Lock()
			fs := p.latest
			p.mu.Unlock()
			if fs == nil {
				continue
			}

			result := p.classifier.OnlineUpdate(fs)
			applied := result.Loss != nil
			if p.metrics != nil {
				p.metrics.OnlineUpdate(applied)
			}
			if applied {
				p.logger.Info().
					Float64("loss", *result.Loss).
					Float64("accuracy", *result.Accuracy).
					Msg("Online model update applied")
			}
		}
	}
}
