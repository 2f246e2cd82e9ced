package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"tradefusion/config"
	"tradefusion/internal/classifier"
	"tradefusion/internal/database"
	"tradefusion/internal/engine"
	"tradefusion/internal/fusion"
	"tradefusion/internal/gateway"
	"tradefusion/internal/indicators"
	"tradefusion/internal/levels"
	"tradefusion/internal/metrics"
	"tradefusion/internal/notify"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	setupLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := classifier.NewFileStore(cfg.ModelDir)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open model store")
	}
	cls, err := classifier.New(classifier.Config{
		FeatureColumns:  cfg.FeatureColumns,
		SequenceLength:  cfg.SequenceLength,
		HiddenSize:      cfg.HiddenSize,
		LearningRate:    cfg.LearningRate,
		DropoutRate:     cfg.DropoutRate,
		Epochs:          cfg.Epochs,
		BatchSize:       cfg.BatchSize,
		ValidationSplit: cfg.ValidationSplit,
	}, store, log.With().Str("component", "classifier").Logger())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize classifier")
	}

	client := gateway.NewClient(gateway.ClientOptions{
		BaseURL:        cfg.GatewayURL,
		WSURL:          cfg.GatewayWSURL,
		APIKey:         cfg.GatewayAPIKey,
		RequestTimeout: time.Duration(cfg.RequestTimeout) * time.Second,
	})

	var signalStore engine.SignalStore
	if cfg.DBHost != "" {
		db, err := database.New(database.ConnectionParams{
			Host:     cfg.DBHost,
			Port:     cfg.DBPort,
			User:     cfg.DBUser,
			Password: cfg.DBPassword,
			DBName:   cfg.DBName,
			SSLMode:  cfg.DBSSLMode,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to database")
		}
		defer db.Close()
		signalStore = db
		logStoredState(db, cfg.Symbol)
	} else {
		log.Warn().Msg("DB_HOST not set, running without persistence")
	}

	notifier, err := notify.NewTelegram(cfg.TelegramToken, cfg.TelegramChatID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize telegram alerting")
	}

	rec, registry := metrics.New()
	go metrics.Serve(ctx, cfg.MetricsAddr, registry, log.With().Str("component", "metrics").Logger())

	pipeline := engine.New(
		engine.Options{
			Symbol:         cfg.Symbol,
			Timeframe:      cfg.Timeframe,
			CandleCount:    cfg.CandleCount,
			PollInterval:   cfg.PollInterval,
			UpdateInterval: cfg.UpdateInterval,
			UseStream:      cfg.UseStream,
			AutoTrade:      cfg.AutoTrade,
			ExecConfidence: cfg.ExecConfidence,
			RiskPercent:    cfg.RiskPercent,
			QueueSize:      cfg.QueueSize,
		},
		client,
		client,
		cls,
		indicators.New(indicatorConfig(cfg), log.With().Str("component", "indicators").Logger()),
		levels.New(cfg.LevelWindow, cfg.LevelTouches, cfg.LevelTolerance, log.With().Str("component", "levels").Logger()),
		fusion.New(cfg.MinConfidence, cfg.RiskReward, log.With().Str("component", "fusion").Logger()),
		signalStore,
		notifier,
		rec,
		log.With().Str("component", "engine").Logger(),
	)

	pipeline.Run(ctx)
}

// logStoredState surfaces where the previous run left off.
func logStoredState(db *database.DB, symbol string) {
	version, err := db.LatestModelVersion()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to read recorded model version")
	} else if version > 0 {
		log.Info().Int("version", version).Msg("Last recorded model version")
	}

	signals, err := db.RecentSignals(symbol, 5)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to read recent signals")
		return
	}
	for _, sig := range signals {
		log.Info().
			Str("signal_id", sig.ID).
			Str("signal_type", string(sig.Type)).
			Float64("confidence", sig.Confidence).
			Time("timestamp", sig.Timestamp).
			Msg("Recent stored signal")
	}
}

func indicatorConfig(cfg *config.Config) indicators.Config {
	return indicators.Config{
		MAPeriods:        cfg.MAPeriods,
		RSIPeriod:        cfg.RSIPeriod,
		MACDFastPeriod:   cfg.MACDFastPeriod,
		MACDSlowPeriod:   cfg.MACDSlowPeriod,
		MACDSignalPeriod: cfg.MACDSignalPeriod,
		BBPeriod:         cfg.BBPeriod,
		BBStdDev:         cfg.BBStdDev,
		ADXPeriod:        cfg.ADXPeriod,
		ATRPeriod:        cfg.ATRPeriod,
		StochKPeriod:     cfg.StochKPeriod,
		StochDPeriod:     cfg.StochDPeriod,
		VWAPPeriod:       cfg.VWAPPeriod,
	}
}

func setupLogger(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logLevel, err := zerolog.ParseLevel(level)
	if err != nil {
		logLevel = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(logLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
}
