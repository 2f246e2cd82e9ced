// Command train fetches historical candles, trains the direction classifier
// from scratch and saves the resulting model version.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"tradefusion/config"
	"tradefusion/internal/classifier"
	"tradefusion/internal/database"
	"tradefusion/internal/gateway"
	"tradefusion/internal/indicators"
	"tradefusion/internal/notify"
	"tradefusion/models"
)

func main() {
	candleCount := flag.Int("candles", 0, "number of candles to train on (default CANDLE_COUNT*10)")
	fromDB := flag.Bool("from-db", false, "load candles from the database instead of the gateway")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	setupLogger(cfg.LogLevel)

	count := *candleCount
	if count <= 0 {
		count = cfg.CandleCount * 10
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	var db *database.DB
	if cfg.DBHost != "" {
		db, err = database.New(database.ConnectionParams{
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
	}

	candles, err := loadCandles(ctx, cfg, db, *fromDB, count)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load training candles")
	}
	log.Info().Int("candles", len(candles)).Str("symbol", cfg.Symbol).Msg("Training data loaded")

	ind := indicators.New(indicators.Config{
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
	}, log.With().Str("component", "indicators").Logger())
	fs := ind.Enrich(candles)

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

	result, err := cls.Train(fs, true)
	if err != nil {
		log.Fatal().Err(err).Msg("Training failed")
	}

	log.Info().
		Int("version", result.Version).
		Int("examples", result.Examples).
		Float64("train_loss", result.TrainLoss).
		Float64("train_accuracy", result.TrainAccuracy).
		Float64("val_loss", result.ValLoss).
		Float64("val_accuracy", result.ValAccuracy).
		Msg("Training complete")

	if db != nil {
		if err := db.RecordModelVersion(result.Version, result); err != nil {
			log.Error().Err(err).Msg("Failed to record model version")
		}
	}

	notifier, err := notify.NewTelegram(cfg.TelegramToken, cfg.TelegramChatID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to initialize telegram alerting")
		return
	}
	if err := notifier.NotifyTrainResult(result); err != nil {
		log.Error().Err(err).Msg("Failed to send training summary")
	}
}

func loadCandles(ctx context.Context, cfg *config.Config, db *database.DB, fromDB bool, count int) ([]models.Candle, error) {
	if fromDB && db != nil {
		return db.LoadCandles(cfg.Symbol, cfg.Timeframe, count)
	}
	client := gateway.NewClient(gateway.ClientOptions{
		BaseURL:        cfg.GatewayURL,
		WSURL:          cfg.GatewayWSURL,
		APIKey:         cfg.GatewayAPIKey,
		RequestTimeout: time.Duration(cfg.RequestTimeout) * time.Second,
	})
	return client.GetCandles(ctx, cfg.Symbol, cfg.Timeframe, count)
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
