package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds all application configuration.
type Config struct {
	// Market data
	Symbol      string `env:"SYMBOL" envDefault:"EURUSD"`
	Timeframe   string `env:"TIMEFRAME" envDefault:"5min"`
	CandleCount int    `env:"CANDLE_COUNT" envDefault:"300"`

	// Broker gateway
	GatewayURL     string `env:"GATEWAY_URL" envDefault:"http://localhost:8765"`
	GatewayWSURL   string `env:"GATEWAY_WS_URL" envDefault:"ws://localhost:8765/stream"`
	GatewayAPIKey  string `env:"GATEWAY_API_KEY" envDefault:""`
	RequestTimeout int    `env:"REQUEST_TIMEOUT" envDefault:"30"` // seconds

	// Indicator windows
	MAPeriods        []int
	RSIPeriod        int     `env:"RSI_PERIOD" envDefault:"14"`
	MACDFastPeriod   int     `env:"MACD_FAST_PERIOD" envDefault:"12"`
	MACDSlowPeriod   int     `env:"MACD_SLOW_PERIOD" envDefault:"26"`
	MACDSignalPeriod int     `env:"MACD_SIGNAL_PERIOD" envDefault:"9"`
	BBPeriod         int     `env:"BB_PERIOD" envDefault:"20"`
	BBStdDev         float64 `env:"BB_STD_DEV" envDefault:"2.0"`
	ADXPeriod        int     `env:"ADX_PERIOD" envDefault:"14"`
	ATRPeriod        int     `env:"ATR_PERIOD" envDefault:"14"`
	StochKPeriod     int     `env:"STOCH_K_PERIOD" envDefault:"14"`
	StochDPeriod     int     `env:"STOCH_D_PERIOD" envDefault:"3"`
	VWAPPeriod       int     `env:"VWAP_PERIOD" envDefault:"14"`

	// Support/resistance detection
	LevelWindow    int     `env:"LEVEL_WINDOW" envDefault:"20"`
	LevelTouches   int     `env:"LEVEL_TOUCHES" envDefault:"2"`
	LevelTolerance float64 `env:"LEVEL_TOLERANCE" envDefault:"0.002"`

	// Classifier
	FeatureColumns  []string
	SequenceLength  int     `env:"SEQUENCE_LENGTH" envDefault:"30"`
	HiddenSize      int     `env:"HIDDEN_SIZE" envDefault:"32"`
	LearningRate    float64 `env:"LEARNING_RATE" envDefault:"0.001"`
	Epochs          int     `env:"EPOCHS" envDefault:"20"`
	BatchSize       int     `env:"BATCH_SIZE" envDefault:"32"`
	ValidationSplit float64 `env:"VALIDATION_SPLIT" envDefault:"0.2"`
	DropoutRate     float64 `env:"DROPOUT_RATE" envDefault:"0.2"`
	ModelDir        string  `env:"MODEL_DIR" envDefault:"models-data"`

	// Signal fusion
	MinConfidence float64 `env:"MIN_CONFIDENCE" envDefault:"0.7"`
	RiskReward    float64 `env:"RISK_REWARD" envDefault:"2.0"`

	// Orchestration
	PollInterval     time.Duration
	UpdateInterval   time.Duration
	UseStream        bool    `env:"USE_STREAM" envDefault:"false"`
	AutoTrade        bool    `env:"AUTO_TRADE" envDefault:"false"`
	ExecConfidence   float64 `env:"EXEC_CONFIDENCE" envDefault:"0.8"`
	RiskPercent      float64 `env:"RISK_PERCENT" envDefault:"1.0"`
	QueueSize        int     `env:"QUEUE_SIZE" envDefault:"64"`

	// Persistence
	DBHost     string `env:"DB_HOST" envDefault:""`
	DBPort     string `env:"DB_PORT" envDefault:"5432"`
	DBUser     string `env:"DB_USER" envDefault:"postgres"`
	DBPassword string `env:"DB_PASSWORD" envDefault:""`
	DBName     string `env:"DB_NAME" envDefault:"tradefusion"`
	DBSSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`

	// Alerting / observability
	TelegramToken  string `env:"TELEGRAM_TOKEN" envDefault:""`
	TelegramChatID int64  `env:"TELEGRAM_CHAT_ID" envDefault:"0"`
	MetricsAddr    string `env:"METRICS_ADDR" envDefault:":9190"`
	LogLevel       string `env:"LOG_LEVEL" envDefault:"info"`
}

// DefaultFeatureColumns is the classifier input vocabulary used when
// FEATURE_COLUMNS is not set. All columns are produced by the indicator
// engine or present on the raw candles.
var DefaultFeatureColumns = []string{
	"close", "volume", "rsi",
	"macd_line", "macd_signal", "macd_histogram",
	"sma_20", "sma_50",
	"bb_upper", "bb_lower", "atr",
}

// Load initializes configuration from environment variables.
func Load() (*Config, error) {
	// Load environment variables from .env file if present
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg(".env file not found, relying on actual environment variables")
	}

	cfg := &Config{
		Symbol:      getEnvWithDefault("SYMBOL", "EURUSD"),
		Timeframe:   getEnvWithDefault("TIMEFRAME", "5min"),
		CandleCount: getEnvIntWithDefault("CANDLE_COUNT", 300),

		GatewayURL:     getEnvWithDefault("GATEWAY_URL", "http://localhost:8765"),
		GatewayWSURL:   getEnvWithDefault("GATEWAY_WS_URL", "ws://localhost:8765/stream"),
		GatewayAPIKey:  os.Getenv("GATEWAY_API_KEY"),
		RequestTimeout: getEnvIntWithDefault("REQUEST_TIMEOUT", 30),

		MAPeriods:        getEnvIntsWithDefault("MA_PERIODS", []int{9, 20, 50, 200}),
		RSIPeriod:        getEnvIntWithDefault("RSI_PERIOD", 14),
		MACDFastPeriod:   getEnvIntWithDefault("MACD_FAST_PERIOD", 12),
		MACDSlowPeriod:   getEnvIntWithDefault("MACD_SLOW_PERIOD", 26),
		MACDSignalPeriod: getEnvIntWithDefault("MACD_SIGNAL_PERIOD", 9),
		BBPeriod:         getEnvIntWithDefault("BB_PERIOD", 20),
		BBStdDev:         getEnvFloatWithDefault("BB_STD_DEV", 2.0),
		ADXPeriod:        getEnvIntWithDefault("ADX_PERIOD", 14),
		ATRPeriod:        getEnvIntWithDefault("ATR_PERIOD", 14),
		StochKPeriod:     getEnvIntWithDefault("STOCH_K_PERIOD", 14),
		StochDPeriod:     getEnvIntWithDefault("STOCH_D_PERIOD", 3),
		VWAPPeriod:       getEnvIntWithDefault("VWAP_PERIOD", 14),

		LevelWindow:    getEnvIntWithDefault("LEVEL_WINDOW", 20),
		LevelTouches:   getEnvIntWithDefault("LEVEL_TOUCHES", 2),
		LevelTolerance: getEnvFloatWithDefault("LEVEL_TOLERANCE", 0.002),

		FeatureColumns:  getEnvStringsWithDefault("FEATURE_COLUMNS", DefaultFeatureColumns),
		SequenceLength:  getEnvIntWithDefault("SEQUENCE_LENGTH", 30),
		HiddenSize:      getEnvIntWithDefault("HIDDEN_SIZE", 32),
		LearningRate:    getEnvFloatWithDefault("LEARNING_RATE", 0.001),
		Epochs:          getEnvIntWithDefault("EPOCHS", 20),
		BatchSize:       getEnvIntWithDefault("BATCH_SIZE", 32),
		ValidationSplit: getEnvFloatWithDefault("VALIDATION_SPLIT", 0.2),
		DropoutRate:     getEnvFloatWithDefault("DROPOUT_RATE", 0.2),
		ModelDir:        getEnvWithDefault("MODEL_DIR", "models-data"),

		MinConfidence: getEnvFloatWithDefault("MIN_CONFIDENCE", 0.7),
		RiskReward:    getEnvFloatWithDefault("RISK_REWARD", 2.0),

		PollInterval:   getEnvDurationWithDefault("POLL_INTERVAL", time.Minute),
		UpdateInterval: getEnvDurationWithDefault("UPDATE_INTERVAL", 5*time.Minute),
		UseStream:      getEnvBoolWithDefault("USE_STREAM", false),
		AutoTrade:      getEnvBoolWithDefault("AUTO_TRADE", false),
		ExecConfidence: getEnvFloatWithDefault("EXEC_CONFIDENCE", 0.8),
		RiskPercent:    getEnvFloatWithDefault("RISK_PERCENT", 1.0),
		QueueSize:      getEnvIntWithDefault("QUEUE_SIZE", 64),

		DBHost:     os.Getenv("DB_HOST"),
		DBPort:     getEnvWithDefault("DB_PORT", "5432"),
		DBUser:     getEnvWithDefault("DB_USER", "postgres"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     getEnvWithDefault("DB_NAME", "tradefusion"),
		DBSSLMode:  getEnvWithDefault("DB_SSLMODE", "disable"),

		TelegramToken:  os.Getenv("TELEGRAM_TOKEN"),
		TelegramChatID: getEnvInt64WithDefault("TELEGRAM_CHAT_ID", 0),
		MetricsAddr:    getEnvWithDefault("METRICS_ADDR", ":9190"),
		LogLevel:       getEnvWithDefault("LOG_LEVEL", "info"),
	}

	return cfg, nil
}

// Helper functions for environment variable handling
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64WithDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatWithDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolWithDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvDurationWithDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvIntsWithDefault(key string, defaultValue []int) []int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []int
	for _, part := range strings.Split(value, ",") {
		if n, err := strconv.Atoi(strings.TrimSpace(part)); err == nil {
			out = append(out, n)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

func getEnvStringsWithDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
