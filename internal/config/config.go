package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"paper_trading/internal/indicator"
	"paper_trading/internal/market"
	"paper_trading/internal/position"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// ErrConfig marks configuration problems. They are fatal at startup.
var ErrConfig = errors.New("config error")

const (
	ProviderAlpaca  = "alpaca"
	ProviderBinance = "binance"
)

// StrategyParams are immutable for the life of a run.
type StrategyParams struct {
	RSIPeriod                   int     `mapstructure:"rsi_period"`
	MACDFast                    int     `mapstructure:"macd_fast"`
	MACDSlow                    int     `mapstructure:"macd_slow"`
	MACDSignal                  int     `mapstructure:"macd_signal"`
	RSIThresholdBuy             float64 `mapstructure:"rsi_threshold_buy"`
	RSIThresholdSell            float64 `mapstructure:"rsi_threshold_sell"`
	MACDSignalCrossoverRequired bool    `mapstructure:"macd_signal_crossover_required"`
	StopLossFraction            float64 `mapstructure:"stop_loss_fraction"`
	TakeProfitFraction          float64 `mapstructure:"take_profit_fraction"`
	PositionSize                float64 `mapstructure:"position_size"`
	TradeIntervalSeconds        int     `mapstructure:"trade_interval_seconds"`
}

// Indicators returns the indicator periods.
func (s StrategyParams) Indicators() indicator.Params {
	return indicator.Params{
		RSIPeriod:  s.RSIPeriod,
		MACDFast:   s.MACDFast,
		MACDSlow:   s.MACDSlow,
		MACDSignal: s.MACDSignal,
	}
}

// Rules returns the position thresholds.
func (s StrategyParams) Rules() position.Rules {
	return position.Rules{
		RSIBuy:           s.RSIThresholdBuy,
		RSISell:          s.RSIThresholdSell,
		RequireCrossover: s.MACDSignalCrossoverRequired,
		StopLoss:         s.StopLossFraction,
		TakeProfit:       s.TakeProfitFraction,
		PositionSize:     s.PositionSize,
	}
}

// Interval is the pause between trading cycles.
func (s StrategyParams) Interval() time.Duration {
	return time.Duration(s.TradeIntervalSeconds) * time.Second
}

// Bot is one profile under bots.<id> in the config file.
type Bot struct {
	Symbol          string         `mapstructure:"symbol"`
	Timeframe       string         `mapstructure:"timeframe"`
	Provider        string         `mapstructure:"provider"`
	PaperBalance    float64        `mapstructure:"paper_balance"`
	Lookback        int            `mapstructure:"lookback"`
	MarketHoursOnly bool           `mapstructure:"market_hours_only"`
	Strategy        StrategyParams `mapstructure:"strategy"`
}

// Config is everything the watcher needs for one bot identity.
type Config struct {
	BotID   string
	Bot     Bot
	TF      market.Timeframe
	Version string

	LogLevel      string
	LogFile       string
	MaxLogSizeMB  int64
	MaxLogBackups int

	JournalPath string
	MetricsAddr string

	TelegramToken  string
	TelegramChatID string

	BinanceAPIKey    string
	BinanceSecretKey string
}

// requiredKeys must be present in every bot profile.
var requiredKeys = []string{
	"symbol",
	"paper_balance",
	"strategy.rsi_threshold_buy",
	"strategy.rsi_threshold_sell",
	"strategy.stop_loss_fraction",
	"strategy.take_profit_fraction",
	"strategy.position_size",
	"strategy.trade_interval_seconds",
}

// secrets are masked when echoed.
var secrets = map[string]bool{
	"APCA_API_KEY_ID":     true,
	"APCA_API_SECRET_KEY": true,
	"BINANCE_API_KEY":     true,
	"BINANCE_SECRET_KEY":  true,
	"TELEGRAM_BOT_TOKEN":  true,
}

// LoadEnv reads a .env file into the process environment, if there is one,
// and echoes its variables with secrets masked.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: No .env file found, using system environment variables")
		return
	}
	envMap, err := godotenv.Read()
	if err != nil {
		return
	}
	log.Println("--- .env File Variables ---")
	for key, val := range envMap {
		log.Printf("%s=%s", key, maskValue(key, val))
	}
	log.Println("---------------------------")
}

func maskValue(key, val string) string {
	if !secrets[key] {
		return val
	}
	// show only last 4 chars
	if len(val) > 4 {
		return "***" + val[len(val)-4:]
	}
	return "***"
}

func defaultBot() Bot {
	p := indicator.DefaultParams()
	return Bot{
		Timeframe: "15m",
		Provider:  ProviderAlpaca,
		Strategy: StrategyParams{
			RSIPeriod:                   p.RSIPeriod,
			MACDFast:                    p.MACDFast,
			MACDSlow:                    p.MACDSlow,
			MACDSignal:                  p.MACDSignal,
			MACDSignalCrossoverRequired: true,
		},
	}
}

// Load reads the profile for botID from the YAML file at path. Global
// settings can be overridden with PAPER_WATCHER_* environment variables.
// Every failure wraps ErrConfig.
func Load(path, botID string) (*Config, error) {
	botID = strings.ToLower(strings.TrimSpace(botID))
	if botID == "" || strings.Contains(botID, ".") {
		return nil, fmt.Errorf("%w: invalid bot identity %q", ErrConfig, botID)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("PAPER_WATCHER")
	v.AutomaticEnv()

	v.SetDefault("log_level", "INFO")
	v.SetDefault("log_file", "watcher.log")
	v.SetDefault("max_log_size_mb", 10)
	v.SetDefault("max_log_backups", 3)
	v.SetDefault("journal_path", "")
	v.SetDefault("metrics_addr", "")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrConfig, path, err)
	}

	key := "bots." + botID
	if !v.IsSet(key) {
		return nil, fmt.Errorf("%w: unknown bot identity %q", ErrConfig, botID)
	}
	var missing []string
	for _, k := range requiredKeys {
		if !v.IsSet(key + "." + k) {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: bot %q missing required parameters: %v", ErrConfig, botID, missing)
	}

	bot := defaultBot()
	err := v.UnmarshalKey(key, &bot, func(dc *mapstructure.DecoderConfig) {
		dc.ErrorUnused = true
	})
	if err != nil {
		return nil, fmt.Errorf("%w: bot %q: %v", ErrConfig, botID, err)
	}

	cfg := &Config{
		BotID:            botID,
		Bot:              bot,
		LogLevel:         strings.ToUpper(v.GetString("log_level")),
		LogFile:          v.GetString("log_file"),
		MaxLogSizeMB:     v.GetInt64("max_log_size_mb"),
		MaxLogBackups:    v.GetInt("max_log_backups"),
		JournalPath:      v.GetString("journal_path"),
		MetricsAddr:      v.GetString("metrics_addr"),
		TelegramToken:    os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChatID:   os.Getenv("TELEGRAM_CHAT_ID"),
		BinanceAPIKey:    os.Getenv("BINANCE_API_KEY"),
		BinanceSecretKey: os.Getenv("BINANCE_SECRET_KEY"),
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	b := &c.Bot
	s := b.Strategy

	tf, err := market.ParseTimeframe(b.Timeframe)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConfig, err)
	}
	c.TF = tf

	var problems []string
	check := func(ok bool, format string, args ...any) {
		if !ok {
			problems = append(problems, fmt.Sprintf(format, args...))
		}
	}

	b.Provider = strings.ToLower(b.Provider)
	check(b.Provider == ProviderAlpaca || b.Provider == ProviderBinance, "provider %q must be alpaca or binance", b.Provider)
	check(strings.TrimSpace(b.Symbol) != "", "symbol is empty")
	check(b.PaperBalance >= 0, "paper_balance %v is negative", b.PaperBalance)
	check(s.RSIPeriod >= 1, "rsi_period %d < 1", s.RSIPeriod)
	check(s.MACDFast >= 1 && s.MACDSlow >= 1 && s.MACDSignal >= 1, "macd periods must be >= 1")
	check(s.RSIThresholdBuy > 0 && s.RSIThresholdBuy < 100, "rsi_threshold_buy %v outside (0,100)", s.RSIThresholdBuy)
	check(s.RSIThresholdSell > 0 && s.RSIThresholdSell < 100, "rsi_threshold_sell %v outside (0,100)", s.RSIThresholdSell)
	check(s.StopLossFraction > 0 && s.StopLossFraction < 1, "stop_loss_fraction %v outside (0,1)", s.StopLossFraction)
	check(s.TakeProfitFraction > 0, "take_profit_fraction %v must be positive", s.TakeProfitFraction)
	check(s.PositionSize > 0, "position_size %v must be positive", s.PositionSize)
	check(s.TradeIntervalSeconds >= 1, "trade_interval_seconds %d < 1", s.TradeIntervalSeconds)
	check(c.MaxLogSizeMB > 0, "max_log_size_mb %d must be positive", c.MaxLogSizeMB)

	need := s.Indicators().Lookback()
	if b.Lookback == 0 {
		b.Lookback = need
	}
	check(b.Lookback >= need, "lookback %d below indicator requirement %d", b.Lookback, need)
	if b.Provider == ProviderBinance {
		check(b.Lookback <= 1000, "lookback %d above binance page limit 1000", b.Lookback)
	}

	if b.Provider == ProviderAlpaca {
		for _, k := range []string{"APCA_API_KEY_ID", "APCA_API_SECRET_KEY", "APCA_API_BASE_URL"} {
			check(os.Getenv(k) != "", "missing required environment variable %s", k)
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: bot %q: %s", ErrConfig, c.BotID, strings.Join(problems, "; "))
	}
	return nil
}
