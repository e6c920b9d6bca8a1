// Package config loads the engine's YAML configuration file and layers
// spec.md §6's recognized environment variables on top, following the
// teacher's Load/DefaultConfig/applyDefaults shape.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration tree.
type Config struct {
	Trading    TradingConfig    `yaml:"trading"`
	Exchanges  ExchangesConfig  `yaml:"exchanges"`
	Risk       RiskConfig       `yaml:"risk"`
	Indicators IndicatorConfig  `yaml:"indicators"`
	Strategies StrategiesConfig `yaml:"strategies"`
	Database   DatabaseConfig   `yaml:"database"`
	API        APIConfig        `yaml:"api"`
	Screening  ScreeningConfig  `yaml:"screening"`
}

// TradingConfig carries the symbols traded and the executor's order sizing
// and rate-limit knobs, per spec.md §4.5.
type TradingConfig struct {
	Symbols             []string `yaml:"symbols"`
	ConfidenceThreshold float64  `yaml:"confidenceThreshold"`
	MaxPerHour          int      `yaml:"maxPerHour"`
	MaxPerDay           int      `yaml:"maxPerDay"`
	PortfolioPercentage float64  `yaml:"portfolioPercentage"`
	MaxOrderSize        float64  `yaml:"maxOrderSize"`
	MinOrderSize        float64  `yaml:"minOrderSize"`
	MinQuantity         float64  `yaml:"minQuantity"`
	SlippagePct         float64  `yaml:"slippagePct"`
	MaxRetryAttempts    int      `yaml:"maxRetryAttempts"`
	RetryDelayMS        int      `yaml:"retryDelayMs"`
	MaxLeverage         float64  `yaml:"maxLeverage"`
	RequiredLeverage    float64  `yaml:"requiredLeverage"`
}

// ExchangesConfig holds each exchange's connectivity settings. A nil
// credential struct means that exchange's client is disabled.
type ExchangesConfig struct {
	Binance  BinanceConfig   `yaml:"binance"`
	Dydx     *DydxConfig     `yaml:"dydx,omitempty"`
	Coinbase *CoinbaseConfig `yaml:"coinbase,omitempty"`
}

// BinanceConfig configures the Binance market-data stream.
type BinanceConfig struct {
	Testnet bool `yaml:"testnet"`
}

// DydxConfig configures the dYdX exchange client. Set via DYDX_MNEMONIC /
// DYDX_CONFIG_PATH; presence of DydxConfig in the resolved Config is what
// gates whether the dYdX Client and Stream are constructed at startup.
type DydxConfig struct {
	Mnemonic   string `yaml:"-"`
	ConfigPath string `yaml:"configPath"`
}

// CoinbaseConfig configures either the Advanced Trade API or the legacy
// API; at least one of the two credential pairs must be present.
type CoinbaseConfig struct {
	AdvancedAPIKey    string `yaml:"-"`
	AdvancedAPISecret string `yaml:"-"`
	APIKey            string `yaml:"-"`
	APISecret         string `yaml:"-"`
	Passphrase        string `yaml:"-"`
}

// RiskConfig mirrors the teacher's risk knobs, extended with the Position
// Manager's exposure limits per spec.md §4.6.
type RiskConfig struct {
	MaxPositionSize      float64 `yaml:"maxPositionSize"`
	MaxOpenPositions     int     `yaml:"maxOpenPositions"`
	MaxPositionsPerSymbol int    `yaml:"maxPositionsPerSymbol"`
	MaxPortfolioExposure float64 `yaml:"maxPortfolioExposure"`
	MaxLeverage          float64 `yaml:"maxLeverage"`
	MinRiskRewardRatio   float64 `yaml:"minRiskRewardRatio"`
}

// IndicatorConfig is unchanged from the teacher: the strategy engine's
// indicator periods and thresholds.
type IndicatorConfig struct {
	RSIPeriod       int     `yaml:"rsiPeriod"`
	RSIOversold     float64 `yaml:"rsiOversold"`
	RSIOverbought   float64 `yaml:"rsiOverbought"`
	MACDFast        int     `yaml:"macdFast"`
	MACDSlow        int     `yaml:"macdSlow"`
	MACDSignal      int     `yaml:"macdSignal"`
	BBPeriod        int     `yaml:"bbPeriod"`
	BBStdDev        float64 `yaml:"bbStdDev"`
	ATRPeriod       int     `yaml:"atrPeriod"`
	ATRMultiplierSL float64 `yaml:"atrMultiplierSL"`
	ATRMultiplierTP float64 `yaml:"atrMultiplierTP"`
}

// StrategiesConfig lists which strategies are active.
type StrategiesConfig struct {
	Enabled []string `yaml:"enabled"`
}

// DatabaseConfig configures the embedded relational store. URL and
// MaxConnections are overridable via DATABASE_URL / DATABASE_MAX_CONNECTIONS.
type DatabaseConfig struct {
	URL            string `yaml:"url"`
	MaxConnections int    `yaml:"maxConnections"`
}

// APIConfig configures the HTTP control surface. APIKeys is overridable
// via the comma-separated API_KEYS environment variable.
type APIConfig struct {
	Port               string   `yaml:"port"`
	APIKeys            []string `yaml:"-"`
	RateLimitPerMinute int      `yaml:"rateLimitPerMinute"`
}

// ScreeningConfig configures the periodic symbol-screening scan.
type ScreeningConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// Load reads path as YAML, then applies defaults and environment overrides
// per spec.md §6's recognized variables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// DefaultConfig returns the configuration produced by defaults and
// environment overrides alone, with no YAML file.
func DefaultConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	applyEnvOverrides(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if len(cfg.Trading.Symbols) == 0 {
		cfg.Trading.Symbols = []string{"BTC-USD", "ETH-USD"}
	}
	if cfg.Trading.ConfidenceThreshold == 0 {
		cfg.Trading.ConfidenceThreshold = 0.6
	}
	if cfg.Trading.MaxPerHour == 0 {
		cfg.Trading.MaxPerHour = 10
	}
	if cfg.Trading.MaxPerDay == 0 {
		cfg.Trading.MaxPerDay = 50
	}
	if cfg.Trading.PortfolioPercentage == 0 {
		cfg.Trading.PortfolioPercentage = 0.1
	}
	if cfg.Trading.MinOrderSize == 0 {
		cfg.Trading.MinOrderSize = 10
	}
	if cfg.Trading.MinQuantity == 0 {
		cfg.Trading.MinQuantity = 0.0001
	}
	if cfg.Trading.SlippagePct == 0 {
		cfg.Trading.SlippagePct = 0.005
	}
	if cfg.Trading.MaxRetryAttempts == 0 {
		cfg.Trading.MaxRetryAttempts = 3
	}
	if cfg.Trading.RetryDelayMS == 0 {
		cfg.Trading.RetryDelayMS = 500
	}
	if cfg.Trading.MaxLeverage == 0 {
		cfg.Trading.MaxLeverage = 3.0
	}

	if cfg.Risk.MaxPositionSize == 0 {
		cfg.Risk.MaxPositionSize = 0.10
	}
	if cfg.Risk.MaxOpenPositions == 0 {
		cfg.Risk.MaxOpenPositions = 10
	}
	if cfg.Risk.MaxPositionsPerSymbol == 0 {
		cfg.Risk.MaxPositionsPerSymbol = 3
	}
	if cfg.Risk.MaxPortfolioExposure == 0 {
		cfg.Risk.MaxPortfolioExposure = 1.0
	}
	if cfg.Risk.MaxLeverage == 0 {
		cfg.Risk.MaxLeverage = 3.0
	}
	if cfg.Risk.MinRiskRewardRatio == 0 {
		cfg.Risk.MinRiskRewardRatio = 1.5
	}

	if cfg.Indicators.RSIPeriod == 0 {
		cfg.Indicators.RSIPeriod = 14
	}
	if cfg.Indicators.RSIOversold == 0 {
		cfg.Indicators.RSIOversold = 30
	}
	if cfg.Indicators.RSIOverbought == 0 {
		cfg.Indicators.RSIOverbought = 70
	}
	if cfg.Indicators.MACDFast == 0 {
		cfg.Indicators.MACDFast = 12
	}
	if cfg.Indicators.MACDSlow == 0 {
		cfg.Indicators.MACDSlow = 26
	}
	if cfg.Indicators.MACDSignal == 0 {
		cfg.Indicators.MACDSignal = 9
	}
	if cfg.Indicators.BBPeriod == 0 {
		cfg.Indicators.BBPeriod = 20
	}
	if cfg.Indicators.BBStdDev == 0 {
		cfg.Indicators.BBStdDev = 2.0
	}
	if cfg.Indicators.ATRPeriod == 0 {
		cfg.Indicators.ATRPeriod = 14
	}
	if cfg.Indicators.ATRMultiplierSL == 0 {
		cfg.Indicators.ATRMultiplierSL = 2.0
	}
	if cfg.Indicators.ATRMultiplierTP == 0 {
		cfg.Indicators.ATRMultiplierTP = 3.0
	}

	if len(cfg.Strategies.Enabled) == 0 {
		cfg.Strategies.Enabled = []string{"TrendFollowing", "MeanReversion", "Breakout"}
	}

	if cfg.Database.URL == "" {
		cfg.Database.URL = "sqlite://data/nzeza.db"
	}
	if cfg.Database.MaxConnections == 0 {
		cfg.Database.MaxConnections = 5
	}

	if cfg.API.Port == "" {
		cfg.API.Port = ":8080"
	}
	if cfg.API.RateLimitPerMinute == 0 {
		cfg.API.RateLimitPerMinute = 100
	}

	if cfg.Screening.Interval == 0 {
		cfg.Screening.Interval = 5 * time.Minute
	}
}

// insecureDevKey is installed as the sole accepted Bearer token when
// API_KEYS is unset, per spec.md §6's explicit insecure-fallback warning.
const insecureDevKey = "dev-insecure-default-key"

// applyEnvOverrides layers spec.md §6's recognized environment variables
// over cfg. Secrets (mnemonics, API keys/secrets) are environment-only by
// design: they are never read from or written back to the YAML file.
func applyEnvOverrides(cfg *Config) {
	if keys := os.Getenv("API_KEYS"); keys != "" {
		cfg.API.APIKeys = splitCSV(keys)
	} else if len(cfg.API.APIKeys) == 0 {
		cfg.API.APIKeys = []string{insecureDevKey}
	}

	if url := os.Getenv("DATABASE_URL"); url != "" {
		cfg.Database.URL = url
	}
	if maxConns := os.Getenv("DATABASE_MAX_CONNECTIONS"); maxConns != "" {
		if n, err := strconv.Atoi(maxConns); err == nil {
			cfg.Database.MaxConnections = n
		}
	}

	if mnemonic := os.Getenv("DYDX_MNEMONIC"); mnemonic != "" {
		dydx := cfg.Exchanges.Dydx
		if dydx == nil {
			dydx = &DydxConfig{}
		}
		dydx.Mnemonic = mnemonic
		if path := os.Getenv("DYDX_CONFIG_PATH"); path != "" {
			dydx.ConfigPath = path
		} else if dydx.ConfigPath == "" {
			dydx.ConfigPath = "dydx_mainnet.toml"
		}
		cfg.Exchanges.Dydx = dydx
	}

	advKey, advSecret := os.Getenv("COINBASE_ADVANCED_API_KEY"), os.Getenv("COINBASE_ADVANCED_API_SECRET")
	legacyKey, legacySecret, legacyPass := os.Getenv("COINBASE_API_KEY"), os.Getenv("COINBASE_API_SECRET"), os.Getenv("COINBASE_PASSPHRASE")
	if (advKey != "" && advSecret != "") || (legacyKey != "" && legacySecret != "" && legacyPass != "") {
		coinbase := cfg.Exchanges.Coinbase
		if coinbase == nil {
			coinbase = &CoinbaseConfig{}
		}
		coinbase.AdvancedAPIKey, coinbase.AdvancedAPISecret = advKey, advSecret
		coinbase.APIKey, coinbase.APISecret, coinbase.Passphrase = legacyKey, legacySecret, legacyPass
		cfg.Exchanges.Coinbase = coinbase
	}
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// Save writes cfg back to path as YAML. Secret-bearing fields are tagged
// yaml:"-" and are therefore never round-tripped to disk.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
