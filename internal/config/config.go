// Package config provides configuration management using viper.
// It supports loading from YAML files, a .env file and environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Bot       BotConfig       `mapstructure:"bot"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Admin     AdminConfig     `mapstructure:"admin"`
	Whitelist WhitelistConfig `mapstructure:"whitelist"`
	Game      GameConfig      `mapstructure:"game"`
	Ledger    LedgerConfig    `mapstructure:"ledger"`
	Log       LogConfig       `mapstructure:"log"`
}

// BotConfig holds Telegram bot configuration.
type BotConfig struct {
	Token         string        `mapstructure:"token"`
	Mode          string        `mapstructure:"mode"` // polling or webhook
	WebhookURL    string        `mapstructure:"webhook_url"`
	WebhookSecret string        `mapstructure:"webhook_secret"`
	PollTimeout   time.Duration `mapstructure:"poll_timeout"`
}

// UsesWebhook reports whether updates arrive through the HTTP server.
func (b *BotConfig) UsesWebhook() bool {
	return strings.EqualFold(b.Mode, "webhook")
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	PoolSize        int           `mapstructure:"pool_size"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// RedisConfig holds the profile cache connection.
type RedisConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	Addr       string        `mapstructure:"addr"`
	Password   string        `mapstructure:"password"`
	DB         int           `mapstructure:"db"`
	ProfileTTL time.Duration `mapstructure:"profile_ttl"`
}

// HTTPConfig holds the ops HTTP server configuration.
type HTTPConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
	Release bool   `mapstructure:"release"`
}

// AdminConfig holds bot owner ids. Owners may reset tables, enable test
// mode and change the support handle.
type AdminConfig struct {
	IDs []int64 `mapstructure:"ids"`
}

// WhitelistConfig holds chat whitelist configuration.
type WhitelistConfig struct {
	Chats []int64 `mapstructure:"chats"`
}

// GameConfig holds table rules.
type GameConfig struct {
	MaxBet           string        `mapstructure:"max_bet"`
	FeePercent       string        `mapstructure:"fee_percent"`
	SelectionTimeout time.Duration `mapstructure:"selection_timeout"`
	LockTimeout      time.Duration `mapstructure:"lock_timeout"`
	DefaultSupport   string        `mapstructure:"default_support"`
}

// MaxBetAmount parses MaxBet.
func (g *GameConfig) MaxBetAmount() (decimal.Decimal, error) {
	return decimal.NewFromString(g.MaxBet)
}

// Fee parses FeePercent.
func (g *GameConfig) Fee() (decimal.Decimal, error) {
	return decimal.NewFromString(g.FeePercent)
}

// LedgerConfig holds the settlement contract connection.
// When Enabled is false an in-memory ledger funded with DevHouseBalance is used.
type LedgerConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	RPCURL          string        `mapstructure:"rpc_url"`
	ContractAddress string        `mapstructure:"contract_address"`
	PrivateKey      string        `mapstructure:"private_key"`
	ChainID         int64         `mapstructure:"chain_id"`
	GasLimit        uint64        `mapstructure:"gas_limit"`
	ConfirmTimeout  time.Duration `mapstructure:"confirm_timeout"`
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	DevHouseBalance string        `mapstructure:"dev_house_balance"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name,
	)
}

// Load reads configuration from file and environment variables.
// A .env file in the working directory is loaded first if present.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, using environment variables")
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// e.g. BOT_TOKEN, DATABASE_HOST, LEDGER_PRIVATE_KEY
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// webhookSecretPattern is the token alphabet Telegram accepts.
var webhookSecretPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,256}$`)

// Validate checks values viper cannot type-check.
func (c *Config) Validate() error {
	maxBet, err := c.Game.MaxBetAmount()
	if err != nil || !maxBet.IsPositive() {
		return fmt.Errorf("game.max_bet must be a positive number, got %q", c.Game.MaxBet)
	}
	fee, err := c.Game.Fee()
	if err != nil || fee.IsNegative() || fee.GreaterThanOrEqual(decimal.NewFromInt(100)) {
		return fmt.Errorf("game.fee_percent must be in [0,100), got %q", c.Game.FeePercent)
	}
	if c.Ledger.Enabled && (c.Ledger.RPCURL == "" || c.Ledger.ContractAddress == "" || c.Ledger.PrivateKey == "") {
		return errors.New("ledger.rpc_url, ledger.contract_address and ledger.private_key are required when the ledger is enabled")
	}
	if c.Bot.UsesWebhook() && !c.HTTP.Enabled {
		return errors.New("webhook mode requires http.enabled")
	}
	if c.Bot.UsesWebhook() && !webhookSecretPattern.MatchString(c.Bot.WebhookSecret) {
		return errors.New("webhook mode requires bot.webhook_secret of 1-256 letters, digits, _ or -")
	}
	return nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Keys without a default are invisible to AutomaticEnv during Unmarshal.
	v.SetDefault("bot.token", "")
	v.SetDefault("bot.webhook_url", "")
	v.SetDefault("bot.webhook_secret", "")
	v.SetDefault("bot.mode", "polling")
	v.SetDefault("bot.poll_timeout", "10s")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "baccarat")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "baccarat")
	v.SetDefault("database.pool_size", 20)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.profile_ttl", "720h")

	v.SetDefault("http.enabled", true)
	v.SetDefault("http.addr", ":8080")

	v.SetDefault("game.max_bet", "100")
	v.SetDefault("game.fee_percent", "5")
	v.SetDefault("game.selection_timeout", "30s")
	v.SetDefault("game.lock_timeout", "10s")
	v.SetDefault("game.default_support", "@arbacenco")

	v.SetDefault("ledger.enabled", false)
	v.SetDefault("ledger.rpc_url", "")
	v.SetDefault("ledger.contract_address", "")
	v.SetDefault("ledger.private_key", "")
	v.SetDefault("ledger.chain_id", 0)
	v.SetDefault("ledger.gas_limit", 200000)
	v.SetDefault("ledger.confirm_timeout", "120s")
	v.SetDefault("ledger.poll_interval", "2s")
	v.SetDefault("ledger.dev_house_balance", "1000")

	v.SetDefault("log.level", "info")
}

// IsAdmin checks if a user ID is in the owner list.
func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.Admin.IDs {
		if id == userID {
			return true
		}
	}
	return false
}

// IsChatAllowed checks if a chat ID is in the whitelist.
func (c *Config) IsChatAllowed(chatID int64) bool {
	// Empty whitelist means all chats are allowed
	if len(c.Whitelist.Chats) == 0 {
		return true
	}
	for _, id := range c.Whitelist.Chats {
		if id == chatID {
			return true
		}
	}
	return false
}
