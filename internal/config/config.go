package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig              `mapstructure:"app"`
	Server    ServerConfig           `mapstructure:"server"`
	Log       LogConfig              `mapstructure:"log"`
	DB        DBConfig               `mapstructure:"db"`
	Cron      CronConfig             `mapstructure:"cron"`
	Scheduler SchedulerConfig        `mapstructure:"scheduler"`
	Swap      SwapConfig             `mapstructure:"swap"`
	Bridge    BridgeConfig           `mapstructure:"bridge"`
	Events    EventsConfig           `mapstructure:"events"`
	Assets    AssetRegistry          `mapstructure:"assets"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
}

type CronConfig struct {
	GasMonitor     string `mapstructure:"gas_monitor"`
	EventRetention string `mapstructure:"event_retention"`
}

type SchedulerConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	ScanInterval  time.Duration `mapstructure:"scan_interval"`
	BatchLimit    int           `mapstructure:"batch_limit"`
	MaxConcurrent int           `mapstructure:"max_concurrent"`
}

type SwapConfig struct {
	Mode       string        `mapstructure:"mode"`
	Timeout    time.Duration `mapstructure:"timeout"`
	FeeTierBps int           `mapstructure:"fee_tier_bps"`
}

type BridgeConfig struct {
	RPCURL         string        `mapstructure:"rpc_url"`
	ChainID        int64         `mapstructure:"chain_id"`
	AccountAddress string        `mapstructure:"account_address"`
	OperatorKeyEnv string        `mapstructure:"operator_key_env"`
	RouterAddress  string        `mapstructure:"router_address"`
	GasLimit       uint64        `mapstructure:"gas_limit"`
	MinGasBalance  float64       `mapstructure:"min_gas_balance"`
	CallTimeout    time.Duration `mapstructure:"call_timeout"`
}

type EventsConfig struct {
	RetentionDays int `mapstructure:"retention_days"`
}

// AssetConfig describes one tradable asset. Environment selects the execution
// path: "native" assets live in the ledger's vault model, "evm" assets are
// ERC-20 tokens reached through the bridge account.
type AssetConfig struct {
	Environment string `mapstructure:"environment"`
	Address     string `mapstructure:"address"`
	Decimals    int    `mapstructure:"decimals"`
}

// AssetRegistry maps asset symbols to their configuration.
type AssetRegistry = map[string]AssetConfig

const (
	EnvNative = "native"
	EnvEVM    = "evm"
)

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ADCA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("cron.gas_monitor", "@every 1m")
	v.SetDefault("cron.event_retention", "@every 6h")
	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.scan_interval", "5s")
	v.SetDefault("scheduler.batch_limit", 100)
	v.SetDefault("scheduler.max_concurrent", 8)
	v.SetDefault("swap.mode", "dry-run")
	v.SetDefault("swap.timeout", "30s")
	v.SetDefault("swap.fee_tier_bps", 30)
	v.SetDefault("bridge.chain_id", 1)
	v.SetDefault("bridge.operator_key_env", "ADCA_BRIDGE_OPERATOR_KEY")
	v.SetDefault("bridge.gas_limit", 400000)
	v.SetDefault("bridge.min_gas_balance", 0.05)
	v.SetDefault("bridge.call_timeout", "15s")
	v.SetDefault("events.retention_days", 30)

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
