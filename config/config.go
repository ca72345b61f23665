package config

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"presale_pool/contract"
	"presale_pool/sdk"
	"presale_pool/state"
)

// EnvPrefix is prepended to every environment override, e.g. PRESALE_STORE_BACKEND.
const EnvPrefix = "PRESALE"

// Store backends understood by OpenBackend.
const (
	BackendMemory  = "memory"
	BackendLevelDB = "leveldb"
	BackendRedis   = "redis"
)

// Config is the whole process configuration.
type Config struct {
	Log   LogConfig   `mapstructure:"log"`
	Store StoreConfig `mapstructure:"store"`
	Pool  PoolConfig  `mapstructure:"pool"`
	Fees  FeeConfig   `mapstructure:"fees"`
	Gas   GasConfig   `mapstructure:"gas"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

type StoreConfig struct {
	Backend string      `mapstructure:"backend"`
	Path    string      `mapstructure:"path"`
	Sync    bool        `mapstructure:"sync"`
	Redis   RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Address   string `mapstructure:"address"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	Namespace string `mapstructure:"namespace"`
}

// PoolConfig holds the creation defaults. Amounts are ether decimals.
type PoolConfig struct {
	Administrator   string `mapstructure:"administrator"`
	TokenDrops      uint32 `mapstructure:"token_drops"`
	MinContribution string `mapstructure:"min_contribution"`
	MaxContribution string `mapstructure:"max_contribution"`
	MaxPoolBalance  string `mapstructure:"max_pool_balance"`
}

// FeeConfig configures the default FeeSchedule. Fees are ether decimals.
type FeeConfig struct {
	RateBps uint64 `mapstructure:"rate_bps"`
	MinFee  string `mapstructure:"min_fee"`
	MaxFee  string `mapstructure:"max_fee"`
}

// GasConfig configures the LinearGasEstimator. GasPriceGwei is a decimal.
type GasConfig struct {
	BaseGas      uint64 `mapstructure:"base_gas"`
	PerDropGas   uint64 `mapstructure:"per_drop_gas"`
	GasPriceGwei string `mapstructure:"gas_price_gwei"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)

	v.SetDefault("store.backend", BackendLevelDB)
	v.SetDefault("store.path", "data/pool")
	v.SetDefault("store.sync", true)
	v.SetDefault("store.redis.address", "127.0.0.1:6379")
	v.SetDefault("store.redis.password", "")
	v.SetDefault("store.redis.db", 0)
	v.SetDefault("store.redis.namespace", "presale")

	v.SetDefault("pool.administrator", "")
	v.SetDefault("pool.token_drops", 0)
	v.SetDefault("pool.min_contribution", "0.1")
	v.SetDefault("pool.max_contribution", "10")
	v.SetDefault("pool.max_pool_balance", "100")

	v.SetDefault("fees.rate_bps", contract.FallbackFeeRateBps)
	v.SetDefault("fees.min_fee", "0")
	v.SetDefault("fees.max_fee", "0")

	v.SetDefault("gas.base_gas", contract.FallbackBaseGas)
	v.SetDefault("gas.per_drop_gas", contract.FallbackPerDropGas)
	v.SetDefault("gas.gas_price_gwei", "20")
}

// Load reads path (yaml) when given, then applies PRESALE_* environment
// overrides on top of the defaults.
// Example payload: config.Load("presale.yaml")
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

// -----------------------------------------------------------------------------
// Builders
// -----------------------------------------------------------------------------

// Logger builds the process logger from the log section.
func (c *Config) Logger() (*zap.Logger, error) {
	return sdk.NewLogger(c.Log.Level, c.Log.JSON)
}

// OpenBackend opens the configured store.
func (c *Config) OpenBackend(ctx context.Context) (state.Backend, error) {
	switch strings.ToLower(c.Store.Backend) {
	case BackendMemory:
		return state.NewMemoryBackend(), nil
	case BackendLevelDB, "":
		if c.Store.Path == "" {
			return nil, errors.New("store.path required for leveldb")
		}
		return state.OpenLevelDB(c.Store.Path, c.Store.Sync)
	case BackendRedis:
		return state.OpenRedis(ctx, state.RedisConfig{
			Address:   c.Store.Redis.Address,
			Password:  c.Store.Redis.Password,
			DB:        c.Store.Redis.DB,
			Namespace: c.Store.Redis.Namespace,
		})
	default:
		return nil, fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
}

// Administrator parses pool.administrator.
func (c *Config) Administrator() (sdk.Address, error) {
	return sdk.ParseAddress(c.Pool.Administrator)
}

// Settings converts the pool amounts into the initial contribution settings.
func (c *Config) Settings() (contract.Settings, error) {
	var (
		s   contract.Settings
		err error
	)
	if s.MinContribution, err = etherField("pool.min_contribution", c.Pool.MinContribution); err != nil {
		return s, err
	}
	if s.MaxContribution, err = etherField("pool.max_contribution", c.Pool.MaxContribution); err != nil {
		return s, err
	}
	if s.MaxPoolBalance, err = etherField("pool.max_pool_balance", c.Pool.MaxPoolBalance); err != nil {
		return s, err
	}
	return s, contract.ValidatePolicy(&s)
}

// FeeSchedule builds the default fee provider.
func (c *Config) FeeSchedule() (*contract.FeeSchedule, error) {
	minFee, err := etherField("fees.min_fee", c.Fees.MinFee)
	if err != nil {
		return nil, err
	}
	maxFee, err := etherField("fees.max_fee", c.Fees.MaxFee)
	if err != nil {
		return nil, err
	}
	return contract.NewFeeSchedule(c.Fees.RateBps, minFee, maxFee)
}

// GasEstimator builds the default token drop gas estimator.
func (c *Config) GasEstimator() (*contract.LinearGasEstimator, error) {
	price, err := gweiToWei(c.Gas.GasPriceGwei)
	if err != nil {
		return nil, fmt.Errorf("gas.gas_price_gwei: %w", err)
	}
	return &contract.LinearGasEstimator{
		BaseGas:    c.Gas.BaseGas,
		PerDropGas: c.Gas.PerDropGas,
		GasPrice:   price,
	}, nil
}

// etherField treats an empty value as zero.
func etherField(key, val string) (*uint256.Int, error) {
	if strings.TrimSpace(val) == "" {
		return sdk.Zero(), nil
	}
	wei, err := sdk.EtherToWei(val)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	return wei, nil
}

// gweiToWei scales a gwei decimal down to ether so DecimalToWei does the checks.
func gweiToWei(val string) (*uint256.Int, error) {
	if strings.TrimSpace(val) == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(val))
	if err != nil {
		return nil, fmt.Errorf("%w: %q", sdk.ErrInvalidAmount, val)
	}
	return sdk.DecimalToWei(d.Shift(-9))
}
