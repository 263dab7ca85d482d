package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"stakeledger/crypto"
)

const (
	// DefaultAuthTokenEnv names the environment variable consulted for the RPC
	// bearer token when the file does not set one.
	DefaultAuthTokenEnv = "STAKELEDGER_RPC_TOKEN"
	defaultRPCAddress   = ":8545"
	defaultDataDir      = "./stake-data"
)

type Config struct {
	RPCAddress           string `toml:"RPCAddress"`
	DataDir              string `toml:"DataDir"`
	GenesisFile          string `toml:"GenesisFile"`
	ChainID              uint64 `toml:"ChainID"`
	OperatorKeystorePath string `toml:"OperatorKeystorePath"`
	AllowMigrate         bool   `toml:"AllowMigrate"`

	Staking   StakingConfig   `toml:"staking"`
	RPC       RPCConfig       `toml:"rpc"`
	Log       LogConfig       `toml:"log"`
	Telemetry TelemetryConfig `toml:"telemetry"`
	Indexer   IndexerConfig   `toml:"indexer"`
}

// PassphraseSource resolves the passphrase protecting the operator keystore.
type PassphraseSource func() (string, error)

type loadOptions struct {
	passphrase PassphraseSource
}

// LoadOption customises Load.
type LoadOption func(*loadOptions)

// WithKeystorePassphraseSource sets the passphrase used when a default
// configuration generates the operator keystore.
func WithKeystorePassphraseSource(source PassphraseSource) LoadOption {
	return func(o *loadOptions) {
		o.passphrase = source
	}
}

// Load loads the configuration from the given path. A missing file is
// created with defaults and a fresh operator keystore whose address becomes
// the staking admin.
func Load(path string, opts ...LoadOption) (*Config, error) {
	options := loadOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path, options.passphrase)
	}

	cfg := &Config{}
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config file %s has unknown key %q", path, undecoded[0].String())
	}
	cfg.applyDefaults()
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.RPCAddress) == "" {
		c.RPCAddress = defaultRPCAddress
	}
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = defaultDataDir
	}
	if c.RPC.AuthTokenEnv == "" {
		c.RPC.AuthTokenEnv = DefaultAuthTokenEnv
	}
	if c.RPC.RateLimitPerSecond == 0 {
		c.RPC.RateLimitPerSecond = 20
	}
	if c.RPC.RateLimitBurst == 0 {
		c.RPC.RateLimitBurst = 40
	}
	if c.RPC.ReadTimeoutSecs == 0 {
		c.RPC.ReadTimeoutSecs = 10
	}
	if c.RPC.WriteTimeoutSecs == 0 {
		c.RPC.WriteTimeoutSecs = 10
	}
	if c.RPC.MaxBodyBytes == 0 {
		c.RPC.MaxBodyBytes = 1 << 20
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

func (c *Config) applyEnv() {
	if c.RPC.AuthToken != "" {
		return
	}
	if token := strings.TrimSpace(os.Getenv(c.RPC.AuthTokenEnv)); token != "" {
		c.RPC.AuthToken = token
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.RPC.RateLimitPerSecond < 0 {
		return fmt.Errorf("rpc: RateLimitPerSecond must not be negative")
	}
	if c.RPC.RateLimitBurst < 0 {
		return fmt.Errorf("rpc: RateLimitBurst must not be negative")
	}
	if c.RPC.ReadTimeoutSecs < 0 || c.RPC.WriteTimeoutSecs < 0 {
		return fmt.Errorf("rpc: timeouts must not be negative")
	}
	if c.RPC.MaxBodyBytes < 0 {
		return fmt.Errorf("rpc: MaxBodyBytes must not be negative")
	}
	if c.Staking.Admin != "" {
		if _, err := c.AdminAddress(); err != nil {
			return err
		}
	}
	if c.Telemetry.Traces || c.Telemetry.Metrics {
		if strings.TrimSpace(c.Telemetry.Endpoint) == "" {
			return fmt.Errorf("telemetry: Endpoint required when exporters are enabled")
		}
	}
	return nil
}

// AdminAddress decodes the configured staking admin. An empty value yields
// the zero address, which leaves config creation open.
func (c *Config) AdminAddress() ([20]byte, error) {
	if strings.TrimSpace(c.Staking.Admin) == "" {
		return [20]byte{}, nil
	}
	addr, err := crypto.DecodeAddress(strings.TrimSpace(c.Staking.Admin))
	if err != nil {
		return [20]byte{}, fmt.Errorf("staking: invalid Admin: %w", err)
	}
	if addr.Prefix() != crypto.StakePrefix {
		return [20]byte{}, fmt.Errorf("staking: Admin must use the %q prefix", crypto.StakePrefix)
	}
	return addr.Array(), nil
}

// createDefault creates and saves a default configuration file.
func createDefault(path string, source PassphraseSource) (*Config, error) {
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}

	passphrase := ""
	if source != nil {
		passphrase, err = source()
		if err != nil {
			return nil, fmt.Errorf("operator keystore passphrase: %w", err)
		}
	}
	keystorePath := defaultKeystorePath(path)
	if err := crypto.SaveToKeystore(keystorePath, key, passphrase); err != nil {
		return nil, err
	}

	cfg := &Config{
		RPCAddress:           defaultRPCAddress,
		DataDir:              defaultDataDir,
		OperatorKeystorePath: keystorePath,
		Staking: StakingConfig{
			Admin: key.PubKey().Address().String(),
		},
		Indexer: IndexerConfig{DSN: "file:" + filepath.Join(defaultDataDir, "events.db")},
	}
	cfg.applyDefaults()
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	cfg.applyEnv()
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

func defaultKeystorePath(configPath string) string {
	dir := filepath.Dir(configPath)
	if dir == "." || dir == "" {
		dir = ""
	}
	return filepath.Join(dir, "operator.keystore")
}
