package config

// RPCConfig controls the JSON-RPC listener.
type RPCConfig struct {
	AuthToken          string  `toml:"AuthToken"`
	AuthTokenEnv       string  `toml:"AuthTokenEnv"`
	RateLimitPerSecond float64 `toml:"RateLimitPerSecond"`
	RateLimitBurst     int     `toml:"RateLimitBurst"`
	ReadTimeoutSecs    int     `toml:"ReadTimeoutSeconds"`
	WriteTimeoutSecs   int     `toml:"WriteTimeoutSeconds"`
	MaxBodyBytes       int64   `toml:"MaxBodyBytes"`
}

// LogConfig controls structured logging output.
type LogConfig struct {
	Env        string `toml:"Env"`
	Level      string `toml:"Level"`
	File       string `toml:"File"`
	MaxSizeMB  int    `toml:"MaxSizeMB"`
	MaxBackups int    `toml:"MaxBackups"`
	MaxAgeDays int    `toml:"MaxAgeDays"`
}

// TelemetryConfig configures the OTLP exporters.
type TelemetryConfig struct {
	Endpoint string `toml:"Endpoint"`
	Insecure bool   `toml:"Insecure"`
	Headers  string `toml:"Headers"`
	Traces   bool   `toml:"Traces"`
	Metrics  bool   `toml:"Metrics"`
}

// IndexerConfig configures the sqlite event index. An empty DSN disables it.
type IndexerConfig struct {
	DSN string `toml:"DSN"`
}

// StakingConfig carries the node-level staking knobs. Reward parameters live
// in ledger state and are not configured here.
type StakingConfig struct {
	Admin          string `toml:"Admin"`
	RecordDeposit  uint64 `toml:"RecordDeposit"`
	AccountDeposit uint64 `toml:"AccountDeposit"`
	// Paused rejects new stakes while leaving unstaking available.
	Paused bool `toml:"Paused"`
}
