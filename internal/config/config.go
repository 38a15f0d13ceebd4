package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type GlobalFlags struct {
	ConfigPath string
	JSON       bool
	Plain      bool
	Timeout    string
	Retries    int
	RPCURLs    []string
}

type Settings struct {
	OutputMode string
	Timeout    time.Duration
	Retries    int

	EngineBaseURL string
	EngineAPIKey  string

	// Per-chain RPC endpoint overrides, chainID -> URL.
	RPCOverrides map[int64]string

	ActivityStorePath string
	ActivityLockPath  string

	SwitchDeadline     time.Duration
	SwitchPollInterval time.Duration

	SlippageBps int64

	ListenAddr string

	StrategyRegistryAddress string
	StrategyRegistryChainID int64
}

type fileConfig struct {
	Output  string `yaml:"output"`
	Timeout string `yaml:"timeout"`
	Retries *int   `yaml:"retries"`
	Engine  struct {
		BaseURL   string `yaml:"base_url"`
		APIKey    string `yaml:"api_key"`
		APIKeyEnv string `yaml:"api_key_env"`
	} `yaml:"engine"`
	RPC      map[string]string `yaml:"rpc"`
	Activity struct {
		Path     string `yaml:"path"`
		LockPath string `yaml:"lock_path"`
	} `yaml:"activity"`
	Wallet struct {
		SwitchDeadline string `yaml:"switch_deadline"`
		SwitchPoll     string `yaml:"switch_poll"`
	} `yaml:"wallet"`
	SlippageBps *int64 `yaml:"slippage_bps"`
	Serve       struct {
		Listen string `yaml:"listen"`
	} `yaml:"serve"`
	Strategies struct {
		RegistryAddress string `yaml:"registry_address"`
		RegistryChainID int64  `yaml:"registry_chain_id"`
	} `yaml:"strategies"`
}

func Load(flags GlobalFlags) (Settings, error) {
	// A local .env supplies secrets during development; absence is fine.
	_ = godotenv.Load()

	settings, err := defaultSettings()
	if err != nil {
		return Settings{}, err
	}

	cfgPath, err := resolveConfigPath(flags.ConfigPath)
	if err != nil {
		return Settings{}, err
	}
	if err := applyFileConfig(cfgPath, &settings); err != nil {
		return Settings{}, err
	}

	applyEnv(&settings)

	if err := applyFlags(flags, &settings); err != nil {
		return Settings{}, err
	}

	if settings.OutputMode == "" {
		settings.OutputMode = "json"
	}
	if settings.Timeout <= 0 {
		settings.Timeout = 10 * time.Second
	}
	if settings.Retries < 0 {
		settings.Retries = 0
	}
	if settings.SlippageBps <= 0 {
		settings.SlippageBps = 50
	}
	return settings, nil
}

func defaultSettings() (Settings, error) {
	base := os.Getenv("XDG_DATA_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Settings{}, err
		}
		base = filepath.Join(home, ".local", "share")
	}
	dir := filepath.Join(base, "copytrade")
	return Settings{
		OutputMode:              "json",
		Timeout:                 10 * time.Second,
		Retries:                 2,
		EngineBaseURL:           "https://trading.ai.zircuit.com/api/engine/v1",
		RPCOverrides:            map[int64]string{},
		ActivityStorePath:       filepath.Join(dir, "activity.db"),
		ActivityLockPath:        filepath.Join(dir, "activity.lock"),
		SwitchDeadline:          6 * time.Second,
		SwitchPollInterval:      250 * time.Millisecond,
		SlippageBps:             50,
		ListenAddr:              ":8787",
		StrategyRegistryAddress: "0x8fd308C3F8596b5d4b563dc530DD84eBE69da656",
		StrategyRegistryChainID: 8453,
	}, nil
}

func resolveConfigPath(input string) (string, error) {
	if strings.TrimSpace(input) != "" {
		return input, nil
	}
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "copytrade", "config.yaml"), nil
}

func applyFileConfig(path string, settings *Settings) error {
	buf, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}

	var cfg fileConfig
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return fmt.Errorf("parse config yaml: %w", err)
	}

	if cfg.Output != "" {
		settings.OutputMode = strings.ToLower(cfg.Output)
	}
	if cfg.Timeout != "" {
		d, err := time.ParseDuration(cfg.Timeout)
		if err != nil {
			return fmt.Errorf("config timeout: %w", err)
		}
		settings.Timeout = d
	}
	if cfg.Retries != nil {
		settings.Retries = *cfg.Retries
	}
	if cfg.Engine.BaseURL != "" {
		settings.EngineBaseURL = strings.TrimRight(cfg.Engine.BaseURL, "/")
	}
	if cfg.Engine.APIKey != "" {
		settings.EngineAPIKey = cfg.Engine.APIKey
	}
	if cfg.Engine.APIKeyEnv != "" {
		settings.EngineAPIKey = os.Getenv(cfg.Engine.APIKeyEnv)
	}
	for rawID, url := range cfg.RPC {
		chainID, err := strconv.ParseInt(strings.TrimSpace(rawID), 10, 64)
		if err != nil {
			return fmt.Errorf("config rpc: invalid chain id %q", rawID)
		}
		settings.RPCOverrides[chainID] = strings.TrimSpace(url)
	}
	if cfg.Activity.Path != "" {
		settings.ActivityStorePath = cfg.Activity.Path
	}
	if cfg.Activity.LockPath != "" {
		settings.ActivityLockPath = cfg.Activity.LockPath
	}
	if cfg.Wallet.SwitchDeadline != "" {
		d, err := time.ParseDuration(cfg.Wallet.SwitchDeadline)
		if err != nil {
			return fmt.Errorf("config wallet.switch_deadline: %w", err)
		}
		settings.SwitchDeadline = d
	}
	if cfg.Wallet.SwitchPoll != "" {
		d, err := time.ParseDuration(cfg.Wallet.SwitchPoll)
		if err != nil {
			return fmt.Errorf("config wallet.switch_poll: %w", err)
		}
		settings.SwitchPollInterval = d
	}
	if cfg.SlippageBps != nil {
		settings.SlippageBps = *cfg.SlippageBps
	}
	if cfg.Serve.Listen != "" {
		settings.ListenAddr = cfg.Serve.Listen
	}
	if cfg.Strategies.RegistryAddress != "" {
		settings.StrategyRegistryAddress = cfg.Strategies.RegistryAddress
	}
	if cfg.Strategies.RegistryChainID != 0 {
		settings.StrategyRegistryChainID = cfg.Strategies.RegistryChainID
	}
	return nil
}

func applyEnv(settings *Settings) {
	if v := os.Getenv("COPYTRADE_OUTPUT"); v != "" {
		settings.OutputMode = strings.ToLower(v)
	}
	if v := os.Getenv("COPYTRADE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			settings.Timeout = d
		}
	}
	if v := os.Getenv("COPYTRADE_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			settings.Retries = n
		}
	}
	if v := os.Getenv("COPYTRADE_ENGINE_URL"); v != "" {
		settings.EngineBaseURL = strings.TrimRight(v, "/")
	}
	if v := os.Getenv("COPYTRADE_ENGINE_API_KEY"); v != "" {
		settings.EngineAPIKey = v
	}
	if v := os.Getenv("COPYTRADE_ACTIVITY_PATH"); v != "" {
		settings.ActivityStorePath = v
	}
	if v := os.Getenv("COPYTRADE_ACTIVITY_LOCK_PATH"); v != "" {
		settings.ActivityLockPath = v
	}
	if v := os.Getenv("COPYTRADE_LISTEN"); v != "" {
		settings.ListenAddr = v
	}
	if v := os.Getenv("COPYTRADE_SLIPPAGE_BPS"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			settings.SlippageBps = n
		}
	}
}

func applyFlags(flags GlobalFlags, settings *Settings) error {
	if flags.JSON && flags.Plain {
		return fmt.Errorf("cannot use --json and --plain together")
	}
	if flags.JSON {
		settings.OutputMode = "json"
	}
	if flags.Plain {
		settings.OutputMode = "plain"
	}
	if flags.Timeout != "" {
		d, err := time.ParseDuration(flags.Timeout)
		if err != nil {
			return fmt.Errorf("parse --timeout: %w", err)
		}
		settings.Timeout = d
	}
	if flags.Retries >= 0 {
		settings.Retries = flags.Retries
	}
	for _, entry := range flags.RPCURLs {
		parts := strings.SplitN(entry, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("--rpc must be chainID=url, got %q", entry)
		}
		chainID, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
		if err != nil {
			return fmt.Errorf("--rpc: invalid chain id %q", parts[0])
		}
		settings.RPCOverrides[chainID] = strings.TrimSpace(parts[1])
	}

	if settings.OutputMode != "json" && settings.OutputMode != "plain" {
		return fmt.Errorf("output must be json or plain")
	}
	return nil
}

// RPCOverride returns the configured endpoint override for a chain, if any.
func (s Settings) RPCOverride(chainID int64) string {
	return s.RPCOverrides[chainID]
}
