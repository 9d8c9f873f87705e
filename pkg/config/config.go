package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"towerterm/pkg/models"
)

const ConfigFileName = ".towerterm.json"

const (
	SourceCosmos = "cosmos"
	SourceEVM    = "evm"
)

// AssetConfig holds configuration for a tradable asset. For EVM sources the
// denom is the token contract address, or "native" for the gas token.
type AssetConfig struct {
	Symbol   string `json:"symbol"`
	Denom    string `json:"denom"`
	Decimals int    `json:"decimals"`
	LogoURI  string `json:"logo_uri,omitempty"`
}

// SourceConfig holds configuration for a balance source (a chain).
type SourceConfig struct {
	Name    string        `json:"name"`
	Kind    string        `json:"kind"` // "cosmos" or "evm"
	URLs    []string      `json:"urls"`
	LogoURI string        `json:"logo_uri,omitempty"`
	Assets  []AssetConfig `json:"assets"`
}

// PoolConfig holds configuration for a liquidity pool.
type PoolConfig struct {
	Address string   `json:"address"`
	Name    string   `json:"name"`
	Type    string   `json:"type"`
	Fee     float64  `json:"fee"`
	Denoms  []string `json:"denoms"`
}

// OwnerConfig holds the wallet addresses balances are read for. Empty means
// the wallet is not connected.
type OwnerConfig struct {
	Cosmos string `json:"cosmos,omitempty"`
	EVM    string `json:"evm,omitempty"`
}

// SubmitConfig controls where deposits are forwarded.
type SubmitConfig struct {
	Endpoint       string `json:"endpoint,omitempty"`
	DryRun         bool   `json:"dry_run"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// GlobalConfig holds application-wide settings.
type GlobalConfig struct {
	DefaultSlippage     string `json:"default_slippage"`
	PollIntervalSeconds int    `json:"poll_interval_seconds"`
	TokenDecimals       int    `json:"token_decimals"`
	LogPath             string `json:"log_path,omitempty"`
}

// Config is the whole on-disk configuration.
type Config struct {
	Owner   OwnerConfig    `json:"owner"`
	Sources []SourceConfig `json:"sources"`
	Pools   []PoolConfig   `json:"pools"`
	Submit  SubmitConfig   `json:"submit"`
	Global  GlobalConfig   `json:"global"`
}

// DefaultGlobalConfig returns the settings used when the file omits them.
func DefaultGlobalConfig() GlobalConfig {
	return GlobalConfig{
		DefaultSlippage:     "0.04",
		PollIntervalSeconds: 30,
		TokenDecimals:       4,
	}
}

func GetConfigPath(customPath string) (string, error) {
	if customPath != "" {
		return customPath, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ConfigFileName), nil
}

func LoadConfigFromFile(path string) (Config, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return Config{Submit: SubmitConfig{DryRun: true}, Global: DefaultGlobalConfig()}, nil
	}
	if err != nil {
		return Config{}, err
	}
	defer func() { _ = f.Close() }()
	return LoadConfig(f)
}

func LoadConfig(r io.Reader) (Config, error) {
	var raw struct {
		Owner   OwnerConfig    `json:"owner"`
		Sources []SourceConfig `json:"sources"`
		Pools   []PoolConfig   `json:"pools"`
		Submit  struct {
			Endpoint       string `json:"endpoint"`
			DryRun         *bool  `json:"dry_run"`
			TimeoutSeconds *int   `json:"timeout_seconds"`
		} `json:"submit"`
		Global struct {
			DefaultSlippage     *string `json:"default_slippage"`
			PollIntervalSeconds *int    `json:"poll_interval_seconds"`
			TokenDecimals       *int    `json:"token_decimals"`
			LogPath             string  `json:"log_path"`
		} `json:"global"`
	}
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return Config{}, err
	}

	cfg := Config{
		Owner:   raw.Owner,
		Sources: raw.Sources,
		Pools:   raw.Pools,
		Submit: SubmitConfig{
			Endpoint:       raw.Submit.Endpoint,
			DryRun:         raw.Submit.Endpoint == "",
			TimeoutSeconds: 30,
		},
		Global: DefaultGlobalConfig(),
	}
	if raw.Submit.DryRun != nil {
		cfg.Submit.DryRun = *raw.Submit.DryRun
	}
	if raw.Submit.TimeoutSeconds != nil {
		cfg.Submit.TimeoutSeconds = *raw.Submit.TimeoutSeconds
	}
	if raw.Global.DefaultSlippage != nil {
		cfg.Global.DefaultSlippage = *raw.Global.DefaultSlippage
	}
	if raw.Global.PollIntervalSeconds != nil {
		cfg.Global.PollIntervalSeconds = *raw.Global.PollIntervalSeconds
	}
	if raw.Global.TokenDecimals != nil {
		cfg.Global.TokenDecimals = *raw.Global.TokenDecimals
	}
	cfg.Global.LogPath = raw.Global.LogPath

	for i := range cfg.Sources {
		cfg.Sources[i].Kind = strings.ToLower(strings.TrimSpace(cfg.Sources[i].Kind))
	}
	return cfg, nil
}

// Validate returns a human readable message for every structural problem.
func Validate(cfg Config) []string {
	var problems []string
	if len(cfg.Sources) == 0 {
		problems = append(problems, "configuration must have at least one source")
	}
	seen := make(map[string]string)
	for i, s := range cfg.Sources {
		if strings.TrimSpace(s.Name) == "" {
			problems = append(problems, fmt.Sprintf("source at index %d has no name", i))
		}
		if s.Kind != SourceCosmos && s.Kind != SourceEVM {
			problems = append(problems, fmt.Sprintf("source %s has unknown kind %q", s.Name, s.Kind))
		}
		if len(s.URLs) == 0 {
			problems = append(problems, fmt.Sprintf("source %s has no URLs", s.Name))
		}
		for _, a := range s.Assets {
			if a.Denom == "" {
				problems = append(problems, fmt.Sprintf("source %s has an asset without denom", s.Name))
				continue
			}
			if a.Decimals < 0 {
				problems = append(problems, fmt.Sprintf("asset %s has negative decimals", a.Denom))
			}
			if prev, ok := seen[a.Denom]; ok {
				problems = append(problems, fmt.Sprintf("denom %s is listed by both %s and %s", a.Denom, prev, s.Name))
				continue
			}
			seen[a.Denom] = s.Name
		}
	}
	for _, p := range cfg.Pools {
		switch models.PoolType(p.Type) {
		case models.PoolStable, models.PoolWeighted, models.PoolConcentrated:
		default:
			problems = append(problems, fmt.Sprintf("pool %s has unknown type %q", p.Name, p.Type))
		}
		if len(p.Denoms) == 0 {
			problems = append(problems, fmt.Sprintf("pool %s has no denoms", p.Name))
		}
		for _, d := range p.Denoms {
			if _, ok := seen[d]; !ok {
				problems = append(problems, fmt.Sprintf("pool %s references unknown denom %s", p.Name, d))
			}
		}
	}
	return problems
}

// Assets flattens every configured asset in source order.
func (c Config) Assets() []models.Asset {
	var out []models.Asset
	for _, s := range c.Sources {
		for _, a := range s.Assets {
			out = append(out, models.Asset{
				Symbol:   a.Symbol,
				Denom:    a.Denom,
				Decimals: a.Decimals,
				LogoURI:  a.LogoURI,
			})
		}
	}
	return out
}

// ResolvePools turns pool configs into models, skipping denoms no source lists.
func (c Config) ResolvePools() []models.Pool {
	byDenom := make(map[string]models.Asset)
	for _, a := range c.Assets() {
		byDenom[a.Denom] = a
	}
	pools := make([]models.Pool, 0, len(c.Pools))
	for _, p := range c.Pools {
		pool := models.Pool{
			Address: p.Address,
			Name:    p.Name,
			Type:    models.PoolType(p.Type),
			Fee:     p.Fee,
		}
		for _, d := range p.Denoms {
			if a, ok := byDenom[d]; ok {
				pool.Assets = append(pool.Assets, a)
			}
		}
		pools = append(pools, pool)
	}
	return pools
}

// OwnerFor returns the wallet address used for a source kind.
func (c Config) OwnerFor(kind string) string {
	switch kind {
	case SourceCosmos:
		return c.Owner.Cosmos
	case SourceEVM:
		return c.Owner.EVM
	}
	return ""
}

// Connected reports whether any wallet address is configured.
func (c Config) Connected() bool {
	return strings.TrimSpace(c.Owner.Cosmos) != "" || strings.TrimSpace(c.Owner.EVM) != ""
}

func SaveConfig(cfg Config, path string) error {
	if problems := Validate(cfg); len(problems) > 0 {
		return fmt.Errorf("validation failed: %s", problems[0])
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	if len(data) == 0 {
		return fmt.Errorf("validation failed: encoded configuration is empty")
	}

	// Create a backup of the existing file
	if _, err := os.Stat(path); err == nil {
		backupPath := fmt.Sprintf("%s.%s.bak", path, time.Now().Format("20060102-150405"))
		input, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read existing config for backup: %w", err)
		}
		if err := os.WriteFile(backupPath, input, 0644); err != nil {
			return fmt.Errorf("failed to write backup config: %w", err)
		}
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

func RestoreLastBackup(configPath string) error {
	matches, err := filepath.Glob(configPath + ".*.bak")
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		return fmt.Errorf("no backup files found")
	}
	sort.Strings(matches)
	lastBackup := matches[len(matches)-1]

	data, err := os.ReadFile(lastBackup)
	if err != nil {
		return err
	}
	return os.WriteFile(configPath, data, 0644)
}
