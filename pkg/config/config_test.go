package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"towerterm/pkg/models"
)

const sampleConfig = `{
	"owner": {"cosmos": "osmo1owner"},
	"sources": [
		{"name": "Osmosis", "kind": "Cosmos", "urls": ["http://lcd"], "assets": [
			{"symbol": "OSMO", "denom": "uosmo", "decimals": 6},
			{"symbol": "ATOM", "denom": "ibc/27394FB0", "decimals": 6}
		]}
	],
	"pools": [
		{"address": "osmo1pool", "name": "OSMO/ATOM", "type": "concentrated", "fee": 0.002, "denoms": ["uosmo", "ibc/27394FB0"]}
	],
	"global": {"default_slippage": "0.5"}
}`

func TestLoadConfig_Malformed(t *testing.T) {
	reader := strings.NewReader(`{ "sources": [`)
	_, err := LoadConfig(reader)
	if err == nil {
		t.Error("Expected error loading malformed config, got nil")
	}
}

func TestLoadConfigFromFile_Missing(t *testing.T) {
	cfg, err := LoadConfigFromFile(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Global.DefaultSlippage != "0.04" {
		t.Errorf("Expected default slippage 0.04, got %q", cfg.Global.DefaultSlippage)
	}
	if !cfg.Submit.DryRun {
		t.Error("Expected dry run when no config exists")
	}
}

func TestSaveConfig(t *testing.T) {
	tmpPath := filepath.Join(t.TempDir(), "config.json")

	cfg, err := LoadConfig(strings.NewReader(sampleConfig))
	if err != nil {
		t.Fatal(err)
	}

	if err := SaveConfig(cfg, tmpPath); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}
	// second save produces a backup of the first
	if err := SaveConfig(cfg, tmpPath); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}
	backups, _ := filepath.Glob(tmpPath + ".*.bak")
	if len(backups) == 0 {
		t.Error("Expected a backup file after overwriting")
	}

	loaded, err := LoadConfigFromFile(tmpPath)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if len(loaded.Sources) != 1 || loaded.Sources[0].Name != "Osmosis" {
		t.Errorf("Source mismatch")
	}
	if loaded.Global.DefaultSlippage != "0.5" {
		t.Errorf("Global config mismatch")
	}
	if loaded.Owner.Cosmos != "osmo1owner" {
		t.Errorf("Owner mismatch")
	}
}

func TestSaveConfig_RejectsInvalid(t *testing.T) {
	err := SaveConfig(Config{}, filepath.Join(t.TempDir(), "config.json"))
	if err == nil {
		t.Error("Expected validation error for empty config")
	}
}

func TestLoadConfig_TableDriven(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name        string
		jsonContent string
		expectError bool
		validate    func(*testing.T, Config)
	}{
		{
			name:        "Full Config",
			jsonContent: sampleConfig,
			validate: func(t *testing.T, c Config) {
				if c.Sources[0].Kind != SourceCosmos {
					t.Errorf("Expected kind to be normalized, got %q", c.Sources[0].Kind)
				}
				if len(c.Assets()) != 2 {
					t.Errorf("Expected 2 assets, got %d", len(c.Assets()))
				}
				if !c.Connected() {
					t.Error("Expected wallet to be connected")
				}
				if c.OwnerFor(SourceCosmos) != "osmo1owner" {
					t.Error("Owner lookup mismatch")
				}
			},
		},
		{
			name: "Partial Config (Defaults)",
			jsonContent: `{
				"sources": [{"name": "Eth", "kind": "evm", "urls": ["http://eth"]}]
			}`,
			validate: func(t *testing.T, c Config) {
				if c.Global.PollIntervalSeconds != 30 {
					t.Errorf("Expected default poll interval 30, got %d", c.Global.PollIntervalSeconds)
				}
				if c.Global.DefaultSlippage != "0.04" {
					t.Errorf("Expected default slippage 0.04, got %q", c.Global.DefaultSlippage)
				}
				if !c.Submit.DryRun {
					t.Error("Expected dry run without a submit endpoint")
				}
				if c.Connected() {
					t.Error("Expected wallet to be disconnected")
				}
			},
		},
		{
			name: "Submit Endpoint Disables Dry Run",
			jsonContent: `{
				"sources": [],
				"submit": {"endpoint": "http://signer/deposit"}
			}`,
			validate: func(t *testing.T, c Config) {
				if c.Submit.DryRun {
					t.Error("Expected dry run to be off when an endpoint is set")
				}
				if c.Submit.TimeoutSeconds != 30 {
					t.Errorf("Expected default submit timeout, got %d", c.Submit.TimeoutSeconds)
				}
			},
		},
		{
			name:        "Malformed JSON",
			jsonContent: `{ "sources": [ unclosed_array`,
			expectError: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg, err := LoadConfig(strings.NewReader(tt.jsonContent))

			if tt.expectError {
				if err == nil {
					t.Errorf("Expected error, got nil")
				}
			} else {
				if err != nil {
					t.Errorf("Unexpected error: %v", err)
				}
				if tt.validate != nil {
					tt.validate(t, cfg)
				}
			}
		})
	}
}

func TestValidate(t *testing.T) {
	cfg := Config{
		Sources: []SourceConfig{
			{Name: "Osmosis", Kind: SourceCosmos, URLs: []string{"http://lcd"}, Assets: []AssetConfig{{Symbol: "OSMO", Denom: "uosmo", Decimals: 6}}},
			{Name: "Dup", Kind: "solana", Assets: []AssetConfig{{Symbol: "OSMO", Denom: "uosmo", Decimals: 6}}},
		},
		Pools: []PoolConfig{{Name: "Bad", Type: "curve", Denoms: []string{"uatom"}}},
	}

	problems := strings.Join(Validate(cfg), "\n")
	for _, want := range []string{"unknown kind", "has no URLs", "listed by both", "unknown type", "unknown denom uatom"} {
		if !strings.Contains(problems, want) {
			t.Errorf("Expected problem containing %q, got:\n%s", want, problems)
		}
	}
}

func TestResolvePools(t *testing.T) {
	cfg, err := LoadConfig(strings.NewReader(sampleConfig))
	if err != nil {
		t.Fatal(err)
	}
	pools := cfg.ResolvePools()
	if len(pools) != 1 {
		t.Fatalf("Expected 1 pool, got %d", len(pools))
	}
	if pools[0].Type != models.PoolConcentrated {
		t.Errorf("Expected concentrated pool, got %q", pools[0].Type)
	}
	if len(pools[0].Assets) != 2 || pools[0].Assets[1].Symbol != "ATOM" {
		t.Errorf("Pool assets not resolved: %+v", pools[0].Assets)
	}
}

func TestRestoreLastBackup(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte("current"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path+".20240101-000000.bak", []byte("old"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path+".20250101-000000.bak", []byte("newer"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := RestoreLastBackup(path); err != nil {
		t.Fatalf("RestoreLastBackup failed: %v", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "newer" {
		t.Errorf("Expected newest backup restored, got %q", data)
	}

	if err := RestoreLastBackup(filepath.Join(dir, "other.json")); err == nil {
		t.Error("Expected error when no backups exist")
	}
}
