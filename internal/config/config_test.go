package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/pflag"

	"automanKit/internal/chaininfo"
)

func TestLoadDefaultsAndEnv(t *testing.T) {
	t.Setenv("AUTOMAN_RPC", "http://localhost:8545")
	t.Setenv("AUTOMAN_CHAIN_ID", "8453")

	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RPCURL != "http://localhost:8545" {
		t.Fatalf("rpc = %q", cfg.RPCURL)
	}
	if cfg.ChainID != chaininfo.Base {
		t.Fatalf("chain id = %d", cfg.ChainID)
	}
	if cfg.BatchSize != 2000 || cfg.MaxRetries != 5 || cfg.RetryBackoff != 500*time.Millisecond {
		t.Fatalf("defaults mismatch: %+v", cfg)
	}
}

func TestLoadFlagsOverrideFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "automan.yaml")
	writeFile(t, cfgPath, `
rpc: http://file:8545
log-level: debug
chains:
  "1":
    automan: "0x00000000Ede6d8D217c60f93191C060747324bca"
`)

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("rpc", "", "")
	if err := flags.Parse([]string{"--rpc", "http://flag:8545"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := Load(cfgPath, flags)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RPCURL != "http://flag:8545" {
		t.Fatalf("rpc = %q, want flag value", cfg.RPCURL)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("log level = %q", cfg.LogLevel)
	}

	registry, err := cfg.Registry()
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	info, err := registry.Get(chaininfo.Ethereum)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if info.Automan != common.HexToAddress("0x00000000Ede6d8D217c60f93191C060747324bca") {
		t.Fatalf("automan override not applied: %s", info.Automan.Hex())
	}
}

func TestLoadChainsFile(t *testing.T) {
	chainsPath := filepath.Join(t.TempDir(), "chains.yaml")
	writeFile(t, chainsPath, `
"31337":
  name: anvil
  factory: "0x1F98431c8aD98523631AE4a59f267346ea31F984"
  position-manager: "0xC36442b4a4522E871399CD717aBDD847Ab11FE88"
  supports-state-override: false
`)
	t.Setenv("AUTOMAN_CHAINS_FILE", chainsPath)

	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	registry, err := cfg.Registry()
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	info, err := registry.Get(31337)
	if err != nil {
		t.Fatalf("custom chain not registered: %v", err)
	}
	if info.Name != "anvil" || info.SupportsStateOverride {
		t.Fatalf("custom chain mismatch: %+v", info)
	}
	if info.PoolInitCodeHash != chaininfo.PoolInitCodeHash {
		t.Fatalf("init code hash should default")
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
