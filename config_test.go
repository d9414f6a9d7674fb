package hostctx

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadHostContextConfigOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hostctx.toml")
	const body = `
parallelism = 8
max_blocking_tasks = 128
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadHostContextConfig(path)
	if err != nil {
		t.Fatalf("LoadHostContextConfig: %v", err)
	}

	if cfg.Parallelism != 8 {
		t.Fatalf("Parallelism = %d, want 8", cfg.Parallelism)
	}
	if cfg.MaxBlockingTasks != 128 {
		t.Fatalf("MaxBlockingTasks = %d, want 128", cfg.MaxBlockingTasks)
	}
	// Untouched keys still fall back to the defaults baked into the file
	// via DefaultHostContextConfig before decoding.
	if cfg.OvershardingFactor != 4 {
		t.Fatalf("OvershardingFactor = %d, want the default of 4", cfg.OvershardingFactor)
	}
}

func TestLoadHostContextConfigMissingFile(t *testing.T) {
	if _, err := LoadHostContextConfig(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatal("expected an error loading a nonexistent config file")
	}
}

func TestApplyDefaultsFillsZeroFields(t *testing.T) {
	cfg := HostContextConfig{Parallelism: 2}.applyDefaults()
	d := DefaultHostContextConfig()

	if cfg.Parallelism != 2 {
		t.Fatalf("Parallelism = %d, want the explicitly set 2", cfg.Parallelism)
	}
	if cfg.QueueDepth != d.QueueDepth {
		t.Fatalf("QueueDepth = %d, want default %d", cfg.QueueDepth, d.QueueDepth)
	}
	if cfg.OvershardingFactor != d.OvershardingFactor {
		t.Fatalf("OvershardingFactor = %d, want default %d", cfg.OvershardingFactor, d.OvershardingFactor)
	}
}
