package hostctx

import (
	"fmt"
	"runtime"

	"github.com/BurntSushi/toml"
)

// HostContextConfig controls pool sizing and the ParallelFor oversharding
// factor. Zero-value fields are filled in from DefaultHostContextConfig by
// NewHostContext, so a caller only needs to set the fields it cares about.
type HostContextConfig struct {
	// Parallelism is the number of non-blocking worker goroutines. Zero
	// means GOMAXPROCS.
	Parallelism int `toml:"parallelism"`
	// QueueDepth bounds how many non-blocking tasks may sit in the
	// submission channel. Tasks submitted while it is full wait for room in
	// a goroutine of their own; Enqueue does not block the submitter.
	QueueDepth int `toml:"queue_depth"`
	// MaxBlockingTasks bounds how many blocking tasks may run concurrently.
	MaxBlockingTasks int64 `toml:"max_blocking_tasks"`
	// BlockingQueueDepth bounds the overflow buffer for blocking tasks
	// submitted with allow_queuing=true once MaxBlockingTasks is saturated.
	BlockingQueueDepth int `toml:"blocking_queue_depth"`
	// MinParallelForBlock is the default floor ParallelFor uses for its
	// computed block size when a caller passes minBlock <= 0.
	MinParallelForBlock int `toml:"min_parallel_for_block"`
	// OvershardingFactor is K in B = max(min_block, n / (K*P)).
	OvershardingFactor int `toml:"oversharding_factor"`
}

// DefaultHostContextConfig returns sane defaults: parallelism pinned to
// GOMAXPROCS, generous queue depths, and the oversharding factor of 4 named
// by the core's block-size formula.
func DefaultHostContextConfig() HostContextConfig {
	return HostContextConfig{
		Parallelism:         runtime.GOMAXPROCS(0),
		QueueDepth:          4096,
		MaxBlockingTasks:    64,
		BlockingQueueDepth:  1024,
		MinParallelForBlock: 1,
		OvershardingFactor:  4,
	}
}

// applyDefaults fills zero-valued fields of cfg from
// DefaultHostContextConfig, so a partially-specified config (including one
// decoded from a TOML file that only overrides a couple of keys) behaves
// sensibly.
func (cfg HostContextConfig) applyDefaults() HostContextConfig {
	d := DefaultHostContextConfig()
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = d.Parallelism
	}
	if cfg.QueueDepth <= 0 {
		cfg.QueueDepth = d.QueueDepth
	}
	if cfg.MaxBlockingTasks <= 0 {
		cfg.MaxBlockingTasks = d.MaxBlockingTasks
	}
	if cfg.BlockingQueueDepth <= 0 {
		cfg.BlockingQueueDepth = d.BlockingQueueDepth
	}
	if cfg.MinParallelForBlock <= 0 {
		cfg.MinParallelForBlock = d.MinParallelForBlock
	}
	if cfg.OvershardingFactor <= 0 {
		cfg.OvershardingFactor = d.OvershardingFactor
	}
	return cfg
}

// LoadHostContextConfig decodes a TOML file at path into a
// HostContextConfig, starting from DefaultHostContextConfig so the file
// only needs to mention the keys it wants to override.
func LoadHostContextConfig(path string) (HostContextConfig, error) {
	cfg := DefaultHostContextConfig()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return HostContextConfig{}, fmt.Errorf("hostctx: load config %s: %w", path, err)
	}
	return cfg, nil
}
