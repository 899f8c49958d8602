package preflight

import (
	"context"

	"trawl/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// minFreeBytes is the disk headroom below which the space check fails.
// Individual cover images are small but a full enumeration mirrors hundreds
// of thousands of them.
const minFreeBytes = 1 << 30

// RunAll executes all preflight checks for the given config. The run command
// surfaces failures as warnings before starting; the status command renders
// the results directly.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	return []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckDiskSpace("Disk space", cfg.Paths.DataDir, minFreeBytes),
		CheckProvider(ctx, cfg),
	}
}
