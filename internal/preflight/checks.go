package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sys/unix"

	"trawl/internal/config"
	"trawl/internal/dlsite"
	"trawl/internal/services"
	"trawl/internal/workid"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckDiskSpace verifies the filesystem under path keeps at least minFree
// bytes available for catalog snapshots and mirrored assets.
func CheckDiskSpace(name, path string, minFree uint64) Result {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: statfs: %v)", path, err)}
	}
	free := uint64(stat.Bavail) * uint64(stat.Bsize)
	if free < minFree {
		return Result{Name: name, Detail: fmt.Sprintf("%s free on %s (need %s)", humanize.IBytes(free), path, humanize.IBytes(minFree))}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s free on %s", humanize.IBytes(free), path)}
}

// CheckProvider verifies that the record provider answers product lookups.
// It uses the real client with a 5-second timeout and a single attempt; a
// not-found answer for the probe identifier still counts as reachable.
func CheckProvider(ctx context.Context, cfg *config.Config) Result {
	const name = "Record provider"

	base := strings.TrimSpace(cfg.Provider.BaseURL)
	if base == "" {
		return Result{Name: name, Detail: "missing base url"}
	}

	client, err := dlsite.New(base,
		dlsite.WithHTTPClient(&http.Client{Timeout: 5 * time.Second}),
		dlsite.WithUserAgent(cfg.Provider.UserAgent))
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := client.Work(checkCtx, probeID(cfg)); err != nil && !errors.Is(err, services.ErrNotFound) {
		return Result{Name: name, Detail: summarizeProviderError(err)}
	}
	return Result{Name: name, Passed: true, Detail: "API reachable"}
}

// probeID picks an identifier from the first configured family so the probe
// exercises the same endpoint a run would.
func probeID(cfg *config.Config) string {
	if len(cfg.Crawl.Families) > 0 {
		family := cfg.Crawl.Families[0]
		if len(family.Ranges) > 0 && len(family.Ranges[0]) == 2 {
			return workid.Format(family.Prefix, uint32(family.Ranges[0][0]))
		}
		return workid.Format(family.Prefix, 1)
	}
	return workid.Format("RJ", 1)
}

// summarizeProviderError produces a human-readable summary for provider probe failures.
func summarizeProviderError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "probe timed out (provider unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "probe timed out (provider unreachable)"
	}
	return err.Error()
}
