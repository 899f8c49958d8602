package preflight

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"

	"trawl/internal/checkpoint"
	"trawl/internal/config"
)

// StorageProbe reports the current on-disk crawl state snapshot.
type StorageProbe struct {
	CatalogPresent bool
	CatalogBytes   uint64
	CursorPresent  bool
	Cursor         string
}

// ProbeStorage inspects the data directory without opening any stores.
func ProbeStorage(cfg *config.Config) StorageProbe {
	var probe StorageProbe
	if cfg == nil {
		return probe
	}
	if info, err := os.Stat(cfg.CatalogPath()); err == nil && !info.IsDir() {
		probe.CatalogPresent = true
		probe.CatalogBytes = uint64(info.Size())
	}
	if value, found, err := checkpoint.NewStore(cfg.CursorPath()).Load(); err == nil && found {
		probe.CursorPresent = true
		probe.Cursor = value
	}
	return probe
}

// CatalogDetail renders a display-friendly catalog summary for status UIs.
func (p StorageProbe) CatalogDetail() string {
	if !p.CatalogPresent {
		return "No catalog snapshot yet"
	}
	return fmt.Sprintf("Snapshot on disk (%s)", humanize.IBytes(p.CatalogBytes))
}

// CursorDetail renders a display-friendly resume summary for status UIs.
func (p StorageProbe) CursorDetail() string {
	if !p.CursorPresent {
		return "No crawl in progress"
	}
	return fmt.Sprintf("Next run resumes at %s", p.Cursor)
}
