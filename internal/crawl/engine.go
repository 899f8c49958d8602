package crawl

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"trawl/internal/assets"
	"trawl/internal/checkpoint"
	"trawl/internal/config"
	"trawl/internal/dlsite"
	"trawl/internal/journal"
	"trawl/internal/logging"
	"trawl/internal/services"
	"trawl/internal/universe"
	"trawl/internal/workid"
)

// Provider answers record lookups for the engine. The production
// implementation is dlsite.Client; tests substitute fakes.
type Provider interface {
	Work(ctx context.Context, id string) (*dlsite.Work, error)
}

// Engine drives one crawl: it walks the enumeration universe, consults the
// provider for unknown identifiers, appends accepted records to the catalog,
// mirrors assets, and keeps the cursor and journal current. All collaborators
// are injected at construction; the engine holds no global state.
type Engine struct {
	cfg        *config.Config
	codec      workid.Codec
	universe   *universe.Universe
	cursor     *checkpoint.Store
	assets     *assets.Store
	provider   Provider
	journal    *journal.Store
	logger     *slog.Logger
	baseLogger *slog.Logger
	backoff    Backoff
	runID      string

	makerFields  map[string]string
	allowedSites map[string]struct{}
}

// Option configures optional Engine behavior.
type Option func(*Engine)

// WithBackoff overrides the retry policy derived from config.
func WithBackoff(b Backoff) Option {
	return func(e *Engine) {
		e.backoff = b
	}
}

// WithRunID pins the run identifier instead of generating one, so callers
// can correlate the journal row with per-run log files they name themselves.
func WithRunID(id string) Option {
	return func(e *Engine) {
		if trimmed := strings.TrimSpace(id); trimmed != "" {
			e.runID = trimmed
		}
	}
}

// WithAssetClient overrides the HTTP client used for asset downloads.
func WithAssetClient(client *http.Client) Option {
	return func(e *Engine) {
		e.assets = assets.NewStore(e.cfg.AssetRoot(), e.baseLogger,
			assets.WithHTTPClient(client),
			assets.WithUserAgent(e.cfg.Provider.UserAgent))
	}
}

// New builds an Engine from validated configuration. The journal store may be
// nil; runs then proceed without history rows. The provider is required.
func New(cfg *config.Config, provider Provider, journalStore *journal.Store, logger *slog.Logger, opts ...Option) (*Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("crawl: config is required")
	}
	if provider == nil {
		return nil, fmt.Errorf("crawl: provider is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	prefixes := make([]string, 0, len(cfg.Crawl.Families))
	families := make([]universe.FamilyRanges, 0, len(cfg.Crawl.Families))
	makerFields := make(map[string]string, len(cfg.Crawl.Families))
	for _, family := range cfg.Crawl.Families {
		prefixes = append(prefixes, family.Prefix)
		makerFields[family.Prefix] = family.MakerField
		intervals := make([]universe.Interval, 0, len(family.Ranges))
		for _, rng := range family.Ranges {
			intervals = append(intervals, universe.Interval{Lo: uint32(rng[0]), Hi: uint32(rng[1])})
		}
		families = append(families, universe.FamilyRanges{Family: family.Prefix, Intervals: intervals})
	}

	codec, err := workid.NewCodec(prefixes...)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "crawl", "new", "build codec", err)
	}
	u, err := universe.New(families)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "crawl", "new", "build universe", err)
	}

	allowed := make(map[string]struct{}, len(cfg.Crawl.Sites))
	for _, site := range cfg.Crawl.Sites {
		allowed[strings.ToLower(strings.TrimSpace(site))] = struct{}{}
	}

	engine := &Engine{
		cfg:        cfg,
		codec:      codec,
		universe:   u,
		cursor:     checkpoint.NewStore(cfg.CursorPath()),
		provider:   provider,
		journal:    journalStore,
		logger:     logging.NewComponentLogger(logger, "crawl"),
		baseLogger: logger,
		backoff:    BackoffFromConfig(cfg.Provider.RetryAttempts, cfg.Provider.RetryBaseMS),
		runID:      uuid.NewString(),

		makerFields:  makerFields,
		allowedSites: allowed,
	}
	engine.assets = assets.NewStore(cfg.AssetRoot(), logger,
		assets.WithUserAgent(cfg.Provider.UserAgent))

	for _, opt := range opts {
		opt(engine)
	}
	return engine, nil
}

// RunID returns the identifier the next Run will journal under.
func (e *Engine) RunID() string {
	return e.runID
}

// Universe exposes the enumeration universe, mainly for size reporting.
func (e *Engine) Universe() *universe.Universe {
	return e.universe
}

// makerFor extracts the maker name from the provider field configured for
// the identifier's family, falling back to the Unknown sentinel.
func (e *Engine) makerFor(family string, work *dlsite.Work) string {
	var maker string
	switch e.makerFields[family] {
	case "brand":
		maker = work.Brand
	default:
		maker = work.Circle
	}
	maker = strings.TrimSpace(maker)
	if maker == "" {
		return "Unknown"
	}
	return maker
}

// siteAllowed applies the acceptance filter to a provider-reported site
// classification.
func (e *Engine) siteAllowed(siteID string) bool {
	_, ok := e.allowedSites[strings.ToLower(strings.TrimSpace(siteID))]
	return ok
}

// Summary reports what a run did. The engine returns it even when the run
// ends early, so interrupted runs still surface their partial counts.
type Summary struct {
	RunID      string
	ResumeFrom string
	Completed  bool
	Duration   time.Duration

	Visited         int64
	Catalogued      int64
	AssetsFetched   int64
	Repaired        int64
	NotFound        int64
	TransientErrors int64
	AssetErrors     int64
	FlushCount      int64
	CheckpointCount int64
	CatalogSize     int64
}
