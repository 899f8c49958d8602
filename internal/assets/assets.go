package assets

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"trawl/internal/logging"
	"trawl/internal/services"
	"trawl/internal/workid"
)

// mainImageSuffix names the one asset kept per work.
const mainImageSuffix = "_img_main.jpg"

// Store downloads work images into a sharded local mirror.
type Store struct {
	root       string
	userAgent  string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Store) {
		if client != nil {
			s.httpClient = client
		}
	}
}

// WithUserAgent overrides the User-Agent sent on downloads.
func WithUserAgent(userAgent string) Option {
	return func(s *Store) {
		if trimmed := strings.TrimSpace(userAgent); trimmed != "" {
			s.userAgent = trimmed
		}
	}
}

// NewStore creates an asset store rooted at the given directory.
func NewStore(root string, logger *slog.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Store{
		root:       root,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logging.NewComponentLogger(logger, "assets"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Root returns the mirror's base directory.
func (s *Store) Root() string {
	return s.root
}

// Path derives the on-disk location for a work's main image:
// <root>/<shard>/<id>/<id>_img_main.jpg. Errors when the identifier does not
// yield a shard key.
func (s *Store) Path(id string) (string, error) {
	shard := workid.ShardKey(id)
	if shard == "" {
		return "", fmt.Errorf("identifier %q has no shard key", id)
	}
	return filepath.Join(s.root, shard, id, id+mainImageSuffix), nil
}

// Exists reports whether the work's image already occupies its target path.
func (s *Store) Exists(id string) bool {
	path, err := s.Path(id)
	if err != nil {
		return false
	}
	_, statErr := os.Stat(path)
	return statErr == nil
}

// Fetch downloads the work's main image unless it is already present. It
// reports whether a download actually happened (false for the skip case).
// Scheme-relative URLs ("//host/path") are completed with https before the
// request. The blob streams to a .part file and renames into place, so a
// failed attempt never occupies the final path.
func (s *Store) Fetch(ctx context.Context, id, rawURL string) (bool, error) {
	path, err := s.Path(id)
	if err != nil {
		return false, services.Wrap(services.ErrAssetFetch, "assets", "fetch", "derive path", err)
	}

	if _, err := os.Stat(path); err == nil {
		s.logger.Debug("asset already present",
			logging.String(logging.FieldWorkID, id),
			logging.String("asset_path", path))
		return false, nil
	}

	fetchURL := normalizeURL(rawURL)
	if fetchURL == "" {
		return false, services.Wrap(services.ErrAssetFetch, "assets", "fetch", "empty asset url", nil)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fetchURL, nil)
	if err != nil {
		return false, services.Wrap(services.ErrAssetFetch, "assets", "fetch", "build request", err)
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}

	requestStart := time.Now()
	resp, err := s.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return false, services.Wrap(services.ErrAssetFetch, "assets", "fetch",
			fmt.Sprintf("execute request (latency=%v)", latency), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, services.Wrap(services.ErrAssetFetch, "assets", "fetch",
			fmt.Sprintf("download returned %d (latency=%v)", resp.StatusCode, latency), nil)
	}

	written, err := s.writeAtomic(path, resp.Body)
	if err != nil {
		return false, services.Wrap(services.ErrAssetFetch, "assets", "fetch", "store blob", err)
	}

	s.logger.Debug("asset stored",
		logging.String(logging.FieldWorkID, id),
		logging.Int64("asset_bytes", written),
		logging.Duration("latency", latency),
		logging.String("asset_path", path))

	return true, nil
}

// writeAtomic streams body to path via a .part sibling so the final path is
// only ever occupied by a complete blob.
func (s *Store) writeAtomic(path string, body io.Reader) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("create asset directory: %w", err)
	}

	tmp := path + ".part"
	out, err := os.Create(tmp)
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}

	written, copyErr := io.Copy(out, body)
	closeErr := out.Close()
	if copyErr != nil {
		os.Remove(tmp)
		return 0, fmt.Errorf("write blob: %w", copyErr)
	}
	if closeErr != nil {
		os.Remove(tmp)
		return 0, fmt.Errorf("close temp file: %w", closeErr)
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return 0, fmt.Errorf("rename temp file: %w", err)
	}
	return written, nil
}

// normalizeURL completes scheme-relative URLs with https. Blank input stays
// blank.
func normalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(raw, "//") {
		return "https:" + raw
	}
	return raw
}
