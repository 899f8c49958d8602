package config

// maxWorkNumber is the largest numeric component a work identifier may
// carry, matching the eight digit upper bound of the identifier codec.
const maxWorkNumber = 9_999_999

const (
	defaultDataDir             = "~/.local/share/trawl"
	defaultCheckpointEvery     = 10
	defaultFlushEvery          = 20
	defaultProgressPercentStep = 5.0
	defaultProviderBaseURL     = "https://www.dlsite.com"
	defaultProviderTimeout     = 15
	defaultRetryAttempts       = 3
	defaultRetryBaseMS         = 500
	defaultUserAgent           = "trawl/1.0"
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultLogRetentionDays    = 30
)

func defaultRanges() [][]int64 {
	return [][]int64{{0, 499_999}, {1_000_000, 1_369_999}}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
		},
		Crawl: Crawl{
			CheckpointEvery:     defaultCheckpointEvery,
			FlushEvery:          defaultFlushEvery,
			Sites:               []string{"maniax", "pro"},
			ProgressPercentStep: defaultProgressPercentStep,
			Families: []Family{
				{Prefix: "RJ", MakerField: "circle", Ranges: defaultRanges()},
				{Prefix: "VJ", MakerField: "brand", Ranges: defaultRanges()},
			},
		},
		Provider: Provider{
			BaseURL:        defaultProviderBaseURL,
			TimeoutSeconds: defaultProviderTimeout,
			RetryAttempts:  defaultRetryAttempts,
			RetryBaseMS:    defaultRetryBaseMS,
			UserAgent:      defaultUserAgent,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
