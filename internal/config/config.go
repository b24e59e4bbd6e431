// Package config defines service configuration and its loading.
package config

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8000".
	Addr string `koanf:"addr"`

	// DBDriver selects the vote log backend: sqlite, pgx or memory.
	DBDriver string `koanf:"db_driver"`

	// DBDSN is the driver-specific data source, a file path for sqlite or
	// a connection URL for pgx.
	DBDSN string `koanf:"db_dsn"`

	// CatalogFile is an optional YAML seed; empty means the built-in list.
	CatalogFile string `koanf:"catalog_file"`

	// SeedCatalog loads the seed into an empty catalog at startup.
	SeedCatalog bool `koanf:"seed_catalog"`

	// KFactor and InitialRating parameterize the Elo update.
	KFactor       float64 `koanf:"k_factor"`
	InitialRating float64 `koanf:"initial_rating"`

	// HistoryLimit bounds the in-memory outcome history.
	HistoryLimit int `koanf:"history_limit"`

	// RecentVotesLimit is the default size of GET /history.
	RecentVotesLimit int `koanf:"recent_votes_limit"`

	// MaxRecentLimit caps ?limit on /history and /outcomes.
	MaxRecentLimit int `koanf:"max_recent_limit"`

	// QueueSize bounds the votes waiting for the writer.
	QueueSize int `koanf:"queue_size"`

	// DedupeSize sets how many vote ids are remembered in memory.
	DedupeSize int `koanf:"dedupe_size"`

	// VoteRateLimit is the sustained POST /vote rate per second; zero
	// disables limiting. VoteRateBurst is the bucket size.
	VoteRateLimit float64 `koanf:"vote_rate_limit"`
	VoteRateBurst int     `koanf:"vote_rate_burst"`

	// CORSAllowedOrigin is sent as Access-Control-Allow-Origin.
	CORSAllowedOrigin string `koanf:"cors_allowed_origin"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		Addr:              ":8000",
		DBDriver:          "sqlite",
		DBDSN:             "arena.db",
		SeedCatalog:       true,
		KFactor:           32,
		InitialRating:     1500,
		HistoryLimit:      1000,
		RecentVotesLimit:  5,
		MaxRecentLimit:    100,
		QueueSize:         1024,
		DedupeSize:        50_000,
		VoteRateLimit:     20,
		VoteRateBurst:     40,
		CORSAllowedOrigin: "*",
	}
}
