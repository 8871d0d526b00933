package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Server      ServerConfig    `toml:"server"`
	Sites       SitesConfig     `toml:"sites"`
	Crawler     CrawlerConfig   `toml:"crawler"`
	Resolver    ResolverConfig  `toml:"resolver"`
	Selection   SelectionConfig `toml:"selection"`
	Archive     ArchiveConfig   `toml:"archive"`
	Logging     LoggingConfig   `toml:"logging"`
	Schedule    ScheduleConfig  `toml:"schedule"`
}

type ServerConfig struct {
	Port int    `toml:"port" validate:"gte=0,lte=65535"`
	Host string `toml:"host"`
}

// SitesConfig names the two hosts the pipeline talks to: the company-profile
// site and the regulatory filing host that serves the authoritative binaries.
type SitesConfig struct {
	ProfileBaseURL string `toml:"profile_base_url" validate:"required,url"`
	FilingHost     string `toml:"filing_host" validate:"required"`
	// FilingWarmPath is fetched after the filing host's front page when the
	// resolver warms a session, so the cookie jar looks like a real visit.
	FilingWarmPath string `toml:"filing_warm_path"`
}

// CrawlerConfig controls the shared fetch client. RequestDelay is the
// mandatory politeness gap between requests to the same host.
type CrawlerConfig struct {
	UserAgent      string        `toml:"user_agent" validate:"required"`
	RequestDelay   time.Duration `toml:"request_delay"`
	RequestTimeout time.Duration `toml:"request_timeout"`
	MaxBodySize    int64         `toml:"max_body_size" validate:"gt=0"`
}

// ResolverConfig controls the bounded strategy list for indirect URLs.
type ResolverConfig struct {
	// Direct-file URL templates tried for the filing host, in order. The
	// embedded attachment path is substituted for %s.
	AttachmentTemplates []string `toml:"attachment_templates" validate:"min=1"`
	// Alternate client identification strings tried when the default UA is
	// rejected.
	AlternateUserAgents []string      `toml:"alternate_user_agents"`
	MaxAttempts         int           `toml:"max_attempts" validate:"gte=1,lte=5"`
	EnableBrowser       bool          `toml:"enable_browser"` // chromedp last-resort strategy
	BrowserTimeout      time.Duration `toml:"browser_timeout"`
}

type SelectionConfig struct {
	MaxConcallPeriods int `toml:"max_concall_periods" validate:"gte=1"`
	MaxAnnualReports  int `toml:"max_annual_reports" validate:"gte=1"`
}

type ArchiveConfig struct {
	Dir         string `toml:"dir" validate:"required"`
	HistoryPath string `toml:"history_path"` // empty disables the history store
	// ValidatePDF runs a structural check over every archived .pdf and
	// discards files that fail it.
	ValidatePDF bool `toml:"validate_pdf"`
}

type LoggingConfig struct {
	Level  string   `toml:"level" validate:"oneof=debug info warn error"`
	Output []string `toml:"output"` // "stdout", "file"
}

// ScheduleConfig enables unattended batch runs in server mode.
type ScheduleConfig struct {
	Cron    string   `toml:"cron"` // empty disables scheduling
	Symbols []string `toml:"symbols"`
}

// NewDefaultConfig creates a configuration with default values.
// Technical parameters are hardcoded here for production stability; only
// user-facing settings belong in colligo.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		Sites: SitesConfig{
			ProfileBaseURL: "https://www.screener.in",
			FilingHost:     "www.bseindia.com",
			FilingWarmPath: "/corporates/ann.html",
		},
		Crawler: CrawlerConfig{
			UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			RequestDelay:   2 * time.Second,
			RequestTimeout: 30 * time.Second,
			MaxBodySize:    50 * 1024 * 1024, // filings run large
		},
		Resolver: ResolverConfig{
			AttachmentTemplates: []string{
				"https://www.bseindia.com/xml-data/corpfiling/AttachLive/%s",
				"https://www.bseindia.com/xml-data/corpfiling/AttachHis/%s",
			},
			AlternateUserAgents: []string{
				"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
				"Mozilla/5.0 (X11; Linux x86_64; rv:124.0) Gecko/20100101 Firefox/124.0",
			},
			MaxAttempts:    5,
			EnableBrowser:  false,
			BrowserTimeout: 45 * time.Second,
		},
		Selection: SelectionConfig{
			MaxConcallPeriods: 5,
			MaxAnnualReports:  5,
		},
		Archive: ArchiveConfig{
			Dir:         "./downloads",
			HistoryPath: "./data/history",
			ValidatePDF: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout", "file"},
		},
		Schedule: ScheduleConfig{},
	}
}

// LoadFromFile loads configuration with priority: defaults -> file -> env.
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files; later files override
// earlier ones. Priority: CLI flags > environment variables > last config
// file > ... > first config file > defaults.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks structural constraints on the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("COLLIGO_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	if port := os.Getenv("COLLIGO_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("COLLIGO_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	if base := os.Getenv("COLLIGO_PROFILE_BASE_URL"); base != "" {
		config.Sites.ProfileBaseURL = base
	}
	if host := os.Getenv("COLLIGO_FILING_HOST"); host != "" {
		config.Sites.FilingHost = host
	}

	if delay := os.Getenv("COLLIGO_REQUEST_DELAY"); delay != "" {
		if d, err := time.ParseDuration(delay); err == nil {
			config.Crawler.RequestDelay = d
		}
	}
	if ua := os.Getenv("COLLIGO_USER_AGENT"); ua != "" {
		config.Crawler.UserAgent = ua
	}

	if dir := os.Getenv("COLLIGO_ARCHIVE_DIR"); dir != "" {
		config.Archive.Dir = dir
	}
	if path := os.Getenv("COLLIGO_HISTORY_PATH"); path != "" {
		config.Archive.HistoryPath = path
	}

	if level := os.Getenv("COLLIGO_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
}

// ApplyFlagOverrides applies command-line flag overrides (highest priority).
// Zero values mean "flag not set".
func ApplyFlagOverrides(config *Config, port int, host string, archiveDir string) {
	if port != 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
	if archiveDir != "" {
		config.Archive.Dir = archiveDir
	}
}

// IsProduction reports whether the app runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
