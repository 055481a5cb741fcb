package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverChromedp = "chromedp"
	DriverRod      = "rod"

	StoreFilesystem    = "filesystem"
	StoreElasticsearch = "elasticsearch"
)

// Browser holds the launch flags shared by both drivers.
type Browser struct {
	Driver               string
	Bin                  string
	Headless             bool
	DisableBlinkFeatures string
	NoSandbox            bool
	DisableDevShmUsage   bool
	UserAgent            string
	// LifeTime caps how long a single chromedp session may live. It is a
	// safety net against pages that never settle, not a harvest deadline.
	LifeTime time.Duration
}

// Harvest holds the timing and termination knobs of the scroll-and-collect
// engine. Defaults match the source's observed render latency.
type Harvest struct {
	NavigateSettle    time.Duration
	ClickSettle       time.Duration
	ControlWait       time.Duration
	PollInterval      time.Duration
	ScrollSettle      time.Duration
	MaxScrollAttempts int
	StaleLimit        int
}

type Storage struct {
	Kind string
	Path string

	Elasticsearch struct {
		Address  string
		Username string
		Password string
		Index    string
	}
}

type Config struct {
	AppEnv string
	Port   string

	Browser Browser
	Harvest Harvest
	Storage Storage

	MaxConcurrentHarvests int

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
}

// Load reads configuration from the environment, consulting .env files when
// present, and applies defaults for everything that is not set.
func Load() (*Config, error) {
	_ = godotenv.Load(".env", ".env.local")

	cfg := &Config{
		AppEnv: getEnv("APP_ENV", "development"),
		Port:   getEnv("PORT", "8000"),

		MaxConcurrentHarvests: getEnvInt("MAX_CONCURRENT_HARVESTS", 2),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
	}

	cfg.Browser = Browser{
		Driver:               getEnv("BROWSER_DRIVER", DriverChromedp),
		Bin:                  os.Getenv("BROWSER_BIN"),
		Headless:             getEnvBool("BROWSER_HEADLESS", true),
		DisableBlinkFeatures: getEnv("BROWSER_DISABLE_BLINK_FEATURES", "AutomationControlled"),
		NoSandbox:            getEnvBool("BROWSER_NO_SANDBOX", true),
		DisableDevShmUsage:   getEnvBool("BROWSER_DISABLE_DEV_SHM_USAGE", true),
		UserAgent: getEnv("BROWSER_USER_AGENT",
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64) "+
				"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"),
		LifeTime: time.Second * time.Duration(getEnvInt("BROWSER_LIFETIME_SECONDS", 1800)),
	}

	cfg.Harvest = Harvest{
		NavigateSettle:    time.Millisecond * time.Duration(getEnvInt("NAVIGATE_SETTLE_MS", 6000)),
		ClickSettle:       time.Millisecond * time.Duration(getEnvInt("CLICK_SETTLE_MS", 3000)),
		ControlWait:       time.Millisecond * time.Duration(getEnvInt("CONTROL_WAIT_MS", 20000)),
		PollInterval:      time.Millisecond * time.Duration(getEnvInt("CONTROL_POLL_MS", 500)),
		ScrollSettle:      time.Millisecond * time.Duration(getEnvInt("SCROLL_SETTLE_MS", 1500)),
		MaxScrollAttempts: getEnvInt("MAX_SCROLL_ATTEMPTS", 500),
		StaleLimit:        getEnvInt("SCROLL_STALE_LIMIT", 6),
	}

	cfg.Storage.Kind = getEnv("RESULT_STORE", StoreFilesystem)
	cfg.Storage.Path = getEnv("RESULT_STORE_PATH", "output")
	cfg.Storage.Elasticsearch.Address = getEnv("ELASTICSEARCH_ADDRESS", "https://localhost:9200")
	cfg.Storage.Elasticsearch.Username = os.Getenv("ELASTICSEARCH_USERNAME")
	cfg.Storage.Elasticsearch.Password = os.Getenv("ELASTICSEARCH_PASSWORD")
	cfg.Storage.Elasticsearch.Index = getEnv("ELASTICSEARCH_INDEX", "harvest-results")

	switch cfg.Browser.Driver {
	case DriverChromedp, DriverRod:
	default:
		return nil, fmt.Errorf("unknown BROWSER_DRIVER %q", cfg.Browser.Driver)
	}
	switch cfg.Storage.Kind {
	case StoreFilesystem, StoreElasticsearch:
	default:
		return nil, fmt.Errorf("unknown RESULT_STORE %q", cfg.Storage.Kind)
	}
	if cfg.MaxConcurrentHarvests < 1 {
		return nil, fmt.Errorf("MAX_CONCURRENT_HARVESTS must be at least 1")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
