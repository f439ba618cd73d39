package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	AppConfig      *AppConfig
	BrowserConfig  *BrowserConfig
	SelectorConfig *SelectorConfig
	LibraryConfig  *LibraryConfig
}

type AppConfig struct {
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	Debug    bool   `envconfig:"DEBUG" default:"false"`
}

type BrowserConfig struct {
	Headless       bool   `envconfig:"BROWSER_HEADLESS" default:"false"`
	SlowMo         int    `envconfig:"BROWSER_SLOW_MO" default:"0"`
	Timeout        int    `envconfig:"BROWSER_TIMEOUT" default:"30000"`
	UserDataDir    string `envconfig:"BROWSER_USER_DATA_DIR" default:""`
	ViewportWidth  int    `envconfig:"BROWSER_VIEWPORT_WIDTH" default:"1920"`
	ViewportHeight int    `envconfig:"BROWSER_VIEWPORT_HEIGHT" default:"1080"`
	DownloadDir    string `envconfig:"DOWNLOAD_DIR" default:"./downloads"`
}

type SelectorConfig struct {
	StorePath   string        `envconfig:"SELECTOR_STORE_PATH" default:"selectors.json"`
	UseDefaults bool          `envconfig:"SELECTOR_USE_DEFAULTS" default:"true"`
	Wait        time.Duration `envconfig:"SELECTOR_WAIT" default:"10s"`
}

type LibraryConfig struct {
	BaseURL          string        `envconfig:"LIBRARY_BASE_URL" default:"https://www.beatport.com"`
	LoginPath        string        `envconfig:"LIBRARY_LOGIN_PATH" default:"/account/login"`
	LibraryPath      string        `envconfig:"LIBRARY_PATH" default:"/library"`
	DownloadsPath    string        `envconfig:"LIBRARY_DOWNLOADS_PATH" default:"/library/downloads"`
	LoginTimeout     time.Duration `envconfig:"LIBRARY_LOGIN_TIMEOUT" default:"120s"`
	StartPage        int           `envconfig:"LIBRARY_START_PAGE" default:"1"`
	EndPage          int           `envconfig:"LIBRARY_END_PAGE" default:"0"`
	CheckDownloads   bool          `envconfig:"LIBRARY_CHECK_DOWNLOADS" default:"true"`
	DownloadsOnly    bool          `envconfig:"LIBRARY_DOWNLOADS_ONLY" default:"false"`
	DownloadAttempts int           `envconfig:"LIBRARY_DOWNLOAD_ATTEMPTS" default:"5"`
}

func GetConfig() (*Config, error) {
	_ = godotenv.Load()

	var conf Config

	if err := envconfig.Process("", &conf); err != nil {
		return nil, fmt.Errorf("read config from env vars: %w", err)
	}

	if err := conf.validate(); err != nil {
		return nil, err
	}

	return &conf, nil
}

func (c *Config) validate() error {
	if c.LibraryConfig.StartPage < 1 {
		return fmt.Errorf("LIBRARY_START_PAGE must be >= 1, got %d", c.LibraryConfig.StartPage)
	}

	if c.LibraryConfig.EndPage != 0 && c.LibraryConfig.EndPage < c.LibraryConfig.StartPage {
		return fmt.Errorf("LIBRARY_END_PAGE %d is before LIBRARY_START_PAGE %d",
			c.LibraryConfig.EndPage, c.LibraryConfig.StartPage)
	}

	if c.SelectorConfig.StorePath == "" {
		return fmt.Errorf("SELECTOR_STORE_PATH must not be empty")
	}

	return nil
}
