// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the pdfer configuration
type Config struct {
	LogLevel  string      `mapstructure:"log_level"`
	LogFile   string      `mapstructure:"log_file"`
	DataDir   string      `mapstructure:"data_dir"`
	OutputDir string      `mapstructure:"output_dir"`
	Workers   int         `mapstructure:"workers"`
	Notify    bool        `mapstructure:"notify"`
	OCR       OCRConfig   `mapstructure:"ocr"`
	Redis     RedisConfig `mapstructure:"redis"`
	Watch     WatchConfig `mapstructure:"watch"`
}

// OCRConfig holds rasterization and Tesseract settings
type OCRConfig struct {
	Languages   []string `mapstructure:"languages"`
	DPI         int      `mapstructure:"dpi"`
	PageSegMode int      `mapstructure:"page_seg_mode"`
	PageWorkers int      `mapstructure:"page_workers"`
	Whitelist   string   `mapstructure:"whitelist"`
}

// RedisConfig holds job queue settings. With Enabled false jobs stay in memory.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	DB       int    `mapstructure:"db"`
	Password string `mapstructure:"password"`
	QueueKey string `mapstructure:"queue_key"`
}

// WatchConfig holds inbox watching settings
type WatchConfig struct {
	Paths    []string      `mapstructure:"paths"`
	Debounce time.Duration `mapstructure:"debounce"`
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		LogLevel:  "info",
		DataDir:   defaultDir(),
		OutputDir: "./out",
		Workers:   2,
		OCR: OCRConfig{
			Languages:   []string{"eng"},
			DPI:         300,
			PageWorkers: 4,
		},
		Redis: RedisConfig{
			Addr:     "127.0.0.1:6379",
			QueueKey: "pdfer:jobs",
		},
		Watch: WatchConfig{
			Paths:    []string{"./inbox"},
			Debounce: 500 * time.Millisecond,
		},
	}
}

func defaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".pdfer"
	}
	return filepath.Join(home, ".pdfer")
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_file", d.LogFile)
	v.SetDefault("data_dir", d.DataDir)
	v.SetDefault("output_dir", d.OutputDir)
	v.SetDefault("workers", d.Workers)
	v.SetDefault("notify", d.Notify)
	v.SetDefault("ocr.languages", d.OCR.Languages)
	v.SetDefault("ocr.dpi", d.OCR.DPI)
	v.SetDefault("ocr.page_seg_mode", d.OCR.PageSegMode)
	v.SetDefault("ocr.page_workers", d.OCR.PageWorkers)
	v.SetDefault("ocr.whitelist", d.OCR.Whitelist)
	v.SetDefault("redis.enabled", d.Redis.Enabled)
	v.SetDefault("redis.addr", d.Redis.Addr)
	v.SetDefault("redis.db", d.Redis.DB)
	v.SetDefault("redis.password", d.Redis.Password)
	v.SetDefault("redis.queue_key", d.Redis.QueueKey)
	v.SetDefault("watch.paths", d.Watch.Paths)
	v.SetDefault("watch.debounce", d.Watch.Debounce)
}

// Load reads configuration from a YAML file, .env and PDFER_* environment variables.
// With an empty configPath, ~/.pdfer/config.yaml is used and created if missing.
func Load(configPath string) (*Config, error) {
	// .env is optional
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	if configPath == "" {
		configPath = filepath.Join(defaultDir(), "config.yaml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			if err := generateDefaultConfig(configPath); err != nil {
				return nil, fmt.Errorf("failed to generate default config: %w", err)
			}
		}
	}
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	v.SetEnvPrefix("PDFER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if cfg.DataDir == "" {
		cfg.DataDir = defaultDir()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail deep inside the pipeline
func (c *Config) Validate() error {
	if c.OCR.DPI <= 0 {
		return fmt.Errorf("ocr.dpi must be positive, got %d", c.OCR.DPI)
	}
	if c.OCR.PageWorkers <= 0 {
		return fmt.Errorf("ocr.page_workers must be positive, got %d", c.OCR.PageWorkers)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	if c.OCR.PageSegMode < 0 || c.OCR.PageSegMode > 13 {
		return fmt.Errorf("ocr.page_seg_mode must be between 0 and 13, got %d", c.OCR.PageSegMode)
	}
	return nil
}

// EngineMetadata returns Tesseract variables derived from the OCR settings
func (c *Config) EngineMetadata() map[string]string {
	if c.OCR.Whitelist == "" {
		return nil
	}
	return map[string]string{"tessedit_char_whitelist": c.OCR.Whitelist}
}

// generateDefaultConfig creates a default configuration file
func generateDefaultConfig(configFile string) error {
	defaultConfig := `# pdfer configuration

log_level: info        # debug, info, warn, error
log_file: ""           # optional, logs go to stdout as well
data_dir: ""           # result database location, defaults to ~/.pdfer
output_dir: "./out"    # where watched documents are exported as .xlsx
workers: 2             # documents processed concurrently
notify: false          # desktop notifications when documents finish

ocr:
  languages: ["eng"]
  dpi: 300
  page_seg_mode: 0     # 0 keeps the Tesseract default
  page_workers: 4      # pages recognized concurrently per document
  whitelist: ""

redis:
  enabled: false       # use Redis instead of the in-process queue
  addr: "127.0.0.1:6379"
  db: 0
  password: ""
  queue_key: "pdfer:jobs"

watch:
  paths:
    - "./inbox"
  debounce: 500ms
`

	if err := os.MkdirAll(filepath.Dir(configFile), 0755); err != nil {
		return err
	}
	return os.WriteFile(configFile, []byte(defaultConfig), 0644)
}

// ApplyCLIFlags applies command-line flags to override config values
func ApplyCLIFlags(cfg *Config, dpi int, langs []string, pageWorkers int) {
	if dpi > 0 {
		cfg.OCR.DPI = dpi
	}
	if len(langs) > 0 {
		cfg.OCR.Languages = langs
	}
	if pageWorkers > 0 {
		cfg.OCR.PageWorkers = pageWorkers
	}
}
