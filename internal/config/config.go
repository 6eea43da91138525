package config

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds application configuration.
type Config struct {
	Port          int           `toml:"port"`
	DownloadDir   string        `toml:"download_dir"`
	DBPath        string        `toml:"db_path"`
	TTL           time.Duration `toml:"-"`
	SweepInterval time.Duration `toml:"-"`
	MuxTimeout    time.Duration `toml:"-"`
	FetchTimeout  time.Duration `toml:"-"`
	FFmpegBin     string        `toml:"ffmpeg_bin"`
	YTDLPBin      string        `toml:"ytdlp_bin"`
	LogLevel      string        `toml:"log_level"`

	// Duration fields are strings in TOML ("1h", "10m").
	TTLStr           string `toml:"ttl"`
	SweepIntervalStr string `toml:"sweep_interval"`
	MuxTimeoutStr    string `toml:"mux_timeout"`
	FetchTimeoutStr  string `toml:"fetch_timeout"`
}

// DefaultDownloadDir returns the default public store directory.
func DefaultDownloadDir() string {
	return filepath.Join(mustGetwd(), "downloads")
}

// DefaultDBPath returns the default statistics database path.
func DefaultDBPath() string {
	return filepath.Join(mustGetwd(), "downloads.db")
}

func mustGetwd() string {
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}

// Load parses flags, an optional TOML file and environment overrides to
// build Config. Precedence: flags < file < env.
func Load() (*Config, error) {
	cfg := Defaults()

	var file string
	flag.StringVar(&file, "config", "", "Optional TOML config file")
	flag.IntVar(&cfg.Port, "port", cfg.Port, "HTTP server port")
	flag.StringVar(&cfg.DownloadDir, "download-dir", cfg.DownloadDir, "Public store directory")
	flag.StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite statistics database path")
	flag.DurationVar(&cfg.TTL, "ttl", cfg.TTL, "Artifact time-to-live")
	flag.DurationVar(&cfg.SweepInterval, "sweep-interval", cfg.SweepInterval, "Retention sweep interval")
	flag.DurationVar(&cfg.MuxTimeout, "mux-timeout", cfg.MuxTimeout, "Deadline per ffmpeg invocation")
	flag.DurationVar(&cfg.FetchTimeout, "fetch-timeout", cfg.FetchTimeout, "Deadline per yt-dlp invocation")
	flag.StringVar(&cfg.FFmpegBin, "ffmpeg", cfg.FFmpegBin, "ffmpeg binary")
	flag.StringVar(&cfg.YTDLPBin, "ytdlp", cfg.YTDLPBin, "yt-dlp binary")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	flag.Parse()

	if file != "" {
		if err := cfg.ApplyFile(file); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if cfg.TTL <= 0 {
		return nil, fmt.Errorf("ttl must be positive")
	}
	if cfg.SweepInterval <= 0 {
		return nil, fmt.Errorf("sweep-interval must be positive")
	}
	return cfg, nil
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	return &Config{
		Port:          8080,
		DownloadDir:   DefaultDownloadDir(),
		DBPath:        DefaultDBPath(),
		TTL:           time.Hour,
		SweepInterval: 10 * time.Minute,
		MuxTimeout:    10 * time.Minute,
		FetchTimeout:  30 * time.Minute,
		FFmpegBin:     "ffmpeg",
		YTDLPBin:      "yt-dlp",
		LogLevel:      "info",
	}
}

// ApplyFile overlays values from a TOML file.
func (c *Config) ApplyFile(path string) error {
	if _, err := toml.DecodeFile(path, c); err != nil {
		return fmt.Errorf("load config file %s: %w", path, err)
	}
	for _, d := range []struct {
		raw string
		dst *time.Duration
	}{
		{c.TTLStr, &c.TTL},
		{c.SweepIntervalStr, &c.SweepInterval},
		{c.MuxTimeoutStr, &c.MuxTimeout},
		{c.FetchTimeoutStr, &c.FetchTimeout},
	} {
		if d.raw == "" {
			continue
		}
		v, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("config file %s: bad duration %q: %w", path, d.raw, err)
		}
		*d.dst = v
	}
	return nil
}

func (c *Config) applyEnv() {
	if port := os.Getenv("VIDSERVE_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Port = p
		}
	}
	if dir := os.Getenv("VIDSERVE_DOWNLOAD_DIR"); dir != "" {
		c.DownloadDir = dir
	}
	if db := os.Getenv("VIDSERVE_DB"); db != "" {
		c.DBPath = db
	}
	if ttl := os.Getenv("VIDSERVE_TTL"); ttl != "" {
		if v, err := time.ParseDuration(ttl); err == nil {
			c.TTL = v
		}
	}
	if lvl := os.Getenv("VIDSERVE_LOG_LEVEL"); lvl != "" {
		c.LogLevel = lvl
	}
}

// RegistryPath returns the registry file location inside the store dir.
func (c *Config) RegistryPath() string {
	return filepath.Join(c.DownloadDir, "file_registry.txt")
}
