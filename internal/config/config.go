package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// CalDAVConfig holds the remote calendar connection settings. Username and
// Password may be left empty in the file and supplied via the
// CALDAV_USERNAME / CALDAV_PASSWORD environment variables instead, which
// keeps credentials out of the config file on shared hosts.
type CalDAVConfig struct {
	// URL is the calendar collection endpoint.
	URL      string `yaml:"url" json:"url"`
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"-"`
}

// WorkingConfig is the daily bookable window.
type WorkingConfig struct {
	StartHour int `yaml:"start_hour" json:"start_hour"`
	EndHour   int `yaml:"end_hour" json:"end_hour"`
	SlotHours int `yaml:"slot_hours" json:"slot_hours"`
}

// SMTPConfig configures booking confirmation mail delivery.
type SMTPConfig struct {
	Host string `yaml:"host" json:"host"`
	Port string `yaml:"port" json:"port"`
	// From is the sender shown on outgoing mail.
	From string `yaml:"from" json:"from"`
	// NotifyTo receives the internal notification for each new booking.
	NotifyTo string `yaml:"notify_to" json:"notify_to"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA zone of the calendar server's civil time
	// (e.g. "Europe/Paris"). Event timestamps without a UTC marker are
	// interpreted in this zone.
	Timezone string `yaml:"timezone" json:"timezone"`

	CalDAV CalDAVConfig `yaml:"caldav" json:"caldav"`

	Working WorkingConfig `yaml:"working_hours" json:"working_hours"`

	// RefreshCron is a cron-style schedule for the background availability
	// refresh (e.g. "*/15 * * * *").
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// CacheTTLSeconds bounds how long a computed slot list may be served
	// from the HTTP response cache.
	CacheTTLSeconds int `yaml:"cache_ttl_seconds" json:"cache_ttl_seconds"`

	// FailOpen, when true, treats a failed remote query as "no known busy
	// intervals" instead of an error. This trades a small double-booking
	// risk for widget availability.
	FailOpen bool `yaml:"fail_open" json:"fail_open"`

	SMTP SMTPConfig `yaml:"smtp" json:"smtp"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health and /metrics.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:   "127.0.0.1:8080",
		Timezone: "Europe/Paris",
		CalDAV:   CalDAVConfig{},
		Working: WorkingConfig{
			StartHour: 9,
			EndHour:   18,
			SlotHours: 1,
		},
		RefreshCron:     "*/15 * * * *",
		CacheTTLSeconds: 60,
		FailOpen:        false,
		SMTP: SMTPConfig{
			Host: "127.0.0.1",
			Port: "25",
		},
		BasicAuth: nil,
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly. Environment credential
// overrides are applied here as well.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8080"
	}
	if c.Timezone == "" {
		c.Timezone = "Europe/Paris"
	}
	if c.Working.StartHour <= 0 && c.Working.EndHour <= 0 {
		c.Working.StartHour = 9
		c.Working.EndHour = 18
	}
	if c.Working.SlotHours <= 0 {
		c.Working.SlotHours = 1
	}
	if c.RefreshCron == "" {
		c.RefreshCron = "*/15 * * * *"
	}
	if c.CacheTTLSeconds <= 0 {
		c.CacheTTLSeconds = 60
	}
	if c.SMTP.Host == "" {
		c.SMTP.Host = "127.0.0.1"
	}
	if c.SMTP.Port == "" {
		c.SMTP.Port = "25"
	}

	// Environment wins over the file for credentials.
	if v := os.Getenv("CALDAV_USERNAME"); v != "" {
		c.CalDAV.Username = v
	}
	if v := os.Getenv("CALDAV_PASSWORD"); v != "" {
		c.CalDAV.Password = v
	}
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist: create parent directory if needed, write
//     a default config with 0600 perms, and return the default config.
//   - If the file exists: read YAML, unmarshal, normalize defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			cfg.Normalize()
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to the specified path.
//
// The write is atomic (temp file + rename) and the final file is 0600,
// since the file may carry CalDAV and SMTP credentials.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".bookcal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}
