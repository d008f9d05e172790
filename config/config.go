package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	DatabasePath string `yaml:"database_path"`
	ServerPort   string `yaml:"server_port"`
	BackendURL   string `yaml:"backend_url"`
	APIUsername  string `yaml:"api_username"`
	APIPassword  string `yaml:"api_password"`

	// APIPasswordHash, when set, is checked by the server instead of
	// APIPassword. Clients still send the plain password.
	APIPasswordHash string `yaml:"api_password_hash"`

	TimezoneName  string         `yaml:"timezone"`
	Timezone      *time.Location `yaml:"-"`
	Locale        string         `yaml:"locale"`
	UpcomingLimit int            `yaml:"upcoming_limit"`
	UpcomingDays  int            `yaml:"upcoming_days"`

	TelegramToken     string `yaml:"telegram_bot_token"`
	OwnerTelegramID   int64  `yaml:"owner_telegram_id"`
	PartnerTelegramID int64  `yaml:"partner_telegram_id"`
	WebhookURL        string `yaml:"webhook_url"`
	BotPort           string `yaml:"bot_port"`

	SyncCron    string `yaml:"sync_cron"`
	MorningTime string `yaml:"morning_time"`

	CalDAVURL      string `yaml:"caldav_url"`
	CalDAVUsername string `yaml:"caldav_username"`
	CalDAVPassword string `yaml:"caldav_password"`
	CalDAVCalendar string `yaml:"caldav_calendar"`
}

func defaults() *Config {
	return &Config{
		DatabasePath:  "./data/eventcal.db",
		ServerPort:    "8080",
		BackendURL:    "http://localhost:8080",
		TimezoneName:  "Asia/Ho_Chi_Minh",
		Locale:        "vi",
		UpcomingLimit: 5,
		UpcomingDays:  7,
		BotPort:       "8081",
		SyncCron:      "*/5 * * * *",
		MorningTime:   "09:00",
	}
}

// Load builds the config from defaults, then the YAML file named by
// CONFIG_FILE (if any), then environment variables.
func Load() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	envString(&cfg.DatabasePath, "DATABASE_PATH")
	envString(&cfg.ServerPort, "SERVER_PORT")
	envString(&cfg.BackendURL, "BACKEND_URL")
	envString(&cfg.APIUsername, "API_USERNAME")
	envString(&cfg.APIPassword, "API_PASSWORD")
	envString(&cfg.APIPasswordHash, "API_PASSWORD_HASH")
	envString(&cfg.TimezoneName, "TIMEZONE")
	envString(&cfg.Locale, "LOCALE")
	envString(&cfg.TelegramToken, "TELEGRAM_BOT_TOKEN")
	envString(&cfg.WebhookURL, "WEBHOOK_URL")
	envString(&cfg.BotPort, "BOT_PORT")
	envString(&cfg.SyncCron, "SYNC_CRON")
	envString(&cfg.MorningTime, "MORNING_TIME")
	envString(&cfg.CalDAVURL, "CALDAV_URL")
	envString(&cfg.CalDAVUsername, "CALDAV_USERNAME")
	envString(&cfg.CalDAVPassword, "CALDAV_PASSWORD")
	envString(&cfg.CalDAVCalendar, "CALDAV_CALENDAR")

	ints := []struct {
		key string
		dst *int
	}{
		{"UPCOMING_LIMIT", &cfg.UpcomingLimit},
		{"UPCOMING_DAYS", &cfg.UpcomingDays},
	}
	for _, v := range ints {
		if s := os.Getenv(v.key); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil {
				return nil, fmt.Errorf("%s must be a number", v.key)
			}
			*v.dst = n
		}
	}

	ids := []struct {
		key string
		dst *int64
	}{
		{"OWNER_TELEGRAM_ID", &cfg.OwnerTelegramID},
		{"PARTNER_TELEGRAM_ID", &cfg.PartnerTelegramID},
	}
	for _, v := range ids {
		if s := os.Getenv(v.key); s != "" {
			n, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%s must be a number", v.key)
			}
			*v.dst = n
		}
	}

	tz, err := time.LoadLocation(cfg.TimezoneName)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}
	cfg.Timezone = tz

	if _, _, err := ParseClock(cfg.MorningTime); err != nil {
		return nil, fmt.Errorf("invalid MORNING_TIME: %w", err)
	}
	if cfg.UpcomingLimit <= 0 {
		return nil, fmt.Errorf("UPCOMING_LIMIT must be positive")
	}
	if cfg.UpcomingDays < 0 {
		return nil, fmt.Errorf("UPCOMING_DAYS must not be negative")
	}

	return cfg, nil
}

func envString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// RequireBot checks the settings the Telegram bot cannot run without
func (c *Config) RequireBot() error {
	if c.TelegramToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}
	if c.OwnerTelegramID == 0 {
		return fmt.Errorf("OWNER_TELEGRAM_ID is required and must be a number")
	}
	return nil
}

// ServerSecret is what the API checks Basic Auth passwords against
func (c *Config) ServerSecret() string {
	if c.APIPasswordHash != "" {
		return c.APIPasswordHash
	}
	return c.APIPassword
}

func (c *Config) IsAllowedUser(telegramID int64) bool {
	return telegramID == c.OwnerTelegramID || (c.PartnerTelegramID != 0 && telegramID == c.PartnerTelegramID)
}

// ParseClock parses "HH:MM"
func ParseClock(s string) (hour, minute int, err error) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, 0, fmt.Errorf("%q is not HH:MM", s)
	}
	hour, err = strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("%q has an invalid hour", s)
	}
	minute, err = strconv.Atoi(m)
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("%q has an invalid minute", s)
	}
	return hour, minute, nil
}
